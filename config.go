// Copyright (C) 2025  wavekit
//
// This program is free software; you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation; either version 2 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License along
// with this program; if not, see <https://www.gnu.org/licenses/>.

package waverelay

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// deviceFile is the on-disk shape of a device configuration file.
type deviceFile struct {
	Devices []DeviceConfig `yaml:"devices"`
}

// ParseDevices reads a YAML device list, applies board defaults to each
// entry, and validates them. Two entries must not share a device identity
// (host:port).
func ParseDevices(r io.Reader) ([]DeviceConfig, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("waverelay: failed to read device config: %w", err)
	}

	var file deviceFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("waverelay: failed to parse device config: %w", err)
	}
	if len(file.Devices) == 0 {
		return nil, fmt.Errorf("waverelay: device config contains no devices")
	}

	seen := make(map[string]bool, len(file.Devices))
	devices := make([]DeviceConfig, 0, len(file.Devices))
	for i, cfg := range file.Devices {
		cfg = cfg.WithDefaults()
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("waverelay: device %d (%s): %w", i, cfg.Name, err)
		}
		if seen[cfg.Addr()] {
			return nil, fmt.Errorf("waverelay: duplicate device address %s", cfg.Addr())
		}
		seen[cfg.Addr()] = true
		devices = append(devices, cfg)
	}
	return devices, nil
}

// LoadDevices loads and parses a YAML device configuration file.
func LoadDevices(path string) ([]DeviceConfig, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("waverelay: failed to open device config %s: %w", path, err)
	}
	defer f.Close()
	return ParseDevices(f)
}
