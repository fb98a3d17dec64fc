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
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDevices(t *testing.T) {
	input := `
devices:
  - name: garage
    host: 192.168.1.50
    channels: 16
  - host: 192.168.1.51
    port: 1502
    timeout: 10s
`
	devices, err := ParseDevices(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, devices, 2)

	assert.Equal(t, "garage", devices[0].Name)
	assert.Equal(t, 16, devices[0].Channels)
	assert.Equal(t, DefaultPort, devices[0].Port, "port defaulted")

	assert.Equal(t, DefaultName, devices[1].Name, "name defaulted")
	assert.Equal(t, 1502, devices[1].Port)
	assert.Equal(t, DefaultChannels, devices[1].Channels)
	assert.Equal(t, 10*time.Second, devices[1].Timeout)
}

func TestParseDevicesRejectsInvalid(t *testing.T) {
	_, err := ParseDevices(strings.NewReader("devices:\n  - port: 502\n"))
	assert.Error(t, err, "missing host must be rejected")

	_, err = ParseDevices(strings.NewReader("devices: []\n"))
	assert.Error(t, err, "empty device list must be rejected")

	_, err = ParseDevices(strings.NewReader("devices: {not: a list}\n"))
	assert.Error(t, err, "malformed YAML must be rejected")
}

func TestParseDevicesRejectsDuplicates(t *testing.T) {
	input := `
devices:
  - host: 192.168.1.50
  - name: copy
    host: 192.168.1.50
`
	_, err := ParseDevices(strings.NewReader(input))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate")
}

func TestLoadDevices(t *testing.T) {
	path := filepath.Join(t.TempDir(), "devices.yaml")
	content := "devices:\n  - host: 10.0.0.7\n    name: bench\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	devices, err := LoadDevices(path)
	require.NoError(t, err)
	require.Len(t, devices, 1)
	assert.Equal(t, "bench", devices[0].Name)

	_, err = LoadDevices(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
