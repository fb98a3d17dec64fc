package waverelay

import (
	"fmt"
	"net"
	"strings"
	"time"
)

// Configuration defaults matching the Waveshare Modbus POE ETH Relay boards.
const (
	DefaultPort     = 502
	DefaultChannels = 8
	DefaultUnitID   = 1
	DefaultName     = "Waveshare Relay"
	DefaultTimeout  = 5 * time.Second

	// MaxChannels is the largest channel count any board variant exposes.
	MaxChannels = 32
)

// DeviceConfig describes one relay board: where to reach it and how many
// relay channels it exposes. A device is identified by (Host, Port).
type DeviceConfig struct {
	Name     string        `yaml:"name"`
	Host     string        `yaml:"host"`
	Port     int           `yaml:"port"`
	UnitID   uint8         `yaml:"unitId"`
	Channels int           `yaml:"channels"`
	Timeout  time.Duration `yaml:"timeout"`
}

// WithDefaults returns a copy of the config with zero-valued fields replaced
// by board defaults. Host is never defaulted.
func (c DeviceConfig) WithDefaults() DeviceConfig {
	if c.Name == "" {
		c.Name = DefaultName
	}
	if c.Port == 0 {
		c.Port = DefaultPort
	}
	if c.UnitID == 0 {
		c.UnitID = DefaultUnitID
	}
	if c.Channels == 0 {
		c.Channels = DefaultChannels
	}
	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}
	return c
}

// Validate checks the configuration and returns an error naming the first
// failing field. It is meant to run once at configuration time, before any
// entity or client is created.
func (c DeviceConfig) Validate() error {
	if strings.TrimSpace(c.Host) == "" {
		return fmt.Errorf("host: must not be empty")
	}
	if net.ParseIP(c.Host) == nil {
		// Not an IP literal; accept hostname syntax only.
		if strings.ContainsAny(c.Host, " /\\") {
			return fmt.Errorf("host: %q is not a valid IP address or hostname", c.Host)
		}
	}
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port: %d out of range [1, 65535]", c.Port)
	}
	if c.Channels < 1 || c.Channels > MaxChannels {
		return fmt.Errorf("channels: %d out of range [1, %d]", c.Channels, MaxChannels)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout: must not be negative")
	}
	return nil
}

// Addr returns the host:port dial address identifying this device.
func (c DeviceConfig) Addr() string {
	return net.JoinHostPort(c.Host, fmt.Sprintf("%d", c.Port))
}
