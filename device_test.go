package waverelay

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDeviceConfigDefaults(t *testing.T) {
	cfg := DeviceConfig{Host: "192.168.1.50"}.WithDefaults()

	assert.Equal(t, DefaultName, cfg.Name)
	assert.Equal(t, DefaultPort, cfg.Port)
	assert.Equal(t, uint8(DefaultUnitID), cfg.UnitID)
	assert.Equal(t, DefaultChannels, cfg.Channels)
	assert.Equal(t, DefaultTimeout, cfg.Timeout)
	assert.Equal(t, "192.168.1.50:502", cfg.Addr())
}

func TestDeviceConfigValidate(t *testing.T) {
	valid := DeviceConfig{Host: "192.168.1.50"}.WithDefaults()
	assert.NoError(t, valid.Validate())

	hostname := valid
	hostname.Host = "relay.local"
	assert.NoError(t, hostname.Validate(), "hostnames are accepted")

	tests := []struct {
		name   string
		mutate func(*DeviceConfig)
		field  string
	}{
		{"empty host", func(c *DeviceConfig) { c.Host = "" }, "host"},
		{"blank host", func(c *DeviceConfig) { c.Host = "   " }, "host"},
		{"host with spaces", func(c *DeviceConfig) { c.Host = "not a host" }, "host"},
		{"port too low", func(c *DeviceConfig) { c.Port = -1 }, "port"},
		{"port too high", func(c *DeviceConfig) { c.Port = 70000 }, "port"},
		{"negative channels", func(c *DeviceConfig) { c.Channels = -2 }, "channels"},
		{"too many channels", func(c *DeviceConfig) { c.Channels = MaxChannels + 1 }, "channels"},
		{"negative timeout", func(c *DeviceConfig) { c.Timeout = -time.Second }, "timeout"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			err := cfg.Validate()
			assert.Error(t, err)
			assert.Contains(t, err.Error(), tt.field, "error should name the failing field")
		})
	}
}

func TestDeviceConfigAddrIPv6(t *testing.T) {
	cfg := DeviceConfig{Host: "fe80::1", Port: 502}
	assert.Equal(t, "[fe80::1]:502", cfg.Addr())
}
