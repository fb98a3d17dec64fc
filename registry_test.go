package waverelay

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryRegisterAndGet(t *testing.T) {
	registry := NewRegistry()

	client, err := registry.Register(DeviceConfig{Host: "192.168.1.50"})
	require.NoError(t, err)
	require.NotNil(t, client)
	assert.Equal(t, 1, registry.Len())

	got, ok := registry.Get("192.168.1.50:502")
	require.True(t, ok)
	assert.Same(t, client, got)

	_, ok = registry.Get("192.168.1.99:502")
	assert.False(t, ok)
}

func TestRegistryRejectsDuplicateIdentity(t *testing.T) {
	registry := NewRegistry()

	_, err := registry.Register(DeviceConfig{Host: "192.168.1.50"})
	require.NoError(t, err)

	_, err = registry.Register(DeviceConfig{Name: "other name, same board", Host: "192.168.1.50"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already registered")

	// Same host on a different port is a different device.
	_, err = registry.Register(DeviceConfig{Host: "192.168.1.50", Port: 1502})
	assert.NoError(t, err)
	assert.Equal(t, 2, registry.Len())
}

func TestRegistryRejectsInvalidConfig(t *testing.T) {
	registry := NewRegistry()
	_, err := registry.Register(DeviceConfig{})
	assert.Error(t, err)
	assert.Equal(t, 0, registry.Len())
}

func TestRegistryRemove(t *testing.T) {
	registry := NewRegistry()
	client, err := registry.Register(DeviceConfig{Host: "192.168.1.50"})
	require.NoError(t, err)

	require.NoError(t, registry.Remove("192.168.1.50:502"))
	assert.Equal(t, 0, registry.Len())

	// The removed client is closed.
	_, err = client.ReadCoil(0)
	assert.ErrorIs(t, err, ErrConnection)

	assert.Error(t, registry.Remove("192.168.1.50:502"), "removing twice must fail")
}

func TestRegistryCloseAll(t *testing.T) {
	registry := NewRegistry()
	a, err := registry.Register(DeviceConfig{Host: "192.168.1.50"})
	require.NoError(t, err)
	b, err := registry.Register(DeviceConfig{Host: "192.168.1.51"})
	require.NoError(t, err)

	require.NoError(t, registry.CloseAll())
	assert.Equal(t, 0, registry.Len())

	_, err = a.ReadCoil(0)
	assert.ErrorIs(t, err, ErrConnection)
	_, err = b.ReadCoil(0)
	assert.ErrorIs(t, err, ErrConnection)
}

func TestRegistryDevices(t *testing.T) {
	registry := NewRegistry()
	_, err := registry.Register(DeviceConfig{Host: "192.168.1.50", Name: "garage"})
	require.NoError(t, err)

	devices := registry.Devices()
	require.Len(t, devices, 1)
	assert.Equal(t, "garage", devices[0].Name)
	assert.Equal(t, DefaultChannels, devices[0].Channels, "stored config has defaults applied")
}
