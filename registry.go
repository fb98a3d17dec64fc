package waverelay

import (
	"fmt"
	"sync"
)

// Registry tracks one Client per configured device, keyed by device identity
// (host:port). It is an explicit object owned by the caller; the package
// keeps no global state.
type Registry struct {
	mu      sync.Mutex
	clients map[string]*Client
}

// NewRegistry creates an empty device registry.
func NewRegistry() *Registry {
	return &Registry{clients: make(map[string]*Client)}
}

// Register creates a Client for the device and adds it to the registry.
// Registering the same device identity twice is an error.
func (r *Registry) Register(cfg DeviceConfig) (*Client, error) {
	client, err := NewClient(cfg)
	if err != nil {
		return nil, err
	}

	addr := client.Config().Addr()
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.clients[addr]; exists {
		return nil, fmt.Errorf("waverelay: device %s already registered", addr)
	}
	r.clients[addr] = client
	return client, nil
}

// Get returns the Client for a device identity, if registered.
func (r *Registry) Get(addr string) (*Client, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	client, ok := r.clients[addr]
	return client, ok
}

// Remove closes the device's Client and drops it from the registry.
func (r *Registry) Remove(addr string) error {
	r.mu.Lock()
	client, ok := r.clients[addr]
	delete(r.clients, addr)
	r.mu.Unlock()
	if !ok {
		return fmt.Errorf("waverelay: device %s not registered", addr)
	}
	return client.Close()
}

// Devices returns the configurations of all registered devices.
func (r *Registry) Devices() []DeviceConfig {
	r.mu.Lock()
	defer r.mu.Unlock()
	devices := make([]DeviceConfig, 0, len(r.clients))
	for _, client := range r.clients {
		devices = append(devices, client.Config())
	}
	return devices
}

// Len returns the number of registered devices.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.clients)
}

// CloseAll closes every registered Client and empties the registry. The
// first close error is returned; all clients are closed regardless.
func (r *Registry) CloseAll() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	var firstErr error
	for addr, client := range r.clients {
		if err := client.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(r.clients, addr)
	}
	return firstErr
}
