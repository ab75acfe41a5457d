package gateway

import (
	"fmt"
	"sync"
)

// Factory is a constructor function that creates a new Gateway instance
// from vendor credentials ("base_url", "api_key", "webhook_url").
type Factory func(config map[string]string) (Gateway, error)

var (
	mu        sync.RWMutex
	factories = make(map[string]Factory)
)

// Register makes a gateway factory available by provider name.
// It is typically called from an init() function in the adapter package.
func Register(name string, factory Factory) {
	mu.Lock()
	defer mu.Unlock()

	if _, exists := factories[name]; exists {
		panic(fmt.Sprintf("gateway: duplicate registration for %q", name))
	}
	factories[name] = factory
}

// New creates a new Gateway by provider name using the registered factory.
func New(name string, config map[string]string) (Gateway, error) {
	mu.RLock()
	factory, ok := factories[name]
	mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("gateway: unknown provider %q", name)
	}
	return factory(config)
}

// Available returns the names of all registered providers.
func Available() []string {
	mu.RLock()
	defer mu.RUnlock()

	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	return names
}
