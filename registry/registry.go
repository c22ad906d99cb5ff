// Package registry holds named *client.Client instances for an application
// that talks to several MCP servers at once. It replaces a package-level
// global with an explicitly constructed value: nothing in this module ever
// stashes a client behind a package variable.
package registry

import (
	"fmt"
	"sync"

	"github.com/gate4ai/mcpclient/client"
	"go.uber.org/multierr"
)

// ClientRegistry is a concurrency-safe, named collection of clients. The
// zero value is not usable; build one with New.
type ClientRegistry struct {
	mu      sync.RWMutex
	clients map[string]*client.Client
}

// New builds an empty registry.
func New() *ClientRegistry {
	return &ClientRegistry{clients: make(map[string]*client.Client)}
}

// Add registers c under name, replacing (without stopping) any client
// previously registered there. Callers that want the old client stopped
// first should Remove it explicitly.
func (r *ClientRegistry) Add(name string, c *client.Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients[name] = c
}

// Get returns the client registered under name, if any.
func (r *ClientRegistry) Get(name string) (*client.Client, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.clients[name]
	return c, ok
}

// Remove stops and unregisters the client under name. Returns false if no
// client was registered there.
func (r *ClientRegistry) Remove(name string) (bool, error) {
	r.mu.Lock()
	c, ok := r.clients[name]
	if ok {
		delete(r.clients, name)
	}
	r.mu.Unlock()
	if !ok {
		return false, nil
	}
	if err := c.Stop(); err != nil {
		return true, fmt.Errorf("stop client %q: %w", name, err)
	}
	return true, nil
}

// Names returns every currently registered name, in no particular order.
func (r *ClientRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.clients))
	for name := range r.clients {
		names = append(names, name)
	}
	return names
}

// CloseAll stops every registered client, collecting every error rather
// than stopping at the first failure, and empties the registry regardless
// of whether any stop failed.
func (r *ClientRegistry) CloseAll() error {
	r.mu.Lock()
	clients := r.clients
	r.clients = make(map[string]*client.Client)
	r.mu.Unlock()

	var combined error
	for name, c := range clients {
		if err := c.Stop(); err != nil {
			combined = multierr.Append(combined, fmt.Errorf("stop client %q: %w", name, err))
		}
	}
	return combined
}
