package memory

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"github.com/code-payments/compressed-wallet/pkg/config"
)

var errInduced = errors.New("memory config: induced error")

// Config is a mutable in-memory config source, mostly for tests. A nil value
// means nothing is set.
type Config struct {
	mu       sync.RWMutex
	value    interface{}
	induced  bool
	shutdown bool
}

func NewConfig(value interface{}) *Config {
	return &Config{value: value}
}

func (c *Config) Get(_ context.Context) (interface{}, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	switch {
	case c.shutdown:
		return nil, config.ErrShutdown
	case c.induced:
		return nil, errInduced
	case c.value == nil:
		return nil, config.ErrNoValue
	}
	return c.value, nil
}

func (c *Config) Shutdown() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.shutdown = true
}

func (c *Config) SetValue(value interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.value = value
}

// ClearValue makes subsequent Get calls return config.ErrNoValue
func (c *Config) ClearValue() {
	c.SetValue(nil)
}

// InduceErrors makes Get fail until StopInducingErrors is called
func (c *Config) InduceErrors() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.induced = true
}

func (c *Config) StopInducingErrors() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.induced = false
}
