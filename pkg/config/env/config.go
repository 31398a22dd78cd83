package env

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/code-payments/compressed-wallet/pkg/config"
	"github.com/code-payments/compressed-wallet/pkg/config/wrapper"
)

// conf is a snapshot of an environment variable taken at construction
type conf struct {
	val string
}

// NewConfig returns a config sourced from the upper cased environment
// variable key
func NewConfig(key string) config.Config {
	return &conf{
		val: os.Getenv(strings.ToUpper(key)),
	}
}

func (c *conf) Get(_ context.Context) (interface{}, error) {
	if len(c.val) == 0 {
		return nil, config.ErrNoValue
	}
	return []byte(c.val), nil
}

func (c *conf) Shutdown() {}

func NewBoolConfig(key string, defaultValue bool) config.Bool {
	return wrapper.NewBoolConfig(NewConfig(key), defaultValue)
}

func NewUint64Config(key string, defaultValue uint64) config.Uint64 {
	return wrapper.NewUint64Config(NewConfig(key), defaultValue)
}

func NewStringConfig(key string, defaultValue string) config.String {
	return wrapper.NewStringConfig(NewConfig(key), defaultValue)
}

func NewDurationConfig(key string, defaultValue time.Duration) config.Duration {
	return wrapper.NewDurationConfig(NewConfig(key), defaultValue)
}
