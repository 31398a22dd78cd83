package config

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

var (
	// ErrNoValue indicates no value was set for the config
	ErrNoValue = errors.New("config: no value set")

	// ErrShutdown indicates the use of a Config after calling Shutdown
	ErrShutdown = errors.New("config: shutdown")
)

// Config is an untyped source of a configuration value. Sources return
// ErrNoValue when nothing is set, so typed wrappers can fall back to their
// defaults.
type Config interface {
	Get(ctx context.Context) (interface{}, error)
	Shutdown()
}

// Typed is a config.Config converted to T. Get never fails: it falls back to
// the last observed value, or the default when nothing has been observed.
type Typed[T any] interface {
	Get(ctx context.Context) T
	GetSafe(ctx context.Context) (T, error)
	Shutdown()
}

type (
	Bool     = Typed[bool]
	Uint64   = Typed[uint64]
	String   = Typed[string]
	Duration = Typed[time.Duration]
)
