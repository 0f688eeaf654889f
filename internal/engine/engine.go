// Package engine defines the capability interface every storage backend
// satisfies — Set, Get, Remove — and a tagged-variant dispatcher that opens
// the configured one. Neither dynamic dispatch nor an interface-typed field
// sprinkled through the server is needed beyond this one seam: the server
// only ever talks to an Engine, never to *kvs.Engine or *boltengine.Engine
// directly.
package engine

import (
	"fmt"

	"github.com/dreamerlzl/ignitekv/internal/boltengine"
	"github.com/dreamerlzl/ignitekv/internal/kvs"
	"github.com/dreamerlzl/ignitekv/pkg/errors"
	"github.com/dreamerlzl/ignitekv/pkg/options"
	"go.uber.org/zap"
)

// Name identifies which engine variant backs an Engine value.
type Name string

const (
	KVS  Name = "kvs"
	Bolt Name = "bolt"
)

// Engine is the capability set any storage backend must satisfy.
type Engine interface {
	Set(key, value string) error
	Get(key string) (string, error)
	Remove(key string) error
	Close() error
}

// Config holds the parameters needed to open an Engine of either variant.
type Config struct {
	Options *options.Options
	Logger  *zap.SugaredLogger
}

// Open opens the engine variant named by config.Options.ServerOptions.Engine.
// Both variants live inside config.Options.DataDir, so switching the engine
// choice on a directory populated by the other variant is a user error this
// layer does not detect — the marker file round-trip in cmd/ignitekv-server
// is what catches that at startup.
func Open(config *Config) (Engine, error) {
	if config == nil || config.Options == nil || config.Logger == nil {
		return nil, errors.NewConfigurationValidationError("config", "engine configuration is required")
	}

	switch Name(config.Options.ServerOptions.Engine) {
	case KVS:
		return kvs.Open(config.Options, config.Logger)
	case Bolt:
		return boltengine.Open(config.Options.DataDir, config.Logger)
	default:
		return nil, errors.NewInvalidEngineError(config.Options.ServerOptions.Engine, "")
	}
}

// Parse validates a user-supplied engine name, returning a typed Name.
func Parse(s string) (Name, error) {
	switch Name(s) {
	case KVS, Bolt:
		return Name(s), nil
	default:
		return "", fmt.Errorf("unknown engine %q, expected %q or %q", s, KVS, Bolt)
	}
}
