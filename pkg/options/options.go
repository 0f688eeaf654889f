// Package options provides data structures and functions for configuring
// an ignitekv instance. It defines the parameters that control storage
// behavior (rotation, compaction), which engine backs a data directory, and
// how the TCP and admin HTTP surfaces are exposed.
package options

import (
	"strings"
	"time"
)

// segmentOptions controls how the log-structured engine rotates segment files.
type segmentOptions struct {
	// RotationThreshold is the maximum size in bytes the active segment can
	// grow to before a new one is started.
	//
	//  - Default: 1MiB
	//  - Minimum: 64KiB
	RotationThreshold uint64 `json:"rotationThreshold"`
}

// serverOptions controls the TCP request server.
type serverOptions struct {
	// Addr is the address the TCP server listens on.
	//
	// Default: "127.0.0.1:4000"
	Addr string `json:"addr"`

	// Engine selects which capability implementation backs the data
	// directory: "kvs" (the log-structured engine) or "bolt" (the bbolt
	// adapter).
	//
	// Default: "kvs"
	Engine string `json:"engine"`

	// PoolSize is the number of workers in the shared-queue worker pool
	// handling incoming requests.
	//
	// Default: runtime.NumCPU()
	PoolSize int `json:"poolSize"`
}

// adminOptions controls the observational HTTP surface.
type adminOptions struct {
	// Enabled toggles whether the admin HTTP server starts alongside the
	// TCP server.
	//
	// Default: true
	Enabled bool `json:"enabled"`

	// Addr is the address the admin HTTP server listens on.
	//
	// Default: "127.0.0.1:7421"
	Addr string `json:"addr"`
}

// Options defines the configuration parameters for an ignitekv instance. It
// provides control over storage, the engine backing it, and the server
// surfaces exposed on top of it.
type Options struct {
	// DataDir specifies the base path where segment files and (for the bolt
	// engine) the database file are stored. The engine marker file is kept
	// in the working directory, not here.
	//
	// Default: "/var/lib/ignitekv"
	DataDir string `json:"dataDir"`

	// CompactInterval defines how often the background compaction loop
	// runs against the log-structured engine.
	//
	// Default: 5h
	CompactInterval time.Duration `json:"compactInterval"`

	// SegmentOptions configures segment rotation for the log-structured engine.
	SegmentOptions *segmentOptions `json:"segmentOptions"`

	// ServerOptions configures the TCP request server.
	ServerOptions *serverOptions `json:"serverOptions"`

	// AdminOptions configures the admin HTTP surface.
	AdminOptions *adminOptions `json:"adminOptions"`
}

// OptionFunc is a function type that modifies an ignitekv instance's configuration.
type OptionFunc func(*Options)

// WithDefaultOptions applies a predefined set of default configuration values
// to the Options struct.
func WithDefaultOptions() OptionFunc {
	return func(o *Options) {
		opts := NewDefaultOptions()
		o.DataDir = opts.DataDir
		o.CompactInterval = opts.CompactInterval
		o.SegmentOptions = opts.SegmentOptions
		o.ServerOptions = opts.ServerOptions
		o.AdminOptions = opts.AdminOptions
	}
}

// WithDataDir sets the primary data directory.
func WithDataDir(directory string) OptionFunc {
	return func(o *Options) {
		directory = strings.TrimSpace(directory)
		if directory != "" {
			o.DataDir = directory
		}
	}
}

// WithCompactInterval sets the interval at which the background compaction
// loop runs.
func WithCompactInterval(interval time.Duration) OptionFunc {
	return func(o *Options) {
		if interval > 0 {
			o.CompactInterval = interval
		}
	}
}

// WithRotationThreshold sets the maximum size in bytes an active segment can
// reach before rotation.
func WithRotationThreshold(size uint64) OptionFunc {
	return func(o *Options) {
		if size >= MinRotationThreshold {
			o.SegmentOptions.RotationThreshold = size
		}
	}
}

// WithAddr sets the address the TCP request server listens on.
func WithAddr(addr string) OptionFunc {
	return func(o *Options) {
		addr = strings.TrimSpace(addr)
		if addr != "" {
			o.ServerOptions.Addr = addr
		}
	}
}

// WithEngine selects which engine backs the data directory: "kvs" or "bolt".
func WithEngine(engine string) OptionFunc {
	return func(o *Options) {
		engine = strings.TrimSpace(strings.ToLower(engine))
		if engine != "" {
			o.ServerOptions.Engine = engine
		}
	}
}

// WithPoolSize sets the number of workers in the request server's worker pool.
func WithPoolSize(n int) OptionFunc {
	return func(o *Options) {
		if n > 0 {
			o.ServerOptions.PoolSize = n
		}
	}
}

// WithAdminAddr sets the address the admin HTTP server listens on.
func WithAdminAddr(addr string) OptionFunc {
	return func(o *Options) {
		addr = strings.TrimSpace(addr)
		if addr != "" {
			o.AdminOptions.Addr = addr
		}
	}
}

// WithAdminEnabled toggles whether the admin HTTP server starts.
func WithAdminEnabled(enabled bool) OptionFunc {
	return func(o *Options) {
		o.AdminOptions.Enabled = enabled
	}
}
