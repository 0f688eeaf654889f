package options

import (
	"runtime"
	"time"
)

const (
	// DefaultDataDir specifies the default base directory where ignitekv
	// will store its data files, if no other directory is specified.
	DefaultDataDir = "/var/lib/ignitekv"

	// DefaultCompactInterval defines the default time between automatic
	// compaction passes over the log-structured engine.
	DefaultCompactInterval = time.Hour * 5

	// MinRotationThreshold is the smallest allowed active-segment size
	// before rotation (64KiB).
	MinRotationThreshold uint64 = 64 * 1024

	// DefaultRotationThreshold is the default active-segment size before
	// rotation (1MiB).
	DefaultRotationThreshold uint64 = 1024 * 1024

	// DefaultAddr is the default address the TCP request server listens on.
	DefaultAddr = "127.0.0.1:4000"

	// DefaultEngine is the engine used when none was requested explicitly.
	DefaultEngine = "kvs"

	// DefaultAdminAddr is the default address the admin HTTP server
	// listens on.
	DefaultAdminAddr = "127.0.0.1:7421"
)

// defaultOptions holds the default configuration settings for an ignitekv
// instance.
var defaultOptions = Options{
	DataDir:         DefaultDataDir,
	CompactInterval: DefaultCompactInterval,
	SegmentOptions: &segmentOptions{
		RotationThreshold: DefaultRotationThreshold,
	},
	ServerOptions: &serverOptions{
		Addr:     DefaultAddr,
		Engine:   DefaultEngine,
		PoolSize: runtime.NumCPU(),
	},
	AdminOptions: &adminOptions{
		Enabled: true,
		Addr:    DefaultAdminAddr,
	},
}

// NewDefaultOptions returns a copy of the package's default options, safe
// for a caller to take the address of sub-structs and mutate.
func NewDefaultOptions() Options {
	opts := defaultOptions
	segment := *defaultOptions.SegmentOptions
	server := *defaultOptions.ServerOptions
	admin := *defaultOptions.AdminOptions
	opts.SegmentOptions = &segment
	opts.ServerOptions = &server
	opts.AdminOptions = &admin
	return opts
}
