package storage

import (
	"os"
	"sync/atomic"

	"github.com/dreamerlzl/ignitekv/pkg/options"
	"go.uber.org/zap"
)

// Storage manages the log-structured engine's segment files: which one is
// currently being appended to, its size, and rotating to a fresh segment
// once it crosses the configured threshold. It knows nothing about keys or
// values — it deals only in bytes and segment ids, leaving record framing
// to internal/record and key lookups to internal/index.
type Storage struct {
	size            int64
	activeSegmentId uint64
	closed          atomic.Bool
	activeSegment   *os.File
	options         *options.Options
	log             *zap.SugaredLogger
}

// Config encapsulates the parameters required to initialize a Storage instance.
type Config struct {
	Options *options.Options
	Logger  *zap.SugaredLogger
}
