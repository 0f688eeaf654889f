package index

import (
	"sync"

	"go.uber.org/zap"
)

// Position locates a value inside the log-structured engine's segment
// files: which segment holds the record, and the byte offset the record's
// first byte occupies within that segment. Recency is implicit in replay
// order — segments are always visited lowest id to highest, so the last
// Position recorded for a key during recovery is always its most recent
// write, with no separate timestamp needed.
type Position struct {
	FileID uint64
	Offset int64
}

// Index is the in-memory hash table mapping live keys to their on-disk
// Position. It is the central Bitcask-style structure: every key lives in
// memory, but only its location on disk, never its value, so the index
// stays small relative to the dataset it describes.
type Index struct {
	log *zap.SugaredLogger
	pos map[string]Position
	mu  sync.RWMutex
}

// Config encapsulates the parameters required to initialize an Index.
type Config struct {
	Logger *zap.SugaredLogger
}
