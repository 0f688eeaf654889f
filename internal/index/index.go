// Package index provides the in-memory hash table mapping keys to their
// on-disk Position for the log-structured engine. This package embodies
// the core Bitcask architectural principle: keep every key in memory with
// minimal metadata while values themselves live on disk.
package index

import (
	"github.com/dreamerlzl/ignitekv/pkg/errors"
)

// New creates an Index ready for concurrent use, with a map pre-sized for
// a modest working set; Go grows it automatically past that.
func New(config *Config) (*Index, error) {
	if config == nil || config.Logger == nil {
		return nil, errors.NewValidationError(
			nil, errors.ErrorCodeInvalidInput, "index configuration is required",
		).WithField("config").WithRule("required").WithProvided(config)
	}

	return &Index{
		log: config.Logger,
		pos: make(map[string]Position, 2046),
	}, nil
}

// Get returns the Position for key, if one is currently live.
func (idx *Index) Get(key string) (Position, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	p, ok := idx.pos[key]
	return p, ok
}

// Put records key's current Position, overwriting any prior one.
func (idx *Index) Put(key string, pos Position) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.pos[key] = pos
}

// Delete removes key from the index, reporting whether it was present.
func (idx *Index) Delete(key string) bool {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	_, ok := idx.pos[key]
	delete(idx.pos, key)
	return ok
}

// Len returns the number of live keys.
func (idx *Index) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.pos)
}

// Snapshot returns a copy of the full key -> Position map, used by the
// log-structured engine to merge compaction output into the live index.
func (idx *Index) Snapshot() map[string]Position {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	out := make(map[string]Position, len(idx.pos))
	for k, v := range idx.pos {
		out[k] = v
	}
	return out
}

// Replace swaps the entire index contents atomically. internal/compaction
// builds a fresh map while rewriting segments, then hands it here once the
// new segments are durable on disk.
func (idx *Index) Replace(next map[string]Position) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.log.Infow("replacing index contents after compaction", "entries", len(next))
	idx.pos = next
}

// Close releases the index's backing map. The engine that owns an Index is
// responsible for serializing this against concurrent Get/Put/Delete calls.
func (idx *Index) Close() error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.log.Infow("closing index", "entries", len(idx.pos))
	clear(idx.pos)
	return nil
}
