// Package kvs implements the log-structured key-value engine: an
// append-only sequence of segment files, an in-memory index of where each
// live key's value lives, and a background compaction loop that reclaims
// space from overwritten and removed keys. Storage concerns are split
// across internal/storage (segment lifecycle), internal/index (key
// lookup), and internal/compaction (the merge algorithm), each in its own
// sibling package.
package kvs

import (
	"bytes"
	stdErrors "errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dreamerlzl/ignitekv/internal/compaction"
	idx "github.com/dreamerlzl/ignitekv/internal/index"
	"github.com/dreamerlzl/ignitekv/internal/record"
	"github.com/dreamerlzl/ignitekv/internal/storage"
	"github.com/dreamerlzl/ignitekv/pkg/errors"
	"github.com/dreamerlzl/ignitekv/pkg/framing"
	"github.com/dreamerlzl/ignitekv/pkg/options"
	"github.com/dreamerlzl/ignitekv/pkg/seginfo"
	"go.uber.org/zap"
)

var ErrEngineClosed = stdErrors.New("operation failed: engine is closed")

// Engine is the log-structured implementation of the Set/Get/Remove
// capability interface. A single mutex serializes every call, the simpler
// of the two viable concurrency disciplines, made explicit here rather
// than left implicit in lock placement scattered across callers.
type Engine struct {
	mu      sync.Mutex
	log     *zap.SugaredLogger
	opts    *options.Options
	storage *storage.Storage
	index   *idx.Index
	firstID uint64
	closed  atomic.Bool

	stopCompaction chan struct{}
	compactionDone chan struct{}
}

// Open recovers (or bootstraps) a log-structured engine rooted at
// opts.DataDir and starts its background compaction loop.
func Open(opts *options.Options, log *zap.SugaredLogger) (*Engine, error) {
	if opts == nil || opts.SegmentOptions == nil || log == nil {
		return nil, errors.NewConfigurationValidationError("opts", "engine configuration is required")
	}

	index, err := idx.New(&idx.Config{Logger: log})
	if err != nil {
		return nil, err
	}

	store, err := storage.New(&storage.Config{Options: opts, Logger: log})
	if err != nil {
		return nil, err
	}

	e := &Engine{
		log:            log,
		opts:           opts,
		storage:        store,
		index:          index,
		stopCompaction: make(chan struct{}),
		compactionDone: make(chan struct{}),
	}

	first, active, ok, err := seginfo.Bounds(opts.DataDir)
	if err != nil {
		return nil, errors.NewStorageError(err, errors.ErrorCodeIO, "failed to enumerate segments for recovery")
	}
	if !ok {
		first = store.ActiveID()
	}
	e.firstID = first

	if err := e.recover(first, active, ok); err != nil {
		return nil, err
	}

	go e.compactionLoop()

	log.Infow("log-structured engine opened", "dataDir", opts.DataDir, "firstID", e.firstID, "activeID", store.ActiveID(), "keys", index.Len())
	return e, nil
}

// recover rebuilds the index by replaying every segment from firstID
// through activeID (inclusive). Closed segments (firstID..activeID-1) try
// their hint file first; the active segment is always fully replayed,
// since a hint is only ever written for segments no longer being appended
// to. Ids in the range with no segment file (deleted by compaction) are
// skipped.
func (e *Engine) recover(firstID, activeID uint64, anySegments bool) error {
	if !anySegments {
		return nil
	}

	for id := firstID; id <= activeID; id++ {
		if _, err := os.Stat(filepath.Join(e.opts.DataDir, seginfo.LogName(id))); os.IsNotExist(err) {
			continue
		}

		if id != activeID {
			if entries, ok := readHint(e.opts.DataDir, id, e.log); ok {
				for key, pos := range entries {
					e.index.Put(key, pos)
				}
				continue
			}
		}

		if err := e.recoverSegment(id); err != nil {
			return err
		}
	}

	return nil
}

func (e *Engine) recoverSegment(id uint64) error {
	file, err := e.storage.OpenForReplay(id)
	if err != nil {
		return err
	}
	defer file.Close()

	reader := record.NewReader(file)
	for {
		rec, offset, err := reader.Next()
		if err != nil {
			if !framing.Truncated(err) {
				e.log.Warnw("stopping recovery of segment early due to decode error", "segmentID", id, "error", err)
			}
			break
		}

		if rec.IsRemove() {
			e.index.Delete(rec.Key)
		} else {
			e.index.Put(rec.Key, idx.Position{FileID: id, Offset: offset})
		}
	}

	return nil
}

// Set writes key=value as a new record in the active segment and updates
// the index to point at it.
func (e *Engine) Set(key, value string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed.Load() {
		return ErrEngineClosed
	}

	buf, err := e.encode(record.Set(key, value))
	if err != nil {
		return err
	}

	fileID, offset, err := e.storage.Append(buf)
	if err != nil {
		return err
	}

	e.index.Put(key, idx.Position{FileID: fileID, Offset: offset})
	return nil
}

// Get flushes the active segment, then looks the key up in the index and
// reads its value from disk. With a single mutex already serializing reads
// and writes, a read can never observe a write that hasn't completed, so
// the flush is a correctness belt rather than a necessity — but it is
// cheap and keeps the invariant explicit rather than implicit in lock
// placement.
func (e *Engine) Get(key string) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed.Load() {
		return "", ErrEngineClosed
	}

	if err := e.storage.Sync(); err != nil {
		return "", err
	}

	pos, ok := e.index.Get(key)
	if !ok {
		return "", errors.NewKeyNotFoundError(key)
	}

	file, err := e.storage.OpenForRead(pos.FileID, pos.Offset)
	if err != nil {
		return "", err
	}
	defer file.Close()

	reader := record.NewReader(file)
	rec, _, err := reader.Next()
	if err != nil {
		return "", errors.NewIndexCorruptionError("Get", e.index.Len(), err).WithKey(key).WithSegmentID(pos.FileID)
	}
	if !rec.IsSet() {
		return "", errors.NewIndexCorruptionError("Get", e.index.Len(), nil).WithKey(key).WithSegmentID(pos.FileID)
	}

	return rec.Value, nil
}

// Remove appends a tombstone record for key and drops it from the index.
// Removing a key that doesn't exist is a KeyNotFound error, not a no-op —
// the caller needs to know whether anything was actually deleted.
func (e *Engine) Remove(key string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed.Load() {
		return ErrEngineClosed
	}

	if _, ok := e.index.Get(key); !ok {
		return errors.NewKeyNotFoundError(key)
	}

	buf, err := e.encode(record.Remove(key))
	if err != nil {
		return err
	}

	if _, _, err := e.storage.Append(buf); err != nil {
		return err
	}

	e.index.Delete(key)
	return nil
}

func (e *Engine) encode(rec record.Record) ([]byte, error) {
	var buf bytes.Buffer
	if err := record.Encode(&buf, rec); err != nil {
		return nil, errors.NewProtocolError(err, errors.ErrorCodeSerialization, "failed to encode log record").
			WithOperation("Encode")
	}
	return buf.Bytes(), nil
}

// compactionLoop runs compaction on opts.CompactInterval until Close stops it.
func (e *Engine) compactionLoop() {
	defer close(e.compactionDone)

	ticker := time.NewTicker(e.opts.CompactInterval)
	defer ticker.Stop()

	for {
		select {
		case <-e.stopCompaction:
			return
		case <-ticker.C:
			if err := e.Compact(); err != nil {
				e.log.Errorw("compaction pass failed", "error", err)
			}
		}
	}
}

// Compact runs one compaction pass against the engine's closed segments.
// It is safe to call concurrently with Set/Get/Remove; the engine's mutex
// is held for the full pass, so the active segment never moves underneath
// compaction, and readers never observe a half-promoted segment.
func (e *Engine) Compact() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed.Load() {
		return ErrEngineClosed
	}

	activeID := e.storage.ActiveID()
	result, err := compaction.Run(e.opts.DataDir, e.firstID, activeID, e.opts.SegmentOptions.RotationThreshold, e.log)
	if err != nil {
		return err
	}

	if len(result.Index) == 0 && result.LastWrittenID == e.firstID && e.firstID == result.FirstID {
		return nil
	}

	merged := e.index.Snapshot()
	for key, pos := range merged {
		// Move every key that pointed into the compacted range to where
		// Result.Index put it, under possibly different (denser) segment ids.
		// Keys whose latest write is in the active segment keep their
		// position, even if an older value of theirs was compacted.
		if pos.FileID >= e.firstID && pos.FileID < activeID {
			if next, ok := result.Index[key]; ok {
				merged[key] = next
			} else {
				delete(merged, key)
			}
		}
	}
	e.index.Replace(merged)
	e.firstID = result.FirstID

	e.writeHintsForCompacted(result)
	return nil
}

// writeHintsForCompacted persists a hint file for each segment compaction
// just wrote, so the next recovery can skip replaying them. Failures are
// logged and otherwise ignored: the hint is a pure performance optimization.
func (e *Engine) writeHintsForCompacted(result compaction.Result) {
	bySegment := make(map[uint64]map[string]int64)
	for key, pos := range result.Index {
		m, ok := bySegment[pos.FileID]
		if !ok {
			m = make(map[string]int64)
			bySegment[pos.FileID] = m
		}
		m[key] = pos.Offset
	}

	for id, entries := range bySegment {
		if err := writeHint(e.opts.DataDir, id, entries); err != nil {
			e.log.Warnw("failed to write index hint after compaction", "segmentID", id, "error", err)
		}
	}
}

// Stats is a point-in-time snapshot of engine state, consulted by
// internal/admin's /stats endpoint. It is not part of the Set/Get/Remove
// capability interface — callers that want it type-assert for it.
type Stats struct {
	FirstID         uint64
	ActiveSegmentID uint64
	Keys            int
	ActiveBytes     int64
}

// Stats reports a snapshot of the engine's current state.
func (e *Engine) Stats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()

	return Stats{
		FirstID:         e.firstID,
		ActiveSegmentID: e.storage.ActiveID(),
		Keys:            e.index.Len(),
		ActiveBytes:     e.storage.Size(),
	}
}

// Close stops the background compaction loop and closes the underlying
// storage and index.
func (e *Engine) Close() error {
	if !e.closed.CompareAndSwap(false, true) {
		return ErrEngineClosed
	}

	close(e.stopCompaction)
	<-e.compactionDone

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.storage.Close(); err != nil {
		e.log.Warnw("failed to close storage cleanly", "error", err)
	}
	return e.index.Close()
}
