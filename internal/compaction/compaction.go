// Package compaction implements the log-structured engine's merge process:
// replaying the closed (non-active) segments, writing only each key's
// surviving value into a denser run of segments, and promoting them with
// the same atomic-rename discipline normal writes never need but crash
// recovery depends on. The merge writes a fresh run of segments rather
// than one eager single-file rewrite, so the rotation threshold still
// applies to compacted output.
package compaction

import (
	"bytes"
	"os"
	"path/filepath"

	"github.com/dreamerlzl/ignitekv/internal/index"
	"github.com/dreamerlzl/ignitekv/internal/record"
	"github.com/dreamerlzl/ignitekv/pkg/errors"
	"github.com/dreamerlzl/ignitekv/pkg/framing"
	"github.com/dreamerlzl/ignitekv/pkg/seginfo"
	"go.uber.org/zap"
)

// Result reports what a compaction pass produced.
type Result struct {
	// FirstID is unchanged from the id compaction was asked to start
	// rewriting at — compaction never shrinks the engine's id range from
	// the front.
	FirstID uint64

	// LastWrittenID is the highest id compaction actually wrote data to.
	// Anything between LastWrittenID+1 and the pre-compaction active id
	// boundary (exclusive) has been deleted as superseded. When no key
	// survives, nothing is written, LastWrittenID equals FirstID, and every
	// segment from FirstID up to the active id (exclusive) is deleted.
	LastWrittenID uint64

	// Index holds the rebuilt key -> Position map for the segments
	// compaction wrote, ready to be merged into the engine's live index.
	Index map[string]index.Position

	// BytesReclaimed is the total size of the segments removed.
	BytesReclaimed int64
}

// Run compacts the closed segments in [firstID, activeID) — the active
// segment itself is never touched, since the engine keeps appending new
// writes to it while compaction runs. It replays every closed segment in
// order, keeping only each key's most recent value (tombstones drop the
// key entirely), then rewrites the survivors into fresh segments starting
// at firstID, bounded by rotationThreshold, each written to a ".bak" file
// and fsynced before being renamed over its ".log" counterpart. Output never
// reaches activeID: segment activeID-1 takes whatever does not fit below it,
// even past the threshold. Segment ids left over past the last ".bak"
// written are deleted.
func Run(dataDir string, firstID, activeID uint64, rotationThreshold uint64, log *zap.SugaredLogger) (Result, error) {
	if firstID >= activeID {
		// Nothing closed to compact.
		return Result{FirstID: firstID, LastWrittenID: firstID, Index: map[string]index.Position{}}, nil
	}

	live, err := replay(dataDir, firstID, activeID, log)
	if err != nil {
		return Result{}, err
	}

	writtenIDs, newIndex, err := rewrite(dataDir, firstID, activeID, live, rotationThreshold, log)
	if err != nil {
		return Result{}, err
	}

	lastWritten := firstID
	deleteFrom := firstID
	if len(writtenIDs) > 0 {
		lastWritten = writtenIDs[len(writtenIDs)-1]
		deleteFrom = lastWritten + 1
	}

	var reclaimed int64
	for id := deleteFrom; id < activeID; id++ {
		path := filepath.Join(dataDir, seginfo.LogName(id))
		if info, statErr := os.Stat(path); statErr == nil {
			reclaimed += info.Size()
		}
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return Result{}, errors.NewStorageError(err, errors.ErrorCodeIO, "failed to remove superseded segment").
				WithFileName(seginfo.LogName(id))
		}
	}

	log.Infow("compaction complete",
		"firstID", firstID, "oldActiveID", activeID, "lastWrittenID", lastWritten,
		"survivingKeys", len(newIndex), "bytesReclaimed", reclaimed,
	)

	return Result{
		FirstID:        firstID,
		LastWrittenID:  lastWritten,
		Index:          newIndex,
		BytesReclaimed: reclaimed,
	}, nil
}

// replay scans every segment in [firstID, activeID) in order, returning the
// surviving key -> value state. A later record for a key always overrides
// an earlier one; a Remove drops the key.
func replay(dataDir string, firstID, activeID uint64, log *zap.SugaredLogger) (map[string]string, error) {
	live := make(map[string]string)

	for id := firstID; id < activeID; id++ {
		path := filepath.Join(dataDir, seginfo.LogName(id))
		file, err := os.Open(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, errors.NewStorageError(err, errors.ErrorCodeIO, "failed to open segment for compaction replay").
				WithFileName(seginfo.LogName(id))
		}

		reader := record.NewReader(file)
		for {
			rec, _, err := reader.Next()
			if err != nil {
				if !framing.Truncated(err) {
					log.Warnw("stopping replay of segment early due to decode error", "segmentID", id, "error", err)
				}
				break
			}

			if rec.IsRemove() {
				delete(live, rec.Key)
			} else {
				live[rec.Key] = rec.Value
			}
		}

		_ = file.Close()
	}

	return live, nil
}

// rewrite writes the surviving key/value pairs into fresh segments starting
// at firstID, respecting rotationThreshold except in segment activeID-1,
// which is never rotated past, via the .bak-then-rename discipline. It
// returns the ids actually written to and the index entries describing
// where each key landed.
func rewrite(dataDir string, firstID, activeID uint64, live map[string]string, rotationThreshold uint64, log *zap.SugaredLogger) ([]uint64, map[string]index.Position, error) {
	newIndex := make(map[string]index.Position, len(live))

	if len(live) == 0 {
		return nil, newIndex, nil
	}

	currentID := firstID
	bakPath := filepath.Join(dataDir, seginfo.BakName(currentID))
	file, err := os.OpenFile(bakPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return nil, nil, errors.NewStorageError(err, errors.ErrorCodeIO, "failed to create compaction output segment").
			WithFileName(seginfo.BakName(currentID))
	}

	writtenIDs := []uint64{currentID}
	var size int64

	promote := func() error {
		if err := file.Sync(); err != nil {
			return errors.ClassifySyncError(err, seginfo.BakName(currentID), bakPath, int(size))
		}
		if err := file.Close(); err != nil {
			return errors.NewStorageError(err, errors.ErrorCodeIO, "failed to close compaction output segment").
				WithFileName(seginfo.BakName(currentID))
		}
		logPath := filepath.Join(dataDir, seginfo.LogName(currentID))
		if err := os.Rename(bakPath, logPath); err != nil {
			return errors.NewStorageError(err, errors.ErrorCodeIO, "failed to promote compacted segment").
				WithFileName(seginfo.BakName(currentID))
		}
		return nil
	}

	for key, value := range live {
		rec := record.Record{Op: record.OpSet, Key: key, Value: value}

		var buf []byte
		buf, err = marshalRecord(rec)
		if err != nil {
			return nil, nil, err
		}

		if size > 0 && size+int64(len(buf)) > int64(rotationThreshold) && currentID+1 < activeID {
			if err := promote(); err != nil {
				return nil, nil, err
			}

			currentID++
			bakPath = filepath.Join(dataDir, seginfo.BakName(currentID))
			file, err = os.OpenFile(bakPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
			if err != nil {
				return nil, nil, errors.NewStorageError(err, errors.ErrorCodeIO, "failed to create compaction output segment").
					WithFileName(seginfo.BakName(currentID))
			}
			writtenIDs = append(writtenIDs, currentID)
			size = 0
		}

		offset := size
		n, werr := file.Write(buf)
		if werr != nil {
			return nil, nil, errors.NewStorageError(werr, errors.ErrorCodeIO, "failed to write compacted record").
				WithFileName(seginfo.BakName(currentID))
		}
		size += int64(n)

		newIndex[key] = index.Position{FileID: currentID, Offset: offset}
	}

	if err := promote(); err != nil {
		return nil, nil, err
	}

	log.Infow("compaction wrote segments", "count", len(writtenIDs), "from", firstID, "to", currentID)
	return writtenIDs, newIndex, nil
}

func marshalRecord(rec record.Record) ([]byte, error) {
	var buf bytes.Buffer
	if err := record.Encode(&buf, rec); err != nil {
		return nil, errors.NewProtocolError(err, errors.ErrorCodeSerialization, "failed to encode record during compaction").
			WithOperation("CompactionEncode")
	}
	return buf.Bytes(), nil
}
