package kvs

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dreamerlzl/ignitekv/internal/index"
	"github.com/tysonmote/gommap"
	"go.uber.org/zap"
)

// Each hint entry is a variable-length record: a 2-byte key length, the key
// bytes, then an 8-byte big-endian offset. Hints are written once, when a
// segment becomes immutable after compaction, and are read back only to
// warm-start the index without replaying and JSON-decoding every record in
// that segment — a segment that has been compacted holds only live
// entries, so the hint's entry count equals the segment's key count exactly.
const hintOffsetWidth = 8

func hintPath(dataDir string, id uint64) string {
	return filepath.Join(dataDir, fmt.Sprintf("%d.hint", id))
}

// writeHint persists entries (key -> offset within segment id) to that
// segment's hint file. Any failure here is logged and swallowed by the
// caller — a missing or broken hint only costs a fallback full scan next
// startup, never correctness.
func writeHint(dataDir string, id uint64, entries map[string]int64) error {
	f, err := os.OpenFile(hintPath(dataDir, id), os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	var lenBuf [2]byte
	var offBuf [hintOffsetWidth]byte

	for key, offset := range entries {
		binary.BigEndian.PutUint16(lenBuf[:], uint16(len(key)))
		if _, err := w.Write(lenBuf[:]); err != nil {
			return err
		}
		if _, err := w.WriteString(key); err != nil {
			return err
		}
		binary.BigEndian.PutUint64(offBuf[:], uint64(offset))
		if _, err := w.Write(offBuf[:]); err != nil {
			return err
		}
	}

	if err := w.Flush(); err != nil {
		return err
	}
	return f.Sync()
}

// readHint loads a segment's hint file back into key -> Position entries
// for fileID, mapping it read-only via gommap for fast sequential access.
// It returns
// ok=false whenever the hint is absent, stale relative to the segment it
// describes, or fails to parse — any of which simply falls back to a full
// scan of that segment.
func readHint(dataDir string, id uint64, log *zap.SugaredLogger) (map[string]index.Position, bool) {
	hPath := hintPath(dataDir, id)
	segPath := filepath.Join(dataDir, fmt.Sprintf("%d.log", id))

	hintInfo, err := os.Stat(hPath)
	if err != nil {
		return nil, false
	}
	segInfo, err := os.Stat(segPath)
	if err != nil {
		return nil, false
	}
	if hintInfo.ModTime().Before(segInfo.ModTime()) {
		log.Infow("hint file stale relative to segment, falling back to full scan", "segmentID", id)
		return nil, false
	}
	if hintInfo.Size() == 0 {
		return map[string]index.Position{}, true
	}

	f, err := os.Open(hPath)
	if err != nil {
		return nil, false
	}
	defer f.Close()

	mapped, err := gommap.Map(f.Fd(), gommap.PROT_READ, gommap.MAP_SHARED)
	if err != nil {
		log.Warnw("failed to mmap hint file, falling back to full scan", "segmentID", id, "error", err)
		return nil, false
	}
	defer mapped.UnsafeUnmap()

	entries := make(map[string]index.Position)
	cursor := uint64(0)
	size := uint64(len(mapped))

	for cursor < size {
		if cursor+2 > size {
			log.Warnw("truncated hint entry, falling back to full scan", "segmentID", id)
			return nil, false
		}
		keyLen := uint64(binary.BigEndian.Uint16(mapped[cursor : cursor+2]))
		cursor += 2

		if cursor+keyLen+hintOffsetWidth > size {
			log.Warnw("truncated hint entry, falling back to full scan", "segmentID", id)
			return nil, false
		}
		key := string(mapped[cursor : cursor+keyLen])
		cursor += keyLen

		offset := int64(binary.BigEndian.Uint64(mapped[cursor : cursor+hintOffsetWidth]))
		cursor += hintOffsetWidth

		entries[key] = index.Position{FileID: id, Offset: offset}
	}

	return entries, true
}
