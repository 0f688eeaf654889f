// Package seginfo provides utilities for naming and discovering the
// log-structured engine's segment files.
//
// Filename format: <id>.log for an immutable or active segment, <id>.bak
// for a segment compaction is currently writing and has not yet promoted.
// id is a contiguous, non-negative decimal integer with no padding or
// prefix, so plain numeric comparison (not lexicographic string sort)
// orders segments correctly.
package seginfo

import (
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/dreamerlzl/ignitekv/pkg/filesys"
)

const (
	// LogExtension is the extension of an immutable or active segment file.
	LogExtension = ".log"

	// BakExtension is the extension a segment uses while compaction is
	// still writing it, before the atomic rename that promotes it.
	BakExtension = ".bak"
)

// LogName returns the filename for segment id as an active or immutable segment.
func LogName(id uint64) string {
	return fmt.Sprintf("%d%s", id, LogExtension)
}

// BakName returns the filename compaction writes to for segment id before
// promoting it with an atomic rename to LogName(id).
func BakName(id uint64) string {
	return fmt.Sprintf("%d%s", id, BakExtension)
}

// ParseID extracts the segment id from a filename with either LogExtension
// or BakExtension. The second return value is false for anything else.
func ParseID(filename string) (uint64, bool) {
	ext := filepath.Ext(filename)
	if ext != LogExtension && ext != BakExtension {
		return 0, false
	}

	stem := strings.TrimSuffix(filename, ext)
	id, err := strconv.ParseUint(stem, 10, 64)
	if err != nil {
		return 0, false
	}

	return id, true
}

// ListSegmentIDs returns the ids of every *.log file in dataDir, sorted
// ascending. It does not include *.bak files, which are not yet visible
// segments.
func ListSegmentIDs(dataDir string) ([]uint64, error) {
	pattern := filepath.Join(dataDir, "*"+LogExtension)

	matches, err := filesys.ReadDir(pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to list segment files in %s: %w", dataDir, err)
	}

	ids := make([]uint64, 0, len(matches))
	for _, m := range matches {
		id, ok := ParseID(filepath.Base(m))
		if !ok {
			continue
		}
		ids = append(ids, id)
	}

	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

// Bounds returns the lowest and highest segment ids present in dataDir.
// ok is false when no segments exist yet.
func Bounds(dataDir string) (first, active uint64, ok bool, err error) {
	ids, err := ListSegmentIDs(dataDir)
	if err != nil {
		return 0, 0, false, err
	}
	if len(ids) == 0 {
		return 0, 0, false, nil
	}
	return ids[0], ids[len(ids)-1], true, nil
}
