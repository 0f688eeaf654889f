// Package storage manages the log-structured engine's segment files on
// disk: discovering existing segments at startup, appending bytes to the
// active one, rotating to a fresh segment once the active one crosses its
// size threshold, and opening any segment for random-access reads. It
// operates purely in terms of bytes, offsets, and segment ids — record
// framing lives in internal/record, and key lookups live in internal/index.
package storage

import (
	stdErrors "errors"
	"io"
	"os"
	"path/filepath"

	"github.com/dreamerlzl/ignitekv/pkg/errors"
	"github.com/dreamerlzl/ignitekv/pkg/filesys"
	"github.com/dreamerlzl/ignitekv/pkg/options"
	"github.com/dreamerlzl/ignitekv/pkg/seginfo"
	"go.uber.org/zap"
)

var (
	ErrSegmentClosed = stdErrors.New("operation failed: cannot access closed segment")
)

// New discovers any existing segments in config.Options.DataDir and opens
// the active one for append, creating a fresh directory and first segment
// on a bootstrap start.
func New(config *Config) (*Storage, error) {
	if config == nil || config.Options == nil || config.Logger == nil {
		return nil, errors.NewConfigurationValidationError("config", "storage configuration is required")
	}

	config.Logger.Infow(
		"initializing storage",
		"dataDir", config.Options.DataDir,
		"rotationThreshold", config.Options.SegmentOptions.RotationThreshold,
	)

	if err := filesys.CreateDir(config.Options.DataDir, 0755, true); err != nil {
		return nil, errors.ClassifyDirectoryCreationError(err, config.Options.DataDir)
	}

	s := &Storage{log: config.Logger, options: config.Options}

	first, active, ok, err := seginfo.Bounds(config.Options.DataDir)
	if err != nil {
		return nil, errors.NewStorageError(err, errors.ErrorCodeIO, "failed to discover existing segments").
			WithPath(config.Options.DataDir)
	}

	var targetID uint64
	var isNew bool

	if !ok {
		targetID = 1
		isNew = true
		s.size = 0
		config.Logger.Infow("no existing segments found, starting fresh", "newSegmentID", targetID)
	} else {
		info, statErr := os.Stat(s.segmentPath(active))
		if statErr != nil {
			return nil, errors.NewStorageError(statErr, errors.ErrorCodeIO, "failed to stat active segment").
				WithPath(s.segmentPath(active))
		}

		maxSize := int64(config.Options.SegmentOptions.RotationThreshold)
		if info.Size() >= maxSize {
			targetID = active + 1
			isNew = true
			s.size = 0
			config.Logger.Infow("active segment is full, rotating", "previousID", active, "newSegmentID", targetID)
		} else {
			targetID = active
			isNew = false
			s.size = info.Size()
			config.Logger.Infow("continuing with existing active segment", "segmentID", targetID, "size", s.size)
		}

		_ = first // first segment id is consumed by the engine for recovery, not needed here
	}

	file, err := s.openSegmentFile(targetID, isNew)
	if err != nil {
		return nil, err
	}

	s.activeSegment = file
	s.activeSegmentId = targetID

	config.Logger.Infow("storage initialized", "activeSegmentID", targetID, "size", s.size)
	return s, nil
}

func (s *Storage) segmentPath(id uint64) string {
	return filepath.Join(s.options.DataDir, seginfo.LogName(id))
}

func (s *Storage) openSegmentFile(id uint64, isNew bool) (*os.File, error) {
	path := s.segmentPath(id)

	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0644)
	if err != nil {
		return nil, errors.ClassifyFileOpenError(err, path, seginfo.LogName(id))
	}

	if _, err := file.Seek(0, io.SeekEnd); err != nil {
		_ = file.Close()
		return nil, errors.NewStorageError(err, errors.ErrorCodeIO, "failed to seek to end of segment").
			WithPath(path).WithFileName(seginfo.LogName(id))
	}

	s.log.Infow("opened segment file", "path", path, "isNew", isNew)
	return file, nil
}

// ActiveID returns the id of the segment currently accepting writes.
func (s *Storage) ActiveID() uint64 {
	return s.activeSegmentId
}

// Size returns the current size in bytes of the active segment.
func (s *Storage) Size() int64 {
	return s.size
}

// Append writes data to the active segment, returning the segment id and
// the byte offset data's first byte occupies within it. It rotates to a
// fresh segment first if appending data would cross the configured
// threshold, so data is always written in a single segment, never split.
func (s *Storage) Append(data []byte) (uint64, int64, error) {
	if s.closed.Load() {
		return 0, 0, ErrSegmentClosed
	}

	if s.size > 0 && s.size+int64(len(data)) > int64(s.options.SegmentOptions.RotationThreshold) {
		if err := s.rotate(); err != nil {
			return 0, 0, err
		}
	}

	offset := s.size

	n, err := s.activeSegment.Write(data)
	if err != nil {
		return 0, 0, errors.NewStorageError(err, errors.ErrorCodeIO, "failed to append to active segment").
			WithFileName(seginfo.LogName(s.activeSegmentId)).
			WithOffset(int(offset))
	}

	s.size += int64(n)
	return s.activeSegmentId, offset, nil
}

// rotate closes the active segment and opens a new one at activeID+1.
func (s *Storage) rotate() error {
	previous := s.activeSegment
	previousID := s.activeSegmentId

	next := s.activeSegmentId + 1
	file, err := s.openSegmentFile(next, true)
	if err != nil {
		return err
	}

	s.activeSegment = file
	s.activeSegmentId = next
	s.size = 0

	if err := previous.Sync(); err != nil {
		s.log.Warnw("failed to sync outgoing segment before rotation", "segmentID", previousID, "error", err)
	}
	if err := previous.Close(); err != nil {
		s.log.Warnw("failed to close outgoing segment after rotation", "segmentID", previousID, "error", err)
	}

	s.log.Infow("rotated active segment", "previousID", previousID, "activeID", next)
	return nil
}

// Sync flushes the active segment to stable storage.
func (s *Storage) Sync() error {
	if s.closed.Load() {
		return ErrSegmentClosed
	}
	if err := s.activeSegment.Sync(); err != nil {
		return errors.ClassifySyncError(err, seginfo.LogName(s.activeSegmentId), s.segmentPath(s.activeSegmentId), int(s.size))
	}
	return nil
}

// OpenForRead opens segment id for random-access reading and seeks to
// offset, returning the file positioned for a single record decode. The
// caller owns the returned file and must close it.
func (s *Storage) OpenForRead(id uint64, offset int64) (*os.File, error) {
	path := s.segmentPath(id)

	file, err := os.Open(path)
	if err != nil {
		return nil, errors.NewStorageError(err, errors.ErrorCodeIO, "failed to open segment for read").
			WithPath(path).WithFileName(seginfo.LogName(id))
	}

	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		_ = file.Close()
		return nil, errors.NewStorageError(err, errors.ErrorCodeIO, "failed to seek into segment").
			WithPath(path).WithFileName(seginfo.LogName(id)).WithOffset(int(offset))
	}

	return file, nil
}

// OpenForReplay opens segment id from the beginning, for sequential replay
// during recovery.
func (s *Storage) OpenForReplay(id uint64) (*os.File, error) {
	path := filepath.Join(s.options.DataDir, seginfo.LogName(id))
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.NewStorageError(err, errors.ErrorCodeIO, "failed to open segment for replay").
			WithPath(path).WithFileName(seginfo.LogName(id))
	}
	return file, nil
}

// Remove deletes segment id from disk. It never removes the active segment.
func (s *Storage) Remove(id uint64) error {
	if id == s.activeSegmentId {
		return errors.NewStorageError(nil, errors.ErrorCodeInternal, "refusing to remove the active segment").
			WithFileName(seginfo.LogName(id))
	}
	if err := filesys.DeleteFile(s.segmentPath(id)); err != nil && !os.IsNotExist(err) {
		return errors.NewStorageError(err, errors.ErrorCodeIO, "failed to remove segment").
			WithFileName(seginfo.LogName(id))
	}
	return nil
}

// Close syncs and closes the active segment.
func (s *Storage) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return ErrSegmentClosed
	}

	if err := s.activeSegment.Sync(); err != nil {
		s.log.Warnw("failed to sync active segment on close", "error", err)
	}
	return s.activeSegment.Close()
}
