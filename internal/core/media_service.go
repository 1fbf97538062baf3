package core

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"synthesis.io/tutor-backend/internal/logger"
	"synthesis.io/tutor-backend/internal/store"
)

const (
	defaultMimeType      = "video/webm"
	chunkTimestampLayout = "20060102_150405.000000"
	maxNameAttempts      = 8
)

var (
	studentDirPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)
	extensionStrip    = regexp.MustCompile(`[^a-z0-9-]`)
)

type MediaStore interface {
	CreateMediaChunk(ctx context.Context, chunk *store.MediaChunk) error
	ListMediaChunksByStudent(ctx context.Context, studentID string) ([]store.MediaChunk, error)
}

// ChunkFS is the slice of the file system the ingestor touches.
type ChunkFS interface {
	MkdirAll(path string) error
	// WriteNew creates path and writes data, failing with fs.ErrExist if the
	// file is already there.
	WriteNew(path string, data []byte) error
	Remove(path string) error
}

type osFS struct{}

func (osFS) MkdirAll(path string) error { return os.MkdirAll(path, 0o755) }
func (osFS) Remove(path string) error   { return os.Remove(path) }

func (osFS) WriteNew(path string, data []byte) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return err
	}
	return nil
}

type MediaService struct {
	store   MediaStore
	fs      ChunkFS
	rootDir string
	now     func() time.Time
	log     *logger.Logger
}

func NewMediaService(ms MediaStore, rootDir string, log *logger.Logger) *MediaService {
	return &MediaService{store: ms, fs: osFS{}, rootDir: rootDir, now: time.Now, log: log}
}

// IngestChunk decodes a base64 (optionally data-URL) payload and writes it to
// <root>/<student>/<timestamp>.<ext>. Metadata is recorded only after the
// bytes are on disk.
func (s *MediaService) IngestChunk(ctx context.Context, studentID, payload, mimeType string) (*store.MediaChunk, error) {
	if !studentDirPattern.MatchString(studentID) {
		return nil, fmt.Errorf("student id %q is not usable as a directory name: %w", studentID, ErrInvalidPayload)
	}
	if strings.TrimSpace(mimeType) == "" {
		mimeType = defaultMimeType
	}
	ext, err := extensionFromMime(mimeType)
	if err != nil {
		return nil, err
	}
	data, err := decodeChunkPayload(payload)
	if err != nil {
		return nil, err
	}

	dir := filepath.Join(s.rootDir, studentID)
	if err := s.fs.MkdirAll(dir); err != nil {
		return nil, fmt.Errorf("failed to create chunk directory: %w", err)
	}

	captured := s.now().UTC()
	var filename, path string
	for attempt := 0; ; attempt++ {
		filename = captured.Format(chunkTimestampLayout) + "." + ext
		path = filepath.Join(dir, filename)
		err = s.fs.WriteNew(path, data)
		if err == nil {
			break
		}
		if !errors.Is(err, fs.ErrExist) || attempt+1 >= maxNameAttempts {
			return nil, fmt.Errorf("failed to write chunk: %w", err)
		}
		captured = captured.Add(time.Microsecond)
	}

	chunk := &store.MediaChunk{
		StudentID: studentID,
		Timestamp: captured,
		MimeType:  mimeType,
		Path:      path,
		Filename:  filename,
		SizeBytes: int64(len(data)),
	}
	if err := s.store.CreateMediaChunk(ctx, chunk); err != nil {
		if rmErr := s.fs.Remove(path); rmErr != nil {
			s.log.Warn("Failed to remove orphaned chunk", "path", path, "error", rmErr)
		}
		return nil, err
	}

	s.log.Debug("Chunk stored", "student_id", studentID, "filename", filename, "size_bytes", chunk.SizeBytes)
	return chunk, nil
}

// ListChunks returns the recorded chunk metadata for a student, oldest first.
func (s *MediaService) ListChunks(ctx context.Context, studentID string) ([]store.MediaChunk, error) {
	if !studentDirPattern.MatchString(studentID) {
		return nil, fmt.Errorf("student id %q is not usable as a directory name: %w", studentID, ErrInvalidPayload)
	}
	chunks, err := s.store.ListMediaChunksByStudent(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list media chunks: %w", err)
	}
	return chunks, nil
}

// decodeChunkPayload drops a "<meta>," prefix when present. The cut is at the
// last comma because MIME parameters may themselves hold commas and the
// base64 alphabet never does.
func decodeChunkPayload(payload string) ([]byte, error) {
	if i := strings.LastIndex(payload, ","); i >= 0 {
		payload = payload[i+1:]
	}
	data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(payload))
	if err != nil {
		return nil, fmt.Errorf("decode base64: %v: %w", err, ErrInvalidPayload)
	}
	return data, nil
}

// extensionFromMime turns "video/webm;codecs=vp8" into "webm".
func extensionFromMime(mimeType string) (string, error) {
	base, _, _ := strings.Cut(mimeType, ";")
	typ, subtype, ok := strings.Cut(strings.TrimSpace(base), "/")
	if !ok || strings.TrimSpace(typ) == "" {
		return "", fmt.Errorf("mime type %q: %w", mimeType, ErrInvalidPayload)
	}
	ext := extensionStrip.ReplaceAllString(strings.ToLower(strings.TrimSpace(subtype)), "")
	if ext == "" {
		return "", fmt.Errorf("mime type %q has no usable subtype: %w", mimeType, ErrInvalidPayload)
	}
	return ext, nil
}
