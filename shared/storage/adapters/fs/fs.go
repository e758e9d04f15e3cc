// Package fs implements object storage on the local filesystem. Each bucket
// is a directory under the base path and each object has a JSON metadata
// sidecar next to it.
package fs

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/islamibragimov/url-downloader-bot/shared/observability"
	"github.com/islamibragimov/url-downloader-bot/shared/storage/types"
)

const metadataSuffix = ".meta.json"

// DefaultBucket is used when Put or Exists receive an empty bucket.
const DefaultBucket = "default"

// Storage implements types.ObjectStorage using the local filesystem.
type Storage struct {
	basePath string
	logger   observability.Logger
	metrics  observability.Metrics
}

// NewStorage creates the base directory if needed and returns a Storage
// rooted there.
func NewStorage(basePath string, logger observability.Logger, metrics observability.Metrics) (*Storage, error) {
	if basePath == "" {
		return nil, fmt.Errorf("base path is required")
	}
	abs, err := filepath.Abs(basePath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve base path: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create base path: %w", err)
	}

	return &Storage{
		basePath: abs,
		logger:   logger.WithFields(observability.Fields{"storage": "fs"}),
		metrics:  metrics,
	}, nil
}

// Put writes the object to a temporary file in the target directory and
// renames it into place, so readers never observe a partial object.
func (s *Storage) Put(ctx context.Context, bucket, key string, reader io.Reader, metadata types.ObjectMetadata) error {
	start := time.Now()
	defer func() {
		s.metrics.RecordDuration("storage.fs.put", time.Since(start).Seconds())
	}()

	objectPath, err := s.objectPath(bucket, key)
	if err != nil {
		s.metrics.RecordError("storage.fs.put", "invalid_key")
		return err
	}

	if err := os.MkdirAll(filepath.Dir(objectPath), 0o755); err != nil {
		s.metrics.RecordError("storage.fs.put", "mkdir")
		return fmt.Errorf("failed to create bucket directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(objectPath), ".put-*")
	if err != nil {
		s.metrics.RecordError("storage.fs.put", "create")
		return fmt.Errorf("failed to create file: %w", err)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmpName)
		}
	}()

	written, err := io.Copy(tmp, contextReader{ctx: ctx, r: reader})
	if err == nil {
		err = tmp.Sync()
	}
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		s.metrics.RecordError("storage.fs.put", "write")
		s.logger.Error(ctx, "Failed to write object", err, observability.Fields{
			"bucket": s.bucketName(bucket),
			"key":    key,
		})
		return fmt.Errorf("failed to write data: %w", err)
	}

	if err := os.Rename(tmpName, objectPath); err != nil {
		s.metrics.RecordError("storage.fs.put", "rename")
		return fmt.Errorf("failed to commit object: %w", err)
	}
	committed = true

	metadata.ContentLength = written
	if err := s.saveMetadata(objectPath, metadata); err != nil {
		s.metrics.RecordError("storage.fs.put", "metadata")
		return fmt.Errorf("failed to save metadata: %w", err)
	}

	s.metrics.RecordSuccess("storage.fs.put")
	s.logger.Debug(ctx, "Object stored", observability.Fields{
		"bucket": s.bucketName(bucket),
		"key":    key,
		"bytes":  written,
	})

	return nil
}

// Exists reports whether bucket/key has been stored.
func (s *Storage) Exists(ctx context.Context, bucket, key string) (bool, error) {
	objectPath, err := s.objectPath(bucket, key)
	if err != nil {
		return false, err
	}

	info, err := os.Stat(objectPath)
	switch {
	case err == nil:
		return info.Mode().IsRegular(), nil
	case os.IsNotExist(err):
		return false, nil
	default:
		return false, fmt.Errorf("failed to check object existence: %w", err)
	}
}

// Metadata reads the sidecar written by Put.
func (s *Storage) Metadata(bucket, key string) (types.ObjectMetadata, error) {
	objectPath, err := s.objectPath(bucket, key)
	if err != nil {
		return types.ObjectMetadata{}, err
	}

	data, err := os.ReadFile(objectPath + metadataSuffix)
	if err != nil {
		if os.IsNotExist(err) {
			return types.ObjectMetadata{}, types.ErrObjectNotFound
		}
		return types.ObjectMetadata{}, fmt.Errorf("failed to read metadata: %w", err)
	}

	var metadata types.ObjectMetadata
	if err := json.Unmarshal(data, &metadata); err != nil {
		return types.ObjectMetadata{}, fmt.Errorf("failed to decode metadata: %w", err)
	}
	return metadata, nil
}

// Location returns the absolute path of the object.
func (s *Storage) Location(bucket, key string) string {
	p, err := s.objectPath(bucket, key)
	if err != nil {
		return ""
	}
	return p
}

func (s *Storage) bucketName(bucket string) string {
	if bucket == "" {
		return DefaultBucket
	}
	return bucket
}

// objectPath resolves bucket/key under the base path and rejects anything
// that would land outside the bucket directory.
func (s *Storage) objectPath(bucket, key string) (string, error) {
	bucket = s.bucketName(bucket)
	if key == "" || strings.HasPrefix(key, "/") || strings.HasSuffix(key, metadataSuffix) {
		return "", fmt.Errorf("%w: %q", types.ErrInvalidKey, key)
	}
	if strings.ContainsAny(bucket, `/\`) || bucket == "." || bucket == ".." {
		return "", fmt.Errorf("%w: bucket %q", types.ErrInvalidKey, bucket)
	}

	bucketDir := filepath.Join(s.basePath, bucket)
	p := filepath.Join(bucketDir, filepath.FromSlash(key))
	if !strings.HasPrefix(p, bucketDir+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %q", types.ErrInvalidKey, key)
	}
	return p, nil
}

func (s *Storage) saveMetadata(objectPath string, metadata types.ObjectMetadata) error {
	data, err := json.MarshalIndent(metadata, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(objectPath+metadataSuffix, data, 0o644)
}

// contextReader stops a copy once ctx is done.
type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
