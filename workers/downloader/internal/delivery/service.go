// Package delivery hands acquired files to the requester by uploading them
// to object storage, choosing between a video and a document representation.
package delivery

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/islamibragimov/url-downloader-bot/shared/config"
	"github.com/islamibragimov/url-downloader-bot/shared/observability"
	"github.com/islamibragimov/url-downloader-bot/shared/storage/types"
	"github.com/islamibragimov/url-downloader-bot/workers/downloader/internal/domain"
)

// Service uploads delivered files to object storage.
type Service struct {
	storage       types.ObjectStorage
	bucket        string
	videoMaxBytes int64
	logger        observability.Logger
	metrics       observability.Metrics
	now           func() time.Time
}

// New creates a delivery Service writing to cfg.Bucket, or the storage
// adapter's default bucket when it is empty.
func New(cfg config.DeliveryConfig, storage types.ObjectStorage, logger observability.Logger, metrics observability.Metrics) *Service {
	if cfg.VideoMaxBytes <= 0 {
		cfg.VideoMaxBytes = config.DefaultVideoMaxBytes
	}
	return &Service{
		storage:       storage,
		bucket:        cfg.Bucket,
		videoMaxBytes: cfg.VideoMaxBytes,
		logger:        logger,
		metrics:       metrics,
		now:           time.Now,
	}
}

// KindFor picks the representation for a file: video for playable
// extensions up to the video ceiling, document otherwise.
func (s *Service) KindFor(fileName string, size int64) domain.Kind {
	if domain.IsVideoFile(fileName) && size <= s.videoMaxBytes {
		return domain.KindVideo
	}
	return domain.KindDocument
}

// Deliver uploads d.FilePath and returns where it went.
func (s *Service) Deliver(ctx context.Context, d domain.Delivery) (*domain.Receipt, error) {
	start := time.Now()
	defer func() {
		s.metrics.RecordDuration("deliver", time.Since(start).Seconds())
	}()

	kind := s.KindFor(d.FileName, d.SizeBytes)
	contentType := domain.ContentTypeForFile(d.FileName)
	key := ObjectKey(d.Request.SessionID, d.Request.ID, d.FileName, s.now())

	f, err := os.Open(d.FilePath)
	if err != nil {
		s.metrics.RecordError("deliver", "open_failed")
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	metadata := types.ObjectMetadata{
		ContentType:   contentType,
		ContentLength: d.SizeBytes,
		UserMetadata: map[string]string{
			"kind":       string(kind),
			"source_url": d.Request.URL,
			"session_id": d.Request.SessionID,
		},
	}

	if err := s.storage.Put(ctx, s.bucket, key, f, metadata); err != nil {
		s.metrics.RecordError("deliver", "upload_failed")
		return nil, fmt.Errorf("failed to upload %s: %w", key, err)
	}

	receipt := &domain.Receipt{
		Key:         key,
		FileName:    d.FileName,
		Kind:        kind,
		SizeBytes:   d.SizeBytes,
		ContentType: contentType,
		Location:    s.storage.Location(s.bucket, key),
	}

	s.metrics.RecordSuccess("deliver")
	s.metrics.RecordFileSize(string(kind), d.SizeBytes)
	s.logger.Info(ctx, "File delivered", observability.Fields{
		"key":        key,
		"kind":       string(kind),
		"size_bytes": d.SizeBytes,
		"location":   receipt.Location,
	})
	return receipt, nil
}
