package delivery

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/islamibragimov/url-downloader-bot/shared/config"
	obmocks "github.com/islamibragimov/url-downloader-bot/shared/observability/mocks"
	"github.com/islamibragimov/url-downloader-bot/shared/storage/adapters/fs"
	stmocks "github.com/islamibragimov/url-downloader-bot/shared/storage/mocks"
	"github.com/islamibragimov/url-downloader-bot/shared/storage/types"
	"github.com/islamibragimov/url-downloader-bot/workers/downloader/internal/domain"
)

var fixedNow = time.Date(2025, 3, 7, 15, 4, 5, 0, time.UTC)

func newDelivery(t *testing.T, name, content string) domain.Delivery {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return domain.Delivery{
		Request: domain.AcquisitionRequest{
			ID:        "req-1",
			URL:       "https://example.com/v",
			SessionID: "chat-42",
		},
		FilePath:  path,
		FileName:  name,
		SizeBytes: int64(len(content)),
	}
}

func TestService_KindFor(t *testing.T) {
	s := New(config.DefaultDeliveryConfig(), &stmocks.MockObjectStorage{}, obmocks.NewPermissiveLogger(), obmocks.NewPermissiveMetrics())
	limit := config.DefaultVideoMaxBytes

	tests := []struct {
		name string
		file string
		size int64
		want domain.Kind
	}{
		{"small mp4", "a.mp4", 1024, domain.KindVideo},
		{"mkv at ceiling", "a.mkv", limit, domain.KindVideo},
		{"mov over ceiling", "a.mov", limit + 1, domain.KindDocument},
		{"uppercase webm", "A.WEBM", 10, domain.KindVideo},
		{"avi is not playable", "a.avi", 10, domain.KindDocument},
		{"pdf", "report.pdf", 10, domain.KindDocument},
		{"no extension", "download", 10, domain.KindDocument},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, s.KindFor(tt.file, tt.size))
		})
	}
}

func TestService_Deliver_FileSystem(t *testing.T) {
	store, err := fs.NewStorage(t.TempDir(), obmocks.NewPermissiveLogger(), obmocks.NewPermissiveMetrics())
	require.NoError(t, err)

	s := New(config.DeliveryConfig{VideoMaxBytes: config.DefaultVideoMaxBytes}, store,
		obmocks.NewPermissiveLogger(), obmocks.NewPermissiveMetrics())
	s.now = func() time.Time { return fixedNow }

	d := newDelivery(t, "My Clip (1080p).mp4", "video-bytes")
	receipt, err := s.Deliver(context.Background(), d)
	require.NoError(t, err)

	assert.Equal(t, "chat-42/2025/03/07/req-1_My_Clip_1080p.mp4", receipt.Key)
	assert.Equal(t, domain.KindVideo, receipt.Kind)
	assert.Equal(t, "video/mp4", receipt.ContentType)
	assert.Equal(t, int64(11), receipt.SizeBytes)
	assert.Equal(t, "My Clip (1080p).mp4", receipt.FileName)

	got, err := os.ReadFile(receipt.Location)
	require.NoError(t, err)
	assert.Equal(t, "video-bytes", string(got))

	meta, err := store.Metadata("", receipt.Key)
	require.NoError(t, err)
	assert.Equal(t, "video/mp4", meta.ContentType)
	assert.Equal(t, map[string]string{
		"kind":       "video",
		"source_url": "https://example.com/v",
		"session_id": "chat-42",
	}, meta.UserMetadata)
}

func TestService_Deliver_UsesConfiguredBucket(t *testing.T) {
	storage := &stmocks.MockObjectStorage{}
	storage.On("Put", mock.Anything, "media", mock.Anything, mock.Anything, mock.MatchedBy(func(m types.ObjectMetadata) bool {
		return m.ContentType == "application/pdf" && m.ContentLength == 3 && m.UserMetadata["kind"] == "document"
	})).Return(nil).Once()
	storage.On("Location", "media", mock.Anything).Return("s3://media/key")

	s := New(config.DeliveryConfig{Bucket: "media"}, storage, obmocks.NewPermissiveLogger(), obmocks.NewPermissiveMetrics())

	receipt, err := s.Deliver(context.Background(), newDelivery(t, "report.pdf", "pdf"))
	require.NoError(t, err)

	assert.Equal(t, domain.KindDocument, receipt.Kind)
	assert.Equal(t, "s3://media/key", receipt.Location)
	storage.AssertExpectations(t)
}

func TestService_Deliver_UploadFailure(t *testing.T) {
	storage := &stmocks.MockObjectStorage{}
	storage.On("Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(errors.New("connection reset"))

	metrics := obmocks.NewPermissiveMetrics()
	s := New(config.DefaultDeliveryConfig(), storage, obmocks.NewPermissiveLogger(), metrics)

	_, err := s.Deliver(context.Background(), newDelivery(t, "a.mp4", "x"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
	metrics.AssertCalled(t, "RecordError", "deliver", "upload_failed")
	storage.AssertNotCalled(t, "Location", mock.Anything, mock.Anything)
}

func TestService_Deliver_MissingFile(t *testing.T) {
	s := New(config.DefaultDeliveryConfig(), &stmocks.MockObjectStorage{}, obmocks.NewPermissiveLogger(), obmocks.NewPermissiveMetrics())

	d := newDelivery(t, "a.mp4", "x")
	d.FilePath = filepath.Join(t.TempDir(), "gone.mp4")

	_, err := s.Deliver(context.Background(), d)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to open file")
}

func TestObjectKey(t *testing.T) {
	assert.Equal(t, "anonymous/2025/03/07/r_file.bin", ObjectKey("", "r", "file.bin", fixedNow))
	assert.Equal(t, "s/2025/03/07/r_download", ObjectKey("s", "r", "download", fixedNow))

	local := time.Date(2025, 3, 8, 1, 0, 0, 0, time.FixedZone("UTC+5", 5*3600))
	assert.Equal(t, "s/2025/03/07/r_a.mp4", ObjectKey("s", "r", "a.mp4", local), "dates are UTC")
}

func TestSanitizeFileName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"video.mp4", "video.mp4"},
		{"My Clip (1080p).MP4", "My_Clip_1080p.mp4"},
		{"../../etc/passwd", "etc_passwd"},
		{"Привет.webm", "file.webm"},
		{"name.with.dots.tar", "name.with.dots.tar"},
		{"noext", "noext"},
		{".hidden", "file.hidden"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeFileName(tt.in))
		})
	}

	long := SanitizeFileName(strings.Repeat("a", 300) + ".mkv")
	assert.Equal(t, maxNameLength+len(".mkv"), len(long))
	assert.True(t, strings.HasSuffix(long, ".mkv"))
}
