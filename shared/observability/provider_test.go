package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type closingBuffer struct {
	bytes.Buffer
	closed bool
	err    error
}

func (c *closingBuffer) Close() error {
	c.closed = true
	return c.err
}

func TestNewProvider(t *testing.T) {
	config := &Config{
		ServiceName: "test-service",
		Environment: "test",
		LogLevel:    "info",
		Registerer:  prometheus.NewRegistry(),
	}

	provider := NewProvider(config)

	assert.NotNil(t, provider)
	assert.Implements(t, (*Provider)(nil), provider)
	assert.NotNil(t, config.LogOutput, "log output defaults to stdout")
}

func TestDefaultProvider_Logger(t *testing.T) {
	var buf bytes.Buffer
	provider := NewProvider(&Config{
		ServiceName: "url-downloader",
		Environment: "test",
		LogLevel:    "info",
		LogOutput:   &buf,
		AdditionalFields: Fields{
			"version": "1.0.0",
		},
		Registerer: prometheus.NewRegistry(),
	})
	defer provider.Close()

	logger1 := provider.Logger("fetcher")
	logger2 := provider.Logger("fetcher")
	assert.Same(t, logger1, logger2)

	logger3 := provider.Logger("extractor")
	assert.NotSame(t, logger1, logger3)

	ctx := context.WithValue(context.Background(), SessionIDKey, "chat-1")
	logger1.Info(ctx, "probe", nil)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "url-downloader.fetcher", entry["service"])
	assert.Equal(t, "fetcher", entry["component"])
	assert.Equal(t, "1.0.0", entry["version"])
	assert.Equal(t, "chat-1", entry["session_id"])
}

func TestDefaultProvider_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	provider := NewProvider(&Config{
		ServiceName: "url-downloader",
		Environment: "test",
		Registerer:  reg,
	})
	defer provider.Close()

	metrics1 := provider.Metrics("acquisition")
	metrics2 := provider.Metrics("acquisition")
	assert.Same(t, metrics1, metrics2)

	metrics3 := provider.Metrics("fetcher")
	assert.NotSame(t, metrics1, metrics3)

	metrics1.RecordSuccess("extract")

	count, err := testutil.GatherAndCount(reg, "url_downloader_acquisition_processed_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestDefaultProvider_Close(t *testing.T) {
	t.Run("close with stdout", func(t *testing.T) {
		provider := NewProvider(&Config{ServiceName: "test"})
		assert.NoError(t, provider.Close())
	})

	t.Run("close with plain buffer", func(t *testing.T) {
		var buf bytes.Buffer
		provider := NewProvider(&Config{ServiceName: "test", LogOutput: &buf})
		assert.NoError(t, provider.Close())
	})

	t.Run("close with closer", func(t *testing.T) {
		out := &closingBuffer{err: errors.New("disk gone")}
		provider := NewProvider(&Config{ServiceName: "test", LogOutput: out})

		err := provider.Close()
		assert.EqualError(t, err, "disk gone")
		assert.True(t, out.closed)
	})
}
