package handler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/islamibragimov/url-downloader-bot/shared/observability"
	"github.com/islamibragimov/url-downloader-bot/shared/observability/mocks"
)

func TestTimeoutMiddleware(t *testing.T) {
	middleware := TimeoutMiddleware(100 * time.Millisecond)

	t.Run("success within timeout", func(t *testing.T) {
		h := middleware(func(ctx context.Context, req Request) (Response, error) {
			return NewSuccessResponse(req.ID, nil)
		})

		resp, err := h(context.Background(), Request{ID: "test-123"})

		assert.NoError(t, err)
		assert.True(t, resp.Success)
	})

	t.Run("timeout exceeded cancels the worker context", func(t *testing.T) {
		cancelled := make(chan struct{})
		h := middleware(func(ctx context.Context, req Request) (Response, error) {
			<-ctx.Done()
			close(cancelled)
			return Response{}, ctx.Err()
		})

		resp, err := h(context.Background(), Request{ID: "test-123"})

		assert.ErrorIs(t, err, context.DeadlineExceeded)
		assert.False(t, resp.Success)
		assert.Equal(t, CodeTimeout, resp.Error.Code)
		assert.True(t, resp.Error.Retryable)

		select {
		case <-cancelled:
		case <-time.After(time.Second):
			t.Fatal("worker context was not cancelled")
		}
	})
}

func TestRecoveryMiddleware(t *testing.T) {
	mockLogger := new(mocks.MockLogger)
	mockMetrics := new(mocks.MockMetrics)
	mockProvider := new(mocks.MockProvider)

	mockProvider.On("Logger", "handler").Return(mockLogger)
	mockProvider.On("Metrics", "handler").Return(mockMetrics)
	mockLogger.On("Error", mock.Anything, "Panic recovered", mock.Anything, mock.Anything).Return()
	mockMetrics.On("RecordError", "panic", "panic_recovered").Return()

	h := RecoveryMiddleware(mockProvider)(func(ctx context.Context, req Request) (Response, error) {
		panic("boom")
	})

	resp, err := h(context.Background(), Request{ID: "req-1"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
	assert.Equal(t, CodeInternal, resp.Error.Code)
	assert.NotContains(t, resp.Error.Message, "boom")
	mockLogger.AssertExpectations(t)
	mockMetrics.AssertExpectations(t)
}

func TestTracingMiddleware(t *testing.T) {
	t.Run("reuses incoming trace id", func(t *testing.T) {
		var seenTrace string
		h := TracingMiddleware()(func(ctx context.Context, req Request) (Response, error) {
			seenTrace, _ = ctx.Value(observability.TraceIDKey).(string)
			return NewSuccessResponse(req.ID, nil)
		})

		req := Request{ID: "r", Metadata: map[string]string{"x-request-id": "trace-1"}}
		resp, err := h(context.Background(), req)

		require.NoError(t, err)
		assert.Equal(t, "trace-1", seenTrace)
		assert.Equal(t, "trace-1", resp.Metadata["trace_id"])
		assert.NotEmpty(t, resp.Metadata["span_id"])
	})

	t.Run("generates trace id and tolerates nil metadata", func(t *testing.T) {
		h := TracingMiddleware()(func(ctx context.Context, req Request) (Response, error) {
			return Response{ID: req.ID}, nil
		})

		resp, err := h(context.Background(), Request{ID: "r"})

		require.NoError(t, err)
		assert.NotEmpty(t, resp.Metadata["trace_id"])
	})
}

func TestValidationMiddleware(t *testing.T) {
	next := func(ctx context.Context, req Request) (Response, error) {
		return NewSuccessResponse(req.ID, map[string]string{"payload": string(req.Payload)})
	}
	h := ValidationMiddleware()(next)

	t.Run("missing type", func(t *testing.T) {
		resp, err := h(context.Background(), Request{Payload: []byte(`{}`)})

		require.NoError(t, err)
		assert.Equal(t, CodeValidation, resp.Error.Code)
		assert.NotEmpty(t, resp.ID, "id is generated before validation")
	})

	t.Run("invalid json", func(t *testing.T) {
		resp, err := h(context.Background(), Request{Type: "acquire", Payload: []byte(`{nope`)})

		require.NoError(t, err)
		assert.Equal(t, CodeValidation, resp.Error.Code)
	})

	t.Run("empty payload becomes empty object", func(t *testing.T) {
		resp, err := h(context.Background(), Request{Type: "help"})

		require.NoError(t, err)
		assert.True(t, resp.Success)
		assert.JSONEq(t, `{"payload":"{}"}`, string(resp.Data))
	})
}

func TestMetricsMiddleware(t *testing.T) {
	tests := []struct {
		name   string
		resp   Response
		err    error
		expect func(m *mocks.MockMetrics)
	}{
		{
			name: "success",
			resp: Response{Success: true},
			expect: func(m *mocks.MockMetrics) {
				m.On("RecordSuccess", "acquire").Return().Once()
			},
		},
		{
			name: "business failure",
			resp: NewErrorResponse("r", "ACQUISITION_FAILED", "failed", ""),
			expect: func(m *mocks.MockMetrics) {
				m.On("RecordError", "acquire", "ACQUISITION_FAILED").Return().Once()
			},
		},
		{
			name: "processing error",
			err:  errors.New("broken"),
			expect: func(m *mocks.MockMetrics) {
				m.On("RecordError", "acquire", "processing_error").Return().Once()
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockMetrics := new(mocks.MockMetrics)
			mockProvider := new(mocks.MockProvider)
			mockProvider.On("Metrics", "handler").Return(mockMetrics)

			mockMetrics.On("StartOperation", "acquire").Return().Once()
			mockMetrics.On("EndOperation", "acquire").Return().Once()
			mockMetrics.On("RecordDuration", "acquire", mock.AnythingOfType("float64")).Return().Once()
			tt.expect(mockMetrics)

			h := MetricsMiddleware(mockProvider)(func(ctx context.Context, req Request) (Response, error) {
				return tt.resp, tt.err
			})
			_, _ = h(context.Background(), Request{Type: "acquire"})

			mockMetrics.AssertExpectations(t)
		})
	}
}

func TestLoggingMiddleware(t *testing.T) {
	mockLogger := new(mocks.MockLogger)
	mockProvider := new(mocks.MockProvider)
	mockProvider.On("Logger", "handler").Return(mockLogger)

	mockLogger.On("WithFields", mock.MatchedBy(func(f observability.Fields) bool {
		return f["type"] == "retry" && f["worker"] == "downloader"
	})).Return(mockLogger)
	mockLogger.On("Info", mock.Anything, "Processing request", mock.Anything).Return().Once()
	mockLogger.On("Warn", mock.Anything, "Request completed with failure", mock.MatchedBy(func(f observability.Fields) bool {
		return f["error_code"] == "SESSION_STATE_EMPTY"
	})).Return().Once()

	h := LoggingMiddleware(mockProvider)(func(ctx context.Context, req Request) (Response, error) {
		time.Sleep(time.Millisecond)
		return NewErrorResponse(req.ID, "SESSION_STATE_EMPTY", "No previous URL found. Please send a URL.", ""), nil
	})

	ctx := context.WithValue(context.Background(), observability.WorkerKey, "downloader")
	resp, err := h(ctx, Request{ID: "r", Type: "retry"})

	require.NoError(t, err)
	assert.Greater(t, resp.Duration, time.Duration(0))
	mockLogger.AssertExpectations(t)
}

func TestTimeoutMiddleware_PanicReachesRecovery(t *testing.T) {
	h := RecoveryMiddleware(mocks.NewPermissiveProvider())(
		TimeoutMiddleware(time.Second)(func(ctx context.Context, req Request) (Response, error) {
			panic("inside worker")
		}),
	)

	resp, err := h(context.Background(), Request{ID: "r"})

	require.Error(t, err)
	assert.Equal(t, CodeInternal, resp.Error.Code)
}
