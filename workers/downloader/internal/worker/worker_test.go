package worker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/islamibragimov/url-downloader-bot/shared/handler"
	obmocks "github.com/islamibragimov/url-downloader-bot/shared/observability/mocks"
	qmocks "github.com/islamibragimov/url-downloader-bot/shared/queue/mocks"
	stmocks "github.com/islamibragimov/url-downloader-bot/shared/storage/mocks"
	"github.com/islamibragimov/url-downloader-bot/workers/downloader/internal/domain"
	"github.com/islamibragimov/url-downloader-bot/workers/downloader/internal/session"
	"github.com/islamibragimov/url-downloader-bot/workers/downloader/mocks"
)

type workerFixture struct {
	worker    *AcquisitionWorker
	acquirer  *mocks.MockAcquirer
	deliverer *mocks.MockDeliverer
	publisher *qmocks.MockPublisher
	sessions  *session.Store
}

func newWorkerFixture(t *testing.T) *workerFixture {
	t.Helper()

	f := &workerFixture{
		acquirer:  new(mocks.MockAcquirer),
		deliverer: new(mocks.MockDeliverer),
		publisher: new(qmocks.MockPublisher),
		sessions:  session.NewStore(),
	}
	logger := obmocks.NewPermissiveLogger()
	f.worker = NewAcquisitionWorker(Dependencies{
		Acquirer:  f.acquirer,
		Deliverer: f.deliverer,
		Sessions:  f.sessions,
		Events:    NewEvents(f.publisher, "acquisition-events", logger),
		Logger:    logger,
		Metrics:   obmocks.NewPermissiveMetrics(),
	})
	return f
}

func newRequest(t *testing.T, requestType string, payload interface{}) handler.Request {
	t.Helper()
	req, err := handler.NewRequest(requestType, payload)
	require.NoError(t, err)
	return req
}

func successResult(req domain.AcquisitionRequest) domain.Result {
	return domain.Result{
		Request:   req,
		FileName:  "clip.mp4",
		SizeBytes: 2048,
		Strategy:  domain.StrategyExtraction,
		Receipt: &domain.Receipt{
			Key:         "chat-1/2026/10/16/req_clip.mp4",
			FileName:    "clip.mp4",
			Kind:        domain.KindVideo,
			SizeBytes:   2048,
			ContentType: "video/mp4",
			Location:    "/data/downloads/chat-1/2026/10/16/req_clip.mp4",
		},
		Duration: 1500 * time.Millisecond,
	}
}

func failedResult(req domain.AcquisitionRequest) domain.Result {
	first := domain.NewAttemptError(domain.StrategyExtraction, domain.ReasonToolNonZeroExit, errors.New("exit status 1"))
	last := domain.NewAttemptError(domain.StrategyDirect, domain.ReasonRemoteTooLarge, errors.New("declared 200MiB"))
	return domain.Result{
		Request:  req,
		Err:      last,
		Attempts: []*domain.AttemptError{first, last},
	}
}

func matchRequest(url string, origin domain.Origin) interface{} {
	return mock.MatchedBy(func(r domain.AcquisitionRequest) bool {
		return r.URL == url && r.Origin == origin && r.SessionID == "chat-1"
	})
}

func TestAcquisitionWorker_Name(t *testing.T) {
	f := newWorkerFixture(t)
	assert.Equal(t, "downloader", f.worker.Name())
}

func TestAcquisitionWorker_AcquireSuccess(t *testing.T) {
	f := newWorkerFixture(t)

	f.acquirer.On("Acquire", mock.Anything, matchRequest("https://example.com/watch?v=1", domain.OriginMessage), f.deliverer).
		Return(successResult(domain.AcquisitionRequest{
			ID:        "req-1",
			URL:       "https://example.com/watch?v=1",
			SessionID: "chat-1",
			Origin:    domain.OriginMessage,
		}), nil).Once()
	f.publisher.On("Publish", mock.Anything, mock.Anything).Return(nil)

	req := newRequest(t, TypeAcquire, Payload{
		SessionID: "chat-1",
		Text:      "look at this https://example.com/watch?v=1 please",
	})
	resp, err := f.worker.Process(context.Background(), req)

	require.NoError(t, err)
	require.True(t, resp.Success)
	assert.Equal(t, req.ID, resp.ID)
	assert.Equal(t, "extraction", resp.Metadata["strategy"])

	var data AcquireResponse
	require.NoError(t, json.Unmarshal(resp.Data, &data))
	assert.Equal(t, "clip.mp4", data.FileName)
	assert.Equal(t, int64(2048), data.SizeBytes)
	assert.Equal(t, domain.KindVideo, data.Kind)
	assert.Equal(t, "video/mp4", data.ContentType)
	assert.Equal(t, int64(1500), data.DurationMs)

	last, ok := f.sessions.Last("chat-1")
	assert.True(t, ok)
	assert.Equal(t, "https://example.com/watch?v=1", last)

	f.acquirer.AssertExpectations(t)
	f.publisher.AssertNumberOfCalls(t, "Publish", 1)
}

func TestAcquisitionWorker_AcquireURLFieldWins(t *testing.T) {
	f := newWorkerFixture(t)

	f.acquirer.On("Acquire", mock.Anything, matchRequest("https://cdn.example.com/a.pdf", domain.OriginMessage), f.deliverer).
		Return(domain.Result{Strategy: domain.StrategyDirect, FileName: "a.pdf"}, nil).Once()
	f.publisher.On("Publish", mock.Anything, mock.Anything).Return(nil)

	req := newRequest(t, TypeAcquire, Payload{
		SessionID: "chat-1",
		Text:      "https://other.example.com/b",
		URL:       "https://cdn.example.com/a.pdf",
	})
	resp, err := f.worker.Process(context.Background(), req)

	require.NoError(t, err)
	assert.True(t, resp.Success)
	f.acquirer.AssertExpectations(t)
}

func TestAcquisitionWorker_AcquireSessionFromMetadata(t *testing.T) {
	f := newWorkerFixture(t)

	f.acquirer.On("Acquire", mock.Anything, matchRequest("https://example.com/v", domain.OriginMessage), f.deliverer).
		Return(domain.Result{Strategy: domain.StrategyDirect, FileName: "v"}, nil).Once()
	f.publisher.On("Publish", mock.Anything, mock.Anything).Return(nil)

	req := newRequest(t, TypeAcquire, Payload{Text: "https://example.com/v"})
	req.SetMetadata("session_id", "chat-1")

	resp, err := f.worker.Process(context.Background(), req)

	require.NoError(t, err)
	assert.True(t, resp.Success)
	last, ok := f.sessions.Last("chat-1")
	assert.True(t, ok)
	assert.Equal(t, "https://example.com/v", last)
}

func TestAcquisitionWorker_AnonymousAcquireIsNotRecorded(t *testing.T) {
	f := newWorkerFixture(t)

	f.acquirer.On("Acquire", mock.Anything, mock.Anything, f.deliverer).
		Return(domain.Result{Strategy: domain.StrategyDirect, FileName: "v"}, nil).Once()
	f.publisher.On("Publish", mock.Anything, mock.Anything).Return(nil)

	resp, err := f.worker.Process(context.Background(), newRequest(t, TypeAcquire, Payload{Text: "https://example.com/v"}))
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, 0, f.sessions.Len())

	resp, err = f.worker.Process(context.Background(), newRequest(t, TypeRetry, Payload{}))
	require.NoError(t, err)
	assert.Equal(t, domain.CodeSessionStateEmpty, resp.Error.Code)
}

func TestAcquisitionWorker_AcquireNoURL(t *testing.T) {
	f := newWorkerFixture(t)

	req := newRequest(t, TypeAcquire, Payload{SessionID: "chat-1", Text: "hello there"})
	resp, err := f.worker.Process(context.Background(), req)

	require.NoError(t, err)
	assert.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	assert.Equal(t, domain.CodeNoURL, resp.Error.Code)
	assert.Equal(t, "Please send a valid URL.", resp.Error.Message)
	assert.False(t, resp.Error.Retryable)

	_, ok := f.sessions.Last("chat-1")
	assert.False(t, ok)
	f.acquirer.AssertNotCalled(t, "Acquire", mock.Anything, mock.Anything, mock.Anything)
}

func TestAcquisitionWorker_AcquireInvalidURL(t *testing.T) {
	f := newWorkerFixture(t)

	req := newRequest(t, TypeAcquire, Payload{SessionID: "chat-1", URL: "ftp://example.com/file"})
	resp, err := f.worker.Process(context.Background(), req)

	require.NoError(t, err)
	assert.False(t, resp.Success)
	assert.Equal(t, domain.CodeInvalidURL, resp.Error.Code)
	assert.Empty(t, resp.Error.Details)

	_, ok := f.sessions.Last("chat-1")
	assert.False(t, ok)
	f.acquirer.AssertNotCalled(t, "Acquire", mock.Anything, mock.Anything, mock.Anything)
}

func TestAcquisitionWorker_AcquireFailure(t *testing.T) {
	f := newWorkerFixture(t)

	r, err := domain.NewAcquisitionRequest("", "chat-1", "https://example.com/big", domain.OriginMessage)
	require.NoError(t, err)

	f.acquirer.On("Acquire", mock.Anything, mock.Anything, f.deliverer).Return(failedResult(r), nil).Once()
	f.publisher.On("Publish", mock.Anything, mock.Anything).Return(nil)

	req := newRequest(t, TypeAcquire, Payload{SessionID: "chat-1", Text: "https://example.com/big"})
	resp, err := f.worker.Process(context.Background(), req)

	require.NoError(t, err)
	assert.False(t, resp.Success)
	assert.Equal(t, domain.CodeAcquisitionFailed, resp.Error.Code)
	assert.Equal(t, "Download failed. Please check the URL or try again later.", resp.Error.Message)
	assert.True(t, resp.Error.Retryable)
	assert.Empty(t, resp.Error.Details, "internal reasons must not reach the requester")
	assert.Equal(t, "REMOTE_TOO_LARGE", resp.Metadata["reason"])

	// The URL stays recorded so a retry can reuse it.
	last, ok := f.sessions.Last("chat-1")
	assert.True(t, ok)
	assert.Equal(t, "https://example.com/big", last)
}

func TestAcquisitionWorker_DeliveryFailure(t *testing.T) {
	f := newWorkerFixture(t)

	r, err := domain.NewAcquisitionRequest("", "chat-1", "https://example.com/v", domain.OriginMessage)
	require.NoError(t, err)
	result := successResult(r)
	result.Receipt = nil

	f.acquirer.On("Acquire", mock.Anything, mock.Anything, f.deliverer).
		Return(result, errors.New("delivery failed: bucket unreachable")).Once()
	f.publisher.On("Publish", mock.Anything, mock.Anything).Return(nil)

	req := newRequest(t, TypeAcquire, Payload{SessionID: "chat-1", Text: "https://example.com/v"})
	resp, err := f.worker.Process(context.Background(), req)

	require.NoError(t, err)
	assert.False(t, resp.Success)
	assert.Equal(t, domain.CodeDeliveryFailed, resp.Error.Code)
	assert.True(t, resp.Error.Retryable)
	assert.Equal(t, "DELIVERY_FAILED", resp.Metadata["reason"])
	assert.NotContains(t, resp.Error.Message, "bucket")
}

func TestAcquisitionWorker_Retry(t *testing.T) {
	f := newWorkerFixture(t)
	f.sessions.Record("chat-1", "https://example.com/again")

	f.acquirer.On("Acquire", mock.Anything, matchRequest("https://example.com/again", domain.OriginRetry), f.deliverer).
		Return(domain.Result{Strategy: domain.StrategyDirect, FileName: "again"}, nil).Once()
	f.publisher.On("Publish", mock.Anything, mock.Anything).Return(nil)

	req := newRequest(t, TypeRetry, Payload{SessionID: "chat-1"})
	resp, err := f.worker.Process(context.Background(), req)

	require.NoError(t, err)
	assert.True(t, resp.Success)

	var data AcquireResponse
	require.NoError(t, json.Unmarshal(resp.Data, &data))
	assert.Equal(t, domain.OriginRetry, data.Origin)
	assert.Equal(t, "https://example.com/again", data.URL)
	f.acquirer.AssertExpectations(t)
}

func TestAcquisitionWorker_RetryWithoutState(t *testing.T) {
	f := newWorkerFixture(t)

	req := newRequest(t, TypeRetry, Payload{SessionID: "chat-1"})
	resp, err := f.worker.Process(context.Background(), req)

	require.NoError(t, err)
	assert.False(t, resp.Success)
	assert.Equal(t, domain.CodeSessionStateEmpty, resp.Error.Code)
	assert.Equal(t, "No previous URL found. Please send a URL.", resp.Error.Message)
	f.acquirer.AssertNotCalled(t, "Acquire", mock.Anything, mock.Anything, mock.Anything)
}

func TestAcquisitionWorker_RetryAfterDismiss(t *testing.T) {
	f := newWorkerFixture(t)
	f.sessions.Record("chat-1", "https://example.com/x")

	resp, err := f.worker.Process(context.Background(), newRequest(t, TypeDismiss, Payload{SessionID: "chat-1"}))
	require.NoError(t, err)
	require.True(t, resp.Success)

	var msg MessageResponse
	require.NoError(t, json.Unmarshal(resp.Data, &msg))
	assert.Equal(t, dismissedMessage, msg.Message)

	resp, err = f.worker.Process(context.Background(), newRequest(t, TypeRetry, Payload{SessionID: "chat-1"}))
	require.NoError(t, err)
	assert.Equal(t, domain.CodeSessionStateEmpty, resp.Error.Code)
}

func TestAcquisitionWorker_StaticMessages(t *testing.T) {
	tests := []struct {
		requestType string
		want        string
	}{
		{TypeStart, startMessage},
		{TypeHelp, helpMessage},
		{TypeSites, sitesMessage},
		{TypeAbout, aboutMessage},
	}

	for _, tt := range tests {
		t.Run(tt.requestType, func(t *testing.T) {
			f := newWorkerFixture(t)

			req := handler.Request{ID: "req-1", Type: tt.requestType}
			resp, err := f.worker.Process(context.Background(), req)

			require.NoError(t, err)
			require.True(t, resp.Success)

			var msg MessageResponse
			require.NoError(t, json.Unmarshal(resp.Data, &msg))
			assert.Equal(t, tt.want, msg.Message)
		})
	}
}

func TestAcquisitionWorker_UnknownType(t *testing.T) {
	f := newWorkerFixture(t)

	resp, err := f.worker.Process(context.Background(), handler.Request{ID: "req-1", Type: "transcode"})

	require.NoError(t, err)
	assert.False(t, resp.Success)
	assert.Equal(t, handler.CodeUnknownType, resp.Error.Code)
	assert.Contains(t, resp.Error.Message, "transcode")
}

func TestAcquisitionWorker_InvalidPayload(t *testing.T) {
	f := newWorkerFixture(t)

	req := handler.Request{ID: "req-1", Type: TypeAcquire, Payload: json.RawMessage(`{"text": 42}`)}
	resp, err := f.worker.Process(context.Background(), req)

	require.NoError(t, err)
	assert.False(t, resp.Success)
	assert.Equal(t, handler.CodeInvalidRequest, resp.Error.Code)
}

func TestAcquisitionWorker_Health(t *testing.T) {
	t.Run("healthy", func(t *testing.T) {
		tool := new(mocks.MockToolChecker)
		tool.On("Available").Return(true)
		store := new(stmocks.MockObjectStorage)
		store.On("Exists", mock.Anything, "", mock.Anything).Return(false, nil)

		w := NewAcquisitionWorker(Dependencies{
			Extractor: tool,
			Storage:   store,
			Logger:    obmocks.NewPermissiveLogger(),
			Metrics:   obmocks.NewPermissiveMetrics(),
		})

		assert.NoError(t, w.Health(context.Background()))
		tool.AssertExpectations(t)
		store.AssertExpectations(t)
	})

	t.Run("missing tool is not fatal", func(t *testing.T) {
		tool := new(mocks.MockToolChecker)
		tool.On("Available").Return(false)

		w := NewAcquisitionWorker(Dependencies{
			Extractor: tool,
			Logger:    obmocks.NewPermissiveLogger(),
			Metrics:   obmocks.NewPermissiveMetrics(),
		})

		assert.NoError(t, w.Health(context.Background()))
	})

	t.Run("storage unavailable", func(t *testing.T) {
		store := new(stmocks.MockObjectStorage)
		store.On("Exists", mock.Anything, "", mock.Anything).Return(false, errors.New("connection refused"))

		w := NewAcquisitionWorker(Dependencies{
			Storage: store,
			Logger:  obmocks.NewPermissiveLogger(),
			Metrics: obmocks.NewPermissiveMetrics(),
		})

		err := w.Health(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "storage unavailable")
	})
}

func TestAcquisitionWorker_ImplementsWorker(t *testing.T) {
	var _ handler.Worker = (*AcquisitionWorker)(nil)
}
