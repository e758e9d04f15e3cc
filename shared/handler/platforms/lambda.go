package platforms

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/google/uuid"

	"github.com/islamibragimov/url-downloader-bot/shared/config"
	"github.com/islamibragimov/url-downloader-bot/shared/handler"
	"github.com/islamibragimov/url-downloader-bot/shared/observability"
)

// ErrUnsupportedEvent is returned for Lambda payloads that are neither SQS
// batches nor API Gateway proxy requests.
var ErrUnsupportedEvent = errors.New("unsupported event type")

// LambdaAdapter adapts a handler to the AWS Lambda runtime. It accepts SQS
// batches and API Gateway proxy requests.
type LambdaAdapter struct {
	handler *handler.Handler
	config  config.LambdaConfig
}

// NewLambdaAdapter creates a new Lambda adapter. A nil cfg selects
// config.DefaultLambdaConfig.
func NewLambdaAdapter(h *handler.Handler, cfg *config.LambdaConfig) *LambdaAdapter {
	c := config.DefaultLambdaConfig()
	if cfg != nil {
		c = *cfg
	}
	return &LambdaAdapter{handler: h, config: c}
}

// Start hands control to the Lambda runtime. It does not return.
func (a *LambdaAdapter) Start() {
	lambda.Start(a.HandleEvent)
}

type eventProbe struct {
	Records []struct {
		EventSource string `json:"eventSource"`
	} `json:"Records"`
	HTTPMethod string `json:"httpMethod"`
}

// HandleEvent routes a raw Lambda payload to the SQS or API Gateway path.
func (a *LambdaAdapter) HandleEvent(ctx context.Context, event json.RawMessage) (interface{}, error) {
	var probe eventProbe
	if err := json.Unmarshal(event, &probe); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedEvent, err)
	}

	switch {
	case len(probe.Records) > 0 && probe.Records[0].EventSource == "aws:sqs":
		var sqsEvent events.SQSEvent
		if err := json.Unmarshal(event, &sqsEvent); err != nil {
			return nil, fmt.Errorf("decode sqs event: %w", err)
		}
		return a.HandleSQSEvent(ctx, sqsEvent)

	case probe.HTTPMethod != "":
		var apiEvent events.APIGatewayProxyRequest
		if err := json.Unmarshal(event, &apiEvent); err != nil {
			return nil, fmt.Errorf("decode api gateway event: %w", err)
		}
		return a.HandleAPIGatewayEvent(ctx, apiEvent)
	}

	return nil, ErrUnsupportedEvent
}

// HandleSQSEvent processes a batch. Acquisition outcomes are final: a
// message is reported as a batch item failure only when the handler could
// not process it at all, so SQS never replays a finished acquisition.
func (a *LambdaAdapter) HandleSQSEvent(ctx context.Context, event events.SQSEvent) (events.SQSEventResponse, error) {
	response := events.SQSEventResponse{
		BatchItemFailures: []events.SQSBatchItemFailure{},
	}

	for _, record := range event.Records {
		if err := a.processSQSMessage(ctx, record); err != nil {
			if !a.config.EnablePartialBatchFailure {
				return response, err
			}
			response.BatchItemFailures = append(response.BatchItemFailures,
				events.SQSBatchItemFailure{ItemIdentifier: record.MessageId})
		}
	}

	return response, nil
}

func (a *LambdaAdapter) processSQSMessage(ctx context.Context, record events.SQSMessage) error {
	request := buildRequestFromSQS(record)

	if a.config.ProcessingTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.config.ProcessingTimeout)
		defer cancel()
	}

	response, err := a.handler.Handle(ctx, request)
	if err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("handler error: %w", err)
	}

	if !response.Success && response.Error != nil && a.handler.Observability() != nil {
		a.handler.Observability().Logger("lambda").Warn(ctx, "SQS message finished with failure", observability.Fields{
			"sqs_message_id": record.MessageId,
			"error_code":     response.Error.Code,
		})
	}

	return nil
}

func buildRequestFromSQS(record events.SQSMessage) handler.Request {
	metadata := make(map[string]string, len(record.MessageAttributes)+3)
	for key, attr := range record.MessageAttributes {
		if attr.StringValue != nil {
			metadata[key] = *attr.StringValue
		}
	}

	metadata["sqs_message_id"] = record.MessageId
	metadata["sqs_receipt_handle"] = record.ReceiptHandle
	metadata["sqs_event_source"] = record.EventSource

	payload := json.RawMessage(record.Body)
	if !json.Valid(payload) {
		// Plain text bodies are treated as the text of an acquire request.
		wrapped, _ := json.Marshal(map[string]string{"text": record.Body})
		payload = wrapped
	}

	requestType := "acquire"
	if msgType, ok := metadata["type"]; ok && msgType != "" {
		requestType = msgType
	}

	requestID := record.MessageId
	if id, ok := metadata["request_id"]; ok && id != "" {
		requestID = id
	}

	return handler.Request{
		ID:        requestID,
		Source:    "sqs",
		Type:      requestType,
		Payload:   payload,
		Metadata:  metadata,
		Timestamp: time.Now().UTC(),
	}
}

// HandleAPIGatewayEvent serves one API Gateway proxy request with the same
// routing and status mapping as the HTTP adapter.
func (a *LambdaAdapter) HandleAPIGatewayEvent(ctx context.Context, event events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	if IsHealthCheck(event.Path) {
		if err := a.handler.Health(ctx); err != nil {
			return jsonProxyResponse(http.StatusServiceUnavailable, map[string]string{
				"status": "unhealthy",
				"error":  err.Error(),
			}, nil), nil
		}
		return jsonProxyResponse(http.StatusOK, map[string]string{
			"status": "healthy",
			"worker": a.handler.Worker().Name(),
		}, nil), nil
	}

	header := http.Header{}
	for k, v := range event.Headers {
		header.Set(k, v)
	}

	body := []byte(event.Body)
	if event.IsBase64Encoded {
		decoded, err := base64.StdEncoding.DecodeString(event.Body)
		if err != nil {
			resp := handler.NewErrorResponse(uuid.New().String(), handler.CodeInvalidRequest, "Failed to decode request body", err.Error())
			return jsonProxyResponse(StatusCode(resp), resp, nil), nil
		}
		body = decoded
	}

	requestID := extractRequestID(header)
	if requestID == "" {
		requestID = event.RequestContext.RequestID
	}
	if requestID == "" {
		requestID = uuid.New().String()
	}

	metadata := map[string]string{
		"http_method": event.HTTPMethod,
		"http_path":   event.Path,
	}
	for key, value := range event.QueryStringParameters {
		metadata["query_"+key] = value
	}
	if traceID := header.Get("X-Trace-ID"); traceID != "" {
		metadata["trace_id"] = traceID
	}

	req := handler.Request{
		ID:        requestID,
		Source:    "api_gateway",
		Type:      extractRequestType(header, event.Path, event.HTTPMethod),
		Payload:   json.RawMessage(body),
		Metadata:  metadata,
		Timestamp: time.Now().UTC(),
	}

	resp, err := a.handler.Handle(ctx, req)
	if resp.ID == "" {
		resp.ID = requestID
	}
	if err != nil && resp.Error == nil {
		resp = handler.NewErrorResponse(resp.ID, handler.CodeInternal, "Request processing failed", "")
	}

	headers := map[string]string{"X-Request-ID": resp.ID}
	for key, value := range resp.Metadata {
		headers["X-"+key] = value
	}

	return jsonProxyResponse(StatusCode(resp), resp, headers), nil
}

func jsonProxyResponse(status int, body interface{}, headers map[string]string) events.APIGatewayProxyResponse {
	encoded, err := json.Marshal(body)
	if err != nil {
		status = http.StatusInternalServerError
		encoded = []byte(`{"success":false}`)
	}

	if headers == nil {
		headers = map[string]string{}
	}
	headers["Content-Type"] = "application/json"

	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Headers:    headers,
		Body:       string(encoded),
	}
}
