package platforms

import (
	"net/http"

	"github.com/islamibragimov/url-downloader-bot/shared/handler"
)

// statusCodes maps error codes to HTTP status codes. Unknown codes map to 500.
var statusCodes = map[string]int{
	handler.CodeValidation:     http.StatusBadRequest,
	handler.CodeInvalidRequest: http.StatusBadRequest,
	handler.CodeUnknownType:    http.StatusNotFound,
	handler.CodeTimeout:        http.StatusGatewayTimeout,
	handler.CodeInternal:       http.StatusInternalServerError,
	"NO_URL":                   http.StatusBadRequest,
	"INVALID_URL":              http.StatusBadRequest,
	"SESSION_STATE_EMPTY":      http.StatusNotFound,
	"ACQUISITION_FAILED":       http.StatusUnprocessableEntity,
	"DELIVERY_FAILED":          http.StatusBadGateway,
}

// StatusCode maps a handler response to an HTTP status code.
func StatusCode(resp handler.Response) int {
	if resp.Success {
		return http.StatusOK
	}
	if resp.Error == nil {
		return http.StatusInternalServerError
	}
	if code, ok := statusCodes[resp.Error.Code]; ok {
		return code
	}
	return http.StatusInternalServerError
}

var healthPaths = map[string]bool{
	"/health":  true,
	"/healthz": true,
	"/ready":   true,
	"/readyz":  true,
	"/live":    true,
	"/livez":   true,
}

// IsHealthCheck reports whether path is one of the health endpoints.
func IsHealthCheck(path string) bool {
	return healthPaths[path]
}
