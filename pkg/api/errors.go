package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/Sumatoshi-tech/timemachine/pkg/history"
)

// codeInvalidRequest is the error code of requests rejected before they
// reach the engine.
const codeInvalidRequest = "invalid_request"

// ErrorResponse is the body of every non-2xx tool response.
type ErrorResponse struct {
	Error      string `json:"error"`
	Message    string `json:"message"`
	StatusCode int    `json:"status_code"`
}

func statusForKind(kind history.Kind) int {
	switch kind {
	case history.KindInvalidCommit:
		return http.StatusBadRequest
	case history.KindFileNotFound:
		return http.StatusNotFound
	case history.KindNonTextContent:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func writeError(ctx context.Context, rw http.ResponseWriter, status int, code, message string) {
	writeJSON(ctx, rw, status, ErrorResponse{Error: code, Message: message, StatusCode: status})
}

// writeJSON encodes value as the response body.
func writeJSON(ctx context.Context, rw http.ResponseWriter, status int, value any) {
	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(status)

	encodeErr := json.NewEncoder(rw).Encode(value)
	if encodeErr != nil {
		slog.Default().ErrorContext(ctx, "failed to encode JSON response", "error", encodeErr)
	}
}
