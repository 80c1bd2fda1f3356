package proxy

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/florianilch/claudine-bridge/internal/claudeadapter"
	"github.com/florianilch/claudine-bridge/internal/claudeadapter/types"
)

// writeJSON writes a JSON response with the given status code.
// Logs encoding failures internally using the provided context.
func writeJSON(ctx context.Context, w http.ResponseWriter, data any, status int) {
	w.Header().Set("Content-Type", "application/json")
	// Headers and status are written before encoding to avoid buffering.
	// If encoding fails, the client may receive a partial response.
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.ErrorContext(ctx, "failed to encode JSON response", "error", err)
	}
}

// writeClaudeError writes a Claude error envelope. The status code is derived from
// the error type following the Claude API conventions.
func writeClaudeError(ctx context.Context, w http.ResponseWriter, errType, message string) {
	writeJSON(ctx, w, types.NewErrorResponse(errType, message), errorStatus(errType))
}

// errorStatus maps Claude error types to HTTP status codes.
func errorStatus(errType string) int {
	switch errType {
	case types.ErrorTypeInvalidRequest:
		return http.StatusBadRequest
	case types.ErrorTypeAuthentication:
		return http.StatusUnauthorized
	case types.ErrorTypePermission:
		return http.StatusForbidden
	case types.ErrorTypeNotFound:
		return http.StatusNotFound
	case types.ErrorTypeRequestTooLarge:
		return http.StatusRequestEntityTooLarge
	case types.ErrorTypeRateLimit:
		return http.StatusTooManyRequests
	case types.ErrorTypeOverloaded:
		return 529
	default:
		return http.StatusInternalServerError
	}
}

// writeUpstreamError relays a failed upstream response untranslated.
func writeUpstreamError(ctx context.Context, w http.ResponseWriter, upstreamErr *claudeadapter.UpstreamError) {
	contentType := upstreamErr.ContentType
	if contentType == "" {
		contentType = "application/json"
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(upstreamErr.StatusCode)
	if _, err := w.Write(upstreamErr.Body); err != nil {
		slog.ErrorContext(ctx, "failed to write upstream error body", "error", err)
	}
}
