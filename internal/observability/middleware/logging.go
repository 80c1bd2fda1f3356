package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/httplog/v3"
)

// Logging logs one record per request with method, path, status and duration.
// Successful health checks and metrics scrapes are not logged.
func Logging(logger *slog.Logger) func(http.Handler) http.Handler {
	return httplog.RequestLogger(logger, &httplog.Options{
		Schema: httplog.SchemaECS.Concise(true),

		Skip: func(r *http.Request, respStatus int) bool {
			return respStatus < http.StatusBadRequest && isOperationalPath(r.URL.Path)
		},

		// Authorization and x-api-key carry upstream keys and are never logged,
		// neither are bodies.
		LogRequestHeaders:  []string{"Content-Type", "Origin", "User-Agent", "Anthropic-Version", "Anthropic-Beta"},
		LogResponseHeaders: []string{},
		LogRequestBody:     nil,
		LogResponseBody:    nil,

		RecoverPanics: false, // use dedicated middleware, panics are logged regardless
	})
}

func isOperationalPath(path string) bool {
	return strings.HasPrefix(path, "/health/") || path == "/metrics"
}

// SetLogAttrs sets attributes on the request log.
func SetLogAttrs(ctx context.Context, attrs ...slog.Attr) {
	httplog.SetAttrs(ctx, attrs...)
}
