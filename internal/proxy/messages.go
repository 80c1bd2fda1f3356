package proxy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"golang.org/x/oauth2"

	"github.com/florianilch/claudine-bridge/internal/claudeadapter"
	"github.com/florianilch/claudine-bridge/internal/claudeadapter/types"
	"github.com/florianilch/claudine-bridge/internal/observability"
	"github.com/florianilch/claudine-bridge/internal/observability/middleware"
)

// CreateMessageHandler handles Claude Messages requests.
type CreateMessageHandler struct {
	Adapter claudeadapter.CreateMessageAdapter

	// Transport is the base upstream transport; credentials are layered on per request.
	Transport http.RoundTripper

	// Fallback supplies the upstream key when the request carries none. Optional.
	Fallback oauth2.TokenSource

	// Metrics is optional.
	Metrics *observability.Metrics

	validate *validator.Validate
}

// NewCreateMessageHandler creates a handler serving requests through adapter.
func NewCreateMessageHandler(
	adapter claudeadapter.CreateMessageAdapter,
	transport http.RoundTripper,
	fallback oauth2.TokenSource,
	metrics *observability.Metrics,
) *CreateMessageHandler {
	return &CreateMessageHandler{
		Adapter:   adapter,
		Transport: transport,
		Fallback:  fallback,
		Metrics:   metrics,
		validate:  newValidator(),
	}
}

// Compile-time check to ensure CreateMessageHandler implements http.Handler
var _ http.Handler = (*CreateMessageHandler)(nil)

// newValidator returns a validator that reports fields by their JSON names.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// ServeHTTP implements http.Handler interface for streaming or non-streaming requests.
func (h *CreateMessageHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req claudeadapter.CreateMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			slog.WarnContext(ctx, "request exceeds size limit", "limit_bytes", maxBytesErr.Limit)
			writeClaudeError(ctx, w, types.ErrorTypeRequestTooLarge, http.StatusText(http.StatusRequestEntityTooLarge))
			h.Metrics.ObserveRequest(requestMode(req), observability.OutcomeClientError)
			return
		}
		slog.WarnContext(ctx, "failed to decode request", "error", err)
		writeClaudeError(ctx, w, types.ErrorTypeInvalidRequest, "invalid request body: "+err.Error())
		h.Metrics.ObserveRequest(requestMode(req), observability.OutcomeClientError)
		return
	}

	middleware.SetLogAttrs(ctx, slog.String("model", req.Model), slog.Bool("stream", req.Stream))

	if err := h.validate.Struct(req); err != nil {
		slog.WarnContext(ctx, "invalid request", "error", err)
		writeClaudeError(ctx, w, types.ErrorTypeInvalidRequest, validationMessage(err))
		h.Metrics.ObserveRequest(requestMode(req), observability.OutcomeClientError)
		return
	}

	transport, err := upstreamTransport(r, h.Transport, h.Fallback)
	if err != nil {
		slog.WarnContext(ctx, "missing upstream credential", "error", err)
		writeClaudeError(ctx, w, types.ErrorTypeAuthentication, err.Error())
		h.Metrics.ObserveRequest(requestMode(req), observability.OutcomeClientError)
		return
	}

	if req.Stream {
		h.streamResponse(ctx, w, req, transport)
	} else {
		h.writeResponse(ctx, w, req, transport)
	}
}

// writeResponse handles non-streaming requests.
func (h *CreateMessageHandler) writeResponse(
	ctx context.Context,
	w http.ResponseWriter,
	req claudeadapter.CreateMessageRequest,
	transport http.RoundTripper,
) {
	if ctx.Err() != nil {
		return
	}
	response, err := h.Adapter.ProcessRequest(ctx, req, transport)
	if err != nil {
		h.writeError(ctx, w, observability.ModeBuffered, err)
		return
	}

	writeJSON(ctx, w, response, http.StatusOK)
	h.Metrics.ObserveRequest(observability.ModeBuffered, observability.OutcomeOK)
}

// streamResponse streams Claude events using SSE.
func (h *CreateMessageHandler) streamResponse(
	ctx context.Context,
	w http.ResponseWriter,
	req claudeadapter.CreateMessageRequest,
	transport http.RoundTripper,
) {
	if ctx.Err() != nil {
		return
	}
	stream, err := h.Adapter.ProcessStreamingRequest(ctx, req, transport)
	if err != nil {
		h.writeError(ctx, w, observability.ModeStreaming, err)
		return
	}

	sse, err := NewSSEWriter(w)
	if err != nil {
		slog.ErrorContext(ctx, "SSE not supported", "error", err)
		writeClaudeError(ctx, w, types.ErrorTypeAPI, http.StatusText(http.StatusInternalServerError))
		h.Metrics.ObserveRequest(observability.ModeStreaming, observability.OutcomeError)
		return
	}

	stopped := false
	for event, err := range stream {
		// Check for client disconnect before processing event
		if ctx.Err() != nil {
			slog.DebugContext(ctx, "client disconnected during stream")
			h.Metrics.ObserveRequest(observability.ModeStreaming, observability.OutcomeCanceled)
			return
		}

		if err != nil {
			slog.ErrorContext(ctx, "stream error", "error", err)
			if !stopped {
				errResp := types.NewErrorResponse(types.ErrorTypeAPI, err.Error())
				if writeErr := sse.WriteEvent(types.EventError, errResp); writeErr != nil {
					slog.ErrorContext(ctx, "failed to write error event", "error", writeErr)
				}
			}
			h.Metrics.ObserveRequest(observability.ModeStreaming, observability.OutcomeError)
			return
		}

		if err := sse.WriteEvent(event.Type, event.Data); err != nil {
			slog.ErrorContext(ctx, "failed to write event", "event", event.Type, "error", err)
			h.Metrics.ObserveRequest(observability.ModeStreaming, observability.OutcomeError)
			return
		}
		h.Metrics.ObserveStreamEvent(event.Type)
		if event.Type == types.EventMessageStop {
			stopped = true
		}
	}

	if ctx.Err() != nil {
		h.Metrics.ObserveRequest(observability.ModeStreaming, observability.OutcomeCanceled)
		return
	}
	h.Metrics.ObserveRequest(observability.ModeStreaming, observability.OutcomeOK)
}

// writeError reports a failure that happened before any response byte was written.
func (h *CreateMessageHandler) writeError(ctx context.Context, w http.ResponseWriter, mode string, err error) {
	if ctx.Err() != nil {
		slog.DebugContext(ctx, "client disconnected before response", "error", err)
		h.Metrics.ObserveRequest(mode, observability.OutcomeCanceled)
		return
	}

	var (
		upstreamErr    *claudeadapter.UpstreamError
		translationErr *claudeadapter.TranslationError
	)
	switch {
	case errors.As(err, &upstreamErr):
		slog.WarnContext(ctx, "upstream error",
			"status", upstreamErr.StatusCode,
			"upstream_message", upstreamErr.Message,
		)
		writeUpstreamError(ctx, w, upstreamErr)
		h.Metrics.ObserveUpstreamError(upstreamErr.StatusCode)
		h.Metrics.ObserveRequest(mode, observability.OutcomeUpstreamError)
	case errors.As(err, &translationErr):
		slog.WarnContext(ctx, "request cannot be translated", "error", err)
		writeClaudeError(ctx, w, types.ErrorTypeInvalidRequest, translationErr.Error())
		h.Metrics.ObserveRequest(mode, observability.OutcomeClientError)
	case errors.Is(err, claudeadapter.ErrBadUpstream):
		slog.ErrorContext(ctx, "bad upstream response", "error", err)
		writeJSON(ctx, w, types.NewErrorResponse(types.ErrorTypeAPI, err.Error()), http.StatusBadGateway)
		h.Metrics.ObserveRequest(mode, observability.OutcomeError)
	default:
		slog.ErrorContext(ctx, "request failed", "error", err)
		writeClaudeError(ctx, w, types.ErrorTypeAPI, http.StatusText(http.StatusInternalServerError))
		h.Metrics.ObserveRequest(mode, observability.OutcomeError)
	}
}

// validationMessage renders validator errors as "field: problem" pairs.
func validationMessage(err error) string {
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return err.Error()
	}

	msgs := make([]string, 0, len(validationErrs))
	for _, fe := range validationErrs {
		if fe.Tag() == "required" {
			msgs = append(msgs, fe.Field()+": field required")
			continue
		}
		msgs = append(msgs, fmt.Sprintf("%s: failed %q validation", fe.Field(), fe.Tag()))
	}
	return strings.Join(msgs, "; ")
}

func requestMode(req claudeadapter.CreateMessageRequest) string {
	if req.Stream {
		return observability.ModeStreaming
	}
	return observability.ModeBuffered
}
