package openaichat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"net/http"
	"strings"

	"github.com/florianilch/claudine-bridge/internal/claudeadapter"
	"github.com/florianilch/claudine-bridge/internal/claudeadapter/types"
)

// readBufferSize is the size of a single upstream read handed to the stream translator.
const readBufferSize = 4096

// StreamObserver receives per-stream statistics once a stream ends.
type StreamObserver interface {
	ObserveDroppedLines(n int)
}

// CreateMessageAdapter serves Claude CreateMessage requests from an OpenAI-compatible
// chat completions endpoint.
type CreateMessageAdapter struct {
	// BaseURL is the upstream API root, e.g. https://api.openai.com/v1.
	BaseURL string

	// ResolveModel maps the client's model to the upstream model. Nil passes the
	// client's model through.
	ResolveModel func(model string) string

	// Observer is optional.
	Observer StreamObserver
}

// Compile-time check that CreateMessageAdapter implements the adapter contract.
var _ claudeadapter.CreateMessageAdapter = (*CreateMessageAdapter)(nil)

// ProcessRequest translates the request, calls the upstream and translates the buffered
// response. Non-success upstream responses are returned as *claudeadapter.UpstreamError.
func (a *CreateMessageAdapter) ProcessRequest(
	ctx context.Context,
	clientReq claudeadapter.CreateMessageRequest,
	transport http.RoundTripper,
) (*claudeadapter.CreateMessageResponse, error) {
	chatReq, err := TranslateRequest(clientReq, a.resolveModel(clientReq.Model))
	if err != nil {
		return nil, err
	}
	chatReq.Stream = false

	resp, err := a.send(ctx, chatReq, transport)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	var chatResp types.ChatCompletionResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return nil, fmt.Errorf("%w: decode: %w", claudeadapter.ErrBadUpstream, err)
	}

	clientResp, err := TranslateResponse(&chatResp, clientReq.Model)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", claudeadapter.ErrBadUpstream, err)
	}
	return clientResp, nil
}

// ProcessStreamingRequest translates the request, opens the upstream stream and returns
// an iterator over Claude events. Each iteration step is driven by one upstream read.
//
// If the upstream ends without [DONE] or a read fails, the terminal event sequence is
// still produced; a read failure is then reported as a final error. If ctx is cancelled
// (client disconnect), iteration stops without a terminal sequence.
func (a *CreateMessageAdapter) ProcessStreamingRequest(
	ctx context.Context,
	clientReq claudeadapter.CreateMessageRequest,
	transport http.RoundTripper,
) (iter.Seq2[*claudeadapter.CreateMessageEvent, error], error) {
	chatReq, err := TranslateRequest(clientReq, a.resolveModel(clientReq.Model))
	if err != nil {
		return nil, err
	}
	chatReq.Stream = true

	resp, err := a.send(ctx, chatReq, transport)
	if err != nil {
		return nil, err
	}

	return func(yield func(*claudeadapter.CreateMessageEvent, error) bool) {
		defer func() { _ = resp.Body.Close() }()

		translator := NewStreamTranslator(clientReq.Model)
		defer func() {
			state := translator.State()
			if a.Observer != nil && state.DroppedLines > 0 {
				a.Observer.ObserveDroppedLines(state.DroppedLines)
			}
			slog.DebugContext(ctx, "upstream stream finished",
				"message_id", state.MessageID,
				"completed", state.Done,
				"dropped_lines", state.DroppedLines,
				"tool_calls", len(state.ToolCalls),
			)
		}()

		emit := func(events []types.StreamEvent) bool {
			for i := range events {
				if !yield(&events[i], nil) {
					return false
				}
			}
			return true
		}

		buf := make([]byte, readBufferSize)
		for {
			n, readErr := resp.Body.Read(buf)
			if n > 0 {
				if !emit(translator.Process(buf[:n])) {
					return
				}
				if translator.Done() {
					return
				}
			}

			if readErr == nil {
				continue
			}
			if ctx.Err() != nil {
				return
			}
			if !emit(translator.Finish()) {
				return
			}
			if !errors.Is(readErr, io.EOF) {
				yield(nil, fmt.Errorf("read upstream stream: %w", readErr))
			}
			return
		}
	}, nil
}

// send posts the chat completion request. Non-success responses are consumed and
// returned as *claudeadapter.UpstreamError.
func (a *CreateMessageAdapter) send(
	ctx context.Context,
	chatReq *types.ChatCompletionRequest,
	transport http.RoundTripper,
) (*http.Response, error) {
	client, err := newClient(transport)
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(chatReq)
	if err != nil {
		return nil, fmt.Errorf("marshal upstream request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.endpoint(), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create upstream request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if chatReq.Stream {
		req.Header.Set("Accept", "text/event-stream")
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: request failed: %w", claudeadapter.ErrBadUpstream, err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		defer func() { _ = resp.Body.Close() }()
		return nil, toUpstreamError(resp)
	}

	return resp, nil
}

func (a *CreateMessageAdapter) endpoint() string {
	return strings.TrimRight(a.BaseURL, "/") + "/chat/completions"
}

func (a *CreateMessageAdapter) resolveModel(model string) string {
	if a.ResolveModel == nil {
		return model
	}
	return a.ResolveModel(model)
}
