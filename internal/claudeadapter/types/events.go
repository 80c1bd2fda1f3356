package types

import (
	"encoding/json"

	"github.com/anthropics/anthropic-sdk-go"
)

// Claude streaming event types, in order of first occurrence.
const (
	EventMessageStart      = "message_start"
	EventContentBlockStart = "content_block_start"
	EventContentBlockDelta = "content_block_delta"
	EventContentBlockStop  = "content_block_stop"
	EventMessageDelta      = "message_delta"
	EventMessageStop       = "message_stop"
	EventError             = "error"
)

// Claude delta types.
const (
	DeltaTypeText      = "text_delta"
	DeltaTypeInputJSON = "input_json_delta"
)

// StreamEvent is one outbound SSE event. Type is written as the SSE event name
// and Data as its JSON payload.
type StreamEvent struct {
	Type string
	Data any
}

// MessageStartEvent opens the stream.
type MessageStartEvent struct {
	Type    string       `json:"type"`
	Message MessageStart `json:"message"`
}

// MessageStart is the message skeleton announced by message_start.
type MessageStart struct {
	ID           string                `json:"id"`
	Type         string                `json:"type"`
	Role         string                `json:"role"`
	Model        string                `json:"model"`
	Content      []ContentBlock        `json:"content"`
	StopReason   *anthropic.StopReason `json:"stop_reason"`
	StopSequence *string               `json:"stop_sequence"`
	Usage        Usage                 `json:"usage"`
}

// ContentBlockStartEvent opens a content block. ContentBlock is a
// TextBlockStart or a ToolUseBlockStart.
type ContentBlockStartEvent struct {
	Type         string `json:"type"`
	Index        int    `json:"index"`
	ContentBlock any    `json:"content_block"`
}

// TextBlockStart is the initial, empty text block.
type TextBlockStart struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// ToolUseBlockStart announces a tool_use block. Input is always {} because
// arguments follow as input_json_delta fragments.
type ToolUseBlockStart struct {
	Type  string          `json:"type"`
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Input json.RawMessage `json:"input"`
}

// ContentBlockDeltaEvent carries a TextDelta or an InputJSONDelta.
type ContentBlockDeltaEvent struct {
	Type  string `json:"type"`
	Index int    `json:"index"`
	Delta any    `json:"delta"`
}

// TextDelta appends text to a text block.
type TextDelta struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// InputJSONDelta appends a raw, possibly incomplete JSON fragment to a
// tool_use block's input.
type InputJSONDelta struct {
	Type        string `json:"type"`
	PartialJSON string `json:"partial_json"`
}

// ContentBlockStopEvent closes a content block.
type ContentBlockStopEvent struct {
	Type  string `json:"type"`
	Index int    `json:"index"`
}

// MessageDeltaEvent reports the final stop reason and output usage.
type MessageDeltaEvent struct {
	Type  string       `json:"type"`
	Delta MessageDelta `json:"delta"`
	Usage DeltaUsage   `json:"usage"`
}

// MessageDelta holds top-level message changes.
type MessageDelta struct {
	StopReason   anthropic.StopReason `json:"stop_reason"`
	StopSequence *string              `json:"stop_sequence"`
}

// DeltaUsage is the cumulative usage reported by message_delta.
type DeltaUsage struct {
	InputTokens  int `json:"input_tokens,omitempty"`
	OutputTokens int `json:"output_tokens"`
}

// MessageStopEvent ends the stream.
type MessageStopEvent struct {
	Type string `json:"type"`
}
