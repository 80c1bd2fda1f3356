package types

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
)

// Claude message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Claude content block types.
const (
	BlockTypeText       = "text"
	BlockTypeImage      = "image"
	BlockTypeToolUse    = "tool_use"
	BlockTypeToolResult = "tool_result"
)

// Claude tool_choice types.
const (
	ToolChoiceAuto = "auto"
	ToolChoiceAny  = "any"
	ToolChoiceTool = "tool"
	ToolChoiceNone = "none"
)

// MessagesRequest is the body of POST /v1/messages.
type MessagesRequest struct {
	Model         string        `json:"model" validate:"required"`
	System        *SystemPrompt `json:"system,omitempty"`
	Messages      []Message     `json:"messages"`
	MaxTokens     *int          `json:"max_tokens,omitempty"`
	Temperature   *float64      `json:"temperature,omitempty"`
	TopP          *float64      `json:"top_p,omitempty"`
	Stream        bool          `json:"stream,omitempty"`
	StopSequences []string      `json:"stop_sequences,omitempty"`
	Tools         []Tool        `json:"tools,omitempty"`
	ToolChoice    *ToolChoice   `json:"tool_choice,omitempty"`
}

// SystemPrompt holds Claude's system field, which clients send either as a
// plain string or as an array of text blocks.
type SystemPrompt struct {
	Text string
}

// UnmarshalJSON accepts a string or an array of text blocks. Block texts are
// joined with newlines.
func (s *SystemPrompt) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return errors.New("empty system prompt")
	}

	switch data[0] {
	case '"':
		return json.Unmarshal(data, &s.Text)
	case '[':
		var blocks []ContentBlock
		if err := json.Unmarshal(data, &blocks); err != nil {
			return fmt.Errorf("decode system blocks: %w", err)
		}
		texts := make([]string, 0, len(blocks))
		for _, block := range blocks {
			if block.Type == BlockTypeText {
				texts = append(texts, block.Text)
			}
		}
		s.Text = strings.Join(texts, "\n")
		return nil
	default:
		return fmt.Errorf("system must be a string or an array of text blocks")
	}
}

// MarshalJSON encodes the prompt as a plain string.
func (s SystemPrompt) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Text)
}

// Message is one conversation turn.
type Message struct {
	Role    string         `json:"role"`
	Content MessageContent `json:"content"`
}

// MessageContent is either a plain string or an ordered list of content
// blocks. Exactly one of Text and Blocks is meaningful; IsText reports which.
type MessageContent struct {
	Text   *string
	Blocks []ContentBlock
}

// TextContent returns string content.
func TextContent(text string) MessageContent {
	return MessageContent{Text: &text}
}

// BlockContent returns block content.
func BlockContent(blocks ...ContentBlock) MessageContent {
	return MessageContent{Blocks: blocks}
}

// IsText reports whether the content was sent as a plain string.
func (c MessageContent) IsText() bool {
	return c.Text != nil
}

// UnmarshalJSON accepts a string or an array of content blocks.
func (c *MessageContent) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return errors.New("empty message content")
	}

	switch data[0] {
	case '"':
		var text string
		if err := json.Unmarshal(data, &text); err != nil {
			return err
		}
		c.Text, c.Blocks = &text, nil
		return nil
	case '[':
		var blocks []ContentBlock
		if err := json.Unmarshal(data, &blocks); err != nil {
			return err
		}
		c.Text, c.Blocks = nil, blocks
		return nil
	case 'n':
		// null leaves the content empty
		return nil
	default:
		return fmt.Errorf("message content must be a string or an array of content blocks")
	}
}

// MarshalJSON encodes string content as a JSON string and block content as an
// array.
func (c MessageContent) MarshalJSON() ([]byte, error) {
	if c.Text != nil {
		return json.Marshal(*c.Text)
	}
	if c.Blocks == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(c.Blocks)
}

// ContentBlock is a flattened Claude content block. Type selects which of the
// remaining fields are populated.
type ContentBlock struct {
	Type string `json:"type"`

	// text
	Text string `json:"text,omitempty"`

	// image
	Source *ImageSource `json:"source,omitempty"`

	// tool_use
	ID    string          `json:"id,omitempty"`
	Name  string          `json:"name,omitempty"`
	Input json.RawMessage `json:"input,omitempty"`

	// tool_result; Content is a string or an array of blocks and is kept raw.
	ToolUseID string          `json:"tool_use_id,omitempty"`
	Content   json.RawMessage `json:"content,omitempty"`
	IsError   bool            `json:"is_error,omitempty"`
}

// ImageSource is the source of an image block: inline base64 data or a URL.
type ImageSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type,omitempty"`
	Data      string `json:"data,omitempty"`
	URL       string `json:"url,omitempty"`
}

// Tool is a client-declared tool.
type Tool struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	InputSchema json.RawMessage `json:"input_schema,omitempty"`
}

// ToolChoice is Claude's tool_choice object.
type ToolChoice struct {
	Type string `json:"type"`
	Name string `json:"name,omitempty"`
}

// MessagesResponse is a complete, non-streaming Claude message.
type MessagesResponse struct {
	ID           string               `json:"id"`
	Type         string               `json:"type"`
	Role         string               `json:"role"`
	Model        string               `json:"model"`
	Content      []ContentBlock       `json:"content"`
	StopReason   anthropic.StopReason `json:"stop_reason"`
	StopSequence *string              `json:"stop_sequence"`
	Usage        Usage                `json:"usage"`
}

// Usage reports token counts.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// ModelList is the body of GET /v1/models.
type ModelList struct {
	Data    []ModelInfo `json:"data"`
	HasMore bool        `json:"has_more"`
	FirstID *string     `json:"first_id"`
	LastID  *string     `json:"last_id"`
}

// ModelInfo describes one model alias served by the bridge.
type ModelInfo struct {
	Type        string `json:"type"`
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}
