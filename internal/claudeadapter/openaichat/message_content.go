package openaichat

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/florianilch/claudine-bridge/internal/claudeadapter/types"
)

// fromMessage converts one Claude message into one or more OpenAI messages.
func fromMessage(msg types.Message) ([]types.ChatMessage, error) {
	switch msg.Role {
	case types.RoleUser:
		return fromUserMessage(msg.Content)
	case types.RoleAssistant:
		assistant, err := fromAssistantMessage(msg.Content)
		if err != nil {
			return nil, err
		}
		return []types.ChatMessage{assistant}, nil
	default:
		return nil, fmt.Errorf("unsupported role %q", msg.Role)
	}
}

// fromUserMessage converts a user turn. tool_result blocks become tool messages that
// always precede the merged user message, regardless of their position in the turn.
func fromUserMessage(content types.MessageContent) ([]types.ChatMessage, error) {
	if content.IsText() {
		return []types.ChatMessage{{Role: types.ChatRoleUser, Content: *content.Text}}, nil
	}
	if len(content.Blocks) == 0 {
		return nil, errors.New("user message has no content")
	}

	var toolMessages []types.ChatMessage
	var parts []types.ChatContentPart
	for i, block := range content.Blocks {
		switch block.Type {
		case types.BlockTypeToolResult:
			toolMessages = append(toolMessages, types.ChatMessage{
				Role:       types.ChatRoleTool,
				ToolCallID: block.ToolUseID,
				Content:    fromToolResultContent(block.Content),
			})

		case types.BlockTypeText:
			parts = append(parts, types.ChatContentPart{Type: "text", Text: block.Text})

		case types.BlockTypeImage:
			part, err := fromImageBlock(block)
			if err != nil {
				return nil, fmt.Errorf("image in user content block %d: %w", i, err)
			}
			parts = append(parts, part)

		default:
			return nil, fmt.Errorf("content block type %q not supported in user messages", block.Type)
		}
	}

	messages := toolMessages
	if len(parts) > 0 {
		messages = append(messages, types.ChatMessage{Role: types.ChatRoleUser, Content: parts})
	}
	return messages, nil
}

// fromAssistantMessage converts an assistant turn. Text blocks are newline-joined;
// an assistant turn without text carries null content so tool-only turns have no
// dangling empty string.
func fromAssistantMessage(content types.MessageContent) (types.ChatMessage, error) {
	msg := types.ChatMessage{Role: types.ChatRoleAssistant}
	if content.IsText() {
		msg.Content = *content.Text
		return msg, nil
	}

	var texts []string
	for i, block := range content.Blocks {
		switch block.Type {
		case types.BlockTypeText:
			texts = append(texts, block.Text)

		case types.BlockTypeToolUse:
			msg.ToolCalls = append(msg.ToolCalls, types.ChatToolCall{
				ID:   block.ID,
				Type: "function",
				Function: types.ChatFunctionCall{
					Name:      block.Name,
					Arguments: toolArguments(block.Input),
				},
			})

		case "thinking", "redacted_thinking":
			// Thinking blocks have no Chat Completions equivalent and are dropped from history.

		default:
			return msg, fmt.Errorf("content block type %q not supported in assistant messages (block %d)", block.Type, i)
		}
	}

	if joined := strings.Join(texts, "\n"); joined != "" {
		msg.Content = joined
	}
	return msg, nil
}

// fromToolResultContent returns string content verbatim and the JSON serialization of
// anything else.
func fromToolResultContent(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return ""
	}

	var text string
	if raw[0] == '"' && json.Unmarshal(raw, &text) == nil {
		return text
	}

	var compacted bytes.Buffer
	if err := json.Compact(&compacted, raw); err != nil {
		return string(raw)
	}
	return compacted.String()
}

// fromImageBlock rewrites a Claude image into an OpenAI image_url part. Base64 sources
// become data URLs; URL sources are passed through.
func fromImageBlock(block types.ContentBlock) (types.ChatContentPart, error) {
	if block.Source == nil {
		return types.ChatContentPart{}, fmt.Errorf("missing source")
	}

	var url string
	switch block.Source.Type {
	case "url":
		url = block.Source.URL
	case "base64", "":
		url = "data:" + block.Source.MediaType + ";base64," + block.Source.Data
	default:
		return types.ChatContentPart{}, fmt.Errorf("unsupported image source type %q", block.Source.Type)
	}

	return types.ChatContentPart{
		Type:     "image_url",
		ImageURL: &types.ChatImageURL{URL: url},
	}, nil
}

// toolArguments serializes a tool_use input for OpenAI's arguments string.
// Absent or null input becomes "{}".
func toolArguments(input json.RawMessage) string {
	input = bytes.TrimSpace(input)
	if len(input) == 0 || bytes.Equal(input, []byte("null")) {
		return "{}"
	}

	var compacted bytes.Buffer
	if err := json.Compact(&compacted, input); err != nil {
		return string(input)
	}
	return compacted.String()
}
