package openaichat

import (
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/google/uuid"

	"github.com/florianilch/claudine-bridge/internal/claudeadapter/types"
)

// TranslateResponse converts a buffered OpenAI response into a Claude message that
// reports model as its model. Only the first choice is considered.
func TranslateResponse(resp *types.ChatCompletionResponse, model string) (*types.MessagesResponse, error) {
	if resp == nil {
		return nil, errors.New("empty upstream response")
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("upstream response has no choices")
	}
	choice := resp.Choices[0]

	content := make([]types.ContentBlock, 0, 1+len(choice.Message.ToolCalls))
	if choice.Message.Content != nil && *choice.Message.Content != "" {
		content = append(content, types.ContentBlock{
			Type: types.BlockTypeText,
			Text: *choice.Message.Content,
		})
	}

	toolUses, err := toToolUseBlocks(choice.Message.ToolCalls)
	if err != nil {
		return nil, fmt.Errorf("convert tool calls: %w", err)
	}
	content = append(content, toolUses...)

	id := resp.ID
	if id == "" {
		id = newMessageID()
	}

	return &types.MessagesResponse{
		ID:         id,
		Type:       "message",
		Role:       types.RoleAssistant,
		Model:      model,
		Content:    content,
		StopReason: toStopReason(choice.FinishReason),
		Usage:      toUsage(resp.Usage),
	}, nil
}

// toStopReason maps OpenAI finish reasons to Claude stop reasons. Unknown values,
// including content_filter and the empty string, map to end_turn.
func toStopReason(finishReason string) anthropic.StopReason {
	switch finishReason {
	case types.FinishReasonStop:
		return anthropic.StopReasonEndTurn
	case types.FinishReasonLength:
		return anthropic.StopReasonMaxTokens
	case types.FinishReasonToolCalls:
		return anthropic.StopReasonToolUse
	default:
		return anthropic.StopReasonEndTurn
	}
}

// newMessageID generates a Claude-compatible message ID (msg_<hex>).
// Used once per stream and as fallback when the upstream response has no ID.
func newMessageID() string {
	return "msg_" + strings.ReplaceAll(uuid.NewString(), "-", "")
}
