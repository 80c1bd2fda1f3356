package openaichat

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/florianilch/claudine-bridge/internal/claudeadapter/types"
)

// fromTools transforms Claude tool declarations into OpenAI function tools.
func fromTools(tools []types.Tool) ([]types.ChatTool, error) {
	if len(tools) == 0 {
		return nil, nil
	}

	chatTools := make([]types.ChatTool, 0, len(tools))
	for i, tool := range tools {
		if tool.Name == "" {
			return nil, fmt.Errorf("tool %d has no name", i)
		}
		chatTools = append(chatTools, types.ChatTool{
			Type: "function",
			Function: types.ChatFunctionDef{
				Name:        tool.Name,
				Description: tool.Description,
				Parameters:  tool.InputSchema,
			},
		})
	}
	return chatTools, nil
}

// fromToolChoice converts Claude's tool_choice. auto and any both collapse to "auto"
// because OpenAI's "required" is stricter than Claude's any; tool{name} becomes a
// named function choice. Anything else is omitted.
func fromToolChoice(choice *types.ToolChoice) any {
	if choice == nil {
		return nil
	}

	switch choice.Type {
	case types.ToolChoiceAuto, types.ToolChoiceAny:
		return "auto"
	case types.ToolChoiceTool:
		return types.ChatNamedToolChoice{
			Type:     "function",
			Function: types.ChatToolChoiceRef{Name: choice.Name},
		}
	default:
		return nil
	}
}

// toToolUseBlocks converts OpenAI tool calls of a buffered response into Claude
// tool_use blocks. Arguments must be valid JSON; a parse failure is returned.
func toToolUseBlocks(toolCalls []types.ChatToolCall) ([]types.ContentBlock, error) {
	blocks := make([]types.ContentBlock, 0, len(toolCalls))
	for i, call := range toolCalls {
		input := json.RawMessage("{}")
		if call.Function.Arguments != "" {
			if !json.Valid([]byte(call.Function.Arguments)) {
				return nil, fmt.Errorf("tool call %d (%s): arguments are not valid JSON", i, call.Function.Name)
			}
			input = json.RawMessage(call.Function.Arguments)
		}

		// Claude clients echo the id back in tool_result blocks; generate one if missing.
		id := call.ID
		if id == "" {
			id = newToolUseID()
		}

		blocks = append(blocks, types.ContentBlock{
			Type:  types.BlockTypeToolUse,
			ID:    id,
			Name:  call.Function.Name,
			Input: input,
		})
	}
	return blocks, nil
}

// newToolUseID generates a Claude-style tool use ID (format: toolu_<uuid-hex>).
func newToolUseID() string {
	return "toolu_" + strings.ReplaceAll(uuid.NewString(), "-", "")
}
