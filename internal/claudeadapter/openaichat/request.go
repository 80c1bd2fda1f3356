package openaichat

import (
	"fmt"

	"github.com/florianilch/claudine-bridge/internal/claudeadapter"
	"github.com/florianilch/claudine-bridge/internal/claudeadapter/types"
)

// TranslateRequest converts a Claude request into an OpenAI chat completion request
// addressed to model. It has no side effects.
func TranslateRequest(req types.MessagesRequest, model string) (*types.ChatCompletionRequest, error) {
	if req.Messages == nil {
		return nil, &claudeadapter.TranslationError{Reason: "messages is required"}
	}

	messages := make([]types.ChatMessage, 0, len(req.Messages)+1)
	if req.System != nil {
		messages = append(messages, types.ChatMessage{
			Role:    types.ChatRoleSystem,
			Content: req.System.Text,
		})
	}

	for i, msg := range req.Messages {
		converted, err := fromMessage(msg)
		if err != nil {
			return nil, &claudeadapter.TranslationError{
				Reason: fmt.Sprintf("message %d", i),
				Err:    err,
			}
		}
		messages = append(messages, converted...)
	}

	chatReq := &types.ChatCompletionRequest{
		Model:       model,
		Messages:    messages,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
		TopP:        req.TopP,
		Stream:      req.Stream,
		Stop:        req.StopSequences,
	}

	tools, err := fromTools(req.Tools)
	if err != nil {
		return nil, &claudeadapter.TranslationError{Reason: "tools", Err: err}
	}
	chatReq.Tools = tools
	chatReq.ToolChoice = fromToolChoice(req.ToolChoice)

	return chatReq, nil
}
