package openaichat

import "github.com/florianilch/claudine-bridge/internal/claudeadapter/types"

// toUsage converts OpenAI usage to Claude usage. Missing usage reports zero tokens.
//
// Cached prompt tokens (prompt_tokens_details.cached_tokens) have no slot in the
// basic Claude usage object and are folded into input_tokens by the upstream already.
func toUsage(usage *types.ChatUsage) types.Usage {
	if usage == nil {
		return types.Usage{}
	}
	return types.Usage{
		InputTokens:  usage.PromptTokens,
		OutputTokens: usage.CompletionTokens,
	}
}
