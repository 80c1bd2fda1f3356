// Package openaichat adapts Claude Messages requests to an OpenAI Chat Completions
// upstream, enabling Claude SDK clients to work with OpenAI-compatible models without
// code changes.
//
// The adapter handles:
//
//   - Message transformation: Claude's system field becomes a leading system message.
//     tool_result blocks are split out of user turns into dedicated tool messages, which
//     always precede the remaining user content of the same turn.
//
//   - Tool calling: tool_use blocks become assistant tool_calls with JSON-encoded
//     arguments and are parsed back into tool_use inputs on the way out.
//
//   - Content blocks: text and base64 images map onto OpenAI content parts; images are
//     rewritten into data URLs.
//
//   - Streaming: Rebuilds Claude's typed SSE events from OpenAI's chunk deltas. The
//     translator is an explicit state machine (StreamState) stepped once per upstream
//     read, so line fragmentation and multi-chunk tool arguments survive chunk boundaries.
//
// # Adapters
//
// CreateMessageAdapter: Claude CreateMessage → OpenAI CreateChatCompletion
package openaichat
