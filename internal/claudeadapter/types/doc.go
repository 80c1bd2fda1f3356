// Package types provides the Claude Messages and OpenAI Chat Completions wire
// types for server-side request/response handling.
//
// The types are hand-written rather than taken from the anthropic-sdk-go or
// openai-go SDKs:
//
//  1. SERVER-SIDE vs CLIENT-SIDE: Both SDKs model outbound calls. This bridge
//     decodes inbound Claude requests and outbound OpenAI responses, which the
//     SDK param types are not designed to unmarshal.
//
//  2. FIELD PATTERNS: Optional scalars are plain pointers (*int, *float64) so
//     absent fields stay absent on the way upstream.
//
//  3. UNIONS: Claude's "string or block array" content and system fields are
//     modelled as small structs with custom JSON methods instead of SDK
//     union params.
//
// The SDK is still the source of truth for Claude's stop-reason vocabulary
// (anthropic.StopReason).
package types
