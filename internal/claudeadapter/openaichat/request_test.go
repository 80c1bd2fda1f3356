package openaichat

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/florianilch/claudine-bridge/internal/claudeadapter"
	"github.com/florianilch/claudine-bridge/internal/claudeadapter/types"
)

// decodeRequest parses a Claude request body the way the transport does.
func decodeRequest(t *testing.T, body string) types.MessagesRequest {
	t.Helper()
	var req types.MessagesRequest
	require.NoError(t, json.Unmarshal([]byte(body), &req))
	return req
}

// encodeJSON marshals v and returns it as a generic JSON value for shape comparisons.
func encodeJSON(t *testing.T, v any) any {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	var out any
	require.NoError(t, json.Unmarshal(data, &out))
	return out
}

func TestTranslateRequest(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		model string
		want  string
	}{
		{
			name:  "plain user string",
			body:  `{"model":"m","messages":[{"role":"user","content":"hi"}]}`,
			model: "m",
			want:  `{"model":"m","messages":[{"role":"user","content":"hi"}]}`,
		},
		{
			name:  "target model replaces client model",
			body:  `{"model":"claude-sonnet-4","messages":[{"role":"user","content":"hi"}]}`,
			model: "gpt-4o",
			want:  `{"model":"gpt-4o","messages":[{"role":"user","content":"hi"}]}`,
		},
		{
			name:  "system string becomes leading system message",
			body:  `{"model":"m","system":"be brief","messages":[{"role":"user","content":"hi"}]}`,
			model: "m",
			want:  `{"model":"m","messages":[{"role":"system","content":"be brief"},{"role":"user","content":"hi"}]}`,
		},
		{
			name:  "system block array is newline joined",
			body:  `{"model":"m","system":[{"type":"text","text":"a"},{"type":"text","text":"b"}],"messages":[]}`,
			model: "m",
			want:  `{"model":"m","messages":[{"role":"system","content":"a\nb"}]}`,
		},
		{
			name: "scalars pass through and stop_sequences maps to stop",
			body: `{"model":"m","max_tokens":100,"temperature":0.5,"top_p":0.9,"stream":true,
				"stop_sequences":["END"],"messages":[{"role":"user","content":"hi"}]}`,
			model: "m",
			want: `{"model":"m","messages":[{"role":"user","content":"hi"}],"max_tokens":100,
				"temperature":0.5,"top_p":0.9,"stream":true,"stop":["END"]}`,
		},
		{
			name: "user blocks merge into one content array with data url images",
			body: `{"model":"m","messages":[{"role":"user","content":[
				{"type":"text","text":"what is this?"},
				{"type":"image","source":{"type":"base64","media_type":"image/png","data":"iVBORw0KGgo="}}
			]}]}`,
			model: "m",
			want: `{"model":"m","messages":[{"role":"user","content":[
				{"type":"text","text":"what is this?"},
				{"type":"image_url","image_url":{"url":"data:image/png;base64,iVBORw0KGgo="}}
			]}]}`,
		},
		{
			name: "url image source passes through",
			body: `{"model":"m","messages":[{"role":"user","content":[
				{"type":"image","source":{"type":"url","url":"https://example.com/cat.png"}}
			]}]}`,
			model: "m",
			want: `{"model":"m","messages":[{"role":"user","content":[
				{"type":"image_url","image_url":{"url":"https://example.com/cat.png"}}
			]}]}`,
		},
		{
			name: "tool results precede merged user content regardless of block order",
			body: `{"model":"m","messages":[{"role":"user","content":[
				{"type":"text","text":"before"},
				{"type":"tool_result","tool_use_id":"t1","content":"sunny"},
				{"type":"text","text":"after"},
				{"type":"tool_result","tool_use_id":"t2","content":[{"type":"text","text":"42"}]}
			]}]}`,
			model: "m",
			want: `{"model":"m","messages":[
				{"role":"tool","tool_call_id":"t1","content":"sunny"},
				{"role":"tool","tool_call_id":"t2","content":"[{\"type\":\"text\",\"text\":\"42\"}]"},
				{"role":"user","content":[{"type":"text","text":"before"},{"type":"text","text":"after"}]}
			]}`,
		},
		{
			name: "user turn of only tool results has no merged message",
			body: `{"model":"m","messages":[{"role":"user","content":[
				{"type":"tool_result","tool_use_id":"t1","content":"ok"}
			]}]}`,
			model: "m",
			want:  `{"model":"m","messages":[{"role":"tool","tool_call_id":"t1","content":"ok"}]}`,
		},
		{
			name: "assistant text blocks are newline joined and tool uses become tool calls",
			body: `{"model":"m","messages":[{"role":"assistant","content":[
				{"type":"text","text":"let me check"},
				{"type":"text","text":"one moment"},
				{"type":"tool_use","id":"t1","name":"weather","input":{"city": "Berlin"}}
			]}]}`,
			model: "m",
			want: `{"model":"m","messages":[{"role":"assistant","content":"let me check\none moment",
				"tool_calls":[{"id":"t1","type":"function","function":{"name":"weather","arguments":"{\"city\":\"Berlin\"}"}}]}]}`,
		},
		{
			name: "assistant tool-only turn has null content and default arguments",
			body: `{"model":"m","messages":[{"role":"assistant","content":[
				{"type":"tool_use","id":"t1","name":"now"}
			]}]}`,
			model: "m",
			want: `{"model":"m","messages":[{"role":"assistant","content":null,
				"tool_calls":[{"id":"t1","type":"function","function":{"name":"now","arguments":"{}"}}]}]}`,
		},
		{
			name: "assistant thinking blocks are dropped",
			body: `{"model":"m","messages":[{"role":"assistant","content":[
				{"type":"thinking","thinking":"hmm"},
				{"type":"text","text":"done"}
			]}]}`,
			model: "m",
			want:  `{"model":"m","messages":[{"role":"assistant","content":"done"}]}`,
		},
		{
			name: "tools and named tool choice",
			body: `{"model":"m","messages":[],
				"tools":[{"name":"weather","description":"Get weather","input_schema":{"type":"object","properties":{"city":{"type":"string"}}}}],
				"tool_choice":{"type":"tool","name":"weather"}}`,
			model: "m",
			want: `{"model":"m","messages":[],
				"tools":[{"type":"function","function":{"name":"weather","description":"Get weather",
					"parameters":{"type":"object","properties":{"city":{"type":"string"}}}}}],
				"tool_choice":{"type":"function","function":{"name":"weather"}}}`,
		},
		{
			name:  "tool choice any collapses to auto",
			body:  `{"model":"m","messages":[],"tool_choice":{"type":"any"}}`,
			model: "m",
			want:  `{"model":"m","messages":[],"tool_choice":"auto"}`,
		},
		{
			name:  "tool choice auto stays auto",
			body:  `{"model":"m","messages":[],"tool_choice":{"type":"auto"}}`,
			model: "m",
			want:  `{"model":"m","messages":[],"tool_choice":"auto"}`,
		},
		{
			name:  "tool choice none is omitted",
			body:  `{"model":"m","messages":[],"tool_choice":{"type":"none"}}`,
			model: "m",
			want:  `{"model":"m","messages":[]}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := TranslateRequest(decodeRequest(t, tt.body), tt.model)
			require.NoError(t, err)

			var want any
			require.NoError(t, json.Unmarshal([]byte(tt.want), &want))
			assert.Equal(t, want, encodeJSON(t, got))
		})
	}
}

func TestTranslateRequestErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{
			name: "missing messages",
			body: `{"model":"m"}`,
		},
		{
			name: "unknown role",
			body: `{"model":"m","messages":[{"role":"system","content":"x"}]}`,
		},
		{
			name: "image without source",
			body: `{"model":"m","messages":[{"role":"user","content":[{"type":"image"}]}]}`,
		},
		{
			name: "unsupported user block",
			body: `{"model":"m","messages":[{"role":"user","content":[{"type":"document"}]}]}`,
		},
		{
			name: "user turn with empty block list",
			body: `{"model":"m","messages":[{"role":"user","content":[]}]}`,
		},
		{
			name: "user turn with null content",
			body: `{"model":"m","messages":[{"role":"user","content":"hi"},{"role":"assistant","content":"ok"},{"role":"user","content":null}]}`,
		},
		{
			name: "tool without name",
			body: `{"model":"m","messages":[],"tools":[{"description":"nameless"}]}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := TranslateRequest(decodeRequest(t, tt.body), "m")
			require.Error(t, err)

			var translationErr *claudeadapter.TranslationError
			assert.True(t, errors.As(err, &translationErr), "want *TranslationError, got %T", err)
		})
	}
}

// TestTranslateRequestPreservesPlainConversation checks that a conversation without
// tools or images keeps its role/content sequence one-to-one.
func TestTranslateRequestPreservesPlainConversation(t *testing.T) {
	req := types.MessagesRequest{
		Model: "m",
		Messages: []types.Message{
			{Role: types.RoleUser, Content: types.TextContent("one")},
			{Role: types.RoleAssistant, Content: types.TextContent("two")},
			{Role: types.RoleUser, Content: types.TextContent("three")},
			{Role: types.RoleAssistant, Content: types.BlockContent(types.ContentBlock{Type: types.BlockTypeText, Text: "four"})},
		},
	}

	got, err := TranslateRequest(req, "m")
	require.NoError(t, err)
	require.Len(t, got.Messages, len(req.Messages))

	want := []struct{ role, content string }{
		{"user", "one"},
		{"assistant", "two"},
		{"user", "three"},
		{"assistant", "four"},
	}
	for i, w := range want {
		assert.Equal(t, w.role, got.Messages[i].Role)
		assert.Equal(t, w.content, got.Messages[i].Content)
	}
}
