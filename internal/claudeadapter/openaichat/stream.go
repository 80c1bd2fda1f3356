package openaichat

import (
	"cmp"
	"encoding/json"
	"slices"
	"strings"

	"github.com/florianilch/claudine-bridge/internal/claudeadapter/types"
)

const (
	// dataPrefix marks the only SSE lines that carry upstream payloads.
	dataPrefix = "data: "

	// doneSentinel terminates an OpenAI stream.
	doneSentinel = "[DONE]"

	// textBlockIndex is reserved for the free-text block opened at stream start.
	textBlockIndex = 0
)

// ToolCallAccumulator collects the fragments of one upstream tool call, keyed by the
// OpenAI delta index.
type ToolCallAccumulator struct {
	ID   string
	Name string

	// Arguments holds every argument fragment in arrival order. It is never parsed;
	// fragments are forwarded as raw partial JSON.
	Arguments string

	// BlockIndex is the Claude content block index, assigned once when the call starts.
	BlockIndex int

	// Started is set once ID and Name are known and content_block_start was emitted.
	Started bool
}

// StreamState is the complete state of one stream translation. It survives chunk
// boundaries and is advanced by Step; nothing else is remembered between chunks, in
// particular no text that was already emitted.
type StreamState struct {
	// Initialized is set once message_start and the text block start were emitted.
	Initialized bool

	// PendingLine is the trailing, possibly incomplete line of the previous chunk.
	PendingLine string

	// NextBlockIndex is the last assigned content block index. Index 0 is the text
	// block; tool blocks pre-increment.
	NextBlockIndex int

	// ToolCalls maps the upstream tool call index to its accumulator.
	ToolCalls map[int]*ToolCallAccumulator

	MessageID string
	Model     string

	// FinishReason is the last non-empty finish_reason seen anywhere in the stream.
	FinishReason string

	// Usage is the last usage object seen in the stream, if the upstream sent one.
	Usage *types.ChatUsage

	// DroppedLines counts data lines dropped by skipLine.
	DroppedLines int

	// Done is set once the terminal event sequence was emitted.
	Done bool
}

// NewStreamState returns the initial state for a stream reporting model.
func NewStreamState(model string) StreamState {
	return StreamState{
		ToolCalls: make(map[int]*ToolCallAccumulator),
		MessageID: newMessageID(),
		Model:     model,
	}
}

// Step consumes one upstream chunk and returns the Claude events it produces, in order.
// Chunk boundaries carry no meaning: lines may be split anywhere, including inside a
// multi-byte character, because only complete lines are decoded.
func (s *StreamState) Step(chunk []byte) []types.StreamEvent {
	if s.Done {
		return nil
	}

	var events []types.StreamEvent
	if !s.Initialized {
		events = s.start(events)
	}

	s.PendingLine += string(chunk)
	lines := strings.Split(s.PendingLine, "\n")
	s.PendingLine = lines[len(lines)-1]

	for _, line := range lines[:len(lines)-1] {
		events = s.processLine(line, events)
		if s.Done {
			s.PendingLine = ""
			break
		}
	}

	return events
}

// Finish is called when the upstream body ends. It processes an unterminated last
// line and, unless [DONE] was already seen, emits the terminal sequence so clients are
// never left waiting.
func (s *StreamState) Finish() []types.StreamEvent {
	if s.Done {
		return nil
	}

	var events []types.StreamEvent
	if !s.Initialized {
		events = s.start(events)
	}

	if s.PendingLine != "" {
		line := s.PendingLine
		s.PendingLine = ""
		events = s.processLine(line, events)
	}

	if !s.Done {
		events = s.stop(events)
	}
	return events
}

// start emits message_start and opens the text block at index 0.
func (s *StreamState) start(events []types.StreamEvent) []types.StreamEvent {
	s.Initialized = true
	return append(events,
		types.StreamEvent{
			Type: types.EventMessageStart,
			Data: types.MessageStartEvent{
				Type: types.EventMessageStart,
				Message: types.MessageStart{
					ID:      s.MessageID,
					Type:    "message",
					Role:    types.RoleAssistant,
					Model:   s.Model,
					Content: []types.ContentBlock{},
					Usage:   types.Usage{},
				},
			},
		},
		types.StreamEvent{
			Type: types.EventContentBlockStart,
			Data: types.ContentBlockStartEvent{
				Type:         types.EventContentBlockStart,
				Index:        textBlockIndex,
				ContentBlock: types.TextBlockStart{Type: types.BlockTypeText, Text: ""},
			},
		},
	)
}

// processLine handles one complete line.
func (s *StreamState) processLine(line string, events []types.StreamEvent) []types.StreamEvent {
	line = strings.TrimSuffix(line, "\r")
	payload, ok := strings.CutPrefix(line, dataPrefix)
	if !ok {
		return events
	}

	if strings.TrimSpace(payload) == doneSentinel {
		return s.stop(events)
	}

	var chunk types.ChatCompletionChunk
	if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
		return s.skipLine(events)
	}

	if chunk.Usage != nil {
		s.Usage = chunk.Usage
	}
	if len(chunk.Choices) == 0 {
		// The usage-only final chunk carries no choices.
		if chunk.Usage != nil {
			return events
		}
		return s.skipLine(events)
	}

	choice := chunk.Choices[0]
	hasFinish := choice.FinishReason != nil && *choice.FinishReason != ""
	if hasFinish {
		s.FinishReason = *choice.FinishReason
	}
	if choice.Delta == nil {
		if hasFinish {
			return events
		}
		return s.skipLine(events)
	}

	if content := choice.Delta.Content; content != nil && *content != "" {
		events = append(events, contentBlockDelta(textBlockIndex, types.TextDelta{
			Type: types.DeltaTypeText,
			Text: *content,
		}))
	}

	for _, call := range choice.Delta.ToolCalls {
		events = s.processToolCall(call, events)
	}

	return events
}

// skipLine is the policy for data lines that carry nothing usable: unparsable JSON,
// no choices and no usage, or a choice with neither delta nor finish_reason. The line
// is dropped and counted, and the stream continues.
func (s *StreamState) skipLine(events []types.StreamEvent) []types.StreamEvent {
	s.DroppedLines++
	return events
}

// processToolCall merges one tool call fragment into its accumulator. The block is
// started once both id and name are known; after that, each argument fragment is
// forwarded as it arrives.
func (s *StreamState) processToolCall(call types.ChatToolCallDelta, events []types.StreamEvent) []types.StreamEvent {
	acc, ok := s.ToolCalls[call.Index]
	if !ok {
		acc = &ToolCallAccumulator{}
		s.ToolCalls[call.Index] = acc
	}

	if acc.ID == "" {
		acc.ID = call.ID
	}

	var fragment string
	if call.Function != nil {
		if acc.Name == "" {
			acc.Name = call.Function.Name
		}
		if call.Function.Arguments != nil {
			fragment = *call.Function.Arguments
			acc.Arguments += fragment
		}
	}

	if acc.Started {
		if fragment != "" {
			events = append(events, inputJSONDelta(acc.BlockIndex, fragment))
		}
		return events
	}

	if acc.ID == "" || acc.Name == "" {
		return events
	}

	s.NextBlockIndex++
	acc.BlockIndex = s.NextBlockIndex
	acc.Started = true

	events = append(events, types.StreamEvent{
		Type: types.EventContentBlockStart,
		Data: types.ContentBlockStartEvent{
			Type:  types.EventContentBlockStart,
			Index: acc.BlockIndex,
			ContentBlock: types.ToolUseBlockStart{
				Type:  types.BlockTypeToolUse,
				ID:    acc.ID,
				Name:  acc.Name,
				Input: json.RawMessage("{}"),
			},
		},
	})

	// Fragments that arrived before the block could start are forwarded in one piece.
	if acc.Arguments != "" {
		events = append(events, inputJSONDelta(acc.BlockIndex, acc.Arguments))
	}
	return events
}

// stop closes the text block and every started tool block, then ends the message.
func (s *StreamState) stop(events []types.StreamEvent) []types.StreamEvent {
	events = append(events, contentBlockStop(textBlockIndex))

	started := make([]*ToolCallAccumulator, 0, len(s.ToolCalls))
	for _, acc := range s.ToolCalls {
		if acc.Started {
			started = append(started, acc)
		}
	}
	slices.SortFunc(started, func(a, b *ToolCallAccumulator) int {
		return cmp.Compare(a.BlockIndex, b.BlockIndex)
	})
	for _, acc := range started {
		events = append(events, contentBlockStop(acc.BlockIndex))
	}

	var usage types.DeltaUsage
	if s.Usage != nil {
		usage.InputTokens = s.Usage.PromptTokens
		usage.OutputTokens = s.Usage.CompletionTokens
	}

	s.Done = true
	return append(events,
		types.StreamEvent{
			Type: types.EventMessageDelta,
			Data: types.MessageDeltaEvent{
				Type:  types.EventMessageDelta,
				Delta: types.MessageDelta{StopReason: toStopReason(s.FinishReason)},
				Usage: usage,
			},
		},
		types.StreamEvent{
			Type: types.EventMessageStop,
			Data: types.MessageStopEvent{Type: types.EventMessageStop},
		},
	)
}

func contentBlockDelta(index int, delta any) types.StreamEvent {
	return types.StreamEvent{
		Type: types.EventContentBlockDelta,
		Data: types.ContentBlockDeltaEvent{
			Type:  types.EventContentBlockDelta,
			Index: index,
			Delta: delta,
		},
	}
}

func inputJSONDelta(index int, fragment string) types.StreamEvent {
	return contentBlockDelta(index, types.InputJSONDelta{
		Type:        types.DeltaTypeInputJSON,
		PartialJSON: fragment,
	})
}

func contentBlockStop(index int) types.StreamEvent {
	return types.StreamEvent{
		Type: types.EventContentBlockStop,
		Data: types.ContentBlockStopEvent{Type: types.EventContentBlockStop, Index: index},
	}
}

// StreamTranslator translates one upstream stream. Create one per request with
// NewStreamTranslator; it must not be reused or shared.
type StreamTranslator struct {
	state StreamState
}

// NewStreamTranslator returns a translator for a stream reporting model.
func NewStreamTranslator(model string) *StreamTranslator {
	return &StreamTranslator{state: NewStreamState(model)}
}

// Process consumes one upstream chunk. See StreamState.Step.
func (t *StreamTranslator) Process(chunk []byte) []types.StreamEvent {
	return t.state.Step(chunk)
}

// Finish ends the stream. See StreamState.Finish.
func (t *StreamTranslator) Finish() []types.StreamEvent {
	return t.state.Finish()
}

// Done reports whether the terminal event sequence was emitted.
func (t *StreamTranslator) Done() bool {
	return t.state.Done
}

// State returns a snapshot of the translator state. The snapshot shares nothing
// with the live translator.
func (t *StreamTranslator) State() StreamState {
	snapshot := t.state
	snapshot.ToolCalls = make(map[int]*ToolCallAccumulator, len(t.state.ToolCalls))
	for index, acc := range t.state.ToolCalls {
		copied := *acc
		snapshot.ToolCalls[index] = &copied
	}
	if t.state.Usage != nil {
		usage := *t.state.Usage
		snapshot.Usage = &usage
	}
	return snapshot
}
