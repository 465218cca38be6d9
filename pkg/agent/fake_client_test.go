package agent

import (
	"context"
	"fmt"
	"sync"

	"github.com/odvcencio/wayfarer/pkg/model"
)

// fakeClient scripts a sequence of streamed turns plus a structured-output
// responder, letting Agent.Run tests drive a full Classify→route→finalise
// pass without a live model provider.
type fakeClient struct {
	mu         sync.Mutex
	turns      [][]model.StreamEvent
	turnIndex  int
	structured func(schema map[string]any, prompt string) (string, error)
}

func (f *fakeClient) BindTools(tools []model.ToolBinding) (model.BoundClient, error) {
	return &fakeBound{client: f}, nil
}

func (f *fakeClient) WithStructuredOutput(schema map[string]any) model.StructuredClient {
	return &fakeStructured{schema: schema, fn: f.structured}
}

type fakeBound struct{ client *fakeClient }

func (b *fakeBound) Invoke(ctx context.Context, messages []model.Message) (model.Message, error) {
	return model.Message{}, fmt.Errorf("fakeBound.Invoke not implemented")
}

func (b *fakeBound) Stream(ctx context.Context, messages []model.Message) (<-chan model.StreamEvent, error) {
	b.client.mu.Lock()
	idx := b.client.turnIndex
	b.client.turnIndex++
	var events []model.StreamEvent
	if idx < len(b.client.turns) {
		events = b.client.turns[idx]
	}
	b.client.mu.Unlock()

	ch := make(chan model.StreamEvent, len(events)+1)
	for _, e := range events {
		ch <- e
	}
	close(ch)
	return ch, nil
}

type fakeStructured struct {
	schema map[string]any
	fn     func(schema map[string]any, prompt string) (string, error)
}

func (s *fakeStructured) Invoke(ctx context.Context, prompt string) (string, error) {
	if s.fn == nil {
		return "{}", nil
	}
	return s.fn(s.schema, prompt)
}

func hasProp(schema map[string]any, key string) bool {
	props, _ := schema["properties"].(map[string]any)
	if props == nil {
		return false
	}
	_, ok := props[key]
	return ok
}

func evt(index int, id, name, arguments string) model.StreamEvent {
	return model.StreamEvent{
		ToolCalls: []model.ToolCallDelta{{
			Index:    index,
			ID:       id,
			Function: &model.FunctionCallDelta{Name: name, Arguments: arguments},
		}},
	}
}

func done() model.StreamEvent {
	return model.StreamEvent{Done: true}
}
