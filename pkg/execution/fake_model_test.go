package execution

import (
	"context"
	"fmt"
	"sync"

	"github.com/odvcencio/wayfarer/pkg/model"
)

// fakeModelClient scripts a sequence of streamed turns plus a structured-
// output responder, letting strategy tests drive RunTurn/RunReact without a
// live provider.
type fakeModelClient struct {
	mu         sync.Mutex
	turns      [][]model.StreamEvent
	turnIndex  int
	structured func(schema map[string]any, prompt string) (string, error)
}

func (f *fakeModelClient) BindTools(tools []model.ToolBinding) (model.BoundClient, error) {
	return &fakeBoundClient{client: f}, nil
}

func (f *fakeModelClient) WithStructuredOutput(schema map[string]any) model.StructuredClient {
	return &fakeStructuredClient{schema: schema, fn: f.structured}
}

type fakeBoundClient struct{ client *fakeModelClient }

func (b *fakeBoundClient) Invoke(ctx context.Context, messages []model.Message) (model.Message, error) {
	return model.Message{}, fmt.Errorf("fakeBoundClient.Invoke not implemented")
}

func (b *fakeBoundClient) Stream(ctx context.Context, messages []model.Message) (<-chan model.StreamEvent, error) {
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

type fakeStructuredClient struct {
	schema map[string]any
	fn     func(schema map[string]any, prompt string) (string, error)
}

func (s *fakeStructuredClient) Invoke(ctx context.Context, prompt string) (string, error) {
	if s.fn == nil {
		return "{}", nil
	}
	return s.fn(s.schema, prompt)
}

// schemaHasProperty reports whether schema's "properties" map contains key,
// used by structured-output fakes to tell classification/validator/planner/
// result prompts apart by shape rather than by prompt text.
func schemaHasProperty(schema map[string]any, key string) bool {
	props, _ := schema["properties"].(map[string]any)
	if props == nil {
		return false
	}
	_, ok := props[key]
	return ok
}

// toolCallEvent builds a single streamed chunk carrying one complete tool
// call fragment, the common case test scripts need.
func toolCallEvent(index int, id, name, arguments string) model.StreamEvent {
	return model.StreamEvent{
		ToolCalls: []model.ToolCallDelta{{
			Index:    index,
			ID:       id,
			Function: &model.FunctionCallDelta{Name: name, Arguments: arguments},
		}},
	}
}

func doneEvent() model.StreamEvent {
	return model.StreamEvent{Done: true}
}
