package model

import (
	"context"
	"encoding/json"
	"fmt"
)

// OpenRouterModelClient adapts *Client to the ModelClient port.
type OpenRouterModelClient struct {
	client *Client
	model  string
}

// NewOpenRouterModelClient wraps an existing *Client for a specific model id.
func NewOpenRouterModelClient(client *Client, modelID string) *OpenRouterModelClient {
	return &OpenRouterModelClient{client: client, model: modelID}
}

func toOpenAIFunctions(tools []ToolBinding) []map[string]any {
	out := make([]map[string]any, 0, len(tools))
	for _, t := range tools {
		out = append(out, map[string]any{
			"type": "function",
			"function": map[string]any{
				"name":        t.Name,
				"description": t.Description,
				"parameters":  t.Schema,
			},
		})
	}
	return out
}

// BindTools returns a BoundClient carrying the given tool list. OpenRouter's
// chat-completions endpoint always accepts a tools array, so this never
// fails for this provider; other ModelClient implementations may return
// ErrNoToolBindingSupport.
func (o *OpenRouterModelClient) BindTools(tools []ToolBinding) (BoundClient, error) {
	return &openRouterBoundClient{
		client: o.client,
		model:  o.model,
		tools:  toOpenAIFunctions(tools),
	}, nil
}

// WithStructuredOutput returns a client whose Invoke asks the model to
// respond with JSON matching schema, by sending the schema in a system
// message ahead of the prompt. The reply text is returned as-is; it is not
// checked against the schema.
func (o *OpenRouterModelClient) WithStructuredOutput(schema map[string]any) StructuredClient {
	return &openRouterStructuredClient{client: o.client, model: o.model, schema: schema}
}

type openRouterBoundClient struct {
	client *Client
	model  string
	tools  []map[string]any
}

func (b *openRouterBoundClient) Invoke(ctx context.Context, messages []Message) (Message, error) {
	resp, err := b.client.ChatCompletion(ctx, ChatRequest{
		Model:    b.model,
		Messages: messages,
		Tools:    b.tools,
	})
	if err != nil {
		return Message{}, err
	}
	if len(resp.Choices) == 0 {
		return Message{}, fmt.Errorf("model returned no choices")
	}
	return resp.Choices[0].Message, nil
}

func (b *openRouterBoundClient) Stream(ctx context.Context, messages []Message) (<-chan StreamEvent, error) {
	chunkCh, errCh := b.client.ChatCompletionStream(ctx, ChatRequest{
		Model:    b.model,
		Messages: messages,
		Tools:    b.tools,
		Stream:   true,
	})

	out := make(chan StreamEvent, 8)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case chunk, ok := <-chunkCh:
				if !ok {
					select {
					case err := <-errCh:
						if err != nil {
							out <- StreamEvent{Err: err, Done: true}
						} else {
							out <- StreamEvent{Done: true}
						}
					default:
						out <- StreamEvent{Done: true}
					}
					return
				}
				if len(chunk.Choices) == 0 {
					continue
				}
				delta := chunk.Choices[0].Delta
				select {
				case out <- StreamEvent{Content: delta.Content, Reasoning: delta.Reasoning, ToolCalls: delta.ToolCalls}:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

type openRouterStructuredClient struct {
	client *Client
	model  string
	schema map[string]any
}

func (s *openRouterStructuredClient) Invoke(ctx context.Context, prompt string) (string, error) {
	schemaJSON, err := json.Marshal(s.schema)
	if err != nil {
		return "", fmt.Errorf("marshal structured output schema: %w", err)
	}
	resp, err := s.client.ChatCompletion(ctx, ChatRequest{
		Model: s.model,
		Messages: []Message{
			{Role: "system", Content: "Respond with JSON only, matching this schema: " + string(schemaJSON)},
			{Role: "user", Content: prompt},
		},
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("model returned no choices")
	}
	content, _ := resp.Choices[0].Message.Content.(string)
	return content, nil
}
