// Package tool defines the universal tool contract the orchestrator calls
// into, plus a middleware-chained registry for executing them.
package tool

import (
	"context"

	"github.com/odvcencio/wayfarer/pkg/encoding/toon"
)

var resultCodec = toon.New(true)

// SetResultEncoding toggles whether tool outputs use TOON or JSON encoding.
func SetResultEncoding(useToon bool) {
	resultCodec = toon.New(useToon)
}

// ParameterSchema describes a tool's JSON-Schema-shaped parameter contract.
type ParameterSchema struct {
	Type       string                    `json:"type"`
	Properties map[string]PropertySchema `json:"properties,omitempty"`
	Required   []string                  `json:"required,omitempty"`
}

// PropertySchema describes a single parameter.
type PropertySchema struct {
	Type        string          `json:"type"`
	Description string          `json:"description,omitempty"`
	Enum        []string        `json:"enum,omitempty"`
	Items       *PropertySchema `json:"items,omitempty"`
	Default     any             `json:"default,omitempty"`
}

// Tool is the contract every built-in, external, or MCP-backed tool
// satisfies. Invoke never returns a raw Go error for a domain failure: it
// swallows it into Envelope{OK:false} so the orchestrator can always append
// a tool-role MessageLog entry, even when the tool itself failed.
//
//go:generate mockgen -package=tool -destination=mock_tool_test.go github.com/odvcencio/wayfarer/pkg/tool Tool
type Tool interface {
	Name() string
	Description() string
	Parameters() ParameterSchema
	Invoke(ctx context.Context, args map[string]any) Envelope
}

// ToOpenAIFunction converts a Tool's schema into the OpenAI/OpenRouter
// function-calling tool description shape.
func ToOpenAIFunction(t Tool) map[string]any {
	return map[string]any{
		"type": "function",
		"function": map[string]any{
			"name":        t.Name(),
			"description": t.Description(),
			"parameters":  t.Parameters(),
		},
	}
}
