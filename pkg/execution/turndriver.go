package execution

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/odvcencio/wayfarer/pkg/logging"
	"github.com/odvcencio/wayfarer/pkg/model"
	"github.com/odvcencio/wayfarer/pkg/telemetry"
	"github.com/odvcencio/wayfarer/pkg/tool"
)

// TurnResult is the finalised output of one LLM turn (spec §4.2).
type TurnResult struct {
	Content   string
	ToolCalls []model.ToolCall
	Cancelled bool
	// Aborted marks a strategy-level early termination that is not a fatal
	// error — currently only the SimpleTask loop-detector abort (spec §4.9),
	// handled the same way as cancellation at the orchestrator boundary.
	Aborted bool
}

// toolBindings converts the subset of the registry named in allowed (all
// tools if allowed is empty) into the provider-agnostic shape BindTools
// expects.
func toolBindings(r *tool.Registry, allowed []string) []model.ToolBinding {
	var out []model.ToolBinding
	for _, t := range r.List() {
		if len(allowed) > 0 && !tool.IsToolAllowed(t.Name(), allowed) {
			continue
		}
		schema := map[string]any{"type": "object"}
		if raw, err := json.Marshal(t.Parameters()); err == nil {
			_ = json.Unmarshal(raw, &schema)
		}
		out = append(out, model.ToolBinding{Name: t.Name(), Description: t.Description(), Schema: schema})
	}
	return out
}

type toolCallAccumulator struct {
	id   string
	name string
	args strings.Builder
}

// RunTurn executes one LLM turn (spec §4.2): bind tools, open a streaming
// response, accumulate text into a narrated "thinking" message and tool-call
// fragments into complete calls, and poll cancellation between chunks.
func (ec *ExecutionContext) RunTurn(allowedTools []string) (*TurnResult, error) {
	turnCtx, span := telemetry.Tracer().Start(ec.ctx, "execution.turn")
	defer span.End()
	if ec.Metrics != nil {
		ec.Metrics.ObserveTurn()
	}

	if ec.Client == nil {
		return nil, fmt.Errorf("model client not configured")
	}
	return ec.runTurn(turnCtx, allowedTools)
}

func (ec *ExecutionContext) runTurn(turnCtx context.Context, allowedTools []string) (*TurnResult, error) {
	bindings := toolBindings(ec.Tools, allowedTools)
	bound, err := ec.Client.BindTools(bindings)
	if err != nil {
		return nil, err
	}

	messages := ec.Log.ToModelMessages()
	stream, err := bound.Stream(turnCtx, messages)
	if err != nil {
		return nil, err
	}

	var content, reasoning strings.Builder
	msgID := ""
	order := make([]int, 0, 4)
	calls := make(map[int]*toolCallAccumulator)

	for {
		select {
		case <-turnCtx.Done():
			return &TurnResult{Cancelled: true}, nil
		case event, ok := <-stream:
			if !ok {
				ec.logReasoning(reasoning.String())
				return ec.finaliseTurn(content.String(), order, calls), nil
			}
			if event.Err != nil {
				return nil, event.Err
			}
			if event.Reasoning != "" {
				reasoning.WriteString(event.Reasoning)
			}
			if event.Content != "" {
				content.WriteString(event.Content)
				msgID = ec.Narrator.Thinking(ec.ctx, msgID, content.String())
			}
			for _, delta := range event.ToolCalls {
				acc, seen := calls[delta.Index]
				if !seen {
					acc = &toolCallAccumulator{}
					calls[delta.Index] = acc
					order = append(order, delta.Index)
				}
				if delta.ID != "" {
					acc.id = delta.ID
				}
				if delta.Function != nil {
					if delta.Function.Name != "" {
						acc.name = delta.Function.Name
					}
					acc.args.WriteString(delta.Function.Arguments)
				}
			}
			if event.Done {
				ec.logReasoning(reasoning.String())
				return ec.finaliseTurn(content.String(), order, calls), nil
			}
		}
	}
}

// logReasoning persists a turn's accumulated reasoning-model chain-of-thought
// to the logger's daily reasoning trace (spec §4.2), independent of the
// narrator's user-facing "thinking" messages.
func (ec *ExecutionContext) logReasoning(text string) {
	if text == "" || ec.Logger == nil {
		return
	}
	if err := ec.Logger.LogReasoning(ec.DefaultSessionID, text); err != nil {
		_ = ec.Logger.Warn(logging.CategoryExecution, "turn.reasoning_log_failed", err.Error(), nil)
	}
}

// finaliseTurn assembles the accumulated tool-call fragments into final
// ToolCall values. If any call's args fail to parse as JSON, the whole
// turn's tool calls are dropped per spec §4.2 step 5, leaving only the
// textual content.
func (ec *ExecutionContext) finaliseTurn(content string, order []int, calls map[int]*toolCallAccumulator) *TurnResult {
	toolCalls := make([]model.ToolCall, 0, len(order))
	for _, idx := range order {
		acc := calls[idx]
		args := acc.args.String()
		if args == "" {
			args = "{}"
		}
		var probe any
		if err := json.Unmarshal([]byte(args), &probe); err != nil {
			if ec.Logger != nil {
				_ = ec.Logger.Warn(logging.CategoryExecution, "turn.unparseable_tool_args", "dropping all tool calls for this turn", map[string]any{"tool": acc.name, "error": err.Error()})
			}
			return &TurnResult{Content: content}
		}
		id := acc.id
		if id == "" {
			// Some providers omit a call id on the final streamed chunk;
			// synthesise one so the MessageLog's tool-message interleaving
			// invariant (spec §3) still has something to key off.
			id = uuid.NewString()
		}
		toolCalls = append(toolCalls, model.ToolCall{
			ID:   id,
			Type: "function",
			Function: model.FunctionCall{
				Name:      acc.name,
				Arguments: args,
			},
		})
	}
	return &TurnResult{Content: content, ToolCalls: toolCalls}
}
