package execution

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/odvcencio/wayfarer/pkg/errors"
	"github.com/odvcencio/wayfarer/pkg/model"
	"github.com/odvcencio/wayfarer/pkg/tool"
)

// ProcessResult is the outcome of running a turn's tool calls through the
// processor (spec §4.3).
type ProcessResult struct {
	DoneCalled      bool
	// Answer is the done_tool call's reported final answer, when
	// DoneCalled is true; used by finalisation as the task outcome
	// result_tool summarises (spec §4.11).
	Answer          string
	RequirePlanning bool
	Cancelled       bool
	Fatal           error
}

// refreshStateSummaryLimit bounds the compact summary left in the tool
// message history once the full state has been routed to the browser_state
// singleton (spec §4.3 step 4, refresh_browser_state_tool).
const refreshStateSummaryLimit = 200

// ProcessToolCalls appends the turn's final assistant message (tool calls
// preserved verbatim, per the §3 interleaving invariant) then executes each
// call in order, applying the post-actions named in spec §4.3.
func (ec *ExecutionContext) ProcessToolCalls(content string, toolCalls []model.ToolCall) ProcessResult {
	ec.Log.AddAI(content, toolCalls)

	var result ProcessResult
	for _, tc := range toolCalls {
		if ec.Cancelled() {
			result.Cancelled = true
			return result
		}

		var args map[string]any
		_ = json.Unmarshal([]byte(tc.Function.Arguments), &args)

		glowing := ec.glowEnabled(tc.Function.Name)
		tabID := ec.CurrentTabID()
		if glowing {
			ec.StartGlow(tabID, tc.Function.Name)
		}

		start := time.Now()
		env := ec.Tools.ExecuteWithContext(ec.ctx, tc.Function.Name, args)
		if ec.Metrics != nil {
			ec.Metrics.ObserveToolCall(tc.Function.Name, env.OK, time.Since(start))
		}

		if glowing {
			ec.StopGlow(tabID)
		}

		envJSON, err := env.ToJSON()
		if err != nil {
			envJSON = fmt.Sprintf(`{"ok":false,"output":%q}`, err.Error())
		}
		ec.Log.AddToolResult(tc.ID, tc.Function.Name, envJSON)

		switch tc.Function.Name {
		case "refresh_browser_state_tool":
			ec.applyRefreshBrowserState(tc.ID, env)
		case "todo_manager_tool":
			ec.applyTodoManagerSet(args, env)
		case "done_tool":
			if env.OK {
				result.DoneCalled = true
				if out, ok := env.Output.(map[string]any); ok {
					result.Answer, _ = out["answer"].(string)
				}
			}
		case "require_planning_tool":
			if env.OK {
				result.RequirePlanning = true
			}
		case "human_input_tool":
			if env.OK {
				ec.Log.AddAI("Human has completed the requested manual action", nil)
				// A human-input pause breaks the loop: calls the turn
				// queued after it were planned before the gate opened and
				// may no longer fit the page the human just acted on
				// (spec §4.3), so they're dropped rather than run stale.
				return result
			}
			result.Fatal = errors.New(errors.ErrCodeHumanInputAborted, fmt.Sprintf("%v", env.Output)).WithRetryable(false)
			return result
		}
	}
	return result
}

// applyRefreshBrowserState routes the full observation into the dedicated
// browser_state singleton and leaves a short summary in the tool-message
// history, keeping the visible history compact (spec §4.3 step 4).
func (ec *ExecutionContext) applyRefreshBrowserState(callID string, env tool.Envelope) {
	if !env.OK {
		return
	}
	full := fmt.Sprintf("%v", env.Output)
	ec.Log.SetBrowserState(full)
	summary := full
	if len(summary) > refreshStateSummaryLimit {
		summary = summary[:refreshStateSummaryLimit] + "…"
	}
	ec.Log.ReplaceToolResult(callID, fmt.Sprintf(`{"ok":true,"output":%q}`, summary))
}

// applyTodoManagerSet replaces the singleton todo_list message and narrates
// it when the call was a `set` (spec §4.3 step 4).
func (ec *ExecutionContext) applyTodoManagerSet(args map[string]any, env tool.Envelope) {
	if !env.OK {
		return
	}
	op, _ := args["operation"].(string)
	if op != "set" {
		return
	}
	out, ok := env.Output.(map[string]any)
	if !ok {
		return
	}
	markdown, _ := out["todo_list"].(string)
	ec.Log.SetTodoList(markdown)
	ec.Narrator.Thinking(ec.ctx, "", fmt.Sprintf("Updated plan:\n%s", markdown))
}
