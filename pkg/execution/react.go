package execution

import (
	"encoding/json"
	"fmt"

	"github.com/odvcencio/wayfarer/pkg/errors"
	"github.com/odvcencio/wayfarer/pkg/model"
	"github.com/odvcencio/wayfarer/pkg/telemetry"
)

// ReactCycle is one recorded Observe → Think → Act triple (spec §3).
type ReactCycle struct {
	Observation string
	Thought     string
	Action      string
}

// ReactState is the rolling context the ReAct strategy feeds back into its
// Think prompt: the task-level goal, the current sub-focus, and a bounded
// ring buffer of recent cycles (spec §3).
type ReactState struct {
	UltimateGoal string
	CurrentFocus string
	Cycles       []ReactCycle
	maxCycles    int
}

// NewReactState seeds state for a fresh run, goal as both UltimateGoal and
// the initial CurrentFocus (spec §4.7).
func NewReactState(goal string, maxCycles int) *ReactState {
	if maxCycles <= 0 {
		maxCycles = 8
	}
	return &ReactState{UltimateGoal: goal, CurrentFocus: goal, maxCycles: maxCycles}
}

// record appends a cycle, dropping the oldest once the ring buffer is full.
func (s *ReactState) record(c ReactCycle) {
	s.Cycles = append(s.Cycles, c)
	if len(s.Cycles) > s.maxCycles {
		s.Cycles = s.Cycles[len(s.Cycles)-s.maxCycles:]
	}
}

func (s *ReactState) recentSummary() string {
	out := ""
	for _, c := range s.Cycles {
		out += fmt.Sprintf("observed: %s\nthought: %s\naction: %s\n---\n", c.Observation, c.Thought, c.Action)
	}
	return out
}

var reactExplanationSchema = map[string]any{
	"type":       "object",
	"properties": map[string]any{"explanation": map[string]any{"type": "string"}},
	"required":   []string{"explanation"},
}

var reactThinkSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"reasoning": map[string]any{"type": "string"},
		"toolName":  map[string]any{"type": "string"},
	},
	"required": []string{"reasoning", "toolName"},
}

var reactFocusSchema = map[string]any{
	"type":       "object",
	"properties": map[string]any{"focus": map[string]any{"type": "string"}},
	"required":   []string{"focus"},
}

// RunReact executes the ReAct strategy (spec §4.7): an outer validation loop
// of up to Config.MaxValidationAttempts, each wrapping an inner
// Observe-Think-Act cycle loop of up to Config.MaxReactCycles.
func (ec *ExecutionContext) RunReact() (*TurnResult, error) {
	outerBudget := ec.Config.MaxValidationAttempts
	if outerBudget <= 0 {
		outerBudget = 5
	}
	innerBudget := ec.Config.MaxReactCycles
	if innerBudget <= 0 {
		innerBudget = 8
	}

	state := NewReactState(ec.Task, innerBudget)
	var lastAction string

	for attempt := 0; attempt < outerBudget; attempt++ {
		if ec.Cancelled() {
			return &TurnResult{Cancelled: true}, nil
		}

		done, cancelled, err := ec.reactInner(state, innerBudget, &lastAction)
		if err != nil {
			return nil, err
		}
		if cancelled {
			return &TurnResult{Cancelled: true}, nil
		}
		complete, reasoning, suggestions, verr := ec.validate()
		if verr != nil {
			return nil, verr
		}
		if complete {
			if done {
				return &TurnResult{Content: lastAction}, nil
			}
			return &TurnResult{Content: reasoning}, nil
		}
		ec.Log.AddReminder(formatValidationReminder(reasoning, suggestions))
	}

	return nil, errors.New(errors.ErrCodeStepBudgetExceeded, "ReAct task exceeded its validation-attempt budget").WithRetryable(false)
}

// reactInner runs cycles until done, a loop is detected (both break to outer
// validation per spec §4.9), or the inner budget is exhausted.
func (ec *ExecutionContext) reactInner(state *ReactState, innerBudget int, lastAction *string) (done, cancelled bool, err error) {
	ec.Log.ClampToBudget(ec.contextBudget())

	for cycle := 0; cycle < innerBudget; cycle++ {
		if ec.Cancelled() {
			return false, true, nil
		}

		_, span := telemetry.Tracer().Start(ec.ctx, "execution.react_cycle")
		if ec.Metrics != nil {
			ec.Metrics.ObserveCycle("react")
		}

		observation, err := ec.reactObserve(state)
		if err != nil {
			span.End()
			return false, false, err
		}

		thought, toolName, err := ec.reactThink(state, observation)
		if err != nil {
			span.End()
			return false, false, err
		}

		result, actionSummary, err := ec.reactAct(toolName)
		if err != nil {
			span.End()
			return false, false, err
		}
		*lastAction = actionSummary
		state.record(ReactCycle{Observation: observation, Thought: thought, Action: actionSummary})
		span.End()

		if result.Cancelled {
			return false, true, nil
		}
		if result.Fatal != nil {
			return false, false, result.Fatal
		}
		if result.DoneCalled {
			if result.Answer != "" {
				*lastAction = result.Answer
			}
			return true, false, nil
		}
		if ec.LoopDetector.Detect(ec.Log.LastAIMessages(ec.Config.LoopLookback)) {
			if ec.Metrics != nil {
				ec.Metrics.ObserveLoopDetected()
			}
			return false, false, nil
		}
		if result.RequirePlanning {
			ec.refineFocus(state)
		}

		ec.Log.ClampToBudget(ec.contextBudget())
	}
	return false, false, nil
}

// reactObserve is the Observe phase (spec §4.7 step 1).
func (ec *ExecutionContext) reactObserve(state *ReactState) (string, error) {
	screenshotEnv := ec.Tools.ExecuteWithContext(ec.ctx, "screenshot_tool", map[string]any{})
	stateEnv := ec.Tools.ExecuteWithContext(ec.ctx, "refresh_browser_state_tool", map[string]any{})
	if ec.Metrics != nil {
		ec.Metrics.ObserveToolCall("screenshot_tool", screenshotEnv.OK, 0)
		ec.Metrics.ObserveToolCall("refresh_browser_state_tool", stateEnv.OK, 0)
	}
	if stateEnv.OK {
		ec.Log.SetBrowserState(fmt.Sprintf("%v", stateEnv.Output))
	}

	if ec.Client == nil {
		return "", fmt.Errorf("model client not configured")
	}
	prompt := fmt.Sprintf(
		"Current focus: %s\nScreenshot captured: %v\nBrowser state: %v\nExplain the current state briefly in light of the current focus.",
		state.CurrentFocus, screenshotEnv.OK, stateEnv.Output,
	)
	raw, err := ec.Client.WithStructuredOutput(reactExplanationSchema).Invoke(ec.ctx, prompt)
	if err != nil {
		return "", err
	}
	var parsed struct {
		Explanation string `json:"explanation"`
	}
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return "", fmt.Errorf("react observe: unparseable explanation: %w", err)
	}
	ec.Narrator.Thinking(ec.ctx, "", parsed.Explanation)
	return parsed.Explanation, nil
}

// reactThink is the Think phase (spec §4.7 step 2).
func (ec *ExecutionContext) reactThink(state *ReactState, observation string) (thought, toolName string, err error) {
	names := make([]string, 0)
	for _, t := range ec.Tools.List() {
		names = append(names, t.Name())
	}
	prompt := fmt.Sprintf(
		"Ultimate goal: %s\nCurrent focus: %s\nLatest observation: %s\nRecent cycles:\n%s\nAvailable tools: %v\nPick the single next tool to call and explain why.",
		state.UltimateGoal, state.CurrentFocus, observation, state.recentSummary(), names,
	)
	raw, err := ec.Client.WithStructuredOutput(reactThinkSchema).Invoke(ec.ctx, prompt)
	if err != nil {
		return "", "", err
	}
	var parsed struct {
		Reasoning string `json:"reasoning"`
		ToolName  string `json:"toolName"`
	}
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return "", "", fmt.Errorf("react think: unparseable decision: %w", err)
	}
	ec.Narrator.Thinking(ec.ctx, "", parsed.Reasoning)
	return parsed.Reasoning, parsed.ToolName, nil
}

// reactAct is the Act phase (spec §4.7 step 3): a tool-bound LLM call
// targeting only the chosen tool, with produced calls fed through the
// Tool-Call Processor (§4.3).
func (ec *ExecutionContext) reactAct(toolName string) (ProcessResult, string, error) {
	ec.Log.AddHuman(fmt.Sprintf("Call %s now to make progress on the current focus.", toolName))
	turn, err := ec.RunTurn([]string{toolName})
	if err != nil {
		return ProcessResult{}, "", err
	}
	if turn.Cancelled {
		return ProcessResult{Cancelled: true}, "", nil
	}
	if len(turn.ToolCalls) == 0 {
		ec.Log.AddAI(turn.Content, nil)
		return ProcessResult{}, turn.Content, nil
	}
	result := ec.ProcessToolCalls(turn.Content, turn.ToolCalls)
	return result, describeToolCalls(turn.ToolCalls), nil
}

func describeToolCalls(calls []model.ToolCall) string {
	out := ""
	for _, c := range calls {
		out += c.Function.Name + " "
	}
	return out
}

// refineFocus asks a short LLM call to restate the current focus after a
// failed action (spec §4.7 step 5).
func (ec *ExecutionContext) refineFocus(state *ReactState) {
	if ec.Client == nil {
		return
	}
	prompt := fmt.Sprintf("The last action toward focus %q did not fully succeed. Restate a narrower, more achievable current focus.", state.CurrentFocus)
	raw, err := ec.Client.WithStructuredOutput(reactFocusSchema).Invoke(ec.ctx, prompt)
	if err != nil {
		return
	}
	var parsed struct {
		Focus string `json:"focus"`
	}
	if json.Unmarshal([]byte(raw), &parsed) == nil && parsed.Focus != "" {
		state.CurrentFocus = parsed.Focus
	}
}

// contextBudget returns the token budget ClampToBudget trims the MessageLog
// against before each ReAct cycle (spec §4.7: "all LLM inputs here are
// token-budget-clamped").
const reactContextBudgetTokens = 32000

func (ec *ExecutionContext) contextBudget() int {
	return reactContextBudgetTokens
}
