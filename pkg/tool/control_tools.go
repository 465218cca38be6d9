package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/odvcencio/wayfarer/pkg/model"
	"github.com/odvcencio/wayfarer/pkg/planning"
	"github.com/odvcencio/wayfarer/pkg/todolist"
)

// DoneTool lets a strategy declare the task complete and hand back its final
// answer. Strategies treat an OK call to this tool as a terminal signal.
type DoneTool struct{}

func (t *DoneTool) Name() string        { return "done_tool" }
func (t *DoneTool) Description() string { return "Declare the task complete and report the final answer." }

func (t *DoneTool) Parameters() ParameterSchema {
	return ParameterSchema{
		Type: "object",
		Properties: map[string]PropertySchema{
			"answer": {Type: "string", Description: "The final answer or outcome to report"},
		},
		Required: []string{"answer"},
	}
}

func (t *DoneTool) Invoke(ctx context.Context, args map[string]any) Envelope {
	answer := strings.TrimSpace(stringParam(args, "answer"))
	if answer == "" {
		return Fail("answer parameter is required")
	}
	return Ok(map[string]any{"answer": answer})
}

// RequirePlanningTool lets a strategy escalate from SimpleTask handling to a
// MultiStep plan when it discovers the goal has more than one independent
// part, without aborting the whole run.
type RequirePlanningTool struct{}

func (t *RequirePlanningTool) Name() string { return "require_planning_tool" }
func (t *RequirePlanningTool) Description() string {
	return "Signal that this goal needs a multi-step plan rather than a single action."
}

func (t *RequirePlanningTool) Parameters() ParameterSchema {
	return ParameterSchema{
		Type: "object",
		Properties: map[string]PropertySchema{
			"reason": {Type: "string", Description: "Why a plan is needed"},
		},
		Required: []string{"reason"},
	}
}

func (t *RequirePlanningTool) Invoke(ctx context.Context, args map[string]any) Envelope {
	reason := strings.TrimSpace(stringParam(args, "reason"))
	if reason == "" {
		return Fail("reason parameter is required")
	}
	return Ok(map[string]any{"needs_plan": true, "reason": reason})
}

// HumanInputProvider asks a human a question and returns their answer. The
// orchestration core's human-input gate supplies the concrete implementation
// (terminal prompt, chat surface, etc).
type HumanInputProvider interface {
	Ask(ctx context.Context, question string) (string, error)
}

// HumanInputTool pauses the run and asks the operator a question, used when
// the agent is blocked on information only a human has (credentials,
// disambiguation between two plausible targets, consent for a risky action).
type HumanInputTool struct {
	Provider HumanInputProvider
}

func (t *HumanInputTool) Name() string        { return "human_input_tool" }
func (t *HumanInputTool) Description() string { return "Ask the human operator a question and wait for their reply." }

func (t *HumanInputTool) Parameters() ParameterSchema {
	return ParameterSchema{
		Type: "object",
		Properties: map[string]PropertySchema{
			"question": {Type: "string", Description: "The question to ask"},
		},
		Required: []string{"question"},
	}
}

func (t *HumanInputTool) Invoke(ctx context.Context, args map[string]any) Envelope {
	if t.Provider == nil {
		return Fail("human input provider not configured")
	}
	question := strings.TrimSpace(stringParam(args, "question"))
	if question == "" {
		return Fail("question parameter is required")
	}
	answer, err := t.Provider.Ask(ctx, question)
	if err != nil {
		return FailErr(err)
	}
	return Ok(map[string]any{"answer": answer})
}

// ValidatorTool asks the model client to judge whether a task's observed
// outcome satisfies its stated goal, used by MultiStep and ReAct to decide
// whether to retry/replan before reporting success.
type ValidatorTool struct {
	Client model.ModelClient
}

type validatorVerdict struct {
	IsComplete  bool     `json:"isComplete"`
	Reasoning   string   `json:"reasoning"`
	Suggestions []string `json:"suggestions"`
}

var validatorSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"isComplete": map[string]any{"type": "boolean"},
		"reasoning":  map[string]any{"type": "string"},
		"suggestions": map[string]any{
			"type":  "array",
			"items": map[string]any{"type": "string"},
		},
	},
	"required": []string{"isComplete", "reasoning"},
}

func (t *ValidatorTool) Name() string        { return "validator_tool" }
func (t *ValidatorTool) Description() string { return "Validate whether the original task is complete." }

func (t *ValidatorTool) Parameters() ParameterSchema {
	return ParameterSchema{
		Type: "object",
		Properties: map[string]PropertySchema{
			"task":    {Type: "string", Description: "The original task goal"},
			"outcome": {Type: "string", Description: "What was actually observed"},
		},
		Required: []string{"task", "outcome"},
	}
}

func (t *ValidatorTool) Invoke(ctx context.Context, args map[string]any) Envelope {
	if t.Client == nil {
		return Fail("model client not configured")
	}
	task := strings.TrimSpace(stringParam(args, "task"))
	outcome := strings.TrimSpace(stringParam(args, "outcome"))
	if task == "" || outcome == "" {
		return Fail("task and outcome parameters are required")
	}
	prompt := fmt.Sprintf("Original task: %s\nObserved outcome: %s\nIs the task complete?", task, outcome)
	raw, err := t.Client.WithStructuredOutput(validatorSchema).Invoke(ctx, prompt)
	if err != nil {
		return FailErr(err)
	}
	var verdict validatorVerdict
	if err := json.Unmarshal([]byte(raw), &verdict); err != nil {
		return Fail(fmt.Sprintf("model returned unparseable verdict: %v", err))
	}
	return Ok(map[string]any{
		"isComplete":  verdict.IsComplete,
		"reasoning":   verdict.Reasoning,
		"suggestions": verdict.Suggestions,
	})
}

// ClassificationTool decides, before the first model call, whether an
// incoming task is trivial enough for SimpleTask handling and whether it is
// a follow-up to the previous task in the same MessageLog (spec §4.4). It
// never chooses between MultiStep and ReAct; that split is a config-level
// switch, not a per-task decision.
type ClassificationTool struct {
	Client model.ModelClient
}

type classificationVerdict struct {
	IsSimpleTask   bool `json:"is_simple_task"`
	IsFollowupTask bool `json:"is_followup_task"`
}

var classificationSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"is_simple_task":   map[string]any{"type": "boolean"},
		"is_followup_task": map[string]any{"type": "boolean"},
	},
	"required": []string{"is_simple_task", "is_followup_task"},
}

func (t *ClassificationTool) Name() string { return "classification_tool" }
func (t *ClassificationTool) Description() string {
	return "Classify a task as simple vs complex and as a follow-up vs a new task."
}

func (t *ClassificationTool) Parameters() ParameterSchema {
	return ParameterSchema{
		Type: "object",
		Properties: map[string]PropertySchema{
			"goal": {Type: "string", Description: "The user's goal"},
		},
		Required: []string{"goal"},
	}
}

func (t *ClassificationTool) Invoke(ctx context.Context, args map[string]any) Envelope {
	if t.Client == nil {
		return Fail("model client not configured")
	}
	goal := strings.TrimSpace(stringParam(args, "goal"))
	if goal == "" {
		return Fail("goal parameter is required")
	}
	raw, err := t.Client.WithStructuredOutput(classificationSchema).Invoke(ctx, goal)
	if err != nil {
		return FailErr(err)
	}
	var verdict classificationVerdict
	if err := json.Unmarshal([]byte(raw), &verdict); err != nil {
		return Fail(fmt.Sprintf("model returned unparseable classification: %v", err))
	}
	return Ok(map[string]any{
		"is_simple_task":   verdict.IsSimpleTask,
		"is_followup_task": verdict.IsFollowupTask,
	})
}

// PlannerTool asks the model to break a goal into an ordered list of steps,
// materialised into a Plan (and, by the caller, into a TodoList).
type PlannerTool struct {
	Client model.ModelClient
}

var plannerSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"steps": map[string]any{
			"type": "array",
			"items": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"action":    map[string]any{"type": "string"},
					"reasoning": map[string]any{"type": "string"},
				},
				"required": []string{"action"},
			},
		},
	},
	"required": []string{"steps"},
}

func (t *PlannerTool) Name() string        { return "planner_tool" }
func (t *PlannerTool) Description() string { return "Draft an ordered plan of steps for a goal." }

func (t *PlannerTool) Parameters() ParameterSchema {
	return ParameterSchema{
		Type: "object",
		Properties: map[string]PropertySchema{
			"goal": {Type: "string", Description: "The goal to plan for"},
		},
		Required: []string{"goal"},
	}
}

func (t *PlannerTool) Invoke(ctx context.Context, args map[string]any) Envelope {
	if t.Client == nil {
		return Fail("model client not configured")
	}
	goal := strings.TrimSpace(stringParam(args, "goal"))
	if goal == "" {
		return Fail("goal parameter is required")
	}
	raw, err := t.Client.WithStructuredOutput(plannerSchema).Invoke(ctx, goal)
	if err != nil {
		return FailErr(err)
	}
	var plan planning.Plan
	if err := json.Unmarshal([]byte(raw), &plan); err != nil {
		return Fail(fmt.Sprintf("model returned unparseable plan: %v", err))
	}
	if len(plan.Steps) == 0 {
		return Fail("model returned an empty plan")
	}
	list := plan.ToTodoList()
	return Ok(map[string]any{"plan": plan.Steps, "todo_list": list.Markdown()})
}

// TodoManagerTool mutates the run's shared TodoList: replacing it wholesale
// (the atomic `set` materialisation used by the planner and the inner
// execution loop), marking an item done in place, or reporting its current
// markdown state.
type TodoManagerTool struct {
	mu   sync.Mutex
	List *todolist.TodoList
}

func (t *TodoManagerTool) Name() string { return "todo_manager_tool" }
func (t *TodoManagerTool) Description() string {
	return "Replace, mark done, or view the current todo list."
}

func (t *TodoManagerTool) Parameters() ParameterSchema {
	return ParameterSchema{
		Type: "object",
		Properties: map[string]PropertySchema{
			"operation": {Type: "string", Description: "set, mark_done, or view", Enum: []string{"set", "mark_done", "view"}},
			"markdown":  {Type: "string", Description: "Full replacement markdown checklist, for operation=set"},
			"index":     {Type: "integer", Description: "Zero-based item index, for operation=mark_done"},
		},
		Required: []string{"operation"},
	}
}

func (t *TodoManagerTool) Invoke(ctx context.Context, args map[string]any) Envelope {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.List == nil {
		t.List = todolist.New(nil)
	}
	switch strings.TrimSpace(stringParam(args, "operation")) {
	case "set":
		markdown := stringParam(args, "markdown")
		t.List = todolist.Parse(markdown)
		return Ok(map[string]any{"todo_list": t.List.Markdown(), "complete": t.List.Complete()})
	case "mark_done":
		idx := intParam(args, "index", -1)
		if !t.List.MarkDone(idx) {
			return Fail(fmt.Sprintf("no todo item at index %d", idx))
		}
		return Ok(map[string]any{"todo_list": t.List.Markdown(), "complete": t.List.Complete()})
	case "view":
		return Ok(map[string]any{"todo_list": t.List.Markdown(), "complete": t.List.Complete()})
	default:
		return Fail("operation must be set, mark_done, or view")
	}
}

// Snapshot returns the tool's current list, used by the orchestration core
// to seed MessageLog.SetTodoList without a further tool round-trip.
func (t *TodoManagerTool) Snapshot() *todolist.TodoList {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.List
}

// WebSearchProvider performs a web search and returns result snippets.
type WebSearchProvider interface {
	Search(ctx context.Context, query string) ([]SearchResult, error)
}

// SearchResult is a single web search hit.
type SearchResult struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

// SearchTool performs a web search, used to find a starting URL before any
// browser session exists.
type SearchTool struct {
	Provider WebSearchProvider
}

func (t *SearchTool) Name() string        { return "search_tool" }
func (t *SearchTool) Description() string { return "Search the web for a starting point." }

func (t *SearchTool) Parameters() ParameterSchema {
	return ParameterSchema{
		Type: "object",
		Properties: map[string]PropertySchema{
			"query": {Type: "string", Description: "Search query"},
		},
		Required: []string{"query"},
	}
}

func (t *SearchTool) Invoke(ctx context.Context, args map[string]any) Envelope {
	if t.Provider == nil {
		return Fail("search provider not configured")
	}
	query := strings.TrimSpace(stringParam(args, "query"))
	if query == "" {
		return Fail("query parameter is required")
	}
	results, err := t.Provider.Search(ctx, query)
	if err != nil {
		return FailErr(err)
	}
	return Ok(map[string]any{"results": results, "count": len(results)})
}

// ResultTool composes the final user-facing summary of a completed run
// (spec §4.11), asking the model to turn the task plus its last observed
// outcome into a short, plain-language answer the orchestrator publishes as
// the closing assistant message.
type ResultTool struct {
	Client model.ModelClient
}

type resultSummary struct {
	Summary string `json:"summary"`
}

var resultSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"summary": map[string]any{"type": "string"},
	},
	"required": []string{"summary"},
}

func (t *ResultTool) Name() string        { return "result_tool" }
func (t *ResultTool) Description() string { return "Compose the final user-facing summary of a completed task." }

func (t *ResultTool) Parameters() ParameterSchema {
	return ParameterSchema{
		Type: "object",
		Properties: map[string]PropertySchema{
			"task":    {Type: "string", Description: "The original task goal"},
			"outcome": {Type: "string", Description: "The last observed outcome or done_tool answer"},
		},
		Required: []string{"task", "outcome"},
	}
}

func (t *ResultTool) Invoke(ctx context.Context, args map[string]any) Envelope {
	task := strings.TrimSpace(stringParam(args, "task"))
	outcome := strings.TrimSpace(stringParam(args, "outcome"))
	if task == "" {
		return Fail("task parameter is required")
	}
	if outcome == "" {
		outcome = "(no final observation recorded)"
	}
	if t.Client == nil {
		// No model configured: fall back to the raw outcome rather than fail
		// the whole run over a cosmetic summarisation step.
		return Ok(map[string]any{"summary": outcome})
	}
	prompt := fmt.Sprintf("Task: %s\nOutcome: %s\nWrite a short, plain-language summary of what was accomplished.", task, outcome)
	raw, err := t.Client.WithStructuredOutput(resultSchema).Invoke(ctx, prompt)
	if err != nil {
		return Ok(map[string]any{"summary": outcome})
	}
	var res resultSummary
	if err := json.Unmarshal([]byte(raw), &res); err != nil || strings.TrimSpace(res.Summary) == "" {
		return Ok(map[string]any{"summary": outcome})
	}
	return Ok(map[string]any{"summary": res.Summary})
}
