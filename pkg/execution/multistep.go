package execution

import (
	"fmt"
	"strings"

	"github.com/odvcencio/wayfarer/pkg/errors"
	"github.com/odvcencio/wayfarer/pkg/narrator"
	"github.com/odvcencio/wayfarer/pkg/planning"
	"github.com/odvcencio/wayfarer/pkg/todolist"
)

// RunMultiStep executes the MultiStep strategy (spec §4.6): an outer
// Plan→Materialise→Execute→Validate loop bounded by Config.MaxOuterSteps,
// with an inner turn loop bounded by Config.MaxInnerSteps. predefined, when
// non-nil, seeds the first outer iteration's plan directly, skipping the
// planner_tool call (spec §4.8, Classification-free Predefined Plans).
func (ec *ExecutionContext) RunMultiStep(predefined *planning.Plan) (*TurnResult, error) {
	outerBudget := ec.Config.MaxOuterSteps
	if outerBudget <= 0 {
		outerBudget = 100
	}
	innerBudget := ec.Config.MaxInnerSteps
	if innerBudget <= 0 {
		innerBudget = 30
	}

	var lastTurn *TurnResult

	for outer := 0; outer < outerBudget; outer++ {
		if ec.Cancelled() {
			return &TurnResult{Cancelled: true}, nil
		}
		if ec.Metrics != nil {
			ec.Metrics.ObserveCycle("multistep")
		}

		plan, err := ec.planStep(outer, predefined)
		if err != nil {
			return nil, err
		}

		list := plan.ToTodoList()
		ec.materialisePlan(list)

		replan, result, err := ec.executeInner(innerBudget)
		if err != nil {
			return nil, err
		}
		if result != nil {
			if result.Cancelled {
				return &TurnResult{Cancelled: true}, nil
			}
			lastTurn = result
		}
		if replan {
			continue
		}

		complete, reasoning, suggestions, err := ec.validate()
		if err != nil {
			return nil, err
		}
		if complete {
			if lastTurn == nil {
				lastTurn = &TurnResult{Content: reasoning}
			}
			return lastTurn, nil
		}
		ec.Log.AddReminder(formatValidationReminder(reasoning, suggestions))
	}

	return nil, errors.New(errors.ErrCodeStepBudgetExceeded, "multi-step task exceeded its outer step budget").WithRetryable(false)
}

func (ec *ExecutionContext) planStep(outer int, predefined *planning.Plan) (*planning.Plan, error) {
	if outer == 0 && predefined != nil {
		return predefined, nil
	}

	env := ec.Tools.ExecuteWithContext(ec.ctx, "planner_tool", map[string]any{"goal": ec.Task})
	if !env.OK {
		return nil, errors.New(errors.ErrCodeLLMProtocolViolation, fmt.Sprintf("planner_tool failed: %v", env.Output)).WithRetryable(true)
	}
	out, ok := env.Output.(map[string]any)
	if !ok {
		return nil, errors.New(errors.ErrCodeLLMProtocolViolation, "planner_tool returned an unexpected shape").WithRetryable(true)
	}
	rawSteps, _ := out["plan"].([]planning.Step)
	if rawSteps == nil {
		// tolerate a JSON round-trip producing []any of map[string]any
		if anySteps, ok := out["plan"].([]any); ok {
			for _, s := range anySteps {
				if m, ok := s.(map[string]any); ok {
					action, _ := m["action"].(string)
					reasoning, _ := m["reasoning"].(string)
					rawSteps = append(rawSteps, planning.Step{Action: action, Reasoning: reasoning})
				}
			}
		}
	}
	if len(rawSteps) == 0 {
		return nil, errors.New(errors.ErrCodeLLMProtocolViolation, "planner_tool produced an empty plan").WithRetryable(true)
	}
	return &planning.Plan{Steps: rawSteps}, nil
}

func (ec *ExecutionContext) materialisePlan(list *todolist.TodoList) {
	markdown := list.Markdown()
	if ec.Narrator != nil {
		ec.Narrator.PlanUpdate(ec.ctx, narrator.PlanStarted, nil, "")
	}
	env := ec.Tools.ExecuteWithContext(ec.ctx, "todo_manager_tool", map[string]any{"operation": "set", "markdown": markdown})
	if env.OK {
		ec.applyTodoManagerSet(map[string]any{"operation": "set"}, env)
	} else {
		ec.Log.SetTodoList(markdown)
	}
	if ec.Narrator != nil {
		ec.Narrator.PlanUpdate(ec.ctx, narrator.PlanDone, markdown, "")
	}
}

// executeInner runs the inner turn loop until the todo list is complete, a
// strategy-ending tool is called, or the inner budget is exhausted. replan
// is true when require_planning_tool fired and the outer loop should draft a
// fresh plan without validating the current one.
func (ec *ExecutionContext) executeInner(innerBudget int) (replan bool, last *TurnResult, err error) {
	for i := 0; i < innerBudget; i++ {
		if ec.Cancelled() {
			return false, &TurnResult{Cancelled: true}, nil
		}
		if ec.LoopDetector.Detect(ec.Log.LastAIMessages(ec.Config.LoopLookback)) {
			if ec.Metrics != nil {
				ec.Metrics.ObserveLoopDetected()
			}
			return false, nil, errors.New(errors.ErrCodeLoopDetected, "Agent is stuck, please restart your task.").WithRetryable(false)
		}

		turn, terr := ec.RunTurn(nil)
		if terr != nil {
			return false, nil, terr
		}
		if turn.Cancelled {
			return false, turn, nil
		}
		last = turn
		if len(turn.ToolCalls) == 0 {
			ec.Log.AddAI(turn.Content, nil)
			if ec.currentTodoComplete() {
				return false, last, nil
			}
			continue
		}

		result := ec.ProcessToolCalls(turn.Content, turn.ToolCalls)
		if result.Cancelled {
			return false, &TurnResult{Cancelled: true}, nil
		}
		if result.Fatal != nil {
			return false, nil, result.Fatal
		}
		if result.RequirePlanning {
			return true, last, nil
		}
		if result.DoneCalled {
			if result.Answer != "" && last != nil {
				last.Content = result.Answer
			}
			return false, last, nil
		}
		if ec.currentTodoComplete() {
			return false, last, nil
		}
	}
	return false, last, nil
}

func (ec *ExecutionContext) currentTodoComplete() bool {
	markdown := ec.Log.TodoListContent()
	if strings.TrimSpace(markdown) == "" {
		return false
	}
	return todolist.Parse(markdown).Complete()
}

func (ec *ExecutionContext) validate() (complete bool, reasoning string, suggestions []string, err error) {
	outcome := strings.Join(ec.Log.LastAIMessages(1), "\n")
	if outcome == "" {
		outcome = ec.TodoSnapshot()
	}
	env := ec.Tools.ExecuteWithContext(ec.ctx, "validator_tool", map[string]any{"task": ec.Task, "outcome": outcome})
	if !env.OK {
		return false, "", nil, errors.New(errors.ErrCodeValidatorFailed, fmt.Sprintf("validator_tool failed: %v", env.Output)).WithRetryable(true)
	}
	out, ok := env.Output.(map[string]any)
	if !ok {
		return false, "", nil, errors.New(errors.ErrCodeValidatorFailed, "validator_tool returned an unexpected shape").WithRetryable(true)
	}
	complete, _ = out["isComplete"].(bool)
	reasoning, _ = out["reasoning"].(string)
	if rawSuggestions, ok := out["suggestions"].([]string); ok {
		suggestions = rawSuggestions
	} else if anySuggestions, ok := out["suggestions"].([]any); ok {
		for _, s := range anySuggestions {
			if str, ok := s.(string); ok {
				suggestions = append(suggestions, str)
			}
		}
	}
	return complete, reasoning, suggestions, nil
}

func formatValidationReminder(reasoning string, suggestions []string) string {
	if len(suggestions) == 0 {
		return fmt.Sprintf("Validation failed: %s", reasoning)
	}
	return fmt.Sprintf("Validation failed: %s\nSuggestions:\n- %s", reasoning, strings.Join(suggestions, "\n- "))
}
