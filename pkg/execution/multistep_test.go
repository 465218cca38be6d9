package execution

import (
	"testing"

	"github.com/odvcencio/wayfarer/pkg/model"
	"github.com/odvcencio/wayfarer/pkg/planning"
	"github.com/odvcencio/wayfarer/pkg/tool"
)

// planner_tool is deliberately left unregistered here: if RunMultiStep's
// predefined-plan path ever called it on the first outer iteration, the
// planStep call would fail with "tool not found" and the test would error.
func TestRunMultiStep_PredefinedPlanSkipsPlanner(t *testing.T) {
	tools := tool.NewEmptyRegistry()
	tools.Register(&tool.DoneTool{})
	tools.Register(&tool.TodoManagerTool{})

	fake := &fakeModelClient{
		structured: func(schema map[string]any, prompt string) (string, error) {
			if schemaHasProperty(schema, "isComplete") {
				return `{"isComplete":true,"reasoning":"done"}`, nil
			}
			return "{}", nil
		},
		turns: [][]model.StreamEvent{
			{
				toolCallEvent(0, "call-1", "done_tool", `{"answer":"all steps completed"}`),
				doneEvent(),
			},
		},
	}
	tools.Register(&tool.ValidatorTool{Client: fake})

	plan := &planning.Plan{Steps: []planning.Step{{Action: "navigate somewhere", Reasoning: "start"}}}

	ec := newTestContext("do a multi-step thing", fake, tools)
	ec.Log.AddSystem("system prompt")
	ec.Log.AddHuman("do a multi-step thing")

	result, err := ec.RunMultiStep(plan)
	if err != nil {
		t.Fatalf("RunMultiStep returned error: %v", err)
	}
	if result.Content != "all steps completed" {
		t.Fatalf("expected done_tool answer to surface as content, got %q", result.Content)
	}
}

func TestRunMultiStep_ValidationFailureRetriesOuterLoop(t *testing.T) {
	tools := tool.NewEmptyRegistry()
	tools.Register(&tool.DoneTool{})
	tools.Register(&tool.TodoManagerTool{})

	attempt := 0
	fake := &fakeModelClient{
		structured: func(schema map[string]any, prompt string) (string, error) {
			switch {
			case schemaHasProperty(schema, "steps"):
				return `{"steps":[{"action":"do it","reasoning":"because"}]}`, nil
			case schemaHasProperty(schema, "isComplete"):
				attempt++
				if attempt == 1 {
					return `{"isComplete":false,"reasoning":"not yet","suggestions":["try again"]}`, nil
				}
				return `{"isComplete":true,"reasoning":"now it is done"}`, nil
			}
			return "{}", nil
		},
		turns: [][]model.StreamEvent{
			{toolCallEvent(0, "call-1", "done_tool", `{"answer":"first pass"}`), doneEvent()},
			{toolCallEvent(0, "call-2", "done_tool", `{"answer":"second pass"}`), doneEvent()},
		},
	}
	tools.Register(&tool.ValidatorTool{Client: fake})
	tools.Register(&tool.PlannerTool{Client: fake})

	ec := newTestContext("do a multi-step thing", fake, tools)
	ec.Log.AddSystem("system prompt")
	ec.Log.AddHuman("do a multi-step thing")

	result, err := ec.RunMultiStep(nil)
	if err != nil {
		t.Fatalf("RunMultiStep returned error: %v", err)
	}
	if result.Content != "second pass" {
		t.Fatalf("expected the retried attempt's answer, got %q", result.Content)
	}
	if attempt != 2 {
		t.Fatalf("expected validator to run twice, ran %d times", attempt)
	}
}
