// Package agent implements the entry point of the orchestration engine
// (spec §2 "Agent orchestrator", §4.11 Finalisation): it builds the
// per-task ExecutionContext, classifies the task or accepts a predefined
// plan, routes to the chosen strategy, turns the outcome into a
// user-facing result or a reported error, and runs cleanup unconditionally.
package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/odvcencio/wayfarer/pkg/browser"
	"github.com/odvcencio/wayfarer/pkg/config"
	"github.com/odvcencio/wayfarer/pkg/errors"
	"github.com/odvcencio/wayfarer/pkg/execution"
	"github.com/odvcencio/wayfarer/pkg/logging"
	"github.com/odvcencio/wayfarer/pkg/model"
	"github.com/odvcencio/wayfarer/pkg/narrator"
	"github.com/odvcencio/wayfarer/pkg/planning"
	"github.com/odvcencio/wayfarer/pkg/telemetry"
	"github.com/odvcencio/wayfarer/pkg/tool"
)

// maxTaskLogChars bounds the truncated task string attached to an
// execution_error metric event (spec §4.11: "task (truncated)").
const maxTaskLogChars = 200

// Agent is the orchestration engine's entry point. One Agent is built once
// per process and drives any number of sequential tasks; a single
// in-flight task per Agent is assumed (spec §3), matching the single
// ExecutionContext it constructs per Run call.
type Agent struct {
	Client  model.ModelClient
	Browser *browser.Manager
	Tools   *tool.Registry
	Config  *config.Config
	Narrator *narrator.Narrator
	Metrics *telemetry.Metrics
	Logger  *logging.Logger

	// SystemPromptTemplate is formatted with the tool registry's
	// descriptions to build the system message every classified task's
	// MessageLog is (re)initialised with. A caller-supplied template lets
	// the product surface brand the agent; Default provides one.
	SystemPromptTemplate string
}

// DefaultSystemPromptTemplate is used when Agent.SystemPromptTemplate is
// empty. %s is replaced with the tool registry's descriptions.
const DefaultSystemPromptTemplate = `You are an autonomous browser agent. You accomplish the user's task by observing the page, reasoning, and invoking tools that act on a real browser. Call done_tool as soon as the task is complete, or require_planning_tool if it needs more than one step. Available tools:
%s`

// RunOptions configures one call to Run.
type RunOptions struct {
	// PredefinedPlan, when non-nil, skips the classifier and routes
	// directly into MultiStep with this plan seeding the first outer
	// iteration (spec §4.8). Only meaningful when Config.ExecutionMode is
	// config.ExecutionModePredefined.
	PredefinedPlan *planning.Plan

	// SessionID names the browser session this task's tools should treat
	// as the current tab, defaulting to "default".
	SessionID string
}

// Result is the outcome of a completed (non-cancelled) run.
type Result struct {
	Summary    string
	Classified execution.Classification
	Strategy   config.Strategy
}

// Run drives task to completion or a well-defined failure (spec §2 "Agent
// orchestrator"): initialise context, classify or accept a predefined plan,
// route to a strategy, finalise. Returns (nil, nil) on cancellation — a
// cancelled run is not an error at this boundary (spec §7).
func (a *Agent) Run(parent context.Context, task string, opts RunOptions) (*Result, error) {
	ec := execution.New(parent, task, a.Client, a.Browser, a.Tools, a.Config, a.Narrator, a.Metrics, a.Logger)
	if opts.SessionID != "" {
		ec.DefaultSessionID = opts.SessionID
	}
	a.bindHumanInput(ec)
	defer a.cleanup(ec)

	systemPrompt := a.systemPrompt()

	var classification execution.Classification
	var predefined *planning.Plan

	if a.Config.ExecutionMode == config.ExecutionModePredefined && opts.PredefinedPlan != nil {
		// Classification-free predefined plans (spec §4.8): skip the
		// classifier entirely, re-initialise history, and force MultiStep.
		ec.Log.Clear()
		ec.Log.AddSystem(systemPrompt)
		ec.Log.AddHuman(task)
		predefined = opts.PredefinedPlan
	} else {
		classification = ec.Classify(systemPrompt)
	}

	turn, runErr := a.route(ec, classification, predefined)
	return a.finalise(ec, task, classification, turn, runErr)
}

// route dispatches to SimpleTask when the classifier marked the task simple,
// otherwise to whichever complex-task strategy Config.Strategy names (spec
// §9's "expose this as a configuration switch" resolution), or to MultiStep
// unconditionally when a predefined plan was supplied.
func (a *Agent) route(ec *execution.ExecutionContext, classification execution.Classification, predefined *planning.Plan) (*execution.TurnResult, error) {
	if predefined != nil {
		return ec.RunMultiStep(predefined)
	}
	if classification.IsSimpleTask {
		return ec.RunSimpleTask()
	}
	switch a.Config.Strategy {
	case config.StrategyReAct:
		return ec.RunReact()
	default:
		return ec.RunMultiStep(nil)
	}
}

// finalise turns a strategy's outcome into a published result (spec
// §4.11): cancellation and loop-detector aborts are silent, human-input
// timeout/abort surfaces as a cancellation-like failure, everything else
// either produces a result_tool summary or reports an execution_error.
func (a *Agent) finalise(ec *execution.ExecutionContext, task string, classification execution.Classification, turn *execution.TurnResult, runErr error) (*Result, error) {
	if runErr != nil {
		if isCancellationLike(runErr) {
			return nil, nil
		}
		a.reportError(ec, task, runErr)
		return nil, runErr
	}
	if turn == nil {
		return nil, nil
	}
	if turn.Cancelled || turn.Aborted {
		// Silent at the orchestrator boundary, per spec §7.
		return nil, nil
	}

	outcome := lastOutcome(turn)
	env := ec.Tools.ExecuteWithContext(ec.Context(), "result_tool", map[string]any{"task": task, "outcome": outcome})
	summary := outcome
	if env.OK {
		if out, ok := env.Output.(map[string]any); ok {
			if s, ok := out["summary"].(string); ok && strings.TrimSpace(s) != "" {
				summary = s
			}
		}
	}
	if a.Narrator != nil {
		a.Narrator.Assistant(ec.Context(), summary)
	}
	return &Result{Summary: summary, Classified: classification, Strategy: a.Config.Strategy}, nil
}

// reportError publishes the closing error message and the execution_error
// metric event (spec §4.11) for a genuine (non-cancellation) failure.
func (a *Agent) reportError(ec *execution.ExecutionContext, task string, runErr error) {
	code := string(errors.GetCode(runErr))
	if code == "" {
		code = "UNKNOWN"
	}
	truncatedTask := task
	if len(truncatedTask) > maxTaskLogChars {
		truncatedTask = truncatedTask[:maxTaskLogChars] + "…"
	}
	if a.Metrics != nil {
		a.Metrics.ObserveExecutionError(code)
	}
	if a.Logger != nil {
		_ = a.Logger.Error(logging.CategoryExecution, "execution_error", runErr.Error(), map[string]any{
			"error":      runErr.Error(),
			"error_type": code,
			"task":       truncatedTask,
			"mode":       string(a.Config.ExecutionMode),
			"agent":      string(a.Config.Strategy),
		})
	}
	if a.Narrator != nil {
		a.Narrator.Error(ec.Context(), fmt.Sprintf("The task could not be completed: %s", runErr.Error()))
	}
}

// isCancellationLike reports whether err should be treated as a silent
// cancellation at the orchestrator boundary (spec §7: user cancellation is
// silent; human-input timeout/abort is "terminal, surfaced as
// cancellation-like failure").
func isCancellationLike(err error) bool {
	for _, code := range []errors.ErrorCode{errors.ErrCodeCancelled, errors.ErrCodeHumanInputTimeout, errors.ErrCodeHumanInputAborted} {
		if errors.IsCode(err, code) {
			return true
		}
	}
	return false
}

// lastOutcome extracts the text result_tool should summarise: the turn's
// content (typically the done_tool answer, already folded into Content by
// the strategies) or a placeholder when nothing was recorded.
func lastOutcome(turn *execution.TurnResult) string {
	if turn == nil || strings.TrimSpace(turn.Content) == "" {
		return "(no final observation recorded)"
	}
	return turn.Content
}

func (a *Agent) systemPrompt() string {
	template := a.SystemPromptTemplate
	if template == "" {
		template = DefaultSystemPromptTemplate
	}
	return fmt.Sprintf(template, a.Tools.Descriptions())
}

// cleanup runs unconditionally regardless of how the run ended (spec
// §4.11): detach any subscriptions the run registered and stop every
// active page-glow effect.
func (a *Agent) cleanup(ec *execution.ExecutionContext) {
	ec.DetachSubscriptions()
	ec.StopAllGlow()
}

// bindHumanInput rebinds the registry's human_input_tool to this run's
// ExecutionContext, so the tool's Provider is the async gate (spec §4.10:
// narrator-published request, polled resolution, 10-minute timeout) rather
// than whatever provider the tool was constructed with at process startup.
// A single in-flight task per Agent is assumed (spec §3), so this rebind
// race-free: the previous run's cleanup has already returned by the time
// the next Run call reaches here.
func (a *Agent) bindHumanInput(ec *execution.ExecutionContext) {
	if a.Tools == nil {
		return
	}
	t, ok := a.Tools.Get("human_input_tool")
	if !ok {
		return
	}
	if hit, ok := t.(*tool.HumanInputTool); ok {
		hit.Provider = ec
	}
}
