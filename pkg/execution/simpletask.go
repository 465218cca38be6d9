package execution

import (
	"github.com/odvcencio/wayfarer/pkg/errors"
)

// RunSimpleTask executes the SimpleTask strategy (spec §4.5): a single flat
// loop of turn → process, bounded by Config.MaxSimpleSteps, with no planning
// or validation stage. Intended for tasks the classifier marked simple.
func (ec *ExecutionContext) RunSimpleTask() (*TurnResult, error) {
	budget := ec.Config.MaxSimpleSteps
	if budget <= 0 {
		budget = 10
	}

	for step := 0; step < budget; step++ {
		if ec.Cancelled() {
			return &TurnResult{Cancelled: true}, nil
		}
		if ec.LoopDetector.Detect(ec.Log.LastAIMessages(ec.Config.LoopLookback)) {
			if ec.Metrics != nil {
				ec.Metrics.ObserveLoopDetected()
			}
			// Simple's loop response is an early abort, not a fatal error
			// (spec §4.9, §7) — the same silent termination as cancellation.
			return &TurnResult{Aborted: true}, nil
		}

		turn, err := ec.RunTurn(nil)
		if err != nil {
			return nil, err
		}
		if turn.Cancelled {
			return turn, nil
		}
		if len(turn.ToolCalls) == 0 {
			ec.Log.AddAI(turn.Content, nil)
			return turn, nil
		}

		result := ec.ProcessToolCalls(turn.Content, turn.ToolCalls)
		if result.Cancelled {
			return &TurnResult{Cancelled: true}, nil
		}
		if result.Fatal != nil {
			return nil, result.Fatal
		}
		if result.DoneCalled {
			if result.Answer != "" {
				turn.Content = result.Answer
			}
			return turn, nil
		}
	}

	return nil, errors.New(errors.ErrCodeStepBudgetExceeded, "simple task exceeded its step budget").WithRetryable(false)
}
