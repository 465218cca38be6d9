package execution

// Classification is the result of the classifier wrapper (spec §4.4).
type Classification struct {
	IsSimpleTask   bool
	IsFollowupTask bool
}

// Classify invokes classification_tool and re-initialises the MessageLog
// with systemPrompt when the task is not a follow-up. Any tool failure
// defaults to {false, false} — complex, non-followup — per spec §4.4.
func (ec *ExecutionContext) Classify(systemPrompt string) Classification {
	env := ec.Tools.ExecuteWithContext(ec.ctx, "classification_tool", map[string]any{"goal": ec.Task})
	classification := Classification{}
	if env.OK {
		if out, ok := env.Output.(map[string]any); ok {
			classification.IsSimpleTask, _ = out["is_simple_task"].(bool)
			classification.IsFollowupTask, _ = out["is_followup_task"].(bool)
		}
	}

	if !classification.IsFollowupTask {
		ec.Log.Clear()
		ec.Log.AddSystem(systemPrompt)
		ec.Log.AddHuman(ec.Task)
	} else {
		ec.Narrator.Narration(ec.ctx, "Following up on previous task…")
		ec.Log.AddHuman(ec.Task)
	}
	return classification
}
