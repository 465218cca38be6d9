package tool

import (
	"fmt"
	"runtime/debug"
)

// PanicRecovery converts panics into failed envelopes and records the stack
// trace in ctx.Metadata rather than letting a single misbehaving tool bring
// down the orchestration loop.
func PanicRecovery() Middleware {
	return func(next Executor) Executor {
		return func(ctx *ExecutionContext) (env Envelope) {
			defer func() {
				if r := recover(); r != nil {
					if ctx != nil {
						if ctx.Metadata == nil {
							ctx.Metadata = map[string]any{}
						}
						ctx.Metadata["panic_stack"] = string(debug.Stack())
						ctx.Metadata["panic_value"] = fmt.Sprintf("%v", r)
					}
					name := "tool"
					if ctx != nil && ctx.ToolName != "" {
						name = fmt.Sprintf("tool %s", ctx.ToolName)
					}
					env = Fail(fmt.Sprintf("%s panicked: %v", name, r))
				}
			}()
			return next(ctx)
		}
	}
}
