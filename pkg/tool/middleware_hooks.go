package tool

import (
	"strings"
)

// Hooks runs registered pre/post hooks around tool execution.
func Hooks(registry *HookRegistry) Middleware {
	return func(next Executor) Executor {
		return func(ctx *ExecutionContext) Envelope {
			if registry == nil || ctx == nil {
				return next(ctx)
			}

			for _, hook := range registry.PreHooks(ctx.ToolName) {
				result := hook(ctx)
				if result.ModifiedParams != nil {
					ctx.Params = result.ModifiedParams
				}
				if result.Abort {
					reason := strings.TrimSpace(result.AbortReason)
					if reason == "" {
						reason = "aborted by hook"
					}
					if result.AbortResult != nil {
						return *result.AbortResult
					}
					return Fail(reason)
				}
			}

			res := next(ctx)

			hooks := registry.PostHooks(ctx.ToolName)
			for i := len(hooks) - 1; i >= 0; i-- {
				res = hooks[i](ctx, res)
			}

			return res
		}
	}
}
