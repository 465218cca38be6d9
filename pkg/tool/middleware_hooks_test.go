package tool

import (
	"strings"
	"testing"
)

func TestHooksMiddlewareOrder(t *testing.T) {
	registry := &HookRegistry{}
	var order []string

	registry.RegisterPreHook("*", func(ctx *ExecutionContext) HookResult {
		order = append(order, "pre-global")
		return HookResult{}
	})
	registry.RegisterPreHook("navigation_tool", func(ctx *ExecutionContext) HookResult {
		order = append(order, "pre-tool")
		return HookResult{}
	})
	registry.RegisterPostHook("*", func(ctx *ExecutionContext, result Envelope) Envelope {
		order = append(order, "post-global")
		return result
	})
	registry.RegisterPostHook("navigation_tool", func(ctx *ExecutionContext, result Envelope) Envelope {
		order = append(order, "post-tool")
		return result
	})

	exec := Hooks(registry)(func(ctx *ExecutionContext) Envelope {
		order = append(order, "exec")
		return Ok(true)
	})

	env := exec(&ExecutionContext{ToolName: "navigation_tool"})
	if !env.OK {
		t.Fatalf("unexpected failure envelope: %#v", env)
	}

	expected := []string{"pre-global", "pre-tool", "exec", "post-tool", "post-global"}
	if !sameStringSlice(order, expected) {
		t.Fatalf("order = %#v, want %#v", order, expected)
	}
}

func TestHooksMiddlewareAbort(t *testing.T) {
	registry := &HookRegistry{}
	registry.RegisterPreHook("interaction_tool", func(ctx *ExecutionContext) HookResult {
		return HookResult{Abort: true, AbortReason: "blocked"}
	})

	called := false
	exec := Hooks(registry)(func(ctx *ExecutionContext) Envelope {
		called = true
		return Ok(true)
	})

	env := exec(&ExecutionContext{ToolName: "interaction_tool"})
	if called {
		t.Fatal("expected execution to be aborted")
	}
	if env.OK {
		t.Fatal("expected abort envelope to be a failure")
	}
	msg, _ := env.Output.(string)
	if !strings.Contains(msg, "blocked") {
		t.Fatalf("expected abort reason in output, got %v", env.Output)
	}
}

func TestHooksMiddlewareModifiedParams(t *testing.T) {
	registry := &HookRegistry{}
	registry.RegisterPreHook("extract_tool", func(ctx *ExecutionContext) HookResult {
		return HookResult{ModifiedParams: map[string]any{"url": "https://override.example.com"}}
	})

	exec := Hooks(registry)(func(ctx *ExecutionContext) Envelope {
		if ctx.Params["url"] != "https://override.example.com" {
			return Fail("params not updated")
		}
		return Ok(true)
	})

	env := exec(&ExecutionContext{ToolName: "extract_tool", Params: map[string]any{"url": "https://original.example.com"}})
	if !env.OK {
		t.Fatalf("expected success, got %#v", env)
	}
}
