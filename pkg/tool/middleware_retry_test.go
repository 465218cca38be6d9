package tool

import (
	"context"
	"strings"
	"testing"
	"time"
)

func TestRetryRetriesUntilSuccess(t *testing.T) {
	attempts := 0
	mw := Retry(RetryConfig{
		MaxAttempts:  3,
		InitialDelay: 1 * time.Millisecond,
		Multiplier:   1,
		Jitter:       0,
		RetryableFunc: func(env Envelope) bool {
			return true
		},
	})

	exec := mw(func(ctx *ExecutionContext) Envelope {
		attempts++
		if attempts < 3 {
			return Fail("temporary failure")
		}
		return Ok(true)
	})

	ctx := &ExecutionContext{Context: context.Background(), ToolName: "navigation_tool"}
	env := exec(ctx)
	if !env.OK {
		t.Fatalf("expected success envelope, got %#v", env)
	}
	if attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", attempts)
	}
	if ctx.Attempt != 3 {
		t.Errorf("expected ctx.Attempt=3, got %d", ctx.Attempt)
	}
}

func TestRetryStopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	mw := Retry(RetryConfig{
		MaxAttempts:  3,
		InitialDelay: 1 * time.Millisecond,
		Multiplier:   1,
		Jitter:       0,
	})
	exec := mw(func(ctx *ExecutionContext) Envelope {
		return Fail("timeout reaching page")
	})

	env := exec(&ExecutionContext{Context: ctx, ToolName: "navigation_tool"})
	if env.OK {
		t.Fatal("expected failure envelope")
	}
	msg, _ := env.Output.(string)
	if !strings.Contains(msg, "context canceled") {
		t.Fatalf("expected context cancellation in output, got %v", env.Output)
	}
}
