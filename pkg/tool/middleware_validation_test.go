package tool

import (
	"context"
	"testing"
)

func TestValidationMiddleware_AllowsValid(t *testing.T) {
	called := false
	mw := Validation(ValidationConfig{
		Rules: []ValidationRule{
			{Tool: "echo", Param: "url", Validate: ValidateNonEmpty()},
		},
	}, nil)

	exec := mw(func(ctx *ExecutionContext) Envelope {
		called = true
		return Ok("done")
	})

	env := exec(&ExecutionContext{
		Context:  context.Background(),
		ToolName: "echo",
		Params:   map[string]any{"url": "https://example.com"},
		Metadata: map[string]any{},
	})
	if !env.OK {
		t.Fatalf("expected success envelope, got %#v", env)
	}
	if !called {
		t.Fatal("expected base executor to be called")
	}
}

func TestValidationMiddleware_BlocksInvalid(t *testing.T) {
	called := false
	var gotTool, gotParam, gotMsg string
	mw := Validation(ValidationConfig{
		Rules: []ValidationRule{
			{Tool: "navigation_tool", Param: "url", Validate: ValidateNonEmpty()},
		},
	}, func(tool, param, msg string) {
		gotTool = tool
		gotParam = param
		gotMsg = msg
	})

	exec := mw(func(ctx *ExecutionContext) Envelope {
		called = true
		return Ok("done")
	})

	env := exec(&ExecutionContext{
		Context:  context.Background(),
		ToolName: "navigation_tool",
		Params:   map[string]any{"url": ""},
		Metadata: map[string]any{},
	})
	if env.OK {
		t.Fatal("expected failure envelope")
	}
	if called {
		t.Fatal("expected base executor to be skipped")
	}
	if gotTool != "navigation_tool" || gotParam != "url" || gotMsg == "" {
		t.Fatalf("unexpected callback values: tool=%q param=%q msg=%q", gotTool, gotParam, gotMsg)
	}
}

func TestValidateNonEmpty(t *testing.T) {
	validator := ValidateNonEmpty()
	if err := validator(""); err == nil {
		t.Fatal("expected error for empty string")
	}
	if err := validator("ok"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := validator([]string{}); err == nil {
		t.Fatal("expected error for empty slice")
	}
}

func TestValidateURL(t *testing.T) {
	validator := ValidateURL()

	tests := []struct {
		name    string
		value   any
		wantErr bool
	}{
		{name: "valid https", value: "https://example.com/path", wantErr: false},
		{name: "valid http", value: "http://example.com", wantErr: false},
		{name: "missing scheme", value: "example.com", wantErr: true},
		{name: "bad scheme", value: "javascript:alert(1)", wantErr: true},
		{name: "empty", value: "", wantErr: true},
		{name: "non-string", value: 42, wantErr: true},
	}

	for _, tt := range tests {
		err := validator(tt.value)
		if tt.wantErr && err == nil {
			t.Fatalf("%s: expected error", tt.name)
		}
		if !tt.wantErr && err != nil {
			t.Fatalf("%s: unexpected error: %v", tt.name, err)
		}
	}
}
