package tool

import (
	"testing"

	"go.uber.org/mock/gomock"
)

func TestNewEmptyRegistry(t *testing.T) {
	r := NewEmptyRegistry()
	if r == nil {
		t.Fatal("expected non-nil registry")
	}
	if r.Count() != 0 {
		t.Errorf("expected empty registry, got %d tools", r.Count())
	}
}

func TestNewRegistry(t *testing.T) {
	r := NewRegistry()
	if r == nil {
		t.Fatal("expected non-nil registry")
	}
	// Should have built-in tools registered
	if r.Count() == 0 {
		t.Error("expected built-in tools to be registered")
	}
	if _, ok := r.Get("done_tool"); !ok {
		t.Error("expected done_tool to be registered")
	}
}

func TestNewRegistry_WithBuiltinFilter(t *testing.T) {
	// Filter to only include done_tool
	filter := func(tool Tool) bool {
		return tool.Name() == "done_tool"
	}

	r := NewRegistry(WithBuiltinFilter(filter))

	if r.Count() != 1 {
		t.Fatalf("expected exactly one tool, got %d", r.Count())
	}

	// Should have done_tool
	_, ok := r.Get("done_tool")
	if !ok {
		t.Error("expected done_tool tool to be registered")
	}

	// Should NOT have require_planning_tool
	_, ok = r.Get("require_planning_tool")
	if ok {
		t.Error("expected require_planning_tool to NOT be registered")
	}
}

func TestRegisterDomainTools(t *testing.T) {
	r := NewEmptyRegistry()
	RegisterDomainTools(r, Deps{})

	for _, name := range []string{
		"navigation_tool", "interaction_tool", "scroll_tool", "tab_operations_tool",
		"screenshot_tool", "refresh_browser_state_tool", "extract_tool",
		"classification_tool", "planner_tool", "validator_tool", "result_tool",
		"human_input_tool", "search_tool",
	} {
		if _, ok := r.Get(name); !ok {
			t.Errorf("expected %s to be registered", name)
		}
	}
}

func TestRegistry_Register_Get(t *testing.T) {
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	r := NewEmptyRegistry()
	mockTool := NewMockTool(ctrl)
	mockTool.EXPECT().Name().Return("test_tool").AnyTimes()

	r.Register(mockTool)

	tool, ok := r.Get("test_tool")
	if !ok {
		t.Fatal("expected to find registered tool")
	}
	if tool.Name() != "test_tool" {
		t.Errorf("expected tool name 'test_tool', got %s", tool.Name())
	}
}

func TestRegistry_Get_NotFound(t *testing.T) {
	r := NewEmptyRegistry()

	_, ok := r.Get("nonexistent")
	if ok {
		t.Error("expected not to find nonexistent tool")
	}
}

func TestRegistry_List(t *testing.T) {
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	r := NewEmptyRegistry()

	mockTool1 := NewMockTool(ctrl)
	mockTool1.EXPECT().Name().Return("tool1").AnyTimes()
	mockTool2 := NewMockTool(ctrl)
	mockTool2.EXPECT().Name().Return("tool2").AnyTimes()

	r.Register(mockTool1)
	r.Register(mockTool2)

	tools := r.List()
	if len(tools) != 2 {
		t.Errorf("expected 2 tools, got %d", len(tools))
	}
}

func TestRegistry_Count(t *testing.T) {
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	r := NewEmptyRegistry()
	if r.Count() != 0 {
		t.Errorf("expected count 0, got %d", r.Count())
	}

	mockTool := NewMockTool(ctrl)
	mockTool.EXPECT().Name().Return("test").AnyTimes()
	r.Register(mockTool)

	if r.Count() != 1 {
		t.Errorf("expected count 1, got %d", r.Count())
	}
}

func TestRegistry_Execute(t *testing.T) {
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	r := NewEmptyRegistry()
	mockTool := NewMockTool(ctrl)
	mockTool.EXPECT().Name().Return("test_tool").AnyTimes()
	mockTool.EXPECT().Invoke(gomock.Any(), gomock.Any()).Return(Ok(map[string]any{"output": "test result"}))

	r.Register(mockTool)

	result := r.Execute("test_tool", map[string]any{"param": "value"})
	if !result.OK {
		t.Error("expected successful result")
	}
	out, ok := result.Output.(map[string]any)
	if !ok || out["output"] != "test result" {
		t.Errorf("unexpected result output: %v", result.Output)
	}
}

func TestRegistry_Execute_NotFound(t *testing.T) {
	r := NewEmptyRegistry()

	result := r.Execute("nonexistent", nil)
	if result.OK {
		t.Error("expected failure for nonexistent tool")
	}
}

func TestRegistry_Execute_EmptyName(t *testing.T) {
	r := NewEmptyRegistry()

	result := r.Execute("", nil)
	if result.OK {
		t.Error("expected failure for empty tool name")
	}
	if result.Output != "tool name cannot be empty" {
		t.Errorf("unexpected output: %v", result.Output)
	}
}

func TestRegistry_ToOpenAIFunctions(t *testing.T) {
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	r := NewEmptyRegistry()
	mockTool := NewMockTool(ctrl)
	mockTool.EXPECT().Name().Return("test_tool").AnyTimes()
	mockTool.EXPECT().Description().Return("Test tool").AnyTimes()
	mockTool.EXPECT().Parameters().Return(ParameterSchema{
		Type: "object",
	}).AnyTimes()

	r.Register(mockTool)

	functions := r.ToOpenAIFunctions()
	if len(functions) != 1 {
		t.Errorf("expected 1 function, got %d", len(functions))
	}
}

func TestRegistry_BuiltinsIncludeExpectedTools(t *testing.T) {
	r := NewRegistry()

	expectedTools := []string{
		"done_tool",
		"require_planning_tool",
		"todo_manager_tool",
	}

	for _, name := range expectedTools {
		if _, ok := r.Get(name); !ok {
			t.Errorf("expected built-in tool %q to be registered", name)
		}
	}
}
