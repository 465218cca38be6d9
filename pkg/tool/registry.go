package tool

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/odvcencio/wayfarer/pkg/tool/external"
)

// ToolCallIDParam allows callers to attach a stable tool call ID for telemetry.
const ToolCallIDParam = "__wayfarer_tool_call_id"

// Registry manages all available tools and the middleware chain they run
// through. Every call flows through the same Chain(...) regardless of which
// tool is invoked, so cross-cutting concerns (retries, timeouts, telemetry,
// hooks) live here instead of in each tool.
type Registry struct {
	mu          sync.RWMutex
	tools       map[string]Tool
	middlewares []Middleware
	executor    Executor
	hooks       *HookRegistry
	sessionID   string
}

type registryOptions struct {
	builtinFilter func(Tool) bool
}

// RegistryOption configures registry construction.
type RegistryOption func(*registryOptions)

// NewEmptyRegistry creates a new empty tool registry without any built-in tools.
func NewEmptyRegistry() *Registry {
	r := &Registry{
		tools: make(map[string]Tool),
		hooks: &HookRegistry{},
	}
	r.rebuildExecutor()
	return r
}

// NewRegistry creates a new tool registry with the built-in browser agent tools.
func NewRegistry(opts ...RegistryOption) *Registry {
	cfg := registryOptions{}
	for _, opt := range opts {
		opt(&cfg)
	}
	r := &Registry{
		tools: make(map[string]Tool),
		hooks: &HookRegistry{},
	}

	r.registerBuiltins(cfg)
	r.rebuildExecutor()

	return r
}

// WithBuiltinFilter allows callers to filter built-in tools during registry construction.
func WithBuiltinFilter(filter func(Tool) bool) RegistryOption {
	return func(opts *registryOptions) {
		opts.builtinFilter = filter
	}
}

func (r *Registry) registerBuiltins(cfg registryOptions) {
	register := func(t Tool) {
		if t == nil {
			return
		}
		if cfg.builtinFilter == nil || cfg.builtinFilter(t) {
			r.Register(t)
		}
	}

	for _, t := range BuiltinTools() {
		register(t)
	}
}

// SetWorkDir configures a base working directory for tools that support it
// (e.g. a tool persisting downloads or screenshots to disk).
func (r *Registry) SetWorkDir(workDir string) {
	if r == nil {
		return
	}
	workDir = strings.TrimSpace(workDir)
	if workDir == "" {
		return
	}
	if abs, err := filepath.Abs(workDir); err == nil {
		workDir = abs
	}
	workDir = filepath.Clean(workDir)
	for _, t := range r.snapshotTools() {
		if setter, ok := t.(interface{ SetWorkDir(string) }); ok {
			setter.SetWorkDir(workDir)
		}
	}
}

// SetMaxOutputBytes configures a global max output size for tools that support it.
func (r *Registry) SetMaxOutputBytes(max int) {
	if r == nil {
		return
	}
	for _, t := range r.snapshotTools() {
		if setter, ok := t.(interface{ SetMaxOutputBytes(int) }); ok {
			setter.SetMaxOutputBytes(max)
		}
	}
}

// UpdateSession updates the session identifier attached to every execution
// context, used for telemetry correlation and activity narration.
func (r *Registry) UpdateSession(sessionID string) {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessionID = strings.TrimSpace(sessionID)
}

// Register registers a tool.
func (r *Registry) Register(t Tool) {
	if r == nil || t == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[t.Name()] = t
}

// Remove unregisters a tool by name.
func (r *Registry) Remove(name string) {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tools, name)
}

// Filter removes tools that do not match the predicate.
func (r *Registry) Filter(keep func(Tool) bool) {
	if r == nil || keep == nil {
		return
	}
	tools := r.snapshotToolMap()
	var remove []string
	for name, t := range tools {
		if !keep(t) {
			remove = append(remove, name)
		}
	}
	if len(remove) == 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, name := range remove {
		delete(r.tools, name)
	}
}

// Get returns a tool by name.
func (r *Registry) Get(name string) (Tool, bool) {
	if r == nil {
		return nil, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// List returns all registered tools.
func (r *Registry) List() []Tool {
	return r.snapshotTools()
}

// Descriptions returns a deterministic, newline-joined "name: description"
// listing of every registered tool, sorted by name, used to fill the system
// prompt's tool-surface section (spec §4.1 getDescriptions()).
func (r *Registry) Descriptions() string {
	tools := r.snapshotTools()
	sort.Slice(tools, func(i, j int) bool { return tools[i].Name() < tools[j].Name() })
	lines := make([]string, 0, len(tools))
	for _, t := range tools {
		lines = append(lines, fmt.Sprintf("%s: %s", t.Name(), t.Description()))
	}
	return strings.Join(lines, "\n")
}

// Hooks returns the registry hook manager.
func (r *Registry) Hooks() *HookRegistry {
	if r == nil {
		return nil
	}
	return r.hooks
}

// Use registers a middleware on the registry. Middlewares run in the order
// they are added, wrapping from the outside in, so the first one registered
// sees the call first and the result last.
func (r *Registry) Use(mw Middleware) {
	if r == nil || mw == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.middlewares = append(r.middlewares, mw)
	r.rebuildExecutorLocked()
}

// Execute executes a tool by name using a background context.
func (r *Registry) Execute(name string, params map[string]any) Envelope {
	return r.ExecuteWithContext(context.Background(), name, params)
}

// ExecuteWithContext executes a tool by name using the provided context.
func (r *Registry) ExecuteWithContext(ctx context.Context, name string, params map[string]any) Envelope {
	if strings.TrimSpace(name) == "" {
		return Fail("tool name cannot be empty")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	t, ok := r.Get(name)
	if !ok {
		return Fail(fmt.Sprintf("tool not found: %s", name))
	}
	r.mu.RLock()
	sessionID := r.sessionID
	r.mu.RUnlock()
	execCtx := &ExecutionContext{
		Context:   ctx,
		ToolName:  name,
		Tool:      t,
		SessionID: sessionID,
		CallID:    toolCallIDFromParams(params),
		Params:    params,
		StartTime: time.Now(),
		Attempt:   1,
		Metadata:  make(map[string]any),
	}
	exec := r.executorForCall()
	if exec == nil {
		return Fail("tool executor not initialized")
	}
	return exec(execCtx)
}

func (r *Registry) executorForCall() Executor {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	exec := r.executor
	r.mu.RUnlock()
	if exec != nil {
		return exec
	}
	r.rebuildExecutor()
	r.mu.RLock()
	exec = r.executor
	r.mu.RUnlock()
	return exec
}

func (r *Registry) rebuildExecutor() {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rebuildExecutorLocked()
}

func (r *Registry) rebuildExecutorLocked() {
	base := r.baseExecutor()
	middlewares := make([]Middleware, 0, len(r.middlewares)+1)
	middlewares = append(middlewares, Hooks(r.hooks))
	middlewares = append(middlewares, r.middlewares...)
	r.executor = Chain(middlewares...)(base)
}

func (r *Registry) baseExecutor() Executor {
	return func(ctx *ExecutionContext) Envelope {
		if ctx == nil {
			return Fail("execution context required")
		}
		name := strings.TrimSpace(ctx.ToolName)
		if name == "" {
			return Fail("tool name cannot be empty")
		}
		t := ctx.Tool
		if t == nil {
			var ok bool
			t, ok = r.Get(name)
			if !ok {
				return Fail(fmt.Sprintf("tool not found: %s", name))
			}
			ctx.Tool = t
		}

		params := ctx.Params
		if params == nil {
			params = map[string]any{}
			ctx.Params = params
		}
		if strings.TrimSpace(ctx.CallID) == "" {
			ctx.CallID = toolCallIDFromParams(params)
		}
		if ctx.StartTime.IsZero() {
			ctx.StartTime = time.Now()
		}

		execCtx := ctx.Context
		if execCtx == nil {
			execCtx = context.Background()
		}
		if err := execCtx.Err(); err != nil {
			return FailErr(err)
		}
		return t.Invoke(execCtx, params)
	}
}

// ToOpenAIFunctions converts all tools to OpenAI function calling format.
func (r *Registry) ToOpenAIFunctions() []map[string]any {
	tools := r.snapshotTools()
	functions := make([]map[string]any, 0, len(tools))
	for _, t := range tools {
		functions = append(functions, ToOpenAIFunction(t))
	}
	return functions
}

// ToOpenAIFunctionsFiltered converts only allowed tools to OpenAI function format.
// If allowed is empty, all tools are returned.
func (r *Registry) ToOpenAIFunctionsFiltered(allowed []string) []map[string]any {
	if len(allowed) == 0 {
		return r.ToOpenAIFunctions()
	}
	tools := r.snapshotTools()
	functions := make([]map[string]any, 0, len(allowed))
	for _, t := range tools {
		if IsToolAllowed(t.Name(), allowed) {
			functions = append(functions, ToOpenAIFunction(t))
		}
	}
	return functions
}

// Count returns the number of registered tools.
func (r *Registry) Count() int {
	if r == nil {
		return 0
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}

func (r *Registry) snapshotTools() []Tool {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	tools := make([]Tool, 0, len(r.tools))
	for _, t := range r.tools {
		tools = append(tools, t)
	}
	return tools
}

func (r *Registry) snapshotToolMap() map[string]Tool {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	tools := make(map[string]Tool, len(r.tools))
	for name, t := range r.tools {
		tools[name] = t
	}
	return tools
}

// LoadExternal loads external plugin tools (subprocess executables
// described by a tool.yaml manifest) from a directory, letting an operator
// add domain tools (a site-specific scraper, a captcha solver) without a
// core code change, the same extensibility seam RegisterTools gives MCP
// servers.
func (r *Registry) LoadExternal(pluginDir string) error {
	tools, err := external.DiscoverPlugins(pluginDir)
	if err != nil {
		return fmt.Errorf("failed to discover plugins in %s: %w", pluginDir, err)
	}
	for _, t := range tools {
		r.Register(&externalToolAdapter{inner: t})
	}
	return nil
}

// LoadExternalFromMultipleDirs loads external plugins from multiple directories.
func (r *Registry) LoadExternalFromMultipleDirs(dirs []string) error {
	tools, err := external.DiscoverFromMultipleDirs(dirs)
	if err != nil {
		return fmt.Errorf("failed to discover plugins: %w", err)
	}
	for _, t := range tools {
		r.Register(&externalToolAdapter{inner: t})
	}
	return nil
}

// LoadDefaultPlugins loads plugins from standard locations: a user-level
// plugin directory and two project-relative ones, so a deployment can drop
// a manifest in either place without passing -plugins-dir explicitly.
func (r *Registry) LoadDefaultPlugins() error {
	dirs := []string{}

	if homeDir, err := os.UserHomeDir(); err == nil {
		dirs = append(dirs, filepath.Join(homeDir, ".wayfarer", "plugins"))
	}
	if cwd, err := os.Getwd(); err == nil {
		dirs = append(dirs, filepath.Join(cwd, ".wayfarer", "plugins"))
		dirs = append(dirs, filepath.Join(cwd, "plugins"))
	}

	return r.LoadExternalFromMultipleDirs(dirs)
}

func toolCallIDFromParams(params map[string]any) string {
	if params != nil {
		if raw, ok := params[ToolCallIDParam]; ok {
			switch v := raw.(type) {
			case string:
				if strings.TrimSpace(v) != "" {
					return strings.TrimSpace(v)
				}
			case fmt.Stringer:
				if val := strings.TrimSpace(v.String()); val != "" {
					return val
				}
			default:
				if val := strings.TrimSpace(fmt.Sprintf("%v", raw)); val != "" {
					return val
				}
			}
		}
	}
	return ulid.Make().String()
}
