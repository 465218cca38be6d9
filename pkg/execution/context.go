// Package execution implements the orchestration core: the ExecutionContext
// every turn and strategy shares, the LLM turn driver, the tool-call
// processor, the classifier wrapper, and the SimpleTask / MultiStep / ReAct
// strategies (spec §3-§4).
package execution

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/odvcencio/wayfarer/pkg/browser"
	"github.com/odvcencio/wayfarer/pkg/config"
	"github.com/odvcencio/wayfarer/pkg/conversation"
	"github.com/odvcencio/wayfarer/pkg/humaninput"
	"github.com/odvcencio/wayfarer/pkg/loopdetect"
	"github.com/odvcencio/wayfarer/pkg/logging"
	"github.com/odvcencio/wayfarer/pkg/model"
	"github.com/odvcencio/wayfarer/pkg/coordination/pubsub"
	"github.com/odvcencio/wayfarer/pkg/narrator"
	"github.com/odvcencio/wayfarer/pkg/telemetry"
	"github.com/odvcencio/wayfarer/pkg/tool"
)

// ExecutionContext is the shared, single-owner state for one user task (spec
// §3): the cancellation signal, the cached LLM client, the browser handle,
// the MessageLog, the tool registry, and the human-input request/response
// state the humaninput.Gate polls. A single in-flight task per
// ExecutionContext is assumed; serialising tasks is the caller's
// responsibility.
type ExecutionContext struct {
	Task string

	Client  model.ModelClient
	Browser *browser.Manager
	Log     *conversation.MessageLog
	Tools   *tool.Registry
	Config  *config.Config

	Narrator     *narrator.Narrator
	Metrics      *telemetry.Metrics
	Logger       *logging.Logger
	LoopDetector *loopdetect.Detector
	HumanGate    *humaninput.Gate

	// DefaultSessionID names the browser session treated as "the current
	// tab" for glow start/stop, since a single-session run has no tab
	// enumeration to choose from.
	DefaultSessionID string

	cancel context.CancelFunc
	ctx    context.Context

	mu             sync.Mutex
	humanPending   map[string]bool
	humanResolved  map[string]narrator.HumanInputAction
	activeGlowTabs map[string]bool
	subscriptions  []pubsub.Subscription
}

// New constructs an ExecutionContext for one task. parent becomes the
// context every suspension point in the run derives from; cancelling parent
// (or calling the returned ExecutionContext.Cancel) stops the run at its
// next checked suspension point (spec §5).
func New(parent context.Context, task string, client model.ModelClient, browserMgr *browser.Manager, tools *tool.Registry, cfg *config.Config, n *narrator.Narrator, metrics *telemetry.Metrics, logger *logging.Logger) *ExecutionContext {
	if cfg == nil {
		cfg = config.Default()
	}
	ctx, cancel := context.WithCancel(parent)
	ec := &ExecutionContext{
		Task:           task,
		Client:         client,
		Browser:        browserMgr,
		Log:            conversation.New(),
		Tools:          tools,
		Config:         cfg,
		Narrator:       n,
		Metrics:        metrics,
		Logger:         logger,
		LoopDetector:   loopdetect.New(cfg.LoopLookback, cfg.LoopThreshold),
		ctx:            ctx,
		cancel:         cancel,
		humanPending:   make(map[string]bool),
		humanResolved:  make(map[string]narrator.HumanInputAction),
		activeGlowTabs: make(map[string]bool),
	}
	ec.HumanGate = humaninput.New(n, nil, cfg.HumanInputTimeout, cfg.HumanInputCheckInterval)
	return ec
}

// Context returns the per-task context every suspension point derives from.
func (ec *ExecutionContext) Context() context.Context { return ec.ctx }

// Cancel stops the run at its next checked suspension point.
func (ec *ExecutionContext) Cancel() {
	if ec != nil && ec.cancel != nil {
		ec.cancel()
	}
}

// Cancelled reports whether the run's context has already been cancelled.
func (ec *ExecutionContext) Cancelled() bool {
	return ec != nil && ec.ctx.Err() != nil
}

// RequestHumanInput registers requestID as awaiting a response, used by the
// HumanInputProvider bound to this context before it calls Wait on HumanGate.
func (ec *ExecutionContext) RequestHumanInput(requestID string) {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	ec.humanPending[requestID] = true
}

// ResolveHumanInput records an operator's decision for requestID. Called by
// whatever surface collects the human's answer (chat reply, UI button); the
// humaninput.Gate polling this context observes it on its next tick.
func (ec *ExecutionContext) ResolveHumanInput(requestID string, action narrator.HumanInputAction) {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	if !ec.humanPending[requestID] {
		return
	}
	ec.humanResolved[requestID] = action
	if ec.Narrator != nil {
		ec.Narrator.HumanInputResponse(ec.ctx, requestID, action)
	}
}

// PollHumanInput implements humaninput.ResponsePoller.
func (ec *ExecutionContext) PollHumanInput(requestID string) (narrator.HumanInputAction, bool) {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	action, ok := ec.humanResolved[requestID]
	return action, ok
}

func (ec *ExecutionContext) clearHumanInput(requestID string) {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	delete(ec.humanPending, requestID)
	delete(ec.humanResolved, requestID)
}

// Ask implements tool.HumanInputProvider by running the full human-input
// gate (spec §4.10) inline: publish the request, wait for a polled
// resolution or timeout, and translate the outcome into the tool's return
// value or error.
func (ec *ExecutionContext) Ask(ctx context.Context, question string) (string, error) {
	requestID := uuid.NewString()
	ec.RequestHumanInput(requestID)
	defer ec.clearHumanInput(requestID)

	outcome, err := ec.HumanGate.Wait(ctx, ec, requestID, question)
	switch outcome {
	case humaninput.OutcomeDone:
		return "Human has completed the requested manual action", nil
	case humaninput.OutcomeTimeout:
		return "", fmt.Errorf("human input timed out: %w", err)
	default:
		return "", fmt.Errorf("human input aborted: %w", err)
	}
}

// glowEnabled reports whether toolName triggers the page-glow visual
// per Config.GlowEnabledTools (spec §4.3 step 2).
func (ec *ExecutionContext) glowEnabled(toolName string) bool {
	for _, name := range ec.Config.GlowEnabledTools {
		if name == toolName {
			return true
		}
	}
	return false
}

// StartGlow starts the glow visual on tabID, idempotently (spec §5: "check
// then start").
func (ec *ExecutionContext) StartGlow(tabID, toolName string) {
	ec.mu.Lock()
	already := ec.activeGlowTabs[tabID]
	ec.activeGlowTabs[tabID] = true
	ec.mu.Unlock()
	if already {
		return
	}
	if ec.Narrator != nil {
		ec.Narrator.Glow(ec.ctx, tabID, true, toolName)
	}
}

// StopGlow stops the glow visual on tabID.
func (ec *ExecutionContext) StopGlow(tabID string) {
	ec.mu.Lock()
	active := ec.activeGlowTabs[tabID]
	delete(ec.activeGlowTabs, tabID)
	ec.mu.Unlock()
	if !active {
		return
	}
	if ec.Narrator != nil {
		ec.Narrator.Glow(ec.ctx, tabID, false, "")
	}
}

// StopAllGlow stops every tab with an active glow effect, called during
// finalisation cleanup (spec §4.11) regardless of how the run ended.
func (ec *ExecutionContext) StopAllGlow() {
	ec.mu.Lock()
	tabs := make([]string, 0, len(ec.activeGlowTabs))
	for tabID := range ec.activeGlowTabs {
		tabs = append(tabs, tabID)
	}
	ec.activeGlowTabs = make(map[string]bool)
	ec.mu.Unlock()
	for _, tabID := range tabs {
		if ec.Narrator != nil {
			ec.Narrator.Glow(ec.ctx, tabID, false, "")
		}
	}
}

// CurrentTabID returns the session id glow and tool-target resolution treat
// as "the current tab" for this single-session run.
func (ec *ExecutionContext) CurrentTabID() string {
	if ec.DefaultSessionID != "" {
		return ec.DefaultSessionID
	}
	return "default"
}

// TodoSnapshot returns the current TodoList markdown, or "" if the
// todo_manager_tool hasn't been invoked yet this run.
func (ec *ExecutionContext) TodoSnapshot() string {
	return ec.Log.TodoListContent()
}

// TrackSubscription registers sub to be detached during finalisation
// cleanup (spec §4.11: "detach narrator subscriptions"). Anything this run
// subscribes to the narrator's bus for (e.g. a human-input push listener)
// should be registered here rather than left dangling past the task.
func (ec *ExecutionContext) TrackSubscription(sub pubsub.Subscription) {
	if sub == nil {
		return
	}
	ec.mu.Lock()
	ec.subscriptions = append(ec.subscriptions, sub)
	ec.mu.Unlock()
}

// DetachSubscriptions unsubscribes everything registered via
// TrackSubscription, called unconditionally during finalisation regardless
// of how the run ended (spec §4.11).
func (ec *ExecutionContext) DetachSubscriptions() {
	ec.mu.Lock()
	subs := ec.subscriptions
	ec.subscriptions = nil
	ec.mu.Unlock()
	for _, sub := range subs {
		if ec.Narrator != nil {
			_ = ec.Narrator.Unsubscribe(ec.ctx, sub)
		}
	}
}
