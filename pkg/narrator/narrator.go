// Package narrator publishes the stable, typed UI event contract over a
// pubsub.PubSub: message events (thinking/assistant/narration/error/system),
// human-input request/response, plan-generation lifecycle updates, and the
// page-glow start/stop signal. The core only emits these; it never assumes
// a subscriber exists.
package narrator

import (
	"context"

	"github.com/oklog/ulid/v2"

	"github.com/odvcencio/wayfarer/pkg/coordination/pubsub"
	"github.com/odvcencio/wayfarer/pkg/encoding/toon"
)

// Topic names. Dot-segmented so pubsub's wildcard matching ("task.*") works.
const (
	TopicMessage           = "task.message"
	TopicHumanInputRequest = "task.human_input.request"
	TopicHumanInputReply   = "task.human_input.response"
	TopicPlanUpdate        = "task.plan.update"
	TopicGlow              = "task.glow"
)

// MessageRole enumerates the roles a narrated message event may carry.
type MessageRole string

const (
	RoleThinking  MessageRole = "thinking"
	RoleAssistant MessageRole = "assistant"
	RoleNarration MessageRole = "narration"
	RoleError     MessageRole = "error"
	RoleSystem    MessageRole = "system"
)

// MessageEvent is published under TopicMessage. MsgID is stable across
// repeated publishes of the same streaming message so the UI can apply
// last-write-wins semantics.
type MessageEvent struct {
	MsgID   string      `json:"msgId"`
	Role    MessageRole `json:"role"`
	Content string      `json:"content"`
}

// HumanInputRequest is published under TopicHumanInputRequest.
type HumanInputRequest struct {
	RequestID string `json:"requestId"`
	Prompt    string `json:"prompt"`
}

// HumanInputAction is the action a human-input response carries.
type HumanInputAction string

const (
	HumanInputDone  HumanInputAction = "done"
	HumanInputAbort HumanInputAction = "abort"
)

// HumanInputResponse is published under TopicHumanInputReply, correlated to
// a prior request by RequestID.
type HumanInputResponse struct {
	RequestID string           `json:"requestId"`
	Action    HumanInputAction `json:"action"`
}

// PlanUpdatePhase enumerates the plan-generation lifecycle.
type PlanUpdatePhase string

const (
	PlanQueued  PlanUpdatePhase = "queued"
	PlanStarted PlanUpdatePhase = "started"
	PlanThink   PlanUpdatePhase = "thinking"
	PlanDone    PlanUpdatePhase = "done"
	PlanError   PlanUpdatePhase = "error"
)

// PlanUpdate is published under TopicPlanUpdate.
type PlanUpdate struct {
	Phase PlanUpdatePhase `json:"phase"`
	Plan  any             `json:"plan,omitempty"`
	Error string          `json:"error,omitempty"`
}

// GlowEvent signals a purely visual page highlight start/stop for a tab.
type GlowEvent struct {
	TabID   string `json:"tabId"`
	Active  bool   `json:"active"`
	ToolUse string `json:"tool,omitempty"`
}

// Narrator wraps a pubsub.PubSub with the typed publish helpers the core
// uses. It never blocks: publish failures (no subscribers, full buffers)
// are swallowed, matching the "fire-and-forget" requirement.
type Narrator struct {
	bus pubsub.PubSub
}

// New wraps bus.
func New(bus pubsub.PubSub) *Narrator {
	return &Narrator{bus: bus}
}

// NewMsgID allocates a new streaming-message id.
func NewMsgID() string {
	return ulid.Make().String()
}

func (n *Narrator) publish(ctx context.Context, topic string, payload any) {
	if n == nil || n.bus == nil {
		return
	}
	_ = n.bus.Publish(ctx, topic, payload)
}

// Message publishes a message event.
func (n *Narrator) Message(ctx context.Context, msgID string, role MessageRole, content string) {
	n.publish(ctx, TopicMessage, MessageEvent{MsgID: msgID, Role: role, Content: content})
}

// Thinking publishes a thinking-role message, allocating msgID if empty.
func (n *Narrator) Thinking(ctx context.Context, msgID, content string) string {
	if msgID == "" {
		msgID = NewMsgID()
	}
	n.Message(ctx, msgID, RoleThinking, content)
	return msgID
}

// Assistant publishes the final user-visible assistant message. Content is
// sanitized of any leaked TOON-encoded tool result fragments first: a model
// occasionally echoes part of a compact tool envelope back verbatim instead
// of summarizing it in prose.
func (n *Narrator) Assistant(ctx context.Context, content string) {
	n.Message(ctx, NewMsgID(), RoleAssistant, toon.SanitizeOutput(content))
}

// Narration publishes an informational narration line (e.g. follow-up notice).
func (n *Narrator) Narration(ctx context.Context, content string) {
	n.Message(ctx, NewMsgID(), RoleNarration, content)
}

// Error publishes an error-role message. Tools call this to self-surface
// their own failures; the orchestrator must not duplicate it.
func (n *Narrator) Error(ctx context.Context, content string) {
	n.Message(ctx, NewMsgID(), RoleError, content)
}

// System publishes a system-role message.
func (n *Narrator) System(ctx context.Context, content string) {
	n.Message(ctx, NewMsgID(), RoleSystem, content)
}

// HumanInputRequest publishes a human-input request.
func (n *Narrator) HumanInputRequest(ctx context.Context, requestID, prompt string) {
	n.publish(ctx, TopicHumanInputRequest, HumanInputRequest{RequestID: requestID, Prompt: prompt})
}

// HumanInputResponse publishes a human-input response.
func (n *Narrator) HumanInputResponse(ctx context.Context, requestID string, action HumanInputAction) {
	n.publish(ctx, TopicHumanInputReply, HumanInputResponse{RequestID: requestID, Action: action})
}

// PlanUpdate publishes a plan-generation lifecycle update.
func (n *Narrator) PlanUpdate(ctx context.Context, phase PlanUpdatePhase, plan any, errMsg string) {
	n.publish(ctx, TopicPlanUpdate, PlanUpdate{Phase: phase, Plan: plan, Error: errMsg})
}

// Glow publishes a page-glow start/stop event.
func (n *Narrator) Glow(ctx context.Context, tabID string, active bool, tool string) {
	n.publish(ctx, TopicGlow, GlowEvent{TabID: tabID, Active: active, ToolUse: tool})
}

// Subscribe registers handler for topic on the underlying bus, returning a
// Subscription the caller must pass to Unsubscribe during cleanup.
func (n *Narrator) Subscribe(ctx context.Context, topic string, handler pubsub.MessageHandler) (pubsub.Subscription, error) {
	if n == nil || n.bus == nil {
		return nil, nil
	}
	return n.bus.Subscribe(ctx, topic, handler)
}

// Unsubscribe detaches a subscription registered via Subscribe. Safe to call
// with a nil subscription (the no-subscriber case).
func (n *Narrator) Unsubscribe(ctx context.Context, sub pubsub.Subscription) error {
	if n == nil || n.bus == nil || sub == nil {
		return nil
	}
	return n.bus.Unsubscribe(ctx, sub)
}
