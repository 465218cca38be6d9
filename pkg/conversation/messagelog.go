// Package conversation implements the MessageLog: the ordered, typed
// conversation history the orchestrator builds each LLM turn's prompt from.
package conversation

import (
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/odvcencio/wayfarer/pkg/model"
)

// Role enumerates every message role the log can carry.
type Role string

const (
	RoleSystem       Role = "system"
	RoleHuman        Role = "human"
	RoleAI           Role = "ai"
	RoleTool         Role = "tool"
	RoleBrowserState Role = "browser_state"
	RoleTodoList     Role = "todo_list"
	RoleReminder     Role = "reminder"
)

// Message is one entry in the log.
type Message struct {
	ID         string
	Role       Role
	Content    any // string, or []model.ContentPart for multimodal human messages
	Timestamp  time.Time
	Tokens     int
	ToolCalls  []model.ToolCall // set on RoleAI messages that invoked tools
	ToolCallID string           // set on RoleTool messages
	Name       string           // tool name, set on RoleTool messages
}

// GetContentAsString extracts string content from a Message's Content field.
func GetContentAsString(content any) string {
	switch v := content.(type) {
	case string:
		return v
	case []model.ContentPart:
		return renderContentParts(v)
	default:
		return ""
	}
}

func renderContentParts(parts []model.ContentPart) string {
	var texts []string
	for _, part := range parts {
		if strings.TrimSpace(part.Type) == "text" && part.Text != "" {
			texts = append(texts, part.Text)
		}
	}
	return strings.Join(texts, "\n")
}

// MessageLog is the ordered history owned exclusively by an ExecutionContext.
// It is append-only apart from the documented in-place edits: singleton
// replacement (SetBrowserState, SetTodoList), ReplaceToolResult,
// RemoveAllSystem, Clear and ClampToBudget.
type MessageLog struct {
	Messages   []Message
	TokenCount int
}

// New creates an empty log.
func New() *MessageLog {
	return &MessageLog{Messages: []Message{}}
}

func newID() string { return ulid.Make().String() }

func (l *MessageLog) append(msg Message) {
	if msg.ID == "" {
		msg.ID = newID()
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}
	if msg.Tokens == 0 {
		msg.Tokens = CountTokens(GetContentAsString(msg.Content))
	}
	l.Messages = append(l.Messages, msg)
	l.TokenCount += msg.Tokens
}

// AddSystem appends a system message.
func (l *MessageLog) AddSystem(content string) {
	l.append(Message{Role: RoleSystem, Content: content})
}

// AddHuman appends a human (user task) message.
func (l *MessageLog) AddHuman(content string) {
	l.append(Message{Role: RoleHuman, Content: content})
}

// AddAI appends an assistant message, preserving its tool-call list
// verbatim. Per the invariant in spec §3, callers must never reduce an AI
// message with tool calls to its text content alone.
func (l *MessageLog) AddAI(content string, toolCalls []model.ToolCall) {
	l.append(Message{Role: RoleAI, Content: content, ToolCalls: toolCalls})
}

// AddToolResult appends a tool-response message keyed by the originating
// call's id. toolCallID must reference a ToolCalls[*].ID on an earlier AI
// message (spec §3 invariant).
func (l *MessageLog) AddToolResult(toolCallID, toolName, envelopeJSON string) {
	l.append(Message{Role: RoleTool, Content: envelopeJSON, ToolCallID: toolCallID, Name: toolName})
}

// AddReminder appends a reminder message (e.g. a validator's suggestions
// fed back into the next planning iteration).
func (l *MessageLog) AddReminder(content string) {
	l.append(Message{Role: RoleReminder, Content: content})
}

// SetBrowserState replaces the single browser_state message with a fresh
// snapshot, keeping the routed-out full state separate from the compact
// tool-message history (spec §4.3).
func (l *MessageLog) SetBrowserState(content string) {
	l.replaceSingleton(RoleBrowserState, content)
}

// SetTodoList replaces the singleton todo_list message atomically (spec §3,
// §4.3, §8: "exactly one todo_list message exists in the log").
func (l *MessageLog) SetTodoList(markdown string) {
	l.replaceSingleton(RoleTodoList, markdown)
}

func (l *MessageLog) replaceSingleton(role Role, content string) {
	for i := range l.Messages {
		if l.Messages[i].Role == role {
			l.TokenCount -= l.Messages[i].Tokens
			tokens := CountTokens(content)
			l.Messages[i].Content = content
			l.Messages[i].Tokens = tokens
			l.Messages[i].Timestamp = time.Now()
			l.TokenCount += tokens
			return
		}
	}
	l.append(Message{Role: role, Content: content})
}

// ReplaceToolResult overwrites the content of the most recent tool message
// whose ToolCallID matches toolCallID, used to swap a verbose envelope for a
// compact summary after routing its full payload elsewhere (spec §4.3 step
// 4, refresh_browser_state_tool). Reports whether a matching message was
// found.
func (l *MessageLog) ReplaceToolResult(toolCallID, content string) bool {
	for i := len(l.Messages) - 1; i >= 0; i-- {
		if l.Messages[i].Role == RoleTool && l.Messages[i].ToolCallID == toolCallID {
			l.TokenCount -= l.Messages[i].Tokens
			tokens := CountTokens(content)
			l.Messages[i].Content = content
			l.Messages[i].Tokens = tokens
			l.TokenCount += tokens
			return true
		}
	}
	return false
}

// TodoListContent returns the current todo_list message content, or "" if
// none exists yet.
func (l *MessageLog) TodoListContent() string {
	for _, m := range l.Messages {
		if m.Role == RoleTodoList {
			return GetContentAsString(m.Content)
		}
	}
	return ""
}

// RemoveAllSystem drops every system message (used when re-initialising the
// log with a fresh system prompt, spec §4.4).
func (l *MessageLog) RemoveAllSystem() {
	kept := l.Messages[:0]
	tokens := 0
	for _, m := range l.Messages {
		if m.Role == RoleSystem {
			continue
		}
		kept = append(kept, m)
		tokens += m.Tokens
	}
	l.Messages = kept
	l.TokenCount = tokens
}

// Clear empties the log entirely.
func (l *MessageLog) Clear() {
	l.Messages = nil
	l.TokenCount = 0
}

// GetLastN returns the last n messages (or all of them if n >= len).
func (l *MessageLog) GetLastN(n int) []Message {
	if n >= len(l.Messages) {
		return l.Messages
	}
	return l.Messages[len(l.Messages)-n:]
}

// LastAIMessages returns the text content of the last n messages with
// Role == RoleAI, in chronological order. Used by the loop detector.
func (l *MessageLog) LastAIMessages(n int) []string {
	out := make([]string, 0, n)
	for i := len(l.Messages) - 1; i >= 0 && len(out) < n; i-- {
		if l.Messages[i].Role == RoleAI {
			out = append([]string{GetContentAsString(l.Messages[i].Content)}, out...)
		}
	}
	return out
}

// ToModelMessages converts the log into the wire-level messages a
// model.ModelClient expects. Roles not recognised by providers (browser_state,
// todo_list, reminder) are rendered as system-role context so providers that
// only understand {system,user,assistant,tool} still see their content.
func (l *MessageLog) ToModelMessages() []model.Message {
	out := make([]model.Message, 0, len(l.Messages))
	for _, m := range l.Messages {
		mm := model.Message{
			ToolCalls:  m.ToolCalls,
			ToolCallID: m.ToolCallID,
			Name:       m.Name,
		}
		switch m.Role {
		case RoleSystem, RoleBrowserState, RoleTodoList, RoleReminder:
			mm.Role = "system"
			mm.Content = l.renderOutOfBandContent(m)
		case RoleHuman:
			mm.Role = "user"
			mm.Content = m.Content
		case RoleAI:
			mm.Role = "assistant"
			mm.Content = m.Content
		case RoleTool:
			mm.Role = "tool"
			mm.Content = m.Content
		default:
			mm.Role = string(m.Role)
			mm.Content = m.Content
		}
		out = append(out, mm)
	}
	return out
}

func (l *MessageLog) renderOutOfBandContent(m Message) string {
	text := GetContentAsString(m.Content)
	switch m.Role {
	case RoleBrowserState:
		return fmt.Sprintf("Current browser state:\n%s", text)
	case RoleTodoList:
		return fmt.Sprintf("Current plan / TODO list:\n%s", text)
	case RoleReminder:
		return fmt.Sprintf("Reminder: %s", text)
	default:
		return text
	}
}

// ValidateToolInterleaving checks the MessageLog §3/§8 invariant: every AI
// message with N tool calls must be immediately followed by exactly N tool
// messages whose ToolCallID matches, in order, the call ids on that AI
// message. A message of any other role among those N is an error.
func (l *MessageLog) ValidateToolInterleaving() error {
	i := 0
	for i < len(l.Messages) {
		m := l.Messages[i]
		if m.Role != RoleAI || len(m.ToolCalls) == 0 {
			i++
			continue
		}
		expected := m.ToolCalls
		j := i + 1
		for k, tc := range expected {
			if j+k >= len(l.Messages) {
				return fmt.Errorf("message %d: missing tool response for call %s", i, tc.ID)
			}
			got := l.Messages[j+k]
			if got.Role != RoleTool {
				return fmt.Errorf("message %d: expected tool message for call %s, got role %s", i, tc.ID, got.Role)
			}
			if got.ToolCallID != tc.ID {
				return fmt.Errorf("message %d: tool response order mismatch: expected %s, got %s", i, tc.ID, got.ToolCallID)
			}
		}
		i = j + len(expected)
	}
	return nil
}
