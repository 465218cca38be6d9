package conversation

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

var (
	// tokenEncoder is the global tiktoken encoder
	tokenEncoder *tiktoken.Tiktoken
	encoderOnce  sync.Once
	encoderErr   error
)

// initTokenEncoder initializes the tiktoken encoder (lazy initialization)
func initTokenEncoder() error {
	encoderOnce.Do(func() {
		// Use cl100k_base encoding (GPT-4, GPT-3.5-turbo, text-embedding-ada-002)
		tokenEncoder, encoderErr = tiktoken.GetEncoding("cl100k_base")
	})
	return encoderErr
}

// CountTokens counts the number of tokens in a text using tiktoken
func CountTokens(text string) int {
	if err := initTokenEncoder(); err != nil {
		// Fallback to estimation if tiktoken fails
		return estimateTokens(text)
	}

	tokens := tokenEncoder.Encode(text, nil, nil)
	return len(tokens)
}

// CountTokensForMessages counts tokens for a list of messages
// This accounts for message formatting overhead
func CountTokensForMessages(messages []Message) int {
	if err := initTokenEncoder(); err != nil {
		// Fallback to estimation
		total := 0
		for _, msg := range messages {
			total += estimateTokens(GetContentAsString(msg.Content))
		}
		return total
	}

	total := 0

	// Each message has overhead: role, content markers, etc.
	// Based on OpenAI's token counting documentation
	for _, msg := range messages {
		// Message overhead: approximately 4 tokens per message
		total += 4

		// Role tokens
		total += len(tokenEncoder.Encode(string(msg.Role), nil, nil))

		// Content tokens
		total += len(tokenEncoder.Encode(GetContentAsString(msg.Content), nil, nil))
	}

	// Add 2 tokens for the overall structure
	total += 2

	return total
}

// UpdateMessageTokens updates the token count for a message
func UpdateMessageTokens(msg *Message) {
	msg.Tokens = CountTokens(GetContentAsString(msg.Content))
}

// UpdateAllTokens recomputes token counts for every message in the log.
func (l *MessageLog) UpdateAllTokens() {
	total := 0
	for i := range l.Messages {
		l.Messages[i].Tokens = CountTokens(GetContentAsString(l.Messages[i].Content))
		total += l.Messages[i].Tokens
	}
	l.TokenCount = total
}

// GetAccurateTokenCount returns an accurate token count for the whole log,
// including per-message formatting overhead.
func (l *MessageLog) GetAccurateTokenCount() int {
	return CountTokensForMessages(l.Messages)
}

// ClampToBudget drops the oldest non-system, non-todo_list, non-browser_state
// messages until the log's accurate token count is at or under maxTokens.
// Used by ReAct (spec §4.7: "all LLM inputs here are token-budget-clamped
// against the provider's context window"), before each inner loop and after
// each cycle.
func (l *MessageLog) ClampToBudget(maxTokens int) {
	for l.GetAccurateTokenCount() > maxTokens {
		idx := -1
		for i, m := range l.Messages {
			if m.Role == RoleSystem || m.Role == RoleTodoList || m.Role == RoleBrowserState {
				continue
			}
			idx = i
			break
		}
		if idx == -1 {
			return
		}
		l.TokenCount -= l.Messages[idx].Tokens
		l.Messages = append(l.Messages[:idx], l.Messages[idx+1:]...)
	}
}
