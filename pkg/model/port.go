package model

import "context"

// ToolBinding is a provider-agnostic tool definition bound to a request,
// shaped like an OpenAI function-calling tool (name/description/JSON schema).
type ToolBinding struct {
	Name        string
	Description string
	Schema      map[string]any
}

// StreamEvent is one item pulled from a bound client's Stream. It carries
// either incremental content or a fully progressive tool-call fragment —
// never both decoded further than the raw chunk requires.
type StreamEvent struct {
	Content string
	// Reasoning carries a reasoning-model's chain-of-thought delta
	// (spec §4.2: "narrate model reasoning separately from its answer"),
	// kept apart from Content so a caller can route it to a dedicated
	// reasoning trace instead of the user-visible "thinking" narration.
	Reasoning string
	ToolCalls []ToolCallDelta
	Done      bool
	Err       error
}

// BoundClient is a ModelClient with a fixed tool list and model id, as
// returned by ModelClient.BindTools. Every call on it implicitly carries
// those tools.
type BoundClient interface {
	// Invoke performs one non-streaming chat completion.
	Invoke(ctx context.Context, messages []Message) (Message, error)
	// Stream opens a streaming chat completion. The returned channel is
	// closed when the stream ends (error or normal completion); ctx
	// cancellation must close it promptly without a further send.
	Stream(ctx context.Context, messages []Message) (<-chan StreamEvent, error)
}

// StructuredClient is returned by ModelClient.WithStructuredOutput; Invoke
// returns the raw JSON text the model produced for the bound schema.
type StructuredClient interface {
	Invoke(ctx context.Context, prompt string) (string, error)
}

// ModelClient is the LLM Client capability the orchestration core consumes
// (spec §6). Concrete providers implement it; the core never depends on a
// specific wire format.
type ModelClient interface {
	BindTools(tools []ToolBinding) (BoundClient, error)
	WithStructuredOutput(schema map[string]any) StructuredClient
}

// ErrNoToolBindingSupport is returned by BindTools when the underlying
// provider cannot accept tool definitions at all (spec §4.2 step 2: "fail
// fatally with a recoverable error").
var ErrNoToolBindingSupport = newPortError("model client does not support tool binding")

type portError struct{ msg string }

func newPortError(msg string) *portError { return &portError{msg: msg} }
func (e *portError) Error() string       { return e.msg }
