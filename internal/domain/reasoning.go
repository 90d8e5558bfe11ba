package domain

import "context"

// Reasoner turns a prompt into generated text. Implementations may fail with
// ErrReasoningTimeout, ErrReasoningTransport or ErrReasoningMalformed.
type Reasoner interface {
	Reason(ctx context.Context, req ReasoningRequest) (ReasoningResult, error)
}

// ReasoningRequest is a single completion request.
type ReasoningRequest struct {
	Prompt    string
	MaxTokens int
}

// ReasoningResult is the generated text plus token usage.
type ReasoningResult struct {
	Text             string
	PromptTokens     int
	CompletionTokens int
}
