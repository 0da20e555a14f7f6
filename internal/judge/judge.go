// Package judge abstracts the external reasoning service as an opaque
// function from prompt text to response text. The pipeline never assumes
// which model answers, and it must tolerate prose-wrapped or malformed
// structured output downstream.
package judge

import "context"

// Judge turns a prompt into a free-text response.
type Judge interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Func adapts a plain function to the Judge interface. Useful for tests
// and for callers that already hold a client of their own.
type Func func(ctx context.Context, prompt string) (string, error)

// Complete implements Judge.
func (f Func) Complete(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}
