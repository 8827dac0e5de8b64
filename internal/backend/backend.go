// Package backend provides the generation capability used by conversion
// tiers 2 and 3: Complete(system, user) -> text. Two implementations conform:
// a direct Anthropic endpoint client and a host relay that defers completions
// to a caller-supplied function. Which one runs is decided by configuration
// at construction time, never inside pipeline logic.
package backend

import (
	"context"
	"errors"
	"fmt"
)

// Completer is the abstract completion capability.
type Completer interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// ErrNoBackend is returned when a relay backend was selected but no
// completion function was supplied by the host.
var ErrNoBackend = errors.New("no completion backend configured")

// CompleteFunc adapts a plain function to the Completer interface.
type CompleteFunc func(ctx context.Context, systemPrompt, userPrompt string) (string, error)

func (f CompleteFunc) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	return f(ctx, systemPrompt, userPrompt)
}

// Relay defers completions to a generation host that embeds this pipeline
// (e.g. an MCP host doing sampling on the tool's behalf). It performs no
// network calls of its own.
type Relay struct {
	fn CompleteFunc
}

// NewRelay wraps a host-supplied completion function.
func NewRelay(fn CompleteFunc) *Relay {
	return &Relay{fn: fn}
}

func (r *Relay) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	if r.fn == nil {
		return "", ErrNoBackend
	}
	text, err := r.fn(ctx, systemPrompt, userPrompt)
	if err != nil {
		return "", fmt.Errorf("relay completion failed: %w", err)
	}
	return text, nil
}
