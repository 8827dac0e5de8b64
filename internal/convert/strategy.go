// Package convert implements the three escalating conversion strategies and
// the confidence scorer. Tier 1 rewrites known call shapes from deterministic
// templates; tier 2 asks the generation backend to rewrite the enclosing
// method; tier 3 rewrites a whole class worth of usages in one pass.
package convert

import (
	"context"

	"graphshift/internal/types"
)

// Outcome is the explicit two-case result of a strategy attempt: either the
// strategy produced a conversion, or it was not applicable and the
// orchestrator should fall through to the next tier. Inapplicability is
// never an error.
type Outcome struct {
	Applied bool
	Result  *types.ConversionResult
}

// NotApplicable signals fallthrough to the next tier.
func NotApplicable() Outcome {
	return Outcome{}
}

// Converted wraps a produced result.
func Converted(r *types.ConversionResult) Outcome {
	return Outcome{Applied: true, Result: r}
}

// Strategy is one conversion tier. Attempt returns an error only for real
// failures (backend errors, malformed responses); shape mismatches come back
// as NotApplicable.
type Strategy interface {
	Name() string
	Tier() int
	Attempt(ctx context.Context, at *types.ConversionAttempt) (Outcome, error)
}
