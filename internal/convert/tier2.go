package convert

import (
	"context"
	"fmt"

	"graphshift/internal/analyzer"
	"graphshift/internal/backend"
	"graphshift/internal/types"
)

// Guided is the tier-2 strategy: extract the enclosing method, build an
// enriched prompt from the roadmap entry, and ask the backend for a
// replacement. The orchestrator drives the single bounded retry by calling
// Attempt again with Retry=1 and the validator's errors in PriorErrors, so
// the backend sees at most two round-trips per usage.
type Guided struct {
	backend  backend.Completer
	analyzer *analyzer.Analyzer
}

// NewGuided builds the tier-2 strategy.
func NewGuided(b backend.Completer, a *analyzer.Analyzer) *Guided {
	return &Guided{backend: b, analyzer: a}
}

func (g *Guided) Name() string { return "guided-completion" }
func (g *Guided) Tier() int    { return 2 }

// Attempt converts one usage at method granularity.
func (g *Guided) Attempt(ctx context.Context, at *types.ConversionAttempt) (Outcome, error) {
	entry, site := at.Entry, at.Site
	if entry.Tier > 2 {
		// Entries the roadmap routes straight to tier 3.
		return NotApplicable(), nil
	}

	method, ok := g.analyzer.EnclosingMethod(ctx, []byte(at.FileSource), site.StartByte, site.EndByte)
	if !ok {
		// Field initializers and top-level statements: prompt on the bare
		// snippet instead.
		method = analyzer.Extraction{Text: site.Snippet}
	}

	userPrompt := BuildGuidedPrompt(at, method)
	text, err := g.backend.Complete(ctx, guidedSystemPrompt, userPrompt)
	if err != nil {
		return Outcome{}, fmt.Errorf("guided completion failed: %w", err)
	}

	code, imports, err := ParseResponse(text)
	if err != nil {
		return Outcome{}, fmt.Errorf("guided completion response: %w", err)
	}
	if len(imports) == 0 {
		imports = entry.RequiredImports
	}

	return Converted(&types.ConversionResult{
		Tier:            2,
		Retry:           at.Retry,
		OriginalCode:    site.Snippet,
		ConvertedCode:   code,
		RequiredImports: types.ImportList(imports),
		RequiredPackage: entry.RequiredPackage,
		FilePath:        site.FilePath,
		StartLine:       site.StartLine,
		EndLine:         site.EndLine,
		StartByte:       site.StartByte,
		EndByte:         site.EndByte,
	}), nil
}
