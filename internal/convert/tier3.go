package convert

import (
	"context"
	"fmt"
	"os"
	"strings"

	"graphshift/internal/analyzer"
	"graphshift/internal/backend"
	"graphshift/internal/kb"
	"graphshift/internal/types"
)

// DefaultContextBudget caps the characters of class source sent to the
// backend in one tier-3 call.
const DefaultContextBudget = 24000

// FullContext is the tier-3 strategy: extract the enclosing class, batch
// every usage in it into one prompt, and produce a single result for the
// whole scope. Gap/TBD operations are annotated for human review instead of
// substituted.
type FullContext struct {
	backend    backend.Completer
	analyzer   *analyzer.Analyzer
	kb         *kb.Accessor
	charBudget int
}

// NewFullContext builds the tier-3 strategy. charBudget <= 0 selects the
// default.
func NewFullContext(b backend.Completer, a *analyzer.Analyzer, accessor *kb.Accessor, charBudget int) *FullContext {
	if charBudget <= 0 {
		charBudget = DefaultContextBudget
	}
	return &FullContext{backend: b, analyzer: a, kb: accessor, charBudget: charBudget}
}

func (f *FullContext) Name() string { return "full-context" }
func (f *FullContext) Tier() int    { return 3 }

// Attempt converts the usage and all its in-scope siblings in one pass. The
// returned result spans the whole extracted scope.
func (f *FullContext) Attempt(ctx context.Context, at *types.ConversionAttempt) (Outcome, error) {
	site := at.Site
	source := []byte(at.FileSource)

	scope, ok := f.analyzer.EnclosingClass(ctx, source, site.StartByte, site.EndByte)
	if !ok {
		scope = analyzer.Extraction{Text: at.FileSource, StartByte: 0, EndByte: len(at.FileSource)}
	}

	text := scope.Text
	truncated := false
	if len(text) > f.charBudget {
		// Quality degradation, not an error: conversion proceeds on what
		// fits and the truncation is logged.
		text = text[:f.charBudget]
		truncated = true
		fmt.Fprintf(os.Stderr, "warning: %s: tier-3 context truncated to %d chars\n", site.FilePath, f.charBudget)
	}

	annotations := f.annotate(at, scope)
	gapPresent := false
	for _, a := range annotations {
		if a.Gap() {
			gapPresent = true
			break
		}
	}

	userPrompt := BuildFullContextPrompt(text, truncated, annotations)
	response, err := f.backend.Complete(ctx, fullContextSystemPrompt, userPrompt)
	if err != nil {
		return Outcome{}, fmt.Errorf("full-context completion failed: %w", err)
	}

	code, imports, err := ParseResponse(response)
	if err != nil {
		return Outcome{}, fmt.Errorf("full-context response: %w", err)
	}
	if len(imports) == 0 && at.Entry != nil {
		imports = at.Entry.RequiredImports
	}

	startLine := lineOf(at.FileSource, scope.StartByte)
	endLine := lineOf(at.FileSource, scope.EndByte)

	return Converted(&types.ConversionResult{
		Tier:            3,
		OriginalCode:    scope.Text,
		ConvertedCode:   code,
		RequiredImports: types.ImportList(imports),
		RequiredPackage: requiredPackage(annotations),
		FilePath:        site.FilePath,
		StartLine:       startLine,
		EndLine:         endLine,
		StartByte:       scope.StartByte,
		EndByte:         scope.EndByte,
		GapFlagged:      gapPresent,
	}), nil
}

// annotate pairs every in-scope usage with its roadmap entry. Usages outside
// the extracted scope are skipped; the primary site is always included.
func (f *FullContext) annotate(at *types.ConversionAttempt, scope analyzer.Extraction) []SiblingAnnotation {
	annotations := []SiblingAnnotation{{Site: at.Site, Entry: at.Entry}}
	for _, sib := range at.Siblings {
		if sib.StartByte == at.Site.StartByte {
			continue
		}
		if sib.StartByte < scope.StartByte || sib.EndByte > scope.EndByte {
			continue
		}
		entry, _ := f.kb.Resolve(sib)
		annotations = append(annotations, SiblingAnnotation{Site: sib, Entry: entry})
	}
	return annotations
}

func requiredPackage(annotations []SiblingAnnotation) string {
	for _, a := range annotations {
		if a.Entry != nil && a.Entry.RequiredPackage != "" {
			return a.Entry.RequiredPackage
		}
	}
	return ""
}

// lineOf returns the 1-based line containing the byte offset.
func lineOf(source string, offset int) int {
	if offset > len(source) {
		offset = len(source)
	}
	return strings.Count(source[:offset], "\n") + 1
}
