package validate

import (
	"context"

	"graphshift/internal/analyzer"
)

// TreeSitterSyntax checks converted snippets with the C# grammar. Snippets
// are usually statement lists, not full compilation units, so a failing raw
// parse is retried inside a probe class/method wrapper before being reported.
type TreeSitterSyntax struct {
	analyzer *analyzer.Analyzer
}

// NewTreeSitterSyntax builds a syntax checker on the shared analyzer.
func NewTreeSitterSyntax(a *analyzer.Analyzer) *TreeSitterSyntax {
	return &TreeSitterSyntax{analyzer: a}
}

// Check returns syntax diagnostics for code, or nil when well-formed.
func (s *TreeSitterSyntax) Check(ctx context.Context, code string) []string {
	errs := s.parseErrors(ctx, code)
	if errs == nil {
		return nil
	}
	// Statements using await only parse inside an async member.
	wrapped := "class ConversionProbe {\n" +
		"    async System.Threading.Tasks.Task ProbeAsync() {\n" +
		code + "\n" +
		"    }\n" +
		"}\n"
	if s.parseErrors(ctx, wrapped) == nil {
		return nil
	}
	return errs
}

func (s *TreeSitterSyntax) parseErrors(ctx context.Context, code string) []string {
	tree, err := s.analyzer.Parse(ctx, []byte(code))
	if err != nil {
		return []string{err.Error()}
	}
	return s.analyzer.SyntaxErrors(tree.RootNode(), []byte(code))
}
