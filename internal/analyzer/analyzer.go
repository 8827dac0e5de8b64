// Package analyzer provides C# source analysis for the conversion pipeline:
// locating EWS usage sites, extracting enclosing methods and classes, syntax
// checking, and span-safe text replacement. It is the pipeline's view of the
// compiler frontend; everything here is read-only with respect to the input.
package analyzer

import (
	"context"
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/csharp"

	"graphshift/internal/types"
)

// EWSNamespace is the managed API namespace whose call sites are migrated.
const EWSNamespace = "Microsoft.Exchange.WebServices"

// Analyzer parses C# sources with tree-sitter. A tree-sitter parser is not
// safe for concurrent use, so Parse constructs one per call; the Analyzer
// itself can be shared across file workers.
type Analyzer struct{}

// New returns a C# analyzer.
func New() *Analyzer {
	return &Analyzer{}
}

// Parse parses source and returns the syntax tree. The tree retains the parse
// and must be kept alive while its nodes are in use.
func (a *Analyzer) Parse(ctx context.Context, source []byte) (*sitter.Tree, error) {
	p := sitter.NewParser()
	p.SetLanguage(csharp.GetLanguage())
	tree, err := p.ParseCtx(ctx, nil, source)
	if err != nil {
		return nil, fmt.Errorf("parse error: %w", err)
	}
	return tree, nil
}

// SyntaxErrors returns one diagnostic per error or missing node in the tree.
// An empty slice means the source is well-formed.
func (a *Analyzer) SyntaxErrors(root *sitter.Node, source []byte) []string {
	if !root.HasError() {
		return nil
	}
	var errs []string
	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		if n == nil {
			return
		}
		if n.Type() == "ERROR" {
			snippet := n.Content(source)
			if len(snippet) > 60 {
				snippet = snippet[:60] + "..."
			}
			errs = append(errs, fmt.Sprintf("syntax error at line %d near %q", n.StartPoint().Row+1, snippet))
		} else if n.IsMissing() {
			errs = append(errs, fmt.Sprintf("missing %s at line %d", n.Type(), n.StartPoint().Row+1))
		}
		for i := uint32(0); i < n.ChildCount(); i++ {
			walk(n.Child(int(i)))
		}
	}
	walk(root)
	if len(errs) == 0 {
		// HasError was set but no ERROR node surfaced; report generically.
		errs = append(errs, "source contains a syntax error")
	}
	return errs
}

// LocateUsages finds invocations of known EWS SDK methods in source. methods
// maps SDK method name to fully qualified name (built from the roadmap). A
// file that never references the EWS namespace yields no sites.
func (a *Analyzer) LocateUsages(ctx context.Context, path string, source []byte, methods map[string]string) ([]*types.UsageSite, error) {
	if !strings.Contains(string(source), EWSNamespace) {
		return nil, nil
	}
	tree, err := a.Parse(ctx, source)
	if err != nil {
		return nil, err
	}
	root := tree.RootNode()

	var sites []*types.UsageSite
	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		if n == nil {
			return
		}
		if n.Type() == "invocation_expression" {
			if site := a.usageFromInvocation(n, path, source, methods); site != nil {
				sites = append(sites, site)
			}
		}
		for i := uint32(0); i < n.ChildCount(); i++ {
			walk(n.Child(int(i)))
		}
	}
	walk(root)
	return sites, nil
}

// usageFromInvocation builds a UsageSite from an invocation node when its
// member name is a known EWS SDK method.
func (a *Analyzer) usageFromInvocation(n *sitter.Node, path string, source []byte, methods map[string]string) *types.UsageSite {
	fn := n.ChildByFieldName("function")
	if fn == nil || fn.Type() != "member_access_expression" {
		return nil
	}
	nameNode := fn.ChildByFieldName("name")
	exprNode := fn.ChildByFieldName("expression")
	if nameNode == nil || exprNode == nil {
		return nil
	}
	method := nameNode.Content(source)
	qualified, ok := methods[method]
	if !ok {
		return nil
	}

	var args []string
	if argList := n.ChildByFieldName("arguments"); argList != nil {
		for i := uint32(0); i < argList.ChildCount(); i++ {
			c := argList.Child(int(i))
			if c.Type() == "argument" {
				args = append(args, c.Content(source))
			}
		}
	}

	// The replaced span is the whole enclosing statement, so conversions can
	// substitute a complete statement (or several) for the original.
	span := enclosingStatement(n)

	return &types.UsageSite{
		FilePath:      path,
		StartByte:     int(span.StartByte()),
		EndByte:       int(span.EndByte()),
		StartLine:     int(span.StartPoint().Row) + 1,
		EndLine:       int(span.EndPoint().Row) + 1,
		QualifiedName: qualified,
		Method:        method,
		Receiver:      exprNode.Content(source),
		Args:          args,
		Snippet:       span.Content(source),
	}
}

// enclosingStatement climbs from an invocation to the statement containing
// it, stopping at block boundaries. Invocations in non-statement positions
// (lambda bodies, arguments) keep their own span.
func enclosingStatement(n *sitter.Node) *sitter.Node {
	for q := n; q != nil; q = q.Parent() {
		switch q.Type() {
		case "expression_statement", "local_declaration_statement", "return_statement":
			return q
		case "block", "arrow_expression_clause", "lambda_expression", "method_declaration", "class_declaration":
			return n
		}
	}
	return n
}

// Replace substitutes replacement for source[start:end]. It is the single
// mutation primitive the pipeline uses; callers are responsible for applying
// edits from the highest offset to the lowest.
func Replace(source string, start, end int, replacement string) (string, error) {
	if start < 0 || end < start || end > len(source) {
		return "", fmt.Errorf("span [%d,%d) out of range for %d-byte source", start, end, len(source))
	}
	return source[:start] + replacement + source[end:], nil
}
