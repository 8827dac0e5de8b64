package analyzer

import (
	"context"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

// Extraction is a region of source pulled out for a generation prompt.
type Extraction struct {
	Name      string // method or class name, empty when the region is the whole file
	Text      string
	StartByte int
	EndByte   int
}

// EnclosingMethod returns the full method declaration containing the byte
// span, signature included. ok is false for spans outside any method (field
// initializers, top-level statements).
func (a *Analyzer) EnclosingMethod(ctx context.Context, source []byte, start, end int) (Extraction, bool) {
	return a.enclosing(ctx, source, start, end, "method_declaration", "constructor_declaration", "local_function_statement")
}

// EnclosingClass returns the class (or struct/record) declaration containing
// the byte span.
func (a *Analyzer) EnclosingClass(ctx context.Context, source []byte, start, end int) (Extraction, bool) {
	return a.enclosing(ctx, source, start, end, "class_declaration", "struct_declaration", "record_declaration")
}

func (a *Analyzer) enclosing(ctx context.Context, source []byte, start, end int, nodeTypes ...string) (Extraction, bool) {
	tree, err := a.Parse(ctx, source)
	if err != nil {
		return Extraction{}, false
	}
	n := deepestCovering(tree.RootNode(), uint32(start), uint32(end))
	for n != nil {
		for _, t := range nodeTypes {
			if n.Type() == t {
				name := ""
				if nn := n.ChildByFieldName("name"); nn != nil {
					name = nn.Content(source)
				}
				return Extraction{
					Name:      name,
					Text:      n.Content(source),
					StartByte: int(n.StartByte()),
					EndByte:   int(n.EndByte()),
				}, true
			}
		}
		n = n.Parent()
	}
	return Extraction{}, false
}

// deepestCovering walks down to the smallest named node whose span covers
// [start, end).
func deepestCovering(root *sitter.Node, start, end uint32) *sitter.Node {
	n := root
	for {
		var next *sitter.Node
		for i := uint32(0); i < n.ChildCount(); i++ {
			c := n.Child(int(i))
			if c.StartByte() <= start && c.EndByte() >= end {
				next = c
				break
			}
		}
		if next == nil {
			return n
		}
		n = next
	}
}

// AuthBlock is the span of the EWS service construction and credential
// assignment statements in one file.
type AuthBlock struct {
	StartByte int
	EndByte   int
	StartLine int
	EndLine   int
	Text      string
}

// FindAuthBlock locates the EWS authentication block: the ExchangeService
// construction statement plus any immediately related assignments to its
// Credentials or Url members. At most one block per file is reported; it is
// rewritten exactly once, before any per-usage conversion.
func (a *Analyzer) FindAuthBlock(ctx context.Context, source []byte) (AuthBlock, bool) {
	tree, err := a.Parse(ctx, source)
	if err != nil {
		return AuthBlock{}, false
	}

	var first, last *sitter.Node
	var serviceVar string

	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		if n == nil {
			return
		}
		switch n.Type() {
		case "local_declaration_statement":
			text := n.Content(source)
			if first == nil && strings.Contains(text, "new ExchangeService") {
				first, last = n, n
				serviceVar = declaredVariable(n, source)
			}
		case "expression_statement":
			if first == nil {
				break
			}
			text := n.Content(source)
			if serviceVar != "" &&
				(strings.Contains(text, serviceVar+".Credentials") || strings.Contains(text, serviceVar+".Url")) {
				last = n
			}
		}
		for i := uint32(0); i < n.ChildCount(); i++ {
			walk(n.Child(int(i)))
		}
	}
	walk(tree.RootNode())

	if first == nil {
		return AuthBlock{}, false
	}
	start, end := int(first.StartByte()), int(last.EndByte())
	return AuthBlock{
		StartByte: start,
		EndByte:   end,
		StartLine: int(first.StartPoint().Row) + 1,
		EndLine:   int(last.EndPoint().Row) + 1,
		Text:      string(source[start:end]),
	}, true
}

func declaredVariable(decl *sitter.Node, source []byte) string {
	var name string
	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		if n == nil || name != "" {
			return
		}
		if n.Type() == "variable_declarator" {
			if nn := n.ChildByFieldName("name"); nn != nil {
				name = nn.Content(source)
				return
			}
			// Grammar versions differ on whether the name is a field.
			if n.ChildCount() > 0 && n.Child(0).Type() == "identifier" {
				name = n.Child(0).Content(source)
				return
			}
		}
		for i := uint32(0); i < n.ChildCount(); i++ {
			walk(n.Child(int(i)))
		}
	}
	walk(decl)
	return name
}
