package pyast

import (
	"context"
	"fmt"
	"sort"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"
)

// Tree is a parsed Python module and the source it was parsed from.
type Tree struct {
	src  []byte
	tree *sitter.Tree
}

// Parse builds a syntax tree for src. A fresh parser is used per call so
// concurrent callers never share parser state.
func Parse(ctx context.Context, src string) (*Tree, error) {
	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(python.GetLanguage())

	data := []byte(src)
	tree, err := parser.ParseCtx(ctx, nil, data)
	if err != nil {
		return nil, fmt.Errorf("parse python: %w", err)
	}
	return &Tree{src: data, tree: tree}, nil
}

// Close releases the underlying tree.
func (t *Tree) Close() {
	if t != nil && t.tree != nil {
		t.tree.Close()
	}
}

// Root returns the module node.
func (t *Tree) Root() *sitter.Node {
	return t.tree.RootNode()
}

// Text returns the source text spanned by n.
func (t *Tree) Text(n *sitter.Node) string {
	if n == nil {
		return ""
	}
	return n.Content(t.src)
}

// Source returns the parsed source.
func (t *Tree) Source() string {
	return string(t.src)
}

// SyntaxError describes the first ERROR or MISSING node in a tree.
type SyntaxError struct {
	Line   int
	Detail string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Detail)
}

// legacyForms are constructs the grammar still accepts that Python 3 rejects.
var legacyForms = map[string]string{
	"print_statement": "print statement requires parentheses",
	"exec_statement":  "exec statement is not supported",
	"<>":              "'<>' operator is not supported, use '!='",
}

// FirstSyntaxError returns nil when the tree parsed cleanly and contains no
// Python 2 only forms.
func (t *Tree) FirstSyntaxError() *SyntaxError {
	root := t.Root()
	if !root.HasError() {
		return t.firstLegacyForm(root)
	}
	var found *sitter.Node
	Walk(root, func(n *sitter.Node) bool {
		if found != nil {
			return false
		}
		if n.IsError() || n.IsMissing() {
			found = n
			return false
		}
		return n.HasError()
	})
	if found == nil {
		return &SyntaxError{Line: int(root.StartPoint().Row) + 1, Detail: "invalid syntax"}
	}
	line := int(found.StartPoint().Row) + 1
	if found.IsMissing() {
		return &SyntaxError{Line: line, Detail: fmt.Sprintf("missing %q", found.Type())}
	}
	snippet := strings.TrimSpace(t.Text(found))
	if idx := strings.IndexByte(snippet, '\n'); idx >= 0 {
		snippet = snippet[:idx]
	}
	if len(snippet) > 40 {
		snippet = snippet[:40] + "..."
	}
	if snippet == "" {
		return &SyntaxError{Line: line, Detail: "invalid syntax"}
	}
	return &SyntaxError{Line: line, Detail: fmt.Sprintf("invalid syntax near %q", snippet)}
}

func (t *Tree) firstLegacyForm(root *sitter.Node) *SyntaxError {
	var found *SyntaxError
	Walk(root, func(n *sitter.Node) bool {
		if found != nil {
			return false
		}
		if detail, ok := legacyForms[n.Type()]; ok {
			found = &SyntaxError{Line: int(n.StartPoint().Row) + 1, Detail: detail}
			return false
		}
		return true
	})
	return found
}

// Walk visits n and its descendants in source order. Returning false from fn
// skips the children of the current node.
func Walk(n *sitter.Node, fn func(*sitter.Node) bool) {
	if n == nil {
		return
	}
	if !fn(n) {
		return
	}
	count := int(n.ChildCount())
	for i := 0; i < count; i++ {
		Walk(n.Child(i), fn)
	}
}

// Definition unwraps a decorated_definition to the class or function it decorates.
func Definition(n *sitter.Node) *sitter.Node {
	if n != nil && n.Type() == "decorated_definition" {
		return n.ChildByFieldName("definition")
	}
	return n
}

// IsField reports whether child is the named field of parent.
func IsField(parent *sitter.Node, field string, child *sitter.Node) bool {
	if parent == nil || child == nil {
		return false
	}
	target := parent.ChildByFieldName(field)
	return target != nil && sameNode(target, child)
}

func sameNode(a, b *sitter.Node) bool {
	return a.StartByte() == b.StartByte() && a.EndByte() == b.EndByte() && a.Type() == b.Type()
}

// Edit replaces the source bytes in [Start, End).
type Edit struct {
	Start uint32
	End   uint32
	Text  string
}

// Apply rewrites src with non-overlapping edits. Overlapping edits after the
// first are dropped.
func Apply(src string, edits []Edit) string {
	if len(edits) == 0 {
		return src
	}
	sorted := append([]Edit(nil), edits...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })

	var b strings.Builder
	b.Grow(len(src))
	var cursor uint32
	for _, e := range sorted {
		if e.Start < cursor || int(e.End) > len(src) || e.End < e.Start {
			continue
		}
		b.WriteString(src[cursor:e.Start])
		b.WriteString(e.Text)
		cursor = e.End
	}
	b.WriteString(src[cursor:])
	return b.String()
}
