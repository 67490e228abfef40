package sanitize

import (
	"context"

	sitter "github.com/smacker/go-tree-sitter"

	"manimgen/internal/pyast"
)

// KeywordRename renames one keyword argument at call sites of Callee. The
// callee matches both bare calls and method calls.
type KeywordRename struct {
	Callee string
	From   string
	To     string
}

// KeywordRenames lists deprecated keyword arguments and their current names.
var KeywordRenames = []KeywordRename{
	{Callee: "add_background_rectangle", From: "fill_opacity", To: "opacity"},
}

// NameAliases maps removed named constants to supported equivalents.
var NameAliases = map[string]string{
	"CYAN":   "TEAL",
	"CYAN_A": "TEAL_A",
	"CYAN_B": "TEAL_B",
	"CYAN_C": "TEAL_C",
	"CYAN_D": "TEAL_D",
	"CYAN_E": "TEAL_E",
}

// Sanitize applies the rename and alias tables and reports whether anything
// changed. Source that does not parse is returned untouched. Only the matched
// tokens are rewritten, so formatting and comments survive and a second pass
// is a no-op.
func Sanitize(code string) (string, bool) {
	tree, err := pyast.Parse(context.Background(), code)
	if err != nil {
		return code, false
	}
	defer tree.Close()
	if tree.FirstSyntaxError() != nil {
		return code, false
	}

	var edits []pyast.Edit
	pyast.Walk(tree.Root(), func(n *sitter.Node) bool {
		switch n.Type() {
		case "call":
			edits = append(edits, keywordEdits(tree, n)...)
		case "identifier":
			if replacement, ok := NameAliases[tree.Text(n)]; ok && isValueReference(n) {
				edits = append(edits, pyast.Edit{Start: n.StartByte(), End: n.EndByte(), Text: replacement})
			}
		}
		return true
	})
	if len(edits) == 0 {
		return code, false
	}
	return pyast.Apply(code, edits), true
}

func keywordEdits(tree *pyast.Tree, call *sitter.Node) []pyast.Edit {
	callee := calleeName(tree, call.ChildByFieldName("function"))
	if callee == "" {
		return nil
	}
	args := call.ChildByFieldName("arguments")
	if args == nil || args.Type() != "argument_list" {
		return nil
	}

	keywords := map[string]*sitter.Node{}
	count := int(args.NamedChildCount())
	for i := 0; i < count; i++ {
		arg := args.NamedChild(i)
		if arg.Type() != "keyword_argument" {
			continue
		}
		if name := arg.ChildByFieldName("name"); name != nil {
			keywords[tree.Text(name)] = name
		}
	}

	var edits []pyast.Edit
	for _, rule := range KeywordRenames {
		if rule.Callee != callee {
			continue
		}
		from, ok := keywords[rule.From]
		if !ok {
			continue
		}
		if _, clash := keywords[rule.To]; clash {
			continue
		}
		edits = append(edits, pyast.Edit{Start: from.StartByte(), End: from.EndByte(), Text: rule.To})
	}
	return edits
}

func calleeName(tree *pyast.Tree, fn *sitter.Node) string {
	if fn == nil {
		return ""
	}
	switch fn.Type() {
	case "identifier":
		return tree.Text(fn)
	case "attribute":
		return tree.Text(fn.ChildByFieldName("attribute"))
	default:
		return ""
	}
}

// isValueReference excludes identifiers that name attributes, keywords,
// parameters, definitions or imported modules.
func isValueReference(n *sitter.Node) bool {
	parent := n.Parent()
	if parent == nil {
		return true
	}
	switch parent.Type() {
	case "attribute":
		return !pyast.IsField(parent, "attribute", n)
	case "keyword_argument":
		return !pyast.IsField(parent, "name", n)
	case "function_definition", "class_definition":
		return !pyast.IsField(parent, "name", n)
	case "default_parameter", "typed_default_parameter":
		return !pyast.IsField(parent, "name", n)
	case "typed_parameter", "parameters", "lambda_parameters", "list_splat_pattern", "dictionary_splat_pattern",
		"dotted_name", "aliased_import", "global_statement", "nonlocal_statement":
		return false
	default:
		return true
	}
}
