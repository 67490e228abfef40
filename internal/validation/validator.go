package validation

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"manimgen/internal/pyast"
)

const (
	MessageValid         = "Code validated successfully"
	MessageMissingImport = "Missing 'from manim import' statement"
	MessageMissingScene  = "Missing Scene class definition"
	MessageMissingMethod = "Missing construct method"
	MessageSceneNotFound = "Could not find Scene class in code"
	manimModule          = "manim"
	entryMethod          = "construct"
	entryReceiver        = "self"
)

var sceneClassPattern = regexp.MustCompile(
	`class\s+(\w+)\s*\(\s*(?:` + strings.Join(SceneBases(), "|") + `)\s*\)`,
)

// SceneClassName returns the first class declared with a single allow-listed
// scene base.
func SceneClassName(code string) (string, error) {
	match := sceneClassPattern.FindStringSubmatch(code)
	if match == nil {
		return "", errors.New(MessageSceneNotFound)
	}
	return match[1], nil
}

// Validate parses code and runs the ordered structural checks followed by the
// deny-list walk. It never executes the code and holds no state.
func Validate(code string) (bool, string) {
	tree, err := pyast.Parse(context.Background(), code)
	if err != nil {
		return false, "Syntax error: " + err.Error()
	}
	defer tree.Close()

	if synErr := tree.FirstSyntaxError(); synErr != nil {
		return false, "Syntax error: " + synErr.Error()
	}

	root := tree.Root()
	if !hasManimImport(tree, root) {
		return false, MessageMissingImport
	}

	scenes := sceneClasses(tree, root)
	switch len(scenes) {
	case 0:
		return false, MessageMissingScene
	case 1:
	default:
		names := make([]string, 0, len(scenes))
		for _, scene := range scenes {
			names = append(names, tree.Text(scene.ChildByFieldName("name")))
		}
		return false, "Multiple Scene classes defined: " + strings.Join(names, ", ")
	}

	if !hasEntryMethod(tree, scenes[0]) {
		return false, MessageMissingMethod
	}

	if msg := denyListViolation(tree, root); msg != "" {
		return false, msg
	}
	return true, MessageValid
}

func hasManimImport(tree *pyast.Tree, root *sitter.Node) bool {
	count := int(root.NamedChildCount())
	for i := 0; i < count; i++ {
		child := root.NamedChild(i)
		if child.Type() != "import_from_statement" {
			continue
		}
		if tree.Text(child.ChildByFieldName("module_name")) == manimModule {
			return true
		}
	}
	return false
}

func sceneClasses(tree *pyast.Tree, root *sitter.Node) []*sitter.Node {
	var scenes []*sitter.Node
	count := int(root.NamedChildCount())
	for i := 0; i < count; i++ {
		def := pyast.Definition(root.NamedChild(i))
		if def == nil || def.Type() != "class_definition" {
			continue
		}
		if inheritsSceneBase(tree, def) {
			scenes = append(scenes, def)
		}
	}
	return scenes
}

func inheritsSceneBase(tree *pyast.Tree, class *sitter.Node) bool {
	bases := class.ChildByFieldName("superclasses")
	if bases == nil {
		return false
	}
	count := int(bases.NamedChildCount())
	for i := 0; i < count; i++ {
		base := bases.NamedChild(i)
		if base.Type() == "identifier" && IsSceneBase(tree.Text(base)) {
			return true
		}
	}
	return false
}

func hasEntryMethod(tree *pyast.Tree, class *sitter.Node) bool {
	body := class.ChildByFieldName("body")
	if body == nil {
		return false
	}
	count := int(body.NamedChildCount())
	for i := 0; i < count; i++ {
		def := pyast.Definition(body.NamedChild(i))
		if def == nil || def.Type() != "function_definition" {
			continue
		}
		if tree.Text(def.ChildByFieldName("name")) != entryMethod {
			continue
		}
		params := def.ChildByFieldName("parameters")
		if params == nil || params.NamedChildCount() != 1 {
			continue
		}
		receiver := params.NamedChild(0)
		if receiver.Type() == "identifier" && tree.Text(receiver) == entryReceiver {
			return true
		}
	}
	return false
}

func denyListViolation(tree *pyast.Tree, root *sitter.Node) string {
	var message string
	pyast.Walk(root, func(n *sitter.Node) bool {
		if message != "" {
			return false
		}
		switch n.Type() {
		case "import_statement":
			count := int(n.NamedChildCount())
			for i := 0; i < count; i++ {
				name := n.NamedChild(i)
				if name.Type() == "aliased_import" {
					name = name.ChildByFieldName("name")
				}
				dotted := tree.Text(name)
				if IsDeniedModule(rootModule(dotted)) {
					message = "Forbidden import: " + dotted
					return false
				}
			}
		case "import_from_statement":
			module := tree.Text(n.ChildByFieldName("module_name"))
			if IsDeniedModule(rootModule(module)) {
				message = "Forbidden import: from " + module
				return false
			}
		case "call":
			fn := n.ChildByFieldName("function")
			if fn != nil && fn.Type() == "identifier" && IsDeniedCallable(tree.Text(fn)) {
				message = fmt.Sprintf("Forbidden function: %s()", tree.Text(fn))
				return false
			}
		}
		return true
	})
	return message
}

func rootModule(dotted string) string {
	dotted = strings.TrimLeft(strings.TrimSpace(dotted), ".")
	if idx := strings.IndexByte(dotted, '.'); idx >= 0 {
		return dotted[:idx]
	}
	return dotted
}
