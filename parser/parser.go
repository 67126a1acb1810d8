// Package parser adapts tree-sitter parse trees to the engine's generic AST.
// Only Python is bundled; other grammars plug in by writing another adapter
// producing the same node shapes.
package parser

import (
	"context"
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"

	"github.com/wardenhq/warden/ast"
)

// ParsePython parses Python source into the generic tree. The returned root
// is a KindModule node.
func ParsePython(ctx context.Context, source []byte) (*ast.Node, error) {
	p := sitter.NewParser()
	p.SetLanguage(python.GetLanguage())

	tree, err := p.ParseCtx(ctx, nil, source)
	if err != nil {
		return nil, fmt.Errorf("parser: %w", err)
	}
	root := tree.RootNode()
	if root == nil {
		return nil, fmt.Errorf("parser: empty tree")
	}

	c := &converter{src: source}
	return c.convert(root), nil
}

type converter struct {
	src []byte
}

func (c *converter) convert(n *sitter.Node) *ast.Node {
	if n == nil {
		return nil
	}
	line := int(n.StartPoint().Row) + 1
	endLine := int(n.EndPoint().Row) + 1

	switch n.Type() {
	case "module":
		return &ast.Node{Kind: ast.KindModule, Line: line, EndLine: endLine, Children: c.statements(n)}

	case "decorated_definition":
		if def := n.ChildByFieldName("definition"); def != nil {
			return c.convert(def)
		}
		return nil

	case "function_definition":
		kind := ast.KindFunction
		if hasAsyncKeyword(n) {
			kind = ast.KindAsyncFunction
		}
		out := &ast.Node{Kind: kind, Name: c.text(n.ChildByFieldName("name")), Line: line, EndLine: endLine}
		out.Children = append(out.Children, c.params(n.ChildByFieldName("parameters"))...)
		out.Children = append(out.Children, c.statements(n.ChildByFieldName("body"))...)
		return out

	case "class_definition":
		return &ast.Node{
			Kind:     ast.KindClass,
			Name:     c.text(n.ChildByFieldName("name")),
			Line:     line,
			EndLine:  endLine,
			Children: c.statements(n.ChildByFieldName("body")),
		}

	case "expression_statement":
		// Assignments live inside expression statements in the grammar; the
		// engine wants them as statements in their own right.
		if n.NamedChildCount() == 1 {
			only := n.NamedChild(0)
			switch only.Type() {
			case "assignment", "augmented_assignment":
				return c.convert(only)
			}
		}
		return &ast.Node{Kind: ast.KindExprStmt, Line: line, EndLine: endLine, Children: c.namedChildren(n)}

	case "assignment":
		return &ast.Node{
			Kind:    ast.KindAssign,
			Line:    line,
			EndLine: endLine,
			Children: []*ast.Node{
				c.convert(n.ChildByFieldName("left")),
				c.convert(n.ChildByFieldName("right")),
			},
		}

	case "augmented_assignment":
		return &ast.Node{
			Kind:    ast.KindAugAssign,
			Line:    line,
			EndLine: endLine,
			Children: []*ast.Node{
				c.convert(n.ChildByFieldName("left")),
				c.convert(n.ChildByFieldName("right")),
			},
		}

	case "return_statement":
		out := &ast.Node{Kind: ast.KindReturn, Line: line, EndLine: endLine}
		if n.NamedChildCount() > 0 {
			out.Children = append(out.Children, c.convert(n.NamedChild(0)))
		}
		return out

	case "call":
		out := &ast.Node{Kind: ast.KindCall, Line: line, EndLine: endLine}
		out.Children = append(out.Children, c.convert(n.ChildByFieldName("function")))
		if args := n.ChildByFieldName("arguments"); args != nil {
			out.Children = append(out.Children, c.namedChildren(args)...)
		}
		return out

	case "keyword_argument":
		return &ast.Node{
			Kind:     ast.KindKeywordArg,
			Name:     c.text(n.ChildByFieldName("name")),
			Line:     line,
			EndLine:  endLine,
			Children: []*ast.Node{c.convert(n.ChildByFieldName("value"))},
		}

	case "attribute":
		return &ast.Node{
			Kind:     ast.KindAttribute,
			Name:     c.text(n.ChildByFieldName("attribute")),
			Line:     line,
			EndLine:  endLine,
			Children: []*ast.Node{c.convert(n.ChildByFieldName("object"))},
		}

	case "identifier":
		return &ast.Node{Kind: ast.KindName, Name: c.text(n), Line: line, EndLine: endLine}

	case "subscript":
		return &ast.Node{
			Kind:     ast.KindSubscript,
			Line:     line,
			EndLine:  endLine,
			Children: []*ast.Node{c.convert(n.ChildByFieldName("value"))},
		}

	case "string":
		if interps := c.interpolations(n); len(interps) > 0 {
			return &ast.Node{Kind: ast.KindFString, Line: line, EndLine: endLine, Children: interps}
		}
		return &ast.Node{Kind: ast.KindConstant, Value: c.text(n), Line: line, EndLine: endLine}

	case "integer", "float", "true", "false", "none":
		return &ast.Node{Kind: ast.KindConstant, Value: c.text(n), Line: line, EndLine: endLine}

	case "binary_operator", "boolean_operator", "comparison_operator", "concatenated_string":
		return &ast.Node{Kind: ast.KindBinOp, Line: line, EndLine: endLine, Children: c.namedChildren(n)}

	case "await":
		out := &ast.Node{Kind: ast.KindAwait, Line: line, EndLine: endLine}
		if n.NamedChildCount() > 0 {
			out.Children = append(out.Children, c.convert(n.NamedChild(0)))
		}
		return out

	case "with_statement":
		kind := ast.KindWith
		if hasAsyncKeyword(n) {
			kind = ast.KindAsyncWith
		}
		return &ast.Node{Kind: kind, Line: line, EndLine: endLine, Children: c.namedChildren(n)}

	case "if_statement":
		return &ast.Node{Kind: ast.KindIf, Line: line, EndLine: endLine, Children: c.namedChildren(n)}
	case "for_statement":
		return &ast.Node{Kind: ast.KindFor, Line: line, EndLine: endLine, Children: c.namedChildren(n)}
	case "while_statement":
		return &ast.Node{Kind: ast.KindWhile, Line: line, EndLine: endLine, Children: c.namedChildren(n)}
	case "try_statement":
		return &ast.Node{Kind: ast.KindTry, Line: line, EndLine: endLine, Children: c.namedChildren(n)}

	case "import_statement", "import_from_statement":
		return &ast.Node{Kind: ast.KindImport, Value: c.text(n), Line: line, EndLine: endLine}

	case "comment":
		return &ast.Node{Kind: ast.KindComment, Value: c.text(n), Line: line, EndLine: endLine}

	default:
		// Structural containers (block, elif_clause, parenthesized
		// expressions, list/set/generator forms) pass their children through;
		// everything else becomes an unknown node so walkers can still
		// descend.
		return &ast.Node{Kind: ast.KindUnknown, Line: line, EndLine: endLine, Children: c.namedChildren(n)}
	}
}

// statements converts the named children of a block-like node, dropping
// nodes the converter had nothing for.
func (c *converter) statements(n *sitter.Node) []*ast.Node {
	return c.namedChildren(n)
}

func (c *converter) namedChildren(n *sitter.Node) []*ast.Node {
	if n == nil {
		return nil
	}
	var out []*ast.Node
	for i := 0; i < int(n.NamedChildCount()); i++ {
		if child := c.convert(n.NamedChild(i)); child != nil {
			out = append(out, child)
		}
	}
	return out
}

// params flattens a parameters node into KindParam children. Typed and
// defaulted parameters reduce to their identifier.
func (c *converter) params(n *sitter.Node) []*ast.Node {
	if n == nil {
		return nil
	}
	var out []*ast.Node
	for i := 0; i < int(n.NamedChildCount()); i++ {
		p := n.NamedChild(i)
		name := ""
		switch p.Type() {
		case "identifier":
			name = c.text(p)
		case "typed_parameter", "default_parameter", "typed_default_parameter":
			if id := firstIdentifier(p); id != nil {
				name = c.text(id)
			}
		case "list_splat_pattern", "dictionary_splat_pattern":
			if id := firstIdentifier(p); id != nil {
				name = c.text(id)
			}
		}
		if name == "" {
			continue
		}
		out = append(out, &ast.Node{
			Kind: ast.KindParam,
			Name: name,
			Line: int(p.StartPoint().Row) + 1,
		})
	}
	return out
}

// interpolations returns the converted embedded expressions of an f-string,
// or nil for a plain string literal.
func (c *converter) interpolations(n *sitter.Node) []*ast.Node {
	var out []*ast.Node
	for i := 0; i < int(n.NamedChildCount()); i++ {
		child := n.NamedChild(i)
		if child.Type() != "interpolation" {
			continue
		}
		for j := 0; j < int(child.NamedChildCount()); j++ {
			inner := child.NamedChild(j)
			if inner.Type() == "format_specifier" || inner.Type() == "type_conversion" {
				continue
			}
			if converted := c.convert(inner); converted != nil {
				out = append(out, converted)
			}
		}
	}
	return out
}

func (c *converter) text(n *sitter.Node) string {
	if n == nil {
		return ""
	}
	return n.Content(c.src)
}

// hasAsyncKeyword checks the anonymous leading children for the async token.
func hasAsyncKeyword(n *sitter.Node) bool {
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		if child.Type() == "async" {
			return true
		}
		if child.Type() == "def" || child.Type() == "with" {
			break
		}
	}
	return false
}

func firstIdentifier(n *sitter.Node) *sitter.Node {
	for i := 0; i < int(n.NamedChildCount()); i++ {
		if child := n.NamedChild(i); child.Type() == "identifier" {
			return child
		}
	}
	return nil
}
