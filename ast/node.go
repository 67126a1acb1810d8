// Package ast defines the language-agnostic syntax tree consumed by the
// analysis engines. Trees are produced by an external parse step (see the
// parser package for the bundled tree-sitter adapter); the engines never
// read source text themselves.
package ast

import "strings"

// Kind identifies the syntactic shape of a node. The set is closed on
// purpose: every walker dispatches with an explicit switch so that adding
// a kind forces each call site to be revisited.
type Kind int

const (
	KindUnknown Kind = iota
	KindModule
	KindFunction
	KindAsyncFunction
	KindClass
	KindParam
	KindAssign
	KindAugAssign
	KindReturn
	KindExprStmt
	KindCall
	KindKeywordArg
	KindAttribute
	KindName
	KindSubscript
	KindConstant
	KindFString
	KindBinOp
	KindAwait
	KindWith
	KindAsyncWith
	KindIf
	KindFor
	KindWhile
	KindTry
	KindImport
	KindComment
)

var kindNames = map[Kind]string{
	KindUnknown:       "unknown",
	KindModule:        "module",
	KindFunction:      "function",
	KindAsyncFunction: "async_function",
	KindClass:         "class",
	KindParam:         "param",
	KindAssign:        "assign",
	KindAugAssign:     "aug_assign",
	KindReturn:        "return",
	KindExprStmt:      "expr_stmt",
	KindCall:          "call",
	KindKeywordArg:    "keyword_arg",
	KindAttribute:     "attribute",
	KindName:          "name",
	KindSubscript:     "subscript",
	KindConstant:      "constant",
	KindFString:       "fstring",
	KindBinOp:         "binop",
	KindAwait:         "await",
	KindWith:          "with",
	KindAsyncWith:     "async_with",
	KindIf:            "if",
	KindFor:           "for",
	KindWhile:         "while",
	KindTry:           "try",
	KindImport:        "import",
	KindComment:       "comment",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "unknown"
}

// Node is one vertex of the parsed tree.
//
// Shape conventions (enforced by the parser adapter, relied on by walkers):
//
//	KindFunction/KindAsyncFunction: Name is the function name; children are
//	    the KindParam nodes followed by the body statements.
//	KindAttribute: Name is the attribute; Children[0] is the receiver expression.
//	KindCall: Children[0] is the callee expression; Children[1:] are arguments.
//	KindKeywordArg: Name is the keyword; Children[0] is the value.
//	KindAssign/KindAugAssign: Children[0] is the target, Children[1] the value.
//	KindSubscript: Children[0] is the subscripted expression.
//	KindBinOp: Children[0] and Children[1] are the operands.
//	KindFString: children are the interpolated expressions.
//	KindReturn: Children[0], when present, is the returned expression.
type Node struct {
	Kind     Kind
	Name     string
	Value    string
	Line     int
	EndLine  int
	Children []*Node
	Attrs    map[string]string
}

// IsFunction reports whether n is a function definition of either flavor.
func (n *Node) IsFunction() bool {
	return n != nil && (n.Kind == KindFunction || n.Kind == KindAsyncFunction)
}

// Params returns the parameter nodes of a function definition.
func (n *Node) Params() []*Node {
	if !n.IsFunction() {
		return nil
	}
	var params []*Node
	for _, c := range n.Children {
		if c.Kind != KindParam {
			break
		}
		params = append(params, c)
	}
	return params
}

// Body returns the statements of a function definition, excluding parameters.
func (n *Node) Body() []*Node {
	if !n.IsFunction() {
		return nil
	}
	i := 0
	for i < len(n.Children) && n.Children[i].Kind == KindParam {
		i++
	}
	return n.Children[i:]
}

// Callee returns the callee expression of a call node.
func (n *Node) Callee() *Node {
	if n == nil || n.Kind != KindCall || len(n.Children) == 0 {
		return nil
	}
	return n.Children[0]
}

// Args returns the argument expressions of a call node, keyword arguments
// included (wrapped in KindKeywordArg).
func (n *Node) Args() []*Node {
	if n == nil || n.Kind != KindCall || len(n.Children) < 2 {
		return nil
	}
	return n.Children[1:]
}

// DottedName renders an expression as its dotted-name form ("request.args.get").
// It returns "" for expressions that have no name (literals, operators).
// Subscripts collapse to the name of the subscripted expression, matching the
// catalog's pattern vocabulary.
func DottedName(n *Node) string {
	if n == nil {
		return ""
	}
	switch n.Kind {
	case KindName:
		return n.Name
	case KindAttribute:
		base := ""
		if len(n.Children) > 0 {
			base = DottedName(n.Children[0])
		}
		if base == "" {
			return n.Name
		}
		return base + "." + n.Name
	case KindSubscript:
		if len(n.Children) > 0 {
			return DottedName(n.Children[0])
		}
		return ""
	case KindCall:
		return DottedName(n.Callee())
	case KindAwait:
		if len(n.Children) > 0 {
			return DottedName(n.Children[0])
		}
		return ""
	default:
		return ""
	}
}

// BaseName returns the leftmost identifier of a dotted expression, or "".
func BaseName(n *Node) string {
	dotted := DottedName(n)
	if dotted == "" {
		return ""
	}
	if i := strings.IndexByte(dotted, '.'); i >= 0 {
		return dotted[:i]
	}
	return dotted
}
