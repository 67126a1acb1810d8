package ast

// Walk visits n and its descendants in depth-first pre-order, the order in
// which constructs appear in source. The visitor returns false to prune the
// subtree below the current node.
func Walk(n *Node, visit func(*Node) bool) {
	if n == nil {
		return
	}
	if !visit(n) {
		return
	}
	for _, c := range n.Children {
		Walk(c, visit)
	}
}

// Functions returns every function definition under root (nested definitions
// included) in visit order.
func Functions(root *Node) []*Node {
	var fns []*Node
	Walk(root, func(n *Node) bool {
		if n.IsFunction() {
			fns = append(fns, n)
		}
		return true
	})
	return fns
}

// Scope describes the lexical position of a visited node.
type Scope struct {
	// Function is the innermost enclosing function definition, or nil at
	// module level.
	Function *Node
	// Class is the innermost enclosing class definition, or nil.
	Class *Node
	// CondDepth counts enclosing conditional/loop/try constructs. The taint
	// engine is not path-sensitive; the depth is informational only.
	CondDepth int
}

// WalkScoped is Walk with scope tracking: the visitor additionally receives
// the scope of each node.
func WalkScoped(root *Node, visit func(*Node, Scope) bool) {
	walkScoped(root, Scope{}, visit)
}

func walkScoped(n *Node, sc Scope, visit func(*Node, Scope) bool) {
	if n == nil {
		return
	}
	if !visit(n, sc) {
		return
	}

	child := sc
	switch n.Kind {
	case KindFunction, KindAsyncFunction:
		child.Function = n
	case KindClass:
		child.Class = n
	case KindIf, KindFor, KindWhile, KindTry:
		child.CondDepth++
	}

	for _, c := range n.Children {
		walkScoped(c, child, visit)
	}
}
