package taint

import "github.com/wardenhq/warden/ast"

// binding is the taint state of one value: which sink-type labels it still
// carries, which source it originated from, and what happened to it on the
// way. A binding with a nil origin is clean.
type binding struct {
	labels     LabelSet
	origin     *Source
	transforms []string
	sanitizers []string
	// viaUnknown marks flows that passed through a call the engine could
	// not resolve; confidence is reduced for those.
	viaUnknown bool
}

func (b binding) tainted() bool { return b.origin != nil }

// merge unions two bindings: labels union, first origin wins, histories
// concatenate.
func merge(x, y binding) binding {
	if !x.tainted() && !y.tainted() {
		return binding{}
	}
	out := binding{
		labels:     x.labels.Union(y.labels),
		origin:     x.origin,
		viaUnknown: x.viaUnknown || y.viaUnknown,
	}
	if out.origin == nil {
		out.origin = y.origin
	}
	out.transforms = append(append([]string{}, x.transforms...), y.transforms...)
	out.sanitizers = append(append([]string{}, x.sanitizers...), y.sanitizers...)
	return out
}

func (b binding) withTransform(name string) binding {
	b.transforms = append(append([]string{}, b.transforms...), name)
	return b
}

// state maps in-scope identifiers (simple and dotted) to their bindings.
// Last write wins; there is no versioning.
type state struct {
	vars map[string]binding
}

func newState() state {
	return state{vars: map[string]binding{}}
}

func (s state) clone() state {
	c := newState()
	for k, v := range s.vars {
		c.vars[k] = v
	}
	return c
}

// analyzeFunction walks a function body in program order with the given
// seed state (empty for standalone analysis, parameter bindings when entered
// from a call site). It returns the binding of the function's return value.
func (p *pass) analyzeFunction(fn *ast.Node, seed state, ctx callCtx) binding {
	st := seed.clone()
	var ret binding
	for _, stmt := range fn.Body() {
		if r := p.execStmt(stmt, &st, ctx); r.tainted() {
			ret = merge(ret, r)
		}
	}
	return ret
}

// execStmt executes one statement against the state. The returned binding is
// non-empty only for return statements (it feeds interprocedural binding).
// Branch bodies are walked in order as if they all execute; the engine is
// deliberately not path-sensitive.
func (p *pass) execStmt(stmt *ast.Node, st *state, ctx callCtx) binding {
	if stmt == nil {
		return binding{}
	}
	switch stmt.Kind {
	case ast.KindAssign:
		if len(stmt.Children) < 2 {
			return binding{}
		}
		value := p.evalExpr(stmt.Children[1], st, ctx)
		if name := ast.DottedName(stmt.Children[0]); name != "" {
			st.vars[name] = value
		}
		return binding{}

	case ast.KindAugAssign:
		if len(stmt.Children) < 2 {
			return binding{}
		}
		value := p.evalExpr(stmt.Children[1], st, ctx)
		if name := ast.DottedName(stmt.Children[0]); name != "" {
			st.vars[name] = merge(st.vars[name], value)
		}
		return binding{}

	case ast.KindReturn:
		if len(stmt.Children) == 0 {
			return binding{}
		}
		return p.evalExpr(stmt.Children[0], st, ctx)

	case ast.KindExprStmt:
		for _, c := range stmt.Children {
			p.evalExpr(c, st, ctx)
		}
		return binding{}

	case ast.KindIf, ast.KindFor, ast.KindWhile, ast.KindTry,
		ast.KindWith, ast.KindAsyncWith:
		var ret binding
		for _, c := range stmt.Children {
			if r := p.execStmt(c, st, ctx); r.tainted() {
				ret = merge(ret, r)
			}
		}
		return ret

	case ast.KindFunction, ast.KindAsyncFunction, ast.KindClass:
		// Nested definitions are analyzed standalone by AnalyzeFile and on
		// demand at their call sites; defining one has no data-flow effect.
		return binding{}

	default:
		// Statements the engine does not model (imports, comments) are
		// skipped; expressions reached here are still evaluated so nested
		// sink calls are not missed.
		if isExpr(stmt.Kind) {
			p.evalExpr(stmt, st, ctx)
		}
		return binding{}
	}
}

func isExpr(k ast.Kind) bool {
	switch k {
	case ast.KindCall, ast.KindAttribute, ast.KindName, ast.KindSubscript,
		ast.KindConstant, ast.KindFString, ast.KindBinOp, ast.KindAwait,
		ast.KindKeywordArg:
		return true
	default:
		return false
	}
}

// evalExpr computes the binding of an expression, emitting taint paths for
// any sink call found inside it. This is the only place paths are emitted.
func (p *pass) evalExpr(n *ast.Node, st *state, ctx callCtx) binding {
	if n == nil {
		return binding{}
	}
	switch n.Kind {
	case ast.KindName:
		if b, ok := st.vars[n.Name]; ok {
			return b
		}
		if p.a.catalog.MatchSource(n.Name) {
			return p.sourceBinding(n.Name, "name", n.Line)
		}
		return binding{}

	case ast.KindAttribute, ast.KindSubscript:
		dotted := ast.DottedName(n)
		if b, ok := st.vars[dotted]; ok {
			return b
		}
		if p.a.catalog.MatchSource(dotted) {
			nodeType := "attribute"
			if n.Kind == ast.KindSubscript {
				nodeType = "subscript"
			}
			return p.sourceBinding(dotted, nodeType, n.Line)
		}
		// Attribute access on a tracked value carries the parent's taint.
		if b, ok := st.vars[ast.BaseName(n)]; ok {
			return b
		}
		return binding{}

	case ast.KindConstant:
		return binding{}

	case ast.KindFString:
		var out binding
		for _, c := range n.Children {
			out = merge(out, p.evalExpr(c, st, ctx))
		}
		if out.tainted() {
			out = out.withTransform("f-string")
		}
		return out

	case ast.KindBinOp:
		var out binding
		for _, c := range n.Children {
			out = merge(out, p.evalExpr(c, st, ctx))
		}
		if out.tainted() {
			out = out.withTransform("concat")
		}
		return out

	case ast.KindAwait, ast.KindKeywordArg:
		if len(n.Children) == 0 {
			return binding{}
		}
		return p.evalExpr(n.Children[0], st, ctx)

	case ast.KindCall:
		return p.evalCall(n, st, ctx)

	default:
		return binding{}
	}
}

// sourceBinding creates the binding for a freshly recognized source: tainted
// for every sink type the catalog knows.
func (p *pass) sourceBinding(name, nodeType string, line int) binding {
	return binding{
		labels: p.a.catalog.AllLabels(),
		origin: &Source{
			Name:       name,
			NodeType:   nodeType,
			Line:       line,
			Confidence: sourceConfidence,
		},
	}
}

// evalCall resolves a call expression in priority order: sanitizer, source
// function, sink, same-file callee, unknown external.
func (p *pass) evalCall(call *ast.Node, st *state, ctx callCtx) binding {
	dotted := ast.DottedName(call.Callee())

	args := make([]binding, 0, len(call.Args()))
	var kwargs map[string]binding
	for _, arg := range call.Args() {
		b := p.evalExpr(arg, st, ctx)
		if arg.Kind == ast.KindKeywordArg {
			if kwargs == nil {
				kwargs = map[string]binding{}
			}
			kwargs[arg.Name] = b
		}
		args = append(args, b)
	}

	// Sanitizers clear exactly the sink types they are registered for and
	// pass everything else through.
	if cleared, ok := p.a.catalog.MatchSanitizer(dotted); ok {
		out := unionAll(args)
		if !out.tainted() {
			return binding{}
		}
		for _, t := range cleared {
			out.labels = out.labels.Without(t)
		}
		out.sanitizers = append(append([]string{}, out.sanitizers...), dotted)
		return out
	}

	if p.a.catalog.MatchSource(dotted) {
		return p.sourceBinding(dotted, "call", call.Line)
	}

	if _, sinkType, ok := p.a.catalog.MatchSink(dotted); ok {
		p.emitSinkPaths(call, dotted, sinkType, args)
		// The sink's own result is treated as derived from its arguments.
		return unionAll(args)
	}

	if callee, ok := p.index[ast.BaseName(call.Callee())]; ok && dotted == callee.Name {
		return p.callLocal(call, callee, args, kwargs, ctx)
	}
	// Method calls on self resolve to same-file methods as well.
	if callee, ok := p.resolveMethod(dotted); ok {
		return p.callLocal(call, callee, args, kwargs, ctx)
	}

	// Unknown external call: conservative pass-through unless configured
	// strict. The callee may transform the data but is assumed not to
	// neutralize it.
	if p.a.cfg.StrictCalls {
		return binding{}
	}
	out := unionAll(args)
	if out.tainted() {
		out = out.withTransform(dotted)
		out.viaUnknown = true
	}
	return out
}

// resolveMethod maps "self.helper" / "cls.helper" to a same-file function
// definition named "helper".
func (p *pass) resolveMethod(dotted string) (*ast.Node, bool) {
	const selfPrefix, clsPrefix = "self.", "cls."
	name := ""
	switch {
	case len(dotted) > len(selfPrefix) && dotted[:len(selfPrefix)] == selfPrefix:
		name = dotted[len(selfPrefix):]
	case len(dotted) > len(clsPrefix) && dotted[:len(clsPrefix)] == clsPrefix:
		name = dotted[len(clsPrefix):]
	default:
		return nil, false
	}
	fn, ok := p.index[name]
	return fn, ok
}

// emitSinkPaths records one path per tainted argument reaching the sink.
func (p *pass) emitSinkPaths(call *ast.Node, dotted string, sinkType SinkType, args []binding) {
	sink := Sink{Name: dotted, Type: sinkType, Line: call.Line}
	for _, arg := range args {
		if !arg.tainted() {
			continue
		}
		sanitized := !arg.labels.Has(sinkType)
		if sanitized && !p.a.cfg.EmitSanitized {
			continue
		}
		confidence := arg.origin.Confidence
		if arg.viaUnknown {
			confidence *= 0.7
		}
		if sanitized {
			confidence *= 0.3
		}
		p.paths = append(p.paths, Path{
			Source:          *arg.origin,
			Sink:            sink,
			Transformations: append([]string{}, arg.transforms...),
			Sanitizers:      append([]string{}, arg.sanitizers...),
			Labels:          arg.labels.Clone(),
			Confidence:      confidence,
		})
	}
}

func unionAll(bs []binding) binding {
	var out binding
	for _, b := range bs {
		out = merge(out, b)
	}
	return out
}
