package taint

import "github.com/wardenhq/warden/ast"

// callLocal binds a call site to a same-file callee: argument bindings seed
// the callee's parameters, the callee body is analyzed with that seed, and
// the callee's return binding flows back as the call's result. Applied
// repeatedly this yields transitive chains of any depth up to MaxCallDepth.
//
// Paths discovered inside the callee keep the caller-side origin, because
// the seeded bindings carry it.
func (p *pass) callLocal(call *ast.Node, callee *ast.Node, args []binding, kwargs map[string]binding, ctx callCtx) binding {
	// Recursion (direct or mutual) and depth exhaustion degrade to the
	// conservative pass-through used for unknown calls.
	if ctx.depth >= p.a.cfg.MaxCallDepth || ctx.active[callee.Name] {
		out := unionAll(args)
		if out.tainted() {
			out.viaUnknown = true
		}
		return out
	}

	seed := newState()
	params := bindableParams(callee)

	// Positional binding. A bound-method call site does not pass the
	// receiver, so positional arguments align with the post-receiver
	// parameter list.
	positional := positionalArgs(call, args)
	for i, param := range params {
		if i < len(positional) {
			seed.vars[param.Name] = positional[i]
		}
	}
	// Keyword binding overrides positional where both are present.
	for _, param := range params {
		if b, ok := kwargs[param.Name]; ok {
			seed.vars[param.Name] = b
		}
	}

	return p.analyzeFunction(callee, seed, ctx.enter(callee.Name))
}

// bindableParams returns the callee's parameters minus a leading receiver.
// self/cls are never tracked as tainted values; the method call itself is
// still analyzed.
func bindableParams(callee *ast.Node) []*ast.Node {
	params := callee.Params()
	if len(params) > 0 && (params[0].Name == "self" || params[0].Name == "cls") {
		return params[1:]
	}
	return params
}

// positionalArgs filters the evaluated argument bindings down to the
// positional ones, preserving order.
func positionalArgs(call *ast.Node, args []binding) []binding {
	raw := call.Args()
	out := make([]binding, 0, len(args))
	for i, arg := range raw {
		if i >= len(args) {
			break
		}
		if arg.Kind == ast.KindKeywordArg {
			continue
		}
		out = append(out, args[i])
	}
	return out
}
