// Package taint implements the multi-label taint engine: intraprocedural
// propagation from catalog sources to catalog sinks, with interprocedural
// binding across functions defined in the same file.
//
// The engine walks the generic tree produced by the parse step in program
// order. It keeps one label per sink type, so a sanitizer for one danger
// category clears exactly that category and leaves the rest tainted.
//
// Known limitations, inherited deliberately: assignments are last-write-wins
// per identifier (no SSA versioning) and branches of a conditional are not
// tracked separately (no path sensitivity).
package taint

import (
	"errors"

	"github.com/hashicorp/go-hclog"

	"github.com/wardenhq/warden/ast"
)

// defaultMaxCallDepth bounds interprocedural recursion so pathological or
// mutually recursive files cannot blow the stack.
const defaultMaxCallDepth = 8

// sourceConfidence is the heuristic confidence of a directly recognized source.
const sourceConfidence = 0.9

// Config tunes the analyzer. The zero value is usable.
type Config struct {
	// MaxCallDepth caps interprocedural binding depth. Zero means the default.
	MaxCallDepth int
	// EmitSanitized also reports flows whose sink label has been cleared.
	// Off by default: sanitized paths are usually noise, but callers that
	// audit sanitizer coverage want them.
	EmitSanitized bool
	// StrictCalls stops taint at calls to functions not defined in the file
	// and not present in the catalog. The default is conservative
	// pass-through: an unknown call is assumed to propagate its arguments'
	// taint into its result.
	StrictCalls bool
}

// Analyzer runs taint analysis over one parsed file at a time. It is
// stateless between calls and safe for reuse.
type Analyzer struct {
	catalog *Catalog
	cfg     Config
	log     hclog.Logger
}

// NewAnalyzer validates the catalog up front: an empty catalog is a
// configuration bug and fails construction rather than per-file analysis.
func NewAnalyzer(catalog *Catalog, cfg Config, log hclog.Logger) (*Analyzer, error) {
	if catalog == nil || len(catalog.Sinks) == 0 {
		return nil, errors.New("taint: catalog with at least one sink is required")
	}
	if cfg.MaxCallDepth <= 0 {
		cfg.MaxCallDepth = defaultMaxCallDepth
	}
	if log == nil {
		log = hclog.NewNullLogger()
	}
	return &Analyzer{catalog: catalog, cfg: cfg, log: log}, nil
}

// AnalyzeFile discovers every source→sink flow in the file. The returned
// paths are in discovery order (tree visit order). A nil tree yields nil.
func (a *Analyzer) AnalyzeFile(file *ast.Node) []Path {
	if file == nil {
		return nil
	}

	p := &pass{
		a:     a,
		index: indexFunctions(file),
	}

	for _, fn := range ast.Functions(file) {
		ctx := callCtx{depth: 0, active: map[string]bool{fn.Name: true}}
		p.analyzeFunction(fn, newState(), ctx)
	}

	paths := dedupPaths(p.paths)
	a.log.Debug("taint_analysis_complete", "paths_found", len(paths))
	return paths
}

// pass carries the per-file analysis products.
type pass struct {
	a     *Analyzer
	index map[string]*ast.Node
	paths []Path
}

// callCtx is the explicit interprocedural context threaded through callee
// analysis. It is copied at every call boundary so two call sites of the
// same callee can never alias each other's state.
type callCtx struct {
	depth  int
	active map[string]bool
}

func (c callCtx) enter(name string) callCtx {
	active := make(map[string]bool, len(c.active)+1)
	for k := range c.active {
		active[k] = true
	}
	active[name] = true
	return callCtx{depth: c.depth + 1, active: active}
}

// indexFunctions maps function names to their definitions for same-file
// call binding. The first definition of a name wins.
func indexFunctions(file *ast.Node) map[string]*ast.Node {
	index := map[string]*ast.Node{}
	for _, fn := range ast.Functions(file) {
		if fn.Name == "" {
			continue
		}
		if _, ok := index[fn.Name]; !ok {
			index[fn.Name] = fn
		}
	}
	return index
}

// dedupPaths drops flows rediscovered through a second route (a callee is
// analyzed both standalone and from its call sites). Identity is the
// (source line, sink line, sink type) triple; the first discovery wins.
func dedupPaths(paths []Path) []Path {
	type key struct {
		srcLine  int
		sinkLine int
		sinkType SinkType
	}
	seen := map[key]struct{}{}
	out := paths[:0]
	for _, p := range paths {
		k := key{p.Source.Line, p.Sink.Line, p.Sink.Type}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, p)
	}
	return out
}
