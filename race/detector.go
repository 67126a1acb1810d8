// Package race finds parallel-launch sites that may mutate shared state
// without a lock, and resolves the ambiguous ones through an LLM verdict.
// Static heuristics nominate candidates; the adjudicator decides.
package race

import (
	"fmt"
	"sort"
	"strings"

	"github.com/wardenhq/warden/ast"
)

// gatherCalls are the call names that launch work concurrently.
var gatherCalls = map[string]struct{}{
	"gather":        {},
	"create_task":   {},
	"ensure_future": {},
}

// lockNames are constructor names whose presence anywhere in a function marks
// it as lock-protected.
var lockNames = map[string]struct{}{
	"Lock":      {},
	"RLock":     {},
	"Semaphore": {},
}

// sharedPatterns is the shared-mutable name heuristic: an identifier (or a
// one-level attribute like ctx.findings) matching one of these is assumed to
// be accumulator-style state reachable from concurrent closures.
var sharedPatterns = map[string]struct{}{
	"context":     {},
	"results":     {},
	"findings":    {},
	"output":      {},
	"errors":      {},
	"collected":   {},
	"items":       {},
	"data":        {},
	"accumulator": {},
	"sink":        {},
}

const (
	// defaultMaxCandidates bounds adjudication cost per file.
	defaultMaxCandidates = 5
	// snippetContext is the number of source lines shown on each side of the
	// gather line in the adjudication prompt.
	snippetContext = 5
)

// Candidate is one suspected unguarded parallel-launch site. It lives only
// until its verdict is decided.
type Candidate struct {
	FuncName   string
	FilePath   string
	GatherLine int
	SharedVars []string
	// HasLock is computed once per enclosing function: any lock construction
	// or async-with block anywhere in the body protects every gather call in
	// it. Call-site granularity is deliberately not attempted.
	HasLock bool
	Snippet string
}

// Detector scans parsed files for race candidates.
type Detector struct {
	maxCandidates int
}

// NewDetector returns a detector capping adjudication at maxCandidates per
// file; zero or negative selects the default.
func NewDetector(maxCandidates int) *Detector {
	if maxCandidates <= 0 {
		maxCandidates = defaultMaxCandidates
	}
	return &Detector{maxCandidates: maxCandidates}
}

// Detect returns the candidates found in one parsed file, in source order,
// capped at the detector's per-file limit. source is the file's text, used
// only for the prompt snippet.
func (d *Detector) Detect(file *ast.Node, filePath, source string) []Candidate {
	var candidates []Candidate
	lines := strings.Split(source, "\n")

	for _, fn := range ast.Functions(file) {
		gathers := gatherLines(fn)
		if len(gathers) == 0 {
			continue
		}
		hasLock := functionHasLock(fn)
		shared := sharedVars(fn)
		if hasLock && len(shared) == 0 {
			continue
		}
		for _, line := range gathers {
			candidates = append(candidates, Candidate{
				FuncName:   fn.Name,
				FilePath:   filePath,
				GatherLine: line,
				SharedVars: shared,
				HasLock:    hasLock,
				Snippet:    numberedSnippet(lines, line),
			})
		}
	}

	if len(candidates) > d.maxCandidates {
		candidates = candidates[:d.maxCandidates]
	}
	return candidates
}

// gatherLines returns the lines of every parallel-launch call in fn's body,
// in source order. Nested function definitions are not descended into; they
// are scanned as functions of their own.
func gatherLines(fn *ast.Node) []int {
	var out []int
	for _, stmt := range fn.Body() {
		ast.Walk(stmt, func(n *ast.Node) bool {
			if n.IsFunction() {
				return false
			}
			if n.Kind == ast.KindCall {
				name := lastSegment(ast.DottedName(n.Callee()))
				if _, ok := gatherCalls[name]; ok {
					out = append(out, n.Line)
				}
			}
			return true
		})
	}
	return out
}

// functionHasLock reports whether fn constructs a lock or contains an
// async-with block anywhere in its body.
func functionHasLock(fn *ast.Node) bool {
	found := false
	for _, stmt := range fn.Body() {
		ast.Walk(stmt, func(n *ast.Node) bool {
			if found || n.IsFunction() {
				return false
			}
			switch n.Kind {
			case ast.KindAsyncWith:
				found = true
				return false
			case ast.KindCall:
				name := lastSegment(ast.DottedName(n.Callee()))
				if _, ok := lockNames[name]; ok {
					found = true
					return false
				}
			}
			return true
		})
	}
	return found
}

// sharedVars collects identifiers and one-level attribute accesses matching
// the shared-mutable heuristic, deduplicated and sorted.
func sharedVars(fn *ast.Node) []string {
	seen := map[string]struct{}{}
	for _, stmt := range fn.Body() {
		ast.Walk(stmt, func(n *ast.Node) bool {
			switch n.Kind {
			case ast.KindName:
				if _, ok := sharedPatterns[n.Name]; ok {
					seen[n.Name] = struct{}{}
				}
			case ast.KindAttribute:
				if _, ok := sharedPatterns[n.Name]; ok {
					if base := ast.BaseName(n); base != "" {
						seen[base+"."+n.Name] = struct{}{}
					}
				}
			}
			return true
		})
	}
	out := make([]string, 0, len(seen))
	for v := range seen {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// numberedSnippet renders the source window around line with 1-based line
// numbers, the shape the adjudication prompt embeds.
func numberedSnippet(lines []string, line int) string {
	start := line - snippetContext
	if start < 1 {
		start = 1
	}
	end := line + snippetContext
	if end > len(lines) {
		end = len(lines)
	}
	var b strings.Builder
	for i := start; i <= end; i++ {
		fmt.Fprintf(&b, "%4d: %s\n", i, lines[i-1])
	}
	return b.String()
}

func lastSegment(dotted string) string {
	if i := strings.LastIndexByte(dotted, '.'); i >= 0 {
		return dotted[i+1:]
	}
	return dotted
}
