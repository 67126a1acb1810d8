package taint

import (
	"fmt"
	"testing"

	"github.com/wardenhq/warden/ast"
)

// generateStressTree builds a module with n handler functions, each flowing
// request data through a shared helper chain into a SQL sink. It stresses
// both intraprocedural propagation and repeated interprocedural binding of
// the same callees.
func generateStressTree(n int) *ast.Node {
	mod := &ast.Node{Kind: ast.KindModule, Line: 1}
	line := 1
	for i := 0; i < n; i++ {
		fnLine := line
		src := call(attr(attr(name("request", fnLine+1), "args", fnLine+1), "get", fnLine+1), fnLine+1)
		mod.Children = append(mod.Children, &ast.Node{
			Kind: ast.KindFunction,
			Name: fmt.Sprintf("handler_%d", i),
			Line: fnLine,
			Children: []*ast.Node{
				assign(name("uid", fnLine+1), src, fnLine+1),
				exprStmt(call(name("persist", fnLine+2), fnLine+2, name("uid", fnLine+2))),
			},
		})
		line += 4
	}
	mod.Children = append(mod.Children,
		def("persist", []string{"value"},
			exprStmt(call(name("store", line+1), line+1, name("value", line+1))),
		),
		def("store", []string{"v"},
			exprStmt(cursorExecute(fstr(line+4, name("v", line+4)), line+4)),
		),
	)
	return mod
}

func BenchmarkAnalyzeFileInterprocedural(b *testing.B) {
	tree := generateStressTree(180)
	analyzer, err := NewAnalyzer(DefaultCatalog(), Config{}, nil)
	if err != nil {
		b.Fatalf("NewAnalyzer: %v", err)
	}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		paths := analyzer.AnalyzeFile(tree)
		if len(paths) == 0 {
			b.Fatal("stress tree produced no paths")
		}
	}
}

func BenchmarkAnalyzeFileIntraprocedural(b *testing.B) {
	mod := &ast.Node{Kind: ast.KindModule, Line: 1}
	for i := 0; i < 200; i++ {
		line := i*3 + 1
		mod.Children = append(mod.Children, def(fmt.Sprintf("get_%d", i), nil,
			assign(name("uid", line+1), requestArgsGet(line+1), line+1),
			exprStmt(cursorExecute(name("uid", line+2), line+2)),
		))
	}
	analyzer, err := NewAnalyzer(DefaultCatalog(), Config{}, nil)
	if err != nil {
		b.Fatalf("NewAnalyzer: %v", err)
	}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if paths := analyzer.AnalyzeFile(mod); len(paths) != 200 {
			b.Fatalf("expected 200 paths, got %d", len(paths))
		}
	}
}
