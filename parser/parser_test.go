package parser

import (
	"context"
	"testing"

	"github.com/wardenhq/warden/ast"
)

func parse(t *testing.T, src string) *ast.Node {
	t.Helper()
	tree, err := ParsePython(context.Background(), []byte(src))
	if err != nil {
		t.Fatalf("ParsePython: %v", err)
	}
	if tree.Kind != ast.KindModule {
		t.Fatalf("root kind = %s, want module", tree.Kind)
	}
	return tree
}

func TestParseFunctionShape(t *testing.T) {
	t.Parallel()
	tree := parse(t, `def get(request, cursor):
    uid = request.args.get('id')
    cursor.execute(uid)
`)

	fns := ast.Functions(tree)
	if len(fns) != 1 {
		t.Fatalf("found %d functions", len(fns))
	}
	fn := fns[0]
	if fn.Name != "get" || fn.Kind != ast.KindFunction {
		t.Fatalf("fn = %s %s", fn.Kind, fn.Name)
	}
	params := fn.Params()
	if len(params) != 2 || params[0].Name != "request" || params[1].Name != "cursor" {
		t.Fatalf("params = %+v", params)
	}

	body := fn.Body()
	if len(body) != 2 {
		t.Fatalf("body statements = %d, want 2", len(body))
	}
	if body[0].Kind != ast.KindAssign {
		t.Fatalf("first statement kind = %s, want assign", body[0].Kind)
	}
	if got := ast.DottedName(body[0].Children[0]); got != "uid" {
		t.Errorf("assign target = %q", got)
	}
	if got := ast.DottedName(body[0].Children[1]); got != "request.args.get" {
		t.Errorf("assign value dotted = %q", got)
	}
	if body[0].Line != 2 {
		t.Errorf("assign line = %d, want 2", body[0].Line)
	}
}

func TestParseAsyncConstructs(t *testing.T) {
	t.Parallel()
	tree := parse(t, `import asyncio

async def run(ctx, frames):
    await asyncio.gather(*[f.execute(ctx) for f in frames])
    async with lock:
        pass
`)

	fns := ast.Functions(tree)
	if len(fns) != 1 || fns[0].Kind != ast.KindAsyncFunction {
		t.Fatalf("async function not detected: %+v", fns)
	}

	var sawAwait, sawAsyncWith bool
	var gatherLine int
	ast.Walk(tree, func(n *ast.Node) bool {
		switch n.Kind {
		case ast.KindAwait:
			sawAwait = true
		case ast.KindAsyncWith:
			sawAsyncWith = true
		case ast.KindCall:
			if ast.DottedName(n.Callee()) == "asyncio.gather" {
				gatherLine = n.Line
			}
		}
		return true
	})
	if !sawAwait {
		t.Error("await not converted")
	}
	if !sawAsyncWith {
		t.Error("async with not converted")
	}
	if gatherLine != 4 {
		t.Errorf("gather line = %d, want 4", gatherLine)
	}
}

func TestParseFStringInterpolation(t *testing.T) {
	t.Parallel()
	tree := parse(t, `def q(cursor, uid):
    cursor.execute(f"SELECT * FROM users WHERE id = {uid}")
`)

	var fstring *ast.Node
	ast.Walk(tree, func(n *ast.Node) bool {
		if n.Kind == ast.KindFString {
			fstring = n
		}
		return true
	})
	if fstring == nil {
		t.Fatal("f-string not converted")
	}
	if len(fstring.Children) != 1 || fstring.Children[0].Name != "uid" {
		t.Fatalf("interpolations = %+v", fstring.Children)
	}
}

func TestParsePlainStringIsConstant(t *testing.T) {
	t.Parallel()
	tree := parse(t, `x = "hello"
`)
	var constant *ast.Node
	ast.Walk(tree, func(n *ast.Node) bool {
		if n.Kind == ast.KindConstant {
			constant = n
		}
		return true
	})
	if constant == nil {
		t.Fatal("string literal not converted to constant")
	}
	if constant.Value != `"hello"` {
		t.Errorf("constant value = %q", constant.Value)
	}
}

func TestParseClassMethods(t *testing.T) {
	t.Parallel()
	tree := parse(t, `class Repo:
    def save(self, value):
        self.db.execute(value)
`)

	var class *ast.Node
	ast.Walk(tree, func(n *ast.Node) bool {
		if n.Kind == ast.KindClass {
			class = n
		}
		return true
	})
	if class == nil || class.Name != "Repo" {
		t.Fatalf("class = %+v", class)
	}
	fns := ast.Functions(class)
	if len(fns) != 1 || fns[0].Name != "save" {
		t.Fatalf("methods = %+v", fns)
	}
	params := fns[0].Params()
	if len(params) != 2 || params[0].Name != "self" {
		t.Fatalf("params = %+v", params)
	}
}

func TestParseKeywordArguments(t *testing.T) {
	t.Parallel()
	tree := parse(t, `run(cmd, shell=True)
`)
	var kw *ast.Node
	ast.Walk(tree, func(n *ast.Node) bool {
		if n.Kind == ast.KindKeywordArg {
			kw = n
		}
		return true
	})
	if kw == nil || kw.Name != "shell" {
		t.Fatalf("keyword arg = %+v", kw)
	}
}

func TestParseDecoratedFunctionUnwraps(t *testing.T) {
	t.Parallel()
	tree := parse(t, `@app.route("/")
def index(request):
    return request.args
`)
	fns := ast.Functions(tree)
	if len(fns) != 1 || fns[0].Name != "index" {
		t.Fatalf("decorated function not unwrapped: %+v", fns)
	}
}
