package testutils

// SampleCodeSQLInjection exercises request-data-to-SQL flows.
var SampleCodeSQLInjection = []CodeSample{
	// Positive: direct f-string interpolation into execute
	{`
def get(request, cursor):
    uid = request.args.get('id')
    cursor.execute(f"SELECT * FROM users WHERE id = {uid}")
`, 1},

	// Positive: concatenation instead of f-string
	{`
def get(request, cursor):
    name = request.form['name']
    query = "SELECT * FROM users WHERE name = '" + name + "'"
    cursor.execute(query)
`, 1},

	// Negative: constant query
	{`
def get(cursor):
    cursor.execute("SELECT * FROM users WHERE id = 1")
`, 0},

	// Negative: parameter not sourced from request data
	{`
def get(cursor, uid):
    cursor.execute(f"SELECT * FROM users WHERE id = {uid}")
`, 0},
}

// SampleCodeCommandInjection exercises shell sinks.
var SampleCodeCommandInjection = []CodeSample{
	// Positive: os.system with interpolated input
	{`
import os

def run(request):
    target = request.args.get('host')
    os.system(f"ping -c1 {target}")
`, 1},

	// Negative: quoted via shlex
	{`
import os, shlex

def run(request):
    target = request.args.get('host')
    safe = shlex.quote(target)
    os.system(f"ping -c1 {safe}")
`, 0},
}

// SampleCodeCrossSite exercises HTML sinks and the per-label sanitizer rule:
// html.escape clears HTML-content but not SQL-value.
var SampleCodeCrossSite = []CodeSample{
	// Positive: raw render of user input
	{`
def page(request):
    name = request.args.get('name')
    return render_template_string(f"<h1>Hello {name}</h1>")
`, 1},

	// Negative: escaped before render
	{`
import html

def page(request):
    name = request.args.get('name')
    safe = html.escape(name)
    return render_template_string(f"<h1>Hello {safe}</h1>")
`, 0},
}

// SampleCodeInterprocedural exercises multi-hop flows within one file.
var SampleCodeInterprocedural = []CodeSample{
	// Positive: three-hop source -> helper -> helper -> sink
	{`
def handler(request, cursor):
    uid = request.args.get('id')
    fetch(cursor, uid)

def fetch(cursor, value):
    query_db(cursor, value)

def query_db(cursor, v):
    cursor.execute(f"SELECT * FROM t WHERE id = {v}")
`, 1},

	// Positive: taint returned from a helper
	{`
def read_input(request):
    return request.args.get('q')

def handler(request, cursor):
    q = read_input(request)
    cursor.execute(f"SELECT * FROM t WHERE q = {q}")
`, 1},
}

// SampleCodeAsyncRace exercises gather-candidate detection.
var SampleCodeAsyncRace = []CodeSample{
	// Positive: unguarded gather mutating shared context
	{`
import asyncio

async def run(ctx, frames):
    await asyncio.gather(*[f.execute(ctx) for f in frames])
    return ctx.findings
`, 1},

	// Negative: same shape protected by an async lock
	{`
import asyncio

async def run(ctx, frames):
    lock = asyncio.Lock()
    async with lock:
        await asyncio.gather(*[f.execute(ctx) for f in frames])
    return ctx.findings
`, 0},
}
