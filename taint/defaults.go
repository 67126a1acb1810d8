package taint

// Section is one sink family's contribution to the default catalog:
// the dangerous calls of that family plus the sanitizers that neutralize it.
type Section struct {
	Type       SinkType
	Sinks      []string
	Sanitizers []string
}

// SQLInjection covers query execution surfaces.
func SQLInjection() Section {
	return Section{
		Type: SQLValue,
		Sinks: []string{
			"cursor.execute",
			"cursor.executemany",
			"connection.execute",
			"db.execute",
			"session.execute",
			"engine.execute",
		},
		Sanitizers: []string{
			"parameterized_query",
			"sqlalchemy.text",
			"prepared_statement",
		},
	}
}

// CommandInjection covers shell and subprocess launch surfaces.
func CommandInjection() Section {
	return Section{
		Type: CMDArgument,
		Sinks: []string{
			"os.system",
			"os.popen",
			"subprocess.run",
			"subprocess.call",
			"subprocess.Popen",
		},
		Sanitizers: []string{
			"shlex.quote",
			"shlex.split",
		},
	}
}

// CodeInjection covers dynamic evaluation. No sanitizer makes eval safe.
func CodeInjection() Section {
	return Section{
		Type: CodeExecution,
		Sinks: []string{
			"eval",
			"exec",
			"compile",
		},
	}
}

// CrossSiteScripting covers template/markup rendering surfaces.
func CrossSiteScripting() Section {
	return Section{
		Type: HTMLContent,
		Sinks: []string{
			"render_template_string",
			"Markup",
		},
		Sanitizers: []string{
			"html.escape",
			"markupsafe.escape",
			"bleach.clean",
		},
	}
}

// PathTraversal covers filesystem access by attacker-influenced paths.
func PathTraversal() Section {
	return Section{
		Type: FilePath,
		Sinks: []string{
			"open",
			"pathlib.Path",
		},
		Sanitizers: []string{
			"os.path.basename",
			"pathlib.PurePath",
		},
	}
}

// defaultSources are the externally-controlled data origins tracked out of
// the box.
var defaultSources = []string{
	"request.args",
	"request.form",
	"request.json",
	"request.data",
	"request.values",
	"request.cookies",
	"request.headers",
	"request.get_json",
	"request.files",
	"input",
	"sys.argv",
	"os.environ",
	"os.getenv",
	"stdin",
	"sys.stdin",
}

// DefaultCatalog assembles the built-in sections. Callers typically follow
// with LoadOverrides to union project-specific entries on top.
func DefaultCatalog() *Catalog {
	c := &Catalog{
		Sources:    make(map[string]struct{}, len(defaultSources)),
		Sinks:      map[string]SinkType{},
		Sanitizers: map[SinkType]map[string]struct{}{},
	}
	for _, src := range defaultSources {
		c.Sources[src] = struct{}{}
	}
	for _, section := range []Section{
		SQLInjection(),
		CommandInjection(),
		CodeInjection(),
		CrossSiteScripting(),
		PathTraversal(),
	} {
		c.Sanitizers[section.Type] = map[string]struct{}{}
		for _, sink := range section.Sinks {
			c.Sinks[sink] = section.Type
		}
		for _, san := range section.Sanitizers {
			c.Sanitizers[section.Type][san] = struct{}{}
		}
	}
	return c
}
