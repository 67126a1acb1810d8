package taint

// Source is the origin of one flow of untrusted data. Immutable once created.
type Source struct {
	// Name is the dotted pattern that matched ("request.args.get").
	Name string
	// NodeType is the syntactic shape of the origin ("call", "attribute",
	// "subscript", "name").
	NodeType string
	// Line is the 1-based source line of the origin.
	Line int
	// Confidence is the heuristic confidence assigned at recognition time.
	Confidence float64
}

// Sink is the dangerous consumption point of a flow.
type Sink struct {
	// Name is the dotted call name at the sink ("cursor.execute").
	Name string
	// Type is the danger category of the sink.
	Type SinkType
	// Line is the 1-based source line of the sink call.
	Line int
}

// Path is one discovered source→sink flow.
//
// Labels is the canonical sanitization state: the flow is sanitized for the
// sink exactly when Sink.Type is absent from Labels. The legacy boolean view
// exists only as the NewLegacyPath construction path; it is folded into the
// label set there and never stored separately.
type Path struct {
	Source          Source
	Sink            Sink
	Transformations []string
	Sanitizers      []string
	Labels          LabelSet
	Confidence      float64
}

// Sanitized reports whether the flow reaches the sink with the sink's own
// label cleared. An empty label set means fully sanitized.
func (p *Path) Sanitized() bool {
	return !p.Labels.Has(p.Sink.Type)
}

// NewLegacyPath is the single backward-compatibility entry point for callers
// that still carry a boolean sanitized flag instead of a label set. The flag
// is converted to the canonical representation at construction: true yields
// an empty label set, false yields a set containing the sink's type.
func NewLegacyPath(source Source, sink Sink, sanitized bool, confidence float64) Path {
	labels := NewLabelSet()
	if !sanitized {
		labels = NewLabelSet(sink.Type)
	}
	return Path{
		Source:     source,
		Sink:       sink,
		Labels:     labels,
		Confidence: confidence,
	}
}
