package taint

import "sort"

// SinkType categorizes the danger at a sink. Sanitization is tracked per
// sink type: clearing one label leaves the others intact.
type SinkType string

const (
	SQLValue      SinkType = "SQL-value"
	CMDArgument   SinkType = "CMD-argument"
	CodeExecution SinkType = "CODE-execution"
	HTMLContent   SinkType = "HTML-content"
	FilePath      SinkType = "FILE-path"
)

// LabelSet is the set of sink types a value is currently tainted for.
// The zero value is an empty (fully sanitized) set.
type LabelSet map[SinkType]struct{}

// NewLabelSet builds a set from the given types.
func NewLabelSet(types ...SinkType) LabelSet {
	s := make(LabelSet, len(types))
	for _, t := range types {
		s[t] = struct{}{}
	}
	return s
}

// Has reports membership.
func (s LabelSet) Has(t SinkType) bool {
	_, ok := s[t]
	return ok
}

// Empty reports whether every label has been cleared.
func (s LabelSet) Empty() bool { return len(s) == 0 }

// Clone returns an independent copy. Propagation never mutates a set that
// another binding may still reference.
func (s LabelSet) Clone() LabelSet {
	c := make(LabelSet, len(s))
	for t := range s {
		c[t] = struct{}{}
	}
	return c
}

// Union returns a new set containing the labels of both operands.
func (s LabelSet) Union(other LabelSet) LabelSet {
	c := s.Clone()
	for t := range other {
		c[t] = struct{}{}
	}
	return c
}

// Without returns a new set with t removed.
func (s LabelSet) Without(t SinkType) LabelSet {
	c := s.Clone()
	delete(c, t)
	return c
}

// Sorted returns the labels in lexical order for deterministic output.
func (s LabelSet) Sorted() []SinkType {
	out := make([]SinkType, 0, len(s))
	for t := range s {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
