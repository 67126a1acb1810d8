// Package testutils holds the Python source fixtures shared by the analysis
// tests.
package testutils

// CodeSample is one source fixture with the number of findings the analysis
// is expected to produce for it.
type CodeSample struct {
	Code     string
	Findings int
}
