// Package pipeline runs validation frames over parsed files, verifies the
// raw findings, and aggregates the final set.
package pipeline

import (
	"context"

	"github.com/wardenhq/warden/ast"
	"github.com/wardenhq/warden/finding"
)

// CodeFile is one unit of analysis. Tree is the parsed form; Content is kept
// for snippet extraction in prompts and reports.
type CodeFile struct {
	Path     string
	Language string
	Content  string
	Tree     *ast.Node
}

// FrameResult is what one frame produced for one file.
type FrameResult struct {
	Frame    string
	Findings []finding.Finding
}

// Frame is one validation pass. Frames must be safe for concurrent use
// across files; any per-file state lives in Execute's stack.
type Frame interface {
	Name() string
	Execute(ctx context.Context, file *CodeFile) (*FrameResult, error)
}
