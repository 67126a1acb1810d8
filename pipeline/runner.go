package pipeline

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"

	"github.com/wardenhq/warden/finding"
	"github.com/wardenhq/warden/parser"
)

// maxFindingsPerFrame caps what a single frame may contribute per run; a
// frame that exceeds it is almost always misfiring on generated code.
const maxFindingsPerFrame = 1000

// Verifier is the verification stage as the runner sees it. verify.Service
// implements it; a nil Verifier skips the stage.
type Verifier interface {
	Verify(ctx context.Context, findings []finding.Finding) []finding.Finding
}

// Result is one completed run.
type Result struct {
	RunID    string
	Files    int
	Findings []finding.Finding
}

// Runner executes every frame over every file, verifies, deduplicates and
// orders the merged findings.
type Runner struct {
	frames   []Frame
	verifier Verifier
	log      hclog.Logger
}

// NewRunner builds a runner. verifier and log may be nil.
func NewRunner(frames []Frame, verifier Verifier, log hclog.Logger) *Runner {
	if log == nil {
		log = hclog.NewNullLogger()
	}
	return &Runner{frames: frames, verifier: verifier, log: log}
}

// LoadPython parses one Python file into a CodeFile.
func LoadPython(ctx context.Context, path, content string) (*CodeFile, error) {
	tree, err := parser.ParsePython(ctx, []byte(content))
	if err != nil {
		return nil, fmt.Errorf("pipeline: parse %s: %w", path, err)
	}
	return &CodeFile{Path: path, Language: "python", Content: content, Tree: tree}, nil
}

// Run analyzes the given files. Per-file frame errors are logged and skipped;
// the run itself only fails on context cancellation.
func (r *Runner) Run(ctx context.Context, files []*CodeFile) (*Result, error) {
	runID := uuid.NewString()
	log := r.log.With("run_id", runID)

	perFrame := map[string][]finding.Finding{}
	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for _, frame := range r.frames {
			res, err := frame.Execute(ctx, file)
			if err != nil {
				log.Warn("frame_failed", "frame", frame.Name(), "file", file.Path, "error", err)
				continue
			}
			perFrame[frame.Name()] = append(perFrame[frame.Name()], res.Findings...)
		}
	}

	var merged []finding.Finding
	for _, frame := range r.frames {
		fs := perFrame[frame.Name()]
		if len(fs) > maxFindingsPerFrame {
			log.Warn("frame_findings_truncated",
				"frame", frame.Name(),
				"total", len(fs),
				"kept", maxFindingsPerFrame,
				"severities", severityDistribution(fs))
			fs = fs[:maxFindingsPerFrame]
		}
		merged = append(merged, fs...)
	}

	if r.verifier != nil {
		merged = r.verifier.Verify(ctx, merged)
	}

	merged = finding.Deduplicate(merged)
	finding.SortByLocation(merged)

	log.Info("run_complete", "files", len(files), "findings", len(merged))
	return &Result{RunID: runID, Files: len(files), Findings: merged}, nil
}

func severityDistribution(fs []finding.Finding) string {
	counts := map[finding.Severity]int{}
	for _, f := range fs {
		counts[f.Severity]++
	}
	return fmt.Sprintf("critical=%d high=%d medium=%d low=%d",
		counts[finding.SeverityCritical], counts[finding.SeverityHigh],
		counts[finding.SeverityMedium], counts[finding.SeverityLow])
}
