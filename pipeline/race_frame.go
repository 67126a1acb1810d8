package pipeline

import (
	"context"

	"github.com/wardenhq/warden/finding"
	"github.com/wardenhq/warden/race"
)

// RaceFrame nominates gather candidates and has them adjudicated. Without an
// LLM client every verdict is unclear, so the frame degrades to reporting
// nothing.
type RaceFrame struct {
	detector    *race.Detector
	adjudicator *race.Adjudicator
}

// NewRaceFrame wires a detector and adjudicator together.
func NewRaceFrame(detector *race.Detector, adjudicator *race.Adjudicator) *RaceFrame {
	return &RaceFrame{detector: detector, adjudicator: adjudicator}
}

func (f *RaceFrame) Name() string { return "async_race" }

func (f *RaceFrame) Execute(ctx context.Context, file *CodeFile) (*FrameResult, error) {
	candidates := f.detector.Detect(file.Tree, file.Path, file.Content)
	var findings []finding.Finding
	if len(candidates) > 0 {
		findings = f.adjudicator.FindingsForFile(ctx, candidates)
	}
	return &FrameResult{Frame: f.Name(), Findings: findings}, nil
}
