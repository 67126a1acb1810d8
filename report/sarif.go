// Package report renders a run's findings for downstream consumers: SARIF
// for code-scanning uploads, plain text for terminals.
package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/owenrumney/go-sarif/v2/sarif"

	"github.com/wardenhq/warden/finding"
	"github.com/wardenhq/warden/pipeline"
)

const toolName = "warden"
const toolURI = "https://github.com/wardenhq/warden"

// WriteSarif renders the result as SARIF 2.1.0.
func WriteSarif(w io.Writer, result *pipeline.Result) error {
	rep, err := sarif.New(sarif.Version210)
	if err != nil {
		return fmt.Errorf("report: create sarif: %w", err)
	}

	run := sarif.NewRunWithInformationURI(toolName, toolURI)
	for _, f := range result.Findings {
		rule := run.AddRule(f.ID).
			WithDescription(f.Message).
			WithDefaultConfiguration(&sarif.ReportingConfiguration{
				Level: sarifLevel(f.Severity),
			})

		location := sarif.NewLocation().WithPhysicalLocation(
			sarif.NewPhysicalLocation().
				WithArtifactLocation(sarif.NewArtifactLocation().WithUri(pathOf(f))).
				WithRegion(sarif.NewRegion().WithStartLine(f.Line)),
		)

		message := f.Message
		if f.Detail != "" {
			message = message + "\n\n" + f.Detail
		}
		res := sarif.NewRuleResult(rule.ID).
			WithMessage(sarif.NewTextMessage(message)).
			WithLevel(sarifLevel(f.Severity)).
			WithLocations([]*sarif.Location{location})
		run.AddResult(res)
	}
	rep.AddRun(run)

	return rep.PrettyWrite(w)
}

func sarifLevel(s finding.Severity) string {
	switch s {
	case finding.SeverityCritical, finding.SeverityHigh:
		return "error"
	case finding.SeverityMedium:
		return "warning"
	default:
		return "note"
	}
}

// pathOf strips the line suffix off a "path:line" location.
func pathOf(f finding.Finding) string {
	if i := strings.LastIndexByte(f.Location, ':'); i >= 0 {
		return f.Location[:i]
	}
	return f.Location
}
