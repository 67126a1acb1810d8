package report

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/wardenhq/warden/finding"
	"github.com/wardenhq/warden/pipeline"
)

func sampleResult() *pipeline.Result {
	return &pipeline.Result{
		RunID: "run-1",
		Files: 1,
		Findings: []finding.Finding{
			{
				ID:         "TAINT-SQL-VALUE",
				Severity:   finding.SeverityHigh,
				Message:    "untrusted data from request.args.get reaches cursor.execute without sanitization",
				Location:   "app.py:3",
				Detail:     "flow: request.args.get (line 2) -> cursor.execute (line 3)",
				Line:       3,
				Code:       `cursor.execute(f"SELECT {uid}")`,
				Confidence: 0.9,
			},
			{
				ID:             "CONTRACT-ASYNC-RACE-RUN",
				Severity:       finding.SeverityHigh,
				Message:        "potential race condition in run",
				Location:       "frames.py:4",
				Line:           4,
				Confidence:     0.5,
				ReviewRequired: true,
			},
		},
	}
}

func TestWriteSarifProducesValidDocument(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	if err := WriteSarif(&buf, sampleResult()); err != nil {
		t.Fatalf("WriteSarif: %v", err)
	}

	var doc struct {
		Version string `json:"version"`
		Runs    []struct {
			Results []struct {
				RuleID  string `json:"ruleId"`
				Level   string `json:"level"`
				Message struct {
					Text string `json:"text"`
				} `json:"message"`
				Locations []struct {
					PhysicalLocation struct {
						ArtifactLocation struct {
							URI string `json:"uri"`
						} `json:"artifactLocation"`
						Region struct {
							StartLine int `json:"startLine"`
						} `json:"region"`
					} `json:"physicalLocation"`
				} `json:"locations"`
			} `json:"results"`
		} `json:"runs"`
	}
	if err := json.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if doc.Version != "2.1.0" {
		t.Errorf("version = %q", doc.Version)
	}
	if len(doc.Runs) != 1 || len(doc.Runs[0].Results) != 2 {
		t.Fatalf("runs/results shape wrong: %+v", doc.Runs)
	}
	first := doc.Runs[0].Results[0]
	if first.RuleID != "TAINT-SQL-VALUE" || first.Level != "error" {
		t.Errorf("result = %+v", first)
	}
	loc := first.Locations[0].PhysicalLocation
	if loc.ArtifactLocation.URI != "app.py" || loc.Region.StartLine != 3 {
		t.Errorf("location = %+v", loc)
	}
}

func TestWriteConsoleRendersFindings(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	WriteConsole(&buf, sampleResult())
	out := buf.String()

	for _, want := range []string{
		"2 finding(s)",
		"TAINT-SQL-VALUE",
		"app.py:3",
		"review required",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("console output missing %q:\n%s", want, out)
		}
	}
}
