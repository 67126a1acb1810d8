// Package finding defines the externally visible unit of a detected issue
// and the cross-frame aggregation rules applied before findings leave the
// engine.
package finding

import (
	"sort"
	"strconv"
	"strings"
)

// Severity of a finding. The ordering critical > high > medium > low drives
// deduplication arbitration.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

var severityRank = map[Severity]int{
	SeverityCritical: 4,
	SeverityHigh:     3,
	SeverityMedium:   2,
	SeverityLow:      1,
}

// Rank returns the arbitration rank of s. Unknown severities rank lowest.
func (s Severity) Rank() int { return severityRank[s] }

// Finding is one detected issue. Frames produce findings; the verification
// service may attach Confidence, ReviewRequired, VerificationSource and
// VerificationMeta; everything else is set at emission and not mutated after.
type Finding struct {
	ID        string   `json:"id"`
	Severity  Severity `json:"severity"`
	Message   string   `json:"message"`
	Location  string   `json:"location"` // "path:line"
	Detail    string   `json:"detail,omitempty"`
	Line      int      `json:"line"`
	IsBlocker bool     `json:"is_blocker"`

	// Code is the snippet the finding points at; consumed by verification
	// heuristics and LLM prompts.
	Code string `json:"code,omitempty"`

	Confidence         float64           `json:"confidence,omitempty"`
	ReviewRequired     bool              `json:"review_required,omitempty"`
	VerificationSource string            `json:"verification_source,omitempty"`
	Metadata           map[string]string `json:"metadata,omitempty"`
}

// Deduplicate merges duplicate findings. Two findings are duplicates exactly
// when their location strings are equal; IDs and messages are ignored. Among
// duplicates the highest severity survives, ties keeping the first
// encountered. Findings at distinct locations are never merged.
//
// The function is pure: it performs no I/O and does not mutate its input.
func Deduplicate(findings []Finding) []Finding {
	if len(findings) == 0 {
		return nil
	}

	index := map[string]int{}
	out := make([]Finding, 0, len(findings))
	for _, f := range findings {
		i, seen := index[f.Location]
		if !seen {
			index[f.Location] = len(out)
			out = append(out, f)
			continue
		}
		if f.Severity.Rank() > out[i].Severity.Rank() {
			out[i] = f
		}
	}
	return out
}

// SortByLocation orders findings by file path, then line number, then ID,
// giving callers a completion-order-independent final list. Lines compare
// numerically, so app.py:2 sorts before app.py:10.
func SortByLocation(findings []Finding) {
	sort.SliceStable(findings, func(i, j int) bool {
		pi, li := splitLocation(findings[i].Location)
		pj, lj := splitLocation(findings[j].Location)
		if pi != pj {
			return pi < pj
		}
		if li != lj {
			return li < lj
		}
		return findings[i].ID < findings[j].ID
	})
}

// splitLocation separates a "path:line" location. Locations without a
// numeric line suffix compare whole, with line 0.
func splitLocation(loc string) (string, int) {
	i := strings.LastIndex(loc, ":")
	if i < 0 {
		return loc, 0
	}
	line, err := strconv.Atoi(loc[i+1:])
	if err != nil {
		return loc, 0
	}
	return loc[:i], line
}
