package verify

import (
	"regexp"
	"strings"

	zxcvbn "github.com/ccojocar/zxcvbn-go"

	"github.com/wardenhq/warden/finding"
)

// Stage-one heuristics: obvious false positives rejected before any cache or
// LLM cost is paid. Each predicate looks only at the finding's code snippet.

const (
	// secretEntropyThreshold is the minimum zxcvbn entropy for a quoted
	// literal to count as a plausible secret. Below it the "hardcoded
	// secret" finding is rejected as noise (e.g. "changeme", "example").
	secretEntropyThreshold = 70.0
	truncateLength         = 16
)

var (
	secretFindingPattern = regexp.MustCompile(`(?i)secret|credential|password|token|api.?key`)
	quotedLiteralPattern = regexp.MustCompile(`["']([^"']{4,})["']`)
	typeHintPattern      = regexp.MustCompile(`^\s*\w+\s*:\s*[\w\[\]., ]+$`)
)

// rejectReason classifies a heuristic rejection for logging; empty means the
// finding survives to the next stage.
func rejectReason(f finding.Finding) string {
	code := strings.TrimSpace(f.Code)
	if code == "" {
		return ""
	}
	switch {
	case isCommentOrDocstring(code):
		return "comment_or_docstring"
	case isImport(code):
		return "import_statement"
	case isTypeHintOnly(code):
		return "type_hint_only"
	case isPatternDefinition(code):
		return "pattern_definition"
	case isLowEntropySecret(f, code):
		return "low_entropy_secret"
	}
	return ""
}

func isCommentOrDocstring(code string) bool {
	return strings.HasPrefix(code, "#") ||
		strings.HasPrefix(code, `"""`) ||
		strings.HasPrefix(code, "'''") ||
		strings.HasPrefix(code, "//") ||
		strings.HasPrefix(code, "/*")
}

func isImport(code string) bool {
	return strings.HasPrefix(code, "import ") || strings.HasPrefix(code, "from ")
}

// isTypeHintOnly matches bare annotation statements like "results: list[str]".
func isTypeHintOnly(code string) bool {
	return !strings.Contains(code, "=") && typeHintPattern.MatchString(code)
}

// isPatternDefinition recognizes entries of rule-definition data structures:
// a quoted literal inside a tuple/list element that mentions dangerous calls
// is defining a detection pattern, not using dangerous code.
func isPatternDefinition(code string) bool {
	if !strings.HasPrefix(code, "(") && !strings.HasPrefix(code, "[") &&
		!strings.HasPrefix(code, `"`) && !strings.HasPrefix(code, "'") {
		return false
	}
	trimmed := strings.TrimRight(code, " \t")
	return strings.HasSuffix(trimmed, ",") || strings.HasSuffix(trimmed, "),") ||
		strings.HasSuffix(trimmed, "],")
}

// isLowEntropySecret applies only to secret-flavored findings: if every
// quoted literal in the snippet is low-entropy, the "secret" is a
// placeholder and the finding is rejected.
func isLowEntropySecret(f finding.Finding, code string) bool {
	if !secretFindingPattern.MatchString(f.ID) && !secretFindingPattern.MatchString(f.Message) {
		return false
	}
	matches := quotedLiteralPattern.FindAllStringSubmatch(code, -1)
	if len(matches) == 0 {
		return false
	}
	for _, m := range matches {
		candidate := m[1]
		if len(candidate) > truncateLength {
			candidate = candidate[:truncateLength]
		}
		if zxcvbn.PasswordStrength(candidate, nil).Entropy >= secretEntropyThreshold {
			return false
		}
	}
	return true
}

// isLinterSourced reports whether the finding came from a deterministic
// linter; such findings need no LLM verification.
func isLinterSourced(f finding.Finding) bool {
	return f.Metadata["source"] == "linter"
}
