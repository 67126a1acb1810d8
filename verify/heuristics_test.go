package verify

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/wardenhq/warden/finding"
)

func TestRejectReason(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name string
		f    finding.Finding
		want string
	}{
		{
			"python_comment",
			finding.Finding{ID: "TAINT-SQL-VALUE", Code: `# cursor.execute(query)`},
			"comment_or_docstring",
		},
		{
			"docstring",
			finding.Finding{ID: "TAINT-SQL-VALUE", Code: `"""Runs cursor.execute for the caller."""`},
			"comment_or_docstring",
		},
		{
			"import_statement",
			finding.Finding{ID: "TAINT-CMD-ARGUMENT", Code: `import subprocess`},
			"import_statement",
		},
		{
			"from_import",
			finding.Finding{ID: "TAINT-CMD-ARGUMENT", Code: `from os import system`},
			"import_statement",
		},
		{
			"type_hint_only",
			finding.Finding{ID: "TAINT-SQL-VALUE", Code: `results: list[str]`},
			"type_hint_only",
		},
		{
			"pattern_definition_tuple",
			finding.Finding{ID: "TAINT-CODE-EXECUTION", Code: `("eval", "dangerous dynamic evaluation"),`},
			"pattern_definition",
		},
		{
			"placeholder_secret",
			finding.Finding{ID: "HARDCODED-SECRET", Message: "hardcoded secret", Code: `password = "changeme"`},
			"low_entropy_secret",
		},
		{
			"real_usage_survives",
			finding.Finding{ID: "TAINT-SQL-VALUE", Code: `cursor.execute(f"SELECT {uid}")`},
			"",
		},
		{
			"assignment_with_annotation_survives",
			finding.Finding{ID: "TAINT-SQL-VALUE", Code: `query: str = build(uid)`},
			"",
		},
		{
			"empty_code_survives",
			finding.Finding{ID: "TAINT-SQL-VALUE", Code: ""},
			"",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, rejectReason(tc.f))
		})
	}
}

func TestHighEntropySecretSurvives(t *testing.T) {
	t.Parallel()
	f := finding.Finding{
		ID:      "HARDCODED-SECRET",
		Message: "hardcoded secret",
		Code:    `api_key = "x9J2mQ7pL4vR8nT3"`,
	}
	assert.Empty(t, rejectReason(f), "high-entropy literal must not be rejected")
}

func TestEntropyCheckIgnoresNonSecretFindings(t *testing.T) {
	t.Parallel()
	f := finding.Finding{
		ID:      "TAINT-SQL-VALUE",
		Message: "untrusted data reaches cursor.execute",
		Code:    `name = "changeme"`,
	}
	assert.Empty(t, rejectReason(f), "entropy heuristic only applies to secret findings")
}

func TestIsLinterSourced(t *testing.T) {
	t.Parallel()
	assert.True(t, isLinterSourced(finding.Finding{Metadata: map[string]string{"source": "linter"}}))
	assert.False(t, isLinterSourced(finding.Finding{Metadata: map[string]string{"source": "taint"}}))
	assert.False(t, isLinterSourced(finding.Finding{}))
}
