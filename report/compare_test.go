package report

import (
	"bytes"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crittrail/crittrail/diff"
	"github.com/crittrail/crittrail/models"
)

func init() {
	color.NoColor = true
}

func sampleResult() diff.Result {
	return diff.Result{
		Added: []diff.PolicyViolations{
			{
				Policy: "ValuesAndExpressions::ProhibitMagicNumbers",
				Violations: []models.Violation{
					{Policy: "ValuesAndExpressions::ProhibitMagicNumbers", Severity: 2, Line: 27,
						Description: "Unnamed numeric literals make code less maintainable",
						Explanation: "See page 55 of PBP", Source: "my $timeout = 42;"},
				},
			},
			{
				Policy: "Subroutines::ProhibitExplicitReturnUndef",
				Violations: []models.Violation{
					{Policy: "Subroutines::ProhibitExplicitReturnUndef", Severity: 5, Line: 14,
						Description: `"return" statement with explicit "undef"`,
						Explanation: "See page 199 of PBP", Source: "return undef;"},
				},
			},
		},
	}
}

func TestCompareWriterPolicyCounts(t *testing.T) {
	var buf bytes.Buffer
	w := NewCompareWriter(&buf, 1)

	w.File("lib/Foo.pm", sampleResult(), models.NewViolationSet())

	out := buf.String()
	assert.Contains(t, out, "lib/Foo.pm")
	assert.Contains(t, out, "Subroutines::ProhibitExplicitReturnUndef")
	assert.Contains(t, out, "×1 [severity 5]")
	assert.NotContains(t, out, "line 14")
	assert.NotContains(t, out, "return undef;")
}

func TestCompareWriterVerboseAddsLines(t *testing.T) {
	var buf bytes.Buffer
	w := NewCompareWriter(&buf, 2)

	w.File("lib/Foo.pm", sampleResult(), models.NewViolationSet())

	out := buf.String()
	assert.Contains(t, out, `line 14: "return" statement with explicit "undef"`)
	assert.NotContains(t, out, "return undef;")
	assert.NotContains(t, out, "See page 199 of PBP")
}

func TestCompareWriterVeryVerboseAddsSource(t *testing.T) {
	var buf bytes.Buffer
	w := NewCompareWriter(&buf, 3)

	w.File("lib/Foo.pm", sampleResult(), models.NewViolationSet())

	out := buf.String()
	assert.Contains(t, out, "return undef;")
	assert.Contains(t, out, "See page 199 of PBP")
}

func TestCompareWriterOrdersBySeverity(t *testing.T) {
	var buf bytes.Buffer
	w := NewCompareWriter(&buf, 1)

	w.File("lib/Foo.pm", sampleResult(), models.NewViolationSet())

	out := buf.String()
	high := strings.Index(out, "Subroutines::ProhibitExplicitReturnUndef")
	low := strings.Index(out, "ValuesAndExpressions::ProhibitMagicNumbers")
	require.GreaterOrEqual(t, high, 0)
	require.GreaterOrEqual(t, low, 0)
	assert.Less(t, high, low)
}

func TestCompareWriterFiltersMovedRemovals(t *testing.T) {
	moved := models.Violation{
		Policy: "CodeLayout::RequireTidyCode", Severity: 1, Line: 10,
		Description: "Code is not tidy", Source: "sub f{1}",
	}
	gone := models.Violation{
		Policy: "BuiltinFunctions::ProhibitStringyEval", Severity: 5, Line: 22,
		Description: `Expression form of "eval"`, Source: `eval "$code";`,
	}
	result := diff.Result{
		Removed: []diff.PolicyViolations{
			{Policy: moved.Policy, Violations: []models.Violation{moved}},
			{Policy: gone.Policy, Violations: []models.Violation{gone}},
		},
	}

	current := models.NewViolationSet()
	stillThere := moved
	stillThere.Line = 45
	current.Add(stillThere)

	var buf bytes.Buffer
	w := NewCompareWriter(&buf, 1)
	w.File("lib/Foo.pm", result, current)

	out := buf.String()
	assert.NotContains(t, out, "CodeLayout::RequireTidyCode")
	assert.Contains(t, out, "BuiltinFunctions::ProhibitStringyEval")
}

func TestCompareWriterQuietFileAndSummary(t *testing.T) {
	var buf bytes.Buffer
	w := NewCompareWriter(&buf, 1)

	w.File("lib/Unchanged.pm", diff.Result{}, models.NewViolationSet())
	assert.Empty(t, buf.String())

	w.Summary()
	assert.Contains(t, buf.String(), "no violation changes")
}

func TestCompareWriterSummaryTotals(t *testing.T) {
	var buf bytes.Buffer
	w := NewCompareWriter(&buf, 1)

	w.File("lib/Foo.pm", sampleResult(), models.NewViolationSet())
	w.File("lib/Bar.pm", diff.Result{
		Removed: []diff.PolicyViolations{
			{
				Policy: "Modules::ProhibitMultiplePackages",
				Violations: []models.Violation{
					{Policy: "Modules::ProhibitMultiplePackages", Severity: 4, Line: 3,
						Description: "Multiple \"package\" declarations"},
				},
			},
		},
	}, models.NewViolationSet())
	w.Summary()

	out := buf.String()
	assert.Contains(t, out, "2 new violation(s) across 2 file(s)")
	assert.Contains(t, out, "1 violation(s) resolved")
}
