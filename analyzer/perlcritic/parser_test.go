package perlcritic

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crittrail/crittrail/models"
)

const violationRun = "14\t5\tSubroutines::ProhibitExplicitReturnUndef\t\"return\" statement with explicit \"undef\"\tSee page 199 of PBP\treturn undef;\n" +
	"27\t2\tValuesAndExpressions::ProhibitMagicNumbers\tUnnamed numeric literals make code less maintainable\tSee page 55 of PBP\tmy $timeout = 42;\n" +
	"31\t2\tValuesAndExpressions::ProhibitMagicNumbers\tUnnamed numeric literals make code less maintainable\tSee page 55 of PBP\tsleep 300;\n" +
	"\n" +
	"1 files.\n" +
	"\n" +
	"3 subroutines/methods.\n" +
	"25 statements.\n" +
	"\n" +
	"120 lines, consisting of:\n" +
	"    12 blank lines.\n" +
	"    8 comment lines.\n" +
	"    0 data lines.\n" +
	"    95 lines of Perl code.\n" +
	"    5 lines of POD.\n" +
	"\n" +
	"Average McCabe score of subroutines was 4.33.\n" +
	"\n" +
	"3 violations.\n" +
	"Violations per file was 3.000.\n" +
	"Violations per statement was 0.120.\n" +
	"Violations per line of code was 0.025.\n" +
	"\n" +
	"1 severity 5 violations.\n" +
	"2 severity 2 violations.\n"

const cleanRun = "lib/Acme/Widget.pm source OK\n" +
	"\n" +
	"1 files.\n" +
	"\n" +
	"7 subroutines/methods.\n" +
	"88 statements.\n" +
	"\n" +
	"310 lines, consisting of:\n" +
	"    40 blank lines.\n" +
	"    22 comment lines.\n" +
	"    0 data lines.\n" +
	"    230 lines of Perl code.\n" +
	"    18 lines of POD.\n" +
	"\n" +
	"Average McCabe score of subroutines was 2.71.\n" +
	"\n" +
	"0 violations.\n"

func TestParseOutputViolationsAndStatistics(t *testing.T) {
	set, metrics, err := parseOutput(violationRun)
	require.NoError(t, err)

	assert.Equal(t, 3, set.Total())
	assert.Equal(t, 1, set.Count("Subroutines::ProhibitExplicitReturnUndef"))
	assert.Equal(t, 2, set.Count("ValuesAndExpressions::ProhibitMagicNumbers"))

	first := set.ViolationsFor("Subroutines::ProhibitExplicitReturnUndef")[0]
	assert.Equal(t, models.Violation{
		Policy:      "Subroutines::ProhibitExplicitReturnUndef",
		Severity:    5,
		Line:        14,
		Description: `"return" statement with explicit "undef"`,
		Explanation: "See page 199 of PBP",
		Source:      "return undef;",
	}, first)

	assert.Equal(t, 120, metrics.Lines)
	assert.Equal(t, 3, metrics.Subs)
	assert.InDelta(t, 4.33, metrics.AvgMcCabe, 0.0001)
}

func TestParseOutputCleanRun(t *testing.T) {
	set, metrics, err := parseOutput(cleanRun)
	require.NoError(t, err)

	assert.Equal(t, 0, set.Total())
	assert.Empty(t, set.Policies())
	assert.Equal(t, 310, metrics.Lines)
	assert.Equal(t, 7, metrics.Subs)
	assert.InDelta(t, 2.71, metrics.AvgMcCabe, 0.0001)
}

func TestParseOutputWithoutStatistics(t *testing.T) {
	out := "5\t3\tRegularExpressions::RequireExtendedFormatting\tRegular expression without \"/x\" flag\tSee page 236 of PBP\tif ($name =~ m/^\\d+$/) {\n"

	set, metrics, err := parseOutput(out)
	require.NoError(t, err)

	assert.Equal(t, 1, set.Total())
	assert.Equal(t, models.FileMetrics{}, metrics)
}

func TestParseOutputSourceKeepsEmbeddedTabs(t *testing.T) {
	out := "9\t4\tInputOutput::ProhibitTwoArgOpen\tTwo-argument \"open\" used\tSee page 207 of PBP\topen FH,\t\"$file\";\n"

	set, _, err := parseOutput(out)
	require.NoError(t, err)

	v := set.All()[0]
	assert.Equal(t, "open FH,\t\"$file\";", v.Source)
}

func TestParseOutputMalformedLineNumber(t *testing.T) {
	out := "abc\t3\tSome::Policy\tdesc\texpl\tsource\n"

	_, _, err := parseOutput(out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line number")
}

func TestParseOutputSeverityOutOfRange(t *testing.T) {
	out := "10\t9\tSome::Policy\tdesc\texpl\tsource\n"

	_, _, err := parseOutput(out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "out of range")
}

func TestParseOutputCarriageReturns(t *testing.T) {
	out := "3\t1\tCodeLayout::RequireTidyCode\tCode is not tidy\tSee page 33 of PBP\tsub f{1}\r\n" +
		"\r\n" +
		"42 lines, consisting of:\r\n"

	set, metrics, err := parseOutput(out)
	require.NoError(t, err)

	assert.Equal(t, 1, set.Total())
	assert.Equal(t, "sub f{1}", set.All()[0].Source)
	assert.Equal(t, 42, metrics.Lines)
}

func TestParseOutputEmpty(t *testing.T) {
	set, metrics, err := parseOutput("")
	require.NoError(t, err)

	assert.Equal(t, 0, set.Total())
	assert.Equal(t, models.FileMetrics{}, metrics)
}
