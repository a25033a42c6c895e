package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestViolationString(t *testing.T) {
	tests := []struct {
		name      string
		violation Violation
		expected  string
	}{
		{
			name: "full violation",
			violation: Violation{
				Policy:      "Subroutines::ProhibitExplicitReturnUndef",
				Severity:    5,
				Line:        42,
				Description: `"return" statement with explicit "undef"`,
				Explanation: "See page 199 of PBP",
				Source:      "return undef;",
			},
			expected: `Subroutines::ProhibitExplicitReturnUndef: "return" statement with explicit "undef" [return undef;]`,
		},
		{
			name: "line number does not affect rendering",
			violation: Violation{
				Policy:      "TestingAndDebugging::RequireUseStrict",
				Severity:    5,
				Line:        1,
				Description: "Code before strictures are enabled",
				Source:      "my $x = 1;",
			},
			expected: "TestingAndDebugging::RequireUseStrict: Code before strictures are enabled [my $x = 1;]",
		},
		{
			name:      "empty fields",
			violation: Violation{Policy: "Some::Policy"},
			expected:  "Some::Policy:  []",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.violation.String())
		})
	}
}

func TestViolationStringIgnoresLine(t *testing.T) {
	a := Violation{Policy: "P::Q", Line: 10, Description: "d", Source: "s"}
	b := Violation{Policy: "P::Q", Line: 99, Description: "d", Source: "s"}
	assert.Equal(t, a.String(), b.String())
}

func TestViolationSet(t *testing.T) {
	set := NewViolationSet()
	set.Add(Violation{Policy: "B::Second", Severity: 3, Line: 10})
	set.Add(Violation{Policy: "A::First", Severity: 5, Line: 20})
	set.Add(Violation{Policy: "B::Second", Severity: 3, Line: 30})

	assert.Equal(t, 3, set.Total())
	assert.Equal(t, 2, set.Count("B::Second"))
	assert.Equal(t, 1, set.Count("A::First"))
	assert.Equal(t, 0, set.Count("C::Absent"))

	assert.Equal(t, []string{"A::First", "B::Second"}, set.Policies())

	seconds := set.ViolationsFor("B::Second")
	require.Len(t, seconds, 2)
	assert.Equal(t, 10, seconds[0].Line)
	assert.Equal(t, 30, seconds[1].Line)

	all := set.All()
	require.Len(t, all, 3)
	assert.Equal(t, "B::Second", all[0].Policy)
	assert.Equal(t, "A::First", all[1].Policy)
	assert.Equal(t, "B::Second", all[2].Policy)
}

func TestViolationSetSeverityCounts(t *testing.T) {
	set := NewViolationSet()
	for _, sev := range []int{1, 5, 5, 3, 2, 5} {
		set.Add(Violation{Policy: "P", Severity: sev})
	}
	set.Add(Violation{Policy: "P", Severity: 0})
	set.Add(Violation{Policy: "P", Severity: 9})

	counts := set.SeverityCounts()
	assert.Equal(t, [5]int{1, 1, 1, 0, 3}, counts)
	assert.Equal(t, 8, set.Total(), "out-of-range severities still count toward the total")
}

func TestViolationSetStrings(t *testing.T) {
	set := NewViolationSet()
	set.Add(Violation{Policy: "P::One", Line: 1, Description: "d1", Source: "s1"})
	set.Add(Violation{Policy: "P::One", Line: 2, Description: "d1", Source: "s1"})
	set.Add(Violation{Policy: "P::Two", Line: 3, Description: "d2", Source: "s2"})

	rendered := set.Strings()
	assert.Len(t, rendered, 2, "identical text on different lines collapses")
	_, ok := rendered["P::One: d1 [s1]"]
	assert.True(t, ok)
	_, ok = rendered["P::Two: d2 [s2]"]
	assert.True(t, ok)
}

func TestEmptyViolationSet(t *testing.T) {
	set := NewViolationSet()
	assert.Equal(t, 0, set.Total())
	assert.Empty(t, set.Policies())
	assert.Empty(t, set.All())
	assert.Empty(t, set.Strings())
	assert.Equal(t, [5]int{}, set.SeverityCounts())
}
