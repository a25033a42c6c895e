package report

import (
	"fmt"
	"io"
	"sort"

	"github.com/charmbracelet/lipgloss"
	"github.com/fatih/color"
	"github.com/samber/lo"

	"github.com/crittrail/crittrail/diff"
	"github.com/crittrail/crittrail/models"
)

// CompareWriter renders per-file comparison sections followed by a closing
// summary. Verbosity 1 prints policy counts, 2 adds each violation's line
// and description, 3 and above adds the source fragment and explanation.
type CompareWriter struct {
	w         io.Writer
	verbosity int

	changedFiles int
	added        int
	removed      int
}

func NewCompareWriter(w io.Writer, verbosity int) *CompareWriter {
	if verbosity < 1 {
		verbosity = 1
	}
	return &CompareWriter{w: w, verbosity: verbosity}
}

// File renders one file's classified delta. Removed groups are first
// filtered against the current run: a violation whose rendered form still
// occurs anywhere in the current set is suppressed, which keeps violations
// that merely moved lines quiet. The added side is shown unfiltered. Files
// with nothing left to show print nothing.
func (c *CompareWriter) File(path string, result diff.Result, current *models.ViolationSet) {
	if result.Empty() {
		return
	}

	added := orderBySeverity(result.Added)
	removed := orderBySeverity(filterRemoved(result.Removed, current))

	if len(added) == 0 && len(removed) == 0 {
		return
	}

	fileStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	addedStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	removedStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("70"))

	c.changedFiles++
	fmt.Fprintf(c.w, "%s\n", fileStyle.Render(path))

	for _, group := range added {
		c.added += len(group.Violations)
		c.renderGroup("+", addedStyle, group)
	}
	for _, group := range removed {
		c.removed += len(group.Violations)
		c.renderGroup("-", removedStyle, group)
	}
	fmt.Fprintln(c.w)
}

func (c *CompareWriter) renderGroup(sign string, style lipgloss.Style, group diff.PolicyViolations) {
	fmt.Fprintf(c.w, "  %s %s ×%d [severity %d]\n",
		sign, style.Render(group.Policy), len(group.Violations), maxSeverity(group.Violations))

	if c.verbosity < 2 {
		return
	}

	detailStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("243"))
	for _, v := range group.Violations {
		fmt.Fprintf(c.w, "      %s\n",
			detailStyle.Render(fmt.Sprintf("line %d: %s", v.Line, v.Description)))
		if c.verbosity < 3 {
			continue
		}
		if v.Source != "" {
			fmt.Fprintf(c.w, "        %s\n", detailStyle.Render(v.Source))
		}
		if v.Explanation != "" {
			fmt.Fprintf(c.w, "        %s\n", detailStyle.Render(v.Explanation))
		}
	}
}

// Summary prints the closing totals. Call it once after the last File.
func (c *CompareWriter) Summary() {
	if c.added == 0 && c.removed == 0 {
		fmt.Fprintf(c.w, "%s\n", color.GreenString("✓ no violation changes"))
		return
	}
	if c.added > 0 {
		fmt.Fprintf(c.w, "%s\n",
			color.RedString("✗ %d new violation(s) across %d file(s)", c.added, c.changedFiles))
	}
	if c.removed > 0 {
		fmt.Fprintf(c.w, "%s\n", color.GreenString("✓ %d violation(s) resolved", c.removed))
	}
}

func filterRemoved(groups []diff.PolicyViolations, current *models.ViolationSet) []diff.PolicyViolations {
	if current == nil {
		return groups
	}
	present := current.Strings()

	var out []diff.PolicyViolations
	for _, group := range groups {
		kept := lo.Filter(group.Violations, func(v models.Violation, _ int) bool {
			_, ok := present[v.String()]
			return !ok
		})
		if len(kept) > 0 {
			out = append(out, diff.PolicyViolations{Policy: group.Policy, Violations: kept})
		}
	}
	return out
}

// orderBySeverity sorts policy groups most severe first, policy name as the
// tiebreak, without touching the caller's slice.
func orderBySeverity(groups []diff.PolicyViolations) []diff.PolicyViolations {
	ordered := make([]diff.PolicyViolations, len(groups))
	copy(ordered, groups)
	sort.SliceStable(ordered, func(i, j int) bool {
		si, sj := maxSeverity(ordered[i].Violations), maxSeverity(ordered[j].Violations)
		if si != sj {
			return si > sj
		}
		return ordered[i].Policy < ordered[j].Policy
	})
	return ordered
}

func maxSeverity(violations []models.Violation) int {
	max := 0
	for _, v := range violations {
		if v.Severity > max {
			max = v.Severity
		}
	}
	return max
}
