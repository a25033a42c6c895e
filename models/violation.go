package models

import (
	"fmt"
	"sort"
)

// Violation is one static-analysis finding reported by the engine.
// Immutable once produced; owned by the analysis run that produced it.
type Violation struct {
	// Policy is the namespaced identifier of the rule violated,
	// e.g. Subroutines::ProhibitExplicitReturnUndef.
	Policy      string `json:"policy"`
	Severity    int    `json:"severity"`
	Line        int    `json:"line"`
	Description string `json:"description"`
	Explanation string `json:"explanation"`
	// Source is the offending source fragment.
	Source string `json:"source,omitempty"`
}

// String renders the violation without its line number so that two findings
// differing only in position compare equal. Used for identity-by-text when
// narrowing the removed-display list, not for report output.
func (v Violation) String() string {
	return fmt.Sprintf("%s: %s [%s]", v.Policy, v.Description, v.Source)
}

// ViolationSet groups the findings of one (file, revision) analysis run by
// policy. Built fresh per analysis invocation; never mutated after the run
// that built it finishes adding.
type ViolationSet struct {
	byPolicy map[string][]Violation
	all      []Violation
}

func NewViolationSet() *ViolationSet {
	return &ViolationSet{byPolicy: make(map[string][]Violation)}
}

func (s *ViolationSet) Add(v Violation) {
	s.byPolicy[v.Policy] = append(s.byPolicy[v.Policy], v)
	s.all = append(s.all, v)
}

// Count returns how many violations of the given policy the run produced.
func (s *ViolationSet) Count(policy string) int {
	return len(s.byPolicy[policy])
}

// Policies returns every policy present in the set, sorted.
func (s *ViolationSet) Policies() []string {
	policies := make([]string, 0, len(s.byPolicy))
	for p := range s.byPolicy {
		policies = append(policies, p)
	}
	sort.Strings(policies)
	return policies
}

// ViolationsFor returns the violations of one policy in the order the engine
// reported them.
func (s *ViolationSet) ViolationsFor(policy string) []Violation {
	return s.byPolicy[policy]
}

// All returns every violation in engine-report order.
func (s *ViolationSet) All() []Violation {
	return s.all
}

func (s *ViolationSet) Total() int {
	return len(s.all)
}

// SeverityCounts returns the severity histogram; index 0 counts severity 1.
// Severities outside 1..5 are counted in Total but not in the histogram.
func (s *ViolationSet) SeverityCounts() [5]int {
	var counts [5]int
	for _, v := range s.all {
		if v.Severity >= 1 && v.Severity <= 5 {
			counts[v.Severity-1]++
		}
	}
	return counts
}

// Strings returns the set of canonical renderings, used to test whether a
// violation from another run still exists here by text.
func (s *ViolationSet) Strings() map[string]struct{} {
	rendered := make(map[string]struct{}, len(s.all))
	for _, v := range s.all {
		rendered[v.String()] = struct{}{}
	}
	return rendered
}

// FileMetrics carries the per-file statistics the engine reports alongside
// violations. Zero values mean the engine did not report them.
type FileMetrics struct {
	Lines     int     `json:"lines"`
	AvgMcCabe float64 `json:"avg_mccabe"`
	Subs      int     `json:"subs"`
}
