// Package diff classifies how the violation set of a file changed between
// two analysis runs. It never touches persisted rows; callers rebuild
// ephemeral sets first.
package diff

import (
	"github.com/samber/lo"

	"github.com/crittrail/crittrail/models"
)

// PolicyViolations carries one classified policy together with every
// violation of that policy from the run that tripped the classification.
type PolicyViolations struct {
	Policy     string             `json:"policy"`
	Violations []models.Violation `json:"violations"`
}

// Result is the classified delta between a baseline run and a current run.
// Policies are sorted; a policy never appears on both sides.
type Result struct {
	Added   []PolicyViolations `json:"added,omitempty"`
	Removed []PolicyViolations `json:"removed,omitempty"`
}

func (r Result) Empty() bool {
	return len(r.Added) == 0 && len(r.Removed) == 0
}

// AddedTotal counts violations across all added policies.
func (r Result) AddedTotal() int {
	return lo.SumBy(r.Added, func(pv PolicyViolations) int { return len(pv.Violations) })
}

// RemovedTotal counts violations across all removed policies.
func (r Result) RemovedTotal() int {
	return lo.SumBy(r.Removed, func(pv PolicyViolations) int { return len(pv.Violations) })
}

// Diff compares two runs per policy by count, not by instance. A policy in
// current is added only when its count strictly exceeds the baseline count;
// a policy in baseline is removed only when its count strictly exceeds the
// current count. Equal counts report no change even when the individual
// findings differ. The side that trips carries its full violation list for
// that policy, not the delta. Nil sets are treated as empty.
func Diff(baseline, current *models.ViolationSet) Result {
	if baseline == nil {
		baseline = models.NewViolationSet()
	}
	if current == nil {
		current = models.NewViolationSet()
	}

	var result Result
	for _, policy := range current.Policies() {
		if baseline.Count(policy) >= current.Count(policy) {
			continue
		}
		result.Added = append(result.Added, PolicyViolations{
			Policy:     policy,
			Violations: current.ViolationsFor(policy),
		})
	}
	for _, policy := range baseline.Policies() {
		if current.Count(policy) >= baseline.Count(policy) {
			continue
		}
		result.Removed = append(result.Removed, PolicyViolations{
			Policy:     policy,
			Violations: baseline.ViolationsFor(policy),
		})
	}
	return result
}
