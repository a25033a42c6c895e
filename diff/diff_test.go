package diff_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/crittrail/crittrail/diff"
	"github.com/crittrail/crittrail/models"
)

func setOf(policyCounts map[string]int) *models.ViolationSet {
	set := models.NewViolationSet()
	for policy, count := range policyCounts {
		for i := 0; i < count; i++ {
			set.Add(models.Violation{
				Policy:      policy,
				Severity:    3,
				Line:        i + 1,
				Description: "finding " + policy,
			})
		}
	}
	return set
}

var _ = Describe("Diff", func() {
	It("reports no change for identical sets", func() {
		set := setOf(map[string]int{"PolicyA": 2, "PolicyB": 1})
		result := diff.Diff(set, set)
		Expect(result.Empty()).To(BeTrue())
		Expect(result.Added).To(BeEmpty())
		Expect(result.Removed).To(BeEmpty())
	})

	It("classifies grown, new and gone policies", func() {
		baseline := setOf(map[string]int{"PolicyA": 2, "PolicyB": 1})
		current := setOf(map[string]int{"PolicyA": 3, "PolicyC": 1})

		result := diff.Diff(baseline, current)

		Expect(result.Added).To(HaveLen(2))
		Expect(result.Added[0].Policy).To(Equal("PolicyA"))
		Expect(result.Added[0].Violations).To(HaveLen(3), "the full current list is carried, not the delta")
		Expect(result.Added[1].Policy).To(Equal("PolicyC"))
		Expect(result.Added[1].Violations).To(HaveLen(1))

		Expect(result.Removed).To(HaveLen(1))
		Expect(result.Removed[0].Policy).To(Equal("PolicyB"))
		Expect(result.Removed[0].Violations).To(HaveLen(1))
	})

	It("treats an unchanged count as no change even when instances differ", func() {
		baseline := models.NewViolationSet()
		baseline.Add(models.Violation{Policy: "PolicyA", Line: 1, Source: "old line"})
		baseline.Add(models.Violation{Policy: "PolicyA", Line: 2, Source: "another old line"})

		current := models.NewViolationSet()
		current.Add(models.Violation{Policy: "PolicyA", Line: 7, Source: "completely new"})
		current.Add(models.Violation{Policy: "PolicyA", Line: 9, Source: "also new"})

		Expect(diff.Diff(baseline, current).Empty()).To(BeTrue())
	})

	It("never lists a policy on both sides", func() {
		baseline := setOf(map[string]int{"PolicyA": 1, "PolicyB": 3, "PolicyC": 2})
		current := setOf(map[string]int{"PolicyA": 4, "PolicyB": 1, "PolicyC": 2})

		result := diff.Diff(baseline, current)

		seen := map[string]int{}
		for _, pv := range result.Added {
			seen[pv.Policy]++
		}
		for _, pv := range result.Removed {
			seen[pv.Policy]++
		}
		for policy, count := range seen {
			Expect(count).To(Equal(1), "policy %s classified twice", policy)
		}
	})

	It("marks everything added against an empty baseline", func() {
		current := setOf(map[string]int{"PolicyA": 2, "PolicyB": 1})
		result := diff.Diff(models.NewViolationSet(), current)
		Expect(result.Added).To(HaveLen(2))
		Expect(result.Removed).To(BeEmpty())
		Expect(result.AddedTotal()).To(Equal(3))
	})

	It("marks everything removed against an empty current run", func() {
		baseline := setOf(map[string]int{"PolicyA": 2})
		result := diff.Diff(baseline, models.NewViolationSet())
		Expect(result.Added).To(BeEmpty())
		Expect(result.Removed).To(HaveLen(1))
		Expect(result.RemovedTotal()).To(Equal(2))
	})

	It("treats nil sets as empty", func() {
		current := setOf(map[string]int{"PolicyA": 1})
		Expect(diff.Diff(nil, current).AddedTotal()).To(Equal(1))
		Expect(diff.Diff(current, nil).RemovedTotal()).To(Equal(1))
		Expect(diff.Diff(nil, nil).Empty()).To(BeTrue())
	})

	It("orders classified policies lexically", func() {
		current := setOf(map[string]int{"Zeta::Rule": 1, "Alpha::Rule": 1, "Mid::Rule": 1})
		result := diff.Diff(models.NewViolationSet(), current)

		policies := make([]string, 0, len(result.Added))
		for _, pv := range result.Added {
			policies = append(policies, pv.Policy)
		}
		Expect(policies).To(Equal([]string{"Alpha::Rule", "Mid::Rule", "Zeta::Rule"}))
	})

	It("requires a strictly greater current count for added", func() {
		baseline := setOf(map[string]int{"PolicyA": 3})
		current := setOf(map[string]int{"PolicyA": 3})
		Expect(diff.Diff(baseline, current).Added).To(BeEmpty())

		current = setOf(map[string]int{"PolicyA": 4})
		result := diff.Diff(baseline, current)
		Expect(result.Added).To(HaveLen(1))
		Expect(result.Added[0].Violations).To(HaveLen(4))
	})

	It("requires a strictly greater baseline count for removed", func() {
		baseline := setOf(map[string]int{"PolicyA": 3})
		current := setOf(map[string]int{"PolicyA": 2})

		result := diff.Diff(baseline, current)
		Expect(result.Removed).To(HaveLen(1))
		Expect(result.Removed[0].Violations).To(HaveLen(3), "the full baseline list is carried")
		Expect(result.Added).To(BeEmpty())
	})
})
