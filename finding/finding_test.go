package finding_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/wardenhq/warden/finding"
)

var _ = Describe("Severity", func() {
	It("ranks critical above high above medium above low", func() {
		Expect(finding.SeverityCritical.Rank()).To(BeNumerically(">", finding.SeverityHigh.Rank()))
		Expect(finding.SeverityHigh.Rank()).To(BeNumerically(">", finding.SeverityMedium.Rank()))
		Expect(finding.SeverityMedium.Rank()).To(BeNumerically(">", finding.SeverityLow.Rank()))
	})

	It("ranks unknown severities lowest", func() {
		Expect(finding.Severity("bogus").Rank()).To(BeZero())
	})
})

var _ = Describe("Deduplicate", func() {
	mk := func(id string, sev finding.Severity, location string) finding.Finding {
		return finding.Finding{ID: id, Severity: sev, Location: location, Message: "m"}
	}

	It("returns nil for no findings", func() {
		Expect(finding.Deduplicate(nil)).To(BeNil())
	})

	It("keeps the highest severity among same-location duplicates", func() {
		out := finding.Deduplicate([]finding.Finding{
			mk("A", finding.SeverityMedium, "app.py:10"),
			mk("B", finding.SeverityCritical, "app.py:10"),
		})
		Expect(out).To(HaveLen(1))
		Expect(out[0].Severity).To(Equal(finding.SeverityCritical))
		Expect(out[0].ID).To(Equal("B"))
	})

	It("keeps the first encountered on severity ties", func() {
		out := finding.Deduplicate([]finding.Finding{
			mk("first", finding.SeverityHigh, "app.py:10"),
			mk("second", finding.SeverityHigh, "app.py:10"),
		})
		Expect(out).To(HaveLen(1))
		Expect(out[0].ID).To(Equal("first"))
	})

	It("ignores rule differences when locations match", func() {
		out := finding.Deduplicate([]finding.Finding{
			mk("TAINT-SQL-VALUE", finding.SeverityHigh, "app.py:10"),
			mk("CONTRACT-ASYNC-RACE-RUN", finding.SeverityHigh, "app.py:10"),
		})
		Expect(out).To(HaveLen(1))
	})

	It("never merges distinct locations, even with identical rules", func() {
		out := finding.Deduplicate([]finding.Finding{
			mk("A", finding.SeverityHigh, "app.py:10"),
			mk("A", finding.SeverityHigh, "app.py:11"),
		})
		Expect(out).To(HaveLen(2))
	})

	It("preserves first-encounter order of surviving locations", func() {
		out := finding.Deduplicate([]finding.Finding{
			mk("A", finding.SeverityLow, "b.py:2"),
			mk("B", finding.SeverityLow, "a.py:1"),
			mk("C", finding.SeverityCritical, "b.py:2"),
		})
		Expect(out).To(HaveLen(2))
		Expect(out[0].Location).To(Equal("b.py:2"))
		Expect(out[0].ID).To(Equal("C"))
		Expect(out[1].Location).To(Equal("a.py:1"))
	})

	It("does not mutate its input", func() {
		in := []finding.Finding{
			mk("A", finding.SeverityMedium, "app.py:10"),
			mk("B", finding.SeverityCritical, "app.py:10"),
		}
		finding.Deduplicate(in)
		Expect(in[0].ID).To(Equal("A"))
		Expect(in[0].Severity).To(Equal(finding.SeverityMedium))
	})
})

var _ = Describe("SortByLocation", func() {
	It("orders by path, then line, then ID", func() {
		fs := []finding.Finding{
			{ID: "B", Location: "b.py:2"},
			{ID: "A", Location: "a.py:9"},
			{ID: "Z", Location: "b.py:2"},
		}
		finding.SortByLocation(fs)
		Expect(fs[0].Location).To(Equal("a.py:9"))
		Expect(fs[1].ID).To(Equal("B"))
		Expect(fs[2].ID).To(Equal("Z"))
	})

	It("compares lines numerically, not lexically", func() {
		fs := []finding.Finding{
			{ID: "A", Location: "app.py:10"},
			{ID: "B", Location: "app.py:2"},
			{ID: "C", Location: "app.py:1"},
		}
		finding.SortByLocation(fs)
		Expect(fs[0].Location).To(Equal("app.py:1"))
		Expect(fs[1].Location).To(Equal("app.py:2"))
		Expect(fs[2].Location).To(Equal("app.py:10"))
	})

	It("tolerates locations without a line suffix", func() {
		fs := []finding.Finding{
			{ID: "A", Location: "b.py:3"},
			{ID: "B", Location: "a.py"},
		}
		finding.SortByLocation(fs)
		Expect(fs[0].Location).To(Equal("a.py"))
	})
})
