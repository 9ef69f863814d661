package pipeline

import "github.com/JonMunkholm/emailclean/internal/dataset"

// FrequencyThreshold is the highest number of times an address may occur.
// Addresses seen more often are removed entirely, not truncated.
const FrequencyThreshold = 4

// DropFrequent removes every record whose address occurs more than
// threshold times in d.
func DropFrequent(d dataset.Dataset, email, threshold int) (dataset.Dataset, StageReport) {
	counts := make(map[string]int, d.Len())
	for _, v := range d.Column(email) {
		counts[v.String]++
	}

	over := 0
	for _, n := range counts {
		if n > threshold {
			over++
		}
	}

	out := d.Filter(func(r dataset.Record) bool {
		return counts[r[email].String] <= threshold
	})

	return out, StageReport{
		Stage:         StageFrequency,
		Before:        d.Len(),
		After:         out.Len(),
		Removed:       d.Len() - out.Len(),
		OverThreshold: over,
	}
}
