package pipeline

import (
	"strings"
	"unicode"

	"github.com/JonMunkholm/emailclean/internal/dataset"
)

// DropNullEmails removes every record whose address is absent.
func DropNullEmails(d dataset.Dataset, email int) (dataset.Dataset, StageReport) {
	out := d.Filter(func(r dataset.Record) bool {
		return r[email].Valid
	})
	return out, StageReport{
		Stage:   StageNullGuard,
		Before:  d.Len(),
		After:   out.Len(),
		Removed: d.Len() - out.Len(),
	}
}

// NormalizeAddress lowercases s, trims it and removes any whitespace left
// inside it, in that order.
func NormalizeAddress(s string) string {
	s = strings.TrimSpace(strings.ToLower(s))
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}

// NormalizeAddresses applies NormalizeAddress to every present address.
func NormalizeAddresses(d dataset.Dataset, email int) (dataset.Dataset, StageReport) {
	out := d.MapColumn(email, func(v dataset.Value) dataset.Value {
		if !v.Valid {
			return v
		}
		return dataset.Text(NormalizeAddress(v.String))
	})
	return out, StageReport{
		Stage:  StageNormalize,
		Before: d.Len(),
		After:  out.Len(),
	}
}
