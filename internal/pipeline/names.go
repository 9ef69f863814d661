package pipeline

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/JonMunkholm/emailclean/internal/dataset"
)

// FillToken replaces names that are missing or unusable.
const FillToken = "ESTIMADO"

// NameRule selects how the "MA" abbreviation is expanded to "MARIA".
type NameRule string

const (
	// NameRuleSubstring replaces every occurrence of "MA" anywhere in the
	// value, so "MARCOS" becomes "MARIARCOS". This is the legacy behavior.
	NameRuleSubstring NameRule = "substring"

	// NameRuleValue only rewrites a value that is exactly "MA".
	NameRuleValue NameRule = "value"

	// NameRuleToken rewrites whitespace-delimited tokens equal to "MA".
	NameRuleToken NameRule = "token"

	// NameRuleOff disables the expansion.
	NameRuleOff NameRule = "off"
)

// ParseNameRule converts a configuration string to a NameRule.
// An empty string selects NameRuleSubstring.
func ParseNameRule(s string) (NameRule, error) {
	switch r := NameRule(strings.ToLower(strings.TrimSpace(s))); r {
	case "":
		return NameRuleSubstring, nil
	case NameRuleSubstring, NameRuleValue, NameRuleToken, NameRuleOff:
		return r, nil
	default:
		return "", fmt.Errorf("unknown name rule %q (want substring, value, token or off)", s)
	}
}

const (
	abbrev   = "MA"
	expanded = "MARIA"
)

// NormalizeName cleans one display name:
//
//  1. trim surrounding whitespace
//  2. empty becomes absent
//  3. anything but ASCII letters and whitespace makes the whole value absent
//  4. strip "." characters
//  5. absent becomes FillToken
//  6. expand "MA" to "MARIA" according to rule
//  7. keep the first whitespace-delimited token
//
// FillToken itself is never expanded.
func NormalizeName(v dataset.Value, rule NameRule) dataset.Value {
	s, ok := cleanName(v)
	if !ok {
		return dataset.Text(FillToken)
	}
	if s != FillToken {
		s = expandAbbrev(s, rule)
	}
	return dataset.Text(firstToken(s))
}

// cleanName runs steps 1-4. ok is false when the value ends up absent.
func cleanName(v dataset.Value) (string, bool) {
	if !v.Valid {
		return "", false
	}
	s := strings.TrimSpace(v.String)
	if s == "" {
		return "", false
	}
	for _, r := range s {
		if !isNameRune(r) {
			return "", false
		}
	}
	s = strings.ReplaceAll(s, ".", "")
	if strings.TrimSpace(s) == "" {
		return "", false
	}
	return s, true
}

func isNameRune(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || unicode.IsSpace(r)
}

func expandAbbrev(s string, rule NameRule) string {
	switch rule {
	case NameRuleSubstring:
		return strings.ReplaceAll(s, abbrev, expanded)
	case NameRuleValue:
		if s == abbrev {
			return expanded
		}
		return s
	case NameRuleToken:
		fields := strings.Fields(s)
		for i, f := range fields {
			if f == abbrev {
				fields[i] = expanded
			}
		}
		return strings.Join(fields, " ")
	default:
		return s
	}
}

func firstToken(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return s
	}
	return fields[0]
}

// NormalizeNames applies NormalizeName to the names column when the schema
// has one. Without it the stage is skipped with a notice.
func NormalizeNames(d dataset.Dataset, col dataset.OptionalColumn, rule NameRule) (dataset.Dataset, StageReport) {
	rep := StageReport{
		Stage:  StageNames,
		Before: d.Len(),
		After:  d.Len(),
	}
	if !col.Present {
		rep.Skipped = true
		rep.Notice = fmt.Sprintf("column %s not present; names left unchanged", col.Name)
		return d, rep
	}

	out := d.MapColumn(col.Index, func(v dataset.Value) dataset.Value {
		return NormalizeName(v, rule)
	})
	for _, v := range out.Column(col.Index) {
		if v.String == FillToken {
			rep.Filled++
		}
	}
	return out, rep
}
