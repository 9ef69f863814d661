package pipeline

import (
	"fmt"

	"github.com/JonMunkholm/emailclean/internal/dataset"
)

// FlagValue marks a record for exclusion. The comparison is exact and
// case-sensitive: "y" does not match.
const FlagValue = "Y"

// DropFlagged removes records whose flag column equals FlagValue. Without
// the column the stage is skipped with a notice.
func DropFlagged(d dataset.Dataset, col dataset.OptionalColumn) (dataset.Dataset, StageReport) {
	rep := StageReport{
		Stage:  StageFlag,
		Before: d.Len(),
		After:  d.Len(),
	}
	if !col.Present {
		rep.Skipped = true
		rep.Notice = fmt.Sprintf("column %s not present; no records removed", col.Name)
		return d, rep
	}

	out := d.Filter(func(r dataset.Record) bool {
		v := r[col.Index]
		return !(v.Valid && v.String == FlagValue)
	})

	rep.After = out.Len()
	rep.Removed = d.Len() - out.Len()
	rep.Flagged = rep.Removed
	return out, rep
}
