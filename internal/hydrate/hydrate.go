// Package hydrate merges field-selected fetches of a line's item table into
// the rows already held in memory.
//
// A fetch returns, for every item of the line, only the fields that were
// asked for. Merging overwrites those fields and keeps every other field
// that was loaded before, so a table can be filled in column by column.
package hydrate

import (
	"github.com/cascade-ml/cascade-ui/internal/models"
)

// Placeholder is written into default fields that no fetch has filled yet.
const Placeholder = ""

// Result is the outcome of one item-table fetch. A non-nil Err means the
// fetch failed and Items must be ignored.
type Result struct {
	Items []models.ItemRow
	Err   error
}

// OK reports whether the fetch succeeded.
func (r Result) OK() bool {
	return r.Err == nil
}

// Fields returns the field set to request for the given selection: each name
// once, in the order it was first selected. Empty names are dropped.
func Fields(selected ...string) []string {
	seen := make(map[string]struct{}, len(selected))
	out := make([]string, 0, len(selected))
	for _, f := range selected {
		if f == "" {
			continue
		}
		if _, dup := seen[f]; dup {
			continue
		}
		seen[f] = struct{}{}
		out = append(out, f)
	}
	return out
}

// Hydrate applies a fetch result to existing rows. A failed fetch returns a
// copy of existing unchanged; a successful one is merged with Merge.
func Hydrate(existing []models.ItemRow, res Result, defaults []string) []models.ItemRow {
	if !res.OK() {
		return models.CloneRows(existing)
	}
	return Merge(existing, res.Items, defaults)
}

// Merge combines existing rows with fetched rows index by index.
//
// Row i of the result starts from existing[i] (or an empty row past the end
// of existing), takes every field present in fetched[i], and then gets
// Placeholder for each default field it still lacks. The result has exactly
// len(fetched) rows: extra existing rows are dropped. No row of the result
// aliases a row of either input.
func Merge(existing, fetched []models.ItemRow, defaults []string) []models.ItemRow {
	out := make([]models.ItemRow, len(fetched))
	for i, patch := range fetched {
		var row models.ItemRow
		if i < len(existing) && existing[i] != nil {
			row = existing[i].Clone()
		} else {
			row = make(models.ItemRow, len(patch)+len(defaults))
		}
		for field, value := range patch {
			row[field] = models.CloneValue(value)
		}
		for _, field := range defaults {
			if _, ok := row[field]; !ok {
				row[field] = Placeholder
			}
		}
		out[i] = row
	}
	return out
}
