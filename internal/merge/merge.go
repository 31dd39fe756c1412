// Package merge implements the merge engine: it folds per-adapter record
// lists into one deduplicated, ordered view. Conflicts between copies of
// the same id resolve newest-wins on the createdAt timestamp; the output
// order is total and deterministic for identical inputs.
package merge

import (
	"sort"

	"github.com/dreamlayer/artvault/pkg/types"
)

// All merges the source lists. Pass sources in priority order (indexed,
// then flat, then volatile): when two copies of an id carry the same or
// unparsable timestamps, the first-encountered copy wins, so earlier
// sources take precedence on ties.
func All[R types.Record](sources ...[]R) []R {
	byID := make(map[string]R)
	order := make([]string, 0)

	for _, source := range sources {
		for _, rec := range source {
			id := rec.RecordID()
			if id == "" {
				continue
			}
			held, seen := byID[id]
			if !seen {
				byID[id] = rec
				order = append(order, id)
				continue
			}
			// Strictly newer replaces; equal or unparsable keeps the
			// earlier (higher-priority) copy.
			if rec.RecordTime().After(held.RecordTime()) {
				byID[id] = rec
			}
		}
	}

	out := make([]R, 0, len(byID))
	for _, id := range order {
		out = append(out, byID[id])
	}
	sort.SliceStable(out, func(i, j int) bool {
		ti, tj := out[i].RecordTime(), out[j].RecordTime()
		if ti.Equal(tj) {
			return out[i].RecordID() < out[j].RecordID()
		}
		return ti.After(tj)
	})
	return out
}
