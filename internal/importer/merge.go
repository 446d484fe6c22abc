package importer

import "github.com/kimhsiao/conceptdeck/internal/models"

// Merge combines incoming records into the existing set. The merge is
// additive only: existing records are never overwritten, and incoming
// records whose title already appears (case-insensitive) are skipped,
// first occurrence winning inside the incoming batch as well. Returns
// the merged set and the number of records actually added.
//
// Merging the same incoming set twice yields the same result as
// merging it once.
func Merge(existing, incoming []models.Concept) ([]models.Concept, int) {
	seen := make(map[string]struct{}, len(existing))
	for i := range existing {
		if key := existing[i].TitleKey(); key != "" {
			seen[key] = struct{}{}
		}
	}

	merged := make([]models.Concept, 0, len(existing)+len(incoming))
	merged = append(merged, existing...)

	added := 0
	for i := range incoming {
		key := incoming[i].TitleKey()
		if key != "" {
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
		}
		merged = append(merged, incoming[i])
		added++
	}
	return merged, added
}
