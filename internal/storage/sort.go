package storage

import (
	"cmp"
	"slices"

	"crptapi/internal/models"
)

// newestFirst orders records by creation time, descending, then by ID.
func newestFirst(records []*models.DocumentRecord) {
	slices.SortFunc(records, func(a, b *models.DocumentRecord) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
}

// selectRecords copies the records matching filter, newest first.
func selectRecords(records []*models.DocumentRecord, filter Filter) []*models.DocumentRecord {
	out := make([]*models.DocumentRecord, 0, len(records))
	for _, rec := range records {
		if filter.matches(rec) {
			recCopy := *rec
			out = append(out, &recCopy)
		}
	}
	newestFirst(out)
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out
}
