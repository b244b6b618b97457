package webhook

import (
	"sort"

	"github.com/TimurManjosov/licadvisor/internal/catalog"
	"github.com/google/uuid"
)

// NewCatalogEvent describes the move from prev to next. prev may be nil.
func NewCatalogEvent(prev, next *catalog.Snapshot) Event {
	data := EventData{
		ETag:      next.ETag,
		Source:    next.Source,
		RuleCount: len(next.Rules),
	}

	nextIDs := make(map[string]struct{}, len(next.Rules))
	authorities := make(map[string]struct{})
	for _, r := range next.Rules {
		nextIDs[r.ID] = struct{}{}
		authorities[r.Authority] = struct{}{}
	}
	for a := range authorities {
		data.Authorities = append(data.Authorities, a)
	}
	sort.Strings(data.Authorities)

	if prev != nil {
		data.PreviousETag = prev.ETag
		prevIDs := make(map[string]struct{}, len(prev.Rules))
		for _, r := range prev.Rules {
			prevIDs[r.ID] = struct{}{}
			if _, ok := nextIDs[r.ID]; !ok {
				data.Removed = append(data.Removed, r.ID)
			}
		}
		for _, r := range next.Rules {
			if _, ok := prevIDs[r.ID]; !ok {
				data.Added = append(data.Added, r.ID)
			}
		}
	}

	return Event{
		ID:        uuid.NewString(),
		Type:      EventCatalogUpdated,
		Timestamp: next.LoadedAt,
		Data:      data,
	}
}
