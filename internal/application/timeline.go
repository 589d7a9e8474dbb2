package application

import (
	"context"

	"github.com/atvirokodosprendimai/notices/internal/domain"
)

// DefaultTimelineLimit is how many entries an event page shows.
const DefaultTimelineLimit = 20

// Timeline returns the newest change log entries for an event, including
// changes to the impacts attached to it.
func (s *Service) Timeline(ctx context.Context, name domain.ContentTypeName, id uint, limit int) ([]domain.TimelineItem, error) {
	if limit <= 0 {
		limit = DefaultTimelineLimit
	}
	objID := id
	changes, _, err := s.repo.ListObjectChanges(ctx, domain.ObjectChangeFilter{
		ObjectType:  name.String(),
		ObjectID:    &objID,
		WithRelated: true,
		Limit:       limit,
	})
	if err != nil {
		return nil, err
	}
	items := make([]domain.TimelineItem, 0, len(changes))
	for _, c := range changes {
		items = append(items, domain.BuildTimelineItem(c, name.Model))
	}
	return items, nil
}
