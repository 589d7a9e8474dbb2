package gormdb

import (
	"context"
	"strings"

	"github.com/atvirokodosprendimai/notices/internal/domain"
	"gorm.io/gorm"
)

func preloadNotificationType(q *gorm.DB) *gorm.DB {
	return q.Preload("EventContentType")
}

func toDomainNotification(m EventNotificationModel) domain.EventNotification {
	return domain.EventNotification{
		ID:            m.ID,
		EventType:     toDomainContentType(m.EventContentType),
		EventObjectID: m.EventObjectID,
		Subject:       m.Subject,
		EmailFrom:     m.EmailFrom,
		EmailBody:     m.EmailBody,
		EmailReceived: m.EmailReceived,
		Email:         m.Email,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
}

func fromDomainNotification(v domain.EventNotification) EventNotificationModel {
	return EventNotificationModel{
		ID:                 v.ID,
		EventContentTypeID: v.EventType.ID,
		EventObjectID:      v.EventObjectID,
		Subject:            v.Subject,
		EmailFrom:          v.EmailFrom,
		EmailBody:          v.EmailBody,
		EmailReceived:      v.EmailReceived.UTC(),
		Email:              v.Email,
		CreatedAt:          v.CreatedAt,
	}
}

func (r *Repository) CreateNotification(ctx context.Context, value domain.EventNotification) (domain.EventNotification, error) {
	m := fromDomainNotification(value)
	if err := r.create(ctx, &m); err != nil {
		return domain.EventNotification{}, err
	}
	return r.GetNotification(ctx, m.ID)
}

func (r *Repository) UpdateNotification(ctx context.Context, value domain.EventNotification) (domain.EventNotification, error) {
	m := fromDomainNotification(value)
	if err := r.update(ctx, &m); err != nil {
		return domain.EventNotification{}, err
	}
	return r.GetNotification(ctx, value.ID)
}

func (r *Repository) DeleteNotification(ctx context.Context, id uint) error {
	return r.deleteByID(ctx, &EventNotificationModel{}, id)
}

func (r *Repository) GetNotification(ctx context.Context, id uint) (domain.EventNotification, error) {
	var m EventNotificationModel
	if err := r.db.WithContext(ctx).Scopes(preloadNotificationType).First(&m, id).Error; err != nil {
		return domain.EventNotification{}, mapErr(err)
	}
	out := []domain.EventNotification{toDomainNotification(m)}
	if err := r.describeNotifications(ctx, out); err != nil {
		return domain.EventNotification{}, err
	}
	return out[0], nil
}

func (r *Repository) ListNotifications(ctx context.Context, filter domain.NotificationFilter) ([]domain.EventNotification, int64, error) {
	q := r.db.WithContext(ctx).Model(&EventNotificationModel{})
	if filter.EventTypeID != nil {
		q = q.Where("event_content_type_id = ?", *filter.EventTypeID)
	}
	if len(filter.EventIDs) > 0 {
		q = q.Where("event_object_id IN ?", filter.EventIDs)
	}
	if strings.TrimSpace(filter.Query) != "" {
		like := likePattern(filter.Query)
		q = q.Where("LOWER(subject) LIKE ? OR LOWER(email_from) LIKE ?", like, like)
	}
	rows, total, err := paginate[EventNotificationModel](q, "email_received DESC, id DESC", filter.Limit, filter.Offset, preloadNotificationType)
	if err != nil {
		return nil, 0, err
	}
	out := make([]domain.EventNotification, 0, len(rows))
	for _, m := range rows {
		out = append(out, toDomainNotification(m))
	}
	if err := r.describeNotifications(ctx, out); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (r *Repository) describeNotifications(ctx context.Context, items []domain.EventNotification) error {
	ids := map[uint][]uint{}
	types := map[uint]domain.ContentType{}
	for _, n := range items {
		types[n.EventType.ID] = n.EventType
		ids[n.EventType.ID] = append(ids[n.EventType.ID], n.EventObjectID)
	}
	reprs := map[uint]map[uint]string{}
	for typeID, eventIDs := range ids {
		ct := types[typeID]
		if _, ok := reprSources[ct.Name().String()]; !ok {
			continue
		}
		names, err := r.ObjectReprs(ctx, ct, eventIDs)
		if err != nil {
			return err
		}
		reprs[typeID] = names
	}
	for i := range items {
		items[i].EventDisplay = reprs[items[i].EventType.ID][items[i].EventObjectID]
	}
	return nil
}
