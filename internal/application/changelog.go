package application

import (
	"context"
	"time"

	"github.com/atvirokodosprendimai/notices/internal/domain"
)

type change struct {
	action  string
	objType domain.ContentTypeName
	objID   uint
	repr    string
	before  map[string]any
	after   map[string]any
	// related points impact rows at their event so the event timeline sees them.
	relatedType domain.ContentTypeName
	relatedID   *uint
}

func (s *Service) record(ctx context.Context, tx domain.Repository, actor domain.Identity, c change) error {
	oc := domain.ObjectChange{
		Action:            c.action,
		ChangedObjectType: c.objType.String(),
		ChangedObjectID:   c.objID,
		ObjectRepr:        c.repr,
		PrechangeData:     c.before,
		PostchangeData:    c.after,
		Time:              s.now().UTC(),
	}
	if !actor.Anonymous && actor.User.ID != 0 {
		id := actor.User.ID
		oc.UserID = &id
		oc.UserName = actor.User.Email
	}
	if c.relatedID != nil {
		oc.RelatedObjectType = c.relatedType.String()
		oc.RelatedObjectID = c.relatedID
	}
	return tx.CreateObjectChange(ctx, oc)
}

func formatSnapshotTime(t *time.Time) any {
	if t == nil || t.IsZero() {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}

func eventSnapshot(e domain.Event) map[string]any {
	return map[string]any{
		"id":                e.ID,
		"name":              e.Name,
		"summary":           e.Summary,
		"provider":          e.Provider.Name,
		"start":             formatSnapshotTime(&e.Start),
		"original_timezone": e.OriginalTimezone,
		"internal_ticket":   e.InternalTicket,
		"acknowledged":      e.Acknowledged,
		"comments":          e.Comments,
		"tags":              e.Tags,
	}
}

func maintenanceSnapshot(m domain.Maintenance) map[string]any {
	snap := eventSnapshot(m.Event)
	snap["end"] = formatSnapshotTime(&m.End)
	snap["status"] = string(m.Status)
	return snap
}

func outageSnapshot(o domain.Outage) map[string]any {
	snap := eventSnapshot(o.Event)
	snap["end"] = formatSnapshotTime(o.End)
	snap["estimated_time_to_repair"] = formatSnapshotTime(o.EstimatedTimeToRepair)
	snap["status"] = string(o.Status)
	return snap
}

func impactSnapshot(i domain.Impact) map[string]any {
	return map[string]any{
		"id":                  i.ID,
		"event_content_type":  i.EventType.String(),
		"event_object_id":     i.EventObjectID,
		"target_content_type": i.TargetType.String(),
		"target_object_id":    i.TargetObjectID,
		"impact":              string(i.Impact),
		"tags":                i.Tags,
	}
}

func impactRepr(i domain.Impact) string {
	event := i.EventDisplay
	if event == "" {
		event = "Unknown"
	}
	target := i.TargetDisplay
	if target == "" {
		target = "Unknown"
	}
	return event + " - " + target
}

func notificationSnapshot(n domain.EventNotification) map[string]any {
	return map[string]any{
		"id":                 n.ID,
		"event_content_type": n.EventType.String(),
		"event_object_id":    n.EventObjectID,
		"subject":            n.Subject,
		"email_from":         n.EmailFrom,
		"email_received":     formatSnapshotTime(&n.EmailReceived),
	}
}

// ObjectChanges lists change records, newest first.
func (s *Service) ObjectChanges(ctx context.Context, filter domain.ObjectChangeFilter) ([]domain.ObjectChange, int64, error) {
	filter.Limit = clampLimit(filter.Limit)
	return s.repo.ListObjectChanges(ctx, filter)
}
