package application

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/atvirokodosprendimai/notices/internal/domain"
)

const (
	msgEventType      = "Event must be a Maintenance or Outage"
	msgImpactLocked   = "You cannot alter an impact once the event has completed."
	msgImpactExists   = "Impact with this Event content type, Event object id, Target content type and Target object id already exists."
	msgInvalidChoice  = "Select a valid choice. That choice is not one of the available choices."
	msgObjectNotFound = "Select a valid choice. That object does not exist."
)

// resolveContentType looks a content type up by id, or by its name when the
// id is zero.
func (s *Service) resolveContentType(ctx context.Context, ct domain.ContentType) (domain.ContentType, error) {
	if ct.ID != 0 {
		return s.repo.GetContentTypeByID(ctx, ct.ID)
	}
	if strings.TrimSpace(ct.AppLabel) == "" || strings.TrimSpace(ct.Model) == "" {
		return domain.ContentType{}, domain.ErrNotFound
	}
	return s.repo.GetContentType(ctx, ct.Name())
}

// eventStatus returns the status of the event an impact points at.
func (s *Service) eventStatus(ctx context.Context, ct domain.ContentType, id uint) (string, error) {
	switch {
	case domain.MaintenanceType.Matches(ct):
		m, err := s.repo.GetMaintenance(ctx, id)
		return string(m.Status), err
	case domain.OutageType.Matches(ct):
		o, err := s.repo.GetOutage(ctx, id)
		return string(o.Status), err
	default:
		return "", domain.FieldError("event_content_type", msgEventType)
	}
}

// validateImpact resolves the content types in place and checks every rule
// an impact must satisfy before it is written.
func (s *Service) validateImpact(ctx context.Context, imp *domain.Impact) error {
	v := domain.NewValidationError()

	eventType, err := s.resolveContentType(ctx, imp.EventType)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		v.Add("event_content_type", msgInvalidChoice)
	case err != nil:
		return err
	case !domain.IsEventType(eventType):
		v.Add("event_content_type", msgEventType)
	default:
		imp.EventType = eventType
	}

	targetType, err := s.resolveContentType(ctx, imp.TargetType)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		v.Add("target_content_type", msgInvalidChoice)
	case err != nil:
		return err
	case !s.opts.AllowList.Allows(targetType):
		v.Add("target_content_type", fmt.Sprintf("Content type '%s' is not allowed. Allowed types: %s",
			targetType.String(), strings.Join(s.opts.AllowList.Entries(), ", ")))
	default:
		imp.TargetType = targetType
	}

	if imp.Impact != "" {
		imp.Impact = domain.ImpactLevel(strings.ToUpper(strings.TrimSpace(string(imp.Impact))))
		if !imp.Impact.Valid() {
			v.Add("impact", fmt.Sprintf("Select a valid choice. %s is not one of the available choices.", imp.Impact))
		}
	}
	if !v.Empty() {
		return v
	}

	status, err := s.eventStatus(ctx, imp.EventType, imp.EventObjectID)
	if errors.Is(err, domain.ErrNotFound) {
		v.Add("event_object_id", msgObjectNotFound)
	} else if err != nil {
		return err
	}
	reprs, err := s.repo.ObjectReprs(ctx, imp.TargetType, []uint{imp.TargetObjectID})
	if err != nil {
		return err
	}
	if _, ok := reprs[imp.TargetObjectID]; !ok {
		v.Add("target_object_id", msgObjectNotFound)
	}
	if !v.Empty() {
		return v
	}

	if domain.IsTerminalStatus(status) {
		return domain.FieldError(domain.NonFieldErrors, msgImpactLocked)
	}
	exists, err := s.repo.ImpactExists(ctx, *imp)
	if err != nil {
		return err
	}
	if exists {
		return domain.FieldError(domain.NonFieldErrors, msgImpactExists)
	}
	return nil
}

func (s *Service) CreateImpact(ctx context.Context, actor domain.Identity, in domain.Impact) (domain.Impact, error) {
	in.ID = 0
	if in.Tags == nil {
		in.Tags = []string{}
	}
	if err := s.validateImpact(ctx, &in); err != nil {
		return domain.Impact{}, err
	}

	var out domain.Impact
	err := s.repo.Atomic(ctx, func(tx domain.Repository) error {
		created, err := tx.CreateImpact(ctx, in)
		if err != nil {
			return uniqueImpactErr(err)
		}
		out = created
		eventID := created.EventObjectID
		return s.record(ctx, tx, actor, change{
			action:      domain.ChangeActionCreate,
			objType:     domain.ImpactType,
			objID:       created.ID,
			repr:        impactRepr(created),
			after:       impactSnapshot(created),
			relatedType: created.EventType.Name(),
			relatedID:   &eventID,
		})
	})
	return out, err
}

func (s *Service) UpdateImpact(ctx context.Context, actor domain.Identity, in domain.Impact) (domain.Impact, error) {
	existing, err := s.repo.GetImpact(ctx, in.ID)
	if err != nil {
		return domain.Impact{}, err
	}
	in.CreatedAt = existing.CreatedAt
	if in.Tags == nil {
		in.Tags = existing.Tags
	}
	if in.CustomFields == nil {
		in.CustomFields = existing.CustomFields
	}
	if err := s.validateImpact(ctx, &in); err != nil {
		return domain.Impact{}, err
	}

	var out domain.Impact
	err = s.repo.Atomic(ctx, func(tx domain.Repository) error {
		updated, err := tx.UpdateImpact(ctx, in)
		if err != nil {
			return uniqueImpactErr(err)
		}
		out = updated
		eventID := updated.EventObjectID
		return s.record(ctx, tx, actor, change{
			action:      domain.ChangeActionUpdate,
			objType:     domain.ImpactType,
			objID:       updated.ID,
			repr:        impactRepr(updated),
			before:      impactSnapshot(existing),
			after:       impactSnapshot(updated),
			relatedType: updated.EventType.Name(),
			relatedID:   &eventID,
		})
	})
	return out, err
}

// DeleteImpact removes an impact. Deletion is allowed whatever the event
// status is.
func (s *Service) DeleteImpact(ctx context.Context, actor domain.Identity, id uint) error {
	existing, err := s.repo.GetImpact(ctx, id)
	if err != nil {
		return err
	}
	return s.repo.Atomic(ctx, func(tx domain.Repository) error {
		if err := tx.DeleteImpact(ctx, id); err != nil {
			return err
		}
		eventID := existing.EventObjectID
		return s.record(ctx, tx, actor, change{
			action:      domain.ChangeActionDelete,
			objType:     domain.ImpactType,
			objID:       id,
			repr:        impactRepr(existing),
			before:      impactSnapshot(existing),
			relatedType: existing.EventType.Name(),
			relatedID:   &eventID,
		})
	})
}

func uniqueImpactErr(err error) error {
	if errors.Is(err, domain.ErrConflict) {
		return domain.FieldError(domain.NonFieldErrors, msgImpactExists)
	}
	return err
}

func (s *Service) GetImpact(ctx context.Context, id uint) (domain.Impact, error) {
	return s.repo.GetImpact(ctx, id)
}

func (s *Service) ListImpacts(ctx context.Context, filter domain.ImpactFilter) ([]domain.Impact, int64, error) {
	filter.Limit = clampLimit(filter.Limit)
	return s.repo.ListImpacts(ctx, filter)
}

// ImpactsForEvent lists every impact of one maintenance or outage.
func (s *Service) ImpactsForEvent(ctx context.Context, name domain.ContentTypeName, eventID uint) ([]domain.Impact, error) {
	ct, err := s.repo.GetContentType(ctx, name)
	if err != nil {
		return nil, err
	}
	rows, _, err := s.repo.ListImpacts(ctx, domain.ImpactFilter{EventTypeID: &ct.ID, EventIDs: []uint{eventID}, Limit: maxListLimit})
	return rows, err
}

// TargetImpact pairs an impact with the start of its event for host pages.
type TargetImpact struct {
	domain.Impact
	EventStart time.Time
	EventKind  string
}

// ImpactsForTarget lists the impacts on one circuit, site or other target
// whose event started within the history window or is still open. Newest
// events come first.
func (s *Service) ImpactsForTarget(ctx context.Context, name domain.ContentTypeName, targetID uint) ([]TargetImpact, error) {
	ct, err := s.repo.GetContentType(ctx, name)
	if err != nil {
		return nil, err
	}
	impacts, _, err := s.repo.ListImpacts(ctx, domain.ImpactFilter{TargetTypeID: &ct.ID, TargetIDs: []uint{targetID}, Limit: maxListLimit})
	if err != nil {
		return nil, err
	}

	var mntIDs, outIDs []uint
	for _, imp := range impacts {
		if domain.MaintenanceType.Matches(imp.EventType) {
			mntIDs = append(mntIDs, imp.EventObjectID)
		} else if domain.OutageType.Matches(imp.EventType) {
			outIDs = append(outIDs, imp.EventObjectID)
		}
	}

	cutoff := s.now().UTC().AddDate(0, 0, -s.opts.EventHistoryDays)
	starts := map[string]time.Time{}
	if len(mntIDs) > 0 {
		rows, _, err := s.repo.ListMaintenances(ctx, domain.EventFilter{IDs: mntIDs, Limit: maxListLimit})
		if err != nil {
			return nil, err
		}
		for _, m := range rows {
			if m.Start.After(cutoff) || !domain.IsTerminalStatus(string(m.Status)) {
				starts[fmt.Sprintf("m%d", m.ID)] = m.Start
			}
		}
	}
	if len(outIDs) > 0 {
		rows, _, err := s.repo.ListOutages(ctx, domain.EventFilter{IDs: outIDs, Limit: maxListLimit})
		if err != nil {
			return nil, err
		}
		for _, o := range rows {
			if o.Start.After(cutoff) || !domain.IsTerminalStatus(string(o.Status)) {
				starts[fmt.Sprintf("o%d", o.ID)] = o.Start
			}
		}
	}

	out := make([]TargetImpact, 0, len(impacts))
	for _, imp := range impacts {
		key, kind := fmt.Sprintf("m%d", imp.EventObjectID), "Maintenance"
		if domain.OutageType.Matches(imp.EventType) {
			key, kind = fmt.Sprintf("o%d", imp.EventObjectID), "Outage"
		}
		start, ok := starts[key]
		if !ok {
			continue
		}
		out = append(out, TargetImpact{Impact: imp, EventStart: start, EventKind: kind})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].EventStart.After(out[j].EventStart) })
	return out, nil
}

// EventContentTypes are the choices for the first step of the impact form.
func (s *Service) EventContentTypes(ctx context.Context) ([]domain.ContentType, error) {
	out := make([]domain.ContentType, 0, 2)
	for _, name := range []domain.ContentTypeName{domain.MaintenanceType, domain.OutageType} {
		ct, err := s.repo.GetContentType(ctx, name)
		if err != nil {
			return nil, err
		}
		out = append(out, ct)
	}
	return out, nil
}

// TargetContentTypes resolves the allow-list against known content types.
// Entries that name no known type are skipped.
func (s *Service) TargetContentTypes(ctx context.Context) ([]domain.ContentType, error) {
	out := make([]domain.ContentType, 0)
	for _, name := range s.opts.AllowList.Names() {
		ct, err := s.repo.GetContentType(ctx, name)
		if errors.Is(err, domain.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, ct)
	}
	return out, nil
}

// ObjectChoices lists records of one content type for the picker fragments.
func (s *Service) ObjectChoices(ctx context.Context, ctID uint, query string, limit int) ([]domain.ObjectRef, error) {
	ct, err := s.repo.GetContentTypeByID(ctx, ctID)
	if err != nil {
		return nil, err
	}
	if !domain.IsEventType(ct) && !s.opts.AllowList.Allows(ct) {
		return nil, domain.FieldError("content_type", fmt.Sprintf("Content type '%s' is not selectable.", ct.String()))
	}
	return s.repo.SearchObjects(ctx, ct, query, clampLimit(limit))
}

func (s *Service) ContentType(ctx context.Context, name domain.ContentTypeName) (domain.ContentType, error) {
	return s.repo.GetContentType(ctx, name)
}

func (s *Service) ContentTypeByID(ctx context.Context, id uint) (domain.ContentType, error) {
	return s.repo.GetContentTypeByID(ctx, id)
}
