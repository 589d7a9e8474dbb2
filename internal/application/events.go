package application

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/atvirokodosprendimai/notices/internal/domain"
)

// applyOriginalTimezone reinterprets the wall clocks of a new event in its
// original zone. An unknown zone leaves the values untouched.
func (s *Service) applyOriginalTimezone(zone string, times ...*time.Time) {
	zone = strings.TrimSpace(zone)
	if zone == "" {
		return
	}
	for _, t := range times {
		if t == nil || t.IsZero() {
			continue
		}
		converted, err := domain.ReinterpretInZone(*t, zone, s.opts.Location)
		if err != nil {
			s.log.Warn("original timezone not recognised, storing times unconverted", "timezone", zone, "error", err)
			return
		}
		*t = converted
	}
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func normalizeEvent(e *domain.Event) {
	e.Name = strings.TrimSpace(e.Name)
	e.Summary = strings.TrimSpace(e.Summary)
	e.OriginalTimezone = strings.TrimSpace(e.OriginalTimezone)
	e.InternalTicket = strings.TrimSpace(e.InternalTicket)
	if e.Tags == nil {
		e.Tags = []string{}
	}
}

// checkProvider adds a field error when the provider does not exist and
// loads it into the event otherwise.
func (s *Service) checkProvider(ctx context.Context, e *domain.Event, verr error) error {
	v, ok := domain.AsValidationError(verr)
	if !ok {
		if verr != nil {
			return verr
		}
		v = domain.NewValidationError()
	}
	if e.ProviderID != 0 {
		p, err := s.repo.GetProvider(ctx, e.ProviderID)
		switch {
		case errors.Is(err, domain.ErrNotFound):
			v.Add("provider", "Select a valid choice. That choice is not one of the available choices.")
		case err != nil:
			return err
		default:
			e.Provider = p
		}
	}
	return v.OrNil()
}

func (s *Service) CreateMaintenance(ctx context.Context, actor domain.Identity, in domain.Maintenance) (domain.Maintenance, error) {
	normalizeEvent(&in.Event)
	in.Status = domain.MaintenanceStatus(strings.ToUpper(strings.TrimSpace(string(in.Status))))
	s.applyOriginalTimezone(in.OriginalTimezone, &in.Start, &in.End)
	if err := s.checkProvider(ctx, &in.Event, in.Validate()); err != nil {
		return domain.Maintenance{}, err
	}

	var out domain.Maintenance
	err := s.repo.Atomic(ctx, func(tx domain.Repository) error {
		created, err := tx.CreateMaintenance(ctx, in)
		if err != nil {
			return err
		}
		out = created
		return s.record(ctx, tx, actor, change{
			action:  domain.ChangeActionCreate,
			objType: domain.MaintenanceType,
			objID:   created.ID,
			repr:    created.Name,
			after:   maintenanceSnapshot(created),
		})
	})
	return out, err
}

// UpdateMaintenance saves the given values as entered. original_timezone is
// kept for reference only and does not shift the stored times.
func (s *Service) UpdateMaintenance(ctx context.Context, actor domain.Identity, in domain.Maintenance) (domain.Maintenance, error) {
	existing, err := s.repo.GetMaintenance(ctx, in.ID)
	if err != nil {
		return domain.Maintenance{}, err
	}
	normalizeEvent(&in.Event)
	in.Status = domain.MaintenanceStatus(strings.ToUpper(strings.TrimSpace(string(in.Status))))
	in.CreatedAt = existing.CreatedAt
	if in.CustomFields == nil {
		in.CustomFields = existing.CustomFields
	}
	if err := s.checkProvider(ctx, &in.Event, in.Validate()); err != nil {
		return domain.Maintenance{}, err
	}

	var out domain.Maintenance
	err = s.repo.Atomic(ctx, func(tx domain.Repository) error {
		updated, err := tx.UpdateMaintenance(ctx, in)
		if err != nil {
			return err
		}
		out = updated
		return s.record(ctx, tx, actor, change{
			action:  domain.ChangeActionUpdate,
			objType: domain.MaintenanceType,
			objID:   updated.ID,
			repr:    updated.Name,
			before:  maintenanceSnapshot(existing),
			after:   maintenanceSnapshot(updated),
		})
	})
	return out, err
}

func (s *Service) DeleteMaintenance(ctx context.Context, actor domain.Identity, id uint) error {
	existing, err := s.repo.GetMaintenance(ctx, id)
	if err != nil {
		return err
	}
	return s.repo.Atomic(ctx, func(tx domain.Repository) error {
		if err := tx.DeleteMaintenance(ctx, id); err != nil {
			return err
		}
		return s.record(ctx, tx, actor, change{
			action:  domain.ChangeActionDelete,
			objType: domain.MaintenanceType,
			objID:   id,
			repr:    existing.Name,
			before:  maintenanceSnapshot(existing),
		})
	})
}

func (s *Service) GetMaintenance(ctx context.Context, id uint) (domain.Maintenance, error) {
	return s.repo.GetMaintenance(ctx, id)
}

func (s *Service) ListMaintenances(ctx context.Context, filter domain.EventFilter) ([]domain.Maintenance, int64, error) {
	filter.Limit = clampLimit(filter.Limit)
	return s.repo.ListMaintenances(ctx, filter)
}

func (s *Service) CreateOutage(ctx context.Context, actor domain.Identity, in domain.Outage) (domain.Outage, error) {
	normalizeEvent(&in.Event)
	in.Status = domain.OutageStatus(strings.ToUpper(strings.TrimSpace(string(in.Status))))
	in.End = copyTime(in.End)
	in.EstimatedTimeToRepair = copyTime(in.EstimatedTimeToRepair)
	s.applyOriginalTimezone(in.OriginalTimezone, &in.Start, in.End, in.EstimatedTimeToRepair)
	if err := s.checkProvider(ctx, &in.Event, in.Validate()); err != nil {
		return domain.Outage{}, err
	}

	var out domain.Outage
	err := s.repo.Atomic(ctx, func(tx domain.Repository) error {
		created, err := tx.CreateOutage(ctx, in)
		if err != nil {
			return err
		}
		out = created
		return s.record(ctx, tx, actor, change{
			action:  domain.ChangeActionCreate,
			objType: domain.OutageType,
			objID:   created.ID,
			repr:    created.Name,
			after:   outageSnapshot(created),
		})
	})
	return out, err
}

func (s *Service) UpdateOutage(ctx context.Context, actor domain.Identity, in domain.Outage) (domain.Outage, error) {
	existing, err := s.repo.GetOutage(ctx, in.ID)
	if err != nil {
		return domain.Outage{}, err
	}
	normalizeEvent(&in.Event)
	in.Status = domain.OutageStatus(strings.ToUpper(strings.TrimSpace(string(in.Status))))
	in.CreatedAt = existing.CreatedAt
	if in.CustomFields == nil {
		in.CustomFields = existing.CustomFields
	}
	if err := s.checkProvider(ctx, &in.Event, in.Validate()); err != nil {
		return domain.Outage{}, err
	}

	var out domain.Outage
	err = s.repo.Atomic(ctx, func(tx domain.Repository) error {
		updated, err := tx.UpdateOutage(ctx, in)
		if err != nil {
			return err
		}
		out = updated
		return s.record(ctx, tx, actor, change{
			action:  domain.ChangeActionUpdate,
			objType: domain.OutageType,
			objID:   updated.ID,
			repr:    updated.Name,
			before:  outageSnapshot(existing),
			after:   outageSnapshot(updated),
		})
	})
	return out, err
}

func (s *Service) DeleteOutage(ctx context.Context, actor domain.Identity, id uint) error {
	existing, err := s.repo.GetOutage(ctx, id)
	if err != nil {
		return err
	}
	return s.repo.Atomic(ctx, func(tx domain.Repository) error {
		if err := tx.DeleteOutage(ctx, id); err != nil {
			return err
		}
		return s.record(ctx, tx, actor, change{
			action:  domain.ChangeActionDelete,
			objType: domain.OutageType,
			objID:   id,
			repr:    existing.Name,
			before:  outageSnapshot(existing),
		})
	})
}

func (s *Service) GetOutage(ctx context.Context, id uint) (domain.Outage, error) {
	return s.repo.GetOutage(ctx, id)
}

func (s *Service) ListOutages(ctx context.Context, filter domain.EventFilter) ([]domain.Outage, int64, error) {
	filter.Limit = clampLimit(filter.Limit)
	return s.repo.ListOutages(ctx, filter)
}

// UpcomingSchedule returns maintenances that have not ended yet, ordered by
// start, for the schedule page.
func (s *Service) UpcomingSchedule(ctx context.Context, limit int) ([]domain.Maintenance, error) {
	now := s.now().UTC()
	rows, _, err := s.repo.ListMaintenances(ctx, domain.EventFilter{
		EndAfter: &now,
		OpenOnly: true,
		OrderBy:  "start",
		Limit:    clampLimit(limit),
	})
	return rows, err
}
