package application

import (
	"context"
	"errors"
	"strings"

	"github.com/atvirokodosprendimai/notices/internal/domain"
)

// The circuit-only models predate the polymorphic ones. They are served
// through the API for existing data and carry no change log.

func (s *Service) checkLegacyProvider(ctx context.Context, providerID uint, verr error) error {
	v, ok := domain.AsValidationError(verr)
	if !ok {
		if verr != nil {
			return verr
		}
		v = domain.NewValidationError()
	}
	if providerID != 0 {
		if _, err := s.repo.GetProvider(ctx, providerID); errors.Is(err, domain.ErrNotFound) {
			v.Add("provider", msgInvalidChoice)
		} else if err != nil {
			return err
		}
	}
	return v.OrNil()
}

func normalizeLegacyMaintenance(m *domain.CircuitMaintenance) {
	m.Name = strings.TrimSpace(m.Name)
	m.Summary = strings.TrimSpace(m.Summary)
	m.InternalTicket = strings.TrimSpace(m.InternalTicket)
	m.Status = domain.MaintenanceStatus(strings.ToUpper(strings.TrimSpace(string(m.Status))))
}

func (s *Service) CreateCircuitMaintenance(ctx context.Context, in domain.CircuitMaintenance) (domain.CircuitMaintenance, error) {
	in.ID = 0
	normalizeLegacyMaintenance(&in)
	if err := s.checkLegacyProvider(ctx, in.ProviderID, in.Validate()); err != nil {
		return domain.CircuitMaintenance{}, err
	}
	return s.repo.CreateCircuitMaintenance(ctx, in)
}

func (s *Service) UpdateCircuitMaintenance(ctx context.Context, in domain.CircuitMaintenance) (domain.CircuitMaintenance, error) {
	existing, err := s.repo.GetCircuitMaintenance(ctx, in.ID)
	if err != nil {
		return domain.CircuitMaintenance{}, err
	}
	in.CreatedAt = existing.CreatedAt
	normalizeLegacyMaintenance(&in)
	if err := s.checkLegacyProvider(ctx, in.ProviderID, in.Validate()); err != nil {
		return domain.CircuitMaintenance{}, err
	}
	return s.repo.UpdateCircuitMaintenance(ctx, in)
}

func (s *Service) DeleteCircuitMaintenance(ctx context.Context, id uint) error {
	return s.repo.DeleteCircuitMaintenance(ctx, id)
}

func (s *Service) GetCircuitMaintenance(ctx context.Context, id uint) (domain.CircuitMaintenance, error) {
	return s.repo.GetCircuitMaintenance(ctx, id)
}

func (s *Service) ListCircuitMaintenances(ctx context.Context, filter domain.LegacyFilter) ([]domain.CircuitMaintenance, int64, error) {
	filter.Limit = clampLimit(filter.Limit)
	return s.repo.ListCircuitMaintenances(ctx, filter)
}

func normalizeLegacyOutage(o *domain.CircuitOutage) {
	o.Name = strings.TrimSpace(o.Name)
	o.Summary = strings.TrimSpace(o.Summary)
	o.InternalTicket = strings.TrimSpace(o.InternalTicket)
	o.Status = domain.OutageStatus(strings.ToUpper(strings.TrimSpace(string(o.Status))))
}

func (s *Service) CreateCircuitOutage(ctx context.Context, in domain.CircuitOutage) (domain.CircuitOutage, error) {
	in.ID = 0
	normalizeLegacyOutage(&in)
	if err := s.checkLegacyProvider(ctx, in.ProviderID, in.Validate()); err != nil {
		return domain.CircuitOutage{}, err
	}
	return s.repo.CreateCircuitOutage(ctx, in)
}

func (s *Service) UpdateCircuitOutage(ctx context.Context, in domain.CircuitOutage) (domain.CircuitOutage, error) {
	existing, err := s.repo.GetCircuitOutage(ctx, in.ID)
	if err != nil {
		return domain.CircuitOutage{}, err
	}
	in.CreatedAt = existing.CreatedAt
	normalizeLegacyOutage(&in)
	if err := s.checkLegacyProvider(ctx, in.ProviderID, in.Validate()); err != nil {
		return domain.CircuitOutage{}, err
	}
	return s.repo.UpdateCircuitOutage(ctx, in)
}

func (s *Service) DeleteCircuitOutage(ctx context.Context, id uint) error {
	return s.repo.DeleteCircuitOutage(ctx, id)
}

func (s *Service) GetCircuitOutage(ctx context.Context, id uint) (domain.CircuitOutage, error) {
	return s.repo.GetCircuitOutage(ctx, id)
}

func (s *Service) ListCircuitOutages(ctx context.Context, filter domain.LegacyFilter) ([]domain.CircuitOutage, int64, error) {
	filter.Limit = clampLimit(filter.Limit)
	return s.repo.ListCircuitOutages(ctx, filter)
}

func (s *Service) checkCircuitImpact(ctx context.Context, in *domain.CircuitMaintenanceImpact) error {
	v := domain.NewValidationError()
	if in.CircuitMaintenanceID == 0 {
		v.Add("circuitmaintenance", msgRequired)
	} else if _, err := s.repo.GetCircuitMaintenance(ctx, in.CircuitMaintenanceID); errors.Is(err, domain.ErrNotFound) {
		v.Add("circuitmaintenance", msgObjectNotFound)
	} else if err != nil {
		return err
	}
	if in.CircuitID == 0 {
		v.Add("circuit", msgRequired)
	} else if _, err := s.repo.GetCircuit(ctx, in.CircuitID); errors.Is(err, domain.ErrNotFound) {
		v.Add("circuit", msgObjectNotFound)
	} else if err != nil {
		return err
	}
	if in.Impact != "" {
		in.Impact = domain.ImpactLevel(strings.ToUpper(strings.TrimSpace(string(in.Impact))))
		if !in.Impact.Valid() {
			v.Add("impact", "Select a valid choice. "+string(in.Impact)+" is not one of the available choices.")
		}
	}
	return v.OrNil()
}

const msgCircuitImpactExists = "Circuit maintenance impact with this Circuitmaintenance and Circuit already exists."

func (s *Service) CreateCircuitMaintenanceImpact(ctx context.Context, in domain.CircuitMaintenanceImpact) (domain.CircuitMaintenanceImpact, error) {
	in.ID = 0
	if err := s.checkCircuitImpact(ctx, &in); err != nil {
		return domain.CircuitMaintenanceImpact{}, err
	}
	out, err := s.repo.CreateCircuitMaintenanceImpact(ctx, in)
	return out, conflictAsField(err, domain.NonFieldErrors, msgCircuitImpactExists)
}

func (s *Service) UpdateCircuitMaintenanceImpact(ctx context.Context, in domain.CircuitMaintenanceImpact) (domain.CircuitMaintenanceImpact, error) {
	existing, err := s.repo.GetCircuitMaintenanceImpact(ctx, in.ID)
	if err != nil {
		return domain.CircuitMaintenanceImpact{}, err
	}
	in.CreatedAt = existing.CreatedAt
	if err := s.checkCircuitImpact(ctx, &in); err != nil {
		return domain.CircuitMaintenanceImpact{}, err
	}
	out, err := s.repo.UpdateCircuitMaintenanceImpact(ctx, in)
	return out, conflictAsField(err, domain.NonFieldErrors, msgCircuitImpactExists)
}

func (s *Service) DeleteCircuitMaintenanceImpact(ctx context.Context, id uint) error {
	return s.repo.DeleteCircuitMaintenanceImpact(ctx, id)
}

func (s *Service) GetCircuitMaintenanceImpact(ctx context.Context, id uint) (domain.CircuitMaintenanceImpact, error) {
	return s.repo.GetCircuitMaintenanceImpact(ctx, id)
}

func (s *Service) ListCircuitMaintenanceImpacts(ctx context.Context, filter domain.LegacyFilter) ([]domain.CircuitMaintenanceImpact, int64, error) {
	filter.Limit = clampLimit(filter.Limit)
	return s.repo.ListCircuitMaintenanceImpacts(ctx, filter)
}

func (s *Service) checkCircuitNotification(ctx context.Context, in *domain.CircuitMaintenanceNotification) error {
	in.Subject = strings.TrimSpace(in.Subject)
	in.EmailFrom = strings.TrimSpace(in.EmailFrom)
	v := domain.NewValidationError()
	if in.CircuitMaintenanceID == 0 {
		v.Add("circuitmaintenance", msgRequired)
	} else if _, err := s.repo.GetCircuitMaintenance(ctx, in.CircuitMaintenanceID); errors.Is(err, domain.ErrNotFound) {
		v.Add("circuitmaintenance", msgObjectNotFound)
	} else if err != nil {
		return err
	}
	if in.Subject == "" {
		v.Add("subject", msgRequired)
	}
	if in.EmailFrom == "" {
		v.Add("email_from", msgRequired)
	}
	if in.EmailReceived.IsZero() {
		v.Add("email_recieved", msgRequired)
	}
	return v.OrNil()
}

func (s *Service) CreateCircuitMaintenanceNotification(ctx context.Context, in domain.CircuitMaintenanceNotification) (domain.CircuitMaintenanceNotification, error) {
	in.ID = 0
	if err := s.checkCircuitNotification(ctx, &in); err != nil {
		return domain.CircuitMaintenanceNotification{}, err
	}
	return s.repo.CreateCircuitMaintenanceNotification(ctx, in)
}

func (s *Service) UpdateCircuitMaintenanceNotification(ctx context.Context, in domain.CircuitMaintenanceNotification) (domain.CircuitMaintenanceNotification, error) {
	existing, err := s.repo.GetCircuitMaintenanceNotification(ctx, in.ID)
	if err != nil {
		return domain.CircuitMaintenanceNotification{}, err
	}
	in.CreatedAt = existing.CreatedAt
	if in.Email == nil {
		in.Email = existing.Email
	}
	if err := s.checkCircuitNotification(ctx, &in); err != nil {
		return domain.CircuitMaintenanceNotification{}, err
	}
	return s.repo.UpdateCircuitMaintenanceNotification(ctx, in)
}

func (s *Service) DeleteCircuitMaintenanceNotification(ctx context.Context, id uint) error {
	return s.repo.DeleteCircuitMaintenanceNotification(ctx, id)
}

func (s *Service) GetCircuitMaintenanceNotification(ctx context.Context, id uint) (domain.CircuitMaintenanceNotification, error) {
	return s.repo.GetCircuitMaintenanceNotification(ctx, id)
}

func (s *Service) ListCircuitMaintenanceNotifications(ctx context.Context, filter domain.LegacyFilter) ([]domain.CircuitMaintenanceNotification, int64, error) {
	filter.Limit = clampLimit(filter.Limit)
	return s.repo.ListCircuitMaintenanceNotifications(ctx, filter)
}
