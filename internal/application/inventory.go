package application

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"github.com/atvirokodosprendimai/notices/internal/domain"
)

var slugPattern = regexp.MustCompile(`^[-a-zA-Z0-9_]+$`)

const msgRequired = "This field is required."

func checkSlug(v *domain.ValidationError, slug string) {
	if slug == "" {
		v.Add("slug", msgRequired)
		return
	}
	if !slugPattern.MatchString(slug) {
		v.Add("slug", "Enter a valid slug consisting of letters, numbers, underscores or hyphens.")
	}
}

func conflictAsField(err error, field, message string) error {
	if errors.Is(err, domain.ErrConflict) {
		return domain.FieldError(field, message)
	}
	return err
}

// checkSite reports a field error when a non-nil site id does not exist.
func (s *Service) checkSite(ctx context.Context, v *domain.ValidationError, siteID *uint) error {
	if siteID == nil {
		return nil
	}
	if _, err := s.repo.GetSite(ctx, *siteID); errors.Is(err, domain.ErrNotFound) {
		v.Add("site", msgObjectNotFound)
	} else if err != nil {
		return err
	}
	return nil
}

func providerSnapshot(p domain.Provider) map[string]any {
	return map[string]any{"id": p.ID, "name": p.Name, "slug": p.Slug, "description": p.Description}
}

func (s *Service) CreateProvider(ctx context.Context, actor domain.Identity, in domain.Provider) (domain.Provider, error) {
	return s.saveProvider(ctx, actor, in, nil)
}

func (s *Service) UpdateProvider(ctx context.Context, actor domain.Identity, in domain.Provider) (domain.Provider, error) {
	existing, err := s.repo.GetProvider(ctx, in.ID)
	if err != nil {
		return domain.Provider{}, err
	}
	in.CreatedAt = existing.CreatedAt
	return s.saveProvider(ctx, actor, in, &existing)
}

func (s *Service) saveProvider(ctx context.Context, actor domain.Identity, in domain.Provider, existing *domain.Provider) (domain.Provider, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Slug = strings.TrimSpace(in.Slug)
	v := domain.NewValidationError()
	if in.Name == "" {
		v.Add("name", msgRequired)
	}
	checkSlug(v, in.Slug)
	if !v.Empty() {
		return domain.Provider{}, v
	}

	var out domain.Provider
	err := s.repo.Atomic(ctx, func(tx domain.Repository) error {
		c := change{objType: domain.ProviderType}
		var err error
		if existing == nil {
			out, err = tx.CreateProvider(ctx, in)
			c.action = domain.ChangeActionCreate
		} else {
			out, err = tx.UpdateProvider(ctx, in)
			c.action = domain.ChangeActionUpdate
			c.before = providerSnapshot(*existing)
		}
		if err != nil {
			return conflictAsField(err, "slug", "Provider with this name or slug already exists.")
		}
		c.objID, c.repr, c.after = out.ID, out.Name, providerSnapshot(out)
		return s.record(ctx, tx, actor, c)
	})
	return out, err
}

func (s *Service) DeleteProvider(ctx context.Context, actor domain.Identity, id uint) error {
	existing, err := s.repo.GetProvider(ctx, id)
	if err != nil {
		return err
	}
	return s.repo.Atomic(ctx, func(tx domain.Repository) error {
		if err := tx.DeleteProvider(ctx, id); err != nil {
			return conflictAsField(err, domain.NonFieldErrors, "Provider is still referenced by circuits or events.")
		}
		return s.record(ctx, tx, actor, change{action: domain.ChangeActionDelete, objType: domain.ProviderType, objID: id, repr: existing.Name, before: providerSnapshot(existing)})
	})
}

func (s *Service) GetProvider(ctx context.Context, id uint) (domain.Provider, error) {
	return s.repo.GetProvider(ctx, id)
}

func (s *Service) GetProviderBySlug(ctx context.Context, slug string) (domain.Provider, error) {
	return s.repo.GetProviderBySlug(ctx, slug)
}

func (s *Service) ListProviders(ctx context.Context, filter domain.InventoryFilter) ([]domain.Provider, int64, error) {
	filter.Limit = clampLimit(filter.Limit)
	return s.repo.ListProviders(ctx, filter)
}

// ProviderActivity is what a provider page shows beside the provider itself.
type ProviderActivity struct {
	Maintenances []domain.Maintenance
	Outages      []domain.Outage
}

// ProviderActivity lists the provider's active maintenances and open outages.
func (s *Service) ProviderActivity(ctx context.Context, providerID uint) (ProviderActivity, error) {
	statuses := make([]string, 0, len(domain.ActiveMaintenanceStatuses))
	for _, st := range domain.ActiveMaintenanceStatuses {
		statuses = append(statuses, string(st))
	}
	mnts, _, err := s.repo.ListMaintenances(ctx, domain.EventFilter{
		ProviderIDs: []uint{providerID},
		Statuses:    statuses,
		OrderBy:     "start",
		Limit:       maxListLimit,
	})
	if err != nil {
		return ProviderActivity{}, err
	}
	outs, _, err := s.repo.ListOutages(ctx, domain.EventFilter{
		ProviderIDs: []uint{providerID},
		OpenOnly:    true,
		OrderBy:     "-start",
		Limit:       maxListLimit,
	})
	if err != nil {
		return ProviderActivity{}, err
	}
	return ProviderActivity{Maintenances: mnts, Outages: outs}, nil
}

func circuitSnapshot(c domain.Circuit) map[string]any {
	return map[string]any{"id": c.ID, "cid": c.CID, "provider": c.Provider.Name, "description": c.Description}
}

func (s *Service) CreateCircuit(ctx context.Context, actor domain.Identity, in domain.Circuit) (domain.Circuit, error) {
	return s.saveCircuit(ctx, actor, in, nil)
}

func (s *Service) UpdateCircuit(ctx context.Context, actor domain.Identity, in domain.Circuit) (domain.Circuit, error) {
	existing, err := s.repo.GetCircuit(ctx, in.ID)
	if err != nil {
		return domain.Circuit{}, err
	}
	in.CreatedAt = existing.CreatedAt
	return s.saveCircuit(ctx, actor, in, &existing)
}

func (s *Service) saveCircuit(ctx context.Context, actor domain.Identity, in domain.Circuit, existing *domain.Circuit) (domain.Circuit, error) {
	in.CID = strings.TrimSpace(in.CID)
	v := domain.NewValidationError()
	if in.CID == "" {
		v.Add("cid", msgRequired)
	}
	if in.ProviderID == 0 {
		v.Add("provider", msgRequired)
	} else if _, err := s.repo.GetProvider(ctx, in.ProviderID); errors.Is(err, domain.ErrNotFound) {
		v.Add("provider", msgInvalidChoice)
	} else if err != nil {
		return domain.Circuit{}, err
	}
	if !v.Empty() {
		return domain.Circuit{}, v
	}

	var out domain.Circuit
	err := s.repo.Atomic(ctx, func(tx domain.Repository) error {
		c := change{objType: domain.CircuitType}
		var err error
		if existing == nil {
			out, err = tx.CreateCircuit(ctx, in)
			c.action = domain.ChangeActionCreate
		} else {
			out, err = tx.UpdateCircuit(ctx, in)
			c.action = domain.ChangeActionUpdate
			c.before = circuitSnapshot(*existing)
		}
		if err != nil {
			return conflictAsField(err, "cid", "Circuit with this Provider and Circuit ID already exists.")
		}
		c.objID, c.repr, c.after = out.ID, out.CID, circuitSnapshot(out)
		return s.record(ctx, tx, actor, c)
	})
	return out, err
}

func (s *Service) DeleteCircuit(ctx context.Context, actor domain.Identity, id uint) error {
	existing, err := s.repo.GetCircuit(ctx, id)
	if err != nil {
		return err
	}
	return s.repo.Atomic(ctx, func(tx domain.Repository) error {
		if err := tx.DeleteCircuit(ctx, id); err != nil {
			return err
		}
		return s.record(ctx, tx, actor, change{action: domain.ChangeActionDelete, objType: domain.CircuitType, objID: id, repr: existing.CID, before: circuitSnapshot(existing)})
	})
}

func (s *Service) GetCircuit(ctx context.Context, id uint) (domain.Circuit, error) {
	return s.repo.GetCircuit(ctx, id)
}

func (s *Service) ListCircuits(ctx context.Context, filter domain.InventoryFilter) ([]domain.Circuit, int64, error) {
	filter.Limit = clampLimit(filter.Limit)
	return s.repo.ListCircuits(ctx, filter)
}

func siteSnapshot(st domain.Site) map[string]any {
	return map[string]any{"id": st.ID, "name": st.Name, "slug": st.Slug, "description": st.Description}
}

func (s *Service) CreateSite(ctx context.Context, actor domain.Identity, in domain.Site) (domain.Site, error) {
	return s.saveSite(ctx, actor, in, nil)
}

func (s *Service) UpdateSite(ctx context.Context, actor domain.Identity, in domain.Site) (domain.Site, error) {
	existing, err := s.repo.GetSite(ctx, in.ID)
	if err != nil {
		return domain.Site{}, err
	}
	in.CreatedAt = existing.CreatedAt
	return s.saveSite(ctx, actor, in, &existing)
}

func (s *Service) saveSite(ctx context.Context, actor domain.Identity, in domain.Site, existing *domain.Site) (domain.Site, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Slug = strings.TrimSpace(in.Slug)
	v := domain.NewValidationError()
	if in.Name == "" {
		v.Add("name", msgRequired)
	}
	checkSlug(v, in.Slug)
	if !v.Empty() {
		return domain.Site{}, v
	}

	var out domain.Site
	err := s.repo.Atomic(ctx, func(tx domain.Repository) error {
		c := change{objType: domain.SiteType}
		var err error
		if existing == nil {
			out, err = tx.CreateSite(ctx, in)
			c.action = domain.ChangeActionCreate
		} else {
			out, err = tx.UpdateSite(ctx, in)
			c.action = domain.ChangeActionUpdate
			c.before = siteSnapshot(*existing)
		}
		if err != nil {
			return conflictAsField(err, "slug", "Site with this slug already exists.")
		}
		c.objID, c.repr, c.after = out.ID, out.Name, siteSnapshot(out)
		return s.record(ctx, tx, actor, c)
	})
	return out, err
}

func (s *Service) DeleteSite(ctx context.Context, actor domain.Identity, id uint) error {
	existing, err := s.repo.GetSite(ctx, id)
	if err != nil {
		return err
	}
	return s.repo.Atomic(ctx, func(tx domain.Repository) error {
		if err := tx.DeleteSite(ctx, id); err != nil {
			return err
		}
		return s.record(ctx, tx, actor, change{action: domain.ChangeActionDelete, objType: domain.SiteType, objID: id, repr: existing.Name, before: siteSnapshot(existing)})
	})
}

func (s *Service) GetSite(ctx context.Context, id uint) (domain.Site, error) {
	return s.repo.GetSite(ctx, id)
}

func (s *Service) ListSites(ctx context.Context, filter domain.InventoryFilter) ([]domain.Site, int64, error) {
	filter.Limit = clampLimit(filter.Limit)
	return s.repo.ListSites(ctx, filter)
}

func siteRef(siteID *uint) any {
	if siteID == nil {
		return nil
	}
	return *siteID
}

func (s *Service) CreatePowerFeed(ctx context.Context, actor domain.Identity, in domain.PowerFeed) (domain.PowerFeed, error) {
	return s.savePowerFeed(ctx, actor, in, nil)
}

func (s *Service) UpdatePowerFeed(ctx context.Context, actor domain.Identity, in domain.PowerFeed) (domain.PowerFeed, error) {
	existing, err := s.repo.GetPowerFeed(ctx, in.ID)
	if err != nil {
		return domain.PowerFeed{}, err
	}
	in.CreatedAt = existing.CreatedAt
	return s.savePowerFeed(ctx, actor, in, &existing)
}

func (s *Service) savePowerFeed(ctx context.Context, actor domain.Identity, in domain.PowerFeed, existing *domain.PowerFeed) (domain.PowerFeed, error) {
	in.Name = strings.TrimSpace(in.Name)
	v := domain.NewValidationError()
	if in.Name == "" {
		v.Add("name", msgRequired)
	}
	if err := s.checkSite(ctx, v, in.SiteID); err != nil {
		return domain.PowerFeed{}, err
	}
	if !v.Empty() {
		return domain.PowerFeed{}, v
	}
	snap := func(p domain.PowerFeed) map[string]any {
		return map[string]any{"id": p.ID, "name": p.Name, "site": siteRef(p.SiteID)}
	}

	var out domain.PowerFeed
	err := s.repo.Atomic(ctx, func(tx domain.Repository) error {
		c := change{objType: domain.PowerFeedType}
		var err error
		if existing == nil {
			out, err = tx.CreatePowerFeed(ctx, in)
			c.action = domain.ChangeActionCreate
		} else {
			out, err = tx.UpdatePowerFeed(ctx, in)
			c.action = domain.ChangeActionUpdate
			c.before = snap(*existing)
		}
		if err != nil {
			return err
		}
		c.objID, c.repr, c.after = out.ID, out.Name, snap(out)
		return s.record(ctx, tx, actor, c)
	})
	return out, err
}

func (s *Service) DeletePowerFeed(ctx context.Context, actor domain.Identity, id uint) error {
	existing, err := s.repo.GetPowerFeed(ctx, id)
	if err != nil {
		return err
	}
	return s.repo.Atomic(ctx, func(tx domain.Repository) error {
		if err := tx.DeletePowerFeed(ctx, id); err != nil {
			return err
		}
		return s.record(ctx, tx, actor, change{action: domain.ChangeActionDelete, objType: domain.PowerFeedType, objID: id, repr: existing.Name})
	})
}

func (s *Service) GetPowerFeed(ctx context.Context, id uint) (domain.PowerFeed, error) {
	return s.repo.GetPowerFeed(ctx, id)
}

func (s *Service) ListPowerFeeds(ctx context.Context, filter domain.InventoryFilter) ([]domain.PowerFeed, int64, error) {
	filter.Limit = clampLimit(filter.Limit)
	return s.repo.ListPowerFeeds(ctx, filter)
}

func (s *Service) CreateDevice(ctx context.Context, actor domain.Identity, in domain.Device) (domain.Device, error) {
	return s.saveDevice(ctx, actor, in, nil)
}

func (s *Service) UpdateDevice(ctx context.Context, actor domain.Identity, in domain.Device) (domain.Device, error) {
	existing, err := s.repo.GetDevice(ctx, in.ID)
	if err != nil {
		return domain.Device{}, err
	}
	in.CreatedAt = existing.CreatedAt
	return s.saveDevice(ctx, actor, in, &existing)
}

func (s *Service) saveDevice(ctx context.Context, actor domain.Identity, in domain.Device, existing *domain.Device) (domain.Device, error) {
	in.Name = strings.TrimSpace(in.Name)
	v := domain.NewValidationError()
	if in.Name == "" {
		v.Add("name", msgRequired)
	}
	if err := s.checkSite(ctx, v, in.SiteID); err != nil {
		return domain.Device{}, err
	}
	if !v.Empty() {
		return domain.Device{}, v
	}
	snap := func(d domain.Device) map[string]any {
		return map[string]any{"id": d.ID, "name": d.Name, "site": siteRef(d.SiteID)}
	}

	var out domain.Device
	err := s.repo.Atomic(ctx, func(tx domain.Repository) error {
		c := change{objType: domain.DeviceType}
		var err error
		if existing == nil {
			out, err = tx.CreateDevice(ctx, in)
			c.action = domain.ChangeActionCreate
		} else {
			out, err = tx.UpdateDevice(ctx, in)
			c.action = domain.ChangeActionUpdate
			c.before = snap(*existing)
		}
		if err != nil {
			return err
		}
		c.objID, c.repr, c.after = out.ID, out.Name, snap(out)
		return s.record(ctx, tx, actor, c)
	})
	return out, err
}

func (s *Service) DeleteDevice(ctx context.Context, actor domain.Identity, id uint) error {
	existing, err := s.repo.GetDevice(ctx, id)
	if err != nil {
		return err
	}
	return s.repo.Atomic(ctx, func(tx domain.Repository) error {
		if err := tx.DeleteDevice(ctx, id); err != nil {
			return err
		}
		return s.record(ctx, tx, actor, change{action: domain.ChangeActionDelete, objType: domain.DeviceType, objID: id, repr: existing.Name})
	})
}

func (s *Service) GetDevice(ctx context.Context, id uint) (domain.Device, error) {
	return s.repo.GetDevice(ctx, id)
}

func (s *Service) ListDevices(ctx context.Context, filter domain.InventoryFilter) ([]domain.Device, int64, error) {
	filter.Limit = clampLimit(filter.Limit)
	return s.repo.ListDevices(ctx, filter)
}
