package gormdb

import (
	"context"
	"strings"

	"github.com/atvirokodosprendimai/notices/internal/domain"
)

func toDomainProvider(m ProviderModel) domain.Provider {
	return domain.Provider{ID: m.ID, Name: m.Name, Slug: m.Slug, Description: m.Description, CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt}
}

func (r *Repository) CreateProvider(ctx context.Context, value domain.Provider) (domain.Provider, error) {
	m := ProviderModel{Name: value.Name, Slug: value.Slug, Description: value.Description}
	if err := r.create(ctx, &m); err != nil {
		return domain.Provider{}, err
	}
	return toDomainProvider(m), nil
}

func (r *Repository) UpdateProvider(ctx context.Context, value domain.Provider) (domain.Provider, error) {
	m := ProviderModel{ID: value.ID, Name: value.Name, Slug: value.Slug, Description: value.Description, CreatedAt: value.CreatedAt}
	if err := r.update(ctx, &m); err != nil {
		return domain.Provider{}, err
	}
	return r.GetProvider(ctx, value.ID)
}

func (r *Repository) DeleteProvider(ctx context.Context, id uint) error {
	return r.deleteByID(ctx, &ProviderModel{}, id)
}

func (r *Repository) GetProvider(ctx context.Context, id uint) (domain.Provider, error) {
	var m ProviderModel
	if err := r.db.WithContext(ctx).First(&m, id).Error; err != nil {
		return domain.Provider{}, mapErr(err)
	}
	return toDomainProvider(m), nil
}

func (r *Repository) GetProviderBySlug(ctx context.Context, slug string) (domain.Provider, error) {
	var m ProviderModel
	if err := r.db.WithContext(ctx).Where("slug = ?", strings.TrimSpace(slug)).First(&m).Error; err != nil {
		return domain.Provider{}, mapErr(err)
	}
	return toDomainProvider(m), nil
}

func (r *Repository) ListProviders(ctx context.Context, filter domain.InventoryFilter) ([]domain.Provider, int64, error) {
	q := r.db.WithContext(ctx).Model(&ProviderModel{})
	if strings.TrimSpace(filter.Query) != "" {
		like := likePattern(filter.Query)
		q = q.Where("LOWER(name) LIKE ? OR LOWER(slug) LIKE ?", like, like)
	}
	if filter.Slug != "" {
		q = q.Where("slug = ?", filter.Slug)
	}
	rows, total, err := paginate[ProviderModel](q, "name ASC", filter.Limit, filter.Offset)
	if err != nil {
		return nil, 0, err
	}
	out := make([]domain.Provider, 0, len(rows))
	for _, m := range rows {
		out = append(out, toDomainProvider(m))
	}
	return out, total, nil
}

func toDomainCircuit(m CircuitModel) domain.Circuit {
	return domain.Circuit{
		ID:          m.ID,
		CID:         m.CID,
		ProviderID:  m.ProviderID,
		Provider:    toDomainProvider(m.Provider),
		Description: m.Description,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

func (r *Repository) CreateCircuit(ctx context.Context, value domain.Circuit) (domain.Circuit, error) {
	m := CircuitModel{CID: value.CID, ProviderID: value.ProviderID, Description: value.Description}
	if err := r.create(ctx, &m); err != nil {
		return domain.Circuit{}, err
	}
	return r.GetCircuit(ctx, m.ID)
}

func (r *Repository) UpdateCircuit(ctx context.Context, value domain.Circuit) (domain.Circuit, error) {
	m := CircuitModel{ID: value.ID, CID: value.CID, ProviderID: value.ProviderID, Description: value.Description, CreatedAt: value.CreatedAt}
	if err := r.update(ctx, &m); err != nil {
		return domain.Circuit{}, err
	}
	return r.GetCircuit(ctx, value.ID)
}

func (r *Repository) DeleteCircuit(ctx context.Context, id uint) error {
	return r.deleteByID(ctx, &CircuitModel{}, id)
}

func (r *Repository) GetCircuit(ctx context.Context, id uint) (domain.Circuit, error) {
	var m CircuitModel
	if err := r.db.WithContext(ctx).Preload("Provider").First(&m, id).Error; err != nil {
		return domain.Circuit{}, mapErr(err)
	}
	return toDomainCircuit(m), nil
}

func (r *Repository) ListCircuits(ctx context.Context, filter domain.InventoryFilter) ([]domain.Circuit, int64, error) {
	q := r.db.WithContext(ctx).Model(&CircuitModel{})
	if strings.TrimSpace(filter.Query) != "" {
		like := likePattern(filter.Query)
		q = q.Where("LOWER(cid) LIKE ? OR LOWER(description) LIKE ?", like, like)
	}
	if filter.ProviderID != nil {
		q = q.Where("provider_id = ?", *filter.ProviderID)
	}
	rows, total, err := paginate[CircuitModel](q, "cid ASC", filter.Limit, filter.Offset, preloadProvider)
	if err != nil {
		return nil, 0, err
	}
	out := make([]domain.Circuit, 0, len(rows))
	for _, m := range rows {
		out = append(out, toDomainCircuit(m))
	}
	return out, total, nil
}

func toDomainSite(m SiteModel) domain.Site {
	return domain.Site{ID: m.ID, Name: m.Name, Slug: m.Slug, Description: m.Description, CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt}
}

func (r *Repository) CreateSite(ctx context.Context, value domain.Site) (domain.Site, error) {
	m := SiteModel{Name: value.Name, Slug: value.Slug, Description: value.Description}
	if err := r.create(ctx, &m); err != nil {
		return domain.Site{}, err
	}
	return toDomainSite(m), nil
}

func (r *Repository) UpdateSite(ctx context.Context, value domain.Site) (domain.Site, error) {
	m := SiteModel{ID: value.ID, Name: value.Name, Slug: value.Slug, Description: value.Description, CreatedAt: value.CreatedAt}
	if err := r.update(ctx, &m); err != nil {
		return domain.Site{}, err
	}
	return r.GetSite(ctx, value.ID)
}

func (r *Repository) DeleteSite(ctx context.Context, id uint) error {
	return r.deleteByID(ctx, &SiteModel{}, id)
}

func (r *Repository) GetSite(ctx context.Context, id uint) (domain.Site, error) {
	var m SiteModel
	if err := r.db.WithContext(ctx).First(&m, id).Error; err != nil {
		return domain.Site{}, mapErr(err)
	}
	return toDomainSite(m), nil
}

func (r *Repository) ListSites(ctx context.Context, filter domain.InventoryFilter) ([]domain.Site, int64, error) {
	q := r.db.WithContext(ctx).Model(&SiteModel{})
	if strings.TrimSpace(filter.Query) != "" {
		like := likePattern(filter.Query)
		q = q.Where("LOWER(name) LIKE ? OR LOWER(slug) LIKE ?", like, like)
	}
	if filter.Slug != "" {
		q = q.Where("slug = ?", filter.Slug)
	}
	rows, total, err := paginate[SiteModel](q, "name ASC", filter.Limit, filter.Offset)
	if err != nil {
		return nil, 0, err
	}
	out := make([]domain.Site, 0, len(rows))
	for _, m := range rows {
		out = append(out, toDomainSite(m))
	}
	return out, total, nil
}

func toDomainPowerFeed(m PowerFeedModel) domain.PowerFeed {
	return domain.PowerFeed{ID: m.ID, Name: m.Name, SiteID: m.SiteID, CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt}
}

func (r *Repository) CreatePowerFeed(ctx context.Context, value domain.PowerFeed) (domain.PowerFeed, error) {
	m := PowerFeedModel{Name: value.Name, SiteID: value.SiteID}
	if err := r.create(ctx, &m); err != nil {
		return domain.PowerFeed{}, err
	}
	return toDomainPowerFeed(m), nil
}

func (r *Repository) UpdatePowerFeed(ctx context.Context, value domain.PowerFeed) (domain.PowerFeed, error) {
	m := PowerFeedModel{ID: value.ID, Name: value.Name, SiteID: value.SiteID, CreatedAt: value.CreatedAt}
	if err := r.update(ctx, &m); err != nil {
		return domain.PowerFeed{}, err
	}
	return r.GetPowerFeed(ctx, value.ID)
}

func (r *Repository) DeletePowerFeed(ctx context.Context, id uint) error {
	return r.deleteByID(ctx, &PowerFeedModel{}, id)
}

func (r *Repository) GetPowerFeed(ctx context.Context, id uint) (domain.PowerFeed, error) {
	var m PowerFeedModel
	if err := r.db.WithContext(ctx).First(&m, id).Error; err != nil {
		return domain.PowerFeed{}, mapErr(err)
	}
	return toDomainPowerFeed(m), nil
}

func (r *Repository) ListPowerFeeds(ctx context.Context, filter domain.InventoryFilter) ([]domain.PowerFeed, int64, error) {
	q := r.db.WithContext(ctx).Model(&PowerFeedModel{})
	if strings.TrimSpace(filter.Query) != "" {
		q = q.Where("LOWER(name) LIKE ?", likePattern(filter.Query))
	}
	if filter.SiteID != nil {
		q = q.Where("site_id = ?", *filter.SiteID)
	}
	rows, total, err := paginate[PowerFeedModel](q, "name ASC", filter.Limit, filter.Offset)
	if err != nil {
		return nil, 0, err
	}
	out := make([]domain.PowerFeed, 0, len(rows))
	for _, m := range rows {
		out = append(out, toDomainPowerFeed(m))
	}
	return out, total, nil
}

func toDomainDevice(m DeviceModel) domain.Device {
	return domain.Device{ID: m.ID, Name: m.Name, SiteID: m.SiteID, CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt}
}

func (r *Repository) CreateDevice(ctx context.Context, value domain.Device) (domain.Device, error) {
	m := DeviceModel{Name: value.Name, SiteID: value.SiteID}
	if err := r.create(ctx, &m); err != nil {
		return domain.Device{}, err
	}
	return toDomainDevice(m), nil
}

func (r *Repository) UpdateDevice(ctx context.Context, value domain.Device) (domain.Device, error) {
	m := DeviceModel{ID: value.ID, Name: value.Name, SiteID: value.SiteID, CreatedAt: value.CreatedAt}
	if err := r.update(ctx, &m); err != nil {
		return domain.Device{}, err
	}
	return r.GetDevice(ctx, value.ID)
}

func (r *Repository) DeleteDevice(ctx context.Context, id uint) error {
	return r.deleteByID(ctx, &DeviceModel{}, id)
}

func (r *Repository) GetDevice(ctx context.Context, id uint) (domain.Device, error) {
	var m DeviceModel
	if err := r.db.WithContext(ctx).First(&m, id).Error; err != nil {
		return domain.Device{}, mapErr(err)
	}
	return toDomainDevice(m), nil
}

func (r *Repository) ListDevices(ctx context.Context, filter domain.InventoryFilter) ([]domain.Device, int64, error) {
	q := r.db.WithContext(ctx).Model(&DeviceModel{})
	if strings.TrimSpace(filter.Query) != "" {
		q = q.Where("LOWER(name) LIKE ?", likePattern(filter.Query))
	}
	if filter.SiteID != nil {
		q = q.Where("site_id = ?", *filter.SiteID)
	}
	rows, total, err := paginate[DeviceModel](q, "name ASC", filter.Limit, filter.Offset)
	if err != nil {
		return nil, 0, err
	}
	out := make([]domain.Device, 0, len(rows))
	for _, m := range rows {
		out = append(out, toDomainDevice(m))
	}
	return out, total, nil
}
