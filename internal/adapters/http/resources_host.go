package http

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/atvirokodosprendimai/notices/internal/domain"
)

type hostJSON struct {
	ID          uint      `json:"id"`
	URL         string    `json:"url"`
	Display     string    `json:"display"`
	Name        string    `json:"name,omitempty"`
	Slug        string    `json:"slug,omitempty"`
	CID         string    `json:"cid,omitempty"`
	Provider    *brief    `json:"provider,omitempty"`
	Site        *brief    `json:"site,omitempty"`
	Description string    `json:"description,omitempty"`
	Created     time.Time `json:"created"`
	LastUpdated time.Time `json:"last_updated"`
}

type hostWrite struct {
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	CID         string `json:"cid"`
	Provider    refID  `json:"provider"`
	Site        *refID `json:"site"`
	Description string `json:"description"`
}

func inventoryFilter(q url.Values, limit, offset int) (domain.InventoryFilter, error) {
	f := domain.InventoryFilter{
		Query:  strings.TrimSpace(q.Get("q")),
		Slug:   strings.TrimSpace(q.Get("slug")),
		Limit:  limit,
		Offset: offset,
	}
	var err error
	if f.ProviderID, err = queryUint(q, "provider_id"); err != nil {
		return f, err
	}
	if f.SiteID, err = queryUint(q, "site_id"); err != nil {
		return f, err
	}
	return f, nil
}

func (h *Handler) siteBrief(id *uint) *brief {
	if id == nil {
		return nil
	}
	return h.brief(apiSitePath, *id, idDisplay(*id), "")
}

func (h *Handler) providerResource() resource[domain.Provider, hostWrite] {
	return resource[domain.Provider, hostWrite]{
		name: domain.ProviderType,
		list: func(r *http.Request, limit, offset int) ([]domain.Provider, int64, error) {
			f, err := inventoryFilter(r.URL.Query(), limit, offset)
			if err != nil {
				return nil, 0, err
			}
			return h.service.ListProviders(r.Context(), f)
		},
		get:    h.service.GetProvider,
		create: h.service.CreateProvider,
		update: h.service.UpdateProvider,
		remove: h.service.DeleteProvider,
		read: func(p domain.Provider) any {
			return hostJSON{
				ID: p.ID, URL: h.objectURL(apiProviderPath, p.ID), Display: p.Name,
				Name: p.Name, Slug: p.Slug, Description: p.Description,
				Created: p.CreatedAt.UTC(), LastUpdated: p.UpdatedAt.UTC(),
			}
		},
		write: func(p domain.Provider) hostWrite {
			return hostWrite{Name: p.Name, Slug: p.Slug, Description: p.Description}
		},
		apply: func(_ context.Context, w hostWrite, id uint) (domain.Provider, error) {
			return domain.Provider{ID: id, Name: w.Name, Slug: w.Slug, Description: w.Description}, nil
		},
	}
}

func (h *Handler) circuitResource() resource[domain.Circuit, hostWrite] {
	return resource[domain.Circuit, hostWrite]{
		name: domain.CircuitType,
		list: func(r *http.Request, limit, offset int) ([]domain.Circuit, int64, error) {
			f, err := inventoryFilter(r.URL.Query(), limit, offset)
			if err != nil {
				return nil, 0, err
			}
			return h.service.ListCircuits(r.Context(), f)
		},
		get:    h.service.GetCircuit,
		create: h.service.CreateCircuit,
		update: h.service.UpdateCircuit,
		remove: h.service.DeleteCircuit,
		read: func(c domain.Circuit) any {
			return hostJSON{
				ID: c.ID, URL: h.objectURL(apiCircuitPath, c.ID), Display: c.CID,
				CID: c.CID, Provider: h.providerBrief(c.Provider), Description: c.Description,
				Created: c.CreatedAt.UTC(), LastUpdated: c.UpdatedAt.UTC(),
			}
		},
		write: func(c domain.Circuit) hostWrite {
			return hostWrite{CID: c.CID, Provider: refID(c.ProviderID), Description: c.Description}
		},
		apply: func(_ context.Context, w hostWrite, id uint) (domain.Circuit, error) {
			return domain.Circuit{ID: id, CID: w.CID, ProviderID: uint(w.Provider), Description: w.Description}, nil
		},
	}
}

func (h *Handler) siteResource() resource[domain.Site, hostWrite] {
	return resource[domain.Site, hostWrite]{
		name: domain.SiteType,
		list: func(r *http.Request, limit, offset int) ([]domain.Site, int64, error) {
			f, err := inventoryFilter(r.URL.Query(), limit, offset)
			if err != nil {
				return nil, 0, err
			}
			return h.service.ListSites(r.Context(), f)
		},
		get:    h.service.GetSite,
		create: h.service.CreateSite,
		update: h.service.UpdateSite,
		remove: h.service.DeleteSite,
		read: func(s domain.Site) any {
			return hostJSON{
				ID: s.ID, URL: h.objectURL(apiSitePath, s.ID), Display: s.Name,
				Name: s.Name, Slug: s.Slug, Description: s.Description,
				Created: s.CreatedAt.UTC(), LastUpdated: s.UpdatedAt.UTC(),
			}
		},
		write: func(s domain.Site) hostWrite {
			return hostWrite{Name: s.Name, Slug: s.Slug, Description: s.Description}
		},
		apply: func(_ context.Context, w hostWrite, id uint) (domain.Site, error) {
			return domain.Site{ID: id, Name: w.Name, Slug: w.Slug, Description: w.Description}, nil
		},
	}
}

func (h *Handler) powerFeedResource() resource[domain.PowerFeed, hostWrite] {
	return resource[domain.PowerFeed, hostWrite]{
		name: domain.PowerFeedType,
		list: func(r *http.Request, limit, offset int) ([]domain.PowerFeed, int64, error) {
			f, err := inventoryFilter(r.URL.Query(), limit, offset)
			if err != nil {
				return nil, 0, err
			}
			return h.service.ListPowerFeeds(r.Context(), f)
		},
		get:    h.service.GetPowerFeed,
		create: h.service.CreatePowerFeed,
		update: h.service.UpdatePowerFeed,
		remove: h.service.DeletePowerFeed,
		read: func(p domain.PowerFeed) any {
			return hostJSON{
				ID: p.ID, URL: h.objectURL(apiPowerFeedPath, p.ID), Display: p.Name,
				Name: p.Name, Site: h.siteBrief(p.SiteID),
				Created: p.CreatedAt.UTC(), LastUpdated: p.UpdatedAt.UTC(),
			}
		},
		write: func(p domain.PowerFeed) hostWrite {
			return hostWrite{Name: p.Name, Site: refPtr(p.SiteID)}
		},
		apply: func(_ context.Context, w hostWrite, id uint) (domain.PowerFeed, error) {
			return domain.PowerFeed{ID: id, Name: w.Name, SiteID: uintPtr(w.Site)}, nil
		},
	}
}

func (h *Handler) deviceResource() resource[domain.Device, hostWrite] {
	return resource[domain.Device, hostWrite]{
		name: domain.DeviceType,
		list: func(r *http.Request, limit, offset int) ([]domain.Device, int64, error) {
			f, err := inventoryFilter(r.URL.Query(), limit, offset)
			if err != nil {
				return nil, 0, err
			}
			return h.service.ListDevices(r.Context(), f)
		},
		get:    h.service.GetDevice,
		create: h.service.CreateDevice,
		update: h.service.UpdateDevice,
		remove: h.service.DeleteDevice,
		read: func(d domain.Device) any {
			return hostJSON{
				ID: d.ID, URL: h.objectURL(apiDevicePath, d.ID), Display: d.Name,
				Name: d.Name, Site: h.siteBrief(d.SiteID),
				Created: d.CreatedAt.UTC(), LastUpdated: d.UpdatedAt.UTC(),
			}
		},
		write: func(d domain.Device) hostWrite {
			return hostWrite{Name: d.Name, Site: refPtr(d.SiteID)}
		},
		apply: func(_ context.Context, w hostWrite, id uint) (domain.Device, error) {
			return domain.Device{ID: id, Name: w.Name, SiteID: uintPtr(w.Site)}, nil
		},
	}
}
