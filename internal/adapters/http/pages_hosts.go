package http

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/atvirokodosprendimai/notices/internal/application"
	"github.com/atvirokodosprendimai/notices/internal/domain"
	"github.com/atvirokodosprendimai/notices/internal/ui"
)

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

func (h *Handler) handleProviderList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	offset := guiOffset(q)
	query := strings.TrimSpace(q.Get("q"))
	rows, total, err := h.service.ListProviders(r.Context(), domain.InventoryFilter{Query: query, Limit: guiPageSize, Offset: offset})
	if err != nil {
		h.pageError(w, r, err)
		return
	}
	view := ui.ProviderList{Q: query, Providers: rows, Paging: guiPaging(r, total, offset)}
	h.render(w, r, http.StatusOK, ui.ProviderListPage(h.pageData(r, "Providers"), view))
}

func (h *Handler) handleProviderDetail(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		h.pageError(w, r, domain.ErrNotFound)
		return
	}
	p, err := h.service.GetProvider(r.Context(), id)
	if err != nil {
		h.pageError(w, r, err)
		return
	}
	view := ui.HostDetail{
		Title: p.Name,
		Fields: []ui.HostField{
			{Label: "Slug", Value: p.Slug},
			{Label: "Description", Value: orDash(p.Description)},
		},
	}
	identity, _ := identityFromContext(r.Context())
	if h.service.Can(identity, domain.Permission(application.ActionView, domain.MaintenanceType)) {
		activity, err := h.service.ProviderActivity(r.Context(), id)
		if err != nil {
			h.pageError(w, r, err)
			return
		}
		view.ShowActivity = true
		view.Maintenances, view.Outages = activity.Maintenances, activity.Outages
	}
	h.render(w, r, http.StatusOK, ui.HostDetailPage(h.pageData(r, p.Name), view))
}

// withImpacts adds the impact panel when the viewer may see impacts.
func (h *Handler) withImpacts(r *http.Request, view *ui.HostDetail, name domain.ContentTypeName, id uint) error {
	identity, _ := identityFromContext(r.Context())
	if !h.service.Can(identity, domain.Permission(application.ActionView, domain.ImpactType)) {
		return nil
	}
	impacts, err := h.service.ImpactsForTarget(r.Context(), name, id)
	if err != nil {
		return err
	}
	view.ShowImpacts = true
	view.Impacts = impacts
	return nil
}

func (h *Handler) handleCircuitDetail(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		h.pageError(w, r, domain.ErrNotFound)
		return
	}
	c, err := h.service.GetCircuit(r.Context(), id)
	if err != nil {
		h.pageError(w, r, err)
		return
	}
	view := ui.HostDetail{
		Title: "Circuit " + c.CID,
		Fields: []ui.HostField{
			{Label: "Provider", Value: c.Provider.Name, Href: fmt.Sprintf("/circuits/providers/%d", c.ProviderID)},
			{Label: "Description", Value: orDash(c.Description)},
		},
	}
	if err := h.withImpacts(r, &view, domain.CircuitType, id); err != nil {
		h.pageError(w, r, err)
		return
	}
	h.render(w, r, http.StatusOK, ui.HostDetailPage(h.pageData(r, view.Title), view))
}

func (h *Handler) handleSiteDetail(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		h.pageError(w, r, domain.ErrNotFound)
		return
	}
	s, err := h.service.GetSite(r.Context(), id)
	if err != nil {
		h.pageError(w, r, err)
		return
	}
	view := ui.HostDetail{
		Title: s.Name,
		Fields: []ui.HostField{
			{Label: "Slug", Value: s.Slug},
			{Label: "Description", Value: orDash(s.Description)},
		},
	}
	if err := h.withImpacts(r, &view, domain.SiteType, id); err != nil {
		h.pageError(w, r, err)
		return
	}
	h.render(w, r, http.StatusOK, ui.HostDetailPage(h.pageData(r, s.Name), view))
}
