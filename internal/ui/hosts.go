package ui

import (
	"context"

	"github.com/a-h/templ"

	"github.com/atvirokodosprendimai/notices/internal/application"
	"github.com/atvirokodosprendimai/notices/internal/domain"
)

// Host pages are the provider, circuit and site screens the notices panels
// attach to.

type ProviderList struct {
	Q         string
	Providers []domain.Provider
	Paging    Paging
}

func ProviderListPage(p PageData, v ProviderList) templ.Component {
	return layout(p, func(ctx context.Context, w *writer) {
		w.raw(`<h1 class="h3">Providers</h1><form class="row g-2 my-2" method="get">`)
		searchBox(w, v.Q, "Search", "col-md-10")
		w.raw(`<div class="col-md-2"><button class="btn btn-outline-primary w-100">Filter</button></div></form>`,
			`<table class="table table-hover"><thead><tr><th>Name</th><th>Slug</th><th>Description</th></tr></thead><tbody>`)
		for _, pr := range v.Providers {
			w.raw(`<tr><td>`)
			providerLink(w, pr)
			w.raw(`</td><td>`)
			w.text(pr.Slug)
			w.raw(`</td><td>`)
			w.text(pr.Description)
			w.raw(`</td></tr>`)
		}
		if len(v.Providers) == 0 {
			emptyRow(w, 3, "No providers.")
		}
		w.raw(`</tbody></table>`)
		paging(w, v.Paging)
	})
}

type HostField struct {
	Label string
	Value string
	Href  string
}

type HostDetail struct {
	Title        string
	Fields       []HostField
	ShowActivity bool
	Maintenances []domain.Maintenance
	Outages      []domain.Outage
	ShowImpacts  bool
	Impacts      []application.TargetImpact
}

func HostDetailPage(p PageData, v HostDetail) templ.Component {
	return layout(p, func(ctx context.Context, w *writer) {
		w.raw(`<h1 class="h3">`)
		w.text(v.Title)
		w.raw(`</h1><table class="table table-sm col-lg-6">`)
		for _, f := range v.Fields {
			if f.Href == "" {
				detailRow(w, f.Label, f.Value)
				continue
			}
			w.raw(`<tr><th>`)
			w.text(f.Label)
			w.raw(`</th><td>`)
			link(w, f.Href, f.Value)
			w.raw(`</td></tr>`)
		}
		w.raw(`</table>`)
		if v.ShowActivity {
			activity(w, p, v)
		}
		if v.ShowImpacts {
			targetImpacts(w, p, v.Impacts)
		}
	})
}

func activity(w *writer, p PageData, v HostDetail) {
	w.raw(`<h2 class="h5 mt-4">Active Maintenances</h2><table class="table table-sm"><thead><tr>`,
		`<th>Name</th><th>Start</th><th>End</th><th>Status</th><th>Impacts</th></tr></thead><tbody>`)
	for _, m := range v.Maintenances {
		w.raw(`<tr><td>`)
		link(w, "/notices/maintenances/"+utoa(m.ID), m.Name)
		w.raw(`</td><td>`)
		w.text(p.time(m.Start))
		w.raw(`</td><td>`)
		w.text(p.time(m.End))
		w.raw(`</td><td>`)
		statusBadge(w, m.Status)
		w.raw(`</td><td>`, itoa(m.ImpactCount), `</td></tr>`)
	}
	if len(v.Maintenances) == 0 {
		emptyRow(w, 5, "None.")
	}
	w.raw(`</tbody></table><h2 class="h5 mt-4">Open Outages</h2><table class="table table-sm"><thead><tr>`,
		`<th>Name</th><th>Start</th><th>Estimated Time to Repair</th><th>Status</th></tr></thead><tbody>`)
	for _, o := range v.Outages {
		w.raw(`<tr><td>`)
		link(w, "/notices/outages/"+utoa(o.ID), o.Name)
		w.raw(`</td><td>`)
		w.text(p.time(o.Start))
		w.raw(`</td><td>`)
		w.text(p.timePtr(o.EstimatedTimeToRepair))
		w.raw(`</td><td>`)
		statusBadge(w, o.Status)
		w.raw(`</td></tr>`)
	}
	if len(v.Outages) == 0 {
		emptyRow(w, 4, "None.")
	}
	w.raw(`</tbody></table>`)
}

func targetImpacts(w *writer, p PageData, impacts []application.TargetImpact) {
	w.raw(`<h2 class="h5 mt-4">Maintenance and Outage Impacts</h2><table class="table table-sm"><thead><tr>`,
		`<th>Event</th><th>Type</th><th>Start</th><th>Status</th><th>Impact</th></tr></thead><tbody>`)
	for _, ti := range impacts {
		w.raw(`<tr><td>`)
		link(w, eventPath(ti.EventType.Model, ti.EventObjectID), ti.EventDisplay)
		w.raw(`</td><td>`)
		w.text(ti.EventKind)
		w.raw(`</td><td>`)
		w.text(p.time(ti.EventStart))
		w.raw(`</td><td>`)
		w.text(ti.EventStatus)
		w.raw(`</td><td>`)
		impactBadge(w, ti.Impact.Impact)
		w.raw(`</td></tr>`)
	}
	if len(impacts) == 0 {
		emptyRow(w, 5, "No recent impacts.")
	}
	w.raw(`</tbody></table>`)
}
