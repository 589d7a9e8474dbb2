package ui

import (
	"context"
	"time"

	"github.com/a-h/templ"

	"github.com/atvirokodosprendimai/notices/internal/domain"
)

// PageData is passed to every full page.
type PageData struct {
	Title     string
	UserEmail string
	Flash     string
	FlashKind string
	// Can reports whether the viewer holds a permission. Nil means no
	// permissions and hides the navigation.
	Can func(permission string) bool
	// Location is the zone times are shown in.
	Location *time.Location
}

func (p PageData) Allowed(permission string) bool {
	return p.Can != nil && p.Can(permission)
}

func (p PageData) allowed(action string, ct domain.ContentTypeName) bool {
	return p.Allowed(domain.Permission(action, ct))
}

func (p PageData) time(t time.Time) string { return FormatTime(p.Location, t) }

func (p PageData) timePtr(t *time.Time) string { return formatTimePtr(p.Location, t) }

func layout(p PageData, content func(ctx context.Context, w *writer)) templ.Component {
	return component(func(ctx context.Context, w *writer) {
		w.raw(`<!doctype html><html lang="en"><head><meta charset="utf-8">`,
			`<meta name="viewport" content="width=device-width, initial-scale=1"><title>`)
		w.text(p.Title)
		w.raw(` · Notices</title>`,
			`<link rel="stylesheet" href="https://cdn.jsdelivr.net/npm/bootstrap@5.3.3/dist/css/bootstrap.min.css">`,
			`<script type="module" src="https://cdn.jsdelivr.net/gh/starfederation/datastar@v1.0.0/bundles/datastar.js"></script>`,
			`</head><body>`)
		if p.Can != nil {
			navbar(w, p)
		}
		w.raw(`<main class="container-fluid">`)
		if p.Flash != "" {
			w.child(ctx, Flash(p.Flash, p.FlashKind))
		}
		content(ctx, w)
		w.raw(`</main></body></html>`)
	})
}

func navbar(w *writer, p PageData) {
	w.raw(`<nav class="navbar navbar-expand navbar-dark bg-dark mb-3"><div class="container-fluid">`,
		`<a class="navbar-brand" href="/notices/maintenances">Notices</a><ul class="navbar-nav me-auto">`,
		`<li class="nav-item dropdown"><span class="nav-link">Notifications</span>`,
		`<a class="nav-link d-inline" href="/notices/notifications">Inbound</a></li>`,
		`<li class="nav-item"><span class="nav-link">Events</span></li>`,
		`<li class="nav-item"><a class="nav-link" href="/notices/maintenances">Planned Maintenances</a></li>`)
	if p.allowed("add", domain.MaintenanceType) {
		w.raw(`<li class="nav-item"><a class="nav-link" href="/notices/maintenances/add" title="Add">+</a></li>`)
	}
	w.raw(`<li class="nav-item"><a class="nav-link" href="/notices/outages">Outages</a></li>`)
	if p.allowed("add", domain.OutageType) {
		w.raw(`<li class="nav-item"><a class="nav-link" href="/notices/outages/add" title="Add">+</a></li>`)
	}
	w.raw(`<li class="nav-item"><a class="nav-link" href="/notices/maintenances/calendar">Calendar</a></li>`,
		`<li class="nav-item"><a class="nav-link" href="/notices/maintenances/schedule">Schedule</a></li>`,
		`<li class="nav-item"><a class="nav-link" href="/circuits/providers">Providers</a></li></ul>`)
	if p.UserEmail != "" {
		w.raw(`<span class="navbar-text me-3">`)
		w.text(p.UserEmail)
		w.raw(`</span><form method="post" action="/logout"><button class="btn btn-sm btn-outline-light">Log out</button></form>`)
	} else {
		w.raw(`<a class="btn btn-sm btn-outline-light" href="/login">Log in</a>`)
	}
	w.raw(`</div></nav>`)
}

// LoginPage renders the login form. next is the local path to return to.
func LoginPage(message, next string) templ.Component {
	p := PageData{Title: "Log in", Flash: message, FlashKind: "error"}
	return layout(p, func(ctx context.Context, w *writer) {
		w.raw(`<div class="row justify-content-center mt-5"><div class="col-md-4">`,
			`<h1 class="h4 mb-3">Log in</h1><form method="post" action="/login">`,
			`<input type="hidden" name="next"`)
		w.attr("value", next)
		w.raw(`><div class="mb-3"><label class="form-label" for="email">Email</label>`,
			`<input class="form-control" id="email" name="email" type="email" required></div>`,
			`<div class="mb-3"><label class="form-label" for="password">Password</label>`,
			`<input class="form-control" id="password" name="password" type="password" required></div>`,
			`<button class="btn btn-primary" type="submit">Log in</button></form></div></div>`)
	})
}

func Flash(message, kind string) templ.Component {
	return component(func(ctx context.Context, w *writer) {
		class := "alert alert-info"
		if kind == "error" {
			class = "alert alert-danger"
		}
		w.raw(`<div id="flash"`)
		w.attr("class", class)
		w.raw(`>`)
		w.text(message)
		w.raw(`</div>`)
	})
}

func fieldErrors(w *writer, errs map[string][]string, field string) {
	for _, msg := range errs[field] {
		w.raw(`<div class="invalid-feedback d-block">`)
		w.text(msg)
		w.raw(`</div>`)
	}
}

func nonFieldErrors(w *writer, errs map[string][]string) {
	msgs := errs[domain.NonFieldErrors]
	if len(msgs) == 0 {
		return
	}
	w.raw(`<div class="alert alert-danger">`)
	for _, msg := range msgs {
		w.raw(`<div>`)
		w.text(msg)
		w.raw(`</div>`)
	}
	w.raw(`</div>`)
}

type badge interface {
	Label() string
	Color() string
}

func statusBadge(w *writer, b badge) {
	badgeSpan(w, b.Label(), b.Color())
}

func badgeSpan(w *writer, label, color string) {
	w.raw(`<span class="badge text-bg-light border"`)
	w.attr("style", "border-color: "+color+" !important; color: "+color)
	w.raw(`>`)
	w.text(label)
	w.raw(`</span>`)
}

func impactBadge(w *writer, level domain.ImpactLevel) {
	if level == "" {
		w.raw(`-`)
		return
	}
	statusBadge(w, level)
}

// option writes one <option>, selected when value equals current.
func option(w *writer, value, label, current string) {
	w.raw(`<option`)
	w.attr("value", value)
	w.flag("selected", value == current)
	w.raw(`>`)
	w.text(label)
	w.raw(`</option>`)
}

func link(w *writer, url, label string) {
	w.raw(`<a`)
	w.href(url)
	w.raw(`>`)
	w.text(label)
	w.raw(`</a>`)
}

func button(w *writer, class, url, label string) {
	w.raw(`<a`)
	w.attr("class", class)
	w.href(url)
	w.raw(`>`)
	w.text(label)
	w.raw(`</a>`)
}

// Paging is the offset navigation under a list.
type Paging struct {
	Count int64
	Prev  string
	Next  string
}

func paging(w *writer, p Paging) {
	w.raw(`<nav class="d-flex gap-2 my-2"><span class="text-muted">`)
	w.text(i64toa(p.Count))
	w.raw(` total</span>`)
	if p.Prev != "" {
		button(w, "btn btn-sm btn-outline-secondary", p.Prev, "Previous")
	}
	if p.Next != "" {
		button(w, "btn btn-sm btn-outline-secondary", p.Next, "Next")
	}
	w.raw(`</nav>`)
}

func changeList(w *writer, changes []domain.FieldChange) {
	if len(changes) == 0 {
		return
	}
	w.raw(`<ul class="small mb-0">`)
	for _, c := range changes {
		w.raw(`<li>`)
		w.text(c.Label + ": " + orDash(c.Old) + " → " + orDash(c.New))
		w.raw(`</li>`)
	}
	w.raw(`</ul>`)
}

func timeline(w *writer, p PageData, items []domain.TimelineItem) {
	w.raw(`<ul class="list-group">`)
	for _, it := range items {
		w.raw(`<li class="list-group-item"><div><strong>`)
		w.text(it.Title)
		w.raw(`</strong> <small class="text-muted">`)
		w.text(p.time(it.Time) + " · " + it.User + " · " + it.Icon)
		w.raw(`</small></div>`)
		changeList(w, it.Changes)
		w.raw(`</li>`)
	}
	if len(items) == 0 {
		w.raw(`<li class="list-group-item text-muted">No changes recorded.</li>`)
	}
	w.raw(`</ul>`)
}

// eventPath is the detail page of the event a content type names.
func eventPath(model string, id uint) string {
	return "/notices/" + model + "s/" + utoa(id)
}

func emptyRow(w *writer, cols int, message string) {
	w.raw(`<tr><td`)
	w.attr("colspan", itoa(cols))
	w.raw(` class="text-muted">`)
	w.text(message)
	w.raw(`</td></tr>`)
}

func searchBox(w *writer, q, placeholder, width string) {
	w.raw(`<div`)
	w.attr("class", width)
	w.raw(`><input class="form-control" name="q"`)
	w.attr("placeholder", placeholder)
	w.attr("value", q)
	w.raw(`></div>`)
}
