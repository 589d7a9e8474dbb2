package ui

import (
	"context"
	"strings"

	"github.com/a-h/templ"

	"github.com/atvirokodosprendimai/notices/internal/domain"
)

type EventList struct {
	Q            string
	Provider     string
	Statuses     []string
	Maintenances []domain.Maintenance
	Outages      []domain.Outage
	Paging       Paging
}

func (v EventList) HasStatus(value string) bool {
	for _, s := range v.Statuses {
		if strings.EqualFold(s, value) {
			return true
		}
	}
	return false
}

func eventFilters(w *writer, v EventList, statuses []domain.Choice) {
	w.raw(`<form class="row g-2 my-2" method="get">`)
	searchBox(w, v.Q, "Search", "col-md-4")
	w.raw(`<div class="col-md-3"><select class="form-select" name="status" multiple>`)
	for _, c := range statuses {
		w.raw(`<option`)
		w.attr("value", c.Value)
		w.flag("selected", v.HasStatus(c.Value))
		w.raw(`>`)
		w.text(c.Label)
		w.raw(`</option>`)
	}
	w.raw(`</select></div><div class="col-md-3"><input class="form-control" name="provider" placeholder="Provider slug"`)
	w.attr("value", v.Provider)
	w.raw(`></div><div class="col-md-2"><button class="btn btn-outline-primary w-100">Filter</button></div></form>`)
}

func listHeader(w *writer, p PageData, title string, ct domain.ContentTypeName, addURL string) {
	w.raw(`<div class="d-flex justify-content-between align-items-center"><h1 class="h3">`)
	w.text(title)
	w.raw(`</h1>`)
	if p.allowed("add", ct) {
		button(w, "btn btn-primary", addURL, "Add")
	}
	w.raw(`</div>`)
}

func providerLink(w *writer, p domain.Provider) {
	link(w, "/circuits/providers/"+utoa(p.ID), p.Name)
}

func checkMark(ok bool) string {
	if ok {
		return "✔"
	}
	return "✘"
}

func MaintenanceListPage(p PageData, v EventList) templ.Component {
	return layout(p, func(ctx context.Context, w *writer) {
		listHeader(w, p, "Planned Maintenances", domain.MaintenanceType, "/notices/maintenances/add")
		eventFilters(w, v, domain.MaintenanceStatusChoices)
		w.raw(`<table class="table table-hover"><thead><tr><th>Name</th><th>Summary</th><th>Provider</th>`,
			`<th>Start</th><th>End</th><th>Acknowledged</th><th>Internal Ticket</th><th>Status</th><th>Impacts</th></tr></thead><tbody>`)
		for _, m := range v.Maintenances {
			w.raw(`<tr><td>`)
			link(w, "/notices/maintenances/"+utoa(m.ID), m.Name)
			w.raw(`</td><td>`)
			w.text(m.Summary)
			w.raw(`</td><td>`)
			providerLink(w, m.Provider)
			w.raw(`</td><td>`)
			w.text(p.time(m.Start))
			w.raw(`</td><td>`)
			w.text(p.time(m.End))
			w.raw(`</td><td>`, checkMark(m.Acknowledged), `</td><td>`)
			w.text(m.InternalTicket)
			w.raw(`</td><td>`)
			statusBadge(w, m.Status)
			w.raw(`</td><td>`, itoa(m.ImpactCount), `</td></tr>`)
		}
		if len(v.Maintenances) == 0 {
			emptyRow(w, 9, "No maintenances found.")
		}
		w.raw(`</tbody></table>`)
		paging(w, v.Paging)
	})
}

func OutageListPage(p PageData, v EventList) templ.Component {
	return layout(p, func(ctx context.Context, w *writer) {
		listHeader(w, p, "Outages", domain.OutageType, "/notices/outages/add")
		eventFilters(w, v, domain.OutageStatusChoices)
		w.raw(`<table class="table table-hover"><thead><tr><th>Name</th><th>Provider</th><th>Status</th>`,
			`<th>Start</th><th>End</th><th>ETR</th></tr></thead><tbody>`)
		for _, o := range v.Outages {
			w.raw(`<tr><td>`)
			link(w, "/notices/outages/"+utoa(o.ID), o.Name)
			w.raw(`</td><td>`)
			providerLink(w, o.Provider)
			w.raw(`</td><td>`)
			statusBadge(w, o.Status)
			w.raw(`</td><td>`)
			w.text(p.time(o.Start))
			w.raw(`</td><td>`)
			w.text(p.timePtr(o.End))
			w.raw(`</td><td>`)
			w.text(p.timePtr(o.EstimatedTimeToRepair))
			w.raw(`</td></tr>`)
		}
		if len(v.Outages) == 0 {
			emptyRow(w, 6, "No outages found.")
		}
		w.raw(`</tbody></table>`)
		paging(w, v.Paging)
	})
}

type EventFormValues struct {
	Name             string
	Summary          string
	ProviderID       string
	Status           string
	Start            string
	End              string
	ETR              string
	OriginalTimezone string
	InternalTicket   string
	Acknowledged     bool
	Comments         string
	Tags             string
}

type EventForm struct {
	KindLabel     string
	Editing       bool
	Action        string
	Cancel        string
	IsOutage      bool
	Providers     []domain.Provider
	StatusChoices []domain.Choice
	Errors        map[string][]string
	Values        EventFormValues
}

// textInput writes a labelled text input with its field errors.
func textInput(w *writer, errs map[string][]string, label, name, value, maxlength string) {
	w.raw(`<div class="mb-3"><label class="form-label">`)
	w.text(label)
	w.raw(`</label><input class="form-control"`)
	w.attr("name", name)
	if maxlength != "" {
		w.attr("maxlength", maxlength)
	}
	w.attr("value", value)
	w.raw(`>`)
	fieldErrors(w, errs, name)
	w.raw(`</div>`)
}

func timeInput(w *writer, errs map[string][]string, class, label, name, value string) {
	w.raw(`<div`)
	w.attr("class", class)
	w.raw(`><label class="form-label">`)
	w.text(label)
	w.raw(`</label><input class="form-control" type="datetime-local"`)
	w.attr("name", name)
	w.attr("value", value)
	w.raw(`>`)
	fieldErrors(w, errs, name)
	w.raw(`</div>`)
}

func formButtons(w *writer, cancel string) {
	w.raw(`<button class="btn btn-primary" type="submit">Save</button> `)
	button(w, "btn btn-outline-secondary", cancel, "Cancel")
}

func formTitle(w *writer, editing bool, noun string) {
	verb := "Add "
	if editing {
		verb = "Edit "
	}
	w.raw(`<h1 class="h3">`)
	w.text(verb + noun)
	w.raw(`</h1>`)
}

func EventFormPage(p PageData, v EventForm) templ.Component {
	vals := v.Values
	return layout(p, func(ctx context.Context, w *writer) {
		formTitle(w, v.Editing, v.KindLabel)
		nonFieldErrors(w, v.Errors)
		w.raw(`<form method="post" class="col-lg-8"`)
		w.attr("action", v.Action)
		w.raw(`>`)
		textInput(w, v.Errors, "Event ID", "name", vals.Name, "100")
		textInput(w, v.Errors, "Summary", "summary", vals.Summary, "200")

		w.raw(`<div class="mb-3"><label class="form-label">Provider</label><select class="form-select" name="provider">`,
			`<option value="">---------</option>`)
		for _, pr := range v.Providers {
			option(w, utoa(pr.ID), pr.Name, vals.ProviderID)
		}
		w.raw(`</select>`)
		fieldErrors(w, v.Errors, "provider")
		w.raw(`</div><div class="mb-3"><label class="form-label">Status</label><select class="form-select" name="status">`)
		for _, c := range v.StatusChoices {
			option(w, c.Value, c.Label, vals.Status)
		}
		w.raw(`</select>`)
		fieldErrors(w, v.Errors, "status")
		w.raw(`</div><div class="row">`)
		timeInput(w, v.Errors, "col mb-3", "Start Time", "start", vals.Start)
		timeInput(w, v.Errors, "col mb-3", "End Time", "end", vals.End)
		if v.IsOutage {
			timeInput(w, v.Errors, "col mb-3", "Estimated Time to Repair", "estimated_time_to_repair", vals.ETR)
		}
		w.raw(`</div>`)

		w.raw(`<div class="mb-3"><label class="form-label">Original Timezone</label>`,
			`<select class="form-select" name="original_timezone"><option value="">---------</option>`)
		for _, g := range domain.TimeZoneChoices {
			w.raw(`<optgroup`)
			w.attr("label", g.Name)
			w.raw(`>`)
			for _, zone := range g.Zones {
				option(w, zone, zone, vals.OriginalTimezone)
			}
			w.raw(`</optgroup>`)
		}
		w.raw(`</select><div class="form-text">`)
		if v.Editing {
			w.raw(`Original timezone from provider notification (reference only - times are already in system timezone)`)
		} else {
			w.raw(`Timezone used in the provider notification. Times entered above are converted from this zone to the system timezone.`)
		}
		w.raw(`</div>`)
		fieldErrors(w, v.Errors, "original_timezone")
		w.raw(`</div>`)

		textInput(w, v.Errors, "Internal Ticket", "internal_ticket", vals.InternalTicket, "100")
		w.raw(`<div class="form-check mb-3"><input class="form-check-input" type="checkbox" name="acknowledged" id="acknowledged"`)
		w.flag("checked", vals.Acknowledged)
		w.raw(`><label class="form-check-label" for="acknowledged">Acknowledged</label></div>`,
			`<div class="mb-3"><label class="form-label">Comments</label><textarea class="form-control" name="comments" rows="4">`)
		w.text(vals.Comments)
		w.raw(`</textarea></div><div class="mb-3"><label class="form-label">Tags</label>`,
			`<input class="form-control" name="tags" placeholder="comma separated"`)
		w.attr("value", vals.Tags)
		w.raw(`></div>`)
		formButtons(w, v.Cancel)
		w.raw(`</form>`)
	})
}

// Status is a resolved status choice.
type Status struct {
	Label string
	Color string
}

type EventDetail struct {
	Event         domain.Event
	KindLabel     string
	Kind          string
	EventTypeID   uint
	BasePath      string
	Status        Status
	EndText       string
	ETRText       string
	IsOutage      bool
	ICalURL       string
	Timeline      []domain.TimelineItem
	Impacts       []domain.Impact
	Notifications []domain.EventNotification
}

func detailRow(w *writer, label string, value string) {
	w.raw(`<tr><th>`)
	w.text(label)
	w.raw(`</th><td>`)
	w.text(value)
	w.raw(`</td></tr>`)
}

func EventDetailPage(p PageData, v EventDetail) templ.Component {
	e := v.Event
	kind := domain.ContentTypeName{AppLabel: domain.AppLabel, Model: v.Kind}
	self := v.BasePath + "/" + utoa(e.ID)
	return layout(p, func(ctx context.Context, w *writer) {
		w.raw(`<div class="d-flex justify-content-between align-items-center"><h1 class="h3">`)
		w.text(v.KindLabel + " " + e.Name)
		w.raw(`</h1><div class="d-flex gap-2">`)
		query := "?event_type=" + utoa(v.EventTypeID) + "&event_id=" + utoa(e.ID)
		if p.allowed("add", domain.ImpactType) {
			button(w, "btn btn-outline-primary", "/notices/impacts/add"+query, "Add Impact")
		}
		if p.allowed("add", domain.EventNotificationType) {
			button(w, "btn btn-outline-primary", "/notices/notifications/add"+query, "Add Notification")
		}
		if p.allowed("change", kind) {
			button(w, "btn btn-warning", self+"/edit", "Edit")
		}
		if p.allowed("delete", kind) {
			button(w, "btn btn-danger", self+"/delete", "Delete")
		}
		button(w, "btn btn-outline-secondary", self+"/changelog", "Changelog")
		w.raw(`</div></div><div class="row mt-3"><div class="col-lg-6"><table class="table table-sm"><tr><th>Provider</th><td>`)
		providerLink(w, e.Provider)
		w.raw(`</td></tr>`)
		detailRow(w, "Summary", e.Summary)
		w.raw(`<tr><th>Status</th><td>`)
		badgeSpan(w, v.Status.Label, v.Status.Color)
		w.raw(`</td></tr><tr><th>Start Time</th><td>`)
		w.text(p.time(e.Start))
		if domain.HasTimezoneDifference(e.Start, e.OriginalTimezone, orUTC(p.Location)) {
			w.raw(` <small class="text-muted">(`)
			w.text(domain.InOriginalZone(e.Start, e.OriginalTimezone).Format(displayLayout))
			w.raw(`)</small>`)
		}
		w.raw(`</td></tr>`)
		detailRow(w, "End Time", v.EndText)
		if v.IsOutage {
			detailRow(w, "Estimated Time to Repair", v.ETRText)
		}
		detailRow(w, "Original Timezone", orDash(e.OriginalTimezone))
		detailRow(w, "Internal Ticket", orDash(e.InternalTicket))
		ack := "No"
		if e.Acknowledged {
			ack = "Yes"
		}
		detailRow(w, "Acknowledged", ack)
		detailRow(w, "Tags", strings.Join(e.Tags, ", "))
		w.raw(`<tr><th>Comments</th><td style="white-space: pre-wrap">`)
		w.text(e.Comments)
		w.raw(`</td></tr></table>`)
		if v.ICalURL != "" {
			w.raw(`<p class="small text-muted">Calendar feed: <code>`)
			w.text(v.ICalURL)
			w.raw(`</code></p>`)
		}
		w.raw(`</div><div class="col-lg-6"><h2 class="h5">Timeline</h2>`)
		timeline(w, p, v.Timeline)
		w.raw(`</div></div><h2 class="h5 mt-4">Impacts</h2>`)
		impactTable(w, v.Impacts)
		w.raw(`<h2 class="h5 mt-4">Notifications</h2>`)
		notificationTable(w, p, v.Notifications)
	})
}

func impactTable(w *writer, impacts []domain.Impact) {
	w.raw(`<table class="table table-sm"><thead><tr><th>Target</th><th>Type</th><th>Impact</th><th></th></tr></thead><tbody>`)
	for _, imp := range impacts {
		w.raw(`<tr><td>`)
		w.text(imp.TargetDisplay)
		w.raw(`</td><td>`)
		w.text(imp.TargetType.String())
		w.raw(`</td><td>`)
		impactBadge(w, imp.Impact)
		w.raw(`</td><td class="text-end">`)
		link(w, "/notices/impacts/"+utoa(imp.ID)+"/edit", "Edit")
		w.raw(` · `)
		link(w, "/notices/impacts/"+utoa(imp.ID)+"/delete", "Delete")
		w.raw(`</td></tr>`)
	}
	if len(impacts) == 0 {
		emptyRow(w, 4, "No impacts.")
	}
	w.raw(`</tbody></table>`)
}

func notificationTable(w *writer, p PageData, rows []domain.EventNotification) {
	w.raw(`<table class="table table-sm"><thead><tr><th>Subject</th><th>From</th><th>Received</th></tr></thead><tbody>`)
	for _, n := range rows {
		w.raw(`<tr><td>`)
		link(w, "/notices/notifications/"+utoa(n.ID), n.Subject)
		w.raw(`</td><td>`)
		w.text(n.EmailFrom)
		w.raw(`</td><td>`)
		w.text(p.time(n.EmailReceived))
		w.raw(`</td></tr>`)
	}
	if len(rows) == 0 {
		emptyRow(w, 3, "No notifications.")
	}
	w.raw(`</tbody></table>`)
}

type ConfirmDelete struct {
	Kind    string
	Name    string
	Warning string
	Action  string
	Cancel  string
}

func ConfirmDeletePage(p PageData, v ConfirmDelete) templ.Component {
	return layout(p, func(ctx context.Context, w *writer) {
		w.raw(`<h1 class="h3">`)
		w.text("Delete " + v.Kind + "?")
		w.raw(`</h1><p>Are you sure you want to delete <strong>`)
		w.text(v.Name)
		w.raw(`</strong>?</p>`)
		if v.Warning != "" {
			w.raw(`<div class="alert alert-warning">`)
			w.text(v.Warning)
			w.raw(`</div>`)
		}
		w.raw(`<form method="post" class="d-flex gap-2"`)
		w.attr("action", v.Action)
		w.raw(`><button class="btn btn-danger" type="submit">Delete</button>`)
		button(w, "btn btn-outline-secondary", v.Cancel, "Cancel")
		w.raw(`</form>`)
	})
}

type Changelog struct {
	Name   string
	Back   string
	Items  []domain.TimelineItem
	Paging Paging
}

func ChangelogPage(p PageData, v Changelog) templ.Component {
	return layout(p, func(ctx context.Context, w *writer) {
		w.raw(`<h1 class="h3">`)
		w.text("Changelog: " + v.Name)
		w.raw(`</h1><p>`)
		link(w, v.Back, "← Back")
		w.raw(`</p><table class="table table-sm"><thead><tr><th>Time</th><th>User</th><th>Action</th>`,
			`<th>Object</th><th>Changes</th></tr></thead><tbody>`)
		for _, it := range v.Items {
			w.raw(`<tr><td>`)
			w.text(p.time(it.Time))
			w.raw(`</td><td>`)
			w.text(it.User)
			w.raw(`</td><td>`)
			w.text(it.Title)
			w.raw(`</td><td>`)
			w.text(it.Category)
			w.raw(`</td><td>`)
			changeList(w, it.Changes)
			w.raw(`</td></tr>`)
		}
		if len(v.Items) == 0 {
			emptyRow(w, 5, "No changes recorded.")
		}
		w.raw(`</tbody></table>`)
		paging(w, v.Paging)
	})
}

// calendarScript fills #calendar with one month of maintenances from the
// REST API. Names come from user input and are set through textContent.
const calendarScript = `<script type="module">
const root = document.getElementById('calendar');
let offset = 0;
function el(tag, className, text) {
  const node = document.createElement(tag);
  if (className) node.className = className;
  if (text !== undefined) node.textContent = text;
  return node;
}
async function load() {
  const now = new Date();
  const first = new Date(Date.UTC(now.getUTCFullYear(), now.getUTCMonth() + offset, 1));
  const next = new Date(Date.UTC(first.getUTCFullYear(), first.getUTCMonth() + 1, 1));
  const q = new URLSearchParams({end_after: first.toISOString(), start_before: next.toISOString(), ordering: 'start', limit: '1000'});
  const res = await fetch('/api/plugins/notices/maintenance/?' + q, {credentials: 'same-origin'});
  const body = res.ok ? await res.json() : {results: []};
  const days = {};
  for (const m of body.results) {
    (days[m.start.slice(0, 10)] ||= []).push(m);
  }
  const title = el('h2', 'h5', first.toLocaleString(undefined, {month: 'long', year: 'numeric', timeZone: 'UTC'}));
  const grid = el('div', 'row row-cols-7 g-1');
  const lead = (first.getUTCDay() + 6) % 7;
  for (let i = 0; i < lead; i++) grid.append(el('div', 'col'));
  for (let d = new Date(first); d < next; d.setUTCDate(d.getUTCDate() + 1)) {
    const cell = el('div', 'border rounded p-1 small');
    cell.style.minHeight = '6rem';
    cell.append(el('div', 'fw-bold', String(d.getUTCDate())));
    for (const m of days[d.toISOString().slice(0, 10)] || []) {
      const a = el('a', '', (m.provider ? m.provider.name + ': ' : '') + m.name);
      a.href = '/notices/maintenances/' + encodeURIComponent(m.id);
      const row = el('div');
      row.append(a);
      cell.append(row);
    }
    const col = el('div', 'col');
    col.append(cell);
    grid.append(col);
  }
  root.replaceChildren(title, grid);
}
document.querySelectorAll('[data-step]').forEach(b => b.addEventListener('click', () => {
  const step = Number(b.dataset.step);
  offset = step === 0 ? 0 : offset + step;
  load();
}));
load();
</script>`

func CalendarPage(p PageData, icalURL string) templ.Component {
	return layout(p, func(ctx context.Context, w *writer) {
		w.raw(`<div class="d-flex justify-content-between align-items-center"><h1 class="h3">Maintenance Calendar</h1>`,
			`<div class="d-flex gap-2"><button class="btn btn-outline-secondary" data-step="-1">&larr;</button>`,
			`<button class="btn btn-outline-secondary" data-step="0">Today</button>`,
			`<button class="btn btn-outline-secondary" data-step="1">&rarr;</button></div></div>`)
		if icalURL != "" {
			w.raw(`<p class="small text-muted">Subscribe: <code>`)
			w.text(icalURL)
			w.raw(`</code></p>`)
		}
		w.raw(`<div id="calendar" class="mt-3"></div>`, calendarScript)
	})
}

type ScheduleDay struct {
	Label        string
	Maintenances []domain.Maintenance
}

func SchedulePage(p PageData, days []ScheduleDay) templ.Component {
	return layout(p, func(ctx context.Context, w *writer) {
		w.raw(`<h1 class="h3">Maintenance Schedule</h1>`)
		for _, day := range days {
			w.raw(`<h2 class="h5 mt-4">`)
			w.text(day.Label)
			w.raw(`</h2><table class="table table-sm"><thead><tr><th>Start</th><th>End</th><th>Provider</th>`,
				`<th>Name</th><th>Status</th><th>Impacts</th></tr></thead><tbody>`)
			for _, m := range day.Maintenances {
				w.raw(`<tr><td>`)
				w.text(p.time(m.Start))
				w.raw(`</td><td>`)
				w.text(p.time(m.End))
				w.raw(`</td><td>`)
				w.text(m.Provider.Name)
				w.raw(`</td><td>`)
				link(w, "/notices/maintenances/"+utoa(m.ID), m.Name)
				w.raw(`</td><td>`)
				statusBadge(w, m.Status)
				w.raw(`</td><td>`, itoa(m.ImpactCount), `</td></tr>`)
			}
			w.raw(`</tbody></table>`)
		}
		if len(days) == 0 {
			w.raw(`<p class="text-muted">No upcoming maintenances.</p>`)
		}
	})
}
