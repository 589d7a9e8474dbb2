package ui

import (
	"context"

	"github.com/a-h/templ"

	"github.com/atvirokodosprendimai/notices/internal/domain"
)

type NotificationList struct {
	Q             string
	Notifications []domain.EventNotification
	Paging        Paging
}

func NotificationListPage(p PageData, v NotificationList) templ.Component {
	return layout(p, func(ctx context.Context, w *writer) {
		listHeader(w, p, "Inbound Notifications", domain.EventNotificationType, "/notices/notifications/add")
		w.raw(`<form class="row g-2 my-2" method="get">`)
		searchBox(w, v.Q, "Subject or sender", "col-md-10")
		w.raw(`<div class="col-md-2"><button class="btn btn-outline-primary w-100">Filter</button></div></form>`,
			`<table class="table table-hover"><thead><tr><th>Subject</th><th>From</th><th>Received</th><th>Event</th></tr></thead><tbody>`)
		for _, n := range v.Notifications {
			w.raw(`<tr><td>`)
			link(w, "/notices/notifications/"+utoa(n.ID), n.Subject)
			w.raw(`</td><td>`)
			w.text(n.EmailFrom)
			w.raw(`</td><td>`)
			w.text(p.time(n.EmailReceived))
			w.raw(`</td><td>`)
			link(w, eventPath(n.EventType.Model, n.EventObjectID), n.EventDisplay)
			w.raw(`</td></tr>`)
		}
		if len(v.Notifications) == 0 {
			emptyRow(w, 4, "No notifications found.")
		}
		w.raw(`</tbody></table>`)
		paging(w, v.Paging)
	})
}

type NotificationFormValues struct {
	EventTypeID   string
	EventObjectID string
	Subject       string
	EmailFrom     string
	EmailReceived string
	EmailBody     string
}

type NotificationForm struct {
	Editing     bool
	Action      string
	Cancel      string
	Errors      map[string][]string
	EventTypes  []domain.ContentType
	EventPicker Picker
	Values      NotificationFormValues
}

func NotificationFormPage(p PageData, v NotificationForm) templ.Component {
	vals := v.Values
	return layout(p, func(ctx context.Context, w *writer) {
		formTitle(w, v.Editing, "Notification")
		nonFieldErrors(w, v.Errors)
		w.raw(`<form method="post" class="col-lg-8" enctype="multipart/form-data"`)
		w.attr("action", v.Action)
		w.attr("data-signals", signals(map[string]string{"eventType": vals.EventTypeID}))
		w.raw(`><div class="row"><div class="col">`)
		typeSelect(w, v.Errors, "Event type", "event_content_type", "event-type", "/notices/pickers/events", v.EventTypes, vals.EventTypeID, false)
		w.raw(`</div>`)
		pickerField(w, v.Errors, "col mb-3", "Event", v.EventPicker)
		w.raw(`</div><div class="mb-3"><label class="form-label">Raw message (.eml)</label>`,
			`<input class="form-control" type="file" name="email_file" accept=".eml,message/rfc822">`,
			`<div class="form-text">When a file is given, subject, sender, date and body are read from it.</div>`)
		fieldErrors(w, v.Errors, "email")
		w.raw(`</div>`)
		textInput(w, v.Errors, "Subject", "subject", vals.Subject, "100")
		textInput(w, v.Errors, "Email From", "email_from", vals.EmailFrom, "")
		timeInput(w, v.Errors, "mb-3", "Email Received", "email_received", vals.EmailReceived)
		w.raw(`<div class="mb-3"><label class="form-label">Email Body</label><textarea class="form-control" name="email_body" rows="8">`)
		w.text(vals.EmailBody)
		w.raw(`</textarea>`)
		fieldErrors(w, v.Errors, "email_body")
		w.raw(`</div>`)
		formButtons(w, v.Cancel)
		w.raw(`</form>`)
	})
}

type NotificationDetail struct {
	Notification domain.EventNotification
	HasRaw       bool
}

func NotificationDetailPage(p PageData, v NotificationDetail) templ.Component {
	n := v.Notification
	self := "/notices/notifications/" + utoa(n.ID)
	return layout(p, func(ctx context.Context, w *writer) {
		w.raw(`<div class="d-flex justify-content-between align-items-center"><h1 class="h3">`)
		w.text(n.Subject)
		w.raw(`</h1><div class="d-flex gap-2">`)
		if p.allowed("change", domain.EventNotificationType) {
			button(w, "btn btn-warning", self+"/edit", "Edit")
		}
		if p.allowed("delete", domain.EventNotificationType) {
			button(w, "btn btn-danger", self+"/delete", "Delete")
		}
		button(w, "btn btn-outline-secondary", self+"/changelog", "Changelog")
		w.raw(`</div></div><table class="table table-sm mt-3 col-lg-6"><tr><th>Event</th><td>`)
		link(w, eventPath(n.EventType.Model, n.EventObjectID), n.EventDisplay)
		w.raw(`</td></tr>`)
		detailRow(w, "From", n.EmailFrom)
		detailRow(w, "Received", p.time(n.EmailReceived))
		w.raw(`<tr><th>Raw message</th><td>`)
		if v.HasRaw {
			link(w, self+"/raw", "Download .eml")
		} else {
			w.raw(`-`)
		}
		w.raw(`</td></tr></table><h2 class="h5">Body</h2><pre class="border rounded p-3 bg-light" style="white-space: pre-wrap">`)
		w.text(n.EmailBody)
		w.raw(`</pre>`)
	})
}
