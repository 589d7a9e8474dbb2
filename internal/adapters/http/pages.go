package http

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/atvirokodosprendimai/notices/internal/application"
	"github.com/atvirokodosprendimai/notices/internal/domain"
	"github.com/atvirokodosprendimai/notices/internal/ui"
)

const (
	guiPageSize     = 50
	inputTimeLayout = "2006-01-02T15:04"
	scheduleLimit   = 500
)

type eventKind struct {
	name     domain.ContentTypeName
	basePath string
	label    string
}

var (
	maintenanceKind = eventKind{name: domain.MaintenanceType, basePath: "/notices/maintenances", label: "Maintenance"}
	outageKind      = eventKind{name: domain.OutageType, basePath: "/notices/outages", label: "Outage"}
)

func (k eventKind) isOutage() bool { return k.name == domain.OutageType }

func guiPaging(r *http.Request, total int64, offset int) ui.Paging {
	p := ui.Paging{Count: total}
	link := func(off int) string {
		q := r.URL.Query()
		q.Set("offset", strconv.Itoa(off))
		return r.URL.Path + "?" + q.Encode()
	}
	if int64(offset+guiPageSize) < total {
		p.Next = link(offset + guiPageSize)
	}
	if offset > 0 {
		p.Prev = link(max(offset-guiPageSize, 0))
	}
	return p
}

func guiOffset(q url.Values) int {
	n, _ := strconv.Atoi(q.Get("offset"))
	return max(n, 0)
}

func (h *Handler) handleEventList(k eventKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		view := ui.EventList{
			Q:        strings.TrimSpace(q.Get("q")),
			Provider: strings.TrimSpace(q.Get("provider")),
			Statuses: queryStrings(q, "status"),
		}
		offset := guiOffset(q)
		filter := domain.EventFilter{Query: view.Q, OrderBy: "-start", Limit: guiPageSize, Offset: offset}
		for _, st := range view.Statuses {
			filter.Statuses = append(filter.Statuses, strings.ToUpper(st))
		}
		if view.Provider != "" {
			filter.ProviderSlugs = []string{view.Provider}
		}

		var (
			total int64
			err   error
		)
		if k.isOutage() {
			view.Outages, total, err = h.service.ListOutages(r.Context(), filter)
		} else {
			view.Maintenances, total, err = h.service.ListMaintenances(r.Context(), filter)
		}
		if err != nil {
			h.pageError(w, r, err)
			return
		}
		view.Paging = guiPaging(r, total, offset)
		if k.isOutage() {
			h.render(w, r, http.StatusOK, ui.OutageListPage(h.pageData(r, "Outages"), view))
			return
		}
		h.render(w, r, http.StatusOK, ui.MaintenanceListPage(h.pageData(r, "Planned Maintenances"), view))
	}
}

func (h *Handler) valuesFromEvent(e domain.Event) ui.EventFormValues {
	return ui.EventFormValues{
		Name:             e.Name,
		Summary:          e.Summary,
		ProviderID:       idString(e.ProviderID),
		Start:            ui.InputTime(h.loc, e.Start),
		OriginalTimezone: e.OriginalTimezone,
		InternalTicket:   e.InternalTicket,
		Acknowledged:     e.Acknowledged,
		Comments:         e.Comments,
		Tags:             strings.Join(e.Tags, ", "),
	}
}

func idString(id uint) string {
	if id == 0 {
		return ""
	}
	return strconv.FormatUint(uint64(id), 10)
}

func (h *Handler) handleEventForm(k eventKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		view := ui.EventForm{Action: k.basePath + "/add", Cancel: k.basePath}
		if id, ok := pathID(r); ok {
			view.Editing = true
			view.Action = fmt.Sprintf("%s/%d/edit", k.basePath, id)
			view.Cancel = fmt.Sprintf("%s/%d", k.basePath, id)
			if k.isOutage() {
				o, err := h.service.GetOutage(r.Context(), id)
				if err != nil {
					h.pageError(w, r, err)
					return
				}
				view.Values = h.valuesFromEvent(o.Event)
				view.Values.Status = string(o.Status)
				if o.End != nil {
					view.Values.End = ui.InputTime(h.loc, *o.End)
				}
				if o.EstimatedTimeToRepair != nil {
					view.Values.ETR = ui.InputTime(h.loc, *o.EstimatedTimeToRepair)
				}
			} else {
				m, err := h.service.GetMaintenance(r.Context(), id)
				if err != nil {
					h.pageError(w, r, err)
					return
				}
				view.Values = h.valuesFromEvent(m.Event)
				view.Values.Status = string(m.Status)
				view.Values.End = ui.InputTime(h.loc, m.End)
			}
		} else {
			view.Values.ProviderID = r.URL.Query().Get("provider")
			view.Values.Status = string(domain.MaintenanceTentative)
			if k.isOutage() {
				view.Values.Status = string(domain.OutageReported)
			}
		}
		h.renderEventForm(w, r, k, view, http.StatusOK)
	}
}

func (h *Handler) renderEventForm(w http.ResponseWriter, r *http.Request, k eventKind, view ui.EventForm, status int) {
	providers, _, err := h.service.ListProviders(r.Context(), domain.InventoryFilter{Limit: 1000})
	if err != nil {
		h.pageError(w, r, err)
		return
	}
	view.KindLabel = k.label
	view.IsOutage = k.isOutage()
	view.Providers = providers
	view.StatusChoices = domain.MaintenanceStatusChoices
	if k.isOutage() {
		view.StatusChoices = domain.OutageStatusChoices
	}
	title := "Add " + k.label
	if view.Editing {
		title = "Edit " + k.label
	}
	h.render(w, r, status, ui.EventFormPage(h.pageData(r, title), view))
}

// formTimes parses datetime-local fields in the system timezone. Missing
// fields stay nil.
type formTimes struct {
	loc  *time.Location
	errs *domain.ValidationError
}

func (f formTimes) parse(r *http.Request, field string) *time.Time {
	raw := strings.TrimSpace(r.FormValue(field))
	if raw == "" {
		return nil
	}
	for _, layout := range []string{inputTimeLayout, "2006-01-02T15:04:05", "2006-01-02 15:04"} {
		if t, err := time.ParseInLocation(layout, raw, f.loc); err == nil {
			return &t
		}
	}
	f.errs.Add(field, "Enter a valid date/time.")
	return nil
}

func splitTags(raw string) []string {
	tags := []string{}
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			tags = append(tags, part)
		}
	}
	return tags
}

func formUint(r *http.Request, field string, errs *domain.ValidationError) uint {
	raw := strings.TrimSpace(r.FormValue(field))
	if raw == "" {
		return 0
	}
	n, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		errs.Add(field, "Select a valid choice. That choice is not one of the available choices.")
		return 0
	}
	return uint(n)
}

func (h *Handler) handleEventSave(k eventKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Invalid form.", http.StatusBadRequest)
			return
		}
		id, editing := pathID(r)
		errs := domain.NewValidationError()
		times := formTimes{loc: h.loc, errs: errs}

		event := domain.Event{
			ID:               id,
			Name:             r.FormValue("name"),
			Summary:          r.FormValue("summary"),
			ProviderID:       formUint(r, "provider", errs),
			OriginalTimezone: r.FormValue("original_timezone"),
			InternalTicket:   r.FormValue("internal_ticket"),
			Acknowledged:     r.FormValue("acknowledged") != "",
			Comments:         r.FormValue("comments"),
			Tags:             splitTags(r.FormValue("tags")),
		}
		if start := times.parse(r, "start"); start != nil {
			event.Start = *start
		}
		end := times.parse(r, "end")
		status := r.FormValue("status")

		view := ui.EventForm{
			Editing: editing,
			Action:  k.basePath + "/add",
			Cancel:  k.basePath,
			Values: ui.EventFormValues{
				Name: event.Name, Summary: event.Summary, ProviderID: r.FormValue("provider"),
				Status: status, Start: r.FormValue("start"), End: r.FormValue("end"),
				ETR: r.FormValue("estimated_time_to_repair"), OriginalTimezone: event.OriginalTimezone,
				InternalTicket: event.InternalTicket, Acknowledged: event.Acknowledged,
				Comments: event.Comments, Tags: r.FormValue("tags"),
			},
		}
		if editing {
			view.Action = fmt.Sprintf("%s/%d/edit", k.basePath, id)
			view.Cancel = fmt.Sprintf("%s/%d", k.basePath, id)
		}

		var (
			savedID uint
			err     error
		)
		if k.isOutage() {
			o := domain.Outage{Event: event, Status: domain.OutageStatus(status), End: end}
			o.EstimatedTimeToRepair = times.parse(r, "estimated_time_to_repair")
			if err = errs.OrNil(); err == nil {
				var out domain.Outage
				if editing {
					out, err = h.service.UpdateOutage(r.Context(), actor(r), o)
				} else {
					out, err = h.service.CreateOutage(r.Context(), actor(r), o)
				}
				savedID = out.ID
			}
		} else {
			m := domain.Maintenance{Event: event, Status: domain.MaintenanceStatus(status)}
			if end != nil {
				m.End = *end
			}
			if err = errs.OrNil(); err == nil {
				var out domain.Maintenance
				if editing {
					out, err = h.service.UpdateMaintenance(r.Context(), actor(r), m)
				} else {
					out, err = h.service.CreateMaintenance(r.Context(), actor(r), m)
				}
				savedID = out.ID
			}
		}
		if v, ok := domain.AsValidationError(err); ok {
			view.Errors = v.Fields
			h.renderEventForm(w, r, k, view, http.StatusOK)
			return
		}
		if err != nil {
			h.pageError(w, r, err)
			return
		}
		http.Redirect(w, r, fmt.Sprintf("%s/%d", k.basePath, savedID), http.StatusSeeOther)
	}
}

func (h *Handler) handleEventDetail(k eventKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(r)
		if !ok {
			h.pageError(w, r, domain.ErrNotFound)
			return
		}
		ctx := r.Context()
		view := ui.EventDetail{KindLabel: k.label, Kind: k.name.Model, BasePath: k.basePath, IsOutage: k.isOutage()}
		var name string
		if k.isOutage() {
			o, err := h.service.GetOutage(ctx, id)
			if err != nil {
				h.pageError(w, r, err)
				return
			}
			view.Event, name = o.Event, o.Name
			view.Status = ui.Status{Label: o.Status.Label(), Color: o.Status.Color()}
			view.EndText = "Ongoing"
			if o.End != nil {
				view.EndText = ui.FormatTime(h.loc, *o.End)
			}
			view.ETRText = "-"
			if o.EstimatedTimeToRepair != nil {
				view.ETRText = ui.FormatTime(h.loc, *o.EstimatedTimeToRepair)
			}
		} else {
			m, err := h.service.GetMaintenance(ctx, id)
			if err != nil {
				h.pageError(w, r, err)
				return
			}
			view.Event, name = m.Event, m.Name
			view.Status = ui.Status{Label: m.Status.Label(), Color: m.Status.Color()}
			view.EndText = ui.FormatTime(h.loc, m.End)
			view.ICalURL = h.service.ICalURL(h.opts.ICalTokenPlaceholder)
		}

		ct, err := h.service.ContentType(ctx, k.name)
		if err != nil {
			h.pageError(w, r, err)
			return
		}
		view.EventTypeID = ct.ID
		if view.Impacts, err = h.service.ImpactsForEvent(ctx, k.name, id); err != nil {
			h.pageError(w, r, err)
			return
		}
		if view.Notifications, err = h.service.NotificationsForEvent(ctx, k.name, id); err != nil {
			h.pageError(w, r, err)
			return
		}
		if view.Timeline, err = h.service.Timeline(ctx, k.name, id, application.DefaultTimelineLimit); err != nil {
			h.pageError(w, r, err)
			return
		}
		h.render(w, r, http.StatusOK, ui.EventDetailPage(h.pageData(r, k.label+" "+name), view))
	}
}

func (h *Handler) handleEventDeleteConfirm(k eventKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(r)
		if !ok {
			h.pageError(w, r, domain.ErrNotFound)
			return
		}
		name, err := h.objectTitle(r.Context(), k.name, id)
		if err != nil {
			h.pageError(w, r, err)
			return
		}
		impacts, err := h.service.ImpactsForEvent(r.Context(), k.name, id)
		if err != nil {
			h.pageError(w, r, err)
			return
		}
		view := ui.ConfirmDelete{
			Kind:   strings.ToLower(k.label),
			Name:   name,
			Action: fmt.Sprintf("%s/%d/delete", k.basePath, id),
			Cancel: fmt.Sprintf("%s/%d", k.basePath, id),
		}
		if n := len(impacts); n > 0 {
			view.Warning = fmt.Sprintf("%d impact(s) and all notifications attached to this %s are deleted with it.", n, strings.ToLower(k.label))
		}
		h.render(w, r, http.StatusOK, ui.ConfirmDeletePage(h.pageData(r, "Delete "+name), view))
	}
}

func (h *Handler) handleEventDelete(k eventKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(r)
		if !ok {
			h.pageError(w, r, domain.ErrNotFound)
			return
		}
		var err error
		if k.isOutage() {
			err = h.service.DeleteOutage(r.Context(), actor(r), id)
		} else {
			err = h.service.DeleteMaintenance(r.Context(), actor(r), id)
		}
		if err != nil {
			h.pageError(w, r, err)
			return
		}
		http.Redirect(w, r, k.basePath, http.StatusSeeOther)
	}
}

// objectTitle is the display name of an object with a changelog page.
func (h *Handler) objectTitle(ctx context.Context, name domain.ContentTypeName, id uint) (string, error) {
	switch name {
	case domain.MaintenanceType:
		m, err := h.service.GetMaintenance(ctx, id)
		return m.Name, err
	case domain.OutageType:
		o, err := h.service.GetOutage(ctx, id)
		return o.Name, err
	case domain.EventNotificationType:
		n, err := h.service.GetNotification(ctx, id)
		return n.Subject, err
	}
	return "", domain.ErrNotFound
}

func (h *Handler) handleChangelog(name domain.ContentTypeName, basePath string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(r)
		if !ok {
			h.pageError(w, r, domain.ErrNotFound)
			return
		}
		title, err := h.objectTitle(r.Context(), name, id)
		if err != nil {
			h.pageError(w, r, err)
			return
		}
		offset := guiOffset(r.URL.Query())
		changes, total, err := h.service.ObjectChanges(r.Context(), domain.ObjectChangeFilter{
			ObjectType:  name.String(),
			ObjectID:    &id,
			WithRelated: true,
			Limit:       guiPageSize,
			Offset:      offset,
		})
		if err != nil {
			h.pageError(w, r, err)
			return
		}
		view := ui.Changelog{
			Name:   title,
			Back:   fmt.Sprintf("%s/%d", basePath, id),
			Items:  make([]domain.TimelineItem, 0, len(changes)),
			Paging: guiPaging(r, total, offset),
		}
		for _, c := range changes {
			view.Items = append(view.Items, domain.BuildTimelineItem(c, name.Model))
		}
		h.render(w, r, http.StatusOK, ui.ChangelogPage(h.pageData(r, "Changelog: "+title), view))
	}
}

func (h *Handler) handleCalendar(w http.ResponseWriter, r *http.Request) {
	icalURL := h.service.ICalURL(h.opts.ICalTokenPlaceholder)
	h.render(w, r, http.StatusOK, ui.CalendarPage(h.pageData(r, "Maintenance Calendar"), icalURL))
}

// handleSchedule lists maintenances that have not ended, grouped by the day
// they start on in the system timezone.
func (h *Handler) handleSchedule(w http.ResponseWriter, r *http.Request) {
	rows, err := h.service.UpcomingSchedule(r.Context(), scheduleLimit)
	if err != nil {
		h.pageError(w, r, err)
		return
	}
	var days []ui.ScheduleDay
	for _, m := range rows {
		label := m.Start.In(h.loc).Format("Monday, 2 January 2006")
		if n := len(days); n == 0 || days[n-1].Label != label {
			days = append(days, ui.ScheduleDay{Label: label})
		}
		days[len(days)-1].Maintenances = append(days[len(days)-1].Maintenances, m)
	}
	h.render(w, r, http.StatusOK, ui.SchedulePage(h.pageData(r, "Maintenance Schedule"), days))
}
