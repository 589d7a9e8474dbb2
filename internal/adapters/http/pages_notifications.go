package http

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/atvirokodosprendimai/notices/internal/application"
	"github.com/atvirokodosprendimai/notices/internal/domain"
	"github.com/atvirokodosprendimai/notices/internal/ui"
)

func (h *Handler) handleNotificationList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	view := ui.NotificationList{Q: strings.TrimSpace(q.Get("q"))}
	offset := guiOffset(q)
	rows, total, err := h.service.ListNotifications(r.Context(), domain.NotificationFilter{
		Query:  view.Q,
		Limit:  guiPageSize,
		Offset: offset,
	})
	if err != nil {
		h.pageError(w, r, err)
		return
	}
	view.Notifications = rows
	view.Paging = guiPaging(r, total, offset)
	h.render(w, r, http.StatusOK, ui.NotificationListPage(h.pageData(r, "Inbound Notifications"), view))
}

func (h *Handler) handleNotificationForm(w http.ResponseWriter, r *http.Request) {
	view := ui.NotificationForm{Action: "/notices/notifications/add", Cancel: "/notices/notifications"}
	if id, ok := pathID(r); ok {
		n, err := h.service.GetNotification(r.Context(), id)
		if err != nil {
			h.pageError(w, r, err)
			return
		}
		view.Editing = true
		view.Action = fmt.Sprintf("/notices/notifications/%d/edit", id)
		view.Cancel = fmt.Sprintf("/notices/notifications/%d", id)
		view.Values = ui.NotificationFormValues{
			EventTypeID:   idString(n.EventType.ID),
			EventObjectID: idString(n.EventObjectID),
			Subject:       n.Subject,
			EmailFrom:     n.EmailFrom,
			EmailReceived: ui.InputTime(h.loc, n.EmailReceived),
			EmailBody:     n.EmailBody,
		}
	} else {
		q := r.URL.Query()
		view.Values.EventTypeID = q.Get("event_type")
		view.Values.EventObjectID = q.Get("event_id")
		if cancel, err := h.eventCancelPath(r.Context(), view.Values.EventTypeID, view.Values.EventObjectID); err == nil {
			view.Cancel = cancel
		}
	}
	h.renderNotificationForm(w, r, view)
}

func (h *Handler) renderNotificationForm(w http.ResponseWriter, r *http.Request, view ui.NotificationForm) {
	var err error
	if view.EventTypes, err = h.service.EventContentTypes(r.Context()); err != nil {
		h.pageError(w, r, err)
		return
	}
	if view.EventPicker, err = h.pickerFor(r.Context(), "event-object-select", "event_object_id", view.Values.EventTypeID, view.Values.EventObjectID, true); err != nil {
		h.pageError(w, r, err)
		return
	}
	title := "Add Notification"
	if view.Editing {
		title = "Edit Notification"
	}
	h.render(w, r, http.StatusOK, ui.NotificationFormPage(h.pageData(r, title), view))
}

// uploadedEmail returns the bytes of the optional email_file upload.
func uploadedEmail(r *http.Request) ([]byte, error) {
	file, _, err := r.FormFile("email_file")
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer file.Close()
	raw, err := io.ReadAll(io.LimitReader(file, maxBodyBytes))
	if err != nil || len(raw) == 0 {
		return nil, err
	}
	return raw, nil
}

func (h *Handler) handleNotificationSave(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxBodyBytes); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		http.Error(w, "Invalid form.", http.StatusBadRequest)
		return
	}
	id, editing := pathID(r)
	errs := domain.NewValidationError()
	times := formTimes{loc: h.loc, errs: errs}

	in := domain.EventNotification{
		ID:            id,
		EventType:     domain.ContentType{ID: formUint(r, "event_content_type", errs)},
		EventObjectID: formUint(r, "event_object_id", errs),
		Subject:       r.FormValue("subject"),
		EmailFrom:     r.FormValue("email_from"),
		EmailBody:     r.FormValue("email_body"),
	}
	raw, err := uploadedEmail(r)
	if err != nil {
		errs.Add("email", "Could not read the uploaded file.")
	}
	if raw != nil {
		parsed, err := application.ParseEmail(raw)
		if err != nil {
			errs.Add("email", fmt.Sprintf("Could not parse message: %v", err))
		} else {
			in.Subject, in.EmailFrom, in.EmailBody = parsed.Subject, parsed.EmailFrom, parsed.EmailBody
			in.EmailReceived = parsed.EmailReceived
			in.Email = parsed.Email
		}
	}
	if in.EmailReceived.IsZero() {
		if received := times.parse(r, "email_received"); received != nil {
			in.EmailReceived = *received
		}
	}

	view := ui.NotificationForm{
		Editing: editing,
		Action:  "/notices/notifications/add",
		Cancel:  "/notices/notifications",
		Values: ui.NotificationFormValues{
			EventTypeID:   r.FormValue("event_content_type"),
			EventObjectID: r.FormValue("event_object_id"),
			Subject:       in.Subject,
			EmailFrom:     in.EmailFrom,
			EmailReceived: r.FormValue("email_received"),
			EmailBody:     in.EmailBody,
		},
	}
	if editing {
		view.Action = fmt.Sprintf("/notices/notifications/%d/edit", id)
		view.Cancel = fmt.Sprintf("/notices/notifications/%d", id)
	}
	if raw != nil && !in.EmailReceived.IsZero() {
		view.Values.EmailReceived = ui.InputTime(h.loc, in.EmailReceived)
	}

	err = errs.OrNil()
	var out domain.EventNotification
	if err == nil {
		if editing {
			out, err = h.service.UpdateNotification(r.Context(), actor(r), in)
		} else {
			out, err = h.service.CreateNotification(r.Context(), actor(r), in)
		}
	}
	if v, ok := domain.AsValidationError(err); ok {
		view.Errors = v.Fields
		h.renderNotificationForm(w, r, view)
		return
	}
	if err != nil {
		h.pageError(w, r, err)
		return
	}
	http.Redirect(w, r, fmt.Sprintf("/notices/notifications/%d", out.ID), http.StatusSeeOther)
}

func (h *Handler) handleNotificationDetail(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		h.pageError(w, r, domain.ErrNotFound)
		return
	}
	n, err := h.service.GetNotification(r.Context(), id)
	if err != nil {
		h.pageError(w, r, err)
		return
	}
	view := ui.NotificationDetail{Notification: n, HasRaw: len(n.Email) > 0}
	h.render(w, r, http.StatusOK, ui.NotificationDetailPage(h.pageData(r, n.Subject), view))
}

// handleNotificationRaw downloads the stored message as an .eml file.
func (h *Handler) handleNotificationRaw(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		h.pageError(w, r, domain.ErrNotFound)
		return
	}
	n, err := h.service.GetNotification(r.Context(), id)
	if err != nil {
		h.pageError(w, r, err)
		return
	}
	if len(n.Email) == 0 {
		h.pageError(w, r, domain.ErrNotFound)
		return
	}
	w.Header().Set("Content-Type", "message/rfc822")
	w.Header().Set("Content-Disposition", `attachment; filename="notification-`+strconv.FormatUint(uint64(n.ID), 10)+`.eml"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(n.Email)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(n.Email)
}

func (h *Handler) handleNotificationDeleteConfirm(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		h.pageError(w, r, domain.ErrNotFound)
		return
	}
	n, err := h.service.GetNotification(r.Context(), id)
	if err != nil {
		h.pageError(w, r, err)
		return
	}
	view := ui.ConfirmDelete{
		Kind:   "notification",
		Name:   n.Subject,
		Action: fmt.Sprintf("/notices/notifications/%d/delete", id),
		Cancel: fmt.Sprintf("/notices/notifications/%d", id),
	}
	h.render(w, r, http.StatusOK, ui.ConfirmDeletePage(h.pageData(r, "Delete notification"), view))
}

func (h *Handler) handleNotificationDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		h.pageError(w, r, domain.ErrNotFound)
		return
	}
	if err := h.service.DeleteNotification(r.Context(), actor(r), id); err != nil {
		h.pageError(w, r, err)
		return
	}
	http.Redirect(w, r, "/notices/notifications", http.StatusSeeOther)
}
