package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/starfederation/datastar-go/datastar"

	"github.com/atvirokodosprendimai/notices/internal/domain"
	"github.com/atvirokodosprendimai/notices/internal/ui"
)

const pickerLimit = 200

func eventPath(ct domain.ContentType, id uint) string {
	return fmt.Sprintf("/notices/%ss/%d", strings.ToLower(ct.Model), id)
}

// pickerFor lists the objects of a content type for a picker. events selects
// which side of an impact the picker serves. An empty or unknown type, or one
// that does not belong on that side, yields a picker without options.
func (h *Handler) pickerFor(ctx context.Context, id, name, typeID, selected string, events bool) (ui.Picker, error) {
	view := ui.Picker{ID: id, Name: name, Selected: selected}
	n, err := strconv.ParseUint(strings.TrimSpace(typeID), 10, 64)
	if err != nil || n == 0 {
		return view, nil
	}
	ct, err := h.service.ContentTypeByID(ctx, uint(n))
	if errors.Is(err, domain.ErrNotFound) || (err == nil && domain.IsEventType(ct) != events) {
		return view, nil
	}
	if err != nil {
		return view, err
	}
	view.Options, err = h.service.ObjectChoices(ctx, ct.ID, "", pickerLimit)
	if _, ok := domain.AsValidationError(err); ok {
		return view, nil
	}
	return view, err
}

func (h *Handler) handleImpactForm(w http.ResponseWriter, r *http.Request) {
	view := ui.ImpactForm{Action: "/notices/impacts/add", Cancel: maintenanceKind.basePath}
	if id, ok := pathID(r); ok {
		imp, err := h.service.GetImpact(r.Context(), id)
		if err != nil {
			h.pageError(w, r, err)
			return
		}
		view.Editing = true
		view.Action = fmt.Sprintf("/notices/impacts/%d/edit", id)
		view.Cancel = eventPath(imp.EventType, imp.EventObjectID)
		view.Values = ui.ImpactFormValues{
			EventTypeID:   idString(imp.EventType.ID),
			EventObjectID: idString(imp.EventObjectID),
			TargetTypeID:  idString(imp.TargetType.ID),
			TargetID:      idString(imp.TargetObjectID),
			Impact:        string(imp.Impact),
			Tags:          strings.Join(imp.Tags, ", "),
		}
	} else {
		q := r.URL.Query()
		view.Values.EventTypeID = q.Get("event_type")
		view.Values.EventObjectID = q.Get("event_id")
		view.Values.TargetTypeID = q.Get("target_type")
		view.Values.TargetID = q.Get("target_id")
		if cancel, err := h.eventCancelPath(r.Context(), view.Values.EventTypeID, view.Values.EventObjectID); err == nil {
			view.Cancel = cancel
		}
	}
	h.renderImpactForm(w, r, view)
}

func (h *Handler) eventCancelPath(ctx context.Context, typeID, objectID string) (string, error) {
	tid, err := strconv.ParseUint(typeID, 10, 64)
	if err != nil {
		return "", err
	}
	oid, err := strconv.ParseUint(objectID, 10, 64)
	if err != nil {
		return "", err
	}
	ct, err := h.service.ContentTypeByID(ctx, uint(tid))
	if err != nil {
		return "", err
	}
	return eventPath(ct, uint(oid)), nil
}

func (h *Handler) renderImpactForm(w http.ResponseWriter, r *http.Request, view ui.ImpactForm) {
	ctx := r.Context()
	var err error
	if view.EventTypes, err = h.service.EventContentTypes(ctx); err != nil {
		h.pageError(w, r, err)
		return
	}
	if view.TargetTypes, err = h.service.TargetContentTypes(ctx); err != nil {
		h.pageError(w, r, err)
		return
	}
	if view.EventPicker, err = h.pickerFor(ctx, "event-object-select", "event_object_id", view.Values.EventTypeID, view.Values.EventObjectID, true); err != nil {
		h.pageError(w, r, err)
		return
	}
	if view.TargetPicker, err = h.pickerFor(ctx, "target-object-select", "target_object_id", view.Values.TargetTypeID, view.Values.TargetID, false); err != nil {
		h.pageError(w, r, err)
		return
	}
	title := "Add Impact"
	if view.Editing {
		title = "Edit Impact"
	}
	h.render(w, r, http.StatusOK, ui.ImpactFormPage(h.pageData(r, title), view))
}

func (h *Handler) handleImpactSave(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form.", http.StatusBadRequest)
		return
	}
	id, editing := pathID(r)
	errs := domain.NewValidationError()
	in := domain.Impact{
		ID:             id,
		EventType:      domain.ContentType{ID: formUint(r, "event_content_type", errs)},
		EventObjectID:  formUint(r, "event_object_id", errs),
		TargetType:     domain.ContentType{ID: formUint(r, "target_content_type", errs)},
		TargetObjectID: formUint(r, "target_object_id", errs),
		Impact:         domain.ImpactLevel(strings.TrimSpace(r.FormValue("impact"))),
		Tags:           splitTags(r.FormValue("tags")),
	}
	view := ui.ImpactForm{
		Editing: editing,
		Action:  "/notices/impacts/add",
		Cancel:  maintenanceKind.basePath,
		Values: ui.ImpactFormValues{
			EventTypeID:   r.FormValue("event_content_type"),
			EventObjectID: r.FormValue("event_object_id"),
			TargetTypeID:  r.FormValue("target_content_type"),
			TargetID:      r.FormValue("target_object_id"),
			Impact:        string(in.Impact),
			Tags:          r.FormValue("tags"),
		},
	}
	if editing {
		view.Action = fmt.Sprintf("/notices/impacts/%d/edit", id)
	}
	if cancel, err := h.eventCancelPath(r.Context(), view.Values.EventTypeID, view.Values.EventObjectID); err == nil {
		view.Cancel = cancel
	}

	err := errs.OrNil()
	var out domain.Impact
	if err == nil {
		if editing {
			out, err = h.service.UpdateImpact(r.Context(), actor(r), in)
		} else {
			out, err = h.service.CreateImpact(r.Context(), actor(r), in)
		}
	}
	if v, ok := domain.AsValidationError(err); ok {
		view.Errors = v.Fields
		h.renderImpactForm(w, r, view)
		return
	}
	if err != nil {
		h.pageError(w, r, err)
		return
	}
	http.Redirect(w, r, eventPath(out.EventType, out.EventObjectID), http.StatusSeeOther)
}

func (h *Handler) handleImpactDeleteConfirm(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		h.pageError(w, r, domain.ErrNotFound)
		return
	}
	imp, err := h.service.GetImpact(r.Context(), id)
	if err != nil {
		h.pageError(w, r, err)
		return
	}
	name := fmt.Sprintf("%s - %s", imp.EventDisplay, imp.TargetDisplay)
	view := ui.ConfirmDelete{
		Kind:   "impact",
		Name:   name,
		Action: fmt.Sprintf("/notices/impacts/%d/delete", id),
		Cancel: eventPath(imp.EventType, imp.EventObjectID),
	}
	h.render(w, r, http.StatusOK, ui.ConfirmDeletePage(h.pageData(r, "Delete impact"), view))
}

func (h *Handler) handleImpactDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		h.pageError(w, r, domain.ErrNotFound)
		return
	}
	imp, err := h.service.GetImpact(r.Context(), id)
	if err != nil {
		h.pageError(w, r, err)
		return
	}
	if err := h.service.DeleteImpact(r.Context(), actor(r), id); err != nil {
		h.pageError(w, r, err)
		return
	}
	http.Redirect(w, r, eventPath(imp.EventType, imp.EventObjectID), http.StatusSeeOther)
}

type pickerSignals struct {
	EventType  string `json:"eventType"`
	TargetType string `json:"targetType"`
}

// handlePickerEvents answers a change of the event type select with a fresh
// object select. datastar swaps it in by id.
func (h *Handler) handlePickerEvents(w http.ResponseWriter, r *http.Request) {
	var sig pickerSignals
	if err := datastar.ReadSignals(r, &sig); err != nil {
		http.Error(w, "invalid picker signals", http.StatusBadRequest)
		return
	}
	view, err := h.pickerFor(r.Context(), "event-object-select", "event_object_id", sig.EventType, "", true)
	if err != nil {
		h.pageError(w, r, err)
		return
	}
	renderHTMLFragments(r.Context(), w, http.StatusOK, ui.PickerOptions(view))
}

func (h *Handler) handlePickerTargets(w http.ResponseWriter, r *http.Request) {
	var sig pickerSignals
	if err := datastar.ReadSignals(r, &sig); err != nil {
		http.Error(w, "invalid picker signals", http.StatusBadRequest)
		return
	}
	view, err := h.pickerFor(r.Context(), "target-object-select", "target_object_id", sig.TargetType, "", false)
	if err != nil {
		h.pageError(w, r, err)
		return
	}
	renderHTMLFragments(r.Context(), w, http.StatusOK, ui.PickerOptions(view))
}
