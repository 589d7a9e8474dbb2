package ui

import (
	"context"
	"encoding/json"

	"github.com/a-h/templ"

	"github.com/atvirokodosprendimai/notices/internal/domain"
)

// Picker is an object select that datastar replaces by id when its type
// select changes.
type Picker struct {
	ID       string
	Name     string
	Options  []domain.ObjectRef
	Selected string
}

func PickerOptions(v Picker) templ.Component {
	return component(func(ctx context.Context, w *writer) {
		pickerSelect(w, v)
	})
}

func pickerSelect(w *writer, v Picker) {
	w.raw(`<select`)
	w.attr("id", v.ID)
	w.attr("name", v.Name)
	w.raw(` class="form-select"><option value="">---------</option>`)
	for _, o := range v.Options {
		option(w, utoa(o.ID), o.Display, v.Selected)
	}
	w.raw(`</select>`)
}

type ImpactFormValues struct {
	EventTypeID   string
	EventObjectID string
	TargetTypeID  string
	TargetID      string
	Impact        string
	Tags          string
}

type ImpactForm struct {
	Editing      bool
	Action       string
	Cancel       string
	Errors       map[string][]string
	EventTypes   []domain.ContentType
	TargetTypes  []domain.ContentType
	EventPicker  Picker
	TargetPicker Picker
	Values       ImpactFormValues
}

// signals renders the datastar data-signals object. Values are JSON encoded
// so form input cannot break out of the expression.
func signals(values map[string]string) string {
	b, err := json.Marshal(values)
	if err != nil {
		return "{}"
	}
	return string(b)
}

// typeSelect is a content type select bound to a datastar signal. A change
// posts the signals to endpoint, which answers with a fresh picker.
func typeSelect(w *writer, errs map[string][]string, label, name, signal, endpoint string, types []domain.ContentType, current string, qualified bool) {
	w.raw(`<div class="mb-3"><label class="form-label">`)
	w.text(label)
	w.raw(`</label><select class="form-select"`)
	w.attr("name", name)
	w.raw(" data-bind:", signal)
	w.attr("data-on:change", "@post('"+endpoint+"')")
	w.raw(`><option value="">---------</option>`)
	for _, ct := range types {
		display := ct.Model
		if qualified {
			display = ct.String()
		}
		option(w, utoa(ct.ID), display, current)
	}
	w.raw(`</select>`)
	fieldErrors(w, errs, name)
	w.raw(`</div>`)
}

func pickerField(w *writer, errs map[string][]string, class, label string, picker Picker) {
	w.raw(`<div`)
	w.attr("class", class)
	w.raw(`><label class="form-label">`)
	w.text(label)
	w.raw(`</label>`)
	pickerSelect(w, picker)
	fieldErrors(w, errs, picker.Name)
	w.raw(`</div>`)
}

func ImpactFormPage(p PageData, v ImpactForm) templ.Component {
	vals := v.Values
	return layout(p, func(ctx context.Context, w *writer) {
		formTitle(w, v.Editing, "Impact")
		nonFieldErrors(w, v.Errors)
		w.raw(`<form method="post" class="col-lg-8"`)
		w.attr("action", v.Action)
		w.attr("data-signals", signals(map[string]string{"eventType": vals.EventTypeID, "targetType": vals.TargetTypeID}))
		w.raw(`><fieldset class="border rounded p-3 mb-3"><legend class="h6">Event</legend>`)
		typeSelect(w, v.Errors, "Event type", "event_content_type", "event-type", "/notices/pickers/events", v.EventTypes, vals.EventTypeID, false)
		pickerField(w, v.Errors, "mb-3", "Event", v.EventPicker)
		w.raw(`</fieldset><fieldset class="border rounded p-3 mb-3"><legend class="h6">Target</legend>`)
		typeSelect(w, v.Errors, "Target type", "target_content_type", "target-type", "/notices/pickers/targets", v.TargetTypes, vals.TargetTypeID, true)
		pickerField(w, v.Errors, "mb-3", "Target", v.TargetPicker)
		w.raw(`</fieldset><div class="mb-3"><label class="form-label">Impact Level</label>`,
			`<select class="form-select" name="impact"><option value="">---------</option>`)
		for _, c := range domain.ImpactLevelChoices {
			option(w, c.Value, c.Label, vals.Impact)
		}
		w.raw(`</select>`)
		fieldErrors(w, v.Errors, "impact")
		w.raw(`</div><div class="mb-3"><label class="form-label">Tags</label>`,
			`<input class="form-control" name="tags" placeholder="comma separated"`)
		w.attr("value", vals.Tags)
		w.raw(`></div>`)
		formButtons(w, v.Cancel)
		w.raw(`</form>`)
	})
}
