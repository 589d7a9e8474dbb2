package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/atvirokodosprendimai/notices/internal/application"
	"github.com/atvirokodosprendimai/notices/internal/domain"
)

const maxBodyBytes = 10 << 20

// resource describes one REST collection. T is the domain value and W the
// writable JSON shape accepted on POST, PUT and PATCH.
type resource[T any, W any] struct {
	name domain.ContentTypeName
	list func(r *http.Request, limit, offset int) ([]T, int64, error)
	get  func(ctx context.Context, id uint) (T, error)
	// create, update and remove may be nil for read-only collections.
	create func(ctx context.Context, actor domain.Identity, in T) (T, error)
	update func(ctx context.Context, actor domain.Identity, in T) (T, error)
	remove func(ctx context.Context, actor domain.Identity, id uint) error
	// read renders a value for responses.
	read func(v T) any
	// write returns the writable form of an existing value, the base a PATCH
	// body is merged onto.
	write func(v T) W
	// apply turns a decoded body into a domain value.
	apply func(ctx context.Context, w W, id uint) (T, error)
}

func mountResource[T any, W any](r chi.Router, h *Handler, res resource[T, W]) {
	perm := func(action string) func(http.Handler) http.Handler {
		return h.requireAuthAPI(domain.Permission(action, res.name))
	}
	r.With(perm(application.ActionView)).Get("/", func(w http.ResponseWriter, r *http.Request) {
		limit, offset := pageParams(r.URL.Query())
		rows, total, err := res.list(r, limit, offset)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		results := make([]any, 0, len(rows))
		for _, row := range rows {
			results = append(results, res.read(row))
		}
		writeJSON(w, http.StatusOK, h.paginated(r, total, limit, offset, results))
	})
	r.With(perm(application.ActionView)).Get("/{id}", func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(r)
		if !ok {
			writeDetail(w, http.StatusNotFound, "Not found.")
			return
		}
		v, err := res.get(r.Context(), id)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, res.read(v))
	})
	if res.create != nil {
		r.With(perm(application.ActionAdd)).Post("/", func(w http.ResponseWriter, r *http.Request) {
			var body W
			if !decodeBody(w, r, &body) {
				return
			}
			in, err := res.apply(r.Context(), body, 0)
			if err != nil {
				h.writeError(w, r, err)
				return
			}
			out, err := res.create(r.Context(), actor(r), in)
			if err != nil {
				h.writeError(w, r, err)
				return
			}
			writeJSON(w, http.StatusCreated, res.read(out))
		})
	}
	if res.update != nil {
		save := func(partial bool) http.HandlerFunc {
			return func(w http.ResponseWriter, r *http.Request) {
				id, ok := pathID(r)
				if !ok {
					writeDetail(w, http.StatusNotFound, "Not found.")
					return
				}
				existing, err := res.get(r.Context(), id)
				if err != nil {
					h.writeError(w, r, err)
					return
				}
				var body W
				if partial {
					body = res.write(existing)
				}
				if !decodeBody(w, r, &body) {
					return
				}
				in, err := res.apply(r.Context(), body, id)
				if err != nil {
					h.writeError(w, r, err)
					return
				}
				out, err := res.update(r.Context(), actor(r), in)
				if err != nil {
					h.writeError(w, r, err)
					return
				}
				writeJSON(w, http.StatusOK, res.read(out))
			}
		}
		r.With(perm(application.ActionChange)).Put("/{id}", save(false))
		r.With(perm(application.ActionChange)).Patch("/{id}", save(true))
	}
	if res.remove != nil {
		r.With(perm(application.ActionDelete)).Delete("/{id}", func(w http.ResponseWriter, r *http.Request) {
			id, ok := pathID(r)
			if !ok {
				writeDetail(w, http.StatusNotFound, "Not found.")
				return
			}
			if err := res.remove(r.Context(), actor(r), id); err != nil {
				h.writeError(w, r, err)
				return
			}
			w.WriteHeader(http.StatusNoContent)
		})
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, out any) bool {
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeDetail(w, http.StatusBadRequest, "Could not read request body.")
		return false
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return true
	}
	if err := json.Unmarshal(raw, out); err != nil {
		writeDetail(w, http.StatusBadRequest, "JSON parse error - "+err.Error())
		return false
	}
	return true
}

func pageParams(q url.Values) (limit, offset int) {
	limit, _ = strconv.Atoi(q.Get("limit"))
	offset, _ = strconv.Atoi(q.Get("offset"))
	if limit <= 0 {
		limit = 50
	}
	if limit > 1000 {
		limit = 1000
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

type page struct {
	Count    int64   `json:"count"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
	Results  []any   `json:"results"`
}

func (h *Handler) paginated(r *http.Request, total int64, limit, offset int, results []any) page {
	p := page{Count: total, Results: results}
	link := func(off int) *string {
		q := r.URL.Query()
		q.Set("limit", strconv.Itoa(limit))
		q.Set("offset", strconv.Itoa(off))
		s := h.opts.BaseURL + r.URL.Path + "?" + q.Encode()
		return &s
	}
	if int64(offset+limit) < total {
		p.Next = link(offset + limit)
	}
	if offset > 0 {
		prev := offset - limit
		if prev < 0 {
			prev = 0
		}
		p.Previous = link(prev)
	}
	return p
}

// brief is the nested form of a related object.
type brief struct {
	ID      uint   `json:"id"`
	URL     string `json:"url"`
	Display string `json:"display"`
	Name    string `json:"name,omitempty"`
}

func (h *Handler) brief(path string, id uint, display, name string) *brief {
	if id == 0 {
		return nil
	}
	b := &brief{ID: id, Display: display, Name: name}
	if path != "" {
		b.URL = h.objectURL(path, id)
	}
	return b
}

func (h *Handler) objectURL(path string, id uint) string {
	return fmt.Sprintf("%s%s/%d/", h.opts.BaseURL, path, id)
}

type choiceJSON struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

func choiceOrNil(value, label string) *choiceJSON {
	if value == "" {
		return nil
	}
	return &choiceJSON{Value: value, Label: label}
}

// refID accepts a related object as a number, a numeric string or an object
// carrying "id".
type refID uint

func (r *refID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*r = 0
		return nil
	}
	if len(data) > 0 && data[0] == '{' {
		var obj struct {
			ID refID `json:"id"`
		}
		if err := json.Unmarshal(data, &obj); err != nil {
			return err
		}
		*r = obj.ID
		return nil
	}
	raw := strings.Trim(string(data), `"`)
	if raw == "" {
		*r = 0
		return nil
	}
	n, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return fmt.Errorf("related object must be a numeric id, got %s", data)
	}
	*r = refID(n)
	return nil
}

func refPtr(id *uint) *refID {
	if id == nil {
		return nil
	}
	v := refID(*id)
	return &v
}

func uintPtr(r *refID) *uint {
	if r == nil || *r == 0 {
		return nil
	}
	v := uint(*r)
	return &v
}

// contentTypeRef accepts "app_label.model" or a numeric content type id.
type contentTypeRef struct {
	domain.ContentType
}

func (c *contentTypeRef) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch v := raw.(type) {
	case nil:
		c.ContentType = domain.ContentType{}
	case float64:
		c.ContentType = domain.ContentType{ID: uint(v)}
	case string:
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			c.ContentType = domain.ContentType{ID: uint(n)}
			return nil
		}
		name, err := domain.ParseContentTypeName(v)
		if err != nil {
			return err
		}
		c.ContentType = domain.ContentType{AppLabel: name.AppLabel, Model: name.Model}
	default:
		return fmt.Errorf("content type must be a string like app_label.model")
	}
	return nil
}

func (c contentTypeRef) MarshalJSON() ([]byte, error) {
	if c.AppLabel == "" {
		return json.Marshal(c.ID)
	}
	return json.Marshal(c.Name().String())
}

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	v := t.UTC()
	return &v
}

func timeValue(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.UTC()
	return &v
}

func nonNilTags(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}

func nonNilFields(cf map[string]any) map[string]any {
	if cf == nil {
		return map[string]any{}
	}
	return cf
}

// Query helpers for list filters.

func queryUints(q url.Values, key string) ([]uint, error) {
	var out []uint
	for _, raw := range q[key] {
		for _, part := range strings.Split(raw, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			n, err := strconv.ParseUint(part, 10, 64)
			if err != nil {
				return nil, domain.FieldError(key, fmt.Sprintf("“%s” is not a valid value.", part))
			}
			out = append(out, uint(n))
		}
	}
	return out, nil
}

func queryUint(q url.Values, key string) (*uint, error) {
	ids, err := queryUints(q, key)
	if err != nil || len(ids) == 0 {
		return nil, err
	}
	return &ids[0], nil
}

func queryStrings(q url.Values, key string) []string {
	var out []string
	for _, raw := range q[key] {
		for _, part := range strings.Split(raw, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func queryTime(q url.Values, key string) (*time.Time, error) {
	raw := strings.TrimSpace(q.Get(key))
	if raw == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04", "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, domain.FieldError(key, "Enter a valid date/time.")
}

func queryBool(q url.Values, key string) (*bool, error) {
	raw := strings.ToLower(strings.TrimSpace(q.Get(key)))
	switch raw {
	case "":
		return nil, nil
	case "true", "1", "yes", "on":
		v := true
		return &v, nil
	case "false", "0", "no", "off":
		v := false
		return &v, nil
	}
	return nil, domain.FieldError(key, "Select a valid choice.")
}

// contentTypeParam reads a content type given as an id or app_label.model.
func (h *Handler) contentTypeParam(ctx context.Context, q url.Values, key string) (*uint, error) {
	raw := strings.TrimSpace(q.Get(key))
	if raw == "" {
		return nil, nil
	}
	if n, err := strconv.ParseUint(raw, 10, 64); err == nil {
		id := uint(n)
		return &id, nil
	}
	name, err := domain.ParseContentTypeName(raw)
	if err != nil {
		return nil, domain.FieldError(key, err.Error())
	}
	ct, err := h.service.ContentType(ctx, name)
	if err != nil {
		return nil, domain.FieldError(key, "Select a valid choice.")
	}
	return &ct.ID, nil
}
