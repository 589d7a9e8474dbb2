package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/a-h/templ"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/atvirokodosprendimai/notices/internal/application"
	"github.com/atvirokodosprendimai/notices/internal/domain"
	"github.com/atvirokodosprendimai/notices/internal/ui"
)

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

// validationBody renames the non-field key to the name API clients expect.
func validationBody(v *domain.ValidationError) map[string][]string {
	out := make(map[string][]string, len(v.Fields))
	for field, msgs := range v.Fields {
		if field == domain.NonFieldErrors {
			field = "non_field_errors"
		}
		out[field] = msgs
	}
	return out
}

// writeError maps service errors to API responses.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var perr *application.ParamError
	if v, ok := domain.AsValidationError(err); ok {
		writeJSON(w, http.StatusBadRequest, validationBody(v))
		return
	}
	switch {
	case errors.As(err, &perr):
		writeDetail(w, http.StatusBadRequest, perr.Msg)
	case errors.Is(err, domain.ErrNotFound):
		writeDetail(w, http.StatusNotFound, "Not found.")
	case errors.Is(err, domain.ErrUnauthorized):
		writeDetail(w, http.StatusUnauthorized, "Invalid credentials.")
	case errors.Is(err, domain.ErrForbidden):
		writeDetail(w, http.StatusForbidden, "You do not have permission to perform this action.")
	case errors.Is(err, domain.ErrConflict):
		writeDetail(w, http.StatusConflict, "Conflict.")
	default:
		h.log.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		writeDetail(w, http.StatusInternalServerError, "Internal server error.")
	}
}

// pageError is writeError for HTML screens.
func (h *Handler) pageError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		http.Error(w, "Not found.", http.StatusNotFound)
	case errors.Is(err, domain.ErrForbidden):
		http.Error(w, "You do not have permission to view this page.", http.StatusForbidden)
	default:
		h.log.Error("page failed", "method", r.Method, "path", r.URL.Path, "error", err)
		http.Error(w, "Internal server error.", http.StatusInternalServerError)
	}
}

func (h *Handler) pageData(r *http.Request, title string) ui.PageData {
	identity, _ := identityFromContext(r.Context())
	return ui.PageData{
		Title:     title,
		UserEmail: currentUserEmail(r.Context()),
		Can:       func(p string) bool { return h.service.Can(identity, p) },
		Location:  h.loc,
	}
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, page templ.Component) {
	renderHTMLFragments(r.Context(), w, status, page)
}

func renderHTMLFragments(ctx context.Context, w http.ResponseWriter, status int, fragments ...templ.Component) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	for _, fragment := range fragments {
		if fragment == nil {
			continue
		}
		_ = fragment.Render(ctx, w)
	}
}

func pathID(r *http.Request) (uint, bool) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

func sortedStrings(in []string) []string {
	sort.Strings(in)
	return in
}

// logRequests writes one line per request with its status and duration.
func (h *Handler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		h.log.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start).String(),
		)
	})
}
