package http

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/atvirokodosprendimai/notices/internal/application"
	"github.com/atvirokodosprendimai/notices/internal/domain"
)

// icalIdentity resolves the feed caller. A non-empty token query parameter
// takes precedence over headers and cookies so calendar clients can subscribe
// with a plain URL. An empty ?token= is ignored.
func (h *Handler) icalIdentity(r *http.Request) (domain.Identity, bool) {
	if token := r.URL.Query().Get("token"); token != "" {
		identity, err := h.service.AuthenticateBearerToken(r.Context(), token)
		if err != nil {
			return domain.Identity{}, false
		}
		return identity, true
	}
	return h.authenticateRequest(r)
}

func (h *Handler) handleICal(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.icalIdentity(r)
	if !ok {
		http.Error(w, "Invalid or missing token.", http.StatusForbidden)
		return
	}
	if !h.service.Can(identity, domain.Permission(application.ActionView, domain.MaintenanceType)) {
		http.Error(w, "You do not have permission to view maintenances.", http.StatusForbidden)
		return
	}

	params := application.ParseICalParams(r.URL.Query(), h.service.Options().ICalPastDaysDefault)
	feed, err := h.service.ICalFeed(r.Context(), params)
	var perr *application.ParamError
	if errors.As(err, &perr) {
		http.Error(w, perr.Msg, http.StatusBadRequest)
		return
	}
	if err != nil {
		h.log.Error("ical feed failed", "error", err)
		http.Error(w, "Internal server error.", http.StatusInternalServerError)
		return
	}

	header := w.Header()
	header.Set("ETag", feed.ETag)
	header.Set("Cache-Control", "public, max-age="+strconv.Itoa(h.opts.ICalCacheMaxAge))
	if feed.LatestModified != nil {
		header.Set("Last-Modified", feed.LatestModified.UTC().Format(http.TimeFormat))
	}
	if notModified(r, feed) {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	body := h.service.RenderICal(feed)
	header.Set("Content-Type", "text/calendar; charset=utf-8")
	header.Set("Content-Disposition", `inline; filename="maintenances.ics"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(body))
	h.log.Debug("ical feed served", "count", feed.Count, "past_days", params.PastDays)
}

// notModified checks If-None-Match first and falls back to
// If-Modified-Since only when no entity tag was sent.
func notModified(r *http.Request, feed application.ICalFeed) bool {
	if inm := strings.TrimSpace(r.Header.Get("If-None-Match")); inm != "" {
		for _, tag := range strings.Split(inm, ",") {
			tag = strings.TrimSpace(tag)
			if tag == "*" || strings.TrimPrefix(tag, "W/") == feed.ETag {
				return true
			}
		}
		return false
	}
	ims := strings.TrimSpace(r.Header.Get("If-Modified-Since"))
	if ims == "" || feed.LatestModified == nil {
		return false
	}
	since, err := http.ParseTime(ims)
	if err != nil {
		return false
	}
	return !feed.LatestModified.UTC().Truncate(time.Second).After(since)
}
