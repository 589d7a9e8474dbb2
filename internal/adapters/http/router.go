package http

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/atvirokodosprendimai/notices/internal/application"
	"github.com/atvirokodosprendimai/notices/internal/domain"
	"github.com/atvirokodosprendimai/notices/internal/platform/logger"
)

type Options struct {
	BaseURL              string
	SessionTTL           time.Duration
	ICalCacheMaxAge      int
	ICalTokenPlaceholder string
}

type Handler struct {
	service *application.Service
	opts    Options
	log     *logger.Logger
	// loc is the zone pages show times in.
	loc *time.Location
}

func NewRouter(service *application.Service, opts Options, log *logger.Logger) http.Handler {
	if log == nil {
		log = logger.Nop()
	}
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = 24 * time.Hour
	}
	opts.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	h := &Handler{service: service, opts: opts, log: log, loc: service.Options().Location}

	r := chi.NewRouter()
	r.Use(middleware.StripSlashes)
	r.Use(middleware.Recoverer)
	r.Use(h.logRequests)

	r.Get("/login", h.handleLoginPage)
	r.Post("/login", h.handleLogin)
	r.Post("/logout", h.handleLogout)

	r.Route("/api", func(api chi.Router) {
		api.Post("/auth/login", h.handleAPILogin)
		api.With(h.requireAuthAPI("")).Get("/auth/whoami", h.handleAPIWhoAmI)
		api.With(h.requireAuthAPI("")).Post("/auth/logout", h.handleAPILogout)

		api.Route("/plugins/notices", func(n chi.Router) {
			n.Route("/maintenance", func(sub chi.Router) { mountResource(sub, h, h.maintenanceResource()) })
			n.Route("/outage", func(sub chi.Router) { mountResource(sub, h, h.outageResource()) })
			n.Route("/impact", func(sub chi.Router) { mountResource(sub, h, h.impactResource()) })
			n.Route("/eventnotification", func(sub chi.Router) { mountResource(sub, h, h.notificationResource()) })
			n.Route("/circuitmaintenance", func(sub chi.Router) { mountResource(sub, h, h.circuitMaintenanceResource()) })
			n.Route("/circuitoutage", func(sub chi.Router) { mountResource(sub, h, h.circuitOutageResource()) })
			n.Route("/circuitimpact", func(sub chi.Router) { mountResource(sub, h, h.circuitImpactResource()) })
			n.Route("/circuitnotification", func(sub chi.Router) { mountResource(sub, h, h.circuitNotificationResource()) })
		})
		api.Route("/circuits/providers", func(sub chi.Router) { mountResource(sub, h, h.providerResource()) })
		api.Route("/circuits/circuits", func(sub chi.Router) { mountResource(sub, h, h.circuitResource()) })
		api.Route("/dcim/sites", func(sub chi.Router) { mountResource(sub, h, h.siteResource()) })
		api.Route("/dcim/power-feeds", func(sub chi.Router) { mountResource(sub, h, h.powerFeedResource()) })
		api.Route("/dcim/devices", func(sub chi.Router) { mountResource(sub, h, h.deviceResource()) })
		api.With(h.requireAuthAPI(domain.Permission(application.ActionView, domain.ObjectChangeType))).
			Get("/core/object-changes", h.handleAPIObjectChanges)
	})

	// The feed authenticates on its own because of the token parameter.
	r.Get("/notices/ical/maintenances.ics", h.handleICal)

	view := func(ct domain.ContentTypeName) func(http.Handler) http.Handler {
		return h.requireAuthGUI(domain.Permission(application.ActionView, ct))
	}
	add := func(ct domain.ContentTypeName) func(http.Handler) http.Handler {
		return h.requireAuthGUI(domain.Permission(application.ActionAdd, ct))
	}
	change := func(ct domain.ContentTypeName) func(http.Handler) http.Handler {
		return h.requireAuthGUI(domain.Permission(application.ActionChange, ct))
	}
	remove := func(ct domain.ContentTypeName) func(http.Handler) http.Handler {
		return h.requireAuthGUI(domain.Permission(application.ActionDelete, ct))
	}

	r.With(view(domain.MaintenanceType)).Get("/", h.handleHomeRedirect)

	for _, kind := range []eventKind{maintenanceKind, outageKind} {
		k := kind
		r.Route(k.basePath, func(sub chi.Router) {
			sub.With(view(k.name)).Get("/", h.handleEventList(k))
			if k.name == domain.MaintenanceType {
				sub.With(view(k.name)).Get("/calendar", h.handleCalendar)
				sub.With(view(k.name)).Get("/schedule", h.handleSchedule)
			}
			sub.With(add(k.name)).Get("/add", h.handleEventForm(k))
			sub.With(add(k.name)).Post("/add", h.handleEventSave(k))
			sub.With(view(k.name)).Get("/{id}", h.handleEventDetail(k))
			sub.With(change(k.name)).Get("/{id}/edit", h.handleEventForm(k))
			sub.With(change(k.name)).Post("/{id}/edit", h.handleEventSave(k))
			sub.With(remove(k.name)).Get("/{id}/delete", h.handleEventDeleteConfirm(k))
			sub.With(remove(k.name)).Post("/{id}/delete", h.handleEventDelete(k))
			sub.With(view(k.name)).Get("/{id}/changelog", h.handleChangelog(k.name, k.basePath))
		})
	}
	r.Route("/notices/impacts", func(sub chi.Router) {
		sub.With(add(domain.ImpactType)).Get("/add", h.handleImpactForm)
		sub.With(add(domain.ImpactType)).Post("/add", h.handleImpactSave)
		sub.With(change(domain.ImpactType)).Get("/{id}/edit", h.handleImpactForm)
		sub.With(change(domain.ImpactType)).Post("/{id}/edit", h.handleImpactSave)
		sub.With(remove(domain.ImpactType)).Get("/{id}/delete", h.handleImpactDeleteConfirm)
		sub.With(remove(domain.ImpactType)).Post("/{id}/delete", h.handleImpactDelete)
	})

	r.Route("/notices/notifications", func(sub chi.Router) {
		sub.With(view(domain.EventNotificationType)).Get("/", h.handleNotificationList)
		sub.With(add(domain.EventNotificationType)).Get("/add", h.handleNotificationForm)
		sub.With(add(domain.EventNotificationType)).Post("/add", h.handleNotificationSave)
		sub.With(view(domain.EventNotificationType)).Get("/{id}", h.handleNotificationDetail)
		sub.With(view(domain.EventNotificationType)).Get("/{id}/raw", h.handleNotificationRaw)
		sub.With(change(domain.EventNotificationType)).Get("/{id}/edit", h.handleNotificationForm)
		sub.With(change(domain.EventNotificationType)).Post("/{id}/edit", h.handleNotificationSave)
		sub.With(remove(domain.EventNotificationType)).Get("/{id}/delete", h.handleNotificationDeleteConfirm)
		sub.With(remove(domain.EventNotificationType)).Post("/{id}/delete", h.handleNotificationDelete)
		sub.With(view(domain.EventNotificationType)).Get("/{id}/changelog", h.handleChangelog(domain.EventNotificationType, "/notices/notifications"))
	})

	r.With(view(domain.MaintenanceType)).Post("/notices/pickers/events", h.handlePickerEvents)
	r.With(view(domain.ImpactType)).Post("/notices/pickers/targets", h.handlePickerTargets)

	r.With(view(domain.ProviderType)).Get("/circuits/providers", h.handleProviderList)
	r.With(view(domain.ProviderType)).Get("/circuits/providers/{id}", h.handleProviderDetail)
	r.With(view(domain.CircuitType)).Get("/circuits/circuits/{id}", h.handleCircuitDetail)
	r.With(view(domain.SiteType)).Get("/dcim/sites/{id}", h.handleSiteDetail)

	return r
}

func (h *Handler) handleHomeRedirect(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/notices/maintenances", http.StatusSeeOther)
}
