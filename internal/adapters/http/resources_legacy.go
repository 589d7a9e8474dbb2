package http

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/atvirokodosprendimai/notices/internal/domain"
)

// The circuit-only collections keep the field names of the older API,
// including the "email_recieved" spelling.

type circuitMaintenanceJSON struct {
	ID             uint        `json:"id"`
	URL            string      `json:"url"`
	Display        string      `json:"display"`
	Name           string      `json:"name"`
	Summary        string      `json:"summary"`
	Status         *choiceJSON `json:"status"`
	Provider       *brief      `json:"provider"`
	Start          *time.Time  `json:"start"`
	End            *time.Time  `json:"end"`
	EstimatedTTR   *time.Time  `json:"estimated_time_to_repair,omitempty"`
	InternalTicket string      `json:"internal_ticket"`
	Acknowledged   bool        `json:"acknowledged"`
	Comments       string      `json:"comments"`
	ImpactCount    *int        `json:"impact_count,omitempty"`
	Created        time.Time   `json:"created"`
	LastUpdated    time.Time   `json:"last_updated"`
}

type legacyEventWrite struct {
	Name                  string      `json:"name"`
	Summary               string      `json:"summary"`
	Status                choiceValue `json:"status"`
	Provider              refID       `json:"provider"`
	Start                 *time.Time  `json:"start"`
	End                   *time.Time  `json:"end"`
	EstimatedTimeToRepair *time.Time  `json:"estimated_time_to_repair,omitempty"`
	InternalTicket        string      `json:"internal_ticket"`
	Acknowledged          bool        `json:"acknowledged"`
	Comments              string      `json:"comments"`
}

func legacyFilter(q url.Values, parentKey string, limit, offset int) (domain.LegacyFilter, error) {
	f := domain.LegacyFilter{Name: strings.TrimSpace(q.Get("name")), Limit: limit, Offset: offset}
	for _, st := range queryStrings(q, "status") {
		f.Statuses = append(f.Statuses, strings.ToUpper(st))
	}
	var err error
	if f.ProviderIDs, err = queryUints(q, "provider_id"); err != nil {
		return f, err
	}
	if parentKey != "" {
		if f.ParentID, err = queryUint(q, parentKey); err != nil {
			return f, err
		}
	}
	if f.StartAfter, err = queryTime(q, "start_after"); err != nil {
		return f, err
	}
	if f.EndBefore, err = queryTime(q, "end_before"); err != nil {
		return f, err
	}
	return f, nil
}

func (h *Handler) circuitMaintenanceResource() resource[domain.CircuitMaintenance, legacyEventWrite] {
	return resource[domain.CircuitMaintenance, legacyEventWrite]{
		name: domain.CircuitMaintenanceType,
		list: func(r *http.Request, limit, offset int) ([]domain.CircuitMaintenance, int64, error) {
			f, err := legacyFilter(r.URL.Query(), "", limit, offset)
			if err != nil {
				return nil, 0, err
			}
			return h.service.ListCircuitMaintenances(r.Context(), f)
		},
		get: h.service.GetCircuitMaintenance,
		create: func(ctx context.Context, _ domain.Identity, in domain.CircuitMaintenance) (domain.CircuitMaintenance, error) {
			return h.service.CreateCircuitMaintenance(ctx, in)
		},
		update: func(ctx context.Context, _ domain.Identity, in domain.CircuitMaintenance) (domain.CircuitMaintenance, error) {
			return h.service.UpdateCircuitMaintenance(ctx, in)
		},
		remove: func(ctx context.Context, _ domain.Identity, id uint) error {
			return h.service.DeleteCircuitMaintenance(ctx, id)
		},
		read: func(m domain.CircuitMaintenance) any {
			count := m.ImpactCount
			return circuitMaintenanceJSON{
				ID: m.ID, URL: h.objectURL(apiCircuitMaintenancePath, m.ID), Display: m.Name,
				Name: m.Name, Summary: m.Summary,
				Status:   choiceOrNil(string(m.Status), m.Status.Label()),
				Provider: h.providerBrief(m.Provider),
				Start:    timePtr(m.Start), End: timePtr(m.End),
				InternalTicket: m.InternalTicket, Acknowledged: m.Acknowledged, Comments: m.Comments,
				ImpactCount: &count,
				Created:     m.CreatedAt.UTC(), LastUpdated: m.UpdatedAt.UTC(),
			}
		},
		write: func(m domain.CircuitMaintenance) legacyEventWrite {
			return legacyEventWrite{
				Name: m.Name, Summary: m.Summary, Status: choiceValue(m.Status), Provider: refID(m.ProviderID),
				Start: timePtr(m.Start), End: timePtr(m.End),
				InternalTicket: m.InternalTicket, Acknowledged: m.Acknowledged, Comments: m.Comments,
			}
		},
		apply: func(_ context.Context, w legacyEventWrite, id uint) (domain.CircuitMaintenance, error) {
			return domain.CircuitMaintenance{
				ID: id, Name: w.Name, Summary: w.Summary, Status: domain.MaintenanceStatus(w.Status),
				ProviderID: uint(w.Provider), Start: timeValue(w.Start), End: timeValue(w.End),
				InternalTicket: w.InternalTicket, Acknowledged: w.Acknowledged, Comments: w.Comments,
			}, nil
		},
	}
}

func (h *Handler) circuitOutageResource() resource[domain.CircuitOutage, legacyEventWrite] {
	return resource[domain.CircuitOutage, legacyEventWrite]{
		name: domain.CircuitOutageType,
		list: func(r *http.Request, limit, offset int) ([]domain.CircuitOutage, int64, error) {
			f, err := legacyFilter(r.URL.Query(), "", limit, offset)
			if err != nil {
				return nil, 0, err
			}
			return h.service.ListCircuitOutages(r.Context(), f)
		},
		get: h.service.GetCircuitOutage,
		create: func(ctx context.Context, _ domain.Identity, in domain.CircuitOutage) (domain.CircuitOutage, error) {
			return h.service.CreateCircuitOutage(ctx, in)
		},
		update: func(ctx context.Context, _ domain.Identity, in domain.CircuitOutage) (domain.CircuitOutage, error) {
			return h.service.UpdateCircuitOutage(ctx, in)
		},
		remove: func(ctx context.Context, _ domain.Identity, id uint) error {
			return h.service.DeleteCircuitOutage(ctx, id)
		},
		read: func(o domain.CircuitOutage) any {
			return circuitMaintenanceJSON{
				ID: o.ID, URL: h.objectURL(apiCircuitOutagePath, o.ID), Display: o.Name,
				Name: o.Name, Summary: o.Summary,
				Status:   choiceOrNil(string(o.Status), o.Status.Label()),
				Provider: h.providerBrief(o.Provider),
				Start:    timePtr(o.Start), End: utcPtr(o.End), EstimatedTTR: utcPtr(o.EstimatedTimeToRepair),
				InternalTicket: o.InternalTicket, Acknowledged: o.Acknowledged, Comments: o.Comments,
				Created: o.CreatedAt.UTC(), LastUpdated: o.UpdatedAt.UTC(),
			}
		},
		write: func(o domain.CircuitOutage) legacyEventWrite {
			return legacyEventWrite{
				Name: o.Name, Summary: o.Summary, Status: choiceValue(o.Status), Provider: refID(o.ProviderID),
				Start: timePtr(o.Start), End: utcPtr(o.End), EstimatedTimeToRepair: utcPtr(o.EstimatedTimeToRepair),
				InternalTicket: o.InternalTicket, Acknowledged: o.Acknowledged, Comments: o.Comments,
			}
		},
		apply: func(_ context.Context, w legacyEventWrite, id uint) (domain.CircuitOutage, error) {
			return domain.CircuitOutage{
				ID: id, Name: w.Name, Summary: w.Summary, Status: domain.OutageStatus(w.Status),
				ProviderID: uint(w.Provider), Start: timeValue(w.Start), End: w.End,
				EstimatedTimeToRepair: w.EstimatedTimeToRepair,
				InternalTicket:        w.InternalTicket, Acknowledged: w.Acknowledged, Comments: w.Comments,
			}, nil
		},
	}
}

type circuitImpactJSON struct {
	ID                 uint        `json:"id"`
	URL                string      `json:"url"`
	Display            string      `json:"display"`
	CircuitMaintenance *brief      `json:"circuitmaintenance"`
	Circuit            *brief      `json:"circuit"`
	Impact             *choiceJSON `json:"impact"`
	Created            time.Time   `json:"created"`
	LastUpdated        time.Time   `json:"last_updated"`
}

type circuitImpactWrite struct {
	CircuitMaintenance refID       `json:"circuitmaintenance"`
	Circuit            refID       `json:"circuit"`
	Impact             choiceValue `json:"impact"`
}

func (h *Handler) circuitImpactResource() resource[domain.CircuitMaintenanceImpact, circuitImpactWrite] {
	return resource[domain.CircuitMaintenanceImpact, circuitImpactWrite]{
		name: domain.CircuitMaintenanceImpactType,
		list: func(r *http.Request, limit, offset int) ([]domain.CircuitMaintenanceImpact, int64, error) {
			f, err := legacyFilter(r.URL.Query(), "circuitmaintenance", limit, offset)
			if err != nil {
				return nil, 0, err
			}
			return h.service.ListCircuitMaintenanceImpacts(r.Context(), f)
		},
		get: h.service.GetCircuitMaintenanceImpact,
		create: func(ctx context.Context, _ domain.Identity, in domain.CircuitMaintenanceImpact) (domain.CircuitMaintenanceImpact, error) {
			return h.service.CreateCircuitMaintenanceImpact(ctx, in)
		},
		update: func(ctx context.Context, _ domain.Identity, in domain.CircuitMaintenanceImpact) (domain.CircuitMaintenanceImpact, error) {
			return h.service.UpdateCircuitMaintenanceImpact(ctx, in)
		},
		remove: func(ctx context.Context, _ domain.Identity, id uint) error {
			return h.service.DeleteCircuitMaintenanceImpact(ctx, id)
		},
		read: func(i domain.CircuitMaintenanceImpact) any {
			return circuitImpactJSON{
				ID: i.ID, URL: h.objectURL(apiCircuitImpactPath, i.ID), Display: i.Circuit.CID,
				CircuitMaintenance: h.brief(apiCircuitMaintenancePath, i.CircuitMaintenanceID, idDisplay(i.CircuitMaintenanceID), ""),
				Circuit:            h.brief(apiCircuitPath, i.CircuitID, i.Circuit.CID, ""),
				Impact:             choiceOrNil(string(i.Impact), i.Impact.Label()),
				Created:            i.CreatedAt.UTC(), LastUpdated: i.UpdatedAt.UTC(),
			}
		},
		write: func(i domain.CircuitMaintenanceImpact) circuitImpactWrite {
			return circuitImpactWrite{
				CircuitMaintenance: refID(i.CircuitMaintenanceID), Circuit: refID(i.CircuitID), Impact: choiceValue(i.Impact),
			}
		},
		apply: func(_ context.Context, w circuitImpactWrite, id uint) (domain.CircuitMaintenanceImpact, error) {
			return domain.CircuitMaintenanceImpact{
				ID: id, CircuitMaintenanceID: uint(w.CircuitMaintenance), CircuitID: uint(w.Circuit),
				Impact: domain.ImpactLevel(w.Impact),
			}, nil
		},
	}
}

type circuitNotificationJSON struct {
	ID                 uint       `json:"id"`
	URL                string     `json:"url"`
	Display            string     `json:"display"`
	CircuitMaintenance *brief     `json:"circuitmaintenance"`
	Subject            string     `json:"subject"`
	EmailFrom          string     `json:"email_from"`
	EmailBody          string     `json:"email_body"`
	EmailRecieved      *time.Time `json:"email_recieved"`
	Created            time.Time  `json:"created"`
	LastUpdated        time.Time  `json:"last_updated"`
}

type circuitNotificationWrite struct {
	CircuitMaintenance refID      `json:"circuitmaintenance"`
	Subject            string     `json:"subject"`
	EmailFrom          string     `json:"email_from"`
	EmailBody          string     `json:"email_body"`
	EmailRecieved      *time.Time `json:"email_recieved"`
	Email              []byte     `json:"email,omitempty"`
}

func (h *Handler) circuitNotificationResource() resource[domain.CircuitMaintenanceNotification, circuitNotificationWrite] {
	return resource[domain.CircuitMaintenanceNotification, circuitNotificationWrite]{
		name: domain.CircuitMaintenanceNotificationType,
		list: func(r *http.Request, limit, offset int) ([]domain.CircuitMaintenanceNotification, int64, error) {
			f, err := legacyFilter(r.URL.Query(), "circuitmaintenance", limit, offset)
			if err != nil {
				return nil, 0, err
			}
			return h.service.ListCircuitMaintenanceNotifications(r.Context(), f)
		},
		get: h.service.GetCircuitMaintenanceNotification,
		create: func(ctx context.Context, _ domain.Identity, in domain.CircuitMaintenanceNotification) (domain.CircuitMaintenanceNotification, error) {
			return h.service.CreateCircuitMaintenanceNotification(ctx, in)
		},
		update: func(ctx context.Context, _ domain.Identity, in domain.CircuitMaintenanceNotification) (domain.CircuitMaintenanceNotification, error) {
			return h.service.UpdateCircuitMaintenanceNotification(ctx, in)
		},
		remove: func(ctx context.Context, _ domain.Identity, id uint) error {
			return h.service.DeleteCircuitMaintenanceNotification(ctx, id)
		},
		read: func(n domain.CircuitMaintenanceNotification) any {
			return circuitNotificationJSON{
				ID: n.ID, URL: h.objectURL(apiCircuitNotificationPath, n.ID), Display: n.Subject,
				CircuitMaintenance: h.brief(apiCircuitMaintenancePath, n.CircuitMaintenanceID, idDisplay(n.CircuitMaintenanceID), ""),
				Subject:            n.Subject, EmailFrom: n.EmailFrom, EmailBody: n.EmailBody,
				EmailRecieved: timePtr(n.EmailReceived),
				Created:       n.CreatedAt.UTC(), LastUpdated: n.UpdatedAt.UTC(),
			}
		},
		write: func(n domain.CircuitMaintenanceNotification) circuitNotificationWrite {
			return circuitNotificationWrite{
				CircuitMaintenance: refID(n.CircuitMaintenanceID), Subject: n.Subject, EmailFrom: n.EmailFrom,
				EmailBody: n.EmailBody, EmailRecieved: timePtr(n.EmailReceived),
			}
		},
		apply: func(_ context.Context, w circuitNotificationWrite, id uint) (domain.CircuitMaintenanceNotification, error) {
			return domain.CircuitMaintenanceNotification{
				ID: id, CircuitMaintenanceID: uint(w.CircuitMaintenance), Subject: w.Subject, EmailFrom: w.EmailFrom,
				EmailBody: w.EmailBody, EmailReceived: timeValue(w.EmailRecieved), Email: w.Email,
			}, nil
		},
	}
}
