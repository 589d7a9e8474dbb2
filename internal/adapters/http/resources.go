package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/atvirokodosprendimai/notices/internal/domain"
)

const (
	apiMaintenancePath         = "/api/plugins/notices/maintenance"
	apiOutagePath              = "/api/plugins/notices/outage"
	apiImpactPath              = "/api/plugins/notices/impact"
	apiNotificationPath        = "/api/plugins/notices/eventnotification"
	apiCircuitMaintenancePath  = "/api/plugins/notices/circuitmaintenance"
	apiCircuitOutagePath       = "/api/plugins/notices/circuitoutage"
	apiCircuitImpactPath       = "/api/plugins/notices/circuitimpact"
	apiCircuitNotificationPath = "/api/plugins/notices/circuitnotification"
	apiProviderPath            = "/api/circuits/providers"
	apiCircuitPath             = "/api/circuits/circuits"
	apiSitePath                = "/api/dcim/sites"
	apiPowerFeedPath           = "/api/dcim/power-feeds"
	apiDevicePath              = "/api/dcim/devices"
)

// apiPathFor is the collection path of a content type, or "" when the type
// has no endpoint.
func apiPathFor(ct domain.ContentType) string {
	for _, p := range apiPaths {
		if p.name.Matches(ct) {
			return p.path
		}
	}
	return ""
}

var apiPaths = []struct {
	name domain.ContentTypeName
	path string
}{
	{domain.MaintenanceType, apiMaintenancePath},
	{domain.OutageType, apiOutagePath},
	{domain.ProviderType, apiProviderPath},
	{domain.CircuitType, apiCircuitPath},
	{domain.SiteType, apiSitePath},
	{domain.PowerFeedType, apiPowerFeedPath},
	{domain.DeviceType, apiDevicePath},
}

// choiceValue accepts a bare value or the {"value", "label"} form responses use.
type choiceValue string

func (c *choiceValue) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*c = ""
		return nil
	}
	if len(data) > 0 && data[0] == '{' {
		var obj struct {
			Value string `json:"value"`
		}
		if err := json.Unmarshal(data, &obj); err != nil {
			return err
		}
		*c = choiceValue(obj.Value)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*c = choiceValue(s)
	return nil
}

// Events

type maintenanceJSON struct {
	ID               uint           `json:"id"`
	URL              string         `json:"url"`
	Display          string         `json:"display"`
	Name             string         `json:"name"`
	Summary          string         `json:"summary"`
	Status           *choiceJSON    `json:"status"`
	Provider         *brief         `json:"provider"`
	Start            *time.Time     `json:"start"`
	End              *time.Time     `json:"end"`
	OriginalTimezone string         `json:"original_timezone"`
	InternalTicket   string         `json:"internal_ticket"`
	Acknowledged     bool           `json:"acknowledged"`
	Comments         string         `json:"comments"`
	ImpactCount      int            `json:"impact_count"`
	Tags             []string       `json:"tags"`
	CustomFields     map[string]any `json:"custom_fields"`
	Created          time.Time      `json:"created"`
	LastUpdated      time.Time      `json:"last_updated"`
}

type outageJSON struct {
	ID                    uint           `json:"id"`
	URL                   string         `json:"url"`
	Display               string         `json:"display"`
	Name                  string         `json:"name"`
	Summary               string         `json:"summary"`
	Status                *choiceJSON    `json:"status"`
	Provider              *brief         `json:"provider"`
	Start                 *time.Time     `json:"start"`
	End                   *time.Time     `json:"end"`
	EstimatedTimeToRepair *time.Time     `json:"estimated_time_to_repair"`
	OriginalTimezone      string         `json:"original_timezone"`
	InternalTicket        string         `json:"internal_ticket"`
	Acknowledged          bool           `json:"acknowledged"`
	Comments              string         `json:"comments"`
	Tags                  []string       `json:"tags"`
	CustomFields          map[string]any `json:"custom_fields"`
	Created               time.Time      `json:"created"`
	LastUpdated           time.Time      `json:"last_updated"`
}

type eventWrite struct {
	Name                  string         `json:"name"`
	Summary               string         `json:"summary"`
	Provider              refID          `json:"provider"`
	Status                choiceValue    `json:"status"`
	Start                 *time.Time     `json:"start"`
	End                   *time.Time     `json:"end"`
	EstimatedTimeToRepair *time.Time     `json:"estimated_time_to_repair,omitempty"`
	OriginalTimezone      string         `json:"original_timezone"`
	InternalTicket        string         `json:"internal_ticket"`
	Acknowledged          bool           `json:"acknowledged"`
	Comments              string         `json:"comments"`
	Tags                  []string       `json:"tags"`
	CustomFields          map[string]any `json:"custom_fields"`
}

func (w eventWrite) event(id uint) domain.Event {
	return domain.Event{
		ID:               id,
		Name:             w.Name,
		Summary:          w.Summary,
		ProviderID:       uint(w.Provider),
		Start:            timeValue(w.Start),
		OriginalTimezone: w.OriginalTimezone,
		InternalTicket:   w.InternalTicket,
		Acknowledged:     w.Acknowledged,
		Comments:         w.Comments,
		Tags:             w.Tags,
		CustomFields:     w.CustomFields,
	}
}

func eventWriteOf(e domain.Event) eventWrite {
	return eventWrite{
		Name:             e.Name,
		Summary:          e.Summary,
		Provider:         refID(e.ProviderID),
		Start:            timePtr(e.Start),
		OriginalTimezone: e.OriginalTimezone,
		InternalTicket:   e.InternalTicket,
		Acknowledged:     e.Acknowledged,
		Comments:         e.Comments,
		Tags:             e.Tags,
		CustomFields:     e.CustomFields,
	}
}

func (h *Handler) providerBrief(p domain.Provider) *brief {
	return h.brief(apiProviderPath, p.ID, p.Name, p.Name)
}

func (h *Handler) maintenanceJSON(m domain.Maintenance) any {
	return maintenanceJSON{
		ID:               m.ID,
		URL:              h.objectURL(apiMaintenancePath, m.ID),
		Display:          m.Name,
		Name:             m.Name,
		Summary:          m.Summary,
		Status:           choiceOrNil(string(m.Status), m.Status.Label()),
		Provider:         h.providerBrief(m.Provider),
		Start:            timePtr(m.Start),
		End:              timePtr(m.End),
		OriginalTimezone: m.OriginalTimezone,
		InternalTicket:   m.InternalTicket,
		Acknowledged:     m.Acknowledged,
		Comments:         m.Comments,
		ImpactCount:      m.ImpactCount,
		Tags:             nonNilTags(m.Tags),
		CustomFields:     nonNilFields(m.CustomFields),
		Created:          m.CreatedAt.UTC(),
		LastUpdated:      m.UpdatedAt.UTC(),
	}
}

func (h *Handler) outageJSON(o domain.Outage) any {
	return outageJSON{
		ID:                    o.ID,
		URL:                   h.objectURL(apiOutagePath, o.ID),
		Display:               o.Name,
		Name:                  o.Name,
		Summary:               o.Summary,
		Status:                choiceOrNil(string(o.Status), o.Status.Label()),
		Provider:              h.providerBrief(o.Provider),
		Start:                 timePtr(o.Start),
		End:                   utcPtr(o.End),
		EstimatedTimeToRepair: utcPtr(o.EstimatedTimeToRepair),
		OriginalTimezone:      o.OriginalTimezone,
		InternalTicket:        o.InternalTicket,
		Acknowledged:          o.Acknowledged,
		Comments:              o.Comments,
		Tags:                  nonNilTags(o.Tags),
		CustomFields:          nonNilFields(o.CustomFields),
		Created:               o.CreatedAt.UTC(),
		LastUpdated:           o.UpdatedAt.UTC(),
	}
}

// eventFilter reads the list filters shared by maintenances and outages.
func eventFilter(q url.Values) (domain.EventFilter, error) {
	v := domain.NewValidationError()
	f := domain.EventFilter{
		Query:          strings.TrimSpace(q.Get("q")),
		Name:           strings.TrimSpace(q.Get("name")),
		Summary:        strings.TrimSpace(q.Get("summary")),
		InternalTicket: strings.TrimSpace(q.Get("internal_ticket")),
		ProviderSlugs:  queryStrings(q, "provider"),
		OrderBy:        strings.TrimSpace(q.Get("ordering")),
	}
	for _, st := range queryStrings(q, "status") {
		f.Statuses = append(f.Statuses, strings.ToUpper(st))
	}
	var err error
	collect := func(e error) {
		if fv, ok := domain.AsValidationError(e); ok {
			for field, msgs := range fv.Fields {
				v.Fields[field] = append(v.Fields[field], msgs...)
			}
		}
	}
	if f.ProviderIDs, err = queryUints(q, "provider_id"); err != nil {
		collect(err)
	}
	if f.IDs, err = queryUints(q, "id"); err != nil {
		collect(err)
	}
	if f.Acknowledged, err = queryBool(q, "acknowledged"); err != nil {
		collect(err)
	}
	if f.StartAfter, err = queryTime(q, "start_after"); err != nil {
		collect(err)
	}
	if f.StartBefore, err = queryTime(q, "start_before"); err != nil {
		collect(err)
	}
	if f.EndAfter, err = queryTime(q, "end_after"); err != nil {
		collect(err)
	}
	if f.EndBefore, err = queryTime(q, "end_before"); err != nil {
		collect(err)
	}
	return f, v.OrNil()
}

func (h *Handler) maintenanceResource() resource[domain.Maintenance, eventWrite] {
	return resource[domain.Maintenance, eventWrite]{
		name: domain.MaintenanceType,
		list: func(r *http.Request, limit, offset int) ([]domain.Maintenance, int64, error) {
			f, err := eventFilter(r.URL.Query())
			if err != nil {
				return nil, 0, err
			}
			f.Limit, f.Offset = limit, offset
			return h.service.ListMaintenances(r.Context(), f)
		},
		get:    h.service.GetMaintenance,
		create: h.service.CreateMaintenance,
		update: h.service.UpdateMaintenance,
		remove: h.service.DeleteMaintenance,
		read:   func(m domain.Maintenance) any { return h.maintenanceJSON(m) },
		write: func(m domain.Maintenance) eventWrite {
			w := eventWriteOf(m.Event)
			w.Status = choiceValue(m.Status)
			w.End = timePtr(m.End)
			return w
		},
		apply: func(_ context.Context, w eventWrite, id uint) (domain.Maintenance, error) {
			return domain.Maintenance{
				Event:  w.event(id),
				End:    timeValue(w.End),
				Status: domain.MaintenanceStatus(w.Status),
			}, nil
		},
	}
}

func (h *Handler) outageResource() resource[domain.Outage, eventWrite] {
	return resource[domain.Outage, eventWrite]{
		name: domain.OutageType,
		list: func(r *http.Request, limit, offset int) ([]domain.Outage, int64, error) {
			f, err := eventFilter(r.URL.Query())
			if err != nil {
				return nil, 0, err
			}
			f.Limit, f.Offset = limit, offset
			return h.service.ListOutages(r.Context(), f)
		},
		get:    h.service.GetOutage,
		create: h.service.CreateOutage,
		update: h.service.UpdateOutage,
		remove: h.service.DeleteOutage,
		read:   func(o domain.Outage) any { return h.outageJSON(o) },
		write: func(o domain.Outage) eventWrite {
			w := eventWriteOf(o.Event)
			w.Status = choiceValue(o.Status)
			w.End = utcPtr(o.End)
			w.EstimatedTimeToRepair = utcPtr(o.EstimatedTimeToRepair)
			return w
		},
		apply: func(_ context.Context, w eventWrite, id uint) (domain.Outage, error) {
			return domain.Outage{
				Event:                 w.event(id),
				End:                   w.End,
				EstimatedTimeToRepair: w.EstimatedTimeToRepair,
				Status:                domain.OutageStatus(w.Status),
			}, nil
		},
	}
}

// Impacts

type impactJSON struct {
	ID                uint           `json:"id"`
	URL               string         `json:"url"`
	Display           string         `json:"display"`
	EventContentType  string         `json:"event_content_type"`
	EventObjectID     uint           `json:"event_object_id"`
	Event             *brief         `json:"event"`
	TargetContentType string         `json:"target_content_type"`
	TargetObjectID    uint           `json:"target_object_id"`
	Target            *brief         `json:"target"`
	Impact            *choiceJSON    `json:"impact"`
	Tags              []string       `json:"tags"`
	CustomFields      map[string]any `json:"custom_fields"`
	Created           time.Time      `json:"created"`
	LastUpdated       time.Time      `json:"last_updated"`
}

type impactWrite struct {
	EventContentType  contentTypeRef `json:"event_content_type"`
	EventObjectID     refID          `json:"event_object_id"`
	TargetContentType contentTypeRef `json:"target_content_type"`
	TargetObjectID    refID          `json:"target_object_id"`
	Impact            choiceValue    `json:"impact"`
	Tags              []string       `json:"tags"`
	CustomFields      map[string]any `json:"custom_fields"`
}

func impactDisplay(i domain.Impact) string {
	event, target := i.EventDisplay, i.TargetDisplay
	if event == "" {
		event = "Unknown"
	}
	if target == "" {
		target = "Unknown"
	}
	return event + " - " + target
}

func (h *Handler) impactJSON(i domain.Impact) any {
	return impactJSON{
		ID:                i.ID,
		URL:               h.objectURL(apiImpactPath, i.ID),
		Display:           impactDisplay(i),
		EventContentType:  i.EventType.Name().String(),
		EventObjectID:     i.EventObjectID,
		Event:             h.brief(apiPathFor(i.EventType), i.EventObjectID, i.EventDisplay, i.EventDisplay),
		TargetContentType: i.TargetType.Name().String(),
		TargetObjectID:    i.TargetObjectID,
		Target:            h.brief(apiPathFor(i.TargetType), i.TargetObjectID, i.TargetDisplay, i.TargetDisplay),
		Impact:            choiceOrNil(string(i.Impact), i.Impact.Label()),
		Tags:              nonNilTags(i.Tags),
		CustomFields:      nonNilFields(i.CustomFields),
		Created:           i.CreatedAt.UTC(),
		LastUpdated:       i.UpdatedAt.UTC(),
	}
}

func (h *Handler) impactFilter(r *http.Request) (domain.ImpactFilter, error) {
	q := r.URL.Query()
	var f domain.ImpactFilter
	var err error
	if f.EventTypeID, err = h.contentTypeParam(r.Context(), q, "event_type"); err != nil {
		return f, err
	}
	if f.EventIDs, err = queryUints(q, "event_id"); err != nil {
		return f, err
	}
	if f.TargetTypeID, err = h.contentTypeParam(r.Context(), q, "target_type"); err != nil {
		return f, err
	}
	if f.TargetIDs, err = queryUints(q, "target_id"); err != nil {
		return f, err
	}
	for _, level := range queryStrings(q, "impact") {
		f.Levels = append(f.Levels, strings.ToUpper(level))
	}
	return f, nil
}

func (h *Handler) impactResource() resource[domain.Impact, impactWrite] {
	return resource[domain.Impact, impactWrite]{
		name: domain.ImpactType,
		list: func(r *http.Request, limit, offset int) ([]domain.Impact, int64, error) {
			f, err := h.impactFilter(r)
			if err != nil {
				return nil, 0, err
			}
			f.Limit, f.Offset = limit, offset
			return h.service.ListImpacts(r.Context(), f)
		},
		get:    h.service.GetImpact,
		create: h.service.CreateImpact,
		update: h.service.UpdateImpact,
		remove: h.service.DeleteImpact,
		read:   func(i domain.Impact) any { return h.impactJSON(i) },
		write: func(i domain.Impact) impactWrite {
			return impactWrite{
				EventContentType:  contentTypeRef{i.EventType},
				EventObjectID:     refID(i.EventObjectID),
				TargetContentType: contentTypeRef{i.TargetType},
				TargetObjectID:    refID(i.TargetObjectID),
				Impact:            choiceValue(i.Impact),
				Tags:              i.Tags,
				CustomFields:      i.CustomFields,
			}
		},
		apply: func(_ context.Context, w impactWrite, id uint) (domain.Impact, error) {
			return domain.Impact{
				ID:             id,
				EventType:      w.EventContentType.ContentType,
				EventObjectID:  uint(w.EventObjectID),
				TargetType:     w.TargetContentType.ContentType,
				TargetObjectID: uint(w.TargetObjectID),
				Impact:         domain.ImpactLevel(w.Impact),
				Tags:           w.Tags,
				CustomFields:   w.CustomFields,
			}, nil
		},
	}
}

// Notifications

type notificationJSON struct {
	ID               uint       `json:"id"`
	URL              string     `json:"url"`
	Display          string     `json:"display"`
	EventContentType string     `json:"event_content_type"`
	EventObjectID    uint       `json:"event_object_id"`
	Event            *brief     `json:"event"`
	Subject          string     `json:"subject"`
	EmailFrom        string     `json:"email_from"`
	EmailBody        string     `json:"email_body"`
	EmailReceived    *time.Time `json:"email_received"`
	HasEmail         bool       `json:"has_email"`
	Created          time.Time  `json:"created"`
	LastUpdated      time.Time  `json:"last_updated"`
}

type notificationWrite struct {
	EventContentType contentTypeRef `json:"event_content_type"`
	EventObjectID    refID          `json:"event_object_id"`
	Subject          string         `json:"subject"`
	EmailFrom        string         `json:"email_from"`
	EmailBody        string         `json:"email_body"`
	EmailReceived    *time.Time     `json:"email_received"`
	// Email is the raw message, base64 encoded.
	Email []byte `json:"email,omitempty"`
}

func (h *Handler) notificationJSON(n domain.EventNotification) any {
	return notificationJSON{
		ID:               n.ID,
		URL:              h.objectURL(apiNotificationPath, n.ID),
		Display:          n.Subject,
		EventContentType: n.EventType.Name().String(),
		EventObjectID:    n.EventObjectID,
		Event:            h.brief(apiPathFor(n.EventType), n.EventObjectID, n.EventDisplay, n.EventDisplay),
		Subject:          n.Subject,
		EmailFrom:        n.EmailFrom,
		EmailBody:        n.EmailBody,
		EmailReceived:    timePtr(n.EmailReceived),
		HasEmail:         len(n.Email) > 0,
		Created:          n.CreatedAt.UTC(),
		LastUpdated:      n.UpdatedAt.UTC(),
	}
}

func (h *Handler) notificationResource() resource[domain.EventNotification, notificationWrite] {
	return resource[domain.EventNotification, notificationWrite]{
		name: domain.EventNotificationType,
		list: func(r *http.Request, limit, offset int) ([]domain.EventNotification, int64, error) {
			q := r.URL.Query()
			f := domain.NotificationFilter{Query: strings.TrimSpace(q.Get("q")), Limit: limit, Offset: offset}
			var err error
			if f.EventTypeID, err = h.contentTypeParam(r.Context(), q, "event_type"); err != nil {
				return nil, 0, err
			}
			if f.EventIDs, err = queryUints(q, "event_id"); err != nil {
				return nil, 0, err
			}
			return h.service.ListNotifications(r.Context(), f)
		},
		get:    h.service.GetNotification,
		create: h.service.CreateNotification,
		update: h.service.UpdateNotification,
		remove: h.service.DeleteNotification,
		read:   func(n domain.EventNotification) any { return h.notificationJSON(n) },
		write: func(n domain.EventNotification) notificationWrite {
			return notificationWrite{
				EventContentType: contentTypeRef{n.EventType},
				EventObjectID:    refID(n.EventObjectID),
				Subject:          n.Subject,
				EmailFrom:        n.EmailFrom,
				EmailBody:        n.EmailBody,
				EmailReceived:    timePtr(n.EmailReceived),
			}
		},
		apply: func(_ context.Context, w notificationWrite, id uint) (domain.EventNotification, error) {
			return domain.EventNotification{
				ID:            id,
				EventType:     w.EventContentType.ContentType,
				EventObjectID: uint(w.EventObjectID),
				Subject:       w.Subject,
				EmailFrom:     w.EmailFrom,
				EmailBody:     w.EmailBody,
				EmailReceived: timeValue(w.EmailReceived),
				Email:         w.Email,
			}, nil
		},
	}
}

// Change log

type objectChangeJSON struct {
	ID                uint           `json:"id"`
	Time              time.Time      `json:"time"`
	User              *uint          `json:"user"`
	UserName          string         `json:"user_name"`
	Action            choiceJSON     `json:"action"`
	ChangedObjectType string         `json:"changed_object_type"`
	ChangedObjectID   uint           `json:"changed_object_id"`
	RelatedObjectType string         `json:"related_object_type,omitempty"`
	RelatedObjectID   *uint          `json:"related_object_id"`
	ObjectRepr        string         `json:"object_repr"`
	PrechangeData     map[string]any `json:"prechange_data"`
	PostchangeData    map[string]any `json:"postchange_data"`
}

var actionLabels = map[string]string{
	domain.ChangeActionCreate: "Created",
	domain.ChangeActionUpdate: "Updated",
	domain.ChangeActionDelete: "Deleted",
}

func (h *Handler) handleAPIObjectChanges(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, offset := pageParams(q)
	f := domain.ObjectChangeFilter{Limit: limit, Offset: offset}
	if raw := strings.TrimSpace(q.Get("changed_object_type")); raw != "" {
		name, err := domain.ParseContentTypeName(raw)
		if err != nil {
			h.writeError(w, r, domain.FieldError("changed_object_type", err.Error()))
			return
		}
		f.ObjectType = name.String()
	}
	var err error
	if f.ObjectID, err = queryUint(q, "changed_object_id"); err != nil {
		h.writeError(w, r, err)
		return
	}
	if f.UserID, err = queryUint(q, "user_id"); err != nil {
		h.writeError(w, r, err)
		return
	}
	rows, total, err := h.service.ObjectChanges(r.Context(), f)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	results := make([]any, 0, len(rows))
	for _, c := range rows {
		results = append(results, objectChangeJSON{
			ID:                c.ID,
			Time:              c.Time.UTC(),
			User:              c.UserID,
			UserName:          c.UserName,
			Action:            choiceJSON{Value: c.Action, Label: actionLabels[c.Action]},
			ChangedObjectType: c.ChangedObjectType,
			ChangedObjectID:   c.ChangedObjectID,
			RelatedObjectType: c.RelatedObjectType,
			RelatedObjectID:   c.RelatedObjectID,
			ObjectRepr:        c.ObjectRepr,
			PrechangeData:     c.PrechangeData,
			PostchangeData:    c.PostchangeData,
		})
	}
	writeJSON(w, http.StatusOK, h.paginated(r, total, limit, offset, results))
}

func idDisplay(id uint) string {
	return fmt.Sprintf("#%d", id)
}
