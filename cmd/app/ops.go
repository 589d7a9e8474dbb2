package main

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/atvirokodosprendimai/notices/internal/application"
)

// Each operation talks JSON-RPC over the unix socket or the REST API,
// depending on the transport chosen at login. REST payloads are converted to
// the same row types so the printers do not care.

const notificationsAPI = "/api/plugins/notices/eventnotification/"

type eventKind struct {
	rpcMethod string
	apiPath   string
}

var (
	maintenanceEvents = eventKind{rpcMethod: "maintenances.list", apiPath: "/api/plugins/notices/maintenance/"}
	outageEvents      = eventKind{rpcMethod: "outages.list", apiPath: "/api/plugins/notices/outage/"}
)

type eventQuery struct {
	Q        string
	Status   []string
	Provider string
	Upcoming bool
	Limit    int
	Offset   int
}

type impactQuery struct {
	EventType  string
	EventID    uint
	TargetType string
	TargetID   uint
	Limit      int
}

type whoAmI struct {
	UserID      uint     `json:"user_id"`
	Email       string   `json:"email"`
	Permissions []string `json:"permissions"`
}

type eventRow struct {
	ID               uint       `json:"id"`
	Name             string     `json:"name"`
	Summary          string     `json:"summary"`
	Provider         string     `json:"provider"`
	Status           string     `json:"status"`
	Start            time.Time  `json:"start"`
	End              *time.Time `json:"end"`
	ETR              *time.Time `json:"estimated_time_to_repair,omitempty"`
	OriginalTimezone string     `json:"original_timezone,omitempty"`
	InternalTicket   string     `json:"internal_ticket,omitempty"`
	Acknowledged     bool       `json:"acknowledged"`
	ImpactCount      *int       `json:"impact_count,omitempty"`
}

type impactRow struct {
	ID          uint   `json:"id"`
	EventType   string `json:"event_type"`
	EventID     uint   `json:"event_id"`
	Event       string `json:"event"`
	EventStatus string `json:"event_status"`
	TargetType  string `json:"target_type"`
	TargetID    uint   `json:"target_id"`
	Target      string `json:"target"`
	Impact      string `json:"impact"`
}

type eventPage struct {
	Count   int64      `json:"count"`
	Results []eventRow `json:"results"`
}

type impactPage struct {
	Count   int64       `json:"count"`
	Results []impactRow `json:"results"`
}

type maintenanceDetail struct {
	Maintenance eventRow    `json:"maintenance"`
	Impacts     []impactRow `json:"impacts"`
}

type importedNotification struct {
	ID            uint      `json:"id"`
	Subject       string    `json:"subject"`
	EmailFrom     string    `json:"email_from"`
	EmailReceived time.Time `json:"email_received"`
	Event         string    `json:"event"`
}

// REST shapes, only the fields the CLI prints.

type restChoice struct {
	Value string `json:"value"`
}

type restBrief struct {
	ID      uint   `json:"id"`
	Display string `json:"display"`
}

type restEvent struct {
	ID                    uint        `json:"id"`
	Name                  string      `json:"name"`
	Summary               string      `json:"summary"`
	Status                *restChoice `json:"status"`
	Provider              *restBrief  `json:"provider"`
	Start                 *time.Time  `json:"start"`
	End                   *time.Time  `json:"end"`
	EstimatedTimeToRepair *time.Time  `json:"estimated_time_to_repair"`
	OriginalTimezone      string      `json:"original_timezone"`
	InternalTicket        string      `json:"internal_ticket"`
	Acknowledged          bool        `json:"acknowledged"`
	ImpactCount           *int        `json:"impact_count"`
}

func (e restEvent) row() eventRow {
	out := eventRow{
		ID: e.ID, Name: e.Name, Summary: e.Summary, End: e.End, ETR: e.EstimatedTimeToRepair,
		OriginalTimezone: e.OriginalTimezone, InternalTicket: e.InternalTicket,
		Acknowledged: e.Acknowledged, ImpactCount: e.ImpactCount,
	}
	if e.Status != nil {
		out.Status = e.Status.Value
	}
	if e.Provider != nil {
		out.Provider = e.Provider.Display
	}
	if e.Start != nil {
		out.Start = *e.Start
	}
	return out
}

type restImpact struct {
	ID                uint        `json:"id"`
	EventContentType  string      `json:"event_content_type"`
	EventObjectID     uint        `json:"event_object_id"`
	Event             *restBrief  `json:"event"`
	TargetContentType string      `json:"target_content_type"`
	TargetObjectID    uint        `json:"target_object_id"`
	Target            *restBrief  `json:"target"`
	Impact            *restChoice `json:"impact"`
}

func (i restImpact) row() impactRow {
	out := impactRow{
		ID: i.ID, EventType: i.EventContentType, EventID: i.EventObjectID,
		TargetType: i.TargetContentType, TargetID: i.TargetObjectID,
	}
	if i.Event != nil {
		out.Event = i.Event.Display
	}
	if i.Target != nil {
		out.Target = i.Target.Display
	}
	if i.Impact != nil {
		out.Impact = i.Impact.Value
	}
	return out
}

func doLogin(ctx context.Context, cfg cliConfig, email, password, tokenName string, out any) error {
	if cfg.Transport == "uds" {
		client := newRPCClient(cfg.Socket)
		return client.call(ctx, "auth.login", map[string]any{
			"email":      email,
			"password":   password,
			"token_name": tokenName,
		}, out)
	}
	client := newAPIClient(cfg.Server, "")
	return client.request(ctx, http.MethodPost, "/api/auth/login", map[string]any{
		"email":      email,
		"password":   password,
		"mode":       "token",
		"token_name": tokenName,
	}, out)
}

func doWhoAmI(ctx context.Context, cfg cliConfig, out *whoAmI) error {
	if cfg.Transport == "uds" {
		return newRPCClient(cfg.Socket).call(ctx, "auth.whoami", map[string]any{"token": cfg.Token}, out)
	}
	return newAPIClient(cfg.Server, cfg.Token).get(ctx, "/api/auth/whoami", nil, out)
}

// doLogout only has server state to drop over HTTP; socket tokens are
// forgotten locally.
func doLogout(ctx context.Context, cfg cliConfig) error {
	if cfg.Transport == "uds" {
		return nil
	}
	client := newAPIClient(cfg.Server, cfg.Token)
	return client.request(ctx, http.MethodPost, "/api/auth/logout", nil, nil)
}

func doEventsList(ctx context.Context, cfg cliConfig, kind eventKind, q eventQuery) (eventPage, error) {
	var out eventPage
	if cfg.Transport == "uds" {
		err := newRPCClient(cfg.Socket).call(ctx, kind.rpcMethod, map[string]any{
			"token":    cfg.Token,
			"q":        q.Q,
			"status":   q.Status,
			"provider": q.Provider,
			"upcoming": q.Upcoming,
			"limit":    q.Limit,
			"offset":   q.Offset,
		}, &out)
		return out, err
	}

	params := url.Values{}
	if q.Q != "" {
		params.Set("q", q.Q)
	}
	for _, st := range q.Status {
		params.Add("status", st)
	}
	if q.Provider != "" {
		params.Set("provider", q.Provider)
	}
	if q.Upcoming {
		params.Set("end_after", time.Now().UTC().Format(time.RFC3339))
		params.Set("ordering", "start")
	}
	params.Set("limit", strconv.Itoa(q.Limit))
	params.Set("offset", strconv.Itoa(q.Offset))

	var page struct {
		Count   int64       `json:"count"`
		Results []restEvent `json:"results"`
	}
	if err := newAPIClient(cfg.Server, cfg.Token).get(ctx, kind.apiPath, params, &page); err != nil {
		return out, err
	}
	out.Count = page.Count
	for _, e := range page.Results {
		out.Results = append(out.Results, e.row())
	}
	return out, nil
}

func doMaintenanceShow(ctx context.Context, cfg cliConfig, id uint) (maintenanceDetail, error) {
	var out maintenanceDetail
	if cfg.Transport == "uds" {
		err := newRPCClient(cfg.Socket).call(ctx, "maintenances.get", map[string]any{"token": cfg.Token, "id": id}, &out)
		return out, err
	}

	client := newAPIClient(cfg.Server, cfg.Token)
	var m restEvent
	if err := client.get(ctx, fmt.Sprintf("%s%d/", maintenanceEvents.apiPath, id), nil, &m); err != nil {
		return out, err
	}
	out.Maintenance = m.row()
	impacts, err := doImpactsList(ctx, cfg, impactQuery{EventType: "notices.maintenance", EventID: id, Limit: 1000})
	if err != nil {
		return out, err
	}
	out.Impacts = impacts.Results
	return out, nil
}

func doImpactsList(ctx context.Context, cfg cliConfig, q impactQuery) (impactPage, error) {
	var out impactPage
	if cfg.Transport == "uds" {
		err := newRPCClient(cfg.Socket).call(ctx, "impacts.list", map[string]any{
			"token":       cfg.Token,
			"event_type":  q.EventType,
			"event_id":    q.EventID,
			"target_type": q.TargetType,
			"target_id":   q.TargetID,
			"limit":       q.Limit,
		}, &out)
		return out, err
	}

	params := url.Values{}
	if q.EventType != "" {
		params.Set("event_type", q.EventType)
	}
	if q.EventID != 0 {
		params.Set("event_id", strconv.FormatUint(uint64(q.EventID), 10))
	}
	if q.TargetType != "" {
		params.Set("target_type", q.TargetType)
	}
	if q.TargetID != 0 {
		params.Set("target_id", strconv.FormatUint(uint64(q.TargetID), 10))
	}
	params.Set("limit", strconv.Itoa(q.Limit))

	var page struct {
		Count   int64        `json:"count"`
		Results []restImpact `json:"results"`
	}
	if err := newAPIClient(cfg.Server, cfg.Token).get(ctx, "/api/plugins/notices/impact/", params, &page); err != nil {
		return out, err
	}
	out.Count = page.Count
	for _, i := range page.Results {
		out.Results = append(out.Results, i.row())
	}
	return out, nil
}

// doNotificationImport parses the message locally for the REST API, which
// takes the decoded fields next to the raw bytes.
func doNotificationImport(ctx context.Context, cfg cliConfig, eventType string, eventID uint, raw []byte) (importedNotification, error) {
	var out importedNotification
	if cfg.Transport == "uds" {
		err := newRPCClient(cfg.Socket).call(ctx, "notifications.import", map[string]any{
			"token":      cfg.Token,
			"event_type": eventType,
			"event_id":   eventID,
			"email":      raw,
		}, &out)
		return out, err
	}

	parsed, err := application.ParseEmail(raw)
	if err != nil {
		return out, fmt.Errorf("parse message: %w", err)
	}
	if parsed.EmailReceived.IsZero() {
		parsed.EmailReceived = time.Now().UTC()
	}
	var created struct {
		ID            uint       `json:"id"`
		Subject       string     `json:"subject"`
		EmailFrom     string     `json:"email_from"`
		EmailReceived time.Time  `json:"email_received"`
		Event         *restBrief `json:"event"`
	}
	err = newAPIClient(cfg.Server, cfg.Token).request(ctx, http.MethodPost, notificationsAPI, map[string]any{
		"event_content_type": eventType,
		"event_object_id":    eventID,
		"subject":            parsed.Subject,
		"email_from":         parsed.EmailFrom,
		"email_body":         parsed.EmailBody,
		"email_received":     parsed.EmailReceived,
		"email":              raw,
	}, &created)
	if err != nil {
		return out, err
	}
	out = importedNotification{ID: created.ID, Subject: created.Subject, EmailFrom: created.EmailFrom, EmailReceived: created.EmailReceived}
	if created.Event != nil {
		out.Event = created.Event.Display
	}
	return out, nil
}

func doICalURL(ctx context.Context, cfg cliConfig) (string, error) {
	if cfg.Transport == "uds" {
		var out struct {
			URL string `json:"url"`
		}
		err := newRPCClient(cfg.Socket).call(ctx, "ical.url", map[string]any{"token": cfg.Token}, &out)
		return out.URL, err
	}
	// Over HTTP the CLI already holds a usable token, so hand back a working
	// subscription URL instead of the placeholder.
	u, err := url.Parse(cfg.Server)
	if err != nil {
		return "", err
	}
	u.Path = "/notices/ical/maintenances.ics"
	u.RawQuery = url.Values{"token": {cfg.Token}}.Encode()
	if err := newAPIClient(cfg.Server, cfg.Token).get(ctx, "/api/auth/whoami", nil, nil); err != nil {
		return "", err
	}
	return u.String(), nil
}
