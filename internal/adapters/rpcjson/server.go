package rpcjson

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/atvirokodosprendimai/notices/internal/application"
	"github.com/atvirokodosprendimai/notices/internal/domain"
	"github.com/atvirokodosprendimai/notices/internal/platform/logger"
)

// Server answers newline-delimited JSON-RPC 2.0 requests on a unix socket.
// It is the transport of the command line client.
type Server struct {
	service  *application.Service
	log      *logger.Logger
	listener net.Listener
	path     string
	icalKey  string
}

type request struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
	ID      any             `json:"id"`
}

type response struct {
	JSONRPC string    `json:"jsonrpc"`
	Result  any       `json:"result,omitempty"`
	Error   *rpcError `json:"error,omitempty"`
	ID      any       `json:"id"`
}

type rpcError struct {
	Code    int                 `json:"code"`
	Message string              `json:"message"`
	Fields  map[string][]string `json:"fields,omitempty"`
}

// Start listens on path and serves until Close. icalPlaceholder is the token
// shown in feed URLs.
func Start(path string, service *application.Service, icalPlaceholder string, log *logger.Logger) (*Server, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("rpc socket path is required")
	}
	if log == nil {
		log = logger.Nop()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	_ = os.Remove(path)
	ln, err := net.Listen("unix", path)
	if err != nil {
		return nil, err
	}
	if err := os.Chmod(path, 0o600); err != nil {
		_ = ln.Close()
		_ = os.Remove(path)
		return nil, err
	}

	s := &Server{service: service, log: log, listener: ln, path: path, icalKey: icalPlaceholder}
	go s.serve()
	log.Info("rpc listening", "socket", path)
	return s, nil
}

func (s *Server) serve() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			return
		}
		go s.handleConn(conn)
	}
}

func (s *Server) Close() error {
	err := s.listener.Close()
	_ = os.Remove(s.path)
	return err
}

func (s *Server) handleConn(conn net.Conn) {
	defer func() { _ = conn.Close() }()
	dec := json.NewDecoder(conn)
	enc := json.NewEncoder(conn)

	for {
		var req request
		if err := dec.Decode(&req); err != nil {
			if errors.Is(err, io.EOF) {
				return
			}
			_ = enc.Encode(response{JSONRPC: "2.0", Error: &rpcError{Code: -32700, Message: "parse error"}, ID: nil})
			return
		}

		start := time.Now()
		resp := s.dispatch(context.Background(), req)
		s.log.Debug("rpc call", "method", req.Method, "ok", resp.Error == nil, "duration", time.Since(start).String())
		if err := enc.Encode(resp); err != nil {
			return
		}
	}
}

func (s *Server) dispatch(ctx context.Context, req request) response {
	if req.JSONRPC != "2.0" || strings.TrimSpace(req.Method) == "" {
		return response{JSONRPC: "2.0", Error: &rpcError{Code: -32600, Message: "invalid request"}, ID: req.ID}
	}

	switch req.Method {
	case "auth.login":
		return s.handleAuthLogin(ctx, req)
	case "auth.whoami":
		identity, rpcResp, ok := s.authz(ctx, req, "")
		if !ok {
			return rpcResp
		}
		perms := make([]string, 0, len(identity.Permissions))
		for p := range identity.Permissions {
			perms = append(perms, p)
		}
		return ok200(req.ID, map[string]any{"user_id": identity.User.ID, "email": identity.User.Email, "permissions": perms})
	case "maintenances.list":
		return s.handleMaintenanceList(ctx, req)
	case "maintenances.get":
		return s.handleMaintenanceGet(ctx, req)
	case "outages.list":
		return s.handleOutageList(ctx, req)
	case "impacts.list":
		return s.handleImpactList(ctx, req)
	case "notifications.import":
		return s.handleNotificationImport(ctx, req)
	case "ical.url":
		if _, rpcResp, ok := s.authz(ctx, req, domain.Permission(application.ActionView, domain.MaintenanceType)); !ok {
			return rpcResp
		}
		return ok200(req.ID, map[string]any{"url": s.service.ICalURL(s.icalKey)})
	default:
		return response{JSONRPC: "2.0", Error: &rpcError{Code: -32601, Message: "method not found"}, ID: req.ID}
	}
}

func (s *Server) handleAuthLogin(ctx context.Context, req request) response {
	var p struct {
		Email     string `json:"email"`
		Password  string `json:"password"`
		TokenName string `json:"token_name"`
		TTLHours  int    `json:"ttl_hours"`
	}
	if !decodeParams(req.Params, &p) {
		return invalidParams(req.ID)
	}
	var ttl *time.Duration
	if p.TTLHours > 0 {
		d := time.Duration(p.TTLHours) * time.Hour
		ttl = &d
	}
	u, token, err := s.service.LoginWithAPIToken(ctx, p.Email, p.Password, p.TokenName, ttl)
	if err != nil {
		return response{JSONRPC: "2.0", Error: &rpcError{Code: 40100, Message: "invalid credentials"}, ID: req.ID}
	}
	return ok200(req.ID, map[string]any{"user_id": u.ID, "email": u.Email, "token": token})
}

type listParams struct {
	Token    string   `json:"token"`
	Q        string   `json:"q"`
	Status   []string `json:"status"`
	Provider string   `json:"provider"`
	Upcoming bool     `json:"upcoming"`
	Limit    int      `json:"limit"`
	Offset   int      `json:"offset"`
}

func (p listParams) filter(now time.Time) domain.EventFilter {
	f := domain.EventFilter{Query: p.Q, OrderBy: "-start", Limit: p.Limit, Offset: p.Offset}
	for _, st := range p.Status {
		f.Statuses = append(f.Statuses, strings.ToUpper(strings.TrimSpace(st)))
	}
	if p.Provider != "" {
		f.ProviderSlugs = []string{p.Provider}
	}
	if p.Upcoming {
		f.EndAfter = &now
		f.OrderBy = "start"
	}
	return f
}

type eventDTO struct {
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

func maintenanceDTO(m domain.Maintenance) eventDTO {
	end := m.End
	count := m.ImpactCount
	return eventDTO{
		ID: m.ID, Name: m.Name, Summary: m.Summary, Provider: m.Provider.Name, Status: string(m.Status),
		Start: m.Start, End: &end, OriginalTimezone: m.OriginalTimezone, InternalTicket: m.InternalTicket,
		Acknowledged: m.Acknowledged, ImpactCount: &count,
	}
}

func outageDTO(o domain.Outage) eventDTO {
	return eventDTO{
		ID: o.ID, Name: o.Name, Summary: o.Summary, Provider: o.Provider.Name, Status: string(o.Status),
		Start: o.Start, End: o.End, ETR: o.EstimatedTimeToRepair, OriginalTimezone: o.OriginalTimezone,
		InternalTicket: o.InternalTicket, Acknowledged: o.Acknowledged,
	}
}

type pageDTO struct {
	Count   int64 `json:"count"`
	Results any   `json:"results"`
}

func (s *Server) handleMaintenanceList(ctx context.Context, req request) response {
	if _, rpcResp, ok := s.authz(ctx, req, domain.Permission(application.ActionView, domain.MaintenanceType)); !ok {
		return rpcResp
	}
	var p listParams
	if !decodeParams(req.Params, &p) {
		return invalidParams(req.ID)
	}
	rows, total, err := s.service.ListMaintenances(ctx, p.filter(time.Now().UTC()))
	if err != nil {
		return appError(req.ID, err)
	}
	out := make([]eventDTO, 0, len(rows))
	for _, m := range rows {
		out = append(out, maintenanceDTO(m))
	}
	return ok200(req.ID, pageDTO{Count: total, Results: out})
}

func (s *Server) handleMaintenanceGet(ctx context.Context, req request) response {
	if _, rpcResp, ok := s.authz(ctx, req, domain.Permission(application.ActionView, domain.MaintenanceType)); !ok {
		return rpcResp
	}
	var p struct {
		ID uint `json:"id"`
	}
	if !decodeParams(req.Params, &p) || p.ID == 0 {
		return invalidParams(req.ID)
	}
	m, err := s.service.GetMaintenance(ctx, p.ID)
	if err != nil {
		return appError(req.ID, err)
	}
	impacts, err := s.service.ImpactsForEvent(ctx, domain.MaintenanceType, p.ID)
	if err != nil {
		return appError(req.ID, err)
	}
	out := make([]impactDTO, 0, len(impacts))
	for _, imp := range impacts {
		out = append(out, toImpactDTO(imp))
	}
	return ok200(req.ID, map[string]any{"maintenance": maintenanceDTO(m), "impacts": out})
}

func (s *Server) handleOutageList(ctx context.Context, req request) response {
	if _, rpcResp, ok := s.authz(ctx, req, domain.Permission(application.ActionView, domain.OutageType)); !ok {
		return rpcResp
	}
	var p listParams
	if !decodeParams(req.Params, &p) {
		return invalidParams(req.ID)
	}
	f := p.filter(time.Now().UTC())
	if p.Upcoming {
		f.EndAfter = nil
		f.OpenOnly = true
	}
	rows, total, err := s.service.ListOutages(ctx, f)
	if err != nil {
		return appError(req.ID, err)
	}
	out := make([]eventDTO, 0, len(rows))
	for _, o := range rows {
		out = append(out, outageDTO(o))
	}
	return ok200(req.ID, pageDTO{Count: total, Results: out})
}

type impactDTO struct {
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

func toImpactDTO(i domain.Impact) impactDTO {
	return impactDTO{
		ID: i.ID, EventType: i.EventType.String(), EventID: i.EventObjectID, Event: i.EventDisplay,
		EventStatus: i.EventStatus, TargetType: i.TargetType.String(), TargetID: i.TargetObjectID,
		Target: i.TargetDisplay, Impact: string(i.Impact),
	}
}

func (s *Server) handleImpactList(ctx context.Context, req request) response {
	if _, rpcResp, ok := s.authz(ctx, req, domain.Permission(application.ActionView, domain.ImpactType)); !ok {
		return rpcResp
	}
	var p struct {
		EventType  string `json:"event_type"`
		EventID    uint   `json:"event_id"`
		TargetType string `json:"target_type"`
		TargetID   uint   `json:"target_id"`
		Limit      int    `json:"limit"`
		Offset     int    `json:"offset"`
	}
	if !decodeParams(req.Params, &p) {
		return invalidParams(req.ID)
	}
	filter := domain.ImpactFilter{Limit: p.Limit, Offset: p.Offset}
	if p.EventType != "" {
		ct, err := s.contentType(ctx, p.EventType)
		if err != nil {
			return appError(req.ID, err)
		}
		filter.EventTypeID = &ct.ID
	}
	if p.EventID != 0 {
		filter.EventIDs = []uint{p.EventID}
	}
	if p.TargetType != "" {
		ct, err := s.contentType(ctx, p.TargetType)
		if err != nil {
			return appError(req.ID, err)
		}
		filter.TargetTypeID = &ct.ID
	}
	if p.TargetID != 0 {
		filter.TargetIDs = []uint{p.TargetID}
	}
	rows, total, err := s.service.ListImpacts(ctx, filter)
	if err != nil {
		return appError(req.ID, err)
	}
	out := make([]impactDTO, 0, len(rows))
	for _, imp := range rows {
		out = append(out, toImpactDTO(imp))
	}
	return ok200(req.ID, pageDTO{Count: total, Results: out})
}

func (s *Server) contentType(ctx context.Context, raw string) (domain.ContentType, error) {
	name, err := domain.ParseContentTypeName(raw)
	if err != nil {
		return domain.ContentType{}, domain.FieldError("content_type", err.Error())
	}
	return s.service.ContentType(ctx, name)
}

func (s *Server) handleNotificationImport(ctx context.Context, req request) response {
	identity, rpcResp, ok := s.authz(ctx, req, domain.Permission(application.ActionAdd, domain.EventNotificationType))
	if !ok {
		return rpcResp
	}
	var p struct {
		EventType string `json:"event_type"`
		EventID   uint   `json:"event_id"`
		// Email is the raw message, base64 encoded on the wire.
		Email []byte `json:"email"`
	}
	if !decodeParams(req.Params, &p) || p.EventID == 0 || len(p.Email) == 0 {
		return invalidParams(req.ID)
	}
	eventType := domain.MaintenanceType
	if p.EventType != "" {
		name, err := domain.ParseContentTypeName(p.EventType)
		if err != nil {
			return appError(req.ID, domain.FieldError("event_type", err.Error()))
		}
		eventType = name
	}
	n, err := s.service.ImportNotification(ctx, identity, eventType, p.EventID, p.Email)
	if err != nil {
		return appError(req.ID, err)
	}
	return ok200(req.ID, map[string]any{
		"id":             n.ID,
		"subject":        n.Subject,
		"email_from":     n.EmailFrom,
		"email_received": n.EmailReceived,
		"event":          n.EventDisplay,
	})
}

func (s *Server) authz(ctx context.Context, req request, permission string) (domain.Identity, response, bool) {
	var p struct {
		Token string `json:"token"`
	}
	if !decodeParams(req.Params, &p) {
		return domain.Identity{}, invalidParams(req.ID), false
	}
	identity, err := s.service.AuthenticateBearerToken(ctx, p.Token)
	if err != nil {
		return domain.Identity{}, response{JSONRPC: "2.0", Error: &rpcError{Code: 40100, Message: "unauthorized"}, ID: req.ID}, false
	}
	if permission != "" && !s.service.Can(identity, permission) {
		return domain.Identity{}, response{JSONRPC: "2.0", Error: &rpcError{Code: 40300, Message: "forbidden"}, ID: req.ID}, false
	}
	return identity, response{}, true
}

func decodeParams(raw json.RawMessage, out any) bool {
	if len(raw) == 0 {
		return false
	}
	return json.Unmarshal(raw, out) == nil
}

func ok200(id any, result any) response {
	return response{JSONRPC: "2.0", Result: result, ID: id}
}

func invalidParams(id any) response {
	return response{JSONRPC: "2.0", Error: &rpcError{Code: -32602, Message: "invalid params"}, ID: id}
}

// appError maps service errors to the codes the CLI understands.
func appError(id any, err error) response {
	if v, ok := domain.AsValidationError(err); ok {
		return response{JSONRPC: "2.0", Error: &rpcError{Code: 40000, Message: v.Error(), Fields: v.Fields}, ID: id}
	}
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return response{JSONRPC: "2.0", Error: &rpcError{Code: 40400, Message: "not found"}, ID: id}
	case errors.Is(err, domain.ErrConflict):
		return response{JSONRPC: "2.0", Error: &rpcError{Code: 40900, Message: err.Error()}, ID: id}
	}
	return internalError(id, err)
}

func internalError(id any, err error) response {
	return response{JSONRPC: "2.0", Error: &rpcError{Code: 50000, Message: fmt.Sprintf("internal error: %v", err)}, ID: id}
}
