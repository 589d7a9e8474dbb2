package http

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/atvirokodosprendimai/notices/internal/adapters/db/gormdb"
	"github.com/atvirokodosprendimai/notices/internal/application"
	"github.com/atvirokodosprendimai/notices/internal/domain"
)

const (
	adminEmail    = "admin@example.net"
	adminPassword = "correct-horse"
)

type testServer struct {
	handler  http.Handler
	svc      *application.Service
	token    string
	provider domain.Provider
	circuit  domain.Circuit
	admin    domain.Identity
}

func newTestServer(t *testing.T) testServer {
	t.Helper()
	return newTestServerIn(t, time.UTC)
}

// newTestServerIn builds a server whose system timezone is loc.
func newTestServerIn(t *testing.T, loc *time.Location) testServer {
	t.Helper()
	ctx := context.Background()
	db, err := gormdb.Open(gormdb.DriverSQLite, filepath.Join(t.TempDir(), "http.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := gormdb.RunMigrations(ctx, db, gormdb.DriverSQLite); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	repo := gormdb.NewRepository(db)
	allow, err := domain.NewAllowList([]string{"circuits.circuit", "dcim.site"})
	if err != nil {
		t.Fatalf("allow list: %v", err)
	}
	svc := application.NewService(repo, application.Options{
		Location:            loc,
		AllowList:           allow,
		ICalPastDaysDefault: 30,
		LoginRequired:       true,
		BaseURL:             "https://notices.example.net",
	}, nil)
	if err := svc.EnsureDefaultRoles(ctx); err != nil {
		t.Fatalf("roles: %v", err)
	}
	if err := svc.BootstrapAdmin(ctx, adminEmail, adminPassword); err != nil {
		t.Fatalf("bootstrap admin: %v", err)
	}
	_, token, err := svc.LoginWithAPIToken(ctx, adminEmail, adminPassword, "test", nil)
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	admin, err := svc.AuthenticateBearerToken(ctx, token)
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	provider, err := repo.CreateProvider(ctx, domain.Provider{Name: "Telia", Slug: "telia"})
	if err != nil {
		t.Fatalf("provider: %v", err)
	}
	circuit, err := repo.CreateCircuit(ctx, domain.Circuit{CID: "TL-2001", ProviderID: provider.ID})
	if err != nil {
		t.Fatalf("circuit: %v", err)
	}

	handler := NewRouter(svc, Options{
		BaseURL:              "https://notices.example.net",
		ICalCacheMaxAge:      900,
		ICalTokenPlaceholder: "YOUR_TOKEN",
	}, nil)
	return testServer{handler: handler, svc: svc, token: token, provider: provider, circuit: circuit, admin: admin}
}

func (s testServer) maintenance(t *testing.T, name string, status domain.MaintenanceStatus) domain.Maintenance {
	t.Helper()
	start := time.Now().UTC().Add(24 * time.Hour).Truncate(time.Minute)
	m, err := s.svc.CreateMaintenance(context.Background(), s.admin, domain.Maintenance{
		Event:  domain.Event{Name: name, Summary: "Fibre splice", ProviderID: s.provider.ID, Start: start},
		End:    start.Add(3 * time.Hour),
		Status: status,
	})
	if err != nil {
		t.Fatalf("create maintenance: %v", err)
	}
	return m
}

func (s testServer) do(t *testing.T, method, target, body string, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func (s testServer) icalURL(extra url.Values) string {
	q := url.Values{"token": {s.token}}
	for k, v := range extra {
		q[k] = v
	}
	return "/notices/ical/maintenances.ics?" + q.Encode()
}

func TestICalRejectsInvalidToken(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodGet, "/notices/ical/maintenances.ics?token=not-a-token", "", nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}

func TestICalWithoutCredentialsIsForbidden(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodGet, "/notices/ical/maintenances.ics", "", nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}

func TestICalFeedServesCalendarAndHonoursETag(t *testing.T) {
	s := newTestServer(t)
	s.maintenance(t, "MW-100", domain.MaintenanceConfirmed)

	rec := s.do(t, http.MethodGet, s.icalURL(nil), "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/calendar") {
		t.Fatalf("unexpected content type %q", ct)
	}
	if cc := rec.Header().Get("Cache-Control"); cc != "public, max-age=900" {
		t.Fatalf("unexpected cache control %q", cc)
	}
	if rec.Header().Get("Last-Modified") == "" {
		t.Fatalf("expected Last-Modified header")
	}
	body := rec.Body.String()
	if !strings.Contains(body, "BEGIN:VCALENDAR") || !strings.Contains(body, "MW-100") {
		t.Fatalf("feed does not contain the maintenance:\n%s", body)
	}
	etag := rec.Header().Get("ETag")
	if etag == "" {
		t.Fatalf("expected ETag header")
	}

	again := s.do(t, http.MethodGet, s.icalURL(nil), "", map[string]string{"If-None-Match": etag})
	if again.Code != http.StatusNotModified {
		t.Fatalf("expected 304, got %d", again.Code)
	}
	if again.Body.Len() != 0 {
		t.Fatalf("304 must not carry a body")
	}

	since := s.do(t, http.MethodGet, s.icalURL(nil), "", map[string]string{"If-Modified-Since": rec.Header().Get("Last-Modified")})
	if since.Code != http.StatusNotModified {
		t.Fatalf("expected 304 for If-Modified-Since, got %d", since.Code)
	}
}

func TestICalPastDaysOutOfRangeFallsBackToDefault(t *testing.T) {
	s := newTestServer(t)
	s.maintenance(t, "MW-200", domain.MaintenanceConfirmed)

	rec := s.do(t, http.MethodGet, s.icalURL(url.Values{"past_days": {"400"}}), "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	def := s.do(t, http.MethodGet, s.icalURL(url.Values{"past_days": {"30"}}), "", nil)
	if rec.Header().Get("ETag") != def.Header().Get("ETag") {
		t.Fatalf("past_days=400 should behave like the default")
	}
}

func TestICalStatusFilterIgnoresUnknownValues(t *testing.T) {
	s := newTestServer(t)
	s.maintenance(t, "MW-CONFIRMED", domain.MaintenanceConfirmed)
	s.maintenance(t, "MW-TENTATIVE", domain.MaintenanceTentative)

	rec := s.do(t, http.MethodGet, s.icalURL(url.Values{"status": {"bogus,CONFIRMED"}}), "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "MW-CONFIRMED") {
		t.Fatalf("confirmed maintenance missing")
	}
	if strings.Contains(body, "MW-TENTATIVE") {
		t.Fatalf("tentative maintenance should be filtered out")
	}
}

func TestICalUnknownProviderIsBadRequest(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodGet, s.icalURL(url.Values{"provider": {"nope"}}), "", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Provider not found") {
		t.Fatalf("unexpected body %q", rec.Body.String())
	}
}

func TestICalAcceptsBearerHeader(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodGet, "/notices/ical/maintenances.ics", "", map[string]string{"Authorization": "Token " + s.token})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestAPIRequiresAuthentication(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodGet, "/api/plugins/notices/maintenance/", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestAPIMaintenanceValidationAndCreate(t *testing.T) {
	s := newTestServer(t)
	auth := map[string]string{"Authorization": "Bearer " + s.token, "Content-Type": "application/json"}

	rec := s.do(t, http.MethodPost, "/api/plugins/notices/maintenance/", `{"summary":"x"}`, auth)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
	var errs map[string][]string
	if err := json.Unmarshal(rec.Body.Bytes(), &errs); err != nil {
		t.Fatalf("decode errors: %v", err)
	}
	if len(errs["name"]) == 0 || len(errs["provider"]) == 0 {
		t.Fatalf("expected name and provider errors, got %v", errs)
	}

	body := `{"name":"MW-300","summary":"Router swap","provider":` + idString(s.provider.ID) +
		`,"status":"CONFIRMED","start":"2030-01-02T01:00:00Z","end":"2030-01-02T05:00:00Z"}`
	rec = s.do(t, http.MethodPost, "/api/plugins/notices/maintenance/", body, auth)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var created struct {
		ID     uint `json:"id"`
		Status struct {
			Value string `json:"value"`
		} `json:"status"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode created: %v", err)
	}
	if created.ID == 0 || created.Status.Value != "CONFIRMED" {
		t.Fatalf("unexpected created payload %s", rec.Body.String())
	}

	list := s.do(t, http.MethodGet, "/api/plugins/notices/maintenance/?status=confirmed", "", auth)
	var page struct {
		Count int64 `json:"count"`
	}
	if err := json.Unmarshal(list.Body.Bytes(), &page); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if page.Count != 1 {
		t.Fatalf("expected one maintenance, got %d", page.Count)
	}
}

func TestAPIMalformedJSON(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodPost, "/api/plugins/notices/maintenance/", `{"name":`, map[string]string{"Authorization": "Bearer " + s.token})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestGUIRedirectsToLogin(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodGet, "/notices/maintenances/", "", nil)
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("expected 303, got %d", rec.Code)
	}
	if loc := rec.Header().Get("Location"); !strings.HasPrefix(loc, "/login?next=") {
		t.Fatalf("unexpected redirect %q", loc)
	}
}

func TestGUIMaintenancePages(t *testing.T) {
	s := newTestServer(t)
	m := s.maintenance(t, "MW-400", domain.MaintenanceConfirmed)
	auth := map[string]string{"Authorization": "Bearer " + s.token}

	list := s.do(t, http.MethodGet, "/notices/maintenances", "", auth)
	if list.Code != http.StatusOK || !strings.Contains(list.Body.String(), "MW-400") {
		t.Fatalf("list page: %d", list.Code)
	}
	detail := s.do(t, http.MethodGet, "/notices/maintenances/"+idString(m.ID), "", auth)
	if detail.Code != http.StatusOK {
		t.Fatalf("detail page: %d", detail.Code)
	}
	if !strings.Contains(detail.Body.String(), "YOUR_TOKEN") {
		t.Fatalf("detail page should show the feed URL with the placeholder")
	}
	missing := s.do(t, http.MethodGet, "/notices/maintenances/99999", "", auth)
	if missing.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", missing.Code)
	}
}

func TestGUICreateMaintenanceRendersErrors(t *testing.T) {
	s := newTestServer(t)
	form := url.Values{"name": {""}, "summary": {"x"}, "status": {"CONFIRMED"}, "start": {"not a date"}}
	rec := s.do(t, http.MethodPost, "/notices/maintenances/add", form.Encode(), map[string]string{
		"Authorization": "Bearer " + s.token,
		"Content-Type":  "application/x-www-form-urlencoded",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected form re-render, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Enter a valid date/time.") {
		t.Fatalf("expected date error in form")
	}
}

func TestICalEmptyTokenFallsBackToHeader(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodGet, "/notices/ical/maintenances.ics?token=", "", map[string]string{"Authorization": "Token " + s.token})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	rec = s.do(t, http.MethodGet, "/notices/ical/maintenances.ics?token=", "", nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 without any credentials, got %d", rec.Code)
	}
}

func (s testServer) contentTypeID(t *testing.T, name domain.ContentTypeName) string {
	t.Helper()
	ct, err := s.svc.ContentType(context.Background(), name)
	if err != nil {
		t.Fatalf("content type %s: %v", name, err)
	}
	return idString(ct.ID)
}

func (s testServer) postForm(t *testing.T, target string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	return s.do(t, http.MethodPost, target, form.Encode(), map[string]string{
		"Authorization": "Bearer " + s.token,
		"Content-Type":  "application/x-www-form-urlencoded",
	})
}

func (s testServer) impactForm(t *testing.T, m domain.Maintenance, targetType domain.ContentTypeName, targetID uint) url.Values {
	t.Helper()
	return url.Values{
		"event_content_type":  {s.contentTypeID(t, domain.MaintenanceType)},
		"event_object_id":     {idString(m.ID)},
		"target_content_type": {s.contentTypeID(t, targetType)},
		"target_object_id":    {idString(targetID)},
		"impact":              {"OUTAGE"},
	}
}

func TestGUIImpactAddSavesAndRedirects(t *testing.T) {
	s := newTestServer(t)
	m := s.maintenance(t, "MW-500", domain.MaintenanceConfirmed)

	rec := s.postForm(t, "/notices/impacts/add", s.impactForm(t, m, domain.CircuitType, s.circuit.ID))
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("expected 303, got %d: %s", rec.Code, rec.Body.String())
	}
	if loc := rec.Header().Get("Location"); loc != "/notices/maintenances/"+idString(m.ID) {
		t.Fatalf("unexpected redirect %q", loc)
	}

	again := s.postForm(t, "/notices/impacts/add", s.impactForm(t, m, domain.CircuitType, s.circuit.ID))
	if again.Code != http.StatusOK || !strings.Contains(again.Body.String(), "already exists") {
		t.Fatalf("duplicate impact should re-render the form with an error, got %d", again.Code)
	}
}

func TestGUIImpactAddRejectsCompletedEvent(t *testing.T) {
	s := newTestServer(t)
	m := s.maintenance(t, "MW-501", domain.MaintenanceCompleted)

	rec := s.postForm(t, "/notices/impacts/add", s.impactForm(t, m, domain.CircuitType, s.circuit.ID))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected form re-render, got %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "You cannot alter an impact once the event has completed.") {
		t.Fatalf("expected the locked event error in the form:\n%s", body)
	}
	if !strings.Contains(body, `<select id="target-object-select" name="target_object_id"`) || !strings.Contains(body, "TL-2001") {
		t.Fatalf("form should keep the chosen target picker")
	}
}

func TestGUIImpactAddRejectsTypeOutsideAllowList(t *testing.T) {
	s := newTestServer(t)
	m := s.maintenance(t, "MW-502", domain.MaintenanceConfirmed)

	rec := s.postForm(t, "/notices/impacts/add", s.impactForm(t, m, domain.DeviceType, 1))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected form re-render, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "is not allowed. Allowed types: circuits.circuit, dcim.site") {
		t.Fatalf("expected the allow-list error in the form")
	}
	impacts, err := s.svc.ImpactsForEvent(context.Background(), domain.MaintenanceType, m.ID)
	if err != nil {
		t.Fatalf("impacts: %v", err)
	}
	if len(impacts) != 0 {
		t.Fatalf("no impact should be stored, got %d", len(impacts))
	}
}

func (s testServer) picker(t *testing.T, endpoint, signals string) string {
	t.Helper()
	rec := s.do(t, http.MethodPost, endpoint, signals, map[string]string{
		"Authorization": "Bearer " + s.token,
		"Content-Type":  "application/json",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("%s: expected 200, got %d: %s", endpoint, rec.Code, rec.Body.String())
	}
	return rec.Body.String()
}

func TestPickersAnswerSignalsWithSelect(t *testing.T) {
	s := newTestServer(t)
	m := s.maintenance(t, "MW-600", domain.MaintenanceConfirmed)

	events := s.picker(t, "/notices/pickers/events", `{"eventType":"`+s.contentTypeID(t, domain.MaintenanceType)+`"}`)
	if !strings.HasPrefix(events, `<select id="event-object-select" name="event_object_id"`) {
		t.Fatalf("unexpected event picker %q", events)
	}
	if !strings.Contains(events, `<option value="`+idString(m.ID)+`">MW-600</option>`) {
		t.Fatalf("event picker should list the maintenance:\n%s", events)
	}

	targets := s.picker(t, "/notices/pickers/targets", `{"targetType":"`+s.contentTypeID(t, domain.CircuitType)+`"}`)
	if !strings.HasPrefix(targets, `<select id="target-object-select" name="target_object_id"`) {
		t.Fatalf("unexpected target picker %q", targets)
	}
	if !strings.Contains(targets, ">TL-2001</option>") {
		t.Fatalf("target picker should list the circuit:\n%s", targets)
	}
}

func TestPickersIgnoreTypesOutsideTheirSide(t *testing.T) {
	s := newTestServer(t)
	s.maintenance(t, "MW-601", domain.MaintenanceConfirmed)

	cases := []struct {
		endpoint string
		signals  string
	}{
		{"/notices/pickers/targets", `{"targetType":"` + s.contentTypeID(t, domain.DeviceType) + `"}`},
		{"/notices/pickers/targets", `{"targetType":"` + s.contentTypeID(t, domain.MaintenanceType) + `"}`},
		{"/notices/pickers/events", `{"eventType":"` + s.contentTypeID(t, domain.CircuitType) + `"}`},
		{"/notices/pickers/events", `{"eventType":"99999"}`},
		{"/notices/pickers/events", `{"eventType":""}`},
	}
	for _, tc := range cases {
		body := s.picker(t, tc.endpoint, tc.signals)
		if !strings.HasPrefix(body, "<select") {
			t.Fatalf("%s %s: expected a select, got %q", tc.endpoint, tc.signals, body)
		}
		if n := strings.Count(body, "<option"); n != 1 {
			t.Fatalf("%s %s: expected only the blank option, got %d options", tc.endpoint, tc.signals, n)
		}
	}
}

func TestPickerRejectsMalformedSignals(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodPost, "/notices/pickers/events", `{"eventType":`, map[string]string{
		"Authorization": "Bearer " + s.token,
		"Content-Type":  "application/json",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestRoutersRenderTimesInTheirOwnZone(t *testing.T) {
	utc := newTestServerIn(t, time.UTC)
	other := newTestServerIn(t, time.FixedZone("XST", 3*3600))
	utc.maintenance(t, "MW-700", domain.MaintenanceConfirmed)
	other.maintenance(t, "MW-701", domain.MaintenanceConfirmed)

	auth := map[string]string{"Authorization": "Bearer " + utc.token}
	body := utc.do(t, http.MethodGet, "/notices/maintenances", "", auth).Body.String()
	if !strings.Contains(body, " UTC</td>") || strings.Contains(body, "XST") {
		t.Fatalf("first router should render in UTC:\n%s", body)
	}
	auth = map[string]string{"Authorization": "Bearer " + other.token}
	body = other.do(t, http.MethodGet, "/notices/maintenances", "", auth).Body.String()
	if !strings.Contains(body, " XST</td>") {
		t.Fatalf("second router should render in XST:\n%s", body)
	}
}
