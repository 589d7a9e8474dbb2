package application

import (
	"context"
	"errors"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/atvirokodosprendimai/notices/internal/adapters/db/gormdb"
	"github.com/atvirokodosprendimai/notices/internal/domain"
)

var fixedNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

type fixture struct {
	svc      *Service
	repo     *gormdb.Repository
	provider domain.Provider
	circuit  domain.Circuit
	device   domain.Device
	actor    domain.Identity
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	ctx := context.Background()
	db, err := gormdb.Open(gormdb.DriverSQLite, filepath.Join(t.TempDir(), "svc.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := gormdb.RunMigrations(ctx, db, gormdb.DriverSQLite); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	repo := gormdb.NewRepository(db)

	allow, err := domain.NewAllowList([]string{"circuits.Circuit", "dcim.PowerFeed", "dcim.Site"})
	if err != nil {
		t.Fatalf("allow list: %v", err)
	}
	svc := NewService(repo, Options{
		Location:            time.UTC,
		AllowList:           allow,
		EventHistoryDays:    30,
		ICalPastDaysDefault: 30,
		BaseURL:             "https://notices.example.net",
	}, nil)
	svc.now = func() time.Time { return fixedNow }

	f := fixture{svc: svc, repo: repo, actor: domain.Identity{Anonymous: true}}
	f.provider, err = repo.CreateProvider(ctx, domain.Provider{Name: "Telia", Slug: "telia"})
	if err != nil {
		t.Fatalf("provider: %v", err)
	}
	f.circuit, err = repo.CreateCircuit(ctx, domain.Circuit{CID: "TL-1001", ProviderID: f.provider.ID})
	if err != nil {
		t.Fatalf("circuit: %v", err)
	}
	f.device, err = repo.CreateDevice(ctx, domain.Device{Name: "edge-1"})
	if err != nil {
		t.Fatalf("device: %v", err)
	}
	return f
}

func (f fixture) maintenance(t *testing.T, name string, start time.Time, status domain.MaintenanceStatus) domain.Maintenance {
	t.Helper()
	m, err := f.svc.CreateMaintenance(context.Background(), f.actor, domain.Maintenance{
		Event:  domain.Event{Name: name, Summary: "Planned work", ProviderID: f.provider.ID, Start: start},
		End:    start.Add(2 * time.Hour),
		Status: status,
	})
	if err != nil {
		t.Fatalf("create maintenance %s: %v", name, err)
	}
	return m
}

func (f fixture) circuitImpact(eventID uint) domain.Impact {
	return domain.Impact{
		EventType:      domain.ContentType{AppLabel: "notices", Model: "maintenance"},
		EventObjectID:  eventID,
		TargetType:     domain.ContentType{AppLabel: "circuits", Model: "circuit"},
		TargetObjectID: f.circuit.ID,
		Impact:         domain.ImpactOutage,
	}
}

func fieldErrors(t *testing.T, err error) map[string][]string {
	t.Helper()
	v, ok := domain.AsValidationError(err)
	if !ok {
		t.Fatalf("expected validation error, got %v", err)
	}
	return v.Fields
}

func TestCreateMaintenanceConvertsOriginalTimezone(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	created, err := f.svc.CreateMaintenance(ctx, f.actor, domain.Maintenance{
		Event: domain.Event{
			Name: "NY-1", Summary: "Router swap", ProviderID: f.provider.ID,
			Start:            time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC),
			OriginalTimezone: "America/New_York",
		},
		End:    time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
		Status: domain.MaintenanceConfirmed,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	wantStart := time.Date(2024, 1, 1, 15, 0, 0, 0, time.UTC)
	if !created.Start.Equal(wantStart) || !created.End.Equal(wantStart.Add(2*time.Hour)) {
		t.Fatalf("unexpected stored window %s - %s", created.Start, created.End)
	}

	edit := created
	edit.OriginalTimezone = "Europe/Vilnius"
	updated, err := f.svc.UpdateMaintenance(ctx, f.actor, edit)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if !updated.Start.Equal(wantStart) {
		t.Fatalf("update must not shift start, got %s", updated.Start)
	}
	if updated.OriginalTimezone != "Europe/Vilnius" {
		t.Fatalf("timezone not saved: %q", updated.OriginalTimezone)
	}
}

func TestCreateMaintenanceUnknownTimezoneKeepsValues(t *testing.T) {
	f := newFixture(t)
	start := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	created, err := f.svc.CreateMaintenance(context.Background(), f.actor, domain.Maintenance{
		Event:  domain.Event{Name: "X", Summary: "Y", ProviderID: f.provider.ID, Start: start, OriginalTimezone: "Mars/Olympus"},
		End:    start.Add(time.Hour),
		Status: domain.MaintenanceTentative,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !created.Start.Equal(start) {
		t.Fatalf("expected unconverted start, got %s", created.Start)
	}
}

func TestOutageValidation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	start := fixedNow.Add(-time.Hour)

	_, err := f.svc.CreateOutage(ctx, f.actor, domain.Outage{
		Event:  domain.Event{Name: "OUT-1", Summary: "Fiber cut", ProviderID: f.provider.ID, Start: start},
		Status: domain.OutageResolved,
	})
	if got := fieldErrors(t, err)["end"]; len(got) != 1 || got[0] != "End time is required when marking outage as resolved" {
		t.Fatalf("unexpected end errors: %v", got)
	}

	_, err = f.svc.CreateOutage(ctx, f.actor, domain.Outage{
		Event:  domain.Event{Name: "OUT-2", Summary: "Fiber cut", ProviderID: 9999, Start: start},
		Status: domain.OutageReported,
	})
	if _, ok := fieldErrors(t, err)["provider"]; !ok {
		t.Fatalf("expected provider error, got %v", err)
	}

	end := fixedNow
	out, err := f.svc.CreateOutage(ctx, f.actor, domain.Outage{
		Event:  domain.Event{Name: "OUT-3", Summary: "Fiber cut", ProviderID: f.provider.ID, Start: start},
		End:    &end,
		Status: domain.OutageStatus("resolved"),
	})
	if err != nil {
		t.Fatalf("create resolved outage: %v", err)
	}
	if out.Status != domain.OutageResolved || out.End == nil || !out.End.Equal(end) {
		t.Fatalf("unexpected outage %+v", out)
	}
}

func TestImpactRules(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	mnt := f.maintenance(t, "MNT-1", fixedNow.Add(24*time.Hour), domain.MaintenanceConfirmed)

	created, err := f.svc.CreateImpact(ctx, f.actor, f.circuitImpact(mnt.ID))
	if err != nil {
		t.Fatalf("create impact: %v", err)
	}
	if created.TargetDisplay != "TL-1001" {
		t.Fatalf("unexpected target display %q", created.TargetDisplay)
	}

	_, err = f.svc.CreateImpact(ctx, f.actor, f.circuitImpact(mnt.ID))
	if got := fieldErrors(t, err)[domain.NonFieldErrors]; len(got) != 1 || got[0] != msgImpactExists {
		t.Fatalf("expected duplicate error, got %v", err)
	}

	deviceImpact := f.circuitImpact(mnt.ID)
	deviceImpact.TargetType = domain.ContentType{AppLabel: "dcim", Model: "device"}
	deviceImpact.TargetObjectID = f.device.ID
	_, err = f.svc.CreateImpact(ctx, f.actor, deviceImpact)
	want := "Content type 'dcim.device' is not allowed. Allowed types: circuits.Circuit, dcim.PowerFeed, dcim.Site"
	if got := fieldErrors(t, err)["target_content_type"]; len(got) != 1 || got[0] != want {
		t.Fatalf("unexpected allow-list error: %v", got)
	}

	notEvent := f.circuitImpact(mnt.ID)
	notEvent.EventType = domain.ContentType{AppLabel: "circuits", Model: "provider"}
	_, err = f.svc.CreateImpact(ctx, f.actor, notEvent)
	if got := fieldErrors(t, err)["event_content_type"]; len(got) != 1 || got[0] != msgEventType {
		t.Fatalf("unexpected event type error: %v", got)
	}

	missing := f.circuitImpact(mnt.ID)
	missing.TargetObjectID = 4242
	_, err = f.svc.CreateImpact(ctx, f.actor, missing)
	if _, ok := fieldErrors(t, err)["target_object_id"]; !ok {
		t.Fatalf("expected missing target error, got %v", err)
	}

	mnt.Status = domain.MaintenanceCompleted
	if _, err := f.svc.UpdateMaintenance(ctx, f.actor, mnt); err != nil {
		t.Fatalf("complete maintenance: %v", err)
	}
	created.Impact = domain.ImpactDegraded
	_, err = f.svc.UpdateImpact(ctx, f.actor, created)
	if got := fieldErrors(t, err)[domain.NonFieldErrors]; len(got) != 1 || got[0] != msgImpactLocked {
		t.Fatalf("expected lock error, got %v", err)
	}
	if err := f.svc.DeleteImpact(ctx, f.actor, created.ID); err != nil {
		t.Fatalf("delete after completion: %v", err)
	}
}

func TestTimelineIncludesImpactChanges(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	mnt := f.maintenance(t, "MNT-T", fixedNow.Add(time.Hour), domain.MaintenanceTentative)

	if _, err := f.svc.CreateImpact(ctx, f.actor, f.circuitImpact(mnt.ID)); err != nil {
		t.Fatalf("create impact: %v", err)
	}
	mnt.Status = domain.MaintenanceConfirmed
	if _, err := f.svc.UpdateMaintenance(ctx, f.actor, mnt); err != nil {
		t.Fatalf("update: %v", err)
	}

	items, err := f.svc.Timeline(ctx, domain.MaintenanceType, mnt.ID, 0)
	if err != nil {
		t.Fatalf("timeline: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("expected 3 timeline items, got %d", len(items))
	}
	categories := map[string]bool{}
	for _, it := range items {
		categories[it.Category] = true
		if it.Category == domain.TimelineStatus && it.Title != "Status changed from TENTATIVE to CONFIRMED" {
			t.Fatalf("unexpected status title %q", it.Title)
		}
		if it.Category == domain.TimelineImpact && !strings.HasPrefix(it.Title, "Impact added: ") {
			t.Fatalf("unexpected impact title %q", it.Title)
		}
	}
	for _, c := range []string{domain.TimelineCreated, domain.TimelineImpact, domain.TimelineStatus} {
		if !categories[c] {
			t.Fatalf("missing %s entry in %+v", c, items)
		}
	}
}

func TestImpactsForTargetHistoryWindow(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	recent := f.maintenance(t, "RECENT", fixedNow.Add(-48*time.Hour), domain.MaintenanceConfirmed)
	old := f.maintenance(t, "OLD", fixedNow.AddDate(0, 0, -90), domain.MaintenanceConfirmed)
	oldDone := f.maintenance(t, "OLD-DONE", fixedNow.AddDate(0, 0, -60), domain.MaintenanceConfirmed)
	for _, m := range []domain.Maintenance{recent, old, oldDone} {
		if _, err := f.svc.CreateImpact(ctx, f.actor, f.circuitImpact(m.ID)); err != nil {
			t.Fatalf("impact for %s: %v", m.Name, err)
		}
	}
	oldDone.Status = domain.MaintenanceCompleted
	if _, err := f.svc.UpdateMaintenance(ctx, f.actor, oldDone); err != nil {
		t.Fatalf("complete: %v", err)
	}

	rows, err := f.svc.ImpactsForTarget(ctx, domain.CircuitType, f.circuit.ID)
	if err != nil {
		t.Fatalf("impacts for target: %v", err)
	}
	if len(rows) != 2 || rows[0].EventDisplay != "RECENT" || rows[1].EventDisplay != "OLD" {
		t.Fatalf("unexpected rows %+v", rows)
	}
}

func TestParseICalParams(t *testing.T) {
	tests := []struct {
		name     string
		query    string
		pastDays int
		provider string
		hasID    bool
	}{
		{name: "default", query: "", pastDays: 30},
		{name: "explicit", query: "past_days=7", pastDays: 7},
		{name: "zero", query: "past_days=0", pastDays: 0},
		{name: "too large", query: "past_days=400", pastDays: 30},
		{name: "negative", query: "past_days=-3", pastDays: 30},
		{name: "not a number", query: "past_days=abc", pastDays: 30},
		{name: "slug wins", query: "provider=telia&provider_id=7", pastDays: 30, provider: "telia"},
		{name: "id only", query: "provider_id=7", pastDays: 30, hasID: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := url.ParseQuery(tt.query)
			if err != nil {
				t.Fatal(err)
			}
			p := ParseICalParams(q, 30)
			if p.PastDays != tt.pastDays {
				t.Fatalf("past_days = %d, want %d", p.PastDays, tt.pastDays)
			}
			if p.Provider != tt.provider || p.hasProviderID != tt.hasID {
				t.Fatalf("unexpected provider selection %+v", p)
			}
		})
	}
}

func TestICalFeed(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	confirmed := f.maintenance(t, "MNT-C", fixedNow.Add(24*time.Hour), domain.MaintenanceConfirmed)
	f.maintenance(t, "MNT-T", fixedNow.Add(48*time.Hour), domain.MaintenanceTentative)
	f.maintenance(t, "MNT-OLD", fixedNow.AddDate(0, 0, -45), domain.MaintenanceConfirmed)
	if _, err := f.svc.CreateImpact(ctx, f.actor, f.circuitImpact(confirmed.ID)); err != nil {
		t.Fatalf("impact: %v", err)
	}

	params := ParseICalParams(url.Values{"status": {"bogus,confirmed"}}, 30)
	feed, err := f.svc.ICalFeed(ctx, params)
	if err != nil {
		t.Fatalf("feed: %v", err)
	}
	if feed.Count != 1 || len(feed.Maintenances) != 1 || feed.Maintenances[0].ID != confirmed.ID {
		t.Fatalf("expected only the confirmed maintenance, got %+v", feed.Maintenances)
	}
	if len(feed.Impacts[confirmed.ID]) != 1 {
		t.Fatalf("expected impact to be loaded: %+v", feed.Impacts)
	}

	again, err := f.svc.ICalFeed(ctx, params)
	if err != nil {
		t.Fatalf("feed again: %v", err)
	}
	if again.ETag != feed.ETag || !strings.HasPrefix(feed.ETag, `"`) {
		t.Fatalf("etag not stable: %s vs %s", feed.ETag, again.ETag)
	}

	all, err := f.svc.ICalFeed(ctx, ParseICalParams(url.Values{"status": {"bogus"}}, 30))
	if err != nil {
		t.Fatalf("feed all: %v", err)
	}
	if all.Count != 2 {
		t.Fatalf("no valid status must not filter, got %d rows", all.Count)
	}
	if all.ETag == feed.ETag {
		t.Fatalf("different parameters must change the etag")
	}

	body := f.svc.RenderICal(feed)
	for _, want := range []string{"BEGIN:VCALENDAR", "UID:" + ICalUID(confirmed.ID), "STATUS:CONFIRMED", "notices/maintenances/"} {
		if !strings.Contains(body, want) {
			t.Fatalf("calendar missing %q:\n%s", want, body)
		}
	}

	var perr *ParamError
	_, err = f.svc.ICalFeed(ctx, ParseICalParams(url.Values{"provider": {"nope"}}, 30))
	if !errors.As(err, &perr) || perr.Msg != "Provider not found: nope" {
		t.Fatalf("unexpected error for unknown slug: %v", err)
	}
	_, err = f.svc.ICalFeed(ctx, ParseICalParams(url.Values{"provider_id": {"x1"}}, 30))
	if !errors.As(err, &perr) || perr.Msg != "Invalid provider_id: x1" {
		t.Fatalf("unexpected error for bad id: %v", err)
	}
}

func TestParseEmailMultipart(t *testing.T) {
	raw := strings.Join([]string{
		"From: Telia NOC <noc@telia.example>",
		"To: ops@example.net",
		"Subject: =?UTF-8?Q?Planned_maintenance_=E2=80=93_TL-1001?=",
		"Date: Tue, 10 Mar 2026 08:30:00 +0100",
		"MIME-Version: 1.0",
		`Content-Type: multipart/alternative; boundary="b1"`,
		"",
		"--b1",
		"Content-Type: text/html; charset=utf-8",
		"",
		"<p>html body</p>",
		"--b1",
		"Content-Type: text/plain; charset=utf-8",
		"Content-Transfer-Encoding: quoted-printable",
		"",
		"Work on circuit TL-1001 =3D 2h window.",
		"--b1--",
		"",
	}, "\r\n")

	n, err := ParseEmail([]byte(raw))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if n.Subject != "Planned maintenance – TL-1001" {
		t.Fatalf("subject = %q", n.Subject)
	}
	if n.EmailFrom != "noc@telia.example" {
		t.Fatalf("from = %q", n.EmailFrom)
	}
	if !n.EmailReceived.Equal(time.Date(2026, 3, 10, 7, 30, 0, 0, time.UTC)) {
		t.Fatalf("received = %s", n.EmailReceived)
	}
	if n.EmailBody != "Work on circuit TL-1001 = 2h window." {
		t.Fatalf("body = %q", n.EmailBody)
	}
}

func TestImportNotificationAttachesToEvent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	mnt := f.maintenance(t, "MNT-N", fixedNow.Add(time.Hour), domain.MaintenanceConfirmed)

	raw := "From: noc@telia.example\r\nSubject: " + strings.Repeat("x", 150) + "\r\n\r\nbody text\r\n"
	n, err := f.svc.ImportNotification(ctx, f.actor, domain.MaintenanceType, mnt.ID, []byte(raw))
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if len(n.Subject) != 100 || !n.EmailReceived.Equal(fixedNow) || n.EventDisplay != "MNT-N" {
		t.Fatalf("unexpected notification %+v", n)
	}

	_, err = f.svc.ImportNotification(ctx, f.actor, domain.MaintenanceType, 9999, []byte(raw))
	if _, ok := fieldErrors(t, err)["event_object_id"]; !ok {
		t.Fatalf("expected missing event error, got %v", err)
	}
}

func TestUpdatesWithoutCustomFieldsKeepStoredValues(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	fields := map[string]any{"vendor_ref": "CHG-77"}

	m, err := f.svc.CreateMaintenance(ctx, f.actor, domain.Maintenance{
		Event:  domain.Event{Name: "CF-1", Summary: "Splice", ProviderID: f.provider.ID, Start: fixedNow, CustomFields: fields},
		End:    fixedNow.Add(time.Hour),
		Status: domain.MaintenanceConfirmed,
	})
	if err != nil {
		t.Fatalf("create maintenance: %v", err)
	}
	m.CustomFields = nil
	m.Summary = "Splice and test"
	m, err = f.svc.UpdateMaintenance(ctx, f.actor, m)
	if err != nil {
		t.Fatalf("update maintenance: %v", err)
	}
	if m.CustomFields["vendor_ref"] != "CHG-77" {
		t.Fatalf("maintenance custom fields lost: %v", m.CustomFields)
	}

	o, err := f.svc.CreateOutage(ctx, f.actor, domain.Outage{
		Event:  domain.Event{Name: "CF-2", Summary: "Cut", ProviderID: f.provider.ID, Start: fixedNow, CustomFields: fields},
		Status: domain.OutageReported,
	})
	if err != nil {
		t.Fatalf("create outage: %v", err)
	}
	o.CustomFields = nil
	o, err = f.svc.UpdateOutage(ctx, f.actor, o)
	if err != nil {
		t.Fatalf("update outage: %v", err)
	}
	if o.CustomFields["vendor_ref"] != "CHG-77" {
		t.Fatalf("outage custom fields lost: %v", o.CustomFields)
	}

	in := f.circuitImpact(m.ID)
	in.CustomFields = fields
	imp, err := f.svc.CreateImpact(ctx, f.actor, in)
	if err != nil {
		t.Fatalf("create impact: %v", err)
	}
	imp.CustomFields = nil
	imp.Impact = domain.ImpactDegraded
	imp, err = f.svc.UpdateImpact(ctx, f.actor, imp)
	if err != nil {
		t.Fatalf("update impact: %v", err)
	}
	if imp.CustomFields["vendor_ref"] != "CHG-77" {
		t.Fatalf("impact custom fields lost: %v", imp.CustomFields)
	}

	m.CustomFields = map[string]any{}
	m, err = f.svc.UpdateMaintenance(ctx, f.actor, m)
	if err != nil {
		t.Fatalf("clear custom fields: %v", err)
	}
	if len(m.CustomFields) != 0 {
		t.Fatalf("an explicit empty map should clear custom fields, got %v", m.CustomFields)
	}
}
