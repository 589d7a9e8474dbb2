package gormdb

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/atvirokodosprendimai/notices/internal/domain"
)

func openTestRepo(t *testing.T) *Repository {
	t.Helper()
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "notices_test.db")

	db, err := Open(DriverSQLite, dbPath)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := RunMigrations(ctx, db, DriverSQLite); err != nil {
		t.Fatalf("run migrations: %v", err)
	}
	return NewRepository(db)
}

func TestImpactUniquenessAndEventCascade(t *testing.T) {
	ctx := context.Background()
	repo := openTestRepo(t)

	provider, err := repo.CreateProvider(ctx, domain.Provider{Name: "Telia", Slug: "telia"})
	if err != nil {
		t.Fatalf("create provider: %v", err)
	}
	circuit, err := repo.CreateCircuit(ctx, domain.Circuit{CID: "TL-1001", ProviderID: provider.ID})
	if err != nil {
		t.Fatalf("create circuit: %v", err)
	}

	start := time.Date(2026, 3, 1, 22, 0, 0, 0, time.UTC)
	mnt, err := repo.CreateMaintenance(ctx, domain.Maintenance{
		Event:  domain.Event{Name: "MNT-1", Summary: "Fiber work", ProviderID: provider.ID, Start: start},
		End:    start.Add(4 * time.Hour),
		Status: domain.MaintenanceConfirmed,
	})
	if err != nil {
		t.Fatalf("create maintenance: %v", err)
	}
	if mnt.Provider.Slug != "telia" {
		t.Fatalf("expected provider to be loaded, got %+v", mnt.Provider)
	}

	mntType, err := repo.GetContentType(ctx, domain.MaintenanceType)
	if err != nil {
		t.Fatalf("maintenance content type: %v", err)
	}
	circuitType, err := repo.GetContentType(ctx, domain.CircuitType)
	if err != nil {
		t.Fatalf("circuit content type: %v", err)
	}

	impact := domain.Impact{EventType: mntType, EventObjectID: mnt.ID, TargetType: circuitType, TargetObjectID: circuit.ID, Impact: domain.ImpactOutage}
	created, err := repo.CreateImpact(ctx, impact)
	if err != nil {
		t.Fatalf("create impact: %v", err)
	}
	if created.TargetDisplay != "TL-1001" || created.EventDisplay != "MNT-1" || created.EventStatus != "CONFIRMED" {
		t.Fatalf("unexpected impact description: %+v", created)
	}

	exists, err := repo.ImpactExists(ctx, impact)
	if err != nil || !exists {
		t.Fatalf("expected duplicate to be detected, exists=%v err=%v", exists, err)
	}
	exists, err = repo.ImpactExists(ctx, created)
	if err != nil || exists {
		t.Fatalf("impact must not collide with itself, exists=%v err=%v", exists, err)
	}
	if _, err := repo.CreateImpact(ctx, impact); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected conflict on duplicate impact, got %v", err)
	}

	got, err := repo.GetMaintenance(ctx, mnt.ID)
	if err != nil {
		t.Fatalf("get maintenance: %v", err)
	}
	if got.ImpactCount != 1 {
		t.Fatalf("expected impact count 1, got %d", got.ImpactCount)
	}

	if _, err := repo.CreateNotification(ctx, domain.EventNotification{
		EventType: mntType, EventObjectID: mnt.ID, Subject: "Planned work", EmailFrom: "noc@telia.example",
		EmailBody: "body", EmailReceived: start.Add(-48 * time.Hour),
	}); err != nil {
		t.Fatalf("create notification: %v", err)
	}

	if err := repo.DeleteMaintenance(ctx, mnt.ID); err != nil {
		t.Fatalf("delete maintenance: %v", err)
	}
	impacts, total, err := repo.ListImpacts(ctx, domain.ImpactFilter{EventTypeID: &mntType.ID, EventIDs: []uint{mnt.ID}})
	if err != nil {
		t.Fatalf("list impacts: %v", err)
	}
	if total != 0 || len(impacts) != 0 {
		t.Fatalf("expected impacts to be removed with the event, got %d", total)
	}
	_, total, err = repo.ListNotifications(ctx, domain.NotificationFilter{EventTypeID: &mntType.ID, EventIDs: []uint{mnt.ID}})
	if err != nil {
		t.Fatalf("list notifications: %v", err)
	}
	if total != 0 {
		t.Fatalf("expected notifications to be removed with the event, got %d", total)
	}
	if err := repo.DeleteMaintenance(ctx, mnt.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found on second delete, got %v", err)
	}
}

func TestListMaintenancesFilters(t *testing.T) {
	ctx := context.Background()
	repo := openTestRepo(t)

	telia, _ := repo.CreateProvider(ctx, domain.Provider{Name: "Telia", Slug: "telia"})
	cogent, _ := repo.CreateProvider(ctx, domain.Provider{Name: "Cogent", Slug: "cogent"})

	base := time.Date(2026, 5, 10, 8, 0, 0, 0, time.UTC)
	mk := func(name string, providerID uint, status domain.MaintenanceStatus, offset time.Duration) {
		t.Helper()
		_, err := repo.CreateMaintenance(ctx, domain.Maintenance{
			Event:  domain.Event{Name: name, Summary: name + " summary", ProviderID: providerID, Start: base.Add(offset)},
			End:    base.Add(offset + 2*time.Hour),
			Status: status,
		})
		if err != nil {
			t.Fatalf("create %s: %v", name, err)
		}
	}
	mk("TEL-1", telia.ID, domain.MaintenanceConfirmed, 0)
	mk("TEL-2", telia.ID, domain.MaintenanceCompleted, -72*time.Hour)
	mk("COG-1", cogent.ID, domain.MaintenanceTentative, 24*time.Hour)

	rows, total, err := repo.ListMaintenances(ctx, domain.EventFilter{ProviderSlugs: []string{"telia"}})
	if err != nil {
		t.Fatalf("list by slug: %v", err)
	}
	if total != 2 || len(rows) != 2 {
		t.Fatalf("expected 2 telia maintenances, got %d", total)
	}

	rows, _, err = repo.ListMaintenances(ctx, domain.EventFilter{OpenOnly: true, OrderBy: "start"})
	if err != nil {
		t.Fatalf("list open: %v", err)
	}
	if len(rows) != 2 || rows[0].Name != "TEL-1" || rows[1].Name != "COG-1" {
		t.Fatalf("unexpected open maintenances: %+v", rows)
	}

	after := base.Add(12 * time.Hour)
	rows, _, err = repo.ListMaintenances(ctx, domain.EventFilter{EndAfter: &after})
	if err != nil {
		t.Fatalf("list by end: %v", err)
	}
	if len(rows) != 1 || rows[0].Name != "COG-1" {
		t.Fatalf("expected only COG-1 to end after %s, got %+v", after, rows)
	}

	rows, total, err = repo.ListMaintenances(ctx, domain.EventFilter{Query: "tel", Limit: 1})
	if err != nil {
		t.Fatalf("list query: %v", err)
	}
	if total != 2 || len(rows) != 1 {
		t.Fatalf("expected total 2 with a single row page, got total=%d rows=%d", total, len(rows))
	}
}

func TestObjectChangesIncludeRelatedRows(t *testing.T) {
	ctx := context.Background()
	repo := openTestRepo(t)

	mntID := uint(7)
	impactID := uint(3)
	changes := []domain.ObjectChange{
		{Action: domain.ChangeActionCreate, ChangedObjectType: "notices.maintenance", ChangedObjectID: mntID, ObjectRepr: "MNT-7",
			PostchangeData: map[string]any{"status": "TENTATIVE"}, Time: time.Now().Add(-time.Hour)},
		{Action: domain.ChangeActionCreate, ChangedObjectType: "notices.impact", ChangedObjectID: impactID, ObjectRepr: "MNT-7 - TL-1",
			RelatedObjectType: "notices.maintenance", RelatedObjectID: &mntID, Time: time.Now()},
		{Action: domain.ChangeActionCreate, ChangedObjectType: "notices.maintenance", ChangedObjectID: 8, ObjectRepr: "MNT-8", Time: time.Now()},
	}
	for _, c := range changes {
		if err := repo.CreateObjectChange(ctx, c); err != nil {
			t.Fatalf("create change: %v", err)
		}
	}

	rows, total, err := repo.ListObjectChanges(ctx, domain.ObjectChangeFilter{ObjectType: "notices.maintenance", ObjectID: &mntID, WithRelated: true})
	if err != nil {
		t.Fatalf("list changes: %v", err)
	}
	if total != 2 {
		t.Fatalf("expected own and related change, got %d", total)
	}
	if rows[0].ChangedObjectType != "notices.impact" {
		t.Fatalf("expected newest change first, got %+v", rows[0])
	}
	if rows[1].PostchangeData["status"] != "TENTATIVE" {
		t.Fatalf("expected snapshot to round trip, got %+v", rows[1].PostchangeData)
	}

	_, total, err = repo.ListObjectChanges(ctx, domain.ObjectChangeFilter{ObjectType: "notices.maintenance", ObjectID: &mntID})
	if err != nil {
		t.Fatalf("list own changes: %v", err)
	}
	if total != 1 {
		t.Fatalf("expected only own change, got %d", total)
	}
}
