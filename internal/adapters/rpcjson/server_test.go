package rpcjson

import (
	"bufio"
	"context"
	"encoding/json"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/atvirokodosprendimai/notices/internal/adapters/db/gormdb"
	"github.com/atvirokodosprendimai/notices/internal/application"
	"github.com/atvirokodosprendimai/notices/internal/domain"
)

type rpcClient struct {
	conn net.Conn
	r    *bufio.Reader
	next int
}

func (c *rpcClient) call(t *testing.T, method string, params any) response {
	t.Helper()
	c.next++
	raw, err := json.Marshal(params)
	if err != nil {
		t.Fatalf("marshal params: %v", err)
	}
	if err := json.NewEncoder(c.conn).Encode(request{JSONRPC: "2.0", Method: method, Params: raw, ID: c.next}); err != nil {
		t.Fatalf("send: %v", err)
	}
	line, err := c.r.ReadBytes('\n')
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var resp response
	if err := json.Unmarshal(line, &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return resp
}

func startServer(t *testing.T) (*rpcClient, *application.Service) {
	t.Helper()
	ctx := context.Background()
	db, err := gormdb.Open(gormdb.DriverSQLite, filepath.Join(t.TempDir(), "rpc.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := gormdb.RunMigrations(ctx, db, gormdb.DriverSQLite); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	repo := gormdb.NewRepository(db)
	svc := application.NewService(repo, application.Options{Location: time.UTC, BaseURL: "https://notices.example.net"}, nil)
	if err := svc.BootstrapAdmin(ctx, "ops@example.net", "s3cret-pass"); err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	provider, err := repo.CreateProvider(ctx, domain.Provider{Name: "Cogent", Slug: "cogent"})
	if err != nil {
		t.Fatalf("provider: %v", err)
	}
	start := time.Now().UTC().Add(48 * time.Hour).Truncate(time.Minute)
	if _, err := svc.CreateMaintenance(ctx, domain.Identity{Anonymous: true}, domain.Maintenance{
		Event:  domain.Event{Name: "CGNT-1", Summary: "Line card swap", ProviderID: provider.ID, Start: start},
		End:    start.Add(time.Hour),
		Status: domain.MaintenanceConfirmed,
	}); err != nil {
		t.Fatalf("maintenance: %v", err)
	}

	// Unix socket paths are length-limited, so avoid the long test temp dir.
	dir, err := os.MkdirTemp("", "notices-rpc")
	if err != nil {
		t.Fatalf("temp dir: %v", err)
	}
	t.Cleanup(func() { _ = os.RemoveAll(dir) })
	srv, err := Start(filepath.Join(dir, "rpc.sock"), svc, "TOKEN", nil)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	t.Cleanup(func() { _ = srv.Close() })

	conn, err := net.Dial("unix", filepath.Join(dir, "rpc.sock"))
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return &rpcClient{conn: conn, r: bufio.NewReader(conn)}, svc
}

func TestLoginAndListMaintenances(t *testing.T) {
	c, _ := startServer(t)

	login := c.call(t, "auth.login", map[string]string{"email": "ops@example.net", "password": "s3cret-pass"})
	if login.Error != nil {
		t.Fatalf("login failed: %+v", login.Error)
	}
	token, _ := login.Result.(map[string]any)["token"].(string)
	if token == "" {
		t.Fatalf("expected a token in %+v", login.Result)
	}

	list := c.call(t, "maintenances.list", map[string]any{"token": token, "upcoming": true})
	if list.Error != nil {
		t.Fatalf("list failed: %+v", list.Error)
	}
	page := list.Result.(map[string]any)
	if page["count"].(float64) != 1 {
		t.Fatalf("expected one maintenance, got %v", page["count"])
	}

	feed := c.call(t, "ical.url", map[string]any{"token": token})
	if feed.Error != nil {
		t.Fatalf("ical.url failed: %+v", feed.Error)
	}
	if got := feed.Result.(map[string]any)["url"]; got != "https://notices.example.net/notices/ical/maintenances.ics?token=TOKEN" {
		t.Fatalf("unexpected feed url %v", got)
	}
}

func TestRejectsBadTokenAndUnknownMethod(t *testing.T) {
	c, _ := startServer(t)

	resp := c.call(t, "maintenances.list", map[string]any{"token": "nope"})
	if resp.Error == nil || resp.Error.Code != 40100 {
		t.Fatalf("expected unauthorized, got %+v", resp.Error)
	}
	resp = c.call(t, "graph.explode", map[string]any{})
	if resp.Error == nil || resp.Error.Code != -32601 {
		t.Fatalf("expected method not found, got %+v", resp.Error)
	}
}

func TestImportNotificationValidatesEvent(t *testing.T) {
	c, _ := startServer(t)
	login := c.call(t, "auth.login", map[string]string{"email": "ops@example.net", "password": "s3cret-pass"})
	token := login.Result.(map[string]any)["token"].(string)

	raw := []byte("From: noc@cogent.example\r\nSubject: Scheduled work\r\nDate: Mon, 02 Mar 2026 10:00:00 +0000\r\n\r\nWork details.\r\n")
	resp := c.call(t, "notifications.import", map[string]any{"token": token, "event_type": "notices.maintenance", "event_id": 999, "email": raw})
	if resp.Error == nil || resp.Error.Code != 40000 {
		t.Fatalf("expected validation error for a missing event, got %+v", resp.Error)
	}
	if len(resp.Error.Fields["event_object_id"]) == 0 {
		t.Fatalf("expected event_object_id error, got %v", resp.Error.Fields)
	}

	resp = c.call(t, "notifications.import", map[string]any{"token": token, "event_id": 1, "email": raw})
	if resp.Error != nil {
		t.Fatalf("import failed: %+v", resp.Error)
	}
	if got := resp.Result.(map[string]any)["subject"]; got != "Scheduled work" {
		t.Fatalf("unexpected subject %v", got)
	}
}
