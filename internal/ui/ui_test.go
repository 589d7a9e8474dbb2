package ui

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/a-h/templ"

	"github.com/atvirokodosprendimai/notices/internal/domain"
)

func render(t *testing.T, c templ.Component) string {
	t.Helper()
	var b strings.Builder
	if err := c.Render(context.Background(), &b); err != nil {
		t.Fatalf("render: %v", err)
	}
	return b.String()
}

func TestMaintenanceListEscapesUserText(t *testing.T) {
	m := domain.Maintenance{
		Event: domain.Event{
			ID:       4,
			Name:     `<script>alert(1)</script>`,
			Summary:  `"quoted" & <b>bold</b>`,
			Provider: domain.Provider{ID: 2, Name: `<img src=x onerror=alert(1)>`},
			Start:    time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
		},
		End:    time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Status: domain.MaintenanceConfirmed,
	}
	out := render(t, MaintenanceListPage(PageData{Title: "<List>"}, EventList{Q: `"><script>`, Maintenances: []domain.Maintenance{m}}))

	for _, raw := range []string{"<script>", "<img", "<b>bold</b>", "<List>"} {
		if strings.Contains(out, raw) {
			t.Fatalf("output contains unescaped %q", raw)
		}
	}
	for _, want := range []string{"&lt;script&gt;alert(1)&lt;/script&gt;", "&#34;quoted&#34; &amp;", `value="&#34;&gt;&lt;script&gt;"`} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q", want)
		}
	}
}

func TestLinksDropUnsafeSchemes(t *testing.T) {
	out := render(t, HostDetailPage(PageData{}, HostDetail{
		Title:  "Circuit",
		Fields: []HostField{{Label: "Provider", Value: "Telia", Href: "javascript:alert(1)"}},
	}))
	if strings.Contains(out, "javascript:") {
		t.Fatalf("javascript URL was rendered:\n%s", out)
	}
	if !strings.Contains(out, string(templ.FailedSanitizationURL)) {
		t.Fatalf("expected the sanitized placeholder URL")
	}
}

func TestImpactFormSignalsAreJSON(t *testing.T) {
	out := render(t, ImpactFormPage(PageData{}, ImpactForm{
		Action: "/notices/impacts/add",
		Values: ImpactFormValues{EventTypeID: `1', x: alert(1), y: '`, TargetTypeID: "7"},
	}))
	want := `data-signals="{&#34;eventType&#34;:&#34;1&#39;, x: alert(1), y: &#39;&#34;,&#34;targetType&#34;:&#34;7&#34;}"`
	if !strings.Contains(out, want) {
		t.Fatalf("signals not JSON encoded:\n%s", out)
	}
	if !strings.Contains(out, `data-on:change="@post(&#39;/notices/pickers/targets&#39;)"`) {
		t.Fatalf("target type select should post to the picker endpoint")
	}
}

func TestPickerOptionsMarksSelection(t *testing.T) {
	out := render(t, PickerOptions(Picker{
		ID:       "target-object-select",
		Name:     "target_object_id",
		Selected: "2",
		Options: []domain.ObjectRef{
			{ID: 1, Display: "TL-1"},
			{ID: 2, Display: "TL-2 <core>"},
		},
	}))
	want := `<select id="target-object-select" name="target_object_id" class="form-select">` +
		`<option value="">---------</option><option value="1">TL-1</option>` +
		`<option value="2" selected>TL-2 &lt;core&gt;</option></select>`
	if out != want {
		t.Fatalf("got %s\nwant %s", out, want)
	}
}

func TestPagesUseTheirOwnLocation(t *testing.T) {
	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	m := domain.Maintenance{Event: domain.Event{ID: 1, Name: "MW", Start: start}, End: start.Add(time.Hour)}
	east := PageData{Location: time.FixedZone("EST3", 3*3600)}

	out := render(t, SchedulePage(east, []ScheduleDay{{Label: "Sunday", Maintenances: []domain.Maintenance{m}}}))
	if !strings.Contains(out, "2026-03-01 13:00 EST3") {
		t.Fatalf("expected start in the page location:\n%s", out)
	}
	out = render(t, SchedulePage(PageData{}, []ScheduleDay{{Label: "Sunday", Maintenances: []domain.Maintenance{m}}}))
	if !strings.Contains(out, "2026-03-01 10:00 UTC") {
		t.Fatalf("nil location should render UTC:\n%s", out)
	}
}

func TestFormatAndInputTime(t *testing.T) {
	loc := time.FixedZone("P2", 2*3600)
	at := time.Date(2026, 1, 2, 3, 4, 0, 0, time.UTC)
	if got := FormatTime(loc, at); got != "2026-01-02 05:04 P2" {
		t.Fatalf("FormatTime = %q", got)
	}
	if got := InputTime(loc, at); got != "2026-01-02T05:04" {
		t.Fatalf("InputTime = %q", got)
	}
	if FormatTime(loc, time.Time{}) != "-" || InputTime(loc, time.Time{}) != "" {
		t.Fatalf("zero times should render as placeholders")
	}
}

func TestNavigationFollowsPermissions(t *testing.T) {
	can := func(p string) bool { return p == domain.Permission("add", domain.OutageType) }
	out := render(t, MaintenanceListPage(PageData{Can: can, UserEmail: "ops@example.net"}, EventList{}))
	if !strings.Contains(out, `href="/notices/outages/add"`) {
		t.Fatalf("outage add link missing")
	}
	if strings.Contains(out, `href="/notices/maintenances/add"`) {
		t.Fatalf("maintenance add link shown without permission")
	}
	if !strings.Contains(out, "ops@example.net") {
		t.Fatalf("user email missing")
	}

	anon := render(t, LoginPage("Bad <password>", "/next?a=1&b=2"))
	if strings.Contains(anon, "<nav") {
		t.Fatalf("login page should not show navigation")
	}
	if !strings.Contains(anon, "Bad &lt;password&gt;") || !strings.Contains(anon, `value="/next?a=1&amp;b=2"`) {
		t.Fatalf("login page did not escape its inputs:\n%s", anon)
	}
}
