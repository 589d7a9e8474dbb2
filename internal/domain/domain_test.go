package domain

import (
	"strings"
	"testing"
	"time"
)

func TestFieldDisplayName(t *testing.T) {
	cases := map[string]string{
		"start":                    "Start Time",
		"name":                     "Event ID",
		"estimated_time_to_repair": "Estimated Time to Repair",
		"impact":                   "Impact Level",
		"foo_bar":                  "Foo Bar",
		"custom":                   "Custom",
		"SOME_value":               "Some Value",
	}
	for in, want := range cases {
		if got := FieldDisplayName(in); got != want {
			t.Fatalf("FieldDisplayName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestReinterpretInZone(t *testing.T) {
	naive := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	got, err := ReinterpretInZone(naive, "America/New_York", time.UTC)
	if err != nil {
		t.Fatalf("reinterpret: %v", err)
	}
	want := time.Date(2024, 1, 1, 15, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("expected %s, got %s", want, got)
	}
	if got.Location() != time.UTC {
		t.Fatalf("expected result in system location, got %s", got.Location())
	}
}

func TestReinterpretInZoneUnknownZoneIsNoop(t *testing.T) {
	naive := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	got, err := ReinterpretInZone(naive, "Mars/Olympus_Mons", time.UTC)
	if err == nil {
		t.Fatalf("expected load error for unknown zone")
	}
	if !got.Equal(naive) {
		t.Fatalf("expected unchanged value, got %s", got)
	}
}

func TestOutageResolvedRequiresEnd(t *testing.T) {
	o := Outage{
		Event:  Event{Name: "INC-1", Summary: "Fiber cut", ProviderID: 1, Start: time.Now()},
		Status: OutageResolved,
	}
	err := o.Validate()
	v, ok := AsValidationError(err)
	if !ok {
		t.Fatalf("expected validation error, got %v", err)
	}
	if msgs := v.Fields["end"]; len(msgs) != 1 || msgs[0] != "End time is required when marking outage as resolved" {
		t.Fatalf("unexpected end errors: %#v", v.Fields)
	}

	end := time.Now()
	o.End = &end
	if err := o.Validate(); err != nil {
		t.Fatalf("expected resolved outage with end to validate, got %v", err)
	}
}

func TestMaintenanceValidateRequiresEndAndStatus(t *testing.T) {
	m := Maintenance{Event: Event{Name: "MW-1", Summary: "Upgrade", ProviderID: 1, Start: time.Now()}, Status: "LATER"}
	v, ok := AsValidationError(m.Validate())
	if !ok {
		t.Fatalf("expected validation error")
	}
	if _, ok := v.Fields["end"]; !ok {
		t.Fatalf("expected end error: %#v", v.Fields)
	}
	if _, ok := v.Fields["status"]; !ok {
		t.Fatalf("expected status error: %#v", v.Fields)
	}
}

func TestAllowListIsCaseInsensitive(t *testing.T) {
	al, err := NewAllowList([]string{"circuits.Circuit", "dcim.PowerFeed", "dcim.Site"})
	if err != nil {
		t.Fatalf("allow list: %v", err)
	}
	if !al.Allows(ContentType{AppLabel: "dcim", Model: "powerfeed"}) {
		t.Fatalf("expected dcim.powerfeed to be allowed")
	}
	if al.Allows(ContentType{AppLabel: "dcim", Model: "device"}) {
		t.Fatalf("expected dcim.device to be rejected")
	}
	if _, err := NewAllowList([]string{"bogus"}); err == nil {
		t.Fatalf("expected malformed entry to fail")
	}
}

func TestTerminalStatuses(t *testing.T) {
	for _, s := range []string{"COMPLETED", "CANCELLED", "RESOLVED", "resolved"} {
		if !IsTerminalStatus(s) {
			t.Fatalf("%s should be terminal", s)
		}
	}
	for _, s := range []string{"CONFIRMED", "MONITORING", "TENTATIVE"} {
		if IsTerminalStatus(s) {
			t.Fatalf("%s should not be terminal", s)
		}
	}
}

func TestBuildTimelineItemClassifiesStatusChange(t *testing.T) {
	item := BuildTimelineItem(ObjectChange{
		Action:         ChangeActionUpdate,
		PrechangeData:  map[string]any{"status": "TENTATIVE", "summary": "x"},
		PostchangeData: map[string]any{"status": "CONFIRMED", "summary": "x"},
	}, "maintenance")
	if item.Category != TimelineStatus {
		t.Fatalf("expected status category, got %s", item.Category)
	}
	if len(item.Changes) != 1 || item.Changes[0].Label != "Status" {
		t.Fatalf("unexpected changes: %#v", item.Changes)
	}
	if !strings.Contains(item.Title, "TENTATIVE") || !strings.Contains(item.Title, "CONFIRMED") {
		t.Fatalf("unexpected title: %s", item.Title)
	}

	created := BuildTimelineItem(ObjectChange{Action: ChangeActionCreate}, "maintenance")
	if created.Category != TimelineCreated || created.Title != "Maintenance created" || created.User != "system" {
		t.Fatalf("unexpected create item: %#v", created)
	}
}
