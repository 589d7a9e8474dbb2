package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestRestEventRowFlattensNestedFields(t *testing.T) {
	raw := `{"id":7,"name":"TELIA-42","status":{"value":"CONFIRMED","label":"Confirmed"},
		"provider":{"id":1,"display":"Telia"},"start":"2026-03-02T10:00:00Z","end":null,"impact_count":3}`
	var e restEvent
	if err := json.Unmarshal([]byte(raw), &e); err != nil {
		t.Fatalf("decode: %v", err)
	}
	row := e.row()
	if row.Status != "CONFIRMED" || row.Provider != "Telia" || row.Start.IsZero() {
		t.Fatalf("unexpected row %+v", row)
	}
	if row.End != nil || row.ImpactCount == nil || *row.ImpactCount != 3 {
		t.Fatalf("unexpected end or impact count %+v", row)
	}
}

func TestAPIErrorFormatsValidationBodies(t *testing.T) {
	err := apiError(http.StatusBadRequest, []byte(`{"name":["This field is required."],"provider":["Unknown provider."]}`))
	want := "api error (400): name: This field is required.; provider: Unknown provider."
	if err.Error() != want {
		t.Fatalf("got %q, want %q", err.Error(), want)
	}
	err = apiError(http.StatusNotFound, []byte(`{"detail":"Not found."}`))
	if err.Error() != "api error (404): Not found." {
		t.Fatalf("unexpected detail error %q", err.Error())
	}
}

func TestEventsListOverHTTPSendsFilters(t *testing.T) {
	var gotQuery, gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		gotAuth = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(`{"count":1,"results":[{"id":1,"name":"M-1","status":{"value":"TENTATIVE"}}]}`))
	}))
	defer srv.Close()

	cfg := cliConfig{Transport: "http", Server: srv.URL, Token: "abc"}
	page, err := doEventsList(context.Background(), cfg, maintenanceEvents, eventQuery{Status: []string{"confirmed", "tentative"}, Provider: "telia", Limit: 10})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if gotAuth != "Bearer abc" {
		t.Fatalf("unexpected auth header %q", gotAuth)
	}
	for _, part := range []string{"status=confirmed", "status=tentative", "provider=telia", "limit=10"} {
		if !strings.Contains(gotQuery, part) {
			t.Fatalf("query %q missing %q", gotQuery, part)
		}
	}
	if page.Count != 1 || page.Results[0].Status != "TENTATIVE" {
		t.Fatalf("unexpected page %+v", page)
	}
}
