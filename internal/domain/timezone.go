package domain

import (
	"strings"
	"time"
	_ "time/tzdata"
)

// ReinterpretInZone reads the wall clock of t as local time in zone and
// returns the same instant expressed in system. The input's own location is
// ignored. An unknown zone returns t unchanged with the load error.
func ReinterpretInZone(t time.Time, zone string, system *time.Location) (time.Time, error) {
	loc, err := time.LoadLocation(strings.TrimSpace(zone))
	if err != nil {
		return t, err
	}
	if system == nil {
		system = time.UTC
	}
	wall := time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), loc)
	return wall.In(system), nil
}

// InOriginalZone shows t in the event's original zone for display. It falls
// back to t when the zone is empty or unknown.
func InOriginalZone(t time.Time, zone string) time.Time {
	if strings.TrimSpace(zone) == "" {
		return t
	}
	loc, err := time.LoadLocation(zone)
	if err != nil {
		return t
	}
	return t.In(loc)
}

// HasTimezoneDifference reports whether the original zone's offset at t differs from system.
func HasTimezoneDifference(t time.Time, zone string, system *time.Location) bool {
	if strings.TrimSpace(zone) == "" {
		return false
	}
	loc, err := time.LoadLocation(zone)
	if err != nil {
		return false
	}
	if system == nil {
		system = time.UTC
	}
	_, a := t.In(loc).Zone()
	_, b := t.In(system).Zone()
	return a != b
}
