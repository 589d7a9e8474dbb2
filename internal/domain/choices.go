package domain

import "strings"

type Choice struct {
	Value string
	Label string
	Color string
}

type MaintenanceStatus string

const (
	MaintenanceTentative   MaintenanceStatus = "TENTATIVE"
	MaintenanceConfirmed   MaintenanceStatus = "CONFIRMED"
	MaintenanceCancelled   MaintenanceStatus = "CANCELLED"
	MaintenanceInProcess   MaintenanceStatus = "IN-PROCESS"
	MaintenanceCompleted   MaintenanceStatus = "COMPLETED"
	MaintenanceRescheduled MaintenanceStatus = "RE-SCHEDULED"
	MaintenanceUnknown     MaintenanceStatus = "UNKNOWN"
)

var MaintenanceStatusChoices = []Choice{
	{Value: string(MaintenanceTentative), Label: "Tentative", Color: "yellow"},
	{Value: string(MaintenanceConfirmed), Label: "Confirmed", Color: "green"},
	{Value: string(MaintenanceCancelled), Label: "Cancelled", Color: "blue"},
	{Value: string(MaintenanceInProcess), Label: "In-Progress", Color: "orange"},
	{Value: string(MaintenanceCompleted), Label: "Completed", Color: "indigo"},
	{Value: string(MaintenanceRescheduled), Label: "Re-Scheduled", Color: "green"},
	{Value: string(MaintenanceUnknown), Label: "Unknown", Color: "blue"},
}

// ActiveMaintenanceStatuses are shown on provider pages as upcoming or ongoing work.
var ActiveMaintenanceStatuses = []MaintenanceStatus{
	MaintenanceTentative,
	MaintenanceConfirmed,
	MaintenanceInProcess,
	MaintenanceRescheduled,
	MaintenanceUnknown,
}

func (s MaintenanceStatus) Valid() bool {
	_, ok := findChoice(MaintenanceStatusChoices, string(s))
	return ok
}

func (s MaintenanceStatus) Label() string { return choiceLabel(MaintenanceStatusChoices, string(s)) }
func (s MaintenanceStatus) Color() string { return choiceColor(MaintenanceStatusChoices, string(s)) }

type OutageStatus string

const (
	OutageReported      OutageStatus = "REPORTED"
	OutageInvestigating OutageStatus = "INVESTIGATING"
	OutageIdentified    OutageStatus = "IDENTIFIED"
	OutageMonitoring    OutageStatus = "MONITORING"
	OutageResolved      OutageStatus = "RESOLVED"
)

var OutageStatusChoices = []Choice{
	{Value: string(OutageReported), Label: "Reported", Color: "red"},
	{Value: string(OutageInvestigating), Label: "Investigating", Color: "orange"},
	{Value: string(OutageIdentified), Label: "Identified", Color: "yellow"},
	{Value: string(OutageMonitoring), Label: "Monitoring", Color: "blue"},
	{Value: string(OutageResolved), Label: "Resolved", Color: "green"},
}

func (s OutageStatus) Valid() bool {
	_, ok := findChoice(OutageStatusChoices, string(s))
	return ok
}

func (s OutageStatus) Label() string { return choiceLabel(OutageStatusChoices, string(s)) }
func (s OutageStatus) Color() string { return choiceColor(OutageStatusChoices, string(s)) }

type ImpactLevel string

const (
	ImpactNone              ImpactLevel = "NO-IMPACT"
	ImpactReducedRedundancy ImpactLevel = "REDUCED-REDUNDANCY"
	ImpactDegraded          ImpactLevel = "DEGRADED"
	ImpactOutage            ImpactLevel = "OUTAGE"
)

var ImpactLevelChoices = []Choice{
	{Value: string(ImpactNone), Label: "No-Impact", Color: "green"},
	{Value: string(ImpactReducedRedundancy), Label: "Reduced Redundancy", Color: "yellow"},
	{Value: string(ImpactDegraded), Label: "Degraded", Color: "orange"},
	{Value: string(ImpactOutage), Label: "Outage", Color: "red"},
}

func (l ImpactLevel) Valid() bool {
	_, ok := findChoice(ImpactLevelChoices, string(l))
	return ok
}

func (l ImpactLevel) Label() string { return choiceLabel(ImpactLevelChoices, string(l)) }
func (l ImpactLevel) Color() string { return choiceColor(ImpactLevelChoices, string(l)) }

// TerminalStatuses lock an event's impacts.
var TerminalStatuses = []string{
	string(MaintenanceCompleted),
	string(MaintenanceCancelled),
	string(OutageResolved),
}

func IsTerminalStatus(status string) bool {
	status = strings.ToUpper(strings.TrimSpace(status))
	for _, s := range TerminalStatuses {
		if s == status {
			return true
		}
	}
	return false
}

type TimeZoneGroup struct {
	Name  string
	Zones []string
}

var TimeZoneChoices = []TimeZoneGroup{
	{Name: "Common", Zones: []string{"UTC", "GMT"}},
	{Name: "Africa", Zones: []string{
		"Africa/Cairo", "Africa/Johannesburg", "Africa/Lagos", "Africa/Nairobi", "Africa/Casablanca",
	}},
	{Name: "America", Zones: []string{
		"America/New_York", "America/Chicago", "America/Denver", "America/Los_Angeles",
		"America/Anchorage", "America/Phoenix", "America/Toronto", "America/Vancouver",
		"America/Montreal", "America/Halifax", "America/Mexico_City", "America/Bogota",
		"America/Lima", "America/Santiago", "America/Sao_Paulo", "America/Argentina/Buenos_Aires",
	}},
	{Name: "Asia", Zones: []string{
		"Asia/Dubai", "Asia/Karachi", "Asia/Kolkata", "Asia/Dhaka", "Asia/Bangkok",
		"Asia/Singapore", "Asia/Hong_Kong", "Asia/Shanghai", "Asia/Taipei", "Asia/Seoul",
		"Asia/Tokyo", "Asia/Jakarta", "Asia/Manila", "Asia/Jerusalem",
	}},
	{Name: "Atlantic", Zones: []string{"Atlantic/Azores", "Atlantic/Reykjavik"}},
	{Name: "Australia", Zones: []string{
		"Australia/Perth", "Australia/Adelaide", "Australia/Brisbane", "Australia/Sydney", "Australia/Melbourne",
	}},
	{Name: "Europe", Zones: []string{
		"Europe/London", "Europe/Dublin", "Europe/Lisbon", "Europe/Paris", "Europe/Berlin",
		"Europe/Madrid", "Europe/Rome", "Europe/Amsterdam", "Europe/Brussels", "Europe/Zurich",
		"Europe/Stockholm", "Europe/Oslo", "Europe/Copenhagen", "Europe/Helsinki", "Europe/Warsaw",
		"Europe/Prague", "Europe/Vienna", "Europe/Vilnius", "Europe/Riga", "Europe/Tallinn",
		"Europe/Athens", "Europe/Istanbul", "Europe/Kyiv", "Europe/Moscow",
	}},
	{Name: "Pacific", Zones: []string{"Pacific/Auckland", "Pacific/Fiji", "Pacific/Honolulu", "Pacific/Guam"}},
}

func findChoice(choices []Choice, value string) (Choice, bool) {
	for _, c := range choices {
		if c.Value == value {
			return c, true
		}
	}
	return Choice{}, false
}

func choiceLabel(choices []Choice, value string) string {
	if c, ok := findChoice(choices, value); ok {
		return c.Label
	}
	return value
}

func choiceColor(choices []Choice, value string) string {
	if c, ok := findChoice(choices, value); ok {
		return c.Color
	}
	return "gray"
}
