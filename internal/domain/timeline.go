package domain

import (
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode"
)

var fieldDisplayNames = map[string]string{
	"name":                     "Event ID",
	"summary":                  "Summary",
	"status":                   "Status",
	"start":                    "Start Time",
	"end":                      "End Time",
	"estimated_time_to_repair": "Estimated Time to Repair",
	"acknowledged":             "Acknowledged",
	"internal_ticket":          "Internal Ticket",
	"comments":                 "Comments",
	"original_timezone":        "Original Timezone",
	"provider":                 "Provider",
	"impact":                   "Impact Level",
}

func FieldDisplayName(field string) string {
	if name, ok := fieldDisplayNames[field]; ok {
		return name
	}
	return titleWords(strings.ReplaceAll(field, "_", " "))
}

// titleWords upper-cases the first letter of every word and lower-cases the rest.
func titleWords(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	startOfWord := true
	for _, r := range s {
		if !unicode.IsLetter(r) {
			b.WriteRune(r)
			startOfWord = true
			continue
		}
		if startOfWord {
			b.WriteRune(unicode.ToUpper(r))
		} else {
			b.WriteRune(unicode.ToLower(r))
		}
		startOfWord = false
	}
	return b.String()
}

const (
	TimelineCreated      = "created"
	TimelineDeleted      = "deleted"
	TimelineStatus       = "status"
	TimelineTime         = "time"
	TimelineAcknowledged = "acknowledged"
	TimelineImpact       = "impact"
	TimelineUpdated      = "updated"
)

var timelineIcons = map[string]string{
	TimelineCreated:      "plus-circle",
	TimelineDeleted:      "trash-can",
	TimelineStatus:       "swap-horizontal",
	TimelineTime:         "clock-outline",
	TimelineAcknowledged: "check-circle",
	TimelineImpact:       "lightning-bolt",
	TimelineUpdated:      "pencil",
}

type FieldChange struct {
	Field string
	Label string
	Old   string
	New   string
}

type TimelineItem struct {
	Time     time.Time
	User     string
	Action   string
	Category string
	Icon     string
	Title    string
	Changes  []FieldChange
}

var timeFields = map[string]struct{}{"start": {}, "end": {}, "estimated_time_to_repair": {}}

// BuildTimelineItem classifies a change record for display on an event page.
// eventKind is the display noun of the page's object, e.g. "maintenance".
func BuildTimelineItem(change ObjectChange, eventKind string) TimelineItem {
	item := TimelineItem{Time: change.Time, User: change.UserName, Action: change.Action}
	if item.User == "" {
		item.User = "system"
	}
	isRelated := change.RelatedObjectID != nil && change.ChangedObjectType == ImpactType.String()

	diffs := diffSnapshots(change.PrechangeData, change.PostchangeData)
	item.Changes = diffs

	switch {
	case isRelated:
		item.Category = TimelineImpact
		target := change.ObjectRepr
		switch change.Action {
		case ChangeActionCreate:
			item.Title = "Impact added: " + target
		case ChangeActionDelete:
			item.Title = "Impact removed: " + target
		default:
			item.Title = "Impact updated: " + target
		}
	case change.Action == ChangeActionCreate:
		item.Category = TimelineCreated
		item.Title = titleWords(eventKind) + " created"
	case change.Action == ChangeActionDelete:
		item.Category = TimelineDeleted
		item.Title = titleWords(eventKind) + " deleted"
	default:
		item.Category, item.Title = classifyUpdate(diffs)
	}
	item.Icon = timelineIcons[item.Category]
	return item
}

func classifyUpdate(diffs []FieldChange) (string, string) {
	var statusChange *FieldChange
	hasTime, hasAck, hasImpact := false, false, false
	for i := range diffs {
		switch diffs[i].Field {
		case "status":
			statusChange = &diffs[i]
		case "acknowledged":
			hasAck = true
		case "impact":
			hasImpact = true
		default:
			if _, ok := timeFields[diffs[i].Field]; ok {
				hasTime = true
			}
		}
	}
	switch {
	case statusChange != nil:
		return TimelineStatus, fmt.Sprintf("Status changed from %s to %s", dash(statusChange.Old), dash(statusChange.New))
	case hasTime:
		return TimelineTime, "Schedule updated"
	case hasAck:
		return TimelineAcknowledged, "Acknowledgement changed"
	case hasImpact:
		return TimelineImpact, "Impact level changed"
	default:
		return TimelineUpdated, "Details updated"
	}
}

func diffSnapshots(before, after map[string]any) []FieldChange {
	keys := map[string]struct{}{}
	for k := range before {
		keys[k] = struct{}{}
	}
	for k := range after {
		keys[k] = struct{}{}
	}
	ordered := make([]string, 0, len(keys))
	for k := range keys {
		if k == "id" || k == "last_updated" || k == "created" {
			continue
		}
		ordered = append(ordered, k)
	}
	sort.Strings(ordered)

	out := make([]FieldChange, 0)
	for _, k := range ordered {
		oldV := formatSnapshotValue(before[k])
		newV := formatSnapshotValue(after[k])
		if oldV == newV {
			continue
		}
		out = append(out, FieldChange{Field: k, Label: FieldDisplayName(k), Old: oldV, New: newV})
	}
	return out
}

func formatSnapshotValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case []any:
		parts := make([]string, 0, len(val))
		for _, p := range val {
			parts = append(parts, formatSnapshotValue(p))
		}
		return strings.Join(parts, ", ")
	default:
		return fmt.Sprint(val)
	}
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
