package domain

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	maxEventName      = 100
	maxEventSummary   = 200
	maxTimezoneName   = 63
	maxInternalTicket = 100
	maxSubject        = 100
)

func (e Event) validate(v *ValidationError) {
	if strings.TrimSpace(e.Name) == "" {
		v.Add("name", "This field is required.")
	}
	checkLength(v, "name", e.Name, maxEventName)
	if strings.TrimSpace(e.Summary) == "" {
		v.Add("summary", "This field is required.")
	}
	checkLength(v, "summary", e.Summary, maxEventSummary)
	if e.ProviderID == 0 {
		v.Add("provider", "This field is required.")
	}
	if e.Start.IsZero() {
		v.Add("start", "This field is required.")
	}
	checkLength(v, "original_timezone", e.OriginalTimezone, maxTimezoneName)
	checkLength(v, "internal_ticket", e.InternalTicket, maxInternalTicket)
}

func (m Maintenance) Validate() error {
	v := NewValidationError()
	m.Event.validate(v)
	if m.End.IsZero() {
		v.Add("end", "This field is required.")
	}
	if !m.Status.Valid() {
		v.Add("status", fmt.Sprintf("Select a valid choice. %s is not one of the available choices.", m.Status))
	}
	return v.OrNil()
}

func (o Outage) Validate() error {
	v := NewValidationError()
	o.Event.validate(v)
	if !o.Status.Valid() {
		v.Add("status", fmt.Sprintf("Select a valid choice. %s is not one of the available choices.", o.Status))
	}
	if o.Status == OutageResolved && o.End == nil {
		v.Add("end", "End time is required when marking outage as resolved")
	}
	return v.OrNil()
}

func (n EventNotification) Validate() error {
	v := NewValidationError()
	if strings.TrimSpace(n.Subject) == "" {
		v.Add("subject", "This field is required.")
	}
	checkLength(v, "subject", n.Subject, maxSubject)
	if strings.TrimSpace(n.EmailFrom) == "" {
		v.Add("email_from", "This field is required.")
	}
	if strings.TrimSpace(n.EmailBody) == "" {
		v.Add("email_body", "This field is required.")
	}
	if n.EmailReceived.IsZero() {
		v.Add("email_received", "This field is required.")
	}
	if n.EventObjectID == 0 {
		v.Add("event_object_id", "This field is required.")
	}
	return v.OrNil()
}

func (m CircuitMaintenance) Validate() error {
	v := NewValidationError()
	if strings.TrimSpace(m.Name) == "" {
		v.Add("name", "This field is required.")
	}
	checkLength(v, "name", m.Name, maxEventName)
	checkLength(v, "summary", m.Summary, maxEventSummary)
	if m.ProviderID == 0 {
		v.Add("provider", "This field is required.")
	}
	if m.Start.IsZero() {
		v.Add("start", "This field is required.")
	}
	if m.End.IsZero() {
		v.Add("end", "This field is required.")
	}
	if !m.Status.Valid() {
		v.Add("status", fmt.Sprintf("Select a valid choice. %s is not one of the available choices.", m.Status))
	}
	return v.OrNil()
}

func (o CircuitOutage) Validate() error {
	v := NewValidationError()
	if strings.TrimSpace(o.Name) == "" {
		v.Add("name", "This field is required.")
	}
	checkLength(v, "name", o.Name, maxEventName)
	checkLength(v, "summary", o.Summary, maxEventSummary)
	if o.ProviderID == 0 {
		v.Add("provider", "This field is required.")
	}
	if o.Start.IsZero() {
		v.Add("start", "This field is required.")
	}
	if !o.Status.Valid() {
		v.Add("status", fmt.Sprintf("Select a valid choice. %s is not one of the available choices.", o.Status))
	}
	if o.Status == OutageResolved && o.End == nil {
		v.Add("end", "End time is required when marking outage as resolved")
	}
	return v.OrNil()
}

func checkLength(v *ValidationError, field, value string, max int) {
	if n := utf8.RuneCountInString(value); n > max {
		v.Add(field, fmt.Sprintf("Ensure this value has at most %d characters (it has %d).", max, n))
	}
}
