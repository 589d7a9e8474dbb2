package application

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/google/uuid"

	"github.com/atvirokodosprendimai/notices/internal/domain"
)

const maxICalPastDays = 365

// icalNamespace seeds the UUIDv5 identifiers of feed entries so a
// maintenance keeps its UID across renders.
var icalNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("notices/maintenance"))

// ParamError is a rejected feed parameter. Its message is shown to the client
// as is.
type ParamError struct {
	Msg string
}

func (e *ParamError) Error() string { return e.Msg }

// ICalParams are the feed query parameters after parsing.
type ICalParams struct {
	PastDays   int
	Provider   string
	ProviderID string
	Status     string
	// hasProvider and hasProviderID record presence, since an empty value
	// still selects that branch.
	hasProvider   bool
	hasProviderID bool
	hasStatus     bool
}

// ParseICalParams reads past_days, provider, provider_id and status. An
// out-of-range or malformed past_days falls back to defaultPastDays. provider
// wins over provider_id when both are present.
func ParseICalParams(q url.Values, defaultPastDays int) ICalParams {
	p := ICalParams{PastDays: defaultPastDays}
	if raw, ok := q["past_days"]; ok && len(raw) > 0 {
		if n, err := strconv.Atoi(strings.TrimSpace(raw[0])); err == nil && n >= 0 && n <= maxICalPastDays {
			p.PastDays = n
		}
	}
	if _, ok := q["provider"]; ok {
		p.Provider, p.hasProvider = q.Get("provider"), true
	} else if _, ok := q["provider_id"]; ok {
		p.ProviderID, p.hasProviderID = q.Get("provider_id"), true
	}
	if _, ok := q["status"]; ok {
		p.Status, p.hasStatus = q.Get("status"), true
	}
	return p
}

// normalized lists the parameters as sorted key=value pairs.
func (p ICalParams) normalized() []string {
	out := []string{"past_days=" + strconv.Itoa(p.PastDays)}
	if p.hasProvider {
		out = append(out, "provider="+p.Provider)
	}
	if p.hasProviderID {
		out = append(out, "provider_id="+p.ProviderID)
	}
	if p.hasStatus {
		out = append(out, "status="+p.Status)
	}
	sort.Strings(out)
	return out
}

// statuses returns the valid maintenance statuses named in the status
// parameter. Unknown names are dropped.
func (p ICalParams) statuses() []string {
	if !p.hasStatus {
		return nil
	}
	var out []string
	for _, part := range strings.Split(p.Status, ",") {
		st := domain.MaintenanceStatus(strings.ToUpper(strings.TrimSpace(part)))
		if st.Valid() {
			out = append(out, string(st))
		}
	}
	return out
}

// ICalFeed is the data behind one feed response.
type ICalFeed struct {
	Maintenances   []domain.Maintenance
	Impacts        map[uint][]domain.Impact
	Count          int64
	LatestModified *time.Time
	ETag           string
}

// ComputeETag hashes the row count, the newest modification time and the
// normalised parameters.
func ComputeETag(count int64, latest *time.Time, params []string) string {
	latestStr := ""
	if latest != nil {
		latestStr = latest.UTC().Format(time.RFC3339Nano)
	}
	sum := sha256.Sum256([]byte(fmt.Sprintf("%d|%s|%s", count, latestStr, strings.Join(params, "&"))))
	return `"` + hex.EncodeToString(sum[:]) + `"`
}

// ICalFeed loads the maintenances for a feed request along with their impacts.
func (s *Service) ICalFeed(ctx context.Context, p ICalParams) (ICalFeed, error) {
	cutoff := s.now().UTC().AddDate(0, 0, -p.PastDays)
	filter := domain.EventFilter{StartAfter: &cutoff, OrderBy: "start", Statuses: p.statuses()}

	switch {
	case p.hasProvider:
		prov, err := s.repo.GetProviderBySlug(ctx, p.Provider)
		if errors.Is(err, domain.ErrNotFound) {
			return ICalFeed{}, &ParamError{Msg: "Provider not found: " + p.Provider}
		}
		if err != nil {
			return ICalFeed{}, err
		}
		filter.ProviderIDs = []uint{prov.ID}
	case p.hasProviderID:
		id, err := strconv.ParseUint(strings.TrimSpace(p.ProviderID), 10, 64)
		if err != nil {
			return ICalFeed{}, &ParamError{Msg: "Invalid provider_id: " + p.ProviderID}
		}
		filter.ProviderIDs = []uint{uint(id)}
	}

	rows, total, err := s.repo.ListMaintenances(ctx, filter)
	if err != nil {
		return ICalFeed{}, err
	}

	feed := ICalFeed{Maintenances: rows, Count: total, Impacts: map[uint][]domain.Impact{}}
	ids := make([]uint, 0, len(rows))
	for _, m := range rows {
		ids = append(ids, m.ID)
		if feed.LatestModified == nil || m.UpdatedAt.After(*feed.LatestModified) {
			t := m.UpdatedAt
			feed.LatestModified = &t
		}
	}
	if len(ids) > 0 {
		ct, err := s.repo.GetContentType(ctx, domain.MaintenanceType)
		if err != nil {
			return ICalFeed{}, err
		}
		impacts, _, err := s.repo.ListImpacts(ctx, domain.ImpactFilter{EventTypeID: &ct.ID, EventIDs: ids})
		if err != nil {
			return ICalFeed{}, err
		}
		for _, imp := range impacts {
			feed.Impacts[imp.EventObjectID] = append(feed.Impacts[imp.EventObjectID], imp)
		}
	}
	feed.ETag = ComputeETag(feed.Count, feed.LatestModified, p.normalized())
	return feed, nil
}

// ICalUID is the stable identifier of a maintenance in the feed.
func ICalUID(id uint) string {
	return uuid.NewSHA1(icalNamespace, []byte(strconv.FormatUint(uint64(id), 10))).String()
}

func icalStatus(st domain.MaintenanceStatus) ics.ObjectStatus {
	switch st {
	case domain.MaintenanceTentative:
		return ics.ObjectStatusTentative
	case domain.MaintenanceCancelled:
		return ics.ObjectStatusCancelled
	default:
		return ics.ObjectStatusConfirmed
	}
}

// RenderICal serialises a feed as an iCalendar document.
func (s *Service) RenderICal(feed ICalFeed) string {
	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId("-//Vendor Notices//Maintenance Calendar//EN")
	cal.SetXWRCalName("Maintenances")

	base := strings.TrimRight(s.opts.BaseURL, "/")
	stamp := s.now().UTC()
	for _, m := range feed.Maintenances {
		link := fmt.Sprintf("%s/notices/maintenances/%d/", base, m.ID)

		ev := cal.AddEvent(ICalUID(m.ID))
		ev.SetCreatedTime(m.CreatedAt.UTC())
		ev.SetDtStampTime(stamp)
		ev.SetModifiedAt(m.UpdatedAt.UTC())
		ev.SetStartAt(m.Start.UTC())
		ev.SetEndAt(m.End.UTC())
		ev.SetSummary(fmt.Sprintf("%s: %s", m.Provider.Name, m.Name))
		ev.SetDescription(icalDescription(m, feed.Impacts[m.ID], link))
		ev.SetURL(link)
		ev.SetStatus(icalStatus(m.Status))
		ev.AddProperty(ics.ComponentPropertyCategories, m.Status.Label())
		if m.Provider.Name != "" {
			ev.AddProperty(ics.ComponentPropertyCategories, m.Provider.Name)
		}
	}
	return cal.Serialize()
}

func icalDescription(m domain.Maintenance, impacts []domain.Impact, link string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Provider: %s\n", m.Provider.Name)
	fmt.Fprintf(&b, "Status: %s\n", m.Status.Label())
	if m.Summary != "" {
		fmt.Fprintf(&b, "Summary: %s\n", m.Summary)
	}
	if len(impacts) > 0 {
		b.WriteString("\nImpacts:\n")
		for _, imp := range impacts {
			level := "Unknown"
			if imp.Impact != "" {
				level = imp.Impact.Label()
			}
			fmt.Fprintf(&b, "- %s (%s)\n", imp.TargetDisplay, level)
		}
	}
	if m.InternalTicket != "" {
		fmt.Fprintf(&b, "\nInternal ticket: %s\n", m.InternalTicket)
	}
	fmt.Fprintf(&b, "\nDetails: %s", link)
	return b.String()
}

// ICalURL is the feed address shown to users, with a placeholder token.
func (s *Service) ICalURL(placeholder string) string {
	return fmt.Sprintf("%s/notices/ical/maintenances.ics?token=%s", strings.TrimRight(s.opts.BaseURL, "/"), url.QueryEscape(placeholder))
}
