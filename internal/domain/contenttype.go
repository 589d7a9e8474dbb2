package domain

import (
	"fmt"
	"strings"
)

// ContentTypeName addresses a model as "app_label.model". Names compare
// case-insensitively, so "dcim.PowerFeed" and "dcim.powerfeed" are equal.
type ContentTypeName struct {
	AppLabel string
	Model    string
}

func ParseContentTypeName(raw string) (ContentTypeName, error) {
	parts := strings.Split(strings.TrimSpace(raw), ".")
	if len(parts) != 2 || strings.TrimSpace(parts[0]) == "" || strings.TrimSpace(parts[1]) == "" {
		return ContentTypeName{}, fmt.Errorf("content type %q must look like app_label.model", raw)
	}
	return ContentTypeName{
		AppLabel: strings.ToLower(strings.TrimSpace(parts[0])),
		Model:    strings.ToLower(strings.TrimSpace(parts[1])),
	}, nil
}

func (n ContentTypeName) String() string {
	return strings.ToLower(n.AppLabel) + "." + strings.ToLower(n.Model)
}

func (n ContentTypeName) Matches(ct ContentType) bool {
	return strings.EqualFold(n.AppLabel, ct.AppLabel) && strings.EqualFold(n.Model, ct.Model)
}

func (c ContentType) Name() ContentTypeName {
	return ContentTypeName{AppLabel: c.AppLabel, Model: c.Model}
}

func IsEventType(ct ContentType) bool {
	return MaintenanceType.Matches(ct) || OutageType.Matches(ct)
}

// AllowList holds the content types an impact may target. The configured
// spelling is kept for error messages.
type AllowList struct {
	raw   []string
	names map[string]struct{}
}

func NewAllowList(entries []string) (AllowList, error) {
	al := AllowList{names: make(map[string]struct{}, len(entries))}
	for _, entry := range entries {
		name, err := ParseContentTypeName(entry)
		if err != nil {
			return AllowList{}, err
		}
		al.raw = append(al.raw, strings.TrimSpace(entry))
		al.names[name.String()] = struct{}{}
	}
	return al, nil
}

func (a AllowList) Allows(ct ContentType) bool {
	_, ok := a.names[ct.Name().String()]
	return ok
}

func (a AllowList) Entries() []string {
	return append([]string(nil), a.raw...)
}

func (a AllowList) Names() []ContentTypeName {
	out := make([]ContentTypeName, 0, len(a.raw))
	for _, entry := range a.raw {
		name, _ := ParseContentTypeName(entry)
		out = append(out, name)
	}
	return out
}

// Permission builds a key such as "notices.view_maintenance".
func Permission(action string, ct ContentTypeName) string {
	return strings.ToLower(ct.AppLabel) + "." + action + "_" + strings.ToLower(ct.Model)
}
