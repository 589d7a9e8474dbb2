package gormdb

import (
	"context"
	"strings"

	"github.com/atvirokodosprendimai/notices/internal/domain"
	"gorm.io/gorm"
)

func preloadImpactTypes(q *gorm.DB) *gorm.DB {
	return q.Preload("EventContentType").Preload("TargetContentType")
}

func toDomainImpact(m ImpactModel) domain.Impact {
	out := domain.Impact{
		ID:             m.ID,
		EventType:      toDomainContentType(m.EventContentType),
		EventObjectID:  m.EventObjectID,
		TargetType:     toDomainContentType(m.TargetContentType),
		TargetObjectID: m.TargetObjectID,
		Tags:           tagsFromJSON(m.Tags),
		CustomFields:   mapFromJSON(m.CustomFieldData),
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
	if m.Impact != nil {
		out.Impact = domain.ImpactLevel(*m.Impact)
	}
	return out
}

func fromDomainImpact(v domain.Impact) ImpactModel {
	m := ImpactModel{
		ID:                  v.ID,
		EventContentTypeID:  v.EventType.ID,
		EventObjectID:       v.EventObjectID,
		TargetContentTypeID: v.TargetType.ID,
		TargetObjectID:      v.TargetObjectID,
		Tags:                toJSON(v.Tags),
		CustomFieldData:     toJSON(v.CustomFields),
		CreatedAt:           v.CreatedAt,
	}
	if v.Impact != "" {
		level := string(v.Impact)
		m.Impact = &level
	}
	return m
}

func (r *Repository) CreateImpact(ctx context.Context, value domain.Impact) (domain.Impact, error) {
	m := fromDomainImpact(value)
	if err := r.create(ctx, &m); err != nil {
		return domain.Impact{}, err
	}
	return r.GetImpact(ctx, m.ID)
}

func (r *Repository) UpdateImpact(ctx context.Context, value domain.Impact) (domain.Impact, error) {
	m := fromDomainImpact(value)
	if err := r.update(ctx, &m); err != nil {
		return domain.Impact{}, err
	}
	return r.GetImpact(ctx, value.ID)
}

func (r *Repository) DeleteImpact(ctx context.Context, id uint) error {
	return r.deleteByID(ctx, &ImpactModel{}, id)
}

func (r *Repository) GetImpact(ctx context.Context, id uint) (domain.Impact, error) {
	var m ImpactModel
	if err := r.db.WithContext(ctx).Scopes(preloadImpactTypes).First(&m, id).Error; err != nil {
		return domain.Impact{}, mapErr(err)
	}
	out := []domain.Impact{toDomainImpact(m)}
	if err := r.describeImpacts(ctx, out); err != nil {
		return domain.Impact{}, err
	}
	return out[0], nil
}

func (r *Repository) ListImpacts(ctx context.Context, filter domain.ImpactFilter) ([]domain.Impact, int64, error) {
	q := r.db.WithContext(ctx).Model(&ImpactModel{})
	if filter.EventTypeID != nil {
		q = q.Where("event_content_type_id = ?", *filter.EventTypeID)
	}
	if len(filter.EventIDs) > 0 {
		q = q.Where("event_object_id IN ?", filter.EventIDs)
	}
	if filter.TargetTypeID != nil {
		q = q.Where("target_content_type_id = ?", *filter.TargetTypeID)
	}
	if len(filter.TargetIDs) > 0 {
		q = q.Where("target_object_id IN ?", filter.TargetIDs)
	}
	if len(filter.Levels) > 0 {
		levels := make([]string, 0, len(filter.Levels))
		for _, l := range filter.Levels {
			levels = append(levels, strings.ToUpper(strings.TrimSpace(l)))
		}
		q = q.Where("impact IN ?", levels)
	}
	rows, total, err := paginate[ImpactModel](q, "impact ASC, id ASC", filter.Limit, filter.Offset, preloadImpactTypes)
	if err != nil {
		return nil, 0, err
	}
	out := make([]domain.Impact, 0, len(rows))
	for _, m := range rows {
		out = append(out, toDomainImpact(m))
	}
	if err := r.describeImpacts(ctx, out); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// ImpactExists reports whether another impact already links the same event
// and target.
func (r *Repository) ImpactExists(ctx context.Context, value domain.Impact) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&ImpactModel{}).
		Where("event_content_type_id = ? AND event_object_id = ? AND target_content_type_id = ? AND target_object_id = ?",
			value.EventType.ID, value.EventObjectID, value.TargetType.ID, value.TargetObjectID).
		Where("id <> ?", value.ID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// describeImpacts fills display strings and event statuses with one query per
// content type.
func (r *Repository) describeImpacts(ctx context.Context, impacts []domain.Impact) error {
	eventIDs := map[uint][]uint{}
	targetIDs := map[uint][]uint{}
	types := map[uint]domain.ContentType{}
	for _, imp := range impacts {
		types[imp.EventType.ID] = imp.EventType
		types[imp.TargetType.ID] = imp.TargetType
		eventIDs[imp.EventType.ID] = append(eventIDs[imp.EventType.ID], imp.EventObjectID)
		targetIDs[imp.TargetType.ID] = append(targetIDs[imp.TargetType.ID], imp.TargetObjectID)
	}

	reprs := map[uint]map[uint]string{}
	statuses := map[uint]map[uint]string{}
	for typeID, ids := range eventIDs {
		ct := types[typeID]
		if _, ok := reprSources[ct.Name().String()]; !ok {
			continue
		}
		names, err := r.ObjectReprs(ctx, ct, ids)
		if err != nil {
			return err
		}
		reprs[typeID] = names
		st, err := r.eventStatuses(ctx, ct, ids)
		if err != nil {
			return err
		}
		statuses[typeID] = st
	}
	for typeID, ids := range targetIDs {
		ct := types[typeID]
		if _, ok := reprSources[ct.Name().String()]; !ok {
			continue
		}
		names, err := r.ObjectReprs(ctx, ct, ids)
		if err != nil {
			return err
		}
		if existing, ok := reprs[typeID]; ok {
			for id, name := range names {
				existing[id] = name
			}
			continue
		}
		reprs[typeID] = names
	}

	for i := range impacts {
		impacts[i].EventDisplay = reprs[impacts[i].EventType.ID][impacts[i].EventObjectID]
		impacts[i].EventStatus = statuses[impacts[i].EventType.ID][impacts[i].EventObjectID]
		impacts[i].TargetDisplay = reprs[impacts[i].TargetType.ID][impacts[i].TargetObjectID]
	}
	return nil
}

func (r *Repository) eventStatuses(ctx context.Context, ct domain.ContentType, ids []uint) (map[uint]string, error) {
	out := map[uint]string{}
	var table string
	switch {
	case domain.MaintenanceType.Matches(ct):
		table = maintenanceTable
	case domain.OutageType.Matches(ct):
		table = outageTable
	default:
		return out, nil
	}
	type row struct {
		ID     uint
		Status string
	}
	rows := make([]row, 0, len(ids))
	if err := r.db.WithContext(ctx).Table(table).Select("id, status").Where("id IN ?", ids).Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.ID] = row.Status
	}
	return out, nil
}
