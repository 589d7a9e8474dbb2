package gormdb

import (
	"context"
	"fmt"
	"strings"

	"github.com/atvirokodosprendimai/notices/internal/domain"
	"gorm.io/gorm"
)

const (
	maintenanceTable = "notices_maintenance"
	outageTable      = "notices_outage"
)

var impactCountSelect = `notices_maintenance.*, (
	SELECT COUNT(*) FROM notices_impact i
	JOIN content_types ct ON ct.id = i.event_content_type_id
	WHERE ct.app_label = 'notices' AND ct.model = 'maintenance' AND i.event_object_id = notices_maintenance.id
) AS impact_count`

func preloadProvider(q *gorm.DB) *gorm.DB {
	return q.Preload("Provider")
}

func withImpactCount(q *gorm.DB) *gorm.DB {
	return q.Select(impactCountSelect).Preload("Provider")
}

// eventOrder translates a list ordering such as "-start" into SQL. Unknown
// keys fall back to newest first.
func eventOrder(table, orderBy string) string {
	key := strings.TrimSpace(strings.ToLower(orderBy))
	dir := "ASC"
	if strings.HasPrefix(key, "-") {
		dir = "DESC"
		key = strings.TrimPrefix(key, "-")
	}
	var col string
	switch key {
	case "name", "summary", "status", "start", "acknowledged", "internal_ticket", "created_at", "updated_at", "id":
		col = table + "." + key
	case "end":
		col = table + `."end"`
	case "created":
		col = table + ".created_at"
	case "last_updated":
		col = table + ".updated_at"
	case "provider":
		col = "(SELECT name FROM providers WHERE providers.id = " + table + ".provider_id)"
	case "impact_count":
		if table != maintenanceTable {
			return table + ".created_at DESC, " + table + ".id DESC"
		}
		col = "impact_count"
	default:
		return table + ".created_at DESC, " + table + ".id DESC"
	}
	return fmt.Sprintf("%s %s, %s.id %s", col, dir, table, dir)
}

func applyEventFilter(q *gorm.DB, table string, f domain.EventFilter) *gorm.DB {
	if strings.TrimSpace(f.Query) != "" {
		like := likePattern(f.Query)
		q = q.Where(fmt.Sprintf("LOWER(%[1]s.name) LIKE ? OR LOWER(%[1]s.summary) LIKE ? OR LOWER(%[1]s.internal_ticket) LIKE ?", table), like, like, like)
	}
	if strings.TrimSpace(f.Name) != "" {
		q = q.Where(fmt.Sprintf("LOWER(%s.name) LIKE ?", table), likePattern(f.Name))
	}
	if strings.TrimSpace(f.Summary) != "" {
		q = q.Where(fmt.Sprintf("LOWER(%s.summary) LIKE ?", table), likePattern(f.Summary))
	}
	if strings.TrimSpace(f.InternalTicket) != "" {
		q = q.Where(fmt.Sprintf("LOWER(%s.internal_ticket) LIKE ?", table), likePattern(f.InternalTicket))
	}
	if len(f.Statuses) > 0 {
		statuses := make([]string, 0, len(f.Statuses))
		for _, s := range f.Statuses {
			statuses = append(statuses, strings.ToUpper(strings.TrimSpace(s)))
		}
		q = q.Where(fmt.Sprintf("UPPER(%s.status) IN ?", table), statuses)
	}
	if len(f.ProviderIDs) > 0 {
		q = q.Where(fmt.Sprintf("%s.provider_id IN ?", table), f.ProviderIDs)
	}
	if len(f.ProviderSlugs) > 0 {
		q = q.Where(fmt.Sprintf("%s.provider_id IN (SELECT id FROM providers WHERE slug IN ?)", table), f.ProviderSlugs)
	}
	if f.Acknowledged != nil {
		q = q.Where(fmt.Sprintf("%s.acknowledged = ?", table), *f.Acknowledged)
	}
	if f.StartAfter != nil {
		q = q.Where(fmt.Sprintf("%s.start >= ?", table), f.StartAfter.UTC())
	}
	if f.StartBefore != nil {
		q = q.Where(fmt.Sprintf("%s.start <= ?", table), f.StartBefore.UTC())
	}
	if f.EndAfter != nil {
		q = q.Where(fmt.Sprintf(`%s."end" >= ?`, table), f.EndAfter.UTC())
	}
	if f.EndBefore != nil {
		q = q.Where(fmt.Sprintf(`%s."end" <= ?`, table), f.EndBefore.UTC())
	}
	if f.OpenOnly {
		q = q.Where(fmt.Sprintf("UPPER(%s.status) NOT IN ?", table), domain.TerminalStatuses)
	}
	if len(f.IDs) > 0 {
		q = q.Where(fmt.Sprintf("%s.id IN ?", table), f.IDs)
	}
	return q
}

func toDomainMaintenance(m MaintenanceModel) domain.Maintenance {
	return domain.Maintenance{
		Event: domain.Event{
			ID:               m.ID,
			Name:             m.Name,
			Summary:          m.Summary,
			ProviderID:       m.ProviderID,
			Provider:         toDomainProvider(m.Provider),
			Start:            m.Start,
			OriginalTimezone: m.OriginalTimezone,
			InternalTicket:   m.InternalTicket,
			Acknowledged:     m.Acknowledged,
			Comments:         m.Comments,
			Tags:             tagsFromJSON(m.Tags),
			CustomFields:     mapFromJSON(m.CustomFieldData),
			CreatedAt:        m.CreatedAt,
			UpdatedAt:        m.UpdatedAt,
		},
		End:         m.End,
		Status:      domain.MaintenanceStatus(m.Status),
		ImpactCount: m.ImpactCount,
	}
}

func fromDomainMaintenance(v domain.Maintenance) MaintenanceModel {
	return MaintenanceModel{
		ID:               v.ID,
		Name:             v.Name,
		Summary:          v.Summary,
		ProviderID:       v.ProviderID,
		Start:            v.Start.UTC(),
		End:              v.End.UTC(),
		Status:           string(v.Status),
		OriginalTimezone: v.OriginalTimezone,
		InternalTicket:   v.InternalTicket,
		Acknowledged:     v.Acknowledged,
		Comments:         v.Comments,
		Tags:             toJSON(v.Tags),
		CustomFieldData:  toJSON(v.CustomFields),
		CreatedAt:        v.CreatedAt,
	}
}

func (r *Repository) CreateMaintenance(ctx context.Context, value domain.Maintenance) (domain.Maintenance, error) {
	m := fromDomainMaintenance(value)
	if err := r.create(ctx, &m); err != nil {
		return domain.Maintenance{}, err
	}
	return r.GetMaintenance(ctx, m.ID)
}

func (r *Repository) UpdateMaintenance(ctx context.Context, value domain.Maintenance) (domain.Maintenance, error) {
	m := fromDomainMaintenance(value)
	if err := r.update(ctx, &m); err != nil {
		return domain.Maintenance{}, err
	}
	return r.GetMaintenance(ctx, value.ID)
}

func (r *Repository) DeleteMaintenance(ctx context.Context, id uint) error {
	return r.deleteEvent(ctx, domain.MaintenanceType, &MaintenanceModel{}, id)
}

func (r *Repository) GetMaintenance(ctx context.Context, id uint) (domain.Maintenance, error) {
	var m MaintenanceModel
	err := r.db.WithContext(ctx).Scopes(withImpactCount).Where("notices_maintenance.id = ?", id).First(&m).Error
	if err != nil {
		return domain.Maintenance{}, mapErr(err)
	}
	return toDomainMaintenance(m), nil
}

func (r *Repository) ListMaintenances(ctx context.Context, filter domain.EventFilter) ([]domain.Maintenance, int64, error) {
	q := applyEventFilter(r.db.WithContext(ctx).Model(&MaintenanceModel{}), maintenanceTable, filter)
	rows, total, err := paginate[MaintenanceModel](q, eventOrder(maintenanceTable, filter.OrderBy), filter.Limit, filter.Offset, withImpactCount)
	if err != nil {
		return nil, 0, err
	}
	out := make([]domain.Maintenance, 0, len(rows))
	for _, m := range rows {
		out = append(out, toDomainMaintenance(m))
	}
	return out, total, nil
}

func toDomainOutage(m OutageModel) domain.Outage {
	return domain.Outage{
		Event: domain.Event{
			ID:               m.ID,
			Name:             m.Name,
			Summary:          m.Summary,
			ProviderID:       m.ProviderID,
			Provider:         toDomainProvider(m.Provider),
			Start:            m.Start,
			OriginalTimezone: m.OriginalTimezone,
			InternalTicket:   m.InternalTicket,
			Acknowledged:     m.Acknowledged,
			Comments:         m.Comments,
			Tags:             tagsFromJSON(m.Tags),
			CustomFields:     mapFromJSON(m.CustomFieldData),
			CreatedAt:        m.CreatedAt,
			UpdatedAt:        m.UpdatedAt,
		},
		End:                   m.End,
		EstimatedTimeToRepair: m.EstimatedTimeToRepair,
		Status:                domain.OutageStatus(m.Status),
	}
}

func fromDomainOutage(v domain.Outage) OutageModel {
	return OutageModel{
		ID:                    v.ID,
		Name:                  v.Name,
		Summary:               v.Summary,
		ProviderID:            v.ProviderID,
		Start:                 v.Start.UTC(),
		End:                   utcPtr(v.End),
		EstimatedTimeToRepair: utcPtr(v.EstimatedTimeToRepair),
		Status:                string(v.Status),
		OriginalTimezone:      v.OriginalTimezone,
		InternalTicket:        v.InternalTicket,
		Acknowledged:          v.Acknowledged,
		Comments:              v.Comments,
		Tags:                  toJSON(v.Tags),
		CustomFieldData:       toJSON(v.CustomFields),
		CreatedAt:             v.CreatedAt,
	}
}

func (r *Repository) CreateOutage(ctx context.Context, value domain.Outage) (domain.Outage, error) {
	m := fromDomainOutage(value)
	if err := r.create(ctx, &m); err != nil {
		return domain.Outage{}, err
	}
	return r.GetOutage(ctx, m.ID)
}

func (r *Repository) UpdateOutage(ctx context.Context, value domain.Outage) (domain.Outage, error) {
	m := fromDomainOutage(value)
	if err := r.update(ctx, &m); err != nil {
		return domain.Outage{}, err
	}
	return r.GetOutage(ctx, value.ID)
}

func (r *Repository) DeleteOutage(ctx context.Context, id uint) error {
	return r.deleteEvent(ctx, domain.OutageType, &OutageModel{}, id)
}

func (r *Repository) GetOutage(ctx context.Context, id uint) (domain.Outage, error) {
	var m OutageModel
	if err := r.db.WithContext(ctx).Preload("Provider").First(&m, id).Error; err != nil {
		return domain.Outage{}, mapErr(err)
	}
	return toDomainOutage(m), nil
}

func (r *Repository) ListOutages(ctx context.Context, filter domain.EventFilter) ([]domain.Outage, int64, error) {
	q := applyEventFilter(r.db.WithContext(ctx).Model(&OutageModel{}), outageTable, filter)
	rows, total, err := paginate[OutageModel](q, eventOrder(outageTable, filter.OrderBy), filter.Limit, filter.Offset, preloadProvider)
	if err != nil {
		return nil, 0, err
	}
	out := make([]domain.Outage, 0, len(rows))
	for _, m := range rows {
		out = append(out, toDomainOutage(m))
	}
	return out, total, nil
}

// deleteEvent removes the event row together with the impacts and
// notifications that point at it through its content type.
func (r *Repository) deleteEvent(ctx context.Context, name domain.ContentTypeName, model any, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ctSub := tx.Model(&ContentTypeModel{}).Select("id").Where("app_label = ? AND model = ?", name.AppLabel, name.Model)
		if err := tx.Where("event_content_type_id IN (?) AND event_object_id = ?", ctSub, id).Delete(&ImpactModel{}).Error; err != nil {
			return err
		}
		if err := tx.Where("event_content_type_id IN (?) AND event_object_id = ?", ctSub, id).Delete(&EventNotificationModel{}).Error; err != nil {
			return err
		}
		return (&Repository{db: tx}).deleteByID(ctx, model, id)
	})
}
