package gormdb

import (
	"context"
	"fmt"
	"strings"

	"github.com/atvirokodosprendimai/notices/internal/domain"
	"gorm.io/gorm"
)

const (
	circuitMaintenanceTable = "notices_circuitmaintenance"
	circuitOutageTable      = "notices_circuitoutage"
)

func withCircuitImpactCount(q *gorm.DB) *gorm.DB {
	return q.Select(`notices_circuitmaintenance.*, (
	SELECT COUNT(*) FROM notices_circuitmaintenanceimpact x
	WHERE x.circuitmaintenance_id = notices_circuitmaintenance.id
) AS impact_count`).Preload("Provider")
}

func applyLegacyFilter(q *gorm.DB, table string, f domain.LegacyFilter) *gorm.DB {
	if strings.TrimSpace(f.Name) != "" {
		q = q.Where(fmt.Sprintf("LOWER(%s.name) LIKE ?", table), likePattern(f.Name))
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
	if f.StartAfter != nil {
		q = q.Where(fmt.Sprintf("%s.start >= ?", table), f.StartAfter.UTC())
	}
	if f.EndBefore != nil {
		q = q.Where(fmt.Sprintf(`%s."end" <= ?`, table), f.EndBefore.UTC())
	}
	return q
}

func toDomainCircuitMaintenance(m CircuitMaintenanceModel) domain.CircuitMaintenance {
	return domain.CircuitMaintenance{
		ID:             m.ID,
		ProviderID:     m.ProviderID,
		Provider:       toDomainProvider(m.Provider),
		Name:           m.Name,
		Summary:        m.Summary,
		Status:         domain.MaintenanceStatus(m.Status),
		Start:          m.Start,
		End:            m.End,
		InternalTicket: m.InternalTicket,
		Acknowledged:   m.Acknowledged,
		Comments:       m.Comments,
		ImpactCount:    m.ImpactCount,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
}

func (r *Repository) CreateCircuitMaintenance(ctx context.Context, value domain.CircuitMaintenance) (domain.CircuitMaintenance, error) {
	m := CircuitMaintenanceModel{
		ProviderID:     value.ProviderID,
		Name:           value.Name,
		Summary:        value.Summary,
		Status:         string(value.Status),
		Start:          value.Start.UTC(),
		End:            value.End.UTC(),
		InternalTicket: value.InternalTicket,
		Acknowledged:   value.Acknowledged,
		Comments:       value.Comments,
	}
	if err := r.create(ctx, &m); err != nil {
		return domain.CircuitMaintenance{}, err
	}
	return r.GetCircuitMaintenance(ctx, m.ID)
}

func (r *Repository) UpdateCircuitMaintenance(ctx context.Context, value domain.CircuitMaintenance) (domain.CircuitMaintenance, error) {
	m := CircuitMaintenanceModel{
		ID:             value.ID,
		ProviderID:     value.ProviderID,
		Name:           value.Name,
		Summary:        value.Summary,
		Status:         string(value.Status),
		Start:          value.Start.UTC(),
		End:            value.End.UTC(),
		InternalTicket: value.InternalTicket,
		Acknowledged:   value.Acknowledged,
		Comments:       value.Comments,
		CreatedAt:      value.CreatedAt,
	}
	if err := r.update(ctx, &m); err != nil {
		return domain.CircuitMaintenance{}, err
	}
	return r.GetCircuitMaintenance(ctx, value.ID)
}

func (r *Repository) DeleteCircuitMaintenance(ctx context.Context, id uint) error {
	return r.deleteByID(ctx, &CircuitMaintenanceModel{}, id)
}

func (r *Repository) GetCircuitMaintenance(ctx context.Context, id uint) (domain.CircuitMaintenance, error) {
	var m CircuitMaintenanceModel
	err := r.db.WithContext(ctx).Scopes(withCircuitImpactCount).Where("notices_circuitmaintenance.id = ?", id).First(&m).Error
	if err != nil {
		return domain.CircuitMaintenance{}, mapErr(err)
	}
	return toDomainCircuitMaintenance(m), nil
}

func (r *Repository) ListCircuitMaintenances(ctx context.Context, filter domain.LegacyFilter) ([]domain.CircuitMaintenance, int64, error) {
	q := applyLegacyFilter(r.db.WithContext(ctx).Model(&CircuitMaintenanceModel{}), circuitMaintenanceTable, filter)
	rows, total, err := paginate[CircuitMaintenanceModel](q, "notices_circuitmaintenance.start DESC, notices_circuitmaintenance.id DESC", filter.Limit, filter.Offset, withCircuitImpactCount)
	if err != nil {
		return nil, 0, err
	}
	out := make([]domain.CircuitMaintenance, 0, len(rows))
	for _, m := range rows {
		out = append(out, toDomainCircuitMaintenance(m))
	}
	return out, total, nil
}

func toDomainCircuitOutage(m CircuitOutageModel) domain.CircuitOutage {
	return domain.CircuitOutage{
		ID:                    m.ID,
		ProviderID:            m.ProviderID,
		Provider:              toDomainProvider(m.Provider),
		Name:                  m.Name,
		Summary:               m.Summary,
		Status:                domain.OutageStatus(m.Status),
		Start:                 m.Start,
		End:                   m.End,
		EstimatedTimeToRepair: m.EstimatedTimeToRepair,
		InternalTicket:        m.InternalTicket,
		Acknowledged:          m.Acknowledged,
		Comments:              m.Comments,
		CreatedAt:             m.CreatedAt,
		UpdatedAt:             m.UpdatedAt,
	}
}

func fromDomainCircuitOutage(v domain.CircuitOutage) CircuitOutageModel {
	return CircuitOutageModel{
		ID:                    v.ID,
		ProviderID:            v.ProviderID,
		Name:                  v.Name,
		Summary:               v.Summary,
		Status:                string(v.Status),
		Start:                 v.Start.UTC(),
		End:                   utcPtr(v.End),
		EstimatedTimeToRepair: utcPtr(v.EstimatedTimeToRepair),
		InternalTicket:        v.InternalTicket,
		Acknowledged:          v.Acknowledged,
		Comments:              v.Comments,
		CreatedAt:             v.CreatedAt,
	}
}

func (r *Repository) CreateCircuitOutage(ctx context.Context, value domain.CircuitOutage) (domain.CircuitOutage, error) {
	m := fromDomainCircuitOutage(value)
	if err := r.create(ctx, &m); err != nil {
		return domain.CircuitOutage{}, err
	}
	return r.GetCircuitOutage(ctx, m.ID)
}

func (r *Repository) UpdateCircuitOutage(ctx context.Context, value domain.CircuitOutage) (domain.CircuitOutage, error) {
	m := fromDomainCircuitOutage(value)
	if err := r.update(ctx, &m); err != nil {
		return domain.CircuitOutage{}, err
	}
	return r.GetCircuitOutage(ctx, value.ID)
}

func (r *Repository) DeleteCircuitOutage(ctx context.Context, id uint) error {
	return r.deleteByID(ctx, &CircuitOutageModel{}, id)
}

func (r *Repository) GetCircuitOutage(ctx context.Context, id uint) (domain.CircuitOutage, error) {
	var m CircuitOutageModel
	if err := r.db.WithContext(ctx).Preload("Provider").First(&m, id).Error; err != nil {
		return domain.CircuitOutage{}, mapErr(err)
	}
	return toDomainCircuitOutage(m), nil
}

func (r *Repository) ListCircuitOutages(ctx context.Context, filter domain.LegacyFilter) ([]domain.CircuitOutage, int64, error) {
	q := applyLegacyFilter(r.db.WithContext(ctx).Model(&CircuitOutageModel{}), circuitOutageTable, filter)
	rows, total, err := paginate[CircuitOutageModel](q, "notices_circuitoutage.start DESC, notices_circuitoutage.id DESC", filter.Limit, filter.Offset, preloadProvider)
	if err != nil {
		return nil, 0, err
	}
	out := make([]domain.CircuitOutage, 0, len(rows))
	for _, m := range rows {
		out = append(out, toDomainCircuitOutage(m))
	}
	return out, total, nil
}

func preloadCircuit(q *gorm.DB) *gorm.DB {
	return q.Preload("Circuit.Provider")
}

func toDomainCircuitMaintenanceImpact(m CircuitMaintenanceImpactModel) domain.CircuitMaintenanceImpact {
	out := domain.CircuitMaintenanceImpact{
		ID:                   m.ID,
		CircuitMaintenanceID: m.CircuitMaintenanceID,
		CircuitID:            m.CircuitID,
		Circuit:              toDomainCircuit(m.Circuit),
		CreatedAt:            m.CreatedAt,
		UpdatedAt:            m.UpdatedAt,
	}
	if m.Impact != nil {
		out.Impact = domain.ImpactLevel(*m.Impact)
	}
	return out
}

func fromDomainCircuitMaintenanceImpact(v domain.CircuitMaintenanceImpact) CircuitMaintenanceImpactModel {
	m := CircuitMaintenanceImpactModel{
		ID:                   v.ID,
		CircuitMaintenanceID: v.CircuitMaintenanceID,
		CircuitID:            v.CircuitID,
		CreatedAt:            v.CreatedAt,
	}
	if v.Impact != "" {
		level := string(v.Impact)
		m.Impact = &level
	}
	return m
}

func (r *Repository) CreateCircuitMaintenanceImpact(ctx context.Context, value domain.CircuitMaintenanceImpact) (domain.CircuitMaintenanceImpact, error) {
	m := fromDomainCircuitMaintenanceImpact(value)
	if err := r.create(ctx, &m); err != nil {
		return domain.CircuitMaintenanceImpact{}, err
	}
	return r.GetCircuitMaintenanceImpact(ctx, m.ID)
}

func (r *Repository) UpdateCircuitMaintenanceImpact(ctx context.Context, value domain.CircuitMaintenanceImpact) (domain.CircuitMaintenanceImpact, error) {
	m := fromDomainCircuitMaintenanceImpact(value)
	if err := r.update(ctx, &m); err != nil {
		return domain.CircuitMaintenanceImpact{}, err
	}
	return r.GetCircuitMaintenanceImpact(ctx, value.ID)
}

func (r *Repository) DeleteCircuitMaintenanceImpact(ctx context.Context, id uint) error {
	return r.deleteByID(ctx, &CircuitMaintenanceImpactModel{}, id)
}

func (r *Repository) GetCircuitMaintenanceImpact(ctx context.Context, id uint) (domain.CircuitMaintenanceImpact, error) {
	var m CircuitMaintenanceImpactModel
	if err := r.db.WithContext(ctx).Scopes(preloadCircuit).First(&m, id).Error; err != nil {
		return domain.CircuitMaintenanceImpact{}, mapErr(err)
	}
	return toDomainCircuitMaintenanceImpact(m), nil
}

func (r *Repository) ListCircuitMaintenanceImpacts(ctx context.Context, filter domain.LegacyFilter) ([]domain.CircuitMaintenanceImpact, int64, error) {
	q := r.db.WithContext(ctx).Model(&CircuitMaintenanceImpactModel{})
	if filter.ParentID != nil {
		q = q.Where("circuitmaintenance_id = ?", *filter.ParentID)
	}
	rows, total, err := paginate[CircuitMaintenanceImpactModel](q, "id ASC", filter.Limit, filter.Offset, preloadCircuit)
	if err != nil {
		return nil, 0, err
	}
	out := make([]domain.CircuitMaintenanceImpact, 0, len(rows))
	for _, m := range rows {
		out = append(out, toDomainCircuitMaintenanceImpact(m))
	}
	return out, total, nil
}

func toDomainCircuitMaintenanceNotification(m CircuitMaintenanceNotificationModel) domain.CircuitMaintenanceNotification {
	return domain.CircuitMaintenanceNotification{
		ID:                   m.ID,
		CircuitMaintenanceID: m.CircuitMaintenanceID,
		Email:                m.Email,
		EmailBody:            m.EmailBody,
		Subject:              m.Subject,
		EmailFrom:            m.EmailFrom,
		EmailReceived:        m.EmailReceived,
		CreatedAt:            m.CreatedAt,
		UpdatedAt:            m.UpdatedAt,
	}
}

func fromDomainCircuitMaintenanceNotification(v domain.CircuitMaintenanceNotification) CircuitMaintenanceNotificationModel {
	return CircuitMaintenanceNotificationModel{
		ID:                   v.ID,
		CircuitMaintenanceID: v.CircuitMaintenanceID,
		Email:                v.Email,
		EmailBody:            v.EmailBody,
		Subject:              v.Subject,
		EmailFrom:            v.EmailFrom,
		EmailReceived:        v.EmailReceived.UTC(),
		CreatedAt:            v.CreatedAt,
	}
}

func (r *Repository) CreateCircuitMaintenanceNotification(ctx context.Context, value domain.CircuitMaintenanceNotification) (domain.CircuitMaintenanceNotification, error) {
	m := fromDomainCircuitMaintenanceNotification(value)
	if err := r.create(ctx, &m); err != nil {
		return domain.CircuitMaintenanceNotification{}, err
	}
	return toDomainCircuitMaintenanceNotification(m), nil
}

func (r *Repository) UpdateCircuitMaintenanceNotification(ctx context.Context, value domain.CircuitMaintenanceNotification) (domain.CircuitMaintenanceNotification, error) {
	m := fromDomainCircuitMaintenanceNotification(value)
	if err := r.update(ctx, &m); err != nil {
		return domain.CircuitMaintenanceNotification{}, err
	}
	return r.GetCircuitMaintenanceNotification(ctx, value.ID)
}

func (r *Repository) DeleteCircuitMaintenanceNotification(ctx context.Context, id uint) error {
	return r.deleteByID(ctx, &CircuitMaintenanceNotificationModel{}, id)
}

func (r *Repository) GetCircuitMaintenanceNotification(ctx context.Context, id uint) (domain.CircuitMaintenanceNotification, error) {
	var m CircuitMaintenanceNotificationModel
	if err := r.db.WithContext(ctx).First(&m, id).Error; err != nil {
		return domain.CircuitMaintenanceNotification{}, mapErr(err)
	}
	return toDomainCircuitMaintenanceNotification(m), nil
}

func (r *Repository) ListCircuitMaintenanceNotifications(ctx context.Context, filter domain.LegacyFilter) ([]domain.CircuitMaintenanceNotification, int64, error) {
	q := r.db.WithContext(ctx).Model(&CircuitMaintenanceNotificationModel{})
	if filter.ParentID != nil {
		q = q.Where("circuitmaintenance_id = ?", *filter.ParentID)
	}
	rows, total, err := paginate[CircuitMaintenanceNotificationModel](q, "email_recieved DESC, id DESC", filter.Limit, filter.Offset)
	if err != nil {
		return nil, 0, err
	}
	out := make([]domain.CircuitMaintenanceNotification, 0, len(rows))
	for _, m := range rows {
		out = append(out, toDomainCircuitMaintenanceNotification(m))
	}
	return out, total, nil
}
