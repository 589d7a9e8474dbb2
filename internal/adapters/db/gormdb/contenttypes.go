package gormdb

import (
	"context"
	"fmt"
	"strings"

	"github.com/atvirokodosprendimai/notices/internal/domain"
)

func toDomainContentType(m ContentTypeModel) domain.ContentType {
	return domain.ContentType{ID: m.ID, AppLabel: m.AppLabel, Model: m.Model}
}

func (r *Repository) ListContentTypes(ctx context.Context) ([]domain.ContentType, error) {
	rows := make([]ContentTypeModel, 0)
	if err := r.db.WithContext(ctx).Order("app_label ASC, model ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]domain.ContentType, 0, len(rows))
	for _, m := range rows {
		out = append(out, toDomainContentType(m))
	}
	return out, nil
}

func (r *Repository) GetContentType(ctx context.Context, name domain.ContentTypeName) (domain.ContentType, error) {
	var m ContentTypeModel
	err := r.db.WithContext(ctx).
		Where("app_label = ? AND model = ?", strings.ToLower(name.AppLabel), strings.ToLower(name.Model)).
		First(&m).Error
	if err != nil {
		return domain.ContentType{}, mapErr(err)
	}
	return toDomainContentType(m), nil
}

func (r *Repository) GetContentTypeByID(ctx context.Context, id uint) (domain.ContentType, error) {
	var m ContentTypeModel
	if err := r.db.WithContext(ctx).First(&m, id).Error; err != nil {
		return domain.ContentType{}, mapErr(err)
	}
	return toDomainContentType(m), nil
}

type reprSource struct {
	table  string
	column string
}

var reprSources = map[string]reprSource{
	domain.ProviderType.String():           {table: "providers", column: "name"},
	domain.CircuitType.String():            {table: "circuits", column: "cid"},
	domain.SiteType.String():               {table: "sites", column: "name"},
	domain.PowerFeedType.String():          {table: "power_feeds", column: "name"},
	domain.DeviceType.String():             {table: "devices", column: "name"},
	domain.MaintenanceType.String():        {table: "notices_maintenance", column: "name"},
	domain.OutageType.String():             {table: "notices_outage", column: "name"},
	domain.CircuitMaintenanceType.String(): {table: "notices_circuitmaintenance", column: "name"},
	domain.CircuitOutageType.String():      {table: "notices_circuitoutage", column: "name"},
}

// ObjectReprs returns display strings keyed by id. Ids missing from the
// result do not exist.
func (r *Repository) ObjectReprs(ctx context.Context, ct domain.ContentType, ids []uint) (map[uint]string, error) {
	out := make(map[uint]string, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	src, ok := reprSources[ct.Name().String()]
	if !ok {
		return nil, fmt.Errorf("content type %s is not addressable", ct)
	}
	type row struct {
		ID   uint
		Repr string
	}
	rows := make([]row, 0, len(ids))
	err := r.db.WithContext(ctx).
		Table(src.table).
		Select(fmt.Sprintf("id, %s AS repr", src.column)).
		Where("id IN ?", ids).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.ID] = row.Repr
	}
	return out, nil
}

func (r *Repository) SearchObjects(ctx context.Context, ct domain.ContentType, query string, limit int) ([]domain.ObjectRef, error) {
	src, ok := reprSources[ct.Name().String()]
	if !ok {
		return nil, fmt.Errorf("content type %s is not addressable", ct)
	}
	type row struct {
		ID   uint
		Repr string
	}
	q := r.db.WithContext(ctx).Table(src.table).Select(fmt.Sprintf("id, %s AS repr", src.column))
	if strings.TrimSpace(query) != "" {
		q = q.Where(fmt.Sprintf("LOWER(%s) LIKE ?", src.column), likePattern(query))
	}
	if limit <= 0 {
		limit = 100
	}
	rows := make([]row, 0)
	if err := q.Order(src.column + " ASC").Limit(limit).Scan(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]domain.ObjectRef, 0, len(rows))
	for _, row := range rows {
		out = append(out, domain.ObjectRef{Type: ct, ID: row.ID, Display: row.Repr})
	}
	return out, nil
}
