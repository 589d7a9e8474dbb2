package gormdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/atvirokodosprendimai/notices/internal/domain"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Atomic(ctx context.Context, fn func(tx domain.Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Repository{db: tx})
	})
}

func mapErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.ErrNotFound
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("%w: %v", domain.ErrConflict, err)
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "unique constraint failed") || strings.Contains(msg, "duplicate key") {
		return fmt.Errorf("%w: %v", domain.ErrConflict, err)
	}
	return err
}

// paginate counts the filtered rows before ordering, since PostgreSQL rejects
// ORDER BY on a bare COUNT(*). Scopes carrying selects and preloads are
// applied to the page query only.
func paginate[M any](q *gorm.DB, order string, limit, offset int, scopes ...func(*gorm.DB) *gorm.DB) ([]M, int64, error) {
	var total int64
	if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	q = q.Scopes(scopes...).Order(order)
	if limit > 0 {
		q = q.Limit(limit)
	}
	if offset > 0 {
		q = q.Offset(offset)
	}
	rows := make([]M, 0)
	if err := q.Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

func likePattern(q string) string {
	return "%" + strings.ToLower(strings.TrimSpace(q)) + "%"
}

func toJSON(v any) datatypes.JSON {
	if v == nil {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return datatypes.JSON(b)
}

func tagsFromJSON(raw datatypes.JSON) []string {
	out := make([]string, 0)
	if len(raw) == 0 {
		return out
	}
	_ = json.Unmarshal(raw, &out)
	return out
}

func mapFromJSON(raw datatypes.JSON) map[string]any {
	out := map[string]any{}
	if len(raw) == 0 {
		return out
	}
	_ = json.Unmarshal(raw, &out)
	return out
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.UTC()
	return &v
}

func (r *Repository) create(ctx context.Context, value any) error {
	return mapErr(r.db.WithContext(ctx).Omit(clause.Associations).Create(value).Error)
}

func (r *Repository) update(ctx context.Context, value any) error {
	return mapErr(r.db.WithContext(ctx).Omit(clause.Associations, "created_at").Save(value).Error)
}

func (r *Repository) deleteByID(ctx context.Context, model any, id uint) error {
	res := r.db.WithContext(ctx).Delete(model, id)
	if res.Error != nil {
		return mapErr(res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *Repository) CreateUser(ctx context.Context, value domain.User) (domain.User, error) {
	m := UserModel{Email: strings.ToLower(strings.TrimSpace(value.Email)), PasswordHash: value.PasswordHash}
	if err := r.create(ctx, &m); err != nil {
		return domain.User{}, err
	}
	return toDomainUser(m), nil
}

func (r *Repository) CountUsers(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&UserModel{}).Count(&count).Error
	return count, err
}

func (r *Repository) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	var m UserModel
	if err := r.db.WithContext(ctx).Where("email = ?", strings.ToLower(strings.TrimSpace(email))).First(&m).Error; err != nil {
		return domain.User{}, mapErr(err)
	}
	return toDomainUser(m), nil
}

func (r *Repository) GetUserByID(ctx context.Context, id uint) (domain.User, error) {
	var m UserModel
	if err := r.db.WithContext(ctx).First(&m, id).Error; err != nil {
		return domain.User{}, mapErr(err)
	}
	return toDomainUser(m), nil
}

func (r *Repository) ListUsers(ctx context.Context, query string, limit int) ([]domain.User, error) {
	q := r.db.WithContext(ctx).Model(&UserModel{})
	if strings.TrimSpace(query) != "" {
		q = q.Where("LOWER(email) LIKE ?", likePattern(query))
	}
	rows := make([]UserModel, 0)
	if err := q.Order("id DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, err
	}
	result := make([]domain.User, 0, len(rows))
	for _, m := range rows {
		result = append(result, toDomainUser(m))
	}
	return result, nil
}

func toDomainUser(m UserModel) domain.User {
	return domain.User{ID: m.ID, Email: m.Email, PasswordHash: m.PasswordHash, CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt}
}

func (r *Repository) CreateSession(ctx context.Context, value domain.AuthSession) (domain.AuthSession, error) {
	m := SessionModel{UserID: value.UserID, TokenHash: value.TokenHash, ExpiresAt: value.ExpiresAt.UTC()}
	if err := r.create(ctx, &m); err != nil {
		return domain.AuthSession{}, err
	}
	return domain.AuthSession{ID: m.ID, UserID: m.UserID, TokenHash: m.TokenHash, ExpiresAt: m.ExpiresAt, CreatedAt: m.CreatedAt}, nil
}

func (r *Repository) GetSessionByTokenHash(ctx context.Context, tokenHash string) (domain.AuthSession, error) {
	var m SessionModel
	if err := r.db.WithContext(ctx).Where("token_hash = ?", tokenHash).First(&m).Error; err != nil {
		return domain.AuthSession{}, mapErr(err)
	}
	return domain.AuthSession{ID: m.ID, UserID: m.UserID, TokenHash: m.TokenHash, ExpiresAt: m.ExpiresAt, CreatedAt: m.CreatedAt}, nil
}

func (r *Repository) DeleteSessionByTokenHash(ctx context.Context, tokenHash string) error {
	return r.db.WithContext(ctx).Where("token_hash = ?", tokenHash).Delete(&SessionModel{}).Error
}

func (r *Repository) CreateAPIToken(ctx context.Context, value domain.APIToken) (domain.APIToken, error) {
	m := APITokenModel{UserID: value.UserID, Name: value.Name, TokenHash: value.TokenHash, ExpiresAt: utcPtr(value.ExpiresAt)}
	if err := r.create(ctx, &m); err != nil {
		return domain.APIToken{}, err
	}
	return domain.APIToken{ID: m.ID, UserID: m.UserID, Name: m.Name, TokenHash: m.TokenHash, ExpiresAt: m.ExpiresAt, CreatedAt: m.CreatedAt}, nil
}

func (r *Repository) GetAPITokenByTokenHash(ctx context.Context, tokenHash string) (domain.APIToken, error) {
	var m APITokenModel
	if err := r.db.WithContext(ctx).Where("token_hash = ?", tokenHash).First(&m).Error; err != nil {
		return domain.APIToken{}, mapErr(err)
	}
	return domain.APIToken{ID: m.ID, UserID: m.UserID, Name: m.Name, TokenHash: m.TokenHash, ExpiresAt: m.ExpiresAt, CreatedAt: m.CreatedAt}, nil
}

func (r *Repository) CreateRoleIfMissing(ctx context.Context, key, name string) (uint, error) {
	m := RoleModel{Key: key, Name: name}
	err := r.db.WithContext(ctx).Where("key = ?", key).FirstOrCreate(&m).Error
	if err != nil {
		return 0, err
	}
	return m.ID, nil
}

func (r *Repository) ListRoles(ctx context.Context) ([]domain.Role, error) {
	rows := make([]RoleModel, 0)
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	result := make([]domain.Role, 0, len(rows))
	for _, m := range rows {
		result = append(result, domain.Role{ID: m.ID, Key: m.Key, Name: m.Name, CreatedAt: m.CreatedAt})
	}
	return result, nil
}

func (r *Repository) CreatePermissionIfMissing(ctx context.Context, key string) (uint, error) {
	m := PermissionModel{Key: key}
	err := r.db.WithContext(ctx).Where("key = ?", key).FirstOrCreate(&m).Error
	if err != nil {
		return 0, err
	}
	return m.ID, nil
}

func (r *Repository) GrantPermissionToRole(ctx context.Context, roleID, permissionID uint) error {
	m := RolePermissionModel{RoleID: roleID, PermissionID: permissionID}
	return r.db.WithContext(ctx).Where("role_id = ? AND permission_id = ?", roleID, permissionID).FirstOrCreate(&m).Error
}

func (r *Repository) AssignRoleToUser(ctx context.Context, userID, roleID uint) error {
	m := UserRoleModel{UserID: userID, RoleID: roleID}
	return r.db.WithContext(ctx).Where("user_id = ? AND role_id = ?", userID, roleID).FirstOrCreate(&m).Error
}

func (r *Repository) GetPermissionsByUserID(ctx context.Context, userID uint) ([]string, error) {
	type row struct{ Key string }
	rows := make([]row, 0)
	err := r.db.WithContext(ctx).Raw(`
SELECT DISTINCT p.key
FROM permissions p
JOIN role_permissions rp ON rp.permission_id = p.id
JOIN user_roles ur ON ur.role_id = rp.role_id
WHERE ur.user_id = ?
`, userID).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	result := make([]string, 0, len(rows))
	for _, r := range rows {
		result = append(result, r.Key)
	}
	return result, nil
}

func (r *Repository) CreateObjectChange(ctx context.Context, value domain.ObjectChange) error {
	at := value.Time
	if at.IsZero() {
		at = time.Now()
	}
	m := ObjectChangeModel{
		UserID:            value.UserID,
		UserName:          value.UserName,
		Action:            value.Action,
		ChangedObjectType: value.ChangedObjectType,
		ChangedObjectID:   value.ChangedObjectID,
		RelatedObjectType: value.RelatedObjectType,
		RelatedObjectID:   value.RelatedObjectID,
		ObjectRepr:        value.ObjectRepr,
		PrechangeData:     toJSON(value.PrechangeData),
		PostchangeData:    toJSON(value.PostchangeData),
		Time:              at.UTC(),
	}
	return r.create(ctx, &m)
}

func (r *Repository) ListObjectChanges(ctx context.Context, filter domain.ObjectChangeFilter) ([]domain.ObjectChange, int64, error) {
	q := r.db.WithContext(ctx).Model(&ObjectChangeModel{})
	if filter.ObjectType != "" && filter.ObjectID != nil {
		if filter.WithRelated {
			q = q.Where("(changed_object_type = ? AND changed_object_id = ?) OR (related_object_type = ? AND related_object_id = ?)",
				filter.ObjectType, *filter.ObjectID, filter.ObjectType, *filter.ObjectID)
		} else {
			q = q.Where("changed_object_type = ? AND changed_object_id = ?", filter.ObjectType, *filter.ObjectID)
		}
	} else if filter.ObjectType != "" {
		q = q.Where("changed_object_type = ?", filter.ObjectType)
	}
	if filter.UserID != nil {
		q = q.Where("user_id = ?", *filter.UserID)
	}
	rows, total, err := paginate[ObjectChangeModel](q, "time DESC, id DESC", filter.Limit, filter.Offset)
	if err != nil {
		return nil, 0, err
	}
	result := make([]domain.ObjectChange, 0, len(rows))
	for _, m := range rows {
		result = append(result, domain.ObjectChange{
			ID:                m.ID,
			UserID:            m.UserID,
			UserName:          m.UserName,
			Action:            m.Action,
			ChangedObjectType: m.ChangedObjectType,
			ChangedObjectID:   m.ChangedObjectID,
			RelatedObjectType: m.RelatedObjectType,
			RelatedObjectID:   m.RelatedObjectID,
			ObjectRepr:        m.ObjectRepr,
			PrechangeData:     mapFromJSON(m.PrechangeData),
			PostchangeData:    mapFromJSON(m.PostchangeData),
			Time:              m.Time,
		})
	}
	return result, total, nil
}
