package application

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/atvirokodosprendimai/notices/internal/domain"
	"golang.org/x/crypto/bcrypt"
)

const (
	ActionView   = "view"
	ActionAdd    = "add"
	ActionChange = "change"
	ActionDelete = "delete"
)

var (
	noticeTypes = []domain.ContentTypeName{
		domain.MaintenanceType, domain.OutageType, domain.ImpactType, domain.EventNotificationType,
		domain.CircuitMaintenanceType, domain.CircuitOutageType,
		domain.CircuitMaintenanceImpactType, domain.CircuitMaintenanceNotificationType,
	}
	hostTypes = []domain.ContentTypeName{
		domain.ProviderType, domain.CircuitType, domain.SiteType, domain.PowerFeedType, domain.DeviceType,
		domain.ObjectChangeType,
	}
)

// EnsureDefaultRoles creates the admin, operator and viewer roles. It is safe
// to call on every start.
func (s *Service) EnsureDefaultRoles(ctx context.Context) error {
	grants := map[string][]string{"admin": {"*"}}
	for _, ct := range append(append([]domain.ContentTypeName{}, noticeTypes...), hostTypes...) {
		grants["viewer"] = append(grants["viewer"], domain.Permission(ActionView, ct))
		grants["operator"] = append(grants["operator"], domain.Permission(ActionView, ct))
	}
	for _, ct := range noticeTypes {
		for _, action := range []string{ActionAdd, ActionChange, ActionDelete} {
			grants["operator"] = append(grants["operator"], domain.Permission(action, ct))
		}
	}
	names := map[string]string{"admin": "Administrator", "operator": "Operator", "viewer": "Viewer"}

	return s.repo.Atomic(ctx, func(tx domain.Repository) error {
		for key, perms := range grants {
			roleID, err := tx.CreateRoleIfMissing(ctx, key, names[key])
			if err != nil {
				return err
			}
			for _, perm := range perms {
				permID, err := tx.CreatePermissionIfMissing(ctx, perm)
				if err != nil {
					return err
				}
				if err := tx.GrantPermissionToRole(ctx, roleID, permID); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

func (s *Service) BootstrapAdmin(ctx context.Context, email, password string) error {
	if strings.TrimSpace(email) == "" || strings.TrimSpace(password) == "" {
		return errors.New("bootstrap admin email and password are required")
	}

	count, err := s.repo.CountUsers(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	if err := s.EnsureDefaultRoles(ctx); err != nil {
		return err
	}

	hash, err := hashPassword(password)
	if err != nil {
		return err
	}

	u, err := s.repo.CreateUser(ctx, domain.User{Email: strings.ToLower(strings.TrimSpace(email)), PasswordHash: hash})
	if err != nil {
		return err
	}
	adminRoleID, err := s.repo.CreateRoleIfMissing(ctx, "admin", "Administrator")
	if err != nil {
		return err
	}
	if err := s.repo.AssignRoleToUser(ctx, u.ID, adminRoleID); err != nil {
		return err
	}
	s.log.Info("bootstrap admin created", "user_id", u.ID)
	return nil
}

func (s *Service) LoginWithSession(ctx context.Context, email, password string, ttl time.Duration) (domain.User, string, error) {
	u, err := s.authenticateEmailPassword(ctx, email, password)
	if err != nil {
		return domain.User{}, "", err
	}

	plain, hash, err := newTokenPair()
	if err != nil {
		return domain.User{}, "", err
	}

	_, err = s.repo.CreateSession(ctx, domain.AuthSession{
		UserID:    u.ID,
		TokenHash: hash,
		ExpiresAt: s.now().UTC().Add(ttl),
	})
	if err != nil {
		return domain.User{}, "", err
	}
	return u, plain, nil
}

func (s *Service) LoginWithAPIToken(ctx context.Context, email, password, tokenName string, ttl *time.Duration) (domain.User, string, error) {
	u, err := s.authenticateEmailPassword(ctx, email, password)
	if err != nil {
		return domain.User{}, "", err
	}

	plain, hash, err := newTokenPair()
	if err != nil {
		return domain.User{}, "", err
	}

	var expiresAt *time.Time
	if ttl != nil {
		t := s.now().UTC().Add(*ttl)
		expiresAt = &t
	}

	_, err = s.repo.CreateAPIToken(ctx, domain.APIToken{
		UserID:    u.ID,
		Name:      defaultString(tokenName, "cli"),
		TokenHash: hash,
		ExpiresAt: expiresAt,
	})
	if err != nil {
		return domain.User{}, "", err
	}
	s.log.Info("api token issued", "user_id", u.ID, "name", defaultString(tokenName, "cli"))
	return u, plain, nil
}

func (s *Service) AuthenticateSession(ctx context.Context, token string) (domain.Identity, error) {
	hash := hashToken(token)
	session, err := s.repo.GetSessionByTokenHash(ctx, hash)
	if err != nil {
		return domain.Identity{}, domain.ErrUnauthorized
	}
	if session.ExpiresAt.Before(s.now().UTC()) {
		_ = s.repo.DeleteSessionByTokenHash(ctx, hash)
		return domain.Identity{}, fmt.Errorf("%w: session expired", domain.ErrUnauthorized)
	}
	return s.identityByUserID(ctx, session.UserID)
}

func (s *Service) AuthenticateBearerToken(ctx context.Context, token string) (domain.Identity, error) {
	apit, err := s.repo.GetAPITokenByTokenHash(ctx, hashToken(token))
	if err != nil {
		return domain.Identity{}, domain.ErrUnauthorized
	}
	if apit.ExpiresAt != nil && apit.ExpiresAt.Before(s.now().UTC()) {
		return domain.Identity{}, fmt.Errorf("%w: token expired", domain.ErrUnauthorized)
	}
	return s.identityByUserID(ctx, apit.UserID)
}

func (s *Service) LogoutSession(ctx context.Context, token string) error {
	if strings.TrimSpace(token) == "" {
		return nil
	}
	return s.repo.DeleteSessionByTokenHash(ctx, hashToken(token))
}

// AnonymousIdentity is used for unauthenticated callers when login is not
// required. It carries only the exempt view permissions.
func (s *Service) AnonymousIdentity() domain.Identity {
	perms := make(map[string]struct{}, len(s.opts.ExemptViewPermissions))
	for _, p := range s.opts.ExemptViewPermissions {
		perms[strings.ToLower(strings.TrimSpace(p))] = struct{}{}
	}
	return domain.Identity{Anonymous: true, Permissions: perms}
}

func (s *Service) LoginRequired() bool {
	return s.opts.LoginRequired
}

func (s *Service) Can(identity domain.Identity, permission string) bool {
	if _, ok := identity.Permissions["*"]; ok {
		return true
	}
	_, ok := identity.Permissions[permission]
	return ok
}

func (s *Service) CreateUser(ctx context.Context, email, password, roleKey string) (domain.User, error) {
	if strings.TrimSpace(email) == "" || strings.TrimSpace(password) == "" {
		return domain.User{}, domain.FieldError(domain.NonFieldErrors, "email and password are required")
	}
	hash, err := hashPassword(password)
	if err != nil {
		return domain.User{}, err
	}
	var u domain.User
	err = s.repo.Atomic(ctx, func(tx domain.Repository) error {
		created, err := tx.CreateUser(ctx, domain.User{Email: strings.ToLower(strings.TrimSpace(email)), PasswordHash: hash})
		if err != nil {
			return err
		}
		u = created
		if strings.TrimSpace(roleKey) == "" {
			return nil
		}
		roles, err := tx.ListRoles(ctx)
		if err != nil {
			return err
		}
		for _, r := range roles {
			if r.Key == roleKey {
				return tx.AssignRoleToUser(ctx, u.ID, r.ID)
			}
		}
		return domain.FieldError("role", fmt.Sprintf("Unknown role %q.", roleKey))
	})
	return u, err
}

func (s *Service) ListUsers(ctx context.Context, query string, limit int) ([]domain.User, error) {
	return s.repo.ListUsers(ctx, query, clampLimit(limit))
}

func (s *Service) ListRoles(ctx context.Context) ([]domain.Role, error) {
	return s.repo.ListRoles(ctx)
}

func (s *Service) authenticateEmailPassword(ctx context.Context, email, password string) (domain.User, error) {
	u, err := s.repo.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return domain.User{}, fmt.Errorf("%w: invalid credentials", domain.ErrUnauthorized)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return domain.User{}, fmt.Errorf("%w: invalid credentials", domain.ErrUnauthorized)
	}
	return u, nil
}

func (s *Service) identityByUserID(ctx context.Context, userID uint) (domain.Identity, error) {
	u, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return domain.Identity{}, domain.ErrUnauthorized
	}
	permList, err := s.repo.GetPermissionsByUserID(ctx, userID)
	if err != nil {
		return domain.Identity{}, err
	}
	permMap := make(map[string]struct{}, len(permList))
	for _, p := range permList {
		permMap[p] = struct{}{}
	}
	return domain.Identity{User: u, Permissions: permMap}, nil
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func newTokenPair() (string, string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", "", err
	}
	plain := base64.RawURLEncoding.EncodeToString(raw)
	return plain, hashToken(plain), nil
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return fmt.Sprintf("%x", sum[:])
}

func defaultString(input, fallback string) string {
	if strings.TrimSpace(input) == "" {
		return fallback
	}
	return input
}
