package domain

import "time"

type ContentType struct {
	ID       uint
	AppLabel string
	Model    string
}

func (c ContentType) String() string {
	return c.AppLabel + "." + c.Model
}

type Provider struct {
	ID          uint
	Name        string
	Slug        string
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type Circuit struct {
	ID          uint
	CID         string
	ProviderID  uint
	Provider    Provider
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type Site struct {
	ID          uint
	Name        string
	Slug        string
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type PowerFeed struct {
	ID        uint
	Name      string
	SiteID    *uint
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Device struct {
	ID        uint
	Name      string
	SiteID    *uint
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ObjectRef is a brief pointer to any record addressed by content type.
type ObjectRef struct {
	Type    ContentType
	ID      uint
	Display string
}

type User struct {
	ID           uint
	Email        string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type AuthSession struct {
	ID        uint
	UserID    uint
	TokenHash string
	ExpiresAt time.Time
	CreatedAt time.Time
}

type APIToken struct {
	ID        uint
	UserID    uint
	Name      string
	TokenHash string
	ExpiresAt *time.Time
	CreatedAt time.Time
}

type Role struct {
	ID        uint
	Key       string
	Name      string
	CreatedAt time.Time
}

// Identity is the resolved caller. Anonymous identities carry only the
// configured exempt permissions.
type Identity struct {
	User        User
	Anonymous   bool
	Permissions map[string]struct{}
}

const (
	ChangeActionCreate = "create"
	ChangeActionUpdate = "update"
	ChangeActionDelete = "delete"
)

type ObjectChange struct {
	ID                uint
	UserID            *uint
	UserName          string
	Action            string
	ChangedObjectType string
	ChangedObjectID   uint
	RelatedObjectType string
	RelatedObjectID   *uint
	ObjectRepr        string
	PrechangeData     map[string]any
	PostchangeData    map[string]any
	Time              time.Time
}

type ObjectChangeFilter struct {
	ObjectType  string
	ObjectID    *uint
	WithRelated bool
	UserID      *uint
	Limit       int
	Offset      int
}
