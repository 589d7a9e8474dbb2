package gormdb

import (
	"time"

	"gorm.io/datatypes"
)

type ContentTypeModel struct {
	ID       uint   `gorm:"primaryKey"`
	AppLabel string `gorm:"not null;index:idx_content_types_natural,unique"`
	Model    string `gorm:"not null;index:idx_content_types_natural,unique"`
}

func (ContentTypeModel) TableName() string { return "content_types" }

type ProviderModel struct {
	ID          uint   `gorm:"primaryKey"`
	Name        string `gorm:"not null;uniqueIndex"`
	Slug        string `gorm:"not null;uniqueIndex"`
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (ProviderModel) TableName() string { return "providers" }

type CircuitModel struct {
	ID          uint          `gorm:"primaryKey"`
	CID         string        `gorm:"column:cid;not null;index:idx_circuits_provider_cid,unique"`
	ProviderID  uint          `gorm:"not null;index:idx_circuits_provider_cid,unique"`
	Provider    ProviderModel `gorm:"foreignKey:ProviderID"`
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (CircuitModel) TableName() string { return "circuits" }

type SiteModel struct {
	ID          uint   `gorm:"primaryKey"`
	Name        string `gorm:"not null"`
	Slug        string `gorm:"not null;uniqueIndex"`
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (SiteModel) TableName() string { return "sites" }

type PowerFeedModel struct {
	ID        uint   `gorm:"primaryKey"`
	Name      string `gorm:"not null"`
	SiteID    *uint  `gorm:"index"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (PowerFeedModel) TableName() string { return "power_feeds" }

type DeviceModel struct {
	ID        uint   `gorm:"primaryKey"`
	Name      string `gorm:"not null"`
	SiteID    *uint  `gorm:"index"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (DeviceModel) TableName() string { return "devices" }

type MaintenanceModel struct {
	ID               uint          `gorm:"primaryKey"`
	Name             string        `gorm:"not null"`
	Summary          string        `gorm:"not null"`
	ProviderID       uint          `gorm:"not null;index"`
	Provider         ProviderModel `gorm:"foreignKey:ProviderID"`
	Start            time.Time     `gorm:"not null;index"`
	End              time.Time     `gorm:"not null"`
	Status           string        `gorm:"not null;index"`
	OriginalTimezone string
	InternalTicket   string
	Acknowledged     bool `gorm:"not null;default:false"`
	Comments         string
	Tags             datatypes.JSON
	CustomFieldData  datatypes.JSON
	ImpactCount      int `gorm:"->;-:migration"`
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func (MaintenanceModel) TableName() string { return "notices_maintenance" }

type OutageModel struct {
	ID                    uint          `gorm:"primaryKey"`
	Name                  string        `gorm:"not null"`
	Summary               string        `gorm:"not null"`
	ProviderID            uint          `gorm:"not null;index"`
	Provider              ProviderModel `gorm:"foreignKey:ProviderID"`
	Start                 time.Time     `gorm:"not null;index"`
	End                   *time.Time
	EstimatedTimeToRepair *time.Time
	Status                string `gorm:"not null;index"`
	OriginalTimezone      string
	InternalTicket        string
	Acknowledged          bool `gorm:"not null;default:false"`
	Comments              string
	Tags                  datatypes.JSON
	CustomFieldData       datatypes.JSON
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

func (OutageModel) TableName() string { return "notices_outage" }

type ImpactModel struct {
	ID                  uint             `gorm:"primaryKey"`
	EventContentTypeID  uint             `gorm:"not null;index:idx_impact_unique,unique"`
	EventContentType    ContentTypeModel `gorm:"foreignKey:EventContentTypeID"`
	EventObjectID       uint             `gorm:"not null;index:idx_impact_unique,unique"`
	TargetContentTypeID uint             `gorm:"not null;index:idx_impact_unique,unique"`
	TargetContentType   ContentTypeModel `gorm:"foreignKey:TargetContentTypeID"`
	TargetObjectID      uint             `gorm:"not null;index:idx_impact_unique,unique"`
	Impact              *string
	Tags                datatypes.JSON
	CustomFieldData     datatypes.JSON
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

func (ImpactModel) TableName() string { return "notices_impact" }

type EventNotificationModel struct {
	ID                 uint             `gorm:"primaryKey"`
	EventContentTypeID uint             `gorm:"not null;index:idx_notification_event"`
	EventContentType   ContentTypeModel `gorm:"foreignKey:EventContentTypeID"`
	EventObjectID      uint             `gorm:"not null;index:idx_notification_event"`
	Subject            string           `gorm:"not null"`
	EmailFrom          string           `gorm:"not null"`
	EmailBody          string           `gorm:"not null"`
	EmailReceived      time.Time        `gorm:"not null"`
	Email              []byte
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

func (EventNotificationModel) TableName() string { return "notices_eventnotification" }

type CircuitMaintenanceModel struct {
	ID             uint          `gorm:"primaryKey"`
	ProviderID     uint          `gorm:"not null;index"`
	Provider       ProviderModel `gorm:"foreignKey:ProviderID"`
	Name           string        `gorm:"not null"`
	Summary        string
	Status         string    `gorm:"not null"`
	Start          time.Time `gorm:"not null"`
	End            time.Time `gorm:"not null"`
	InternalTicket string
	Acknowledged   bool `gorm:"not null;default:false"`
	Comments       string
	ImpactCount    int `gorm:"->;-:migration"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (CircuitMaintenanceModel) TableName() string { return "notices_circuitmaintenance" }

type CircuitOutageModel struct {
	ID                    uint          `gorm:"primaryKey"`
	ProviderID            uint          `gorm:"not null;index"`
	Provider              ProviderModel `gorm:"foreignKey:ProviderID"`
	Name                  string        `gorm:"not null"`
	Summary               string
	Status                string    `gorm:"not null"`
	Start                 time.Time `gorm:"not null"`
	End                   *time.Time
	EstimatedTimeToRepair *time.Time
	InternalTicket        string
	Acknowledged          bool `gorm:"not null;default:false"`
	Comments              string
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

func (CircuitOutageModel) TableName() string { return "notices_circuitoutage" }

type CircuitMaintenanceImpactModel struct {
	ID                   uint         `gorm:"primaryKey"`
	CircuitMaintenanceID uint         `gorm:"column:circuitmaintenance_id;not null;index:idx_cm_impact_unique,unique"`
	CircuitID            uint         `gorm:"not null;index:idx_cm_impact_unique,unique"`
	Circuit              CircuitModel `gorm:"foreignKey:CircuitID"`
	Impact               *string
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

func (CircuitMaintenanceImpactModel) TableName() string { return "notices_circuitmaintenanceimpact" }

type CircuitMaintenanceNotificationModel struct {
	ID                   uint `gorm:"primaryKey"`
	CircuitMaintenanceID uint `gorm:"column:circuitmaintenance_id;not null;index"`
	Email                []byte
	EmailBody            string
	Subject              string
	EmailFrom            string
	EmailReceived        time.Time `gorm:"column:email_recieved"`
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

func (CircuitMaintenanceNotificationModel) TableName() string {
	return "notices_circuitmaintenancenotifications"
}

type UserModel struct {
	ID           uint   `gorm:"primaryKey"`
	Email        string `gorm:"not null;uniqueIndex"`
	PasswordHash string `gorm:"not null"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (UserModel) TableName() string { return "users" }

type SessionModel struct {
	ID        uint   `gorm:"primaryKey"`
	UserID    uint   `gorm:"not null;index"`
	TokenHash string `gorm:"not null;uniqueIndex"`
	ExpiresAt time.Time
	CreatedAt time.Time
}

func (SessionModel) TableName() string { return "sessions" }

type APITokenModel struct {
	ID        uint   `gorm:"primaryKey"`
	UserID    uint   `gorm:"not null;index"`
	Name      string `gorm:"not null"`
	TokenHash string `gorm:"not null;uniqueIndex"`
	ExpiresAt *time.Time
	CreatedAt time.Time
}

func (APITokenModel) TableName() string { return "api_tokens" }

type RoleModel struct {
	ID        uint   `gorm:"primaryKey"`
	Key       string `gorm:"not null;uniqueIndex"`
	Name      string `gorm:"not null"`
	CreatedAt time.Time
}

func (RoleModel) TableName() string { return "roles" }

type PermissionModel struct {
	ID        uint   `gorm:"primaryKey"`
	Key       string `gorm:"not null;uniqueIndex"`
	CreatedAt time.Time
}

func (PermissionModel) TableName() string { return "permissions" }

type UserRoleModel struct {
	ID        uint `gorm:"primaryKey"`
	UserID    uint `gorm:"not null;index:idx_user_role,unique"`
	RoleID    uint `gorm:"not null;index:idx_user_role,unique"`
	CreatedAt time.Time
}

func (UserRoleModel) TableName() string { return "user_roles" }

type RolePermissionModel struct {
	ID           uint `gorm:"primaryKey"`
	RoleID       uint `gorm:"not null;index:idx_role_perm,unique"`
	PermissionID uint `gorm:"not null;index:idx_role_perm,unique"`
	CreatedAt    time.Time
}

func (RolePermissionModel) TableName() string { return "role_permissions" }

type ObjectChangeModel struct {
	ID                uint `gorm:"primaryKey"`
	UserID            *uint
	UserName          string
	Action            string `gorm:"not null"`
	ChangedObjectType string `gorm:"not null;index:idx_object_changes_changed"`
	ChangedObjectID   uint   `gorm:"not null;index:idx_object_changes_changed"`
	RelatedObjectType string `gorm:"index:idx_object_changes_related"`
	RelatedObjectID   *uint  `gorm:"index:idx_object_changes_related"`
	ObjectRepr        string
	PrechangeData     datatypes.JSON
	PostchangeData    datatypes.JSON
	Time              time.Time `gorm:"not null;index"`
}

func (ObjectChangeModel) TableName() string { return "object_changes" }
