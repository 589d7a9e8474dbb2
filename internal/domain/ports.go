package domain

import "context"

type Repository interface {
	// Atomic runs fn against a repository bound to a single transaction.
	Atomic(ctx context.Context, fn func(tx Repository) error) error

	ListContentTypes(ctx context.Context) ([]ContentType, error)
	GetContentType(ctx context.Context, name ContentTypeName) (ContentType, error)
	GetContentTypeByID(ctx context.Context, id uint) (ContentType, error)
	ObjectReprs(ctx context.Context, ct ContentType, ids []uint) (map[uint]string, error)
	SearchObjects(ctx context.Context, ct ContentType, query string, limit int) ([]ObjectRef, error)

	CreateProvider(ctx context.Context, value Provider) (Provider, error)
	UpdateProvider(ctx context.Context, value Provider) (Provider, error)
	DeleteProvider(ctx context.Context, id uint) error
	GetProvider(ctx context.Context, id uint) (Provider, error)
	GetProviderBySlug(ctx context.Context, slug string) (Provider, error)
	ListProviders(ctx context.Context, filter InventoryFilter) ([]Provider, int64, error)

	CreateCircuit(ctx context.Context, value Circuit) (Circuit, error)
	UpdateCircuit(ctx context.Context, value Circuit) (Circuit, error)
	DeleteCircuit(ctx context.Context, id uint) error
	GetCircuit(ctx context.Context, id uint) (Circuit, error)
	ListCircuits(ctx context.Context, filter InventoryFilter) ([]Circuit, int64, error)

	CreateSite(ctx context.Context, value Site) (Site, error)
	UpdateSite(ctx context.Context, value Site) (Site, error)
	DeleteSite(ctx context.Context, id uint) error
	GetSite(ctx context.Context, id uint) (Site, error)
	ListSites(ctx context.Context, filter InventoryFilter) ([]Site, int64, error)

	CreatePowerFeed(ctx context.Context, value PowerFeed) (PowerFeed, error)
	UpdatePowerFeed(ctx context.Context, value PowerFeed) (PowerFeed, error)
	DeletePowerFeed(ctx context.Context, id uint) error
	GetPowerFeed(ctx context.Context, id uint) (PowerFeed, error)
	ListPowerFeeds(ctx context.Context, filter InventoryFilter) ([]PowerFeed, int64, error)

	CreateDevice(ctx context.Context, value Device) (Device, error)
	UpdateDevice(ctx context.Context, value Device) (Device, error)
	DeleteDevice(ctx context.Context, id uint) error
	GetDevice(ctx context.Context, id uint) (Device, error)
	ListDevices(ctx context.Context, filter InventoryFilter) ([]Device, int64, error)

	CreateMaintenance(ctx context.Context, value Maintenance) (Maintenance, error)
	UpdateMaintenance(ctx context.Context, value Maintenance) (Maintenance, error)
	DeleteMaintenance(ctx context.Context, id uint) error
	GetMaintenance(ctx context.Context, id uint) (Maintenance, error)
	ListMaintenances(ctx context.Context, filter EventFilter) ([]Maintenance, int64, error)

	CreateOutage(ctx context.Context, value Outage) (Outage, error)
	UpdateOutage(ctx context.Context, value Outage) (Outage, error)
	DeleteOutage(ctx context.Context, id uint) error
	GetOutage(ctx context.Context, id uint) (Outage, error)
	ListOutages(ctx context.Context, filter EventFilter) ([]Outage, int64, error)

	CreateImpact(ctx context.Context, value Impact) (Impact, error)
	UpdateImpact(ctx context.Context, value Impact) (Impact, error)
	DeleteImpact(ctx context.Context, id uint) error
	GetImpact(ctx context.Context, id uint) (Impact, error)
	ListImpacts(ctx context.Context, filter ImpactFilter) ([]Impact, int64, error)
	ImpactExists(ctx context.Context, value Impact) (bool, error)

	CreateNotification(ctx context.Context, value EventNotification) (EventNotification, error)
	UpdateNotification(ctx context.Context, value EventNotification) (EventNotification, error)
	DeleteNotification(ctx context.Context, id uint) error
	GetNotification(ctx context.Context, id uint) (EventNotification, error)
	ListNotifications(ctx context.Context, filter NotificationFilter) ([]EventNotification, int64, error)

	CreateCircuitMaintenance(ctx context.Context, value CircuitMaintenance) (CircuitMaintenance, error)
	UpdateCircuitMaintenance(ctx context.Context, value CircuitMaintenance) (CircuitMaintenance, error)
	DeleteCircuitMaintenance(ctx context.Context, id uint) error
	GetCircuitMaintenance(ctx context.Context, id uint) (CircuitMaintenance, error)
	ListCircuitMaintenances(ctx context.Context, filter LegacyFilter) ([]CircuitMaintenance, int64, error)

	CreateCircuitOutage(ctx context.Context, value CircuitOutage) (CircuitOutage, error)
	UpdateCircuitOutage(ctx context.Context, value CircuitOutage) (CircuitOutage, error)
	DeleteCircuitOutage(ctx context.Context, id uint) error
	GetCircuitOutage(ctx context.Context, id uint) (CircuitOutage, error)
	ListCircuitOutages(ctx context.Context, filter LegacyFilter) ([]CircuitOutage, int64, error)

	CreateCircuitMaintenanceImpact(ctx context.Context, value CircuitMaintenanceImpact) (CircuitMaintenanceImpact, error)
	UpdateCircuitMaintenanceImpact(ctx context.Context, value CircuitMaintenanceImpact) (CircuitMaintenanceImpact, error)
	DeleteCircuitMaintenanceImpact(ctx context.Context, id uint) error
	GetCircuitMaintenanceImpact(ctx context.Context, id uint) (CircuitMaintenanceImpact, error)
	ListCircuitMaintenanceImpacts(ctx context.Context, filter LegacyFilter) ([]CircuitMaintenanceImpact, int64, error)

	CreateCircuitMaintenanceNotification(ctx context.Context, value CircuitMaintenanceNotification) (CircuitMaintenanceNotification, error)
	UpdateCircuitMaintenanceNotification(ctx context.Context, value CircuitMaintenanceNotification) (CircuitMaintenanceNotification, error)
	DeleteCircuitMaintenanceNotification(ctx context.Context, id uint) error
	GetCircuitMaintenanceNotification(ctx context.Context, id uint) (CircuitMaintenanceNotification, error)
	ListCircuitMaintenanceNotifications(ctx context.Context, filter LegacyFilter) ([]CircuitMaintenanceNotification, int64, error)

	CreateUser(ctx context.Context, value User) (User, error)
	CountUsers(ctx context.Context) (int64, error)
	GetUserByEmail(ctx context.Context, email string) (User, error)
	GetUserByID(ctx context.Context, id uint) (User, error)
	ListUsers(ctx context.Context, query string, limit int) ([]User, error)
	CreateSession(ctx context.Context, value AuthSession) (AuthSession, error)
	GetSessionByTokenHash(ctx context.Context, tokenHash string) (AuthSession, error)
	DeleteSessionByTokenHash(ctx context.Context, tokenHash string) error
	CreateAPIToken(ctx context.Context, value APIToken) (APIToken, error)
	GetAPITokenByTokenHash(ctx context.Context, tokenHash string) (APIToken, error)
	CreateRoleIfMissing(ctx context.Context, key, name string) (uint, error)
	ListRoles(ctx context.Context) ([]Role, error)
	CreatePermissionIfMissing(ctx context.Context, key string) (uint, error)
	GrantPermissionToRole(ctx context.Context, roleID, permissionID uint) error
	AssignRoleToUser(ctx context.Context, userID, roleID uint) error
	GetPermissionsByUserID(ctx context.Context, userID uint) ([]string, error)

	CreateObjectChange(ctx context.Context, value ObjectChange) error
	ListObjectChanges(ctx context.Context, filter ObjectChangeFilter) ([]ObjectChange, int64, error)
}
