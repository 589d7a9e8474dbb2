package domain

import "time"

const AppLabel = "notices"

var (
	MaintenanceType       = ContentTypeName{AppLabel: AppLabel, Model: "maintenance"}
	OutageType            = ContentTypeName{AppLabel: AppLabel, Model: "outage"}
	ImpactType            = ContentTypeName{AppLabel: AppLabel, Model: "impact"}
	EventNotificationType = ContentTypeName{AppLabel: AppLabel, Model: "eventnotification"}

	CircuitMaintenanceType             = ContentTypeName{AppLabel: AppLabel, Model: "circuitmaintenance"}
	CircuitOutageType                  = ContentTypeName{AppLabel: AppLabel, Model: "circuitoutage"}
	CircuitMaintenanceImpactType       = ContentTypeName{AppLabel: AppLabel, Model: "circuitmaintenanceimpact"}
	CircuitMaintenanceNotificationType = ContentTypeName{AppLabel: AppLabel, Model: "circuitmaintenancenotifications"}

	ProviderType  = ContentTypeName{AppLabel: "circuits", Model: "provider"}
	CircuitType   = ContentTypeName{AppLabel: "circuits", Model: "circuit"}
	SiteType      = ContentTypeName{AppLabel: "dcim", Model: "site"}
	PowerFeedType = ContentTypeName{AppLabel: "dcim", Model: "powerfeed"}
	DeviceType    = ContentTypeName{AppLabel: "dcim", Model: "device"}

	ObjectChangeType = ContentTypeName{AppLabel: "core", Model: "objectchange"}
)

// Event holds the fields shared by maintenances and outages.
type Event struct {
	ID               uint
	Name             string
	Summary          string
	ProviderID       uint
	Provider         Provider
	Start            time.Time
	OriginalTimezone string
	InternalTicket   string
	Acknowledged     bool
	Comments         string
	Tags             []string
	CustomFields     map[string]any
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

type Maintenance struct {
	Event
	End         time.Time
	Status      MaintenanceStatus
	ImpactCount int
}

type Outage struct {
	Event
	End                   *time.Time
	EstimatedTimeToRepair *time.Time
	Status                OutageStatus
}

type Impact struct {
	ID             uint
	EventType      ContentType
	EventObjectID  uint
	EventDisplay   string
	EventStatus    string
	TargetType     ContentType
	TargetObjectID uint
	TargetDisplay  string
	Impact         ImpactLevel
	Tags           []string
	CustomFields   map[string]any
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type EventNotification struct {
	ID            uint
	EventType     ContentType
	EventObjectID uint
	EventDisplay  string
	Subject       string
	EmailFrom     string
	EmailBody     string
	EmailReceived time.Time
	Email         []byte
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type EventFilter struct {
	Query          string
	Name           string
	Summary        string
	InternalTicket string
	Statuses       []string
	ProviderIDs    []uint
	ProviderSlugs  []string
	Acknowledged   *bool
	StartAfter     *time.Time
	StartBefore    *time.Time
	EndAfter       *time.Time
	EndBefore      *time.Time
	// OpenOnly keeps events whose status is not terminal.
	OpenOnly bool
	IDs      []uint
	OrderBy  string
	Limit    int
	Offset   int
}

type ImpactFilter struct {
	EventTypeID  *uint
	EventIDs     []uint
	TargetTypeID *uint
	TargetIDs    []uint
	Levels       []string
	Limit        int
	Offset       int
}

type NotificationFilter struct {
	EventTypeID *uint
	EventIDs    []uint
	Query       string
	Limit       int
	Offset      int
}

type CircuitMaintenance struct {
	ID             uint
	ProviderID     uint
	Provider       Provider
	Name           string
	Summary        string
	Status         MaintenanceStatus
	Start          time.Time
	End            time.Time
	InternalTicket string
	Acknowledged   bool
	Comments       string
	ImpactCount    int
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type CircuitOutage struct {
	ID                    uint
	ProviderID            uint
	Provider              Provider
	Name                  string
	Summary               string
	Status                OutageStatus
	Start                 time.Time
	End                   *time.Time
	EstimatedTimeToRepair *time.Time
	InternalTicket        string
	Acknowledged          bool
	Comments              string
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

type CircuitMaintenanceImpact struct {
	ID                   uint
	CircuitMaintenanceID uint
	CircuitID            uint
	Circuit              Circuit
	Impact               ImpactLevel
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

type CircuitMaintenanceNotification struct {
	ID                   uint
	CircuitMaintenanceID uint
	Email                []byte
	EmailBody            string
	Subject              string
	EmailFrom            string
	EmailReceived        time.Time
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

type LegacyFilter struct {
	Name        string
	Statuses    []string
	ProviderIDs []uint
	ParentID    *uint
	StartAfter  *time.Time
	EndBefore   *time.Time
	Limit       int
	Offset      int
}

type InventoryFilter struct {
	Query      string
	ProviderID *uint
	SiteID     *uint
	Slug       string
	Limit      int
	Offset     int
}
