// internal/models/asset.go
package models

import "time"

// AssetKind identifies one of the three tracked asset collections.
type AssetKind string

const (
	AssetLicense  AssetKind = "license"
	AssetHardware AssetKind = "hardware"
	AssetContract AssetKind = "contract"
)

// AssetKinds lists every collection in scan order.
var AssetKinds = []AssetKind{AssetLicense, AssetHardware, AssetContract}

// Asset is one tracked item (license, hardware unit, or support contract).
// The three collections are structurally identical for the notification core.
type Asset struct {
	ID                 string     `json:"id"`
	OrganizationID     string     `json:"organizationId"`
	Kind               AssetKind  `json:"kind"`
	Name               string     `json:"name"`
	Vendor             string     `json:"vendor"` // vendor or brand, depending on collection
	ExpirationDate     *time.Time `json:"expirationDate,omitempty"`
	CreatedAt          time.Time  `json:"createdAt"`
	Notified30         bool       `json:"notified30"`
	Notified7          bool       `json:"notified7"`
	NotifiedExpired    bool       `json:"notifiedExpired"`
	LastNotificationAt *time.Time `json:"lastNotificationAt,omitempty"`
}

// Organization is the tenant isolation boundary; every query and fan-out is
// scoped to exactly one organization.
type Organization struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Role of a profile within its organization.
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "super_admin"
	RoleMember     Role = "member"
)

// Recipient is an admin profile eligible for tenant-scoped notifications.
type Recipient struct {
	ID             string `json:"id"`
	OrganizationID string `json:"organizationId"`
	Email          string `json:"email"`
	DisplayName    string `json:"displayName"`
	Role           Role   `json:"role"`
}
