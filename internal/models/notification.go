// internal/models/notification.go
package models

import "time"

// NotificationKind is the closed set of notification event types.
type NotificationKind string

const (
	KindLicenseExpiring30        NotificationKind = "license_expiring_30"
	KindLicenseExpiring7         NotificationKind = "license_expiring_7"
	KindLicenseExpired           NotificationKind = "license_expired"
	KindHardwareWarrantyExpiring NotificationKind = "hardware_warranty_expiring"
	KindContractExpiring         NotificationKind = "contract_expiring"
	KindWeeklySummary            NotificationKind = "weekly_summary"
	KindMonthlyReport            NotificationKind = "monthly_report"
	KindPaymentFailed            NotificationKind = "payment_failed"
	KindPlanLimitWarning         NotificationKind = "plan_limit_warning"
	KindTeamInvite               NotificationKind = "team_invite"
	KindTeamMemberJoined         NotificationKind = "team_member_joined"
)

// NotificationKinds enumerates every kind. New kinds are added here and to
// the dispatch template table together.
var NotificationKinds = []NotificationKind{
	KindLicenseExpiring30,
	KindLicenseExpiring7,
	KindLicenseExpired,
	KindHardwareWarrantyExpiring,
	KindContractExpiring,
	KindWeeklySummary,
	KindMonthlyReport,
	KindPaymentFailed,
	KindPlanLimitWarning,
	KindTeamInvite,
	KindTeamMemberJoined,
}

// NotificationCategory groups kinds for bulk enable/disable in the UI.
type NotificationCategory string

const (
	CategoryExpirations NotificationCategory = "expirations"
	CategorySummaries   NotificationCategory = "summaries"
	CategoryAccount     NotificationCategory = "account"
	CategoryTeam        NotificationCategory = "team"
)

// NotificationPreference is the per-recipient delivery policy record.
// A missing record, or a kind absent from PerKind, falls back to the
// policy table's built-in default. EmailEnabled=false suppresses every kind.
type NotificationPreference struct {
	RecipientID  string                    `json:"recipientId"`
	EmailEnabled bool                      `json:"emailEnabled"`
	PerKind      map[NotificationKind]bool `json:"perKind,omitempty"`
}

// DeliveryStatus of an audit record.
type DeliveryStatus string

const (
	DeliverySent DeliveryStatus = "sent"
)

// DeliveryLog is one append-only audit row per confirmed send. The pipeline
// writes these and never reads them back.
type DeliveryLog struct {
	ID          string                 `json:"id"`
	Recipient   string                 `json:"recipient"`
	Subject     string                 `json:"subject"`
	TemplateKey string                 `json:"templateKey"`
	Status      DeliveryStatus         `json:"status"`
	ProviderID  string                 `json:"providerId,omitempty"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt   time.Time              `json:"createdAt"`
}
