// internal/notify/policy.go
package notify

import (
	"sort"

	"assettrack-notifier/internal/models"
)

// KindPolicy is the built-in stance for one notification kind.
type KindPolicy struct {
	Category       models.NotificationCategory
	DefaultEnabled bool
}

// Policy is the versioned default-preference table injected into the
// Resolver. Policy changes ship as a new version; nothing reads a package
// level constant.
type Policy struct {
	Version string
	Kinds   map[models.NotificationKind]KindPolicy
}

// DefaultPolicy returns the built-in table covering the full closed kind set.
func DefaultPolicy() *Policy {
	return &Policy{
		Version: "2024-06",
		Kinds: map[models.NotificationKind]KindPolicy{
			models.KindLicenseExpiring30:        {models.CategoryExpirations, true},
			models.KindLicenseExpiring7:         {models.CategoryExpirations, true},
			models.KindLicenseExpired:           {models.CategoryExpirations, true},
			models.KindHardwareWarrantyExpiring: {models.CategoryExpirations, true},
			models.KindContractExpiring:         {models.CategoryExpirations, true},
			models.KindWeeklySummary:            {models.CategorySummaries, true},
			models.KindMonthlyReport:            {models.CategorySummaries, false},
			models.KindPaymentFailed:            {models.CategoryAccount, true},
			models.KindPlanLimitWarning:         {models.CategoryAccount, true},
			models.KindTeamInvite:               {models.CategoryTeam, true},
			models.KindTeamMemberJoined:         {models.CategoryTeam, true},
		},
	}
}

// Known reports whether the kind exists in this policy version.
func (p *Policy) Known(kind models.NotificationKind) bool {
	_, ok := p.Kinds[kind]
	return ok
}

// Default returns the built-in enablement for a kind. Unknown kinds are
// disabled.
func (p *Policy) Default(kind models.NotificationKind) bool {
	return p.Kinds[kind].DefaultEnabled
}

// Category returns the kind's category grouping.
func (p *Policy) Category(kind models.NotificationKind) models.NotificationCategory {
	return p.Kinds[kind].Category
}

// KindsInCategory lists the kinds sharing a category, sorted for stable
// output. Bulk toggles in the preference UI operate on this set.
func (p *Policy) KindsInCategory(cat models.NotificationCategory) []models.NotificationKind {
	var kinds []models.NotificationKind
	for kind, kp := range p.Kinds {
		if kp.Category == cat {
			kinds = append(kinds, kind)
		}
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}
