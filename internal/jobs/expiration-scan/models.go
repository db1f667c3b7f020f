// internal/jobs/expiration-scan/models.go
package expirationscan

import (
	"assettrack-notifier/internal/models"
	"assettrack-notifier/internal/store"
)

// Processed counts the candidates examined per scan window.
type Processed struct {
	Expiring30Licenses  int `json:"expiring30Licenses"`
	Expiring7Licenses   int `json:"expiring7Licenses"`
	ExpiredLicenses     int `json:"expiredLicenses"`
	Expiring30Hardware  int `json:"expiring30Hardware"`
	Expiring30Contracts int `json:"expiring30Contracts"`
}

// Result summarizes one scan run. Success is false whenever any window,
// candidate, or recipient failed, even though the rest of the run
// completed.
type Result struct {
	Success     bool      `json:"success"`
	SentCount   int       `json:"sentCount"`
	FailedCount int       `json:"failedCount"`
	Processed   Processed `json:"processed"`
	Errors      []string  `json:"errors,omitempty"`
}

func (r *Result) addError(msg string) {
	r.Errors = append(r.Errors, msg)
}

// scanWindow describes one pass: which collection to query, which date
// range, which guard flag, and which notification kind it produces.
type scanWindow struct {
	name         string
	kind         models.AssetKind
	notification models.NotificationKind
	guard        store.GuardColumn
	// expired passes select expiration <= today; expiring passes select
	// today+afterDays < expiration <= today+untilDays.
	expired   bool
	afterDays int
	untilDays int
	bucket    func(p *Processed) *int
}

// scanWindows lists the five passes in execution order. Licenses get the
// full threshold ladder; hardware warranties and support contracts only
// produce the 30 day advance notice.
var scanWindows = []scanWindow{
	{
		name:         "licenses_expiring_30",
		kind:         models.AssetLicense,
		notification: models.KindLicenseExpiring30,
		guard:        store.Guard30,
		afterDays:    7,
		untilDays:    30,
		bucket:       func(p *Processed) *int { return &p.Expiring30Licenses },
	},
	{
		name:         "licenses_expiring_7",
		kind:         models.AssetLicense,
		notification: models.KindLicenseExpiring7,
		guard:        store.Guard7,
		afterDays:    0,
		untilDays:    7,
		bucket:       func(p *Processed) *int { return &p.Expiring7Licenses },
	},
	{
		name:         "licenses_expired",
		kind:         models.AssetLicense,
		notification: models.KindLicenseExpired,
		guard:        store.GuardExpired,
		expired:      true,
		bucket:       func(p *Processed) *int { return &p.ExpiredLicenses },
	},
	{
		name:         "hardware_expiring_30",
		kind:         models.AssetHardware,
		notification: models.KindHardwareWarrantyExpiring,
		guard:        store.Guard30,
		afterDays:    7,
		untilDays:    30,
		bucket:       func(p *Processed) *int { return &p.Expiring30Hardware },
	},
	{
		name:         "contracts_expiring_30",
		kind:         models.AssetContract,
		notification: models.KindContractExpiring,
		guard:        store.Guard30,
		afterDays:    7,
		untilDays:    30,
		bucket:       func(p *Processed) *int { return &p.Expiring30Contracts },
	},
}
