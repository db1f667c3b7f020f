// internal/notify/resolver.go
package notify

import (
	"context"

	"assettrack-notifier/internal/common/errors"
	"assettrack-notifier/internal/common/logger"
	"assettrack-notifier/internal/models"
)

// PreferenceSource loads a recipient's preference record. A (nil, nil)
// return means no record exists and defaults apply throughout.
type PreferenceSource interface {
	Preference(ctx context.Context, recipientID string) (*models.NotificationPreference, error)
}

// Resolver decides, per recipient and kind, whether email delivery is
// enabled. Read-only; it never mutates preference records.
type Resolver struct {
	source PreferenceSource
	policy *Policy
	logger logger.Logger
}

func NewResolver(source PreferenceSource, policy *Policy, log logger.Logger) *Resolver {
	return &Resolver{
		source: source,
		policy: policy,
		logger: log.WithFields(map[string]interface{}{"component": "preference-resolver"}),
	}
}

// Enabled resolves the delivery gate for one recipient and kind.
// email_enabled=false wins over everything; an explicit per-kind entry wins
// over the policy default.
func (r *Resolver) Enabled(ctx context.Context, recipientID string, kind models.NotificationKind) (bool, error) {
	pref, err := r.source.Preference(ctx, recipientID)
	if err != nil {
		return false, errors.NewPreferenceLookupFailedError(recipientID, err)
	}

	if pref == nil {
		// No record: email enabled, every kind at its built-in default.
		return r.policy.Default(kind), nil
	}

	if !pref.EmailEnabled {
		return false, nil
	}

	if enabled, ok := pref.PerKind[kind]; ok {
		return enabled, nil
	}

	return r.policy.Default(kind), nil
}
