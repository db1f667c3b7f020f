// internal/jobs/expiration-scan/service.go
package expirationscan

import (
	"context"
	"fmt"
	"time"

	"assettrack-notifier/internal/common/logger"
	"assettrack-notifier/internal/common/metrics"
	"assettrack-notifier/internal/models"
	"assettrack-notifier/internal/notify"
	"assettrack-notifier/internal/status"
	"assettrack-notifier/internal/store"
)

// AssetSource provides the scan window queries and the guard flag update.
type AssetSource interface {
	ExpiringBetween(ctx context.Context, kind models.AssetKind, after, until time.Time, guard store.GuardColumn) ([]models.Asset, error)
	ExpiredUnnotified(ctx context.Context, kind models.AssetKind, asOf time.Time) ([]models.Asset, error)
	MarkNotified(ctx context.Context, kind models.AssetKind, assetID string, guard store.GuardColumn, at time.Time) (bool, error)
}

// RecipientSource resolves a tenant's admins and their CC addresses.
type RecipientSource interface {
	AdminsOf(ctx context.Context, organizationID string) ([]models.Recipient, error)
	AuxiliaryOf(ctx context.Context, recipientID string) ([]string, error)
}

// PreferenceGate decides whether one recipient receives one kind.
type PreferenceGate interface {
	Enabled(ctx context.Context, recipientID string, kind models.NotificationKind) (bool, error)
}

// Sender performs one delivery.
type Sender interface {
	Dispatch(ctx context.Context, req *notify.Request) (*notify.Result, error)
}

// Service runs the five-pass expiration scan. Failures never abort the
// run: a failed window skips to the next window, a failed candidate skips
// to the next candidate, and a failed recipient still lets the remaining
// recipients receive mail.
type Service struct {
	cfg        *Config
	assets     AssetSource
	recipients RecipientSource
	gate       PreferenceGate
	sender     Sender
	log        logger.Logger
	now        func() time.Time
}

func NewService(cfg *Config, assets AssetSource, recipients RecipientSource, gate PreferenceGate, sender Sender, log logger.Logger) *Service {
	return &Service{
		cfg:        cfg,
		assets:     assets,
		recipients: recipients,
		gate:       gate,
		sender:     sender,
		log:        log,
		now:        time.Now,
	}
}

// WithClock overrides the time source.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Run executes every scan window against the day boundary of the current
// time and returns the aggregated outcome. It always returns a Result;
// partial failure is reported through Success and Errors.
func (s *Service) Run(ctx context.Context) *Result {
	started := s.now()
	today := status.Midnight(started)
	result := &Result{Success: true}

	s.log.Info("Expiration scan started", map[string]interface{}{
		"today": today.Format("2006-01-02"),
	})

	for _, w := range scanWindows {
		candidates, err := s.fetch(ctx, w, today)
		if err != nil {
			s.log.WithError(err).Error("Scan window query failed", map[string]interface{}{
				"window": w.name,
			})
			result.addError(fmt.Sprintf("window %s: %s", w.name, err.Error()))
			continue
		}

		*w.bucket(&result.Processed) += len(candidates)
		metrics.ScanCandidates.WithLabelValues(w.name).Add(float64(len(candidates)))

		for _, asset := range candidates {
			s.processCandidate(ctx, w, asset, today, result)
		}
	}

	result.Success = result.FailedCount == 0 && len(result.Errors) == 0

	runStatus := "success"
	if !result.Success {
		runStatus = "partial_failure"
	}
	metrics.JobRuns.WithLabelValues("expiration-scan", runStatus).Inc()
	metrics.JobDuration.WithLabelValues("expiration-scan").Observe(time.Since(started).Seconds())

	s.log.Info("Expiration scan finished", map[string]interface{}{
		"sentCount":   result.SentCount,
		"failedCount": result.FailedCount,
		"success":     result.Success,
		"durationMs":  time.Since(started).Milliseconds(),
	})
	return result
}

func (s *Service) fetch(ctx context.Context, w scanWindow, today time.Time) ([]models.Asset, error) {
	if w.expired {
		return s.assets.ExpiredUnnotified(ctx, w.kind, today)
	}
	after := today.AddDate(0, 0, w.afterDays)
	until := today.AddDate(0, 0, w.untilDays)
	return s.assets.ExpiringBetween(ctx, w.kind, after, until, w.guard)
}

// processCandidate fans one asset out to every eligible admin of its
// organization. The guard flag flips once every recipient has been
// attempted without error; suppressed recipients and tenants with no
// admins count as attempted, so the asset is not re-fetched forever.
// Only a recipient error keeps the guard down for a retry on the next
// run.
func (s *Service) processCandidate(ctx context.Context, w scanWindow, asset models.Asset, today time.Time, result *Result) {
	admins, err := s.recipients.AdminsOf(ctx, asset.OrganizationID)
	if err != nil {
		s.log.WithError(err).Error("Recipient lookup failed", map[string]interface{}{
			"assetId":        asset.ID,
			"organizationId": asset.OrganizationID,
		})
		result.addError(fmt.Sprintf("asset %s: %s", asset.ID, err.Error()))
		return
	}
	if len(admins) == 0 {
		s.log.Warn("No admin recipients for organization", map[string]interface{}{
			"assetId":        asset.ID,
			"organizationId": asset.OrganizationID,
		})
	}

	payload := s.buildPayload(asset, today)
	failed := false

	for _, admin := range admins {
		enabled, err := s.gate.Enabled(ctx, admin.ID, w.notification)
		if err != nil {
			failed = true
			result.FailedCount++
			result.addError(fmt.Sprintf("recipient %s: %s", admin.Email, err.Error()))
			continue
		}
		if !enabled {
			s.log.Debug("Recipient opted out", map[string]interface{}{
				"recipientId": admin.ID,
				"kind":        string(w.notification),
			})
			continue
		}

		cc, err := s.recipients.AuxiliaryOf(ctx, admin.ID)
		if err != nil {
			// CC fan-out is best effort; the primary mail still goes out.
			s.log.WithError(err).Warn("Auxiliary recipient lookup failed", map[string]interface{}{
				"recipientId": admin.ID,
			})
			cc = nil
		}

		_, err = s.sender.Dispatch(ctx, &notify.Request{
			To:   admin.Email,
			CC:   cc,
			Kind: w.notification,
			Data: payload,
		})
		if err != nil {
			failed = true
			result.FailedCount++
			result.addError(fmt.Sprintf("recipient %s: %s", admin.Email, err.Error()))
			continue
		}
		result.SentCount++
	}

	if failed {
		// An errored recipient means the candidate is re-fetched next run.
		return
	}

	won, err := s.assets.MarkNotified(ctx, w.kind, asset.ID, w.guard, s.now().UTC())
	if err != nil {
		result.addError(fmt.Sprintf("asset %s: %s", asset.ID, err.Error()))
		return
	}
	if !won {
		s.log.Debug("Guard flag already set by a concurrent run", map[string]interface{}{
			"assetId": asset.ID,
			"guard":   string(w.guard),
		})
	}
}

func (s *Service) buildPayload(asset models.Asset, today time.Time) map[string]interface{} {
	daysLeft := 0
	formatted := ""
	if asset.ExpirationDate != nil {
		daysLeft = status.DaysRemaining(*asset.ExpirationDate, today)
		formatted = asset.ExpirationDate.Format("January 2, 2006")
	}
	return map[string]interface{}{
		"assetName":               asset.Name,
		"vendorOrBrand":           asset.Vendor,
		"expirationDateFormatted": formatted,
		"daysLeft":                daysLeft,
		"assetId":                 asset.ID,
		"appUrl":                  s.cfg.AppURL,
	}
}
