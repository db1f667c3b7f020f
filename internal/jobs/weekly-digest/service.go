// internal/jobs/weekly-digest/service.go
package weeklydigest

import (
	"context"
	"fmt"
	"html"
	"sort"
	"strings"
	"time"

	"assettrack-notifier/internal/common/logger"
	"assettrack-notifier/internal/common/metrics"
	"assettrack-notifier/internal/models"
	"assettrack-notifier/internal/notify"
	"assettrack-notifier/internal/status"
)

// OrganizationSource lists the tenants to digest.
type OrganizationSource interface {
	All(ctx context.Context) ([]models.Organization, error)
}

// AssetSource provides the full asset inventory of one tenant.
type AssetSource interface {
	ByOrganization(ctx context.Context, kind models.AssetKind, organizationID string) ([]models.Asset, error)
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

// Service assembles and sends the weekly per-organization summary. One
// tenant failing never blocks the remaining tenants.
type Service struct {
	cfg           *Config
	organizations OrganizationSource
	assets        AssetSource
	recipients    RecipientSource
	gate          PreferenceGate
	sender        Sender
	log           logger.Logger
	now           func() time.Time
}

func NewService(cfg *Config, organizations OrganizationSource, assets AssetSource, recipients RecipientSource, gate PreferenceGate, sender Sender, log logger.Logger) *Service {
	return &Service{
		cfg:           cfg,
		organizations: organizations,
		assets:        assets,
		recipients:    recipients,
		gate:          gate,
		sender:        sender,
		log:           log,
		now:           time.Now,
	}
}

// WithClock overrides the time source.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Run builds and dispatches one digest per organization.
func (s *Service) Run(ctx context.Context) *Result {
	started := s.now()
	today := status.Midnight(started)
	result := &Result{Success: true}

	orgs, err := s.organizations.All(ctx)
	if err != nil {
		s.log.WithError(err).Error("Organization listing failed", nil)
		result.Success = false
		result.addError(err.Error())
		metrics.JobRuns.WithLabelValues("weekly-digest", "failure").Inc()
		return result
	}
	result.Organizations = len(orgs)

	for _, org := range orgs {
		s.processOrganization(ctx, org, today, result)
	}

	result.Success = result.FailedCount == 0 && len(result.Errors) == 0

	runStatus := "success"
	if !result.Success {
		runStatus = "partial_failure"
	}
	metrics.JobRuns.WithLabelValues("weekly-digest", runStatus).Inc()
	metrics.JobDuration.WithLabelValues("weekly-digest").Observe(time.Since(started).Seconds())

	s.log.Info("Weekly digest finished", map[string]interface{}{
		"organizations": result.Organizations,
		"sentCount":     result.SentCount,
		"failedCount":   result.FailedCount,
		"success":       result.Success,
	})
	return result
}

func (s *Service) processOrganization(ctx context.Context, org models.Organization, today time.Time, result *Result) {
	assets, err := s.inventory(ctx, org.ID)
	if err != nil {
		s.log.WithError(err).Error("Inventory load failed", map[string]interface{}{
			"organizationId": org.ID,
		})
		result.addError(fmt.Sprintf("organization %s: %s", org.ID, err.Error()))
		return
	}

	stats := s.aggregate(assets, today)
	items := s.topExpiring(assets, today)

	admins, err := s.recipients.AdminsOf(ctx, org.ID)
	if err != nil {
		result.addError(fmt.Sprintf("organization %s: %s", org.ID, err.Error()))
		return
	}

	payload := s.buildPayload(org, stats, items)

	for _, admin := range admins {
		enabled, err := s.gate.Enabled(ctx, admin.ID, models.KindWeeklySummary)
		if err != nil {
			result.FailedCount++
			result.addError(fmt.Sprintf("recipient %s: %s", admin.Email, err.Error()))
			continue
		}
		if !enabled {
			continue
		}

		cc, err := s.recipients.AuxiliaryOf(ctx, admin.ID)
		if err != nil {
			s.log.WithError(err).Warn("Auxiliary recipient lookup failed", map[string]interface{}{
				"recipientId": admin.ID,
			})
			cc = nil
		}

		_, err = s.sender.Dispatch(ctx, &notify.Request{
			To:   admin.Email,
			CC:   cc,
			Kind: models.KindWeeklySummary,
			Data: payload,
		})
		if err != nil {
			result.FailedCount++
			result.addError(fmt.Sprintf("recipient %s: %s", admin.Email, err.Error()))
			continue
		}
		result.SentCount++
	}
}

// inventory loads every ranked collection for one tenant. Contracts are
// loaded only when the digest is configured to include them; they still
// never enter the headline counts of the other collections twice.
func (s *Service) inventory(ctx context.Context, organizationID string) ([]models.Asset, error) {
	var all []models.Asset
	for _, kind := range models.AssetKinds {
		assets, err := s.assets.ByOrganization(ctx, kind, organizationID)
		if err != nil {
			return nil, err
		}
		all = append(all, assets...)
	}
	return all, nil
}

func (s *Service) aggregate(assets []models.Asset, today time.Time) orgStats {
	weekAgo := today.AddDate(0, 0, -7)

	stats := orgStats{TotalAssets: len(assets)}
	for _, a := range assets {
		switch status.Classify(a.ExpirationDate, today) {
		case status.Expired:
			stats.Expired++
		case status.Expiring:
			stats.ExpiringSoon++
		}
		if !a.CreatedAt.Before(weekAgo) {
			stats.NewThisWeek++
		}
	}
	return stats
}

// topExpiring ranks the soonest-expiring items across licenses and
// hardware (plus contracts when configured), already-expired items
// excluded, capped at the configured size.
func (s *Service) topExpiring(assets []models.Asset, today time.Time) []expiringItem {
	var items []expiringItem
	for _, a := range assets {
		if a.Kind == models.AssetContract && !s.cfg.IncludeContracts {
			continue
		}
		if a.ExpirationDate == nil {
			continue
		}
		days := status.DaysRemaining(*a.ExpirationDate, today)
		if days < 0 || days > 30 {
			continue
		}
		items = append(items, expiringItem{
			Name:          a.Name,
			Kind:          string(a.Kind),
			DaysRemaining: days,
		})
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].DaysRemaining < items[j].DaysRemaining
	})

	limit := s.cfg.TopExpiring
	if limit <= 0 {
		limit = 5
	}
	if len(items) > limit {
		items = items[:limit]
	}
	return items
}

func (s *Service) buildPayload(org models.Organization, stats orgStats, items []expiringItem) map[string]interface{} {
	rawItems := make([]interface{}, 0, len(items))
	for _, item := range items {
		rawItems = append(rawItems, map[string]interface{}{
			"name":          item.Name,
			"kind":          item.Kind,
			"daysRemaining": item.DaysRemaining,
		})
	}

	return map[string]interface{}{
		"organizationName":  org.Name,
		"totalAssets":       stats.TotalAssets,
		"expiringSoon":      stats.ExpiringSoon,
		"expired":           stats.Expired,
		"newThisWeek":       stats.NewThisWeek,
		"expiringItems":     rawItems,
		"expiringItemsHtml": renderItemsHTML(items),
		"appUrl":            s.cfg.AppURL,
	}
}

func renderItemsHTML(items []expiringItem) string {
	if len(items) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("<ul>")
	for _, item := range items {
		fmt.Fprintf(&b, "<li>%s (%s): %d days remaining</li>",
			html.EscapeString(item.Name), item.Kind, item.DaysRemaining)
	}
	b.WriteString("</ul>")
	return b.String()
}
