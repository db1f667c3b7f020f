// internal/store/assets.go
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"assettrack-notifier/internal/common/errors"
	"assettrack-notifier/internal/models"
)

// GuardColumn names the one-shot flag guarding each notification threshold.
type GuardColumn string

const (
	Guard30      GuardColumn = "notification_30_sent"
	Guard7       GuardColumn = "notification_7_sent"
	GuardExpired GuardColumn = "notification_expired_sent"
)

const assetColumns = `id, organization_id, name, vendor, expiration_date, created_at, notification_30_sent, notification_7_sent, notification_expired_sent, last_notification_date`

func tableFor(kind models.AssetKind) string {
	switch kind {
	case models.AssetHardware:
		return "hardware_assets"
	case models.AssetContract:
		return "support_contracts"
	default:
		return "licenses"
	}
}

// AssetStore reads the three asset collections and owns the guard flags,
// the only state this pipeline mutates.
type AssetStore struct {
	db *sql.DB
}

func NewAssetStore(db *sql.DB) *AssetStore {
	return &AssetStore{db: db}
}

// ExpiringBetween returns unguarded assets with after < expiration <= until.
func (s *AssetStore) ExpiringBetween(ctx context.Context, kind models.AssetKind, after, until time.Time, guard GuardColumn) ([]models.Asset, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s
		WHERE expiration_date IS NOT NULL
		  AND expiration_date > $1
		  AND expiration_date <= $2
		  AND %s = FALSE`, assetColumns, tableFor(kind), guard)

	rows, err := s.db.QueryContext(ctx, query, after, until)
	if err != nil {
		return nil, errors.NewQueryExecutionFailedError("expiring_between", err)
	}
	defer rows.Close()

	return scanAssets(rows, kind)
}

// ExpiredUnnotified returns assets with expiration <= asOf whose expired
// flag is still false.
func (s *AssetStore) ExpiredUnnotified(ctx context.Context, kind models.AssetKind, asOf time.Time) ([]models.Asset, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s
		WHERE expiration_date IS NOT NULL
		  AND expiration_date <= $1
		  AND %s = FALSE`, assetColumns, tableFor(kind), GuardExpired)

	rows, err := s.db.QueryContext(ctx, query, asOf)
	if err != nil {
		return nil, errors.NewQueryExecutionFailedError("expired_unnotified", err)
	}
	defer rows.Close()

	return scanAssets(rows, kind)
}

// MarkNotified sets the guard flag and stamps last_notification_date as a
// single conditional update. Returns false when another invocation already
// flipped the flag, which keeps the at-most-once guarantee even under
// overlapping runs.
func (s *AssetStore) MarkNotified(ctx context.Context, kind models.AssetKind, assetID string, guard GuardColumn, at time.Time) (bool, error) {
	query := fmt.Sprintf(`UPDATE %s
		SET %s = TRUE, last_notification_date = $2
		WHERE id = $1 AND %s = FALSE`, tableFor(kind), guard, guard)

	res, err := s.db.ExecContext(ctx, query, assetID, at)
	if err != nil {
		return false, errors.NewGuardUpdateFailedError(assetID, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, errors.NewGuardUpdateFailedError(assetID, err)
	}
	return affected == 1, nil
}

// ByOrganization returns every asset of one collection for one tenant.
func (s *AssetStore) ByOrganization(ctx context.Context, kind models.AssetKind, organizationID string) ([]models.Asset, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE organization_id = $1`, assetColumns, tableFor(kind))

	rows, err := s.db.QueryContext(ctx, query, organizationID)
	if err != nil {
		return nil, errors.NewQueryExecutionFailedError("assets_by_organization", err)
	}
	defer rows.Close()

	return scanAssets(rows, kind)
}

func scanAssets(rows *sql.Rows, kind models.AssetKind) ([]models.Asset, error) {
	var assets []models.Asset
	for rows.Next() {
		var (
			a          models.Asset
			expiration sql.NullTime
			lastNotice sql.NullTime
		)
		if err := rows.Scan(
			&a.ID, &a.OrganizationID, &a.Name, &a.Vendor,
			&expiration, &a.CreatedAt,
			&a.Notified30, &a.Notified7, &a.NotifiedExpired,
			&lastNotice,
		); err != nil {
			return nil, errors.NewQueryExecutionFailedError("scan_asset_row", err)
		}
		a.Kind = kind
		if expiration.Valid {
			t := expiration.Time
			a.ExpirationDate = &t
		}
		if lastNotice.Valid {
			t := lastNotice.Time
			a.LastNotificationAt = &t
		}
		assets = append(assets, a)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewQueryExecutionFailedError("asset_rows", err)
	}
	return assets, nil
}
