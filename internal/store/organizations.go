// internal/store/organizations.go
package store

import (
	"context"
	"database/sql"

	"assettrack-notifier/internal/common/errors"
	"assettrack-notifier/internal/models"
)

// OrganizationStore lists the tenants the weekly digest iterates over.
type OrganizationStore struct {
	db *sql.DB
}

func NewOrganizationStore(db *sql.DB) *OrganizationStore {
	return &OrganizationStore{db: db}
}

func (s *OrganizationStore) All(ctx context.Context) ([]models.Organization, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name FROM organizations ORDER BY name`)
	if err != nil {
		return nil, errors.NewQueryExecutionFailedError("list_organizations", err)
	}
	defer rows.Close()

	var orgs []models.Organization
	for rows.Next() {
		var o models.Organization
		if err := rows.Scan(&o.ID, &o.Name); err != nil {
			return nil, errors.NewQueryExecutionFailedError("scan_organization_row", err)
		}
		orgs = append(orgs, o)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewQueryExecutionFailedError("organization_rows", err)
	}
	return orgs, nil
}
