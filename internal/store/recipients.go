// internal/store/recipients.go
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"

	"assettrack-notifier/internal/common/errors"
	"assettrack-notifier/internal/models"
)

// RecipientStore resolves who receives notifications for a tenant.
type RecipientStore struct {
	db *sql.DB
}

func NewRecipientStore(db *sql.DB) *RecipientStore {
	return &RecipientStore{db: db}
}

// AdminsOf returns the admin and super_admin profiles of one organization.
// Members never receive pipeline mail.
func (s *RecipientStore) AdminsOf(ctx context.Context, organizationID string) ([]models.Recipient, error) {
	query := `SELECT id, organization_id, email, display_name, role
		FROM profiles
		WHERE organization_id = $1 AND role IN ('admin', 'super_admin')`

	rows, err := s.db.QueryContext(ctx, query, organizationID)
	if err != nil {
		return nil, errors.NewRecipientLookupFailedError(organizationID, err)
	}
	defer rows.Close()

	var recipients []models.Recipient
	for rows.Next() {
		var r models.Recipient
		if err := rows.Scan(&r.ID, &r.OrganizationID, &r.Email, &r.DisplayName, &r.Role); err != nil {
			return nil, errors.NewRecipientLookupFailedError(organizationID, err)
		}
		recipients = append(recipients, r)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewRecipientLookupFailedError(organizationID, err)
	}
	return recipients, nil
}

// AuxiliaryOf returns the extra CC addresses registered under a profile,
// deduplicated case-insensitively while keeping first-seen order.
func (s *RecipientStore) AuxiliaryOf(ctx context.Context, recipientID string) ([]string, error) {
	query := `SELECT email FROM auxiliary_recipients WHERE profile_id = $1`

	rows, err := s.db.QueryContext(ctx, query, recipientID)
	if err != nil {
		return nil, errors.NewRecipientLookupFailedError(recipientID, err)
	}
	defer rows.Close()

	seen := make(map[string]bool)
	var emails []string
	for rows.Next() {
		var email string
		if err := rows.Scan(&email); err != nil {
			return nil, errors.NewRecipientLookupFailedError(recipientID, err)
		}
		key := strings.ToLower(strings.TrimSpace(email))
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		emails = append(emails, email)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewRecipientLookupFailedError(recipientID, err)
	}
	return emails, nil
}

// Preference loads a recipient's notification preference row. A missing row
// returns (nil, nil); the caller falls back to policy defaults.
func (s *RecipientStore) Preference(ctx context.Context, recipientID string) (*models.NotificationPreference, error) {
	query := `SELECT email_enabled, preferences
		FROM notification_preferences
		WHERE profile_id = $1`

	var (
		emailEnabled bool
		rawPrefs     []byte
	)
	err := s.db.QueryRowContext(ctx, query, recipientID).Scan(&emailEnabled, &rawPrefs)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.NewPreferenceLookupFailedError(recipientID, err)
	}

	pref := &models.NotificationPreference{
		RecipientID:  recipientID,
		EmailEnabled: emailEnabled,
	}
	if len(rawPrefs) > 0 {
		perKind := make(map[models.NotificationKind]bool)
		if err := json.Unmarshal(rawPrefs, &perKind); err != nil {
			return nil, errors.NewPreferenceLookupFailedError(recipientID, err)
		}
		pref.PerKind = perKind
	}
	return pref, nil
}
