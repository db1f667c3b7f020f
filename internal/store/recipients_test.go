package store

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "assettrack-notifier/internal/common/errors"
	"assettrack-notifier/internal/models"
)

func TestRecipientStore_AdminsOf(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"id", "organization_id", "email", "display_name", "role"}).
		AddRow("p-1", "org-1", "alice@acme.test", "Alice", "admin").
		AddRow("p-2", "org-1", "bob@acme.test", "Bob", "super_admin")
	mock.ExpectQuery(`SELECT id, organization_id, email, display_name, role\s+FROM profiles\s+WHERE organization_id = \$1 AND role IN \('admin', 'super_admin'\)`).
		WithArgs("org-1").
		WillReturnRows(rows)

	store := NewRecipientStore(db)
	admins, err := store.AdminsOf(context.Background(), "org-1")

	require.NoError(t, err)
	require.Len(t, admins, 2)
	assert.Equal(t, models.RoleAdmin, admins[0].Role)
	assert.Equal(t, models.RoleSuperAdmin, admins[1].Role)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecipientStore_AdminsOf_QueryError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT id, organization_id, email`).
		WillReturnError(errors.New("connection refused"))

	store := NewRecipientStore(db)
	_, err = store.AdminsOf(context.Background(), "org-1")

	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeRecipientLookupFailed, apperrors.CodeOf(err))
}

func TestRecipientStore_AuxiliaryOf_Deduplicates(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"email"}).
		AddRow("ops@acme.test").
		AddRow("OPS@acme.test").
		AddRow("finance@acme.test").
		AddRow("  ").
		AddRow("ops@acme.test")
	mock.ExpectQuery(`SELECT email FROM auxiliary_recipients WHERE profile_id = \$1`).
		WithArgs("p-1").
		WillReturnRows(rows)

	store := NewRecipientStore(db)
	emails, err := store.AuxiliaryOf(context.Background(), "p-1")

	require.NoError(t, err)
	assert.Equal(t, []string{"ops@acme.test", "finance@acme.test"}, emails)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecipientStore_Preference(t *testing.T) {
	tests := []struct {
		name         string
		emailEnabled bool
		rawPrefs     []byte
		validate     func(t *testing.T, pref *models.NotificationPreference)
	}{
		{
			name:         "per kind overrides parsed from jsonb",
			emailEnabled: true,
			rawPrefs:     []byte(`{"license_expiring_30": false, "weekly_summary": true}`),
			validate: func(t *testing.T, pref *models.NotificationPreference) {
				assert.True(t, pref.EmailEnabled)
				assert.False(t, pref.PerKind[models.KindLicenseExpiring30])
				assert.True(t, pref.PerKind[models.KindWeeklySummary])
			},
		},
		{
			name:         "empty preference document",
			emailEnabled: false,
			rawPrefs:     nil,
			validate: func(t *testing.T, pref *models.NotificationPreference) {
				assert.False(t, pref.EmailEnabled)
				assert.Nil(t, pref.PerKind)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()

			rows := sqlmock.NewRows([]string{"email_enabled", "preferences"}).
				AddRow(tt.emailEnabled, tt.rawPrefs)
			mock.ExpectQuery(`SELECT email_enabled, preferences\s+FROM notification_preferences\s+WHERE profile_id = \$1`).
				WithArgs("p-1").
				WillReturnRows(rows)

			store := NewRecipientStore(db)
			pref, err := store.Preference(context.Background(), "p-1")

			require.NoError(t, err)
			require.NotNil(t, pref)
			assert.Equal(t, "p-1", pref.RecipientID)
			tt.validate(t, pref)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestRecipientStore_Preference_MissingRow(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT email_enabled, preferences`).
		WithArgs("p-unknown").
		WillReturnRows(sqlmock.NewRows([]string{"email_enabled", "preferences"}))

	store := NewRecipientStore(db)
	pref, err := store.Preference(context.Background(), "p-unknown")

	require.NoError(t, err)
	assert.Nil(t, pref)
}

func TestRecipientStore_Preference_MalformedJSON(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"email_enabled", "preferences"}).
		AddRow(true, []byte(`{not json`))
	mock.ExpectQuery(`SELECT email_enabled, preferences`).
		WithArgs("p-1").
		WillReturnRows(rows)

	store := NewRecipientStore(db)
	_, err = store.Preference(context.Background(), "p-1")

	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodePreferenceLookupFailed, apperrors.CodeOf(err))
}
