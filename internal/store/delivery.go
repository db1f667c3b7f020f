// internal/store/delivery.go
package store

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/google/uuid"

	"assettrack-notifier/internal/common/errors"
	"assettrack-notifier/internal/models"
)

// DeliveryStore appends the append-only audit trail of sent mail.
type DeliveryStore struct {
	db *sql.DB
}

func NewDeliveryStore(db *sql.DB) *DeliveryStore {
	return &DeliveryStore{db: db}
}

func (s *DeliveryStore) Append(ctx context.Context, entry *models.DeliveryLog) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}

	metadata, err := json.Marshal(entry.Metadata)
	if err != nil {
		return errors.NewAuditWriteFailedError(err)
	}

	query := `INSERT INTO delivery_logs
		(id, recipient, subject, template_key, status, provider_id, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err = s.db.ExecContext(ctx, query,
		entry.ID, entry.Recipient, entry.Subject, entry.TemplateKey,
		entry.Status, entry.ProviderID, metadata, entry.CreatedAt,
	)
	if err != nil {
		return errors.NewAuditWriteFailedError(err)
	}
	return nil
}
