// internal/store/audit_index.go
package store

import (
	"context"

	"assettrack-notifier/internal/common/database"
	"assettrack-notifier/internal/models"
)

// AuditIndex mirrors delivery logs into Elasticsearch for ad hoc search.
// Postgres stays the durable audit store; this index can be rebuilt.
type AuditIndex struct {
	es    *database.ElasticsearchClient
	index string
}

func NewAuditIndex(es *database.ElasticsearchClient, index string) *AuditIndex {
	return &AuditIndex{es: es, index: index}
}

func (a *AuditIndex) Index(ctx context.Context, entry *models.DeliveryLog) error {
	return a.es.IndexDocument(ctx, a.index, entry.ID, entry)
}
