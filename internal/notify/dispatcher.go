// internal/notify/dispatcher.go
package notify

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/xeipuuv/gojsonschema"

	"assettrack-notifier/internal/common/errors"
	"assettrack-notifier/internal/common/logger"
	"assettrack-notifier/internal/common/metrics"
	"assettrack-notifier/internal/models"
)

// SendRequest is the transport contract: exactly one outbound email.
type SendRequest struct {
	From    string   `json:"from"`
	To      string   `json:"to"`
	CC      []string `json:"cc,omitempty"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

// Transport delivers one email and returns the provider-assigned message id.
type Transport interface {
	Send(ctx context.Context, req *SendRequest) (string, error)
}

// AuditStore appends one delivery log row per confirmed send.
type AuditStore interface {
	Append(ctx context.Context, entry *models.DeliveryLog) error
}

// AuditIndexer mirrors delivery logs into a search index. Optional;
// mirroring is best-effort and never fails a dispatch.
type AuditIndexer interface {
	Index(ctx context.Context, entry *models.DeliveryLog) error
}

// Request is one logical notification: a primary recipient, optional CC
// fan-out, a kind, and the data payload consumed by the kind's template.
type Request struct {
	To   string
	CC   []string
	Kind models.NotificationKind
	Data map[string]interface{}
}

// Result reports a confirmed delivery.
type Result struct {
	ProviderID string    `json:"providerId"`
	SentAt     time.Time `json:"sentAt"`
}

// Dispatcher builds the delivery request, performs exactly one transport
// call, and records the audit trail. It does not batch, retry, or rate
// limit.
type Dispatcher struct {
	transport Transport
	audit     AuditStore
	indexer   AuditIndexer
	from      string
	logger    logger.Logger
}

func NewDispatcher(transport Transport, audit AuditStore, from string, log logger.Logger) *Dispatcher {
	return &Dispatcher{
		transport: transport,
		audit:     audit,
		from:      from,
		logger:    log.WithFields(map[string]interface{}{"component": "dispatcher"}),
	}
}

// WithIndexer enables best-effort audit mirroring into a search index.
func (d *Dispatcher) WithIndexer(indexer AuditIndexer) *Dispatcher {
	d.indexer = indexer
	return d
}

// Dispatch validates the payload, renders the kind's template, sends the
// email, and appends the audit row. On transport failure the error
// propagates and no audit row is written.
func (d *Dispatcher) Dispatch(ctx context.Context, req *Request) (*Result, error) {
	tmpl, err := TemplateFor(req.Kind)
	if err != nil {
		return nil, err
	}

	if err := validatePayload(tmpl.Schema, req.Data); err != nil {
		return nil, err
	}

	subject := render(tmpl.Subject, req.Data)
	body := render(tmpl.Body, req.Data)

	providerID, err := d.transport.Send(ctx, &SendRequest{
		From:    d.from,
		To:      req.To,
		CC:      req.CC,
		Subject: subject,
		HTML:    body,
	})
	if err != nil {
		metrics.NotificationsFailed.WithLabelValues(string(req.Kind)).Inc()
		return nil, errors.NewDeliveryFailedError(string(req.Kind), err)
	}

	sentAt := time.Now().UTC()
	entry := &models.DeliveryLog{
		ID:          uuid.New().String(),
		Recipient:   req.To,
		Subject:     subject,
		TemplateKey: string(req.Kind),
		Status:      models.DeliverySent,
		ProviderID:  providerID,
		Metadata:    req.Data,
		CreatedAt:   sentAt,
	}
	if err := d.audit.Append(ctx, entry); err != nil {
		// The email is already out; the caller decides whether a lost audit
		// row fails the item.
		return nil, errors.NewAuditWriteFailedError(err)
	}

	if d.indexer != nil {
		if err := d.indexer.Index(ctx, entry); err != nil {
			d.logger.Warn("audit mirror index failed", map[string]interface{}{
				"error":      err.Error(),
				"deliveryId": entry.ID,
			})
		}
	}

	metrics.NotificationsSent.WithLabelValues(string(req.Kind)).Inc()
	d.logger.Info("notification delivered", map[string]interface{}{
		"kind":       string(req.Kind),
		"to":         req.To,
		"ccCount":    len(req.CC),
		"providerId": providerID,
	})

	return &Result{ProviderID: providerID, SentAt: sentAt}, nil
}

func validatePayload(schema, data map[string]interface{}) error {
	if len(schema) == 0 {
		return nil
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewGoLoader(schema),
		gojsonschema.NewGoLoader(data),
	)
	if err != nil {
		return errors.NewPayloadValidationFailedError(err.Error())
	}

	if !result.Valid() {
		details := make([]string, len(result.Errors()))
		for i, desc := range result.Errors() {
			details[i] = desc.String()
		}
		return errors.NewPayloadValidationFailedError(strings.Join(details, "; "))
	}

	return nil
}
