package repository

import (
	"context"
	"encoding/json"

	"github.com/carebridgehq/billing-service/internal/domain/model"
)

// WebhookRepository is the idempotency ledger for gateway events.
type WebhookRepository interface {
	// InsertEvent records a new event. The insert is atomic against the unique
	// event id: created is false when the event was already recorded, in which
	// case the existing row is returned and the delivery must not be re-applied.
	InsertEvent(ctx context.Context, eventID, eventType string, payload json.RawMessage) (created bool, existing *model.GatewayWebhookEvent, err error)

	// MarkProcessed marks an event as applied.
	MarkProcessed(ctx context.Context, eventID string) error

	// MarkIgnored marks an event as accepted but intentionally not handled.
	MarkIgnored(ctx context.Context, eventID string) error

	// MarkFailed records a processing failure for the event.
	MarkFailed(ctx context.Context, eventID string, processingErr error) error
}
