package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/carebridgehq/billing-service/internal/domain/model"
	domainrepo "github.com/carebridgehq/billing-service/internal/domain/repository"
)

type webhookRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewWebhookRepository creates a new webhook event ledger
func NewWebhookRepository(db *gorm.DB, logger *zap.Logger) domainrepo.WebhookRepository {
	return &webhookRepository{
		db:     db,
		logger: logger,
	}
}

// InsertEvent records a webhook event with ON CONFLICT DO NOTHING against the
// unique gateway event id. The check-and-insert is a single statement, so two
// concurrent deliveries of the same event cannot both observe "created".
func (r *webhookRepository) InsertEvent(ctx context.Context, eventID, eventType string, payload json.RawMessage) (bool, *model.GatewayWebhookEvent, error) {
	var payloadMap map[string]interface{}
	if err := json.Unmarshal(payload, &payloadMap); err != nil {
		r.logger.Warn("Failed to parse webhook payload",
			zap.String("event_id", eventID),
			zap.Error(err))
		payloadMap = map[string]interface{}{}
	}

	var gatewayCreatedAt *time.Time
	if created, ok := payloadMap["created"].(float64); ok {
		t := time.Unix(int64(created), 0)
		gatewayCreatedAt = &t
	}

	event := &model.GatewayWebhookEvent{
		GatewayEventID:   eventID,
		EventType:        eventType,
		Status:           model.WebhookStatusPending,
		Payload:          model.JSONB(payloadMap),
		GatewayCreatedAt: gatewayCreatedAt,
	}

	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(event)
	if result.Error != nil {
		r.logger.Error("Failed to save webhook event",
			zap.String("event_id", eventID),
			zap.String("event_type", eventType),
			zap.Error(result.Error))
		return false, nil, fmt.Errorf("failed to save webhook event: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		var existing model.GatewayWebhookEvent
		if err := r.db.WithContext(ctx).
			Where("gateway_event_id = ?", eventID).
			First(&existing).Error; err != nil {
			return false, nil, fmt.Errorf("failed to load existing webhook event: %w", err)
		}
		return false, &existing, nil
	}

	return true, event, nil
}

// MarkProcessed marks a webhook event as applied
func (r *webhookRepository) MarkProcessed(ctx context.Context, eventID string) error {
	return r.setStatus(ctx, eventID, model.WebhookStatusCompleted, nil)
}

// MarkIgnored marks a webhook event as accepted but intentionally unhandled
func (r *webhookRepository) MarkIgnored(ctx context.Context, eventID string) error {
	return r.setStatus(ctx, eventID, model.WebhookStatusIgnored, nil)
}

// MarkFailed records a processing failure for the event
func (r *webhookRepository) MarkFailed(ctx context.Context, eventID string, processingErr error) error {
	msg := processingErr.Error()
	return r.setStatus(ctx, eventID, model.WebhookStatusFailed, &msg)
}

func (r *webhookRepository) setStatus(ctx context.Context, eventID string, status model.WebhookStatus, lastError *string) error {
	now := time.Now()
	updates := map[string]interface{}{
		"status":       status,
		"processed_at": &now,
	}
	if lastError != nil {
		updates["last_error"] = lastError
	}

	result := r.db.WithContext(ctx).
		Model(&model.GatewayWebhookEvent{}).
		Where("gateway_event_id = ?", eventID).
		Updates(updates)

	if result.Error != nil {
		r.logger.Error("Failed to update webhook event status",
			zap.String("event_id", eventID),
			zap.String("status", string(status)),
			zap.Error(result.Error))
		return fmt.Errorf("failed to update webhook event status: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("webhook event not found: %s", eventID)
	}

	return nil
}
