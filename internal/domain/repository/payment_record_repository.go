package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/carebridgehq/billing-service/internal/domain/model"
)

// PaymentRecordRepository stores the local mirror of gateway intents.
type PaymentRecordRepository interface {
	Create(ctx context.Context, record *model.PaymentRecord) error
	GetByIntentID(ctx context.Context, intentID string) (*model.PaymentRecord, error)
	GetByPlanID(ctx context.Context, planID uuid.UUID) ([]*model.PaymentRecord, error)

	// UpdateByIntentID applies a patch to the record for the given intent.
	// Missing records are tolerated: an intent may have been created by
	// another environment sharing the same gateway account.
	UpdateByIntentID(ctx context.Context, intentID string, patch map[string]interface{}) error
}
