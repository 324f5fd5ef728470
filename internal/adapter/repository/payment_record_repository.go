package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/carebridgehq/billing-service/internal/domain/model"
	domainrepo "github.com/carebridgehq/billing-service/internal/domain/repository"
)

type paymentRecordRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewPaymentRecordRepository creates a new payment record repository
func NewPaymentRecordRepository(db *gorm.DB, logger *zap.Logger) domainrepo.PaymentRecordRepository {
	return &paymentRecordRepository{
		db:     db,
		logger: logger,
	}
}

func (r *paymentRecordRepository) Create(ctx context.Context, record *model.PaymentRecord) error {
	if err := r.db.WithContext(ctx).Create(record).Error; err != nil {
		r.logger.Error("Failed to create payment record",
			zap.String("intent_id", record.GatewayIntentID),
			zap.Error(err))
		return fmt.Errorf("failed to create payment record: %w", err)
	}
	return nil
}

func (r *paymentRecordRepository) GetByIntentID(ctx context.Context, intentID string) (*model.PaymentRecord, error) {
	var record model.PaymentRecord

	err := r.db.WithContext(ctx).
		Where("gateway_intent_id = ?", intentID).
		First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logger.Error("Failed to get payment record",
			zap.String("intent_id", intentID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get payment record: %w", err)
	}

	return &record, nil
}

func (r *paymentRecordRepository) GetByPlanID(ctx context.Context, planID uuid.UUID) ([]*model.PaymentRecord, error) {
	var records []*model.PaymentRecord

	err := r.db.WithContext(ctx).
		Where("plan_id = ?", planID).
		Order("created_at DESC").
		Find(&records).Error
	if err != nil {
		r.logger.Error("Failed to get payment records for plan",
			zap.String("plan_id", planID.String()),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get payment records: %w", err)
	}

	return records, nil
}

// UpdateByIntentID applies a patch to the record for the intent. A missing
// record is not an error: the intent may belong to another environment
// sharing the gateway account.
func (r *paymentRecordRepository) UpdateByIntentID(ctx context.Context, intentID string, patch map[string]interface{}) error {
	result := r.db.WithContext(ctx).
		Model(&model.PaymentRecord{}).
		Where("gateway_intent_id = ?", intentID).
		Updates(patch)

	if result.Error != nil {
		r.logger.Error("Failed to update payment record",
			zap.String("intent_id", intentID),
			zap.Error(result.Error))
		return fmt.Errorf("failed to update payment record: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		r.logger.Debug("No payment record for intent",
			zap.String("intent_id", intentID))
	}

	return nil
}
