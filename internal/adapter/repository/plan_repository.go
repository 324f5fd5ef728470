package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	domainerrors "github.com/carebridgehq/billing-service/internal/domain/errors"
	"github.com/carebridgehq/billing-service/internal/domain/model"
	domainrepo "github.com/carebridgehq/billing-service/internal/domain/repository"
)

type planRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewPlanRepository creates a new plan repository
func NewPlanRepository(db *gorm.DB, logger *zap.Logger) domainrepo.PlanRepository {
	return &planRepository{
		db:     db,
		logger: logger,
	}
}

// FindPlan loads a plan with optional item and funding-source preloads.
// Funding sources keep their stored order so allocation tie-breaks are stable.
func (r *planRepository) FindPlan(ctx context.Context, id uuid.UUID, includeItems, includeFunding bool) (*model.Plan, error) {
	query := r.db.WithContext(ctx)
	if includeItems {
		query = query.Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		})
	}
	if includeFunding {
		query = query.Preload("FundingSources", func(db *gorm.DB) *gorm.DB {
			return db.Order("sort_order ASC, created_at ASC")
		})
	}

	var plan model.Plan
	err := query.Where("id = ?", id).First(&plan).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainerrors.ErrPlanNotFound
		}
		r.logger.Error("Failed to find plan",
			zap.String("plan_id", id.String()),
			zap.Error(err))
		return nil, fmt.Errorf("failed to find plan: %w", err)
	}

	return &plan, nil
}

// FindServiceItems loads the named items, scoped to the owning plan.
func (r *planRepository) FindServiceItems(ctx context.Context, planID uuid.UUID, itemIDs []uuid.UUID) ([]model.ServiceItem, error) {
	var items []model.ServiceItem

	err := r.db.WithContext(ctx).
		Where("plan_id = ? AND id IN ?", planID, itemIDs).
		Order("created_at ASC").
		Find(&items).Error
	if err != nil {
		r.logger.Error("Failed to find service items",
			zap.String("plan_id", planID.String()),
			zap.Error(err))
		return nil, fmt.Errorf("failed to find service items: %w", err)
	}

	return items, nil
}

// SetServiceItemPaymentStatus sets the payment status on the named items.
// The WHERE clause excludes rows already in the target status, so reapplying
// the same transition is a no-op and the returned flag reports real change.
func (r *planRepository) SetServiceItemPaymentStatus(ctx context.Context, planID uuid.UUID, itemIDs []uuid.UUID, status model.ItemPaymentStatus) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&model.ServiceItem{}).
		Where("plan_id = ? AND id IN ? AND payment_status <> ?", planID, itemIDs, status).
		Update("payment_status", status)

	if result.Error != nil {
		r.logger.Error("Failed to set item payment status",
			zap.String("plan_id", planID.String()),
			zap.String("status", string(status)),
			zap.Error(result.Error))
		return false, fmt.Errorf("failed to set item payment status: %w", result.Error)
	}

	return result.RowsAffected > 0, nil
}

// Update applies a patch to plan columns and returns the updated plan.
func (r *planRepository) Update(ctx context.Context, planID uuid.UUID, patch map[string]interface{}) (*model.Plan, error) {
	result := r.db.WithContext(ctx).
		Model(&model.Plan{}).
		Where("id = ?", planID).
		Updates(patch)

	if result.Error != nil {
		r.logger.Error("Failed to update plan",
			zap.String("plan_id", planID.String()),
			zap.Error(result.Error))
		return nil, fmt.Errorf("failed to update plan: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, domainerrors.ErrPlanNotFound
	}

	return r.FindPlan(ctx, planID, false, false)
}
