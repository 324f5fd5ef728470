package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/carebridgehq/billing-service/internal/domain/model"
	domainrepo "github.com/carebridgehq/billing-service/internal/domain/repository"
)

type clientFundingRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewClientFundingRepository creates a new client funding profile repository
func NewClientFundingRepository(db *gorm.DB, logger *zap.Logger) domainrepo.ClientFundingRepository {
	return &clientFundingRepository{
		db:     db,
		logger: logger,
	}
}

// GetByClientID returns the client's funding profiles in stored order.
func (r *clientFundingRepository) GetByClientID(ctx context.Context, clientID uuid.UUID) ([]model.ClientFundingProfile, error) {
	var profiles []model.ClientFundingProfile

	err := r.db.WithContext(ctx).
		Where("client_id = ?", clientID).
		Order("created_at ASC").
		Find(&profiles).Error
	if err != nil {
		r.logger.Error("Failed to get client funding profiles",
			zap.String("client_id", clientID.String()),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get client funding profiles: %w", err)
	}

	return profiles, nil
}
