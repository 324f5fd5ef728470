package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/carebridgehq/billing-service/internal/domain/model"
)

// ClientFundingRepository reads the funding instruments on file for a client.
type ClientFundingRepository interface {
	// GetByClientID returns all funding profiles for the client in stored order.
	GetByClientID(ctx context.Context, clientID uuid.UUID) ([]model.ClientFundingProfile, error)
}
