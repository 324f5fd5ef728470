package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/carebridgehq/billing-service/internal/domain/model"
)

// PlanRepository loads and mutates services plans and their owned records.
type PlanRepository interface {
	// FindPlan loads a plan, optionally preloading items and funding sources.
	// Returns domain errors.ErrPlanNotFound when absent.
	FindPlan(ctx context.Context, id uuid.UUID, includeItems, includeFunding bool) (*model.Plan, error)

	// FindServiceItems loads the named items of a plan. Items belonging to a
	// different plan are not returned.
	FindServiceItems(ctx context.Context, planID uuid.UUID, itemIDs []uuid.UUID) ([]model.ServiceItem, error)

	// SetServiceItemPaymentStatus sets the payment status on the named items.
	// Idempotent: it is a SET, not an increment, so repeated application is a
	// no-op after the first success. Returns true if any row changed.
	SetServiceItemPaymentStatus(ctx context.Context, planID uuid.UUID, itemIDs []uuid.UUID, status model.ItemPaymentStatus) (bool, error)

	// Update applies a patch to plan columns and returns the updated plan.
	Update(ctx context.Context, planID uuid.UUID, patch map[string]interface{}) (*model.Plan, error)
}
