package dto

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ServiceCost is the per-category slice of a plan's total cost
type ServiceCost struct {
	ServiceCategory string          `json:"service_category"`
	Cost            decimal.Decimal `json:"cost"`
}

// FundingAllocation is the amount of total cost applied against one funding source
type FundingAllocation struct {
	FundingSourceID uuid.UUID       `json:"funding_source_id"`
	Name            string          `json:"name"`
	AmountApplied   decimal.Decimal `json:"amount_applied"`
	WasVerified     bool            `json:"was_verified"`
}

// CostEstimate is the derived coverage picture for a set of service items.
// It is recomputed on every request and never persisted: applied coverage is
// a function of the current total cost, not a static snapshot.
type CostEstimate struct {
	TotalCost        decimal.Decimal     `json:"total_cost"`
	CoveredAmount    decimal.Decimal     `json:"covered_amount"`
	OutOfPocketCost  decimal.Decimal     `json:"out_of_pocket_cost"`
	ServiceBreakdown []ServiceCost       `json:"service_breakdown"`
	FundingBreakdown []FundingAllocation `json:"funding_breakdown"`
}
