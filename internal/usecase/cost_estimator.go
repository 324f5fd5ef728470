package usecase

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/carebridgehq/billing-service/internal/domain/dto"
	"github.com/carebridgehq/billing-service/internal/domain/model"
	"github.com/carebridgehq/billing-service/internal/domain/repository"
)

var oneHundred = decimal.NewFromInt(100)

// CostEstimator computes how the cost of a plan's service items is covered
// across its funding sources. Estimate is deterministic and has no side
// effects beyond data-quality logging; amounts stay in decimal major units
// so rounding error never compounds across allocations.
type CostEstimator struct {
	planRepo repository.PlanRepository
	logger   *zap.Logger
}

func NewCostEstimator(planRepo repository.PlanRepository, logger *zap.Logger) *CostEstimator {
	return &CostEstimator{
		planRepo: planRepo,
		logger:   logger,
	}
}

// Estimate produces the coverage allocation for the given items and funding
// sources. Discontinued items are excluded from the total. Funding sources
// are applied verified-first, then pending, denied last; within a tier the
// stored order is kept so repeated runs are stable. A denied source always
// contributes zero but still appears in the breakdown.
func (e *CostEstimator) Estimate(items []model.ServiceItem, sources []model.FundingSource) dto.CostEstimate {
	totalCost := decimal.Zero
	categoryTotals := make(map[string]decimal.Decimal)
	var categoryOrder []string

	for i := range items {
		item := &items[i]
		if !item.Billable() {
			continue
		}
		totalCost = totalCost.Add(item.EstimatedCost)
		if _, seen := categoryTotals[item.ServiceCategory]; !seen {
			categoryOrder = append(categoryOrder, item.ServiceCategory)
		}
		categoryTotals[item.ServiceCategory] = categoryTotals[item.ServiceCategory].Add(item.EstimatedCost)
	}

	serviceBreakdown := make([]dto.ServiceCost, 0, len(categoryOrder))
	for _, category := range categoryOrder {
		serviceBreakdown = append(serviceBreakdown, dto.ServiceCost{
			ServiceCategory: category,
			Cost:            categoryTotals[category],
		})
	}

	ordered := make([]model.FundingSource, len(sources))
	copy(ordered, sources)
	sort.SliceStable(ordered, func(i, j int) bool {
		return verificationRank(ordered[i].VerificationStatus) < verificationRank(ordered[j].VerificationStatus)
	})

	coveredAmount := decimal.Zero
	fundingBreakdown := make([]dto.FundingAllocation, 0, len(ordered))

	for i := range ordered {
		source := &ordered[i]
		applied := decimal.Zero

		remaining := totalCost.Sub(coveredAmount)
		if !source.Denied() && remaining.IsPositive() {
			nominal := e.nominalCoverage(source, totalCost)
			applied = decimal.Min(nominal, remaining)
			if applied.IsNegative() {
				applied = decimal.Zero
			}
			coveredAmount = coveredAmount.Add(applied)
		}

		fundingBreakdown = append(fundingBreakdown, dto.FundingAllocation{
			FundingSourceID: source.ID,
			Name:            source.Name,
			AmountApplied:   applied,
			WasVerified:     source.Verified(),
		})
	}

	outOfPocket := totalCost.Sub(coveredAmount)
	if outOfPocket.IsNegative() {
		outOfPocket = decimal.Zero
	}

	return dto.CostEstimate{
		TotalCost:        totalCost,
		CoveredAmount:    coveredAmount,
		OutOfPocketCost:  outOfPocket,
		ServiceBreakdown: serviceBreakdown,
		FundingBreakdown: fundingBreakdown,
	}
}

// EstimateForPlan loads the plan with items and funding sources and runs the
// allocation over all of them.
func (e *CostEstimator) EstimateForPlan(ctx context.Context, planID uuid.UUID) (*dto.CostEstimate, error) {
	plan, err := e.planRepo.FindPlan(ctx, planID, true, true)
	if err != nil {
		return nil, err
	}

	estimate := e.Estimate(plan.Items, plan.FundingSources)
	return &estimate, nil
}

// nominalCoverage derives the uncapped contribution of a source. Percentage
// takes precedence when both fields are set; a source with neither set
// contributes zero and is logged for data-quality follow-up, never an error,
// because estimation must not block an otherwise valid plan view.
func (e *CostEstimator) nominalCoverage(source *model.FundingSource, totalCost decimal.Decimal) decimal.Decimal {
	if source.CoveragePercentage != nil {
		return source.CoveragePercentage.Div(oneHundred).Mul(totalCost)
	}
	if source.CoverageAmount != nil {
		return *source.CoverageAmount
	}

	e.logger.Warn("funding source has neither coverage percentage nor amount",
		zap.String("funding_source_id", source.ID.String()),
		zap.String("name", source.Name))
	return decimal.Zero
}

func verificationRank(status model.VerificationStatus) int {
	switch status {
	case model.VerificationStatusVerified:
		return 0
	case model.VerificationStatusPending:
		return 1
	default:
		return 2
	}
}

// MinorUnits converts a major-unit decimal amount to integer minor units
// (x100, rounded half-up). Only used at the payment-gateway boundary.
func MinorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(oneHundred).Round(0).IntPart()
}
