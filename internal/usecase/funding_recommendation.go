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

// FundingRecommendationService ranks a client's known funding instruments for
// a plan that is not yet fully funded. Advisory only; it never mutates plan
// state.
type FundingRecommendationService struct {
	clientFundingRepo repository.ClientFundingRepository
	planRepo          repository.PlanRepository
	logger            *zap.Logger
}

func NewFundingRecommendationService(
	clientFundingRepo repository.ClientFundingRepository,
	planRepo repository.PlanRepository,
	logger *zap.Logger,
) *FundingRecommendationService {
	return &FundingRecommendationService{
		clientFundingRepo: clientFundingRepo,
		planRepo:          planRepo,
		logger:            logger,
	}
}

// IdentifyFunding returns the client's available funding instruments and a
// ranked recommendation. The heuristic prefers verified over pending sources,
// higher coverage, and sources not already attached to the plan.
func (s *FundingRecommendationService) IdentifyFunding(ctx context.Context, clientID uuid.UUID, planID *uuid.UUID) (*dto.FundingRecommendation, error) {
	profiles, err := s.clientFundingRepo.GetByClientID(ctx, clientID)
	if err != nil {
		return nil, err
	}

	attached := make(map[string]bool)
	if planID != nil {
		plan, err := s.planRepo.FindPlan(ctx, *planID, false, true)
		if err != nil {
			return nil, err
		}
		for i := range plan.FundingSources {
			attached[fundingKey(plan.FundingSources[i].Name, plan.FundingSources[i].Kind)] = true
		}
	}

	recommended := make([]model.ClientFundingProfile, 0, len(profiles))
	for _, p := range profiles {
		if p.VerificationStatus == model.VerificationStatusDenied {
			continue
		}
		if attached[fundingKey(p.Name, p.Kind)] {
			continue
		}
		recommended = append(recommended, p)
	}

	sort.SliceStable(recommended, func(i, j int) bool {
		si, sj := recommendationScore(&recommended[i]), recommendationScore(&recommended[j])
		return si.GreaterThan(sj)
	})

	s.logger.Debug("funding recommendation computed",
		zap.String("client_id", clientID.String()),
		zap.Int("available", len(profiles)),
		zap.Int("recommended", len(recommended)))

	return &dto.FundingRecommendation{
		AvailableSources:    profiles,
		RecommendedSources:  recommended,
		ClientInsuranceInfo: insuranceInfo(profiles),
	}, nil
}

// recommendationScore orders candidates: verification dominates, then the
// magnitude of coverage. Percentages are weighted as if against a nominal
// 10000-unit plan so they compare against fixed amounts on one scale.
func recommendationScore(p *model.ClientFundingProfile) decimal.Decimal {
	score := decimal.Zero
	if p.VerificationStatus == model.VerificationStatusVerified {
		score = score.Add(decimal.NewFromInt(1_000_000))
	}
	if p.CoveragePercentage != nil {
		score = score.Add(p.CoveragePercentage.Mul(decimal.NewFromInt(100)))
	} else if p.CoverageAmount != nil {
		score = score.Add(*p.CoverageAmount)
	}
	return score
}

func insuranceInfo(profiles []model.ClientFundingProfile) dto.InsuranceInfo {
	info := dto.InsuranceInfo{}
	for i := range profiles {
		p := &profiles[i]
		if p.Kind != model.FundingKindInsurance {
			continue
		}
		info.HasInsurance = true
		info.PolicyCount++
		info.Carriers = append(info.Carriers, p.Name)
	}
	return info
}

func fundingKey(name string, kind model.FundingKind) string {
	return string(kind) + ":" + name
}
