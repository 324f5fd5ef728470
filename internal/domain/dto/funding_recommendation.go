package dto

import (
	"github.com/carebridgehq/billing-service/internal/domain/model"
)

// InsuranceInfo summarizes a client's insurance coverage on file
type InsuranceInfo struct {
	HasInsurance bool     `json:"has_insurance"`
	Carriers     []string `json:"carriers,omitempty"`
	PolicyCount  int      `json:"policy_count"`
}

// FundingRecommendation ranks candidate funding sources for a plan that is
// not yet fully funded. Advisory only; never mutates plan state.
type FundingRecommendation struct {
	AvailableSources    []model.ClientFundingProfile `json:"available_sources"`
	RecommendedSources  []model.ClientFundingProfile `json:"recommended_sources"`
	ClientInsuranceInfo InsuranceInfo                `json:"client_insurance_info"`
}
