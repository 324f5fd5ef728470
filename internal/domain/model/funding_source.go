package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// FundingKind classifies a funding instrument
type FundingKind string

const (
	FundingKindInsurance  FundingKind = "insurance"
	FundingKindMedicaid   FundingKind = "medicaid"
	FundingKindGrant      FundingKind = "grant"
	FundingKindPrivatePay FundingKind = "private_pay"
	FundingKindGovernment FundingKind = "government"
	FundingKindOther      FundingKind = "other"
)

// VerificationStatus tracks whether a funding source's coverage has been confirmed
type VerificationStatus string

const (
	VerificationStatusPending  VerificationStatus = "pending"
	VerificationStatusVerified VerificationStatus = "verified"
	VerificationStatusDenied   VerificationStatus = "denied"
)

// FundingSource represents an entity covering some or all of a plan's cost.
// At least one of CoveragePercentage and CoverageAmount is expected to be set;
// a source with neither contributes nothing and is flagged for data-quality
// follow-up rather than rejected.
type FundingSource struct {
	ID                 uuid.UUID          `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	PlanID             uuid.UUID          `gorm:"type:uuid;not null;index" json:"plan_id"`
	Name               string             `gorm:"not null;size:200" json:"name"`
	Kind               FundingKind        `gorm:"size:20;not null;default:'other'" json:"kind"`
	CoveragePercentage *decimal.Decimal   `gorm:"type:decimal(5,2)" json:"coverage_percentage,omitempty"`
	CoverageAmount     *decimal.Decimal   `gorm:"type:decimal(12,2)" json:"coverage_amount,omitempty"`
	VerificationStatus VerificationStatus `gorm:"size:20;not null;default:'pending';index" json:"verification_status"`
	Details            JSONB              `gorm:"type:jsonb;default:'{}'" json:"details,omitempty"`
	SortOrder          int                `gorm:"default:0" json:"sort_order"`
	CreatedAt          time.Time          `gorm:"default:now()" json:"created_at"`
	UpdatedAt          time.Time          `gorm:"default:now()" json:"updated_at"`
}

// TableName specifies the table name for GORM
func (FundingSource) TableName() string {
	return "funding_sources"
}

// Denied sources contribute zero coverage regardless of their coverage fields.
func (f *FundingSource) Denied() bool {
	return f.VerificationStatus == VerificationStatusDenied
}

// Verified reports whether the source's coverage has been confirmed.
func (f *FundingSource) Verified() bool {
	return f.VerificationStatus == VerificationStatusVerified
}
