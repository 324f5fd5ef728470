package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ClientFundingProfile is a funding instrument on file for a client
// (insurance policy, program eligibility, grant award). Profiles seed
// funding recommendations; attaching one to a plan creates a FundingSource.
type ClientFundingProfile struct {
	ID                 uuid.UUID          `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	ClientID           uuid.UUID          `gorm:"type:uuid;not null;index" json:"client_id"`
	Name               string             `gorm:"not null;size:200" json:"name"`
	Kind               FundingKind        `gorm:"size:20;not null;default:'other'" json:"kind"`
	CoveragePercentage *decimal.Decimal   `gorm:"type:decimal(5,2)" json:"coverage_percentage,omitempty"`
	CoverageAmount     *decimal.Decimal   `gorm:"type:decimal(12,2)" json:"coverage_amount,omitempty"`
	VerificationStatus VerificationStatus `gorm:"size:20;not null;default:'pending'" json:"verification_status"`
	PolicyNumber       *string            `gorm:"size:100" json:"policy_number,omitempty"`
	GroupNumber        *string            `gorm:"size:100" json:"group_number,omitempty"`
	Details            JSONB              `gorm:"type:jsonb;default:'{}'" json:"details,omitempty"`
	CreatedAt          time.Time          `gorm:"default:now()" json:"created_at"`
	UpdatedAt          time.Time          `gorm:"default:now()" json:"updated_at"`
}

// TableName specifies the table name for GORM
func (ClientFundingProfile) TableName() string {
	return "client_funding_profiles"
}
