package model

import (
	"time"

	"github.com/google/uuid"
)

// PaymentRecord mirrors a gateway payment intent created for a plan. The
// gateway owns the intent lifecycle; this row exists for attribution, audit
// and refund history.
type PaymentRecord struct {
	ID              int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	GatewayIntentID string     `gorm:"unique;not null;size:100;index" json:"gateway_intent_id"`
	PlanID          uuid.UUID  `gorm:"type:uuid;not null;index" json:"plan_id"`
	ClientID        uuid.UUID  `gorm:"type:uuid;not null;index" json:"client_id"`
	ServiceItemIDs  JSONB      `gorm:"type:jsonb;not null" json:"service_item_ids"`
	AmountCents     int64      `gorm:"not null" json:"amount_cents"`
	Currency        string     `gorm:"size:3;not null;default:'usd'" json:"currency"`
	Status          string     `gorm:"size:50;not null" json:"status"`
	FailureCode     *string    `gorm:"size:100" json:"failure_code,omitempty"`
	FailureMessage  *string    `json:"failure_message,omitempty"`
	RefundID        *string    `gorm:"size:100" json:"refund_id,omitempty"`
	PaidAt          *time.Time `json:"paid_at,omitempty"`
	RefundedAt      *time.Time `json:"refunded_at,omitempty"`
	CreatedAt       time.Time  `gorm:"default:now()" json:"created_at"`
	UpdatedAt       time.Time  `gorm:"default:now()" json:"updated_at"`
}

// TableName specifies the table name for GORM
func (PaymentRecord) TableName() string {
	return "payment_records"
}
