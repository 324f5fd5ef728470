package model

import (
	"time"

	"github.com/google/uuid"
)

// PlanStatus represents the lifecycle status of a services plan
type PlanStatus string

const (
	PlanStatusDraft    PlanStatus = "draft"
	PlanStatusActive   PlanStatus = "active"
	PlanStatusArchived PlanStatus = "archived"
)

// Plan represents a services plan bundling service items for a client
type Plan struct {
	ID        uuid.UUID  `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	ClientID  uuid.UUID  `gorm:"type:uuid;not null;index" json:"client_id"`
	Title     string     `gorm:"not null;size:200" json:"title"`
	Status    PlanStatus `gorm:"size:20;not null;default:'draft'" json:"status"`
	CreatedAt time.Time  `gorm:"default:now()" json:"created_at"`
	UpdatedAt time.Time  `gorm:"default:now()" json:"updated_at"`

	// Relations
	Items          []ServiceItem   `gorm:"foreignKey:PlanID" json:"items,omitempty"`
	FundingSources []FundingSource `gorm:"foreignKey:PlanID" json:"funding_sources,omitempty"`
}

// TableName specifies the table name for GORM
func (Plan) TableName() string {
	return "plans"
}
