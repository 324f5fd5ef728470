package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ServiceItemStatus represents the lifecycle status of a service item
type ServiceItemStatus string

const (
	ServiceItemStatusPending      ServiceItemStatus = "pending"
	ServiceItemStatusActive       ServiceItemStatus = "active"
	ServiceItemStatusCompleted    ServiceItemStatus = "completed"
	ServiceItemStatusDiscontinued ServiceItemStatus = "discontinued"
)

// ItemPaymentStatus tracks settlement independently of the lifecycle status
type ItemPaymentStatus string

const (
	ItemPaymentStatusUnpaid   ItemPaymentStatus = "unpaid"
	ItemPaymentStatusPaid     ItemPaymentStatus = "paid"
	ItemPaymentStatusRefunded ItemPaymentStatus = "refunded"
	ItemPaymentStatusFailed   ItemPaymentStatus = "failed"
)

// ServiceItem represents one billable unit of care within a plan
type ServiceItem struct {
	ID              uuid.UUID         `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	PlanID          uuid.UUID         `gorm:"type:uuid;not null;index" json:"plan_id"`
	ServiceCategory string            `gorm:"not null;size:100;index" json:"service_category"`
	ProviderID      *uuid.UUID        `gorm:"type:uuid" json:"provider_id,omitempty"`
	Description     string            `json:"description"`
	Frequency       string            `gorm:"size:100" json:"frequency"`
	Duration        string            `gorm:"size:100" json:"duration"`
	EstimatedCost   decimal.Decimal   `gorm:"type:decimal(12,2);not null;default:0" json:"estimated_cost"`
	Status          ServiceItemStatus `gorm:"size:20;not null;default:'pending'" json:"status"`
	PaymentStatus   ItemPaymentStatus `gorm:"size:20;not null;default:'unpaid';index" json:"payment_status"`
	CreatedAt       time.Time         `gorm:"default:now()" json:"created_at"`
	UpdatedAt       time.Time         `gorm:"default:now()" json:"updated_at"`
}

// TableName specifies the table name for GORM
func (ServiceItem) TableName() string {
	return "service_items"
}

// Billable reports whether the item counts toward the plan's total cost.
func (s *ServiceItem) Billable() bool {
	return s.Status != ServiceItemStatusDiscontinued
}
