package model

import (
	"database/sql/driver"
	"time"
)

// WebhookStatus represents the processing status of a webhook event
type WebhookStatus string

const (
	WebhookStatusPending   WebhookStatus = "pending"
	WebhookStatusCompleted WebhookStatus = "completed"
	WebhookStatusFailed    WebhookStatus = "failed"
	WebhookStatusIgnored   WebhookStatus = "ignored"
)

// Scan implements sql.Scanner interface
func (w *WebhookStatus) Scan(src interface{}) error {
	switch v := src.(type) {
	case string:
		*w = WebhookStatus(v)
	case []byte:
		*w = WebhookStatus(v)
	default:
		*w = WebhookStatusPending
	}
	return nil
}

// Value implements driver.Valuer interface
func (w WebhookStatus) Value() (driver.Value, error) {
	return string(w), nil
}

// GatewayWebhookEvent is the idempotency ledger for gateway notifications.
// The unique constraint on GatewayEventID is what makes check-and-insert
// atomic: the same event id is never applied twice.
type GatewayWebhookEvent struct {
	ID               int64         `gorm:"primaryKey;autoIncrement" json:"id"`
	GatewayEventID   string        `gorm:"unique;not null;size:255;index" json:"gateway_event_id"`
	EventType        string        `gorm:"not null;size:100;index" json:"event_type"`
	Status           WebhookStatus `gorm:"size:20;default:'pending';index" json:"status"`
	ProcessedAt      *time.Time    `json:"processed_at,omitempty"`
	Payload          JSONB         `gorm:"type:jsonb;not null" json:"payload"`
	LastError        *string       `json:"last_error,omitempty"`
	CreatedAt        time.Time     `gorm:"default:now()" json:"created_at"`
	GatewayCreatedAt *time.Time    `json:"gateway_created_at,omitempty"`
}

// TableName specifies the table name for GORM
func (GatewayWebhookEvent) TableName() string {
	return "gateway_webhook_events"
}
