package dto

import "github.com/google/uuid"

// CreateIntentResult is returned when a payment intent has been created at
// the gateway. Nothing changes locally until the payment is confirmed.
type CreateIntentResult struct {
	IntentID     string `json:"intent_id"`
	ClientSecret string `json:"client_secret"`
	AmountCents  int64  `json:"amount_cents"`
	Currency     string `json:"currency"`
}

// ProcessPaymentResult reports the outcome of confirming a payment
type ProcessPaymentResult struct {
	Success bool      `json:"success"`
	PlanID  uuid.UUID `json:"plan_id"`
	Status  string    `json:"status"`
}

// RefundResult reports the outcome of a refund request
type RefundResult struct {
	Success     bool   `json:"success"`
	RefundID    string `json:"refund_id"`
	AmountCents int64  `json:"amount_cents"`
}

// PaymentStatusResult is the read-only view of a gateway intent
type PaymentStatusResult struct {
	IntentID    string            `json:"intent_id"`
	Status      string            `json:"status"`
	AmountCents int64             `json:"amount_cents"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// WebhookResult reports how an inbound gateway event was handled
type WebhookResult struct {
	Received  bool   `json:"received"`
	Duplicate bool   `json:"duplicate,omitempty"`
	EventType string `json:"event_type,omitempty"`
}
