package gateway

import (
	"context"
	"encoding/json"
	"time"
)

// Intent statuses mirror the gateway's payment-intent lifecycle. The gateway
// owns these states; the orchestrator never assumes a transition happened
// without confirming it via retrieval or a verified event.
const (
	IntentStatusRequiresPaymentMethod = "requires_payment_method"
	IntentStatusRequiresConfirmation  = "requires_confirmation"
	IntentStatusProcessing            = "processing"
	IntentStatusSucceeded             = "succeeded"
	IntentStatusCanceled              = "canceled"
	IntentStatusFailed                = "failed"
)

// Webhook event types the engine dispatches on. Unrecognized types are
// accepted and ignored for forward compatibility with gateway additions.
const (
	EventTypePaymentSucceeded = "payment_intent.succeeded"
	EventTypePaymentFailed    = "payment_intent.payment_failed"
)

// Intent is the provider-agnostic view of a gateway payment intent
type Intent struct {
	ID             string            `json:"id"`
	ClientSecret   string            `json:"client_secret,omitempty"`
	AmountCents    int64             `json:"amount_cents"`
	Currency       string            `json:"currency"`
	Status         string            `json:"status"`
	Metadata       map[string]string `json:"metadata,omitempty"`
	FailureCode    string            `json:"failure_code,omitempty"`
	FailureMessage string            `json:"failure_message,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
}

// Refund is the provider-agnostic view of a gateway refund
type Refund struct {
	ID          string `json:"id"`
	IntentID    string `json:"intent_id"`
	AmountCents int64  `json:"amount_cents"`
	Status      string `json:"status"`
}

// Event is a verified webhook notification from the gateway
type Event struct {
	ID        string            `json:"id"`
	Type      string            `json:"type"`
	ObjectID  string            `json:"object_id"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	Raw       json.RawMessage   `json:"raw"`
	CreatedAt time.Time         `json:"created_at"`
}

// CreateIntentRequest creates one attempted charge at the gateway
type CreateIntentRequest struct {
	AmountCents int64
	Currency    string
	CustomerID  string
	Metadata    IntentMetadata
}

// CreateRefundRequest requests a refund against a succeeded intent
type CreateRefundRequest struct {
	IntentID    string
	AmountCents int64
	Reason      string
}

// PaymentGateway abstracts the third-party payment processor. Implementations
// must bound each call with the context deadline and must not retry; retry
// policy belongs to the caller.
type PaymentGateway interface {
	CreateIntent(ctx context.Context, req *CreateIntentRequest) (*Intent, error)
	RetrieveIntent(ctx context.Context, id string) (*Intent, error)
	CancelIntent(ctx context.Context, id, reason string) (*Intent, error)
	CreateRefund(ctx context.Context, req *CreateRefundRequest) (*Refund, error)

	// ConstructWebhookEvent verifies the payload signature and builds the
	// event. Returns errors.SignatureVerificationError on mismatch.
	ConstructWebhookEvent(payload []byte, signatureHeader string) (*Event, error)
}
