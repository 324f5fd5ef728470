package stripe

import (
	"context"
	"encoding/json"
	"time"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/paymentintent"
	"github.com/stripe/stripe-go/v79/refund"
	"github.com/stripe/stripe-go/v79/webhook"
	"go.uber.org/zap"

	domainerrors "github.com/carebridgehq/billing-service/internal/domain/errors"
	"github.com/carebridgehq/billing-service/internal/domain/gateway"
)

// Gateway implements gateway.PaymentGateway against Stripe payment intents.
type Gateway struct {
	webhookSecret string
	logger        *zap.Logger
}

// NewGateway creates a Stripe-backed payment gateway. The global stripe.Key
// is expected to be set by the server bootstrap.
func NewGateway(webhookSecret string, logger *zap.Logger) *Gateway {
	return &Gateway{
		webhookSecret: webhookSecret,
		logger:        logger,
	}
}

// CreateIntent creates a payment intent with the attribution metadata
// attached, so later webhook deliveries are self-describing.
func (g *Gateway) CreateIntent(ctx context.Context, req *gateway.CreateIntentRequest) (*gateway.Intent, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(req.AmountCents),
		Currency: stripe.String(req.Currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx
	if req.CustomerID != "" {
		params.Customer = stripe.String(req.CustomerID)
	}
	for k, v := range req.Metadata.ToMap() {
		params.AddMetadata(k, v)
	}

	pi, err := paymentintent.New(params)
	if err != nil {
		return nil, &domainerrors.GatewayError{Op: "create_intent", Err: err}
	}

	return toIntent(pi), nil
}

// RetrieveIntent fetches the current gateway state of an intent.
func (g *Gateway) RetrieveIntent(ctx context.Context, id string) (*gateway.Intent, error) {
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx

	pi, err := paymentintent.Get(id, params)
	if err != nil {
		return nil, &domainerrors.GatewayError{Op: "retrieve_intent", Err: err}
	}

	return toIntent(pi), nil
}

// CancelIntent cancels an intent. Stripe rejects cancellation of intents in
// an incompatible terminal state; that error is wrapped and surfaced.
func (g *Gateway) CancelIntent(ctx context.Context, id, reason string) (*gateway.Intent, error) {
	params := &stripe.PaymentIntentCancelParams{}
	params.Context = ctx
	if reason != "" {
		params.CancellationReason = stripe.String(reason)
	}

	pi, err := paymentintent.Cancel(id, params)
	if err != nil {
		return nil, &domainerrors.GatewayError{Op: "cancel_intent", Err: err}
	}

	return toIntent(pi), nil
}

// CreateRefund requests a refund against an intent. A zero amount requests a
// full refund.
func (g *Gateway) CreateRefund(ctx context.Context, req *gateway.CreateRefundRequest) (*gateway.Refund, error) {
	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(req.IntentID),
	}
	params.Context = ctx
	if req.AmountCents > 0 {
		params.Amount = stripe.Int64(req.AmountCents)
	}
	if req.Reason != "" {
		params.Reason = stripe.String(req.Reason)
	}

	r, err := refund.New(params)
	if err != nil {
		return nil, &domainerrors.GatewayError{Op: "create_refund", Err: err}
	}

	return &gateway.Refund{
		ID:          r.ID,
		IntentID:    req.IntentID,
		AmountCents: r.Amount,
		Status:      string(r.Status),
	}, nil
}

// ConstructWebhookEvent verifies the Stripe signature and extracts the
// embedded object's id and metadata for dispatch.
func (g *Gateway) ConstructWebhookEvent(payload []byte, signatureHeader string) (*gateway.Event, error) {
	event, err := webhook.ConstructEventWithOptions(
		payload,
		signatureHeader,
		g.webhookSecret,
		webhook.ConstructEventOptions{
			IgnoreAPIVersionMismatch: true,
		},
	)
	if err != nil {
		return nil, &domainerrors.SignatureVerificationError{Err: err}
	}

	var object struct {
		ID       string            `json:"id"`
		Metadata map[string]string `json:"metadata"`
	}
	if err := json.Unmarshal(event.Data.Raw, &object); err != nil {
		g.logger.Warn("webhook event object could not be parsed",
			zap.String("event_id", event.ID),
			zap.String("event_type", string(event.Type)),
			zap.Error(err))
	}

	return &gateway.Event{
		ID:        event.ID,
		Type:      string(event.Type),
		ObjectID:  object.ID,
		Metadata:  object.Metadata,
		Raw:       json.RawMessage(event.Data.Raw),
		CreatedAt: time.Unix(event.Created, 0),
	}, nil
}

func toIntent(pi *stripe.PaymentIntent) *gateway.Intent {
	intent := &gateway.Intent{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		AmountCents:  pi.Amount,
		Currency:     string(pi.Currency),
		Status:       string(pi.Status),
		Metadata:     pi.Metadata,
		CreatedAt:    time.Unix(pi.Created, 0),
	}
	if pi.LastPaymentError != nil {
		intent.FailureCode = string(pi.LastPaymentError.Code)
		intent.FailureMessage = pi.LastPaymentError.Msg
	}
	return intent
}
