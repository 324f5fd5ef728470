package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/carebridgehq/billing-service/internal/domain/dto"
	domainerrors "github.com/carebridgehq/billing-service/internal/domain/errors"
	"github.com/carebridgehq/billing-service/internal/domain/gateway"
	"github.com/carebridgehq/billing-service/internal/domain/model"
	"github.com/carebridgehq/billing-service/internal/domain/repository"
)

// PaymentOrchestrator drives the gateway payment-intent lifecycle for plan
// settlements. The gateway owns intent state; the orchestrator only acts on
// state it has confirmed via retrieval or a verified webhook event.
//
// ProcessPayment is the single choke point for "payment confirmed": both a
// client polling for status and an inbound webhook route through it, and the
// repository status-set it performs is an idempotent SET, so concurrent
// invocations for the same intent are safe.
type PaymentOrchestrator struct {
	planRepo       repository.PlanRepository
	paymentRepo    repository.PaymentRecordRepository
	webhookRepo    repository.WebhookRepository
	gateway        gateway.PaymentGateway
	estimator      *CostEstimator
	currency       string
	gatewayTimeout time.Duration
	logger         *zap.Logger
}

func NewPaymentOrchestrator(
	planRepo repository.PlanRepository,
	paymentRepo repository.PaymentRecordRepository,
	webhookRepo repository.WebhookRepository,
	gw gateway.PaymentGateway,
	estimator *CostEstimator,
	currency string,
	gatewayTimeout time.Duration,
	logger *zap.Logger,
) *PaymentOrchestrator {
	if currency == "" {
		currency = "usd"
	}
	return &PaymentOrchestrator{
		planRepo:       planRepo,
		paymentRepo:    paymentRepo,
		webhookRepo:    webhookRepo,
		gateway:        gw,
		estimator:      estimator,
		currency:       currency,
		gatewayTimeout: gatewayTimeout,
		logger:         logger,
	}
}

// CreatePaymentIntent recomputes the authoritative charge for the named items
// and creates an intent at the gateway. The client-supplied amount is never
// trusted. No local state changes until the payment is confirmed; an intent
// abandoned after creation simply expires at the gateway.
func (o *PaymentOrchestrator) CreatePaymentIntent(ctx context.Context, planID uuid.UUID, itemIDs []uuid.UUID, customerID string) (*dto.CreateIntentResult, error) {
	plan, err := o.planRepo.FindPlan(ctx, planID, false, true)
	if err != nil {
		return nil, err
	}

	items, err := o.planRepo.FindServiceItems(ctx, planID, itemIDs)
	if err != nil {
		return nil, err
	}
	if len(items) != len(itemIDs) {
		o.logger.Warn("payment requested for items not in plan",
			zap.String("plan_id", planID.String()),
			zap.Int("requested", len(itemIDs)),
			zap.Int("found", len(items)))
		return nil, domainerrors.ErrServiceItemNotFound
	}

	billable := 0
	for i := range items {
		if items[i].Billable() {
			billable++
		}
	}
	if billable == 0 {
		return nil, domainerrors.ErrNoBillableItems
	}

	estimate := o.estimator.Estimate(items, plan.FundingSources)
	amountCents := MinorUnits(estimate.OutOfPocketCost)
	if amountCents <= 0 {
		return nil, domainerrors.ErrNothingToCharge
	}

	meta := buildIntentMetadata(plan, items)
	if err := meta.Validate(); err != nil {
		return nil, err
	}

	gctx, cancel := o.boundGatewayContext(ctx)
	defer cancel()

	intent, err := o.gateway.CreateIntent(gctx, &gateway.CreateIntentRequest{
		AmountCents: amountCents,
		Currency:    o.currency,
		CustomerID:  customerID,
		Metadata:    *meta,
	})
	if err != nil {
		o.logger.Error("failed to create payment intent",
			zap.String("plan_id", planID.String()),
			zap.Int64("amount_cents", amountCents),
			zap.Error(err))
		return nil, err
	}

	record := &model.PaymentRecord{
		GatewayIntentID: intent.ID,
		PlanID:          plan.ID,
		ClientID:        plan.ClientID,
		ServiceItemIDs:  model.JSONB{"ids": itemIDStrings(itemIDs)},
		AmountCents:     intent.AmountCents,
		Currency:        intent.Currency,
		Status:          intent.Status,
	}
	if err := o.paymentRepo.Create(ctx, record); err != nil {
		// The intent exists at the gateway; the local mirror is advisory.
		o.logger.Error("failed to save payment record",
			zap.String("intent_id", intent.ID),
			zap.Error(err))
	}

	o.logger.Info("payment intent created",
		zap.String("intent_id", intent.ID),
		zap.String("plan_id", plan.ID.String()),
		zap.Int64("amount_cents", intent.AmountCents))

	return &dto.CreateIntentResult{
		IntentID:     intent.ID,
		ClientSecret: intent.ClientSecret,
		AmountCents:  intent.AmountCents,
		Currency:     intent.Currency,
	}, nil
}

// ProcessPayment confirms a payment against the gateway and marks the charged
// items paid. Fails with PaymentNotSucceededError unless the intent has
// reached succeeded; the repository is untouched in that case.
func (o *PaymentOrchestrator) ProcessPayment(ctx context.Context, intentID string) (*dto.ProcessPaymentResult, error) {
	gctx, cancel := o.boundGatewayContext(ctx)
	defer cancel()

	intent, err := o.gateway.RetrieveIntent(gctx, intentID)
	if err != nil {
		return nil, err
	}

	if intent.Status != gateway.IntentStatusSucceeded {
		return nil, &domainerrors.PaymentNotSucceededError{
			IntentID: intentID,
			Status:   intent.Status,
		}
	}

	meta, err := gateway.ParseIntentMetadata(intent.Metadata)
	if err != nil {
		// Gateway metadata can be stripped or mangled by dashboard edits; the
		// local mirror keeps the same attribution and serves as a fallback.
		planID, itemIDs, ok := o.attributionFromRecord(ctx, intentID)
		if !ok {
			o.logger.Error("succeeded intent carries invalid metadata",
				zap.String("intent_id", intentID),
				zap.Error(err))
			return nil, fmt.Errorf("cannot attribute payment %s: %w", intentID, err)
		}
		o.logger.Warn("intent metadata unusable, attributed from local record",
			zap.String("intent_id", intentID),
			zap.Error(err))
		meta = &gateway.IntentMetadata{PlanID: planID, ItemIDs: itemIDs}
	}

	changed, err := o.planRepo.SetServiceItemPaymentStatus(ctx, meta.PlanID, meta.ItemIDs, model.ItemPaymentStatusPaid)
	if err != nil {
		return nil, fmt.Errorf("failed to mark items paid for intent %s: %w", intentID, err)
	}

	now := time.Now()
	if err := o.paymentRepo.UpdateByIntentID(ctx, intentID, map[string]interface{}{
		"status":  intent.Status,
		"paid_at": &now,
	}); err != nil {
		o.logger.Error("failed to update payment record",
			zap.String("intent_id", intentID),
			zap.Error(err))
	}

	if changed {
		o.logger.Info("payment confirmed, items marked paid",
			zap.String("intent_id", intentID),
			zap.String("plan_id", meta.PlanID.String()),
			zap.Int("item_count", len(meta.ItemIDs)))
	} else {
		o.logger.Debug("payment already applied",
			zap.String("intent_id", intentID))
	}

	return &dto.ProcessPaymentResult{
		Success: true,
		PlanID:  meta.PlanID,
		Status:  string(model.ItemPaymentStatusPaid),
	}, nil
}

// CancelPayment delegates cancellation to the gateway. The gateway rejects
// cancellation of intents in an incompatible terminal state; that error is
// surfaced verbatim.
func (o *PaymentOrchestrator) CancelPayment(ctx context.Context, intentID, reason string) (*dto.PaymentStatusResult, error) {
	gctx, cancel := o.boundGatewayContext(ctx)
	defer cancel()

	intent, err := o.gateway.CancelIntent(gctx, intentID, reason)
	if err != nil {
		return nil, err
	}

	if err := o.paymentRepo.UpdateByIntentID(ctx, intentID, map[string]interface{}{
		"status": intent.Status,
	}); err != nil {
		o.logger.Error("failed to update payment record after cancel",
			zap.String("intent_id", intentID),
			zap.Error(err))
	}

	o.logger.Info("payment intent canceled",
		zap.String("intent_id", intentID),
		zap.String("reason", reason))

	return &dto.PaymentStatusResult{
		IntentID:    intent.ID,
		Status:      intent.Status,
		AmountCents: intent.AmountCents,
		Metadata:    intent.Metadata,
	}, nil
}

// RefundPayment refunds a succeeded intent. amountCents of zero requests a
// full refund. Fails with NotEligibleForRefundError before any gateway refund
// is created when the intent never succeeded.
func (o *PaymentOrchestrator) RefundPayment(ctx context.Context, intentID string, amountCents int64, reason string) (*dto.RefundResult, error) {
	gctx, cancel := o.boundGatewayContext(ctx)
	defer cancel()

	intent, err := o.gateway.RetrieveIntent(gctx, intentID)
	if err != nil {
		return nil, err
	}

	if intent.Status != gateway.IntentStatusSucceeded {
		return nil, &domainerrors.NotEligibleForRefundError{
			IntentID: intentID,
			Status:   intent.Status,
		}
	}

	refund, err := o.gateway.CreateRefund(gctx, &gateway.CreateRefundRequest{
		IntentID:    intentID,
		AmountCents: amountCents,
		Reason:      reason,
	})
	if err != nil {
		return nil, err
	}

	now := time.Now()
	if err := o.paymentRepo.UpdateByIntentID(ctx, intentID, map[string]interface{}{
		"refund_id":   &refund.ID,
		"refunded_at": &now,
	}); err != nil {
		o.logger.Error("failed to update payment record after refund",
			zap.String("intent_id", intentID),
			zap.Error(err))
	}

	// A full refund flips the charged items back to refunded; partial refunds
	// leave item status alone since the items remain settled.
	if amountCents == 0 || refund.AmountCents >= intent.AmountCents {
		if meta, metaErr := gateway.ParseIntentMetadata(intent.Metadata); metaErr == nil {
			if _, err := o.planRepo.SetServiceItemPaymentStatus(ctx, meta.PlanID, meta.ItemIDs, model.ItemPaymentStatusRefunded); err != nil {
				o.logger.Error("failed to mark items refunded",
					zap.String("intent_id", intentID),
					zap.Error(err))
			}
		} else {
			o.logger.Warn("refunded intent carries invalid metadata, item status unchanged",
				zap.String("intent_id", intentID),
				zap.Error(metaErr))
		}
	}

	o.logger.Info("payment refunded",
		zap.String("intent_id", intentID),
		zap.String("refund_id", refund.ID),
		zap.Int64("amount_cents", refund.AmountCents))

	return &dto.RefundResult{
		Success:     true,
		RefundID:    refund.ID,
		AmountCents: refund.AmountCents,
	}, nil
}

// GetPaymentStatus is a read-only retrieval of the intent's gateway state.
func (o *PaymentOrchestrator) GetPaymentStatus(ctx context.Context, intentID string) (*dto.PaymentStatusResult, error) {
	gctx, cancel := o.boundGatewayContext(ctx)
	defer cancel()

	intent, err := o.gateway.RetrieveIntent(gctx, intentID)
	if err != nil {
		return nil, err
	}

	return &dto.PaymentStatusResult{
		IntentID:    intent.ID,
		Status:      intent.Status,
		AmountCents: intent.AmountCents,
		Metadata:    intent.Metadata,
	}, nil
}

// ListPlanPayments returns the plan's payment and refund history from the
// local mirror, newest first.
func (o *PaymentOrchestrator) ListPlanPayments(ctx context.Context, planID uuid.UUID) ([]*model.PaymentRecord, error) {
	if _, err := o.planRepo.FindPlan(ctx, planID, false, false); err != nil {
		return nil, err
	}
	return o.paymentRepo.GetByPlanID(ctx, planID)
}

// attributionFromRecord recovers the plan and item ids for an intent from the
// local payment record when the gateway metadata cannot be parsed.
func (o *PaymentOrchestrator) attributionFromRecord(ctx context.Context, intentID string) (uuid.UUID, []uuid.UUID, bool) {
	record, err := o.paymentRepo.GetByIntentID(ctx, intentID)
	if err != nil || record == nil {
		return uuid.Nil, nil, false
	}

	raw, _ := record.ServiceItemIDs["ids"].([]interface{})
	itemIDs := make([]uuid.UUID, 0, len(raw))
	for _, v := range raw {
		s, ok := v.(string)
		if !ok {
			return uuid.Nil, nil, false
		}
		id, err := uuid.Parse(s)
		if err != nil {
			return uuid.Nil, nil, false
		}
		itemIDs = append(itemIDs, id)
	}
	if len(itemIDs) == 0 {
		return uuid.Nil, nil, false
	}

	return record.PlanID, itemIDs, true
}

// HandleWebhook verifies and dispatches an inbound gateway notification.
// Deliveries are at-least-once and possibly out of order: the event id is
// recorded in the ledger with an atomic check-and-insert before dispatch, and
// a replayed id returns without re-applying side effects.
func (o *PaymentOrchestrator) HandleWebhook(ctx context.Context, payload []byte, signatureHeader string) (*dto.WebhookResult, error) {
	event, err := o.gateway.ConstructWebhookEvent(payload, signatureHeader)
	if err != nil {
		// A bad signature indicates a potentially forged request.
		o.logger.Error("webhook rejected", zap.Error(err))
		return nil, err
	}

	created, existing, err := o.webhookRepo.InsertEvent(ctx, event.ID, event.Type, event.Raw)
	if err != nil {
		return nil, fmt.Errorf("failed to record webhook event %s: %w", event.ID, err)
	}
	if !created {
		switch existing.Status {
		case model.WebhookStatusCompleted, model.WebhookStatusIgnored:
			o.logger.Info("duplicate webhook delivery ignored",
				zap.String("event_id", event.ID),
				zap.String("event_type", existing.EventType),
				zap.String("prior_status", string(existing.Status)))
			return &dto.WebhookResult{
				Received:  true,
				Duplicate: true,
				EventType: existing.EventType,
			}, nil
		default:
			// The first delivery never finished (pending) or failed before its
			// side effects applied. The status sets behind each event type are
			// idempotent, so dispatching again is safe even against an
			// in-flight first delivery.
			o.logger.Info("redelivered webhook event, retrying dispatch",
				zap.String("event_id", event.ID),
				zap.String("event_type", existing.EventType),
				zap.String("prior_status", string(existing.Status)))
		}
	}

	o.logger.Info("webhook event received",
		zap.String("event_id", event.ID),
		zap.String("event_type", event.Type),
		zap.String("object_id", event.ObjectID))

	switch event.Type {
	case gateway.EventTypePaymentSucceeded:
		if _, err := o.ProcessPayment(ctx, event.ObjectID); err != nil {
			o.markFailed(ctx, event.ID, err)
			return nil, err
		}
		o.markProcessed(ctx, event.ID)

	case gateway.EventTypePaymentFailed:
		if err := o.recordPaymentFailure(ctx, event); err != nil {
			o.markFailed(ctx, event.ID, err)
			return nil, err
		}
		o.markProcessed(ctx, event.ID)

	default:
		// Forward-compatible with gateway additions: accepted, not an error.
		o.logger.Debug("unhandled webhook event type",
			zap.String("event_id", event.ID),
			zap.String("event_type", event.Type))
		if err := o.webhookRepo.MarkIgnored(ctx, event.ID); err != nil {
			o.logger.Error("failed to mark webhook event ignored",
				zap.String("event_id", event.ID),
				zap.Error(err))
		}
	}

	return &dto.WebhookResult{
		Received:  true,
		EventType: event.Type,
	}, nil
}

// recordPaymentFailure transitions the affected items to failed and records
// the failure on the local payment record.
func (o *PaymentOrchestrator) recordPaymentFailure(ctx context.Context, event *gateway.Event) error {
	meta, err := gateway.ParseIntentMetadata(event.Metadata)
	if err != nil {
		return fmt.Errorf("cannot attribute failed payment %s: %w", event.ObjectID, err)
	}

	if _, err := o.planRepo.SetServiceItemPaymentStatus(ctx, meta.PlanID, meta.ItemIDs, model.ItemPaymentStatusFailed); err != nil {
		return fmt.Errorf("failed to mark items failed for intent %s: %w", event.ObjectID, err)
	}

	if err := o.paymentRepo.UpdateByIntentID(ctx, event.ObjectID, map[string]interface{}{
		"status": gateway.IntentStatusFailed,
	}); err != nil {
		o.logger.Error("failed to update payment record after failure",
			zap.String("intent_id", event.ObjectID),
			zap.Error(err))
	}

	o.logger.Warn("payment failed, items marked failed",
		zap.String("intent_id", event.ObjectID),
		zap.String("plan_id", meta.PlanID.String()),
		zap.Int("item_count", len(meta.ItemIDs)))

	return nil
}

func (o *PaymentOrchestrator) markProcessed(ctx context.Context, eventID string) {
	if err := o.webhookRepo.MarkProcessed(ctx, eventID); err != nil {
		o.logger.Error("failed to mark webhook event processed",
			zap.String("event_id", eventID),
			zap.Error(err))
	}
}

func (o *PaymentOrchestrator) markFailed(ctx context.Context, eventID string, processingErr error) {
	if err := o.webhookRepo.MarkFailed(ctx, eventID, processingErr); err != nil {
		o.logger.Error("failed to mark webhook event failed",
			zap.String("event_id", eventID),
			zap.Error(err))
	}
}

func (o *PaymentOrchestrator) boundGatewayContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if o.gatewayTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, o.gatewayTimeout)
}

func buildIntentMetadata(plan *model.Plan, items []model.ServiceItem) *gateway.IntentMetadata {
	meta := &gateway.IntentMetadata{
		PlanID:    plan.ID,
		PlanTitle: plan.Title,
		ClientID:  plan.ClientID,
	}
	for i := range items {
		meta.ItemIDs = append(meta.ItemIDs, items[i].ID)
		meta.ServiceCategories = append(meta.ServiceCategories, items[i].ServiceCategory)
		meta.Descriptions = append(meta.Descriptions, items[i].Description)
	}
	return meta
}

func itemIDStrings(ids []uuid.UUID) []interface{} {
	out := make([]interface{}, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}
