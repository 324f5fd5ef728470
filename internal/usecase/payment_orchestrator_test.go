package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	domainerrors "github.com/carebridgehq/billing-service/internal/domain/errors"
	"github.com/carebridgehq/billing-service/internal/domain/gateway"
	"github.com/carebridgehq/billing-service/internal/domain/model"
)

// MockPlanRepository is a mock implementation of repository.PlanRepository
type MockPlanRepository struct {
	mock.Mock
}

func (m *MockPlanRepository) FindPlan(ctx context.Context, id uuid.UUID, includeItems, includeFunding bool) (*model.Plan, error) {
	args := m.Called(ctx, id, includeItems, includeFunding)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Plan), args.Error(1)
}

func (m *MockPlanRepository) FindServiceItems(ctx context.Context, planID uuid.UUID, itemIDs []uuid.UUID) ([]model.ServiceItem, error) {
	args := m.Called(ctx, planID, itemIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.ServiceItem), args.Error(1)
}

func (m *MockPlanRepository) SetServiceItemPaymentStatus(ctx context.Context, planID uuid.UUID, itemIDs []uuid.UUID, status model.ItemPaymentStatus) (bool, error) {
	args := m.Called(ctx, planID, itemIDs, status)
	return args.Bool(0), args.Error(1)
}

func (m *MockPlanRepository) Update(ctx context.Context, planID uuid.UUID, patch map[string]interface{}) (*model.Plan, error) {
	args := m.Called(ctx, planID, patch)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Plan), args.Error(1)
}

// MockPaymentRecordRepository is a mock implementation of repository.PaymentRecordRepository
type MockPaymentRecordRepository struct {
	mock.Mock
}

func (m *MockPaymentRecordRepository) Create(ctx context.Context, record *model.PaymentRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *MockPaymentRecordRepository) GetByIntentID(ctx context.Context, intentID string) (*model.PaymentRecord, error) {
	args := m.Called(ctx, intentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.PaymentRecord), args.Error(1)
}

func (m *MockPaymentRecordRepository) GetByPlanID(ctx context.Context, planID uuid.UUID) ([]*model.PaymentRecord, error) {
	args := m.Called(ctx, planID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.PaymentRecord), args.Error(1)
}

func (m *MockPaymentRecordRepository) UpdateByIntentID(ctx context.Context, intentID string, patch map[string]interface{}) error {
	args := m.Called(ctx, intentID, patch)
	return args.Error(0)
}

// MockWebhookRepository is a mock implementation of repository.WebhookRepository
type MockWebhookRepository struct {
	mock.Mock
}

func (m *MockWebhookRepository) InsertEvent(ctx context.Context, eventID, eventType string, payload json.RawMessage) (bool, *model.GatewayWebhookEvent, error) {
	args := m.Called(ctx, eventID, eventType, payload)
	var existing *model.GatewayWebhookEvent
	if args.Get(1) != nil {
		existing = args.Get(1).(*model.GatewayWebhookEvent)
	}
	return args.Bool(0), existing, args.Error(2)
}

func (m *MockWebhookRepository) MarkProcessed(ctx context.Context, eventID string) error {
	args := m.Called(ctx, eventID)
	return args.Error(0)
}

func (m *MockWebhookRepository) MarkIgnored(ctx context.Context, eventID string) error {
	args := m.Called(ctx, eventID)
	return args.Error(0)
}

func (m *MockWebhookRepository) MarkFailed(ctx context.Context, eventID string, processingErr error) error {
	args := m.Called(ctx, eventID, processingErr)
	return args.Error(0)
}

// MockPaymentGateway is a mock implementation of gateway.PaymentGateway
type MockPaymentGateway struct {
	mock.Mock
}

func (m *MockPaymentGateway) CreateIntent(ctx context.Context, req *gateway.CreateIntentRequest) (*gateway.Intent, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.Intent), args.Error(1)
}

func (m *MockPaymentGateway) RetrieveIntent(ctx context.Context, id string) (*gateway.Intent, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.Intent), args.Error(1)
}

func (m *MockPaymentGateway) CancelIntent(ctx context.Context, id, reason string) (*gateway.Intent, error) {
	args := m.Called(ctx, id, reason)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.Intent), args.Error(1)
}

func (m *MockPaymentGateway) CreateRefund(ctx context.Context, req *gateway.CreateRefundRequest) (*gateway.Refund, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.Refund), args.Error(1)
}

func (m *MockPaymentGateway) ConstructWebhookEvent(payload []byte, signatureHeader string) (*gateway.Event, error) {
	args := m.Called(payload, signatureHeader)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.Event), args.Error(1)
}

type orchestratorMocks struct {
	planRepo    *MockPlanRepository
	paymentRepo *MockPaymentRecordRepository
	webhookRepo *MockWebhookRepository
	gw          *MockPaymentGateway
}

func newTestOrchestrator() (*PaymentOrchestrator, *orchestratorMocks) {
	m := &orchestratorMocks{
		planRepo:    new(MockPlanRepository),
		paymentRepo: new(MockPaymentRecordRepository),
		webhookRepo: new(MockWebhookRepository),
		gw:          new(MockPaymentGateway),
	}
	logger := zap.NewNop()
	estimator := NewCostEstimator(m.planRepo, logger)
	orch := NewPaymentOrchestrator(m.planRepo, m.paymentRepo, m.webhookRepo, m.gw, estimator, "usd", 0, logger)
	return orch, m
}

func testMetadataMap(planID, clientID uuid.UUID, itemIDs ...uuid.UUID) map[string]string {
	meta := &gateway.IntentMetadata{
		PlanID:   planID,
		ClientID: clientID,
		ItemIDs:  itemIDs,
	}
	return meta.ToMap()
}

func TestPaymentOrchestrator_CreatePaymentIntent(t *testing.T) {
	planID := uuid.New()
	clientID := uuid.New()
	itemID := uuid.New()

	newPlan := func() *model.Plan {
		return &model.Plan{
			ID:       planID,
			ClientID: clientID,
			Title:    "Home Care Plan",
			Status:   model.PlanStatusActive,
			FundingSources: []model.FundingSource{
				{
					ID:                 uuid.New(),
					PlanID:             planID,
					Name:               "Acme Health",
					Kind:               model.FundingKindInsurance,
					CoveragePercentage: decimalPtr("50"),
					VerificationStatus: model.VerificationStatusVerified,
				},
			},
		}
	}
	items := []model.ServiceItem{
		{
			ID:              itemID,
			PlanID:          planID,
			ServiceCategory: "nursing",
			EstimatedCost:   mustDecimal("100.00"),
			Status:          model.ServiceItemStatusActive,
		},
	}

	t.Run("charges the recomputed out-of-pocket amount", func(t *testing.T) {
		orch, m := newTestOrchestrator()

		m.planRepo.On("FindPlan", mock.Anything, planID, false, true).Return(newPlan(), nil)
		m.planRepo.On("FindServiceItems", mock.Anything, planID, []uuid.UUID{itemID}).Return(items, nil)
		m.gw.On("CreateIntent", mock.Anything, mock.MatchedBy(func(req *gateway.CreateIntentRequest) bool {
			return req.AmountCents == 5000 && req.Currency == "usd" && req.Metadata.PlanID == planID
		})).Return(&gateway.Intent{
			ID:           "pi_123",
			ClientSecret: "pi_123_secret",
			AmountCents:  5000,
			Currency:     "usd",
			Status:       gateway.IntentStatusRequiresPaymentMethod,
		}, nil)
		m.paymentRepo.On("Create", mock.Anything, mock.AnythingOfType("*model.PaymentRecord")).Return(nil)

		result, err := orch.CreatePaymentIntent(context.Background(), planID, []uuid.UUID{itemID}, "cus_1")

		assert.NoError(t, err)
		assert.Equal(t, "pi_123", result.IntentID)
		assert.Equal(t, "pi_123_secret", result.ClientSecret)
		assert.Equal(t, int64(5000), result.AmountCents)
		m.planRepo.AssertExpectations(t)
		m.gw.AssertExpectations(t)
		m.paymentRepo.AssertExpectations(t)
	})

	t.Run("plan not found", func(t *testing.T) {
		orch, m := newTestOrchestrator()

		m.planRepo.On("FindPlan", mock.Anything, planID, false, true).Return(nil, domainerrors.ErrPlanNotFound)

		result, err := orch.CreatePaymentIntent(context.Background(), planID, []uuid.UUID{itemID}, "")

		assert.Nil(t, result)
		assert.ErrorIs(t, err, domainerrors.ErrPlanNotFound)
		m.gw.AssertNotCalled(t, "CreateIntent", mock.Anything, mock.Anything)
	})

	t.Run("item not in plan", func(t *testing.T) {
		orch, m := newTestOrchestrator()

		otherID := uuid.New()
		m.planRepo.On("FindPlan", mock.Anything, planID, false, true).Return(newPlan(), nil)
		m.planRepo.On("FindServiceItems", mock.Anything, planID, []uuid.UUID{itemID, otherID}).Return(items, nil)

		result, err := orch.CreatePaymentIntent(context.Background(), planID, []uuid.UUID{itemID, otherID}, "")

		assert.Nil(t, result)
		assert.ErrorIs(t, err, domainerrors.ErrServiceItemNotFound)
		m.gw.AssertNotCalled(t, "CreateIntent", mock.Anything, mock.Anything)
	})

	t.Run("all named items discontinued", func(t *testing.T) {
		orch, m := newTestOrchestrator()

		discontinued := make([]model.ServiceItem, len(items))
		copy(discontinued, items)
		discontinued[0].Status = model.ServiceItemStatusDiscontinued

		m.planRepo.On("FindPlan", mock.Anything, planID, false, true).Return(newPlan(), nil)
		m.planRepo.On("FindServiceItems", mock.Anything, planID, []uuid.UUID{itemID}).Return(discontinued, nil)

		result, err := orch.CreatePaymentIntent(context.Background(), planID, []uuid.UUID{itemID}, "")

		assert.Nil(t, result)
		assert.ErrorIs(t, err, domainerrors.ErrNoBillableItems)
		m.gw.AssertNotCalled(t, "CreateIntent", mock.Anything, mock.Anything)
	})

	t.Run("fully covered items need no intent", func(t *testing.T) {
		orch, m := newTestOrchestrator()

		covered := newPlan()
		covered.FundingSources[0].CoveragePercentage = decimalPtr("100")
		m.planRepo.On("FindPlan", mock.Anything, planID, false, true).Return(covered, nil)
		m.planRepo.On("FindServiceItems", mock.Anything, planID, []uuid.UUID{itemID}).Return(items, nil)

		result, err := orch.CreatePaymentIntent(context.Background(), planID, []uuid.UUID{itemID}, "")

		assert.Nil(t, result)
		assert.ErrorIs(t, err, domainerrors.ErrNothingToCharge)
		m.gw.AssertNotCalled(t, "CreateIntent", mock.Anything, mock.Anything)
	})

	t.Run("local record failure does not fail the intent", func(t *testing.T) {
		orch, m := newTestOrchestrator()

		m.planRepo.On("FindPlan", mock.Anything, planID, false, true).Return(newPlan(), nil)
		m.planRepo.On("FindServiceItems", mock.Anything, planID, []uuid.UUID{itemID}).Return(items, nil)
		m.gw.On("CreateIntent", mock.Anything, mock.Anything).Return(&gateway.Intent{
			ID:          "pi_456",
			AmountCents: 5000,
			Currency:    "usd",
			Status:      gateway.IntentStatusRequiresPaymentMethod,
		}, nil)
		m.paymentRepo.On("Create", mock.Anything, mock.Anything).Return(errors.New("db down"))

		result, err := orch.CreatePaymentIntent(context.Background(), planID, []uuid.UUID{itemID}, "")

		assert.NoError(t, err)
		assert.Equal(t, "pi_456", result.IntentID)
	})
}

func TestPaymentOrchestrator_ProcessPayment(t *testing.T) {
	planID := uuid.New()
	clientID := uuid.New()
	itemID := uuid.New()

	t.Run("rejects an intent that has not succeeded", func(t *testing.T) {
		orch, m := newTestOrchestrator()

		m.gw.On("RetrieveIntent", mock.Anything, "pi_1").Return(&gateway.Intent{
			ID:     "pi_1",
			Status: gateway.IntentStatusRequiresPaymentMethod,
		}, nil)

		result, err := orch.ProcessPayment(context.Background(), "pi_1")

		assert.Nil(t, result)
		var notSucceeded *domainerrors.PaymentNotSucceededError
		assert.ErrorAs(t, err, &notSucceeded)
		assert.Equal(t, gateway.IntentStatusRequiresPaymentMethod, notSucceeded.Status)
		m.planRepo.AssertNotCalled(t, "SetServiceItemPaymentStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("marks items paid on a succeeded intent", func(t *testing.T) {
		orch, m := newTestOrchestrator()

		m.gw.On("RetrieveIntent", mock.Anything, "pi_1").Return(&gateway.Intent{
			ID:       "pi_1",
			Status:   gateway.IntentStatusSucceeded,
			Metadata: testMetadataMap(planID, clientID, itemID),
		}, nil)
		m.planRepo.On("SetServiceItemPaymentStatus", mock.Anything, planID, []uuid.UUID{itemID}, model.ItemPaymentStatusPaid).Return(true, nil)
		m.paymentRepo.On("UpdateByIntentID", mock.Anything, "pi_1", mock.Anything).Return(nil)

		result, err := orch.ProcessPayment(context.Background(), "pi_1")

		assert.NoError(t, err)
		assert.True(t, result.Success)
		assert.Equal(t, planID, result.PlanID)
		m.planRepo.AssertExpectations(t)
	})

	t.Run("replaying a confirmed payment is a no-op set", func(t *testing.T) {
		orch, m := newTestOrchestrator()

		m.gw.On("RetrieveIntent", mock.Anything, "pi_1").Return(&gateway.Intent{
			ID:       "pi_1",
			Status:   gateway.IntentStatusSucceeded,
			Metadata: testMetadataMap(planID, clientID, itemID),
		}, nil)
		// No rows change on replay, the call still succeeds.
		m.planRepo.On("SetServiceItemPaymentStatus", mock.Anything, planID, []uuid.UUID{itemID}, model.ItemPaymentStatusPaid).Return(false, nil)
		m.paymentRepo.On("UpdateByIntentID", mock.Anything, "pi_1", mock.Anything).Return(nil)

		result, err := orch.ProcessPayment(context.Background(), "pi_1")

		assert.NoError(t, err)
		assert.True(t, result.Success)
	})

	t.Run("invalid metadata with no local record cannot be attributed", func(t *testing.T) {
		orch, m := newTestOrchestrator()

		m.gw.On("RetrieveIntent", mock.Anything, "pi_1").Return(&gateway.Intent{
			ID:       "pi_1",
			Status:   gateway.IntentStatusSucceeded,
			Metadata: map[string]string{"plan_id": "not-a-uuid"},
		}, nil)
		m.paymentRepo.On("GetByIntentID", mock.Anything, "pi_1").Return(nil, nil)

		result, err := orch.ProcessPayment(context.Background(), "pi_1")

		assert.Nil(t, result)
		assert.Error(t, err)
		m.planRepo.AssertNotCalled(t, "SetServiceItemPaymentStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("invalid metadata falls back to the local record", func(t *testing.T) {
		orch, m := newTestOrchestrator()

		m.gw.On("RetrieveIntent", mock.Anything, "pi_1").Return(&gateway.Intent{
			ID:       "pi_1",
			Status:   gateway.IntentStatusSucceeded,
			Metadata: map[string]string{"plan_id": "not-a-uuid"},
		}, nil)
		m.paymentRepo.On("GetByIntentID", mock.Anything, "pi_1").Return(&model.PaymentRecord{
			GatewayIntentID: "pi_1",
			PlanID:          planID,
			ClientID:        clientID,
			ServiceItemIDs:  model.JSONB{"ids": []interface{}{itemID.String()}},
		}, nil)
		m.planRepo.On("SetServiceItemPaymentStatus", mock.Anything, planID, []uuid.UUID{itemID}, model.ItemPaymentStatusPaid).Return(true, nil)
		m.paymentRepo.On("UpdateByIntentID", mock.Anything, "pi_1", mock.Anything).Return(nil)

		result, err := orch.ProcessPayment(context.Background(), "pi_1")

		assert.NoError(t, err)
		assert.True(t, result.Success)
		assert.Equal(t, planID, result.PlanID)
		m.planRepo.AssertExpectations(t)
	})
}

func TestPaymentOrchestrator_RefundPayment(t *testing.T) {
	planID := uuid.New()
	clientID := uuid.New()
	itemID := uuid.New()

	t.Run("refuses a refund for an intent that never succeeded", func(t *testing.T) {
		orch, m := newTestOrchestrator()

		m.gw.On("RetrieveIntent", mock.Anything, "pi_1").Return(&gateway.Intent{
			ID:     "pi_1",
			Status: gateway.IntentStatusProcessing,
		}, nil)

		result, err := orch.RefundPayment(context.Background(), "pi_1", 0, "requested_by_customer")

		assert.Nil(t, result)
		var notEligible *domainerrors.NotEligibleForRefundError
		assert.ErrorAs(t, err, &notEligible)
		m.gw.AssertNotCalled(t, "CreateRefund", mock.Anything, mock.Anything)
	})

	t.Run("full refund flips items to refunded", func(t *testing.T) {
		orch, m := newTestOrchestrator()

		m.gw.On("RetrieveIntent", mock.Anything, "pi_1").Return(&gateway.Intent{
			ID:          "pi_1",
			Status:      gateway.IntentStatusSucceeded,
			AmountCents: 5000,
			Metadata:    testMetadataMap(planID, clientID, itemID),
		}, nil)
		m.gw.On("CreateRefund", mock.Anything, mock.MatchedBy(func(req *gateway.CreateRefundRequest) bool {
			return req.IntentID == "pi_1" && req.AmountCents == 0
		})).Return(&gateway.Refund{
			ID:          "re_1",
			IntentID:    "pi_1",
			AmountCents: 5000,
			Status:      "succeeded",
		}, nil)
		m.paymentRepo.On("UpdateByIntentID", mock.Anything, "pi_1", mock.Anything).Return(nil)
		m.planRepo.On("SetServiceItemPaymentStatus", mock.Anything, planID, []uuid.UUID{itemID}, model.ItemPaymentStatusRefunded).Return(true, nil)

		result, err := orch.RefundPayment(context.Background(), "pi_1", 0, "requested_by_customer")

		assert.NoError(t, err)
		assert.True(t, result.Success)
		assert.Equal(t, "re_1", result.RefundID)
		assert.Equal(t, int64(5000), result.AmountCents)
		m.planRepo.AssertExpectations(t)
	})

	t.Run("partial refund leaves item status alone", func(t *testing.T) {
		orch, m := newTestOrchestrator()

		m.gw.On("RetrieveIntent", mock.Anything, "pi_1").Return(&gateway.Intent{
			ID:          "pi_1",
			Status:      gateway.IntentStatusSucceeded,
			AmountCents: 5000,
			Metadata:    testMetadataMap(planID, clientID, itemID),
		}, nil)
		m.gw.On("CreateRefund", mock.Anything, mock.Anything).Return(&gateway.Refund{
			ID:          "re_2",
			IntentID:    "pi_1",
			AmountCents: 2000,
			Status:      "succeeded",
		}, nil)
		m.paymentRepo.On("UpdateByIntentID", mock.Anything, "pi_1", mock.Anything).Return(nil)

		result, err := orch.RefundPayment(context.Background(), "pi_1", 2000, "duplicate")

		assert.NoError(t, err)
		assert.Equal(t, int64(2000), result.AmountCents)
		m.planRepo.AssertNotCalled(t, "SetServiceItemPaymentStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestPaymentOrchestrator_HandleWebhook(t *testing.T) {
	planID := uuid.New()
	clientID := uuid.New()
	itemID := uuid.New()
	payload := []byte(`{"id":"evt_1"}`)

	t.Run("rejects a payload with a bad signature", func(t *testing.T) {
		orch, m := newTestOrchestrator()

		sigErr := &domainerrors.SignatureVerificationError{Err: errors.New("no valid signature")}
		m.gw.On("ConstructWebhookEvent", payload, "bad-sig").Return(nil, sigErr)

		result, err := orch.HandleWebhook(context.Background(), payload, "bad-sig")

		assert.Nil(t, result)
		var verifyErr *domainerrors.SignatureVerificationError
		assert.ErrorAs(t, err, &verifyErr)
		m.webhookRepo.AssertNotCalled(t, "InsertEvent", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("replayed event id is acknowledged without side effects", func(t *testing.T) {
		orch, m := newTestOrchestrator()

		m.gw.On("ConstructWebhookEvent", payload, "sig").Return(&gateway.Event{
			ID:       "evt_1",
			Type:     gateway.EventTypePaymentSucceeded,
			ObjectID: "pi_1",
			Raw:      json.RawMessage(payload),
		}, nil)
		m.webhookRepo.On("InsertEvent", mock.Anything, "evt_1", gateway.EventTypePaymentSucceeded, mock.Anything).
			Return(false, &model.GatewayWebhookEvent{
				GatewayEventID: "evt_1",
				EventType:      gateway.EventTypePaymentSucceeded,
				Status:         model.WebhookStatusCompleted,
			}, nil)

		result, err := orch.HandleWebhook(context.Background(), payload, "sig")

		assert.NoError(t, err)
		assert.True(t, result.Received)
		assert.True(t, result.Duplicate)
		m.gw.AssertNotCalled(t, "RetrieveIntent", mock.Anything, mock.Anything)
		m.planRepo.AssertNotCalled(t, "SetServiceItemPaymentStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("redelivery after a failed attempt is dispatched again", func(t *testing.T) {
		orch, m := newTestOrchestrator()

		m.gw.On("ConstructWebhookEvent", payload, "sig").Return(&gateway.Event{
			ID:       "evt_1",
			Type:     gateway.EventTypePaymentSucceeded,
			ObjectID: "pi_1",
			Raw:      json.RawMessage(payload),
		}, nil)
		// The first delivery reached the ledger but its dispatch failed.
		m.webhookRepo.On("InsertEvent", mock.Anything, "evt_1", gateway.EventTypePaymentSucceeded, mock.Anything).
			Return(false, &model.GatewayWebhookEvent{
				GatewayEventID: "evt_1",
				EventType:      gateway.EventTypePaymentSucceeded,
				Status:         model.WebhookStatusFailed,
			}, nil)
		m.gw.On("RetrieveIntent", mock.Anything, "pi_1").Return(&gateway.Intent{
			ID:       "pi_1",
			Status:   gateway.IntentStatusSucceeded,
			Metadata: testMetadataMap(planID, clientID, itemID),
		}, nil)
		m.planRepo.On("SetServiceItemPaymentStatus", mock.Anything, planID, []uuid.UUID{itemID}, model.ItemPaymentStatusPaid).Return(true, nil)
		m.paymentRepo.On("UpdateByIntentID", mock.Anything, "pi_1", mock.Anything).Return(nil)
		m.webhookRepo.On("MarkProcessed", mock.Anything, "evt_1").Return(nil)

		result, err := orch.HandleWebhook(context.Background(), payload, "sig")

		assert.NoError(t, err)
		assert.True(t, result.Received)
		assert.False(t, result.Duplicate)
		m.planRepo.AssertExpectations(t)
		m.webhookRepo.AssertExpectations(t)
	})

	t.Run("redelivery of a pending event is dispatched again", func(t *testing.T) {
		orch, m := newTestOrchestrator()

		m.gw.On("ConstructWebhookEvent", payload, "sig").Return(&gateway.Event{
			ID:       "evt_1",
			Type:     gateway.EventTypePaymentSucceeded,
			ObjectID: "pi_1",
			Raw:      json.RawMessage(payload),
		}, nil)
		// A crash between insert and dispatch leaves the row pending.
		m.webhookRepo.On("InsertEvent", mock.Anything, "evt_1", gateway.EventTypePaymentSucceeded, mock.Anything).
			Return(false, &model.GatewayWebhookEvent{
				GatewayEventID: "evt_1",
				EventType:      gateway.EventTypePaymentSucceeded,
				Status:         model.WebhookStatusPending,
			}, nil)
		m.gw.On("RetrieveIntent", mock.Anything, "pi_1").Return(&gateway.Intent{
			ID:       "pi_1",
			Status:   gateway.IntentStatusSucceeded,
			Metadata: testMetadataMap(planID, clientID, itemID),
		}, nil)
		m.planRepo.On("SetServiceItemPaymentStatus", mock.Anything, planID, []uuid.UUID{itemID}, model.ItemPaymentStatusPaid).Return(true, nil)
		m.paymentRepo.On("UpdateByIntentID", mock.Anything, "pi_1", mock.Anything).Return(nil)
		m.webhookRepo.On("MarkProcessed", mock.Anything, "evt_1").Return(nil)

		result, err := orch.HandleWebhook(context.Background(), payload, "sig")

		assert.NoError(t, err)
		assert.True(t, result.Received)
		assert.False(t, result.Duplicate)
		m.webhookRepo.AssertExpectations(t)
	})

	t.Run("payment succeeded event confirms the payment", func(t *testing.T) {
		orch, m := newTestOrchestrator()

		m.gw.On("ConstructWebhookEvent", payload, "sig").Return(&gateway.Event{
			ID:       "evt_1",
			Type:     gateway.EventTypePaymentSucceeded,
			ObjectID: "pi_1",
			Raw:      json.RawMessage(payload),
		}, nil)
		m.webhookRepo.On("InsertEvent", mock.Anything, "evt_1", gateway.EventTypePaymentSucceeded, mock.Anything).Return(true, nil, nil)
		m.gw.On("RetrieveIntent", mock.Anything, "pi_1").Return(&gateway.Intent{
			ID:       "pi_1",
			Status:   gateway.IntentStatusSucceeded,
			Metadata: testMetadataMap(planID, clientID, itemID),
		}, nil)
		m.planRepo.On("SetServiceItemPaymentStatus", mock.Anything, planID, []uuid.UUID{itemID}, model.ItemPaymentStatusPaid).Return(true, nil)
		m.paymentRepo.On("UpdateByIntentID", mock.Anything, "pi_1", mock.Anything).Return(nil)
		m.webhookRepo.On("MarkProcessed", mock.Anything, "evt_1").Return(nil)

		result, err := orch.HandleWebhook(context.Background(), payload, "sig")

		assert.NoError(t, err)
		assert.True(t, result.Received)
		assert.False(t, result.Duplicate)
		m.webhookRepo.AssertExpectations(t)
		m.planRepo.AssertExpectations(t)
	})

	t.Run("payment failed event marks items failed", func(t *testing.T) {
		orch, m := newTestOrchestrator()

		m.gw.On("ConstructWebhookEvent", payload, "sig").Return(&gateway.Event{
			ID:       "evt_2",
			Type:     gateway.EventTypePaymentFailed,
			ObjectID: "pi_1",
			Metadata: testMetadataMap(planID, clientID, itemID),
			Raw:      json.RawMessage(payload),
		}, nil)
		m.webhookRepo.On("InsertEvent", mock.Anything, "evt_2", gateway.EventTypePaymentFailed, mock.Anything).Return(true, nil, nil)
		m.planRepo.On("SetServiceItemPaymentStatus", mock.Anything, planID, []uuid.UUID{itemID}, model.ItemPaymentStatusFailed).Return(true, nil)
		m.paymentRepo.On("UpdateByIntentID", mock.Anything, "pi_1", mock.Anything).Return(nil)
		m.webhookRepo.On("MarkProcessed", mock.Anything, "evt_2").Return(nil)

		result, err := orch.HandleWebhook(context.Background(), payload, "sig")

		assert.NoError(t, err)
		assert.True(t, result.Received)
		m.planRepo.AssertExpectations(t)
		m.webhookRepo.AssertExpectations(t)
	})

	t.Run("unrecognized event type is accepted and ignored", func(t *testing.T) {
		orch, m := newTestOrchestrator()

		m.gw.On("ConstructWebhookEvent", payload, "sig").Return(&gateway.Event{
			ID:   "evt_3",
			Type: "charge.updated",
			Raw:  json.RawMessage(payload),
		}, nil)
		m.webhookRepo.On("InsertEvent", mock.Anything, "evt_3", "charge.updated", mock.Anything).Return(true, nil, nil)
		m.webhookRepo.On("MarkIgnored", mock.Anything, "evt_3").Return(nil)

		result, err := orch.HandleWebhook(context.Background(), payload, "sig")

		assert.NoError(t, err)
		assert.True(t, result.Received)
		m.gw.AssertNotCalled(t, "RetrieveIntent", mock.Anything, mock.Anything)
		m.webhookRepo.AssertExpectations(t)
	})

	t.Run("processing failure is recorded on the ledger", func(t *testing.T) {
		orch, m := newTestOrchestrator()

		m.gw.On("ConstructWebhookEvent", payload, "sig").Return(&gateway.Event{
			ID:       "evt_4",
			Type:     gateway.EventTypePaymentSucceeded,
			ObjectID: "pi_1",
			Raw:      json.RawMessage(payload),
		}, nil)
		m.webhookRepo.On("InsertEvent", mock.Anything, "evt_4", gateway.EventTypePaymentSucceeded, mock.Anything).Return(true, nil, nil)
		m.gw.On("RetrieveIntent", mock.Anything, "pi_1").Return(nil, errors.New("gateway unavailable"))
		m.webhookRepo.On("MarkFailed", mock.Anything, "evt_4", mock.Anything).Return(nil)

		result, err := orch.HandleWebhook(context.Background(), payload, "sig")

		assert.Nil(t, result)
		assert.Error(t, err)
		m.webhookRepo.AssertExpectations(t)
	})
}

func TestPaymentOrchestrator_CancelPayment(t *testing.T) {
	orch, m := newTestOrchestrator()

	m.gw.On("CancelIntent", mock.Anything, "pi_1", "requested_by_customer").Return(&gateway.Intent{
		ID:          "pi_1",
		Status:      gateway.IntentStatusCanceled,
		AmountCents: 5000,
	}, nil)
	m.paymentRepo.On("UpdateByIntentID", mock.Anything, "pi_1", mock.Anything).Return(nil)

	result, err := orch.CancelPayment(context.Background(), "pi_1", "requested_by_customer")

	assert.NoError(t, err)
	assert.Equal(t, gateway.IntentStatusCanceled, result.Status)
	m.gw.AssertExpectations(t)
}

func TestPaymentOrchestrator_ListPlanPayments(t *testing.T) {
	planID := uuid.New()

	t.Run("returns the plan's payment history", func(t *testing.T) {
		orch, m := newTestOrchestrator()

		m.planRepo.On("FindPlan", mock.Anything, planID, false, false).Return(&model.Plan{ID: planID}, nil)
		m.paymentRepo.On("GetByPlanID", mock.Anything, planID).Return([]*model.PaymentRecord{
			{GatewayIntentID: "pi_2", PlanID: planID, AmountCents: 2500, Status: gateway.IntentStatusSucceeded},
			{GatewayIntentID: "pi_1", PlanID: planID, AmountCents: 5000, Status: gateway.IntentStatusCanceled},
		}, nil)

		records, err := orch.ListPlanPayments(context.Background(), planID)

		assert.NoError(t, err)
		assert.Len(t, records, 2)
		assert.Equal(t, "pi_2", records[0].GatewayIntentID)
		m.paymentRepo.AssertExpectations(t)
	})

	t.Run("unknown plan", func(t *testing.T) {
		orch, m := newTestOrchestrator()

		m.planRepo.On("FindPlan", mock.Anything, planID, false, false).Return(nil, domainerrors.ErrPlanNotFound)

		records, err := orch.ListPlanPayments(context.Background(), planID)

		assert.Nil(t, records)
		assert.ErrorIs(t, err, domainerrors.ErrPlanNotFound)
		m.paymentRepo.AssertNotCalled(t, "GetByPlanID", mock.Anything, mock.Anything)
	})
}

func TestPaymentOrchestrator_GetPaymentStatus(t *testing.T) {
	orch, m := newTestOrchestrator()

	m.gw.On("RetrieveIntent", mock.Anything, "pi_1").Return(&gateway.Intent{
		ID:          "pi_1",
		Status:      gateway.IntentStatusProcessing,
		AmountCents: 1250,
	}, nil)

	result, err := orch.GetPaymentStatus(context.Background(), "pi_1")

	assert.NoError(t, err)
	assert.Equal(t, "pi_1", result.IntentID)
	assert.Equal(t, gateway.IntentStatusProcessing, result.Status)
	assert.Equal(t, int64(1250), result.AmountCents)
}
