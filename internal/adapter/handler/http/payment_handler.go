package http

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/carebridgehq/billing-service/internal/usecase"
)

// PaymentHandler exposes the payment intent lifecycle
type PaymentHandler struct {
	orchestrator *usecase.PaymentOrchestrator
	logger       *zap.Logger
}

func NewPaymentHandler(orchestrator *usecase.PaymentOrchestrator, logger *zap.Logger) *PaymentHandler {
	return &PaymentHandler{
		orchestrator: orchestrator,
		logger:       logger,
	}
}

type CreateIntentRequest struct {
	PlanID     string   `json:"plan_id" validate:"required,uuid"`
	ItemIDs    []string `json:"service_item_ids" validate:"required,min=1,dive,uuid"`
	CustomerID string   `json:"customer_id"`
}

// CreateIntent handles POST /api/v1/payments/intent. The charge amount is
// recomputed server-side; a client-supplied amount is never accepted.
func (h *PaymentHandler) CreateIntent(c echo.Context) error {
	var req CreateIntentRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "Invalid request body",
			"code":  "INVALID_BODY",
		})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	planID, _ := uuid.Parse(req.PlanID)
	itemIDs := make([]uuid.UUID, len(req.ItemIDs))
	for i, raw := range req.ItemIDs {
		itemIDs[i], _ = uuid.Parse(raw)
	}

	result, err := h.orchestrator.CreatePaymentIntent(c.Request().Context(), planID, itemIDs, req.CustomerID)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusCreated, result)
}

// ProcessPayment handles POST /api/v1/payments/:intentId/process
func (h *PaymentHandler) ProcessPayment(c echo.Context) error {
	result, err := h.orchestrator.ProcessPayment(c.Request().Context(), c.Param("intentId"))
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, result)
}

type CancelPaymentRequest struct {
	Reason string `json:"reason"`
}

// CancelPayment handles POST /api/v1/payments/:intentId/cancel
func (h *PaymentHandler) CancelPayment(c echo.Context) error {
	var req CancelPaymentRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "Invalid request body",
			"code":  "INVALID_BODY",
		})
	}

	result, err := h.orchestrator.CancelPayment(c.Request().Context(), c.Param("intentId"), req.Reason)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, result)
}

type RefundPaymentRequest struct {
	AmountCents int64  `json:"amount_cents" validate:"gte=0"`
	Reason      string `json:"reason"`
}

// RefundPayment handles POST /api/v1/payments/:intentId/refund. A zero
// amount requests a full refund.
func (h *PaymentHandler) RefundPayment(c echo.Context) error {
	var req RefundPaymentRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "Invalid request body",
			"code":  "INVALID_BODY",
		})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	result, err := h.orchestrator.RefundPayment(c.Request().Context(), c.Param("intentId"), req.AmountCents, req.Reason)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, result)
}

// ListPlanPayments handles GET /api/v1/plans/:planId/payments. It returns
// the locally mirrored payment and refund history for audit.
func (h *PaymentHandler) ListPlanPayments(c echo.Context) error {
	planID, err := uuid.Parse(c.Param("planId"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "planId must be a valid UUID",
			"code":  "INVALID_PLAN_ID",
		})
	}

	records, err := h.orchestrator.ListPlanPayments(c.Request().Context(), planID)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, echo.Map{"payments": records})
}

// GetPaymentStatus handles GET /api/v1/payments/:intentId
func (h *PaymentHandler) GetPaymentStatus(c echo.Context) error {
	result, err := h.orchestrator.GetPaymentStatus(c.Request().Context(), c.Param("intentId"))
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, result)
}
