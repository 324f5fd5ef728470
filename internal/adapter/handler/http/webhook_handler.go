package http

import (
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/carebridgehq/billing-service/internal/usecase"
)

// WebhookHandler receives asynchronous gateway notifications. Verification
// and dispatch live in the orchestrator; this adapter only moves bytes.
type WebhookHandler struct {
	orchestrator *usecase.PaymentOrchestrator
	logger       *zap.Logger
}

func NewWebhookHandler(orchestrator *usecase.PaymentOrchestrator, logger *zap.Logger) *WebhookHandler {
	return &WebhookHandler{
		orchestrator: orchestrator,
		logger:       logger,
	}
}

// HandleWebhook handles POST /webhook
func (h *WebhookHandler) HandleWebhook(c echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		h.logger.Error("Error reading webhook body", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "Error reading request body",
		})
	}

	signature := c.Request().Header.Get("Stripe-Signature")

	result, err := h.orchestrator.HandleWebhook(c.Request().Context(), body, signature)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, result)
}
