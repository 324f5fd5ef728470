package http

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/carebridgehq/billing-service/internal/usecase"
)

// BillingHandler exposes cost estimation and funding recommendation
type BillingHandler struct {
	estimator       *usecase.CostEstimator
	recommendations *usecase.FundingRecommendationService
	logger          *zap.Logger
}

func NewBillingHandler(
	estimator *usecase.CostEstimator,
	recommendations *usecase.FundingRecommendationService,
	logger *zap.Logger,
) *BillingHandler {
	return &BillingHandler{
		estimator:       estimator,
		recommendations: recommendations,
		logger:          logger,
	}
}

// EstimateCost handles GET /api/v1/plans/:planId/cost-estimate
func (h *BillingHandler) EstimateCost(c echo.Context) error {
	planID, err := uuid.Parse(c.Param("planId"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "planId must be a valid UUID",
			"code":  "INVALID_PLAN_ID",
		})
	}

	estimate, err := h.estimator.EstimateForPlan(c.Request().Context(), planID)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, estimate)
}

// IdentifyFunding handles GET /api/v1/clients/:clientId/funding-options?planId=
func (h *BillingHandler) IdentifyFunding(c echo.Context) error {
	clientID, err := uuid.Parse(c.Param("clientId"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "clientId must be a valid UUID",
			"code":  "INVALID_CLIENT_ID",
		})
	}

	var planID *uuid.UUID
	if raw := c.QueryParam("planId"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{
				"error": "planId must be a valid UUID",
				"code":  "INVALID_PLAN_ID",
			})
		}
		planID = &id
	}

	recommendation, err := h.recommendations.IdentifyFunding(c.Request().Context(), clientID, planID)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, recommendation)
}
