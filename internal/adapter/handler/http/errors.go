package http

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	domainerrors "github.com/carebridgehq/billing-service/internal/domain/errors"
)

// writeError maps domain errors onto HTTP responses so every handler surfaces
// the same taxonomy: not-found as 404, recoverable payment states as 409,
// forged webhooks as 400, gateway failures as 502.
func writeError(c echo.Context, err error) error {
	var notSucceeded *domainerrors.PaymentNotSucceededError
	var notEligible *domainerrors.NotEligibleForRefundError
	var sigErr *domainerrors.SignatureVerificationError
	var gwErr *domainerrors.GatewayError

	switch {
	case errors.Is(err, domainerrors.ErrPlanNotFound),
		errors.Is(err, domainerrors.ErrServiceItemNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{
			"error": err.Error(),
			"code":  "NOT_FOUND",
		})
	case errors.Is(err, domainerrors.ErrNothingToCharge),
		errors.Is(err, domainerrors.ErrNoBillableItems):
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{
			"error": err.Error(),
			"code":  "NOTHING_TO_CHARGE",
		})
	case errors.As(err, &notSucceeded):
		return c.JSON(http.StatusConflict, echo.Map{
			"error":  notSucceeded.Error(),
			"code":   "PAYMENT_NOT_SUCCEEDED",
			"status": notSucceeded.Status,
		})
	case errors.As(err, &notEligible):
		return c.JSON(http.StatusConflict, echo.Map{
			"error":  notEligible.Error(),
			"code":   "NOT_ELIGIBLE_FOR_REFUND",
			"status": notEligible.Status,
		})
	case errors.As(err, &sigErr):
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": sigErr.Error(),
			"code":  "SIGNATURE_VERIFICATION_FAILED",
		})
	case errors.As(err, &gwErr):
		return c.JSON(http.StatusBadGateway, echo.Map{
			"error": gwErr.Error(),
			"code":  "GATEWAY_ERROR",
		})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"error": err.Error(),
			"code":  "INTERNAL_ERROR",
		})
	}
}
