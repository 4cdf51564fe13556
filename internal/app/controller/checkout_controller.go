package controller

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kiplystart/kiplystart-backend/internal/app/service"
	"github.com/kiplystart/kiplystart-backend/internal/checkout"
	apperrors "github.com/kiplystart/kiplystart-backend/internal/errors"
	"github.com/kiplystart/kiplystart-backend/internal/middleware"
)

type CheckoutController struct {
	checkoutService service.CheckoutService
}

func NewCheckoutController(checkoutService service.CheckoutService) *CheckoutController {
	return &CheckoutController{
		checkoutService: checkoutService,
	}
}

// ValidatePersonal checks the personal info step before the shopper moves on
// POST /api/v1/checkout/personal
func (ctrl *CheckoutController) ValidatePersonal(c *gin.Context) {
	var req checkout.PersonalInfo
	if !bindCheckoutStep(c, &req) {
		return
	}

	if err := ctrl.checkoutService.ValidatePersonal(req); err != nil {
		respondCheckoutError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"valid": true,
		"next":  checkout.StepDeliveryInfo,
	})
}

// ValidateDelivery checks the delivery step
// POST /api/v1/checkout/delivery
func (ctrl *CheckoutController) ValidateDelivery(c *gin.Context) {
	var req checkout.DeliveryInfo
	if !bindCheckoutStep(c, &req) {
		return
	}

	if err := ctrl.checkoutService.ValidateDelivery(req); err != nil {
		respondCheckoutError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"valid": true,
	})
}

// Submit places the order for the current cart
// POST /api/v1/checkout
func (ctrl *CheckoutController) Submit(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	sessionID, ok := cartSession(c)
	if !ok {
		return
	}

	var req service.CheckoutInput
	if !bindCheckoutStep(c, &req) {
		return
	}

	result, err := ctrl.checkoutService.Submit(c.Request.Context(), sessionID, req)
	if err != nil {
		log.Warn("Checkout rejected", map[string]interface{}{
			"error": err.Error(),
		})
		respondCheckoutError(c, err)
		return
	}

	log.Info("Order placed", map[string]interface{}{
		"order_code": result.OrderCode,
	})
	c.JSON(http.StatusCreated, gin.H{
		"order": result,
	})
}

func bindCheckoutStep(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		middleware.GetLoggerFromContext(c).Warn("Invalid checkout request", map[string]interface{}{
			"error": err.Error(),
		})
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Datos del pedido inválidos")
		return false
	}
	return true
}

func respondCheckoutError(c *gin.Context, err error) {
	var verr *checkout.ValidationError
	switch {
	case errors.As(err, &verr):
		apperrors.RespondWithValidationError(c, verr.Fields)
	case errors.Is(err, checkout.ErrEmptyCart):
		apperrors.BadRequest(c, apperrors.CheckoutEmptyCart, "Tu carrito está vacío")
	case errors.Is(err, service.ErrCheckoutDisabled):
		apperrors.RespondWithError(c, http.StatusServiceUnavailable, apperrors.CheckoutDisabled,
			"Los pedidos están pausados en este momento")
	case errors.Is(err, checkout.ErrSubmitFailed):
		apperrors.RespondWithError(c, http.StatusInternalServerError, apperrors.CheckoutSubmitFailed,
			"No pudimos registrar tu pedido. Inténtalo de nuevo")
	default:
		middleware.GetLoggerFromContext(c).Error("Unexpected checkout error", err, nil)
		apperrors.InternalError(c, "")
	}
}
