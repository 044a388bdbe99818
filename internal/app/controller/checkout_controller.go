package controller

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/quickshop/quickshop-backend/internal/app/model"
	"github.com/quickshop/quickshop-backend/internal/app/service"
	apperrors "github.com/quickshop/quickshop-backend/internal/errors"
	"github.com/quickshop/quickshop-backend/internal/middleware"
	"github.com/quickshop/quickshop-backend/pkg/logger"
)

type CheckoutController struct {
	checkoutService service.CheckoutService
}

func NewCheckoutController(checkoutService service.CheckoutService) *CheckoutController {
	return &CheckoutController{checkoutService: checkoutService}
}

type CheckoutRequest struct {
	Name       string `json:"name" binding:"required"`
	Email      string `json:"email" binding:"required,email"`
	Phone      string `json:"phone" binding:"required"`
	Address    string `json:"address" binding:"required"`
	City       string `json:"city" binding:"required"`
	PostalCode string `json:"postal_code" binding:"required"`
}

// Checkout turns the user's cart into a pending order and returns the
// payment token
// POST /api/v1/checkout
func (ctrl *CheckoutController) Checkout(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if userID == 0 {
		apperrors.Unauthorized(c, "")
		return
	}

	var req CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Invalid checkout data")
		return
	}

	result, err := ctrl.checkoutService.Checkout(c.Request.Context(), userID, service.CheckoutInput{
		Shipping: model.ShippingDetails{
			Name:       req.Name,
			Email:      req.Email,
			Phone:      req.Phone,
			Address:    req.Address,
			City:       req.City,
			PostalCode: req.PostalCode,
		},
	})
	if err != nil {
		ctrl.respondCheckoutError(c, userID, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"order":        result.Order,
		"snap_token":   result.SnapToken,
		"redirect_url": result.RedirectURL,
	})
}

func (ctrl *CheckoutController) respondCheckoutError(c *gin.Context, userID uint, err error) {
	switch {
	case errors.Is(err, service.ErrValidation):
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, err.Error())
	case errors.Is(err, service.ErrEmptyCart):
		apperrors.BadRequest(c, apperrors.CartEmpty, "Your cart is empty")
	case errors.Is(err, service.ErrProductNotFound):
		apperrors.NotFound(c, apperrors.ProductNotFound, "A cart product no longer exists")
	case errors.Is(err, service.ErrInsufficientStock):
		apperrors.Conflict(c, apperrors.ProductInsufficient, err.Error())
	case errors.Is(err, service.ErrPaymentGateway):
		logger.Error("Payment gateway rejected checkout", err, map[string]interface{}{
			"user_id": userID,
		})
		apperrors.RespondWithError(c, http.StatusBadGateway, apperrors.PaymentGatewayError, "Payment service is unavailable. Please try again")
	default:
		logger.Error("Checkout failed", err, map[string]interface{}{
			"user_id": userID,
		})
		apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "order")
	}
}
