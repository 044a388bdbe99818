package controller

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/quickshop/quickshop-backend/internal/app/service"
	apperrors "github.com/quickshop/quickshop-backend/internal/errors"
	"github.com/quickshop/quickshop-backend/pkg/logger"
	"github.com/quickshop/quickshop-backend/pkg/payment/midtrans"
)

type PaymentController struct {
	orderService service.OrderService
}

func NewPaymentController(orderService service.OrderService) *PaymentController {
	return &PaymentController{orderService: orderService}
}

// Notify receives payment state changes from the gateway. The
// signature inside the payload is the only authentication this
// endpoint has, so unverifiable payloads are rejected with 403.
// POST /api/v1/payments/notify
func (ctrl *PaymentController) Notify(c *gin.Context) {
	var notification midtrans.Notification
	if err := c.ShouldBindJSON(&notification); err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Invalid notification payload")
		return
	}

	order, err := ctrl.orderService.HandlePaymentNotification(c.Request.Context(), notification)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidSignature):
			apperrors.RespondWithError(c, http.StatusForbidden, apperrors.PaymentInvalidSignature, "Invalid signature")
		case errors.Is(err, service.ErrOrderNotFound):
			apperrors.NotFound(c, apperrors.OrderNotFound, "Unknown order")
		default:
			logger.Error("Failed to process payment notification", err, map[string]interface{}{
				"payment_id": notification.OrderID,
			})
			apperrors.InternalError(c, "")
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"order_id": order.ID,
		"status":   order.Status,
	})
}
