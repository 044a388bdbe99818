package controller

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/quickshop/quickshop-backend/internal/app/service"
	apperrors "github.com/quickshop/quickshop-backend/internal/errors"
	"github.com/quickshop/quickshop-backend/internal/middleware"
	"github.com/quickshop/quickshop-backend/pkg/logger"
)

type OrderController struct {
	orderService service.OrderService
}

func NewOrderController(orderService service.OrderService) *OrderController {
	return &OrderController{orderService: orderService}
}

// ListOrders returns the authenticated user's order history
// GET /api/v1/orders
func (ctrl *OrderController) ListOrders(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if userID == 0 {
		apperrors.Unauthorized(c, "")
		return
	}

	orders, err := ctrl.orderService.GetUserOrders(userID)
	if err != nil {
		logger.Error("Failed to fetch orders", err, map[string]interface{}{
			"user_id": userID,
		})
		apperrors.InternalError(c, "Failed to fetch orders")
		return
	}

	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

// GetOrder returns one of the user's orders
// GET /api/v1/orders/:id
func (ctrl *OrderController) GetOrder(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if userID == 0 {
		apperrors.Unauthorized(c, "")
		return
	}

	orderID, err := parseIDParam(c, "id")
	if err != nil {
		return
	}

	order, err := ctrl.orderService.GetOrderByID(userID, orderID)
	if err != nil {
		if errors.Is(err, service.ErrOrderNotFound) {
			apperrors.NotFound(c, apperrors.OrderNotFound, "Order not found")
			return
		}
		apperrors.InternalError(c, "")
		return
	}

	c.JSON(http.StatusOK, gin.H{"order": order})
}
