package controller

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"

	"github.com/quickshop/quickshop-backend/internal/app/model"
	"github.com/quickshop/quickshop-backend/internal/app/repository"
	"github.com/quickshop/quickshop-backend/internal/app/service"
	apperrors "github.com/quickshop/quickshop-backend/internal/errors"
	"github.com/quickshop/quickshop-backend/pkg/logger"
)

type AdminController struct {
	orderService service.OrderService
}

func NewAdminController(orderService service.OrderService) *AdminController {
	return &AdminController{orderService: orderService}
}

// ListOrders returns all orders with optional status filter (admin)
// GET /api/v1/admin/orders?status=pending&page=1&limit=20
func (ctrl *AdminController) ListOrders(c *gin.Context) {
	filter := repository.OrderFilter{
		Status: model.OrderStatus(c.Query("status")),
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	if page < 1 {
		page = 1
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultPageSize)))
	if limit < 1 || limit > 100 {
		limit = defaultPageSize
	}
	filter.Limit = limit
	filter.Offset = (page - 1) * limit

	orders, total, err := ctrl.orderService.ListAllOrders(filter)
	if err != nil {
		logger.Error("Failed to list orders", err, nil)
		apperrors.InternalError(c, "Failed to fetch orders")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"orders": orders,
		"total":  total,
		"page":   page,
		"limit":  limit,
	})
}

type UpdateOrderStatusRequest struct {
	Status model.OrderStatus `json:"status" binding:"required"`
}

// UpdateOrderStatus moves an order to a new status (admin)
// PATCH /api/v1/admin/orders/:id/status
func (ctrl *AdminController) UpdateOrderStatus(c *gin.Context) {
	orderID, err := parseIDParam(c, "id")
	if err != nil {
		return
	}

	var req UpdateOrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Invalid request data")
		return
	}

	order, err := ctrl.orderService.UpdateOrderStatus(orderID, req.Status)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrOrderNotFound):
			apperrors.NotFound(c, apperrors.OrderNotFound, "Order not found")
		case errors.Is(err, service.ErrInvalidOrderStatus):
			apperrors.BadRequest(c, apperrors.OrderInvalidStatus, "Invalid order status")
		default:
			logger.Error("Failed to update order status", err, map[string]interface{}{
				"order_id": orderID,
			})
			apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "order")
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"order": order})
}

// ExportOrders streams all orders matching the filter as an xlsx
// workbook (admin)
// GET /api/v1/admin/orders/export?status=paid
func (ctrl *AdminController) ExportOrders(c *gin.Context) {
	filter := repository.OrderFilter{
		Status: model.OrderStatus(c.Query("status")),
	}

	orders, _, err := ctrl.orderService.ListAllOrders(filter)
	if err != nil {
		logger.Error("Failed to load orders for export", err, nil)
		apperrors.InternalError(c, "Failed to export orders")
		return
	}

	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Orders"
	f.SetSheetName("Sheet1", sheet)

	headers := []string{"Order ID", "Payment ID", "Customer", "Email", "City", "Total", "Status", "Items", "Created At"}
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, header)
	}

	for row, order := range orders {
		itemCount := 0
		for _, item := range order.OrderItems {
			itemCount += item.Quantity
		}
		values := []interface{}{
			order.ID,
			order.PaymentID,
			order.Shipping.Name,
			order.Shipping.Email,
			order.Shipping.City,
			order.TotalAmount,
			string(order.Status),
			itemCount,
			order.CreatedAt.Format(time.RFC3339),
		}
		for col, value := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			f.SetCellValue(sheet, cell, value)
		}
	}

	filename := fmt.Sprintf("orders-%s.xlsx", time.Now().Format("2006-01-02"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")

	if err := f.Write(c.Writer); err != nil {
		logger.Error("Failed to write order export", err, nil)
	}
}
