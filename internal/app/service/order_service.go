package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/quickshop/quickshop-backend/internal/app/model"
	"github.com/quickshop/quickshop-backend/internal/app/repository"
	"github.com/quickshop/quickshop-backend/internal/realtime"
	"github.com/quickshop/quickshop-backend/pkg/logger"
	"github.com/quickshop/quickshop-backend/pkg/payment/midtrans"
)

var (
	ErrOrderNotFound      = errors.New("order not found")
	ErrInvalidOrderStatus = errors.New("invalid order status")
	ErrInvalidSignature   = errors.New("invalid notification signature")
)

type OrderService interface {
	GetUserOrders(userID uint) ([]model.Order, error)
	GetOrderByID(userID, orderID uint) (*model.Order, error)
	ListAllOrders(filter repository.OrderFilter) ([]model.Order, int64, error)
	UpdateOrderStatus(orderID uint, status model.OrderStatus) (*model.Order, error)
	HandlePaymentNotification(ctx context.Context, n midtrans.Notification) (*model.Order, error)
	ReleaseExpiredReservations(ttl time.Duration) (int, error)
}

type orderService struct {
	db          *gorm.DB
	orderRepo   repository.OrderRepository
	productRepo repository.ProductRepository
	serverKey   string
	publisher   realtime.Publisher
}

func NewOrderService(
	db *gorm.DB,
	orderRepo repository.OrderRepository,
	productRepo repository.ProductRepository,
	serverKey string,
	publisher realtime.Publisher,
) OrderService {
	return &orderService{
		db:          db,
		orderRepo:   orderRepo,
		productRepo: productRepo,
		serverKey:   serverKey,
		publisher:   publisher,
	}
}

func (s *orderService) GetUserOrders(userID uint) ([]model.Order, error) {
	return s.orderRepo.FindByUserID(userID)
}

// GetOrderByID returns the order only when it belongs to the user.
// Foreign orders read as not found so ids cannot be probed.
func (s *orderService) GetOrderByID(userID, orderID uint) (*model.Order, error) {
	order, err := s.orderRepo.FindByID(orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	if order.UserID != userID {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

func (s *orderService) ListAllOrders(filter repository.OrderFilter) ([]model.Order, int64, error) {
	return s.orderRepo.FindWithFilter(filter)
}

// UpdateOrderStatus is the admin status transition. Cancelling a
// pending order returns its reserved stock.
func (s *orderService) UpdateOrderStatus(orderID uint, status model.OrderStatus) (*model.Order, error) {
	switch status {
	case model.OrderStatusPending, model.OrderStatusPaid,
		model.OrderStatusShipped, model.OrderStatusCancelled:
	default:
		return nil, fmt.Errorf("%w: %s", ErrInvalidOrderStatus, status)
	}

	order, err := s.orderRepo.FindByID(orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}

	if order.Status == status {
		return order, nil
	}

	if status == model.OrderStatusCancelled && order.Status == model.OrderStatusPending {
		if err := s.cancelAndRestock(order); err != nil {
			return nil, err
		}
	} else {
		if err := s.db.Transaction(func(tx *gorm.DB) error {
			return s.orderRepo.UpdateStatusTx(tx, order.ID, status)
		}); err != nil {
			return nil, err
		}
	}

	logger.Info("Order status updated", map[string]interface{}{
		"order_id": order.ID,
		"from":     string(order.Status),
		"to":       string(status),
	})

	order.Status = status
	return order, nil
}

// HandlePaymentNotification processes a gateway webhook. The signature
// is verified before anything else; unverifiable payloads are rejected
// outright. Status changes only apply to pending orders, which makes
// replayed notifications harmless.
func (s *orderService) HandlePaymentNotification(ctx context.Context, n midtrans.Notification) (*model.Order, error) {
	if !n.VerifySignature(s.serverKey) {
		logger.Warn("Rejected payment notification with bad signature", map[string]interface{}{
			"order_id": n.OrderID,
		})
		return nil, ErrInvalidSignature
	}

	order, err := s.orderRepo.FindByPaymentID(n.OrderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}

	result := n.Result()
	logger.Info("Payment notification received", map[string]interface{}{
		"order_id":           order.ID,
		"payment_id":         n.OrderID,
		"transaction_status": n.TransactionStatus,
		"result":             string(result),
	})

	if order.Status != model.OrderStatusPending {
		return order, nil
	}

	switch result {
	case midtrans.ResultPaid:
		if err := s.db.Transaction(func(tx *gorm.DB) error {
			return s.orderRepo.UpdateStatusTx(tx, order.ID, model.OrderStatusPaid)
		}); err != nil {
			return nil, err
		}
		order.Status = model.OrderStatusPaid

	case midtrans.ResultCancelled:
		if err := s.cancelAndRestock(order); err != nil {
			return nil, err
		}
		order.Status = model.OrderStatusCancelled

	case midtrans.ResultPending:
		// Nothing to do until the gateway reaches a final state
	}

	return order, nil
}

// ReleaseExpiredReservations cancels pending orders older than the
// reservation TTL and returns their stock. It reports how many orders
// were released.
func (s *orderService) ReleaseExpiredReservations(ttl time.Duration) (int, error) {
	cutoff := time.Now().Add(-ttl)
	expired, err := s.orderRepo.FindPendingOlderThan(cutoff)
	if err != nil {
		return 0, err
	}

	released := 0
	for i := range expired {
		if err := s.cancelAndRestock(&expired[i]); err != nil {
			logger.Error("Failed to release expired reservation", err, map[string]interface{}{
				"order_id": expired[i].ID,
			})
			continue
		}
		released++
	}

	if released > 0 {
		logger.Info("Released expired stock reservations", map[string]interface{}{
			"orders": released,
		})
	}
	return released, nil
}

// cancelAndRestock flips a pending order to cancelled and returns its
// reserved stock in one transaction, then broadcasts the new stock
// levels
func (s *orderService) cancelAndRestock(order *model.Order) error {
	stockAfter := make(map[uint]int, len(order.OrderItems))

	err := s.db.Transaction(func(tx *gorm.DB) error {
		ids := make([]uint, 0, len(order.OrderItems))
		for _, item := range order.OrderItems {
			ids = append(ids, item.ProductID)
		}

		products, err := s.productRepo.FindByIDsForUpdate(tx, ids)
		if err != nil {
			return err
		}
		byID := make(map[uint]model.Product, len(products))
		for _, p := range products {
			byID[p.ID] = p
		}

		for _, item := range order.OrderItems {
			if err := s.productRepo.IncrementStock(tx, item.ProductID, item.Quantity); err != nil {
				return err
			}
			if p, ok := byID[item.ProductID]; ok {
				stockAfter[item.ProductID] = p.Stock + item.Quantity
			}
		}

		return s.orderRepo.UpdateStatusTx(tx, order.ID, model.OrderStatusCancelled)
	})
	if err != nil {
		return err
	}

	if s.publisher != nil {
		for productID, stock := range stockAfter {
			s.publisher.Publish(realtime.UpdateEvent(productID, realtime.StockPatch(stock)))
		}
	}
	return nil
}
