package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/quickshop/quickshop-backend/internal/app/model"
	"github.com/quickshop/quickshop-backend/internal/app/repository"
	"github.com/quickshop/quickshop-backend/internal/realtime"
	"github.com/quickshop/quickshop-backend/pkg/logger"
	"github.com/quickshop/quickshop-backend/pkg/payment/midtrans"
)

var (
	ErrEmptyCart         = errors.New("cart is empty")
	ErrValidation        = errors.New("invalid checkout input")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrPaymentGateway    = errors.New("payment gateway error")
)

// PaymentGateway is the slice of the payment client checkout needs.
// The real implementation is the Snap client; tests substitute a fake.
type PaymentGateway interface {
	CreateTransaction(ctx context.Context, req midtrans.SnapRequest) (*midtrans.SnapResponse, error)
}

type CheckoutInput struct {
	Shipping model.ShippingDetails
}

type CheckoutResult struct {
	Order       *model.Order `json:"order"`
	SnapToken   string       `json:"snap_token"`
	RedirectURL string       `json:"redirect_url,omitempty"`
}

type CheckoutService interface {
	Checkout(ctx context.Context, userID uint, input CheckoutInput) (*CheckoutResult, error)
}

type checkoutService struct {
	db          *gorm.DB
	cartRepo    repository.CartRepository
	productRepo repository.ProductRepository
	orderRepo   repository.OrderRepository
	userRepo    repository.UserRepository
	gateway     PaymentGateway
	publisher   realtime.Publisher
}

func NewCheckoutService(
	db *gorm.DB,
	cartRepo repository.CartRepository,
	productRepo repository.ProductRepository,
	orderRepo repository.OrderRepository,
	userRepo repository.UserRepository,
	gateway PaymentGateway,
	publisher realtime.Publisher,
) CheckoutService {
	return &checkoutService{
		db:          db,
		cartRepo:    cartRepo,
		productRepo: productRepo,
		orderRepo:   orderRepo,
		userRepo:    userRepo,
		gateway:     gateway,
		publisher:   publisher,
	}
}

// Checkout turns the user's cart into a pending order. Validation runs
// in a fixed sequence: shipping details first, then the empty-cart
// check, then per-product existence and stock. The order insert, the
// stock decrements and the cart clear happen in one transaction, and
// the order total is recomputed from the locked product rows rather
// than trusted from the client.
func (s *checkoutService) Checkout(ctx context.Context, userID uint, input CheckoutInput) (*CheckoutResult, error) {
	logger.Info("Starting checkout", map[string]interface{}{
		"user_id": userID,
	})

	if err := validateShipping(input.Shipping); err != nil {
		return nil, err
	}

	cartItems, err := s.cartRepo.FindByUserID(userID)
	if err != nil {
		return nil, err
	}
	if len(cartItems) == 0 {
		return nil, ErrEmptyCart
	}

	paymentID := newPaymentID()
	order := &model.Order{
		UserID:    userID,
		Status:    model.OrderStatusPending,
		PaymentID: paymentID,
		Shipping:  input.Shipping,
	}

	// Remaining stock per product after the decrement, published once
	// the transaction commits
	stockAfter := make(map[uint]int, len(cartItems))

	err = s.db.Transaction(func(tx *gorm.DB) error {
		ids := make([]uint, 0, len(cartItems))
		for _, item := range cartItems {
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

		var total float64
		orderItems := make([]model.OrderItem, 0, len(cartItems))
		for _, item := range cartItems {
			product, ok := byID[item.ProductID]
			if !ok {
				return fmt.Errorf("%w: id %d", ErrProductNotFound, item.ProductID)
			}
			if product.Stock < item.Quantity {
				return fmt.Errorf("%w: %s has %d in stock, cart wants %d",
					ErrInsufficientStock, product.Name, product.Stock, item.Quantity)
			}

			total += product.Price * float64(item.Quantity)
			orderItems = append(orderItems, model.OrderItem{
				ProductID: product.ID,
				Quantity:  item.Quantity,
				UnitPrice: product.Price,
			})
		}

		for _, item := range cartItems {
			if err := s.productRepo.DecrementStock(tx, item.ProductID, item.Quantity); err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return fmt.Errorf("%w: product %d", ErrInsufficientStock, item.ProductID)
				}
				return err
			}
			stockAfter[item.ProductID] = byID[item.ProductID].Stock - item.Quantity
		}

		order.TotalAmount = total
		order.OrderItems = orderItems
		if err := s.orderRepo.CreateTx(tx, order); err != nil {
			return err
		}

		return s.cartRepo.DeleteByUserIDTx(tx, userID)
	})
	if err != nil {
		return nil, err
	}

	for productID, stock := range stockAfter {
		if s.publisher != nil {
			s.publisher.Publish(realtime.UpdateEvent(productID, realtime.StockPatch(stock)))
		}
	}

	logger.Info("Order created", map[string]interface{}{
		"order_id":   order.ID,
		"payment_id": order.PaymentID,
		"total":      order.TotalAmount,
	})

	snap, err := s.requestSnapToken(ctx, order, cartItems)
	if err != nil {
		// Stock is already reserved under the pending order; the
		// release job returns it if payment never completes
		logger.Error("Failed to create payment transaction", err, map[string]interface{}{
			"order_id": order.ID,
		})
		return nil, fmt.Errorf("%w: %v", ErrPaymentGateway, err)
	}

	order.SnapToken = snap.Token
	if err := s.orderRepo.Update(order); err != nil {
		logger.Error("Failed to store snap token", err, map[string]interface{}{
			"order_id": order.ID,
		})
	}

	return &CheckoutResult{
		Order:       order,
		SnapToken:   snap.Token,
		RedirectURL: snap.RedirectURL,
	}, nil
}

func (s *checkoutService) requestSnapToken(ctx context.Context, order *model.Order, cartItems []model.CartItem) (*midtrans.SnapResponse, error) {
	items := make([]midtrans.ItemDetail, 0, len(order.OrderItems))
	nameByProduct := make(map[uint]string, len(cartItems))
	for _, item := range cartItems {
		nameByProduct[item.ProductID] = item.Product.Name
	}
	for _, item := range order.OrderItems {
		items = append(items, midtrans.ItemDetail{
			ID:       fmt.Sprintf("%d", item.ProductID),
			Name:     nameByProduct[item.ProductID],
			Price:    item.UnitPrice,
			Quantity: item.Quantity,
		})
	}

	req := midtrans.SnapRequest{
		TransactionDetails: midtrans.TransactionDetails{
			OrderID:     order.PaymentID,
			GrossAmount: order.TotalAmount,
		},
		CustomerDetails: &midtrans.CustomerDetails{
			FirstName: order.Shipping.Name,
			Email:     order.Shipping.Email,
			Phone:     order.Shipping.Phone,
			ShippingAddress: &midtrans.ShippingAddress{
				Address:    order.Shipping.Address,
				City:       order.Shipping.City,
				PostalCode: order.Shipping.PostalCode,
			},
		},
		ItemDetails: items,
	}

	return s.gateway.CreateTransaction(ctx, req)
}

const (
	minPhoneDigits   = 10
	minAddressLength = 5
)

// validateShipping checks the fields in a fixed order and reports the
// first violation only
func validateShipping(shipping model.ShippingDetails) error {
	if strings.TrimSpace(shipping.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrValidation)
	}
	if !strings.Contains(strings.TrimSpace(shipping.Email), "@") {
		return fmt.Errorf("%w: invalid email", ErrValidation)
	}
	if countDigits(shipping.Phone) < minPhoneDigits {
		return fmt.Errorf("%w: phone must contain at least %d digits", ErrValidation, minPhoneDigits)
	}
	if len(strings.TrimSpace(shipping.Address)) < minAddressLength {
		return fmt.Errorf("%w: address must be at least %d characters", ErrValidation, minAddressLength)
	}
	if strings.TrimSpace(shipping.City) == "" {
		return fmt.Errorf("%w: city is required", ErrValidation)
	}
	if strings.TrimSpace(shipping.PostalCode) == "" {
		return fmt.Errorf("%w: postal_code is required", ErrValidation)
	}
	return nil
}

func countDigits(s string) int {
	n := 0
	for _, r := range s {
		if r >= '0' && r <= '9' {
			n++
		}
	}
	return n
}

func newPaymentID() string {
	return fmt.Sprintf("QS-%d-%s", time.Now().Unix(), uuid.NewString()[:8])
}
