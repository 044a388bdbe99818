package service

import (
	"context"
	"crypto/sha512"
	"encoding/hex"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/quickshop/quickshop-backend/internal/app/model"
	"github.com/quickshop/quickshop-backend/internal/app/repository"
	"github.com/quickshop/quickshop-backend/internal/db"
	"github.com/quickshop/quickshop-backend/pkg/payment/midtrans"
)

const testServerKey = "test-server-key"

func setupOrderServiceTest(t *testing.T) (OrderService, *recordingPublisher, *model.User, *gorm.DB) {
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() {
		db.CleanupTestDB(testDB)
	})

	orderRepo := repository.NewOrderRepository(testDB)
	productRepo := repository.NewProductRepository(testDB)
	publisher := &recordingPublisher{}
	orderService := NewOrderService(testDB, orderRepo, productRepo, testServerKey, publisher)

	user := &model.User{Email: "orders@example.com", PasswordHash: "hash", Name: "Orders", Role: model.RoleUser}
	testDB.Create(user)

	category := &model.Category{Name: "Electronics", Slug: "electronics"}
	testDB.Create(category)

	return orderService, publisher, user, testDB
}

func createOrder(t *testing.T, testDB *gorm.DB, userID uint, paymentID string, status model.OrderStatus, items ...model.OrderItem) *model.Order {
	t.Helper()
	order := &model.Order{
		UserID:      userID,
		TotalAmount: 100,
		Status:      status,
		PaymentID:   paymentID,
		Shipping:    validShipping(),
		OrderItems:  items,
	}
	require.NoError(t, testDB.Create(order).Error)
	return order
}

func signedNotification(paymentID, transactionStatus, fraudStatus string) midtrans.Notification {
	n := midtrans.Notification{
		OrderID:           paymentID,
		StatusCode:        "200",
		GrossAmount:       "100.00",
		TransactionStatus: transactionStatus,
		FraudStatus:       fraudStatus,
	}
	sum := sha512.Sum512([]byte(n.OrderID + n.StatusCode + n.GrossAmount + testServerKey))
	n.SignatureKey = hex.EncodeToString(sum[:])
	return n
}

func TestOrderService_GetOrderByID_OwnershipEnforced(t *testing.T) {
	orderService, _, user, testDB := setupOrderServiceTest(t)

	order := createOrder(t, testDB, user.ID, "QS-1", model.OrderStatusPending)

	found, err := orderService.GetOrderByID(user.ID, order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.ID, found.ID)

	// Another user's lookup reads as not found
	_, err = orderService.GetOrderByID(user.ID+1, order.ID)
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestOrderService_Notification_SettlementMarksPaid(t *testing.T) {
	orderService, _, user, testDB := setupOrderServiceTest(t)
	createOrder(t, testDB, user.ID, "QS-settle", model.OrderStatusPending)

	order, err := orderService.HandlePaymentNotification(context.Background(),
		signedNotification("QS-settle", midtrans.StatusSettlement, ""))
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusPaid, order.Status)

	var reloaded model.Order
	require.NoError(t, testDB.Where("payment_id = ?", "QS-settle").First(&reloaded).Error)
	assert.Equal(t, model.OrderStatusPaid, reloaded.Status)
}

func TestOrderService_Notification_CaptureAcceptMarksPaid(t *testing.T) {
	orderService, _, user, testDB := setupOrderServiceTest(t)
	createOrder(t, testDB, user.ID, "QS-capture", model.OrderStatusPending)

	order, err := orderService.HandlePaymentNotification(context.Background(),
		signedNotification("QS-capture", midtrans.StatusCapture, midtrans.FraudAccept))
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusPaid, order.Status)
}

func TestOrderService_Notification_ChallengeStaysPending(t *testing.T) {
	orderService, _, user, testDB := setupOrderServiceTest(t)
	createOrder(t, testDB, user.ID, "QS-challenge", model.OrderStatusPending)

	order, err := orderService.HandlePaymentNotification(context.Background(),
		signedNotification("QS-challenge", midtrans.StatusCapture, midtrans.FraudChallenge))
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusPending, order.Status)
}

func TestOrderService_Notification_ExpireCancelsAndRestocks(t *testing.T) {
	orderService, publisher, user, testDB := setupOrderServiceTest(t)

	product := createProduct(t, testDB, "Reserved", "reserved", 100, 3)
	createOrder(t, testDB, user.ID, "QS-expire", model.OrderStatusPending,
		model.OrderItem{ProductID: product.ID, Quantity: 2, UnitPrice: 100})

	order, err := orderService.HandlePaymentNotification(context.Background(),
		signedNotification("QS-expire", midtrans.StatusExpire, ""))
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusCancelled, order.Status)

	var reloaded model.Product
	require.NoError(t, testDB.First(&reloaded, product.ID).Error)
	assert.Equal(t, 5, reloaded.Stock)

	events := publisher.Events()
	require.Len(t, events, 1)
	require.NotNil(t, events[0].Patch)
	assert.Equal(t, 5, *events[0].Patch.Stock)
}

func TestOrderService_Notification_BadSignatureRejected(t *testing.T) {
	orderService, _, user, testDB := setupOrderServiceTest(t)
	createOrder(t, testDB, user.ID, "QS-forged", model.OrderStatusPending)

	n := signedNotification("QS-forged", midtrans.StatusSettlement, "")
	n.SignatureKey = "forged"

	_, err := orderService.HandlePaymentNotification(context.Background(), n)
	assert.ErrorIs(t, err, ErrInvalidSignature)

	var reloaded model.Order
	require.NoError(t, testDB.Where("payment_id = ?", "QS-forged").First(&reloaded).Error)
	assert.Equal(t, model.OrderStatusPending, reloaded.Status)
}

func TestOrderService_Notification_ReplayIsHarmless(t *testing.T) {
	orderService, _, user, testDB := setupOrderServiceTest(t)
	createOrder(t, testDB, user.ID, "QS-replay", model.OrderStatusPending)

	paid := signedNotification("QS-replay", midtrans.StatusSettlement, "")
	_, err := orderService.HandlePaymentNotification(context.Background(), paid)
	require.NoError(t, err)

	// A stale cancel after payment must not flip the order back
	cancel := signedNotification("QS-replay", midtrans.StatusCancel, "")
	order, err := orderService.HandlePaymentNotification(context.Background(), cancel)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusPaid, order.Status)
}

func TestOrderService_Notification_UnknownOrder(t *testing.T) {
	orderService, _, _, _ := setupOrderServiceTest(t)

	_, err := orderService.HandlePaymentNotification(context.Background(),
		signedNotification("QS-missing", midtrans.StatusSettlement, ""))
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestOrderService_UpdateOrderStatus(t *testing.T) {
	orderService, _, user, testDB := setupOrderServiceTest(t)
	order := createOrder(t, testDB, user.ID, "QS-ship", model.OrderStatusPaid)

	updated, err := orderService.UpdateOrderStatus(order.ID, model.OrderStatusShipped)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusShipped, updated.Status)

	_, err = orderService.UpdateOrderStatus(order.ID, model.OrderStatus("bogus"))
	assert.ErrorIs(t, err, ErrInvalidOrderStatus)
}

func TestOrderService_AdminCancelRestocks(t *testing.T) {
	orderService, _, user, testDB := setupOrderServiceTest(t)

	product := createProduct(t, testDB, "Held", "held", 100, 0)
	order := createOrder(t, testDB, user.ID, "QS-cancel", model.OrderStatusPending,
		model.OrderItem{ProductID: product.ID, Quantity: 4, UnitPrice: 100})

	_, err := orderService.UpdateOrderStatus(order.ID, model.OrderStatusCancelled)
	require.NoError(t, err)

	var reloaded model.Product
	require.NoError(t, testDB.First(&reloaded, product.ID).Error)
	assert.Equal(t, 4, reloaded.Stock)
}

func TestOrderService_ReleaseExpiredReservations(t *testing.T) {
	orderService, _, user, testDB := setupOrderServiceTest(t)

	product := createProduct(t, testDB, "Held", "held", 100, 1)

	stale := createOrder(t, testDB, user.ID, "QS-stale", model.OrderStatusPending,
		model.OrderItem{ProductID: product.ID, Quantity: 2, UnitPrice: 100})
	require.NoError(t, testDB.Model(stale).
		Update("created_at", time.Now().Add(-2*time.Hour)).Error)

	fresh := createOrder(t, testDB, user.ID, "QS-fresh", model.OrderStatusPending,
		model.OrderItem{ProductID: product.ID, Quantity: 1, UnitPrice: 100})

	released, err := orderService.ReleaseExpiredReservations(30 * time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 1, released)

	var reloaded model.Order
	require.NoError(t, testDB.First(&reloaded, stale.ID).Error)
	assert.Equal(t, model.OrderStatusCancelled, reloaded.Status)

	reloaded = model.Order{}
	require.NoError(t, testDB.First(&reloaded, fresh.ID).Error)
	assert.Equal(t, model.OrderStatusPending, reloaded.Status)

	var reloadedProduct model.Product
	require.NoError(t, testDB.First(&reloadedProduct, product.ID).Error)
	assert.Equal(t, 3, reloadedProduct.Stock)
}
