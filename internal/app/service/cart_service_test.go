package service

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/quickshop/quickshop-backend/internal/app/model"
	"github.com/quickshop/quickshop-backend/internal/app/repository"
	"github.com/quickshop/quickshop-backend/internal/db"
)

// memoryGuestCartRepo stands in for the redis-backed store in tests
type memoryGuestCartRepo struct {
	mu     sync.Mutex
	carts  map[string][]model.GuestCartLine
	failed bool
}

func newMemoryGuestCartRepo() *memoryGuestCartRepo {
	return &memoryGuestCartRepo{carts: make(map[string][]model.GuestCartLine)}
}

func (r *memoryGuestCartRepo) Get(_ context.Context, token string) ([]model.GuestCartLine, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	lines := make([]model.GuestCartLine, len(r.carts[token]))
	copy(lines, r.carts[token])
	return lines, nil
}

func (r *memoryGuestCartRepo) Save(_ context.Context, token string, lines []model.GuestCartLine) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failed {
		return assert.AnError
	}
	stored := make([]model.GuestCartLine, len(lines))
	copy(stored, lines)
	r.carts[token] = stored
	return nil
}

func (r *memoryGuestCartRepo) Delete(_ context.Context, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.carts, token)
	return nil
}

func setupCartServiceTest(t *testing.T) (CartService, *memoryGuestCartRepo, *model.User, *model.Product, *gorm.DB) {
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() {
		db.CleanupTestDB(testDB)
	})

	cartRepo := repository.NewCartRepository(testDB)
	productRepo := repository.NewProductRepository(testDB)
	guestRepo := newMemoryGuestCartRepo()
	cartService := NewCartService(cartRepo, guestRepo, productRepo)

	user := &model.User{
		Email:        "test@example.com",
		PasswordHash: "hash",
		Name:         "Test User",
		Role:         model.RoleUser,
	}
	testDB.Create(user)

	category := &model.Category{Name: "Electronics", Slug: "electronics"}
	testDB.Create(category)

	product := &model.Product{
		Name:       "Mechanical Keyboard",
		Slug:       "mechanical-keyboard",
		Price:      1000,
		Stock:      5,
		CategoryID: category.ID,
	}
	testDB.Create(product)

	return cartService, guestRepo, user, product, testDB
}

func TestCartService_AddItem_User(t *testing.T) {
	cartService, _, user, product, _ := setupCartServiceTest(t)
	id := CartIdentity{UserID: user.ID}

	cart, err := cartService.AddItem(context.Background(), id, product.ID)
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 1, cart.Items[0].Quantity)
	assert.Equal(t, 1000.0, cart.TotalPrice)

	// Adding again increments the same line
	cart, err = cartService.AddItem(context.Background(), id, product.ID)
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 2, cart.Items[0].Quantity)
	assert.Equal(t, 2000.0, cart.TotalPrice)
}

func TestCartService_AddItem_OutOfStock(t *testing.T) {
	cartService, _, user, _, testDB := setupCartServiceTest(t)

	depleted := &model.Product{Name: "Sold Out", Slug: "sold-out", Price: 100, Stock: 0, CategoryID: 1}
	testDB.Create(depleted)

	_, err := cartService.AddItem(context.Background(), CartIdentity{UserID: user.ID}, depleted.ID)
	assert.ErrorIs(t, err, ErrOutOfStock)
}

func TestCartService_AddItem_StockExceeded(t *testing.T) {
	cartService, _, user, product, _ := setupCartServiceTest(t)
	id := CartIdentity{UserID: user.ID}

	// Stock is 5; the sixth add must fail
	for i := 0; i < 5; i++ {
		_, err := cartService.AddItem(context.Background(), id, product.ID)
		require.NoError(t, err)
	}

	_, err := cartService.AddItem(context.Background(), id, product.ID)
	assert.ErrorIs(t, err, ErrStockExceeded)

	cart, err := cartService.GetCart(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, 5, cart.Items[0].Quantity)
}

func TestCartService_AddItem_ProductNotFound(t *testing.T) {
	cartService, _, user, _, _ := setupCartServiceTest(t)

	_, err := cartService.AddItem(context.Background(), CartIdentity{UserID: user.ID}, 9999)
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestCartService_UpdateQuantity(t *testing.T) {
	cartService, _, user, product, _ := setupCartServiceTest(t)
	id := CartIdentity{UserID: user.ID}

	cart, err := cartService.UpdateQuantity(context.Background(), id, product.ID, 3)
	require.NoError(t, err)
	assert.Equal(t, 3, cart.Items[0].Quantity)

	_, err = cartService.UpdateQuantity(context.Background(), id, product.ID, 6)
	assert.ErrorIs(t, err, ErrStockExceeded)
}

func TestCartService_UpdateQuantity_ZeroRemovesLine(t *testing.T) {
	cartService, _, user, product, _ := setupCartServiceTest(t)
	id := CartIdentity{UserID: user.ID}

	_, err := cartService.AddItem(context.Background(), id, product.ID)
	require.NoError(t, err)

	cart, err := cartService.UpdateQuantity(context.Background(), id, product.ID, 0)
	require.NoError(t, err)
	assert.Empty(t, cart.Items)
}

func TestCartService_RemoveItem_AbsentLineIsNoop(t *testing.T) {
	cartService, _, user, product, _ := setupCartServiceTest(t)

	cart, err := cartService.RemoveItem(context.Background(), CartIdentity{UserID: user.ID}, product.ID)
	require.NoError(t, err)
	assert.Empty(t, cart.Items)
}

func TestCartService_GuestCartFlow(t *testing.T) {
	cartService, guestRepo, _, product, _ := setupCartServiceTest(t)
	id := CartIdentity{GuestToken: cartService.NewGuestToken()}

	cart, err := cartService.AddItem(context.Background(), id, product.ID)
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, product.ID, cart.Items[0].Product.ID)

	// The blob backend holds the line
	lines, err := guestRepo.Get(context.Background(), id.GuestToken)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, 1, lines[0].Quantity)

	cart, err = cartService.UpdateQuantity(context.Background(), id, product.ID, 4)
	require.NoError(t, err)
	assert.Equal(t, 4, cart.Items[0].Quantity)

	require.NoError(t, cartService.Clear(context.Background(), id))
	cart, err = cartService.GetCart(context.Background(), id)
	require.NoError(t, err)
	assert.Empty(t, cart.Items)
}

func TestCartService_GuestStockRulesApply(t *testing.T) {
	cartService, _, _, product, _ := setupCartServiceTest(t)
	id := CartIdentity{GuestToken: "guest-token"}

	_, err := cartService.UpdateQuantity(context.Background(), id, product.ID, 6)
	assert.ErrorIs(t, err, ErrStockExceeded)
}

func TestCartService_GuestMirrorFailureAbortsMutation(t *testing.T) {
	cartService, guestRepo, _, product, _ := setupCartServiceTest(t)
	id := CartIdentity{GuestToken: "guest-token"}

	guestRepo.failed = true
	_, err := cartService.AddItem(context.Background(), id, product.ID)
	assert.ErrorIs(t, err, ErrCartSyncFailed)

	// Nothing must have been stored
	guestRepo.failed = false
	cart, err := cartService.GetCart(context.Background(), id)
	require.NoError(t, err)
	assert.Empty(t, cart.Items)
}

func TestCartService_CartsAreIsolated(t *testing.T) {
	cartService, _, user, product, _ := setupCartServiceTest(t)

	_, err := cartService.AddItem(context.Background(), CartIdentity{UserID: user.ID}, product.ID)
	require.NoError(t, err)

	guestCart, err := cartService.GetCart(context.Background(), CartIdentity{GuestToken: "other"})
	require.NoError(t, err)
	assert.Empty(t, guestCart.Items)
}

func TestCartService_DeletedProductDroppedFromView(t *testing.T) {
	cartService, _, user, product, testDB := setupCartServiceTest(t)
	id := CartIdentity{UserID: user.ID}

	_, err := cartService.AddItem(context.Background(), id, product.ID)
	require.NoError(t, err)

	require.NoError(t, testDB.Delete(&model.Product{}, product.ID).Error)

	cart, err := cartService.GetCart(context.Background(), id)
	require.NoError(t, err)
	assert.Empty(t, cart.Items)
}
