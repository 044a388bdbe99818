package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/quickshop/quickshop-backend/internal/app/model"
	"github.com/quickshop/quickshop-backend/internal/app/repository"
	"github.com/quickshop/quickshop-backend/internal/db"
)

func setupCartSyncTest(t *testing.T) (CartSyncService, CartService, *memoryGuestCartRepo, *model.User, *gorm.DB) {
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() {
		db.CleanupTestDB(testDB)
	})

	cartRepo := repository.NewCartRepository(testDB)
	productRepo := repository.NewProductRepository(testDB)
	guestRepo := newMemoryGuestCartRepo()
	cartService := NewCartService(cartRepo, guestRepo, productRepo)
	syncService := NewCartSyncService(cartRepo, guestRepo, productRepo, cartService)

	user := &model.User{Email: "sync@example.com", PasswordHash: "hash", Name: "Sync", Role: model.RoleUser}
	testDB.Create(user)

	category := &model.Category{Name: "Electronics", Slug: "electronics"}
	testDB.Create(category)

	return syncService, cartService, guestRepo, user, testDB
}

func createProduct(t *testing.T, testDB *gorm.DB, name, slug string, price float64, stock int) *model.Product {
	t.Helper()
	product := &model.Product{Name: name, Slug: slug, Price: price, Stock: stock, CategoryID: 1}
	require.NoError(t, testDB.Create(product).Error)
	return product
}

func TestCartSync_SumsQuantitiesPerProduct(t *testing.T) {
	syncService, cartService, guestRepo, user, testDB := setupCartSyncTest(t)

	productA := createProduct(t, testDB, "Product A", "product-a", 100, 10)
	productB := createProduct(t, testDB, "Product B", "product-b", 200, 10)

	// User cart: 2x A. Guest cart: 3x A + 1x B. Merged: 5x A + 1x B.
	_, err := cartService.UpdateQuantity(context.Background(), CartIdentity{UserID: user.ID}, productA.ID, 2)
	require.NoError(t, err)

	require.NoError(t, guestRepo.Save(context.Background(), "tok", []model.GuestCartLine{
		{ProductID: productA.ID, Quantity: 3},
		{ProductID: productB.ID, Quantity: 1},
	}))

	cart, err := syncService.MergeGuestCart(context.Background(), user.ID, "tok")
	require.NoError(t, err)
	require.Len(t, cart.Items, 2)

	byID := make(map[uint]int)
	for _, line := range cart.Items {
		byID[line.Product.ID] = line.Quantity
	}
	assert.Equal(t, 5, byID[productA.ID])
	assert.Equal(t, 1, byID[productB.ID])
}

func TestCartSync_SumIsNotCappedAtStock(t *testing.T) {
	syncService, cartService, guestRepo, user, testDB := setupCartSyncTest(t)

	// Stock 4 cannot satisfy the merged quantity, but the merge sums
	// anyway; checkout re-validates against live stock
	product := createProduct(t, testDB, "Scarce", "scarce", 100, 4)

	_, err := cartService.UpdateQuantity(context.Background(), CartIdentity{UserID: user.ID}, product.ID, 3)
	require.NoError(t, err)

	require.NoError(t, guestRepo.Save(context.Background(), "tok", []model.GuestCartLine{
		{ProductID: product.ID, Quantity: 3},
	}))

	cart, err := syncService.MergeGuestCart(context.Background(), user.ID, "tok")
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 6, cart.Items[0].Quantity)
}

func TestCartSync_DeletesGuestBlobAfterMerge(t *testing.T) {
	syncService, _, guestRepo, user, testDB := setupCartSyncTest(t)

	product := createProduct(t, testDB, "Product", "product", 100, 10)
	require.NoError(t, guestRepo.Save(context.Background(), "tok", []model.GuestCartLine{
		{ProductID: product.ID, Quantity: 2},
	}))

	_, err := syncService.MergeGuestCart(context.Background(), user.ID, "tok")
	require.NoError(t, err)

	lines, err := guestRepo.Get(context.Background(), "tok")
	require.NoError(t, err)
	assert.Empty(t, lines)

	// A second merge with the now-empty token changes nothing
	cart, err := syncService.MergeGuestCart(context.Background(), user.ID, "tok")
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 2, cart.Items[0].Quantity)
}

func TestCartSync_SkipsVanishedProducts(t *testing.T) {
	syncService, _, guestRepo, user, testDB := setupCartSyncTest(t)

	product := createProduct(t, testDB, "Kept", "kept", 100, 10)
	require.NoError(t, guestRepo.Save(context.Background(), "tok", []model.GuestCartLine{
		{ProductID: product.ID, Quantity: 1},
		{ProductID: 9999, Quantity: 5},
	}))

	cart, err := syncService.MergeGuestCart(context.Background(), user.ID, "tok")
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, product.ID, cart.Items[0].Product.ID)
}

func TestCartSync_EmptyTokenReturnsUserCart(t *testing.T) {
	syncService, cartService, _, user, testDB := setupCartSyncTest(t)

	product := createProduct(t, testDB, "Mine", "mine", 100, 10)
	_, err := cartService.AddItem(context.Background(), CartIdentity{UserID: user.ID}, product.ID)
	require.NoError(t, err)

	cart, err := syncService.MergeGuestCart(context.Background(), user.ID, "")
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
}
