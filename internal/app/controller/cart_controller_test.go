package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/quickshop/quickshop-backend/internal/app/model"
	"github.com/quickshop/quickshop-backend/internal/app/repository"
	"github.com/quickshop/quickshop-backend/internal/app/service"
	"github.com/quickshop/quickshop-backend/internal/db"
	"github.com/quickshop/quickshop-backend/internal/middleware"
)

// memoryGuestCarts stands in for the redis-backed guest cart store
type memoryGuestCarts struct {
	mu    sync.Mutex
	blobs map[string][]model.GuestCartLine
}

func newMemoryGuestCarts() *memoryGuestCarts {
	return &memoryGuestCarts{blobs: make(map[string][]model.GuestCartLine)}
}

func (m *memoryGuestCarts) Get(_ context.Context, token string) ([]model.GuestCartLine, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	lines, ok := m.blobs[token]
	if !ok {
		return []model.GuestCartLine{}, nil
	}
	out := make([]model.GuestCartLine, len(lines))
	copy(out, lines)
	return out, nil
}

func (m *memoryGuestCarts) Save(_ context.Context, token string, lines []model.GuestCartLine) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blobs[token] = lines
	return nil
}

func (m *memoryGuestCarts) Delete(_ context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.blobs, token)
	return nil
}

func setupCartRouter(t *testing.T) (*gin.Engine, *gorm.DB) {
	gin.SetMode(gin.TestMode)

	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() {
		db.CleanupTestDB(testDB)
	})

	cartRepo := repository.NewCartRepository(testDB)
	productRepo := repository.NewProductRepository(testDB)
	guestRepo := newMemoryGuestCarts()

	cartService := service.NewCartService(cartRepo, guestRepo, productRepo)
	syncService := service.NewCartSyncService(cartRepo, guestRepo, productRepo, cartService)
	ctrl := NewCartController(cartService, syncService)

	router := gin.New()
	cart := router.Group("/cart", middleware.OptionalAuthenticate("test-secret"))
	{
		cart.GET("", ctrl.GetCart)
		cart.DELETE("", ctrl.Clear)
		cart.POST("/items", ctrl.AddItem)
		cart.PUT("/items/:productID", ctrl.UpdateItem)
		cart.DELETE("/items/:productID", ctrl.RemoveItem)
	}

	return router, testDB
}

func seedCartProduct(t *testing.T, testDB *gorm.DB, name string, stock int) *model.Product {
	t.Helper()
	category := &model.Category{Name: "Shoes", Slug: "shoes-" + name}
	require.NoError(t, testDB.Create(category).Error)

	product := &model.Product{
		Name:       name,
		Slug:       name,
		Price:      1000,
		Stock:      stock,
		CategoryID: category.ID,
	}
	require.NoError(t, testDB.Create(product).Error)
	return product
}

type cartResponse struct {
	Cart struct {
		Items []struct {
			Product  model.Product `json:"product"`
			Quantity int           `json:"quantity"`
		} `json:"items"`
		TotalItems int     `json:"total_items"`
		TotalPrice float64 `json:"total_price"`
	} `json:"cart"`
}

func doCartRequest(t *testing.T, router *gin.Engine, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set(CartTokenHeader, token)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestCartController_GuestFlow(t *testing.T) {
	router, testDB := setupCartRouter(t)
	product := seedCartProduct(t, testDB, "sneaker", 5)

	// First add mints a guest token and returns it in the header
	w := doCartRequest(t, router, http.MethodPost, "/cart/items", "", AddToCartRequest{ProductID: product.ID})
	require.Equal(t, http.StatusOK, w.Code)
	token := w.Header().Get(CartTokenHeader)
	require.NotEmpty(t, token)

	var resp cartResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Cart.TotalItems)

	// Subsequent requests with the token see the same cart
	w = doCartRequest(t, router, http.MethodPost, "/cart/items", token, AddToCartRequest{ProductID: product.ID})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, token, w.Header().Get(CartTokenHeader))

	w = doCartRequest(t, router, http.MethodGet, "/cart", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	resp = cartResponse{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Cart.Items, 1)
	assert.Equal(t, 2, resp.Cart.Items[0].Quantity)
	assert.Equal(t, float64(2000), resp.Cart.TotalPrice)
}

func TestCartController_GetCart_NoToken(t *testing.T) {
	router, _ := setupCartRouter(t)

	// A visitor with no token gets an empty cart and no minted token
	w := doCartRequest(t, router, http.MethodGet, "/cart", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get(CartTokenHeader))

	var resp cartResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Empty(t, resp.Cart.Items)
}

func TestCartController_AddItem_OutOfStock(t *testing.T) {
	router, testDB := setupCartRouter(t)
	product := seedCartProduct(t, testDB, "sold-out", 0)

	w := doCartRequest(t, router, http.MethodPost, "/cart/items", "", AddToCartRequest{ProductID: product.ID})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "CART_OUT_OF_STOCK")
}

func TestCartController_AddItem_UnknownProduct(t *testing.T) {
	router, _ := setupCartRouter(t)

	w := doCartRequest(t, router, http.MethodPost, "/cart/items", "", AddToCartRequest{ProductID: 9999})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCartController_UpdateItem_ZeroRemoves(t *testing.T) {
	router, testDB := setupCartRouter(t)
	product := seedCartProduct(t, testDB, "boot", 5)

	w := doCartRequest(t, router, http.MethodPost, "/cart/items", "", AddToCartRequest{ProductID: product.ID})
	require.Equal(t, http.StatusOK, w.Code)
	token := w.Header().Get(CartTokenHeader)
	require.NotEmpty(t, token)

	path := fmt.Sprintf("/cart/items/%d", product.ID)
	w = doCartRequest(t, router, http.MethodPut, path, token, UpdateCartRequest{Quantity: 0})
	require.Equal(t, http.StatusOK, w.Code)

	var resp cartResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Empty(t, resp.Cart.Items)
}

func TestCartController_UpdateItem_InvalidID(t *testing.T) {
	router, _ := setupCartRouter(t)

	w := doCartRequest(t, router, http.MethodPut, "/cart/items/abc", "", UpdateCartRequest{Quantity: 1})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCartController_Clear(t *testing.T) {
	router, testDB := setupCartRouter(t)
	product := seedCartProduct(t, testDB, "sandal", 5)

	w := doCartRequest(t, router, http.MethodPost, "/cart/items", "", AddToCartRequest{ProductID: product.ID})
	require.Equal(t, http.StatusOK, w.Code)
	token := w.Header().Get(CartTokenHeader)

	w = doCartRequest(t, router, http.MethodDelete, "/cart", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doCartRequest(t, router, http.MethodGet, "/cart", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var resp cartResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Empty(t, resp.Cart.Items)
}
