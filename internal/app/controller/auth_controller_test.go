package controller

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quickshop/quickshop-backend/config"
	"github.com/quickshop/quickshop-backend/internal/app/model"
	"github.com/quickshop/quickshop-backend/internal/app/repository"
	"github.com/quickshop/quickshop-backend/internal/app/service"
	"github.com/quickshop/quickshop-backend/internal/db"
	"github.com/quickshop/quickshop-backend/internal/middleware"
	"github.com/quickshop/quickshop-backend/pkg/util"
)

func setupLogoutRouter(t *testing.T) (*gin.Engine, *memoryGuestCarts, string) {
	gin.SetMode(gin.TestMode)

	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() {
		db.CleanupTestDB(testDB)
	})

	userRepo := repository.NewUserRepository(testDB)
	cartRepo := repository.NewCartRepository(testDB)
	productRepo := repository.NewProductRepository(testDB)
	guestRepo := newMemoryGuestCarts()

	authService := service.NewAuthService(userRepo, config.JWTConfig{
		Secret:             "test-secret",
		AccessTokenExpiry:  15 * time.Minute,
		RefreshTokenExpiry: time.Hour,
	})
	cartService := service.NewCartService(cartRepo, guestRepo, productRepo)
	syncService := service.NewCartSyncService(cartRepo, guestRepo, productRepo, cartService)
	ctrl := NewAuthController(authService, cartService, syncService)

	// An expired token is already revoked for all practical purposes,
	// so logout accepts it without consulting the blacklist
	pair, err := util.GenerateTokenPair(7, "out@example.com", "user", "test-secret", -time.Minute, time.Hour)
	require.NoError(t, err)

	router := gin.New()
	router.POST("/auth/logout", func(c *gin.Context) {
		c.Set(middleware.ContextToken, pair.AccessToken)
	}, ctrl.Logout)

	return router, guestRepo, pair.AccessToken
}

func TestAuthController_LogoutClearsGuestCart(t *testing.T) {
	router, guestRepo, _ := setupLogoutRouter(t)

	require.NoError(t, guestRepo.Save(context.Background(), "guest-tok", []model.GuestCartLine{
		{ProductID: 1, Quantity: 2},
	}))

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	req.Header.Set(CartTokenHeader, "guest-tok")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	lines, err := guestRepo.Get(context.Background(), "guest-tok")
	require.NoError(t, err)
	assert.Empty(t, lines)
}

func TestAuthController_LogoutWithoutGuestToken(t *testing.T) {
	router, guestRepo, _ := setupLogoutRouter(t)

	// Some other device's cart must survive a logout that carries no
	// cart token
	require.NoError(t, guestRepo.Save(context.Background(), "other-tok", []model.GuestCartLine{
		{ProductID: 1, Quantity: 1},
	}))

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	lines, err := guestRepo.Get(context.Background(), "other-tok")
	require.NoError(t, err)
	assert.Len(t, lines, 1)
}
