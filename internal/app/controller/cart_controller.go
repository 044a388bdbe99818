package controller

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/quickshop/quickshop-backend/internal/app/service"
	apperrors "github.com/quickshop/quickshop-backend/internal/errors"
	"github.com/quickshop/quickshop-backend/internal/middleware"
	"github.com/quickshop/quickshop-backend/pkg/logger"
)

// CartTokenHeader carries the opaque guest cart token. The storefront
// echoes it back on every cart request until the visitor logs in.
const CartTokenHeader = "X-Cart-Token"

type CartController struct {
	cartService service.CartService
	syncService service.CartSyncService
}

func NewCartController(cartService service.CartService, syncService service.CartSyncService) *CartController {
	return &CartController{
		cartService: cartService,
		syncService: syncService,
	}
}

type AddToCartRequest struct {
	ProductID uint `json:"product_id" binding:"required"`
}

type UpdateCartRequest struct {
	Quantity int `json:"quantity"`
}

// identity resolves whose cart this request targets. Authenticated
// requests use the user id; anonymous ones use the guest token, which
// is minted on first use and returned in the response header.
func (ctrl *CartController) identity(c *gin.Context, mintToken bool) service.CartIdentity {
	if userID := middleware.GetUserID(c); userID != 0 {
		return service.CartIdentity{UserID: userID}
	}

	token := c.GetHeader(CartTokenHeader)
	if token == "" && mintToken {
		token = ctrl.cartService.NewGuestToken()
	}
	if token != "" {
		c.Header(CartTokenHeader, token)
	}
	return service.CartIdentity{GuestToken: token}
}

// GetCart returns the cart for the current user or guest
// GET /api/v1/cart
func (ctrl *CartController) GetCart(c *gin.Context) {
	id := ctrl.identity(c, false)
	if id.IsGuest() && id.GuestToken == "" {
		c.JSON(http.StatusOK, gin.H{"cart": service.Cart{Items: []service.CartLine{}}})
		return
	}

	cart, err := ctrl.cartService.GetCart(c.Request.Context(), id)
	if err != nil {
		logger.Error("Failed to fetch cart", err, map[string]interface{}{
			"user_id": id.UserID,
		})
		apperrors.InternalError(c, "Failed to fetch cart")
		return
	}

	c.JSON(http.StatusOK, gin.H{"cart": cart})
}

// AddItem puts one unit of a product into the cart
// POST /api/v1/cart/items
func (ctrl *CartController) AddItem(c *gin.Context) {
	var req AddToCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Invalid request data")
		return
	}

	id := ctrl.identity(c, true)
	cart, err := ctrl.cartService.AddItem(c.Request.Context(), id, req.ProductID)
	if err != nil {
		ctrl.respondCartError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"cart": cart})
}

// UpdateItem sets a cart line's quantity; zero removes the line
// PUT /api/v1/cart/items/:productID
func (ctrl *CartController) UpdateItem(c *gin.Context) {
	productID, err := parseIDParam(c, "productID")
	if err != nil {
		return
	}

	var req UpdateCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Invalid request data")
		return
	}

	id := ctrl.identity(c, true)
	cart, err := ctrl.cartService.UpdateQuantity(c.Request.Context(), id, productID, req.Quantity)
	if err != nil {
		ctrl.respondCartError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"cart": cart})
}

// RemoveItem deletes a cart line
// DELETE /api/v1/cart/items/:productID
func (ctrl *CartController) RemoveItem(c *gin.Context) {
	productID, err := parseIDParam(c, "productID")
	if err != nil {
		return
	}

	id := ctrl.identity(c, true)
	cart, err := ctrl.cartService.RemoveItem(c.Request.Context(), id, productID)
	if err != nil {
		ctrl.respondCartError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"cart": cart})
}

// Clear empties the cart
// DELETE /api/v1/cart
func (ctrl *CartController) Clear(c *gin.Context) {
	id := ctrl.identity(c, false)
	if id.IsGuest() && id.GuestToken == "" {
		c.JSON(http.StatusOK, gin.H{"cart": service.Cart{Items: []service.CartLine{}}})
		return
	}

	if err := ctrl.cartService.Clear(c.Request.Context(), id); err != nil {
		ctrl.respondCartError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"cart": service.Cart{Items: []service.CartLine{}}})
}

// Sync folds the guest cart named by the token header into the
// authenticated user's cart. Called by the storefront right after
// login.
// POST /api/v1/cart/sync
func (ctrl *CartController) Sync(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if userID == 0 {
		apperrors.Unauthorized(c, "")
		return
	}

	token := c.GetHeader(CartTokenHeader)
	cart, err := ctrl.syncService.MergeGuestCart(c.Request.Context(), userID, token)
	if err != nil {
		logger.Error("Cart merge failed", err, map[string]interface{}{
			"user_id": userID,
		})
		apperrors.RespondWithError(c, http.StatusInternalServerError, apperrors.CartSyncFailed, "Failed to merge cart")
		return
	}

	c.JSON(http.StatusOK, gin.H{"cart": cart})
}

func (ctrl *CartController) respondCartError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrOutOfStock):
		apperrors.Conflict(c, apperrors.CartOutOfStock, "This product is out of stock")
	case errors.Is(err, service.ErrStockExceeded):
		apperrors.Conflict(c, apperrors.CartStockExceeded, "Not enough stock for the requested quantity")
	case errors.Is(err, service.ErrProductNotFound):
		apperrors.NotFound(c, apperrors.ProductNotFound, "Product not found")
	case errors.Is(err, service.ErrCartSyncFailed):
		apperrors.RespondWithError(c, http.StatusInternalServerError, apperrors.CartSyncFailed, "Failed to persist cart")
	default:
		logger.Error("Cart operation failed", err, nil)
		apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "cart")
	}
}

func parseIDParam(c *gin.Context, name string) (uint, error) {
	raw := c.Param(name)
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		apperrors.BadRequest(c, apperrors.ValidationInvalidID, "Invalid id")
		return 0, errors.New("invalid id param")
	}
	return uint(id), nil
}
