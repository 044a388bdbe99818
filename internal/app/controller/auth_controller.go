package controller

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/quickshop/quickshop-backend/internal/app/service"
	apperrors "github.com/quickshop/quickshop-backend/internal/errors"
	"github.com/quickshop/quickshop-backend/internal/middleware"
	"github.com/quickshop/quickshop-backend/pkg/logger"
	"github.com/quickshop/quickshop-backend/pkg/util"
)

type AuthController struct {
	authService service.AuthService
	cartService service.CartService
	syncService service.CartSyncService
}

func NewAuthController(authService service.AuthService, cartService service.CartService, syncService service.CartSyncService) *AuthController {
	return &AuthController{
		authService: authService,
		cartService: cartService,
		syncService: syncService,
	}
}

// Register creates an account and signs the user in
// POST /api/v1/auth/register
func (ctrl *AuthController) Register(c *gin.Context) {
	var input service.RegisterInput
	if err := c.ShouldBindJSON(&input); err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Invalid registration data")
		return
	}

	result, err := ctrl.authService.Register(input)
	if err != nil {
		if errors.Is(err, service.ErrEmailExists) {
			apperrors.Conflict(c, apperrors.AuthEmailAlreadyExists, "This email is already registered")
			return
		}
		logger.Error("Registration failed", err, map[string]interface{}{
			"email": input.Email,
		})
		apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "user")
		return
	}

	ctrl.mergeGuestCart(c, result.User.ID)

	c.JSON(http.StatusCreated, gin.H{
		"user":   result.User,
		"tokens": result.Tokens,
	})
}

// Login authenticates and merges any guest cart carried by the
// X-Cart-Token header into the user's cart
// POST /api/v1/auth/login
func (ctrl *AuthController) Login(c *gin.Context) {
	var input service.LoginInput
	if err := c.ShouldBindJSON(&input); err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Invalid login data")
		return
	}

	result, err := ctrl.authService.Login(input)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			apperrors.RespondWithError(c, http.StatusUnauthorized, apperrors.AuthInvalidCredentials, "Invalid email or password")
			return
		}
		logger.Error("Login failed", err, nil)
		apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "user")
		return
	}

	ctrl.mergeGuestCart(c, result.User.ID)

	c.JSON(http.StatusOK, gin.H{
		"user":   result.User,
		"tokens": result.Tokens,
	})
}

// Logout revokes the presented access token and clears any guest cart
// named by the X-Cart-Token header, so the next anonymous session on
// the same device starts empty
// POST /api/v1/auth/logout
func (ctrl *AuthController) Logout(c *gin.Context) {
	token := middleware.GetToken(c)
	if token == "" {
		apperrors.Unauthorized(c, "")
		return
	}

	if err := ctrl.authService.Logout(c.Request.Context(), token); err != nil {
		logger.Error("Logout failed", err, nil)
		apperrors.InternalError(c, "")
		return
	}

	if guestToken := c.GetHeader(CartTokenHeader); guestToken != "" {
		if err := ctrl.cartService.Clear(c.Request.Context(), service.CartIdentity{GuestToken: guestToken}); err != nil {
			logger.Warn("Failed to clear guest cart at logout", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}

	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// Refresh exchanges a refresh token for a new token pair
// POST /api/v1/auth/refresh
func (ctrl *AuthController) Refresh(c *gin.Context) {
	var req RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Invalid request data")
		return
	}

	tokens, err := ctrl.authService.RefreshTokens(req.RefreshToken)
	if err != nil {
		code := apperrors.AuthTokenInvalid
		if errors.Is(err, util.ErrExpiredToken) {
			code = apperrors.AuthTokenExpired
		}
		apperrors.RespondWithError(c, http.StatusUnauthorized, code, "Invalid or expired refresh token")
		return
	}

	c.JSON(http.StatusOK, gin.H{"tokens": tokens})
}

// Profile returns the authenticated user's account
// GET /api/v1/auth/me
func (ctrl *AuthController) Profile(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if userID == 0 {
		apperrors.Unauthorized(c, "")
		return
	}

	user, err := ctrl.authService.GetProfile(userID)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			apperrors.NotFound(c, apperrors.ResourceNotFound, "User not found")
			return
		}
		apperrors.InternalError(c, "")
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": user})
}

// mergeGuestCart folds the guest cart into the freshly authenticated
// user's cart. A merge failure must not fail the login itself.
func (ctrl *AuthController) mergeGuestCart(c *gin.Context, userID uint) {
	token := c.GetHeader(CartTokenHeader)
	if token == "" {
		return
	}

	if _, err := ctrl.syncService.MergeGuestCart(c.Request.Context(), userID, token); err != nil {
		logger.Warn("Guest cart merge at login failed", map[string]interface{}{
			"user_id": userID,
			"error":   err.Error(),
		})
	}
}
