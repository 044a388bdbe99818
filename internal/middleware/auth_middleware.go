package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	apperrors "github.com/quickshop/quickshop-backend/internal/errors"
	"github.com/quickshop/quickshop-backend/pkg/logger"
	"github.com/quickshop/quickshop-backend/pkg/redis"
	"github.com/quickshop/quickshop-backend/pkg/util"
)

const (
	ContextUserID    = "user_id"
	ContextUserEmail = "user_email"
	ContextUserRole  = "user_role"
	ContextToken     = "token"
)

func extractToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return parts[1]
}

// Authenticate requires a valid, non-revoked access token
func Authenticate(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractToken(c)
		if token == "" {
			apperrors.Unauthorized(c, "Missing access token")
			c.Abort()
			return
		}

		claims, err := util.ValidateToken(token, secret)
		if err != nil {
			code := apperrors.AuthTokenInvalid
			if err == util.ErrExpiredToken {
				code = apperrors.AuthTokenExpired
			}
			apperrors.RespondWithError(c, 401, code, "Invalid or expired token")
			c.Abort()
			return
		}

		blacklisted, err := redis.IsTokenBlacklisted(c.Request.Context(), token)
		if err != nil {
			logger.Error("Failed to check token blacklist", err, nil)
			apperrors.InternalError(c, "")
			c.Abort()
			return
		}
		if blacklisted {
			apperrors.RespondWithError(c, 401, apperrors.AuthTokenRevoked, "Token has been revoked")
			c.Abort()
			return
		}

		c.Set(ContextUserID, claims.UserID)
		c.Set(ContextUserEmail, claims.Email)
		c.Set(ContextUserRole, claims.Role)
		c.Set(ContextToken, token)
		c.Next()
	}
}

// OptionalAuthenticate attaches user identity when a valid token is
// present but lets anonymous requests through. Cart endpoints use it
// so guests and users share the same routes.
func OptionalAuthenticate(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractToken(c)
		if token == "" {
			c.Next()
			return
		}

		claims, err := util.ValidateToken(token, secret)
		if err != nil {
			c.Next()
			return
		}

		blacklisted, err := redis.IsTokenBlacklisted(c.Request.Context(), token)
		if err != nil || blacklisted {
			c.Next()
			return
		}

		c.Set(ContextUserID, claims.UserID)
		c.Set(ContextUserEmail, claims.Email)
		c.Set(ContextUserRole, claims.Role)
		c.Set(ContextToken, token)
		c.Next()
	}
}

// RequireRole allows only the listed roles past. Must run after
// Authenticate.
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, exists := c.Get(ContextUserRole)
		if !exists {
			apperrors.Unauthorized(c, "")
			c.Abort()
			return
		}

		roleStr, _ := role.(string)
		for _, allowed := range roles {
			if roleStr == allowed {
				c.Next()
				return
			}
		}

		apperrors.RespondWithError(c, 403, apperrors.AuthzAdminOnly, "Insufficient permissions")
		c.Abort()
	}
}

// GetUserID returns the authenticated user id, or 0 for guests
func GetUserID(c *gin.Context) uint {
	value, exists := c.Get(ContextUserID)
	if !exists {
		return 0
	}
	id, _ := value.(uint)
	return id
}

func GetUserRole(c *gin.Context) string {
	value, exists := c.Get(ContextUserRole)
	if !exists {
		return ""
	}
	role, _ := value.(string)
	return role
}

func GetToken(c *gin.Context) string {
	value, exists := c.Get(ContextToken)
	if !exists {
		return ""
	}
	token, _ := value.(string)
	return token
}
