package errors

import (
	"errors"
	"strings"

	"github.com/lib/pq"
	"gorm.io/gorm"
)

// Postgres error classes (see the PostgreSQL error code appendix)
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgNotNullViolation    = "23502"
	pgCheckViolation      = "23514"
)

// ErrorInfo pairs an error code with a user-facing message
type ErrorInfo struct {
	Code    string
	Message string
}

// ParseError converts database and infrastructure errors into an error
// code plus a message safe to show to users. Sensitive details stay out
// of the response; callers log the original error.
func ParseError(err error, context string) ErrorInfo {
	if err == nil {
		return ErrorInfo{
			Code:    InternalServerError,
			Message: "Something went wrong",
		}
	}

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrorInfo{
			Code:    ResourceNotFound,
			Message: notFoundMessage(context),
		}
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch string(pqErr.Code) {
		case pgUniqueViolation:
			return ErrorInfo{
				Code:    ResourceAlreadyExists,
				Message: duplicateMessage(context, pqErr.Constraint),
			}
		case pgForeignKeyViolation:
			return ErrorInfo{
				Code:    ResourceConflict,
				Message: "A referenced record does not exist or is still in use",
			}
		case pgNotNullViolation:
			return ErrorInfo{
				Code:    ValidationRequired,
				Message: "A required field is missing: " + pqErr.Column,
			}
		case pgCheckViolation:
			return ErrorInfo{
				Code:    ValidationInvalidInput,
				Message: "A field value is out of the allowed range",
			}
		}
	}

	errStr := strings.ToLower(err.Error())
	if strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "no such host") ||
		strings.Contains(errStr, "timeout") {
		return ErrorInfo{
			Code:    InternalExternalAPI,
			Message: "A downstream service is unavailable. Please try again later",
		}
	}

	return ErrorInfo{
		Code:    InternalServerError,
		Message: "Something went wrong. Please try again later",
	}
}

func notFoundMessage(context string) string {
	switch context {
	case "product":
		return "Product not found"
	case "order":
		return "Order not found"
	case "cart":
		return "Cart item not found"
	case "user":
		return "User not found"
	case "category":
		return "Category not found"
	default:
		return "Resource not found"
	}
}

// ParseAndRespond parses err and writes the standard error payload,
// for controller default branches that hit unexpected failures
func ParseAndRespond(c interface{ JSON(int, interface{}) }, statusCode int, err error, context string) {
	info := ParseError(err, context)
	c.JSON(statusCode, ErrorResponse{
		Error:   info.Code,
		Message: info.Message,
	})
}

func duplicateMessage(context, constraint string) string {
	if strings.Contains(constraint, "slug") {
		return "A record with this slug already exists"
	}
	if strings.Contains(constraint, "email") {
		return "This email is already registered"
	}
	switch context {
	case "product":
		return "This product already exists"
	default:
		return "This record already exists"
	}
}
