package midtrans

import "errors"

var (
	// ErrInvalidRequest is returned when the request parameters are invalid
	ErrInvalidRequest = errors.New("invalid request parameters")

	// ErrPaymentFailed is returned when the Snap transaction cannot be created
	ErrPaymentFailed = errors.New("payment failed")

	// ErrNetworkError is returned when there's a network communication error
	ErrNetworkError = errors.New("network error")

	// ErrUnauthorized is returned when the server key is invalid
	ErrUnauthorized = errors.New("unauthorized: invalid server key")

	// ErrInvalidSignature is returned when a notification signature does not match
	ErrInvalidSignature = errors.New("invalid notification signature")
)
