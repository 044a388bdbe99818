package midtrans

import (
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
)

// Transaction statuses reported by the payment notification webhook
const (
	StatusCapture    = "capture"
	StatusSettlement = "settlement"
	StatusPending    = "pending"
	StatusDeny       = "deny"
	StatusCancel     = "cancel"
	StatusExpire     = "expire"

	FraudAccept    = "accept"
	FraudChallenge = "challenge"
)

// Notification is the payload POSTed by the gateway after a payment
// state change
type Notification struct {
	OrderID           string `json:"order_id"`
	StatusCode        string `json:"status_code"`
	GrossAmount       string `json:"gross_amount"`
	SignatureKey      string `json:"signature_key"`
	TransactionID     string `json:"transaction_id"`
	TransactionStatus string `json:"transaction_status"`
	FraudStatus       string `json:"fraud_status"`
}

// VerifySignature checks the notification signature against the server key.
// The signature is sha512(order_id + status_code + gross_amount + server_key).
func (n *Notification) VerifySignature(serverKey string) bool {
	sum := sha512.Sum512([]byte(n.OrderID + n.StatusCode + n.GrossAmount + serverKey))
	expected := hex.EncodeToString(sum[:])
	return subtle.ConstantTimeCompare([]byte(expected), []byte(n.SignatureKey)) == 1
}

// PaymentResult is the resolved outcome of a notification
type PaymentResult string

const (
	ResultPaid      PaymentResult = "paid"
	ResultCancelled PaymentResult = "cancelled"
	ResultPending   PaymentResult = "pending"
)

// Result maps the transaction and fraud statuses to a payment outcome
func (n *Notification) Result() PaymentResult {
	switch n.TransactionStatus {
	case StatusCapture:
		if n.FraudStatus == FraudAccept {
			return ResultPaid
		}
		return ResultPending
	case StatusSettlement:
		return ResultPaid
	case StatusCancel, StatusDeny, StatusExpire:
		return ResultCancelled
	default:
		return ResultPending
	}
}
