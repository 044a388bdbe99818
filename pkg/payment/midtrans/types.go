package midtrans

// TransactionDetails identifies the order and amount being charged
type TransactionDetails struct {
	OrderID     string  `json:"order_id"`
	GrossAmount float64 `json:"gross_amount"`
}

// ShippingAddress carries the buyer's shipping destination
type ShippingAddress struct {
	Address     string `json:"address"`
	City        string `json:"city"`
	PostalCode  string `json:"postal_code"`
	CountryCode string `json:"country_code,omitempty"`
}

// CustomerDetails carries the buyer's contact information
type CustomerDetails struct {
	FirstName       string           `json:"first_name"`
	Email           string           `json:"email"`
	Phone           string           `json:"phone"`
	ShippingAddress *ShippingAddress `json:"shipping_address,omitempty"`
}

// ItemDetail describes one order line; Name is truncated to the
// gateway's 50 character limit by the client
type ItemDetail struct {
	ID       string  `json:"id"`
	Price    float64 `json:"price"`
	Quantity int     `json:"quantity"`
	Name     string  `json:"name"`
}

// SnapRequest is the payload for creating a Snap transaction
type SnapRequest struct {
	TransactionDetails TransactionDetails `json:"transaction_details"`
	CustomerDetails    *CustomerDetails   `json:"customer_details,omitempty"`
	ItemDetails        []ItemDetail       `json:"item_details,omitempty"`
}

// SnapResponse is the Snap transaction creation result
type SnapResponse struct {
	Token       string `json:"token"`
	RedirectURL string `json:"redirect_url"`
}

// ErrorResponse is the error payload returned by the Snap API
type ErrorResponse struct {
	ErrorMessages []string `json:"error_messages"`
}
