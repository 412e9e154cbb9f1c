package core

type PaymentDetails struct {
	CardNumber      string `json:"card_number"`
	CVV             string `json:"cvv"`
	Name            string `json:"name"`
	ValidUntilMonth int    `json:"valid_until_month"`
	ValidUntilYear  int    `json:"valid_until_year"`
}

type User struct {
	UserID         string         `json:"user_id"`
	FirstName      string         `json:"first_name"`
	LastName       string         `json:"last_name"`
	PaymentDetails PaymentDetails `json:"payment_details"`
}

// OrderSummary is the terminal outcome published to subscribers watching an
// order, e.g. a synchronous creator awaiting the saga result.
type OrderSummary struct {
	OrderID string      `json:"order_id"`
	Status  OrderStatus `json:"status"`
	Message string      `json:"message"`
}
