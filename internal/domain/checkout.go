package domain

// CheckoutResult pairs the created order with its initiated payment.
type CheckoutResult struct {
	Order   Order   `json:"order"`
	Payment Payment `json:"payment"`
}
