package domain

// ReconcileTxParams carries aggregates with their transitions already applied
// in memory. Versions are the ones read before the transition; the repository
// uses them for the optimistic checks inside the transaction.
type ReconcileTxParams struct {
	Payment Payment
	Order   Order
	// UpdateOrder is false when only the payment record changes.
	UpdateOrder bool
	// ReleaseStock returns the order's line quantities to the catalog,
	// used when a payment fails or expires.
	ReleaseStock bool
}

// ReconcileTxResult is the result of the reconcile transaction.
type ReconcileTxResult struct {
	Payment Payment `json:"payment"`
	Order   Order   `json:"order"`
}
