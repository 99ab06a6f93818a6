package payment

import "errors"

var (
	ErrPaymentNotFound = errors.New("payment not found")
	ErrPaymentFinal    = errors.New("payment is already in a final status")

	// ErrPaymentAlreadySettled means a concurrent writer settled the stored row first.
	ErrPaymentAlreadySettled = errors.New("payment already settled")
)
