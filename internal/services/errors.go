package services

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidTransition means the requested status change is not in
	// the transition table for this actor, or the order moved first.
	ErrInvalidTransition = errors.New("status transition not allowed")

	// ErrAlreadyAssigned means another rider won the accept race.
	ErrAlreadyAssigned = errors.New("order already assigned to a rider")

	// ErrNotAcceptable means the order is not open for rider acceptance.
	ErrNotAcceptable = errors.New("order not open for acceptance")

	// ErrOrderLocked means another multi-step operation holds the
	// per-order lease right now.
	ErrOrderLocked = errors.New("order is being modified, retry shortly")

	// ErrNotRatable means the order is not delivered, already rated, or
	// outside the rating window.
	ErrNotRatable = errors.New("order cannot be rated")

	ErrPaymentNotRefundable = errors.New("payment is not in a refundable state")
)

// PromoRejectedError carries the specific reason a promo code could not
// be applied, suitable for showing to the customer.
type PromoRejectedError struct {
	Code   string
	Reason string
}

func (e *PromoRejectedError) Error() string {
	return fmt.Sprintf("promo code %s rejected: %s", e.Code, e.Reason)
}
