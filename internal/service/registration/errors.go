package registration

import (
	"errors"
	"fmt"
)

// Sentinel errors for the registration service layer.
var (
	ErrNotFound       = errors.New("registration not found")
	ErrInvalidStatus  = errors.New("invalid registration status")
	ErrCouponRequired = errors.New("coupon code is required")
)

// NotFoundError carries the id that was looked up. It matches ErrNotFound.
type NotFoundError struct {
	ID int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("Inscrição com ID %d não encontrada", e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }
