package checkout

import (
	"errors"
	"fmt"
)

var ErrShippingAddressRequired = errors.New("shipping address is required")

type EmptyCartError struct {
	UserID string
}

func (e *EmptyCartError) Error() string {
	return fmt.Sprintf("cart of user %s is empty", e.UserID)
}

type UserNotFoundError struct {
	UserID string
}

func (e *UserNotFoundError) Error() string {
	return fmt.Sprintf("user %s not found", e.UserID)
}
