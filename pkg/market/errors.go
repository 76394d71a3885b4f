package market

import "errors"

// Declared failure taxonomy for the order lifecycle. Every precondition
// failure surfaces as one of these; none of the paths aborts the process.
var (
	ErrUnauthorized           = errors.New("caller is not the order creator")
	ErrOrderExpired           = errors.New("order has expired")
	ErrOrderNotExpired        = errors.New("order is not expired yet")
	ErrAmountExceedsAvailable = errors.New("amount exceeds available tokens")
	ErrOrderPartiallyFilled   = errors.New("order has been partially filled")
	ErrOverflow               = errors.New("arithmetic overflow")
	ErrOrderNotFound          = errors.New("order not found")
	ErrDuplicateOrder         = errors.New("order already exists for this seed")
	ErrInvalidArgument        = errors.New("invalid argument")
)
