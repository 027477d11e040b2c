package broker

import "errors"

// Order admission rejections. They never abort a run; strategies inspect
// them with errors.Is and carry on.
var (
	ErrMarginExceeded            = errors.New("margin exceeded")
	ErrFractionalOrderNotAllowed = errors.New("fractional order not allowed")
	ErrTradeLimitExceeded        = errors.New("trade limit exceeded")
)

// ErrTradeNotFound is returned when closing a trade that is not open.
var ErrTradeNotFound = errors.New("trade not found")

// IsRejection reports whether err is one of the admission rejections.
func IsRejection(err error) bool {
	return errors.Is(err, ErrMarginExceeded) ||
		errors.Is(err, ErrFractionalOrderNotAllowed) ||
		errors.Is(err, ErrTradeLimitExceeded)
}
