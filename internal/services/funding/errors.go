package funding

import "errors"

var (
	// ErrInvalidCard is returned when card details fail basic validation.
	ErrInvalidCard = errors.New("invalid card details")

	// ErrCardDeclined is returned when the card processor rejects the charge.
	ErrCardDeclined = errors.New("card charge declined")

	// ErrInvalidAmount is returned for zero or negative top-up amounts.
	ErrInvalidAmount = errors.New("amount must be greater than zero")
)
