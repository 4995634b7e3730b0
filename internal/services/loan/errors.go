package loan

import "errors"

// Service errors
var (
	ErrInvalidAmount      = errors.New("repayment amount must be positive")
	ErrOverpayment        = errors.New("repayment exceeds remaining amount")
	ErrLoanAlreadySettled = errors.New("loan already settled")
	ErrLoanNotFound       = errors.New("loan not found")
)
