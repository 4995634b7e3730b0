package refund

import "errors"

// Service errors
var (
	ErrOriginalNotFound       = errors.New("original transaction not found")
	ErrNotRefundable          = errors.New("transaction is not in a refundable state")
	ErrAlreadyRefunded        = errors.New("a refund already exists for this transaction")
	ErrProviderTransferFailed = errors.New("provider refund transfer failed")
)
