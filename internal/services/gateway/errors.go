package gateway

import "errors"

// Service errors
var (
	ErrInvalidRequest           = errors.New("invalid gateway request")
	ErrGatewayUnavailable       = errors.New("payment provider unavailable")
	ErrUnknownTransaction       = errors.New("unknown gateway transaction")
	ErrConflictingTerminalState = errors.New("conflicting terminal state")
	ErrInvalidWebhookToken      = errors.New("invalid webhook token")
	ErrUnknownProvider          = errors.New("unknown provider")
	ErrNoPollEndpoint           = errors.New("transaction has no poll endpoint")
)
