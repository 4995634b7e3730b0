package split

import "errors"

// Service errors
var (
	ErrInvalidGross             = errors.New("gross amount must not be negative")
	ErrInvalidPercentageConfig  = errors.New("invalid percentage configuration")
	ErrMissingGatewaySetting    = errors.New("no gateway setting for service type")
	ErrSettlementTransferFailed = errors.New("settlement transfer failed")
)
