package rates

import "errors"

// Service errors
var (
	ErrNegativeAmount     = errors.New("amount must not be negative")
	ErrNoApplicableRange  = errors.New("no active range matches the amount")
	ErrSnapshotLoadFailed = errors.New("failed to load range settings")
)
