package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound        = errors.New("entity not found")
	ErrValidation      = errors.New("validation failed")
	ErrGateway         = errors.New("payment gateway failure")
	ErrStaleSession    = errors.New("conversation session is stale or incomplete")
	ErrFlowInFlight    = errors.New("another purchase flow is already in flight for this chat")
	ErrOperationFailed = errors.New("operation failed")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrReadDatabaseRow = errors.New("failed to read database row")
	ErrTenantStartup   = errors.New("tenant failed to start")
)
