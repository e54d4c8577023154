package ports

import "errors"

// Sentinel errors shared across the application. Adapters wrap the
// underlying infrastructure failure with one of these so callers can
// branch with errors.Is without knowing the adapter.
var (
	ErrUnknown         = errors.New("unknown error occurred")
	ErrInvalidRequest  = errors.New("invalid request parameters or format")
	ErrNotFound        = errors.New("resource not found")
	ErrTimeout         = errors.New("operation timed out")
	ErrContextCanceled = errors.New("operation canceled via context")

	// Returned by indicators and strategies when the candle history is
	// shorter than the calculation window. Callers degrade, not abort.
	ErrInsufficientData = errors.New("not enough candle data for calculation")

	// Exchange errors
	ErrConnectionFailed     = errors.New("failed to connect to the exchange")
	ErrRateLimited          = errors.New("API rate limit exceeded")
	ErrAuthenticationFailed = errors.New("exchange authentication failed (check API keys)")
	ErrInvalidAPIKeys       = errors.New("invalid API keys or permissions")
	ErrInsufficientFunds    = errors.New("insufficient funds for operation")
	ErrOrderNotFound        = errors.New("order not found on the exchange")
	ErrOrderPlacementFailed = errors.New("failed to place order")

	// Database errors
	ErrDuplicateEntry = errors.New("database record already exists")
)
