package draft

import "errors"

// Error kinds returned by the draft engine. Callers match them with errors.Is; the
// wrapped message carries the detail.
var (
	ErrValidation     = errors.New("validation error")
	ErrAuthorization  = errors.New("authorization error")
	ErrState          = errors.New("state error")
	ErrBudget         = errors.New("budget error")
	ErrConcurrency    = errors.New("concurrency error")
	ErrEmptyCatalog   = errors.New("empty catalog")
	ErrNotFound       = errors.New("not found")
	ErrInfrastructure = errors.New("infrastructure error")
)
