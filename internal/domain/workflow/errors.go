package workflow

import "errors"

var (
	ErrNotFound         = errors.New("not found")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrInvalidState     = errors.New("invalid state")
	ErrInvalidInput     = errors.New("invalid input")
	ErrAlreadySubmitted = errors.New("already submitted")
	ErrNoActiveCycle    = errors.New("no active review cycle")
)
