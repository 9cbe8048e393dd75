package models

import "errors"

// Domain errors that can be returned by repositories
var (
	// ErrDuplicateTransaction indicates a transaction conflicting with an
	// existing row on a uniqueness constraint
	ErrDuplicateTransaction = errors.New("duplicate transaction")

	// ErrDuplicateEvent indicates a webhook event id that was already recorded
	ErrDuplicateEvent = errors.New("duplicate webhook event")

	// ErrNotFound indicates the requested entity was not found
	ErrNotFound = errors.New("not found")
)
