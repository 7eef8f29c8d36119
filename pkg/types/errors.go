package types

import "errors"

// Store and lookup errors.
var (
	ErrNotFound     = errors.New("entity not found")
	ErrConflict     = errors.New("store constraint violation")
	ErrInvalidID    = errors.New("invalid entity ID")
	ErrInvalidData  = errors.New("invalid entity data")
	ErrUnknownType  = errors.New("unknown entity type")
	ErrUnknownField = errors.New("unknown field")
)

// Integrity errors raised by the slot manager and the deletion guard.
var (
	ErrIndexOutOfRange = errors.New("slot index out of range")
	ErrValidation      = errors.New("validation failed")
	ErrRestricted      = errors.New("deletion restricted by referencing records")
)

// Backend lifecycle errors.
var (
	ErrDetached        = errors.New("store is detached")
	ErrAlreadyAttached = errors.New("store is already attached")
)
