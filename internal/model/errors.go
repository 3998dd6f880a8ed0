package model

import "errors"

var (
	// Error taxonomy surfaced by the archive engine
	ErrValidation  = errors.New("validation failed")
	ErrStore       = errors.New("store operation failed")
	ErrTransaction = errors.New("transaction failed")

	// Document/selector related errors
	ErrInvalidSelector        = errors.New("invalid selector")
	ErrInvalidDocument        = errors.New("invalid document")
	ErrInvalidCollection      = errors.New("invalid collection name")
	ErrDuplicateID            = errors.New("duplicate document id")
	ErrReservedField          = errors.New("document uses a reserved provenance field")
	ErrConcurrentModification = errors.New("documents changed during operation")
	ErrArchiveCollection      = errors.New("operation not allowed on the archive collection")

	// Permission/Access related errors
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")

	// Generic errors
	ErrInvalidInput = errors.New("invalid input")
)
