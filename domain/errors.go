package domain

import "errors"

var (
	UnexpectedDatabaseError = errors.New("database-error")
	ErrDuplicateUsername    = errors.New("duplicate-username")
	ErrUserNotFound         = errors.New("user-not-found")
	ErrTextNotFound         = errors.New("text-not-found")
)

var UnexpectedPasswordHashError = errors.New("hashing-error")

var (
	UnexpectedTokenGenerationError = errors.New("token-generation-error")
	ErrInvalidSigningAlg           = errors.New("invalid-signing-method")
	ErrExpiredToken                = errors.New("expired-token")
	ErrInvalidTokenSignature       = errors.New("invalid-token-signature")
	ErrCorruptedToken              = errors.New("corrupted-token")
)
