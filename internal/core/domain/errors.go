package domain

import "errors"

var (
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrTokenMissing        = errors.New("session token missing")
	ErrTokenInvalid        = errors.New("session token invalid or expired")
	ErrInsufficientRole    = errors.New("insufficient role")
	ErrNotFound            = errors.New("entity not found")
	ErrDuplicateIdentifier = errors.New("identifier already in use")
	ErrLastAdmin           = errors.New("cannot remove the last admin account")
	ErrInvalidAccount      = errors.New("invalid account")
)
