package auth

import "errors"

const KeyLength = 64

var (
	ErrInvalidCredentials = errors.New("invalid username or key")
	ErrAccessDenied       = errors.New("admin password required")
	ErrInvalidUsername    = errors.New("invalid username")
)
