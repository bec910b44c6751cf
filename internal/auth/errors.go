package auth

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned by repositories when no account matches.
	ErrNotFound = errors.New("auth: account not found")
	// ErrInvalidCredentials is the only failure a login form ever shows.
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
	// ErrAccountDisabled matches ErrInvalidCredentials with errors.Is.
	ErrAccountDisabled = fmt.Errorf("%w: account disabled", ErrInvalidCredentials)
)
