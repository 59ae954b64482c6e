package auth

import "errors"

// Login failure kinds. The boundary layer collapses ErrInvalidCredential,
// ErrNoSuchAccount and ErrLinkingRefused into one generic "invalid login"
// response to avoid account enumeration; ErrWeakPassword is the only kind
// whose details are user-visible.
var (
	ErrInvalidCredential = errors.New("invalid credential")
	ErrNoSuchAccount     = errors.New("no account for email")
	ErrWeakPassword      = errors.New("password does not meet policy requirements")
	ErrLinkingRefused    = errors.New("account linking refused")
)

// Storage sentinels. Store implementations must return these so the
// engine can distinguish expected misses from infrastructure failures.
var (
	ErrUserNotFound    = errors.New("user not found")
	ErrBindingNotFound = errors.New("credential binding not found")
	ErrBindingExists   = errors.New("credential binding already exists")
	ErrInviteNotFound  = errors.New("invite not found")
)
