package auth

import "errors"

var (
	UserNotFoundErr           = errors.New("user not found")
	UserExistsErr             = errors.New("user already exists")
	UserBlockedErr            = errors.New("user blocked")
	UserUnverifiedErr         = errors.New("user not verified")
	UserPasswordsDontMatchErr = errors.New("user passwords not matched")
)

// ValidationError reports input the backend rejects; its message is safe to show
type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string { return e.Err.Error() }

func (e *ValidationError) Unwrap() error { return e.Err }
