package auth

import "errors"

var (
	// ErrInvalidToken covers every token that fails signature, expiry or
	// payload checks. Callers cannot tell which.
	ErrInvalidToken = errors.New("auth: invalid token")

	// ErrUnauthenticated is returned when a token does not resolve to an account.
	ErrUnauthenticated = errors.New("could not validate credentials")

	ErrForbidden = errors.New("auth: forbidden")
)

// ForbiddenError is a policy denial. It matches ErrForbidden.
type ForbiddenError struct {
	Reason string
}

func (e *ForbiddenError) Error() string {
	return e.Reason
}

func (e *ForbiddenError) Is(target error) bool {
	return target == ErrForbidden
}
