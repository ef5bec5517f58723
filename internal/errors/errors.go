package errors

import (
	"errors"
	"fmt"
)

// Common error types for the application shell
var (
	// Resolution errors
	ErrUnauthenticated   = errors.New("credential missing or rejected")
	ErrServerUnavailable = errors.New("identity endpoint unavailable")
	ErrMalformedResponse = errors.New("malformed identity response")
	ErrAmbiguousHint     = errors.New("routing hint missing or unrecognized")

	// Sign-in errors
	ErrFlowStateNotFound = errors.New("sign-in flow state not found")
	ErrInvalidFlowState  = errors.New("invalid sign-in flow state")
	ErrNonceMismatch     = errors.New("nonce mismatch")

	// Session errors
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionExpired  = errors.New("session expired")

	// General errors
	ErrNotFound = errors.New("not found")
	ErrInternal = errors.New("internal error")
)

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
