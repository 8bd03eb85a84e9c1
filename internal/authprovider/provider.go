package authprovider

import (
	"context"
	"errors"
	"fmt"
)

// Principal is the provider's view of a signed-in account: a stable id plus
// whatever display metadata the provider carries. It is distinct from the
// application profile record.
type Principal struct {
	ID          string
	Email       string
	DisplayName string
}

// AuthError marks credential/account failures. Always user-recoverable:
// surface a message and let the caller re-submit.
type AuthError struct {
	Reason string
	Err    error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("auth: %s: %v", e.Reason, e.Err)
	}
	return "auth: " + e.Reason
}

func (e *AuthError) Unwrap() error { return e.Err }

var (
	ErrInvalidCredentials = &AuthError{Reason: "invalid credentials"}
	ErrDuplicateAccount   = &AuthError{Reason: "account already exists"}
)

// IsAuthError reports whether err is (or wraps) an AuthError.
func IsAuthError(err error) bool {
	var ae *AuthError
	return errors.As(err, &ae)
}

// Provider is the authentication boundary. Identity changes are announced
// through OnAuthChange listeners: a non-nil principal on sign-in, nil on
// sign-out (including provider-initiated expiry). Events fire in the order
// the provider resolves them.
type Provider interface {
	Authenticate(ctx context.Context, email, password string) (*Principal, error)
	CreateAccount(ctx context.Context, email, password string) (*Principal, error)
	SignOut(ctx context.Context) error
	OnAuthChange(fn func(*Principal)) (remove func())
}
