package shared

import (
	"errors"
	"fmt"
)

var (
	// ErrInsufficientBalance is returned before any reservation when the user balance
	// does not cover the requested gross amount.
	ErrInsufficientBalance = errors.New("insufficient balance")
	// ErrUnauthorized is returned when a webhook signature is missing or invalid, or the
	// webhook secret is not configured.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrMerchantIncomplete is returned when a merchant profile lacks store name or document.
	ErrMerchantIncomplete = errors.New("merchant profile incomplete")
	// ErrInvalidSplit is returned when a commission split would leave the seller negative.
	ErrInvalidSplit = errors.New("invalid commission split")
	// ErrForbidden is returned when the caller lacks the role required by an operation.
	ErrForbidden = errors.New("forbidden")
)

// ValidationError reports bad input rejected before any state mutation.
type ValidationError struct {
	Field  string
	Reason string
}

func (e ValidationError) Error() string {
	if e.Field == "" {
		return "validation failed: " + e.Reason
	}
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Reason)
}

// Is matches any ValidationError when the target has no field set.
func (e ValidationError) Is(target error) bool {
	t, ok := target.(ValidationError)
	if !ok {
		return false
	}
	if t.Field == "" {
		return true
	}
	return e.Field == t.Field
}

// GatewayError wraps a failed call to an acquiring provider.
type GatewayError struct {
	Provider   Provider
	StatusCode int // zero for transport failures
	Message    string
	Err        error
}

func (e *GatewayError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("gateway %s returned %d: %s", e.Provider, e.StatusCode, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("gateway %s request failed: %v", e.Provider, e.Err)
	}
	return fmt.Sprintf("gateway %s error: %s", e.Provider, e.Message)
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}

// NotFoundError reports an unknown entity or correlation key.
type NotFoundError struct {
	Entity string
	Key    string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Entity, e.Key)
}

// Is matches any NotFoundError for the same entity when the target key is empty.
func (e NotFoundError) Is(target error) bool {
	t, ok := target.(NotFoundError)
	if !ok {
		return false
	}
	if t.Entity != "" && t.Entity != e.Entity {
		return false
	}
	if t.Key == "" {
		return true
	}
	return e.Key == t.Key
}

// InvalidStateError reports an action attempted on a record outside its eligible states.
type InvalidStateError struct {
	Entity string
	ID     string
	Status string
}

func (e InvalidStateError) Error() string {
	return fmt.Sprintf("%s %s is in status %s", e.Entity, e.ID, e.Status)
}

// Is matches any InvalidStateError when the target has no entity set.
func (e InvalidStateError) Is(target error) bool {
	t, ok := target.(InvalidStateError)
	if !ok {
		return false
	}
	if t.Entity == "" {
		return true
	}
	return e.Entity == t.Entity && (t.ID == "" || e.ID == t.ID)
}

// IsGatewayError reports whether err wraps a GatewayError.
func IsGatewayError(err error) bool {
	var gwErr *GatewayError
	return errors.As(err, &gwErr)
}
