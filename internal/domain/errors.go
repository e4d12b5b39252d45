package domain

import "errors"

var (
	ErrSerializationFailure = errors.New("serialization failure")
	ErrNotFound             = errors.New("not found")
	ErrConflict             = errors.New("conflict")
	ErrInvalidInput         = errors.New("invalid input")

	ErrDateRequired           = errors.New("date required")
	ErrContactDetailsRequired = errors.New("contact details required")
	ErrInvalidTransition      = errors.New("invalid flow transition")
	ErrFlowClosed             = errors.New("flow closed")
	ErrUnauthenticated        = errors.New("unauthenticated")
	ErrForbidden              = errors.New("forbidden")
	ErrPaymentUnverified      = errors.New("payment signature not verified")
	ErrBookingPending         = errors.New("payment captured, booking pending")
)

const (
	PromptDateRequired     = "Please select a date for your trip!"
	PromptContactRequired  = "Please fill in your details before proceeding to payment."
	PromptBookingFailed    = "Payment succeeded but booking failed. Please contact support."
	PromptContactForm      = "Please fill all fields"
	PromptPasswordMismatch = "Passwords do not match"
)

// PromptError carries the exact message shown to the traveler alongside the
// sentinel it wraps.
type PromptError struct {
	Err    error
	Prompt string
}

func (e *PromptError) Error() string {
	return e.Prompt
}

func (e *PromptError) Unwrap() error {
	return e.Err
}

func Prompt(err error, prompt string) error {
	return &PromptError{Err: err, Prompt: prompt}
}
