package domain

import "errors"

var (
	// ErrValidation is the root of every malformed or missing input error
	ErrValidation = errors.New("validation failed")

	// ErrSelfBooking is returned when the requester tries to book themselves
	ErrSelfBooking = errors.New("you cannot book an appointment with yourself")

	// ErrNotAProvider is returned when the target user cannot receive bookings
	ErrNotAProvider = errors.New("user is not a provider")

	// ErrPastDate is returned when the requested slot is not in the future
	ErrPastDate = errors.New("past dates are not permitted")

	// ErrSlotTaken is returned when the provider already has an active appointment at that hour
	ErrSlotTaken = errors.New("appointment date is not available")

	// ErrNotFound is returned when a referenced record does not exist
	ErrNotFound = errors.New("not found")

	// ErrUnauthorized is returned when someone other than the requester cancels
	ErrUnauthorized = errors.New("you don't have permission to cancel this appointment")

	// ErrTooLate is returned when the cancellation notice window has passed
	ErrTooLate = errors.New("appointments can only be canceled up to 2 hours in advance")

	// ErrAlreadyCanceled is returned when cancelling an appointment twice
	ErrAlreadyCanceled = errors.New("appointment is already canceled")
)

// ValidationError describes a single rejected input field
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return e.Field + ": " + e.Reason
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// NewValidationError creates a new validation error for field
func NewValidationError(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}
