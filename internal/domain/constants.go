package domain

import "time"

const (
	// JobCancellationMail is the queue key of the provider cancellation email
	JobCancellationMail = "CancellationMail"

	// CancellationNotice is how far ahead of the appointment a cancellation must happen
	CancellationNotice = 2 * time.Hour

	// DefaultPageSize is used when the configuration does not set one
	DefaultPageSize = 2
)
