package attendance

import "errors"

var (
	// ErrMissingFields is returned when a check-in omits a required
	// identity field. No store access happens in that case.
	ErrMissingFields = errors.New("missing required fields")

	// ErrUnknownPerson is returned when the email is not registered.
	ErrUnknownPerson = errors.New("person not registered")

	// ErrStoreUnavailable wraps any record-store I/O failure. The request
	// aborts before any write when reads fail.
	ErrStoreUnavailable = errors.New("attendance store unavailable")
)
