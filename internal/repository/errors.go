package repository

import "errors"

var (
	// ErrNotFound is returned when a lookup matches no row.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateSlot is returned when an insert trips the partial unique
	// index on (practitioner_id, date, start_time) over active statuses.
	ErrDuplicateSlot = errors.New("slot already booked")

	// ErrDuplicateAccount is returned when an insert or update violates the
	// username or email uniqueness constraints.
	ErrDuplicateAccount = errors.New("username or email already in use")
)
