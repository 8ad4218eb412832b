package store

import "errors"

var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateEmail is returned when an insert collides with the unique
	// email constraint.
	ErrDuplicateEmail = errors.New("email already registered")

	// ErrInvalidState is returned when a conditional transition finds the
	// account no longer in the expected state (e.g. a pending-admin row was
	// already approved or rejected by a concurrent request).
	ErrInvalidState = errors.New("account not in expected state")

	// ErrSuperAdminExists is returned when provisioning a second super admin.
	ErrSuperAdminExists = errors.New("super admin already provisioned")
)
