package notification

import "errors"

var (
	// ErrBulkInProgress is returned when another bulk run holds the lock.
	ErrBulkInProgress = errors.New("a bulk send is already running")
	// ErrEmptyBulk is returned when a bulk request names no registrations.
	ErrEmptyBulk = errors.New("no registration ids given")
	// ErrMissingContent is returned when a custom message lacks subject or body.
	ErrMissingContent = errors.New("subject and message are required")
)
