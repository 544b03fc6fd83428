// Package sentinel holds infrastructure facts that stores and transports
// return (optionally wrapped) so callers can branch with errors.Is.
// Input validation failures belong in pkg/domain-errors instead.
package sentinel

import "errors"

var (
	ErrNotFound    = errors.New("not found")
	ErrConflict    = errors.New("conflict")
	ErrUnavailable = errors.New("unavailable")
	ErrClosed      = errors.New("closed")
)
