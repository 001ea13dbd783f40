package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores and counters return these
// (optionally wrapped) and services translate them into domain errors.
//
//   - ErrNotFound: record does not exist in the caller's scope
//   - ErrConflict: conditional write lost (version moved) or unique key taken
//   - ErrInvalidState: record is in the wrong state for the requested operation
//   - ErrUnavailable: backing store temporarily unreachable
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrInvalidState = errors.New("invalid state")
	ErrUnavailable  = errors.New("unavailable")
)
