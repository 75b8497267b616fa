package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores, lockers and publishers
// return these (optionally wrapped) so services can translate them into
// domain errors.
//
//   - ErrNotFound: entity does not exist in store
//   - ErrConflict: entity already exists
//   - ErrLocked: a lease on the resource is held by another writer
//   - ErrUnavailable: backing service temporarily unavailable
var (
	ErrNotFound    = errors.New("not found")
	ErrConflict    = errors.New("conflict")
	ErrLocked      = errors.New("locked")
	ErrUnavailable = errors.New("unavailable")
)
