package model

import "errors"

// Sentinel errors shared by the store, cache and catalog layers.
// Callers match them with errors.Is; concrete errors wrap them with context.
var (
	// ErrIdentityConflict indicates a caller supplied an identity on create.
	ErrIdentityConflict = errors.New("identity conflict: new entities cannot carry an id")

	// ErrNotFound indicates the operation targets a non-existent identity.
	ErrNotFound = errors.New("entity not found")

	// ErrStoreUnavailable indicates the backing store failed or timed out.
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrValidationFailure indicates malformed predicate input.
	ErrValidationFailure = errors.New("validation failure")

	// ErrUnsavedReference indicates an attempt to associate an entity that has no identity yet.
	ErrUnsavedReference = errors.New("cannot reference an entity without identity")
)
