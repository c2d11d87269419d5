package engine

import "errors"

// Common, reusable engine errors. Sentinel variables let callers detect error
// conditions via errors.Is/As instead of brittle string comparisons.
var (
	// ErrNotFound is returned when the requested record or group does not
	// exist in the underlying store.
	ErrNotFound = errors.New("engine: not found")

	// ErrInvalidID indicates that the supplied identifier is empty or
	// otherwise invalid.
	ErrInvalidID = errors.New("engine: invalid id")

	// ErrNilBuilder is returned when the caller attempts to submit a nil
	// build request.
	ErrNilBuilder = errors.New("engine: nil builder")

	// ErrGroupNotEmpty is returned by GroupService.Delete when skipNonEmpty
	// is set and the group still has members.
	ErrGroupNotEmpty = errors.New("engine: group not empty")
)
