package ui

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidElementID is returned when an input element is given an explicit empty id.
	ErrInvalidElementID = errors.New("invalid element id")

	// ErrMaxDepthExceeded is returned when resolution nests deeper than the resolver allows.
	ErrMaxDepthExceeded = errors.New("element tree exceeds max depth")

	// ErrNilElement is returned when a nil element or nil producer is met during resolution.
	ErrNilElement = errors.New("nil element")

	// ErrUnknownElement is returned when resolution meets a type it cannot handle.
	ErrUnknownElement = errors.New("unknown element")

	// ErrUnknownClass is returned by Decode for an unrecognized class discriminator.
	ErrUnknownClass = errors.New("unknown element class")
)

// DepthError reports the bound that was crossed while resolving.
type DepthError struct {
	MaxDepth int
}

func (e *DepthError) Error() string {
	return fmt.Sprintf("%s (max %d)", ErrMaxDepthExceeded, e.MaxDepth)
}

func (e *DepthError) Is(target error) bool {
	return target == ErrMaxDepthExceeded
}
