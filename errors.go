package mpqset

import "errors"

// Sentinel errors returned by Set and File operations.
var (
	// ErrNotFound is returned when no archive in the set contains the
	// requested member.
	ErrNotFound = errors.New("mpqset: file not found")

	// ErrClosed is returned when an operation uses a closed Set or File.
	ErrClosed = errors.New("mpqset: closed")

	// ErrNotImplemented is returned for metadata the codec surface does
	// not expose.
	ErrNotImplemented = errors.New("mpqset: not implemented")
)
