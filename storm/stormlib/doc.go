// Package stormlib binds the archive codec boundary to the StormLib C
// library.
//
// The binding needs cgo and an installed StormLib, so it is compiled
// only with the stormlib build tag:
//
//	go build -tags stormlib
//
// Without the tag the package still compiles: Available reports false
// and New returns ErrUnavailable, so callers can fall back to another
// codec or fail with a clear message instead of a link error.
package stormlib
