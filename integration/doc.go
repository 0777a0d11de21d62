//go:build integration

// Package integration provides end-to-end tests for the mpqset library.
//
// The tests drive full archive-set flows against the in-memory codec in
// storm/stormtest, so no real MPQ archives or cgo bindings are needed.
// Run with: go test -tags=integration ./integration/...
package integration
