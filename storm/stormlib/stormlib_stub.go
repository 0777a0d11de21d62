//go:build !stormlib

package stormlib

import (
	"errors"

	"github.com/mopaq/mpqset/storm"
)

// Available reports whether the StormLib binding was compiled in.
const Available = false

// ErrUnavailable is returned by New when the binary was built without
// the stormlib tag.
var ErrUnavailable = errors.New("stormlib: built without stormlib tag")

// New returns ErrUnavailable. The binding needs cgo and the stormlib
// build tag.
func New() (storm.Codec, error) {
	return nil, ErrUnavailable
}
