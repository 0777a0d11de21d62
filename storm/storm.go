// Package storm defines the archive codec boundary.
//
// An implementation of [Codec] wraps an MPQ reader such as StormLib and
// hands out [Archive] and [File] handles. Everything above this package
// is format-agnostic: it never inspects archive bytes, only the
// behavior these interfaces promise. The stormlib subpackage binds the
// real StormLib C library; the stormtest subpackage provides an
// in-memory implementation for tests.
package storm

import (
	"fmt"
	"io"
)

// Well-known member names maintained inside MPQ archives.
const (
	// ListfileName is the member that records the archive's file names,
	// one per line, CRLF separated.
	ListfileName = "(listfile)"

	// AttributesName is the member that records per-file metadata
	// arrays (checksums, timestamps).
	AttributesName = "(attributes)"

	// SignatureName is the member holding the archive's digital signature.
	SignatureName = "(signature)"
)

// Scope selects which view of a member an open or extract addresses.
type Scope uint8

const (
	// ScopeBase addresses the member as stored in the archive itself,
	// ignoring applied patches.
	ScopeBase Scope = 0

	// ScopePatched addresses the member with applied patch archives
	// layered on top.
	ScopePatched Scope = 1
)

// String returns the scope name.
func (s Scope) String() string {
	switch s {
	case ScopeBase:
		return "base"
	case ScopePatched:
		return "patched"
	default:
		return fmt.Sprintf("scope(%d)", uint8(s))
	}
}

// InfoKind identifies a metadata value queried through File.Info.
type InfoKind uint8

const (
	// InfoFileSize queries the member's uncompressed size.
	InfoFileSize InfoKind = iota

	// InfoCompressedSize queries the member's stored size inside the
	// archive.
	InfoCompressedSize

	// InfoFileTime queries the member's timestamp as a raw Windows
	// FILETIME value. Codecs report zero when the archive records no
	// timestamp.
	InfoFileTime
)

// String returns the info kind name.
func (k InfoKind) String() string {
	switch k {
	case InfoFileSize:
		return "file_size"
	case InfoCompressedSize:
		return "compressed_size"
	case InfoFileTime:
		return "file_time"
	default:
		return fmt.Sprintf("info(%d)", uint8(k))
	}
}

// OpenFlags pass through to the codec's archive open calls. The named
// constants match the StormLib stream flags; codecs that do not
// recognize a flag ignore it.
type OpenFlags uint32

const (
	// OpenDefault opens an archive with the codec's defaults.
	OpenDefault OpenFlags = 0

	// OpenReadOnly opens the archive without write access.
	OpenReadOnly OpenFlags = 0x00000100

	// OpenNoListfile skips loading the archive's internal listing on open.
	OpenNoListfile OpenFlags = 0x00010000

	// OpenNoAttributes skips loading the archive's attributes member on open.
	OpenNoAttributes OpenFlags = 0x00020000
)

// Codec opens MPQ archives.
//
// Implementations are not required to be safe for concurrent use; see
// the mpqset package documentation for the threading model.
type Codec interface {
	// OpenArchive opens the archive at path. The priority records the
	// archive's position for codecs that keep global search state, and
	// flags pass through unchanged.
	OpenArchive(path string, priority int, flags OpenFlags) (Archive, error)
}

// Archive is one open archive handle.
//
// Member names use the archive-native backslash separator. Lookups are
// case-insensitive, matching MPQ hashing semantics.
type Archive interface {
	// HasFile reports whether the archive contains the named member.
	HasFile(name string) bool

	// OpenFile opens the named member for reading under the given scope.
	OpenFile(name string, scope Scope) (File, error)

	// ExtractFile copies the named member to destPath under the given
	// scope. The destination's parent directory must exist.
	ExtractFile(name, destPath string, scope Scope) error

	// OpenPatch applies the patch archive at path to this archive.
	// The prefix names the patch root inside the patch archive.
	OpenPatch(path, prefix string, flags OpenFlags) error

	// IsPatched reports whether any patch archive has been applied.
	IsPatched() bool

	// Flush persists pending archive state.
	Flush() error

	// Close releases the archive handle. Member handles opened from
	// the archive become invalid.
	Close() error
}

// File is one open member stream.
type File interface {
	io.Reader
	io.Seeker
	io.Closer

	// Size returns the member's uncompressed size.
	Size() (int64, error)

	// Info returns one metadata value for the member. Reading
	// metadata does not move the read position.
	Info(kind InfoKind) (uint64, error)
}
