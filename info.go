package mpqset

import (
	"errors"
	"fmt"

	"github.com/mopaq/mpqset/internal/mpqpath"
	"github.com/mopaq/mpqset/storm"
)

// Info is a point-in-time metadata snapshot of one archive member,
// captured through an open file handle.
//
// The codec surface this package consumes does not expose per-member
// checksums or compression methods; CRC and CompressType return
// ErrNotImplemented rather than guessing.
type Info struct {
	filename     string
	fileSize     int64
	compressSize int64
	fileTime     uint64
}

// NewInfo captures metadata for the member behind an open file handle.
// The handle is only queried, never closed: it stays owned by the
// caller, and its read position is unaffected.
func NewInfo(f *File) (*Info, error) {
	if f == nil {
		return nil, errors.New("mpqset: nil file")
	}
	if f.closed {
		return nil, ErrClosed
	}
	size, err := f.f.Info(storm.InfoFileSize)
	if err != nil {
		return nil, fmt.Errorf("info %s: %w", f.name, err)
	}
	csize, err := f.f.Info(storm.InfoCompressedSize)
	if err != nil {
		return nil, fmt.Errorf("info %s: %w", f.name, err)
	}
	ftime, err := f.f.Info(storm.InfoFileTime)
	if err != nil {
		return nil, fmt.Errorf("info %s: %w", f.name, err)
	}
	return &Info{
		filename:     f.name,
		fileSize:     int64(size),
		compressSize: int64(csize),
		fileTime:     ftime,
	}, nil
}

// Info captures metadata for the named member. A transient base-view
// handle is opened for the query and closed before returning.
func (s *Set) Info(name string) (*Info, error) {
	f, err := s.Open(name, storm.ScopeBase)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return NewInfo(f)
}

// Filename returns the logical (forward slash) member name.
func (i *Info) Filename() string {
	return i.filename
}

// Basename returns the last path component of the member name.
func (i *Info) Basename() string {
	return mpqpath.Base(i.filename)
}

// FileSize returns the uncompressed size in bytes.
func (i *Info) FileSize() int64 {
	return i.fileSize
}

// CompressSize returns the stored size inside the archive in bytes.
func (i *Info) CompressSize() int64 {
	return i.compressSize
}

// FileTime returns the member timestamp as a raw Windows FILETIME
// value, without interpretation. Zero means the archive records no
// timestamp.
func (i *Info) FileTime() uint64 {
	return i.fileTime
}

// CompressType reports the compression method of the member. The codec
// surface does not expose it; the error is always ErrNotImplemented.
func (i *Info) CompressType() (int, error) {
	return 0, ErrNotImplemented
}

// CRC reports the stored checksum of the member. The codec surface
// does not expose it; the error is always ErrNotImplemented.
func (i *Info) CRC() (uint32, error) {
	return 0, ErrNotImplemented
}
