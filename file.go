package mpqset

import (
	"fmt"
	"io"

	"github.com/mopaq/mpqset/storm"
)

// Interface compliance.
var (
	_ io.Reader = (*File)(nil)
	_ io.Seeker = (*File)(nil)
	_ io.Closer = (*File)(nil)
)

// File reads one archive member through the codec.
//
// A File is bound to the archive that resolved it; closing the Set the
// file came from invalidates the handle. File is not safe for
// concurrent use.
type File struct {
	f      storm.File
	name   string
	scope  storm.Scope
	closed bool
}

// Name returns the logical (forward slash) member name.
func (f *File) Name() string {
	return f.name
}

// Scope returns the view the member was opened under.
func (f *File) Scope() storm.Scope {
	return f.scope
}

// Read implements io.Reader.
func (f *File) Read(p []byte) (int, error) {
	if f.closed {
		return 0, ErrClosed
	}
	return f.f.Read(p)
}

// Seek implements io.Seeker.
func (f *File) Seek(offset int64, whence int) (int64, error) {
	if f.closed {
		return 0, ErrClosed
	}
	return f.f.Seek(offset, whence)
}

// Tell returns the current read position.
func (f *File) Tell() (int64, error) {
	return f.Seek(0, io.SeekCurrent)
}

// Size returns the member's uncompressed size.
func (f *File) Size() (int64, error) {
	if f.closed {
		return 0, ErrClosed
	}
	return f.f.Size()
}

// ReadAll reads from the current position to the end of the member.
//
// A short read is an error: ReadAll returns exactly the remaining
// bytes or fails, it never silently returns fewer.
func (f *File) ReadAll() ([]byte, error) {
	if f.closed {
		return nil, ErrClosed
	}
	size, err := f.f.Size()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", f.name, err)
	}
	pos, err := f.f.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", f.name, err)
	}
	remaining := size - pos
	if remaining <= 0 {
		return []byte{}, nil
	}

	buf := make([]byte, remaining)
	n, err := io.ReadFull(f.f, buf)
	if err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return nil, fmt.Errorf("read %s: short read (%d of %d bytes)", f.name, n, remaining)
		}
		return nil, fmt.Errorf("read %s: %w", f.name, err)
	}
	return buf, nil
}

// Close releases the member handle. Close is idempotent; any other
// operation on a closed file fails with ErrClosed.
func (f *File) Close() error {
	if f.closed {
		return nil
	}
	f.closed = true
	return f.f.Close()
}
