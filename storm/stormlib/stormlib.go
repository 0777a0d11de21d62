//go:build stormlib

package stormlib

/*
#cgo LDFLAGS: -lstorm -lz -lbz2
#include <stdlib.h>
#include <StormLib.h>

// StormLib is a C++ library whose headers expose bool-returning
// functions. The shims below normalize every result to int so the Go
// side never depends on how the active compiler spells bool.

static int goOpenArchive(const char *path, unsigned priority, unsigned flags, HANDLE *h) {
	return SFileOpenArchive(path, priority, flags, h) ? 1 : 0;
}

static int goCloseArchive(HANDLE a) {
	return SFileCloseArchive(a) ? 1 : 0;
}

static int goFlushArchive(HANDLE a) {
	return SFileFlushArchive(a) ? 1 : 0;
}

static int goHasFile(HANDLE a, const char *name) {
	return SFileHasFile(a, name) ? 1 : 0;
}

static int goOpenFileEx(HANDLE a, const char *name, unsigned scope, HANDLE *f) {
	return SFileOpenFileEx(a, name, scope, f) ? 1 : 0;
}

static int goExtractFile(HANDLE a, const char *name, const char *dest, unsigned scope) {
	return SFileExtractFile(a, name, dest, scope) ? 1 : 0;
}

static int goOpenPatch(HANDLE a, const char *path, const char *prefix, unsigned flags) {
	return SFileOpenPatchArchive(a, path, prefix, flags) ? 1 : 0;
}

static int goIsPatched(HANDLE a) {
	return SFileIsPatchedArchive(a) ? 1 : 0;
}

static int goFileSize(HANDLE f, unsigned long long *size) {
	DWORD high = 0;
	DWORD low = SFileGetFileSize(f, &high);
	if (low == SFILE_INVALID_SIZE)
		return 0;
	*size = ((unsigned long long)high << 32) | low;
	return 1;
}

static int goSeek(HANDLE f, long long offset, unsigned method, long long *pos) {
	LONG high = (LONG)(offset >> 32);
	DWORD low = SFileSetFilePointer(f, (LONG)(offset & 0xFFFFFFFF), &high, method);
	if (low == SFILE_INVALID_POS)
		return 0;
	*pos = ((long long)high << 32) | low;
	return 1;
}

static int goReadFile(HANDLE f, void *buffer, unsigned toRead, unsigned *bytesRead) {
	DWORD n = 0;
	int ok = SFileReadFile(f, buffer, toRead, &n, NULL) ? 1 : 0;
	*bytesRead = n;
	return ok;
}

static int goCloseFile(HANDLE f) {
	return SFileCloseFile(f) ? 1 : 0;
}

static int goFileInfo(HANDLE f, SFileInfoClass infoClass, void *buffer, unsigned size, unsigned *needed) {
	DWORD n = 0;
	int ok = SFileGetFileInfo(f, infoClass, buffer, size, &n) ? 1 : 0;
	*needed = n;
	return ok;
}

static unsigned goLastError(void) {
	return (unsigned)GetLastError();
}
*/
import "C"

import (
	"encoding/binary"
	"fmt"
	"io"
	"unsafe"

	"github.com/mopaq/mpqset/storm"
)

// Available reports whether the StormLib binding was compiled in.
const Available = true

// Interface compliance.
var (
	_ storm.Codec   = Codec{}
	_ storm.Archive = (*archive)(nil)
	_ storm.File    = (*file)(nil)
)

// Codec implements storm.Codec over StormLib. The zero value is ready
// to use.
type Codec struct{}

// New returns a codec backed by the system StormLib.
func New() (storm.Codec, error) {
	return Codec{}, nil
}

// stormError converts the thread's last StormLib error code into a Go
// error.
func stormError(op, subject string) error {
	return fmt.Errorf("stormlib: %s %s: error %d", op, subject, uint32(C.goLastError()))
}

// OpenArchive implements storm.Codec.
func (Codec) OpenArchive(path string, priority int, flags storm.OpenFlags) (storm.Archive, error) {
	cpath := C.CString(path)
	defer C.free(unsafe.Pointer(cpath))
	var h C.HANDLE
	if C.goOpenArchive(cpath, C.uint(priority), C.uint(flags), &h) == 0 {
		return nil, stormError("open archive", path)
	}
	return &archive{h: h}, nil
}

type archive struct {
	h C.HANDLE
}

func (a *archive) HasFile(name string) bool {
	cname := C.CString(name)
	defer C.free(unsafe.Pointer(cname))
	return C.goHasFile(a.h, cname) != 0
}

func (a *archive) OpenFile(name string, scope storm.Scope) (storm.File, error) {
	cname := C.CString(name)
	defer C.free(unsafe.Pointer(cname))
	var h C.HANDLE
	if C.goOpenFileEx(a.h, cname, C.uint(scope), &h) == 0 {
		return nil, stormError("open file", name)
	}
	return &file{h: h, name: name}, nil
}

func (a *archive) ExtractFile(name, destPath string, scope storm.Scope) error {
	cname := C.CString(name)
	defer C.free(unsafe.Pointer(cname))
	cdest := C.CString(destPath)
	defer C.free(unsafe.Pointer(cdest))
	if C.goExtractFile(a.h, cname, cdest, C.uint(scope)) == 0 {
		return stormError("extract", name)
	}
	return nil
}

func (a *archive) OpenPatch(path, prefix string, flags storm.OpenFlags) error {
	cpath := C.CString(path)
	defer C.free(unsafe.Pointer(cpath))
	cprefix := C.CString(prefix)
	defer C.free(unsafe.Pointer(cprefix))
	if C.goOpenPatch(a.h, cpath, cprefix, C.uint(flags)) == 0 {
		return stormError("open patch", path)
	}
	return nil
}

func (a *archive) IsPatched() bool {
	return C.goIsPatched(a.h) != 0
}

func (a *archive) Flush() error {
	if C.goFlushArchive(a.h) == 0 {
		return stormError("flush", "archive")
	}
	return nil
}

func (a *archive) Close() error {
	if C.goCloseArchive(a.h) == 0 {
		return stormError("close", "archive")
	}
	return nil
}

type file struct {
	h    C.HANDLE
	name string
}

// Read implements io.Reader. StormLib reports a short read at end of
// data as ERROR_HANDLE_EOF with the partial count filled in.
func (f *file) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	var n C.uint
	ok := C.goReadFile(f.h, unsafe.Pointer(&p[0]), C.uint(len(p)), &n)
	if ok == 0 {
		if C.goLastError() == C.ERROR_HANDLE_EOF {
			if n > 0 {
				return int(n), nil
			}
			return 0, io.EOF
		}
		return int(n), stormError("read", f.name)
	}
	if n == 0 {
		return 0, io.EOF
	}
	return int(n), nil
}

func (f *file) Seek(offset int64, whence int) (int64, error) {
	var method C.uint
	switch whence {
	case io.SeekStart:
		method = C.FILE_BEGIN
	case io.SeekCurrent:
		method = C.FILE_CURRENT
	case io.SeekEnd:
		method = C.FILE_END
	default:
		return 0, fmt.Errorf("stormlib: seek %s: invalid whence %d", f.name, whence)
	}
	var pos C.longlong
	if C.goSeek(f.h, C.longlong(offset), method, &pos) == 0 {
		return 0, stormError("seek", f.name)
	}
	return int64(pos), nil
}

func (f *file) Size() (int64, error) {
	var size C.ulonglong
	if C.goFileSize(f.h, &size) == 0 {
		return 0, stormError("size", f.name)
	}
	return int64(size), nil
}

// Info queries one metadata value. StormLib writes the value into the
// buffer in native byte order and reports its width through the
// length-needed argument.
func (f *file) Info(kind storm.InfoKind) (uint64, error) {
	var class C.SFileInfoClass
	switch kind {
	case storm.InfoFileSize:
		class = C.SFileInfoFileSize
	case storm.InfoCompressedSize:
		class = C.SFileInfoCompressedSize
	case storm.InfoFileTime:
		class = C.SFileInfoFileTime
	default:
		return 0, fmt.Errorf("stormlib: unknown info kind %d", kind)
	}
	var buf [8]byte
	var needed C.uint
	if C.goFileInfo(f.h, class, unsafe.Pointer(&buf[0]), C.uint(len(buf)), &needed) == 0 {
		return 0, stormError("info", f.name)
	}
	switch needed {
	case 4:
		return uint64(binary.NativeEndian.Uint32(buf[:4])), nil
	case 8:
		return binary.NativeEndian.Uint64(buf[:]), nil
	default:
		return 0, fmt.Errorf("stormlib: info %s: unexpected %d byte value", f.name, needed)
	}
}

func (f *file) Close() error {
	if C.goCloseFile(f.h) == 0 {
		return stormError("close", f.name)
	}
	return nil
}
