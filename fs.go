package mpqset

import (
	"errors"
	"io"
	"io/fs"
	"slices"
	"strings"
	"time"

	"github.com/mopaq/mpqset/internal/mpqpath"
	"github.com/mopaq/mpqset/storm"
)

// Interface compliance.
var (
	_ fs.FS          = (*FS)(nil)
	_ fs.StatFS      = (*FS)(nil)
	_ fs.ReadFileFS  = (*FS)(nil)
	_ fs.ReadDirFS   = (*FS)(nil)
	_ fs.File        = (*fsFile)(nil)
	_ io.Seeker      = (*fsFile)(nil)
	_ fs.ReadDirFile = (*fsDir)(nil)
)

// filetimeEpochDiff is the number of 100ns ticks between the Windows
// FILETIME epoch (1601-01-01) and the Unix epoch (1970-01-01).
const filetimeEpochDiff = 116444736000000000

// FS adapts a Set to the standard library fs.FS interfaces.
//
// Names are logical, slash separated, and never start with a slash.
// Directories are synthesized from the name listing since archives do
// not store them. Members missing from the listing still open by name
// but do not appear in directory reads.
//
// FS implements fs.FS, fs.StatFS, fs.ReadFileFS, and fs.ReadDirFS.
type FS struct {
	set *Set
}

// NewFS returns a filesystem view of the set. The view shares the set's
// state: adding archives or applying patches through the set is visible
// to subsequent filesystem calls, and closing the set invalidates the view.
func NewFS(s *Set) *FS {
	return &FS{set: s}
}

// Open returns an fs.File reading the base view of the named member.
func (fsys *FS) Open(name string) (fs.File, error) {
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrInvalid}
	}

	if fsys.set.Contains(name) {
		f, err := fsys.set.Open(name, storm.ScopeBase)
		if err != nil {
			return nil, &fs.PathError{Op: "open", Path: name, Err: err}
		}
		info, err := NewInfo(f)
		if err != nil {
			f.Close()
			return nil, &fs.PathError{Op: "open", Path: name, Err: err}
		}
		return &fsFile{f: f, info: info}, nil
	}

	// The directory check consults the name listing, so a closed set
	// surfaces ErrClosed here rather than reporting a missing file.
	isDir, err := fsys.isDir(name)
	if err != nil {
		return nil, &fs.PathError{Op: "open", Path: name, Err: err}
	}
	if isDir {
		return &fsDir{fsys: fsys, name: name}, nil
	}

	return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrNotExist}
}

// Stat returns file info for the named member without reading its
// content. Paths that are prefixes of listed members stat as synthetic
// directories.
func (fsys *FS) Stat(name string) (fs.FileInfo, error) {
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: "stat", Path: name, Err: fs.ErrInvalid}
	}

	if fsys.set.Contains(name) {
		info, err := fsys.set.Info(name)
		if err != nil {
			return nil, &fs.PathError{Op: "stat", Path: name, Err: err}
		}
		return &fileInfo{info: info}, nil
	}

	isDir, err := fsys.isDir(name)
	if err != nil {
		return nil, &fs.PathError{Op: "stat", Path: name, Err: err}
	}
	if isDir {
		dirName := name
		if dirName != "." {
			dirName = mpqpath.Base(name)
		}
		return &dirInfo{name: dirName}, nil
	}

	return nil, &fs.PathError{Op: "stat", Path: name, Err: fs.ErrNotExist}
}

// ReadFile returns the entire base content of the named member.
func (fsys *FS) ReadFile(name string) ([]byte, error) {
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: "readfile", Path: name, Err: fs.ErrInvalid}
	}
	data, err := fsys.set.Read(name)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			err = fs.ErrNotExist
		}
		return nil, &fs.PathError{Op: "readfile", Path: name, Err: err}
	}
	return data, nil
}

// ReadDir returns the entries directly under the named directory,
// sorted by name. Entries are synthesized from the name listing.
func (fsys *FS) ReadDir(name string) ([]fs.DirEntry, error) {
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: "readdir", Path: name, Err: fs.ErrInvalid}
	}
	entries, err := fsys.dirEntries(name)
	if err != nil {
		return nil, &fs.PathError{Op: "readdir", Path: name, Err: err}
	}
	if len(entries) == 0 && name != "." {
		return nil, &fs.PathError{Op: "readdir", Path: name, Err: fs.ErrNotExist}
	}
	return entries, nil
}

// isDir reports whether name has listed members beneath it. The root
// "." is always a directory.
func (fsys *FS) isDir(name string) (bool, error) {
	if fsys.set.closed {
		return false, ErrClosed
	}
	if name == "." {
		return true, nil
	}
	names, err := fsys.set.Names()
	if err != nil {
		return false, err
	}
	prefix := name + "/"
	for _, n := range names {
		if strings.HasPrefix(n, prefix) {
			return true, nil
		}
	}
	return false, nil
}

// dirEntries synthesizes the sorted entries directly under name. The
// listing preserves archive order and duplicates, so children are
// deduplicated and sorted here.
func (fsys *FS) dirEntries(name string) ([]fs.DirEntry, error) {
	names, err := fsys.set.Names()
	if err != nil {
		return nil, err
	}

	prefix := mpqpath.DirPrefix(name)
	seen := make(map[string]bool)
	entries := make([]fs.DirEntry, 0)
	for _, n := range names {
		if !strings.HasPrefix(n, prefix) {
			continue
		}
		child, isSubDir := mpqpath.Child(n, prefix)
		if child == "" || seen[child] {
			continue
		}
		seen[child] = true

		if isSubDir {
			entries = append(entries, &dirEntry{info: &dirInfo{name: child}})
			continue
		}
		info, err := fsys.set.Info(n)
		if err != nil {
			// Keep the entry listed; the error resurfaces from Info.
			entries = append(entries, &dirEntry{info: &fileInfo{info: &Info{filename: n}}, infoErr: err})
			continue
		}
		entries = append(entries, &dirEntry{info: &fileInfo{info: info}})
	}

	slices.SortFunc(entries, func(a, b fs.DirEntry) int {
		return strings.Compare(a.Name(), b.Name())
	})
	return entries, nil
}

// fsFile adapts a File and its metadata snapshot to fs.File.
type fsFile struct {
	f    *File
	info *Info
}

func (f *fsFile) Stat() (fs.FileInfo, error) {
	return &fileInfo{info: f.info}, nil
}

func (f *fsFile) Read(p []byte) (int, error) {
	return f.f.Read(p)
}

func (f *fsFile) Seek(offset int64, whence int) (int64, error) {
	return f.f.Seek(offset, whence)
}

func (f *fsFile) Close() error {
	return f.f.Close()
}

// fsDir implements fs.ReadDirFile for synthesized directories.
type fsDir struct {
	fsys    *FS
	name    string
	entries []fs.DirEntry
	offset  int
	loaded  bool
}

func (d *fsDir) Read(_ []byte) (int, error) {
	return 0, &fs.PathError{Op: "read", Path: d.name, Err: fs.ErrInvalid}
}

func (d *fsDir) Stat() (fs.FileInfo, error) {
	name := d.name
	if name != "." {
		name = mpqpath.Base(d.name)
	}
	return &dirInfo{name: name}, nil
}

func (d *fsDir) Close() error {
	return nil
}

func (d *fsDir) ReadDir(n int) ([]fs.DirEntry, error) {
	if !d.loaded {
		entries, err := d.fsys.dirEntries(d.name)
		if err != nil {
			return nil, &fs.PathError{Op: "readdir", Path: d.name, Err: err}
		}
		d.entries = entries
		d.loaded = true
	}

	remaining := d.entries[d.offset:]
	if n <= 0 {
		d.offset = len(d.entries)
		return remaining, nil
	}
	if len(remaining) == 0 {
		return nil, io.EOF
	}
	if n > len(remaining) {
		n = len(remaining)
	}
	d.offset += n
	return remaining[:n], nil
}

// fileInfo implements fs.FileInfo over a metadata snapshot.
type fileInfo struct {
	info *Info
}

func (fi *fileInfo) Name() string       { return fi.info.Basename() }
func (fi *fileInfo) Size() int64        { return fi.info.FileSize() }
func (fi *fileInfo) Mode() fs.FileMode  { return 0o444 }
func (fi *fileInfo) ModTime() time.Time { return filetimeToTime(fi.info.FileTime()) }
func (fi *fileInfo) IsDir() bool        { return false }

// Sys returns the underlying *Info snapshot.
func (fi *fileInfo) Sys() any { return fi.info }

// dirInfo implements fs.FileInfo for synthesized directories.
type dirInfo struct {
	name string
}

func (di *dirInfo) Name() string       { return di.name }
func (di *dirInfo) Size() int64        { return 0 }
func (di *dirInfo) Mode() fs.FileMode  { return fs.ModeDir | 0o555 }
func (di *dirInfo) ModTime() time.Time { return time.Time{} }
func (di *dirInfo) IsDir() bool        { return true }
func (di *dirInfo) Sys() any           { return nil }

// dirEntry implements fs.DirEntry by wrapping fs.FileInfo.
type dirEntry struct {
	info    fs.FileInfo
	infoErr error
}

func (de *dirEntry) Name() string               { return de.info.Name() }
func (de *dirEntry) IsDir() bool                { return de.info.IsDir() }
func (de *dirEntry) Type() fs.FileMode          { return de.info.Mode().Type() }
func (de *dirEntry) Info() (fs.FileInfo, error) { return de.info, de.infoErr }

// filetimeToTime converts a Windows FILETIME value, 100ns ticks since
// 1601-01-01, to a Time in UTC. The zero value converts to the zero Time.
func filetimeToTime(ft uint64) time.Time {
	if ft == 0 {
		return time.Time{}
	}
	return time.Unix(0, (int64(ft)-filetimeEpochDiff)*100).UTC()
}
