package mpqset

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/mopaq/mpqset/internal/mpqpath"
	"github.com/mopaq/mpqset/storm"
)

// Interface compliance.
var _ io.Closer = (*Set)(nil)

// Set presents an ordered collection of open archives as one logical
// namespace.
//
// Archives are searched in the order they were added: the first archive
// whose namespace contains a member supplies it, and archives added
// later cannot shadow it. Patch archives layer content changes on top
// of that order without changing which archive resolves a name.
//
// A Set is not safe for concurrent use. Callers that share a Set across
// goroutines must provide their own synchronization; the usual
// alternative is one Set per goroutine over the same archive paths.
type Set struct {
	codec       storm.Codec
	archives    []setArchive
	names       []string
	namesValid  bool
	maxListSize uint64
	closed      bool
	logger      *slog.Logger
}

// setArchive pairs an open archive handle with the path it was opened from.
type setArchive struct {
	path string
	ar   storm.Archive
}

// New returns an empty Set that opens archives through codec.
func New(codec storm.Codec, opts ...Option) *Set {
	s := &Set{
		codec:       codec,
		maxListSize: DefaultMaxListSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Open returns a Set with the archive at path opened as its first, and
// therefore highest priority, archive.
func Open(codec storm.Codec, path string, flags storm.OpenFlags, opts ...Option) (*Set, error) {
	s := New(codec, opts...)
	if err := s.AddArchive(path, flags); err != nil {
		return nil, err
	}
	return s, nil
}

// log returns the logger, falling back to a discard logger if nil.
func (s *Set) log() *slog.Logger {
	if s.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return s.logger
}

// AddArchive opens the archive at path and appends it to the search
// order, below every archive already in the set. Adding an archive
// invalidates the cached name listing.
func (s *Set) AddArchive(path string, flags storm.OpenFlags) error {
	if s.closed {
		return ErrClosed
	}
	ar, err := s.codec.OpenArchive(path, len(s.archives), flags)
	if err != nil {
		return fmt.Errorf("add archive %s: %w", path, err)
	}
	s.archives = append(s.archives, setArchive{path: path, ar: ar})
	s.invalidate()
	s.log().Debug("archive added", "path", path, "priority", len(s.archives)-1)
	return nil
}

// Len returns the number of archives in the set.
func (s *Set) Len() int {
	return len(s.archives)
}

// resolve returns the first archive whose namespace contains name.
func (s *Set) resolve(name string) (*setArchive, error) {
	if s.closed {
		return nil, ErrClosed
	}
	native := mpqpath.Native(name)
	for i := range s.archives {
		if s.archives[i].ar.HasFile(native) {
			return &s.archives[i], nil
		}
	}
	return nil, fmt.Errorf("%s: %w", name, ErrNotFound)
}

// Contains reports whether any archive in the set has the named member.
// Contains returns false on a closed set.
func (s *Set) Contains(name string) bool {
	_, err := s.resolve(name)
	return err == nil
}

// Source returns the path of the archive that currently resolves name.
func (s *Set) Source(name string) (string, bool) {
	a, err := s.resolve(name)
	if err != nil {
		return "", false
	}
	return a.path, true
}

// Open opens the named member for reading.
//
// Resolution always uses base membership: the first archive whose own
// namespace contains name supplies it. The scope then selects whether
// the returned handle reads the base or the patched content of that
// member. A member only introduced by a patch does not resolve.
func (s *Set) Open(name string, scope storm.Scope) (*File, error) {
	a, err := s.resolve(name)
	if err != nil {
		return nil, err
	}
	f, err := a.ar.OpenFile(mpqpath.Native(name), scope)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	s.log().Debug("member opened", "name", name, "scope", scope, "archive", a.path)
	return &File{f: f, name: mpqpath.Logical(name), scope: scope}, nil
}

// OpenIndex opens the member at the given index position using the
// synthetic name assigned to members of archives without a listing.
func (s *Set) OpenIndex(index int, scope storm.Scope) (*File, error) {
	if index < 0 {
		return nil, fmt.Errorf("mpqset: negative file index %d", index)
	}
	return s.Open(mpqpath.Synthetic(index), scope)
}

// Read returns the full content of the named member's base view.
func (s *Set) Read(name string) ([]byte, error) {
	f, err := s.Open(name, storm.ScopeBase)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return f.ReadAll()
}

// ReadInfo reads the member identified by a metadata view.
func (s *Set) ReadInfo(info *Info) ([]byte, error) {
	return s.Read(info.Filename())
}

// Extract copies the named member to destPath through the codec. The
// destination's parent directory must exist.
func (s *Set) Extract(name, destPath string, scope storm.Scope) error {
	a, err := s.resolve(name)
	if err != nil {
		return err
	}
	if err := a.ar.ExtractFile(mpqpath.Native(name), destPath, scope); err != nil {
		return fmt.Errorf("extract %s: %w", name, err)
	}
	return nil
}

// Patch applies the patch archive at path to every archive in the set.
// The prefix names the patch root inside the patch archive (for example
// "base" or "enUS"). A failure part way leaves the earlier archives
// patched. Applying a patch invalidates the cached name listing.
func (s *Set) Patch(path, prefix string, flags storm.OpenFlags) error {
	if s.closed {
		return ErrClosed
	}
	for i := range s.archives {
		if err := s.archives[i].ar.OpenPatch(path, prefix, flags); err != nil {
			return fmt.Errorf("patch %s: %w", path, err)
		}
	}
	s.invalidate()
	s.log().Debug("patch applied", "path", path, "prefix", prefix)
	return nil
}

// IsPatched reports whether any archive in the set has a patch applied.
// IsPatched returns false on a closed set.
func (s *Set) IsPatched() bool {
	if s.closed {
		return false
	}
	for i := range s.archives {
		if s.archives[i].ar.IsPatched() {
			return true
		}
	}
	return false
}

// Flush asks every archive in the set to persist pending state.
func (s *Set) Flush() error {
	if s.closed {
		return ErrClosed
	}
	for i := range s.archives {
		if err := s.archives[i].ar.Flush(); err != nil {
			return fmt.Errorf("flush %s: %w", s.archives[i].path, err)
		}
	}
	return nil
}

// Close closes every archive in the set in order and reports the first
// failure. Close is idempotent; any other operation on a closed set
// fails with ErrClosed.
//
// Files opened from the set are not tracked: callers close them
// independently, and handles still open when the set closes become
// invalid at the codec's discretion.
func (s *Set) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	var firstErr error
	for i := range s.archives {
		if err := s.archives[i].ar.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("close %s: %w", s.archives[i].path, err)
		}
	}
	s.archives = nil
	s.names = nil
	s.namesValid = false
	return firstErr
}
