// Package stormtest provides an in-memory archive codec for tests.
//
// A Codec holds declarative Archive definitions keyed by path. Code
// under test opens them through the storm.Codec interface exactly as
// it would open real archives, and tests then assert on the recorded
// activity: per-member open counts, live stream counts, patch layers,
// and lifecycle calls.
//
//	codec := stormtest.NewCodec()
//	codec.Add("base.MPQ", stormtest.NewArchive().
//		SetFile(`Units\unit.txt`, []byte("footman")))
//
// Member lookups are case-insensitive and accept both separator
// styles, matching real archive behavior.
package stormtest

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/mopaq/mpqset/storm"
)

// Interface compliance.
var (
	_ storm.Codec   = (*Codec)(nil)
	_ storm.Archive = (*OpenedArchive)(nil)
	_ storm.File    = (*memberFile)(nil)
)

// errFileClosed is returned by any operation on a closed file handle,
// including a second Close.
var errFileClosed = errors.New("stormtest: file closed")

// normalizeName returns the canonical lookup key for a member name:
// uppercase with backslash separators.
func normalizeName(name string) string {
	return strings.ToUpper(strings.ReplaceAll(name, "/", "\\"))
}

// filetimeEpochDiff is the number of 100ns ticks between the Windows
// FILETIME epoch (1601-01-01) and the Unix epoch (1970-01-01).
const filetimeEpochDiff = 116444736000000000

// Filetime converts a Time to a Windows FILETIME value. The zero Time
// converts to zero.
func Filetime(t time.Time) uint64 {
	if t.IsZero() {
		return 0
	}
	return uint64(t.UnixNano()/100 + filetimeEpochDiff)
}

// member is one stored file inside an archive definition.
type member struct {
	name    string // native separators, original case
	data    []byte // stored form
	size    int    // original byte length
	comp    Compression
	time    uint64 // FILETIME
	openErr error
}

// Archive is a declarative archive definition. Build it with the
// chainable Set methods, register it under a path with Codec.Add, and
// open it through the codec under test. Definitions must be fully
// built before the first open; opened archives snapshot the member
// table.
type Archive struct {
	members    map[string]*member
	order      []string
	noListfile bool
	failFlush  error
	failClose  error
	failPatch  error
}

// NewArchive returns an empty archive definition.
func NewArchive() *Archive {
	return &Archive{members: make(map[string]*member)}
}

// SetFile adds or replaces a member stored uncompressed.
func (a *Archive) SetFile(name string, data []byte) *Archive {
	return a.put(name, data, CompressionNone)
}

// SetCompressed adds or replaces a member whose stored form is
// compressed with c. Incompressible content is stored raw.
func (a *Archive) SetCompressed(name string, data []byte, c Compression) *Archive {
	return a.put(name, data, c)
}

func (a *Archive) put(name string, data []byte, c Compression) *Archive {
	stored, actual := compress(c, data)
	key := normalizeName(name)
	m, ok := a.members[key]
	if !ok {
		m = &member{}
		a.members[key] = m
		a.order = append(a.order, key)
	}
	m.name = strings.ReplaceAll(name, "/", "\\")
	m.data = stored
	m.size = len(data)
	m.comp = actual
	return a
}

// SetFileTime records a modification time for an existing member.
// SetFileTime panics if the member was never set.
func (a *Archive) SetFileTime(name string, t time.Time) *Archive {
	m, ok := a.members[normalizeName(name)]
	if !ok {
		panic(fmt.Sprintf("stormtest: SetFileTime on missing member %q", name))
	}
	m.time = Filetime(t)
	return a
}

// FailFile adds or marks a member whose OpenFile always fails with
// err. The member still reports present through HasFile.
func (a *Archive) FailFile(name string, err error) *Archive {
	key := normalizeName(name)
	m, ok := a.members[key]
	if !ok {
		m = &member{name: strings.ReplaceAll(name, "/", "\\")}
		a.members[key] = m
		a.order = append(a.order, key)
	}
	m.openErr = err
	return a
}

// DisableListfile omits the generated listing member. An explicit
// SetFile of the listing name also suppresses generation.
func (a *Archive) DisableListfile() *Archive {
	a.noListfile = true
	return a
}

// FailFlush makes Flush on archives opened from this definition
// return err.
func (a *Archive) FailFlush(err error) *Archive {
	a.failFlush = err
	return a
}

// FailClose makes Close on archives opened from this definition
// return err.
func (a *Archive) FailClose(err error) *Archive {
	a.failClose = err
	return a
}

// FailPatch makes OpenPatch on archives opened from this definition
// return err, no matter which patch is applied.
func (a *Archive) FailPatch(err error) *Archive {
	a.failPatch = err
	return a
}

// Codec is an in-memory storm.Codec.
//
// Every successful OpenArchive call materializes a fresh
// OpenedArchive from the registered definition, so worker pools that
// open the same paths concurrently do not share handle state. The
// codec remembers the most recent open per path for inspection.
type Codec struct {
	mu      sync.Mutex
	defs    map[string]*Archive
	openErr map[string]error
	opened  map[string]*OpenedArchive
	opens   int
}

// NewCodec returns a codec with no registered archives.
func NewCodec() *Codec {
	return &Codec{
		defs:    make(map[string]*Archive),
		openErr: make(map[string]error),
		opened:  make(map[string]*OpenedArchive),
	}
}

// Add registers an archive definition under path.
func (c *Codec) Add(path string, def *Archive) *Codec {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.defs[path] = def
	return c
}

// FailOpen makes opening the archive at path fail with err, both as a
// set member and as a patch.
func (c *Codec) FailOpen(path string, err error) *Codec {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.openErr[path] = err
	return c
}

// OpenArchive implements storm.Codec.
func (c *Codec) OpenArchive(path string, priority int, flags storm.OpenFlags) (storm.Archive, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.openErr[path]; err != nil {
		return nil, err
	}
	def, ok := c.defs[path]
	if !ok {
		return nil, fmt.Errorf("stormtest: no archive registered at %s", path)
	}
	a := newOpened(c, def, path, priority, flags)
	c.opened[path] = a
	c.opens++
	return a, nil
}

// Opened returns the most recently opened archive for path, or nil if
// the path was never opened.
func (c *Codec) Opened(path string) *OpenedArchive {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.opened[path]
}

// Opens returns the total number of successful OpenArchive calls.
func (c *Codec) Opens() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.opens
}

// patchLayer is one patch archive applied to an opened archive.
type patchLayer struct {
	def    *Archive
	path   string
	prefix string
}

// OpenedArchive is a live archive handle produced by the codec. It
// implements storm.Archive and records member and lifecycle activity
// for assertions. Like a real handle it is not safe for concurrent
// use.
type OpenedArchive struct {
	codec    *Codec
	def      *Archive
	path     string
	priority int
	flags    storm.OpenFlags
	members  map[string]*member
	patches  []patchLayer
	opens    map[string]int
	streams  int
	flushes  int
	closed   bool
}

// newOpened snapshots a definition into a live handle. The listing
// member is generated from insertion order unless suppressed by the
// definition or the open flags; every member appears in it, special
// names included.
func newOpened(c *Codec, def *Archive, path string, priority int, flags storm.OpenFlags) *OpenedArchive {
	a := &OpenedArchive{
		codec:    c,
		def:      def,
		path:     path,
		priority: priority,
		flags:    flags,
		members:  make(map[string]*member, len(def.members)+1),
		opens:    make(map[string]int),
	}
	for key, m := range def.members {
		a.members[key] = m
	}
	if flags&storm.OpenNoAttributes != 0 {
		delete(a.members, normalizeName(storm.AttributesName))
	}
	listKey := normalizeName(storm.ListfileName)
	if _, ok := a.members[listKey]; !ok && !def.noListfile && flags&storm.OpenNoListfile == 0 {
		var b strings.Builder
		for _, key := range def.order {
			b.WriteString(def.members[key].name)
			b.WriteString("\r\n")
		}
		data := []byte(b.String())
		a.members[listKey] = &member{name: storm.ListfileName, data: data, size: len(data)}
	}
	return a
}

// HasFile reports base membership. Patch layers never extend it.
func (a *OpenedArchive) HasFile(name string) bool {
	if a.closed {
		return false
	}
	_, ok := a.members[normalizeName(name)]
	return ok
}

// lookup finds the member supplying name under scope. The patched
// scope searches patch layers newest first and falls back to the base
// member when no layer covers the name.
func (a *OpenedArchive) lookup(name string, scope storm.Scope) (*member, error) {
	key := normalizeName(name)
	base, ok := a.members[key]
	if !ok {
		return nil, fmt.Errorf("stormtest: %s: no member %s", a.path, name)
	}
	if scope == storm.ScopePatched {
		for i := len(a.patches) - 1; i >= 0; i-- {
			p := a.patches[i]
			patchKey := key
			if p.prefix != "" {
				patchKey = normalizeName(p.prefix) + "\\" + key
			}
			if m, ok := p.def.members[patchKey]; ok {
				return m, nil
			}
		}
	}
	return base, nil
}

// OpenFile implements storm.Archive.
func (a *OpenedArchive) OpenFile(name string, scope storm.Scope) (storm.File, error) {
	if a.closed {
		return nil, fmt.Errorf("stormtest: %s: archive closed", a.path)
	}
	m, err := a.lookup(name, scope)
	if err != nil {
		return nil, err
	}
	if m.openErr != nil {
		return nil, m.openErr
	}
	data, err := decompress(m.comp, m.data, m.size)
	if err != nil {
		return nil, err
	}
	a.opens[normalizeName(name)]++
	a.streams++
	return &memberFile{r: bytes.NewReader(data), m: m, ar: a}, nil
}

// ExtractFile implements storm.Archive. The destination's parent
// directory must exist.
func (a *OpenedArchive) ExtractFile(name, destPath string, scope storm.Scope) error {
	f, err := a.OpenFile(name, scope)
	if err != nil {
		return err
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return err
	}
	return os.WriteFile(destPath, data, 0o644)
}

// OpenPatch implements storm.Archive. The patch definition must be
// registered with the codec under path, the same way base archives
// are.
func (a *OpenedArchive) OpenPatch(path, prefix string, flags storm.OpenFlags) error {
	if a.closed {
		return fmt.Errorf("stormtest: %s: archive closed", a.path)
	}
	if a.def.failPatch != nil {
		return a.def.failPatch
	}
	a.codec.mu.Lock()
	def, ok := a.codec.defs[path]
	err := a.codec.openErr[path]
	a.codec.mu.Unlock()
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("stormtest: no archive registered at %s", path)
	}
	a.patches = append(a.patches, patchLayer{
		def:    def,
		path:   path,
		prefix: strings.ReplaceAll(prefix, "/", "\\"),
	})
	return nil
}

// IsPatched implements storm.Archive.
func (a *OpenedArchive) IsPatched() bool {
	return !a.closed && len(a.patches) > 0
}

// Flush implements storm.Archive.
func (a *OpenedArchive) Flush() error {
	if a.closed {
		return fmt.Errorf("stormtest: %s: archive closed", a.path)
	}
	a.flushes++
	return a.def.failFlush
}

// Close implements storm.Archive. A second Close is an error.
func (a *OpenedArchive) Close() error {
	if a.closed {
		return fmt.Errorf("stormtest: %s: archive already closed", a.path)
	}
	a.closed = true
	return a.def.failClose
}

// Path returns the path the archive was opened from.
func (a *OpenedArchive) Path() string { return a.path }

// Priority returns the priority passed to OpenArchive.
func (a *OpenedArchive) Priority() int { return a.priority }

// Flags returns the flags passed to OpenArchive.
func (a *OpenedArchive) Flags() storm.OpenFlags { return a.flags }

// OpenCount returns how many file handles were opened for name.
func (a *OpenedArchive) OpenCount(name string) int { return a.opens[normalizeName(name)] }

// OpenStreams returns the number of file handles not yet closed.
func (a *OpenedArchive) OpenStreams() int { return a.streams }

// Flushes returns how many times Flush was called.
func (a *OpenedArchive) Flushes() int { return a.flushes }

// PatchCount returns the number of patch layers applied.
func (a *OpenedArchive) PatchCount() int { return len(a.patches) }

// Closed reports whether Close was called.
func (a *OpenedArchive) Closed() bool { return a.closed }

// memberFile is an open read stream over a member's decompressed
// content.
type memberFile struct {
	r      *bytes.Reader
	m      *member
	ar     *OpenedArchive
	closed bool
}

func (f *memberFile) Read(p []byte) (int, error) {
	if f.closed {
		return 0, errFileClosed
	}
	return f.r.Read(p)
}

func (f *memberFile) Seek(offset int64, whence int) (int64, error) {
	if f.closed {
		return 0, errFileClosed
	}
	return f.r.Seek(offset, whence)
}

func (f *memberFile) Size() (int64, error) {
	if f.closed {
		return 0, errFileClosed
	}
	return int64(f.m.size), nil
}

func (f *memberFile) Info(kind storm.InfoKind) (uint64, error) {
	if f.closed {
		return 0, errFileClosed
	}
	switch kind {
	case storm.InfoFileSize:
		return uint64(f.m.size), nil
	case storm.InfoCompressedSize:
		return uint64(len(f.m.data)), nil
	case storm.InfoFileTime:
		return f.m.time, nil
	default:
		return 0, fmt.Errorf("stormtest: unknown info kind %d", kind)
	}
}

func (f *memberFile) Close() error {
	if f.closed {
		return errFileClosed
	}
	f.closed = true
	f.ar.streams--
	return nil
}
