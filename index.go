package mpqset

import (
	"fmt"
	"slices"

	"github.com/mopaq/mpqset/internal/mpqpath"
	"github.com/mopaq/mpqset/storm"
)

// invalidate drops the cached name listing. Every structural mutation
// of the set calls this so stale listings are never served.
func (s *Set) invalidate() {
	s.names = nil
	s.namesValid = false
}

// Names returns every member name recorded by the archives' listing
// members, in archive order. Names are logical (forward slash) and
// duplicates across archives are preserved.
//
// The listing is cached until the set changes shape. An archive without
// a listing member contributes nothing; a listing member that cannot be
// read fails the whole call.
func (s *Set) Names() ([]string, error) {
	if s.closed {
		return nil, ErrClosed
	}
	if !s.namesValid {
		if err := s.rebuildNames(); err != nil {
			return nil, err
		}
	}
	return slices.Clone(s.names), nil
}

// rebuildNames reads each archive's listing member and concatenates the
// results in archive order.
func (s *Set) rebuildNames() error {
	names := make([]string, 0, len(s.names))
	for i := range s.archives {
		a := &s.archives[i]
		if !a.ar.HasFile(storm.ListfileName) {
			s.log().Debug("archive has no listing", "path", a.path)
			continue
		}
		data, err := s.readListing(a)
		if err != nil {
			return err
		}
		names = append(names, mpqpath.SplitList(data)...)
	}
	s.names = names
	s.namesValid = true
	s.log().Debug("name listing rebuilt", "names", len(names), "archives", len(s.archives))
	return nil
}

// readListing reads one archive's listing member, enforcing the
// configured size cap.
func (s *Set) readListing(a *setArchive) ([]byte, error) {
	mf, err := a.ar.OpenFile(storm.ListfileName, storm.ScopeBase)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", a.path, err)
	}
	f := &File{f: mf, name: storm.ListfileName}
	defer f.Close()

	if s.maxListSize != 0 {
		size, err := f.Size()
		if err != nil {
			return nil, fmt.Errorf("listing %s: %w", a.path, err)
		}
		if uint64(size) > s.maxListSize {
			return nil, fmt.Errorf("listing %s: %d bytes exceeds limit %d", a.path, size, s.maxListSize)
		}
	}

	data, err := f.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", a.path, err)
	}
	return data, nil
}

// Infos returns one metadata view per listed member, in listing order.
// Each view costs one base-scope open of the named member, so a call
// performs as many opens as there are listed names.
func (s *Set) Infos() ([]*Info, error) {
	names, err := s.Names()
	if err != nil {
		return nil, err
	}
	infos := make([]*Info, 0, len(names))
	for _, name := range names {
		info, err := s.Info(name)
		if err != nil {
			return nil, err
		}
		infos = append(infos, info)
	}
	return infos, nil
}
