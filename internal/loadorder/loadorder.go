// Package loadorder loads archive set manifests.
//
// A manifest is a YAML file naming the archives of a set in search
// order, plus the patches to apply once all of them are open:
//
//	archives:
//	  - path: Data/common.MPQ
//	  - path: Data/expansion.MPQ
//	    flags: [no-attributes]
//	patches:
//	  - path: Data/wow-update-13164.MPQ
//	    prefix: base
//	read_only: true
//
// The file is the single source of truth for load order; nothing is
// discovered or reordered at load time.
package loadorder

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/mopaq/mpqset"
	"github.com/mopaq/mpqset/storm"
)

// Manifest describes the archives of a set in search order.
type Manifest struct {
	// Archives are opened in order; earlier entries shadow later ones.
	Archives []ArchiveRef `yaml:"archives"`

	// Patches are applied to every archive after all are open.
	Patches []PatchRef `yaml:"patches,omitempty"`

	// ReadOnly opens every archive read only, in addition to any
	// per-archive flags.
	ReadOnly bool `yaml:"read_only,omitempty"`
}

// ArchiveRef names one archive of the set.
type ArchiveRef struct {
	Path string `yaml:"path"`

	// Flags holds open flag names: "read-only", "no-listfile",
	// "no-attributes".
	Flags []string `yaml:"flags,omitempty"`
}

// PatchRef names one patch archive and the prefix of its patch root.
type PatchRef struct {
	Path   string `yaml:"path"`
	Prefix string `yaml:"prefix,omitempty"`
}

// Load reads and validates a manifest file.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	m, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("load manifest %s: %w", path, err)
	}
	return m, nil
}

// Parse decodes and validates manifest bytes.
func Parse(data []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Validate checks that the manifest names at least one archive, every
// entry has a path, and all flag names are known.
func (m *Manifest) Validate() error {
	if len(m.Archives) == 0 {
		return errors.New("loadorder: manifest names no archives")
	}
	for i, ref := range m.Archives {
		if ref.Path == "" {
			return fmt.Errorf("loadorder: archive %d has no path", i)
		}
		if _, err := ref.OpenFlags(false); err != nil {
			return err
		}
	}
	for i, ref := range m.Patches {
		if ref.Path == "" {
			return fmt.Errorf("loadorder: patch %d has no path", i)
		}
	}
	return nil
}

// OpenFlags resolves the archive's flag names, combined with the
// manifest-wide read-only setting.
func (ref *ArchiveRef) OpenFlags(readOnly bool) (storm.OpenFlags, error) {
	flags := storm.OpenDefault
	if readOnly {
		flags |= storm.OpenReadOnly
	}
	for _, name := range ref.Flags {
		switch name {
		case "read-only":
			flags |= storm.OpenReadOnly
		case "no-listfile":
			flags |= storm.OpenNoListfile
		case "no-attributes":
			flags |= storm.OpenNoAttributes
		default:
			return 0, fmt.Errorf("loadorder: unknown archive flag %q", name)
		}
	}
	return flags, nil
}

// Open opens every archive in the manifest in order and applies its
// patches. On failure the partially built set is closed before the
// error is returned.
func Open(codec storm.Codec, m *Manifest, opts ...mpqset.Option) (*mpqset.Set, error) {
	s := mpqset.New(codec, opts...)
	for _, ref := range m.Archives {
		flags, err := ref.OpenFlags(m.ReadOnly)
		if err != nil {
			s.Close()
			return nil, err
		}
		if err := s.AddArchive(ref.Path, flags); err != nil {
			s.Close()
			return nil, err
		}
	}
	patchFlags := storm.OpenDefault
	if m.ReadOnly {
		patchFlags |= storm.OpenReadOnly
	}
	for _, ref := range m.Patches {
		if err := s.Patch(ref.Path, ref.Prefix, patchFlags); err != nil {
			s.Close()
			return nil, err
		}
	}
	return s, nil
}
