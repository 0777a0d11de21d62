// Package mpqset layers an ordered collection of MPQ archives into one
// logical namespace with first-archive-wins name resolution.
//
// This package operates above the archive codec boundary defined in
// [github.com/mopaq/mpqset/storm]: it never parses archive bytes
// itself. Production callers bind a StormLib-backed codec; tests bind
// the in-memory codec from [github.com/mopaq/mpqset/storm/stormtest].
//
// A [Set] holds archives in the order they were added:
//   - Resolution walks that order and the first archive containing a
//     member supplies it; later archives cannot shadow earlier ones.
//   - Patch archives layer content changes onto every archive without
//     changing which archive resolves a name.
//
// # Quick Start
//
// Open a base archive, layer an expansion over it, and read a member:
//
//	s, err := mpqset.Open(codec, "Data/common.MPQ", storm.OpenReadOnly)
//	if err != nil {
//	    return err
//	}
//	defer s.Close()
//	if err := s.AddArchive("Data/expansion.MPQ", storm.OpenReadOnly); err != nil {
//	    return err
//	}
//	content, err := s.Read(`Interface\FrameXML\GlobalStrings.lua`)
//
// Member names accept backslash or forward slash separators; results
// use forward slashes.
//
// # Name Listing
//
// [Set.Names] merges the listing members of all archives in search
// order, rebuilt lazily after archives are added or patches applied.
// Members absent from every listing are still readable by name, or via
// [Set.OpenIndex] under the synthetic names unlisted members carry.
//
// # Standard Library Interop
//
// [NewFS] adapts a Set to fs.FS, fs.StatFS, fs.ReadFileFS, and
// fs.ReadDirFS, with directories synthesized from the name listing:
//
//	sub, err := fs.Sub(mpqset.NewFS(s), "Interface/FrameXML")
package mpqset
