package mpqset

import (
	"fmt"
	"io"
)

// Stats aggregates totals over every listed member of a set.
type Stats struct {
	// FileCount is the number of listed members.
	FileCount int

	// TotalSize is the sum of uncompressed member sizes in bytes.
	TotalSize int64

	// CompressSize is the sum of stored member sizes in bytes.
	CompressSize int64
}

// Ratio returns stored size over uncompressed size. An empty set
// reports 1.0.
func (st Stats) Ratio() float64 {
	if st.TotalSize == 0 {
		return 1.0
	}
	return float64(st.CompressSize) / float64(st.TotalSize)
}

// PrintDir writes a table of the set's listed members to w: one row
// per listing entry with name, uncompressed size, and stored size.
func (s *Set) PrintDir(w io.Writer) error {
	infos, err := s.Infos()
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "%-85s %12s %12s\n", "File Name", "Size", "Packed Size"); err != nil {
		return err
	}
	for _, info := range infos {
		if _, err := fmt.Fprintf(w, "%-85s %12d %12d\n", info.Filename(), info.FileSize(), info.CompressSize()); err != nil {
			return err
		}
	}
	return nil
}

// Stats computes aggregate totals across every listed member. Like
// Infos, a call costs one open per listed name.
func (s *Set) Stats() (Stats, error) {
	infos, err := s.Infos()
	if err != nil {
		return Stats{}, err
	}
	var st Stats
	for _, info := range infos {
		st.FileCount++
		st.TotalSize += info.FileSize()
		st.CompressSize += info.CompressSize()
	}
	return st, nil
}
