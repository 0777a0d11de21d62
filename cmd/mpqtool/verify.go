package main

import (
	"fmt"
	"sync/atomic"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/mopaq/mpqset"
	"github.com/mopaq/mpqset/internal/loadorder"
	"github.com/mopaq/mpqset/storm/stormlib"
)

var verifyJobs int

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Read every listed member end to end",
	Long: `verify opens and fully reads every member in the listing, reporting
members that fail to open or read. It checks readability only; the
archive format's own sector checksums are applied by the codec while
reading.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := buildManifest()
		if err != nil {
			return err
		}
		codec, err := stormlib.New()
		if err != nil {
			return err
		}
		logger := newLogger()

		s, err := loadorder.Open(codec, m, mpqset.WithLogger(logger))
		if err != nil {
			return err
		}
		names, err := s.Names()
		s.Close()
		if err != nil {
			return err
		}

		var failed atomic.Int64
		var eg errgroup.Group
		for _, run := range chunkNames(names, verifyJobs) {
			eg.Go(func() error {
				s, err := loadorder.Open(codec, m, mpqset.WithLogger(logger))
				if err != nil {
					return err
				}
				defer s.Close()
				for _, name := range run {
					f, err := s.Open(name, scope())
					if err != nil {
						failed.Add(1)
						fmt.Printf("FAIL %s: %v\n", name, err)
						continue
					}
					if _, err := f.ReadAll(); err != nil {
						failed.Add(1)
						fmt.Printf("FAIL %s: %v\n", name, err)
					}
					f.Close()
				}
				return nil
			})
		}
		if err := eg.Wait(); err != nil {
			return err
		}
		if n := failed.Load(); n > 0 {
			return fmt.Errorf("%d of %d members failed", n, len(names))
		}
		fmt.Printf("verified %d members\n", len(names))
		return nil
	},
}

func init() {
	verifyCmd.Flags().IntVarP(&verifyJobs, "jobs", "j", 4, "number of verify workers")
}
