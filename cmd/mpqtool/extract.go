package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/mopaq/mpqset"
	"github.com/mopaq/mpqset/internal/loadorder"
	"github.com/mopaq/mpqset/storm/stormlib"
)

var (
	extractOut  string
	extractAll  bool
	extractJobs int
)

var extractCmd = &cobra.Command{
	Use:   "extract [NAME...]",
	Short: "Extract members to a directory",
	Long: `extract copies members into --out, recreating the member paths as
directories. With --all every listed member is extracted. Extraction
runs on --jobs workers; each worker opens its own view of the archive
set, since a set serves one caller at a time.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !extractAll && len(args) == 0 {
			return fmt.Errorf("no members named: pass names or --all")
		}
		if extractAll && len(args) > 0 {
			return fmt.Errorf("--all cannot be combined with member names")
		}

		m, err := buildManifest()
		if err != nil {
			return err
		}
		codec, err := stormlib.New()
		if err != nil {
			return err
		}
		logger := newLogger()

		names := args
		if extractAll {
			s, err := loadorder.Open(codec, m, mpqset.WithLogger(logger))
			if err != nil {
				return err
			}
			names, err = s.Names()
			s.Close()
			if err != nil {
				return err
			}
		}

		var eg errgroup.Group
		for _, run := range chunkNames(names, extractJobs) {
			eg.Go(func() error {
				s, err := loadorder.Open(codec, m, mpqset.WithLogger(logger))
				if err != nil {
					return err
				}
				defer s.Close()
				for _, name := range run {
					if err := extractOne(s, name); err != nil {
						return err
					}
				}
				return nil
			})
		}
		return eg.Wait()
	},
}

// extractOne copies a single member beneath the destination root. A
// listing entry with ".." components could otherwise escape it.
func extractOne(s *mpqset.Set, name string) error {
	dest := filepath.Join(extractOut, filepath.FromSlash(name))
	rel, err := filepath.Rel(extractOut, dest)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return fmt.Errorf("member %s escapes %s", name, extractOut)
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}
	return s.Extract(name, dest, scope())
}

func init() {
	extractCmd.Flags().StringVarP(&extractOut, "out", "o", ".", "destination directory")
	extractCmd.Flags().BoolVar(&extractAll, "all", false, "extract every listed member")
	extractCmd.Flags().IntVarP(&extractJobs, "jobs", "j", 4, "number of extraction workers")
}
