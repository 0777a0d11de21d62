package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	lsLong  bool
	lsStats bool
)

var lsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List the members of the archive set",
	Long: `ls prints the merged name listing of the set, one member per line in
archive order. With --long it prints size and packed size columns;
with --stats it appends totals.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSet()
		if err != nil {
			return err
		}
		defer s.Close()

		if lsLong {
			if err := s.PrintDir(os.Stdout); err != nil {
				return err
			}
		} else {
			names, err := s.Names()
			if err != nil {
				return err
			}
			for _, name := range names {
				fmt.Println(name)
			}
		}

		if lsStats {
			stats, err := s.Stats()
			if err != nil {
				return err
			}
			fmt.Printf("%d members, %d bytes (%d packed, ratio %.2f)\n",
				stats.FileCount, stats.TotalSize, stats.CompressSize, stats.Ratio())
		}
		return nil
	},
}

func init() {
	lsCmd.Flags().BoolVarP(&lsLong, "long", "l", false, "print size and packed size columns")
	lsCmd.Flags().BoolVar(&lsStats, "stats", false, "append member count and size totals")
}
