package main

import (
	"io"
	"os"

	"github.com/spf13/cobra"
)

var catCmd = &cobra.Command{
	Use:   "cat NAME",
	Short: "Write one member to standard output",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSet()
		if err != nil {
			return err
		}
		defer s.Close()

		f, err := s.Open(args[0], scope())
		if err != nil {
			return err
		}
		defer f.Close()

		_, err = io.Copy(os.Stdout, f)
		return err
	},
}
