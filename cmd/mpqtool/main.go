// Command mpqtool inspects and extracts members of MPQ archive sets.
//
// Archives are layered in command line order: the first archive
// holding a member supplies it, and --patch applies content patches on
// top without changing which archive resolves a name. The tool opens
// archives through the StormLib codec, so binaries must be built with
// the stormlib tag:
//
//	go build -tags stormlib ./cmd/mpqtool
package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mopaq/mpqset"
	"github.com/mopaq/mpqset/internal/loadorder"
	"github.com/mopaq/mpqset/storm"
	"github.com/mopaq/mpqset/storm/stormlib"
)

// version is set via -ldflags at release time.
var version = "dev"

var (
	archiveFlags []string
	patchRefs    []string
	manifestFlag string
	readOnlyFlag bool
	patchedFlag  bool
	verboseFlag  bool
)

var rootCmd = &cobra.Command{
	Use:   "mpqtool",
	Short: "Inspect and extract members of MPQ archive sets",
	Long: `mpqtool layers MPQ archives into one namespace and works on the
result: earlier --archive flags shadow later ones, and --patch applies
content patches on top without changing which archive resolves a name.

Archive sets can also come from a YAML manifest (--manifest), the same
format game launchers keep their load order in.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringArrayVarP(&archiveFlags, "archive", "a", nil, "archive to open, repeatable, in priority order")
	rootCmd.PersistentFlags().StringArrayVar(&patchRefs, "patch", nil, "patch archive as PATH[:PREFIX], repeatable, in apply order")
	rootCmd.PersistentFlags().StringVarP(&manifestFlag, "manifest", "m", "", "load archives and patches from a YAML manifest")
	rootCmd.PersistentFlags().BoolVar(&readOnlyFlag, "read-only", true, "open archives read only")
	rootCmd.PersistentFlags().BoolVar(&patchedFlag, "patched", false, "read patched content instead of base content")
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(lsCmd)
	rootCmd.AddCommand(catCmd)
	rootCmd.AddCommand(extractCmd)
	rootCmd.AddCommand(verifyCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// newLogger returns the tool's logger; --verbose lowers the level to
// debug.
func newLogger() *slog.Logger {
	level := slog.LevelWarn
	if verboseFlag {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// buildManifest assembles the load order from the flags, or loads it
// from --manifest. --patch entries append to a manifest's patches.
func buildManifest() (*loadorder.Manifest, error) {
	var m *loadorder.Manifest
	if manifestFlag != "" {
		if len(archiveFlags) > 0 {
			return nil, fmt.Errorf("--archive cannot be combined with --manifest")
		}
		loaded, err := loadorder.Load(manifestFlag)
		if err != nil {
			return nil, err
		}
		m = loaded
	} else {
		if len(archiveFlags) == 0 {
			return nil, fmt.Errorf("no archives: use --archive or --manifest")
		}
		m = &loadorder.Manifest{ReadOnly: readOnlyFlag}
		for _, path := range archiveFlags {
			m.Archives = append(m.Archives, loadorder.ArchiveRef{Path: path})
		}
	}
	for _, ref := range patchRefs {
		path, prefix := splitPatchRef(ref)
		m.Patches = append(m.Patches, loadorder.PatchRef{Path: path, Prefix: prefix})
	}
	return m, nil
}

// splitPatchRef splits PATH[:PREFIX] on the last colon, so Windows
// drive letters survive unsplit.
func splitPatchRef(ref string) (path, prefix string) {
	if i := strings.LastIndex(ref, ":"); i > 1 {
		return ref[:i], ref[i+1:]
	}
	return ref, ""
}

// openSet opens the set described by the flags over the StormLib codec.
func openSet() (*mpqset.Set, error) {
	m, err := buildManifest()
	if err != nil {
		return nil, err
	}
	codec, err := stormlib.New()
	if err != nil {
		return nil, err
	}
	return loadorder.Open(codec, m, mpqset.WithLogger(newLogger()))
}

// scope returns the read scope selected by --patched.
func scope() storm.Scope {
	if patchedFlag {
		return storm.ScopePatched
	}
	return storm.ScopeBase
}

// chunkNames splits names into at most n runs of near-equal length.
func chunkNames(names []string, n int) [][]string {
	if n < 1 {
		n = 1
	}
	if n > len(names) {
		n = len(names)
	}
	if n == 0 {
		return nil
	}
	per := (len(names) + n - 1) / n
	chunks := make([][]string, 0, n)
	for start := 0; start < len(names); start += per {
		end := min(start+per, len(names))
		chunks = append(chunks, names[start:end])
	}
	return chunks
}
