// Package mpqpath provides name handling for MPQ archive members.
//
// Archives store names with backslash separators and match them
// case-insensitively. The logical form used across the public API keeps
// the original case but uses forward slashes.
package mpqpath

import (
	"fmt"
	"strings"
)

// Logical converts an archive member name to its logical form,
// replacing backslash separators with forward slashes.
func Logical(name string) string {
	return strings.ReplaceAll(name, "\\", "/")
}

// Native converts a logical name to the archive-native form, replacing
// forward slashes with backslashes.
func Native(name string) string {
	return strings.ReplaceAll(name, "/", "\\")
}

// Base returns the last element of a member name in either form.
// If name is empty, it returns ".".
func Base(name string) string {
	name = Logical(name)
	if name == "" || name == "." {
		return "."
	}
	name = strings.TrimSuffix(name, "/")
	if i := strings.LastIndex(name, "/"); i >= 0 {
		return name[i+1:]
	}
	return name
}

// DirPrefix converts a logical path to its directory prefix form.
// For ".", returns "" (empty prefix matches all).
// For other paths, appends "/" to match children.
func DirPrefix(name string) string {
	if name == "." {
		return ""
	}
	return name + "/"
}

// Child extracts the immediate child name from a full logical path
// given a prefix. Returns the child name and whether it is a
// subdirectory (has more path components). If path does not have the
// prefix, behavior is undefined.
func Child(path, prefix string) (name string, isSubDir bool) {
	relPath := strings.TrimPrefix(path, prefix)
	if idx := strings.Index(relPath, "/"); idx >= 0 {
		return relPath[:idx], true
	}
	return relPath, false
}

// Synthetic returns the name assigned to the unlisted member at the
// given index position.
func Synthetic(index int) string {
	return fmt.Sprintf("File%08x.xxx", index)
}

// SplitList splits a listing member payload into logical member names.
// Lines are CRLF separated; bare LF is tolerated. Empty lines are
// dropped and order is preserved.
func SplitList(data []byte) []string {
	if len(data) == 0 {
		return nil
	}
	lines := strings.Split(string(data), "\n")
	names := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSuffix(line, "\r")
		if line == "" {
			continue
		}
		names = append(names, Logical(line))
	}
	return names
}
