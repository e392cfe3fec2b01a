// Package output handles file naming and writing for rendered artifacts.
// Filenames are derived from the post (e.g., alice_my_post.sw.js).
package output

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Writer writes rendered output to disk.
type Writer struct {
	OutputDir string
}

// New creates a Writer for the CLI render command. outputDir is resolved to
// an absolute path (empty means the working directory) and created if missing.
func New(outputDir string) (*Writer, error) {
	dir, err := filepath.Abs(outputDir)
	if err != nil {
		return nil, fmt.Errorf("resolving output directory %q: %w", outputDir, err)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}
	return &Writer{OutputDir: dir}, nil
}

// Write stores data as author_permlink+ext and returns the file path.
func (w *Writer) Write(author, permlink string, data []byte, ext string) (string, error) {
	path := filepath.Join(w.OutputDir, Filename(author, permlink)+ext)

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("writing file %s: %w", path, err)
	}
	return path, nil
}

// Filename flattens a post reference into a file name without extension.
// Example: (dlux.io, my-post) → dlux_io_my_post
func Filename(author, permlink string) string {
	return sanitize(author) + "_" + sanitize(permlink)
}

// sanitize maps every rune outside [A-Za-z0-9] to "_".
func sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		if r < utf8.RuneSelf && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			return r
		}
		return '_'
	}, s)
}
