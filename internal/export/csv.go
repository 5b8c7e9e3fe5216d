// Package export serializes collected comments to files and download
// payloads.
package export

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"

	"thirdcoast.systems/ytcomments/internal/comments"
)

// ErrWriteFailure wraps any error raised while creating or writing output.
var ErrWriteFailure = errors.New("failed to save comments")

// DefaultDir is the output directory, relative to the working directory.
const DefaultDir = "videos"

// Options controls text encodings.
type Options struct {
	// BOM prefixes UTF-8 output with a byte order mark, which some
	// spreadsheet tools need to detect the encoding.
	BOM bool

	// CRLF terminates CSV rows with \r\n. NewOptions sets it on Windows.
	CRLF bool

	// Title is used by formats that carry a heading.
	Title string
}

// NewOptions returns Options with the platform's newline style.
func NewOptions() Options {
	return Options{CRLF: runtime.GOOS == "windows"}
}

// WriteCSV writes the header and one row per entry to w. The BOM option is
// applied by Encode, not here.
func WriteCSV(w io.Writer, entries []comments.Entry, opts Options) error {
	cw := csv.NewWriter(w)
	cw.UseCRLF = opts.CRLF
	if err := cw.Write(comments.Columns); err != nil {
		return err
	}
	for _, e := range entries {
		if err := cw.Write(e.Record().Strings()); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// FileName returns yt_<videoID>.<ext> for f.
func FileName(videoID string, f Format) string {
	return "yt_" + videoID + "." + f.Extension()
}

// WriteCSVFile writes entries to <dir>/yt_<videoID>.csv, creating dir when
// needed, and returns the absolute path of the file.
func WriteCSVFile(dir, videoID string, entries []comments.Entry, opts Options) (string, error) {
	return WriteFile(dir, videoID, FormatCSV, entries, opts)
}

// WriteFile encodes entries as f into <dir>/yt_<videoID>.<ext> and returns
// the absolute path of the file. Every failure wraps ErrWriteFailure.
func WriteFile(dir, videoID string, f Format, entries []comments.Entry, opts Options) (path string, err error) {
	if dir == "" {
		dir = DefaultDir
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("%w: create %s: %w", ErrWriteFailure, dir, err)
	}

	path, err = filepath.Abs(filepath.Join(dir, FileName(videoID, f)))
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrWriteFailure, err)
	}

	out, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrWriteFailure, err)
	}
	defer func() {
		if cerr := out.Close(); cerr != nil && err == nil {
			path, err = "", fmt.Errorf("%w: close %s: %w", ErrWriteFailure, path, cerr)
		}
	}()

	if err := Encode(out, f, entries, opts); err != nil {
		return "", fmt.Errorf("%w: write %s: %w", ErrWriteFailure, path, err)
	}
	return path, nil
}
