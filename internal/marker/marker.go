// Package marker implements marker-file-as-boolean state.
//
// A marker is a small file whose existence is the only semantic signal. Its
// content is the timestamp it was created at, kept for operators inspecting
// the directory by hand. Error markers and the process lock are both markers.
package marker

import (
	"errors"
	"io"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/jpalmerr/uptimerobot/internal/errs"
)

// Layout is the timestamp format written into marker files.
const Layout = "2006-01-02 15:04:05"

// Marker is a persisted boolean flag with a creation timestamp.
type Marker interface {
	// Exists reports whether the marker is currently set.
	Exists() bool

	// Create sets the marker, recording at as its creation time.
	Create(at time.Time) error

	// Delete clears the marker. Deleting an absent marker is not an error.
	Delete() error

	// Since returns the timestamp recorded when the marker was created.
	Since() (time.Time, error)
}

// File is a [Marker] backed by a regular file.
type File struct {
	path string
}

// NewFile returns a marker stored at path. Nothing is touched on disk.
func NewFile(path string) *File {
	return &File{path: path}
}

// Path returns the marker's file path.
func (f *File) Path() string {
	return f.path
}

// Exists reports whether the marker file is present as a regular file.
func (f *File) Exists() bool {
	info, err := os.Stat(f.path)
	return err == nil && info.Mode().IsRegular()
}

// Create writes the marker, replacing any previous content.
func (f *File) Create(at time.Time) error {
	if err := os.WriteFile(f.path, []byte(at.Format(Layout)), 0o644); err != nil {
		return errs.Wrap(err, errs.CodeMarkerCreateFailure, "writing marker", errs.FieldPath(f.path))
	}
	return nil
}

// CreateExclusive writes the marker only if it does not exist yet.
// The returned error wraps [fs.ErrExist] when another writer got there first.
//
// If the timestamp cannot be written the file is removed again, so a failed
// attempt never leaves an empty marker behind.
func (f *File) CreateExclusive(at time.Time) error {
	return f.createExclusive(at.Format(Layout), writeString)
}

func writeString(w io.Writer, s string) error {
	_, err := io.WriteString(w, s)
	return err
}

func (f *File) createExclusive(content string, write func(io.Writer, string) error) error {
	file, err := os.OpenFile(f.path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return errs.Wrap(err, errs.CodeMarkerCreateFailure, "creating marker", errs.FieldPath(f.path))
	}

	werr := write(file, content)
	cerr := file.Close()
	if werr == nil {
		werr = cerr
	}
	if werr != nil {
		_ = os.Remove(f.path)
		return errs.Wrap(werr, errs.CodeMarkerCreateFailure, "writing marker", errs.FieldPath(f.path))
	}
	return nil
}

// Delete removes the marker file if present.
func (f *File) Delete() error {
	if err := os.Remove(f.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return errs.Wrap(err, errs.CodeMarkerDeleteFailure, "removing marker", errs.FieldPath(f.path))
	}
	return nil
}

// Since parses the timestamp stored in the marker, in local time.
func (f *File) Since() (time.Time, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return time.Time{}, errs.Wrap(err, errs.CodeMarkerReadFailure, "reading marker", errs.FieldPath(f.path))
	}

	at, err := time.ParseInLocation(Layout, strings.TrimSpace(string(data)), time.Local)
	if err != nil {
		return time.Time{}, errs.Wrap(err, errs.CodeMarkerReadFailure, "parsing marker timestamp", errs.FieldPath(f.path))
	}
	return at, nil
}

// Raw returns the marker's content verbatim.
func (f *File) Raw() (string, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return "", errs.Wrap(err, errs.CodeMarkerReadFailure, "reading marker", errs.FieldPath(f.path))
	}
	return string(data), nil
}
