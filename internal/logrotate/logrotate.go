package logrotate

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"

	"github.com/jpalmerr/uptimerobot/internal/errs"
)

const (
	// DefaultRotateInterval is how old the active log may get before it is archived.
	DefaultRotateInterval = 24 * time.Hour

	// DefaultRetention is how long archives are kept.
	DefaultRetention = 14 * 24 * time.Hour

	// TimestampLayout prefixes every log line.
	TimestampLayout = "2006-01-02 15:04:05"

	archiveDateLayout = "2006-01-02"
)

// archiveSuffix matches what follows "<logfile>." in an archive name:
// <creation-date>_<rotation-date>[-N].gz
var archiveSuffix = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}_\d{4}-\d{2}-\d{2}(-\d+)?\.gz$`)

// newlineStripper removes line breaks so one event stays on one line.
var newlineStripper = strings.NewReplacer("\n", "", "\r", "")

// Log owns one endpoint's active log file and its gzip archives.
//
// Log is not safe for concurrent use. The poller guarantees that a given
// endpoint's rotation and appends never overlap.
type Log struct {
	path           string
	rotateInterval time.Duration
	retention      time.Duration
	now            func() time.Time
	created        func(path string) (time.Time, error)
}

// Option configures a [Log].
type Option func(*Log)

// WithRotateInterval overrides [DefaultRotateInterval].
func WithRotateInterval(d time.Duration) Option {
	return func(l *Log) {
		l.rotateInterval = d
	}
}

// WithRetention overrides [DefaultRetention].
func WithRetention(d time.Duration) Option {
	return func(l *Log) {
		l.retention = d
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(l *Log) {
		l.now = now
	}
}

// New returns the log for the endpoint called name, stored as <dir>/<name>.log.
func New(dir, name string, opts ...Option) *Log {
	l := &Log{
		path:           filepath.Join(dir, name+".log"),
		rotateInterval: DefaultRotateInterval,
		retention:      DefaultRetention,
		now:            time.Now,
		created:        creationTime,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Path returns the active log file path.
func (l *Log) Path() string {
	return l.path
}

// Append writes one line "<timestamp> - <status> - <message>" to the active log.
// Line breaks inside message are removed.
func (l *Log) Append(status int, message string) (err error) {
	f, err := os.OpenFile(l.path, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0o644)
	if err != nil {
		return errs.Wrap(err, errs.CodeLogAppendFailure, "opening log", errs.FieldPath(l.path))
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = errs.Wrap(cerr, errs.CodeLogAppendFailure, "closing log", errs.FieldPath(l.path))
		}
	}()

	line := fmt.Sprintf("%s - %d - %s\n", l.now().Format(TimestampLayout), status, newlineStripper.Replace(message))
	if _, err := f.WriteString(line); err != nil {
		return errs.Wrap(err, errs.CodeLogAppendFailure, "writing log line", errs.FieldPath(l.path))
	}
	return nil
}

// RotateIfDue prunes expired archives and then, if the active log is older
// than the rotation interval, compresses it into a new archive and replaces
// it with an empty file. A missing active log is not rotated.
//
// It returns the archive path, or "" when nothing was rotated.
func (l *Log) RotateIfDue() (string, error) {
	if _, err := l.PruneExpired(); err != nil {
		return "", err
	}

	if _, err := os.Stat(l.path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", nil
		}
		return "", errs.Wrap(err, errs.CodeLogRotateFailure, "inspecting log", errs.FieldPath(l.path))
	}

	created, err := l.created(l.path)
	if err != nil {
		return "", errs.Wrap(err, errs.CodeLogRotateFailure, "reading log creation time", errs.FieldPath(l.path))
	}

	now := l.now()
	if now.Sub(created) <= l.rotateInterval {
		return "", nil
	}

	return l.rotate(created, now)
}

func (l *Log) rotate(created, now time.Time) (string, error) {
	archive, err := l.compress(created, now)
	if err != nil {
		return "", err
	}

	// remove and recreate so the fresh file gets a new creation time
	if err := os.Remove(l.path); err != nil {
		return archive, errs.Wrap(err, errs.CodeLogRotateFailure, "removing rotated log", errs.FieldPath(l.path))
	}
	if err := os.WriteFile(l.path, nil, 0o644); err != nil {
		return archive, errs.Wrap(err, errs.CodeLogRotateFailure, "recreating log", errs.FieldPath(l.path))
	}
	return archive, nil
}

// compress writes the active log into a new archive and returns its path.
// A partially written archive is removed on failure.
func (l *Log) compress(created, now time.Time) (string, error) {
	src, err := os.Open(l.path)
	if err != nil {
		return "", errs.Wrap(err, errs.CodeLogRotateFailure, "opening log for rotation", errs.FieldPath(l.path))
	}
	defer func() { _ = src.Close() }()

	dst, archive, err := l.createArchive(created, now)
	if err != nil {
		return "", err
	}

	if err := writeGzip(dst, src, filepath.Base(l.path), now); err != nil {
		_ = os.Remove(archive)
		return "", errs.Wrap(err, errs.CodeLogRotateFailure, "compressing log", errs.FieldPath(archive))
	}
	return archive, nil
}

// writeGzip compresses src into dst and closes dst.
func writeGzip(dst *os.File, src io.Reader, name string, modTime time.Time) error {
	gz := gzip.NewWriter(dst)
	gz.Name = name
	gz.ModTime = modTime

	if _, err := io.Copy(gz, src); err != nil {
		_ = gz.Close()
		_ = dst.Close()
		return err
	}
	if err := gz.Close(); err != nil {
		_ = dst.Close()
		return err
	}
	return dst.Close()
}

// createArchive opens a new archive file named after the log's creation and
// rotation dates. Existing archives are never overwritten: a -N counter is
// added until the name is free.
func (l *Log) createArchive(created, now time.Time) (*os.File, string, error) {
	base := fmt.Sprintf("%s.%s_%s", l.path, created.Format(archiveDateLayout), now.Format(archiveDateLayout))

	for i := 0; ; i++ {
		name := base + ".gz"
		if i > 0 {
			name = fmt.Sprintf("%s-%d.gz", base, i)
		}

		f, err := os.OpenFile(name, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err == nil {
			return f, name, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return nil, "", errs.Wrap(err, errs.CodeLogRotateFailure, "creating archive", errs.FieldPath(name))
		}
	}
}

// PruneExpired deletes archives older than the retention interval and
// returns the paths it removed.
func (l *Log) PruneExpired() ([]string, error) {
	archives, err := l.Archives()
	if err != nil {
		return nil, err
	}

	now := l.now()
	var removed []string
	for _, archive := range archives {
		created, err := l.created(archive)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return removed, errs.Wrap(err, errs.CodeLogPruneFailure, "reading archive creation time", errs.FieldPath(archive))
		}
		if now.Sub(created) <= l.retention {
			continue
		}
		if err := os.Remove(archive); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return removed, errs.Wrap(err, errs.CodeLogPruneFailure, "removing archive", errs.FieldPath(archive))
		}
		removed = append(removed, archive)
	}
	return removed, nil
}

// Archives lists this log's archive files, sorted by name.
func (l *Log) Archives() ([]string, error) {
	dir := filepath.Dir(l.path)
	prefix := filepath.Base(l.path) + "."

	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, errs.Wrap(err, errs.CodeLogPruneFailure, "listing log directory", errs.FieldPath(dir))
	}

	var archives []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, prefix) {
			continue
		}
		if !archiveSuffix.MatchString(strings.TrimPrefix(name, prefix)) {
			continue
		}
		archives = append(archives, filepath.Join(dir, name))
	}
	sort.Strings(archives)
	return archives, nil
}
