package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pfrederiksen/actionfeed/internal/event"
	"github.com/pfrederiksen/actionfeed/internal/logger"
	"github.com/pfrederiksen/actionfeed/internal/metrics"
)

// ErrPersistence is wrapped by every failure to read or write snapshot files.
var ErrPersistence = errors.New("snapshot persistence")

// TimestampLayout is the UTC timestamp embedded in derived snapshot names.
const TimestampLayout = "20060102T150405"

const maxNameAttempts = 1000

// Snapshot is the content of one snapshot file.
type Snapshot struct {
	Path    string
	Records []event.Record
}

// FileError reports a snapshot file that could not be loaded.
type FileError struct {
	Path string
	Err  error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e *FileError) Unwrap() error {
	return e.Err
}

// Store reads and writes snapshot files in one directory.
type Store struct {
	dataDir string
	now     func() time.Time
}

// New creates a Store rooted at dataDir, creating the directory if needed.
func New(dataDir string) (*Store, error) {
	// Expand ~ to home directory
	if strings.HasPrefix(dataDir, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("%w: getting home directory: %w", ErrPersistence, err)
		}
		dataDir = filepath.Join(home, dataDir[2:])
	}

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("%w: creating data directory: %w", ErrPersistence, err)
	}

	return &Store{
		dataDir: dataDir,
		now:     time.Now,
	}, nil
}

// Dir returns the snapshot directory.
func (s *Store) Dir() string {
	return s.dataDir
}

// SnapshotName returns the file name a snapshot of source saved at t gets.
func SnapshotName(source string, t time.Time) string {
	return fmt.Sprintf("%s_events_%s.csv", safeName(source), t.UTC().Format(TimestampLayout))
}

// Save writes records as one snapshot file and returns its path.
//
// With an empty path the name is derived from source and the current time
// inside the store directory; an existing file is never overwritten, a _N
// suffix is added instead. An explicit path is replaced if it exists. An
// empty batch produces a header-only file. Files appear atomically.
func (s *Store) Save(source string, records []event.Record, path string) (string, error) {
	if path == "" && safeName(source) == "" {
		return "", fmt.Errorf("%w: source name required to derive a file name", ErrPersistence)
	}

	dir := s.dataDir
	if path != "" {
		dir = filepath.Dir(path)
	}

	tmp, err := s.writeTemp(dir, records)
	if err != nil {
		metrics.IncSnapshotFile("failed")
		return "", err
	}
	defer os.Remove(tmp)

	if path != "" {
		if err := os.Rename(tmp, path); err != nil {
			metrics.IncSnapshotFile("failed")
			return "", fmt.Errorf("%w: %w", ErrPersistence, err)
		}
	} else {
		path, err = s.claim(tmp, source)
		if err != nil {
			metrics.IncSnapshotFile("failed")
			return "", err
		}
	}

	metrics.IncSnapshotFile("saved")
	logger.Info("Saved snapshot", logger.Fields{"path": path, "records": len(records)})
	return path, nil
}

func (s *Store) writeTemp(dir string, records []event.Record) (string, error) {
	f, err := os.CreateTemp(dir, ".snapshot-*.tmp")
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	name := f.Name()

	if err := writeCSV(f, records); err != nil {
		f.Close()
		os.Remove(name)
		return "", fmt.Errorf("%w: writing %s: %w", ErrPersistence, name, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(name)
		return "", fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	if err := os.Chmod(name, 0644); err != nil {
		os.Remove(name)
		return "", fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	return name, nil
}

// claim links tmp under the first free derived name.
func (s *Store) claim(tmp, source string) (string, error) {
	name := SnapshotName(source, s.now())
	stem := strings.TrimSuffix(name, ".csv")

	for i := 0; i < maxNameAttempts; i++ {
		candidate := name
		if i > 0 {
			candidate = fmt.Sprintf("%s_%d.csv", stem, i)
		}
		target := filepath.Join(s.dataDir, candidate)
		err := os.Link(tmp, target)
		if err == nil {
			return target, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return "", fmt.Errorf("%w: %w", ErrPersistence, err)
		}
	}
	return "", fmt.Errorf("%w: no free name for %s", ErrPersistence, name)
}

// LoadAll loads every *.csv file directly inside the store directory, in name
// order. Files that fail to parse are reported as FileErrors and do not stop
// the others; only an unreadable directory is returned as an error.
func (s *Store) LoadAll() ([]Snapshot, []*FileError, error) {
	entries, err := os.ReadDir(s.dataDir)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: listing %s: %w", ErrPersistence, s.dataDir, err)
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".csv") {
			continue
		}
		paths = append(paths, filepath.Join(s.dataDir, entry.Name()))
	}

	snapshots, fileErrs := LoadFiles(paths)
	return snapshots, fileErrs, nil
}

// LoadFiles loads the given snapshot files in order with the same isolation
// as LoadAll.
func LoadFiles(paths []string) ([]Snapshot, []*FileError) {
	snapshots := make([]Snapshot, 0, len(paths))
	var fileErrs []*FileError

	for _, path := range paths {
		records, err := loadFile(path)
		if err != nil {
			metrics.IncSnapshotFile("failed")
			logger.Warn("Skipping snapshot", logger.Fields{"path": path, "error": err.Error()})
			fileErrs = append(fileErrs, &FileError{Path: path, Err: fmt.Errorf("%w: %w", ErrPersistence, err)})
			continue
		}
		metrics.IncSnapshotFile("loaded")
		snapshots = append(snapshots, Snapshot{Path: path, Records: records})
	}
	return snapshots, fileErrs
}

func loadFile(path string) ([]event.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return readCSV(f)
}

// Records returns the record slices of snapshots in order, ready for event.Combine.
func Records(snapshots []Snapshot) [][]event.Record {
	out := make([][]event.Record, len(snapshots))
	for i, snap := range snapshots {
		out[i] = snap.Records
	}
	return out
}

// safeName keeps source names usable as file name prefixes.
func safeName(source string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(source) {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '.':
			b.WriteRune(r)
		default:
			b.WriteRune('-')
		}
	}
	return strings.Trim(b.String(), "-.")
}
