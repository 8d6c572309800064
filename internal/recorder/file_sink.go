package recorder

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/pkg/errors"
)

const (
	rotateSuffixLayout = "2006-01-02"
	maxRotateSuffix    = 100
)

// RotateError reports a failed rotation. The line was still appended to
// the active file, so the sink remains usable.
type RotateError struct {
	Path string
	Err  error
}

func (e *RotateError) Error() string {
	return fmt.Sprintf("failed to rotate %s: %v", e.Path, e.Err)
}

func (e *RotateError) Unwrap() error {
	return e.Err
}

// FileSink appends lines to a file and rotates it at local midnight. The
// rotated file is renamed to <path>.<YYYY-MM-DD> for the day it covers.
type FileSink struct {
	path   string
	now    func() time.Time
	rename func(oldpath, newpath string) error

	mu   sync.Mutex
	file *os.File
	day  time.Time
}

// NewFileSink opens path for appending, creating parent directories
func NewFileSink(path string) (*FileSink, error) {
	return newFileSink(path, time.Now)
}

func newFileSink(path string, now func() time.Time) (*FileSink, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, errors.Wrap(err, "failed to create log directory")
	}

	s := &FileSink{path: path, now: now, rename: os.Rename}

	// An existing file belongs to the day it was last written
	s.day = startOfDay(now())
	if info, err := os.Stat(path); err == nil {
		s.day = startOfDay(info.ModTime())
	}

	if err := s.open(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *FileSink) Name() string {
	return "file"
}

// Path returns the path of the active file
func (s *FileSink) Path() string {
	return s.path
}

// Write appends one line, rotating first if the day has changed. A failed
// rotation is returned as a *RotateError after the line has been written.
func (s *FileSink) Write(_ Record, line string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.file == nil {
		if err := s.open(); err != nil {
			return err
		}
	}

	var rotateErr error
	if today := startOfDay(s.now()); today.After(s.day) {
		if err := s.rotate(today); err != nil {
			var re *RotateError
			if !errors.As(err, &re) {
				return err
			}
			rotateErr = err
		}
	}

	if _, err := s.file.WriteString(line + "\n"); err != nil {
		return errors.Wrapf(err, "failed to write %s", s.path)
	}
	return rotateErr
}

func (s *FileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	return err
}

func (s *FileSink) open() error {
	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return errors.Wrapf(err, "failed to open %s", s.path)
	}
	s.file = f
	return nil
}

// rotate moves the active file aside and reopens path. The day advances
// even when the rename fails, so a persistent failure is tried once per day
// and the lines keep going to the active file.
func (s *FileSink) rotate(today time.Time) error {
	if err := s.file.Close(); err != nil {
		return errors.Wrap(err, "failed to close log before rotation")
	}
	s.file = nil

	target, err := s.rotatedName(s.day)
	if err == nil {
		if err = s.rename(s.path, target); os.IsNotExist(err) {
			err = nil
		}
	}
	s.day = today

	if openErr := s.open(); openErr != nil {
		return openErr
	}
	if err != nil {
		return &RotateError{Path: s.path, Err: err}
	}
	return nil
}

// rotatedName never overwrites an earlier rotation of the same day
func (s *FileSink) rotatedName(day time.Time) (string, error) {
	base := s.path + "." + day.Format(rotateSuffixLayout)
	name := base
	for i := 1; i <= maxRotateSuffix; i++ {
		_, err := os.Stat(name)
		if os.IsNotExist(err) {
			return name, nil
		}
		if err != nil {
			return "", err
		}
		name = fmt.Sprintf("%s.%d", base, i)
	}
	return "", fmt.Errorf("more than %d rotations of %s", maxRotateSuffix, base)
}

func startOfDay(t time.Time) time.Time {
	t = t.Local()
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.Local)
}
