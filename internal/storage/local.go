// Package storage keeps uploaded documents (policy PDFs, blog images) on the
// local filesystem under UPLOAD_DIR.
package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/bimerz/portal-service/pkg/utilities"
)

var (
	ErrNotFound = errors.New("file not found")
	ErrTooLarge = errors.New("file too large")
	ErrBadName  = errors.New("invalid file name")
)

type Config struct {
	Dir     string
	MaxSize int64
}

func ConfigFromEnv() Config {
	dir := os.Getenv("UPLOAD_DIR")
	if dir == "" {
		dir = "uploads"
	}
	return Config{Dir: dir, MaxSize: 10 << 20}
}

type Local struct {
	dir     string
	maxSize int64
}

func NewLocal(cfg Config) (*Local, error) {
	if err := os.MkdirAll(cfg.Dir, 0o750); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &Local{dir: cfg.Dir, maxSize: cfg.MaxSize}, nil
}

// Save stores r under a fresh ksuid name with the given extension and returns
// that name. Content beyond MaxSize is rejected and nothing is kept.
func (l *Local) Save(r io.Reader, ext string) (string, error) {
	name := utilities.NewKSUID() + strings.ToLower(ext)
	path := filepath.Join(l.dir, name)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o640)
	if err != nil {
		return "", err
	}
	src := r
	if l.maxSize > 0 {
		src = io.LimitReader(r, l.maxSize+1)
	}
	n, err := io.Copy(f, src)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err == nil && l.maxSize > 0 && n > l.maxSize {
		err = ErrTooLarge
	}
	if err != nil {
		_ = os.Remove(path)
		return "", err
	}
	return name, nil
}

// Open returns the stored file; the caller closes it.
func (l *Local) Open(name string) (*os.File, error) {
	path, err := l.path(name)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	return f, err
}

func (l *Local) Remove(name string) error {
	path, err := l.path(name)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// Stored names are flat; anything that could leave the directory is refused.
func (l *Local) path(name string) (string, error) {
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return "", ErrBadName
	}
	return filepath.Join(l.dir, name), nil
}
