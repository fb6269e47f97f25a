// Package file stores trust state in a single file on local disk.
// Save writes a temp file in the same dir, fsyncs it, renames it over the
// old record, and fsyncs the dir, so a crash leaves the old or the new
// record, never a mix.
package file

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/sanjit-bhat/ktgossip/storage"
	"github.com/sanjit-bhat/ktgossip/trust"
)

const (
	defaultDirPerm  = 0o700
	defaultFilePerm = 0o600
)

type Store struct {
	path     string
	dirPerm  os.FileMode
	filePerm os.FileMode
}

// Option configures a file store.
type Option func(*Store)

// WithDirPerm sets the permissions used when creating the parent dir.
func WithDirPerm(mode os.FileMode) Option {
	return func(s *Store) {
		s.dirPerm = mode
	}
}

// WithFilePerm sets the permissions of the state file.
func WithFilePerm(mode os.FileMode) Option {
	return func(s *Store) {
		s.filePerm = mode
	}
}

// New creates a store at path, making its parent dir if needed.
func New(path string, opts ...Option) (*Store, error) {
	if path == "" {
		return nil, errors.New("file store: path is empty")
	}
	s := &Store{path: path, dirPerm: defaultDirPerm, filePerm: defaultFilePerm}
	for _, opt := range opts {
		opt(s)
	}
	if err := os.MkdirAll(filepath.Dir(path), s.dirPerm); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) Path() string {
	return s.path
}

func (s *Store) Load(ctx context.Context) (*trust.State, error) {
	b, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return trust.New(), nil
	}
	if err != nil {
		return nil, err
	}
	return storage.Open(b)
}

func (s *Store) Save(ctx context.Context, st *trust.State) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".state-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	cleanup := func() {
		tmp.Close()
		_ = os.Remove(tmpPath)
	}

	if _, err := tmp.Write(storage.Seal(st)); err != nil {
		cleanup()
		return err
	}
	if err := tmp.Chmod(s.filePerm); err != nil {
		cleanup()
		return err
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	return syncDir(dir)
}

func (s *Store) Close() error {
	return nil
}

// syncDir makes the rename durable.
func syncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer d.Close()
	return d.Sync()
}
