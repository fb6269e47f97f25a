package file

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/sanjit-bhat/ktgossip/storage"
	"github.com/sanjit-bhat/ktgossip/storage/storagetest"
	"github.com/stretchr/testify/require"
)

func TestContract(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.Store {
		s, err := New(filepath.Join(t.TempDir(), "nested", "state"))
		require.NoError(t, err)
		return s
	})
}

func TestNoTempFilesLeft(t *testing.T) {
	dir := t.TempDir()
	s, err := New(filepath.Join(dir, "state"))
	require.NoError(t, err)
	for _, st := range storagetest.States() {
		require.NoError(t, s.Save(context.Background(), st))
	}
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "state", entries[0].Name())

	info, err := os.Stat(s.Path())
	require.NoError(t, err)
	require.Equal(t, os.FileMode(defaultFilePerm), info.Mode().Perm())
}

func TestLoadCorrupt(t *testing.T) {
	ctx := context.Background()
	s, err := New(filepath.Join(t.TempDir(), "state"))
	require.NoError(t, err)
	require.NoError(t, s.Save(ctx, storagetest.States()[2]))

	b, err := os.ReadFile(s.Path())
	require.NoError(t, err)

	// a torn write.
	require.NoError(t, os.WriteFile(s.Path(), b[:len(b)/2], 0o600))
	_, err = s.Load(ctx)
	require.ErrorIs(t, err, storage.ErrCorrupt)

	// garbage.
	require.NoError(t, os.WriteFile(s.Path(), []byte{0xff, 0xff, 0xff, 0xff}, 0o600))
	_, err = s.Load(ctx)
	require.ErrorIs(t, err, storage.ErrCorrupt)

	// a good save replaces it.
	require.NoError(t, s.Save(ctx, storagetest.States()[1]))
	got, err := s.Load(ctx)
	require.NoError(t, err)
	require.True(t, storagetest.States()[1].Equal(got))
}

func TestSaveFailsInMissingDir(t *testing.T) {
	dir := t.TempDir()
	s, err := New(filepath.Join(dir, "sub", "state"))
	require.NoError(t, err)
	require.NoError(t, os.RemoveAll(filepath.Join(dir, "sub")))
	require.Error(t, s.Save(context.Background(), storagetest.States()[1]))
}

func TestEmptyPath(t *testing.T) {
	_, err := New("")
	require.Error(t, err)
}
