package settings

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/contre95/snapsaver/src/media"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	values map[string]string
	err    error
}

func newMemStore() *memStore {
	return &memStore{values: make(map[string]string)}
}

func (m *memStore) Get(ctx context.Context, key string) (string, bool, error) {
	if m.err != nil {
		return "", false, m.err
	}
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *memStore) Set(ctx context.Context, key, value string) error {
	if m.err != nil {
		return m.err
	}
	m.values[key] = value
	return nil
}

func (m *memStore) Delete(ctx context.Context, key string) error {
	delete(m.values, key)
	return nil
}

type errPicker struct{}

func (errPicker) PickFolder(ctx context.Context, title string) (string, bool, error) {
	return "", false, errors.New("dialog crashed")
}

func TestAbsentKeysReadAsEmpty(t *testing.T) {
	s := NewService(newMemStore())
	cfg, err := s.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, media.WatchConfiguration{}, cfg)

	path, err := s.GetSavePath(context.Background())
	require.NoError(t, err)
	assert.Empty(t, path)
}

func TestSelectSaveFolderStoresAndNotifies(t *testing.T) {
	dir := t.TempDir()
	store := newMemStore()
	s := NewService(store)

	var changes [][2]media.WatchConfiguration
	s.OnChange(func(old, updated media.WatchConfiguration) {
		changes = append(changes, [2]media.WatchConfiguration{old, updated})
	})

	path, err := s.SelectSaveFolder(context.Background(), PathPicker(dir))
	require.NoError(t, err)
	assert.Equal(t, dir, path)
	assert.Equal(t, dir, store.values[KeySavePath])

	require.Len(t, changes, 1)
	assert.Empty(t, changes[0][0].SavePath)
	assert.Equal(t, dir, changes[0][1].SavePath)
	assert.Equal(t, dir, changes[0][1].WatchRoot())
}

func TestSelectCancelledChangesNothing(t *testing.T) {
	store := newMemStore()
	store.values[KeyWatchPath] = "/previous"
	s := NewService(store)
	called := false
	s.OnChange(func(old, updated media.WatchConfiguration) { called = true })

	path, err := s.SelectWatchFolder(context.Background(), PathPicker(""))
	require.NoError(t, err)
	assert.Empty(t, path)
	assert.Equal(t, "/previous", store.values[KeyWatchPath])
	assert.False(t, called)
}

func TestSelectRejectsMissingOrFileTarget(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "photo.jpg")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))
	s := NewService(newMemStore())

	_, err := s.SelectCopyFolder(context.Background(), PathPicker(filepath.Join(dir, "missing")))
	assert.ErrorIs(t, err, media.ErrConfiguration)

	_, err = s.SelectCopyFolder(context.Background(), PathPicker(file))
	assert.ErrorIs(t, err, media.ErrConfiguration)
}

func TestSelectPickerError(t *testing.T) {
	s := NewService(newMemStore())
	_, err := s.SelectWatchFolder(context.Background(), errPicker{})
	assert.Error(t, err)
}

func TestSetCopyPathDirectAndClear(t *testing.T) {
	dir := t.TempDir()
	store := newMemStore()
	s := NewService(store)

	require.NoError(t, s.SetCopyPath(context.Background(), dir))
	got, err := s.GetCopyPath(context.Background())
	require.NoError(t, err)
	assert.Equal(t, dir, got)

	require.NoError(t, s.SetCopyPath(context.Background(), ""))
	_, ok := store.values[KeyCopyPath]
	assert.False(t, ok)
}

func TestSetPathUnknownKey(t *testing.T) {
	s := NewService(newMemStore())
	err := s.SetPath(context.Background(), "downloadPath", t.TempDir())
	assert.ErrorIs(t, err, media.ErrConfiguration)
}

func TestStoreErrorsPropagate(t *testing.T) {
	store := newMemStore()
	store.err = errors.New("database is locked")
	s := NewService(store)

	_, err := s.Snapshot(context.Background())
	assert.Error(t, err)
	_, err = s.SelectSaveFolder(context.Background(), PathPicker(t.TempDir()))
	assert.Error(t, err)
}
