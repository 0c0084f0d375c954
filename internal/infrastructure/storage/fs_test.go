package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"svw.info/meldsolver/internal/domain"
)

func TestFSSaveLoadList(t *testing.T) {
	ctx := context.Background()
	s := NewFS(t.TempDir())

	pool := domain.NewTileSet(domain.NewTile(domain.Red, 7), domain.Joker, domain.Joker)
	require.NoError(t, s.Save(ctx, &domain.SavedPool{ID: "a", Name: "first", Pool: pool, CreatedAt: 1}))
	require.NoError(t, s.Save(ctx, &domain.SavedPool{ID: "b", Pool: domain.NewTileSet(domain.Joker), CreatedAt: 2}))

	got, err := s.Load(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "first", got.Name)
	assert.Equal(t, pool, got.Pool)

	list, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "b", list[0].ID)
	assert.Equal(t, 3, list[1].Tiles)
}

func TestFSLoadMissing(t *testing.T) {
	s := NewFS(t.TempDir())
	_, err := s.Load(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.Load(context.Background(), "../etc")
	assert.ErrorIs(t, err, ErrInvalidID)
}

func TestFSRejectsBadCodes(t *testing.T) {
	dir := t.TempDir()
	body := `{"id":"bad","codes":[3, 53]}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.json"), []byte(body), 0o644))

	_, err := NewFS(dir).Load(context.Background(), "bad")
	assert.ErrorIs(t, err, domain.ErrInvalidEncoding)
}

func TestFSSaveRequiresID(t *testing.T) {
	s := NewFS(t.TempDir())
	for _, id := range []string{"", " ", "a/b", "../x", `..\x`, ".."} {
		err := s.Save(context.Background(), &domain.SavedPool{ID: id})
		assert.ErrorIs(t, err, ErrInvalidID, "id %q", id)
	}
	assert.ErrorIs(t, s.Save(context.Background(), nil), ErrInvalidID)
}

func TestFSListEmptyDir(t *testing.T) {
	list, err := NewFS(filepath.Join(t.TempDir(), "missing")).List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, list)
}
