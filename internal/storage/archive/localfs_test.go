package archive

import (
	"context"
	"errors"
	"testing"

	"github.com/newthinker/swingsim/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalFS_ImplementsStorage(t *testing.T) {
	var _ Storage = (*LocalFS)(nil)
}

func TestLocalFS_WriteRead(t *testing.T) {
	fs, err := NewLocalFS(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, fs.Write(ctx, "runs/ETHUSD/a.json", []byte(`{"id":"a"}`)))

	got, err := fs.Read(ctx, "runs/ETHUSD/a.json")
	require.NoError(t, err)
	assert.Equal(t, `{"id":"a"}`, string(got))

	_, err = fs.Read(ctx, "runs/ETHUSD/b.json")
	assert.True(t, errors.Is(err, core.ErrNotFound))
}

func TestLocalFS_Exists(t *testing.T) {
	fs, err := NewLocalFS(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	exists, err := fs.Exists(ctx, "a.json")
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, fs.Write(ctx, "a.json", []byte("{}")))
	exists, err = fs.Exists(ctx, "a.json")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestLocalFS_List(t *testing.T) {
	fs, err := NewLocalFS(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, fs.Write(ctx, "runs/XBTUSD/2025-03-02/b.json", []byte("b")))
	require.NoError(t, fs.Write(ctx, "runs/ETHUSD/2025-03-01/a.json", []byte("a")))
	require.NoError(t, fs.Write(ctx, "runs/ETHUSD/2025-03-02/c.json", []byte("c")))

	all, err := fs.List(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"runs/ETHUSD/2025-03-01/a.json",
		"runs/ETHUSD/2025-03-02/c.json",
		"runs/XBTUSD/2025-03-02/b.json",
	}, all)

	eth, err := fs.List(ctx, "runs/ETHUSD")
	require.NoError(t, err)
	assert.Len(t, eth, 2)

	none, err := fs.List(ctx, "runs/SOLUSD")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestLocalFS_Delete(t *testing.T) {
	fs, err := NewLocalFS(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, fs.Write(ctx, "a.json", []byte("{}")))
	require.NoError(t, fs.Delete(ctx, "a.json"))

	exists, err := fs.Exists(ctx, "a.json")
	require.NoError(t, err)
	assert.False(t, exists)

	assert.True(t, errors.Is(fs.Delete(ctx, "a.json"), core.ErrNotFound))
}

func TestLocalFS_RejectsEscapingPaths(t *testing.T) {
	fs, err := NewLocalFS(t.TempDir())
	require.NoError(t, err)

	err = fs.Write(context.Background(), "../outside.json", []byte("{}"))
	assert.True(t, errors.Is(err, core.ErrStorage))
}
