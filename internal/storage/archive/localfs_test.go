package archive

import (
	"context"
	"os"
	"path/filepath"
	"testing"

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

	require.NoError(t, fs.Write(ctx, "test/file.txt", []byte("test data")))

	got, err := fs.Read(ctx, "test/file.txt")
	require.NoError(t, err)
	assert.Equal(t, "test data", string(got))

	require.NoError(t, fs.Write(ctx, "test/file.txt", []byte("replaced")))
	got, err = fs.Read(ctx, "test/file.txt")
	require.NoError(t, err)
	assert.Equal(t, "replaced", string(got))
}

func TestLocalFS_ReadMissing(t *testing.T) {
	fs, err := NewLocalFS(t.TempDir())
	require.NoError(t, err)

	_, err = fs.Read(context.Background(), "nope.csv")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLocalFS_Exists(t *testing.T) {
	fs, err := NewLocalFS(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	exists, err := fs.Exists(ctx, "nonexistent.txt")
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, fs.Write(ctx, "exists.txt", []byte("data")))
	exists, err = fs.Exists(ctx, "exists.txt")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestLocalFS_List(t *testing.T) {
	dir := t.TempDir()
	fs, err := NewLocalFS(dir)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, fs.Write(ctx, "data/2024/01/b.txt", []byte("b")))
	require.NoError(t, fs.Write(ctx, "data/2024/01/a.txt", []byte("a")))
	require.NoError(t, fs.Write(ctx, "data/2024/02/c.txt", []byte("c")))
	// leftovers of an interrupted write are not listed
	require.NoError(t, os.WriteFile(filepath.Join(dir, "data", "2024", "01", "d.txt.tmp"), nil, 0644))

	paths, err := fs.List(ctx, "data/2024/01")
	require.NoError(t, err)
	assert.Equal(t, []string{"data/2024/01/a.txt", "data/2024/01/b.txt"}, paths)

	paths, err = fs.List(ctx, "missing")
	require.NoError(t, err)
	assert.Empty(t, paths)
}

func TestLocalFS_Delete(t *testing.T) {
	fs, err := NewLocalFS(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, fs.Write(ctx, "delete.txt", []byte("data")))
	require.NoError(t, fs.Delete(ctx, "delete.txt"))

	exists, err := fs.Exists(ctx, "delete.txt")
	require.NoError(t, err)
	assert.False(t, exists)
	assert.NoError(t, fs.Delete(ctx, "delete.txt"), "deleting twice is not an error")
}

func TestLocalFS_Canceled(t *testing.T) {
	fs, err := NewLocalFS(t.TempDir())
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, fs.Write(ctx, "a.txt", []byte("a")), context.Canceled)
}

func TestNew(t *testing.T) {
	s, err := New(Config{Type: "localfs", Path: t.TempDir()})
	require.NoError(t, err)
	assert.IsType(t, &LocalFS{}, s)

	s, err = New(Config{Type: "s3", S3: S3Config{Bucket: "runs", Region: "us-east-1"}})
	require.NoError(t, err)
	assert.IsType(t, &S3Storage{}, s)

	_, err = New(Config{Type: "s3"})
	assert.Error(t, err)
	_, err = New(Config{Type: "ftp"})
	assert.Error(t, err)
}
