package storage

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSharedDiskStorage(t *testing.T) {
	store := NewSharedDisk(t.TempDir())

	path := MediaPath(7, "tomato.jpg")
	assert.Equal(t, "media/post-7/tomato.jpg", path)

	exists, err := store.Exists(path)
	require.NoError(t, err)
	assert.False(t, exists)

	data := []byte("fake jpeg bytes")
	require.NoError(t, store.Write(path, bytes.NewReader(data)))

	exists, err = store.Exists(path)
	require.NoError(t, err)
	assert.True(t, exists)

	size, err := store.Size(path)
	require.NoError(t, err)
	assert.Equal(t, int64(len(data)), size)

	file, err := store.Read(path)
	require.NoError(t, err)
	readBack, err := io.ReadAll(file)
	require.NoError(t, err)
	require.NoError(t, file.Close())
	assert.Equal(t, data, readBack)

	usage, err := store.Usage()
	require.NoError(t, err)
	assert.Greater(t, usage.TotalBytes, uint64(0))

	require.NoError(t, store.Delete(path))
	exists, err = store.Exists(path)
	require.NoError(t, err)
	assert.False(t, exists)
}
