package storage

import (
	"fmt"
	"io"
	"path/filepath"
)

type UsageStats struct {
	TotalBytes uint64
	FreeBytes  uint64
}

// Storage holds the media bytes for shared posts. Rows in the database keep
// only a path reference into this storage.
type Storage interface {
	Read(path string) (io.ReadCloser, error)

	Write(path string, data io.Reader) error

	Delete(path string) error

	Exists(path string) (bool, error)

	Size(path string) (int64, error)

	Usage() (UsageStats, error)

	Location() string
}

// MediaPath is the storage path for a media file of a shared post.
func MediaPath(postId int, fileName string) string {
	return filepath.Join("media", fmt.Sprintf("post-%d", postId), fileName)
}
