// Package storage persists uploaded recordings in an object store. The S3
// implementation covers production (and any S3-compatible endpoint); the
// local implementation keeps files on disk for development and tests.
package storage

import "context"

// Object describes a stored file.
type Object struct {
	Key  string
	URL  string
	Size int64
}

// FileStore is the object-storage boundary the recording lifecycle depends
// on. Implementations must be safe for concurrent use.
type FileStore interface {
	// Upload stores data under folder/name and returns the object with its
	// publicly reachable URL.
	Upload(ctx context.Context, data []byte, name, mimeType, folder string) (Object, error)

	// Fetch reads a stored object back in full.
	// If the object does not exist, an error wrapping os.ErrNotExist is returned.
	Fetch(ctx context.Context, key string) ([]byte, error)

	// Delete removes the object (idempotent).
	Delete(ctx context.Context, key string) error
}
