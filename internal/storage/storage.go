// Package storage contains the object storage abstraction for canonical
// listing images. Blobs are content-addressed: the key embeds the SHA-256 of
// the bytes, so identical images land on the same key and a re-store is a
// no-op. Implementations must rely on streaming I/O only.
package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"time"
)

// PutObjectOptions define optional parameters for uploading objects.
// Size should be the exact number of bytes if known; if unknown, set to -1 and
// the implementation will buffer/chunk as supported by the backend.
type PutObjectOptions struct {
	Size        int64
	ContentType string
	Metadata    map[string]string
}

// ObjectInfo contains basic information about an object in storage.
type ObjectInfo struct {
	Key          string
	Size         int64
	ETag         string
	ContentType  string
	LastModified time.Time
	Metadata     map[string]string
}

// Storage is an S3-compatible object storage client for canonical image blobs.
type Storage interface {
	// Put uploads an object under the given key using the provided reader and options.
	Put(ctx context.Context, key string, r io.Reader, opt PutObjectOptions) (ObjectInfo, error)
	// Get retrieves an object's content as a streaming reader alongside its info.
	Get(ctx context.Context, key string) (io.ReadCloser, ObjectInfo, error)
	// Exists reports whether an object is already stored under the key.
	Exists(ctx context.Context, key string) (bool, error)
	// Delete removes an object by key.
	Delete(ctx context.Context, key string) error
	// PresignGet returns a time-limited URL that can be used to download the object without credentials.
	PresignGet(ctx context.Context, key string, expiry time.Duration) (string, error)
}

// HashBytes returns the lowercase hex SHA-256 of b. It is the integrity
// checksum recorded next to every stored image and the address component of
// its object key.
func HashBytes(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// ImageKey builds the content-addressed object key for a canonical image.
func ImageKey(accountID, sha string) string {
	return fmt.Sprintf("originals/%s/%s.jpg", accountID, sha)
}
