// Package types defines the object storage port shared by the storage
// adapters and their consumers.
package types

import (
	"context"
	"errors"
	"io"
)

var (
	// ErrObjectNotFound is returned when an object is not found in storage.
	ErrObjectNotFound = errors.New("object not found")

	// ErrInvalidKey is returned for keys that are empty, absolute or escape
	// the bucket.
	ErrInvalidKey = errors.New("invalid object key")
)

// ObjectMetadata describes an object written through Put.
type ObjectMetadata struct {
	ContentType string `json:"content_type"`

	// ContentLength is the body size in bytes, or 0 when unknown.
	ContentLength int64 `json:"content_length"`

	// UserMetadata is stored alongside the object as-is.
	UserMetadata map[string]string `json:"user_metadata,omitempty"`
}

// ObjectStorage is the write side of an object store. An empty bucket means
// the adapter's configured default.
type ObjectStorage interface {
	// Put stores the content of reader under bucket/key, replacing any
	// existing object.
	Put(ctx context.Context, bucket, key string, reader io.Reader, metadata ObjectMetadata) error

	Exists(ctx context.Context, bucket, key string) (bool, error)

	// Location returns a human readable URI for bucket/key.
	Location(bucket, key string) string
}
