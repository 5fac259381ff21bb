// Package storage defines the Provider interface for blob storage backends.
package storage

import (
	"context"
	"io"
)

// Provider abstracts blob storage operations.
type Provider interface {
	// Put writes data to storage under the given key, replacing any
	// previous object.
	Put(ctx context.Context, key string, reader io.Reader) error
	// Open returns a reader for the given storage key.
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	// Delete removes the object at key. Deleting an absent object is not
	// an error.
	Delete(ctx context.Context, key string) error
}
