// Package storage persists uploaded inspection media and hands back stable
// URLs for the entry records.
package storage

import "context"

// ObjectStore writes media blobs and returns their public URLs.
type ObjectStore interface {
	// Put stores data under key and returns the URL to reference it by.
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)

	// Delete removes the object under key.
	Delete(ctx context.Context, key string) error

	// Close releases store resources.
	Close() error
}
