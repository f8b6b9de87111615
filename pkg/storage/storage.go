// Package storage defines the blob capability the inventory core depends on.
// The backend is chosen once at startup and injected; the core never probes
// for SDK availability at call time.
package storage

import "context"

// Store persists image blobs and resolves them by their public URL.
type Store interface {
	// Put writes the blob under folder/filename and returns its public URL.
	Put(ctx context.Context, data []byte, folder, filename string) (string, error)
	// Fetch reads back the blob previously stored at url.
	Fetch(ctx context.Context, url string) ([]byte, error)
	// Delete removes the blob at url.
	Delete(ctx context.Context, url string) error
}
