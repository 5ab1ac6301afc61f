// Package storage defines the blob storage providers that hold rendered
// artifacts. The abstraction keeps the batch pipeline independent of a
// specific backend (Google Cloud Storage, the local filesystem, or memory).
package storage

import "context"

// Provider saves rendered artifacts.
type Provider interface {
	// Put stores data under objectName and returns a backend-specific URI
	// for the stored object.
	Put(ctx context.Context, objectName, contentType string, data []byte) (string, error)
	// Close releases any backend resources.
	Close() error
}

// NoOp discards every artifact. Useful for dry runs where icons are rendered
// but nothing is persisted.
type NoOp struct{}

// Put for NoOp drops the data and returns an empty URI.
func (NoOp) Put(_ context.Context, _, _ string, _ []byte) (string, error) {
	return "", nil
}

// Close for NoOp does nothing.
func (NoOp) Close() error { return nil }
