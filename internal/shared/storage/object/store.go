package object

import (
	"context"
	"errors"
	"io"
)

var (
	// ErrNotFound is returned when no object exists under a key.
	ErrNotFound = errors.New("object not found")
	// ErrAlreadyExists is returned by a create-if-absent Put when the key is taken.
	ErrAlreadyExists = errors.New("object already exists")
)

// PutInput describes a single object write.
type PutInput struct {
	Key         string
	ContentType string
	Size        int64
	Body        io.Reader
	// Progress, if set, is called after every chunk handed to the backend.
	Progress ProgressFunc
	// IfAbsent asks the backend to fail with ErrAlreadyExists instead of
	// overwriting. Backends without an atomic primitive fall back to probing.
	IfAbsent bool
}

// ObjectStore defines the contract for storing and resolving binary objects by key.
type ObjectStore interface {
	// Exists probes a key. A missing object is (false, nil).
	Exists(ctx context.Context, key string) (bool, error)
	// Put writes an object and returns the number of bytes written.
	Put(ctx context.Context, in PutInput) (int64, error)
	// URL returns a download URL for key, or ErrNotFound.
	URL(ctx context.Context, key string) (string, error)
	// Delete removes key. Deleting a missing object returns nil or ErrNotFound.
	Delete(ctx context.Context, key string) error
}
