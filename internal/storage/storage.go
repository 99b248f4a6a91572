package storage

import (
	"context"
	"errors"
)

// ErrObjectNotFound is returned by Mirror.Fetch when no copy exists yet.
var ErrObjectNotFound = errors.New("object not found")

// Mirror keeps a remote copy of the user document.
type Mirror interface {
	Push(ctx context.Context, key string, body []byte) error
	Fetch(ctx context.Context, key string) ([]byte, error)
}
