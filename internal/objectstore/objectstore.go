// Package objectstore abstracts the durable blob storage that holds
// published HTML snapshots and uploaded asset files. Keys are
// caller-constructed strings; the store offers no transactions and no
// versioning of its own.
package objectstore

import (
	"context"
	"errors"
)

// ErrObjectNotFound is returned by Get for a missing key.
var ErrObjectNotFound = errors.New("object not found")

type Store interface {
	Put(ctx context.Context, key string, body []byte, contentType string) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
	List(ctx context.Context, keyPrefix string) ([]string, error)
}
