// Package artstore holds item artwork bytes. Items reference artwork by the
// storage key returned from Save.
package artstore

import (
	"context"
	"errors"
	"io"
)

var ErrNotFound = errors.New("artwork not found")

type ArtworkStore interface {
	Save(ctx context.Context, prefix, mimeType string, r io.Reader) (storageKey string, err error)
	Get(ctx context.Context, storageKey string) (io.ReadCloser, string, error)
	Delete(ctx context.Context, storageKey string) error
}
