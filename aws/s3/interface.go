//go:generate mockgen -package mocks -destination mocks/interface.go -source=interface.go
package s3

import (
	"errors"
	"io"

	"golang.org/x/net/context"
)

var ErrKeyNotFound = errors.New("key not found")

type BasicClient interface {
	Checker
	Opener
	Putter
}

type Checker interface {
	// Exists returns false without error if the given key doesn't exist.
	Exists(ctx context.Context, key string) (bool, error)
}

type Opener interface {
	// Open returns ErrKeyNotFound if the given key doesn't exist.
	// Callers must close the returned reader.
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

type Putter interface {
	Put(ctx context.Context, key string, data []byte) (err error)
}
