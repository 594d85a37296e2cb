// Package store defines the object-store boundary: a small key/value blob
// interface with list, get, conditional put and bucket management, plus an
// S3-compatible implementation speaking presigned requests and an in-memory
// implementation for tests.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ObjectInfo describes one stored object as reported by a listing.
type ObjectInfo struct {
	Key          string
	Size         int64
	LastModified time.Time
	ETag         string
}

// Object is a fetched object with the metadata needed for conditional
// writes against it.
type Object struct {
	Data         []byte
	ETag         string
	ContentType  string
	LastModified time.Time
}

// PutOptions carries the content type and optional write preconditions.
type PutOptions struct {
	ContentType string
	// IfMatch makes the write conditional on the stored object's ETag.
	IfMatch string
	// IfNoneMatchAny makes the write conditional on the key not existing.
	IfNoneMatchAny bool
}

// Client is the capability set the registry consumes from an object store.
type Client interface {
	// ListObjects enumerates every object in the bucket.
	ListObjects(ctx context.Context) ([]ObjectInfo, error)
	// GetObject fetches an object; a missing key yields ErrObjectNotFound.
	GetObject(ctx context.Context, key string) (*Object, error)
	// PutObject stores an object, honoring any preconditions in opts; a
	// failed precondition yields ErrPreconditionFailed.
	PutObject(ctx context.Context, key string, data []byte, opts PutOptions) error
	// BucketExists reports whether the backing bucket exists.
	BucketExists(ctx context.Context) (bool, error)
	// EnsureBucket creates the backing bucket if it does not exist.
	EnsureBucket(ctx context.Context) error
}

var (
	ErrObjectNotFound     = errors.New("object not found")
	ErrPreconditionFailed = errors.New("precondition failed")
)

// TransportError reports a network or non-success HTTP failure at the
// object-store boundary. Operations are never retried; the error aborts the
// caller's whole operation.
type TransportError struct {
	Op     string
	Key    string
	Status int
	Err    error
}

func (e *TransportError) Error() string {
	target := e.Op
	if e.Key != "" {
		target = fmt.Sprintf("%s %s", e.Op, e.Key)
	}
	if e.Status != 0 {
		return fmt.Sprintf("store: %s failed with status %d", target, e.Status)
	}
	return fmt.Sprintf("store: %s failed: %v", target, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }
