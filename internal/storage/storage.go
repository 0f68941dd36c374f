// Package storage is a small client for S3-style object stores.
//
// A Client validates arguments, applies paging and content-type defaults and
// translates failures into a typed ErrorKind. The wire work is done by a
// Backend: S3, MinIO, GCS, a local directory tree or process memory.
package storage

import (
	"context"
	"time"
)

const (
	DefaultContentType = "application/octet-stream"
	DefaultMaxKeys     = 1000
)

// ObjectMetadata describes a stored object. It is produced by Head, Get and
// listings; callers never build one to send to the store.
type ObjectMetadata struct {
	Key          string
	Size         int64
	LastModified time.Time
	ETag         string
	ContentType  string
}

type Object struct {
	ObjectMetadata
	Content []byte
}

// Page is one listing result in store order. An empty NextToken means the
// listing is exhausted; a page may be empty and still carry a token.
type Page struct {
	Objects   []ObjectMetadata
	NextToken string
}

type PutOptions struct {
	// ContentType defaults to DefaultContentType.
	ContentType string
}

type ListOptions struct {
	// Prefix filters the first page. It is not sent with a continuation
	// token, the token already carries the filtered position.
	Prefix string
	// MaxKeys caps the page size. Zero means DefaultMaxKeys, negative values
	// are rejected.
	MaxKeys int
	// ContinuationToken resumes a listing from Page.NextToken.
	ContinuationToken string
}

// ListRequest is what a Client hands a Backend after defaults are applied.
// Exactly one of Prefix or ContinuationToken is meaningful.
type ListRequest struct {
	Prefix            string
	MaxKeys           int
	ContinuationToken string
}

// Backend is the transport to a remote store. Implementations must be safe
// for concurrent use and must report failures as *Error values carrying the
// matching ErrorKind.
type Backend interface {
	Put(ctx context.Context, bucket, key string, content []byte, contentType string) error
	Get(ctx context.Context, bucket, key string) (*Object, error)
	Head(ctx context.Context, bucket, key string) (ObjectMetadata, error)
	ListPage(ctx context.Context, bucket string, req ListRequest) (Page, error)
	Delete(ctx context.Context, bucket, key string) error
}
