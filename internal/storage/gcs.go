package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"

	appconfig "objstore/internal/config"

	gcs "cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// GCSBackend talks to Google Cloud Storage through its JSON API.
type GCSBackend struct {
	client *gcs.Client
}

func NewGCSBackend(ctx context.Context, cfg appconfig.StoreConfig) (*GCSBackend, error) {
	var opts []option.ClientOption
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint))
	}
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	} else if cfg.Endpoint != "" {
		// custom endpoints are emulators unless credentials are given
		opts = append(opts, option.WithoutAuthentication())
	}

	client, err := gcs.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create gcs client: %w", err)
	}
	return NewGCSBackendFromClient(client), nil
}

// NewGCSBackendFromClient wraps a client the caller owns.
func NewGCSBackendFromClient(client *gcs.Client) *GCSBackend {
	return &GCSBackend{client: client}
}

func (b *GCSBackend) Put(ctx context.Context, bucket, key string, content []byte, contentType string) error {
	w := b.client.Bucket(bucket).Object(key).NewWriter(ctx)
	w.ContentType = contentType
	if _, err := w.Write(content); err != nil {
		_ = w.Close()
		return gcsError(err)
	}
	if err := w.Close(); err != nil {
		return gcsError(err)
	}
	return nil
}

func (b *GCSBackend) Get(ctx context.Context, bucket, key string) (*Object, error) {
	r, err := b.client.Bucket(bucket).Object(key).NewReader(ctx)
	if err != nil {
		return nil, gcsError(err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, gcsError(err)
	}

	return &Object{
		ObjectMetadata: ObjectMetadata{
			Key:          key,
			Size:         int64(len(data)),
			LastModified: r.Attrs.LastModified,
			// the reader carries no etag, the generation identifies the content
			ETag:        strconv.FormatInt(r.Attrs.Generation, 10),
			ContentType: r.Attrs.ContentType,
		},
		Content: data,
	}, nil
}

func (b *GCSBackend) Head(ctx context.Context, bucket, key string) (ObjectMetadata, error) {
	attrs, err := b.client.Bucket(bucket).Object(key).Attrs(ctx)
	if err != nil {
		return ObjectMetadata{}, gcsError(err)
	}
	return gcsMetadata(attrs), nil
}

func (b *GCSBackend) ListPage(ctx context.Context, bucket string, req ListRequest) (Page, error) {
	prefix, token, err := resolveListRequest(req)
	if err != nil {
		return Page{}, err
	}

	it := b.client.Bucket(bucket).Objects(ctx, &gcs.Query{Prefix: prefix})
	var attrs []*gcs.ObjectAttrs
	next, err := iterator.NewPager(it, req.MaxKeys, token).NextPage(&attrs)
	if err != nil {
		return Page{}, gcsError(err)
	}

	page := Page{Objects: make([]ObjectMetadata, 0, len(attrs))}
	for _, a := range attrs {
		if a == nil || a.Name == "" {
			continue
		}
		page.Objects = append(page.Objects, gcsMetadata(a))
	}
	if next != "" {
		page.NextToken = encodeCursor(cursor{Prefix: prefix, Position: next})
	}
	return page, nil
}

func (b *GCSBackend) Delete(ctx context.Context, bucket, key string) error {
	if err := b.client.Bucket(bucket).Object(key).Delete(ctx); err != nil {
		return gcsError(err)
	}
	return nil
}

func gcsMetadata(a *gcs.ObjectAttrs) ObjectMetadata {
	return ObjectMetadata{
		Key:          a.Name,
		Size:         a.Size,
		LastModified: a.Updated,
		ETag:         a.Etag,
		ContentType:  a.ContentType,
	}
}

func gcsError(err error) error {
	switch {
	case errors.Is(err, gcs.ErrObjectNotExist):
		return newError(KindNotFound, err)
	case errors.Is(err, gcs.ErrBucketNotExist):
		return newError(KindBucketNotFound, err)
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusNotFound:
			return newError(KindNotFound, err)
		case http.StatusUnauthorized, http.StatusForbidden:
			return newError(KindPermission, err)
		case http.StatusBadRequest:
			return newError(KindValidation, err)
		}
		return newError(KindStore, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return newError(KindTransport, err)
	}
	return newError(KindStore, err)
}
