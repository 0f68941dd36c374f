package storage

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
)

// Client is safe for concurrent use. It holds no state besides its backend
// and logger; consistency of concurrent writes is left to the store.
type Client struct {
	backend Backend
	logger  *zap.Logger
}

type Option func(*Client)

func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// New wraps a backend the caller already built. The caller owns its lifetime.
func New(backend Backend, opts ...Option) *Client {
	c := &Client{backend: backend, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Put creates or replaces the object at bucket/key. Empty content is a valid
// zero-length object.
func (c *Client) Put(ctx context.Context, bucket, key string, content []byte, opts PutOptions) error {
	const op = "put object"
	if err := c.checkTarget(op, bucket, key); err != nil {
		return err
	}

	contentType := strings.TrimSpace(opts.ContentType)
	if contentType == "" {
		contentType = DefaultContentType
	}
	if content == nil {
		content = []byte{}
	}

	if err := c.backend.Put(ctx, bucket, key, content, contentType); err != nil {
		return annotate(op, bucket, key, err)
	}
	c.logger.Debug("object stored",
		zap.String("bucket", bucket),
		zap.String("key", key),
		zap.Int("size", len(content)),
		zap.String("content_type", contentType),
	)
	return nil
}

// Get fetches body and metadata in one call. Not-found is returned as an
// error of KindNotFound.
func (c *Client) Get(ctx context.Context, bucket, key string) (*Object, error) {
	const op = "get object"
	if err := c.checkTarget(op, bucket, key); err != nil {
		return nil, err
	}

	obj, err := c.backend.Get(ctx, bucket, key)
	if err != nil {
		return nil, annotate(op, bucket, key, err)
	}
	if obj == nil {
		return nil, annotate(op, bucket, key, newError(KindStore, errors.New("store returned no object")))
	}
	if obj.Key == "" {
		obj.Key = key
	}
	c.logger.Debug("object fetched",
		zap.String("bucket", bucket),
		zap.String("key", key),
		zap.Int("size", len(obj.Content)),
	)
	return obj, nil
}

func (c *Client) Head(ctx context.Context, bucket, key string) (ObjectMetadata, error) {
	const op = "head object"
	if err := c.checkTarget(op, bucket, key); err != nil {
		return ObjectMetadata{}, err
	}

	meta, err := c.backend.Head(ctx, bucket, key)
	if err != nil {
		return ObjectMetadata{}, annotate(op, bucket, key, err)
	}
	if meta.Key == "" {
		meta.Key = key
	}
	return meta, nil
}

// Exists probes metadata only. A not-found answer is false; every other
// failure, a missing bucket included, is returned.
func (c *Client) Exists(ctx context.Context, bucket, key string) (bool, error) {
	if _, err := c.Head(ctx, bucket, key); err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// ListPage returns one page of object metadata in the order the store
// returned it.
func (c *Client) ListPage(ctx context.Context, bucket string, opts ListOptions) (Page, error) {
	const op = "list objects"
	if err := c.checkBucket(op, bucket); err != nil {
		return Page{}, err
	}
	if opts.MaxKeys < 0 {
		return Page{}, annotate(op, bucket, "", validationError("max keys must be >= 0, got %d", opts.MaxKeys))
	}

	req := ListRequest{MaxKeys: opts.MaxKeys}
	if req.MaxKeys == 0 {
		req.MaxKeys = DefaultMaxKeys
	}
	if opts.ContinuationToken != "" {
		req.ContinuationToken = opts.ContinuationToken
	} else {
		req.Prefix = opts.Prefix
	}

	page, err := c.backend.ListPage(ctx, bucket, req)
	if err != nil {
		return Page{}, annotate(op, bucket, "", err)
	}
	if page.Objects == nil {
		page.Objects = []ObjectMetadata{}
	}
	c.logger.Debug("objects listed",
		zap.String("bucket", bucket),
		zap.String("prefix", req.Prefix),
		zap.Int("count", len(page.Objects)),
		zap.Bool("truncated", page.NextToken != ""),
	)
	return page, nil
}

// Walk calls fn for every object under prefix, one page at a time. It stops
// at the first error from fn or the store.
func (c *Client) Walk(ctx context.Context, bucket, prefix string, fn func(ObjectMetadata) error) error {
	opts := ListOptions{Prefix: prefix}
	for {
		page, err := c.ListPage(ctx, bucket, opts)
		if err != nil {
			return err
		}
		for _, obj := range page.Objects {
			if err := fn(obj); err != nil {
				return err
			}
		}
		if page.NextToken == "" {
			return nil
		}
		if page.NextToken == opts.ContinuationToken {
			return annotate("list objects", bucket, "", newError(KindStore, errors.New("listing did not advance")))
		}
		opts = ListOptions{ContinuationToken: page.NextToken}
	}
}

// Delete removes bucket/key if present. Deleting a missing key succeeds.
func (c *Client) Delete(ctx context.Context, bucket, key string) error {
	const op = "delete object"
	if err := c.checkTarget(op, bucket, key); err != nil {
		return err
	}

	if err := c.backend.Delete(ctx, bucket, key); err != nil && !errors.Is(err, ErrNotFound) {
		return annotate(op, bucket, key, err)
	}
	c.logger.Debug("object deleted", zap.String("bucket", bucket), zap.String("key", key))
	return nil
}

func (c *Client) checkBucket(op, bucket string) error {
	if c.backend == nil {
		return annotate(op, bucket, "", newError(KindStore, errors.New("storage backend is not configured")))
	}
	if strings.TrimSpace(bucket) == "" {
		return annotate(op, bucket, "", validationError("bucket is required"))
	}
	return nil
}

func (c *Client) checkTarget(op, bucket, key string) error {
	if err := c.checkBucket(op, bucket); err != nil {
		return err
	}
	if key == "" {
		return annotate(op, bucket, key, validationError("object key is required"))
	}
	return nil
}
