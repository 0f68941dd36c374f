package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	appconfig "objstore/internal/config"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioAPI is the part of minio-go the MinIO backend uses. GetObject returns
// the object's stat alongside the body so one call yields both.
type MinioAPI interface {
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	GetObject(ctx context.Context, bucketName, objectName string, opts minio.GetObjectOptions) (io.ReadCloser, minio.ObjectInfo, error)
	StatObject(ctx context.Context, bucketName, objectName string, opts minio.StatObjectOptions) (minio.ObjectInfo, error)
	RemoveObject(ctx context.Context, bucketName, objectName string, opts minio.RemoveObjectOptions) error
	ListObjectsV2(ctx context.Context, bucketName, prefix, continuationToken string, maxKeys int) (minio.ListBucketV2Result, error)
}

type MinioBackend struct {
	api MinioAPI
}

func NewMinioBackend(cfg appconfig.StoreConfig) (*MinioBackend, error) {
	endpoint := strings.TrimPrefix(cfg.Endpoint, "http://")
	endpoint = strings.TrimPrefix(endpoint, "https://")
	endpoint = strings.TrimSuffix(endpoint, "/")
	if endpoint == "" {
		return nil, errors.New("minio endpoint is required")
	}

	timeout := cfg.RequestTimeout.Duration
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   timeout,
		ExpectContinueTimeout: 1 * time.Second,
		ResponseHeaderTimeout: timeout,
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:     credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure:    cfg.UseSSL,
		Region:    cfg.Region,
		Transport: transport,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	return NewMinioBackendFromAPI(&minioClientWrapper{Client: client}), nil
}

func NewMinioBackendFromAPI(api MinioAPI) *MinioBackend {
	return &MinioBackend{api: api}
}

func (b *MinioBackend) Put(ctx context.Context, bucket, key string, content []byte, contentType string) error {
	_, err := b.api.PutObject(ctx, bucket, key, bytes.NewReader(content), int64(len(content)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return minioError(err)
	}
	return nil
}

func (b *MinioBackend) Get(ctx context.Context, bucket, key string) (*Object, error) {
	body, info, err := b.api.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, minioError(err)
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, minioError(err)
	}

	meta := minioMetadata(info)
	meta.Key = key
	meta.Size = int64(len(data))
	return &Object{ObjectMetadata: meta, Content: data}, nil
}

func (b *MinioBackend) Head(ctx context.Context, bucket, key string) (ObjectMetadata, error) {
	info, err := b.api.StatObject(ctx, bucket, key, minio.StatObjectOptions{})
	if err != nil {
		return ObjectMetadata{}, minioError(err)
	}
	meta := minioMetadata(info)
	meta.Key = key
	return meta, nil
}

func (b *MinioBackend) ListPage(ctx context.Context, bucket string, req ListRequest) (Page, error) {
	prefix, token, err := resolveListRequest(req)
	if err != nil {
		return Page{}, err
	}

	result, err := b.api.ListObjectsV2(ctx, bucket, prefix, token, req.MaxKeys)
	if err != nil {
		return Page{}, minioError(err)
	}

	page := Page{Objects: make([]ObjectMetadata, 0, len(result.Contents))}
	for _, info := range result.Contents {
		page.Objects = append(page.Objects, minioMetadata(info))
	}
	if result.IsTruncated && result.NextContinuationToken != "" {
		page.NextToken = encodeCursor(cursor{Prefix: prefix, Position: result.NextContinuationToken})
	}
	return page, nil
}

func (b *MinioBackend) Delete(ctx context.Context, bucket, key string) error {
	if err := b.api.RemoveObject(ctx, bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return minioError(err)
	}
	return nil
}

func minioMetadata(info minio.ObjectInfo) ObjectMetadata {
	return ObjectMetadata{
		Key:          info.Key,
		Size:         info.Size,
		LastModified: info.LastModified,
		ETag:         info.ETag,
		ContentType:  info.ContentType,
	}
}

func minioError(err error) error {
	resp := minio.ToErrorResponse(err)
	switch resp.Code {
	case "NoSuchKey", "NotFound":
		return newError(KindNotFound, err)
	case "NoSuchBucket":
		return newError(KindBucketNotFound, err)
	case "AccessDenied", "InvalidAccessKeyId", "SignatureDoesNotMatch", "ExpiredToken":
		return newError(KindPermission, err)
	case "InvalidArgument", "InvalidBucketName", "KeyTooLongError", "XMinioInvalidObjectName":
		return newError(KindValidation, err)
	}
	switch resp.StatusCode {
	case http.StatusNotFound:
		return newError(KindNotFound, err)
	case http.StatusUnauthorized, http.StatusForbidden:
		return newError(KindPermission, err)
	}

	var urlErr *url.Error
	var netErr net.Error
	if errors.As(err, &urlErr) || errors.As(err, &netErr) ||
		errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return newError(KindTransport, err)
	}
	return newError(KindStore, err)
}

type minioClientWrapper struct {
	*minio.Client
}

func (c *minioClientWrapper) GetObject(ctx context.Context, bucketName, objectName string, opts minio.GetObjectOptions) (io.ReadCloser, minio.ObjectInfo, error) {
	obj, err := c.Client.GetObject(ctx, bucketName, objectName, opts)
	if err != nil {
		return nil, minio.ObjectInfo{}, err
	}
	// minio defers the request until the first read or stat.
	info, err := obj.Stat()
	if err != nil {
		_ = obj.Close()
		return nil, minio.ObjectInfo{}, err
	}
	return obj, info, nil
}

// ListObjectsV2 reads one page from the context-aware ListObjects stream.
// The continuation token is the last key returned, sent as start-after.
func (c *minioClientWrapper) ListObjectsV2(ctx context.Context, bucketName, prefix, continuationToken string, maxKeys int) (minio.ListBucketV2Result, error) {
	if maxKeys <= 0 {
		maxKeys = DefaultMaxKeys
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	objects := c.Client.ListObjects(ctx, bucketName, minio.ListObjectsOptions{
		Prefix:     prefix,
		Recursive:  true,
		StartAfter: continuationToken,
		MaxKeys:    maxKeys,
	})

	var result minio.ListBucketV2Result
	for obj := range objects {
		if obj.Err != nil {
			return minio.ListBucketV2Result{}, obj.Err
		}
		if len(result.Contents) == maxKeys {
			result.IsTruncated = true
			result.NextContinuationToken = result.Contents[maxKeys-1].Key
			break
		}
		result.Contents = append(result.Contents, obj)
	}
	// the stream also closes quietly when ctx ends
	if !result.IsTruncated {
		if err := ctx.Err(); err != nil {
			return minio.ListBucketV2Result{}, err
		}
	}
	return result, nil
}
