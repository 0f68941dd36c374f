package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"
	"time"

	appconfig "objstore/internal/config"
	"objstore/internal/storage/mocks"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestNewMinioBackend(t *testing.T) {
	_, err := NewMinioBackend(appconfig.StoreConfig{Driver: appconfig.DriverMinio})
	assert.ErrorContains(t, err, "minio endpoint is required")

	b, err := NewMinioBackend(appconfig.StoreConfig{
		Driver:    appconfig.DriverMinio,
		Endpoint:  "http://localhost:9000/",
		AccessKey: "minioadmin",
		SecretKey: "minioadmin",
	})
	require.NoError(t, err)
	assert.NotNil(t, b.api)
}

func TestMinioPut(t *testing.T) {
	api := new(mocks.MinioAPI)
	api.On("PutObject", mock.Anything, "assets", "hello.txt", mock.Anything, int64(13),
		mock.MatchedBy(func(opts minio.PutObjectOptions) bool {
			return opts.ContentType == "text/plain"
		})).Return(minio.UploadInfo{}, nil)

	c := New(NewMinioBackendFromAPI(api))
	err := c.Put(context.Background(), "assets", "hello.txt", []byte("Hello, World!"), PutOptions{ContentType: "text/plain"})
	assert.NoError(t, err)
	api.AssertExpectations(t)
}

func TestMinioGetAndHead(t *testing.T) {
	modified := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	info := minio.ObjectInfo{Key: "hello.txt", Size: 13, ETag: "abc", ContentType: "text/plain", LastModified: modified}

	api := new(mocks.MinioAPI)
	api.On("GetObject", mock.Anything, "assets", "hello.txt", mock.Anything).
		Return(io.NopCloser(strings.NewReader("Hello, World!")), info, nil)
	api.On("StatObject", mock.Anything, "assets", "hello.txt", mock.Anything).Return(info, nil)

	c := New(NewMinioBackendFromAPI(api))

	obj, err := c.Get(context.Background(), "assets", "hello.txt")
	require.NoError(t, err)
	assert.Equal(t, "Hello, World!", string(obj.Content))
	assert.Equal(t, int64(13), obj.Size)
	assert.Equal(t, "abc", obj.ETag)
	assert.Equal(t, modified, obj.LastModified)

	meta, err := c.Head(context.Background(), "assets", "hello.txt")
	require.NoError(t, err)
	assert.Equal(t, "text/plain", meta.ContentType)
	api.AssertExpectations(t)
}

func TestMinioExistsAndErrors(t *testing.T) {
	t.Run("missing key", func(t *testing.T) {
		api := new(mocks.MinioAPI)
		api.On("StatObject", mock.Anything, "assets", "gone", mock.Anything).
			Return(minio.ObjectInfo{}, minio.ErrorResponse{Code: "NoSuchKey", StatusCode: http.StatusNotFound})

		ok, err := New(NewMinioBackendFromAPI(api)).Exists(context.Background(), "assets", "gone")
		assert.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("missing bucket", func(t *testing.T) {
		api := new(mocks.MinioAPI)
		api.On("StatObject", mock.Anything, "nope", "k", mock.Anything).
			Return(minio.ObjectInfo{}, minio.ErrorResponse{Code: "NoSuchBucket", StatusCode: http.StatusNotFound})

		_, err := New(NewMinioBackendFromAPI(api)).Exists(context.Background(), "nope", "k")
		assert.ErrorIs(t, err, ErrBucketNotFound)
	})

	t.Run("access denied", func(t *testing.T) {
		api := new(mocks.MinioAPI)
		api.On("GetObject", mock.Anything, "assets", "k", mock.Anything).
			Return(nil, minio.ObjectInfo{}, minio.ErrorResponse{Code: "AccessDenied", StatusCode: http.StatusForbidden})

		_, err := New(NewMinioBackendFromAPI(api)).Get(context.Background(), "assets", "k")
		assert.ErrorIs(t, err, ErrPermission)
		assert.ErrorContains(t, err, "get object assets/k")
	})

	t.Run("deadline", func(t *testing.T) {
		assert.Equal(t, KindTransport, KindOf(minioError(context.DeadlineExceeded)))
		assert.Equal(t, KindStore, KindOf(minioError(errors.New("boom"))))
	})
}

func TestMinioDeleteIsIdempotent(t *testing.T) {
	api := new(mocks.MinioAPI)
	api.On("RemoveObject", mock.Anything, "assets", "a", mock.Anything).Return(nil)
	api.On("RemoveObject", mock.Anything, "assets", "b", mock.Anything).
		Return(minio.ErrorResponse{Code: "NoSuchKey", StatusCode: http.StatusNotFound})
	api.On("RemoveObject", mock.Anything, "assets", "c", mock.Anything).
		Return(minio.ErrorResponse{Code: "InternalError", StatusCode: http.StatusInternalServerError})

	c := New(NewMinioBackendFromAPI(api))
	assert.NoError(t, c.Delete(context.Background(), "assets", "a"))
	assert.NoError(t, c.Delete(context.Background(), "assets", "b"))

	err := c.Delete(context.Background(), "assets", "c")
	assert.Error(t, err)
	assert.Equal(t, KindStore, KindOf(err))
}

func TestMinioListPagination(t *testing.T) {
	api := new(mocks.MinioAPI)
	api.On("ListObjectsV2", mock.Anything, "assets", "logs/", "", 2).Return(minio.ListBucketV2Result{
		Contents:              []minio.ObjectInfo{{Key: "logs/1", Size: 1}, {Key: "logs/2", Size: 2}},
		IsTruncated:           true,
		NextContinuationToken: "minio-next",
	}, nil)
	api.On("ListObjectsV2", mock.Anything, "assets", "logs/", "minio-next", 2).Return(minio.ListBucketV2Result{
		Contents: []minio.ObjectInfo{{Key: "logs/3", Size: 3}},
	}, nil)

	c := New(NewMinioBackendFromAPI(api))

	first, err := c.ListPage(context.Background(), "assets", ListOptions{Prefix: "logs/", MaxKeys: 2})
	require.NoError(t, err)
	assert.Equal(t, []string{"logs/1", "logs/2"}, keysOf(first.Objects))
	require.NotEmpty(t, first.NextToken)

	second, err := c.ListPage(context.Background(), "assets", ListOptions{MaxKeys: 2, ContinuationToken: first.NextToken})
	require.NoError(t, err)
	assert.Equal(t, []string{"logs/3"}, keysOf(second.Objects))
	assert.Empty(t, second.NextToken)
	api.AssertExpectations(t)
}

// newFakeS3Listing serves ListObjectsV2 for one bucket. It ignores max-keys
// and honors prefix and start-after.
func newFakeS3Listing(t *testing.T, keys ...string) *httptest.Server {
	t.Helper()
	sort.Strings(keys)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if r.Method != http.MethodGet || q.Get("list-type") != "2" {
			http.Error(w, "unexpected request", http.StatusNotImplemented)
			return
		}
		var body strings.Builder
		body.WriteString(`<?xml version="1.0" encoding="UTF-8"?><ListBucketResult xmlns="http://s3.amazonaws.com/doc/2006-03-01/">`)
		body.WriteString(`<Name>assets</Name><IsTruncated>false</IsTruncated>`)
		for _, key := range keys {
			if !strings.HasPrefix(key, q.Get("prefix")) || key <= q.Get("start-after") {
				continue
			}
			fmt.Fprintf(&body, `<Contents><Key>%s</Key><LastModified>2026-01-02T03:04:05.000Z</LastModified><ETag>"e"</ETag><Size>1</Size></Contents>`, key)
		}
		body.WriteString(`</ListBucketResult>`)
		w.Header().Set("Content-Type", "application/xml")
		_, _ = io.WriteString(w, body.String())
	}))
	t.Cleanup(server.Close)
	return server
}

func TestMinioClientListPagesAgainstServer(t *testing.T) {
	server := newFakeS3Listing(t, "logs/1", "logs/2", "logs/3", "other/1")
	b, err := NewMinioBackend(appconfig.StoreConfig{
		Driver:   appconfig.DriverMinio,
		Endpoint: server.URL,
		Region:   "us-east-1",
	})
	require.NoError(t, err)
	c := New(b)

	var seen []string
	opts := ListOptions{Prefix: "logs/", MaxKeys: 2}
	for i := 0; i < 5; i++ {
		page, err := c.ListPage(context.Background(), "assets", opts)
		require.NoError(t, err)
		seen = append(seen, keysOf(page.Objects)...)
		if page.NextToken == "" {
			break
		}
		opts = ListOptions{MaxKeys: 2, ContinuationToken: page.NextToken}
	}
	assert.Equal(t, []string{"logs/1", "logs/2", "logs/3"}, seen)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = c.ListPage(ctx, "assets", ListOptions{})
	assert.ErrorIs(t, err, ErrTransport)
}
