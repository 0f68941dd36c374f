package storage

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// LocalBackend stores objects under rootDir, one directory per bucket:
//
//	rootDir/
//	  bucket/
//	    folder%2Fhello.txt
//
// Keys are path-escaped so "/" has no structural meaning on disk.
type LocalBackend struct {
	rootDir string
}

func NewLocalBackend(rootDir string) *LocalBackend {
	return &LocalBackend{rootDir: rootDir}
}

func (b *LocalBackend) Put(_ context.Context, bucket, key string, content []byte, contentType string) error {
	fullPath, err := b.objectPath(bucket, key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return localError(err)
	}
	if err := writeObjectFile(fullPath, content); err != nil {
		return localError(err)
	}
	if err := writeAttrs(fullPath, contentType, md5ETag(content)); err != nil {
		return localError(err)
	}
	return nil
}

func (b *LocalBackend) Get(_ context.Context, bucket, key string) (*Object, error) {
	fullPath, err := b.objectPath(bucket, key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(fullPath)
	if err != nil {
		return nil, localError(err)
	}
	info, err := os.Stat(fullPath)
	if err != nil {
		return nil, localError(err)
	}
	return &Object{
		ObjectMetadata: b.metadata(fullPath, key, info, md5ETag(data)),
		Content:        data,
	}, nil
}

func (b *LocalBackend) Head(_ context.Context, bucket, key string) (ObjectMetadata, error) {
	fullPath, err := b.objectPath(bucket, key)
	if err != nil {
		return ObjectMetadata{}, err
	}
	info, err := os.Stat(fullPath)
	if err != nil {
		return ObjectMetadata{}, localError(err)
	}
	if info.IsDir() {
		return ObjectMetadata{}, newError(KindNotFound, fmt.Errorf("%s is a directory", key))
	}
	etag, err := fileETag(fullPath)
	if err != nil {
		return ObjectMetadata{}, localError(err)
	}
	return b.metadata(fullPath, key, info, etag), nil
}

func (b *LocalBackend) ListPage(ctx context.Context, bucket string, req ListRequest) (Page, error) {
	prefix, after, err := resolveListRequest(req)
	if err != nil {
		return Page{}, err
	}
	bucketDir, err := b.bucketPath(bucket)
	if err != nil {
		return Page{}, err
	}

	entries, err := os.ReadDir(bucketDir)
	if err != nil {
		if os.IsNotExist(err) {
			return Page{Objects: []ObjectMetadata{}}, nil
		}
		return Page{}, localError(err)
	}

	keys := make([]string, 0, len(entries))
	for _, entry := range entries {
		// dot-files are in-flight or abandoned writes, keys never start with "."
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		key, err := url.PathUnescape(entry.Name())
		if err != nil {
			continue
		}
		if strings.HasPrefix(key, prefix) && key > after {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	limit := req.MaxKeys
	if limit <= 0 {
		limit = DefaultMaxKeys
	}

	page := Page{Objects: []ObjectMetadata{}}
	for i, key := range keys {
		if i == limit {
			page.NextToken = encodeCursor(cursor{Prefix: prefix, Position: keys[i-1]})
			break
		}
		if err := ctx.Err(); err != nil {
			return Page{}, newError(KindTransport, err)
		}
		meta, err := b.Head(ctx, bucket, key)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				// removed since the directory was read
				continue
			}
			return Page{}, err
		}
		page.Objects = append(page.Objects, meta)
	}
	return page, nil
}

func (b *LocalBackend) Delete(_ context.Context, bucket, key string) error {
	fullPath, err := b.objectPath(bucket, key)
	if err != nil {
		return err
	}
	if err := os.Remove(fullPath); err != nil {
		return localError(err)
	}
	return nil
}

func (b *LocalBackend) metadata(fullPath, key string, info os.FileInfo, etag string) ObjectMetadata {
	return ObjectMetadata{
		Key:          key,
		Size:         info.Size(),
		LastModified: info.ModTime().UTC().Truncate(time.Millisecond),
		ETag:         etag,
		ContentType:  readContentType(fullPath),
	}
}

func md5ETag(data []byte) string {
	sum := md5.Sum(data)
	return `"` + hex.EncodeToString(sum[:]) + `"`
}

// fileETag prefers the ETag recorded at write time and hashes the file only
// when the filesystem kept no attribute.
func fileETag(path string) (string, error) {
	if etag := readETag(path); etag != "" {
		return etag, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := md5.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return `"` + hex.EncodeToString(h.Sum(nil)) + `"`, nil
}

func (b *LocalBackend) bucketPath(bucket string) (string, error) {
	if bucket == "." || bucket == ".." || strings.ContainsAny(bucket, `/\`) {
		return "", validationError("invalid bucket name %q", bucket)
	}
	return filepath.Join(b.rootDir, bucket), nil
}

func (b *LocalBackend) objectPath(bucket, key string) (string, error) {
	bucketDir, err := b.bucketPath(bucket)
	if err != nil {
		return "", err
	}
	if key == "" {
		return "", validationError("invalid object key %q", key)
	}
	name := url.PathEscape(key)
	// a leading dot is reserved for temporary files
	if strings.HasPrefix(name, ".") {
		name = "%2E" + name[1:]
	}
	return filepath.Join(bucketDir, name), nil
}

func localError(err error) error {
	switch {
	case os.IsNotExist(err):
		return newError(KindNotFound, err)
	case os.IsPermission(err):
		return newError(KindPermission, err)
	default:
		return newError(KindStore, err)
	}
}
