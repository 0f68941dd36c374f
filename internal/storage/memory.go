package storage

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"
)

// MemoryBackend keeps objects in process memory. Buckets spring into
// existence on first write.
type MemoryBackend struct {
	mu      sync.RWMutex
	buckets map[string]map[string]memoryObject
	now     func() time.Time
}

type memoryObject struct {
	content     []byte
	contentType string
	etag        string
	modified    time.Time
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		buckets: make(map[string]map[string]memoryObject),
		now:     time.Now,
	}
}

func (m *MemoryBackend) Put(_ context.Context, bucket, key string, content []byte, contentType string) error {
	sum := md5.Sum(content)
	obj := memoryObject{
		content:     append([]byte(nil), content...),
		contentType: contentType,
		etag:        `"` + hex.EncodeToString(sum[:]) + `"`,
		modified:    m.now().UTC(),
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	objects, ok := m.buckets[bucket]
	if !ok {
		objects = make(map[string]memoryObject)
		m.buckets[bucket] = objects
	}
	objects[key] = obj
	return nil
}

func (m *MemoryBackend) Get(_ context.Context, bucket, key string) (*Object, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	obj, ok := m.buckets[bucket][key]
	if !ok {
		return nil, newError(KindNotFound, errors.New("no such key"))
	}
	return &Object{
		ObjectMetadata: obj.metadata(key),
		Content:        append([]byte{}, obj.content...),
	}, nil
}

func (m *MemoryBackend) Head(_ context.Context, bucket, key string) (ObjectMetadata, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	obj, ok := m.buckets[bucket][key]
	if !ok {
		return ObjectMetadata{}, newError(KindNotFound, errors.New("no such key"))
	}
	return obj.metadata(key), nil
}

func (m *MemoryBackend) ListPage(_ context.Context, bucket string, req ListRequest) (Page, error) {
	prefix, after, err := resolveListRequest(req)
	if err != nil {
		return Page{}, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	objects := m.buckets[bucket]
	keys := make([]string, 0, len(objects))
	for key := range objects {
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
		page.Objects = append(page.Objects, objects[key].metadata(key))
	}
	return page, nil
}

func (m *MemoryBackend) Delete(_ context.Context, bucket, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	objects := m.buckets[bucket]
	if _, ok := objects[key]; !ok {
		return newError(KindNotFound, errors.New("no such key"))
	}
	delete(objects, key)
	return nil
}

func (o memoryObject) metadata(key string) ObjectMetadata {
	return ObjectMetadata{
		Key:          key,
		Size:         int64(len(o.content)),
		LastModified: o.modified,
		ETag:         o.etag,
		ContentType:  o.contentType,
	}
}
