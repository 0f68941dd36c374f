//go:build !windows

package storage

import (
	"context"
	"testing"

	"github.com/pkg/xattr"
)

func TestLocalBackendHeadReadsStoredETag(t *testing.T) {
	ctx := context.Background()
	b := NewLocalBackend(t.TempDir())

	if err := b.Put(ctx, "b", "k", []byte("payload"), DefaultContentType); err != nil {
		t.Fatalf("put: %v", err)
	}
	path, err := b.objectPath("b", "k")
	if err != nil {
		t.Fatalf("object path: %v", err)
	}
	if err := xattr.Set(path, etagXattr, []byte(`"recorded"`)); err != nil {
		t.Skipf("user xattrs unsupported here: %v", err)
	}

	meta, err := b.Head(ctx, "b", "k")
	if err != nil {
		t.Fatalf("head: %v", err)
	}
	if meta.ETag != `"recorded"` {
		t.Fatalf("head hashed the file instead of using the stored etag: %s", meta.ETag)
	}
}
