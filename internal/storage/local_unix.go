//go:build !windows

package storage

import (
	"errors"
	"syscall"

	"github.com/google/renameio/v2"
	"github.com/pkg/xattr"
)

const (
	contentTypeXattr = "user.objstore.content_type"
	etagXattr        = "user.objstore.etag"
)

func writeObjectFile(path string, data []byte) error {
	return renameio.WriteFile(path, data, 0o600)
}

// writeAttrs records the content type and ETag on the object file.
// Filesystems without user xattrs keep the data; reads then fall back to
// DefaultContentType and to hashing the file.
func writeAttrs(path, contentType, etag string) error {
	if !xattr.XATTR_SUPPORTED {
		return nil
	}
	for name, value := range map[string]string{contentTypeXattr: contentType, etagXattr: etag} {
		err := xattr.Set(path, name, []byte(value))
		if errors.Is(err, syscall.ENOTSUP) || errors.Is(err, syscall.EPERM) {
			return nil
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func readContentType(path string) string {
	if ct := readXattr(path, contentTypeXattr); ct != "" {
		return ct
	}
	return DefaultContentType
}

func readETag(path string) string {
	return readXattr(path, etagXattr)
}

func readXattr(path, name string) string {
	if !xattr.XATTR_SUPPORTED {
		return ""
	}
	raw, err := xattr.Get(path, name)
	if err != nil {
		return ""
	}
	return string(raw)
}
