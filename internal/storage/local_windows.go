//go:build windows

package storage

import "os"

func writeObjectFile(path string, data []byte) error {
	return os.WriteFile(path, data, 0o600)
}

func writeAttrs(string, string, string) error {
	return nil
}

func readContentType(string) string {
	return DefaultContentType
}

func readETag(string) string {
	return ""
}
