package storage

import (
	"context"
	"strings"
	"testing"

	appconfig "objstore/internal/config"
)

func TestNewBackendSelectsDriver(t *testing.T) {
	ctx := context.Background()

	b, err := NewBackend(ctx, appconfig.StoreConfig{Driver: appconfig.DriverMemory}, "")
	if err != nil {
		t.Fatalf("memory backend: %v", err)
	}
	if _, ok := b.(*MemoryBackend); !ok {
		t.Fatalf("expected memory backend, got %T", b)
	}

	root := t.TempDir()
	b, err = NewBackend(ctx, appconfig.StoreConfig{Driver: appconfig.DriverLocal}, root)
	if err != nil {
		t.Fatalf("local backend: %v", err)
	}
	local, ok := b.(*LocalBackend)
	if !ok {
		t.Fatalf("expected local backend, got %T", b)
	}
	if local.rootDir != root {
		t.Fatalf("root mismatch: got %q want %q", local.rootDir, root)
	}

	override := t.TempDir()
	b, err = NewBackend(ctx, appconfig.StoreConfig{Driver: appconfig.DriverLocal, RootDir: override}, root)
	if err != nil {
		t.Fatalf("local backend with root: %v", err)
	}
	if got := b.(*LocalBackend).rootDir; got != override {
		t.Fatalf("configured root ignored: got %q", got)
	}
}

func TestNewBackendErrors(t *testing.T) {
	ctx := context.Background()

	if _, err := NewBackend(ctx, appconfig.StoreConfig{Driver: appconfig.DriverLocal}, ""); err == nil || !strings.Contains(err.Error(), "root directory") {
		t.Fatalf("expected missing root error, got: %v", err)
	}
	if _, err := NewBackend(ctx, appconfig.StoreConfig{Driver: "ftp"}, ""); err == nil || !strings.Contains(err.Error(), `unknown store driver "ftp"`) {
		t.Fatalf("expected unknown driver error, got: %v", err)
	}
	if _, err := NewBackend(ctx, appconfig.StoreConfig{Driver: appconfig.DriverS3}, ""); err == nil || !strings.Contains(err.Error(), "s3 region is required") {
		t.Fatalf("expected s3 region error, got: %v", err)
	}
}

func TestNewFromConfigRoundTrip(t *testing.T) {
	ctx := context.Background()
	c, err := NewFromConfig(ctx, appconfig.StoreConfig{Driver: appconfig.DriverMemory}, "", nil)
	if err != nil {
		t.Fatalf("new from config: %v", err)
	}

	if err := c.Put(ctx, "b", "k", []byte("v"), PutOptions{}); err != nil {
		t.Fatalf("put: %v", err)
	}
	ok, err := c.Exists(ctx, "b", "k")
	if err != nil || !ok {
		t.Fatalf("expected object to exist, got ok=%v err=%v", ok, err)
	}
}
