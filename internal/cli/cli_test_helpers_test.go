package cli

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"objstore/internal/config"
	"objstore/internal/storage"

	"go.uber.org/zap"
)

func setCLIHome(t *testing.T) {
	t.Helper()

	homeDir := t.TempDir()
	t.Setenv("HOME", homeDir)
	t.Setenv("XDG_CONFIG_HOME", homeDir)
}

// testEnv runs commands against one in-memory store shared across calls.
type testEnv struct {
	t          *testing.T
	client     *storage.Client
	configPath string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	setCLIHome(t)
	return &testEnv{
		t:          t,
		client:     storage.New(storage.NewMemoryBackend()),
		configPath: filepath.Join(t.TempDir(), "config.toml"),
	}
}

func (e *testEnv) run(stdin string, args ...string) (string, string, error) {
	e.t.Helper()

	var stdout, stderr bytes.Buffer
	d := deps{
		stdin:  strings.NewReader(stdin),
		stdout: &stdout,
		stderr: &stderr,
		newLogger: func(config.LogConfig) (*zap.Logger, error) {
			return zap.NewNop(), nil
		},
		newClient: func(context.Context, *config.Config, *zap.Logger) (*storage.Client, error) {
			return e.client, nil
		},
	}
	full := append([]string{"--config", e.configPath}, args...)
	err := run(context.Background(), full, d)
	return stdout.String(), stderr.String(), err
}

func (e *testEnv) mustRun(stdin string, args ...string) string {
	e.t.Helper()
	out, _, err := e.run(stdin, args...)
	if err != nil {
		e.t.Fatalf("run %v: %v", args, err)
	}
	return out
}
