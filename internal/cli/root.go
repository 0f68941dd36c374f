package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"objstore/internal/config"
	"objstore/internal/logger"
	"objstore/internal/state"
	"objstore/internal/storage"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type deps struct {
	stdin     io.Reader
	stdout    io.Writer
	stderr    io.Writer
	newLogger func(config.LogConfig) (*zap.Logger, error)
	newClient func(context.Context, *config.Config, *zap.Logger) (*storage.Client, error)
}

func defaultDeps() deps {
	return deps{
		stdin:     os.Stdin,
		stdout:    os.Stdout,
		stderr:    os.Stderr,
		newLogger: logger.New,
		newClient: clientFromConfig,
	}
}

// app is the per-invocation state shared by the subcommands.
type app struct {
	deps
	configPath string
	log        *zap.Logger
	client     *storage.Client
}

// Run executes the command line in args (without the program name).
func Run(ctx context.Context, args []string) error {
	return run(ctx, args, defaultDeps())
}

func run(ctx context.Context, args []string, d deps) error {
	root := newRootCommand(&app{deps: d})
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

func newRootCommand(a *app) *cobra.Command {
	defaultConfigPath, err := state.ConfigPath()
	if err != nil {
		defaultConfigPath = ""
	}

	root := &cobra.Command{
		Use:   "objstore",
		Short: "Put, fetch, list and delete objects in S3-compatible stores",
		Long: `objstore is a thin client over S3, MinIO, GCS, a local directory tree or memory.
Every command names its bucket explicitly.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd.Context())
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if a.log != nil {
				_ = a.log.Sync()
			}
		},
	}
	root.SetIn(a.stdin)
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)
	root.PersistentFlags().StringVar(&a.configPath, "config", defaultConfigPath, "path to config file")

	root.AddCommand(
		newPutCommand(a),
		newGetCommand(a),
		newHeadCommand(a),
		newExistsCommand(a),
		newListCommand(a),
		newDeleteCommand(a),
	)
	return root
}

func (a *app) setup(ctx context.Context) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := a.newLogger(cfg.Log)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	a.log = log

	client, err := a.newClient(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("create object store: %w", err)
	}
	a.client = client
	return nil
}

func clientFromConfig(ctx context.Context, cfg *config.Config, log *zap.Logger) (*storage.Client, error) {
	objectsDir, err := state.ObjectStoreDir()
	if err != nil {
		return nil, err
	}
	return storage.NewFromConfig(ctx, cfg.Store, objectsDir, log)
}
