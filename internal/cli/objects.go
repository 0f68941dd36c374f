package cli

import (
	"fmt"
	"io"
	"mime"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"objstore/internal/storage"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newPutCommand(a *app) *cobra.Command {
	var file, contentType string

	cmd := &cobra.Command{
		Use:   "put <bucket> <key>",
		Short: "Upload an object from a file or stdin",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			bucket, key := args[0], args[1]

			var data []byte
			var err error
			if file != "" {
				data, err = os.ReadFile(file)
			} else {
				data, err = io.ReadAll(cmd.InOrStdin())
			}
			if err != nil {
				return fmt.Errorf("read content: %w", err)
			}

			if contentType == "" {
				contentType = guessContentType(file, key)
			}
			if err := a.client.Put(cmd.Context(), bucket, key, data, storage.PutOptions{ContentType: contentType}); err != nil {
				return err
			}
			a.log.Info("object uploaded", zap.String("bucket", bucket), zap.String("key", key), zap.Int("size", len(data)))
			fmt.Fprintf(cmd.OutOrStdout(), "stored %s/%s (%d bytes)\n", bucket, key, len(data))
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "read content from file instead of stdin")
	cmd.Flags().StringVar(&contentType, "content-type", "", "media type (default: from extension, else application/octet-stream)")
	return cmd
}

func newGetCommand(a *app) *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "get <bucket> <key>",
		Short: "Download an object to stdout or a file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			obj, err := a.client.Get(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			if out == "" {
				_, err := cmd.OutOrStdout().Write(obj.Content)
				return err
			}
			if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
				return err
			}
			if err := os.WriteFile(out, obj.Content, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", out, err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s (%d bytes)\n", out, len(obj.Content))
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "write content to file instead of stdout")
	return cmd
}

func newHeadCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "head <bucket> <key>",
		Short: "Show object metadata",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			meta, err := a.client.Head(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "key: %s\n", meta.Key)
			fmt.Fprintf(w, "size: %d\n", meta.Size)
			fmt.Fprintf(w, "etag: %s\n", meta.ETag)
			fmt.Fprintf(w, "content_type: %s\n", meta.ContentType)
			fmt.Fprintf(w, "last_modified: %s\n", formatTime(meta.LastModified))
			return nil
		},
	}
}

func newExistsCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "exists <bucket> <key>",
		Short: "Print whether an object exists",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ok, err := a.client.Exists(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), ok)
			return nil
		},
	}
}

func newListCommand(a *app) *cobra.Command {
	var (
		opts storage.ListOptions
		all  bool
	)

	cmd := &cobra.Command{
		Use:     "ls <bucket>",
		Aliases: []string{"list"},
		Short:   "List objects one page at a time",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			bucket := args[0]
			w := cmd.OutOrStdout()

			if all {
				if opts.ContinuationToken != "" {
					return fmt.Errorf("--all and --token cannot be used together")
				}
				count := 0
				err := a.client.Walk(cmd.Context(), bucket, opts.Prefix, func(meta storage.ObjectMetadata) error {
					count++
					printListing(w, meta)
					return nil
				})
				if err != nil {
					return err
				}
				a.log.Debug("listing complete", zap.String("bucket", bucket), zap.Int("count", count))
				return nil
			}

			page, err := a.client.ListPage(cmd.Context(), bucket, opts)
			if err != nil {
				return err
			}
			for _, meta := range page.Objects {
				printListing(w, meta)
			}
			if page.NextToken != "" {
				fmt.Fprintf(w, "next token: %s\n", page.NextToken)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.Prefix, "prefix", "", "only list keys starting with prefix (first page only)")
	cmd.Flags().IntVar(&opts.MaxKeys, "max-keys", 0, "page size (0 for the store default of 1000)")
	cmd.Flags().StringVar(&opts.ContinuationToken, "token", "", "continuation token from a previous page")
	cmd.Flags().BoolVar(&all, "all", false, "follow continuation tokens until the listing is exhausted")
	return cmd
}

func newDeleteCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <bucket> <key>",
		Aliases: []string{"delete"},
		Short:   "Delete an object if it exists",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.client.Delete(cmd.Context(), args[0], args[1]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s/%s\n", args[0], args[1])
			return nil
		},
	}
}

func printListing(w io.Writer, meta storage.ObjectMetadata) {
	fmt.Fprintf(w, "%s\t%d\t%s\n", formatTime(meta.LastModified), meta.Size, meta.Key)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.UTC().Format(time.RFC3339)
}

func guessContentType(file, key string) string {
	for _, name := range []string{file, key} {
		if name == "" {
			continue
		}
		if ct := mime.TypeByExtension(strings.ToLower(path.Ext(filepath.ToSlash(name)))); ct != "" {
			return ct
		}
	}
	return ""
}
