// Command merge-vault copies the prompts of another vault database into the
// configured vault. Timestamps and favorite flags of merged prompts are kept.
package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dpshade/prompt-vault/internal/config"
	"github.com/dpshade/prompt-vault/internal/errors"
	"github.com/dpshade/prompt-vault/internal/importer"
	"github.com/dpshade/prompt-vault/internal/logging"
	"github.com/dpshade/prompt-vault/internal/service"
)

type mergeOptions struct {
	cfgFile    string
	dataDir    string
	yes        bool
	importOpts importer.ImportOptions
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, errors.NewCLIErrorHandler(false).HandleError(err))
		stop()
		os.Exit(1)
	}
}

func newCommand(svcOpts ...service.Option) *cobra.Command {
	var opts mergeOptions

	cmd := &cobra.Command{
		Use:           "merge-vault <other.db>",
		Short:         "Merge another prompt vault into this one",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), args[0], opts, cmd.InOrStdin(), cmd.OutOrStdout(), svcOpts...)
		},
	}

	cmd.Flags().StringVar(&opts.cfgFile, "config", "", "config file")
	cmd.Flags().StringVar(&opts.dataDir, "data-dir", "", "vault directory (default: ~/.prompt-vault)")
	cmd.Flags().BoolVarP(&opts.yes, "yes", "y", false, "do not ask for confirmation")
	cmd.Flags().BoolVar(&opts.importOpts.SkipExisting, "skip-existing", false, "keep local prompts whose title also exists in the other vault")
	cmd.Flags().StringSliceVar(&opts.importOpts.Tags, "tag", nil, "extra tag to add to every merged prompt (repeatable)")
	return cmd
}

func run(ctx context.Context, src string, opts mergeOptions, in io.Reader, out io.Writer, svcOpts ...service.Option) error {
	cfg, err := config.Load(opts.cfgFile)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInvalidInput, "Failed to load configuration")
	}
	if opts.dataDir != "" {
		cfg.DataDir = opts.dataDir
	}

	closer, err := logging.Setup(logging.Options{Level: cfg.LogLevel, File: cfg.LogPath()})
	if err != nil {
		return errors.IOError("Open log file", err)
	}
	defer closer.Close()

	svc, err := service.NewService(ctx, cfg, svcOpts...)
	if err != nil {
		return err
	}

	// Preview first so the user sees what would change
	preview := opts.importOpts
	preview.DryRun = true
	result, err := svc.Merge(ctx, src, preview)
	if err != nil {
		return err
	}

	if len(result.Imported) == 0 {
		fmt.Fprintln(out, "Nothing to merge")
		return nil
	}

	fmt.Fprintf(out, "Found %d prompts to merge into %s:\n", len(result.Imported), svc.Path())
	for _, title := range result.Imported {
		fmt.Fprintf(out, "  - %s\n", title)
	}
	if len(result.Skipped) > 0 {
		fmt.Fprintf(out, "Skipping %d prompts that already exist\n", len(result.Skipped))
	}

	if !opts.yes {
		fmt.Fprint(out, "\nProceed with merge? (y/N): ")
		answer, _ := bufio.NewReader(in).ReadString('\n')
		if strings.ToLower(strings.TrimSpace(answer)) != "y" {
			fmt.Fprintln(out, "Merge cancelled")
			return nil
		}
	}

	result, err = svc.Merge(ctx, src, opts.importOpts)
	if err != nil {
		return err
	}
	for _, ierr := range result.Errors {
		fmt.Fprintf(out, "Warning: %v\n", ierr)
	}
	fmt.Fprintf(out, "Merge completed! %d prompts merged\n", len(result.Imported))
	return nil
}
