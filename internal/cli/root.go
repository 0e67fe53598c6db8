package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/dpshade/prompt-vault/internal/config"
	"github.com/dpshade/prompt-vault/internal/errors"
	"github.com/dpshade/prompt-vault/internal/logging"
	"github.com/dpshade/prompt-vault/internal/renderer"
	"github.com/dpshade/prompt-vault/internal/service"
	"github.com/dpshade/prompt-vault/internal/ui"
)

// Options configures the root command
type Options struct {
	Version        string
	ServiceOptions []service.Option
	RunTUI         func(ctx context.Context, svc *service.Service) error
}

// app carries flag values and the opened vault between cobra hooks
type app struct {
	opts Options

	cfgFile string
	dataDir string
	dbFile  string
	verbose bool
	pony    bool
	realism bool

	cfg       config.Config
	svc       *service.Service
	logCloser io.Closer
}

// Execute runs the command line and returns the process exit code
func Execute(ctx context.Context, opts Options) int {
	root, a := newRoot(opts)
	err := root.ExecuteContext(ctx)
	a.close()
	if err != nil {
		fmt.Fprintln(root.ErrOrStderr(), errors.NewCLIErrorHandler(a.verbose).HandleError(err))
		return 1
	}
	return 0
}

// NewRootCommand builds the prompt-vault command tree
func NewRootCommand(opts Options) *cobra.Command {
	root, _ := newRoot(opts)
	return root
}

func newRoot(opts Options) (*cobra.Command, *app) {
	if opts.RunTUI == nil {
		opts.RunTUI = ui.Run
	}
	a := &app{opts: opts}

	root := &cobra.Command{
		Use:   "prompt-vault",
		Short: "Personal vault for Stable Diffusion prompts",
		Long: `Prompt Vault stores text-to-image prompts in a local SQLite file.

Each prompt has a title, category, tags, and positive and negative text.
Pony mode adds the score_* quality tokens, realism mode appends photographic
style tags. Run without a command to open the interactive browser.`,
		Version:       opts.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Annotations["vault"] == "none" {
				return nil
			}
			return a.open(cmd.Context())
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.opts.RunTUI(cmd.Context(), a.svc)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "config file (default: ./config.yaml or <data-dir>/config.yaml)")
	flags.StringVar(&a.dataDir, "data-dir", "", "vault directory (default: ~/.prompt-vault)")
	flags.StringVar(&a.dbFile, "db", "", "database file, relative to the data directory unless absolute")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "log to stderr and show error causes")
	flags.BoolVar(&a.pony, "pony", false, "apply pony score tokens (default from config)")
	flags.BoolVar(&a.realism, "realism", false, "apply realism style tags (default from config)")

	root.AddCommand(
		a.saveCmd(),
		a.showCmd(),
		a.listCmd(),
		a.randomCmd(),
		a.deleteCmd(),
		a.favCmd(),
		a.copyCmd(),
		a.categoriesCmd(),
		a.statusCmd(),
		a.backupCmd(),
		a.restoreCmd(),
		a.exportCmd(),
		a.importCmd(),
		a.settingsCmd(),
		a.loraCmd(),
		a.tuiCmd(),
		a.versionCmd(),
	)
	return root, a
}

// open loads configuration, sets up logging and opens the vault
func (a *app) open(ctx context.Context) error {
	cfg, err := config.Load(a.cfgFile)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInvalidInput, "Failed to load configuration")
	}
	if a.dataDir != "" {
		cfg.DataDir = a.dataDir
	}
	if a.dbFile != "" {
		cfg.DBFile = a.dbFile
	}
	a.cfg = cfg

	closer, err := logging.Setup(logging.Options{
		Level:   cfg.LogLevel,
		File:    cfg.LogPath(),
		Verbose: a.verbose,
	})
	if err != nil {
		return errors.IOError("Open log file", err).WithContext("path", cfg.LogPath())
	}
	a.logCloser = closer

	svc, err := service.NewService(ctx, cfg, a.opts.ServiceOptions...)
	if err != nil {
		return err
	}
	a.svc = svc
	return nil
}

func (a *app) close() {
	if a.logCloser != nil {
		_ = a.logCloser.Close()
		a.logCloser = nil
	}
}

// modes returns the formatting modes: config values unless overridden by
// --pony or --realism on the command line
func (a *app) modes(cmd *cobra.Command) renderer.Modes {
	modes := a.svc.Modes()
	if cmd.Flags().Changed("pony") {
		modes.Pony = a.pony
	}
	if cmd.Flags().Changed("realism") {
		modes.Realism = a.realism
	}
	return modes
}

// output returns a CLI bound to the command's output stream
func (a *app) output(cmd *cobra.Command) *CLI {
	return NewCLI(cmd.OutOrStdout())
}
