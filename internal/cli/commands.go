package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dpshade/prompt-vault/internal/clipboard"
	"github.com/dpshade/prompt-vault/internal/errors"
	"github.com/dpshade/prompt-vault/internal/importer"
	"github.com/dpshade/prompt-vault/internal/models"
	"github.com/dpshade/prompt-vault/internal/renderer"
)

func (a *app) saveCmd() *cobra.Command {
	var draft models.Draft
	var positiveFile string

	cmd := &cobra.Command{
		Use:   "save <title>",
		Short: "Save a prompt, replacing any prompt with the same title",
		Example: `  prompt-vault save "Neon Alley" -c Juggernaut -t "city, night" -p "rainy alley, neon signs"
  prompt-vault save "Portrait" -c Pony --positive-file prompt.txt --realism`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			draft.Title = args[0]

			if positiveFile != "" {
				text, err := readInput(cmd.InOrStdin(), positiveFile)
				if err != nil {
					return errors.IOError("Read positive prompt", err).WithContext("path", positiveFile)
				}
				draft.Positive = text
			}
			if strings.TrimSpace(draft.Category) == "" {
				last, err := a.svc.LastCategory(ctx)
				if err != nil {
					return err
				}
				draft.Category = last
			}

			p, err := a.svc.Save(ctx, draft, a.modes(cmd))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "'%s' saved/updated!\n", p.Name)
			return nil
		},
	}

	cmd.Flags().StringVarP(&draft.Category, "category", "c", "", "category (default: the last category saved)")
	cmd.Flags().StringVarP(&draft.Tags, "tags", "t", "", "comma-separated tags")
	cmd.Flags().StringVarP(&draft.Positive, "positive", "p", "", "positive prompt text")
	cmd.Flags().StringVarP(&draft.Negative, "negative", "n", "", "negative prompt text")
	cmd.Flags().StringVar(&positiveFile, "positive-file", "", "read the positive prompt from a file, or - for stdin")
	return cmd
}

func (a *app) showCmd() *cobra.Command {
	var format string
	var touch bool

	cmd := &cobra.Command{
		Use:   "show <title>",
		Short: "Show a prompt with the current formatting modes applied",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			load := a.svc.Load
			if touch {
				load = a.svc.Use
			}
			p, err := load(ctx, args[0])
			if err != nil {
				return a.withSuggestions(ctx, args[0], err)
			}
			return a.output(cmd).formatSinglePrompt(p, a.modes(cmd), format)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", FormatText, "output format: text, json or markdown")
	cmd.Flags().BoolVar(&touch, "touch", false, "mark the prompt as just used")
	return cmd
}

func (a *app) listCmd() *cobra.Command {
	var filter, search, format string
	var status bool

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List prompts, most recently used first",
		Example: `  prompt-vault list --filter Favorites
  prompt-vault list --filter Pony --search neon --format table`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			listing, err := a.svc.List(ctx, models.ParseFilter(filter), search)
			if err != nil {
				return err
			}
			if err := a.output(cmd).formatListing(listing, format); err != nil {
				return err
			}
			if status && format != FormatJSON && format != FormatTitles {
				line, err := a.svc.Status(ctx, listing)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "\n%s\n", line)
			}
			return nil
		},
	}

	addFilterFlags(cmd, &filter, &search)
	cmd.Flags().StringVarP(&format, "format", "f", FormatText, "output format: text, table, titles or json")
	cmd.Flags().BoolVar(&status, "status", true, "print the status line after the list")
	return cmd
}

func (a *app) randomCmd() *cobra.Command {
	var filter, search, format, copyPart string

	cmd := &cobra.Command{
		Use:   "random",
		Short: "Load a random prompt from the current filter and mark it used",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			p, found, err := a.svc.Random(ctx, models.ParseFilter(filter), search)
			if err != nil {
				return err
			}
			if !found {
				fmt.Fprintln(cmd.OutOrStdout(), "No prompts match current filter.")
				return nil
			}

			if copyPart != "" {
				part, err := renderer.ParsePart(copyPart)
				if err != nil {
					return errors.InvalidInputError(err.Error())
				}
				if err := a.svc.CopyText(renderer.RenderText(p, part, a.modes(cmd))); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Loaded and copied: %s\n", p.Name)
				return nil
			}
			return a.output(cmd).formatSinglePrompt(p, a.modes(cmd), format)
		},
	}

	addFilterFlags(cmd, &filter, &search)
	cmd.Flags().StringVarP(&format, "format", "f", FormatText, "output format: text, json or markdown")
	cmd.Flags().StringVar(&copyPart, "copy", "", "copy the pick instead of printing it: positive, negative or both")
	return cmd
}

func (a *app) deleteCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:     "delete <title>",
		Aliases: []string{"rm"},
		Short:   "Delete a prompt",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			title := args[0]
			if !yes && !confirm(cmd, fmt.Sprintf("Delete '%s'?", title)) {
				fmt.Fprintln(cmd.OutOrStdout(), "Cancelled.")
				return nil
			}
			deleted, err := a.svc.Delete(cmd.Context(), title)
			if err != nil {
				return err
			}
			if deleted {
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted '%s'.\n", title)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "No prompt named '%s'.\n", title)
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}

func (a *app) favCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fav <title>",
		Short: "Toggle the favorite star on a prompt",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			favorite, found, err := a.svc.ToggleFavorite(ctx, args[0])
			if err != nil {
				return err
			}
			if !found {
				return a.withSuggestions(ctx, args[0], errors.NotFoundError("Prompt").WithContext("title", args[0]))
			}
			if favorite {
				fmt.Fprintf(cmd.OutOrStdout(), "★ '%s' is now a favorite.\n", args[0])
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "'%s' is no longer a favorite.\n", args[0])
			}
			return nil
		},
	}
}

func (a *app) copyCmd() *cobra.Command {
	var partName string
	var printOnly bool

	cmd := &cobra.Command{
		Use:   "copy <title>",
		Short: "Copy a formatted prompt to the clipboard",
		Example: `  prompt-vault copy "Neon Alley"
  prompt-vault copy "Neon Alley" --part negative --realism`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			part, err := renderer.ParsePart(partName)
			if err != nil {
				return errors.InvalidInputError(err.Error())
			}

			if printOnly {
				text, err := a.svc.Render(ctx, args[0], part, a.modes(cmd))
				if err != nil {
					return a.withSuggestions(ctx, args[0], err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), text)
				return nil
			}

			if _, err := a.svc.Copy(ctx, args[0], part, a.modes(cmd)); err != nil {
				return a.withSuggestions(ctx, args[0], err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s copied!\n", partLabel(part))
			return nil
		},
	}

	cmd.Flags().StringVar(&partName, "part", "both", "which text to copy: positive, negative or both")
	cmd.Flags().BoolVar(&printOnly, "print", false, "print the text instead of copying it")
	return cmd
}

func (a *app) categoriesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "categories",
		Short: "List known categories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			categories, err := a.svc.Categories(cmd.Context())
			if err != nil {
				return err
			}
			for _, c := range categories {
				fmt.Fprintln(cmd.OutOrStdout(), c)
			}
			return nil
		},
	}
}

func (a *app) statusCmd() *cobra.Command {
	var filter, search string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show counts for the vault and the given filter",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			listing, err := a.svc.List(ctx, models.ParseFilter(filter), search)
			if err != nil {
				return err
			}
			line, err := a.svc.Status(ctx, listing)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), line)
			return nil
		},
	}

	addFilterFlags(cmd, &filter, &search)
	return cmd
}

func (a *app) backupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "backup [dest]",
		Short: "Copy the vault database to a backup file",
		Long: `Copy the vault database to dest. Without dest the backup is written to
prompt_vault_backup_<YYYY-MM-DD>.db in the current directory.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dest := ""
			if len(args) == 1 {
				dest = args[0]
			}
			written, err := a.svc.Backup(cmd.Context(), dest)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Database backed up to %s\n", written)
			return nil
		},
	}
}

func (a *app) restoreCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "restore <backup>",
		Short: "Replace the vault database with a backup",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes && !confirm(cmd, "This will overwrite your current database. Continue?") {
				fmt.Fprintln(cmd.OutOrStdout(), "Cancelled.")
				return nil
			}
			if err := a.svc.Restore(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Database restored!")
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}

func (a *app) exportCmd() *cobra.Command {
	var output, markdownDir string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export every prompt as YAML or as markdown files",
		Example: `  prompt-vault export -o prompts.yaml
  prompt-vault export --markdown ./prompts`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if markdownDir != "" {
				n, err := a.svc.ExportMarkdown(ctx, markdownDir)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Exported %d prompts to %s\n", n, markdownDir)
				return nil
			}

			if output == "" || output == "-" {
				_, err := a.svc.Export(ctx, cmd.OutOrStdout())
				return err
			}

			f, err := os.Create(output)
			if err != nil {
				return errors.IOError("Export", err).WithContext("path", output)
			}
			n, err := a.svc.Export(ctx, f)
			if cerr := f.Close(); err == nil && cerr != nil {
				err = errors.IOError("Export", cerr).WithContext("path", output)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d prompts to %s\n", n, output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: stdout)")
	cmd.Flags().StringVar(&markdownDir, "markdown", "", "write one markdown file per prompt into this directory")
	return cmd
}

func (a *app) importCmd() *cobra.Command {
	var options importer.ImportOptions

	cmd := &cobra.Command{
		Use:   "import <file|dir>",
		Short: "Import prompts from a YAML export or a directory of markdown files",
		Long: `Import prompts from a YAML bundle written by export, or from a directory
of markdown files with a YAML front matter header (title, category, tags,
negative, favorite). The file body becomes the positive prompt. Use - to read
a bundle from stdin.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			result, err := a.runImport(ctx, cmd.InOrStdin(), args[0], options)
			if err != nil {
				return err
			}
			printImportResult(cmd.OutOrStdout(), result, options.DryRun)
			if len(result.Errors) > 0 {
				return errors.NewAppError(errors.ErrCodeCommandFailed,
					fmt.Sprintf("%d prompts could not be imported", len(result.Errors)))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&options.SkipExisting, "skip-existing", false, "leave prompts whose title already exists")
	cmd.Flags().BoolVar(&options.DryRun, "dry-run", false, "show what would be imported without writing")
	cmd.Flags().StringSliceVar(&options.Tags, "tag", nil, "extra tag to add to every imported prompt (repeatable)")
	return cmd
}

func (a *app) runImport(ctx context.Context, stdin io.Reader, src string, options importer.ImportOptions) (*importer.ImportResult, error) {
	if src == "-" {
		return a.svc.Import(ctx, stdin, options)
	}

	info, err := os.Stat(src)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.FileNotFoundError(src, err)
		}
		return nil, errors.IOError("Import", err).WithContext("path", src)
	}
	if info.IsDir() {
		return a.svc.ImportMarkdown(ctx, src, options)
	}

	f, err := os.Open(src)
	if err != nil {
		return nil, errors.IOError("Import", err).WithContext("path", src)
	}
	defer f.Close()
	return a.svc.Import(ctx, f, options)
}

func (a *app) settingsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Read and change stored preferences",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "get <key>",
			Short: "Print a setting",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				value, err := a.svc.GetSetting(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), value)
				return nil
			},
		},
		&cobra.Command{
			Use:   "set <key> <value>",
			Short: "Change a setting",
			Example: `  prompt-vault settings set selected_theme Dark
  prompt-vault settings set last_category Upscale`,
			Args: cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := a.svc.SetSetting(cmd.Context(), args[0], args[1]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s = %s\n", args[0], args[1])
				return nil
			},
		},
		&cobra.Command{
			Use:   "list",
			Short: "Print every stored setting",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				settings, err := a.svc.Settings(cmd.Context())
				if err != nil {
					return err
				}
				for _, s := range settings {
					fmt.Fprintf(cmd.OutOrStdout(), "%s = %s\n", s.Key, s.Value)
				}
				return nil
			},
		},
	)
	return cmd
}

func (a *app) loraCmd() *cobra.Command {
	var weight float64
	var copyTag bool

	cmd := &cobra.Command{
		Use:         "lora <name>",
		Short:       "Print the LoRA reference syntax for a name",
		Example:     `  prompt-vault lora detail_slider --weight 0.8`,
		Args:        cobra.ExactArgs(1),
		Annotations: map[string]string{"vault": "none"},
		RunE: func(cmd *cobra.Command, args []string) error {
			name := strings.TrimSpace(args[0])
			if name == "" {
				return errors.InvalidInputError("Enter a LoRA name first.")
			}
			tag := renderer.LoraTag(name, weight)
			if copyTag {
				if err := clipboardCopy(tag); err != nil {
					return err
				}
			}
			fmt.Fprintln(cmd.OutOrStdout(), tag)
			return nil
		},
	}

	cmd.Flags().Float64Var(&weight, "weight", 1.0, "LoRA weight")
	cmd.Flags().BoolVar(&copyTag, "copy", false, "also copy the tag to the clipboard")
	return cmd
}

func (a *app) tuiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Open the interactive prompt browser",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.opts.RunTUI(cmd.Context(), a.svc)
		},
	}
}

func (a *app) versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:         "version",
		Short:       "Print version information",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{"vault": "none"},
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "prompt-vault %s\n", a.opts.Version)
		},
	}
}

// withSuggestions adds "did you mean" titles to a NotFound error
func (a *app) withSuggestions(ctx context.Context, title string, err error) error {
	if !errors.IsNotFound(err) {
		return err
	}
	suggestions, serr := a.svc.Suggest(ctx, title)
	if serr != nil || len(suggestions) == 0 {
		return err
	}
	return errors.GetAppError(err).WithDetails("did you mean: " + strings.Join(suggestions, ", "))
}

func addFilterFlags(cmd *cobra.Command, filter, search *string) {
	cmd.Flags().StringVar(filter, "filter", models.FilterNameAll, "All, Favorites or a category name")
	cmd.Flags().StringVarP(search, "search", "s", "", "case-insensitive text to look for in any field")
}

// clipboardCopy copies text for commands that run without an open vault
func clipboardCopy(text string) error {
	if err := clipboard.Copy(text); err != nil {
		return errors.ClipboardError(err).WithDetails(clipboard.GetInstallInstructions())
	}
	return nil
}

// confirm asks a yes/no question on the command's input
func confirm(cmd *cobra.Command, question string) bool {
	fmt.Fprintf(cmd.OutOrStdout(), "%s [y/N] ", question)
	answer, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && answer == "" {
		return false
	}
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}

// readInput reads path, or stdin when path is -
func readInput(stdin io.Reader, path string) (string, error) {
	if path == "-" {
		data, err := io.ReadAll(stdin)
		return string(data), err
	}
	data, err := os.ReadFile(path)
	return string(data), err
}

func partLabel(part renderer.Part) string {
	switch part {
	case renderer.PartPositive:
		return "Positive prompt"
	case renderer.PartNegative:
		return "Negative prompt"
	default:
		return "Both prompts"
	}
}

func printImportResult(w io.Writer, result *importer.ImportResult, dryRun bool) {
	verb := "Imported"
	if dryRun {
		verb = "Would import"
	}
	fmt.Fprintf(w, "%s %d prompts", verb, len(result.Imported))
	if len(result.Skipped) > 0 {
		fmt.Fprintf(w, ", skipped %d existing", len(result.Skipped))
	}
	fmt.Fprintln(w)
	for _, err := range result.Errors {
		fmt.Fprintf(w, "  ! %v\n", err)
	}
}
