package importer

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dpshade/prompt-vault/internal/errors"
	"github.com/dpshade/prompt-vault/internal/models"
)

// BundleVersion is the export format version written by Export
const BundleVersion = 1

// Bundle is the YAML export document
type Bundle struct {
	Version    int              `yaml:"version"`
	ExportedAt time.Time        `yaml:"exported_at"`
	Prompts    []*models.Prompt `yaml:"prompts"`
}

// Store is the subset of the repository an import writes through
type Store interface {
	GetPrompt(ctx context.Context, title string) (*models.Prompt, error)
	PutPrompt(ctx context.Context, p models.Prompt) error
}

// ImportOptions configures the import process
type ImportOptions struct {
	SkipExisting bool     // Leave prompts whose title already exists untouched
	DryRun       bool     // Report what would be imported without writing
	Tags         []string // Additional tags to apply to imported prompts
}

// ImportResult contains the results of an import operation
type ImportResult struct {
	Imported []string // Titles written (or that would be written on a dry run)
	Skipped  []string // Titles left alone because they already exist
	Errors   []error  // Per-prompt failures; the import continues past them
}

// Export writes prompts as a YAML bundle
func Export(w io.Writer, prompts []*models.Prompt, now time.Time) error {
	if prompts == nil {
		prompts = []*models.Prompt{}
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(Bundle{Version: BundleVersion, ExportedAt: now, Prompts: prompts}); err != nil {
		return fmt.Errorf("failed to encode bundle: %w", err)
	}
	return enc.Close()
}

// ReadBundle decodes a YAML bundle written by Export
func ReadBundle(r io.Reader) (*Bundle, error) {
	var bundle Bundle
	if err := yaml.NewDecoder(r).Decode(&bundle); err != nil {
		if err == io.EOF {
			return &Bundle{Version: BundleVersion}, nil
		}
		return nil, errors.Wrap(err, errors.ErrCodeFileCorrupted, "Import file is not a valid prompt bundle")
	}
	if bundle.Version > BundleVersion {
		return nil, errors.InvalidInputError(
			fmt.Sprintf("bundle version %d is newer than supported version %d", bundle.Version, BundleVersion))
	}
	return &bundle, nil
}

// Import writes prompts into store, keyed by title. Timestamps and favorite
// flags are carried over as they are.
func Import(ctx context.Context, store Store, prompts []*models.Prompt, options ImportOptions) (*ImportResult, error) {
	result := &ImportResult{
		Imported: []string{},
		Skipped:  []string{},
		Errors:   []error{},
	}

	for _, p := range prompts {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if p == nil {
			continue
		}

		prompt := *p
		prompt.Name = strings.TrimSpace(prompt.Name)
		prompt.Category = strings.TrimSpace(prompt.Category)
		if len(options.Tags) > 0 {
			prompt.Tags = appendTags(prompt.Tags, options.Tags)
		}

		if options.SkipExisting {
			_, err := store.GetPrompt(ctx, prompt.Name)
			if err == nil {
				result.Skipped = append(result.Skipped, prompt.Name)
				continue
			}
			if !errors.IsNotFound(err) {
				result.Errors = append(result.Errors, fmt.Errorf("failed to check %q: %w", prompt.Name, err))
				continue
			}
		}

		if options.DryRun {
			result.Imported = append(result.Imported, prompt.Name)
			continue
		}

		if err := store.PutPrompt(ctx, prompt); err != nil {
			result.Errors = append(result.Errors, fmt.Errorf("failed to import %q: %w", prompt.Name, err))
			continue
		}
		result.Imported = append(result.Imported, prompt.Name)
	}

	return result, nil
}

// appendTags adds the extra tags missing from tags to its end, leaving the
// existing text as it is
func appendTags(tags string, extra []string) string {
	present := make(map[string]bool)
	for _, tag := range strings.Split(tags, ",") {
		present[strings.ToLower(strings.TrimSpace(tag))] = true
	}

	out := strings.TrimSpace(tags)
	for _, tag := range extra {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" || present[tag] {
			continue
		}
		present[tag] = true
		if out != "" {
			out += ", "
		}
		out += tag
	}
	return out
}

// addTags normalises a comma-separated tag list, lower-casing it and dropping
// duplicates
func addTags(tags string, extra []string) string {
	var out []string
	seen := make(map[string]bool)
	for _, tag := range append(strings.Split(tags, ","), extra...) {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		out = append(out, tag)
	}
	return strings.Join(out, ", ")
}
