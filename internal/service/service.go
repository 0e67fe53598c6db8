package service

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/sahilm/fuzzy"
	log "github.com/sirupsen/logrus"

	"github.com/dpshade/prompt-vault/internal/clipboard"
	"github.com/dpshade/prompt-vault/internal/config"
	"github.com/dpshade/prompt-vault/internal/errors"
	"github.com/dpshade/prompt-vault/internal/importer"
	"github.com/dpshade/prompt-vault/internal/models"
	"github.com/dpshade/prompt-vault/internal/renderer"
	"github.com/dpshade/prompt-vault/internal/storage"
)

// maxSuggestions caps "did you mean" results
const maxSuggestions = 3

// Service provides business logic for prompt management. It is the one
// context object the CLI and TUI share: storage handle, clock, clipboard,
// default formatting modes and the favorite policy all live here.
type Service struct {
	storage   *storage.Storage
	clipboard clipboard.Writer
	now       func() time.Time
	modes     renderer.Modes
	policy    storage.FavoritePolicy
}

// Option configures a Service
type Option func(*Service)

// WithClock replaces time.Now, mainly for tests
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithClipboard replaces the system clipboard
func WithClipboard(w clipboard.Writer) Option {
	return func(s *Service) { s.clipboard = w }
}

// WithModes sets the default formatting modes
func WithModes(modes renderer.Modes) Option {
	return func(s *Service) { s.modes = modes }
}

// WithFavoritePolicy sets what a save does to an existing favorite flag
func WithFavoritePolicy(policy storage.FavoritePolicy) Option {
	return func(s *Service) { s.policy = policy }
}

// NewService opens the vault described by cfg
func NewService(ctx context.Context, cfg config.Config, opts ...Option) (*Service, error) {
	store, err := storage.NewStorage(ctx, cfg.DBPath(),
		storage.WithRetry(cfg.RetryAttempts, 50*time.Millisecond))
	if err != nil {
		return nil, err
	}

	policy := storage.ResetFavorite
	if cfg.KeepFavoriteOnEdit {
		policy = storage.KeepFavorite
	}

	base := []Option{
		WithModes(renderer.Modes{Pony: cfg.PonyMode, Realism: cfg.RealismMode}),
		WithFavoritePolicy(policy),
	}
	return New(store, append(base, opts...)...), nil
}

// New wraps an already opened storage
func New(store *storage.Storage, opts ...Option) *Service {
	s := &Service{
		storage:   store,
		clipboard: clipboard.System{},
		now:       time.Now,
		policy:    storage.ResetFavorite,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Path returns the vault database path
func (s *Service) Path() string {
	return s.storage.Path()
}

// Modes returns the default formatting modes
func (s *Service) Modes() renderer.Modes {
	return s.modes
}

// Save formats draft with modes and upserts it by title. The positive text
// is checked after formatting, so an empty positive passes in pony mode.
// The category is remembered as last_category.
func (s *Service) Save(ctx context.Context, draft models.Draft, modes renderer.Modes) (*models.Prompt, error) {
	d := draft.Normalize()
	pos, neg := renderer.Apply(d.Positive, d.Negative, modes)

	prompt := models.Prompt{
		Name:     d.Title,
		Category: d.Category,
		Tags:     d.Tags,
		Positive: pos,
		Negative: neg,
	}
	now := s.now()
	if err := s.storage.SavePrompt(ctx, prompt, now, s.policy); err != nil {
		return nil, err
	}
	if err := s.storage.SetSetting(ctx, models.SettingLastCategory, prompt.Category); err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{"title": prompt.Name, "category": prompt.Category}).Info("prompt saved")
	return s.storage.GetPrompt(ctx, prompt.Name)
}

// Load returns the prompt with title without marking it used
func (s *Service) Load(ctx context.Context, title string) (*models.Prompt, error) {
	return s.storage.GetPrompt(ctx, title)
}

// Use returns the prompt with title and stamps it as used now
func (s *Service) Use(ctx context.Context, title string) (*models.Prompt, error) {
	touched, err := s.storage.TouchLastUsed(ctx, title, s.now())
	if err != nil {
		return nil, err
	}
	if !touched {
		return nil, errors.NotFoundError("Prompt").WithContext("title", title)
	}
	return s.storage.GetPrompt(ctx, title)
}

// Random picks a prompt uniformly among those matching filter and search and
// marks it used. found is false when nothing matches.
func (s *Service) Random(ctx context.Context, filter models.Filter, search string) (*models.Prompt, bool, error) {
	title, found, err := s.storage.RandomPick(ctx, filter, search)
	if err != nil || !found {
		return nil, false, err
	}
	p, err := s.Use(ctx, title)
	if errors.IsNotFound(err) {
		// Deleted between the pick and the touch
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return p, true, nil
}

// Delete removes title. A title that no longer exists is not an error.
func (s *Service) Delete(ctx context.Context, title string) (bool, error) {
	deleted, err := s.storage.DeletePrompt(ctx, title)
	if err != nil {
		return false, err
	}
	if !deleted {
		log.WithField("title", title).Debug("delete of missing prompt ignored")
	}
	return deleted, nil
}

// ToggleFavorite flips the favorite flag of title. found is false, with no
// error, when the title no longer exists.
func (s *Service) ToggleFavorite(ctx context.Context, title string) (favorite, found bool, err error) {
	favorite, err = s.storage.ToggleFavorite(ctx, title)
	if errors.IsNotFound(err) {
		log.WithField("title", title).Debug("favorite toggle on missing prompt ignored")
		return false, false, nil
	}
	if err != nil {
		return false, false, err
	}
	return favorite, true, nil
}

// Render returns the formatted text of title for part
func (s *Service) Render(ctx context.Context, title string, part renderer.Part, modes renderer.Modes) (string, error) {
	p, err := s.storage.GetPrompt(ctx, title)
	if err != nil {
		return "", err
	}
	return renderer.RenderText(p, part, modes), nil
}

// Copy puts the formatted text of title on the clipboard and returns it
func (s *Service) Copy(ctx context.Context, title string, part renderer.Part, modes renderer.Modes) (string, error) {
	text, err := s.Render(ctx, title, part, modes)
	if err != nil {
		return "", err
	}
	if err := s.CopyText(text); err != nil {
		return "", err
	}
	return text, nil
}

// CopyText puts text on the clipboard
func (s *Service) CopyText(text string) error {
	if _, err := clipboard.CopyWithFallback(s.clipboard, text); err != nil {
		return errors.ClipboardError(err).WithDetails(clipboard.GetInstallInstructions())
	}
	return nil
}

// List runs a filtered search and returns the rows with their titles
func (s *Service) List(ctx context.Context, filter models.Filter, search string) (*models.Listing, error) {
	items, err := s.storage.QueryPrompts(ctx, filter, search)
	if err != nil {
		return nil, err
	}
	return &models.Listing{Filter: filter, Search: search, Items: items}, nil
}

// All returns every full record, most recently used first
func (s *Service) All(ctx context.Context) ([]*models.Prompt, error) {
	return s.storage.ListPrompts(ctx)
}

// Categories returns the sorted union of stored and default categories
func (s *Service) Categories(ctx context.Context) ([]string, error) {
	return s.storage.ListCategories(ctx)
}

// FilterOptions returns the filter menu: All, Favorites, then the categories
func (s *Service) FilterOptions(ctx context.Context) ([]string, error) {
	categories, err := s.Categories(ctx)
	if err != nil {
		return nil, err
	}
	return models.FilterOptions(categories), nil
}

// LastCategory returns the category of the last save if it is still offered
func (s *Service) LastCategory(ctx context.Context) (string, error) {
	last, err := s.storage.GetSetting(ctx, models.SettingLastCategory, "")
	if err != nil || last == "" {
		return "", err
	}
	categories, err := s.Categories(ctx)
	if err != nil {
		return "", err
	}
	for _, c := range categories {
		if c == last {
			return last, nil
		}
	}
	return "", nil
}

// Status summarizes a listing against the whole vault
func (s *Service) Status(ctx context.Context, listing *models.Listing) (string, error) {
	total, favorites, err := s.storage.Counts(ctx)
	if err != nil {
		return "", err
	}

	view := models.FilterNameAll
	if listing != nil {
		view = listing.Filter.String()
		if models.NormalizeSearch(listing.Search) != "" {
			view = fmt.Sprintf("Search: '%s'", listing.Search)
		}
	}
	return fmt.Sprintf("%d shown • %d total • %d favorites • %s", listing.Len(), total, favorites, view), nil
}

// Suggest returns titles that fuzzily match a title that was not found
func (s *Service) Suggest(ctx context.Context, title string) ([]string, error) {
	items, err := s.storage.QueryPrompts(ctx, models.AllFilter(), "")
	if err != nil {
		return nil, err
	}

	names := make([]string, len(items))
	for i, item := range items {
		names[i] = item.Name
	}

	var suggestions []string
	for _, match := range fuzzy.Find(title, names) {
		suggestions = append(suggestions, names[match.Index])
		if len(suggestions) == maxSuggestions {
			break
		}
	}
	return suggestions, nil
}

// Backup copies the vault to dest, or to the dated default name in the
// working directory when dest is empty. It returns the path written.
func (s *Service) Backup(ctx context.Context, dest string) (string, error) {
	if dest == "" {
		dest = storage.DefaultBackupName(s.now())
	}
	if err := s.storage.Backup(ctx, dest); err != nil {
		return "", err
	}
	return dest, nil
}

// Restore replaces the vault with the backup at src
func (s *Service) Restore(ctx context.Context, src string) error {
	return s.storage.Restore(ctx, src)
}

// Export writes every prompt to w as a YAML bundle and returns the count
func (s *Service) Export(ctx context.Context, w io.Writer) (int, error) {
	prompts, err := s.storage.ListPrompts(ctx)
	if err != nil {
		return 0, err
	}
	if err := importer.Export(w, prompts, s.now()); err != nil {
		return 0, errors.IOError("Export", err)
	}
	return len(prompts), nil
}

// ExportMarkdown writes every prompt to dir as a markdown file
func (s *Service) ExportMarkdown(ctx context.Context, dir string) (int, error) {
	prompts, err := s.storage.ListPrompts(ctx)
	if err != nil {
		return 0, err
	}
	written, err := importer.WriteMarkdownDir(dir, prompts)
	if err != nil {
		return len(written), errors.IOError("Export", err).WithContext("dir", dir)
	}
	return len(written), nil
}

// Import reads a YAML bundle from r into the vault
func (s *Service) Import(ctx context.Context, r io.Reader, options importer.ImportOptions) (*importer.ImportResult, error) {
	bundle, err := importer.ReadBundle(r)
	if err != nil {
		return nil, err
	}
	return s.importPrompts(ctx, bundle.Prompts, options)
}

// ImportMarkdown reads a directory of markdown prompt files into the vault
func (s *Service) ImportMarkdown(ctx context.Context, dir string, options importer.ImportOptions) (*importer.ImportResult, error) {
	prompts, readErrs := importer.ReadMarkdownDir(dir)
	result, err := s.importPrompts(ctx, prompts, options)
	if result != nil {
		result.Errors = append(readErrs, result.Errors...)
	}
	return result, err
}

// Merge copies the prompts of another vault file into this one, keeping
// their timestamps and favorite flags
func (s *Service) Merge(ctx context.Context, path string, options importer.ImportOptions) (*importer.ImportResult, error) {
	if s.storage.IsVault(path) {
		return nil, errors.InvalidInputError("cannot merge a vault into itself")
	}
	prompts, err := storage.ReadVault(ctx, path)
	if err != nil {
		return nil, err
	}
	return s.importPrompts(ctx, prompts, options)
}

func (s *Service) importPrompts(ctx context.Context, prompts []*models.Prompt, options importer.ImportOptions) (*importer.ImportResult, error) {
	result, err := importer.Import(ctx, s.storage, prompts, options)
	if err != nil {
		return result, err
	}
	log.WithFields(log.Fields{
		"imported": len(result.Imported),
		"skipped":  len(result.Skipped),
		"errors":   len(result.Errors),
		"dry_run":  options.DryRun,
	}).Info("import finished")
	return result, nil
}

// GetSetting returns a stored setting or its first-run default
func (s *Service) GetSetting(ctx context.Context, key string) (string, error) {
	return s.storage.GetSetting(ctx, key, models.DefaultSetting(key))
}

// SetSetting stores a setting
func (s *Service) SetSetting(ctx context.Context, key, value string) error {
	return s.storage.SetSetting(ctx, key, value)
}

// Settings returns every stored setting
func (s *Service) Settings(ctx context.Context) ([]models.Setting, error) {
	return s.storage.ListSettings(ctx)
}
