package storage

import (
	"context"
	"math/rand/v2"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/dpshade/prompt-vault/internal/errors"
	"github.com/dpshade/prompt-vault/internal/models"
)

var baseTime = time.Date(2024, 3, 1, 9, 0, 0, 0, time.Local)

func at(minutes int) time.Time {
	return baseTime.Add(time.Duration(minutes) * time.Minute)
}

func newTestStorage(t *testing.T, opts ...Option) *Storage {
	t.Helper()
	path := filepath.Join(t.TempDir(), "vault", "prompt_vault.db")
	s, err := NewStorage(context.Background(), path, opts...)
	if err != nil {
		t.Fatalf("Failed to create storage: %v", err)
	}
	return s
}

func mustSave(t *testing.T, s *Storage, p models.Prompt, now time.Time) {
	t.Helper()
	if err := s.SavePrompt(context.Background(), p, now, ResetFavorite); err != nil {
		t.Fatalf("Failed to save %q: %v", p.Name, err)
	}
}

func titles(items []models.Summary) []string {
	out := make([]string, len(items))
	for i, item := range items {
		out[i] = item.Name
	}
	return out
}

// matches is the reference rule for queries: exact category, favorite flag,
// and a case-insensitive substring over title, tags, prompts and category
func matches(p *models.Prompt, filter models.Filter, search string) bool {
	switch filter.Kind {
	case models.FilterFavorites:
		if !p.Favorite {
			return false
		}
	case models.FilterCategory:
		if p.Category != filter.Category {
			return false
		}
	}

	needle := models.NormalizeSearch(search)
	if needle == "" {
		return true
	}
	for _, field := range []string{p.Name, p.Tags, p.Positive, p.Negative, p.Category} {
		if strings.Contains(strings.ToLower(field), needle) {
			return true
		}
	}
	return false
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestNewStorageCreatesDefaults(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage(t)

	if _, err := os.Stat(s.Path()); err != nil {
		t.Fatalf("Database file should exist: %v", err)
	}

	for _, setting := range models.DefaultSettings {
		got, err := s.GetSetting(ctx, setting.Key, "missing")
		if err != nil {
			t.Fatalf("GetSetting(%s) failed: %v", setting.Key, err)
		}
		if got != setting.Value {
			t.Errorf("Setting %s = %q, want %q", setting.Key, got, setting.Value)
		}
	}

	// A second init must not reset changed settings
	if err := s.SetSetting(ctx, models.SettingTheme, models.ThemeDark); err != nil {
		t.Fatalf("SetSetting failed: %v", err)
	}
	if err := s.InitLibrary(ctx); err != nil {
		t.Fatalf("InitLibrary failed: %v", err)
	}
	if got, _ := s.GetSetting(ctx, models.SettingTheme, ""); got != models.ThemeDark {
		t.Errorf("Theme was reset to %q by a second init", got)
	}
}

func TestNewStorageEmptyPath(t *testing.T) {
	if _, err := NewStorage(context.Background(), ""); !errors.HasCode(err, errors.ErrCodeInvalidInput) {
		t.Errorf("Expected INVALID_INPUT, got %v", err)
	}
}

func TestSettings(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage(t)

	if got, err := s.GetSetting(ctx, "unknown_key", "fallback"); err != nil || got != "fallback" {
		t.Errorf("GetSetting on missing key = %q, %v; want fallback", got, err)
	}

	if err := s.SetSetting(ctx, models.SettingTheme, "Purple"); !errors.HasCode(err, errors.ErrCodeValidation) {
		t.Errorf("Expected invalid theme to be rejected, got %v", err)
	}

	if err := s.SetSetting(ctx, models.SettingLastCategory, "Upscale"); err != nil {
		t.Fatalf("SetSetting failed: %v", err)
	}
	if err := s.SetSetting(ctx, models.SettingLastCategory, "Video Gen"); err != nil {
		t.Fatalf("SetSetting failed: %v", err)
	}
	if got, _ := s.GetSetting(ctx, models.SettingLastCategory, ""); got != "Video Gen" {
		t.Errorf("Expected overwritten value, got %q", got)
	}

	settings, err := s.ListSettings(ctx)
	if err != nil {
		t.Fatalf("ListSettings failed: %v", err)
	}
	if len(settings) != len(models.DefaultSettings) {
		t.Errorf("Expected %d settings, got %d", len(models.DefaultSettings), len(settings))
	}
	if !sort.SliceIsSorted(settings, func(i, j int) bool { return settings[i].Key < settings[j].Key }) {
		t.Errorf("Settings should be ordered by key: %+v", settings)
	}
}

func TestSavePromptUpsert(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage(t)

	p := models.Prompt{Name: "cat", Category: "Pony", Tags: "animal", Positive: "a cat", Negative: "blurry"}
	mustSave(t, s, p, at(0))
	mustSave(t, s, p, at(1))

	total, _, err := s.Counts(ctx)
	if err != nil {
		t.Fatalf("Counts failed: %v", err)
	}
	if total != 1 {
		t.Errorf("Saving the same title twice should leave one row, got %d", total)
	}

	got, err := s.GetPrompt(ctx, "cat")
	if err != nil {
		t.Fatalf("GetPrompt failed: %v", err)
	}
	if !got.LastUsed.Equal(at(1)) {
		t.Errorf("Expected last used %v, got %v", at(1), got.LastUsed)
	}
	if got.Tags != "animal" || got.Negative != "blurry" {
		t.Errorf("Unexpected stored prompt: %+v", got)
	}
}

func TestSavePromptValidation(t *testing.T) {
	s := newTestStorage(t)
	err := s.SavePrompt(context.Background(), models.Prompt{Name: "x", Category: "Pony"}, at(0), ResetFavorite)
	if !errors.HasCode(err, errors.ErrCodeMissingField) {
		t.Errorf("Expected MISSING_FIELD, got %v", err)
	}
}

func TestSavePromptFavoritePolicy(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage(t)
	p := models.Prompt{Name: "cat", Category: "Pony", Positive: "a cat"}

	mustSave(t, s, p, at(0))
	if _, err := s.ToggleFavorite(ctx, "cat"); err != nil {
		t.Fatalf("ToggleFavorite failed: %v", err)
	}

	p.Positive = "a black cat"
	if err := s.SavePrompt(ctx, p, at(1), KeepFavorite); err != nil {
		t.Fatalf("SavePrompt failed: %v", err)
	}
	got, _ := s.GetPrompt(ctx, "cat")
	if !got.Favorite || got.Positive != "a black cat" {
		t.Errorf("KeepFavorite should update text and keep the flag: %+v", got)
	}

	mustSave(t, s, p, at(2))
	got, _ = s.GetPrompt(ctx, "cat")
	if got.Favorite {
		t.Error("ResetFavorite should clear the flag on replace")
	}
}

func TestGetPromptNotFound(t *testing.T) {
	s := newTestStorage(t)
	_, err := s.GetPrompt(context.Background(), "nope")
	if !errors.IsNotFound(err) {
		t.Errorf("Expected NOT_FOUND, got %v", err)
	}
}

func TestDeletePrompt(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage(t)
	mustSave(t, s, models.Prompt{Name: "cat", Category: "Pony", Positive: "a cat"}, at(0))

	deleted, err := s.DeletePrompt(ctx, "nope")
	if err != nil || deleted {
		t.Errorf("Deleting a missing title = %v, %v; want false, nil", deleted, err)
	}

	deleted, err = s.DeletePrompt(ctx, "cat")
	if err != nil || !deleted {
		t.Errorf("Deleting an existing title = %v, %v; want true, nil", deleted, err)
	}
	if _, err := s.GetPrompt(ctx, "cat"); !errors.IsNotFound(err) {
		t.Errorf("Deleted prompt should be gone, got %v", err)
	}
}

func TestToggleFavorite(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage(t)
	mustSave(t, s, models.Prompt{Name: "cat", Category: "Pony", Positive: "a cat"}, at(0))

	for i, want := range []bool{true, false, true} {
		got, err := s.ToggleFavorite(ctx, "cat")
		if err != nil {
			t.Fatalf("ToggleFavorite failed: %v", err)
		}
		if got != want {
			t.Errorf("Toggle %d returned %v, want %v", i, got, want)
		}
	}

	_, favorites, _ := s.Counts(ctx)
	if favorites != 1 {
		t.Errorf("Expected 1 favorite, got %d", favorites)
	}

	if _, err := s.ToggleFavorite(ctx, "nope"); !errors.IsNotFound(err) {
		t.Errorf("Expected NOT_FOUND for missing title, got %v", err)
	}
}

func TestQueryOrderingAndTouch(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage(t)

	mustSave(t, s, models.Prompt{Name: "a", Category: "Pony", Positive: "one"}, at(0))
	mustSave(t, s, models.Prompt{Name: "b", Category: "Pony", Positive: "two"}, at(1))
	mustSave(t, s, models.Prompt{Name: "c", Category: "Pony", Positive: "three"}, at(2))

	items, err := s.QueryPrompts(ctx, models.AllFilter(), "")
	if err != nil {
		t.Fatalf("QueryPrompts failed: %v", err)
	}
	if got := titles(items); !equalStrings(got, []string{"c", "b", "a"}) {
		t.Errorf("Expected most recent first, got %v", got)
	}

	touched, err := s.TouchLastUsed(ctx, "a", at(3))
	if err != nil || !touched {
		t.Fatalf("TouchLastUsed = %v, %v", touched, err)
	}
	items, _ = s.QueryPrompts(ctx, models.AllFilter(), "")
	if got := titles(items); !equalStrings(got, []string{"a", "c", "b"}) {
		t.Errorf("Touched prompt should move to the top, got %v", got)
	}

	if touched, _ := s.TouchLastUsed(ctx, "nope", at(4)); touched {
		t.Error("Touching a missing title should report false")
	}
}

func TestQueryEmptyResult(t *testing.T) {
	s := newTestStorage(t)
	items, err := s.QueryPrompts(context.Background(), models.FavoritesFilter(), "")
	if err != nil {
		t.Fatalf("QueryPrompts failed: %v", err)
	}
	if items == nil || len(items) != 0 {
		t.Errorf("Expected empty non-nil slice, got %#v", items)
	}
}

func TestQueryMatchesFilterSemantics(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage(t)

	fixtures := []models.Prompt{
		{Name: "Neon Alley", Category: "Juggernaut", Tags: "city, night", Positive: "rainy alley", Negative: "blurry"},
		{Name: "Forest", Category: "Pony", Tags: "nature", Positive: "tall TREES", Negative: ""},
		{Name: "Discount", Category: "Upscale", Tags: "sale", Positive: "50% off sign", Negative: "low_res"},
		{Name: "Portrait", Category: "pony", Tags: "face", Positive: "close up portrait", Negative: "bad hands"},
		{Name: "Underscore", Category: "Video Gen", Tags: "", Positive: "lowres clip", Negative: ""},
		{Name: "Élan Vital", Category: "Juggernaut", Tags: "café", Positive: "ÜBER portrait", Negative: ""},
		{Name: "Straße", Category: "Pony", Tags: "Ωmega", Positive: "night street", Negative: "ДЕФЕКТ"},
	}
	for i, p := range fixtures {
		mustSave(t, s, p, at(i))
	}
	if _, err := s.ToggleFavorite(ctx, "Forest"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.ToggleFavorite(ctx, "Discount"); err != nil {
		t.Fatal(err)
	}

	all, err := s.ListPrompts(ctx)
	if err != nil {
		t.Fatalf("ListPrompts failed: %v", err)
	}

	filters := []models.Filter{
		models.AllFilter(),
		models.FavoritesFilter(),
		models.CategoryFilter("Pony"),
		models.CategoryFilter("pony"),
		models.CategoryFilter("Missing"),
	}
	searches := []string{"", "alley", "  TREES ", "50%", "low_", "_", "%", "pony", "zzz",
		"Élan", "élan", "ÉLAN", "über", "ÜBER", "CAFÉ", "ωMEGA", "дефект", "straße"}

	for _, filter := range filters {
		for _, search := range searches {
			items, err := s.QueryPrompts(ctx, filter, search)
			if err != nil {
				t.Fatalf("QueryPrompts(%v, %q) failed: %v", filter, search, err)
			}

			var want []string
			for _, p := range all {
				if matches(p, filter, search) {
					want = append(want, p.Name)
				}
			}
			if got := titles(items); !equalStrings(got, want) && !(len(got) == 0 && len(want) == 0) {
				t.Errorf("QueryPrompts(%v, %q) = %v, want %v", filter, search, got, want)
			}
		}
	}
}

func TestSearchWildcardsAreLiteral(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage(t)
	mustSave(t, s, models.Prompt{Name: "plain", Category: "Pony", Positive: "lowres"}, at(0))
	mustSave(t, s, models.Prompt{Name: "percent", Category: "Pony", Positive: "100% detail"}, at(1))

	items, _ := s.QueryPrompts(ctx, models.AllFilter(), "%")
	if got := titles(items); !equalStrings(got, []string{"percent"}) {
		t.Errorf("%% should match literally, got %v", got)
	}
	items, _ = s.QueryPrompts(ctx, models.AllFilter(), "low_es")
	if len(items) != 0 {
		t.Errorf("_ should match literally, got %v", titles(items))
	}
}

func TestListCategories(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage(t)

	categories, err := s.ListCategories(ctx)
	if err != nil {
		t.Fatalf("ListCategories failed: %v", err)
	}
	want := append([]string(nil), models.DefaultCategories...)
	sort.Strings(want)
	if !equalStrings(categories, want) {
		t.Errorf("Empty vault categories = %v, want %v", categories, want)
	}

	mustSave(t, s, models.Prompt{Name: "a", Category: "Zeta", Positive: "x"}, at(0))
	mustSave(t, s, models.Prompt{Name: "b", Category: "Pony", Positive: "x"}, at(1))
	mustSave(t, s, models.Prompt{Name: "c", Category: "Alpha", Positive: "x"}, at(2))

	categories, _ = s.ListCategories(ctx)
	want = append(want, "Zeta", "Alpha")
	sort.Strings(want)
	if !equalStrings(categories, want) {
		t.Errorf("Categories = %v, want %v", categories, want)
	}
}

func TestRandomPick(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage(t, WithRand(rand.New(rand.NewPCG(7, 11))))

	if _, found, err := s.RandomPick(ctx, models.AllFilter(), ""); err != nil || found {
		t.Errorf("Random pick on an empty vault = %v, %v; want not found", found, err)
	}

	mustSave(t, s, models.Prompt{Name: "only", Category: "Pony", Positive: "x"}, at(0))
	for i := 0; i < 5; i++ {
		title, found, err := s.RandomPick(ctx, models.AllFilter(), "")
		if err != nil || !found || title != "only" {
			t.Fatalf("Single-element pick = %q, %v, %v", title, found, err)
		}
	}

	mustSave(t, s, models.Prompt{Name: "two", Category: "Pony", Positive: "x"}, at(1))
	mustSave(t, s, models.Prompt{Name: "three", Category: "Pony", Positive: "x"}, at(2))
	mustSave(t, s, models.Prompt{Name: "other", Category: "Upscale", Positive: "x"}, at(3))

	counts := make(map[string]int)
	const picks = 600
	for i := 0; i < picks; i++ {
		title, found, err := s.RandomPick(ctx, models.CategoryFilter("Pony"), "")
		if err != nil || !found {
			t.Fatalf("RandomPick failed: %v", err)
		}
		counts[title]++
	}
	if counts["other"] != 0 {
		t.Errorf("Pick escaped the filter: %v", counts)
	}
	for _, title := range []string{"only", "two", "three"} {
		if counts[title] < 120 || counts[title] > 280 {
			t.Errorf("Pick distribution looks skewed: %v", counts)
			break
		}
	}
}

func TestBackupRestoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage(t)

	mustSave(t, s, models.Prompt{Name: "cat", Category: "Pony", Positive: "a cat"}, at(0))
	if _, err := s.ToggleFavorite(ctx, "cat"); err != nil {
		t.Fatal(err)
	}

	backupPath := filepath.Join(t.TempDir(), DefaultBackupName(baseTime))
	if err := s.Backup(ctx, backupPath); err != nil {
		t.Fatalf("Backup failed: %v", err)
	}

	if _, err := s.DeletePrompt(ctx, "cat"); err != nil {
		t.Fatal(err)
	}
	mustSave(t, s, models.Prompt{Name: "dog", Category: "Pony", Positive: "a dog"}, at(1))

	if err := s.Restore(ctx, backupPath); err != nil {
		t.Fatalf("Restore failed: %v", err)
	}

	got, err := s.GetPrompt(ctx, "cat")
	if err != nil {
		t.Fatalf("Restored prompt missing: %v", err)
	}
	if !got.Favorite || !got.LastUsed.Equal(at(0)) {
		t.Errorf("Restore should keep favorite and timestamp: %+v", got)
	}
	if _, err := s.GetPrompt(ctx, "dog"); !errors.IsNotFound(err) {
		t.Errorf("Prompt saved after the backup should be gone, got %v", err)
	}
}

func TestBackupRejectsLiveFile(t *testing.T) {
	s := newTestStorage(t)
	if err := s.Backup(context.Background(), s.Path()); !errors.HasCode(err, errors.ErrCodeInvalidInput) {
		t.Errorf("Expected INVALID_INPUT, got %v", err)
	}
	if err := s.Backup(context.Background(), ""); !errors.HasCode(err, errors.ErrCodeInvalidInput) {
		t.Errorf("Expected INVALID_INPUT for empty dest, got %v", err)
	}
}

func TestRestoreInvalidSourceLeavesLiveFile(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage(t)
	mustSave(t, s, models.Prompt{Name: "cat", Category: "Pony", Positive: "a cat"}, at(0))

	dir := t.TempDir()
	garbage := filepath.Join(dir, "garbage.db")
	if err := os.WriteFile(garbage, []byte("this is not a database file at all, not even close"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := s.Restore(ctx, garbage); !errors.HasCode(err, errors.ErrCodeFileCorrupted) {
		t.Errorf("Expected FILE_CORRUPTED for garbage, got %v", err)
	}

	empty := filepath.Join(dir, "empty.db")
	if err := os.WriteFile(empty, nil, 0644); err != nil {
		t.Fatal(err)
	}
	if err := s.Restore(ctx, empty); !errors.HasCode(err, errors.ErrCodeFileCorrupted) {
		t.Errorf("Expected FILE_CORRUPTED for a file without a prompts table, got %v", err)
	}

	if err := s.Restore(ctx, filepath.Join(dir, "missing.db")); !errors.HasCode(err, errors.ErrCodeFileNotFound) {
		t.Errorf("Expected FILE_NOT_FOUND, got %v", err)
	}

	if _, err := s.GetPrompt(ctx, "cat"); err != nil {
		t.Errorf("Live vault should be untouched after failed restores: %v", err)
	}
}

func TestReadVault(t *testing.T) {
	ctx := context.Background()
	src := newTestStorage(t)
	mustSave(t, src, models.Prompt{Name: "a", Category: "Pony", Positive: "x"}, at(0))
	mustSave(t, src, models.Prompt{Name: "b", Category: "Pony", Positive: "y"}, at(1))

	prompts, err := ReadVault(ctx, src.Path())
	if err != nil {
		t.Fatalf("ReadVault failed: %v", err)
	}
	if len(prompts) != 2 || prompts[0].Name != "b" {
		t.Errorf("Unexpected prompts: %+v", prompts)
	}

	if _, err := ReadVault(ctx, filepath.Join(t.TempDir(), "nope.db")); !errors.HasCode(err, errors.ErrCodeFileNotFound) {
		t.Errorf("Expected FILE_NOT_FOUND, got %v", err)
	}
}

func TestPutPromptPreservesFields(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage(t)

	in := models.Prompt{Name: "cat", Category: "Pony", Positive: "a cat", LastUsed: at(42), Favorite: true}
	if err := s.PutPrompt(ctx, in); err != nil {
		t.Fatalf("PutPrompt failed: %v", err)
	}
	got, err := s.GetPrompt(ctx, "cat")
	if err != nil {
		t.Fatal(err)
	}
	if !got.Favorite || !got.LastUsed.Equal(at(42)) {
		t.Errorf("PutPrompt should keep favorite and last used: %+v", got)
	}
}

func TestSearchFoldsUnicode(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage(t)
	mustSave(t, s, models.Prompt{Name: "Élan Vital", Category: "Pony", Positive: "ÜBER portrait"}, at(0))
	mustSave(t, s, models.Prompt{Name: "plain", Category: "Pony", Positive: "ascii only"}, at(1))

	for _, search := range []string{"Élan", "élan", "ÉLAN", "über", "ÜBER", "vital"} {
		items, err := s.QueryPrompts(ctx, models.AllFilter(), search)
		if err != nil {
			t.Fatalf("QueryPrompts(%q) failed: %v", search, err)
		}
		if got := titles(items); !equalStrings(got, []string{"Élan Vital"}) {
			t.Errorf("QueryPrompts(%q) = %v, want [Élan Vital]", search, got)
		}
	}

	title, found, err := s.RandomPick(ctx, models.AllFilter(), "élan")
	if err != nil || !found || title != "Élan Vital" {
		t.Errorf("RandomPick(élan) = %q, %v, %v", title, found, err)
	}
}
