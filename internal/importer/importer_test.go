package importer

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dpshade/prompt-vault/internal/errors"
	"github.com/dpshade/prompt-vault/internal/models"
)

const testMarkdownPrompt = `---
title: Neon Alley
category: Juggernaut
tags: [Neon, city, neon]
negative: blurry
favorite: true
---
rainy alley, neon signs, night
`

// memStore is an in-memory Store keyed by title
type memStore struct {
	prompts map[string]models.Prompt
}

func newMemStore() *memStore {
	return &memStore{prompts: make(map[string]models.Prompt)}
}

func (m *memStore) GetPrompt(ctx context.Context, title string) (*models.Prompt, error) {
	p, ok := m.prompts[title]
	if !ok {
		return nil, errors.NotFoundError("Prompt")
	}
	return &p, nil
}

func (m *memStore) PutPrompt(ctx context.Context, p models.Prompt) error {
	if p.Name == "" || p.Category == "" || p.Positive == "" {
		return errors.MissingFieldError("title")
	}
	m.prompts[p.Name] = p
	return nil
}

func TestExportReadBundleRoundTrip(t *testing.T) {
	used := time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC)
	prompts := []*models.Prompt{
		{Name: "cat", Category: "Pony", Tags: "animal", Positive: "a cat", Negative: "blurry", LastUsed: used, Favorite: true},
		{Name: "dog", Category: "Juggernaut", Positive: "a dog"},
	}

	var buf bytes.Buffer
	if err := Export(&buf, prompts, used); err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	if !strings.Contains(buf.String(), "version: 1") {
		t.Errorf("Bundle should carry its version:\n%s", buf.String())
	}

	bundle, err := ReadBundle(&buf)
	if err != nil {
		t.Fatalf("ReadBundle failed: %v", err)
	}
	if len(bundle.Prompts) != 2 {
		t.Fatalf("Expected 2 prompts, got %d", len(bundle.Prompts))
	}

	got := bundle.Prompts[0]
	if got.Name != "cat" || !got.Favorite || got.Negative != "blurry" {
		t.Errorf("Unexpected prompt after round trip: %+v", got)
	}
	if !got.LastUsed.Equal(used) {
		t.Errorf("Expected last used %v, got %v", used, got.LastUsed)
	}
}

func TestReadBundleRejectsGarbage(t *testing.T) {
	_, err := ReadBundle(strings.NewReader("prompts: [unclosed"))
	if !errors.HasCode(err, errors.ErrCodeFileCorrupted) {
		t.Errorf("Expected FILE_CORRUPTED, got %v", err)
	}

	_, err = ReadBundle(strings.NewReader("version: 99\nprompts: []\n"))
	if !errors.HasCode(err, errors.ErrCodeInvalidInput) {
		t.Errorf("Expected INVALID_INPUT for future version, got %v", err)
	}
}

func TestImport(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	store.prompts["cat"] = models.Prompt{Name: "cat", Category: "Pony", Positive: "old cat"}

	prompts := []*models.Prompt{
		{Name: " cat ", Category: "Pony", Positive: "new cat", Favorite: true},
		{Name: "dog", Category: "Juggernaut", Positive: "a dog", Tags: "Pet"},
		{Name: "broken", Positive: "no category"},
		nil,
	}

	result, err := Import(ctx, store, prompts, ImportOptions{Tags: []string{"imported"}})
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	if len(result.Imported) != 2 {
		t.Errorf("Expected 2 imported, got %v", result.Imported)
	}
	if len(result.Errors) != 1 {
		t.Errorf("Expected 1 error, got %v", result.Errors)
	}

	if got := store.prompts["cat"]; got.Positive != "new cat" || !got.Favorite {
		t.Errorf("Existing title should be replaced with favorite kept from the source: %+v", got)
	}
	if got := store.prompts["dog"].Tags; got != "Pet, imported" {
		t.Errorf("Expected appended tags %q, got %q", "Pet, imported", got)
	}
}

func TestImportKeepsTagText(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		tags  string
		extra []string
		want  string
	}{
		{"city,night,city", nil, "city,night,city"},
		{"City,  night", nil, "City,  night"},
		{"city,night", []string{"night", " New "}, "city,night, new"},
		{"", []string{"shared"}, "shared"},
	}
	for _, tt := range tests {
		store := newMemStore()
		prompts := []*models.Prompt{{Name: "neon", Category: "Pony", Positive: "a street", Tags: tt.tags}}
		if _, err := Import(ctx, store, prompts, ImportOptions{Tags: tt.extra}); err != nil {
			t.Fatalf("Import failed: %v", err)
		}
		if got := store.prompts["neon"].Tags; got != tt.want {
			t.Errorf("Import(%q, %v) stored tags %q, want %q", tt.tags, tt.extra, got, tt.want)
		}
	}
}

func TestImportSkipExistingAndDryRun(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	store.prompts["cat"] = models.Prompt{Name: "cat", Category: "Pony", Positive: "old cat"}

	prompts := []*models.Prompt{
		{Name: "cat", Category: "Pony", Positive: "new cat"},
		{Name: "dog", Category: "Pony", Positive: "a dog"},
	}

	result, err := Import(ctx, store, prompts, ImportOptions{SkipExisting: true, DryRun: true})
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	if len(result.Skipped) != 1 || result.Skipped[0] != "cat" {
		t.Errorf("Expected cat to be skipped, got %v", result.Skipped)
	}
	if len(result.Imported) != 1 || result.Imported[0] != "dog" {
		t.Errorf("Expected dog to be reported, got %v", result.Imported)
	}
	if _, ok := store.prompts["dog"]; ok {
		t.Error("Dry run must not write")
	}
	if store.prompts["cat"].Positive != "old cat" {
		t.Error("Skipped prompt must not change")
	}
}

func TestReadMarkdownDir(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"neon.md":             testMarkdownPrompt,
		"nested/plain_one.md": "just a positive prompt",
		"broken.md":           "---\ntitle: never closed\n",
		"notes.txt":           "ignored",
	}
	for path, content := range files {
		full := filepath.Join(dir, path)
		if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
			t.Fatalf("Failed to create dir: %v", err)
		}
		if err := os.WriteFile(full, []byte(content), 0644); err != nil {
			t.Fatalf("Failed to write %s: %v", path, err)
		}
	}

	prompts, errs := ReadMarkdownDir(dir)
	if len(errs) != 1 {
		t.Errorf("Expected 1 error for the unterminated file, got %v", errs)
	}
	if len(prompts) != 2 {
		t.Fatalf("Expected 2 prompts, got %d", len(prompts))
	}

	neon := prompts[0]
	if neon.Name != "Neon Alley" || neon.Category != "Juggernaut" || !neon.Favorite {
		t.Errorf("Unexpected frontmatter prompt: %+v", neon)
	}
	if neon.Tags != "neon, city" {
		t.Errorf("Expected deduplicated tags, got %q", neon.Tags)
	}
	if neon.Positive != "rainy alley, neon signs, night" {
		t.Errorf("Body should become the positive text, got %q", neon.Positive)
	}

	plain := prompts[1]
	if plain.Name != "plain one" || plain.Positive != "just a positive prompt" {
		t.Errorf("Unexpected plain prompt: %+v", plain)
	}
}

func TestReadMarkdownLongLine(t *testing.T) {
	long := strings.Repeat("detailed, ", 20000)
	content := "---\ntitle: Long\ncategory: Pony\n---\n" + long + "\n"
	header, body, err := parseFrontmatter([]byte(content))
	if err != nil {
		t.Fatalf("parseFrontmatter failed on a %d byte line: %v", len(long), err)
	}
	if header.Title != "Long" || body != strings.TrimSpace(long) {
		t.Errorf("Long body was not read whole: title %q, %d bytes", header.Title, len(body))
	}

	header, body, err = parseFrontmatter([]byte("---\ntitle: \"" + long + "\"\n---\nshort"))
	if err != nil || header.Title != long || body != "short" {
		t.Errorf("Long frontmatter line was not read: %v", err)
	}
}

func TestWriteMarkdownDirRoundTrip(t *testing.T) {
	dir := t.TempDir()
	prompts := []*models.Prompt{
		{Name: "a/b", Category: "Pony", Tags: "x, y", Positive: "first", Favorite: true},
		{Name: "a:b", Category: "Pony", Positive: "second"},
	}

	paths, err := WriteMarkdownDir(dir, prompts)
	if err != nil {
		t.Fatalf("WriteMarkdownDir failed: %v", err)
	}
	if len(paths) != 2 || paths[0] == paths[1] {
		t.Fatalf("Expected two distinct files, got %v", paths)
	}

	back, errs := ReadMarkdownDir(dir)
	if len(errs) != 0 {
		t.Fatalf("Unexpected read errors: %v", errs)
	}
	if len(back) != 2 {
		t.Fatalf("Expected 2 prompts back, got %d", len(back))
	}
	if back[0].Name != "a/b" || back[0].Tags != "x, y" || !back[0].Favorite {
		t.Errorf("Unexpected prompt after round trip: %+v", back[0])
	}
}
