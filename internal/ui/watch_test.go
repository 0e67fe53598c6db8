package ui

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWatchVault(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "prompt_vault.db")
	if err := os.WriteFile(path, []byte("one"), 0644); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changed := make(chan struct{}, 10)
	stop, err := watchVault(ctx, path, func() { changed <- struct{}{} })
	if err != nil {
		t.Fatalf("watchVault failed: %v", err)
	}
	defer stop()

	// Other files in the directory are ignored
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	select {
	case <-changed:
		t.Fatal("Unrelated file should not trigger a reload")
	case <-time.After(3 * watchDebounce):
	}

	// Replace the vault the way restore does
	tmp := filepath.Join(dir, "restore.tmp")
	if err := os.WriteFile(tmp, []byte("two"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.Rename(tmp, path); err != nil {
		t.Fatal(err)
	}

	select {
	case <-changed:
	case <-time.After(5 * time.Second):
		t.Fatal("Replacing the vault should trigger a reload")
	}
}
