package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.DBFile != "prompt_vault.db" {
		t.Errorf("Expected default db file prompt_vault.db, got %s", cfg.DBFile)
	}
	if !cfg.PonyMode || cfg.RealismMode {
		t.Errorf("Expected pony on and realism off by default, got %+v", cfg)
	}
	if cfg.KeepFavoriteOnEdit {
		t.Error("Favorites should reset on edit by default")
	}
	if cfg.RetryAttempts != 3 {
		t.Errorf("Expected 3 retry attempts, got %d", cfg.RetryAttempts)
	}
}

func TestPaths(t *testing.T) {
	cfg := Config{DataDir: "/data", DBFile: "vault.db"}
	if got := cfg.DBPath(); got != filepath.Join("/data", "vault.db") {
		t.Errorf("DBPath = %s", got)
	}
	if got := cfg.LogPath(); got != filepath.Join("/data", "logs", "prompt-vault.log") {
		t.Errorf("LogPath = %s", got)
	}

	abs := filepath.Join(t.TempDir(), "elsewhere.db")
	cfg.DBFile = abs
	if got := cfg.DBPath(); got != abs {
		t.Errorf("Absolute db_file should be used as-is, got %s", got)
	}

	cfg.LogFile = "/var/log/pv.log"
	if got := cfg.LogPath(); got != "/var/log/pv.log" {
		t.Errorf("Explicit log file should win, got %s", got)
	}
}

func TestLoadFromFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	cfgFile := filepath.Join(dir, "config.yaml")
	content := "data_dir: " + dir + "\n" +
		"db_file: custom.db\n" +
		"realism_mode: true\n" +
		"retry_attempts: 0\n"
	if err := os.WriteFile(cfgFile, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("PROMPT_VAULT_PONY_MODE", "false")
	t.Setenv("PROMPT_VAULT_KEEP_FAVORITE_ON_EDIT", "true")

	cfg, err := Load(cfgFile)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.DBPath() != filepath.Join(dir, "custom.db") {
		t.Errorf("DBPath = %s", cfg.DBPath())
	}
	if !cfg.RealismMode {
		t.Error("realism_mode from file should be applied")
	}
	if cfg.PonyMode {
		t.Error("Environment should override pony_mode")
	}
	if !cfg.KeepFavoriteOnEdit {
		t.Error("Environment should set keep_favorite_on_edit")
	}
	if cfg.RetryAttempts != 1 {
		t.Errorf("Zero retry attempts should become 1, got %d", cfg.RetryAttempts)
	}
}

func TestLoadExpandsHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("PROMPT_VAULT_DATA_DIR", "~/vault")
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.DataDir != filepath.Join(home, "vault") {
		t.Errorf("Expected ~ to expand to %s, got %s", filepath.Join(home, "vault"), cfg.DataDir)
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	if err := os.WriteFile(envFile, []byte("PROMPT_VAULT_TEST_DOTENV=from-file\n"), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PROMPT_VAULT_TEST_DOTENV", "")
	os.Unsetenv("PROMPT_VAULT_TEST_DOTENV")

	if err := LoadDotEnv(envFile); err != nil {
		t.Fatalf("LoadDotEnv failed: %v", err)
	}
	if got := os.Getenv("PROMPT_VAULT_TEST_DOTENV"); got != "from-file" {
		t.Errorf("Expected value from .env, got %q", got)
	}

	if err := LoadDotEnv(filepath.Join(dir, "absent.env")); err != nil {
		t.Errorf("A missing .env should be ignored, got %v", err)
	}
}
