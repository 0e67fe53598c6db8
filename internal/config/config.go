package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix for environment overrides, e.g. PROMPT_VAULT_DATA_DIR
const EnvPrefix = "PROMPT_VAULT"

// Config holds the runtime configuration
type Config struct {
	DataDir       string `mapstructure:"data_dir"`
	DBFile        string `mapstructure:"db_file"`
	LogLevel      string `mapstructure:"log_level"`
	LogFile       string `mapstructure:"log_file"`
	PonyMode      bool   `mapstructure:"pony_mode"`
	RealismMode   bool   `mapstructure:"realism_mode"`
	RetryAttempts uint   `mapstructure:"retry_attempts"`

	// KeepFavoriteOnEdit keeps the favorite flag when a save replaces an
	// existing title. Off by default: a replaced prompt starts unstarred.
	KeepFavoriteOnEdit bool `mapstructure:"keep_favorite_on_edit"`
}

// DefaultConfig returns the built-in defaults
func DefaultConfig() Config {
	dataDir := ".prompt-vault"
	if home, err := os.UserHomeDir(); err == nil {
		dataDir = filepath.Join(home, ".prompt-vault")
	}
	return Config{
		DataDir:       dataDir,
		DBFile:        "prompt_vault.db",
		LogLevel:      "info",
		PonyMode:      true,
		RealismMode:   false,
		RetryAttempts: 3,
	}
}

// DBPath returns the absolute database path. A db_file that is already
// absolute is used as-is.
func (c Config) DBPath() string {
	if filepath.IsAbs(c.DBFile) {
		return c.DBFile
	}
	return filepath.Join(c.DataDir, c.DBFile)
}

// LogPath returns the log file path, defaulting to <data_dir>/logs
func (c Config) LogPath() string {
	if c.LogFile != "" {
		return c.LogFile
	}
	return filepath.Join(c.DataDir, "logs", "prompt-vault.log")
}

// LoadDotEnv loads environment variables from a .env file if present.
// Existing environment variables are not overwritten.
func LoadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return godotenv.Load(path)
}

// Load resolves configuration from defaults, an optional config file and
// PROMPT_VAULT_* environment variables, in increasing precedence.
// cfgFile may be empty, in which case config.yaml is looked up in the
// working directory and in the data directory.
func Load(cfgFile string) (Config, error) {
	if err := LoadDotEnv(".env"); err != nil {
		return Config{}, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	defaults := DefaultConfig()
	v.SetDefault("data_dir", defaults.DataDir)
	v.SetDefault("db_file", defaults.DBFile)
	v.SetDefault("log_level", defaults.LogLevel)
	v.SetDefault("log_file", defaults.LogFile)
	v.SetDefault("pony_mode", defaults.PonyMode)
	v.SetDefault("realism_mode", defaults.RealismMode)
	v.SetDefault("retry_attempts", defaults.RetryAttempts)
	v.SetDefault("keep_favorite_on_edit", defaults.KeepFavoriteOnEdit)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath(v.GetString("data_dir"))
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.DataDir = expandHome(cfg.DataDir)
	cfg.LogFile = expandHome(cfg.LogFile)
	if cfg.RetryAttempts == 0 {
		cfg.RetryAttempts = 1
	}
	return cfg, nil
}

func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}
