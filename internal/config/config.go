package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"

	"github.com/spachava753/mcdl/internal/digest"
	"github.com/spachava753/mcdl/internal/models"
)

const (
	AppName            = "mcdl"
	DefaultManifestURL = "https://piston-meta.mojang.com/mc/game/version_manifest_v2.json"
)

// DefaultConfig returns a Config with default values.
func DefaultConfig() models.Config {
	return models.Config{
		InstallRoot:    filepath.Join(dataDir(), AppName, "instance"),
		CacheDir:       filepath.Join(cacheDir(), AppName),
		ManifestURL:    DefaultManifestURL,
		HashAlgorithm:  string(digest.SHA1),
		Concurrency:    8,
		HTTPTimeoutSec: 30,
		CacheTTLSec:    600,
		Side:           models.SideServer,
		Retry: models.RetryConfig{
			MaxAttempts:    3,
			InitialDelayMs: 200,
			MaxDelayMs:     5000,
			Multiplier:     2.0,
		},
		Instance: models.InstanceConfig{
			Memory: "2G",
		},
	}
}

// DefaultPath is where LoadConfig looks when no path is given.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, AppName, "config.yaml")
}

// LoadConfig loads and parses a config.yaml file. An empty path falls
// back to DefaultPath; a missing default file yields the defaults.
func LoadConfig(path string) (models.Config, error) {
	cfg := DefaultConfig()

	explicit := path != ""
	if !explicit {
		path = DefaultPath()
		if path == "" {
			return cfg, nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}

	if err := applyDefaults(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyDefaults(cfg *models.Config) error {
	def := DefaultConfig()

	if cfg.InstallRoot == "" {
		cfg.InstallRoot = def.InstallRoot
	}
	if cfg.CacheDir == "" {
		cfg.CacheDir = def.CacheDir
	}
	if cfg.ManifestURL == "" {
		cfg.ManifestURL = def.ManifestURL
	}
	if cfg.HashAlgorithm == "" {
		cfg.HashAlgorithm = def.HashAlgorithm
	}
	if _, err := digest.ParseAlgorithm(cfg.HashAlgorithm); err != nil {
		return fmt.Errorf("hash_algorithm: %w", err)
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = def.Concurrency
	}
	if cfg.HTTPTimeoutSec <= 0 {
		cfg.HTTPTimeoutSec = def.HTTPTimeoutSec
	}
	if cfg.CacheTTLSec < 0 {
		cfg.CacheTTLSec = 0
	}
	switch cfg.Side {
	case "":
		cfg.Side = def.Side
	case models.SideClient, models.SideServer:
	default:
		return fmt.Errorf("side: must be %q or %q, got %q", models.SideClient, models.SideServer, cfg.Side)
	}
	if cfg.Retry.MaxAttempts <= 0 {
		cfg.Retry.MaxAttempts = def.Retry.MaxAttempts
	}
	if cfg.Retry.InitialDelayMs < 0 {
		cfg.Retry.InitialDelayMs = 0
	}
	if cfg.Retry.MaxDelayMs <= 0 {
		cfg.Retry.MaxDelayMs = def.Retry.MaxDelayMs
	}
	if cfg.Retry.Multiplier < 1 {
		cfg.Retry.Multiplier = def.Retry.Multiplier
	}
	return nil
}

func cacheDir() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return dir
	}
	return os.TempDir()
}

// dataDir follows XDG on unix and falls back to the config dir elsewhere.
func dataDir() string {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return dir
	}
	if runtime.GOOS == "windows" || runtime.GOOS == "darwin" {
		if dir, err := os.UserConfigDir(); err == nil {
			return dir
		}
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".local", "share")
	}
	return "."
}
