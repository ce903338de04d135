package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fwojciec/dave"
	"gopkg.in/yaml.v3"
)

// dataDirName is the directory under the user's home holding config, logs,
// cached images and downloads.
const dataDirName = ".dave"

// environment holds the values read from environment variables.
type environment struct {
	OpenAIKey   string
	AssistantID string
	GeminiKey   string
}

// flags holds command-line values. Zero values mean "not given".
type flags struct {
	provider    string
	apiKey      string
	assistantID string
	model       string
	data        []string
	configPath  string
	timeout     time.Duration
	cacheDir    string
	transcript  string
	auditLog    string
	verbose     bool
}

// loadConfigFile reads a YAML config. A missing file at the default path is
// tolerated; any other failure is an error.
func loadConfigFile(path string, isDefault bool) (dave.Config, error) {
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
	case errors.Is(err, os.ErrNotExist) && isDefault:
		return dave.Config{}, nil
	default:
		return dave.Config{}, fmt.Errorf("read config: %w", err)
	}
	var cfg dave.Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return dave.Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// resolveConfig layers flags over env over the config file over defaults,
// selects the provider and validates the result. Relative paths are resolved
// against dataDir.
func resolveConfig(file dave.Config, f flags, env environment, dataDir string) (dave.Config, error) {
	cfg := dave.Config{
		Provider:    f.provider,
		APIKey:      f.apiKey,
		AssistantID: f.assistantID,
		Model:       f.model,
		Timeout:     f.timeout,
		CacheDir:    f.cacheDir,
		AuditLog:    f.auditLog,
	}
	if cfg.AssistantID == "" {
		cfg.AssistantID = env.AssistantID
	}
	cfg = cfg.Merge(file).Merge(dave.DefaultConfig())

	provider, key, err := resolveProvider(cfg.Provider, cfg.APIKey, env.OpenAIKey, env.GeminiKey)
	if err != nil {
		return dave.Config{}, err
	}
	cfg.Provider = provider
	cfg.APIKey = key

	if err := cfg.Validate(); err != nil {
		return dave.Config{}, err
	}

	cfg.CacheDir = underDir(dataDir, cfg.CacheDir)
	cfg.DownloadDir = underDir(dataDir, cfg.DownloadDir)
	cfg.LogFile = underDir(dataDir, cfg.LogFile)
	if cfg.AuditLog != "" {
		cfg.AuditLog = underDir(dataDir, cfg.AuditLog)
	}
	return cfg, nil
}

func underDir(dir, p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(dir, p)
}
