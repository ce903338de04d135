package dave

import "time"

// Provider names.
const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

// Config holds user configuration. Zero fields fall back to DefaultConfig.
type Config struct {
	Provider     string        `yaml:"provider"` // openai, gemini; empty = detect from API keys
	APIKey       string        `yaml:"api_key"`
	AssistantID  string        `yaml:"assistant_id"` // openai only
	Model        string        `yaml:"model"`
	Instructions string        `yaml:"instructions"`
	Temperature  *float64      `yaml:"temperature"`
	Timeout      time.Duration `yaml:"timeout"`
	Preamble     string        `yaml:"preamble"`
	Extensions   []string      `yaml:"extensions"` // dataset extensions accepted for upload
	CacheDir     string        `yaml:"cache_dir"`  // cached images
	DownloadDir  string        `yaml:"download_dir"`
	LogFile      string        `yaml:"log_file"`
	AuditLog     string        `yaml:"audit_log"`
}

// DefaultConfig returns the built-in defaults. Paths are relative to the
// user's data directory and resolved by the caller.
func DefaultConfig() Config {
	temp := 0.0
	return Config{
		Temperature: &temp,
		Timeout:     10 * time.Minute,
		Preamble:    DefaultPreamble,
		Extensions:  []string{".csv"},
		CacheDir:    "images",
		DownloadDir: "downloads",
		LogFile:     "dave.log",
	}
}

// Merge returns c with every zero field taken from defaults.
func (c Config) Merge(defaults Config) Config {
	if c.Provider == "" {
		c.Provider = defaults.Provider
	}
	if c.APIKey == "" {
		c.APIKey = defaults.APIKey
	}
	if c.AssistantID == "" {
		c.AssistantID = defaults.AssistantID
	}
	if c.Model == "" {
		c.Model = defaults.Model
	}
	if c.Instructions == "" {
		c.Instructions = defaults.Instructions
	}
	if c.Temperature == nil {
		c.Temperature = defaults.Temperature
	}
	if c.Timeout == 0 {
		c.Timeout = defaults.Timeout
	}
	if c.Preamble == "" {
		c.Preamble = defaults.Preamble
	}
	if len(c.Extensions) == 0 {
		c.Extensions = defaults.Extensions
	}
	if c.CacheDir == "" {
		c.CacheDir = defaults.CacheDir
	}
	if c.DownloadDir == "" {
		c.DownloadDir = defaults.DownloadDir
	}
	if c.LogFile == "" {
		c.LogFile = defaults.LogFile
	}
	if c.AuditLog == "" {
		c.AuditLog = defaults.AuditLog
	}
	return c
}

// RunRequest returns the run options described by c.
func (c Config) RunRequest() RunRequest {
	return RunRequest{
		Model:        c.Model,
		Instructions: c.Instructions,
		Temperature:  c.Temperature,
	}
}
