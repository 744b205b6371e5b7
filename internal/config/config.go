package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

const (
	DefaultRequestTimeout  = 20 // seconds, per GitHub API call
	DefaultDownloadTimeout = 30 // seconds, raw file downloads
)

type Config struct {
	GitHub   GitHubConfig   `json:"github"`
	Obsidian ObsidianConfig `json:"obsidian"`
}

type GitHubConfig struct {
	Token           string `json:"token"`
	BaseURL         string `json:"baseUrl,omitempty"` // GitHub Enterprise; empty means api.github.com
	RequestTimeout  int    `json:"requestTimeout"`
	DownloadTimeout int    `json:"downloadTimeout"`
}

type ObsidianConfig struct {
	VaultPath string `json:"vaultPath"`
}

func DefaultConfig() *Config {
	return &Config{
		GitHub: GitHubConfig{
			RequestTimeout:  DefaultRequestTimeout,
			DownloadTimeout: DefaultDownloadTimeout,
		},
		Obsidian: ObsidianConfig{},
	}
}

func ConfigDir() string {
	home := os.Getenv("HOME")
	if home == "" {
		home, _ = os.UserHomeDir()
	}
	return filepath.Join(home, ".github-obsidian-mcp")
}

func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.json")
}

func LoadConfig() (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(ConfigPath())
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Environment variable overrides
	if token := os.Getenv("GITHUB_TOKEN"); token != "" {
		cfg.GitHub.Token = token
	}
	if url := os.Getenv("GITHUB_API_BASE_URL"); url != "" {
		cfg.GitHub.BaseURL = url
	}
	if timeout := os.Getenv("GITHUB_REQUEST_TIMEOUT"); timeout != "" {
		if parsed, err := strconv.Atoi(timeout); err == nil && parsed > 0 {
			cfg.GitHub.RequestTimeout = parsed
		}
	}
	if path := os.Getenv("VAULT_PATH"); path != "" {
		cfg.Obsidian.VaultPath = path
	}
	if path := os.Getenv("OBSIDIAN_VAULT_PATH"); path != "" && cfg.Obsidian.VaultPath == "" {
		cfg.Obsidian.VaultPath = path
	}

	if cfg.GitHub.RequestTimeout <= 0 {
		cfg.GitHub.RequestTimeout = DefaultRequestTimeout
	}
	if cfg.GitHub.DownloadTimeout <= 0 {
		cfg.GitHub.DownloadTimeout = DefaultDownloadTimeout
	}

	return cfg, nil
}

// ValidateGitHub checks the configuration the GitHub adapter needs at startup.
func (c *Config) ValidateGitHub() error {
	if c.GitHub.Token == "" {
		return fmt.Errorf("GitHub token not set. Set GITHUB_TOKEN or add github.token to %s", ConfigPath())
	}
	return nil
}

// ValidateObsidian checks the configuration the Obsidian adapter needs at startup.
func (c *Config) ValidateObsidian() error {
	if c.Obsidian.VaultPath == "" {
		return fmt.Errorf("vault path not set. Set VAULT_PATH or add obsidian.vaultPath to %s", ConfigPath())
	}
	return nil
}
