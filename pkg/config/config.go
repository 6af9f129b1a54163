/*
Package config manages TOML config for cardserve.
*/
package config

import (
	"path/filepath"
	"time"

	"github.com/bastiangx/cardserve/internal/utils"
	"github.com/charmbracelet/log"
)

// FileName is the config file looked up in the config dir.
const FileName = "config.toml"

// Config holds the entire config structure
type Config struct {
	Server   ServerConfig   `toml:"server"`
	Cache    CacheConfig    `toml:"cache"`
	Suggest  SuggestConfig  `toml:"suggest"`
	Scryfall ScryfallConfig `toml:"scryfall"`
	CLI      CliConfig      `toml:"cli"`
}

// ServerConfig has IPC server options.
type ServerConfig struct {
	MaxLimit int `toml:"max_limit"`
}

// CacheConfig controls the catalog cache.
type CacheConfig struct {
	Path           string `toml:"path"`
	MaxAgeMinutes  int    `toml:"max_age_minutes"`
	RefreshOnStart bool   `toml:"refresh_on_start"`
}

// SuggestConfig holds suggestion engine options.
type SuggestConfig struct {
	MinMatchLength int `toml:"min_match_length"`
	MaxResults     int `toml:"max_results"`
}

// ScryfallConfig holds the upstream catalog client options.
type ScryfallConfig struct {
	BaseURL           string  `toml:"base_url"`
	TimeoutSeconds    int     `toml:"timeout_seconds"`
	RequestsPerSecond float64 `toml:"requests_per_second"`
	UserAgent         string  `toml:"user_agent"`
}

// CliConfig holds cli interface options.
type CliConfig struct {
	DefaultLimit int `toml:"default_limit"`
}

// MaxAge returns the cache staleness window.
func (c CacheConfig) MaxAge() time.Duration {
	if c.MaxAgeMinutes <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(c.MaxAgeMinutes) * time.Minute
}

// Timeout returns the upstream request timeout.
func (c ScryfallConfig) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			MaxLimit: 64,
		},
		Cache: CacheConfig{
			Path:           "",
			MaxAgeMinutes:  24 * 60,
			RefreshOnStart: false,
		},
		Suggest: SuggestConfig{
			MinMatchLength: 3,
			MaxResults:     50,
		},
		Scryfall: ScryfallConfig{
			BaseURL:           "https://api.scryfall.com",
			TimeoutSeconds:    30,
			RequestsPerSecond: 10,
			UserAgent:         "cardserve",
		},
		CLI: CliConfig{
			DefaultLimit: 24,
		},
	}
}

// InitConfig loads config from file or creates default if missing
func InitConfig(configPath string) (*Config, error) {
	configDir := filepath.Dir(configPath)

	if err := utils.EnsureDir(configDir); err != nil {
		log.Warnf("Failed to create config directory %s: %v. Using built-in defaults...", configDir, err)
		return DefaultConfig(), nil
	}

	if !utils.FileExists(configPath) {
		config := DefaultConfig()
		if err := SaveConfig(config, configPath); err != nil {
			log.Warnf("Failed to create default config file at %s: %v. Using built-in defaults...", configPath, err)
			return DefaultConfig(), nil
		}
		log.Debugf("Created default config file at: %s", configPath)
		return config, nil
	}

	config, err := LoadConfig(configPath)
	if err != nil {
		log.Warnf("Failed to load config from %s: %v. Using built-in defaults...", configPath, err)
		return DefaultConfig(), nil
	}
	return config, nil
}

// LoadConfig loads from a TOML file
func LoadConfig(configPath string) (*Config, error) {
	config := DefaultConfig()

	if err := utils.LoadTOMLFile(configPath, config); err != nil {
		return tryPartialParse(configPath)
	}
	config.normalize()
	return config, nil
}

// tryPartialParse keeps whatever sections of a broken file still parse
func tryPartialParse(configPath string) (*Config, error) {
	config := DefaultConfig()

	tempConfig, err := utils.ParseTOMLWithRecovery(configPath)
	if err != nil {
		log.Warnf("Could not parse any valid configuration from %s: %v. Using all defaults.", configPath, err)
		return config, nil
	}

	if section, ok := utils.ExtractSection(tempConfig, "server"); ok {
		extractServerConfig(section, &config.Server)
	}
	if section, ok := utils.ExtractSection(tempConfig, "cache"); ok {
		extractCacheConfig(section, &config.Cache)
	}
	if section, ok := utils.ExtractSection(tempConfig, "suggest"); ok {
		extractSuggestConfig(section, &config.Suggest)
	}
	if section, ok := utils.ExtractSection(tempConfig, "scryfall"); ok {
		extractScryfallConfig(section, &config.Scryfall)
	}
	if section, ok := utils.ExtractSection(tempConfig, "cli"); ok {
		extractCliConfig(section, &config.CLI)
	}
	config.normalize()
	return config, nil
}

func extractServerConfig(data map[string]any, server *ServerConfig) {
	if val, ok := utils.ExtractInt64(data, "max_limit"); ok {
		server.MaxLimit = val
	}
}

func extractCacheConfig(data map[string]any, cache *CacheConfig) {
	if val, ok := utils.ExtractString(data, "path"); ok {
		cache.Path = val
	}
	if val, ok := utils.ExtractInt64(data, "max_age_minutes"); ok {
		cache.MaxAgeMinutes = val
	}
	if val, ok := utils.ExtractBool(data, "refresh_on_start"); ok {
		cache.RefreshOnStart = val
	}
}

func extractSuggestConfig(data map[string]any, suggest *SuggestConfig) {
	if val, ok := utils.ExtractInt64(data, "min_match_length"); ok {
		suggest.MinMatchLength = val
	}
	if val, ok := utils.ExtractInt64(data, "max_results"); ok {
		suggest.MaxResults = val
	}
}

func extractScryfallConfig(data map[string]any, scryfall *ScryfallConfig) {
	if val, ok := utils.ExtractString(data, "base_url"); ok {
		scryfall.BaseURL = val
	}
	if val, ok := utils.ExtractInt64(data, "timeout_seconds"); ok {
		scryfall.TimeoutSeconds = val
	}
	if val, ok := utils.ExtractFloat(data, "requests_per_second"); ok {
		scryfall.RequestsPerSecond = val
	}
	if val, ok := utils.ExtractString(data, "user_agent"); ok {
		scryfall.UserAgent = val
	}
}

func extractCliConfig(data map[string]any, cli *CliConfig) {
	if val, ok := utils.ExtractInt64(data, "default_limit"); ok {
		cli.DefaultLimit = val
	}
}

// normalize pulls out-of-range values back to something usable.
func (c *Config) normalize() {
	def := DefaultConfig()
	if c.Server.MaxLimit < 1 {
		c.Server.MaxLimit = def.Server.MaxLimit
	}
	if c.Suggest.MinMatchLength < 1 {
		c.Suggest.MinMatchLength = 1
	}
	if c.Suggest.MaxResults < 0 {
		c.Suggest.MaxResults = 0
	}
	if c.Scryfall.BaseURL == "" {
		c.Scryfall.BaseURL = def.Scryfall.BaseURL
	}
	if c.CLI.DefaultLimit < 1 {
		c.CLI.DefaultLimit = def.CLI.DefaultLimit
	}
}

// SaveConfig saves into a TOML file
func SaveConfig(config *Config, configPath string) error {
	return utils.SaveTOMLFile(config, configPath)
}
