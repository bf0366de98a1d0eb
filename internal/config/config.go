// Package config handles TOML configuration loading with environment
// variable substitution.
package config

import (
	"fmt"
	"os"
	"regexp"

	"github.com/BurntSushi/toml"
)

// Config is the root configuration structure.
type Config struct {
	Download DownloadConfig `toml:"download"`
	Auth     AuthConfig     `toml:"auth"`
	Ledger   LedgerConfig   `toml:"ledger"`
	Tools    ToolsConfig    `toml:"tools"`
	LogLevel string         `toml:"log_level"`
}

// DownloadConfig tunes the download engine.
type DownloadConfig struct {
	// Root is where item directories are created.
	Root string `toml:"root"`
	// PeopleRoot holds shared creator portrait folders.
	PeopleRoot string `toml:"people_root"`
	// VideoConcurrency bounds items downloading at once across the run.
	VideoConcurrency int `toml:"video_concurrency"`
	// APIConcurrency bounds concurrent resolution calls.
	APIConcurrency int `toml:"api_concurrency"`
	// PartConcurrency bounds raw segment fetches within one item.
	PartConcurrency int `toml:"part_concurrency"`
	// SpeedLimit caps total transfer rate in bytes/sec. 0 = unlimited.
	SpeedLimit float64 `toml:"speed_limit"`
	// StreamRetry is the total attempt budget per stream.
	StreamRetry int `toml:"stream_retry"`
	// Hierarchy controls per-collection and per-item directories.
	Hierarchy bool `toml:"hierarchy"`
}

// AuthConfig carries session credentials.
type AuthConfig struct {
	// SessData is the service session cookie; higher quality tiers need it.
	SessData string `toml:"sess_data"`
}

// LedgerConfig points at the optional dedup ledger.
type LedgerConfig struct {
	Path string `toml:"path"`
}

// ToolsConfig locates external tools.
type ToolsConfig struct {
	FFmpeg string `toml:"ffmpeg"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Download: DownloadConfig{
			Root:             ".",
			PeopleRoot:       "./People",
			VideoConcurrency: 3,
			APIConcurrency:   3,
			PartConcurrency:  10,
			StreamRetry:      5,
			Hierarchy:        true,
		},
		Tools:    ToolsConfig{FFmpeg: "ffmpeg"},
		LogLevel: "info",
	}
}

// Load reads and parses the configuration file, applying defaults and
// validation. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	content, missing := substituteEnvVars(string(data))
	if _, err := toml.Decode(content, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if verrs := cfg.Validate(); len(missing) > 0 || len(verrs) > 0 {
		return nil, &ConfigError{Path: path, Missing: missing, Errors: verrs}
	}
	return cfg, nil
}

// substituteEnvVars replaces ${VAR_NAME} with environment variable values
// and reports the names that could not be resolved.
var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

func substituteEnvVars(content string) (string, []string) {
	var missing []string
	out := envVarPattern.ReplaceAllStringFunc(content, func(match string) string {
		varName := match[2 : len(match)-1] // Strip ${ and }
		if value, ok := os.LookupEnv(varName); ok {
			return value
		}
		missing = append(missing, varName)
		return match
	})
	return out, missing
}
