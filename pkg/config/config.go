package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration options for followsync
type Config struct {
	// Mirror endpoints and request settings
	Mirrors MirrorConfig `yaml:"mirrors" json:"mirrors"`

	// Canonical asset host rules
	Canonical CanonicalConfig `yaml:"canonical" json:"canonical"`

	// Input account list
	Input InputConfig `yaml:"input" json:"input"`

	// Result log
	Store StoreConfig `yaml:"store" json:"store"`

	// Asset download settings
	Assets AssetsConfig `yaml:"assets" json:"assets"`

	// Delay between accounts
	Pacing PacingConfig `yaml:"pacing" json:"pacing"`

	// Export artifact
	Export ExportConfig `yaml:"export" json:"export"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// MirrorConfig holds the ordered mirror list and request options
type MirrorConfig struct {
	Endpoints     []string      `yaml:"endpoints" json:"endpoints"`
	ProfilePath   string        `yaml:"profile_path" json:"profile_path"`
	Timeout       time.Duration `yaml:"timeout" json:"timeout"`
	UserAgent     string        `yaml:"user_agent" json:"user_agent"`
	BannerDefault string        `yaml:"banner_default_marker" json:"banner_default_marker"`
}

// CanonicalConfig describes how mirror proxy references map to origin URLs
type CanonicalConfig struct {
	ProxyMarker      string `yaml:"proxy_marker" json:"proxy_marker"`
	OriginHost       string `yaml:"origin_host" json:"origin_host"`
	DefaultAssetHost string `yaml:"default_asset_host" json:"default_asset_host"`
}

// InputConfig holds the location of the account list
type InputConfig struct {
	FollowingFile string `yaml:"following_file" json:"following_file"`
}

// StoreConfig holds the result log location
type StoreConfig struct {
	SuccessLog string `yaml:"success_log" json:"success_log"`
}

// AssetsConfig holds image download configuration
type AssetsConfig struct {
	BaseDirectory       string        `yaml:"base_directory" json:"base_directory"`
	ConcurrentDownloads int           `yaml:"concurrent_downloads" json:"concurrent_downloads"`
	DownloadTimeout     time.Duration `yaml:"download_timeout" json:"download_timeout"`
	RequestsPerMinute   int           `yaml:"requests_per_minute" json:"requests_per_minute"`
	LatestAlias         string        `yaml:"latest_alias" json:"latest_alias"`
}

// PacingConfig holds the randomized inter-account delay
type PacingConfig struct {
	MinDelay time.Duration `yaml:"min_delay" json:"min_delay"`
	MaxDelay time.Duration `yaml:"max_delay" json:"max_delay"`
}

// ExportConfig holds export artifact settings
type ExportConfig struct {
	OutputFile string `yaml:"output_file" json:"output_file"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

// DefaultMirrors is the built-in mirror priority order
var DefaultMirrors = []string{
	"https://nitter.tiekoetter.com",
	"https://xcancel.com",
	"https://lightbrd.com",
	"https://nitter.space",
	"https://nuku.trabun.org",
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	mirrors := make([]string, len(DefaultMirrors))
	copy(mirrors, DefaultMirrors)

	return &Config{
		Mirrors: MirrorConfig{
			Endpoints:     mirrors,
			ProfilePath:   "/i/user/",
			Timeout:       10 * time.Second,
			UserAgent:     "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36",
			BannerDefault: "background-color",
		},
		Canonical: CanonicalConfig{
			ProxyMarker:      "/pic/",
			OriginHost:       "pbs.twimg.com",
			DefaultAssetHost: "abs.twimg.com",
		},
		Input: InputConfig{
			FollowingFile: "data/following.js",
		},
		Store: StoreConfig{
			SuccessLog: "logs/success.jsonl",
		},
		Assets: AssetsConfig{
			BaseDirectory:       "images",
			ConcurrentDownloads: 6,
			DownloadTimeout:     10 * time.Second,
			RequestsPerMinute:   0, // 0 means no limit
			LatestAlias:         "auto",
		},
		Pacing: PacingConfig{
			MinDelay: 700 * time.Millisecond,
			MaxDelay: 1500 * time.Millisecond,
		},
		Export: ExportConfig{
			OutputFile: "output/cosense_followings.json",
		},
		Logging: LoggingConfig{
			Level: "info",
			File:  "",
		},
	}
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() error {
	if mirrors := os.Getenv("FOLLOWSYNC_MIRRORS"); mirrors != "" {
		c.Mirrors.Endpoints = splitList(mirrors)
	}
	if ua := os.Getenv("FOLLOWSYNC_USER_AGENT"); ua != "" {
		c.Mirrors.UserAgent = ua
	}
	if timeout := os.Getenv("FOLLOWSYNC_MIRROR_TIMEOUT"); timeout != "" {
		d, err := time.ParseDuration(timeout)
		if err != nil {
			return fmt.Errorf("invalid FOLLOWSYNC_MIRROR_TIMEOUT: %w", err)
		}
		c.Mirrors.Timeout = d
	}

	if input := os.Getenv("FOLLOWSYNC_INPUT"); input != "" {
		c.Input.FollowingFile = input
	}
	if successLog := os.Getenv("FOLLOWSYNC_SUCCESS_LOG"); successLog != "" {
		c.Store.SuccessLog = successLog
	}
	if imagesDir := os.Getenv("FOLLOWSYNC_IMAGES_DIR"); imagesDir != "" {
		c.Assets.BaseDirectory = imagesDir
	}

	// Concurrent downloads
	if concurrent := os.Getenv("FOLLOWSYNC_CONCURRENT_DOWNLOADS"); concurrent != "" {
		var val int
		fmt.Sscanf(concurrent, "%d", &val)
		if val > 0 {
			c.Assets.ConcurrentDownloads = val
		}
	}
	if alias := os.Getenv("FOLLOWSYNC_LATEST_ALIAS"); alias != "" {
		c.Assets.LatestAlias = alias
	}

	if output := os.Getenv("FOLLOWSYNC_EXPORT_FILE"); output != "" {
		c.Export.OutputFile = output
	}

	// Logging level
	if logLevel := os.Getenv("FOLLOWSYNC_LOG_LEVEL"); logLevel != "" {
		c.Logging.Level = logLevel
	}
	if logFile := os.Getenv("FOLLOWSYNC_LOG_FILE"); logFile != "" {
		c.Logging.File = logFile
	}

	return nil
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	// If path is empty, try default locations
	if path == "" {
		path = c.findConfigFile()
		if path == "" {
			return nil // No config file found, not an error
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// findConfigFile searches for config file in standard locations
func (c *Config) findConfigFile() string {
	locations := []string{
		".followsync.yaml",
		".followsync.yml",
		filepath.Join(os.Getenv("HOME"), ".config", "followsync", "config.yaml"),
		filepath.Join(os.Getenv("HOME"), ".config", "followsync", "config.yml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	if len(c.Mirrors.Endpoints) == 0 {
		errs = append(errs, errors.New("at least one mirror endpoint is required"))
	}
	for _, endpoint := range c.Mirrors.Endpoints {
		u, err := url.Parse(endpoint)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			errs = append(errs, fmt.Errorf("invalid mirror endpoint %q", endpoint))
		}
	}
	if c.Mirrors.Timeout <= 0 {
		errs = append(errs, errors.New("mirror timeout must be positive"))
	}
	if c.Mirrors.ProfilePath == "" {
		errs = append(errs, errors.New("mirror profile path is required"))
	}

	if c.Canonical.ProxyMarker == "" {
		errs = append(errs, errors.New("proxy marker is required"))
	}
	if c.Canonical.OriginHost == "" {
		errs = append(errs, errors.New("origin host is required"))
	}
	if c.Canonical.DefaultAssetHost == "" {
		errs = append(errs, errors.New("default asset host is required"))
	}

	if c.Input.FollowingFile == "" {
		errs = append(errs, errors.New("input file is required"))
	}
	if c.Store.SuccessLog == "" {
		errs = append(errs, errors.New("success log path is required"))
	}

	if c.Assets.BaseDirectory == "" {
		errs = append(errs, errors.New("images directory is required"))
	}
	if c.Assets.ConcurrentDownloads <= 0 {
		errs = append(errs, errors.New("concurrent downloads must be positive"))
	}
	if c.Assets.ConcurrentDownloads > 32 {
		errs = append(errs, errors.New("concurrent downloads should not exceed 32"))
	}
	if c.Assets.DownloadTimeout <= 0 {
		errs = append(errs, errors.New("download timeout must be positive"))
	}
	if c.Assets.RequestsPerMinute < 0 {
		errs = append(errs, errors.New("requests per minute cannot be negative"))
	}
	validAliases := map[string]bool{"auto": true, "symlink": true, "copy": true}
	if !validAliases[strings.ToLower(strings.TrimSpace(c.Assets.LatestAlias))] {
		errs = append(errs, errors.New("latest alias must be auto, symlink or copy"))
	}

	if c.Pacing.MinDelay < 0 || c.Pacing.MaxDelay < 0 {
		errs = append(errs, errors.New("pacing delays cannot be negative"))
	}
	if c.Pacing.MaxDelay < c.Pacing.MinDelay {
		errs = append(errs, errors.New("pacing max delay must not be below min delay"))
	}

	if c.Export.OutputFile == "" {
		errs = append(errs, errors.New("export output file is required"))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// MergeCommandLineFlags merges command line flags into the configuration
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if input, ok := flags["input"].(string); ok && input != "" {
		c.Input.FollowingFile = input
	}
	if successLog, ok := flags["success-log"].(string); ok && successLog != "" {
		c.Store.SuccessLog = successLog
	}
	if imagesDir, ok := flags["images-dir"].(string); ok && imagesDir != "" {
		c.Assets.BaseDirectory = imagesDir
	}
	if output, ok := flags["export-file"].(string); ok && output != "" {
		c.Export.OutputFile = output
	}
	if concurrent, ok := flags["concurrent"].(int); ok && concurrent > 0 {
		c.Assets.ConcurrentDownloads = concurrent
	}
	if mirrors, ok := flags["mirrors"].([]string); ok && len(mirrors) > 0 {
		c.Mirrors.Endpoints = mirrors
	}
	if logLevel, ok := flags["log-level"].(string); ok && logLevel != "" {
		c.Logging.Level = logLevel
	}
}

// Load loads configuration from all sources with proper precedence
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	// Try to load .env files (don't fail if they don't exist)
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".followsync.env"))

	config := DefaultConfig()

	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	config.MergeCommandLineFlags(flags)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// splitList splits a comma separated list, dropping blanks
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
