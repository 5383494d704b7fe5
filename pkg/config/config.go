package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is prepended to every environment variable the archiver reads
const EnvPrefix = "IGARCHIVE_"

// Config holds all configuration options for the archiver
type Config struct {
	// Browser session settings
	Browser BrowserConfig `yaml:"browser" json:"browser"`

	// Output settings
	Output OutputConfig `yaml:"output" json:"output"`

	// Which sub-resources of a profile get archived
	Archive ArchiveConfig `yaml:"archive" json:"archive"`

	// Asset fetch pacing
	RateLimit RateLimitConfig `yaml:"rate_limit" json:"rate_limit"`

	// Asset download settings
	Download DownloadConfig `yaml:"download" json:"download"`

	// Stored login settings
	Auth AuthConfig `yaml:"auth" json:"auth"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// BrowserConfig configures the chrome instance driving the session
type BrowserConfig struct {
	Headless     bool          `yaml:"headless" json:"headless"`
	UserDataDir  string        `yaml:"user_data_dir" json:"user_data_dir"`
	Incognito    bool          `yaml:"incognito" json:"incognito"`
	UserAgent    string        `yaml:"user_agent" json:"user_agent"`
	ExecPath     string        `yaml:"exec_path" json:"exec_path"`
	LogoutOnExit bool          `yaml:"logout_on_exit" json:"logout_on_exit"`
	IdleQuiet    time.Duration `yaml:"idle_quiet" json:"idle_quiet"`
	SettleMin    time.Duration `yaml:"settle_min" json:"settle_min"`
	SettleJitter time.Duration `yaml:"settle_jitter" json:"settle_jitter"`
}

// OutputConfig holds output directory configuration
type OutputConfig struct {
	BaseDirectory string `yaml:"base_directory" json:"base_directory"`
}

// ArchiveConfig selects traversal behaviour
type ArchiveConfig struct {
	Highlights bool `yaml:"highlights" json:"highlights"`
	Stories    bool `yaml:"stories" json:"stories"`
	// Update stops walking a profile's highlights at the first one with nothing new
	Update bool `yaml:"update" json:"update"`
}

// RateLimitConfig paces asset fetches. Zero disables pacing.
type RateLimitConfig struct {
	RequestsPerMinute int `yaml:"requests_per_minute" json:"requests_per_minute"`
	BurstSize         int `yaml:"burst_size" json:"burst_size"`
}

// DownloadConfig holds download-specific configuration
type DownloadConfig struct {
	// Timeout bounds a single asset fetch. Zero means no timeout.
	Timeout time.Duration `yaml:"timeout" json:"timeout"`
}

// AuthConfig holds login preferences. Passwords never live in the config file.
type AuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Remember bool   `yaml:"remember" json:"remember"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level         string `yaml:"level" json:"level"`
	File          string `yaml:"file" json:"file"`
	MaxSize       int    `yaml:"max_size_mb" json:"max_size_mb"`
	MaxBackups    int    `yaml:"max_backups" json:"max_backups"`
	MaxAge        int    `yaml:"max_age_days" json:"max_age_days"`
	Compress      bool   `yaml:"compress" json:"compress"`
	DebugRequests bool   `yaml:"debug_requests" json:"debug_requests"`
}

// DefaultUserAgent is sent by the browser and by asset fetches when nothing else is configured
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Browser: BrowserConfig{
			Headless:     true,
			Incognito:    true,
			UserAgent:    DefaultUserAgent,
			IdleQuiet:    500 * time.Millisecond,
			SettleMin:    2 * time.Second,
			SettleJitter: time.Second,
		},
		Output: OutputConfig{
			BaseDirectory: "./archive",
		},
		Archive: ArchiveConfig{
			Highlights: true,
			Stories:    true,
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute: 60,
			BurstSize:         10,
		},
		Download: DownloadConfig{
			Timeout: 5 * time.Minute,
		},
		Auth: AuthConfig{
			Remember: true,
		},
		Logging: LoggingConfig{
			Level:      "info",
			MaxSize:    50,
			MaxBackups: 3,
			MaxAge:     14,
		},
	}
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() error {
	var errs []error

	envString("USER_DATA_DIR", &c.Browser.UserDataDir)
	envString("USER_AGENT", &c.Browser.UserAgent)
	envString("CHROME_PATH", &c.Browser.ExecPath)
	envString("OUTPUT_DIR", &c.Output.BaseDirectory)
	envString("USERNAME", &c.Auth.Username)
	envString("LOG_LEVEL", &c.Logging.Level)
	envString("LOG_FILE", &c.Logging.File)

	errs = append(errs,
		envBool("HEADLESS", &c.Browser.Headless),
		envBool("INCOGNITO", &c.Browser.Incognito),
		envBool("LOGOUT", &c.Browser.LogoutOnExit),
		envBool("HIGHLIGHTS", &c.Archive.Highlights),
		envBool("STORIES", &c.Archive.Stories),
		envBool("UPDATE", &c.Archive.Update),
		envBool("DEBUG_REQUESTS", &c.Logging.DebugRequests),
	)

	if rpm := os.Getenv(EnvPrefix + "REQUESTS_PER_MINUTE"); rpm != "" {
		val, err := strconv.Atoi(rpm)
		if err != nil {
			errs = append(errs, fmt.Errorf("%sREQUESTS_PER_MINUTE: %w", EnvPrefix, err))
		} else {
			c.RateLimit.RequestsPerMinute = val
		}
	}

	return errors.Join(errs...)
}

func envString(name string, dst *string) {
	if v := os.Getenv(EnvPrefix + name); v != "" {
		*dst = v
	}
}

func envBool(name string, dst *bool) error {
	v := os.Getenv(EnvPrefix + name)
	if v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("%s%s: %w", EnvPrefix, name, err)
	}
	*dst = b
	return nil
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	if path == "" {
		path = c.findConfigFile()
		if path == "" {
			return nil // no config file is fine
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
	home := os.Getenv("HOME")
	locations := []string{
		".igarchive.yaml",
		".igarchive.yml",
		filepath.Join(home, ".config", "igarchive", "config.yaml"),
		filepath.Join(home, ".config", "igarchive", "config.yml"),
		filepath.Join(home, ".igarchive.yaml"),
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

	if c.Output.BaseDirectory == "" {
		errs = append(errs, errors.New("output directory is required"))
	}
	if c.RateLimit.RequestsPerMinute < 0 {
		errs = append(errs, errors.New("requests per minute cannot be negative"))
	}
	if c.RateLimit.RequestsPerMinute > 0 && c.RateLimit.BurstSize <= 0 {
		errs = append(errs, errors.New("burst size must be positive when rate limiting is enabled"))
	}
	if c.Download.Timeout < 0 {
		errs = append(errs, errors.New("download timeout cannot be negative"))
	}
	if c.Browser.IdleQuiet <= 0 {
		errs = append(errs, errors.New("browser idle quiet period must be positive"))
	}
	if c.Browser.SettleMin < 0 || c.Browser.SettleJitter < 0 {
		errs = append(errs, errors.New("browser settle delays cannot be negative"))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, fmt.Errorf("invalid log level %q", c.Logging.Level))
	}

	return errors.Join(errs...)
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// MergeCommandLineFlags merges flags that were explicitly set on the command line.
// Keys follow the CLI flag names.
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if v, ok := flags["output"].(string); ok && v != "" {
		c.Output.BaseDirectory = v
	}
	if v, ok := flags["user-data"].(string); ok && v != "" {
		c.Browser.UserDataDir = v
	}
	if v, ok := flags["log-level"].(string); ok && v != "" {
		c.Logging.Level = v
	}
	if v, ok := flags["debug"].(bool); ok && v {
		c.Logging.Level = "debug"
		c.Logging.DebugRequests = true
	}

	bools := map[string]*bool{
		"headless":   &c.Browser.Headless,
		"incognito":  &c.Browser.Incognito,
		"logout":     &c.Browser.LogoutOnExit,
		"highlights": &c.Archive.Highlights,
		"stories":    &c.Archive.Stories,
		"update":     &c.Archive.Update,
	}
	for name, dst := range bools {
		if v, ok := flags[name].(bool); ok {
			*dst = v
		}
	}
}

// Load loads configuration from all sources with proper precedence.
// Precedence order: flags > environment (including .env) > config file > defaults.
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".igarchive.env"))

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
