// Package config loads runtime settings from the environment, an optional
// .env file, and an optional coursegrab.yml override, in that order of
// increasing precedence for the yaml file and decreasing for defaults.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Default values
const (
	DefaultDownloadPath  = "./downloads"
	DefaultMaxFileSizeMB = 1900
	DefaultPort          = "8080"
	DefaultLogMode       = "production"

	yamlOverrideFile = ".coursegrab.yml"
)

// Config holds every runtime setting the application reads.
type Config struct {
	// BotToken authenticates against the Telegram Bot API.
	BotToken string `yaml:"bot_token"`

	// AdminIDs are the Telegram user ids allowed to drive the bot.
	AdminIDs []int64 `yaml:"admin_ids"`

	// DestinationChatID is the default forwarding target; 0 means the
	// requester's own chat.
	DestinationChatID int64 `yaml:"destination_chat_id"`

	// VendorMobile and VendorPassword are the content platform credentials.
	VendorMobile   string `yaml:"vendor_mobile"`
	VendorPassword string `yaml:"vendor_password"`

	// APIBaseURL and WebBaseURL override the platform endpoints, mainly
	// for tests. Empty means the production hosts.
	APIBaseURL string `yaml:"api_base_url"`
	WebBaseURL string `yaml:"web_base_url"`

	// DownloadPath is the working directory for temp files and manifests.
	DownloadPath string `yaml:"download_path"`

	// MaxFileSizeMB is the upload ceiling; larger files are skipped.
	MaxFileSizeMB int64 `yaml:"max_file_size_mb"`

	// Port is the health endpoint listen port.
	Port string `yaml:"port"`

	// LogMode selects the logger profile: "production" or "development".
	LogMode string `yaml:"log_mode"`
}

// Load reads configuration. A .env file is applied first when present, then
// process environment variables, then a yaml override file when present.
func Load() (*Config, error) {
	// Missing .env is fine; explicit environment still applies.
	_ = godotenv.Load()

	cfg := &Config{
		BotToken:          os.Getenv("BOT_TOKEN"),
		DestinationChatID: envInt64("DESTINATION_CHAT_ID", 0),
		VendorMobile:      os.Getenv("VENDOR_MOBILE"),
		VendorPassword:    os.Getenv("VENDOR_PASSWORD"),
		APIBaseURL:        os.Getenv("API_BASE_URL"),
		WebBaseURL:        os.Getenv("WEB_BASE_URL"),
		DownloadPath:      envString("DOWNLOAD_PATH", DefaultDownloadPath),
		MaxFileSizeMB:     envInt64("MAX_FILE_SIZE_MB", DefaultMaxFileSizeMB),
		Port:              envString("PORT", DefaultPort),
		LogMode:           envString("LOG_MODE", DefaultLogMode),
	}

	ids, err := parseAdminIDs(os.Getenv("ADMIN_IDS"))
	if err != nil {
		return nil, err
	}
	cfg.AdminIDs = ids

	if err := applyYAMLOverride(cfg, yamlOverrideFile); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that every required setting is present and sane.
func (c *Config) Validate() error {
	if c.BotToken == "" {
		return fmt.Errorf("BOT_TOKEN is required")
	}
	if len(c.AdminIDs) == 0 {
		return fmt.Errorf("ADMIN_IDS is required")
	}
	if c.VendorMobile == "" || c.VendorPassword == "" {
		return fmt.Errorf("VENDOR_MOBILE and VENDOR_PASSWORD are required")
	}
	if c.MaxFileSizeMB <= 0 {
		return fmt.Errorf("MAX_FILE_SIZE_MB must be positive, got %d", c.MaxFileSizeMB)
	}
	return nil
}

// MaxFileBytes returns the upload ceiling in bytes.
func (c *Config) MaxFileBytes() int64 {
	return c.MaxFileSizeMB * 1024 * 1024
}

// IsAdmin reports whether the given Telegram user may drive the bot.
func (c *Config) IsAdmin(userID int64) bool {
	for _, id := range c.AdminIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// applyYAMLOverride merges settings from the override file when it exists.
func applyYAMLOverride(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

// parseAdminIDs splits a comma-separated id list.
func parseAdminIDs(raw string) ([]int64, error) {
	if raw == "" {
		return nil, nil
	}
	parts := strings.Split(raw, ",")
	ids := make([]int64, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("ADMIN_IDS: invalid id %q", part)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fallback
	}
	return n
}
