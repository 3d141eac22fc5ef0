package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

// Config holds all application configuration
type Config struct {
	General       GeneralConfig       `toml:"general"`
	Remote        RemoteConfig        `toml:"remote"`
	History       HistoryConfig       `toml:"history"`
	Notifications NotificationsConfig `toml:"notifications"`
	Schedule      ScheduleConfig      `toml:"schedule"`
	Client        ClientConfig        `toml:"client"`
}

// GeneralConfig holds the build download settings
type GeneralConfig struct {
	OutputDir   string   `toml:"output_dir" validate:"required"`
	Sources     []string `toml:"sources" validate:"dive,required"`
	KeepOld     bool     `toml:"keep_old"`
	Concurrency int      `toml:"concurrency" validate:"min=1,max=64"`
}

// RemoteConfig holds the content endpoints
type RemoteConfig struct {
	CDNURL         string `toml:"cdn_url" validate:"required,url"`
	RegistryURL    string `toml:"registry_url" validate:"required,url"`
	DataDragonURL  string `toml:"data_dragon_url" validate:"required,url"`
	Language       string `toml:"language" validate:"required"`
	TimeoutSeconds int    `toml:"timeout_seconds" validate:"min=1"`
	PinVersions    bool   `toml:"pin_versions"`
}

// HistoryConfig holds run history settings
type HistoryConfig struct {
	Enabled     bool   `toml:"enabled"`
	DatabaseURL string `toml:"database_url"`
}

// NotificationsConfig holds notification settings
type NotificationsConfig struct {
	DiscordWebhook string `toml:"discord_webhook" validate:"omitempty,url"`
}

// ScheduleConfig holds the cron expression for scheduled runs
type ScheduleConfig struct {
	Cron string `toml:"cron"`
}

// ClientConfig holds League client settings used by the rune page watcher
type ClientConfig struct {
	LockfilePaths []string `toml:"lockfile_paths"`
	RuneSource    string   `toml:"rune_source"`
}

// Default returns a Config with sensible defaults
func Default() *Config {
	return &Config{
		General: GeneralConfig{
			OutputDir:   defaultOutputDir(),
			Sources:     []string{"op.gg"},
			Concurrency: 10,
		},
		Remote: RemoteConfig{
			CDNURL:         "https://cdn.jsdelivr.net",
			RegistryURL:    "https://registry.npmmirror.com",
			DataDragonURL:  "https://ddragon.leagueoflegends.com",
			Language:       "en_US",
			TimeoutSeconds: 15,
		},
		History: HistoryConfig{
			Enabled: true,
		},
		Schedule: ScheduleConfig{
			Cron: "@every 6h",
		},
		Client: ClientConfig{
			RuneSource: "op.gg",
		},
	}
}

// Load reads configuration from a TOML file, falling back to defaults
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	cfg.General.OutputDir = ExpandPath(cfg.General.OutputDir)
	for i, p := range cfg.Client.LockfilePaths {
		cfg.Client.LockfilePaths[i] = ExpandPath(p)
	}

	return cfg, nil
}

// Save writes cfg to path, creating the parent directory if needed
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config dir: %w", err)
	}

	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

// Validate checks field constraints
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// ApplyEnv overrides fields from CHAMPR_* and DISCORD_WEBHOOK_URL variables
func (c *Config) ApplyEnv() error {
	if v := os.Getenv("CHAMPR_OUTPUT_DIR"); v != "" {
		c.General.OutputDir = ExpandPath(strings.Trim(v, "\""))
	}
	if v := os.Getenv("CHAMPR_SOURCES"); v != "" {
		c.General.Sources = SplitList(v)
	}
	if v := os.Getenv("CHAMPR_KEEP_OLD"); v != "" {
		keep, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("CHAMPR_KEEP_OLD: %w", err)
		}
		c.General.KeepOld = keep
	}
	if v := os.Getenv("CHAMPR_CONCURRENCY"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("CHAMPR_CONCURRENCY: %w", err)
		}
		c.General.Concurrency = n
	}
	if v := os.Getenv("CHAMPR_DATABASE_URL"); v != "" {
		c.History.DatabaseURL = v
	}
	if v := os.Getenv("DISCORD_WEBHOOK_URL"); v != "" {
		c.Notifications.DiscordWebhook = v
	}
	if v := os.Getenv("CHAMPR_SCHEDULE"); v != "" {
		c.Schedule.Cron = v
	}
	return nil
}

// LoadDotEnv loads the first .env file found among paths and returns it, or
// "" when none exists
func LoadDotEnv(paths ...string) string {
	if len(paths) == 0 {
		paths = []string{".env", "../.env", filepath.Join(configDir(), ".env")}
	}
	for _, path := range paths {
		if err := godotenv.Load(path); err == nil {
			return path
		}
	}
	return ""
}

// SplitList splits a comma separated list, dropping empty entries
func SplitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// ExpandPath expands ~ to the user's home directory
func ExpandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, path[2:])
	}
	return path
}

// DefaultConfigPath returns the default config file location
func DefaultConfigPath() string {
	return filepath.Join(configDir(), "config.toml")
}

// DefaultHistoryPath returns the default sqlite history database location
func DefaultHistoryPath() string {
	return filepath.Join(configDir(), "history.db")
}

func configDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		home, _ := os.UserHomeDir()
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "champr")
}

func defaultOutputDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, "champr", "builds")
}
