// Package config handles configuration file loading and parsing.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Default configuration values.
const (
	DefaultRevealDelay   = 5 * time.Second
	DefaultPromptTimeout = 2 * time.Minute
	DefaultIcon          = "/pwa-192x192.svg"
	DefaultBadge         = "/pwa-192x192.svg"
	DefaultListen        = ":8080"
	DefaultProductionURL = "https://sokoniarena.co.ke"
	DefaultBrevoEndpoint = "https://api.brevo.com/v3/smtp/email"
	DefaultSenderName    = "SokoniArena"
	DefaultSenderEmail   = "noreply@sokoniarena.co.ke"
	DefaultSubject       = "Complete Your SokoniArena Signup"
	DefaultHookTolerance = 5 * time.Minute
)

// Duration is a time.Duration that can be unmarshaled from human-readable strings.
// Supports formats like "5s", "1m", "1h30m", or integer milliseconds.
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler for TOML parsing.
func (d *Duration) UnmarshalText(text []byte) error {
	s := string(text)

	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		*d = Duration(time.Duration(ms) * time.Millisecond)
		return nil
	}

	dur, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: must be like '5s', '1m', '1h30m' or milliseconds: %w", s, err)
	}
	*d = Duration(dur)
	return nil
}

// MarshalText implements encoding.TextMarshaler for TOML output.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Duration returns the underlying time.Duration.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// Config represents the sokoni configuration.
type Config struct {
	Prompts  PromptsConfig  `toml:"prompts"`
	Server   ServerConfig   `toml:"server"`
	Supabase SupabaseConfig `toml:"supabase"`
	Email    EmailConfig    `toml:"email"`
	TUI      TUIConfig      `toml:"tui"`
}

// PromptsConfig holds the install/notification banner settings.
type PromptsConfig struct {
	RevealDelay   Duration `toml:"reveal_delay"`   // Delay before the notification banner appears
	PromptTimeout Duration `toml:"prompt_timeout"` // Upper bound on a native prompt
	Icon          string   `toml:"icon"`
	Badge         string   `toml:"badge"`
	AppName       string   `toml:"app_name"` // D-Bus app_name for desktop notifications
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Listen        string `toml:"listen"`
	ProductionURL string `toml:"production_url"` // Where email verification redirects to
}

// SupabaseConfig holds the backend connection.
type SupabaseConfig struct {
	URL        string `toml:"url"`
	AnonKey    string `toml:"anon_key"`
	ServiceKey string `toml:"service_key"`
	JWTSecret  string `toml:"jwt_secret"`
}

// EmailConfig holds the confirmation email hook settings.
type EmailConfig struct {
	BrevoAPIKey   string   `toml:"brevo_api_key"`
	BrevoEndpoint string   `toml:"brevo_endpoint"`
	HookSecret    string   `toml:"hook_secret"`
	HookTolerance Duration `toml:"hook_tolerance"`
	SenderName    string   `toml:"sender_name"`
	SenderEmail   string   `toml:"sender_email"`
	Subject       string   `toml:"subject"`
}

// TUIConfig holds TUI-specific settings.
type TUIConfig struct {
	ShowHelp         bool   `toml:"show_help"`
	DefaultPage      string `toml:"default_page"`      // "events" or "services"
	ClipboardCommand string `toml:"clipboard_command"` // empty = auto-detect
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		Prompts: PromptsConfig{
			RevealDelay:   Duration(DefaultRevealDelay),
			PromptTimeout: Duration(DefaultPromptTimeout),
			Icon:          DefaultIcon,
			Badge:         DefaultBadge,
			AppName:       "SokoniArena",
		},
		Server: ServerConfig{
			Listen:        DefaultListen,
			ProductionURL: DefaultProductionURL,
		},
		Email: EmailConfig{
			BrevoEndpoint: DefaultBrevoEndpoint,
			HookTolerance: Duration(DefaultHookTolerance),
			SenderName:    DefaultSenderName,
			SenderEmail:   DefaultSenderEmail,
			Subject:       DefaultSubject,
		},
		TUI: TUIConfig{
			ShowHelp:    true,
			DefaultPage: "events",
		},
	}
}

// ConfigPath returns the path to the config file.
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config.
func ConfigPath() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, "sokoni", "config.toml")
}

// LoadConfig loads configuration from the specified path.
// If path is empty, uses the default config path.
// Returns default config if file doesn't exist. Environment variables
// override file values for secrets.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		path = ConfigPath()
	}

	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	if err == nil {
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// applyEnv overrides secrets with environment variables when set.
func (c *Config) applyEnv() {
	override := func(dst *string, key string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	override(&c.Email.BrevoAPIKey, "BREVO_API_KEY")
	override(&c.Email.HookSecret, "SEND_EMAIL_HOOK_SECRET")
	override(&c.Supabase.URL, "SUPABASE_URL")
	override(&c.Supabase.AnonKey, "SUPABASE_ANON_KEY")
	override(&c.Supabase.ServiceKey, "SUPABASE_SERVICE_KEY")
	override(&c.Supabase.JWTSecret, "SUPABASE_JWT_SECRET")
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Prompts.RevealDelay < 0 {
		return fmt.Errorf("reveal_delay must not be negative, got %s", c.Prompts.RevealDelay.Duration())
	}
	if c.Prompts.PromptTimeout <= 0 {
		return fmt.Errorf("prompt_timeout must be positive, got %s", c.Prompts.PromptTimeout.Duration())
	}
	if c.Email.HookTolerance <= 0 {
		return fmt.Errorf("hook_tolerance must be positive, got %s", c.Email.HookTolerance.Duration())
	}
	if c.Supabase.URL != "" {
		if u, err := url.Parse(c.Supabase.URL); err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("invalid supabase url %q", c.Supabase.URL)
		}
	}
	switch c.TUI.DefaultPage {
	case "events", "services":
	default:
		return fmt.Errorf("invalid default_page %q, must be events or services", c.TUI.DefaultPage)
	}
	return nil
}

// Save writes the configuration to the specified path.
// Creates parent directories if needed.
func (c *Config) Save(path string) error {
	if path == "" {
		path = ConfigPath()
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := toml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0600)
}
