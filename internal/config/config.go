package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// Store drivers.
const (
	StoreSQLite   = "sqlite"
	StoreSupabase = "supabase"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Store     StoreConfig     `yaml:"store"`
	Supabase  SupabaseConfig  `yaml:"supabase"`
	SearchAPI SearchAPIConfig `yaml:"searchapi"`
	OpenAI    OpenAIConfig    `yaml:"openai"`
	Resend    ResendConfig    `yaml:"resend"`
	Report    ReportConfig    `yaml:"report"`
	Intake    IntakeConfig    `yaml:"intake"`
	Session   SessionConfig   `yaml:"session"`
	Shortcut  ShortcutConfig  `yaml:"shortcut"`
	Share     ShareConfig     `yaml:"share"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host           string        `yaml:"host" envconfig:"SERVER_HOST" default:"0.0.0.0"`
	Port           int           `yaml:"port" envconfig:"PORT" default:"8080"`
	ReadTimeout    time.Duration `yaml:"read_timeout" envconfig:"SERVER_READ_TIMEOUT" default:"30s"`
	WriteTimeout   time.Duration `yaml:"write_timeout" envconfig:"SERVER_WRITE_TIMEOUT" default:"2m"`
	AllowedOrigins []string      `yaml:"allowed_origins" envconfig:"CORS_ALLOWED_ORIGINS" default:"*"`
}

// StoreConfig selects and configures the persistence backend.
type StoreConfig struct {
	Driver string `yaml:"driver" envconfig:"STORE_DRIVER" default:"sqlite"`
	Path   string `yaml:"path" envconfig:"STORE_PATH" default:"/data/valueminer.db"`
}

// SupabaseConfig holds the hosted auth and database project settings.
type SupabaseConfig struct {
	URL        string `yaml:"url" envconfig:"SUPABASE_URL"`
	ServiceKey string `yaml:"service_key" envconfig:"SUPABASE_SERVICE_ROLE_KEY"`
	AnonKey    string `yaml:"anon_key" envconfig:"SUPABASE_ANON_KEY"`
	Schema     string `yaml:"schema" envconfig:"SUPABASE_SCHEMA" default:"public"`
}

// SearchAPIConfig holds transcript API configuration.
type SearchAPIConfig struct {
	APIKey  string        `yaml:"api_key" envconfig:"SEARCHAPI_KEY"`
	BaseURL string        `yaml:"base_url" envconfig:"SEARCHAPI_BASE_URL" default:"https://www.searchapi.io/api/v1"`
	Timeout time.Duration `yaml:"timeout" envconfig:"SEARCHAPI_TIMEOUT" default:"30s"`
}

// OpenAIConfig holds summarizer configuration.
type OpenAIConfig struct {
	APIKey      string        `yaml:"api_key" envconfig:"OPENAI_API_KEY"`
	BaseURL     string        `yaml:"base_url" envconfig:"OPENAI_BASE_URL" default:"https://api.openai.com/v1"`
	Model       string        `yaml:"model" envconfig:"OPENAI_MODEL" default:"gpt-4o-mini"`
	Temperature float64       `yaml:"temperature" envconfig:"OPENAI_TEMPERATURE" default:"0.4"`
	Timeout     time.Duration `yaml:"timeout" envconfig:"OPENAI_TIMEOUT" default:"60s"`
	JSONMode    bool          `yaml:"json_mode" envconfig:"OPENAI_JSON_MODE" default:"false"`
}

// ResendConfig holds email delivery configuration.
type ResendConfig struct {
	APIKey  string        `yaml:"api_key" envconfig:"RESEND_API_KEY"`
	From    string        `yaml:"from" envconfig:"REPORT_FROM_EMAIL"`
	BaseURL string        `yaml:"base_url" envconfig:"RESEND_BASE_URL" default:"https://api.resend.com"`
	Timeout time.Duration `yaml:"timeout" envconfig:"RESEND_TIMEOUT" default:"30s"`
}

// ReportConfig holds scheduled report configuration.
type ReportConfig struct {
	CronSecret       string        `yaml:"cron_secret" envconfig:"CRON_SECRET"`
	SchedulerEnabled bool          `yaml:"scheduler_enabled" envconfig:"REPORT_SCHEDULER_ENABLED" default:"false"`
	TickInterval     time.Duration `yaml:"tick_interval" envconfig:"REPORT_TICK_INTERVAL" default:"5m"`
	TopClips         int           `yaml:"top_clips" envconfig:"REPORT_TOP_CLIPS" default:"8"`
}

// IntakeConfig holds intake webhook and worker configuration.
type IntakeConfig struct {
	Async        bool          `yaml:"async" envconfig:"INTAKE_ASYNC" default:"false"`
	Workers      int           `yaml:"workers" envconfig:"INTAKE_WORKERS" default:"2"`
	PollInterval time.Duration `yaml:"poll_interval" envconfig:"INTAKE_POLL_INTERVAL" default:"2s"`
	Timeout      time.Duration `yaml:"timeout" envconfig:"INTAKE_TIMEOUT" default:"90s"`

	// RequeueOnStart returns requests stuck in processing to the queue when
	// the worker pool starts. Disable it when several servers share a store.
	RequeueOnStart bool `yaml:"requeue_on_start" envconfig:"INTAKE_REQUEUE_ON_START" default:"true"`
}

// SessionConfig holds refresh-token cookie configuration.
type SessionConfig struct {
	CookieName string        `yaml:"cookie_name" envconfig:"SESSION_COOKIE_NAME" default:"vm_refresh_token"`
	MaxAge     time.Duration `yaml:"max_age" envconfig:"SESSION_MAX_AGE" default:"2160h"`
	Secret     string        `yaml:"secret" envconfig:"SESSION_SECRET"`
	Secure     bool          `yaml:"secure" envconfig:"SESSION_SECURE" default:"true"`
}

// ShortcutConfig holds iOS Shortcut template configuration.
type ShortcutConfig struct {
	TemplateURL   string        `yaml:"template_url" envconfig:"SHORTCUT_TEMPLATE_URL"`
	Placeholder   string        `yaml:"placeholder" envconfig:"SHORTCUT_TOKEN_PLACEHOLDER"`
	ICloudBaseURL string        `yaml:"icloud_base_url" envconfig:"SHORTCUT_ICLOUD_BASE_URL" default:"https://www.icloud.com"`
	Timeout       time.Duration `yaml:"timeout" envconfig:"SHORTCUT_TIMEOUT" default:"20s"`
}

// ShareConfig holds share page preview configuration.
type ShareConfig struct {
	PublicURL string        `yaml:"public_url" envconfig:"PUBLIC_URL" default:"https://valueminer.org"`
	UserAgent string        `yaml:"user_agent" envconfig:"SHARE_USER_AGENT" default:"Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1"`
	Timeout   time.Duration `yaml:"timeout" envconfig:"SHARE_TIMEOUT" default:"4s"`
}

// RateLimitConfig holds per-client limits for the public mining endpoints.
type RateLimitConfig struct {
	RequestsPerMinute int `yaml:"requests_per_minute" envconfig:"RATE_LIMIT_PER_MINUTE" default:"20"`
	Burst             int `yaml:"burst" envconfig:"RATE_LIMIT_BURST" default:"5"`
}

// Load reads configuration from file and environment variables and
// validates it. Environment variables override file values.
func Load(configPath string) (*Config, error) {
	cfg, err := Read(configPath)
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// Read is Load without validation, for tools that only need some sections.
func Read(configPath string) (*Config, error) {
	cfg := &Config{}

	// Load from YAML file if provided
	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	// Override with environment variables
	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("process environment: %w", err)
	}

	return cfg, nil
}

// Validate checks that required configuration values are set.
// Integration keys (SearchAPI, OpenAI, Resend) stay optional so the
// endpoints can report their own missing-configuration errors.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case StoreSQLite:
		if c.Store.Path == "" {
			return fmt.Errorf("STORE_PATH is required for the sqlite store")
		}
	case StoreSupabase:
		if c.Supabase.ServiceKey == "" {
			return fmt.Errorf("SUPABASE_SERVICE_ROLE_KEY is required for the supabase store")
		}
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.Store.Driver)
	}
	if c.Supabase.URL == "" {
		return fmt.Errorf("SUPABASE_URL is required")
	}
	if c.Supabase.AuthKey() == "" {
		return fmt.Errorf("SUPABASE_ANON_KEY or SUPABASE_SERVICE_ROLE_KEY is required")
	}
	if c.Session.Secret == "" {
		return fmt.Errorf("SESSION_SECRET is required")
	}
	if c.Intake.Async && c.Intake.Workers <= 0 {
		return fmt.Errorf("INTAKE_WORKERS must be positive when INTAKE_ASYNC is set")
	}
	if c.OpenAI.Temperature < 0 || c.OpenAI.Temperature > 2 {
		return fmt.Errorf("OPENAI_TEMPERATURE must be between 0 and 2")
	}
	return nil
}

// Address returns the server address in host:port format.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// AuthKey is the key used against the auth API: the service key when
// present, otherwise the anon key.
func (c *SupabaseConfig) AuthKey() string {
	if c.ServiceKey != "" {
		return c.ServiceKey
	}
	return c.AnonKey
}

// BaseURL returns the project URL without a trailing slash.
func (c *SupabaseConfig) BaseURL() string {
	return strings.TrimRight(c.URL, "/")
}

// AuthURL returns the GoTrue endpoint of the project.
func (c *SupabaseConfig) AuthURL() string {
	return c.BaseURL() + "/auth/v1"
}

// DefaultTokenPlaceholder is the text the published shortcut template holds
// where the intake token goes.
const DefaultTokenPlaceholder = "PASTE YOUR TOKEN HERE"

// Placeholders returns the strings replaced by the token, longest first so
// the parenthesized form is consumed whole.
func (c *ShortcutConfig) Placeholders() []string {
	p := strings.TrimSpace(c.Placeholder)
	if p == "" {
		p = DefaultTokenPlaceholder
	}
	return []string{"(" + p + ")", p}
}
