package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func validConfig() *Config {
	return &Config{
		Store: StoreConfig{
			Driver: StoreSQLite,
			Path:   "/data/valueminer.db",
		},
		Supabase: SupabaseConfig{
			URL:     "https://project.supabase.co",
			AnonKey: "anon-key",
		},
		Session: SessionConfig{
			Secret: "session-secret",
		},
		OpenAI: OpenAIConfig{
			Temperature: 0.4,
		},
	}
}

func TestConfig_Validate_Success(t *testing.T) {
	cfg := validConfig()

	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() should pass, got %v", err)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{
			name:    "unknown driver",
			mutate:  func(c *Config) { c.Store.Driver = "mongo" },
			wantErr: true,
		},
		{
			name:    "sqlite without path",
			mutate:  func(c *Config) { c.Store.Path = "" },
			wantErr: true,
		},
		{
			name:    "supabase store without service key",
			mutate:  func(c *Config) { c.Store.Driver = StoreSupabase },
			wantErr: true,
		},
		{
			name: "supabase store with service key",
			mutate: func(c *Config) {
				c.Store.Driver = StoreSupabase
				c.Supabase.ServiceKey = "service-key"
			},
			wantErr: false,
		},
		{
			name:    "missing supabase url",
			mutate:  func(c *Config) { c.Supabase.URL = "" },
			wantErr: true,
		},
		{
			name:    "missing auth key",
			mutate:  func(c *Config) { c.Supabase.AnonKey = "" },
			wantErr: true,
		},
		{
			name:    "missing session secret",
			mutate:  func(c *Config) { c.Session.Secret = "" },
			wantErr: true,
		},
		{
			name: "async intake without workers",
			mutate: func(c *Config) {
				c.Intake.Async = true
				c.Intake.Workers = 0
			},
			wantErr: true,
		},
		{
			name:    "temperature out of range",
			mutate:  func(c *Config) { c.OpenAI.Temperature = 3 },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestServerConfig_Address(t *testing.T) {
	tests := []struct {
		host string
		port int
		want string
	}{
		{"0.0.0.0", 8080, "0.0.0.0:8080"},
		{"localhost", 3000, "localhost:3000"},
		{"", 80, ":80"},
	}

	for _, tt := range tests {
		cfg := &ServerConfig{Host: tt.host, Port: tt.port}
		if got := cfg.Address(); got != tt.want {
			t.Errorf("Address() = %q, want %q", got, tt.want)
		}
	}
}

func TestSupabaseConfig_AuthKey(t *testing.T) {
	c := &SupabaseConfig{AnonKey: "anon"}
	if c.AuthKey() != "anon" {
		t.Errorf("AuthKey() = %q, want anon", c.AuthKey())
	}
	c.ServiceKey = "service"
	if c.AuthKey() != "service" {
		t.Errorf("AuthKey() = %q, want service", c.AuthKey())
	}
}

func TestSupabaseConfig_BaseURL(t *testing.T) {
	c := &SupabaseConfig{URL: "https://project.supabase.co/"}
	if got := c.BaseURL(); got != "https://project.supabase.co" {
		t.Errorf("BaseURL() = %q", got)
	}
}

func TestShortcutConfig_Placeholders(t *testing.T) {
	c := &ShortcutConfig{}
	got := c.Placeholders()
	if len(got) != 2 || got[0] != "(PASTE YOUR TOKEN HERE)" || got[1] != "PASTE YOUR TOKEN HERE" {
		t.Errorf("default placeholders = %v", got)
	}

	c.Placeholder = " YOUR_TOKEN "
	got = c.Placeholders()
	if len(got) != 2 || got[0] != "(YOUR_TOKEN)" || got[1] != "YOUR_TOKEN" {
		t.Errorf("Placeholders() = %v", got)
	}
}

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("SUPABASE_URL", "https://project.supabase.co")
	t.Setenv("SUPABASE_ANON_KEY", "anon-key")
	t.Setenv("SESSION_SECRET", "secret")
}

func TestLoad_EnvOnly(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("STORE_PATH", "/tmp/test.db")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Store.Driver != StoreSQLite {
		t.Errorf("Driver = %q, want sqlite", cfg.Store.Driver)
	}
	if cfg.OpenAI.Model != "gpt-4o-mini" {
		t.Errorf("Model = %q, want gpt-4o-mini", cfg.OpenAI.Model)
	}
	if cfg.OpenAI.Temperature != 0.4 {
		t.Errorf("Temperature = %v, want 0.4", cfg.OpenAI.Temperature)
	}
	if cfg.Session.CookieName != "vm_refresh_token" {
		t.Errorf("CookieName = %q", cfg.Session.CookieName)
	}
	if cfg.Session.MaxAge != 90*24*time.Hour {
		t.Errorf("MaxAge = %v, want 90 days", cfg.Session.MaxAge)
	}
	if cfg.Report.TickInterval != 5*time.Minute {
		t.Errorf("TickInterval = %v", cfg.Report.TickInterval)
	}
	if !cfg.Intake.RequeueOnStart {
		t.Error("RequeueOnStart should default to true")
	}
}

func TestLoad_FromYAMLFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	// envconfig applies defaults over YAML for fields that carry a default
	// tag, so only fields without defaults are read from the file here.
	t.Setenv("STORE_PATH", filepath.Join(tmpDir, "vm.db"))

	yamlContent := `
supabase:
  url: "https://yaml.supabase.co"
  anon_key: "yaml-anon"
session:
  secret: "yaml-secret"
openai:
  api_key: "yaml-openai"
`
	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Supabase.URL != "https://yaml.supabase.co" {
		t.Errorf("Supabase.URL = %q", cfg.Supabase.URL)
	}
	if cfg.OpenAI.APIKey != "yaml-openai" {
		t.Errorf("OpenAI.APIKey = %q", cfg.OpenAI.APIKey)
	}
	if cfg.Session.Secret != "yaml-secret" {
		t.Errorf("Session.Secret = %q", cfg.Session.Secret)
	}
}

func TestLoad_EnvOverridesYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	yamlContent := `
supabase:
  url: "https://yaml.supabase.co"
  anon_key: "yaml-anon"
session:
  secret: "yaml-secret"
searchapi:
  api_key: "yaml-search"
`
	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	t.Setenv("SEARCHAPI_KEY", "env-search")
	t.Setenv("SUPABASE_URL", "https://env.supabase.co")

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.SearchAPI.APIKey != "env-search" {
		t.Errorf("SearchAPI.APIKey should be from env, got %q", cfg.SearchAPI.APIKey)
	}
	if cfg.Supabase.URL != "https://env.supabase.co" {
		t.Errorf("Supabase.URL should be from env, got %q", cfg.Supabase.URL)
	}
}

func TestLoad_CORSOriginsFromEnv(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example,https://b.example")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(cfg.Server.AllowedOrigins) != 2 {
		t.Errorf("AllowedOrigins = %v", cfg.Server.AllowedOrigins)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	invalidYAML := `
server:
  host: "localhost
  port: 8080
`
	if err := os.WriteFile(configPath, []byte(invalidYAML), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	_, err := Load(configPath)
	if err == nil {
		t.Error("Load should fail for invalid YAML")
	}
}

func TestLoad_NonexistentFile(t *testing.T) {
	_, err := Load("/nonexistent/config.yaml")
	if err == nil {
		t.Error("Load should fail for nonexistent file")
	}
}

func TestLoad_ValidationFailure(t *testing.T) {
	t.Setenv("SUPABASE_URL", "")
	t.Setenv("SESSION_SECRET", "")

	_, err := Load("")
	if err == nil {
		t.Error("Load should fail validation without required values")
	}
}

func TestRead_SkipsValidation(t *testing.T) {
	t.Setenv("SUPABASE_URL", "")
	t.Setenv("SESSION_SECRET", "")
	t.Setenv("OPENAI_API_KEY", "sk-test")

	cfg, err := Read("")
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if cfg.OpenAI.APIKey != "sk-test" {
		t.Errorf("OpenAI.APIKey = %q", cfg.OpenAI.APIKey)
	}
	if cfg.SearchAPI.BaseURL != "https://www.searchapi.io/api/v1" {
		t.Errorf("SearchAPI.BaseURL = %q", cfg.SearchAPI.BaseURL)
	}
}
