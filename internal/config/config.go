package config

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DefaultAdminPassword = "admin-password-change-me"
	DefaultAdminAPIKey   = "dev-key-change-in-production"
)

type CloudflareConfig struct {
	AccountID   string
	APIToken    string
	NamespaceID string
	APIBase     string
}

// Configured reports whether every credential needed by the KV REST API is present.
func (c CloudflareConfig) Configured() bool {
	return c.AccountID != "" && c.APIToken != "" && c.NamespaceID != ""
}

type OllamaConfig struct {
	BaseURL   string
	FastModel string
	SlowModel string
	// Timeout bounds a whole generation request, health check included.
	Timeout time.Duration
}

type Config struct {
	Port string

	AdminPassword string
	AdminAPIKey   string

	Cloudflare  CloudflareConfig
	DatabaseURL string
	SQLitePath  string

	// CMSDir holds the JSON files used as the local tier of the read fallback.
	CMSDir string

	Ollama OllamaConfig

	CORSOrigins []string
	LogLevel    string
	Release     bool
}

// Load reads .env (when present) into the process environment and then builds
// the Config from it. The returned bool is false when no .env file was loaded.
func Load() (*Config, bool) {
	loaded := godotenv.Load() == nil
	return FromEnv(), loaded
}

func FromEnv() *Config {
	return &Config{
		Port:          getenv("PORT", "8080"),
		AdminPassword: getenv("CMS_ADMIN_PASSWORD", DefaultAdminPassword),
		AdminAPIKey:   getenv("CMS_ADMIN_API_KEY", DefaultAdminAPIKey),
		Cloudflare: CloudflareConfig{
			AccountID:   os.Getenv("CLOUDFLARE_ACCOUNT_ID"),
			APIToken:    os.Getenv("CLOUDFLARE_API_TOKEN"),
			NamespaceID: os.Getenv("CLOUDFLARE_KV_NAMESPACE_ID"),
			APIBase:     getenv("CLOUDFLARE_API_BASE", "https://api.cloudflare.com/client/v4"),
		},
		DatabaseURL: os.Getenv("DATABASE_URL"),
		SQLitePath:  os.Getenv("SQLITE_PATH"),
		CMSDir:      getenv("CMS_DIR", "cms"),
		Ollama: OllamaConfig{
			BaseURL:   strings.TrimRight(getenv("OLLAMA_BASE_URL", "http://localhost:11434"), "/"),
			FastModel: getenv("OLLAMA_FAST_MODEL", "llama3.2:3b"),
			SlowModel: getenv("OLLAMA_SLOW_MODEL", "llama3.1:8b"),
			Timeout:   getduration("OLLAMA_TIMEOUT", 5*time.Minute),
		},
		CORSOrigins: splitList(os.Getenv("CORS_ORIGINS")),
		LogLevel:    getenv("LOG_LEVEL", "info"),
		Release:     os.Getenv("GIN_MODE") == "release",
	}
}

// DefaultSecrets reports which admin secrets were left at their development values.
func (c *Config) DefaultSecrets() (password, apiKey bool) {
	return c.AdminPassword == DefaultAdminPassword, c.AdminAPIKey == DefaultAdminAPIKey
}

func getenv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getduration(key string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(strings.TrimSpace(os.Getenv(key)))
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
