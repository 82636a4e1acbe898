// Package config loads and validates process-level configuration.
//
// Only process concerns live here: listen address, AI provider credentials,
// store paths, log level. Tenant-scoped settings (active flag, menu URL,
// greeting, business info) live in the tenant store so they can change at
// runtime without a restart.
package config

// Config is the root configuration for pedezap.
type Config struct {
	Server   ServerConfig   `yaml:"server,omitempty"`
	AI       AIConfig       `yaml:"ai,omitempty"`
	Store    StoreConfig    `yaml:"store,omitempty"`
	WhatsApp WhatsAppConfig `yaml:"whatsapp,omitempty"`
	Logging  LoggingConfig  `yaml:"logging,omitempty"`
}

// ServerConfig controls the HTTP control surface.
type ServerConfig struct {
	Port           int      `yaml:"port,omitempty"`
	Host           string   `yaml:"host,omitempty"`
	AuthToken      string   `yaml:"authToken,omitempty"` // optional bearer token; supports ${ENV_VAR}
	AllowedOrigins []string `yaml:"allowedOrigins,omitempty"`
}

// AIConfig selects and configures the classifier backend.
type AIConfig struct {
	Provider  string `yaml:"provider,omitempty"` // "gemini" | "mock"
	APIKey    string `yaml:"apiKey,omitempty"`   // supports ${ENV_VAR}
	Model     string `yaml:"model,omitempty"`
	MaxTokens int    `yaml:"maxTokens,omitempty"`
}

// StoreConfig configures the order/tenant/catalog database.
type StoreConfig struct {
	Path string `yaml:"path,omitempty"` // SQLite file, ":memory:" for tests
}

// WhatsAppConfig configures the chat transport.
type WhatsAppConfig struct {
	SessionDir string `yaml:"sessionDir,omitempty"` // per-tenant credential databases
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level string `yaml:"level,omitempty"`
}

// Defaults returns the built-in configuration defaults.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Port: 3000,
			Host: "127.0.0.1",
		},
		AI: AIConfig{
			Provider:  "gemini",
			Model:     "gemini-2.0-flash",
			MaxTokens: 1024,
		},
		Store: StoreConfig{
			Path: "pedezap.db",
		},
		WhatsApp: WhatsAppConfig{
			SessionDir: "sessions",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}
