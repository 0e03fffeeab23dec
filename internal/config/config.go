package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server     ServerConfig
	Catalog    CatalogConfig
	Extraction ExtractionConfig
	Storage    StorageConfig
	Viewer     ViewerConfig
	Session    SessionConfig
	Log        LogConfig
	CORS       CORSConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         string        `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	Environment  string        `mapstructure:"environment"`
}

// CatalogConfig holds document catalog settings.
type CatalogConfig struct {
	Path  string `mapstructure:"path"`
	Watch bool   `mapstructure:"watch"`
}

// ExtractionConfig holds extraction data source settings.
type ExtractionConfig struct {
	// BaseURL is the extraction endpoint; file paths and http(s) URLs are
	// both accepted. The submission id is appended as <base>/<id>.json.
	BaseURL     string        `mapstructure:"base_url"`
	MaxRetries  uint          `mapstructure:"max_retries"`
	RetryDelay  time.Duration `mapstructure:"retry_delay"`
	HTTPTimeout time.Duration `mapstructure:"http_timeout"`
}

// StorageConfig holds local edit persistence settings.
type StorageConfig struct {
	// DataDir is the badger directory for client-scoped working-field edits.
	DataDir  string `mapstructure:"data_dir"`
	InMemory bool   `mapstructure:"in_memory"`
}

// ViewerConfig holds viewer adapter settings.
type ViewerConfig struct {
	// HighlightTTL is the window after which an active highlight auto-clears.
	HighlightTTL time.Duration `mapstructure:"highlight_ttl"`
	// SheetRowWindow is the initial number of revealed rows per sheet.
	SheetRowWindow int `mapstructure:"sheet_row_window"`
	// LoadRetries bounds automatic retries of a failed document load.
	LoadRetries uint `mapstructure:"load_retries"`
}

// SessionConfig holds review session registry settings.
type SessionConfig struct {
	IdleExpiry    time.Duration `mapstructure:"idle_expiry"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// CORSConfig holds CORS settings.
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// Load reads configuration from environment variables with the SUBVIEW_ prefix.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("SUBVIEW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Server defaults
	v.SetDefault("server.port", ":8080")
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("server.environment", "development")

	// Catalog defaults
	v.SetDefault("catalog.path", "data/catalog.json")
	v.SetDefault("catalog.watch", true)

	// Extraction defaults
	v.SetDefault("extraction.base_url", "data/extractions")
	v.SetDefault("extraction.max_retries", 3)
	v.SetDefault("extraction.retry_delay", "500ms")
	v.SetDefault("extraction.http_timeout", "30s")

	// Storage defaults
	v.SetDefault("storage.data_dir", "data/edits")
	v.SetDefault("storage.in_memory", false)

	// Viewer defaults
	v.SetDefault("viewer.highlight_ttl", "6s")
	v.SetDefault("viewer.sheet_row_window", 100)
	v.SetDefault("viewer.load_retries", 2)

	// Session defaults
	v.SetDefault("session.idle_expiry", "30m")
	v.SetDefault("session.sweep_interval", "5m")

	// Log defaults
	v.SetDefault("log.level", "debug")
	v.SetDefault("log.format", "console")

	// CORS defaults (localhost origins for development)
	v.SetDefault("cors.allowed_origins", "http://localhost:3000,http://127.0.0.1:3000,http://localhost:5173,http://127.0.0.1:5173")

	// Bind environment variables explicitly for nested keys
	envBindings := map[string]string{
		"server.port":             "SUBVIEW_SERVER_PORT",
		"server.read_timeout":     "SUBVIEW_SERVER_READ_TIMEOUT",
		"server.write_timeout":    "SUBVIEW_SERVER_WRITE_TIMEOUT",
		"server.environment":      "SUBVIEW_SERVER_ENVIRONMENT",
		"catalog.path":            "SUBVIEW_CATALOG_PATH",
		"catalog.watch":           "SUBVIEW_CATALOG_WATCH",
		"extraction.base_url":     "SUBVIEW_EXTRACTION_BASE_URL",
		"extraction.max_retries":  "SUBVIEW_EXTRACTION_MAX_RETRIES",
		"extraction.retry_delay":  "SUBVIEW_EXTRACTION_RETRY_DELAY",
		"extraction.http_timeout": "SUBVIEW_EXTRACTION_HTTP_TIMEOUT",
		"storage.data_dir":        "SUBVIEW_STORAGE_DATA_DIR",
		"storage.in_memory":       "SUBVIEW_STORAGE_IN_MEMORY",
		"viewer.highlight_ttl":    "SUBVIEW_VIEWER_HIGHLIGHT_TTL",
		"viewer.sheet_row_window": "SUBVIEW_VIEWER_SHEET_ROW_WINDOW",
		"viewer.load_retries":     "SUBVIEW_VIEWER_LOAD_RETRIES",
		"session.idle_expiry":     "SUBVIEW_SESSION_IDLE_EXPIRY",
		"session.sweep_interval":  "SUBVIEW_SESSION_SWEEP_INTERVAL",
		"log.level":               "SUBVIEW_LOG_LEVEL",
		"log.format":              "SUBVIEW_LOG_FORMAT",
		"cors.allowed_origins":    "SUBVIEW_CORS_ALLOWED_ORIGINS",
	}
	for key, env := range envBindings {
		_ = v.BindEnv(key, env)
	}

	cfg := &Config{}

	// Railway/Heroku/Render set a PORT env var. Use it if SUBVIEW_SERVER_PORT is not explicitly set.
	serverPort := v.GetString("server.port")
	if port := os.Getenv("PORT"); port != "" && os.Getenv("SUBVIEW_SERVER_PORT") == "" {
		serverPort = ":" + port
	}

	cfg.Server = ServerConfig{
		Port:         serverPort,
		ReadTimeout:  v.GetDuration("server.read_timeout"),
		WriteTimeout: v.GetDuration("server.write_timeout"),
		Environment:  v.GetString("server.environment"),
	}
	cfg.Catalog = CatalogConfig{
		Path:  v.GetString("catalog.path"),
		Watch: v.GetBool("catalog.watch"),
	}
	cfg.Extraction = ExtractionConfig{
		BaseURL:     v.GetString("extraction.base_url"),
		MaxRetries:  v.GetUint("extraction.max_retries"),
		RetryDelay:  v.GetDuration("extraction.retry_delay"),
		HTTPTimeout: v.GetDuration("extraction.http_timeout"),
	}
	cfg.Storage = StorageConfig{
		DataDir:  v.GetString("storage.data_dir"),
		InMemory: v.GetBool("storage.in_memory"),
	}
	cfg.Viewer = ViewerConfig{
		HighlightTTL:   v.GetDuration("viewer.highlight_ttl"),
		SheetRowWindow: v.GetInt("viewer.sheet_row_window"),
		LoadRetries:    v.GetUint("viewer.load_retries"),
	}
	cfg.Session = SessionConfig{
		IdleExpiry:    v.GetDuration("session.idle_expiry"),
		SweepInterval: v.GetDuration("session.sweep_interval"),
	}
	cfg.Log = LogConfig{
		Level:  v.GetString("log.level"),
		Format: v.GetString("log.format"),
	}
	// Parse CORS allowed origins from comma-separated string
	var corsOrigins []string
	for _, o := range strings.Split(v.GetString("cors.allowed_origins"), ",") {
		o = strings.TrimSpace(o)
		if o != "" {
			corsOrigins = append(corsOrigins, o)
		}
	}
	cfg.CORS = CORSConfig{
		AllowedOrigins: corsOrigins,
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Viewer.HighlightTTL <= 0 {
		return fmt.Errorf("viewer.highlight_ttl must be positive, got %s", c.Viewer.HighlightTTL)
	}
	if c.Viewer.SheetRowWindow <= 0 {
		return fmt.Errorf("viewer.sheet_row_window must be positive, got %d", c.Viewer.SheetRowWindow)
	}
	if c.Catalog.Path == "" {
		return fmt.Errorf("catalog.path must not be empty")
	}
	return nil
}
