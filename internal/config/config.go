package config

import (
	"fmt"
	"log"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Port         string   `mapstructure:"PORT"`
	Env          string   `mapstructure:"ENV"`
	DatabaseURL  string   `mapstructure:"DATABASE_URL"`
	DBMaxConns   int32    `mapstructure:"DB_MAX_CONNS"`
	DBMinConns   int32    `mapstructure:"DB_MIN_CONNS"`
	AuthIssuer   string   `mapstructure:"AUTH_ISSUER"`
	AuthJWKSURL  string   `mapstructure:"AUTH_JWKS_URL"`
	AuthAudience string   `mapstructure:"AUTH_AUDIENCE"`
	CORSOrigins  []string `mapstructure:"CORS_ORIGINS"`

	// Blob storage. When STORAGE_URL is empty the server runs the built-in
	// in-memory store and exposes the dev upload endpoint.
	StorageBucket     string `mapstructure:"STORAGE_BUCKET"`
	StorageURL        string `mapstructure:"STORAGE_URL"`
	StorageServiceKey string `mapstructure:"STORAGE_SERVICE_KEY"`
	SignedURLTTL      int    `mapstructure:"SIGNED_URL_TTL_SECONDS"`

	// Speech-to-text provider.
	STTAPIURL string `mapstructure:"STT_API_URL"`
	STTAPIKey string `mapstructure:"STT_API_KEY"`
	STTModel  string `mapstructure:"STT_MODEL"`

	// Language model provider used for transcript structuring.
	LLMAPIURL    string `mapstructure:"LLM_API_URL"`
	LLMAPIKey    string `mapstructure:"LLM_API_KEY"`
	LLMModel     string `mapstructure:"LLM_MODEL"`
	LLMMaxTokens int    `mapstructure:"LLM_MAX_TOKENS"`

	// When true a failed transcript write fails the whole processing run
	// instead of being logged and swallowed.
	TranscribeFailOnPersistError bool `mapstructure:"TRANSCRIBE_FAIL_ON_PERSIST_ERROR"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 5)
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("STORAGE_BUCKET", "recordings")
	v.SetDefault("SIGNED_URL_TTL_SECONDS", 3600)
	v.SetDefault("STT_MODEL", "whisper-1")
	v.SetDefault("LLM_MAX_TOKENS", 2000)
	v.SetDefault("TRANSCRIBE_FAIL_ON_PERSIST_ERROR", false)

	// Bind env vars explicitly so Unmarshal picks them up
	for _, key := range []string{
		"PORT", "ENV", "DATABASE_URL", "DB_MAX_CONNS", "DB_MIN_CONNS",
		"AUTH_ISSUER", "AUTH_JWKS_URL", "AUTH_AUDIENCE", "CORS_ORIGINS",
		"STORAGE_BUCKET", "STORAGE_URL", "STORAGE_SERVICE_KEY", "SIGNED_URL_TTL_SECONDS",
		"STT_API_URL", "STT_API_KEY", "STT_MODEL",
		"LLM_API_URL", "LLM_API_KEY", "LLM_MODEL", "LLM_MAX_TOKENS",
		"TRANSCRIBE_FAIL_ON_PERSIST_ERROR",
	} {
		v.BindEnv(key)
	}

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.CORSOrigins == nil {
		origins := v.GetString("CORS_ORIGINS")
		if origins != "" {
			cfg.CORSOrigins = strings.Split(origins, ",")
		}
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.IsDev() {
		log.Println("WARNING: server is running in DEVELOPMENT mode (ENV=development).")
		log.Println("WARNING: DevAuthMiddleware is active — all requests get admin access.")
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the server is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Validate checks that the configuration is safe to run. Outside of
// development real JWT authentication must be configured, and in production
// the transcription providers must have credentials so the pipeline can
// reach them.
func (c *Config) Validate() error {
	if !c.IsDev() && c.AuthIssuer == "" && c.AuthJWKSURL == "" {
		return fmt.Errorf("AUTH_ISSUER or AUTH_JWKS_URL must be set when ENV=%q; refusing to start without authentication", c.Env)
	}

	if c.StorageBucket == "" {
		return fmt.Errorf("STORAGE_BUCKET is required")
	}
	if c.StorageURL != "" && c.StorageServiceKey == "" {
		return fmt.Errorf("STORAGE_SERVICE_KEY is required when STORAGE_URL is set")
	}
	if c.SignedURLTTL <= 0 {
		return fmt.Errorf("SIGNED_URL_TTL_SECONDS must be positive, got %d", c.SignedURLTTL)
	}

	if c.IsProduction() {
		if c.STTAPIURL == "" || c.STTAPIKey == "" {
			return fmt.Errorf("STT_API_URL and STT_API_KEY are required in production")
		}
		if c.LLMAPIURL == "" || c.LLMAPIKey == "" {
			return fmt.Errorf("LLM_API_URL and LLM_API_KEY are required in production")
		}
	}

	return nil
}
