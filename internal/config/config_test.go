package config

import (
	"os"
	"testing"
)

func loadWithEnv(t *testing.T, env map[string]string) (*Config, error) {
	t.Helper()
	for k, v := range env {
		os.Setenv(k, v)
	}
	t.Cleanup(func() {
		for k := range env {
			os.Unsetenv(k)
		}
	})
	return Load()
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := loadWithEnv(t, map[string]string{
		"DATABASE_URL": "postgres://localhost/telecare",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port != "8000" {
		t.Errorf("expected default port 8000, got %s", cfg.Port)
	}
	if cfg.StorageBucket != "recordings" {
		t.Errorf("expected default bucket 'recordings', got %s", cfg.StorageBucket)
	}
	if cfg.SignedURLTTL != 3600 {
		t.Errorf("expected default signed URL TTL 3600, got %d", cfg.SignedURLTTL)
	}
	if cfg.TranscribeFailOnPersistError {
		t.Error("expected fail-on-persist-error to default to false")
	}
}

func TestLoad_MissingDatabaseURL(t *testing.T) {
	os.Unsetenv("DATABASE_URL")
	if _, err := Load(); err == nil {
		t.Error("expected error when DATABASE_URL is missing")
	}
}

func TestValidate_DevMode(t *testing.T) {
	cfg := &Config{
		Env:           "development",
		StorageBucket: "recordings",
		SignedURLTTL:  3600,
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("unexpected error in dev mode: %v", err)
	}
}

func TestValidate_ProductionRequiresAuth(t *testing.T) {
	cfg := &Config{
		Env:           "production",
		StorageBucket: "recordings",
		SignedURLTTL:  3600,
	}
	if err := cfg.Validate(); err == nil {
		t.Error("expected error when production has no auth configuration")
	}
}

func TestValidate_ProductionRequiresProviders(t *testing.T) {
	cfg := &Config{
		Env:           "production",
		AuthIssuer:    "https://auth.example.com",
		StorageBucket: "recordings",
		SignedURLTTL:  3600,
	}
	if err := cfg.Validate(); err == nil {
		t.Error("expected error when provider keys are missing in production")
	}
}

func TestValidate_MissingBucket(t *testing.T) {
	cfg := &Config{Env: "development", SignedURLTTL: 3600}
	if err := cfg.Validate(); err == nil {
		t.Error("expected error when STORAGE_BUCKET is empty")
	}
}

func TestValidate_StorageServiceKeyRequired(t *testing.T) {
	cfg := &Config{
		Env:           "development",
		StorageBucket: "recordings",
		StorageURL:    "https://storage.example.com",
		SignedURLTTL:  3600,
	}
	if err := cfg.Validate(); err == nil {
		t.Error("expected error when STORAGE_URL is set without STORAGE_SERVICE_KEY")
	}
}
