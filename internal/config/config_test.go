package config

import (
	"os"
	"testing"
	"time"
)

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("JWT_SECRET", "env-secret")
	t.Setenv("DB_PATH", "/tmp/test.db")
	t.Setenv("HTTP_ADDRESS", ":9090")
	t.Setenv("TOKEN_TTL", "30m")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Auth.JWTSecret != "env-secret" {
		t.Fatalf("jwt secret: %q", cfg.Auth.JWTSecret)
	}
	if cfg.Database.Path != "/tmp/test.db" {
		t.Fatalf("db path: %q", cfg.Database.Path)
	}
	if cfg.HTTPServer.Address != ":9090" {
		t.Fatalf("address: %q", cfg.HTTPServer.Address)
	}
	if cfg.Auth.TokenTTL != 30*time.Minute {
		t.Fatalf("token ttl: %v", cfg.Auth.TokenTTL)
	}
	if cfg.Env != "local" {
		t.Fatalf("default env: %q", cfg.Env)
	}
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "env-secret")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.HTTPServer.Address != ":8080" {
		t.Fatalf("default address: %q", cfg.HTTPServer.Address)
	}
	if cfg.HTTPServer.ReadTimeout != 10*time.Second || cfg.HTTPServer.IdleTimeout != 60*time.Second {
		t.Fatalf("default timeouts: %+v", cfg.HTTPServer)
	}
	if cfg.Auth.TokenTTL != time.Hour {
		t.Fatalf("default ttl: %v", cfg.Auth.TokenTTL)
	}
}

func TestLoad_MissingSecret(t *testing.T) {
	old, had := os.LookupEnv("JWT_SECRET")
	os.Unsetenv("JWT_SECRET")
	t.Cleanup(func() {
		if had {
			os.Setenv("JWT_SECRET", old)
		}
	})

	if _, err := Load(""); err == nil {
		t.Fatalf("expected error without JWT_SECRET")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/config.yaml"); err == nil {
		t.Fatalf("expected error for missing config file")
	}
}
