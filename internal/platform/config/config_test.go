package config

import (
	"testing"
	"time"
)

func validConfig() Config {
	return Config{
		StorageDriver:      DriverMemory,
		Environment:        "development",
		MaxBodyBytes:       4096,
		RateLimitPerMinute: 60,
		DispatchWorkers:    1,
		DispatchQueueSize:  8,
		LogLevel:           "info",
		LogFormat:          "json",
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "")
	t.Setenv("DISPATCH_TIMEOUT", "")
	cfg := Load()
	if cfg.StorageDriver != DriverPostgres {
		t.Fatalf("expected postgres driver by default, got %q", cfg.StorageDriver)
	}
	if cfg.DispatchTimeout != 10*time.Second {
		t.Fatalf("unexpected dispatch timeout %s", cfg.DispatchTimeout)
	}
}

func TestLoadReadsEnv(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "Memory")
	t.Setenv("DISPATCH_WORKERS", "9")
	t.Setenv("DISPATCH_TIMEOUT", "250ms")
	t.Setenv("EMAIL_ENABLED", "not-a-bool")
	cfg := Load()
	if cfg.StorageDriver != DriverMemory {
		t.Fatalf("expected memory driver, got %q", cfg.StorageDriver)
	}
	if cfg.DispatchWorkers != 9 || cfg.DispatchTimeout != 250*time.Millisecond {
		t.Fatalf("unexpected dispatch settings: %d %s", cfg.DispatchWorkers, cfg.DispatchTimeout)
	}
	if cfg.EmailEnabled {
		t.Fatal("invalid bool should fall back to default")
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid memory", func(*Config) {}, false},
		{"postgres without url", func(c *Config) { c.StorageDriver = DriverPostgres }, true},
		{"postgres with url", func(c *Config) { c.StorageDriver = DriverPostgres; c.DatabaseURL = "postgres://x" }, false},
		{"unknown driver", func(c *Config) { c.StorageDriver = "sqlite" }, true},
		{"production without secret", func(c *Config) {
			c.Environment = "production"
			c.StorageDriver = DriverPostgres
			c.DatabaseURL = "postgres://x"
		}, true},
		{"production on memory", func(c *Config) { c.Environment = "production"; c.JWTSecret = "s"; c.DataEncryptionKey = "k" }, true},
		{"production without encryption key", func(c *Config) {
			c.Environment = "production"
			c.StorageDriver = DriverPostgres
			c.DatabaseURL = "postgres://x"
			c.JWTSecret = "s"
		}, true},
		{"production complete", func(c *Config) {
			c.Environment = "production"
			c.StorageDriver = DriverPostgres
			c.DatabaseURL = "postgres://x"
			c.JWTSecret = "s"
			c.DataEncryptionKey = "k"
		}, false},
		{"small body limit", func(c *Config) { c.MaxBodyBytes = 10 }, true},
		{"zero rate limit", func(c *Config) { c.RateLimitPerMinute = 0 }, true},
		{"zero workers", func(c *Config) { c.DispatchWorkers = 0 }, true},
		{"email without host", func(c *Config) { c.EmailEnabled = true }, true},
		{"bad log level", func(c *Config) { c.LogLevel = "trace" }, true},
		{"bad log format", func(c *Config) { c.LogFormat = "xml" }, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.wantErr && err == nil {
				t.Fatal("expected error")
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}
