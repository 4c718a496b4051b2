package config

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/sethvargo/go-envconfig"
)

func loadMap(t *testing.T, m map[string]string) (*Config, error) {
	t.Helper()
	return load(context.Background(), envconfig.MapLookuper(m))
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := loadMap(t, map[string]string{"JWT_SECRET": "s3cret"})
	if err != nil {
		t.Fatalf("load returned error: %v", err)
	}
	if cfg.Port != "8080" || cfg.StorageDriver != DriverPostgres {
		t.Fatalf("unexpected defaults: port=%s driver=%s", cfg.Port, cfg.StorageDriver)
	}
	if cfg.Auth.AccessTTL() != 24*time.Hour || cfg.Auth.RefreshTTL() != 30*24*time.Hour {
		t.Fatalf("unexpected ttls: %v %v", cfg.Auth.AccessTTL(), cfg.Auth.RefreshTTL())
	}
	if cfg.Auth.BcryptCost != 10 || cfg.Auth.DefaultTenantID != 1 || cfg.Auth.HideUserExistence {
		t.Fatalf("unexpected auth defaults: %+v", cfg.Auth)
	}
	if cfg.Auth.LoginAttemptWindow != 15*time.Minute || cfg.ShutdownTimeout != 10*time.Second {
		t.Fatalf("unexpected durations: %v %v", cfg.Auth.LoginAttemptWindow, cfg.ShutdownTimeout)
	}
	if !cfg.Redis.Enabled {
		t.Fatalf("expected redis enabled by default")
	}
}

func TestLoad_MissingSecret(t *testing.T) {
	if _, err := loadMap(t, map[string]string{}); err == nil {
		t.Fatalf("expected error without JWT_SECRET")
	}
	_, err := loadMap(t, map[string]string{"JWT_SECRET": "   "})
	if err == nil || !strings.Contains(err.Error(), "JWT_SECRET") {
		t.Fatalf("expected blank secret to fail, got %v", err)
	}
}

func TestLoad_Validation(t *testing.T) {
	cases := map[string]map[string]string{
		"refresh not longer than access": {"ACCESS_TOKEN_EXP_DAYS": "7", "REFRESH_TOKEN_EXP_DAYS": "7"},
		"zero access expiry":             {"ACCESS_TOKEN_EXP_DAYS": "0"},
		"bcrypt cost too high":           {"BCRYPT_COST": "40"},
		"unknown driver":                 {"STORAGE_DRIVER": "sqlite"},
		"zero tenant":                    {"DEFAULT_TENANT_ID": "0"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			env["JWT_SECRET"] = "s3cret"
			if _, err := loadMap(t, env); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}

func TestLoad_Overrides(t *testing.T) {
	cfg, err := loadMap(t, map[string]string{
		"JWT_SECRET":                "s3cret",
		"STORAGE_DRIVER":            "mongo",
		"LOGIN_HIDE_USER_EXISTENCE": "true",
		"LOGIN_ATTEMPT_WINDOW":      "1m",
		"DB_MAX_CONNS":              "25",
		"ENV":                       "production",
	})
	if err != nil {
		t.Fatalf("load returned error: %v", err)
	}
	if cfg.StorageDriver != DriverMongo || !cfg.Auth.HideUserExistence {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	if cfg.Auth.LoginAttemptWindow != time.Minute || cfg.Postgres.MaxConns != 25 {
		t.Fatalf("unexpected values: %v %d", cfg.Auth.LoginAttemptWindow, cfg.Postgres.MaxConns)
	}
	if !cfg.IsProduction() {
		t.Fatalf("expected production env")
	}
}
