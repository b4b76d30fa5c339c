package config

import (
	"context"
	"testing"
	"time"

	"github.com/sethvargo/go-envconfig"
)

const (
	testAccessSecret  = "access-secret-key-that-is-at-least-32-characters"
	testRefreshSecret = "refresh-secret-key-that-is-at-least-32-characters"
)

func baseEnv() map[string]string {
	return map[string]string{
		"ACCESS_TOKEN_SECRET":  testAccessSecret,
		"REFRESH_TOKEN_SECRET": testRefreshSecret,
	}
}

func load(t *testing.T, env map[string]string) (*Config, error) {
	t.Helper()
	return LoadFrom(context.Background(), envconfig.MapLookuper(env))
}

func TestLoad(t *testing.T) {
	cfg, err := load(t, baseEnv())
	if err != nil {
		t.Fatalf("Failed to load configuration: %v", err)
	}

	if cfg.Server.Port != "8000" {
		t.Errorf("Expected Server.Port to be '8000', got '%s'", cfg.Server.Port)
	}

	if cfg.Server.ReadTimeout.Duration != 15*time.Second {
		t.Errorf("Expected Server.ReadTimeout to be 15s, got %v", cfg.Server.ReadTimeout.Duration)
	}

	if cfg.Store.Driver != "mongo" {
		t.Errorf("Expected Store.Driver to be 'mongo', got '%s'", cfg.Store.Driver)
	}

	if cfg.Mongo.URI != "mongodb://localhost:27017" {
		t.Errorf("Expected Mongo.URI to be 'mongodb://localhost:27017', got '%s'", cfg.Mongo.URI)
	}

	if cfg.Storage.Driver != "minio" {
		t.Errorf("Expected Storage.Driver to be 'minio', got '%s'", cfg.Storage.Driver)
	}

	if !cfg.Redis.Enabled {
		t.Error("Expected Redis.Enabled to default to true")
	}

	if cfg.JWT.AccessTokenExpiry.Duration != 24*time.Hour {
		t.Errorf("Expected JWT.AccessTokenExpiry to be 1d, got %v", cfg.JWT.AccessTokenExpiry.Duration)
	}

	if cfg.JWT.RefreshTokenExpiry.Duration != 10*24*time.Hour {
		t.Errorf("Expected JWT.RefreshTokenExpiry to be 10d, got %v", cfg.JWT.RefreshTokenExpiry.Duration)
	}

	if cfg.Security.BCryptCost != 10 {
		t.Errorf("Expected Security.BCryptCost to be 10, got %d", cfg.Security.BCryptCost)
	}

	if !cfg.Security.RevokeSessionsOnPasswordChange {
		t.Error("Expected sessions to be revoked on password change by default")
	}

	if !cfg.Cookie.Secure {
		t.Error("Expected Cookie.Secure to default to true")
	}

	if cfg.Cache.ProfileTTL.Duration != 5*time.Minute {
		t.Errorf("Expected Cache.ProfileTTL to be 5m, got %v", cfg.Cache.ProfileTTL.Duration)
	}

	if cfg.Env != "development" {
		t.Errorf("Expected Env to be 'development', got '%s'", cfg.Env)
	}

	if len(cfg.CORS.AllowedMethods) != 4 {
		t.Errorf("Expected 4 CORS.AllowedMethods, got %v", cfg.CORS.AllowedMethods)
	}
}

func TestLoadWithCustomValues(t *testing.T) {
	env := baseEnv()
	env["SERVER_PORT"] = "9090"
	env["STORE_DRIVER"] = "postgres"
	env["POSTGRES_HOST"] = "postgres.example.com"
	env["STORAGE_DRIVER"] = "s3"
	env["S3_ENDPOINT"] = "http://localhost:9000"
	env["REDIS_ENABLED"] = "false"
	env["ACCESS_TOKEN_EXPIRY"] = "30m"
	env["REFRESH_TOKEN_EXPIRY"] = "7d"
	env["COOKIE_SECURE"] = "false"
	env["SECURITY_REVOKE_SESSIONS_ON_PASSWORD_CHANGE"] = "false"
	env["ENV"] = "production"

	cfg, err := load(t, env)
	if err != nil {
		t.Fatalf("Failed to load configuration: %v", err)
	}

	if cfg.Server.Port != "9090" {
		t.Errorf("Expected Server.Port to be '9090', got '%s'", cfg.Server.Port)
	}

	if cfg.Store.Driver != "postgres" {
		t.Errorf("Expected Store.Driver to be 'postgres', got '%s'", cfg.Store.Driver)
	}

	if cfg.Postgres.Host != "postgres.example.com" {
		t.Errorf("Expected Postgres.Host to be 'postgres.example.com', got '%s'", cfg.Postgres.Host)
	}

	if cfg.Storage.Driver != "s3" || cfg.S3.Endpoint != "http://localhost:9000" {
		t.Errorf("Expected s3 storage with custom endpoint, got %s %s", cfg.Storage.Driver, cfg.S3.Endpoint)
	}

	if cfg.Redis.Enabled {
		t.Error("Expected Redis.Enabled to be false")
	}

	if cfg.JWT.AccessTokenExpiry.Duration != 30*time.Minute {
		t.Errorf("Expected JWT.AccessTokenExpiry to be 30m, got %v", cfg.JWT.AccessTokenExpiry.Duration)
	}

	if cfg.JWT.RefreshTokenExpiry.Duration != 7*24*time.Hour {
		t.Errorf("Expected JWT.RefreshTokenExpiry to be 7d, got %v", cfg.JWT.RefreshTokenExpiry.Duration)
	}

	if cfg.Cookie.Secure {
		t.Error("Expected Cookie.Secure to be false")
	}

	if cfg.Security.RevokeSessionsOnPasswordChange {
		t.Error("Expected RevokeSessionsOnPasswordChange to be false")
	}

	if cfg.Env != "production" {
		t.Errorf("Expected Env to be 'production', got '%s'", cfg.Env)
	}
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(env map[string]string)
	}{
		{"missing access secret", func(env map[string]string) { delete(env, "ACCESS_TOKEN_SECRET") }},
		{"missing refresh secret", func(env map[string]string) { delete(env, "REFRESH_TOKEN_SECRET") }},
		{"short access secret", func(env map[string]string) { env["ACCESS_TOKEN_SECRET"] = "short" }},
		{"short refresh secret", func(env map[string]string) { env["REFRESH_TOKEN_SECRET"] = "short" }},
		{"identical secrets", func(env map[string]string) { env["REFRESH_TOKEN_SECRET"] = testAccessSecret }},
		{"unknown store", func(env map[string]string) { env["STORE_DRIVER"] = "cassandra" }},
		{"unknown storage", func(env map[string]string) { env["STORAGE_DRIVER"] = "ftp" }},
		{"bcrypt cost too low", func(env map[string]string) { env["BCRYPT_COST"] = "2" }},
		{"bad duration", func(env map[string]string) { env["ACCESS_TOKEN_EXPIRY"] = "soon" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := baseEnv()
			tt.mutate(env)

			if _, err := load(t, env); err == nil {
				t.Error("Expected configuration error")
			}
		})
	}
}

func TestParseDuration(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Duration
		wantErr bool
	}{
		{in: "3d", want: 72 * time.Hour},
		{in: "1.5d", want: 36 * time.Hour},
		{in: "2w", want: 14 * 24 * time.Hour},
		{in: "15m", want: 15 * time.Minute},
		{in: "90", want: 90 * time.Second},
		{in: " 1h30m ", want: 90 * time.Minute},
		{in: "xd", wantErr: true},
		{in: "-1d", wantErr: true},
		{in: "-5", wantErr: true},
		{in: "-1h", wantErr: true},
		{in: "soon", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDuration(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Errorf("Expected error for %q, got %v", tt.in, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("Failed to parse %q: %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("Expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestDurationEnvDecodeKeepsDefaultOnEmpty(t *testing.T) {
	d := Duration{Duration: time.Minute}
	if err := d.EnvDecode(context.Background(), ""); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if d.Duration != time.Minute {
		t.Errorf("Expected 1m, got %v", d.Duration)
	}
}

func TestPostgresDSN(t *testing.T) {
	pg := PostgresConfig{
		Host:     "localhost",
		Port:     "5432",
		User:     "test_user",
		Password: "test_password",
		DBName:   "test_db",
		SSLMode:  "disable",
	}

	dsn := pg.DSN()
	expected := "host=localhost port=5432 user=test_user password=test_password dbname=test_db sslmode=disable"
	if dsn != expected {
		t.Errorf("Expected DSN to be '%s', got '%s'", expected, dsn)
	}
}

func TestRedisAddress(t *testing.T) {
	redis := RedisConfig{
		Host: "localhost",
		Port: "6379",
	}

	addr := redis.Address()
	expected := "localhost:6379"
	if addr != expected {
		t.Errorf("Expected Address to be '%s', got '%s'", expected, addr)
	}
}
