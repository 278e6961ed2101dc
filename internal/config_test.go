package internal

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	pkgconfig "github.com/starford/folio/pkg/config"
)

const validHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := NewDefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
	if cfg.Remote.Selected() != RemoteNone {
		t.Errorf("selected = %q, want none", cfg.Remote.Selected())
	}
	if got := cfg.Data.Path(); got != filepath.Join("data", "portfolio.json") {
		t.Errorf("data path = %q", got)
	}
}

func TestAuthConfig_EmptyModeDefaultsDisabled(t *testing.T) {
	cfg := AuthConfig{}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty mode should default to disabled: %v", err)
	}
	if cfg.Mode != AuthModeDisabled || cfg.AuthEnabled() {
		t.Errorf("mode = %q", cfg.Mode)
	}
}

func TestAuthConfig_PasswordMode(t *testing.T) {
	cfg := AuthConfig{Mode: AuthModePassword, PasswordHash: validHash, JWTSecret: strings.Repeat("k", 32)}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("password mode should pass: %v", err)
	}
	if !cfg.AuthEnabled() {
		t.Error("password mode should be enabled")
	}

	cfg.JWTSecret = "short"
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "jwt_secret") {
		t.Errorf("short secret: %v", err)
	}

	cfg = AuthConfig{Mode: AuthModePassword, JWTSecret: strings.Repeat("k", 32)}
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "password_hash") {
		t.Errorf("missing hash: %v", err)
	}
}

func TestAuthConfig_InvalidMode(t *testing.T) {
	cfg := AuthConfig{Mode: "token"}
	if err := cfg.Validate(); err == nil {
		t.Fatal("invalid mode should fail validation")
	}
}

func TestRemoteSelection(t *testing.T) {
	cases := []struct {
		name string
		cfg  RemoteConfig
		want string
	}{
		{"auto empty", RemoteConfig{Driver: RemoteAuto}, RemoteNone},
		{"auto redis addr", RemoteConfig{Driver: RemoteAuto, Redis: RedisConfig{Addr: "localhost:6379"}}, RemoteRedis},
		{"auto redis url", RemoteConfig{Redis: RedisConfig{URL: "redis://localhost:6379/0"}}, RemoteRedis},
		{"auto postgres", RemoteConfig{Postgres: PostgresConfig{DSN: "postgres://x"}}, RemotePostgres},
		{"auto prefers redis", RemoteConfig{Redis: RedisConfig{Addr: "r:6379"}, Postgres: PostgresConfig{DSN: "postgres://x"}}, RemoteRedis},
		{"explicit none", RemoteConfig{Driver: RemoteNone, Redis: RedisConfig{Addr: "r:6379"}}, RemoteNone},
		{"explicit postgres", RemoteConfig{Driver: RemotePostgres, Redis: RedisConfig{Addr: "r:6379"}, Postgres: PostgresConfig{DSN: "postgres://x"}}, RemotePostgres},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := tc.cfg.Validate(); err != nil {
				t.Fatal(err)
			}
			if got := tc.cfg.Selected(); got != tc.want {
				t.Errorf("Selected() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestRemoteConfig_MissingSettings(t *testing.T) {
	for _, cfg := range []RemoteConfig{
		{Driver: RemoteRedis},
		{Driver: RemotePostgres},
		{Driver: "memcached"},
	} {
		if err := cfg.Validate(); err == nil {
			t.Errorf("%+v should fail validation", cfg)
		}
	}
}

func TestBlobConfig(t *testing.T) {
	cfg := BlobConfig{Driver: BlobS3}
	if err := cfg.Validate(); err == nil {
		t.Error("s3 without settings should fail")
	}
	cfg.S3 = S3Config{Endpoint: "localhost:9000", AccessKey: "a", SecretKey: "s", Bucket: "folio"}
	if err := cfg.Validate(); err != nil {
		t.Errorf("complete s3 config: %v", err)
	}

	local := BlobConfig{}
	if err := local.Validate(); err == nil {
		t.Error("local driver without dir should fail")
	}
}

func TestDataConfig_DocumentMustBePlainName(t *testing.T) {
	cfg := DataConfig{Dir: "./data", Document: "../escape.json"}
	if err := cfg.Validate(); err == nil {
		t.Error("nested document name should fail")
	}
}

func TestFullConfig_AuthValidationCalled(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Auth.Mode = AuthModePassword
	if err := cfg.Validate(); err == nil {
		t.Fatal("full config validate should catch auth error")
	}
}

func TestLoadConfigFromYAML(t *testing.T) {
	t.Setenv("FOLIO_TEST_REDIS", "cache:6379")
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `
app:
  http:
    port: 9090
data:
  dir: /srv/folio
  watch: true
remote:
  timeout: 2s
  redis:
    addr: ${FOLIO_TEST_REDIS}
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := NewDefaultConfig()
	if err := pkgconfig.Load(path, cfg); err != nil {
		t.Fatal(err)
	}
	if cfg.App.HTTP.Port != 9090 || cfg.Data.Dir != "/srv/folio" || !cfg.Data.Watch {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.Data.Document != "portfolio.json" {
		t.Errorf("defaults lost: document = %q", cfg.Data.Document)
	}
	if cfg.Remote.Selected() != RemoteRedis || cfg.Remote.Redis.Addr != "cache:6379" || cfg.Remote.Redis.Key != "portfolio" {
		t.Errorf("remote = %+v", cfg.Remote)
	}
	if cfg.Remote.Timeout.Seconds() != 2 {
		t.Errorf("timeout = %v", cfg.Remote.Timeout)
	}
}

func TestLoadConfigRejectsUnknownKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("vault:\n  path: ./notes\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := pkgconfig.Load(path, NewDefaultConfig()); err == nil {
		t.Error("unknown section should be rejected")
	}
}

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	cfg := NewDefaultConfig()
	if err := pkgconfig.Load(filepath.Join(t.TempDir(), "absent.yaml"), cfg); err != nil {
		t.Fatalf("missing file should fall back to defaults: %v", err)
	}
	if cfg.App.HTTP.Port != 8080 {
		t.Errorf("port = %d", cfg.App.HTTP.Port)
	}
}
