package internal

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Remote drivers.
const (
	RemoteNone     = "none"
	RemoteAuto     = "auto"
	RemoteRedis    = "redis"
	RemotePostgres = "postgres"
)

// Blob drivers.
const (
	BlobLocal = "local"
	BlobS3    = "s3"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModePassword = "password"
)

// Config represents the application configuration.
type Config struct {
	App    ApplicationConfig `yaml:"app"`
	Data   DataConfig        `yaml:"data"`
	Remote RemoteConfig      `yaml:"remote"`
	Blob   BlobConfig        `yaml:"blob"`
	Auth   AuthConfig        `yaml:"auth"`
	Index  IndexConfig       `yaml:"index"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return fmt.Errorf("app: %w", err)
	}
	if err := c.Data.Validate(); err != nil {
		return fmt.Errorf("data: %w", err)
	}
	if err := c.Remote.Validate(); err != nil {
		return fmt.Errorf("remote: %w", err)
	}
	if err := c.Blob.Validate(); err != nil {
		return fmt.Errorf("blob: %w", err)
	}
	if err := c.Auth.Validate(); err != nil {
		return fmt.Errorf("auth: %w", err)
	}
	return c.Index.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// DataConfig locates the local catalog document.
type DataConfig struct {
	Dir      string `yaml:"dir"`
	Document string `yaml:"document"`
	// Watch publishes change events when the document is edited outside the process.
	Watch bool `yaml:"watch"`
}

// Validate validates the data configuration.
func (c *DataConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Dir, validation.Required),
		validation.Field(&c.Document, validation.Required, validation.By(plainName)),
	)
}

// Path returns the absolute-or-relative path of the local document.
func (c *DataConfig) Path() string {
	return filepath.Join(c.Dir, c.Document)
}

// RemoteConfig selects and configures the remote document backend.
//
// Driver is one of:
//   - "none": local file only.
//   - "auto" (default): redis when an address or URL is set, else postgres
//     when a DSN is set, else none.
//   - "redis" or "postgres": that backend; its settings are required.
type RemoteConfig struct {
	Driver   string         `yaml:"driver"`
	Timeout  time.Duration  `yaml:"timeout"`
	Redis    RedisConfig    `yaml:"redis"`
	Postgres PostgresConfig `yaml:"postgres"`
}

// RedisConfig configures the Redis backend.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	URL      string `yaml:"url"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Key      string `yaml:"key"`
}

// PostgresConfig configures the Postgres backend.
type PostgresConfig struct {
	DSN string `yaml:"dsn"`
	Key string `yaml:"key"`
}

// Validate validates the remote configuration.
func (c *RemoteConfig) Validate() error {
	if c.Driver == "" {
		c.Driver = RemoteAuto
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Driver, validation.In(RemoteNone, RemoteAuto, RemoteRedis, RemotePostgres)),
		validation.Field(&c.Timeout, validation.Min(time.Duration(0))),
	); err != nil {
		return err
	}
	switch c.Driver {
	case RemoteRedis:
		if c.Redis.Addr == "" && c.Redis.URL == "" {
			return errors.New("driver is redis but neither redis.addr nor redis.url is set")
		}
	case RemotePostgres:
		if c.Postgres.DSN == "" {
			return errors.New("driver is postgres but postgres.dsn is empty")
		}
	}
	return validation.ValidateStruct(&c.Redis,
		validation.Field(&c.Redis.DB, validation.Min(0)),
	)
}

// Selected resolves the driver in use, applying the auto rules.
func (c *RemoteConfig) Selected() string {
	switch c.Driver {
	case RemoteRedis, RemotePostgres, RemoteNone:
		return c.Driver
	}
	if c.Redis.Addr != "" || c.Redis.URL != "" {
		return RemoteRedis
	}
	if c.Postgres.DSN != "" {
		return RemotePostgres
	}
	return RemoteNone
}

// BlobConfig selects where uploaded images are stored.
type BlobConfig struct {
	Driver   string   `yaml:"driver"`
	LocalDir string   `yaml:"local_dir"`
	S3       S3Config `yaml:"s3"`
}

// S3Config configures an S3-compatible object store (MinIO, AWS, R2).
type S3Config struct {
	Endpoint      string `yaml:"endpoint"`
	AccessKey     string `yaml:"access_key"`
	SecretKey     string `yaml:"secret_key"`
	Bucket        string `yaml:"bucket"`
	Region        string `yaml:"region"`
	UseSSL        bool   `yaml:"use_ssl"`
	PublicBaseURL string `yaml:"public_base_url"`
}

// Validate validates the blob configuration.
func (c *BlobConfig) Validate() error {
	if c.Driver == "" {
		c.Driver = BlobLocal
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Driver, validation.In(BlobLocal, BlobS3)),
		validation.Field(&c.LocalDir, validation.When(c.Driver == BlobLocal, validation.Required)),
	); err != nil {
		return err
	}
	if c.Driver != BlobS3 {
		return nil
	}
	return validation.ValidateStruct(&c.S3,
		validation.Field(&c.S3.Endpoint, validation.Required),
		validation.Field(&c.S3.AccessKey, validation.Required),
		validation.Field(&c.S3.SecretKey, validation.Required),
		validation.Field(&c.S3.Bucket, validation.Required),
	)
}

// AuthConfig holds admin authentication configuration.
//
// Mode controls how admin requests are authorized:
//   - "disabled" (default): no authentication required, suitable for local dev.
//   - "password": POST /api/auth checks PasswordHash (bcrypt) and issues a
//     session signed with JWTSecret.
type AuthConfig struct {
	Mode         string        `yaml:"mode"`
	PasswordHash string        `yaml:"password_hash"`
	JWTSecret    string        `yaml:"jwt_secret"`
	SessionTTL   time.Duration `yaml:"session_ttl"`
	SecureCookie bool          `yaml:"secure_cookie"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModePassword)),
		validation.Field(&c.SessionTTL, validation.Min(time.Duration(0))),
	); err != nil {
		return err
	}
	if c.Mode != AuthModePassword {
		return nil
	}
	if c.PasswordHash == "" {
		return fmt.Errorf("mode is %q but password_hash is empty", AuthModePassword)
	}
	if len(c.JWTSecret) < 32 {
		return fmt.Errorf("mode is %q but jwt_secret is shorter than 32 bytes", AuthModePassword)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModePassword
}

// IndexConfig holds the SQLite search index configuration.
type IndexConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the index configuration.
func (c *IndexConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

func plainName(value any) error {
	s, _ := value.(string)
	if s != filepath.Base(s) || s == "." || s == ".." {
		return errors.New("must be a plain file name")
	}
	return nil
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Data: DataConfig{
			Dir:      "./data",
			Document: "portfolio.json",
		},
		Remote: RemoteConfig{
			Driver:   RemoteAuto,
			Timeout:  5 * time.Second,
			Redis:    RedisConfig{Key: "portfolio"},
			Postgres: PostgresConfig{Key: "portfolio"},
		},
		Blob: BlobConfig{
			Driver:   BlobLocal,
			LocalDir: "./data/uploads",
		},
		Auth: AuthConfig{
			Mode:       AuthModeDisabled,
			SessionTTL: 24 * time.Hour,
		},
		Index: IndexConfig{
			Path: "./data/folio.db",
		},
	}
}
