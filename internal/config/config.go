package config

import (
	"context"
	"fmt"

	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Server   ServerConfig   `env:",prefix=SERVER_"`
	Store    StoreConfig    `env:",prefix=STORE_"`
	Mongo    MongoConfig    `env:",prefix=MONGO_"`
	Postgres PostgresConfig `env:",prefix=POSTGRES_"`
	Redis    RedisConfig    `env:",prefix=REDIS_"`
	Storage  StorageConfig  `env:",prefix=STORAGE_"`
	Minio    MinioConfig    `env:",prefix=MINIO_"`
	S3       S3Config       `env:",prefix=S3_"`
	JWT      JWTConfig      `env:",prefix="`
	Security SecurityConfig `env:",prefix="`
	Cookie   CookieConfig   `env:",prefix=COOKIE_"`
	Cache    CacheConfig    `env:",prefix=CACHE_"`
	CORS     CORSConfig     `env:",prefix=CORS_"`
	Env      string         `env:"ENV,default=development"`
	// LogLevel overrides the level implied by Env
	LogLevel string         `env:"LOG_LEVEL"`
}

type ServerConfig struct {
	Port            string   `env:"PORT,default=8000"`
	Host            string   `env:"HOST,default=0.0.0.0"`
	ReadTimeout     Duration `env:"READ_TIMEOUT,default=15s"`
	WriteTimeout    Duration `env:"WRITE_TIMEOUT,default=30s"`
	ShutdownTimeout Duration `env:"SHUTDOWN_TIMEOUT,default=10s"`
	MaxUploadBytes  int64    `env:"MAX_UPLOAD_BYTES,default=10485760"`
}

type StoreConfig struct {
	// Driver is one of mongo, postgres, memory
	Driver string `env:"DRIVER,default=mongo"`
}

type MongoConfig struct {
	URI      string   `env:"URI,default=mongodb://localhost:27017"`
	Database string   `env:"DB,default=account_service"`
	Timeout  Duration `env:"TIMEOUT,default=10s"`
}

type PostgresConfig struct {
	Host     string `env:"HOST,default=localhost"`
	Port     string `env:"PORT,default=5432"`
	User     string `env:"USER,default=account_service"`
	Password string `env:"PASSWORD,default=account_service_password"`
	DBName   string `env:"DB,default=account_service_db"`
	SSLMode  string `env:"SSLMODE,default=disable"`
}

type RedisConfig struct {
	Enabled  bool   `env:"ENABLED,default=true"`
	Host     string `env:"HOST,default=localhost"`
	Port     string `env:"PORT,default=6379"`
	Password string `env:"PASSWORD,default="`
	DB       int    `env:"DB,default=0"`
}

type StorageConfig struct {
	// Driver is one of minio, s3
	Driver    string `env:"DRIVER,default=minio"`
	Bucket    string `env:"BUCKET,default=media"`
	PublicURL string `env:"PUBLIC_URL,default=http://localhost:9000"`
	KeyPrefix string `env:"KEY_PREFIX,default=users/"`
	TempDir   string `env:"TEMP_DIR,default=./public/temp"`
}

type MinioConfig struct {
	Endpoint  string `env:"ENDPOINT,default=localhost:9000"`
	AccessKey string `env:"ACCESS_KEY,default=minioadmin"`
	SecretKey string `env:"SECRET_KEY,default=minioadmin"`
	UseSSL    bool   `env:"USE_SSL,default=false"`
}

type S3Config struct {
	Region          string `env:"REGION,default=us-east-1"`
	Endpoint        string `env:"ENDPOINT"`
	AccessKeyID     string `env:"ACCESS_KEY_ID"`
	SecretAccessKey string `env:"SECRET_ACCESS_KEY"`
}

type JWTConfig struct {
	AccessTokenSecret  string   `env:"ACCESS_TOKEN_SECRET,required"`
	AccessTokenExpiry  Duration `env:"ACCESS_TOKEN_EXPIRY,default=1d"`
	RefreshTokenSecret string   `env:"REFRESH_TOKEN_SECRET,required"`
	RefreshTokenExpiry Duration `env:"REFRESH_TOKEN_EXPIRY,default=10d"`
}

type SecurityConfig struct {
	BCryptCost                     int  `env:"BCRYPT_COST,default=10"`
	RevokeSessionsOnPasswordChange bool `env:"SECURITY_REVOKE_SESSIONS_ON_PASSWORD_CHANGE,default=true"`
}

type CookieConfig struct {
	Secure bool   `env:"SECURE,default=true"`
	Domain string `env:"DOMAIN"`
}

type CacheConfig struct {
	ProfileTTL Duration `env:"PROFILE_TTL,default=5m"`
}

type CORSConfig struct {
	AllowedOrigins []string `env:"ALLOWED_ORIGINS,default=http://localhost:3000"`
	AllowedMethods []string `env:"ALLOWED_METHODS,default=GET,POST,PATCH,OPTIONS"`
	AllowedHeaders []string `env:"ALLOWED_HEADERS,default=Content-Type,Authorization"`
}

const minSecretLength = 32

// DSN returns PostgreSQL connection string
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.DBName, p.SSLMode)
}

// Address returns Redis connection address
func (r RedisConfig) Address() string {
	return fmt.Sprintf("%s:%s", r.Host, r.Port)
}

// Load loads configuration from environment variables
func Load(ctx context.Context) (*Config, error) {
	return LoadFrom(ctx, envconfig.OsLookuper())
}

// LoadFrom loads configuration from the given lookuper and validates it
func LoadFrom(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	var config Config

	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &config,
		Lookuper: lookuper,
	}); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := config.validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func (c *Config) validate() error {
	if len(c.JWT.AccessTokenSecret) < minSecretLength {
		return fmt.Errorf("ACCESS_TOKEN_SECRET must be at least %d characters long", minSecretLength)
	}
	if len(c.JWT.RefreshTokenSecret) < minSecretLength {
		return fmt.Errorf("REFRESH_TOKEN_SECRET must be at least %d characters long", minSecretLength)
	}
	if c.JWT.AccessTokenSecret == c.JWT.RefreshTokenSecret {
		return fmt.Errorf("ACCESS_TOKEN_SECRET and REFRESH_TOKEN_SECRET must differ")
	}
	if c.JWT.AccessTokenExpiry.Duration <= 0 || c.JWT.RefreshTokenExpiry.Duration <= 0 {
		return fmt.Errorf("token expiries must be positive")
	}

	switch c.Store.Driver {
	case "mongo", "postgres", "memory":
	default:
		return fmt.Errorf("STORE_DRIVER must be one of mongo, postgres, memory, got %q", c.Store.Driver)
	}

	switch c.Storage.Driver {
	case "minio", "s3":
	default:
		return fmt.Errorf("STORAGE_DRIVER must be one of minio, s3, got %q", c.Storage.Driver)
	}

	if c.Security.BCryptCost < 4 || c.Security.BCryptCost > 31 {
		return fmt.Errorf("BCRYPT_COST must be between 4 and 31, got %d", c.Security.BCryptCost)
	}

	return nil
}

// LoadWithDefaults loads configuration with default context
func LoadWithDefaults() (*Config, error) {
	return Load(context.Background())
}
