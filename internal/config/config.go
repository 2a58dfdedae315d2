package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Store drivers.
const (
	StoreDriverPostgres = "postgres"
	StoreDriverMongo    = "mongo"
	StoreDriverMemory   = "memory"
)

// Storage drivers.
const (
	StorageDriverMinIO = "minio"
	StorageDriverS3    = "s3"
)

// Config aggregates runtime configuration for the secure upload API.
type Config struct {
	Server   ServerConfig
	Store    StoreConfig
	Postgres PostgresConfig
	Mongo    MongoConfig
	Storage  StorageConfig
	Upload   UploadConfig
	Auth     AuthConfig
	Log      LogConfig
	Metrics  MetricsConfig
}

// ServerConfig parameterizes the HTTP server.
type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// Address returns the listen address in host:port form.
func (s ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// StoreConfig selects the backend for tokens and audit records.
type StoreConfig struct {
	Driver  string
	Timeout time.Duration
}

// PostgresConfig contains PostgreSQL connection details.
type PostgresConfig struct {
	Host        string
	Port        int
	User        string
	Password    string
	Database    string
	SSLMode     string
	AutoMigrate bool
}

// DSN returns the PostgreSQL DSN string.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		p.User, p.Password, p.Host, p.Port, p.Database, p.SSLMode)
}

// MongoConfig carries MongoDB connection details.
type MongoConfig struct {
	URI      string
	Database string
}

// StorageConfig carries object storage connection and bucket information.
type StorageConfig struct {
	Driver          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	Region          string
	UseSSL          bool
	UsePathStyle    bool
	EnsureBucket    bool
	Timeout         time.Duration
}

// UploadConfig groups the token, policy and grant lifecycle settings.
type UploadConfig struct {
	AllowedExtensions   []string
	AllowedContentTypes []string
	TokenValidity       time.Duration
	GrantExpiry         time.Duration
	EnforceExpiry       bool
	SingleUseTokens     bool
	KeyPrefix           string
	RequireReceipt      bool
	DeduplicateAudit    bool
	ReceiptSecret       string
	ReceiptTTL          time.Duration
}

// AuthConfig groups operator authentication settings.
type AuthConfig struct {
	OperatorKeyHash string
}

// LogConfig parameterizes the zap logger.
type LogConfig struct {
	Level  string
	Format string
}

// MetricsConfig groups observability settings.
type MetricsConfig struct {
	PrometheusPath string
}

// Load reads configuration values from environment variables, applying defaults.
func Load() (Config, error) {
	cfg := Config{
		Server: ServerConfig{
			Host:         getString("SECUREUPLOAD_API_HOST", "0.0.0.0"),
			Port:         getInt("SECUREUPLOAD_API_PORT", 8080),
			ReadTimeout:  getDuration("SECUREUPLOAD_API_READ_TIMEOUT", 15*time.Second),
			WriteTimeout: getDuration("SECUREUPLOAD_API_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:  getDuration("SECUREUPLOAD_API_IDLE_TIMEOUT", 60*time.Second),
		},
		Store: StoreConfig{
			Driver:  strings.ToLower(getString("STORE_DRIVER", StoreDriverPostgres)),
			Timeout: getDuration("STORE_TIMEOUT", 5*time.Second),
		},
		Postgres: PostgresConfig{
			Host:        getString("POSTGRES_HOST", "localhost"),
			Port:        getInt("POSTGRES_PORT", 5432),
			User:        getString("POSTGRES_USER", "secureupload_app"),
			Password:    getString("POSTGRES_PASSWORD", "change-me"),
			Database:    getString("POSTGRES_DB", "secureupload"),
			SSLMode:     strings.ToLower(getString("POSTGRES_SSL_MODE", "disable")),
			AutoMigrate: getBool("POSTGRES_AUTO_MIGRATE", true),
		},
		Mongo: MongoConfig{
			URI:      getString("MONGO_URI", "mongodb://localhost:27017"),
			Database: getString("MONGO_DATABASE", "secureupload"),
		},
		Storage: loadStorageConfig(),
		Upload:  loadUploadConfig(),
		Auth: AuthConfig{
			OperatorKeyHash: getString("SECUREUPLOAD_OPERATOR_KEY_HASH", ""),
		},
		Log: LogConfig{
			Level:  strings.ToLower(getString("LOG_LEVEL", "info")),
			Format: strings.ToLower(getString("LOG_FORMAT", "json")),
		},
		Metrics: MetricsConfig{
			PrometheusPath: getString("SECUREUPLOAD_METRICS_PATH", "/metrics"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports structural problems that defaults cannot repair.
func (c Config) Validate() error {
	var errs []error

	switch c.Store.Driver {
	case StoreDriverPostgres, StoreDriverMongo, StoreDriverMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown store driver %q", c.Store.Driver))
	}

	switch c.Storage.Driver {
	case StorageDriverMinIO, StorageDriverS3:
	default:
		errs = append(errs, fmt.Errorf("unknown storage driver %q", c.Storage.Driver))
	}

	if strings.TrimSpace(c.Storage.Bucket) == "" {
		errs = append(errs, errors.New("storage bucket is required"))
	}
	if len(c.Upload.AllowedExtensions) == 0 {
		errs = append(errs, errors.New("at least one allowed extension is required"))
	}
	if len(c.Upload.AllowedContentTypes) == 0 {
		errs = append(errs, errors.New("at least one allowed content type is required"))
	}
	if c.Upload.RequireReceipt {
		switch c.Upload.ReceiptSecret {
		case "":
			errs = append(errs, errors.New("grant receipt secret is required when receipts are mandatory"))
		case defaultReceiptSecret:
			errs = append(errs, errors.New("grant receipt secret must be changed from the default when receipts are mandatory"))
		}
	}

	return errors.Join(errs...)
}

func getString(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	if val, ok := os.LookupEnv(key); ok {
		val = strings.ToLower(strings.TrimSpace(val))
		switch val {
		case "1", "true", "t", "yes", "y":
			return true
		case "0", "false", "f", "no", "n":
			return false
		}
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := time.ParseDuration(val); err == nil && parsed > 0 {
			return parsed
		}
	}
	return fallback
}

// getList splits a comma-separated value, dropping blanks.
func getList(key string, fallback []string) []string {
	val, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// defaultReceiptSecret only serves local runs without receipt enforcement.
const defaultReceiptSecret = "change-me-to-a-32-byte-secret"

func loadStorageConfig() StorageConfig {
	driver := strings.ToLower(getString("STORAGE_DRIVER", StorageDriverMinIO))
	// Empty S3 endpoint means the regional AWS endpoint.
	defaultEndpoint := ""
	if driver == StorageDriverMinIO {
		defaultEndpoint = "localhost:9000"
	}
	endpoint := getString("STORAGE_ENDPOINT", defaultEndpoint)
	return StorageConfig{
		Driver:          driver,
		Endpoint:        endpoint,
		AccessKeyID:     getString("STORAGE_ACCESS_KEY_ID", "secureupload"),
		SecretAccessKey: getString("STORAGE_SECRET_ACCESS_KEY", "change-me-strong-password"),
		Bucket:          getString("STORAGE_BUCKET", "secure-uploads"),
		Region:          getString("STORAGE_REGION", "us-east-1"),
		UseSSL:          getBool("STORAGE_USE_SSL", false),
		UsePathStyle:    getBool("STORAGE_USE_PATH_STYLE", endpoint != ""),
		EnsureBucket:    getBool("STORAGE_ENSURE_BUCKET", true),
		Timeout:         getDuration("STORAGE_TIMEOUT", 5*time.Second),
	}
}

func loadUploadConfig() UploadConfig {
	prefix := strings.Trim(getString("UPLOAD_KEY_PREFIX", "uploads"), "/")
	if prefix == "" {
		prefix = "uploads"
	}

	return UploadConfig{
		AllowedExtensions:   getList("UPLOAD_ALLOWED_EXTENSIONS", []string{"pdf", "png", "jpg", "jpeg", "txt"}),
		AllowedContentTypes: getList("UPLOAD_ALLOWED_CONTENT_TYPES", []string{"application/pdf", "image/png", "image/jpeg", "text/plain"}),
		TokenValidity:       getDuration("TOKEN_VALIDITY_WINDOW", 72*time.Hour),
		GrantExpiry:         getDuration("GRANT_EXPIRY", 5*time.Minute),
		EnforceExpiry:       getBool("TOKEN_ENFORCE_EXPIRY", true),
		SingleUseTokens:     getBool("TOKEN_SINGLE_USE", false),
		KeyPrefix:           prefix,
		RequireReceipt:      getBool("UPLOAD_REQUIRE_RECEIPT", false),
		DeduplicateAudit:    getBool("AUDIT_DEDUPLICATE", false),
		ReceiptSecret:       getString("GRANT_RECEIPT_SECRET", defaultReceiptSecret),
		ReceiptTTL:          getDuration("GRANT_RECEIPT_TTL", 24*time.Hour),
	}
}
