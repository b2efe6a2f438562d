// Package config loads and validates the StreamVault configuration using Viper.
//
// Configuration is layered: built-in defaults < YAML config file < environment
// variables. Environment variables use the SVT_ prefix (e.g., SVT_DATABASE_HOST
// overrides database.host in the YAML). This layering allows the same binary to
// run with a config.yaml in local development and with pure environment variables
// in containerized deployments — no recompilation or different binaries needed.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Streaming StreamingConfig `mapstructure:"streaming"`
	Security  SecurityConfig  `mapstructure:"security"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Audit     AuditConfig     `mapstructure:"audit"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	BaseURL      string        `mapstructure:"base_url"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// DatabaseConfig holds database connection configuration
type DatabaseConfig struct {
	Host               string `mapstructure:"host"`
	Port               int    `mapstructure:"port"`
	Name               string `mapstructure:"name"`
	User               string `mapstructure:"user"`
	Password           string `mapstructure:"password"`
	SSLMode            string `mapstructure:"ssl_mode"`
	MaxConnections     int    `mapstructure:"max_connections"`
	MinIdleConnections int    `mapstructure:"min_idle_connections"`
}

// StorageConfig holds media storage backend configuration
type StorageConfig struct {
	DefaultBackend string             `mapstructure:"default_backend"`
	Azure          AzureStorageConfig `mapstructure:"azure"`
	S3             S3StorageConfig    `mapstructure:"s3"`
	GCS            GCSStorageConfig   `mapstructure:"gcs"`
	Local          LocalStorageConfig `mapstructure:"local"`
}

// AzureStorageConfig holds Azure Blob Storage configuration
type AzureStorageConfig struct {
	AccountName   string `mapstructure:"account_name"`
	AccountKey    string `mapstructure:"account_key"`
	ContainerName string `mapstructure:"container_name"`
	// CDNURL, when set, is returned instead of SAS URLs so media is served
	// through Azure CDN.
	CDNURL string `mapstructure:"cdn_url"`
}

// S3StorageConfig holds S3-compatible storage configuration
type S3StorageConfig struct {
	// Endpoint is the S3-compatible endpoint URL (optional, for MinIO, Cloudflare R2, etc.)
	Endpoint string `mapstructure:"endpoint"`
	// Region is the AWS region
	Region string `mapstructure:"region"`
	// Bucket is the S3 bucket name
	Bucket string `mapstructure:"bucket"`

	// Authentication method: "default", "static", "oidc", "assume_role"
	// - "default": Use AWS default credential chain (env vars, shared config, IAM role, etc.)
	// - "static": Use explicit access key and secret key
	// - "oidc": Use Web Identity/OIDC token (EKS, GitHub Actions, etc.)
	// - "assume_role": Assume an IAM role (optionally with external ID for cross-account)
	AuthMethod string `mapstructure:"auth_method"`

	// Static credentials (when auth_method is "static" or empty for backwards compatibility)
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`

	// AssumeRole / OIDC configuration
	RoleARN              string `mapstructure:"role_arn"`
	RoleSessionName      string `mapstructure:"role_session_name"`
	ExternalID           string `mapstructure:"external_id"`
	WebIdentityTokenFile string `mapstructure:"web_identity_token_file"`
}

// GCSStorageConfig holds Google Cloud Storage configuration
type GCSStorageConfig struct {
	// Bucket is the GCS bucket name
	Bucket string `mapstructure:"bucket"`
	// ProjectID is the Google Cloud project ID (optional if using default credentials)
	ProjectID string `mapstructure:"project_id"`
	// Authentication method: "default", "service_account", "workload_identity"
	AuthMethod string `mapstructure:"auth_method"`
	// CredentialsFile is the path to a service account JSON key file
	CredentialsFile string `mapstructure:"credentials_file"`
	// CredentialsJSON is the service account JSON key as a string
	// (alternative to credentials_file, useful for environment variables)
	CredentialsJSON string `mapstructure:"credentials_json"`
	// Endpoint is an optional custom endpoint (for GCS emulators)
	Endpoint string `mapstructure:"endpoint"`
}

// LocalStorageConfig holds local filesystem storage configuration
type LocalStorageConfig struct {
	BasePath string `mapstructure:"base_path"`
	// SigningSecret keys the HMAC that makes locally served media URLs
	// tamper-proof. Required when the local backend is the default backend
	// outside dev mode.
	SigningSecret string `mapstructure:"signing_secret"`
}

// StreamingConfig bounds the lifetime of issued media URLs and the time budget
// for a single access decision.
type StreamingConfig struct {
	// DefaultURLTTL is used when a caller does not request an expiry.
	DefaultURLTTL time.Duration `mapstructure:"default_url_ttl"`
	// MaxURLTTL caps caller-requested expiries. A leaked signed URL is only
	// usable for at most this long.
	MaxURLTTL time.Duration `mapstructure:"max_url_ttl"`
	// RequestTimeout bounds the repository reads and signer call for one
	// issuance. A timeout surfaces as an infrastructure error, never as a
	// denial.
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// SecurityConfig holds security-related configuration
type SecurityConfig struct {
	CORS         CORSConfig         `mapstructure:"cors"`
	RateLimiting RateLimitingConfig `mapstructure:"rate_limiting"`
	TLS          TLSConfig          `mapstructure:"tls"`
}

// CORSConfig holds CORS configuration
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	AllowedMethods []string `mapstructure:"allowed_methods"`
}

// RateLimitingConfig holds rate limiting configuration.
// When RedisAddr is set, stream issuance is limited per user via Redis so the
// limit holds across replicas; otherwise an in-process token bucket is used.
type RateLimitingConfig struct {
	Enabled           bool   `mapstructure:"enabled"`
	RequestsPerMinute int    `mapstructure:"requests_per_minute"`
	Burst             int    `mapstructure:"burst"`
	RedisAddr         string `mapstructure:"redis_addr"`
	RedisPassword     string `mapstructure:"redis_password"`
	RedisDB           int    `mapstructure:"redis_db"`
	// StreamRequestsPerMinute limits signed-URL issuance per user. Stricter
	// than the general limit because each issuance is an access decision.
	StreamRequestsPerMinute int `mapstructure:"stream_requests_per_minute"`
}

// TLSConfig holds TLS/HTTPS configuration
type TLSConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	CertFile string `mapstructure:"cert_file"`
	KeyFile  string `mapstructure:"key_file"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// TelemetryConfig holds observability configuration
type TelemetryConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	ServiceName string        `mapstructure:"service_name"`
	Metrics     MetricsConfig `mapstructure:"metrics"`
}

// MetricsConfig holds Prometheus metrics configuration
type MetricsConfig struct {
	Enabled        bool `mapstructure:"enabled"`
	PrometheusPort int  `mapstructure:"prometheus_port"`
}

// AuditConfig holds audit logging configuration. Access-decision auditing is a
// required behavior of the platform, so audit defaults to enabled with a file
// shipper; disabling it is an explicit operator decision.
type AuditConfig struct {
	// Enabled determines if audit logging is active
	Enabled bool `mapstructure:"enabled"`
	// Shippers configures external log shipping
	Shippers []AuditShipperConfig `mapstructure:"shippers"`
}

// AuditShipperConfig holds configuration for a single audit shipper
type AuditShipperConfig struct {
	// Enabled determines if this shipper is active
	Enabled bool `mapstructure:"enabled"`
	// Type is the shipper type (webhook, file)
	Type string `mapstructure:"type"`
	// Webhook configuration
	Webhook *AuditWebhookConfig `mapstructure:"webhook"`
	// File configuration
	File *AuditFileConfig `mapstructure:"file"`
}

// AuditWebhookConfig holds webhook shipper configuration
type AuditWebhookConfig struct {
	URL           string            `mapstructure:"url"`
	Headers       map[string]string `mapstructure:"headers"`
	TimeoutSecs   int               `mapstructure:"timeout_secs"`
	BatchSize     int               `mapstructure:"batch_size"`
	FlushInterval int               `mapstructure:"flush_interval_secs"`
}

// AuditFileConfig holds file shipper configuration
type AuditFileConfig struct {
	Path       string `mapstructure:"path"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
}

// bindEnvVars explicitly binds environment variables to config keys.
// This is necessary because AutomaticEnv() doesn't work well with nested structs during Unmarshal.
// viper.BindEnv only errors when called with zero keys; since every key here is a non-empty
// hardcoded string, any error indicates a programming bug and is surfaced to the caller.
func bindEnvVars(v *viper.Viper) error {
	keys := []string{
		// Database
		"database.host",
		"database.port",
		"database.name",
		"database.user",
		"database.password",
		"database.ssl_mode",
		"database.max_connections",
		"database.min_idle_connections",

		// Server
		"server.host",
		"server.port",
		"server.base_url",
		"server.read_timeout",
		"server.write_timeout",

		// Storage
		"storage.default_backend",
		"storage.azure.account_name",
		"storage.azure.account_key",
		"storage.azure.container_name",
		"storage.azure.cdn_url",
		"storage.s3.endpoint",
		"storage.s3.region",
		"storage.s3.bucket",
		"storage.s3.auth_method",
		"storage.s3.access_key_id",
		"storage.s3.secret_access_key",
		"storage.s3.role_arn",
		"storage.s3.role_session_name",
		"storage.s3.external_id",
		"storage.s3.web_identity_token_file",
		"storage.gcs.bucket",
		"storage.gcs.project_id",
		"storage.gcs.auth_method",
		"storage.gcs.credentials_file",
		"storage.gcs.credentials_json",
		"storage.gcs.endpoint",
		"storage.local.base_path",
		"storage.local.signing_secret",

		// Streaming
		"streaming.default_url_ttl",
		"streaming.max_url_ttl",
		"streaming.request_timeout",

		// Security
		"security.cors.allowed_origins",
		"security.cors.allowed_methods",
		"security.rate_limiting.enabled",
		"security.rate_limiting.requests_per_minute",
		"security.rate_limiting.burst",
		"security.rate_limiting.redis_addr",
		"security.rate_limiting.redis_password",
		"security.rate_limiting.redis_db",
		"security.rate_limiting.stream_requests_per_minute",
		"security.tls.enabled",
		"security.tls.cert_file",
		"security.tls.key_file",

		// Logging
		"logging.level",
		"logging.format",
		"logging.output",

		// Telemetry
		"telemetry.enabled",
		"telemetry.service_name",
		"telemetry.metrics.enabled",
		"telemetry.metrics.prometheus_port",

		// Audit
		"audit.enabled",
	}
	for _, key := range keys {
		if err := v.BindEnv(key); err != nil {
			return fmt.Errorf("failed to bind env var %q: %w", key, err)
		}
	}
	return nil
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set default values
	setDefaults(v)

	// Set config file path if provided
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// Look for config.yaml in common locations
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/streamvault")
	}

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found; use defaults and environment variables
	}

	// Enable environment variable support
	v.SetEnvPrefix("SVT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Explicitly bind environment variables for nested structures
	// This is necessary because AutomaticEnv() doesn't work well with Unmarshal()
	if err := bindEnvVars(v); err != nil {
		return nil, err
	}

	// Unmarshal configuration
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	// Expand environment variables in sensitive fields
	cfg.Database.Password = expandEnv(cfg.Database.Password)
	cfg.Storage.Azure.AccountKey = expandEnv(cfg.Storage.Azure.AccountKey)
	cfg.Storage.S3.AccessKeyID = expandEnv(cfg.Storage.S3.AccessKeyID)
	cfg.Storage.S3.SecretAccessKey = expandEnv(cfg.Storage.S3.SecretAccessKey)
	cfg.Storage.Local.SigningSecret = expandEnv(cfg.Storage.Local.SigningSecret)
	cfg.Security.RateLimiting.RedisPassword = expandEnv(cfg.Security.RateLimiting.RedisPassword)

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.base_url", "http://localhost:8080")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")

	// Database defaults
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "streamvault")
	v.SetDefault("database.user", "streamvault")
	v.SetDefault("database.ssl_mode", "require")
	v.SetDefault("database.max_connections", 25)
	v.SetDefault("database.min_idle_connections", 5)

	// Storage defaults
	v.SetDefault("storage.default_backend", "local")
	v.SetDefault("storage.local.base_path", "./media")

	// Streaming defaults: 1h URLs, capped at 2h, 10s per decision
	v.SetDefault("streaming.default_url_ttl", "1h")
	v.SetDefault("streaming.max_url_ttl", "2h")
	v.SetDefault("streaming.request_timeout", "10s")

	// Security defaults
	v.SetDefault("security.cors.allowed_origins", []string{"*"})
	v.SetDefault("security.cors.allowed_methods", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"})
	v.SetDefault("security.rate_limiting.enabled", true)
	v.SetDefault("security.rate_limiting.requests_per_minute", 200)
	v.SetDefault("security.rate_limiting.burst", 50)
	v.SetDefault("security.rate_limiting.stream_requests_per_minute", 60)
	v.SetDefault("security.tls.enabled", false)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")

	// Telemetry defaults
	v.SetDefault("telemetry.enabled", true)
	v.SetDefault("telemetry.service_name", "streamvault")
	v.SetDefault("telemetry.metrics.enabled", true)
	v.SetDefault("telemetry.metrics.prometheus_port", 9090)

	// Audit defaults: enabled, file shipper configured at deploy time
	v.SetDefault("audit.enabled", true)
}

// expandEnv expands environment variables in the format ${VAR_NAME}
func expandEnv(s string) string {
	return os.ExpandEnv(s)
}

// Validate validates the configuration
func (c *Config) Validate() error {
	// Validate server
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Server.BaseURL == "" {
		return fmt.Errorf("server.base_url is required")
	}

	// Validate database
	if c.Database.Host == "" {
		return fmt.Errorf("database.host is required")
	}
	if c.Database.Name == "" {
		return fmt.Errorf("database.name is required")
	}
	if c.Database.User == "" {
		return fmt.Errorf("database.user is required")
	}

	// Validate storage backend
	validBackends := map[string]bool{"azure": true, "s3": true, "gcs": true, "local": true}
	if !validBackends[c.Storage.DefaultBackend] {
		return fmt.Errorf("invalid storage backend: %s (must be azure, s3, gcs, or local)", c.Storage.DefaultBackend)
	}

	// Validate Azure storage if enabled
	if c.Storage.DefaultBackend == "azure" {
		if c.Storage.Azure.AccountName == "" {
			return fmt.Errorf("storage.azure.account_name is required when using Azure backend")
		}
		if c.Storage.Azure.AccountKey == "" {
			return fmt.Errorf("storage.azure.account_key is required when using Azure backend")
		}
		if c.Storage.Azure.ContainerName == "" {
			return fmt.Errorf("storage.azure.container_name is required when using Azure backend")
		}
	}

	// Validate S3 storage if enabled
	if c.Storage.DefaultBackend == "s3" {
		if c.Storage.S3.Bucket == "" {
			return fmt.Errorf("storage.s3.bucket is required when using S3 backend")
		}
		if c.Storage.S3.Region == "" {
			return fmt.Errorf("storage.s3.region is required when using S3 backend")
		}
	}

	// Validate GCS storage if enabled
	if c.Storage.DefaultBackend == "gcs" {
		if c.Storage.GCS.Bucket == "" {
			return fmt.Errorf("storage.gcs.bucket is required when using GCS backend")
		}
	}

	// Validate local storage if enabled
	if c.Storage.DefaultBackend == "local" {
		if c.Storage.Local.BasePath == "" {
			return fmt.Errorf("storage.local.base_path is required when using local backend")
		}
	}

	// Validate streaming bounds
	if c.Streaming.DefaultURLTTL <= 0 {
		return fmt.Errorf("streaming.default_url_ttl must be positive")
	}
	if c.Streaming.MaxURLTTL < c.Streaming.DefaultURLTTL {
		return fmt.Errorf("streaming.max_url_ttl (%s) must be >= streaming.default_url_ttl (%s)",
			c.Streaming.MaxURLTTL, c.Streaming.DefaultURLTTL)
	}
	if c.Streaming.RequestTimeout <= 0 {
		return fmt.Errorf("streaming.request_timeout must be positive")
	}

	// Validate TLS if enabled
	if c.Security.TLS.Enabled {
		if c.Security.TLS.CertFile == "" {
			return fmt.Errorf("security.tls.cert_file is required when TLS is enabled")
		}
		if c.Security.TLS.KeyFile == "" {
			return fmt.Errorf("security.tls.key_file is required when TLS is enabled")
		}
	}

	// Validate logging level
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid logging level: %s (must be debug, info, warn, or error)", c.Logging.Level)
	}

	return nil
}

// GetDSN returns the PostgreSQL connection string
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

// GetAddress returns the server address in host:port format
func (c *ServerConfig) GetAddress() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
