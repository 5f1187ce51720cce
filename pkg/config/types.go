package config

import "time"

// Config is the full runtime configuration of the client.
type Config struct {
	API         APIConfig          `yaml:"api"`
	Credentials Credentials        `yaml:"credentials"`
	Retry       RetryConfig        `yaml:"retry"`
	RateLimit   RateLimitConfig    `yaml:"rate_limit"`
	Paging      PagingConfig       `yaml:"paging"`
	Snapshot    SnapshotConfig     `yaml:"snapshot"`
	Warehouses  WarehousesConfig   `yaml:"warehouses,omitempty"`
	Output      OutputConfig       `yaml:"output"`
	Database    DatabaseConfig     `yaml:"database,omitempty"`
	ObjectStore *ObjectStoreConfig `yaml:"object_store,omitempty"` // Optional upload target
	Log         LogConfig          `yaml:"log"`
}

// APIConfig locates the GraphQL and token endpoints.
type APIConfig struct {
	Endpoint string        `yaml:"endpoint"`
	AuthURL  string        `yaml:"auth_url"`
	Timeout  time.Duration `yaml:"timeout,omitempty"` // Per request, 0 means none
	TokenTTL time.Duration `yaml:"token_ttl,omitempty"`
}

// Credentials for the bearer token and its refresh.
type Credentials struct {
	AccessToken  string `yaml:"access_token,omitempty"`
	RefreshToken string `yaml:"refresh_token"`
	Email        string `yaml:"email"`
}

// RetryConfig bounds the transport retry loop.
type RetryConfig struct {
	MaxRetries int           `yaml:"max_retries"`
	BaseDelay  time.Duration `yaml:"base_delay"` // Delay grows as base_delay * attempt
}

// RateLimitConfig caps outgoing requests.
type RateLimitConfig struct {
	RequestsPerMinute int `yaml:"requests_per_minute"`
}

// PagingConfig controls cursor pagination.
type PagingConfig struct {
	PageSize   int `yaml:"page_size"`
	MaxRecords int `yaml:"max_records"` // Negative means no ceiling
}

// SnapshotConfig controls snapshot job polling and download.
type SnapshotConfig struct {
	PollInterval    time.Duration `yaml:"poll_interval"`
	MaxAttempts     int           `yaml:"max_attempts"`
	DownloadTimeout time.Duration `yaml:"download_timeout"`
}

// WarehousesConfig filters the account warehouse listing.
type WarehousesConfig struct {
	ExcludeIDs []string `yaml:"exclude_ids,omitempty"`
}

// OutputConfig controls CSV exports.
type OutputConfig struct {
	Dir       string `yaml:"dir"`
	Separator string `yaml:"separator"`
}

// DatabaseConfig selects the SQL backend.
type DatabaseConfig struct {
	Driver          DriverType    `yaml:"driver,omitempty"`
	DSN             string        `yaml:"dsn,omitempty"`
	Migrate         bool          `yaml:"migrate,omitempty"`
	MaxOpenConns    int           `yaml:"max_open_conns,omitempty"`
	MaxIdleConns    int           `yaml:"max_idle_conns,omitempty"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime,omitempty"`
}

// DriverType names a supported SQL backend
type DriverType string

const (
	DriverMySQL    DriverType = "mysql"
	DriverPostgres DriverType = "postgres"
	DriverSQLite   DriverType = "sqlite"
)

// ObjectStoreConfig points at an S3 compatible bucket.
type ObjectStoreConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region,omitempty"`
	Prefix    string `yaml:"prefix,omitempty"`
	UseSSL    bool   `yaml:"use_ssl"`
}

// LogConfig controls the slog handler.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // text or json
	File   string `yaml:"file,omitempty"`
}
