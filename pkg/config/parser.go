package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/saturnines/shiphero-core/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Default values used when the file and environment leave a field empty.
const (
	DefaultEndpoint          = "https://public-api.shiphero.com/graphql"
	DefaultAuthURL           = "https://public-api.shiphero.com/auth/refresh"
	DefaultTokenTTL          = time.Hour
	DefaultMaxRetries        = 3
	DefaultBaseDelay         = time.Second
	DefaultRequestsPerMinute = 100
	DefaultPageSize          = 100
	DefaultMaxRecords        = 1000
	DefaultPollInterval      = 2 * time.Second
	DefaultPollAttempts      = 30
	DefaultDownloadTimeout   = 100 * time.Second
	DefaultOutputDir         = "output"
	DefaultSeparator         = ","
)

// Environment variables read by EnvFallback.
const (
	EnvAccessToken  = "SHIPHERO_ACCESS_TOKEN"
	EnvRefreshToken = "SHIPHERO_REFRESH_TOKEN"
	EnvEmail        = "SHIPHERO_EMAIL"
	EnvDatabaseURL  = "DATABASE_URL"
)

type ValidationError struct {
	Field   string
	Message string
}

// Returns the string representation of validation error
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors collects every problem found in one pass.
type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	msgs := make([]string, len(v))
	for i, e := range v {
		msgs[i] = e.Error()
	}
	return strings.Join(msgs, "; ")
}

// Validator checks one concern of a Config.
type Validator interface {
	Validate(cfg *Config) []ValidationError
}

// DefaultValueSetter fills unset fields.
type DefaultValueSetter interface {
	SetDefaults(cfg *Config)
}

// VariableExpander defines the interface for expanding variables
type VariableExpander interface {
	Expand(data []byte) []byte
}

// EnvExpander implements VariableExpander using environment variables
type EnvExpander struct{}

// Expand expands environment variables with the given data
func (e *EnvExpander) Expand(data []byte) []byte {
	return []byte(os.Expand(string(data), os.Getenv))
}

// Loader reads a Config through expand, decode, defaults and validation.
type Loader struct {
	expander       VariableExpander
	defaultSetters []DefaultValueSetter
	validators     []Validator
}

// NewLoader creates a Loader. Setters run in order before validation.
func NewLoader(expander VariableExpander, setters []DefaultValueSetter, validators ...Validator) *Loader {
	return &Loader{
		expander:       expander,
		defaultSetters: setters,
		validators:     validators,
	}
}

// NewDefaultLoader wires the env expander, env fallbacks, defaults and
// every validator.
func NewDefaultLoader() *Loader {
	return NewLoader(
		&EnvExpander{},
		[]DefaultValueSetter{&EnvFallback{Getenv: os.Getenv}, &Defaults{}},
		&CredentialsValidator{},
		&LimitsValidator{},
		&DatabaseValidator{},
		&ObjectStoreValidator{},
	)
}

// Load reads a YAML file. An empty path loads from defaults and environment only.
func (l *Loader) Load(path string) (*Config, error) {
	if path == "" {
		return l.Parse(nil)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WrapError(err, errors.ErrConfiguration, "read config file")
	}
	return l.Parse(data)
}

// Parse parses a yaml config
func (l *Loader) Parse(data []byte) (*Config, error) {
	if l.expander != nil {
		data = l.expander.Expand(data)
	}

	var cfg Config
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, errors.WrapError(err, errors.ErrConfiguration, "parse YAML")
		}
	}

	for _, s := range l.defaultSetters {
		s.SetDefaults(&cfg)
	}

	var all ValidationErrors
	for _, v := range l.validators {
		all = append(all, v.Validate(&cfg)...)
	}
	if len(all) > 0 {
		return nil, errors.WrapError(all, errors.ErrConfiguration, "validate config")
	}

	return &cfg, nil
}

// EnvFallback fills credentials and the database DSN from the environment
// when the file leaves them empty.
type EnvFallback struct {
	Getenv func(string) string
}

// SetDefaults implements DefaultValueSetter
func (e *EnvFallback) SetDefaults(cfg *Config) {
	getenv := e.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}
	fill := func(dst *string, key string) {
		if *dst == "" {
			*dst = getenv(key)
		}
	}
	fill(&cfg.Credentials.AccessToken, EnvAccessToken)
	fill(&cfg.Credentials.RefreshToken, EnvRefreshToken)
	fill(&cfg.Credentials.Email, EnvEmail)
	fill(&cfg.Database.DSN, EnvDatabaseURL)

	if cfg.Database.Driver == "" && cfg.Database.DSN != "" {
		cfg.Database.Driver = InferDriver(cfg.Database.DSN)
	}
}

// InferDriver guesses the backend from a DSN.
func InferDriver(dsn string) DriverType {
	lower := strings.ToLower(dsn)
	switch {
	case strings.HasPrefix(lower, "postgres://"), strings.HasPrefix(lower, "postgresql://"):
		return DriverPostgres
	case strings.HasPrefix(lower, "file:"), strings.HasPrefix(lower, "sqlite:"),
		strings.HasSuffix(lower, ".db"), strings.HasSuffix(lower, ".sqlite"), lower == ":memory:":
		return DriverSQLite
	default:
		return DriverMySQL
	}
}

// Defaults implements DefaultValueSetter for Config
type Defaults struct{}

// SetDefaults sets default values for Config
func (d *Defaults) SetDefaults(cfg *Config) {
	if cfg.API.Endpoint == "" {
		cfg.API.Endpoint = DefaultEndpoint
	}
	if cfg.API.AuthURL == "" {
		cfg.API.AuthURL = DefaultAuthURL
	}
	if cfg.API.TokenTTL == 0 {
		cfg.API.TokenTTL = DefaultTokenTTL
	}
	if cfg.Retry.MaxRetries == 0 {
		cfg.Retry.MaxRetries = DefaultMaxRetries
	}
	if cfg.Retry.BaseDelay == 0 {
		cfg.Retry.BaseDelay = DefaultBaseDelay
	}
	if cfg.RateLimit.RequestsPerMinute == 0 {
		cfg.RateLimit.RequestsPerMinute = DefaultRequestsPerMinute
	}
	if cfg.Paging.PageSize == 0 {
		cfg.Paging.PageSize = DefaultPageSize
	}
	if cfg.Paging.MaxRecords == 0 {
		cfg.Paging.MaxRecords = DefaultMaxRecords
	}
	if cfg.Snapshot.PollInterval == 0 {
		cfg.Snapshot.PollInterval = DefaultPollInterval
	}
	if cfg.Snapshot.MaxAttempts == 0 {
		cfg.Snapshot.MaxAttempts = DefaultPollAttempts
	}
	if cfg.Snapshot.DownloadTimeout == 0 {
		cfg.Snapshot.DownloadTimeout = DefaultDownloadTimeout
	}
	if cfg.Output.Dir == "" {
		cfg.Output.Dir = DefaultOutputDir
	}
	if cfg.Output.Separator == "" {
		cfg.Output.Separator = DefaultSeparator
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}

// CredentialsValidator requires what a token refresh needs.
type CredentialsValidator struct{}

// Validate checks that the refresh credentials are present
func (v *CredentialsValidator) Validate(cfg *Config) []ValidationError {
	var errs []ValidationError
	if cfg.Credentials.RefreshToken == "" {
		errs = append(errs, ValidationError{Field: "credentials.refresh_token", Message: "is required (or set " + EnvRefreshToken + ")"})
	}
	if cfg.Credentials.Email == "" {
		errs = append(errs, ValidationError{Field: "credentials.email", Message: "is required (or set " + EnvEmail + ")"})
	}
	if cfg.API.Endpoint == "" {
		errs = append(errs, ValidationError{Field: "api.endpoint", Message: "is required"})
	}
	if cfg.API.AuthURL == "" {
		errs = append(errs, ValidationError{Field: "api.auth_url", Message: "is required"})
	}
	return errs
}

// LimitsValidator checks the numeric knobs.
type LimitsValidator struct{}

// Validate implements Validator
func (v *LimitsValidator) Validate(cfg *Config) []ValidationError {
	var errs []ValidationError
	if cfg.Retry.MaxRetries < 1 {
		errs = append(errs, ValidationError{Field: "retry.max_retries", Message: "must be at least 1"})
	}
	if cfg.Retry.BaseDelay < 0 {
		errs = append(errs, ValidationError{Field: "retry.base_delay", Message: "must not be negative"})
	}
	if cfg.RateLimit.RequestsPerMinute < 1 {
		errs = append(errs, ValidationError{Field: "rate_limit.requests_per_minute", Message: "must be positive"})
	}
	if cfg.Paging.PageSize < 1 {
		errs = append(errs, ValidationError{Field: "paging.page_size", Message: "must be positive"})
	}
	if cfg.Snapshot.PollInterval < 0 {
		errs = append(errs, ValidationError{Field: "snapshot.poll_interval", Message: "must not be negative"})
	}
	if cfg.Snapshot.MaxAttempts < 1 {
		errs = append(errs, ValidationError{Field: "snapshot.max_attempts", Message: "must be at least 1"})
	}
	if len([]rune(cfg.Output.Separator)) != 1 {
		errs = append(errs, ValidationError{Field: "output.separator", Message: "must be a single character"})
	}
	switch strings.ToLower(cfg.Log.Format) {
	case "text", "json":
	default:
		errs = append(errs, ValidationError{Field: "log.format", Message: fmt.Sprintf("unknown format: %s", cfg.Log.Format)})
	}
	return errs
}

// DatabaseValidator checks the optional database section.
type DatabaseValidator struct{}

// Validate implements Validator
func (v *DatabaseValidator) Validate(cfg *Config) []ValidationError {
	db := cfg.Database
	if db.Driver == "" && db.DSN == "" {
		return nil
	}

	var errs []ValidationError
	switch db.Driver {
	case DriverMySQL, DriverPostgres, DriverSQLite:
	default:
		errs = append(errs, ValidationError{Field: "database.driver", Message: fmt.Sprintf("unknown driver: %s", db.Driver)})
	}
	if db.DSN == "" {
		errs = append(errs, ValidationError{Field: "database.dsn", Message: "is required (or set " + EnvDatabaseURL + ")"})
	}
	return errs
}

// ObjectStoreValidator checks the optional upload target.
type ObjectStoreValidator struct{}

// Validate implements Validator
func (v *ObjectStoreValidator) Validate(cfg *Config) []ValidationError {
	store := cfg.ObjectStore
	if store == nil {
		return nil
	}
	var errs []ValidationError
	if store.Endpoint == "" {
		errs = append(errs, ValidationError{Field: "object_store.endpoint", Message: "is required"})
	}
	if store.Bucket == "" {
		errs = append(errs, ValidationError{Field: "object_store.bucket", Message: "is required"})
	}
	return errs
}
