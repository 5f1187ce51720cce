package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/saturnines/shiphero-core/pkg/errors"
)

func newTestLoader(env map[string]string) *Loader {
	getenv := func(k string) string { return env[k] }
	return NewLoader(
		&EnvExpander{},
		[]DefaultValueSetter{&EnvFallback{Getenv: getenv}, &Defaults{}},
		&CredentialsValidator{},
		&LimitsValidator{},
		&DatabaseValidator{},
		&ObjectStoreValidator{},
	)
}

func TestLoader_ValidMinimalConfig(t *testing.T) {
	yamlContent := `
credentials:
  refresh_token: refresh-abc
  email: ops@example.com
`
	cfg, err := newTestLoader(nil).Parse([]byte(yamlContent))
	if err != nil {
		t.Fatalf("Failed to parse valid config: %v", err)
	}

	if cfg.API.Endpoint != DefaultEndpoint {
		t.Errorf("Expected default endpoint '%s', got '%s'", DefaultEndpoint, cfg.API.Endpoint)
	}
	if cfg.Retry.MaxRetries != 3 {
		t.Errorf("Expected default max retries 3, got %d", cfg.Retry.MaxRetries)
	}
	if cfg.Retry.BaseDelay != time.Second {
		t.Errorf("Expected default base delay 1s, got %v", cfg.Retry.BaseDelay)
	}
	if cfg.RateLimit.RequestsPerMinute != 100 {
		t.Errorf("Expected 100 requests per minute, got %d", cfg.RateLimit.RequestsPerMinute)
	}
	if cfg.Snapshot.DownloadTimeout != 100*time.Second {
		t.Errorf("Expected download timeout 100s, got %v", cfg.Snapshot.DownloadTimeout)
	}
	if cfg.Output.Dir != "output" || cfg.Output.Separator != "," {
		t.Errorf("Expected output defaults, got %+v", cfg.Output)
	}
}

func TestLoader_DurationsAndOverrides(t *testing.T) {
	yamlContent := `
api:
  endpoint: http://localhost:8080/graphql
  timeout: 30s
credentials:
  refresh_token: r
  email: e@example.com
retry:
  max_retries: 5
  base_delay: 250ms
paging:
  page_size: 50
  max_records: -1
snapshot:
  poll_interval: 5s
  max_attempts: 4
`
	cfg, err := newTestLoader(nil).Parse([]byte(yamlContent))
	if err != nil {
		t.Fatalf("Failed to parse config: %v", err)
	}
	if cfg.API.Timeout != 30*time.Second {
		t.Errorf("Expected timeout 30s, got %v", cfg.API.Timeout)
	}
	if cfg.Retry.MaxRetries != 5 || cfg.Retry.BaseDelay != 250*time.Millisecond {
		t.Errorf("Unexpected retry config %+v", cfg.Retry)
	}
	if cfg.Paging.PageSize != 50 || cfg.Paging.MaxRecords != -1 {
		t.Errorf("Unexpected paging config %+v", cfg.Paging)
	}
	if cfg.Snapshot.PollInterval != 5*time.Second || cfg.Snapshot.MaxAttempts != 4 {
		t.Errorf("Unexpected snapshot config %+v", cfg.Snapshot)
	}
}

func TestLoader_EnvFallback(t *testing.T) {
	env := map[string]string{
		EnvAccessToken:  "access-1",
		EnvRefreshToken: "refresh-1",
		EnvEmail:        "env@example.com",
		EnvDatabaseURL:  "postgres://u:p@localhost/sph",
	}
	cfg, err := newTestLoader(env).Parse(nil)
	if err != nil {
		t.Fatalf("Failed to load from env: %v", err)
	}
	if cfg.Credentials.AccessToken != "access-1" {
		t.Errorf("Expected access token from env, got '%s'", cfg.Credentials.AccessToken)
	}
	if cfg.Credentials.Email != "env@example.com" {
		t.Errorf("Expected email from env, got '%s'", cfg.Credentials.Email)
	}
	if cfg.Database.Driver != DriverPostgres {
		t.Errorf("Expected postgres driver inferred from DSN, got '%s'", cfg.Database.Driver)
	}
}

func TestLoader_FileValuesWinOverEnv(t *testing.T) {
	env := map[string]string{EnvRefreshToken: "from-env", EnvEmail: "env@example.com"}
	cfg, err := newTestLoader(env).Parse([]byte("credentials:\n  refresh_token: from-file\n"))
	if err != nil {
		t.Fatalf("Failed to parse: %v", err)
	}
	if cfg.Credentials.RefreshToken != "from-file" {
		t.Errorf("Expected file value, got '%s'", cfg.Credentials.RefreshToken)
	}
}

func TestLoader_EnvExpansion(t *testing.T) {
	t.Setenv("SPH_TEST_EMAIL", "expanded@example.com")
	yamlContent := `
credentials:
  refresh_token: r
  email: ${SPH_TEST_EMAIL}
`
	cfg, err := newTestLoader(nil).Parse([]byte(yamlContent))
	if err != nil {
		t.Fatalf("Failed to parse: %v", err)
	}
	if cfg.Credentials.Email != "expanded@example.com" {
		t.Errorf("Expected expanded email, got '%s'", cfg.Credentials.Email)
	}
}

func TestLoader_ValidationErrors(t *testing.T) {
	yamlContent := `
retry:
  max_retries: -1
output:
  separator: ";;"
database:
  driver: oracle
  dsn: x
object_store:
  endpoint: ""
`
	_, err := newTestLoader(nil).Parse([]byte(yamlContent))
	if err == nil {
		t.Fatal("Expected validation error")
	}
	if !errors.Is(err, errors.ErrConfiguration) {
		t.Errorf("Expected ErrConfiguration, got %v", err)
	}
	for _, field := range []string{
		"credentials.refresh_token",
		"credentials.email",
		"retry.max_retries",
		"output.separator",
		"database.driver",
		"object_store.endpoint",
		"object_store.bucket",
	} {
		if !strings.Contains(err.Error(), field) {
			t.Errorf("Expected error to mention %s, got '%s'", field, err.Error())
		}
	}
}

func TestLoader_Load(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "shiphero.yaml")
	if err := os.WriteFile(path, []byte("credentials:\n  refresh_token: r\n  email: e@x.io\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := newTestLoader(nil).Load(path); err != nil {
		t.Errorf("Load failed: %v", err)
	}
	if _, err := newTestLoader(nil).Load(filepath.Join(dir, "missing.yaml")); !errors.Is(err, errors.ErrConfiguration) {
		t.Errorf("Expected ErrConfiguration for missing file, got %v", err)
	}
}

func TestInferDriver(t *testing.T) {
	tests := map[string]DriverType{
		"postgresql://localhost/db":      DriverPostgres,
		"file:sph.db?cache=shared":       DriverSQLite,
		"data/sph.sqlite":                DriverSQLite,
		"user:pass@tcp(127.0.0.1:3306)/": DriverMySQL,
	}
	for dsn, want := range tests {
		if got := InferDriver(dsn); got != want {
			t.Errorf("InferDriver(%q): expected %s, got %s", dsn, want, got)
		}
	}
}
