package app

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/saturnines/shiphero-core/pkg/config"
	"github.com/saturnines/shiphero-core/pkg/errors"
	"github.com/saturnines/shiphero-core/pkg/store"
)

const changesPage = `{"data": {"inventory_changes": {"request_id": "r1", "data": {
	"pageInfo": {"hasNextPage": false, "endCursor": "c1"},
	"edges": [
		{"node": {"sku": "A1", "warehouse_id": "W1", "previous_on_hand": 10, "change_in_on_hand": 5, "reason": "restock"}},
		{"node": {"sku": "B2", "warehouse_id": "W1", "change_in_on_hand": -2, "reason": "sale"}}
	]
}}}}`

// newAPI serves the inventory changes page and records request variables.
func newAPI(t *testing.T, vars *[]map[string]interface{}) *httptest.Server {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer startup-token" {
			t.Errorf("Expected startup bearer token, got %q", got)
		}
		var body struct {
			Variables map[string]interface{} `json:"variables"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("Failed to decode request: %v", err)
		}
		*vars = append(*vars, body.Variables)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(changesPage))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func writeConfig(t *testing.T, endpoint, extra string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "shiphero.yaml")
	content := fmt.Sprintf(`api:
  endpoint: %s
credentials:
  access_token: startup-token
  refresh_token: refresh
  email: ops@example.com
log:
  level: error
%s`, endpoint, extra)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	a := New()
	a.out = &out
	err := a.Execute(context.Background(), append([]string{"--env-file", ""}, args...))
	return out.String(), err
}

func TestInventoryChanges_CSV(t *testing.T) {
	var vars []map[string]interface{}
	srv := newAPI(t, &vars)
	dir := t.TempDir()

	out, err := run(t, "--config", writeConfig(t, srv.URL, ""), "--output-dir", dir,
		"inventory", "changes", "--from", "2024-01-01", "--sku", "A1")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !strings.Contains(out, "Exported 2 inventory_changes records") {
		t.Errorf("Unexpected output %q", out)
	}
	if len(vars) != 1 || vars[0]["dateFrom"] != "2024-01-01" || vars[0]["sku"] != "A1" {
		t.Errorf("Unexpected variables %v", vars)
	}

	files, _ := filepath.Glob(filepath.Join(dir, "inventory_changes_*.csv"))
	if len(files) != 1 {
		t.Fatalf("Expected one CSV file, got %v", files)
	}
	b, _ := os.ReadFile(files[0])
	if !strings.Contains(string(b), ",,W1,A1,10,5,15,restock") {
		t.Errorf("Expected computed current_on_hand in %q", string(b))
	}
}

func TestInventoryChanges_Table(t *testing.T) {
	var vars []map[string]interface{}
	srv := newAPI(t, &vars)
	dsn := filepath.Join(t.TempDir(), "shiphero.db")

	_, err := run(t, "--config", writeConfig(t, srv.URL, "database:\n  dsn: "+dsn+"\n  migrate: true\n"),
		"--table", "sph_inventory_changes", "inventory", "changes")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if _, ok := vars[0]["dateFrom"].(string); !ok {
		t.Errorf("Expected a default dateFrom, got %v", vars[0]["dateFrom"])
	}

	db, err := store.Open(context.Background(), config.DatabaseConfig{Driver: config.DriverSQLite, DSN: dsn})
	if err != nil {
		t.Fatalf("Failed to reopen database: %v", err)
	}
	defer db.Close()
	var n int
	if err := db.QueryRow("SELECT COUNT(*) FROM sph_inventory_changes WHERE current_on_hand IN (15, -2)").Scan(&n); err != nil {
		t.Fatalf("Failed to count rows: %v", err)
	}
	if n != 2 {
		t.Errorf("Expected 2 rows, got %d", n)
	}
}

func TestInvalidDate(t *testing.T) {
	var vars []map[string]interface{}
	srv := newAPI(t, &vars)
	_, err := run(t, "--config", writeConfig(t, srv.URL, ""), "inventory", "changes", "--from", "yesterday")
	if !errors.Is(err, errors.ErrValidation) {
		t.Errorf("Expected validation error, got %v", err)
	}
	if len(vars) != 0 {
		t.Errorf("Expected no API calls, got %d", len(vars))
	}
}

func TestMissingCredentials(t *testing.T) {
	t.Setenv(config.EnvRefreshToken, "")
	t.Setenv(config.EnvEmail, "")
	_, err := run(t, "status", "get")
	if !errors.Is(err, errors.ErrConfiguration) {
		t.Errorf("Expected configuration error, got %v", err)
	}
}

func TestParseComponents(t *testing.T) {
	comps, err := parseComponents("S1:2, S2 ,S3:10")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(comps) != 3 || comps[0].Quantity != 2 || comps[1].Quantity != 1 || comps[2].SKU != "S3" {
		t.Errorf("Unexpected components %+v", comps)
	}
	for _, bad := range []string{"S1:x", "S1:0", ":3"} {
		if _, err := parseComponents(bad); !errors.Is(err, errors.ErrValidation) {
			t.Errorf("%q: Expected validation error, got %v", bad, err)
		}
	}
}
