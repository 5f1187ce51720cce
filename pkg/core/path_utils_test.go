package core

import (
	"encoding/json"
	"testing"

	"github.com/saturnines/shiphero-core/pkg/errors"
)

func decode(t *testing.T, s string) map[string]interface{} {
	t.Helper()
	var m map[string]interface{}
	if err := json.Unmarshal([]byte(s), &m); err != nil {
		t.Fatal(err)
	}
	return m
}

func TestExtractField(t *testing.T) {
	data := decode(t, `{"inventory":{"page_info":{"has_next_page":true},"edges":[]},"n":null}`)

	if v, ok := ExtractField(data, "inventory.page_info.has_next_page"); !ok || v != true {
		t.Errorf("Expected true, got %v (%v)", v, ok)
	}
	if _, ok := ExtractField(data, "inventory.missing"); ok {
		t.Errorf("Expected missing path to be reported")
	}
	if v, ok := ExtractField(data, "n"); !ok || v != nil {
		t.Errorf("Expected present null, got %v (%v)", v, ok)
	}
	if _, ok := ExtractField(data, ""); ok {
		t.Errorf("Expected empty path to fail")
	}
}

func TestRequireObject(t *testing.T) {
	data := decode(t, `{"a":{"b":{}},"c":5}`)

	if _, err := RequireObject(data, "a.b"); err != nil {
		t.Errorf("Expected object, got %v", err)
	}
	if _, err := RequireObject(data, "a.x"); !errors.Is(err, errors.ErrValidation) {
		t.Errorf("Expected ErrValidation for missing key, got %v", err)
	}
	if _, err := RequireObject(data, "c"); !errors.Is(err, errors.ErrValidation) {
		t.Errorf("Expected ErrValidation for non-object, got %v", err)
	}
}

func TestObjects(t *testing.T) {
	data := decode(t, `{"list":[{"a":1},"skip",{"a":2}],"obj":null}`)
	if got := Objects(data, "list"); len(got) != 2 {
		t.Errorf("Expected 2 objects, got %d", len(got))
	}
	if got := Objects(data, "none"); len(got) != 0 {
		t.Errorf("Expected 0 objects, got %d", len(got))
	}
	if got := Object(data, "obj"); got == nil || len(got) != 0 {
		t.Errorf("Expected empty object for null, got %v", got)
	}
}
