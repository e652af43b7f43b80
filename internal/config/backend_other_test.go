//go:build !darwin

package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFileBackendRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sentiguard", "config.json")
	b := newFileBackend(path)
	if err := b.SetInt("alert.limit", 8); err != nil {
		t.Fatalf("SetInt: %v", err)
	}
	if err := b.SetString("alert.guardian", "99"); err != nil {
		t.Fatalf("SetString: %v", err)
	}

	reloaded := newFileBackend(path)
	if v, ok, err := reloaded.GetInt("alert.limit"); err != nil || !ok || v != 8 {
		t.Errorf("GetInt = %d, %v, %v", v, ok, err)
	}
	if v, ok, _ := reloaded.GetString("alert.guardian"); !ok || v != "99" {
		t.Errorf("GetString = %q, %v", v, ok)
	}
	if err := reloaded.Delete("alert.guardian"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok, _ := newFileBackend(path).GetString("alert.guardian"); ok {
		t.Error("key still present after Delete")
	}
}

func TestFileBackendMalformedIsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	os.WriteFile(path, []byte("{not json"), 0o600)
	b := newFileBackend(path)
	if _, ok, _ := b.GetString("alert.guardian"); ok {
		t.Error("malformed file should read as empty")
	}
	if err := b.SetInt("alert.limit", 2); err != nil {
		t.Fatalf("SetInt after malformed load: %v", err)
	}
}

func TestFileBackendRejectsFractionalInt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	os.WriteFile(path, []byte(`{"alert.limit": 2.5}`), 0o600)
	if _, _, err := newFileBackend(path).GetInt("alert.limit"); err == nil {
		t.Error("expected error for fractional integer")
	}
}
