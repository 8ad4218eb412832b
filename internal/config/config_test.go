package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	def := Default()
	if cfg.Server.Port != def.Server.Port || cfg.Storage.Driver != def.Storage.Driver {
		t.Errorf("expected defaults, got %+v", cfg)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sheetdrop.yaml")
	data := []byte(`
server:
  port: 9999
auth:
  min_password_length: 10
  retain_rejected: true
storage:
  driver: postgres
  dsn: postgres://localhost/sheetdrop
`)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 9999 {
		t.Errorf("port: got %d, want 9999", cfg.Server.Port)
	}
	if cfg.Auth.MinPasswordLength != 10 || !cfg.Auth.RetainRejected {
		t.Errorf("auth: got %+v", cfg.Auth)
	}
	if cfg.Storage.Driver != "postgres" {
		t.Errorf("driver: got %q", cfg.Storage.Driver)
	}
	// Untouched sections keep their defaults.
	if cfg.Uploads.MaxSizeBytes != Default().Uploads.MaxSizeBytes {
		t.Errorf("uploads default lost: %+v", cfg.Uploads)
	}
}

func TestLoadMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("server: [not a map"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected an error for malformed YAML")
	}
}

func TestDuration(t *testing.T) {
	if got := Duration("90s", time.Second); got != 90*time.Second {
		t.Errorf("got %v, want 90s", got)
	}
	if got := Duration("", time.Minute); got != time.Minute {
		t.Errorf("empty: got %v, want fallback", got)
	}
	if got := Duration("bogus", time.Minute); got != time.Minute {
		t.Errorf("malformed: got %v, want fallback", got)
	}
}
