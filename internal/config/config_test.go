package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	cfg := Default()

	if cfg.Server.PreferredPort != 8524 {
		t.Errorf("preferred port = %d, want 8524", cfg.Server.PreferredPort)
	}
	if cfg.Server.ServiceName != "aidis-mcp" {
		t.Errorf("service name = %q", cfg.Server.ServiceName)
	}
	if cfg.Server.ToolPrefix != "aidis" {
		t.Errorf("tool prefix = %q", cfg.Server.ToolPrefix)
	}
	if cfg.Server.ToolTimeout != 30*time.Second {
		t.Errorf("tool timeout = %v", cfg.Server.ToolTimeout)
	}
	if cfg.Embedding.Dimension != 384 {
		t.Errorf("embedding dimension = %d", cfg.Embedding.Dimension)
	}
	if cfg.Paths.PIDFile != "./run/aidis.pid" {
		t.Errorf("pid file = %q", cfg.Paths.PIDFile)
	}
}

func TestLoadYAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "aidis.yaml")
	content := `
server:
  preferred_port: 9000
  tool_prefix: mandrel
database:
  host: db.internal
  name: aidis_prod
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.PreferredPort != 9000 {
		t.Errorf("preferred port = %d, want 9000", cfg.Server.PreferredPort)
	}
	if cfg.Server.ToolPrefix != "mandrel" {
		t.Errorf("tool prefix = %q, want mandrel", cfg.Server.ToolPrefix)
	}
	if cfg.Database.Host != "db.internal" {
		t.Errorf("db host = %q", cfg.Database.Host)
	}
	// Unset fields keep their defaults.
	if cfg.Database.Port != 5432 {
		t.Errorf("db port = %d, want default 5432", cfg.Database.Port)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load("/does/not/exist.yaml"); err == nil {
		t.Error("expected an error for a missing config file")
	}
}

func TestEnvOverridesAndPrecedence(t *testing.T) {
	t.Setenv("DATABASE_HOST", "legacy-host")
	t.Setenv("AIDIS_DATABASE_HOST", "prefixed-host")
	t.Setenv("AIDIS_SKIP_STDIO", "true")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// The AIDIS_-prefixed form wins over the legacy form.
	if cfg.Database.Host != "prefixed-host" {
		t.Errorf("db host = %q, want prefixed-host", cfg.Database.Host)
	}
	if !cfg.SkipStdio {
		t.Error("AIDIS_SKIP_STDIO=true was not applied")
	}
	// Legacy form applies when no prefixed form is set.
	if cfg.Logging.Level != "debug" {
		t.Errorf("log level = %q, want debug", cfg.Logging.Level)
	}
}

func TestDSN(t *testing.T) {
	cfg := Default().Database
	cfg.Password = "secret"
	dsn := cfg.DSN()
	want := "host=localhost port=5432 dbname=aidis user=aidis password=secret sslmode=disable"
	if dsn != want {
		t.Errorf("DSN() = %q, want %q", dsn, want)
	}
}
