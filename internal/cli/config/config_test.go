package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Output != "table" {
		t.Errorf("Output = %q, want table", cfg.Output)
	}
	if cfg.Replay.NumPartitions != 50 {
		t.Errorf("NumPartitions = %d, want 50", cfg.Replay.NumPartitions)
	}
	if cfg.Tables == nil {
		t.Error("Tables should not be nil")
	}
}

func TestDefaultConfigPath(t *testing.T) {
	path := DefaultConfigPath()
	if want := filepath.Join(".deltasnap", "cli.yaml"); !strings.HasSuffix(path, want) {
		t.Errorf("DefaultConfigPath() = %q, want suffix %q", path, want)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server != Default().Server {
		t.Errorf("Server = %q, want default", cfg.Server)
	}
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "cli.yaml")
	cfg := Default()
	cfg.Output = "json"
	cfg.Tables["events"] = "/data/events"
	cfg.Replay.FileRetention = 48 * time.Hour

	if err := Save(cfg, path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("mode = %o, want 600", perm)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got.Output != "json" {
		t.Errorf("Output = %q, want json", got.Output)
	}
	if got.Replay.FileRetention != 48*time.Hour {
		t.Errorf("FileRetention = %v, want 48h", got.Replay.FileRetention)
	}
	if got.ResolveTable("events") != "/data/events" {
		t.Errorf("ResolveTable(events) = %q, want /data/events", got.ResolveTable("events"))
	}
	if got.ResolveTable("/other") != "/other" {
		t.Errorf("ResolveTable(/other) = %q, want the path unchanged", got.ResolveTable("/other"))
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cli.yaml")
	if err := os.WriteFile(path, []byte("output: yaml\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("DELTASNAP_CLI_OUTPUT", "json")
	t.Setenv("DELTASNAP_CLI_REPLAY_NUM__PARTITIONS", "8")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Output != "json" {
		t.Errorf("Output = %q, want env value json", cfg.Output)
	}
	if cfg.Replay.NumPartitions != 8 {
		t.Errorf("NumPartitions = %d, want 8", cfg.Replay.NumPartitions)
	}
}
