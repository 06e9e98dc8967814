package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/baumanab/delta/internal/infra/confloader"
)

func validConfig() *ServerConfig {
	cfg := Default()
	cfg.Tables = []TableConfig{
		{Name: "events", Root: "/data/events"},
		{Name: "orders", Root: "/data/orders"},
	}
	return cfg
}

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Server.HTTP.Address != DefaultHTTPAddr {
		t.Errorf("HTTP.Address = %q, want %q", cfg.Server.HTTP.Address, DefaultHTTPAddr)
	}
	if cfg.Replay.NumPartitions != 50 {
		t.Errorf("Replay.NumPartitions = %d, want 50", cfg.Replay.NumPartitions)
	}
	if cfg.Checksum.Store != ChecksumStoreFile {
		t.Errorf("Checksum.Store = %q, want %q", cfg.Checksum.Store, ChecksumStoreFile)
	}
	if cfg.Checksum.Trust {
		t.Error("Checksum.Trust = true, want false by default")
	}
	if err := Verify(cfg); err != nil {
		t.Errorf("Verify(Default()) error = %v", err)
	}
}

func TestVerify(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*ServerConfig)
		wantErr string
	}{
		{"valid", func(*ServerConfig) {}, ""},
		{"bad address", func(c *ServerConfig) { c.Server.HTTP.Address = "localhost" }, "server.http.address"},
		{"burst without limit", func(c *ServerConfig) { c.Server.HTTP.RateBurst = 0; c.Server.HTTP.RateLimit = 0 }, ""},
		{"zero burst", func(c *ServerConfig) { c.Server.HTTP.RateBurst = 0 }, "rate_burst"},
		{"missing name", func(c *ServerConfig) { c.Tables[0].Name = "" }, "tables[0].name is required"},
		{"slash in name", func(c *ServerConfig) { c.Tables[1].Name = "a/b" }, "must not contain"},
		{"duplicate name", func(c *ServerConfig) { c.Tables[1].Name = "events" }, "duplicated"},
		{"missing root", func(c *ServerConfig) { c.Tables[1].Root = "" }, "tables[1].root"},
		{"zero partitions", func(c *ServerConfig) { c.Replay.NumPartitions = 0 }, "num_partitions"},
		{"negative retention", func(c *ServerConfig) { c.Replay.FileRetention = -time.Hour }, "retention"},
		{"unknown store", func(c *ServerConfig) { c.Checksum.Store = "s3" }, "checksum.store"},
		{"badger without dir", func(c *ServerConfig) { c.Checksum.Store = ChecksumStoreBadger }, "checksum.dir"},
		{"protocol zero", func(c *ServerConfig) { c.Protocol.MaxReaderVersion = 0 }, "protocol"},
		{"log format", func(c *ServerConfig) { c.Log.Format = "xml" }, "log.format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := Verify(cfg)
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Verify() error = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Verify() error = %v, want it to mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestVerify_ReportsAll(t *testing.T) {
	cfg := validConfig()
	cfg.Replay.NumPartitions = 0
	cfg.Checksum.Store = "s3"

	err := Verify(cfg)
	if err == nil {
		t.Fatal("Verify() error = nil, want two problems")
	}
	for _, want := range []string{"num_partitions", "checksum.store"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("Verify() error = %v, missing %q", err, want)
		}
	}
}

func TestSanitize(t *testing.T) {
	cfg := validConfig()
	signed := "https://acct.blob.core.windows.net/lake/events?sv=2024&sig=c2VjcmV0"
	cfg.Tables[0].Root = signed

	out := Sanitize(cfg)
	if cfg.Tables[0].Root != signed {
		t.Error("Sanitize() modified its input")
	}
	if strings.Contains(out.Tables[0].Root, "c2VjcmV0") {
		t.Errorf("sanitized root = %q, signature still present", out.Tables[0].Root)
	}
	if out.Tables[1].Root != "/data/orders" {
		t.Errorf("plain root = %q, want unchanged", out.Tables[1].Root)
	}
}

func TestReplayConfig(t *testing.T) {
	cfg := Default()
	cfg.Replay.Workers = 3
	cfg.Replay.TxnRetention = time.Hour
	now := time.UnixMilli(10_000_000_000)

	rc := cfg.ReplayConfig(now)
	if rc.NumPartitions != cfg.Replay.NumPartitions || rc.Workers != 3 {
		t.Errorf("ReplayConfig() = %+v, want partitions and workers copied", rc)
	}
	if want := now.Add(-DefaultFileRetention).UnixMilli(); rc.MinFileRetentionTimestamp != want {
		t.Errorf("MinFileRetentionTimestamp = %d, want %d", rc.MinFileRetentionTimestamp, want)
	}
	if want := now.Add(-time.Hour).UnixMilli(); rc.MinSetTransactionRetentionTimestamp != want {
		t.Errorf("MinSetTransactionRetentionTimestamp = %d, want %d", rc.MinSetTransactionRetentionTimestamp, want)
	}

	g := cfg.Gate()
	if g.MaxReaderVersion != cfg.Protocol.MaxReaderVersion {
		t.Errorf("Gate().MaxReaderVersion = %d, want %d", g.MaxReaderVersion, cfg.Protocol.MaxReaderVersion)
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.yaml")
	content := `
server:
  http:
    address: "0.0.0.0:9090"
    read_timeout: 5s
  admin:
    socket: /run/deltasnap/admin.sock
tables:
  - name: events
    root: /data/events
replay:
  file_retention: 48h
checksum:
  store: none
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	t.Setenv("DELTASNAP_LOG_LEVEL", "debug")

	cfg, err := Load(confloader.NewLoader(confloader.WithConfigFile(path)))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.HTTP.Address != "0.0.0.0:9090" {
		t.Errorf("Address = %q, want 0.0.0.0:9090", cfg.Server.HTTP.Address)
	}
	if cfg.Server.HTTP.ReadTimeout != 5*time.Second {
		t.Errorf("ReadTimeout = %v, want 5s", cfg.Server.HTTP.ReadTimeout)
	}
	if cfg.Server.HTTP.WriteTimeout != DefaultWriteTimeout {
		t.Errorf("WriteTimeout = %v, want default kept", cfg.Server.HTTP.WriteTimeout)
	}
	if cfg.Server.Admin.Socket != "/run/deltasnap/admin.sock" {
		t.Errorf("Admin.Socket = %q, want /run/deltasnap/admin.sock", cfg.Server.Admin.Socket)
	}
	if len(cfg.Tables) != 1 || cfg.Tables[0].Name != "events" {
		t.Errorf("Tables = %+v, want [events]", cfg.Tables)
	}
	if cfg.Replay.FileRetention != 48*time.Hour {
		t.Errorf("FileRetention = %v, want 48h", cfg.Replay.FileRetention)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q, want env override debug", cfg.Log.Level)
	}

	if err := os.WriteFile(path, []byte("checksum:\n  store: s3\n"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	if _, err := Load(confloader.NewLoader(confloader.WithConfigFile(path))); err == nil {
		t.Error("Load() with an unknown checksum store: want error")
	}
}
