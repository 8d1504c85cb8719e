package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTempFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return p
}

func TestLoadYAML(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.yaml", "addr: :9999\nnative_url: http://127.0.0.1:7001\nplatform: ios\nsdk_key: k1\nconnect_flags:\n  TJC_OPTION_USER_ID: u1\ncall_timeout: 10s\ncors_origins: [\"https://a.example\"]\n")
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":9999" || cfg.NativeURL != "http://127.0.0.1:7001" || cfg.Platform != "ios" || cfg.SDKKey != "k1" || cfg.CallTimeout != "10s" {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
	if cfg.ConnectFlags["TJC_OPTION_USER_ID"] != "u1" || len(cfg.CORSOrigins) != 1 {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
}

func TestLoadJSON(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.json", `{"addr":":7070","keystore":"sqlite","keystore_path":"/tmp/kv.db","simulate":true,"max_body_bytes":2048}`)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":7070" || cfg.Keystore != "sqlite" || cfg.KeystorePath != "/tmp/kv.db" || !cfg.Simulate || cfg.MaxBodyBytes != 2048 {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
}

func TestLoadTOML(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.toml", "addr=\":8081\"\nkafka_brokers=\"k1:9092,k2:9092\"\nkafka_topic=\"tj\"\noperation_timeout=\"2m\"\n")
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":8081" || cfg.KafkaBrokers != "k1:9092,k2:9092" || cfg.KafkaTopic != "tj" || cfg.OperationTimeout != "2m" {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(""); err == nil {
		t.Fatalf("expected error on empty path")
	}
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.txt", "not supported")
	if _, err := Load(p); err == nil {
		t.Fatalf("expected unsupported extension error")
	}
}
