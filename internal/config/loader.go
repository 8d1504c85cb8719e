package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Config holds runtime parameters for the daemon.
// Zero values mean "unspecified" and will be replaced by defaults in main.
type Config struct {
	Addr            string            `json:"addr" yaml:"addr" toml:"addr" env:"ADDR"`
	NativeURL       string            `json:"native_url" yaml:"native_url" toml:"native_url" env:"NATIVE_URL"`
	NativeBin       string            `json:"native_bin" yaml:"native_bin" toml:"native_bin" env:"NATIVE_BIN"`
	NativeHost      string            `json:"native_host" yaml:"native_host" toml:"native_host" env:"NATIVE_HOST"`
	NativePortStart int               `json:"native_port_start" yaml:"native_port_start" toml:"native_port_start" env:"NATIVE_PORT_START"`
	NativePortEnd   int               `json:"native_port_end" yaml:"native_port_end" toml:"native_port_end" env:"NATIVE_PORT_END"`
	Simulate        bool              `json:"simulate" yaml:"simulate" toml:"simulate" env:"SIMULATE"`
	SDKKey          string            `json:"sdk_key" yaml:"sdk_key" toml:"sdk_key" env:"SDK_KEY"`
	ConnectFlags    map[string]string `json:"connect_flags" yaml:"connect_flags" toml:"connect_flags" env:"CONNECT_FLAGS"`
	Platform        string            `json:"platform" yaml:"platform" toml:"platform" env:"PLATFORM"`
	Debug           bool              `json:"debug" yaml:"debug" toml:"debug" env:"DEBUG"`
	// Durations use Go syntax, e.g. "30s" or "5m".
	CallTimeout      string `json:"call_timeout" yaml:"call_timeout" toml:"call_timeout" env:"CALL_TIMEOUT"`
	OperationTimeout string `json:"operation_timeout" yaml:"operation_timeout" toml:"operation_timeout" env:"OPERATION_TIMEOUT"`
	// WaitTimeout bounds how long request/show endpoints block.
	WaitTimeout string `json:"wait_timeout" yaml:"wait_timeout" toml:"wait_timeout" env:"WAIT_TIMEOUT"`
	LogLevel         string `json:"log_level" yaml:"log_level" toml:"log_level" env:"LOG_LEVEL"`
	// Keystore is memory, sqlite or redis.
	Keystore     string   `json:"keystore" yaml:"keystore" toml:"keystore" env:"KEYSTORE"`
	KeystorePath string   `json:"keystore_path" yaml:"keystore_path" toml:"keystore_path" env:"KEYSTORE_PATH"`
	RedisURL     string   `json:"redis_url" yaml:"redis_url" toml:"redis_url" env:"REDIS_URL"`
	KafkaBrokers string   `json:"kafka_brokers" yaml:"kafka_brokers" toml:"kafka_brokers" env:"KAFKA_BROKERS"`
	KafkaTopic   string   `json:"kafka_topic" yaml:"kafka_topic" toml:"kafka_topic" env:"KAFKA_TOPIC"`
	CORSEnabled  bool     `json:"cors_enabled" yaml:"cors_enabled" toml:"cors_enabled" env:"CORS_ENABLED"`
	CORSOrigins  []string `json:"cors_origins" yaml:"cors_origins" toml:"cors_origins" env:"CORS_ORIGINS"`
	CORSMethods  []string `json:"cors_methods" yaml:"cors_methods" toml:"cors_methods" env:"CORS_METHODS"`
	CORSHeaders  []string `json:"cors_headers" yaml:"cors_headers" toml:"cors_headers" env:"CORS_HEADERS"`
	MaxBodyBytes int64    `json:"max_body_bytes" yaml:"max_body_bytes" toml:"max_body_bytes" env:"MAX_BODY_BYTES"`
}

// Load reads a configuration file based on its extension.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".json":
		if err := json.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".toml":
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	return cfg, nil
}

// Validate checks enumerated fields and duration syntax.
func (c Config) Validate() error {
	switch strings.ToLower(c.Platform) {
	case "", "android", "ios":
	default:
		return fmt.Errorf("platform must be android or ios, got %q", c.Platform)
	}
	switch strings.ToLower(c.Keystore) {
	case "", "memory", "sqlite", "redis":
	default:
		return fmt.Errorf("keystore must be memory, sqlite or redis, got %q", c.Keystore)
	}
	if _, err := ParseDuration(c.CallTimeout); err != nil {
		return fmt.Errorf("call_timeout: %w", err)
	}
	if _, err := ParseDuration(c.OperationTimeout); err != nil {
		return fmt.Errorf("operation_timeout: %w", err)
	}
	if _, err := ParseDuration(c.WaitTimeout); err != nil {
		return fmt.Errorf("wait_timeout: %w", err)
	}
	if c.NativePortStart > 0 && c.NativePortEnd > 0 && c.NativePortEnd < c.NativePortStart {
		return fmt.Errorf("native_port_end %d below native_port_start %d", c.NativePortEnd, c.NativePortStart)
	}
	return nil
}

// ParseDuration parses s; the empty string is zero. "off" and "0" disable
// a timeout and yield a negative duration.
func ParseDuration(s string) (time.Duration, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return 0, nil
	case "off", "0", "none":
		return -1, nil
	}
	return time.ParseDuration(strings.TrimSpace(s))
}
