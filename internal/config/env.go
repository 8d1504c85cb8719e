package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// EnvPrefix namespaces every variable ApplyEnv reads, e.g. TJBRIDGE_ADDR.
const EnvPrefix = "TJBRIDGE_"

// ApplyEnv overlays TJBRIDGE_* variables onto cfg. Unset variables leave
// the file values untouched. Lists are comma separated; connect flags use
// key:value pairs.
func ApplyEnv(cfg *Config) error {
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}
