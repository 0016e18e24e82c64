package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// Loaded captures resolved config path, parsed values, and non-fatal warnings.
type Loaded struct {
	Path     string
	Config   Config
	Warnings []Warning
	Exists   bool
}

// Load resolves, reads, parses, and validates the runtime configuration.
// When the config names an env file it is loaded into the process environment
// so credential overrides like ECHOSIGHT_API_KEY take effect.
func Load(explicitPath string) (Loaded, error) {
	resolvedPath, err := ResolvePath(explicitPath)
	if err != nil {
		return Loaded{}, err
	}

	base := Default()
	content, err := os.ReadFile(resolvedPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Loaded{
				Path:   resolvedPath,
				Config: base,
				Warnings: []Warning{{
					Message: fmt.Sprintf("config file %q not found; using defaults", resolvedPath),
				}},
				Exists: false,
			}, nil
		}
		return Loaded{}, fmt.Errorf("read config %q: %w", resolvedPath, err)
	}

	cfg, warnings, err := Parse(string(content), base)
	if err != nil {
		return Loaded{}, fmt.Errorf("parse config %q: %w", resolvedPath, err)
	}

	loaded := Loaded{
		Path:     resolvedPath,
		Config:   cfg,
		Warnings: warnings,
		Exists:   true,
	}

	if cfg.Credential.EnvFile != "" {
		if err := godotenv.Load(cfg.Credential.EnvFile); err != nil {
			loaded.Warnings = append(loaded.Warnings, Warning{
				Message: fmt.Sprintf("credential.env_file %q not loaded: %v", cfg.Credential.EnvFile, err),
			})
		}
	}

	return loaded, nil
}
