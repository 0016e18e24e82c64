package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
)

// ResolvePath applies CLI/XDG/home fallback rules for config.conf location.
func ResolvePath(explicit string) (string, error) {
	if strings.TrimSpace(explicit) != "" {
		return explicit, nil
	}

	if xdg := strings.TrimSpace(os.Getenv("XDG_CONFIG_HOME")); xdg != "" {
		return filepath.Join(xdg, "echosight", "config.conf"), nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.New("unable to resolve user home for config fallback")
	}

	return filepath.Join(home, ".config", "echosight", "config.conf"), nil
}

// ResolveCredentialPath picks the credential store location: the configured
// path when set, otherwise credentials.json beside the resolved config file.
func ResolveCredentialPath(cfg Config, configPath string) string {
	if strings.TrimSpace(cfg.Credential.Path) != "" {
		return cfg.Credential.Path
	}
	return filepath.Join(filepath.Dir(configPath), "credentials.json")
}
