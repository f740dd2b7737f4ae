package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
)

// CLIConfig is persisted between nebula CLI invocations.
type CLIConfig struct {
	APIBaseURL  string `json:"api_base_url"`
	AccessToken string `json:"access_token"`
	Email       string `json:"email,omitempty"`
}

// CLIConfigPath returns the config file location, honouring NEBULA_CONFIG.
func CLIConfigPath() (string, error) {
	if path := GetString("NEBULA_CONFIG", ""); path != "" {
		return path, nil
	}
	base, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, "nebula", "config.json"), nil
}

// LoadCLIConfig reads the config file at path. A missing file yields defaults.
func LoadCLIConfig(path string) (CLIConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return CLIConfig{APIBaseURL: GetString("API_BASE_URL", "http://localhost:4000")}, nil
		}
		return CLIConfig{}, err
	}
	var cfg CLIConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return CLIConfig{}, err
	}
	return cfg, nil
}

// SaveCLIConfig writes cfg to path with owner-only permissions.
func SaveCLIConfig(path string, cfg CLIConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}
