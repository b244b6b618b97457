package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"
)

// Config represents the CLI configuration
type Config struct {
	DefaultEnv   string               `yaml:"default_env"`
	Environments map[string]EnvConfig `yaml:"environments"`
}

// EnvConfig represents configuration for a specific environment
type EnvConfig struct {
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key,omitempty"`
}

// GetConfigPath returns the path to the config file under the XDG config home
func GetConfigPath() string {
	return filepath.Join(xdg.ConfigHome, "licadvisor", "config.yaml")
}

// LoadConfig loads the configuration from file
func LoadConfig() (*Config, error) {
	data, err := os.ReadFile(GetConfigPath())
	if err != nil {
		if os.IsNotExist(err) {
			return &Config{
				DefaultEnv:   "local",
				Environments: make(map[string]EnvConfig),
			}, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if cfg.Environments == nil {
		cfg.Environments = make(map[string]EnvConfig)
	}
	return &cfg, nil
}

// SaveConfig saves the configuration to file
func SaveConfig(cfg *Config) error {
	configPath := GetConfigPath()
	if err := os.MkdirAll(filepath.Dir(configPath), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// GetEnvConfig resolves the server to talk to.
// Priority: command flags > environment variables > config file.
// Only the base URL is required; the API key is needed for admin calls.
func GetEnvConfig(envName, baseURLFlag, apiKeyFlag string) (*EnvConfig, error) {
	baseURL := firstNonEmpty(baseURLFlag, os.Getenv("LICADVISOR_BASE_URL"))
	apiKey := firstNonEmpty(apiKeyFlag, os.Getenv("LICADVISOR_API_KEY"))
	if baseURL != "" && envName == "" {
		return &EnvConfig{BaseURL: baseURL, APIKey: apiKey}, nil
	}

	cfg, err := LoadConfig()
	if err != nil {
		return nil, err
	}
	if envName == "" {
		envName = cfg.DefaultEnv
	}

	envCfg, ok := cfg.Environments[envName]
	if !ok && baseURL == "" {
		return nil, fmt.Errorf("environment '%s' not found in config (run 'licadvisor config init' or pass --base-url)", envName)
	}

	envCfg.BaseURL = firstNonEmpty(baseURL, envCfg.BaseURL)
	envCfg.APIKey = firstNonEmpty(apiKey, envCfg.APIKey)
	if envCfg.BaseURL == "" {
		return nil, fmt.Errorf("base_url must be configured for environment '%s'", envName)
	}
	return &envCfg, nil
}

// InitConfig creates a default config file
func InitConfig() error {
	return SaveConfig(&Config{
		DefaultEnv: "local",
		Environments: map[string]EnvConfig{
			"local": {BaseURL: "http://localhost:8080", APIKey: "admin-123"},
		},
	})
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
