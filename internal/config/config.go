package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strconv"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Config holds the application configuration
type Config struct {
	DBPath          string `yaml:"db_path"`
	JiraURL         string `yaml:"jira_url"`
	TempoToken      string `yaml:"tempo_token"`
	PageSize        int    `yaml:"page_size"`
	CacheTTLSeconds int    `yaml:"cache_ttl_seconds"`
}

// configFile represents the YAML config file structure
type configFile struct {
	Version         string `yaml:"version"`
	DBPath          string `yaml:"db_path"`
	JiraURL         string `yaml:"jira_url"`
	TempoToken      string `yaml:"tempo_token"`
	PageSize        int    `yaml:"page_size"`
	CacheTTLSeconds int    `yaml:"cache_ttl_seconds"`
}

const (
	// CurrentConfigVersion is the current version of the config file format
	CurrentConfigVersion = "1"

	// DefaultPageSize is the timeline page size when nothing is configured
	DefaultPageSize = 10

	// DefaultCacheTTLSeconds bounds the export-history cache lifetime
	DefaultCacheTTLSeconds = 300
)

// GetConfigDir returns the OS-specific config directory for worklog
func GetConfigDir() (string, error) {
	var baseDir string

	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", eris.Wrap(err, "failed to get user home directory")
		}
		baseDir = filepath.Join(home, "Library", "Application Support")
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData == "" {
			return "", eris.New("APPDATA environment variable not set")
		}
		baseDir = appData
	default: // linux and others
		xdgConfigHome := os.Getenv("XDG_CONFIG_HOME")
		if xdgConfigHome != "" {
			baseDir = xdgConfigHome
		} else {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", eris.Wrap(err, "failed to get user home directory")
			}
			baseDir = filepath.Join(home, ".config")
		}
	}

	return filepath.Join(baseDir, "worklog"), nil
}

// GetDBPath returns the SQLite database path with configuration hierarchy
func GetDBPath() (string, error) {
	// 1. Environment variable (highest priority)
	if envPath := os.Getenv("WORKLOG_DB"); envPath != "" {
		return expandHome(envPath)
	}

	// 2. Config file
	config, err := loadConfigFile()
	if err == nil && config.DBPath != "" {
		return expandHome(config.DBPath)
	}

	// 3. Default (lowest priority)
	configDir, err := GetConfigDir()
	if err != nil {
		return "", eris.Wrap(err, "failed to get config directory")
	}

	return filepath.Join(configDir, "worklog.db"), nil
}

// GetJiraURL returns the Jira base URL with configuration hierarchy
func GetJiraURL() (string, error) {
	if envURL := os.Getenv("WORKLOG_JIRA_URL"); envURL != "" {
		return envURL, nil
	}

	config, err := loadConfigFile()
	if err == nil && config.JiraURL != "" {
		return config.JiraURL, nil
	}

	return "", nil
}

// GetTempoToken returns the Tempo API token with configuration hierarchy
func GetTempoToken() (string, error) {
	if envToken := os.Getenv("WORKLOG_TEMPO_TOKEN"); envToken != "" {
		return envToken, nil
	}

	config, err := loadConfigFile()
	if err == nil && config.TempoToken != "" {
		return config.TempoToken, nil
	}

	return "", nil
}

// GetPageSize returns the timeline page size with configuration hierarchy
func GetPageSize() (int, error) {
	if envSize := os.Getenv("WORKLOG_PAGE_SIZE"); envSize != "" {
		size, err := strconv.Atoi(envSize)
		if err != nil || size <= 0 {
			return 0, eris.Errorf("invalid WORKLOG_PAGE_SIZE: %s", envSize)
		}
		return size, nil
	}

	config, err := loadConfigFile()
	if err == nil && config.PageSize > 0 {
		return config.PageSize, nil
	}

	return DefaultPageSize, nil
}

// GetCacheTTLSeconds returns the export-history cache TTL with
// configuration hierarchy
func GetCacheTTLSeconds() (int, error) {
	if envTTL := os.Getenv("WORKLOG_CACHE_TTL"); envTTL != "" {
		ttl, err := strconv.Atoi(envTTL)
		if err != nil || ttl <= 0 {
			return 0, eris.Errorf("invalid WORKLOG_CACHE_TTL: %s", envTTL)
		}
		return ttl, nil
	}

	config, err := loadConfigFile()
	if err == nil && config.CacheTTLSeconds > 0 {
		return config.CacheTTLSeconds, nil
	}

	return DefaultCacheTTLSeconds, nil
}

// EnsureConfigDir creates the config directory if it doesn't exist
func EnsureConfigDir() error {
	configDir, err := GetConfigDir()
	if err != nil {
		return eris.Wrap(err, "failed to get config directory")
	}

	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return eris.Wrapf(err, "failed to create config directory: %s", configDir)
	}

	return nil
}

// LoadConfig loads the full configuration with all settings resolved
func LoadConfig() (*Config, error) {
	dbPath, err := GetDBPath()
	if err != nil {
		return nil, eris.Wrap(err, "failed to get database path")
	}

	jiraURL, err := GetJiraURL()
	if err != nil {
		return nil, eris.Wrap(err, "failed to get jira url")
	}

	tempoToken, err := GetTempoToken()
	if err != nil {
		return nil, eris.Wrap(err, "failed to get tempo token")
	}

	pageSize, err := GetPageSize()
	if err != nil {
		return nil, eris.Wrap(err, "failed to get page size")
	}

	cacheTTL, err := GetCacheTTLSeconds()
	if err != nil {
		return nil, eris.Wrap(err, "failed to get cache ttl")
	}

	return &Config{
		DBPath:          dbPath,
		JiraURL:         jiraURL,
		TempoToken:      tempoToken,
		PageSize:        pageSize,
		CacheTTLSeconds: cacheTTL,
	}, nil
}

// loadConfigFile loads the config file from disk (internal helper)
func loadConfigFile() (*configFile, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return nil, eris.Wrap(err, "failed to get config directory")
	}

	configPath := filepath.Join(configDir, "config.yaml")

	// If config file doesn't exist, return empty config (not an error)
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return &configFile{}, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, eris.Wrapf(err, "failed to read config file: %s", configPath)
	}

	var config configFile
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, eris.Wrapf(err, "failed to parse config file: %s", configPath)
	}

	return &config, nil
}

// expandHome expands ~ to the user's home directory in a path
func expandHome(path string) (string, error) {
	if len(path) == 0 || path[0] != '~' {
		return path, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", eris.Wrap(err, "failed to get user home directory")
	}

	if len(path) == 1 {
		return home, nil
	}

	if path[1] == '/' || path[1] == filepath.Separator {
		return filepath.Join(home, path[2:]), nil
	}

	return path, nil
}

// GetConfigPath returns the full path to the config file
func GetConfigPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", eris.Wrap(err, "failed to get config directory")
	}

	return filepath.Join(configDir, "config.yaml"), nil
}

// SaveConfig saves the configuration to disk
func SaveConfig(config *Config) error {
	configPath, err := GetConfigPath()
	if err != nil {
		return eris.Wrap(err, "failed to get config path")
	}

	if err := EnsureConfigDir(); err != nil {
		return eris.Wrap(err, "failed to ensure config directory")
	}

	cf := configFile{
		Version:         CurrentConfigVersion,
		DBPath:          config.DBPath,
		JiraURL:         config.JiraURL,
		TempoToken:      config.TempoToken,
		PageSize:        config.PageSize,
		CacheTTLSeconds: config.CacheTTLSeconds,
	}

	data, err := yaml.Marshal(&cf)
	if err != nil {
		return eris.Wrap(err, "failed to marshal config to YAML")
	}

	// The file may hold a Tempo token; keep it private.
	if err := os.WriteFile(configPath, data, 0o600); err != nil {
		return eris.Wrapf(err, "failed to write config file: %s", configPath)
	}

	return nil
}

// ValidateConfig validates the configuration settings
func ValidateConfig(config *configFile) error {
	if config.PageSize < 0 {
		return eris.Errorf("invalid page_size: %d (must be positive)", config.PageSize)
	}
	if config.CacheTTLSeconds < 0 {
		return eris.Errorf("invalid cache_ttl_seconds: %d (must be positive)", config.CacheTTLSeconds)
	}

	if config.DBPath != "" {
		_, err := expandHome(config.DBPath)
		if err != nil {
			return eris.Wrap(err, "invalid db_path")
		}
	}

	return nil
}

// ValidateConfigFile validates a config file at the given path
func ValidateConfigFile(configPath string) error {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return eris.Wrapf(err, "failed to read config file: %s", configPath)
	}

	var config configFile
	if err := yaml.Unmarshal(data, &config); err != nil {
		return eris.Wrapf(err, "failed to parse config file: %s", configPath)
	}

	return ValidateConfig(&config)
}
