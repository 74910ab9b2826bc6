package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Store backends
const (
	BackendSheets = "sheets"
	BackendXLSX   = "xlsx"
	BackendMemory = "memory"
)

// Config holds application configuration
type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`

	Store struct {
		Backend           string `yaml:"backend"` // "sheets", "xlsx" or "memory"
		SpreadsheetID     string `yaml:"spreadsheet_id"`
		CredentialsFile   string `yaml:"credentials_file"`
		WorkbookPath      string `yaml:"workbook_path"`
		RequestsPerMinute int    `yaml:"requests_per_minute"`
	} `yaml:"store"`

	Master struct {
		Tab             string `yaml:"tab"`
		CacheTTLMinutes int    `yaml:"cache_ttl_minutes"`
	} `yaml:"master"`

	CorrectionsTab string `yaml:"corrections_tab"`

	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`

	Gemini struct {
		APIKey     string `yaml:"api_key"`
		ModelName  string `yaml:"model_name"`
		MaxRetries int    `yaml:"max_retries"`
	} `yaml:"gemini"`
}

// LoadConfig loads configuration from YAML file
func LoadConfig(configPath string) (*Config, error) {
	config := &Config{}

	file, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	decoder := yaml.NewDecoder(file)
	if err := decoder.Decode(config); err != nil {
		return nil, fmt.Errorf("failed to decode config file: %w", err)
	}

	// Set defaults
	if config.Server.Port == "" {
		config.Server.Port = "8003"
	}

	if config.Store.Backend == "" {
		config.Store.Backend = BackendSheets
	}

	if config.Store.WorkbookPath == "" {
		config.Store.WorkbookPath = "./data/ratings.xlsx"
	}

	if config.Store.RequestsPerMinute == 0 {
		config.Store.RequestsPerMinute = 50
	}

	if config.Master.Tab == "" {
		config.Master.Tab = "master"
	}

	if config.Master.CacheTTLMinutes == 0 {
		config.Master.CacheTTLMinutes = 10
	}

	if config.CorrectionsTab == "" {
		config.CorrectionsTab = "user_corrections"
	}

	if config.Database.Path == "" {
		config.Database.Path = "./data/sessions.db"
	}

	if config.Gemini.ModelName == "" {
		config.Gemini.ModelName = "gemini-2.0-flash-exp"
	}

	if config.Gemini.MaxRetries == 0 {
		config.Gemini.MaxRetries = 3
	}

	// Expand environment variables in secrets and identifiers
	config.Store.SpreadsheetID = os.ExpandEnv(config.Store.SpreadsheetID)
	config.Store.CredentialsFile = os.ExpandEnv(config.Store.CredentialsFile)
	config.Gemini.APIKey = os.ExpandEnv(config.Gemini.APIKey)

	return config, nil
}
