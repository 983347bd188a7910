package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Company  CompanyConfig  `mapstructure:"company"`
	Input    InputConfig    `mapstructure:"input"`
	Rules    RulesConfig    `mapstructure:"rules"`
	Batch    BatchConfig    `mapstructure:"batch"`
	Database DatabaseConfig `mapstructure:"database"`
	Report   ReportConfig   `mapstructure:"report"`
	Server   ServerConfig   `mapstructure:"server"`
	Logger   LoggerConfig   `mapstructure:"logger"`
}

// CompanyConfig identifies the dealership whose documents are reconciled
type CompanyConfig struct {
	TaxIDs []string `mapstructure:"tax_ids"`
}

// InputConfig locates the documents to process
type InputConfig struct {
	XMLDir  string `mapstructure:"xml_dir"`
	BaseDir string `mapstructure:"base_dir"`
}

// RulesConfig points at the externally supplied descriptors; empty paths
// select the built-in defaults
type RulesConfig struct {
	ExtractionPath string `mapstructure:"extraction_path"`
	LayoutPath     string `mapstructure:"layout_path"`
}

// BatchConfig bounds document extraction concurrency
type BatchConfig struct {
	Workers int `mapstructure:"workers"`
}

// DatabaseConfig holds database configuration; an empty path disables run
// persistence
type DatabaseConfig struct {
	Path            string        `mapstructure:"path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// ReportConfig holds report generation configuration
type ReportConfig struct {
	OutputPath string `mapstructure:"output_path"`
}

// ServerConfig holds the optional result API configuration
type ServerConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// LoggerConfig holds logger configuration
type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	OutputPath string `mapstructure:"output_path"`
	Format     string `mapstructure:"format"`
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	bindEnvVars()

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults() {
	viper.SetDefault("input.xml_dir", "xmls")

	viper.SetDefault("batch.workers", 4)

	viper.SetDefault("database.max_open_conns", 25)
	viper.SetDefault("database.max_idle_conns", 5)
	viper.SetDefault("database.conn_max_lifetime", 5*time.Minute)

	viper.SetDefault("report.output_path", "relatorio_nfe.xlsx")

	viper.SetDefault("server.enabled", false)
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", 30*time.Second)
	viper.SetDefault("server.write_timeout", 30*time.Second)

	viper.SetDefault("logger.level", "info")
	viper.SetDefault("logger.output_path", "stdout")
	viper.SetDefault("logger.format", "json")
}

// bindEnvVars binds environment variables to configuration
func bindEnvVars() {
	viper.BindEnv("company.tax_ids", "COMPANY_TAX_IDS")
	viper.BindEnv("input.xml_dir", "NFE_XML_DIR")
	viper.BindEnv("database.path", "NFE_DATABASE_PATH")
	viper.BindEnv("report.output_path", "NFE_REPORT_PATH")
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if len(c.Company.TaxIDs) == 0 {
		return fmt.Errorf("company.tax_ids is required")
	}
	if c.Input.XMLDir == "" {
		return fmt.Errorf("input.xml_dir is required")
	}
	if c.Report.OutputPath == "" {
		return fmt.Errorf("report.output_path is required")
	}
	if c.Batch.Workers < 1 {
		return fmt.Errorf("batch.workers must be at least 1")
	}
	return nil
}
