package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for our application
type Config struct {
	Port                      string         `yaml:"port"`
	Origin                    string         `yaml:"origin"`
	Environment               string         `yaml:"environment"`
	LogLevel                  string         `yaml:"log_level"`
	JWTSecret                 string         `yaml:"jwt_secret"`
	JWTRefreshSecret          string         `yaml:"jwt_refresh_secret"`
	JWTExpirationMinutes      int            `yaml:"jwt_expiration_minutes"`
	JWTRefreshExpirationHours int            `yaml:"jwt_refresh_expiration_hours"`
	OffersPageSize            int            `yaml:"offers_page_size"`
	Database                  DatabaseConfig `yaml:"database"`
}

// DatabaseConfig holds database connection details
type DatabaseConfig struct {
	Driver     string `yaml:"driver"`
	Host       string `yaml:"host"`
	Port       string `yaml:"port"`
	Username   string `yaml:"username"`
	Password   string `yaml:"password"`
	Name       string `yaml:"name"`
	SQLitePath string `yaml:"sqlite_path"`
	DSN        string `yaml:"dsn"`
}

const (
	DriverMySQL  = "mysql"
	DriverSQLite = "sqlite"
)

// LoadConfig loads configuration from environment variables. When path is
// non-empty (or CONFIG_FILE is set) the YAML file it names is decoded on top.
func LoadConfig(path string) (*Config, error) {
	dbConfig := DatabaseConfig{
		Driver:     getEnv("DB_DRIVER", DriverMySQL),
		Host:       getEnv("DB_HOST", "localhost"),
		Port:       getEnv("DB_PORT", "3306"),
		Username:   getEnv("DB_USERNAME", "root"),
		Password:   getEnv("DB_PASSWORD", ""),
		Name:       getEnv("DB_NAME", "work_and_travel"),
		SQLitePath: getEnv("DB_SQLITE_PATH", "work_and_travel.db"),
	}

	jwtExpMinutes, err := strconv.Atoi(getEnv("JWT_EXPIRATION_MINUTES", "15"))
	if err != nil {
		return nil, fmt.Errorf("invalid JWT_EXPIRATION_MINUTES: %w", err)
	}

	jwtRefreshExpHours, err := strconv.Atoi(getEnv("JWT_REFRESH_EXPIRATION_HOURS", "168")) // 7 days
	if err != nil {
		return nil, fmt.Errorf("invalid JWT_REFRESH_EXPIRATION_HOURS: %w", err)
	}

	pageSize, err := strconv.Atoi(getEnv("OFFERS_PAGE_SIZE", "2"))
	if err != nil {
		return nil, fmt.Errorf("invalid OFFERS_PAGE_SIZE: %w", err)
	}

	cfg := &Config{
		Port:                      getEnv("PORT", "8000"),
		Origin:                    getEnv("ORIGIN", "http://localhost:3000"),
		Environment:               getEnv("APP_ENV", "development"),
		LogLevel:                  getEnv("LOG_LEVEL", "info"),
		JWTSecret:                 getEnv("JWT_SECRET", "default_jwt_secret"),
		JWTRefreshSecret:          getEnv("JWT_REFRESH_SECRET", "default_refresh_secret"),
		JWTExpirationMinutes:      jwtExpMinutes,
		JWTRefreshExpirationHours: jwtRefreshExpHours,
		OffersPageSize:            pageSize,
		Database:                  dbConfig,
	}

	if path == "" {
		path = os.Getenv("CONFIG_FILE")
	}
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open config file: %w", err)
		}
		defer f.Close()

		if err := yaml.NewDecoder(f).Decode(cfg); err != nil {
			return nil, fmt.Errorf("decode config file: %w", err)
		}
	}

	if cfg.OffersPageSize <= 0 {
		return nil, fmt.Errorf("offers page size must be positive, got %d", cfg.OffersPageSize)
	}

	if cfg.Database.DSN == "" {
		cfg.Database.DSN = cfg.Database.BuildDSN()
	}

	return cfg, nil
}

// BuildDSN returns the connection string for the configured driver.
func (d DatabaseConfig) BuildDSN() string {
	if d.Driver == DriverSQLite {
		return d.SQLitePath
	}
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		d.Username, d.Password, d.Host, d.Port, d.Name)
}

// Helper function to get environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}
