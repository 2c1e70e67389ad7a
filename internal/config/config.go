package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config represents the engine configuration
type Config struct {
	Server     ServerConfig     `json:"server"`
	Database   DatabaseConfig   `json:"database"`
	Cache      CacheConfig      `json:"cache"`
	Forecast   ForecastConfig   `json:"forecast"`
	Replanning ReplanningConfig `json:"replanning"`
	Worker     WorkerConfig     `json:"worker"`
	Logging    LoggingConfig    `json:"logging"`
}

// ServerConfig represents HTTP server configuration
type ServerConfig struct {
	Host         string        `json:"host"`
	Port         int           `json:"port"`
	ReadTimeout  time.Duration `json:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout"`
	IdleTimeout  time.Duration `json:"idle_timeout"`
}

// DatabaseConfig represents database configuration
type DatabaseConfig struct {
	Host           string        `json:"host"`
	Port           int           `json:"port"`
	User           string        `json:"user"`
	Password       string        `json:"password"`
	DBName         string        `json:"db_name"`
	SSLMode        string        `json:"ssl_mode"`
	MaxConnections int           `json:"max_connections"`
	MaxIdleConns   int           `json:"max_idle_conns"`
	MaxLifetime    time.Duration `json:"max_lifetime"`
}

// CacheConfig controls the computed-result cache layer
type CacheConfig struct {
	MemoryTTL   time.Duration `json:"memory_ttl"`
	BaselineTTL time.Duration `json:"baseline_ttl"`
	ForecastTTL time.Duration `json:"forecast_ttl"`
}

// ForecastConfig controls the forecast engine
type ForecastConfig struct {
	LookbackYears  int           `json:"lookback_years"`
	ProphetURL     string        `json:"prophet_url"`
	ProphetTimeout time.Duration `json:"prophet_timeout"`
}

// ReplanningConfig controls the replanning engine
type ReplanningConfig struct {
	MonteCarloRuns    int           `json:"monte_carlo_runs"`
	MonteCarloWorkers int           `json:"monte_carlo_workers"`
	OptimizerURL      string        `json:"optimizer_url"`
	OptimizerTimeout  time.Duration `json:"optimizer_timeout"`
}

// WorkerConfig controls the cache refresh worker
type WorkerConfig struct {
	RefreshSchedule string `json:"refresh_schedule"`
	WarmBatchSize   int    `json:"warm_batch_size"`
	MaxConcurrent   int    `json:"max_concurrent"`
}

// LoggingConfig
type LoggingConfig struct {
	Level string `json:"level"`
}

// LoadConfig loads configuration from file and environment variables
func LoadConfig(configPath string) (*Config, error) {
	config := defaultConfig()

	// Load from file if exists
	if configPath != "" {
		if data, err := os.ReadFile(configPath); err == nil {
			if err := json.Unmarshal(data, config); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		}
	}

	// Override with environment variables
	overrideWithEnv(config)

	return config, nil
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		Database: DatabaseConfig{
			Host:           "localhost",
			Port:           5432,
			User:           os.Getenv("USER"),
			DBName:         "blipee_sustainability",
			SSLMode:        "disable",
			MaxConnections: 25,
			MaxIdleConns:   5,
			MaxLifetime:    30 * time.Minute,
		},
		Cache: CacheConfig{
			MemoryTTL:   5 * time.Minute,
			BaselineTTL: 24 * time.Hour,
			ForecastTTL: 6 * time.Hour,
		},
		Forecast: ForecastConfig{
			LookbackYears:  3,
			ProphetTimeout: 10 * time.Second,
		},
		Replanning: ReplanningConfig{
			MonteCarloRuns:    1000,
			MonteCarloWorkers: 4,
			OptimizerTimeout:  15 * time.Second,
		},
		Worker: WorkerConfig{
			RefreshSchedule: "0 * * * *",
			WarmBatchSize:   20,
			MaxConcurrent:   5,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

func overrideWithEnv(config *Config) {
	if host := os.Getenv("SERVER_HOST"); host != "" {
		config.Server.Host = host
	}
	if port := os.Getenv("SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if dbHost := os.Getenv("DATABASE_HOST"); dbHost != "" {
		config.Database.Host = dbHost
	}
	if dbPort := os.Getenv("DATABASE_PORT"); dbPort != "" {
		if p, err := strconv.Atoi(dbPort); err == nil {
			config.Database.Port = p
		}
	}
	if dbUser := os.Getenv("DATABASE_USER"); dbUser != "" {
		config.Database.User = dbUser
	}
	if dbPass := os.Getenv("DATABASE_PASSWORD"); dbPass != "" {
		config.Database.Password = dbPass
	}
	if dbName := os.Getenv("DATABASE_DBNAME"); dbName != "" {
		config.Database.DBName = dbName
	}
	if sslMode := os.Getenv("DATABASE_SSLMODE"); sslMode != "" {
		config.Database.SSLMode = sslMode
	}
	if prophetURL := os.Getenv("PROPHET_SERVICE_URL"); prophetURL != "" {
		config.Forecast.ProphetURL = prophetURL
	}
	if optimizerURL := os.Getenv("OPTIMIZER_SERVICE_URL"); optimizerURL != "" {
		config.Replanning.OptimizerURL = optimizerURL
	}
	if schedule := os.Getenv("CACHE_REFRESH_SCHEDULE"); schedule != "" {
		config.Worker.RefreshSchedule = schedule
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
}

// GetDatabaseURL returns the database connection string
func (c *DatabaseConfig) GetDatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode)
}

// GetServerAddr returns the server address
func (c *ServerConfig) GetServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
