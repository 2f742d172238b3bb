package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Telegram  TelegramConfig  `mapstructure:"telegram"`
	Database  DatabaseConfig  `mapstructure:"database"`
	AutoReply AutoReplyConfig `mapstructure:"autoreply"`
}

type ServerConfig struct {
	Port        int             `mapstructure:"port"`
	CORSOrigins []string        `mapstructure:"cors_origins"`
	RateLimit   RateLimitConfig `mapstructure:"rate_limit"`
}

type RateLimitConfig struct {
	RequestsPerMinute int `mapstructure:"requests_per_minute"`
	Burst             int `mapstructure:"burst"`
}

type TelegramConfig struct {
	Token    string  `mapstructure:"token"`
	TenantID string  `mapstructure:"tenant_id"`
	AdminIDs []int64 `mapstructure:"admin_ids"`
}

type DatabaseConfig struct {
	Host        string `mapstructure:"host"`
	Port        int    `mapstructure:"port"`
	User        string `mapstructure:"user"`
	Password    string `mapstructure:"password"`
	DBName      string `mapstructure:"dbname"`
	SSLMode     string `mapstructure:"sslmode"`
	UseInMemory bool   `mapstructure:"use_in_memory"`
}

// Suppression store backends.
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
)

type AutoReplyConfig struct {
	RateLimitInterval  time.Duration `mapstructure:"rate_limit_interval"`
	DuplicateWindow    time.Duration `mapstructure:"duplicate_window"`
	SweepInterval      time.Duration `mapstructure:"sweep_interval"`
	JanitorInterval    time.Duration `mapstructure:"janitor_interval"`
	SuppressionBackend string        `mapstructure:"suppression_backend"`
	SQLitePath         string        `mapstructure:"sqlite_path"`
	StopwordsFile      string        `mapstructure:"stopwords_file"`
}

func parseDatabaseURL(dbURL string) (DatabaseConfig, error) {
	u, err := url.Parse(dbURL)
	if err != nil {
		return DatabaseConfig{}, err
	}

	password, _ := u.User.Password()
	port := 5432 // default PostgreSQL port
	if u.Port() != "" {
		if _, err := fmt.Sscanf(u.Port(), "%d", &port); err != nil {
			return DatabaseConfig{}, fmt.Errorf("invalid port %q: %w", u.Port(), err)
		}
	}

	sslMode := u.Query().Get("sslmode")
	if sslMode == "" {
		sslMode = "disable"
	}

	// Remove leading slash from path to get database name
	dbName := strings.TrimPrefix(u.Path, "/")

	return DatabaseConfig{
		Host:     u.Hostname(),
		Port:     port,
		User:     u.User.Username(),
		Password: password,
		DBName:   dbName,
		SSLMode:  sslMode,
	}, nil
}

// LoadConfig reads path (if it exists) on top of the defaults, then applies
// environment overrides. A .env file in the working directory is loaded
// into the environment first.
func LoadConfig(path string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()

	// Set default values
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("server.rate_limit.requests_per_minute", 300)
	v.SetDefault("server.rate_limit.burst", 50)
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.use_in_memory", false)
	v.SetDefault("autoreply.rate_limit_interval", 5*time.Second)
	v.SetDefault("autoreply.duplicate_window", 60*time.Second)
	v.SetDefault("autoreply.sweep_interval", time.Duration(0))
	v.SetDefault("autoreply.janitor_interval", time.Minute)
	v.SetDefault("autoreply.suppression_backend", BackendMemory)
	v.SetDefault("autoreply.sqlite_path", "suppression.db")

	// Enable environment variable support, e.g. AUTOREPLY_DUPLICATE_WINDOW
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	// Check for DATABASE_URL environment variable
	if dbURL := v.GetString("DATABASE_URL"); dbURL != "" {
		dbConfig, err := parseDatabaseURL(dbURL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse DATABASE_URL: %w", err)
		}
		dbConfig.UseInMemory = config.Database.UseInMemory
		config.Database = dbConfig
	}

	if token := v.GetString("TELEGRAM_TOKEN"); token != "" {
		config.Telegram.Token = token
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate rejects settings the auto-reply engine cannot run with.
func (c *Config) Validate() error {
	ar := c.AutoReply
	if ar.RateLimitInterval < 0 || ar.DuplicateWindow < 0 || ar.SweepInterval < 0 {
		return errors.New("autoreply intervals must not be negative")
	}
	if ar.DuplicateWindow < ar.RateLimitInterval {
		return fmt.Errorf("autoreply.duplicate_window (%s) must not be shorter than rate_limit_interval (%s)",
			ar.DuplicateWindow, ar.RateLimitInterval)
	}

	switch ar.SuppressionBackend {
	case BackendMemory, BackendSQLite:
	case BackendPostgres:
		if c.Database.UseInMemory {
			return errors.New("autoreply.suppression_backend postgres requires database.use_in_memory=false")
		}
	default:
		return fmt.Errorf("unknown autoreply.suppression_backend %q", ar.SuppressionBackend)
	}

	if c.Server.RateLimit.RequestsPerMinute < 0 || c.Server.RateLimit.Burst < 0 {
		return errors.New("server.rate_limit values must not be negative")
	}
	return nil
}
