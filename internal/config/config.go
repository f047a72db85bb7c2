package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server struct {
		Port               int      `mapstructure:"port"`
		CorsAllowedOrigins []string `mapstructure:"cors_allowed_origins"`
		CorsAllowedMethods []string `mapstructure:"cors_allowed_methods"`
		CorsAllowedHeaders []string `mapstructure:"cors_allowed_headers"`
	} `mapstructure:"server"`

	Database DatabaseConfig `mapstructure:"database"`

	JWT struct {
		Secret          string `mapstructure:"secret"`
		ExpirationHours int    `mapstructure:"expiration_hours"`
		Issuer          string `mapstructure:"issuer"`
	} `mapstructure:"jwt"`

	Redis struct {
		Addr     string `mapstructure:"addr"`
		Password string `mapstructure:"password"`
		DB       int    `mapstructure:"db"`
	} `mapstructure:"redis"`

	Auth struct {
		SignupCode          string        `mapstructure:"signup_code"`
		ProfileFetchTimeout time.Duration `mapstructure:"profile_fetch_timeout"`
		LoginRateLimit      int           `mapstructure:"login_rate_limit"`
		LoginRateWindow     time.Duration `mapstructure:"login_rate_window"`
		TOTPIssuer          string        `mapstructure:"totp_issuer"`
	} `mapstructure:"auth"`

	Business struct {
		NamePart1   string `mapstructure:"name_part_1"`
		NamePart2   string `mapstructure:"name_part_2"`
		Description string `mapstructure:"description"`
		Timezone    string `mapstructure:"timezone"`
		AppVersion  string `mapstructure:"app_version"`
	} `mapstructure:"business"`

	Backup struct {
		Enabled   bool          `mapstructure:"enabled"`
		Endpoint  string        `mapstructure:"endpoint"`
		Region    string        `mapstructure:"region"`
		Bucket    string        `mapstructure:"bucket"`
		AccessKey string        `mapstructure:"access_key"`
		SecretKey string        `mapstructure:"secret_key"`
		Interval  time.Duration `mapstructure:"interval"`
	} `mapstructure:"backup"`

	Notify struct {
		AMQPURL string `mapstructure:"amqp_url"`
		Queue   string `mapstructure:"queue"`
	} `mapstructure:"notify"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
}

// ConnectionString builds a pgx DSN from the database section.
func (d DatabaseConfig) ConnectionString() string {
	sslMode := d.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, sslMode)
}

func Load() *Config {
	cfg, err := LoadFrom("configs/config.yaml")
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	return cfg
}

// LoadFrom reads the given YAML file (optional) plus environment overrides.
func LoadFrom(path string) (*Config, error) {
	// Load .env file if exists (ignore error in production)
	godotenv.Load()

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetConfigFile(path)

	v.AutomaticEnv()

	// Defaults so the binary works without a config file
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors_allowed_origins", []string{"*"})
	v.SetDefault("server.cors_allowed_methods", []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"})
	v.SetDefault("server.cors_allowed_headers", []string{"Authorization", "Content-Type"})
	v.SetDefault("jwt.expiration_hours", 24)
	v.SetDefault("jwt.issuer", "garage-backend")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.name", "garage_db")
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("auth.profile_fetch_timeout", 3*time.Second)
	v.SetDefault("auth.login_rate_limit", 10)
	v.SetDefault("auth.login_rate_window", time.Minute)
	v.SetDefault("auth.totp_issuer", "Garage")
	v.SetDefault("business.name_part_1", "GARAGE")
	v.SetDefault("business.name_part_2", "SERVICE")
	v.SetDefault("business.description", "Programari service auto")
	v.SetDefault("business.timezone", "Europe/Bucharest")
	v.SetDefault("business.app_version", "dev")
	v.SetDefault("backup.region", "auto")
	v.SetDefault("backup.interval", 6*time.Hour)
	v.SetDefault("notify.queue", "appointment_notifications")

	// Config file is optional
	if err := v.ReadInConfig(); err != nil {
		log.Printf("[Config] No config file found at %s, using defaults", path)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config unmarshal: %w", err)
	}

	applyEnvOverrides(&cfg)

	if cfg.JWT.Secret == "" || cfg.JWT.Secret == "${JWT_SECRET}" {
		return nil, fmt.Errorf("JWT_SECRET not set")
	}
	if cfg.Auth.ProfileFetchTimeout <= 0 {
		cfg.Auth.ProfileFetchTimeout = 3 * time.Second
	}

	return &cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if host := os.Getenv("DB_HOST"); host != "" {
		cfg.Database.Host = host
	}
	if port := os.Getenv("DB_PORT"); port != "" {
		if n, err := strconv.Atoi(port); err == nil && n > 0 {
			cfg.Database.Port = n
		}
	}
	if user := os.Getenv("DB_USER"); user != "" {
		cfg.Database.User = user
	}
	if pass := os.Getenv("DB_PASSWORD"); pass != "" {
		cfg.Database.Password = pass
	}
	if name := os.Getenv("DB_NAME"); name != "" {
		cfg.Database.Name = name
	}

	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		cfg.JWT.Secret = secret
	}

	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		cfg.Redis.Addr = addr
	}
	if pass := os.Getenv("REDIS_PASSWORD"); pass != "" {
		cfg.Redis.Password = pass
	}

	if code := os.Getenv("SIGNUP_CODE"); code != "" {
		cfg.Auth.SignupCode = code
	}

	if url := os.Getenv("AMQP_URL"); url != "" {
		cfg.Notify.AMQPURL = url
	}

	if bucket := os.Getenv("BACKUP_BUCKET"); bucket != "" {
		cfg.Backup.Bucket = bucket
		cfg.Backup.Enabled = true
	}
	if endpoint := os.Getenv("BACKUP_ENDPOINT"); endpoint != "" {
		cfg.Backup.Endpoint = endpoint
	}
	if key := os.Getenv("BACKUP_ACCESS_KEY"); key != "" {
		cfg.Backup.AccessKey = key
	}
	if secret := os.Getenv("BACKUP_SECRET_KEY"); secret != "" {
		cfg.Backup.SecretKey = secret
	}
}
