package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
)

// Config aggregates every tunable part of the application.
type Config struct {
	App       AppConfig
	DB        DBConfig
	Log       LogConfig
	Swagger   SwaggerConfig
	Auth      AuthConfig
	Redis     RedisConfig
	RabbitMQ  RabbitMQConfig
	Breaker   BreakerConfig
	Reminders ReminderConfig
}

// AppConfig contains settings related to the HTTP server.
type AppConfig struct {
	Port            string
	Env             string
	Timezone        string
	CORSOrigins     []string
	ShutdownTimeout time.Duration
	HealthAddr      string
}

// Location resolves Timezone, falling back to UTC.
func (a AppConfig) Location() (*time.Location, error) {
	if a.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(a.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", a.Timezone, err)
	}
	return loc, nil
}

// DBConfig represents PostgreSQL connection settings.
type DBConfig struct {
	URL             string
	Host            string
	Port            string
	User            string
	Password        string
	Name            string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// DSN returns URL when set, otherwise builds the postgres connection string
// from the individual fields.
func (db DBConfig) DSN() string {
	if db.URL != "" {
		return db.URL
	}

	host := db.Host
	if host == "" {
		host = "localhost"
	}

	port := db.Port
	if port == "" {
		port = "5432"
	}

	sslMode := db.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}

	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(db.User, db.Password),
		Host:     host + ":" + port,
		Path:     "/" + db.Name,
		RawQuery: "sslmode=" + url.QueryEscape(sslMode),
	}
	return u.String()
}

// LogConfig controls logger behavior.
type LogConfig struct {
	Level  string
	Format string
}

// SwaggerConfig configures the generated documentation.
type SwaggerConfig struct {
	Host string
}

// AuthConfig holds the bearer token verification settings.
type AuthConfig struct {
	JWTSecret string
	Issuer    string
	Audience  string
}

type RedisConfig struct {
	URL        string
	SummaryTTL time.Duration
}

type RabbitMQConfig struct {
	URL      string
	Exchange string
}

type BreakerConfig struct {
	FailureThreshold int
	OpenTimeout      time.Duration
}

type ReminderConfig struct {
	Interval time.Duration
	LeadDays int
}

// Load reads environment variables (and a .env file when present) and
// validates the final configuration.
func Load() (Config, error) {
	_ = godotenv.Load(".env")

	cfg := Config{
		App: AppConfig{
			Port:            getEnv("APP_PORT", "8080"),
			Env:             getEnv("APP_ENV", "dev"),
			Timezone:        getEnv("APP_TIMEZONE", "UTC"),
			CORSOrigins:     getListEnv("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
			ShutdownTimeout: getDurationEnv("SHUTDOWN_TIMEOUT", 10*time.Second),
			HealthAddr:      getEnv("WORKER_HEALTH_ADDR", ":8081"),
		},
		DB: DBConfig{
			URL:             getEnv("DATABASE_URL", ""),
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnv("DB_PORT", "5432"),
			User:            getEnv("DB_USER", ""),
			Password:        getEnv("DB_PASSWORD", ""),
			Name:            getEnv("DB_NAME", ""),
			SSLMode:         getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:    getIntEnv("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    getIntEnv("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getDurationEnv("DB_CONN_MAX_LIFETIME", time.Hour),
		},
		Log: LogConfig{
			Level:  strings.ToLower(getEnv("LOG_LEVEL", "info")),
			Format: strings.ToLower(getEnv("LOG_FORMAT", "json")),
		},
		Swagger: SwaggerConfig{
			Host: getEnv("SWAGGER_HOST", ""),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("JWT_SECRET", ""),
			Issuer:    getEnv("JWT_ISSUER", ""),
			Audience:  getEnv("JWT_AUDIENCE", ""),
		},
		Redis: RedisConfig{
			URL:        getEnv("REDIS_URL", ""),
			SummaryTTL: getDurationEnv("DASHBOARD_CACHE_TTL", 5*time.Minute),
		},
		RabbitMQ: RabbitMQConfig{
			URL:      getEnv("RABBITMQ_URL", ""),
			Exchange: getEnv("RABBITMQ_EXCHANGE", "schnei.analytics"),
		},
		Breaker: BreakerConfig{
			FailureThreshold: getIntEnv("BREAKER_FAILURE_THRESHOLD", 5),
			OpenTimeout:      getDurationEnv("BREAKER_OPEN_TIMEOUT", 30*time.Second),
		},
		Reminders: ReminderConfig{
			Interval: getDurationEnv("REMINDER_INTERVAL", time.Hour),
			LeadDays: getIntEnv("REMINDER_LEAD_DAYS", 3),
		},
	}

	if cfg.Swagger.Host == "" {
		cfg.Swagger.Host = fmt.Sprintf("localhost:%s", cfg.App.Port)
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (cfg Config) validate() error {
	var missing []string

	if cfg.DB.URL == "" {
		if cfg.DB.User == "" {
			missing = append(missing, "DB_USER")
		}
		if cfg.DB.Password == "" {
			missing = append(missing, "DB_PASSWORD")
		}
		if cfg.DB.Name == "" {
			missing = append(missing, "DB_NAME")
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}

	switch cfg.Log.Format {
	case "json", "text":
	default:
		return fmt.Errorf("invalid LOG_FORMAT %q: want json or text", cfg.Log.Format)
	}

	if cfg.Reminders.LeadDays < 0 {
		return errors.New("REMINDER_LEAD_DAYS must not be negative")
	}

	if _, err := cfg.App.Location(); err != nil {
		return err
	}

	return nil
}

// RequireAuth reports an error when the API cannot verify tokens.
func (cfg Config) RequireAuth() error {
	if cfg.Auth.JWTSecret == "" {
		return errors.New("missing required configuration: JWT_SECRET")
	}
	return nil
}

func (cfg Config) IsProduction() bool {
	return cfg.App.Env == "prod" || cfg.App.Env == "production"
}

func getEnv(key, fallback string) string {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return fallback
	}
	return value
}

func getIntEnv(key string, fallback int) int {
	if v, err := strconv.Atoi(getEnv(key, "")); err == nil {
		return v
	}
	return fallback
}

func getDurationEnv(key string, fallback time.Duration) time.Duration {
	if d, err := time.ParseDuration(getEnv(key, "")); err == nil {
		return d
	}
	return fallback
}

func getListEnv(key string, fallback []string) []string {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
