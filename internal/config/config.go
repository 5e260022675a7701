package config

import (
	"errors"
	"fmt"
	"io/fs"
	"math"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/pool-weather-logger/internal/domain"
	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"github.com/google/shlex"
	"github.com/joho/godotenv"
)

// Supported values for DB_DRIVER.
const (
	DriverPostgres = "pgx"
	DriverSQLite   = "sqlite"
)

// DefaultEnvFile is read before the environment when ENV_FILE is unset.
const DefaultEnvFile = "config/secrets.env"

// Config holds all service settings, populated from environment variables.
// It is built once at startup and never modified afterwards.
type Config struct {
	// Weather provider.
	WeatherAPIKey  string
	WeatherBaseURL string
	WeatherTimeout time.Duration
	Latitude       float64
	Longitude      float64

	// Receiver and acceptance filter.
	ReceiverCommand []string
	TargetSensorID  int64
	ModelPrefix     string
	SensorLocation  *time.Location

	// Database.
	DBDriver    string
	DatabaseURL string
	DBName      string
	DBUser      string
	DBPass      string
	DBHost      string
	DBPort      int
	DBSSLMode   string
	SQLitePath  string

	// Create the logs table at startup. Off for roles that may only INSERT.
	DBAutoMigrate bool

	// Optional record fan-out; disabled when KafkaBrokers is empty.
	KafkaBrokers []string
	KafkaTopic   string

	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration
}

// Load reads configuration from the environment, after merging in the
// dotenv file named by ENV_FILE. Variables already set in the environment
// take precedence over the file. Any missing or malformed required setting
// is an error.
func Load() (*Config, error) {
	if err := loadEnvFile(sharedcfg.EnvOrDefault("ENV_FILE", DefaultEnvFile)); err != nil {
		return nil, err
	}

	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	weatherTimeout, err := time.ParseDuration(sharedcfg.EnvOrDefault("WEATHER_TIMEOUT", "10s"))
	if err != nil || weatherTimeout <= 0 {
		return nil, errors.New("invalid WEATHER_TIMEOUT")
	}

	targetID, err := parseSensorID()
	if err != nil {
		return nil, err
	}

	lat, err := parseCoordinate("LAT", 90)
	if err != nil {
		return nil, err
	}
	lon, err := parseCoordinate("LON", 180)
	if err != nil {
		return nil, err
	}

	receiverCmd, err := shlex.Split(sharedcfg.EnvOrDefault("RECEIVER_COMMAND", "rtl_433 -F json"))
	if err != nil {
		return nil, fmt.Errorf("invalid RECEIVER_COMMAND: %w", err)
	}
	if len(receiverCmd) == 0 {
		return nil, errors.New("RECEIVER_COMMAND is empty")
	}

	loc, err := time.LoadLocation(sharedcfg.EnvOrDefault("SENSOR_TIMEZONE", "Local"))
	if err != nil {
		return nil, fmt.Errorf("invalid SENSOR_TIMEZONE: %w", err)
	}

	dbPort, err := strconv.Atoi(sharedcfg.EnvOrDefault("DB_PORT", "5432"))
	if err != nil || dbPort <= 0 || dbPort > 65535 {
		return nil, errors.New("invalid DB_PORT")
	}

	autoMigrate, err := strconv.ParseBool(sharedcfg.EnvOrDefault("DB_AUTO_MIGRATE", "true"))
	if err != nil {
		return nil, errors.New("invalid DB_AUTO_MIGRATE")
	}

	var brokers []string
	if v := strings.TrimSpace(os.Getenv("KAFKA_BROKERS")); v != "" {
		brokers = sharedcfg.ParseBrokers(v)
	}

	cfg := &Config{
		WeatherAPIKey:  os.Getenv("OWM_API_KEY"),
		WeatherBaseURL: strings.TrimRight(sharedcfg.EnvOrDefault("WEATHER_BASE_URL", "https://api.openweathermap.org"), "/"),
		WeatherTimeout: weatherTimeout,
		Latitude:       lat,
		Longitude:      lon,

		ReceiverCommand: receiverCmd,
		TargetSensorID:  targetID,
		ModelPrefix:     sharedcfg.EnvOrDefault("SENSOR_MODEL_PREFIX", domain.DefaultModelPrefix),
		SensorLocation:  loc,

		DBDriver:    strings.ToLower(sharedcfg.EnvOrDefault("DB_DRIVER", DriverPostgres)),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		DBName:      os.Getenv("DB_NAME"),
		DBUser:      os.Getenv("DB_USER"),
		DBPass:      os.Getenv("DB_PASS"),
		DBHost:      sharedcfg.EnvOrDefault("DB_HOST", "localhost"),
		DBPort:      dbPort,
		DBSSLMode:   sharedcfg.EnvOrDefault("DB_SSLMODE", "disable"),
		SQLitePath:  sharedcfg.EnvOrDefault("SQLITE_PATH", "data/pool.db"),

		DBAutoMigrate: autoMigrate,

		KafkaBrokers: brokers,
		KafkaTopic:   sharedcfg.EnvOrDefault("KAFKA_TOPIC", "pool-readings"),

		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,
	}

	if cfg.WeatherAPIKey == "" {
		return nil, errors.New("OWM_API_KEY is required")
	}
	switch cfg.DBDriver {
	case DriverPostgres:
		if cfg.DatabaseURL == "" && cfg.DBName == "" {
			return nil, errors.New("DB_NAME is required")
		}
		if cfg.DatabaseURL == "" && cfg.DBUser == "" {
			return nil, errors.New("DB_USER is required")
		}
	case DriverSQLite:
		if cfg.SQLitePath == "" {
			return nil, errors.New("SQLITE_PATH is required")
		}
	default:
		return nil, fmt.Errorf("invalid DB_DRIVER %q (allowed: %s, %s)", cfg.DBDriver, DriverPostgres, DriverSQLite)
	}
	if cfg.KafkaTopic == "" && len(cfg.KafkaBrokers) > 0 {
		return nil, errors.New("KAFKA_TOPIC is required when KAFKA_BROKERS is set")
	}

	return cfg, nil
}

// DSN returns the data source name for the configured driver. For PostgreSQL
// every credential field is used, and DATABASE_URL wins when present.
func (c *Config) DSN() string {
	if c.DBDriver == DriverSQLite {
		return c.SQLitePath
	}
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	u := url.URL{
		Scheme:   "postgres",
		Host:     net.JoinHostPort(c.DBHost, strconv.Itoa(c.DBPort)),
		Path:     "/" + c.DBName,
		RawQuery: url.Values{"sslmode": {c.DBSSLMode}}.Encode(),
	}
	if c.DBPass != "" {
		u.User = url.UserPassword(c.DBUser, c.DBPass)
	} else {
		u.User = url.User(c.DBUser)
	}
	return u.String()
}

// RedactedDSN is DSN with the password masked, for logging.
func (c *Config) RedactedDSN() string {
	dsn := c.DSN()
	u, err := url.Parse(dsn)
	if err != nil || u.Scheme == "" {
		return dsn
	}
	return u.Redacted()
}

func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load ENV_FILE %s: %w", path, err)
	}
	return nil
}

func parseSensorID() (int64, error) {
	s := strings.TrimSpace(os.Getenv("TARGET_SENSOR_ID"))
	if s == "" {
		return 0, errors.New("TARGET_SENSOR_ID is required")
	}
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid TARGET_SENSOR_ID %q: must be an integer", s)
	}
	return id, nil
}

func parseCoordinate(key string, limit float64) (float64, error) {
	s := strings.TrimSpace(os.Getenv(key))
	if s == "" {
		return 0, fmt.Errorf("%s is required", key)
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.Abs(v) > limit {
		return 0, fmt.Errorf("invalid %s %q", key, s)
	}
	return v, nil
}
