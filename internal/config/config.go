// Package config loads the service configuration. Values are layered in the
// order defaults < JSON file < environment (including .env) < command-line
// flags and validated before use.
package config

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	env "github.com/caarlos0/env/v6"
	validator "github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Config is the explicit configuration object handed to the application at
// startup. Nothing else in the process reads the secret or the DSN.
type Config struct {
	RunAddr             string        `env:"SERVER_ADDRESS" validate:"hostname_port"`
	LogLevel            string        `env:"LOG_LEVEL" validate:"loglevel"`
	DatabaseDSN         string        `env:"DATABASE_URL"`
	DBFileName          string        `env:"FILE_STORAGE_PATH" validate:"filepath"`
	DBConnectionTimeout time.Duration `env:"DB_CONNECTION_TIMEOUT" validate:"gt=0"`
	SecretKey           string        `env:"SECRET_KEY" validate:"required"`
	SessionCookieName   string        `env:"SESSION_COOKIE_NAME" validate:"required"`
	SessionTTL          time.Duration `env:"SESSION_TTL" validate:"gt=0"`
	SessionCookieSecure bool          `env:"SESSION_COOKIE_SECURE"`
	AllowedOrigins      []string      `env:"CORS_ALLOWED_ORIGINS" envSeparator:","`
	RedisAddr           string        `env:"REDIS_ADDR" validate:"omitempty,hostname_port"`
	RedisPassword       string        `env:"REDIS_PASSWORD"`
	BcryptCost          int           `env:"BCRYPT_COST" validate:"gte=4,lte=31"`
	ConfigFile          string        `env:"CONFIG"`
}

type jsonConfig struct {
	RunAddr             *string  `json:"server_address"`
	LogLevel            *string  `json:"log_level"`
	DatabaseDSN         *string  `json:"database_url"`
	DBFileName          *string  `json:"file_storage_path"`
	DBConnectionTimeout *string  `json:"db_connection_timeout"`
	SecretKey           *string  `json:"secret_key"`
	SessionCookieName   *string  `json:"session_cookie_name"`
	SessionTTL          *string  `json:"session_ttl"`
	SessionCookieSecure *bool    `json:"session_cookie_secure"`
	AllowedOrigins      []string `json:"cors_allowed_origins"`
	RedisAddr           *string  `json:"redis_addr"`
	BcryptCost          *int     `json:"bcrypt_cost"`
}

var defaultConfig = Config{
	RunAddr:             ":8080",
	LogLevel:            "info",
	DatabaseDSN:         "",
	DBFileName:          "",
	DBConnectionTimeout: 10 * time.Second,
	SecretKey:           "dev-secret-key",
	SessionCookieName:   "session",
	SessionTTL:          24 * time.Hour,
	SessionCookieSecure: false,
	AllowedOrigins:      []string{"http://127.0.0.1:5500"},
	RedisAddr:           "",
	RedisPassword:       "",
	BcryptCost:          10,
}

// InitOption configures how New gathers the values.
type InitOption func(*initOptions)

type initOptions struct {
	disableFlagsParsing bool
	args                []string
}

// WithDisableFlagsParsing turns off command-line parsing, which is what tests
// and embedding callers usually want.
func WithDisableFlagsParsing(disableFlagsParsing bool) InitOption {
	return func(options *initOptions) {
		options.disableFlagsParsing = disableFlagsParsing
	}
}

// WithArgs replaces os.Args[1:] as the source of command-line flags.
func WithArgs(args []string) InitOption {
	return func(options *initOptions) {
		options.args = args
	}
}

// New builds and validates a Config.
func New(optionsProto ...InitOption) (*Config, error) {
	options := &initOptions{
		disableFlagsParsing: false,
		args:                os.Args[1:],
	}
	for _, protoOption := range optionsProto {
		protoOption(options)
	}

	err := godotenv.Load()
	if err != nil {
		log.Printf("Unable to load .env file: %v", err)
	}

	values := &Config{}
	applyDefaults(values, defaultConfig)

	var flagValues *Config
	var flagSet *flag.FlagSet
	if !options.disableFlagsParsing {
		flagValues = &Config{}
		flagSet = newFlagSet(flagValues)
		if err := flagSet.Parse(options.args); err != nil {
			return nil, err
		}
	}

	configFile := os.Getenv("CONFIG")
	if flagValues != nil && flagValues.ConfigFile != "" {
		configFile = flagValues.ConfigFile
	}
	if configFile != "" {
		if err := values.applyJSON(configFile); err != nil {
			return nil, err
		}
	}

	var valuesFromEnv Config
	if err := env.Parse(&valuesFromEnv); err != nil {
		return nil, err
	}
	values.override(&valuesFromEnv)

	if flagSet != nil {
		visited := map[string]bool{}
		flagSet.Visit(func(f *flag.Flag) { visited[f.Name] = true })
		values.overrideFromFlags(flagValues, visited)
	}

	if err := values.validate(); err != nil {
		return nil, err
	}

	return values, nil
}

func applyDefaults(values *Config, defaults Config) {
	*values = defaults
	values.AllowedOrigins = append([]string(nil), defaults.AllowedOrigins...)
}

func newFlagSet(values *Config) *flag.FlagSet {
	flagSet := flag.NewFlagSet(os.Args[0], flag.ContinueOnError)
	flagSet.StringVar(&values.RunAddr, "a", "", "address and port to run server")
	flagSet.StringVar(&values.LogLevel, "l", "", "logger level")
	flagSet.StringVar(&values.DatabaseDSN, "d", "", "PostgreSQL connection string")
	flagSet.StringVar(&values.DBFileName, "f", "", "SQLite database file")
	flagSet.StringVar(&values.SecretKey, "k", "", "session signing secret key")
	flagSet.StringVar(&values.RedisAddr, "r", "", "redis address for the session revocation list")
	flagSet.StringVar(&values.ConfigFile, "c", "", "path to a JSON configuration file")

	return flagSet
}

func (c *Config) applyJSON(fileName string) error {
	data, err := os.ReadFile(fileName)
	if err != nil {
		return fmt.Errorf("in internal/config/config.go/applyJSON(): error while `os.ReadFile()` calling: %w", err)
	}

	var fromJSON jsonConfig
	if err := json.Unmarshal(data, &fromJSON); err != nil {
		return fmt.Errorf("in internal/config/config.go/applyJSON(): error while `json.Unmarshal()` calling: %w", err)
	}

	if fromJSON.RunAddr != nil {
		c.RunAddr = *fromJSON.RunAddr
	}
	if fromJSON.LogLevel != nil {
		c.LogLevel = *fromJSON.LogLevel
	}
	if fromJSON.DatabaseDSN != nil {
		c.DatabaseDSN = *fromJSON.DatabaseDSN
	}
	if fromJSON.DBFileName != nil {
		c.DBFileName = *fromJSON.DBFileName
	}
	if fromJSON.DBConnectionTimeout != nil {
		timeout, err := time.ParseDuration(*fromJSON.DBConnectionTimeout)
		if err != nil {
			return fmt.Errorf("db_connection_timeout: %w", err)
		}
		c.DBConnectionTimeout = timeout
	}
	if fromJSON.SecretKey != nil {
		c.SecretKey = *fromJSON.SecretKey
	}
	if fromJSON.SessionCookieName != nil {
		c.SessionCookieName = *fromJSON.SessionCookieName
	}
	if fromJSON.SessionTTL != nil {
		ttl, err := time.ParseDuration(*fromJSON.SessionTTL)
		if err != nil {
			return fmt.Errorf("session_ttl: %w", err)
		}
		c.SessionTTL = ttl
	}
	if fromJSON.SessionCookieSecure != nil {
		c.SessionCookieSecure = *fromJSON.SessionCookieSecure
	}
	if len(fromJSON.AllowedOrigins) > 0 {
		c.AllowedOrigins = fromJSON.AllowedOrigins
	}
	if fromJSON.RedisAddr != nil {
		c.RedisAddr = *fromJSON.RedisAddr
	}
	if fromJSON.BcryptCost != nil {
		c.BcryptCost = *fromJSON.BcryptCost
	}

	return nil
}

func (c *Config) override(valuesFromEnv *Config) {
	if valuesFromEnv.RunAddr != "" {
		c.RunAddr = valuesFromEnv.RunAddr
	}

	if valuesFromEnv.LogLevel != "" {
		c.LogLevel = valuesFromEnv.LogLevel
	}

	if valuesFromEnv.DatabaseDSN != "" {
		c.DatabaseDSN = valuesFromEnv.DatabaseDSN
	}

	if valuesFromEnv.DBFileName != "" {
		c.DBFileName = valuesFromEnv.DBFileName
	}

	if valuesFromEnv.DBConnectionTimeout != 0 {
		c.DBConnectionTimeout = valuesFromEnv.DBConnectionTimeout
	}

	if valuesFromEnv.SecretKey != "" {
		c.SecretKey = valuesFromEnv.SecretKey
	}

	if valuesFromEnv.SessionCookieName != "" {
		c.SessionCookieName = valuesFromEnv.SessionCookieName
	}

	if valuesFromEnv.SessionTTL != 0 {
		c.SessionTTL = valuesFromEnv.SessionTTL
	}

	if valuesFromEnv.SessionCookieSecure {
		c.SessionCookieSecure = true
	}

	if len(valuesFromEnv.AllowedOrigins) > 0 {
		c.AllowedOrigins = valuesFromEnv.AllowedOrigins
	}

	if valuesFromEnv.RedisAddr != "" {
		c.RedisAddr = valuesFromEnv.RedisAddr
	}

	if valuesFromEnv.RedisPassword != "" {
		c.RedisPassword = valuesFromEnv.RedisPassword
	}

	if valuesFromEnv.BcryptCost != 0 {
		c.BcryptCost = valuesFromEnv.BcryptCost
	}
}

func (c *Config) overrideFromFlags(flagValues *Config, visited map[string]bool) {
	if visited["a"] {
		c.RunAddr = flagValues.RunAddr
	}
	if visited["l"] {
		c.LogLevel = flagValues.LogLevel
	}
	if visited["d"] {
		c.DatabaseDSN = flagValues.DatabaseDSN
	}
	if visited["f"] {
		c.DBFileName = flagValues.DBFileName
	}
	if visited["k"] {
		c.SecretKey = flagValues.SecretKey
	}
	if visited["r"] {
		c.RedisAddr = flagValues.RedisAddr
	}
}

func validateFilePath(fieldLevel validator.FieldLevel) bool {
	path := fieldLevel.Field().String()
	if path == "" {
		return true
	}
	_, err := os.Stat(path)

	return err == nil || os.IsNotExist(err)
}

func validateLogLevel(fieldLevel validator.FieldLevel) bool {
	value := fieldLevel.Field().String()

	allowedLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
		"fatal": true,
	}

	return allowedLogLevels[value]
}

func (c *Config) validate() error {
	validate := validator.New()

	err := validate.RegisterValidation("loglevel", validateLogLevel)
	if err != nil {
		return err
	}

	err = validate.RegisterValidation("filepath", validateFilePath)
	if err != nil {
		return err
	}

	return validate.Struct(c)
}
