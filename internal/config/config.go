// Package config loads server settings from defaults, an optional YAML
// file, the environment (and a .env file) and command-line flags, in that
// order of increasing precedence.
package config

import (
	stderrors "errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/abrezinsky/scoretally/internal/errors"
)

// EnvPrefix prefixes every environment variable read by Load
const EnvPrefix = "SCORETALLY_"

// Config holds server settings
type Config struct {
	ListenAddr    string        `yaml:"listen_addr" validate:"required"`
	DBPath        string        `yaml:"db_path" validate:"required"`
	AdminPassword string        `yaml:"admin_password"`
	LogLevel      string        `yaml:"log_level" validate:"oneof=debug info warn error"`
	LogFormat     string        `yaml:"log_format" validate:"oneof=text json"`
	HTTPLog       bool          `yaml:"http_log"`
	BaseURL       string        `yaml:"base_url" validate:"omitempty,url"`
	SessionTTL    time.Duration `yaml:"session_ttl" validate:"gte=1m"`

	// Set by flags only
	ShowVersion bool `yaml:"-"`
}

// Default returns the settings used when nothing overrides them
func Default() Config {
	return Config{
		ListenAddr: ":8081",
		DBPath:     "scoretally.db",
		LogLevel:   "info",
		LogFormat:  "text",
		SessionTTL: 12 * time.Hour,
	}
}

// LookupFunc reads one environment variable
type LookupFunc func(key string) (string, bool)

// Load reads configuration for the process: args are the command-line
// arguments without the program name.
func Load(args []string) (*Config, error) {
	return LoadWith(args, os.LookupEnv, os.Stderr)
}

// LoadWith is Load with an explicit environment and flag output
func LoadWith(args []string, lookup LookupFunc, output io.Writer) (*Config, error) {
	cfg := Default()

	fs := flag.NewFlagSet("scoretally", flag.ContinueOnError)
	fs.SetOutput(output)
	configPath := fs.String("config", "", "YAML configuration file")
	envFile := fs.String("env-file", ".env", "dotenv file read before the environment")
	listen := fs.String("listen", cfg.ListenAddr, "HTTP listen address")
	dbPath := fs.String("db", cfg.DBPath, "SQLite database path")
	adminPw := fs.String("adminpw", "", "admin password, \"auto\" to generate one; admin login is disabled when empty")
	logLevel := fs.String("loglevel", cfg.LogLevel, "log level: debug, info, warn, error")
	logFormat := fs.String("logformat", cfg.LogFormat, "log format: text, json")
	httpLog := fs.Bool("httplog", false, "log every HTTP request")
	baseURL := fs.String("baseurl", "", "public base URL used in judge login QR codes")
	ttl := fs.Duration("session-ttl", cfg.SessionTTL, "session lifetime")
	fs.BoolVar(&cfg.ShowVersion, "version", false, "show version and exit")

	if err := fs.Parse(args); err != nil {
		return nil, errors.Configuration(err, "invalid command line")
	}

	if *configPath != "" {
		if err := loadFile(&cfg, *configPath); err != nil {
			return nil, err
		}
	}

	explicit := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { explicit[f.Name] = true })

	dotenv, err := readDotenv(*envFile, explicit["env-file"])
	if err != nil {
		return nil, err
	}
	env := func(key string) (string, bool) {
		if v, ok := lookup(EnvPrefix + key); ok {
			return v, true
		}
		v, ok := dotenv[EnvPrefix+key]
		return v, ok
	}
	if err := applyEnv(&cfg, env); err != nil {
		return nil, err
	}

	// Flags set on the command line win over everything else
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "listen":
			cfg.ListenAddr = *listen
		case "db":
			cfg.DBPath = *dbPath
		case "adminpw":
			cfg.AdminPassword = *adminPw
		case "loglevel":
			cfg.LogLevel = *logLevel
		case "logformat":
			cfg.LogFormat = *logFormat
		case "httplog":
			cfg.HTTPLog = *httpLog
		case "baseurl":
			cfg.BaseURL = *baseURL
		case "session-ttl":
			cfg.SessionTTL = *ttl
		}
	})

	cfg.LogLevel = strings.ToLower(cfg.LogLevel)
	cfg.LogFormat = strings.ToLower(cfg.LogFormat)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func loadFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Configuration(err, "cannot read config file "+path)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return errors.Configuration(err, "invalid config file "+path)
	}
	return nil
}

// readDotenv reads path without touching the process environment. A
// missing default file is not an error; a missing explicit one is.
func readDotenv(path string, explicit bool) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}
	values, err := godotenv.Read(path)
	if err != nil {
		if !explicit && stderrors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, errors.Configuration(err, "cannot read env file "+path)
	}
	return values, nil
}

func applyEnv(cfg *Config, env LookupFunc) error {
	str := func(key string, dst *string) {
		if v, ok := env(key); ok {
			*dst = v
		}
	}
	str("LISTEN_ADDR", &cfg.ListenAddr)
	str("DB_PATH", &cfg.DBPath)
	str("ADMIN_PASSWORD", &cfg.AdminPassword)
	str("LOG_LEVEL", &cfg.LogLevel)
	str("LOG_FORMAT", &cfg.LogFormat)
	str("BASE_URL", &cfg.BaseURL)

	if v, ok := env("HTTP_LOG"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return errors.Configuration(err, EnvPrefix+"HTTP_LOG must be a boolean")
		}
		cfg.HTTPLog = b
	}
	if v, ok := env("SESSION_TTL"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return errors.Configuration(err, EnvPrefix+"SESSION_TTL must be a duration")
		}
		cfg.SessionTTL = d
	}
	return nil
}

// Validate checks the settings
func (c *Config) Validate() error {
	err := validator.New().Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !stderrors.As(err, &verrs) {
		return errors.Configuration(err, "invalid configuration")
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
	}
	return errors.Configuration(err, "invalid configuration: "+strings.Join(parts, ", "))
}
