package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// DefaultPath is read when no config file is named and it exists.
const DefaultPath = "config.json"

const EnvDevelopment = "development"

// Config holds every setting the application needs. It is built once by
// Load and passed down explicitly.
type Config struct {
	ConnectionStrings struct {
		Main string `mapstructure:"main"`
	} `mapstructure:"connectionStrings"`

	Server     Server     `mapstructure:"server"`
	Database   Database   `mapstructure:"database"`
	Log        Log        `mapstructure:"log"`
	Migrations Migrations `mapstructure:"migrations"`
}

type Server struct {
	Port          int    `mapstructure:"port"`
	Env           string `mapstructure:"env"`
	SessionSecret string `mapstructure:"sessionSecret"`
	SessionName   string `mapstructure:"sessionName"`
}

// Database selects and sizes the connection pool.
type Database struct {
	Driver   string `mapstructure:"driver"`
	MaxConns int    `mapstructure:"maxConns"`
	FailFast bool   `mapstructure:"failFast"`
}

type Log struct {
	Level string `mapstructure:"level"`
}

type Migrations struct {
	Dir string `mapstructure:"dir"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("connectionStrings.main", "")
	v.SetDefault("server.port", 3010)
	v.SetDefault("server.env", EnvDevelopment)
	v.SetDefault("server.sessionSecret", "")
	v.SetDefault("server.sessionName", "webui.sid")
	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.maxConns", 10)
	v.SetDefault("database.failFast", false)
	v.SetDefault("log.level", "info")
	v.SetDefault("migrations.dir", "migrations")
}

// Load merges defaults, the config file at path (or DefaultPath when path is
// empty and the file exists), a .env file and the environment. Environment
// keys use the WEBUI_ prefix, e.g. WEBUI_DATABASE_MAXCONNS; PORT and
// DATABASE_URL are honoured as well.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("WEBUI")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("server.port", "WEBUI_SERVER_PORT", "PORT"); err != nil {
		return nil, fmt.Errorf("bind env: %w", err)
	}
	if err := v.BindEnv("connectionStrings.main", "WEBUI_CONNECTIONSTRINGS_MAIN", "DATABASE_URL"); err != nil {
		return nil, fmt.Errorf("bind env: %w", err)
	}

	if path == "" {
		if _, err := os.Stat(DefaultPath); err == nil {
			path = DefaultPath
		}
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the settings Load cannot default.
func (c *Config) Validate() error {
	var errs []error
	if c.ConnectionStrings.Main == "" {
		errs = append(errs, errors.New("connectionStrings.main is required"))
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	if c.Database.MaxConns < 0 || c.Database.MaxConns > math.MaxInt32 {
		errs = append(errs, fmt.Errorf("database.maxConns %d out of range", c.Database.MaxConns))
	}
	if !c.IsDevelopment() && c.Server.SessionSecret == "" {
		errs = append(errs, fmt.Errorf("server.sessionSecret is required in %s", c.Server.Env))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// IsDevelopment reports whether detailed errors may be shown to clients.
func (c *Config) IsDevelopment() bool {
	return c.Server.Env == EnvDevelopment
}
