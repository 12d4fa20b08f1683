// Package config loads database settings from the environment.
//
// Variables are read with the DB_ prefix, lowercased, and mapped onto
// Config by their koanf tags: DB_DIALECT sets Dialect, DB_SSL_MODE sets
// SSLMode, and so on. Files passed to Load are read with godotenv first;
// variables already present in the environment win over them.
package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-sql-driver/mysql"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// Prefix is the environment variable prefix.
const Prefix = "DB_"

// Config is the connection configuration.
type Config struct {
	// Dialect is one of mysql, postgres or sqlite.
	Dialect string `koanf:"dialect" validate:"required,oneof=mysql postgres sqlite"`
	// URL is a complete DSN. When set, the discrete fields below are
	// ignored by DSN.
	URL string `koanf:"url"`

	Host     string `koanf:"host"`
	Port     int    `koanf:"port" validate:"omitempty,min=1,max=65535"`
	User     string `koanf:"user"`
	Password string `koanf:"password"`
	// Name is the database name, or the file name for sqlite.
	Name    string `koanf:"name" validate:"required_without=URL"`
	SSLMode string `koanf:"ssl_mode" validate:"omitempty,oneof=disable allow prefer require verify-ca verify-full"`

	// UsePool keeps a connection pool. When false a single connection is used.
	UsePool         bool          `koanf:"use_pool"`
	MaxOpenConns    int           `koanf:"max_open_conns" validate:"min=0"`
	MaxIdleConns    int           `koanf:"max_idle_conns" validate:"min=0"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime" validate:"min=0"`
	ConnectTimeout  time.Duration `koanf:"connect_timeout" validate:"min=0"`

	// Debug logs every statement.
	Debug bool `koanf:"debug"`
	// SlowThreshold enables statistics and logs statements slower than it.
	SlowThreshold time.Duration `koanf:"slow_threshold" validate:"min=0"`

	// CacheSize enables an in-memory row cache holding that many entries.
	CacheSize int           `koanf:"cache_size" validate:"min=0"`
	CacheTTL  time.Duration `koanf:"cache_ttl" validate:"min=0"`
}

// Default returns the configuration used for unset variables.
func Default() *Config {
	return &Config{
		Dialect:         "mysql",
		UsePool:         true,
		MaxOpenConns:    10,
		MaxIdleConns:    5,
		ConnMaxLifetime: time.Hour,
		ConnectTimeout:  10 * time.Second,
		CacheTTL:        5 * time.Minute,
	}
}

// Load reads the given dotenv files (missing ones are skipped), then the
// DB_* environment variables, and validates the result.
func Load(files ...string) (*Config, error) {
	var existing []string
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			existing = append(existing, f)
		}
	}
	if len(existing) > 0 {
		if err := godotenv.Load(existing...); err != nil {
			return nil, fmt.Errorf("config: loading %s: %w", strings.Join(existing, ", "), err)
		}
	}
	k := koanf.New(".")
	err := k.Load(env.Provider(Prefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, Prefix))
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("config: reading environment: %w", err)
	}
	cfg := Default()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("config: decoding: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the field constraints.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, len(verrs))
			for i, fe := range verrs {
				msgs[i] = fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag())
			}
			return fmt.Errorf("config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// DriverName returns the database/sql driver registered for the dialect.
func (c *Config) DriverName() string {
	return c.Dialect
}

// DSN returns the data source name for the dialect.
func (c *Config) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	switch c.Dialect {
	case "mysql":
		mc := mysql.NewConfig()
		mc.User = c.User
		mc.Passwd = c.Password
		mc.Net = "tcp"
		mc.Addr = net.JoinHostPort(c.host(), strconv.Itoa(c.port(3306)))
		mc.DBName = c.Name
		mc.ParseTime = true
		if c.ConnectTimeout > 0 {
			mc.Timeout = c.ConnectTimeout
		}
		return mc.FormatDSN()
	case "postgres":
		u := &url.URL{
			Scheme: "postgres",
			Host:   net.JoinHostPort(c.host(), strconv.Itoa(c.port(5432))),
			Path:   "/" + c.Name,
		}
		switch {
		case c.User != "" && c.Password != "":
			u.User = url.UserPassword(c.User, c.Password)
		case c.User != "":
			u.User = url.User(c.User)
		}
		q := url.Values{}
		if c.SSLMode != "" {
			q.Set("sslmode", c.SSLMode)
		}
		if c.ConnectTimeout > 0 {
			q.Set("connect_timeout", strconv.Itoa(int(c.ConnectTimeout.Seconds())))
		}
		u.RawQuery = q.Encode()
		return u.String()
	default:
		return c.Name
	}
}

func (c *Config) host() string {
	if c.Host == "" {
		return "localhost"
	}
	return c.Host
}

func (c *Config) port(def int) int {
	if c.Port == 0 {
		return def
	}
	return c.Port
}
