package config

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

const (
	DriverSupabase = "supabase"
	DriverPostgres = "postgres"
	DriverMysql    = "mysql"
	DriverSqlite   = "sqlite"
)

type Config struct {
	Environment Environment
	Log         Log
	HTTP        HTTPServer
	BaseURL     string `env:"BASE_URL" envDefault:"http://localhost:3000"`

	Supabase  Supabase  `envPrefix:"SUPABASE_"`
	Store     Store     `envPrefix:"STORE_"`
	Storage   Storage   `envPrefix:"STORAGE_"`
	Redis     Redis     `envPrefix:"REDIS_"`
	Shop      Shop      `envPrefix:"SHOP_"`
	Auth      Auth      `envPrefix:"AUTH_"`
	RateLimit RateLimit `envPrefix:"RATE_LIMIT_"`
	Sweeper   Sweeper   `envPrefix:"SWEEPER_"`
}

type Environment struct {
	Name string `env:"ENVIRONMENT" envDefault:"development"`
}

type Log struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"json"`
}

type HTTPServer struct {
	Host string `env:"HTTP_HOST" envDefault:"0.0.0.0"`
	Port string `env:"HTTP_PORT" envDefault:"8080"`
	// TrustedProxies lists the CIDR ranges whose X-Forwarded-For header is
	// believed. Empty means the peer address is the client.
	TrustedProxies []string `env:"HTTP_TRUSTED_PROXIES" envSeparator:","`
}

func (h HTTPServer) ProxyNets() ([]*net.IPNet, error) {
	nets := make([]*net.IPNet, 0, len(h.TrustedProxies))
	for _, cidr := range h.TrustedProxies {
		cidr = strings.TrimSpace(cidr)
		if cidr == "" {
			continue
		}
		_, ipNet, err := net.ParseCIDR(cidr)
		if err != nil {
			return nil, fmt.Errorf("HTTP_TRUSTED_PROXIES: invalid CIDR %q", cidr)
		}
		nets = append(nets, ipNet)
	}
	return nets, nil
}

type Supabase struct {
	URL        string `env:"URL"`
	AnonKey    string `env:"ANON_KEY"`
	ServiceKey string `env:"SERVICE_KEY"`
	JWTSecret  string `env:"JWT_SECRET"`
}

// Store selects the persistence backend. "supabase" talks to PostgREST,
// the rest open a gorm connection on DatabaseURL.
type Store struct {
	Driver      string `env:"DRIVER" envDefault:"supabase"`
	DatabaseURL string `env:"DATABASE_URL"`
}

// Storage holds the object storage bucket. With a SQL store driver the files
// go to LocalDir instead and are served under /uploads.
type Storage struct {
	Bucket   string `env:"BUCKET" envDefault:"profiles"`
	LocalDir string `env:"LOCAL_DIR" envDefault:"./uploads"`
}

type Redis struct {
	Addr     string        `env:"ADDR"`
	Password string        `env:"PASSWORD"`
	DB       int           `env:"DB" envDefault:"0"`
	TTL      time.Duration `env:"TTL" envDefault:"60s"`
}

type Shop struct {
	PageSize int `env:"PAGE_SIZE" envDefault:"9"`
}

type Auth struct {
	DebounceWindow     time.Duration `env:"DEBOUNCE_WINDOW" envDefault:"300ms"`
	ProfileWaitTimeout time.Duration `env:"PROFILE_WAIT_TIMEOUT" envDefault:"5s"`
	MaxSessions        int           `env:"MAX_SESSIONS" envDefault:"10000"`
	AdminEmailSuffix   string        `env:"ADMIN_EMAIL_SUFFIX" envDefault:"@admin.com"`
}

type RateLimit struct {
	RPS   float64 `env:"RPS" envDefault:"5"`
	Burst int     `env:"BURST" envDefault:"10"`
}

type Sweeper struct {
	Schedule  string        `env:"SCHEDULE" envDefault:"@every 10m"`
	OrphanAge time.Duration `env:"ORPHAN_AGE" envDefault:"15m"`
}

// Load parses the process environment. .env loading is left to the caller.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []error

	if c.Supabase.URL == "" {
		errs = append(errs, errors.New("SUPABASE_URL is required"))
	}
	if c.Supabase.AnonKey == "" {
		errs = append(errs, errors.New("SUPABASE_ANON_KEY is required"))
	}

	switch c.Store.Driver {
	case DriverSupabase:
	case DriverPostgres, DriverMysql, DriverSqlite:
		if c.Store.DatabaseURL == "" {
			errs = append(errs, fmt.Errorf("STORE_DATABASE_URL is required for driver %q", c.Store.Driver))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown STORE_DRIVER %q", c.Store.Driver))
	}

	if _, err := c.HTTP.ProxyNets(); err != nil {
		errs = append(errs, err)
	}
	if c.Shop.PageSize <= 0 {
		errs = append(errs, errors.New("SHOP_PAGE_SIZE must be positive"))
	}
	if c.Auth.MaxSessions <= 0 {
		errs = append(errs, errors.New("AUTH_MAX_SESSIONS must be positive"))
	}

	return errors.Join(errs...)
}

// SQL reports whether the configured store is a gorm connection.
func (c *Config) SQL() bool {
	return c.Store.Driver != DriverSupabase
}

func (c *Config) Addr() string {
	return c.HTTP.Host + ":" + c.HTTP.Port
}
