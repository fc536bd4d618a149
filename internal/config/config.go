// Package config loads the process configuration once at startup into an
// immutable Config value that is passed to every component.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/faucetdb/touchline/internal/connector"
)

// MinSigningKeyLen is the shortest HS256 key accepted outside dev mode.
const MinSigningKeyLen = 32

// Config is the complete service configuration.
type Config struct {
	Database DatabaseConfig `mapstructure:"database" yaml:"database"`
	Auth     AuthConfig     `mapstructure:"auth" yaml:"auth"`
	Server   ServerConfig   `mapstructure:"server" yaml:"server"`
	Catalog  CatalogConfig  `mapstructure:"catalog" yaml:"catalog"`
	Images   ImagesConfig   `mapstructure:"images" yaml:"images"`
	Log      LogConfig      `mapstructure:"log" yaml:"log"`
	MCP      MCPConfig      `mapstructure:"mcp" yaml:"mcp"`
}

// DatabaseConfig selects the dialect and connection pool.
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver" yaml:"driver"`
	DSN             string        `mapstructure:"dsn" yaml:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns" yaml:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns" yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime" yaml:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time" yaml:"conn_max_idle_time"`
}

// Connection converts the database section for connector.Registry.Open.
func (d DatabaseConfig) Connection() connector.ConnectionConfig {
	return connector.ConnectionConfig{
		Dialect:         d.Driver,
		DSN:             d.DSN,
		MaxOpenConns:    d.MaxOpenConns,
		MaxIdleConns:    d.MaxIdleConns,
		ConnMaxLifetime: d.ConnMaxLifetime,
		ConnMaxIdleTime: d.ConnMaxIdleTime,
	}
}

// AuthConfig controls token issuance.
type AuthConfig struct {
	SigningKey string        `mapstructure:"signing_key" yaml:"signing_key"`
	Issuer     string        `mapstructure:"issuer" yaml:"issuer"`
	Audience   string        `mapstructure:"audience" yaml:"audience"`
	TokenTTL   time.Duration `mapstructure:"token_ttl" yaml:"token_ttl"`
	AdminRole  string        `mapstructure:"admin_role" yaml:"admin_role"`
}

// ServerConfig controls the HTTP server behavior.
type ServerConfig struct {
	Host            string        `mapstructure:"host" yaml:"host"`
	Port            int           `mapstructure:"port" yaml:"port"`
	CORSOrigins     []string      `mapstructure:"cors_origins" yaml:"cors_origins"`
	MaxBodySize     int64         `mapstructure:"max_body_size" yaml:"max_body_size"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	LoginRateLimit  int           `mapstructure:"login_rate_limit" yaml:"login_rate_limit"`
}

// Addr returns host:port.
func (s ServerConfig) Addr() string { return fmt.Sprintf("%s:%d", s.Host, s.Port) }

// CatalogConfig points at an optional entity catalog file.
type CatalogConfig struct {
	File string `mapstructure:"file" yaml:"file"`
}

// ImagesConfig restricts remote image deletion.
type ImagesConfig struct {
	DeleteHosts []string      `mapstructure:"delete_hosts" yaml:"delete_hosts"`
	Timeout     time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// LogConfig controls log output.
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// MCPConfig controls the MCP server.
type MCPConfig struct {
	ReadOnly bool `mapstructure:"read_only" yaml:"read_only"`
}

// SetDefaults registers every key with its default so that environment
// variables are honored for keys absent from the config file.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.dsn", "")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 30*time.Minute)
	v.SetDefault("database.conn_max_idle_time", 5*time.Minute)

	v.SetDefault("auth.signing_key", "")
	v.SetDefault("auth.issuer", "touchline")
	v.SetDefault("auth.audience", "touchline-api")
	v.SetDefault("auth.token_ttl", 30*time.Minute)
	v.SetDefault("auth.admin_role", "admin")

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("server.max_body_size", int64(10*1024*1024))
	v.SetDefault("server.shutdown_timeout", 30*time.Second)
	v.SetDefault("server.login_rate_limit", 10)

	v.SetDefault("catalog.file", "")
	v.SetDefault("images.delete_hosts", []string{})
	v.SetDefault("images.timeout", 10*time.Second)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("mcp.read_only", false)
}

// Load decodes v into a Config and validates it. In dev mode a missing
// signing key is allowed; the caller generates an ephemeral one.
func Load(v *viper.Viper, dev bool) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	cfg.Database.Driver = strings.ToLower(strings.TrimSpace(cfg.Database.Driver))
	if err := cfg.Validate(dev); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports the first configuration problem found.
func (c Config) Validate(dev bool) error {
	if c.Database.DSN == "" && c.Database.Driver != "sqlite" {
		return ErrMissingDSN
	}
	if len(c.Auth.SigningKey) < MinSigningKeyLen && !(dev && c.Auth.SigningKey == "") {
		return fmt.Errorf("%w: need at least %d bytes", ErrWeakSigningKey, MinSigningKeyLen)
	}
	if c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("%w: auth.token_ttl must be positive", ErrInvalid)
	}
	if c.Auth.AdminRole == "" {
		return fmt.Errorf("%w: auth.admin_role is empty", ErrInvalid)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("%w: server.port %d out of range", ErrInvalid, c.Server.Port)
	}
	if c.Server.LoginRateLimit < 0 {
		return fmt.Errorf("%w: server.login_rate_limit must not be negative", ErrInvalid)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("%w: log.format must be text or json", ErrInvalid)
	}
	return nil
}
