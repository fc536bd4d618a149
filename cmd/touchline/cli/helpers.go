package cli

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/viper"

	"github.com/faucetdb/touchline/internal/config"
	"github.com/faucetdb/touchline/internal/connector"
	"github.com/faucetdb/touchline/internal/connector/mssql"
	"github.com/faucetdb/touchline/internal/connector/mysql"
	"github.com/faucetdb/touchline/internal/connector/oracle"
	"github.com/faucetdb/touchline/internal/connector/postgres"
	"github.com/faucetdb/touchline/internal/connector/sqlite"
	"github.com/faucetdb/touchline/internal/database"
	"github.com/faucetdb/touchline/internal/entity"
	"github.com/faucetdb/touchline/internal/service"
)

// newRegistry creates a connector registry with every supported dialect.
func newRegistry() *connector.Registry {
	registry := connector.NewRegistry()
	registry.RegisterDialect(postgres.New())
	registry.RegisterDialect(mysql.New())
	registry.RegisterDialect(mssql.New())
	registry.RegisterDialect(oracle.New())
	registry.RegisterDialect(sqlite.New())
	return registry
}

// loadConfig decodes and validates the merged flag, env and file settings.
func loadConfig(dev bool) (config.Config, error) {
	return config.Load(viper.GetViper(), dev)
}

// newLogger builds the process logger from the log section.
func newLogger(c config.LogConfig, w io.Writer) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if c.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// ephemeralKey returns a random signing key for dev mode. Tokens signed
// with it do not survive a restart.
func ephemeralKey() (string, error) {
	b := make([]byte, config.MinSigningKeyLen)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate signing key: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// app is the set of components every database-backed command needs.
type app struct {
	cfg      config.Config
	logger   *slog.Logger
	provider *connector.Provider
	catalog  *entity.Catalog
	users    *entity.Entity
	exec     *database.Executor
}

// openApp loads configuration, the entity catalog and the database pool.
// The caller must call Close.
func openApp(dev bool) (*app, error) {
	cfg, err := loadConfig(dev)
	if err != nil {
		return nil, err
	}
	if dev && cfg.Auth.SigningKey == "" {
		key, err := ephemeralKey()
		if err != nil {
			return nil, err
		}
		cfg.Auth.SigningKey = key
	}
	logger := newLogger(cfg.Log, os.Stderr)

	catalog := entity.Football()
	if cfg.Catalog.File != "" {
		catalog, err = entity.LoadCatalog(cfg.Catalog.File)
		if err != nil {
			return nil, err
		}
		logger.Info("entity catalog loaded", "file", cfg.Catalog.File, "entities", len(catalog.Names()))
	}
	users, ok := catalog.Get("users")
	if !ok {
		return nil, fmt.Errorf("entity catalog must define a users entity")
	}

	conn := cfg.Database.Connection()
	provider, err := newRegistry().Open(conn)
	if err != nil {
		return nil, err
	}
	logger.Info("database opened", "driver", conn.Dialect,
		"dsn", connector.SanitizeDSN(conn.Dialect, conn.DSN))

	return &app{
		cfg:      cfg,
		logger:   logger,
		provider: provider,
		catalog:  catalog,
		users:    users,
		exec:     database.NewExecutor(provider, logger),
	}, nil
}

func (a *app) Close() error { return a.provider.Close() }

func (a *app) authService() *service.AuthService {
	return service.NewAuthService(a.exec, a.users, service.AuthOptions{
		SigningKey: []byte(a.cfg.Auth.SigningKey),
		Issuer:     a.cfg.Auth.Issuer,
		Audience:   a.cfg.Auth.Audience,
		TTL:        a.cfg.Auth.TokenTTL,
	}, a.logger)
}

func (a *app) userService() *service.UserService {
	var images *service.ImageClient
	if len(a.cfg.Images.DeleteHosts) > 0 {
		images = service.NewImageClient(a.cfg.Images.DeleteHosts, a.cfg.Images.Timeout, a.logger)
	}
	return service.NewUserService(a.exec, a.users, images, a.logger)
}

func (a *app) entityService() *service.EntityService {
	return service.NewEntityService(a.exec, a.catalog, a.logger)
}

// versionString returns a display version string.
func versionString() string {
	if appVersion == "" || appVersion == "dev" {
		return "dev"
	}
	if strings.HasPrefix(appVersion, "v") {
		return appVersion
	}
	return "v" + appVersion
}
