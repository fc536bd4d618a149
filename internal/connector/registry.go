package connector

import (
	"fmt"
	"sort"
	"sync"

	"github.com/jmoiron/sqlx"
)

// Registry maps dialect names to Dialect implementations.
type Registry struct {
	mu       sync.RWMutex
	dialects map[string]Dialect
}

// NewRegistry creates a new empty Registry.
func NewRegistry() *Registry {
	return &Registry{dialects: make(map[string]Dialect)}
}

// RegisterDialect registers d under d.Name(), replacing any previous entry.
func (r *Registry) RegisterDialect(d Dialect) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dialects[d.Name()] = d
}

// Dialect returns the dialect registered under name.
func (r *Registry) Dialect(name string) (Dialect, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.dialects[name]
	if !ok {
		return nil, fmt.Errorf("unsupported dialect: %s (available: %v)", name, r.namesLocked())
	}
	return d, nil
}

// Names returns the registered dialect names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.namesLocked()
}

func (r *Registry) namesLocked() []string {
	names := make([]string, 0, len(r.dialects))
	for n := range r.dialects {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Open resolves cfg.Dialect, opens and pings the database, and applies pool
// settings. The returned Provider owns the handle.
func (r *Registry) Open(cfg ConnectionConfig) (*Provider, error) {
	d, err := r.Dialect(cfg.Dialect)
	if err != nil {
		return nil, err
	}

	db, err := sqlx.Connect(d.DriverName(), SanitizeDSN(d.Name(), cfg.DSN))
	if err != nil {
		return nil, fmt.Errorf("%s connect: %w", d.Name(), err)
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	if cfg.ConnMaxIdleTime > 0 {
		db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	}
	if t, ok := d.(PoolTuner); ok {
		t.TunePool(db, cfg)
	}

	return NewProvider(db, d), nil
}
