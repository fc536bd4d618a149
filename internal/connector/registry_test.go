package connector

import (
	"strings"
	"testing"

	"github.com/jmoiron/sqlx"

	"github.com/faucetdb/touchline/internal/fieldmap"
	"github.com/faucetdb/touchline/internal/query"
)

// fakeDialect implements Dialect for testing without a real database.
type fakeDialect struct{ name string }

func (f fakeDialect) Name() string                                             { return f.name }
func (f fakeDialect) DriverName() string                                       { return "fake-" + f.name }
func (f fakeDialect) BindType() int                                            { return sqlx.QUESTION }
func (f fakeDialect) QuoteIdentifier(name string) string                       { return query.PostgresQuote(name) }
func (f fakeDialect) KeyStrategy() KeyStrategy                                 { return KeyFromRow }
func (f fakeDialect) PrepareInsert(*query.InsertBuilder, string, string) error { return nil }
func (f fakeDialect) Paginate(limit, offset int) string                        { return query.BuildLimitOffset(limit, offset) }
func (f fakeDialect) LockSuffix() string                                       { return "" }
func (f fakeDialect) ColumnType(fieldmap.Kind) string                          { return "TEXT" }
func (f fakeDialect) KeyColumn(key string, _ bool) string                      { return key }
func (f fakeDialect) CreateSequence(string, string, int64) []string            { return nil }
func (f fakeDialect) IsAlreadyExists(error) bool                               { return false }

func TestNewRegistry(t *testing.T) {
	r := NewRegistry()
	if len(r.Names()) != 0 {
		t.Errorf("expected empty registry, got %v", r.Names())
	}
}

func TestRegisterAndLookup(t *testing.T) {
	r := NewRegistry()
	r.RegisterDialect(fakeDialect{name: "postgres"})
	r.RegisterDialect(fakeDialect{name: "mysql"})

	d, err := r.Dialect("postgres")
	if err != nil {
		t.Fatalf("Dialect: %v", err)
	}
	if d.Name() != "postgres" {
		t.Errorf("Name = %q", d.Name())
	}

	names := r.Names()
	if strings.Join(names, ",") != "mysql,postgres" {
		t.Errorf("Names = %v, want sorted [mysql postgres]", names)
	}
}

func TestRegisterReplacesExisting(t *testing.T) {
	r := NewRegistry()
	r.RegisterDialect(fakeDialect{name: "sqlite"})
	r.RegisterDialect(fakeDialect{name: "sqlite"})
	if len(r.Names()) != 1 {
		t.Errorf("expected one dialect, got %v", r.Names())
	}
}

func TestOpenUnsupportedDialect(t *testing.T) {
	r := NewRegistry()
	r.RegisterDialect(fakeDialect{name: "postgres"})

	_, err := r.Open(ConnectionConfig{Dialect: "snowflake", DSN: "x"})
	if err == nil {
		t.Fatal("expected error for unsupported dialect")
	}
	if !strings.Contains(err.Error(), "unsupported dialect") || !strings.Contains(err.Error(), "postgres") {
		t.Errorf("error should name the dialect and list available ones: %v", err)
	}
}

func TestOpenUnknownDriverFails(t *testing.T) {
	r := NewRegistry()
	r.RegisterDialect(fakeDialect{name: "ghost"})
	if _, err := r.Open(ConnectionConfig{Dialect: "ghost", DSN: "x"}); err == nil {
		t.Fatal("expected error when the database/sql driver is not registered")
	}
}
