package database_test

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/faucetdb/touchline/internal/connector"
	"github.com/faucetdb/touchline/internal/connector/mssql"
	"github.com/faucetdb/touchline/internal/connector/mysql"
	"github.com/faucetdb/touchline/internal/connector/oracle"
	"github.com/faucetdb/touchline/internal/connector/postgres"
	"github.com/faucetdb/touchline/internal/database"
	"github.com/faucetdb/touchline/internal/fieldmap"
	"github.com/faucetdb/touchline/internal/query"
)

// Live-server tests. Each dialect runs only when its DSN variable is set,
// e.g. TOUCHLINE_TEST_POSTGRES_DSN=postgres://touchline:pw@localhost/football.
var integrationDSNs = []struct {
	dialect string
	env     string
	new     func() connector.Dialect
}{
	{"postgres", "TOUCHLINE_TEST_POSTGRES_DSN", postgres.New},
	{"mysql", "TOUCHLINE_TEST_MYSQL_DSN", mysql.New},
	{"mssql", "TOUCHLINE_TEST_MSSQL_DSN", mssql.New},
	{"oracle", "TOUCHLINE_TEST_ORACLE_DSN", oracle.New},
}

func TestIntegrationInsertAndReturnKey(t *testing.T) {
	for _, tc := range integrationDSNs {
		t.Run(tc.dialect, func(t *testing.T) {
			dsn := os.Getenv(tc.env)
			if dsn == "" {
				t.Skipf("set %s to run", tc.env)
			}
			runInsertSuite(t, tc.new(), dsn)
		})
	}
}

func runInsertSuite(t *testing.T, d connector.Dialect, dsn string) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	reg := connector.NewRegistry()
	reg.RegisterDialect(d)
	p, err := reg.Open(connector.ConnectionConfig{Dialect: d.Name(), DSN: dsn})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer p.Close()
	ex := database.NewExecutor(p, nil)

	suffix := time.Now().UnixNano() % 1_000_000
	table := fmt.Sprintf("it_teams_%d", suffix)
	seq := fmt.Sprintf("it_team_seq_%d", suffix)
	q := d.QuoteIdentifier

	ddl := []string{fmt.Sprintf("CREATE TABLE %s (%s, %s %s)",
		q(table), d.KeyColumn("team_id", true), q("team_name"), d.ColumnType(fieldmap.KindString))}
	ddl = append(ddl, d.CreateSequence(table, seq, 1)...)
	for _, stmt := range ddl {
		if _, err := p.DB().ExecContext(ctx, stmt); err != nil {
			t.Fatalf("DDL %q: %v", stmt, err)
		}
	}
	defer func() {
		_, _ = p.DB().ExecContext(context.Background(), "DROP TABLE "+q(table))
		if d.Name() != "mysql" {
			_, _ = p.DB().ExecContext(context.Background(), "DROP SEQUENCE "+query.QuoteQualified(seq, q))
		}
	}()

	insert := func() int64 {
		b := query.NewInsert(q, table).Value("team_name", "team_name")
		if err := d.PrepareInsert(b, "team_id", seq); err != nil {
			t.Fatalf("PrepareInsert: %v", err)
		}
		stmt, err := b.SQL()
		if err != nil {
			t.Fatalf("SQL: %v", err)
		}
		key, err := ex.Insert(ctx, stmt, query.Params{"team_name": "Rovers"})
		if err != nil {
			t.Fatalf("Insert: %v", err)
		}
		return key
	}

	n1, n2 := insert(), insert()
	if n2 <= n1 {
		t.Errorf("second key %d is not greater than first %d", n2, n1)
	}

	del := fmt.Sprintf("DELETE FROM %s WHERE %s = :id", q(table), q("team_id"))
	for i, want := range []int64{1, 0} {
		n, err := ex.Exec(ctx, del, query.Params{"id": n1})
		if err != nil {
			t.Fatalf("delete #%d: %v", i+1, err)
		}
		if n != want {
			t.Errorf("delete #%d affected %d rows, want %d", i+1, n, want)
		}
	}
}
