package mssql

import (
	"testing"

	mssqldb "github.com/microsoft/go-mssqldb"

	"github.com/faucetdb/touchline/internal/fieldmap"
	"github.com/faucetdb/touchline/internal/query"
)

func TestPrepareInsert(t *testing.T) {
	d := New()
	b := query.NewInsert(d.QuoteIdentifier, "events").
		Value("match_id", "match_id").
		Value("event_type", "event_type")
	if err := d.PrepareInsert(b, "event_id", "event_seq"); err != nil {
		t.Fatalf("PrepareInsert: %v", err)
	}
	got, err := b.SQL()
	if err != nil {
		t.Fatalf("SQL: %v", err)
	}
	want := "INSERT INTO [events] ([match_id], [event_type], [event_id]) OUTPUT INSERTED.[event_id] VALUES (:match_id, :event_type, NEXT VALUE FOR [event_seq])"
	if got != want {
		t.Errorf("got  %s\nwant %s", got, want)
	}
}

func TestDialectBasics(t *testing.T) {
	d := New()
	if d.DriverName() != "sqlserver" {
		t.Errorf("DriverName = %q", d.DriverName())
	}
	if d.LockSuffix() != "" {
		t.Errorf("LockSuffix = %q", d.LockSuffix())
	}
	if got := d.ColumnType(fieldmap.KindString); got != "NVARCHAR(4000)" {
		t.Errorf("string column = %q", got)
	}
	if got := d.Paginate(5, 15); got != "OFFSET 15 ROWS FETCH NEXT 5 ROWS ONLY" {
		t.Errorf("Paginate = %q", got)
	}
}

func TestIsAlreadyExists(t *testing.T) {
	d := New()
	if !d.IsAlreadyExists(mssqldb.Error{Number: 2714}) {
		t.Error("error 2714 should be treated as already exists")
	}
	if d.IsAlreadyExists(mssqldb.Error{Number: 2627}) {
		t.Error("primary key violation is not an already-exists error")
	}
}
