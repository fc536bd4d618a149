package oracle

import (
	"errors"
	"testing"

	"github.com/sijms/go-ora/v2/network"

	"github.com/faucetdb/touchline/internal/connector"
	"github.com/faucetdb/touchline/internal/query"
)

func TestPrepareInsert(t *testing.T) {
	d := New()
	b := query.NewInsert(d.QuoteIdentifier, "contracts").
		Value("player_id", "player_id").
		Value("salary", "salary")
	if err := d.PrepareInsert(b, "contract_id", "CONTRACT_SEQ"); err != nil {
		t.Fatalf("PrepareInsert: %v", err)
	}
	got, err := b.SQL()
	if err != nil {
		t.Fatalf("SQL: %v", err)
	}
	want := `INSERT INTO "CONTRACTS" ("PLAYER_ID", "SALARY", "CONTRACT_ID") VALUES (:player_id, :salary, "CONTRACT_SEQ".NEXTVAL) RETURNING "CONTRACT_ID" INTO :generated_key`
	if got != want {
		t.Errorf("got  %s\nwant %s", got, want)
	}
	if d.KeyStrategy() != connector.KeyFromOutParam {
		t.Error("expected KeyFromOutParam")
	}
}

func TestPaginate(t *testing.T) {
	if got := New().Paginate(10, 0); got != "OFFSET 0 ROWS FETCH NEXT 10 ROWS ONLY" {
		t.Errorf("Paginate = %q", got)
	}
}

func TestCreateSequence(t *testing.T) {
	got := New().CreateSequence("users", "football.user_seq", 1000000000)
	want := `CREATE SEQUENCE "FOOTBALL"."USER_SEQ" START WITH 1000000000 INCREMENT BY 1 NOCACHE`
	if len(got) != 1 || got[0] != want {
		t.Errorf("got %v", got)
	}
}

func TestIsAlreadyExists(t *testing.T) {
	d := New()
	if !d.IsAlreadyExists(&network.OracleError{ErrCode: 955}) {
		t.Error("ORA-00955 should be treated as already exists")
	}
	if d.IsAlreadyExists(&network.OracleError{ErrCode: 1}) {
		t.Error("ORA-00001 is not an already-exists error")
	}
	if !d.IsAlreadyExists(errors.New("ORA-00955: name is already used by an existing object")) {
		t.Error("expected message fallback to match")
	}
}
