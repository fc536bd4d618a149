package query

import (
	"errors"
	"testing"
)

func TestInsertBuilder(t *testing.T) {
	tests := []struct {
		name  string
		build func() *InsertBuilder
		want  string
	}{
		{
			"sequence key with returning",
			func() *InsertBuilder {
				return NewInsert(PostgresQuote, "teams").
					Expr("team_id", "nextval('team_seq')").
					Value("team_name", "team_name").
					Value("city", "city").
					Suffix(`RETURNING "team_id"`)
			},
			`INSERT INTO "teams" ("team_id", "team_name", "city") VALUES (nextval('team_seq'), :team_name, :city) RETURNING "team_id"`,
		},
		{
			"output clause before values",
			func() *InsertBuilder {
				return NewInsert(SQLServerQuote, "events").
					Value("match_id", "match_id").
					Output("OUTPUT INSERTED.[event_id]")
			},
			`INSERT INTO [events] ([match_id]) OUTPUT INSERTED.[event_id] VALUES (:match_id)`,
		},
		{
			"column and param differ",
			func() *InsertBuilder {
				return NewInsert(MySQLQuote, "matches").Value("match_stadium", "stadium")
			},
			"INSERT INTO `matches` (`match_stadium`) VALUES (:stadium)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.build().SQL()
			if err != nil {
				t.Fatalf("SQL: %v", err)
			}
			if got != tt.want {
				t.Errorf("got  %s\nwant %s", got, tt.want)
			}
		})
	}
}

func TestInsertBuilderErrors(t *testing.T) {
	if _, err := NewInsert(PostgresQuote, "teams").SQL(); !errors.Is(err, ErrNoColumns) {
		t.Errorf("expected ErrNoColumns, got %v", err)
	}
	if _, err := NewInsert(PostgresQuote, "teams;drop").Value("city", "city").SQL(); err == nil {
		t.Error("expected error for invalid table")
	}
	if _, err := NewInsert(PostgresQuote, "teams").Value("city", "bad param").SQL(); err == nil {
		t.Error("expected error for invalid parameter name")
	}
}

func TestUpdateBuilder(t *testing.T) {
	got, err := NewUpdate(PostgresQuote, "contracts").
		Set("salary", "salary").
		Set("end_time", "end_time").
		Where("contract_id", "contract_id").
		SQL()
	if err != nil {
		t.Fatalf("SQL: %v", err)
	}
	want := `UPDATE "contracts" SET "salary" = :salary, "end_time" = :end_time WHERE "contract_id" = :contract_id`
	if got != want {
		t.Errorf("got  %s\nwant %s", got, want)
	}
}

func TestUpdateBuilderErrors(t *testing.T) {
	_, err := NewUpdate(PostgresQuote, "contracts").Where("contract_id", "contract_id").SQL()
	if !errors.Is(err, ErrNoAssignments) {
		t.Errorf("expected ErrNoAssignments, got %v", err)
	}

	_, err = NewUpdate(PostgresQuote, "contracts").Set("salary", "salary").SQL()
	if !errors.Is(err, ErrUnboundedMutation) {
		t.Errorf("expected ErrUnboundedMutation, got %v", err)
	}

	_, err = NewUpdate(PostgresQuote, "contracts").Set("DROP", "salary").Where("contract_id", "id").SQL()
	if err == nil {
		t.Error("expected error for reserved column")
	}
}

func TestDeleteBuilder(t *testing.T) {
	got, err := NewDelete(PostgresQuote, "users").WhereIn("user_id", []string{"id0", "id1", "id2"}).SQL()
	if err != nil {
		t.Fatalf("SQL: %v", err)
	}
	want := `DELETE FROM "users" WHERE "user_id" IN (:id0, :id1, :id2)`
	if got != want {
		t.Errorf("got  %s\nwant %s", got, want)
	}

	if _, err := NewDelete(PostgresQuote, "users").SQL(); !errors.Is(err, ErrUnboundedMutation) {
		t.Errorf("expected ErrUnboundedMutation, got %v", err)
	}
	if _, err := NewDelete(PostgresQuote, "users").WhereIn("user_id", nil).SQL(); err == nil {
		t.Error("expected error for empty IN list")
	}
}

func TestSelectBuilder(t *testing.T) {
	b := NewSelect(PostgresQuote, "users").
		Columns("user_id", "user_name").
		Where("user_right", "user_right").
		Search([]string{"user_name", "user_phone"}, "q").
		OrderBy(OrderClause{Column: "user_id", Direction: "ASC"}).
		Page(10, 20, BuildLimitOffset)

	got, err := b.SQL()
	if err != nil {
		t.Fatalf("SQL: %v", err)
	}
	want := `SELECT "user_id", "user_name" FROM "users" WHERE "user_right" = :user_right AND ("user_name" LIKE :q OR "user_phone" LIKE :q) ORDER BY "user_id" ASC LIMIT 10 OFFSET 20`
	if got != want {
		t.Errorf("got  %s\nwant %s", got, want)
	}

	count, err := b.CountSQL()
	if err != nil {
		t.Fatalf("CountSQL: %v", err)
	}
	wantCount := `SELECT COUNT(*) FROM "users" WHERE "user_right" = :user_right AND ("user_name" LIKE :q OR "user_phone" LIKE :q)`
	if count != wantCount {
		t.Errorf("got  %s\nwant %s", count, wantCount)
	}
}

func TestSelectBuilderLockAndStar(t *testing.T) {
	got, err := NewSelect(OracleQuote, "users").
		Where("user_id", "user_id").
		Lock(" FOR UPDATE").
		SQL()
	if err != nil {
		t.Fatalf("SQL: %v", err)
	}
	want := `SELECT * FROM "USERS" WHERE "USER_ID" = :user_id FOR UPDATE`
	if got != want {
		t.Errorf("got  %s\nwant %s", got, want)
	}
}

func TestSelectBuilderOffsetFetch(t *testing.T) {
	got, err := NewSelect(SQLServerQuote, "stadiums").
		OrderBy(OrderClause{Column: "stadium_name", Direction: "ASC"}).
		Page(5, 10, BuildOffsetFetch).
		SQL()
	if err != nil {
		t.Fatalf("SQL: %v", err)
	}
	want := `SELECT * FROM [stadiums] ORDER BY [stadium_name] ASC OFFSET 10 ROWS FETCH NEXT 5 ROWS ONLY`
	if got != want {
		t.Errorf("got  %s\nwant %s", got, want)
	}
}
