package mcp

import (
	"context"
	"encoding/json"
	"slices"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/faucetdb/touchline/internal/connector"
	"github.com/faucetdb/touchline/internal/connector/sqlite"
	"github.com/faucetdb/touchline/internal/database"
	"github.com/faucetdb/touchline/internal/entity"
	"github.com/faucetdb/touchline/internal/model"
	"github.com/faucetdb/touchline/internal/service"
)

func newTestServer(t *testing.T, opts Options) *MCPServer {
	t.Helper()
	reg := connector.NewRegistry()
	reg.RegisterDialect(sqlite.New())
	p, err := reg.Open(connector.ConnectionConfig{Dialect: "sqlite", DSN: ":memory:"})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { p.Close() })

	catalog := entity.Football()
	if err := entity.Migrate(context.Background(), p, catalog, nil); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	svc := service.NewEntityService(database.NewExecutor(p, nil), catalog, nil)
	return NewMCPServer(svc, opts, nil)
}

func call(t *testing.T, h server.ToolHandlerFunc, args map[string]any) (string, bool) {
	t.Helper()
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	res, err := h(context.Background(), req)
	if err != nil {
		t.Fatalf("handler returned protocol error: %v", err)
	}
	if len(res.Content) != 1 {
		t.Fatalf("expected one content item, got %d", len(res.Content))
	}
	text, ok := res.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("expected text content, got %T", res.Content[0])
	}
	return text.Text, res.IsError
}

func TestToolRegistration(t *testing.T) {
	all := []string{
		"touchline_list_entities", "touchline_describe_entity", "touchline_query",
		"touchline_get", "touchline_insert", "touchline_update", "touchline_delete",
	}

	s := newTestServer(t, Options{})
	if got := s.ToolNames(); !slices.Equal(got, all) {
		t.Errorf("tools = %v, want %v", got, all)
	}

	ro := newTestServer(t, Options{ReadOnly: true})
	for _, name := range ro.ToolNames() {
		if name == "touchline_insert" || name == "touchline_update" || name == "touchline_delete" {
			t.Errorf("read-only server registered %s", name)
		}
	}
	if len(ro.ToolNames()) != 4 {
		t.Errorf("read-only tools = %v", ro.ToolNames())
	}
}

func TestListAndDescribeEntities(t *testing.T) {
	s := newTestServer(t, Options{})

	out, isErr := call(t, s.handleListEntities, nil)
	if isErr {
		t.Fatalf("unexpected error: %s", out)
	}
	var items []model.EntitySummary
	if err := json.Unmarshal([]byte(out), &items); err != nil {
		t.Fatalf("decode: %v", err)
	}
	for _, it := range items {
		if it.Name == "users" {
			t.Error("internal entity listed")
		}
	}

	out, isErr = call(t, s.handleDescribeEntity, map[string]any{"entity": "contracts"})
	if isErr || !strings.Contains(out, `"start_date"`) {
		t.Errorf("describe contracts: %s", out)
	}

	out, isErr = call(t, s.handleDescribeEntity, map[string]any{"entity": "users"})
	if !isErr || !strings.Contains(out, "Available entities") {
		t.Errorf("describe users should fail with suggestions: %s", out)
	}
}

func TestInsertQueryUpdateDelete(t *testing.T) {
	s := newTestServer(t, Options{})

	out, isErr := call(t, s.handleInsert, map[string]any{
		"entity": "teams",
		"record": map[string]any{"team_id": 999, "team_name": "Rovers", "city": "Leeds"},
	})
	if isErr {
		t.Fatalf("insert: %s", out)
	}
	var created model.CreatedResponse
	if err := json.Unmarshal([]byte(out), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if created.ID == 999 || created.Key != "team_id" {
		t.Errorf("client key must be ignored: %+v", created)
	}

	out, isErr = call(t, s.handleQuery, map[string]any{
		"entity":        "teams",
		"filters":       map[string]any{"city": "Leeds"},
		"include_count": true,
	})
	if isErr || !strings.Contains(out, `"total": 1`) || !strings.Contains(out, "Rovers") {
		t.Errorf("query: %s", out)
	}

	id := float64(created.ID)
	out, isErr = call(t, s.handleUpdate, map[string]any{"entity": "teams", "id": id, "record": map[string]any{"city": "York"}})
	if isErr {
		t.Fatalf("update: %s", out)
	}
	out, _ = call(t, s.handleGet, map[string]any{"entity": "teams", "id": id})
	if !strings.Contains(out, "York") {
		t.Errorf("get after update: %s", out)
	}

	if out, isErr = call(t, s.handleDelete, map[string]any{"entity": "teams", "id": id}); isErr {
		t.Fatalf("delete: %s", out)
	}
	out, isErr = call(t, s.handleDelete, map[string]any{"entity": "teams", "id": id})
	if !isErr || out != "Record not found" {
		t.Errorf("second delete: %q", out)
	}
}

func TestToolErrors(t *testing.T) {
	s := newTestServer(t, Options{})

	tests := []struct {
		name string
		h    server.ToolHandlerFunc
		args map[string]any
		want string
	}{
		{"missing entity", s.handleQuery, map[string]any{}, `missing required parameter "entity"`},
		{"unknown filter", s.handleQuery, map[string]any{"entity": "teams", "filters": map[string]any{"colour": "red"}}, "Invalid input"},
		{"object filter", s.handleQuery, map[string]any{"entity": "teams", "filters": map[string]any{"city": map[string]any{}}}, "must be a string"},
		{"bad fields", s.handleQuery, map[string]any{"entity": "teams", "fields": []any{"a;b"}}, "Invalid fields"},
		{"fractional key", s.handleGet, map[string]any{"entity": "teams", "id": 1.5}, "must be an integer"},
		{"no record", s.handleInsert, map[string]any{"entity": "teams"}, `"record"`},
		{"missing required", s.handleInsert, map[string]any{"entity": "teams", "record": map[string]any{"city": "x"}}, "team_name"},
		{"no recognized fields", s.handleUpdate, map[string]any{"entity": "teams", "id": 1, "record": map[string]any{"nope": 1}}, "no fields provided"},
		{"bad date", s.handleInsert, map[string]any{"entity": "matches", "record": map[string]any{
			"match_date": "someday", "home_team_id": 1, "away_team_id": 2}}, "match_date"},
		{"internal entity", s.handleInsert, map[string]any{"entity": "users", "record": map[string]any{"user_name": "x"}}, "Unknown entity"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, isErr := call(t, tt.h, tt.args)
			if !isErr {
				t.Fatalf("expected tool error, got %s", out)
			}
			if !strings.Contains(out, tt.want) {
				t.Errorf("error %q does not mention %q", out, tt.want)
			}
		})
	}
}

func TestEntityResource(t *testing.T) {
	s := newTestServer(t, Options{})

	req := mcp.ReadResourceRequest{}
	req.Params.URI = "touchline://entity/matches"
	contents, err := s.handleEntityResource(context.Background(), req)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	text := contents[0].(mcp.TextResourceContents).Text
	if !strings.Contains(text, `"match_stadium"`) {
		t.Errorf("unexpected schema: %s", text)
	}

	req.Params.URI = "touchline://entity/users"
	if _, err := s.handleEntityResource(context.Background(), req); err == nil {
		t.Error("internal entity must not be readable")
	}
}

func TestClamp(t *testing.T) {
	tests := []struct {
		name     string
		val      int
		min      int
		max      int
		expected int
	}{
		{"value in range", 5, 1, 10, 5},
		{"value below min", -3, 1, 10, 1},
		{"value above max", 15, 1, 10, 10},
		{"value equals min", 1, 1, 10, 1},
		{"value equals max", 10, 1, 10, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := clamp(tt.val, tt.min, tt.max)
			if got != tt.expected {
				t.Errorf("clamp(%d, %d, %d) = %d, want %d", tt.val, tt.min, tt.max, got, tt.expected)
			}
		})
	}
}

func TestFilterValues(t *testing.T) {
	got, err := filterValues(map[string]any{"team_id": float64(1000000000), "city": "Leeds", "is_show": true})
	if err != nil {
		t.Fatal(err)
	}
	want := map[string]string{"team_id": "1000000000", "city": "Leeds", "is_show": "true"}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("%s = %q, want %q", k, got[k], v)
		}
	}
}
