package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/faucetdb/touchline/internal/connector"
	"github.com/faucetdb/touchline/internal/connector/sqlite"
	"github.com/faucetdb/touchline/internal/database"
	"github.com/faucetdb/touchline/internal/entity"
	"github.com/faucetdb/touchline/internal/model"
	"github.com/faucetdb/touchline/internal/service"
)

// ---------------------------------------------------------------------------
// Test helpers
// ---------------------------------------------------------------------------

const (
	testSigningKey = "test-signing-key-for-integration!"
	testPassword   = "supersecretpassword"
)

// testEnv holds all the shared state for integration tests.
type testEnv struct {
	server   *Server
	provider *connector.Provider
	authSvc  *service.AuthService
}

// newTestEnv creates a fresh environment over a migrated in-memory database.
// mutate, when given, adjusts the server configuration.
func newTestEnv(t *testing.T, mutate ...func(*Config)) *testEnv {
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
	users, _ := catalog.Get("users")

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	exec := database.NewExecutor(p, logger)
	authSvc := service.NewAuthService(exec, users, service.AuthOptions{
		SigningKey: []byte(testSigningKey),
		Issuer:     "touchline",
		Audience:   "touchline-api",
	}, logger)

	cfg := DefaultConfig()
	for _, m := range mutate {
		m(&cfg)
	}
	srv := New(cfg, Services{
		Entities: service.NewEntityService(exec, catalog, logger),
		Auth:     authSvc,
		Users:    service.NewUserService(exec, users, nil, logger),
	}, p, logger)

	return &testEnv{server: srv, provider: p, authSvc: authSvc}
}

// do executes an HTTP request against the test server and returns the recorder.
// headers is an optional map of header key-value pairs.
func (e *testEnv) do(t *testing.T, method, path string, body io.Reader, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rr := httptest.NewRecorder()
	e.server.ServeHTTP(rr, req)
	return rr
}

// doAuth executes a request with a bearer token.
func (e *testEnv) doAuth(t *testing.T, method, path string, body io.Reader, token string) *httptest.ResponseRecorder {
	t.Helper()
	return e.do(t, method, path, body, map[string]string{
		"Authorization": "Bearer " + token,
	})
}

// register creates an account through the API and returns its id.
func (e *testEnv) register(t *testing.T, name string) int64 {
	t.Helper()
	rr := e.do(t, "POST", "/api/v1/users", jsonBody(t, map[string]any{
		"user_name":     name,
		"user_password": testPassword,
	}), nil)
	assertStatus(t, rr, http.StatusCreated)
	var u model.User
	decodeJSON(t, rr, &u)
	return u.ID
}

// login returns a token for user id.
func (e *testEnv) login(t *testing.T, id int64) string {
	t.Helper()
	rr := e.do(t, "POST", "/api/v1/auth/login", jsonBody(t, model.LoginRequest{UserID: id, Password: testPassword}), nil)
	assertStatus(t, rr, http.StatusOK)
	var resp model.TokenResponse
	decodeJSON(t, rr, &resp)
	if resp.AccessToken == "" {
		t.Fatal("login: got empty token")
	}
	return resp.AccessToken
}

func jsonBody(t *testing.T, v interface{}) *bytes.Buffer {
	t.Helper()
	buf := &bytes.Buffer{}
	if err := json.NewEncoder(buf).Encode(v); err != nil {
		t.Fatalf("jsonBody: %v", err)
	}
	return buf
}

func assertStatus(t *testing.T, rr *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rr.Code != want {
		t.Errorf("status = %d, want %d; body = %s", rr.Code, want, rr.Body.String())
	}
}

func assertContentType(t *testing.T, rr *httptest.ResponseRecorder, want string) {
	t.Helper()
	got := rr.Header().Get("Content-Type")
	if got != want {
		t.Errorf("Content-Type = %q, want %q", got, want)
	}
}

func decodeJSON(t *testing.T, rr *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(rr.Body).Decode(v); err != nil {
		t.Fatalf("decodeJSON: %v; body = %s", err, rr.Body.String())
	}
}

// ---------------------------------------------------------------------------
// Health check tests
// ---------------------------------------------------------------------------

func TestHealthz(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, "GET", "/healthz", nil, nil)
	assertStatus(t, rr, http.StatusOK)
	assertContentType(t, rr, "application/json")

	var resp map[string]string
	decodeJSON(t, rr, &resp)
	if resp["status"] != "ok" {
		t.Errorf("status = %q, want %q", resp["status"], "ok")
	}
}

func TestReadyz(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, "GET", "/readyz", nil, nil)
	assertStatus(t, rr, http.StatusOK)

	var resp struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	decodeJSON(t, rr, &resp)
	if resp.Status != "ok" || resp.Checks["database"] != "ok" {
		t.Errorf("unexpected readiness: %+v", resp)
	}
}

func TestReadyz_DatabaseClosed(t *testing.T) {
	env := newTestEnv(t)
	env.provider.Close()

	rr := env.do(t, "GET", "/readyz", nil, nil)
	assertStatus(t, rr, http.StatusServiceUnavailable)
	if strings.Contains(rr.Body.String(), "closed") {
		t.Errorf("driver error leaked: %s", rr.Body.String())
	}
}

// ---------------------------------------------------------------------------
// Authentication
// ---------------------------------------------------------------------------

func TestLogin_Success(t *testing.T) {
	env := newTestEnv(t)
	id := env.register(t, "Ada")

	rr := env.do(t, "POST", "/api/v1/auth/login", jsonBody(t, model.LoginRequest{UserID: id, Password: testPassword}), nil)
	assertStatus(t, rr, http.StatusOK)

	var resp model.TokenResponse
	decodeJSON(t, rr, &resp)
	if resp.TokenType != "bearer" || resp.UserID != id || resp.UserName != "Ada" || resp.UserRight != "user" {
		t.Errorf("unexpected token response: %+v", resp)
	}
	if !resp.ExpiresAt.After(time.Now()) {
		t.Errorf("expires_at %v is not in the future", resp.ExpiresAt)
	}
}

func TestLogin_RateLimited(t *testing.T) {
	env := newTestEnv(t, func(c *Config) { c.LoginRateLimit = 2 })

	var codes []int
	for range 3 {
		rr := env.do(t, "POST", "/api/v1/auth/login", jsonBody(t, model.LoginRequest{UserID: 1, Password: "x"}), nil)
		codes = append(codes, rr.Code)
	}
	if codes[0] != http.StatusUnauthorized || codes[1] != http.StatusUnauthorized || codes[2] != http.StatusTooManyRequests {
		t.Errorf("codes = %v, want [401 401 429]", codes)
	}

	// Other routes are not limited.
	for range 3 {
		assertStatus(t, env.do(t, "GET", "/api/v1/entities", nil, nil), http.StatusOK)
	}
}

func TestProtectedRoutes_Unauthenticated(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		method, path string
	}{
		{"GET", "/api/v1/users/me"},
		{"PUT", "/api/v1/users/me/password"},
		{"DELETE", "/api/v1/users/me/image"},
		{"GET", "/api/v1/admin/users"},
		{"POST", "/api/v1/teams"},
		{"PATCH", "/api/v1/teams/1"},
		{"DELETE", "/api/v1/teams/1"},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rr := env.do(t, tt.method, tt.path, strings.NewReader("{}"), nil)
			assertStatus(t, rr, http.StatusUnauthorized)
			if rr.Header().Get("WWW-Authenticate") == "" {
				t.Error("expected WWW-Authenticate header")
			}
		})
	}
}

func TestAdminRoutes_Forbidden(t *testing.T) {
	env := newTestEnv(t)
	tok := env.login(t, env.register(t, "Ada"))

	rr := env.doAuth(t, "GET", "/api/v1/admin/users", nil, tok)
	assertStatus(t, rr, http.StatusForbidden)

	admin, err := env.authSvc.Mint(1, "root", "admin")
	if err != nil {
		t.Fatalf("Mint: %v", err)
	}
	rr = env.doAuth(t, "GET", "/api/v1/admin/users", nil, admin.Raw)
	assertStatus(t, rr, http.StatusOK)
}

func TestAdminRole_Configurable(t *testing.T) {
	env := newTestEnv(t, func(c *Config) { c.AdminRole = "manager" })

	admin, _ := env.authSvc.Mint(1, "root", "admin")
	assertStatus(t, env.doAuth(t, "GET", "/api/v1/admin/users", nil, admin.Raw), http.StatusForbidden)

	manager, _ := env.authSvc.Mint(1, "boss", "manager")
	assertStatus(t, env.doAuth(t, "GET", "/api/v1/admin/users", nil, manager.Raw), http.StatusOK)
}

// ---------------------------------------------------------------------------
// Request handling
// ---------------------------------------------------------------------------

func TestCORSHeaders(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, "OPTIONS", "/api/v1/teams", nil, map[string]string{
		"Origin":                         "http://localhost:3000",
		"Access-Control-Request-Method":  "POST",
		"Access-Control-Request-Headers": "Authorization,Content-Type",
	})

	if rr.Code < 200 || rr.Code >= 300 {
		t.Errorf("CORS preflight status = %d, want 2xx", rr.Code)
	}
	if rr.Header().Get("Access-Control-Allow-Origin") == "" {
		t.Error("expected Access-Control-Allow-Origin header")
	}
}

func TestRequestBodyLimit(t *testing.T) {
	env := newTestEnv(t, func(c *Config) { c.MaxBodySize = 64 })

	big := `{"user_name":"` + strings.Repeat("a", 512) + `","user_password":"x"}`
	rr := env.do(t, "POST", "/api/v1/users", strings.NewReader(big), nil)
	assertStatus(t, rr, http.StatusRequestEntityTooLarge)
}

func TestRequestIDEchoed(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, "GET", "/healthz", nil, map[string]string{"X-Request-ID": "abc-123"})
	if got := rr.Header().Get("X-Request-ID"); got != "abc-123" {
		t.Errorf("X-Request-ID = %q, want abc-123", got)
	}
	rr = env.do(t, "GET", "/healthz", nil, nil)
	if rr.Header().Get("X-Request-ID") == "" {
		t.Error("expected a generated request id")
	}
}

func TestErrorResponseFormat(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, "GET", "/api/v1/dragons", nil, nil)
	assertStatus(t, rr, http.StatusNotFound)
	assertContentType(t, rr, "application/json")

	var resp model.ErrorResponse
	decodeJSON(t, rr, &resp)
	if resp.Error.Code != http.StatusNotFound || resp.Error.Message != "unknown entity" {
		t.Errorf("unexpected error envelope: %+v", resp)
	}
}

func TestUsersEntityNotExposed(t *testing.T) {
	env := newTestEnv(t)
	id := env.register(t, "Ada")
	tok := env.login(t, id)

	assertStatus(t, env.do(t, "GET", "/api/v1/users/"+strconv.FormatInt(id, 10), nil, nil), http.StatusNotFound)
	assertStatus(t, env.doAuth(t, "DELETE", "/api/v1/users/"+strconv.FormatInt(id, 10), nil, tok), http.StatusNotFound)
}

// ---------------------------------------------------------------------------
// Full workflow: register -> login -> write entities -> self-service
// ---------------------------------------------------------------------------

func TestFullWorkflow(t *testing.T) {
	env := newTestEnv(t)
	id := env.register(t, "Ada")
	tok := env.login(t, id)

	// Step 1: create a stadium and a team.
	rr := env.doAuth(t, "POST", "/api/v1/stadiums", jsonBody(t, map[string]any{"stadium_name": "Elland Road", "capacity": 37890}), tok)
	assertStatus(t, rr, http.StatusCreated)
	var stadium model.CreatedResponse
	decodeJSON(t, rr, &stadium)

	rr = env.doAuth(t, "POST", "/api/v1/teams", jsonBody(t, map[string]any{"team_name": "Leeds", "city": "Leeds"}), tok)
	assertStatus(t, rr, http.StatusCreated)

	// Step 2: schedule a match using the stadium key.
	rr = env.doAuth(t, "POST", "/api/v1/matches", jsonBody(t, map[string]any{
		"match_date":    "2024-08-10",
		"match_stadium": stadium.ID,
		"home_team_id":  1,
		"away_team_id":  2,
	}), tok)
	assertStatus(t, rr, http.StatusCreated)

	// Step 3: list it back through the stadium filter.
	rr = env.do(t, "GET", "/api/v1/matches?match_stadium="+strconv.FormatInt(stadium.ID, 10)+"&include_count=1", nil, nil)
	assertStatus(t, rr, http.StatusOK)
	var list struct {
		Resource []map[string]any   `json:"resource"`
		Meta     model.ResponseMeta `json:"meta"`
	}
	decodeJSON(t, rr, &list)
	if len(list.Resource) != 1 || list.Meta.Total == nil || *list.Meta.Total != 1 {
		t.Fatalf("unexpected list: %+v", list)
	}
	if _, ok := list.Resource[0]["match_stadium"]; !ok {
		t.Errorf("expected column match_stadium in %v", list.Resource[0])
	}

	// Step 4: store an icon and read back its delete URL.
	rr = env.doAuth(t, "PUT", "/api/v1/users/me/image", jsonBody(t, model.ImageRequest{
		Icon:       "https://img.example.com/i/abc.png",
		DeleteIcon: "https://img.example.com/delete/abc",
	}), tok)
	assertStatus(t, rr, http.StatusNoContent)

	rr = env.doAuth(t, "GET", "/api/v1/users/me/image", nil, tok)
	assertStatus(t, rr, http.StatusOK)
	var img model.ImageRequest
	decodeJSON(t, rr, &img)
	if img.DeleteIcon != "https://img.example.com/delete/abc" {
		t.Errorf("delete_icon = %q", img.DeleteIcon)
	}

	// Step 5: without an image client, remote deletion is refused.
	rr = env.doAuth(t, "DELETE", "/api/v1/users/me/image", nil, tok)
	assertStatus(t, rr, http.StatusBadRequest)
}

// ---------------------------------------------------------------------------
// Lifecycle
// ---------------------------------------------------------------------------

type countingCloser struct{ n atomic.Int32 }

func (c *countingCloser) Close() error {
	c.n.Add(1)
	return nil
}

func TestRunShutsDownAndCloses(t *testing.T) {
	env := newTestEnv(t)
	closer := &countingCloser{}

	cfg := DefaultConfig()
	cfg.Host = "127.0.0.1"
	cfg.Port = 0
	cfg.ShutdownTimeout = time.Second
	srv := New(cfg, env.server.svc, closer, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	if closer.n.Load() != 1 {
		t.Errorf("closer called %d times, want 1", closer.n.Load())
	}
}
