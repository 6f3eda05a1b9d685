package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"inkwell/internal/config"
	"inkwell/internal/testutil"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func testConfig() *config.Config {
	return &config.Config{
		Port:                 "0",
		Env:                  "test",
		JWTSecret:            "test-secret-key-12345678901234567890123456789012",
		JWTTTL:               time.Hour,
		JWTIssuer:            "inkwell-api",
		JWTAudience:          "inkwell-client",
		BcryptCost:           4,
		AllowedOrigins:       "*",
		PublicBaseURL:        "https://blog.example.com",
		EnforcePostOwnership: true,
	}
}

// newTestServer builds a server over SQLite. With withRedis the server gets a
// miniredis instance, otherwise it runs on the in-process bus.
func newTestServer(t *testing.T, cfg *config.Config, withRedis bool) *Server {
	t.Helper()

	var rdb *redis.Client
	if withRedis {
		rdb = newTestRedis(t, miniredis.RunT(t))
	}
	return newReplica(t, cfg, testutil.NewSQLiteDB(t), rdb)
}

func newTestRedis(t *testing.T, mr *miniredis.Miniredis) *redis.Client {
	t.Helper()
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

// newReplica builds a server over shared dependencies, as one of several API
// replicas would run.
func newReplica(t *testing.T, cfg *config.Config, db *gorm.DB, rdb *redis.Client) *Server {
	t.Helper()

	s, err := NewServerWithDeps(cfg, db, rdb)
	require.NoError(t, err)
	t.Cleanup(func() {
		if s.shutdownFn != nil {
			s.shutdownFn()
		}
	})
	return s
}

// doJSON sends a request with an optional JSON body and bearer token and
// returns the status code and raw response body.
func doJSON(t *testing.T, app *fiber.App, method, path string, body any, token string) (int, []byte) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, data
}

func decode[T any](t *testing.T, data []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(data, &v), string(data))
	return v
}

type authBody struct {
	ID       uint   `json:"id"`
	Email    string `json:"email"`
	FullName string `json:"fullName"`
	Token    string `json:"token"`
}

type errorBody struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}

func register(t *testing.T, app *fiber.App, email string) authBody {
	t.Helper()
	status, data := doJSON(t, app, http.MethodPost, "/api/auth/register", map[string]string{
		"email":    email,
		"fullName": "Test Author",
		"password": "12345",
	}, "")
	require.Equal(t, http.StatusCreated, status, string(data))
	return decode[authBody](t, data)
}
