package httpapi

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wakeemil/gamebase/internal/logging"
	"github.com/wakeemil/gamebase/internal/server/auth"
	"github.com/wakeemil/gamebase/internal/server/db"
	"github.com/wakeemil/gamebase/internal/server/repositories/repomanager"
	"github.com/wakeemil/gamebase/internal/server/services"
	_ "modernc.org/sqlite"
)

const testSchema = `
CREATE TABLE IF NOT EXISTS users (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	username TEXT UNIQUE NOT NULL,
	password_hash TEXT NOT NULL,
	is_subscription BOOLEAN NOT NULL DEFAULT false,
	crystal INTEGER NOT NULL DEFAULT 0,
	created_at TIMESTAMP
);
CREATE TABLE IF NOT EXISTS game_versions (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	version_number TEXT NOT NULL,
	version_name TEXT NOT NULL,
	release_date TIMESTAMP,
	is_active BOOLEAN NOT NULL DEFAULT true
);
`

const testSecret = "test-secret"

func setupServer(t *testing.T) (*Server, *services.VersionService) {
	t.Helper()

	name := strings.ReplaceAll(t.Name(), "/", "_")
	dsn := fmt.Sprintf("file:http_%s?mode=memory&cache=shared", name)
	sqldb, err := sql.Open("sqlite", dsn)
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(4)
	sqldb.SetMaxIdleConns(4)
	t.Cleanup(func() { _ = sqldb.Close() })

	_, err = sqldb.Exec(testSchema)
	require.NoError(t, err)

	logger := logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
	m := db.NewManager(sqldb, logger, time.Second)
	rm := repomanager.NewPostgresRepositoryManager()

	us := services.NewUserService(m, rm, logger)
	vs := services.NewVersionService(m, rm, logger)

	return NewServer(":0", logger, us, vs, testSecret, time.Hour), vs
}

func doJSON(t *testing.T, s *Server, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.echo.ServeHTTP(rec, req)

	var payload map[string]any
	if rec.Body.Len() > 0 && strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	}
	return rec, payload
}

func TestRoot_Liveness(t *testing.T) {
	s, _ := setupServer(t)

	rec, _ := doJSON(t, s, http.MethodGet, "/", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "API is running", rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))
}

func TestRegister_Success(t *testing.T) {
	s, _ := setupServer(t)

	rec, payload := doJSON(t, s, http.MethodPost, "/register",
		`{"username":"alice","password":"pw","is_subscription":true,"crystal":50}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "ok", payload["status"])
	assert.Greater(t, payload["user_id"].(float64), float64(0))
}

func TestRegister_MissingData(t *testing.T) {
	s, _ := setupServer(t)

	for _, body := range []string{``, `{}`, `{"username":"alice"}`, `{"password":"pw"}`} {
		rec, payload := doJSON(t, s, http.MethodPost, "/register", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "error", payload["status"])
		assert.Equal(t, "Missing data", payload["message"])
	}
}

func TestRegister_Duplicate(t *testing.T) {
	s, _ := setupServer(t)

	rec, _ := doJSON(t, s, http.MethodPost, "/register", `{"username":"alice","password":"pw"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, payload := doJSON(t, s, http.MethodPost, "/register", `{"username":"alice","password":"other"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "User exists", payload["message"])
}

func TestLogin_SuccessReturnsToken(t *testing.T) {
	s, _ := setupServer(t)

	rec, reg := doJSON(t, s, http.MethodPost, "/register",
		`{"username":"bob","password":"pw","crystal":25}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, payload := doJSON(t, s, http.MethodPost, "/login", `{"username":"bob","password":"pw"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "ok", payload["status"])
	assert.Equal(t, reg["user_id"], payload["user_id"])
	assert.Equal(t, false, payload["is_subscription"])
	assert.Equal(t, float64(25), payload["crystal"])

	userID, err := auth.GetUserIDFromToken(payload["access_token"].(string), []byte(testSecret))
	require.NoError(t, err)
	assert.Equal(t, int64(reg["user_id"].(float64)), userID)
}

func TestLogin_WrongPassword(t *testing.T) {
	s, _ := setupServer(t)

	rec, _ := doJSON(t, s, http.MethodPost, "/register", `{"username":"bob","password":"pw"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, payload := doJSON(t, s, http.MethodPost, "/login", `{"username":"bob","password":"guess"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "fail", payload["status"])
	assert.Equal(t, "wrong password", payload["message"])
}

func TestLogin_UnknownUser(t *testing.T) {
	s, _ := setupServer(t)

	rec, payload := doJSON(t, s, http.MethodPost, "/login", `{"username":"nobody","password":"pw"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "fail", payload["status"])
	assert.Equal(t, "user not found", payload["message"])
}

func TestVersion_NoneActive(t *testing.T) {
	s, _ := setupServer(t)

	rec, payload := doJSON(t, s, http.MethodGet, "/version", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "error", payload["status"])
	assert.Equal(t, "No active version found", payload["message"])
}

func TestVersion_ReturnsLatestActive(t *testing.T) {
	s, vs := setupServer(t)

	created, err := vs.Create(context.Background(), "1.2.0", "Summer Update", true)
	require.NoError(t, err)

	rec, payload := doJSON(t, s, http.MethodGet, "/version", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "ok", payload["status"])

	version := payload["version"].(map[string]any)
	assert.Equal(t, float64(created.ID), version["id"])
	assert.Equal(t, "1.2.0", version["version_number"])
	assert.Equal(t, "Summer Update", version["version_name"])
	assert.Equal(t, true, version["is_active"])

	releaseDate, err := time.Parse(time.RFC3339, version["release_date"].(string))
	require.NoError(t, err)
	assert.WithinDuration(t, created.ReleaseDate, releaseDate, time.Second)
}
