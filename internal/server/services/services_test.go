package services

import (
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/wakeemil/gamebase/internal/logging"
	"github.com/wakeemil/gamebase/internal/server/db"
	"github.com/wakeemil/gamebase/internal/server/repositories/repomanager"
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

func setupServices(t *testing.T) (*UserService, *VersionService, *sql.DB) {
	t.Helper()

	name := strings.ReplaceAll(t.Name(), "/", "_")
	dsn := fmt.Sprintf("file:svc_%s?mode=memory&cache=shared", name)
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

	return NewUserService(m, rm, logger), NewVersionService(m, rm, logger), sqldb
}

func activeVersionCount(t *testing.T, sqldb *sql.DB) int {
	t.Helper()
	var n int
	require.NoError(t, sqldb.QueryRow(
		`SELECT COUNT(*) FROM game_versions WHERE is_active = true`).Scan(&n))
	return n
}
