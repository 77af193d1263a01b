package repomanager

import (
	"context"
	"database/sql"

	"github.com/wakeemil/gamebase/internal/dbx"
	"github.com/wakeemil/gamebase/internal/server/repositories/users"
	"github.com/wakeemil/gamebase/internal/server/repositories/versions"
)

// RepositoryManager vends repositories bound to an arbitrary DBTX, so the
// same repository code runs against the pool, a read session, or a
// transaction. It also owns schema creation.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	Versions(db dbx.DBTX) versions.Repository
}
