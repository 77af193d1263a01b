// Package versions contains the SQL repository for game releases.
package versions

import (
	"context"
	"time"

	"github.com/wakeemil/gamebase/internal/server/models"
)

// Update enumerates the fields a caller may change on a game version. Nil
// fields are left untouched. IsActive is deliberately absent: activation is
// only reachable through the transactional deactivate-then-activate path.
type Update struct {
	VersionNumber *string
	VersionName   *string
	ReleaseDate   *time.Time
}

// Repository is the storage contract for game versions. Absent rows are
// reported as common.ErrorNotFound.
type Repository interface {
	Create(ctx context.Context, version *models.GameVersion) (*models.GameVersion, error)
	GetByID(ctx context.Context, id int64) (*models.GameVersion, error)
	// GetLatestActive returns the newest active row by release date. Ordering
	// is defensive: if the single-active invariant is ever violated the
	// newest active row wins instead of the call failing.
	GetLatestActive(ctx context.Context) (*models.GameVersion, error)
	List(ctx context.Context) ([]models.GameVersion, error)
	Count(ctx context.Context) (int64, error)
	DeactivateAll(ctx context.Context) error
	Activate(ctx context.Context, id int64) (*models.GameVersion, error)
	Update(ctx context.Context, id int64, upd Update) (*models.GameVersion, error)
	Delete(ctx context.Context, id int64) (bool, error)
}
