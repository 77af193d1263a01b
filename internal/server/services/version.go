package services

import (
	"context"
	"time"

	"github.com/wakeemil/gamebase/internal/dbx"
	"github.com/wakeemil/gamebase/internal/logging"
	"github.com/wakeemil/gamebase/internal/server/db"
	"github.com/wakeemil/gamebase/internal/server/models"
	"github.com/wakeemil/gamebase/internal/server/repositories/repomanager"
	"github.com/wakeemil/gamebase/internal/server/repositories/versions"
)

// VersionService implements game release operations. It is the sole owner
// of the single-active-version invariant: every path that can activate a
// row deactivates the rest inside the same write transaction.
type VersionService struct {
	manager *db.Manager
	repos   repomanager.RepositoryManager
	logger  logging.Logger
}

func NewVersionService(m *db.Manager, rm repomanager.RepositoryManager, logger logging.Logger) *VersionService {
	return &VersionService{manager: m, repos: rm, logger: logger}
}

// Create inserts a new game version. When isActive is true, all existing
// rows are deactivated in the same transaction as the insert, so no reader
// ever observes two active versions.
func (s *VersionService) Create(ctx context.Context, versionNumber, versionName string, isActive bool) (*models.GameVersion, error) {
	version := &models.GameVersion{
		VersionNumber: versionNumber,
		VersionName:   versionName,
		ReleaseDate:   time.Now().UTC(),
		IsActive:      isActive,
	}

	err := s.manager.Transaction(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repos.Versions(tx)
		if version.IsActive {
			if err := repo.DeactivateAll(ctx); err != nil {
				return err
			}
		}
		created, err := repo.Create(ctx, version)
		if err != nil {
			return err
		}
		version = created
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "game version created",
		"version", version.VersionNumber, "name", version.VersionName, "active", version.IsActive)
	return version, nil
}

// GetLatestActive returns the newest active version by release date. Absent
// (empty table or nothing active) is common.ErrorNotFound. Uses the
// single-retry read scope.
func (s *VersionService) GetLatestActive(ctx context.Context) (*models.GameVersion, error) {
	var version *models.GameVersion
	err := s.manager.ReadSession(ctx, func(ctx context.Context, sess *db.Session) error {
		var err error
		version, err = s.repos.Versions(sess).GetLatestActive(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return version, nil
}

// GetByID looks up a version by id.
func (s *VersionService) GetByID(ctx context.Context, id int64) (*models.GameVersion, error) {
	var version *models.GameVersion
	err := s.manager.Session(ctx, func(ctx context.Context, sess *db.Session) error {
		var err error
		version, err = s.repos.Versions(sess).GetByID(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return version, nil
}

// List returns all versions, newest release first.
func (s *VersionService) List(ctx context.Context) ([]models.GameVersion, error) {
	var result []models.GameVersion
	err := s.manager.Session(ctx, func(ctx context.Context, sess *db.Session) error {
		var err error
		result, err = s.repos.Versions(sess).List(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// SetActive makes the given version the single active one: existence is
// verified first, then every row is deactivated and the target activated,
// all in one transaction. A missing id aborts the transaction with no side
// effects — the previously active version stays active.
func (s *VersionService) SetActive(ctx context.Context, id int64) (*models.GameVersion, error) {
	var version *models.GameVersion
	err := s.manager.Transaction(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repos.Versions(tx)

		if _, err := repo.GetByID(ctx, id); err != nil {
			return err
		}
		if err := repo.DeactivateAll(ctx); err != nil {
			return err
		}

		var err error
		version, err = repo.Activate(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "active game version set", "version", version.VersionNumber, "id", version.ID)
	return version, nil
}

// Update applies the non-nil fields of upd to the version. The update
// whitelist does not include the active flag; activation only happens
// through Create and SetActive.
func (s *VersionService) Update(ctx context.Context, id int64, upd versions.Update) (*models.GameVersion, error) {
	var version *models.GameVersion
	err := s.manager.Session(ctx, func(ctx context.Context, sess *db.Session) error {
		var err error
		version, err = s.repos.Versions(sess).Update(ctx, id, upd)
		if err != nil {
			return err
		}
		return sess.Commit()
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "game version updated", "id", version.ID)
	return version, nil
}

// Delete removes a version. Returns false (and no error) when the id does
// not exist.
func (s *VersionService) Delete(ctx context.Context, id int64) (bool, error) {
	var deleted bool
	err := s.manager.Session(ctx, func(ctx context.Context, sess *db.Session) error {
		var err error
		deleted, err = s.repos.Versions(sess).Delete(ctx, id)
		if err != nil {
			return err
		}
		return sess.Commit()
	})
	if err != nil {
		return false, err
	}

	if deleted {
		s.logger.Info(ctx, "game version deleted", "id", id)
	}
	return deleted, nil
}
