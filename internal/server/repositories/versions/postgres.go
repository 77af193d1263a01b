package versions

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/wakeemil/gamebase/internal/common"
	"github.com/wakeemil/gamebase/internal/dbx"
	"github.com/wakeemil/gamebase/internal/server/models"
)

const versionColumns = "id, version_number, version_name, release_date, is_active"

// Timestamps are bound and scanned as RFC 3339 text so the same statements
// run under both the pgx driver and the sqlite driver used in tests. The
// fixed-width UTC form also keeps ORDER BY release_date correct on sqlite.
const timeFormat = time.RFC3339Nano

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func scanVersion(row *sql.Row) (*models.GameVersion, error) {
	v := &models.GameVersion{}
	var releaseDate string
	err := row.Scan(&v.ID, &v.VersionNumber, &v.VersionName, &releaseDate, &v.IsActive)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	if v.ReleaseDate, err = time.Parse(timeFormat, releaseDate); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return v, nil
}

func (r *PostgresRepository) Create(ctx context.Context, version *models.GameVersion) (*models.GameVersion, error) {

	query :=
		`INSERT INTO game_versions (version_number, version_name, release_date, is_active)
         VALUES ($1, $2, $3, $4)
		 RETURNING id
		 `

	err := r.db.QueryRowContext(ctx, query,
		version.VersionNumber, version.VersionName,
		version.ReleaseDate.UTC().Format(timeFormat), version.IsActive).Scan(&version.ID)

	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return version, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id int64) (*models.GameVersion, error) {
	query := `SELECT ` + versionColumns + ` FROM game_versions WHERE id = $1`
	return scanVersion(r.db.QueryRowContext(ctx, query, id))
}

func (r *PostgresRepository) GetLatestActive(ctx context.Context) (*models.GameVersion, error) {
	query := `SELECT ` + versionColumns + `
		 FROM game_versions
		 WHERE is_active = true
		 ORDER BY release_date DESC
		 LIMIT 1`
	return scanVersion(r.db.QueryRowContext(ctx, query))
}

func (r *PostgresRepository) List(ctx context.Context) ([]models.GameVersion, error) {
	query := `SELECT ` + versionColumns + ` FROM game_versions ORDER BY release_date DESC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []models.GameVersion
	for rows.Next() {
		var v models.GameVersion
		var releaseDate string
		if err := rows.Scan(&v.ID, &v.VersionNumber, &v.VersionName, &releaseDate, &v.IsActive); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		if v.ReleaseDate, err = time.Parse(timeFormat, releaseDate); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return result, nil
}

func (r *PostgresRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM game_versions`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

func (r *PostgresRepository) DeactivateAll(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `UPDATE game_versions SET is_active = false`)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Activate(ctx context.Context, id int64) (*models.GameVersion, error) {
	query := `UPDATE game_versions SET is_active = true WHERE id = $1 RETURNING ` + versionColumns
	return scanVersion(r.db.QueryRowContext(ctx, query, id))
}

// Update applies only the non-nil fields of upd. With no fields set it is a
// plain fetch.
func (r *PostgresRepository) Update(ctx context.Context, id int64, upd Update) (*models.GameVersion, error) {

	var set []string
	var args []any

	if upd.VersionNumber != nil {
		args = append(args, *upd.VersionNumber)
		set = append(set, fmt.Sprintf("version_number = $%d", len(args)))
	}
	if upd.VersionName != nil {
		args = append(args, *upd.VersionName)
		set = append(set, fmt.Sprintf("version_name = $%d", len(args)))
	}
	if upd.ReleaseDate != nil {
		args = append(args, upd.ReleaseDate.UTC().Format(timeFormat))
		set = append(set, fmt.Sprintf("release_date = $%d", len(args)))
	}

	if len(set) == 0 {
		return r.GetByID(ctx, id)
	}

	args = append(args, id)
	query := fmt.Sprintf(`UPDATE game_versions SET %s WHERE id = $%d RETURNING %s`,
		strings.Join(set, ", "), len(args), versionColumns)

	return scanVersion(r.db.QueryRowContext(ctx, query, args...))
}

func (r *PostgresRepository) Delete(ctx context.Context, id int64) (bool, error) {
	query := `DELETE FROM game_versions WHERE id = $1`

	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}

	return n > 0, nil
}
