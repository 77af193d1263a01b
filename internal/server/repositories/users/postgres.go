package users

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

const userColumns = "id, username, password_hash, is_subscription, crystal, created_at"

// Timestamps are bound and scanned as RFC 3339 text so the same statements
// run under both the pgx driver and the sqlite driver used in tests.
const timeFormat = time.RFC3339Nano

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func scanUser(row *sql.Row) (*models.User, error) {
	user := &models.User{}
	var createdAt string
	err := row.Scan(&user.ID, &user.Username, &user.PasswordHash,
		&user.IsSubscription, &user.Crystal, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	if user.CreatedAt, err = time.Parse(timeFormat, createdAt); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return user, nil
}

func (r *PostgresRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {

	query :=
		`INSERT INTO users (username, password_hash, is_subscription, crystal, created_at)
         VALUES ($1, $2, $3, $4, $5)
		 RETURNING id
		 `

	err := r.db.QueryRowContext(ctx, query,
		user.Username, user.PasswordHash, user.IsSubscription, user.Crystal,
		user.CreatedAt.UTC().Format(timeFormat)).Scan(&user.ID)

	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(r.db.QueryRowContext(ctx, query, id))
}

func (r *PostgresRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE username = $1`
	return scanUser(r.db.QueryRowContext(ctx, query, username))
}

func (r *PostgresRepository) List(ctx context.Context) ([]models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []models.User
	for rows.Next() {
		var user models.User
		var createdAt string
		if err := rows.Scan(&user.ID, &user.Username, &user.PasswordHash,
			&user.IsSubscription, &user.Crystal, &createdAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		if user.CreatedAt, err = time.Parse(timeFormat, createdAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return result, nil
}

// Update applies only the non-nil fields of upd. With no fields set it is a
// plain fetch. Placeholders are numbered in order of first use so the same
// statement binds under both pgx and sqlite.
func (r *PostgresRepository) Update(ctx context.Context, id int64, upd Update) (*models.User, error) {

	var set []string
	var args []any

	if upd.PasswordHash != nil {
		args = append(args, *upd.PasswordHash)
		set = append(set, fmt.Sprintf("password_hash = $%d", len(args)))
	}
	if upd.IsSubscription != nil {
		args = append(args, *upd.IsSubscription)
		set = append(set, fmt.Sprintf("is_subscription = $%d", len(args)))
	}
	if upd.Crystal != nil {
		args = append(args, *upd.Crystal)
		set = append(set, fmt.Sprintf("crystal = $%d", len(args)))
	}

	if len(set) == 0 {
		return r.GetByID(ctx, id)
	}

	args = append(args, id)
	query := fmt.Sprintf(`UPDATE users SET %s WHERE id = $%d RETURNING %s`,
		strings.Join(set, ", "), len(args), userColumns)

	return scanUser(r.db.QueryRowContext(ctx, query, args...))
}

func (r *PostgresRepository) Delete(ctx context.Context, id int64) (bool, error) {
	query := `DELETE FROM users WHERE id = $1`

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
