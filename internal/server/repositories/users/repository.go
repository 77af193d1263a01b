// Package users contains the SQL repository for player accounts.
package users

import (
	"context"

	"github.com/wakeemil/gamebase/internal/server/models"
)

// Update enumerates the fields a caller may change on a user. Nil fields are
// left untouched. Username is immutable after creation and is deliberately
// not listed here.
type Update struct {
	PasswordHash   *string
	IsSubscription *bool
	Crystal        *int64
}

// Repository is the storage contract for users. Absent rows are reported as
// common.ErrorNotFound, never as nil-with-no-error.
type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByID(ctx context.Context, id int64) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	List(ctx context.Context) ([]models.User, error)
	Update(ctx context.Context, id int64, upd Update) (*models.User, error)
	Delete(ctx context.Context, id int64) (bool, error)
}
