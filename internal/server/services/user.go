// Package services contains the business operations exposed to the HTTP
// layer and the operator CLI. Services pick the right scope for every
// operation (read session, read session with retry, or write transaction)
// and keep the repositories free of policy.
package services

import (
	"context"
	"errors"
	"time"

	"github.com/wakeemil/gamebase/internal/common"
	"github.com/wakeemil/gamebase/internal/logging"
	"github.com/wakeemil/gamebase/internal/server/db"
	"github.com/wakeemil/gamebase/internal/server/models"
	"github.com/wakeemil/gamebase/internal/server/repositories/repomanager"
	"github.com/wakeemil/gamebase/internal/server/repositories/users"
)

// VerifyFunc compares a stored password hash against a plaintext candidate.
// Hashing and verification are injected by the caller; this layer never
// sees a hashing algorithm.
type VerifyFunc func(hash, password string) bool

// AuthResult is the outcome of an authentication attempt. A wrong password
// or an unknown user is a result, not an error.
type AuthResult struct {
	OK      bool
	Message string
	User    *models.User
}

// UserService implements account operations over the session manager.
type UserService struct {
	manager *db.Manager
	repos   repomanager.RepositoryManager
	logger  logging.Logger
}

func NewUserService(m *db.Manager, rm repomanager.RepositoryManager, logger logging.Logger) *UserService {
	return &UserService{manager: m, repos: rm, logger: logger}
}

// Create inserts a new user and returns it with its assigned id. Username
// uniqueness is backstopped by the unique constraint; callers that want a
// friendly duplicate answer check existence first.
func (s *UserService) Create(ctx context.Context, username, passwordHash string, isSubscription bool, crystal int64) (*models.User, error) {
	user := &models.User{
		Username:       username,
		PasswordHash:   passwordHash,
		IsSubscription: isSubscription,
		Crystal:        crystal,
		CreatedAt:      time.Now().UTC(),
	}

	err := s.manager.Session(ctx, func(ctx context.Context, sess *db.Session) error {
		created, err := s.repos.Users(sess).Create(ctx, user)
		if err != nil {
			return err
		}
		user = created
		return sess.Commit()
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "user created", "username", user.Username, "id", user.ID)
	return user, nil
}

// GetByID looks up a user by id. Absent rows are common.ErrorNotFound.
// Runs under the single-retry read scope: a stale pooled connection is
// recovered once, a second transient failure propagates.
func (s *UserService) GetByID(ctx context.Context, id int64) (*models.User, error) {
	var user *models.User
	err := s.manager.ReadSession(ctx, func(ctx context.Context, sess *db.Session) error {
		var err error
		user, err = s.repos.Users(sess).GetByID(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// GetByUsername looks up a user by name, with the same retry policy as
// GetByID.
func (s *UserService) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	var user *models.User
	err := s.manager.ReadSession(ctx, func(ctx context.Context, sess *db.Session) error {
		var err error
		user, err = s.repos.Users(sess).GetByUsername(ctx, username)
		return err
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// Authenticate checks credentials using the injected verify capability.
// Unknown user and wrong password both come back as {OK:false, Message};
// only storage failures are errors.
func (s *UserService) Authenticate(ctx context.Context, username string, verify VerifyFunc, password string) (*AuthResult, error) {
	var user *models.User
	err := s.manager.Session(ctx, func(ctx context.Context, sess *db.Session) error {
		var err error
		user, err = s.repos.Users(sess).GetByUsername(ctx, username)
		return err
	})
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return &AuthResult{OK: false, Message: "user not found"}, nil
		}
		return nil, err
	}

	if !verify(user.PasswordHash, password) {
		return &AuthResult{OK: false, Message: "wrong password"}, nil
	}

	return &AuthResult{OK: true, Message: "authentication successful", User: user}, nil
}

// List returns all users.
func (s *UserService) List(ctx context.Context) ([]models.User, error) {
	var result []models.User
	err := s.manager.Session(ctx, func(ctx context.Context, sess *db.Session) error {
		var err error
		result, err = s.repos.Users(sess).List(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Update applies the non-nil fields of upd to the user and returns the
// updated row. An update with no fields set is a no-op fetch. Absent ids
// are common.ErrorNotFound.
func (s *UserService) Update(ctx context.Context, id int64, upd users.Update) (*models.User, error) {
	var user *models.User
	err := s.manager.Session(ctx, func(ctx context.Context, sess *db.Session) error {
		var err error
		user, err = s.repos.Users(sess).Update(ctx, id, upd)
		if err != nil {
			return err
		}
		return sess.Commit()
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "user updated", "id", user.ID)
	return user, nil
}

// Delete removes a user. Returns false (and no error) when the id does not
// exist.
func (s *UserService) Delete(ctx context.Context, id int64) (bool, error) {
	var deleted bool
	err := s.manager.Session(ctx, func(ctx context.Context, sess *db.Session) error {
		var err error
		deleted, err = s.repos.Users(sess).Delete(ctx, id)
		if err != nil {
			return err
		}
		return sess.Commit()
	})
	if err != nil {
		return false, err
	}

	if deleted {
		s.logger.Info(ctx, "user deleted", "id", id)
	}
	return deleted, nil
}
