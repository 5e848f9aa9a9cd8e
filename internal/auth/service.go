// Package auth verifies credentials and manages login sessions. Passwords
// are bcrypt hashes on the user record; sessions live in Redis under a TTL
// so a restart of this process does not log everyone out.
package auth

import (
	"context"

	"golang.org/x/crypto/bcrypt"

	apperrors "bto-allocation/internal/common/errors"
	"bto-allocation/internal/common/logger"
	"bto-allocation/internal/models"
	"bto-allocation/internal/tables"
)

type Service struct {
	tables     *tables.Tables
	sessions   *SessionManager
	log        logger.Logger
	bcryptCost int
}

func NewService(t *tables.Tables, sessions *SessionManager, bcryptCost int, log logger.Logger) *Service {
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	return &Service{
		tables:     t,
		sessions:   sessions,
		log:        log.WithFields(map[string]interface{}{"component": "auth"}),
		bcryptCost: bcryptCost,
	}
}

// Login checks the NRIC and password and opens a session. The same
// credential error comes back for an unknown NRIC and a wrong password.
func (s *Service) Login(ctx context.Context, nric, password string) (*models.Session, error) {
	u, ok := s.tables.User(nric)
	if !ok {
		return nil, apperrors.NewInvalidCredentialError()
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		s.log.Warn("failed login attempt", map[string]interface{}{"nric": nric})
		return nil, apperrors.NewInvalidCredentialError()
	}
	sess, err := s.sessions.Create(ctx, u)
	if err != nil {
		return nil, err
	}
	s.log.Info("user logged in", map[string]interface{}{
		"nric": nric,
		"role": string(u.Role),
	})
	return sess, nil
}

// Logout closes the session. Closing an unknown token is not an error.
func (s *Service) Logout(ctx context.Context, token string) error {
	return s.sessions.Delete(ctx, token)
}

// Resolve maps a session token back to its user record.
func (s *Service) Resolve(ctx context.Context, token string) (*models.User, error) {
	sess, err := s.sessions.Get(ctx, token)
	if err != nil {
		return nil, err
	}
	u, ok := s.tables.User(sess.NRIC)
	if !ok {
		return nil, apperrors.NewUnauthorizedError("session user no longer exists")
	}
	return u, nil
}

// ChangePassword re-verifies the current password before storing a new hash.
// Existing sessions stay valid.
func (s *Service) ChangePassword(ctx context.Context, nric, current, next string) error {
	if len(next) < 8 {
		return apperrors.NewInvalidInputError("password must be at least 8 characters")
	}
	u, ok := s.tables.User(nric)
	if !ok {
		return apperrors.NewInvalidCredentialError()
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(current)) != nil {
		return apperrors.NewInvalidCredentialError()
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(next), s.bcryptCost)
	if err != nil {
		return apperrors.NewInvalidInputError("password not hashable: " + err.Error())
	}
	err = s.tables.Update(ctx, func(tx *tables.Tx) error {
		fresh, ok := tx.User(nric)
		if !ok {
			return apperrors.NewNotFoundError("user", nric)
		}
		fresh.PasswordHash = string(hash)
		tx.PutUser(fresh)
		return nil
	})
	if err != nil {
		return err
	}
	s.log.Info("password changed", map[string]interface{}{"nric": nric})
	return nil
}

// HashPassword produces a bcrypt hash for seeding user records.
func HashPassword(password string, cost int) (string, error) {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
