package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	apperrors "bto-allocation/internal/common/errors"
	"bto-allocation/internal/models"
)

const sessionKeyPrefix = "session:"

// SessionManager keeps login sessions in Redis. Each session is a JSON blob
// under session:<token> with the TTL doing the expiry; nothing is scanned.
type SessionManager struct {
	client *redis.Client
	ttl    time.Duration
	now    func() time.Time
}

func NewSessionManager(client *redis.Client, ttl time.Duration) *SessionManager {
	return &SessionManager{
		client: client,
		ttl:    ttl,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Create opens a fresh session for the user.
func (m *SessionManager) Create(ctx context.Context, u *models.User) (*models.Session, error) {
	now := m.now()
	sess := &models.Session{
		Token:     uuid.NewString(),
		NRIC:      u.NRIC,
		Role:      u.Role,
		CreatedAt: now,
		ExpiresAt: now.Add(m.ttl),
	}
	data, err := json.Marshal(sess)
	if err != nil {
		return nil, fmt.Errorf("marshal session: %w", err)
	}
	if err := m.client.Set(ctx, sessionKeyPrefix+sess.Token, data, m.ttl).Err(); err != nil {
		return nil, apperrors.NewStoreFailureError(err)
	}
	return sess, nil
}

// Get resolves a token. Expired and unknown tokens both come back as an
// authorization failure, not a lookup failure.
func (m *SessionManager) Get(ctx context.Context, token string) (*models.Session, error) {
	data, err := m.client.Get(ctx, sessionKeyPrefix+token).Bytes()
	if err == redis.Nil {
		return nil, apperrors.NewUnauthorizedError("session expired or unknown")
	}
	if err != nil {
		return nil, apperrors.NewStoreFailureError(err)
	}
	var sess models.Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, apperrors.NewStoreFailureError(err)
	}
	if sess.Expired(m.now()) {
		_ = m.client.Del(ctx, sessionKeyPrefix+token).Err()
		return nil, apperrors.NewUnauthorizedError("session expired or unknown")
	}
	return &sess, nil
}

// Delete drops a session. Unknown tokens are ignored.
func (m *SessionManager) Delete(ctx context.Context, token string) error {
	if err := m.client.Del(ctx, sessionKeyPrefix+token).Err(); err != nil {
		return apperrors.NewStoreFailureError(err)
	}
	return nil
}
