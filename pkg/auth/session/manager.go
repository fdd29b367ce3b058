// Package session keeps one Redis record per issued access token. The record
// holds the refresh token for that access token and is what makes logout and
// refresh rotation revoke a JWT before it expires.
package session

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	redislib "github.com/redis/go-redis/v9"

	"github.com/ironmonger/hardware-backend/pkg/config"
	"github.com/ironmonger/hardware-backend/pkg/enums"
	redisclient "github.com/ironmonger/hardware-backend/pkg/redis"
)

const refreshTokenBytes = 32

var (
	ErrInvalidRefreshToken = errors.New("invalid refresh token")

	errMissingAccessID = errors.New("access id is required")
)

// AccessSessionChecker is all the auth middleware needs.
type AccessSessionChecker interface {
	HasSession(ctx context.Context, accessID string) (bool, error)
}

type store interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
	AccessSessionKey(accessID string) string
}

type Session struct {
	AccessID     string         `json:"-"`
	RefreshToken string         `json:"refresh_token"`
	UserID       uuid.UUID      `json:"user_id"`
	Role         enums.UserRole `json:"role"`
}

type Manager struct {
	store store
	ttl   time.Duration
}

// NewManager requires the refresh lifetime to outlast the access token,
// otherwise refresh could never succeed.
func NewManager(client *redisclient.Client, cfg config.JWTConfig) (*Manager, error) {
	if client == nil {
		return nil, errors.New("redis client is required")
	}
	ttl, accessTTL := cfg.RefreshTokenTTL(), cfg.AccessTokenTTL()
	if ttl <= 0 {
		return nil, errors.New("refresh token ttl must be positive")
	}
	if ttl <= accessTTL {
		return nil, fmt.Errorf("refresh token ttl (%s) must exceed access token ttl (%s)", ttl, accessTTL)
	}
	return &Manager{store: client, ttl: ttl}, nil
}

// NewAccessID mints the JWT jti, which is also the session key.
func NewAccessID() string {
	return uuid.NewString()
}

func (m *Manager) Generate(ctx context.Context, accessID string, userID uuid.UUID, role enums.UserRole) (string, error) {
	if blank(accessID) {
		return "", errMissingAccessID
	}
	if userID == uuid.Nil || !role.IsValid() {
		return "", errors.New("session owner is required")
	}
	s, err := m.open(ctx, accessID, userID, role)
	if err != nil {
		return "", err
	}
	return s.RefreshToken, nil
}

// Rotate trades a refresh token for a new session owned by the same user.
// The old session is deleted only after the new one is stored.
func (m *Manager) Rotate(ctx context.Context, oldAccessID, provided string) (*Session, error) {
	if blank(oldAccessID) || blank(provided) {
		return nil, ErrInvalidRefreshToken
	}

	oldKey := m.store.AccessSessionKey(oldAccessID)
	raw, err := m.store.Get(ctx, oldKey)
	if errors.Is(err, redislib.Nil) {
		return nil, ErrInvalidRefreshToken
	}
	if err != nil {
		return nil, err
	}
	var current Session
	if json.Unmarshal([]byte(raw), &current) != nil {
		return nil, ErrInvalidRefreshToken
	}
	if subtle.ConstantTimeCompare([]byte(current.RefreshToken), []byte(provided)) != 1 {
		return nil, ErrInvalidRefreshToken
	}

	next, err := m.open(ctx, NewAccessID(), current.UserID, current.Role)
	if err != nil {
		return nil, err
	}
	if err := m.store.Del(ctx, oldKey); err != nil {
		return nil, err
	}
	return next, nil
}

func (m *Manager) Revoke(ctx context.Context, accessID string) error {
	if blank(accessID) {
		return errMissingAccessID
	}
	return m.store.Del(ctx, m.store.AccessSessionKey(accessID))
}

func (m *Manager) HasSession(ctx context.Context, accessID string) (bool, error) {
	if blank(accessID) {
		return false, errMissingAccessID
	}
	_, err := m.store.Get(ctx, m.store.AccessSessionKey(accessID))
	switch {
	case errors.Is(err, redislib.Nil):
		return false, nil
	case err != nil:
		return false, err
	}
	return true, nil
}

func (m *Manager) open(ctx context.Context, accessID string, userID uuid.UUID, role enums.UserRole) (*Session, error) {
	buf := make([]byte, refreshTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return nil, fmt.Errorf("generating refresh token: %w", err)
	}
	s := &Session{
		AccessID:     accessID,
		RefreshToken: base64.RawURLEncoding.EncodeToString(buf),
		UserID:       userID,
		Role:         role,
	}
	raw, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encode session: %w", err)
	}
	if err := m.store.Set(ctx, m.store.AccessSessionKey(accessID), string(raw), m.ttl); err != nil {
		return nil, err
	}
	return s, nil
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}
