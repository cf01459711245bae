package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"

	"backoffice/internal/auth"
	"backoffice/internal/entity/db"
	"backoffice/internal/entity/dto"
)

const (
	refreshKeyPrefix = "refresh:"
	tokenKeyPrefix   = "token:"
)

// ErrInvalidRefreshToken is returned when a presented refresh token is not in
// the store, has expired, or lost a concurrent rotation race.
var ErrInvalidRefreshToken = errors.New("refresh token is invalid or expired")

// TokenPair carries a freshly minted access/refresh token pair. RefreshToken
// is empty when the session store was unavailable at issue time.
type TokenPair struct {
	AccessToken     string
	AccessExpiresAt time.Time
	RefreshToken    string
}

// rotateScript swaps an old refresh token for a new one only if the old token
// still maps to the expected user, so exactly one concurrent caller can rotate
// a given token.
var rotateScript = redis.NewScript(`
local uid = redis.call("GET", KEYS[1])
if not uid or uid ~= ARGV[1] then
	return 0
end
redis.call("DEL", KEYS[1])
redis.call("SET", KEYS[2], ARGV[2], "EX", tonumber(ARGV[3]))
redis.call("SET", KEYS[3], ARGV[1], "EX", tonumber(ARGV[3]))
return 1
`)

// Manager 管理刷新令牌的签发、轮换、吊销与巡检。
// 每个用户同一时间只有一个有效会话：新登录会显式取代旧会话。
type Manager struct {
	rdb        *redis.Client
	tokens     *auth.Manager
	refreshTTL time.Duration
}

// NewManager creates a session manager on top of the given store client and
// access-token issuer.
func NewManager(rdb *redis.Client, tokens *auth.Manager, refreshTTL time.Duration) *Manager {
	if refreshTTL <= 0 {
		refreshTTL = 7 * 24 * time.Hour
	}
	return &Manager{rdb: rdb, tokens: tokens, refreshTTL: refreshTTL}
}

func refreshKey(userID uint) string {
	return refreshKeyPrefix + strconv.FormatUint(uint64(userID), 10)
}

func tokenKey(token string) string {
	return tokenKeyPrefix + token
}

// Issue mints an access/refresh pair and persists the refresh session,
// superseding any prior session for the user. A store failure degrades the
// result to an access token without refresh capability instead of failing the
// login.
func (m *Manager) Issue(ctx context.Context, user *db.User, roleNames []string) (TokenPair, error) {
	access, expiresAt, err := m.tokens.GenerateToken(user, roleNames)
	if err != nil {
		return TokenPair{}, fmt.Errorf("generate access token: %w", err)
	}
	refresh, err := auth.GenerateOpaqueToken()
	if err != nil {
		return TokenPair{}, err
	}

	pair := TokenPair{AccessToken: access, AccessExpiresAt: expiresAt, RefreshToken: refresh}

	if err := m.persistSession(ctx, user.ID, refresh); err != nil {
		logrus.WithError(err).WithField("user_id", user.ID).
			Warn("session store unavailable, issuing access token without refresh capability")
		pair.RefreshToken = ""
	}
	return pair, nil
}

// persistSession supersedes the user's previous refresh session and writes
// the new bidirectional pair with matching TTLs.
func (m *Manager) persistSession(ctx context.Context, userID uint, refresh string) error {
	prev, err := m.rdb.Get(ctx, refreshKey(userID)).Result()
	switch {
	case err == nil && prev != "":
		if delErr := m.rdb.Del(ctx, tokenKey(prev)).Err(); delErr != nil {
			return fmt.Errorf("supersede prior session: %w", delErr)
		}
	case err != nil && !errors.Is(err, redis.Nil):
		return fmt.Errorf("lookup prior session: %w", err)
	}

	pipe := m.rdb.TxPipeline()
	pipe.Set(ctx, refreshKey(userID), refresh, m.refreshTTL)
	pipe.Set(ctx, tokenKey(refresh), strconv.FormatUint(uint64(userID), 10), m.refreshTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("persist session: %w", err)
	}
	return nil
}

// Peek resolves a refresh token to its user id without consuming it.
func (m *Manager) Peek(ctx context.Context, refreshToken string) (uint, error) {
	val, err := m.rdb.Get(ctx, tokenKey(refreshToken)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, ErrInvalidRefreshToken
	}
	if err != nil {
		return 0, fmt.Errorf("session store lookup: %w", err)
	}
	userID, err := strconv.ParseUint(val, 10, 64)
	if err != nil {
		return 0, ErrInvalidRefreshToken
	}
	return uint(userID), nil
}

// Rotate exchanges a refresh token for a new token pair. The old token is
// single-use: a concurrent caller presenting the same token loses the race
// and observes ErrInvalidRefreshToken.
func (m *Manager) Rotate(ctx context.Context, oldToken string, user *db.User, roleNames []string) (TokenPair, error) {
	access, expiresAt, err := m.tokens.GenerateToken(user, roleNames)
	if err != nil {
		return TokenPair{}, fmt.Errorf("generate access token: %w", err)
	}
	refresh, err := auth.GenerateOpaqueToken()
	if err != nil {
		return TokenPair{}, err
	}

	keys := []string{tokenKey(oldToken), refreshKey(user.ID), tokenKey(refresh)}
	uid := strconv.FormatUint(uint64(user.ID), 10)
	ttlSeconds := int(m.refreshTTL / time.Second)

	swapped, err := rotateScript.Run(ctx, m.rdb, keys, uid, refresh, ttlSeconds).Int()
	if err != nil {
		return TokenPair{}, fmt.Errorf("rotate session: %w", err)
	}
	if swapped == 0 {
		return TokenPair{}, ErrInvalidRefreshToken
	}

	return TokenPair{AccessToken: access, AccessExpiresAt: expiresAt, RefreshToken: refresh}, nil
}

// Revoke removes the user's refresh session. It is idempotent: revoking a
// user without a session succeeds.
func (m *Manager) Revoke(ctx context.Context, userID uint) error {
	token, err := m.rdb.Get(ctx, refreshKey(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("session store lookup: %w", err)
	}
	if err := m.rdb.Del(ctx, refreshKey(userID), tokenKey(token)).Err(); err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	return nil
}

// Sessions scans the refresh-key namespace and reports all active sessions.
// Diagnostic use only.
func (m *Manager) Sessions(ctx context.Context) ([]dto.SessionInfo, error) {
	keys, err := m.rdb.Keys(ctx, refreshKeyPrefix+"*").Result()
	if err != nil {
		return nil, fmt.Errorf("session store scan: %w", err)
	}

	sessions := make([]dto.SessionInfo, 0, len(keys))
	for _, key := range keys {
		rawID := strings.TrimPrefix(key, refreshKeyPrefix)
		userID, err := strconv.ParseUint(rawID, 10, 64)
		if err != nil {
			continue
		}
		info, err := m.SessionFor(ctx, uint(userID))
		if err != nil {
			return nil, err
		}
		if info != nil {
			sessions = append(sessions, *info)
		}
	}
	return sessions, nil
}

// SessionFor returns the active session for one user, or nil when none exists.
func (m *Manager) SessionFor(ctx context.Context, userID uint) (*dto.SessionInfo, error) {
	token, err := m.rdb.Get(ctx, refreshKey(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("session store lookup: %w", err)
	}
	ttl, err := m.rdb.TTL(ctx, refreshKey(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("session store ttl: %w", err)
	}
	return &dto.SessionInfo{
		UserID:           userID,
		RefreshToken:     token,
		ExpiresInSeconds: int64(ttl / time.Second),
	}, nil
}
