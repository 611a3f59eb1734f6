package utils

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/pavitra93/food-ordering-admin/shared/models"
)

var (
	RedisClient *redis.Client
	ctx         = context.Background()

	ErrSessionNotFound = errors.New("session not found")
	ErrSessionExpired  = errors.New("session expired")
)

// InitRedis initializes the Redis client
func InitRedis() error {
	redisHost := os.Getenv("REDIS_HOST")
	if redisHost == "" {
		redisHost = "localhost"
	}

	redisPort := os.Getenv("REDIS_PORT")
	if redisPort == "" {
		redisPort = "6379"
	}

	addr := fmt.Sprintf("%s:%s", redisHost, redisPort)

	RedisClient = redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     os.Getenv("REDIS_PASSWORD"),
		DB:           0,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 5,
	})

	if _, err := RedisClient.Ping(ctx).Result(); err != nil {
		return fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}

	logrus.Infof("Connected to Redis at %s", addr)
	return nil
}

// GetRedisClient returns the Redis client instance (for advanced operations)
func GetRedisClient() *redis.Client {
	return RedisClient
}

// CloseRedis closes the Redis connection
func CloseRedis() error {
	if RedisClient != nil {
		return RedisClient.Close()
	}
	return nil
}

// Token Session Management Functions

// generateTokenHash creates a SHA256 hash of the access token for use as Redis key
func generateTokenHash(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}

func sessionKey(accessToken string) string {
	return fmt.Sprintf("token:session:%s", generateTokenHash(accessToken))
}

func userSessionsKey(userID uuid.UUID) string {
	return fmt.Sprintf("user:sessions:%s", userID)
}

// CreateTokenSession stores a session under the token hash and indexes it by user
func CreateTokenSession(accessToken string, profile models.UserProfile, ttl time.Duration) (*models.TokenSession, error) {
	if RedisClient == nil {
		return nil, fmt.Errorf("Redis client not initialized")
	}

	now := time.Now()
	session := &models.TokenSession{
		UserProfile: profile,
		CreatedAt:   now,
		LastUsedAt:  now,
		ExpiresAt:   now.Add(ttl),
		SessionID:   uuid.New().String(),
	}

	sessionData, err := json.Marshal(session)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal session: %w", err)
	}

	key := sessionKey(accessToken)
	pipe := RedisClient.TxPipeline()
	pipe.Set(ctx, key, sessionData, ttl)
	pipe.SAdd(ctx, userSessionsKey(profile.UserID), key)
	pipe.Expire(ctx, userSessionsKey(profile.UserID), ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("failed to store session in Redis: %w", err)
	}

	return session, nil
}

// GetTokenSession retrieves a token session from Redis (token hash lookup)
func GetTokenSession(accessToken string) (*models.TokenSession, error) {
	if RedisClient == nil {
		return nil, fmt.Errorf("Redis client not initialized")
	}

	key := sessionKey(accessToken)
	sessionData, err := RedisClient.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session from Redis: %w", err)
	}

	var session models.TokenSession
	if err := json.Unmarshal([]byte(sessionData), &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}

	if session.IsExpired() {
		RedisClient.Del(ctx, key)
		return nil, ErrSessionExpired
	}

	return &session, nil
}

// RevokeTokenSession removes a token session from Redis and from its user's index
func RevokeTokenSession(accessToken string) error {
	if RedisClient == nil {
		return fmt.Errorf("Redis client not initialized")
	}

	key := sessionKey(accessToken)
	pipe := RedisClient.TxPipeline()
	pipe.Del(ctx, key)
	if session, err := GetTokenSession(accessToken); err == nil {
		pipe.SRem(ctx, userSessionsKey(session.UserProfile.UserID), key)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to revoke session: %w", err)
	}
	return nil
}

type indexedSession struct {
	key     string
	session models.TokenSession
}

// userSessions loads every live session in the user's index and drops index
// entries whose session is gone
func userSessions(userID uuid.UUID) ([]indexedSession, error) {
	indexKey := userSessionsKey(userID)
	keys, err := RedisClient.SMembers(ctx, indexKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list user sessions: %w", err)
	}

	var (
		live  []indexedSession
		stale []interface{}
	)
	for _, key := range keys {
		data, err := RedisClient.Get(ctx, key).Bytes()
		if err == redis.Nil {
			stale = append(stale, key)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to get session from Redis: %w", err)
		}

		var session models.TokenSession
		if err := json.Unmarshal(data, &session); err != nil {
			return nil, fmt.Errorf("failed to unmarshal session: %w", err)
		}
		if session.IsExpired() {
			stale = append(stale, key)
			continue
		}
		live = append(live, indexedSession{key: key, session: session})
	}

	if len(stale) > 0 {
		if err := RedisClient.SRem(ctx, indexKey, stale...).Err(); err != nil {
			logrus.WithError(err).WithField("user_id", userID).Warn("Failed to prune session index")
		}
	}
	sort.Slice(live, func(i, j int) bool {
		return live[i].session.CreatedAt.Before(live[j].session.CreatedAt)
	})
	return live, nil
}

// ListUserSessions returns the live sessions of a user, oldest first
func ListUserSessions(userID uuid.UUID) ([]models.TokenSession, error) {
	if RedisClient == nil {
		return nil, fmt.Errorf("Redis client not initialized")
	}

	live, err := userSessions(userID)
	if err != nil {
		return nil, err
	}
	sessions := make([]models.TokenSession, len(live))
	for i, entry := range live {
		sessions[i] = entry.session
	}
	return sessions, nil
}

// RevokeUserSession ends the session of userID with the given session ID. A
// session of another user is reported as not found.
func RevokeUserSession(userID uuid.UUID, sessionID string) error {
	if RedisClient == nil {
		return fmt.Errorf("Redis client not initialized")
	}

	live, err := userSessions(userID)
	if err != nil {
		return err
	}
	for _, entry := range live {
		if entry.session.SessionID != sessionID {
			continue
		}
		pipe := RedisClient.TxPipeline()
		pipe.Del(ctx, entry.key)
		pipe.SRem(ctx, userSessionsKey(userID), entry.key)
		if _, err := pipe.Exec(ctx); err != nil {
			return fmt.Errorf("failed to revoke session: %w", err)
		}
		return nil
	}
	return ErrSessionNotFound
}

// RevokeAllUserSessions removes every session of a user, e.g. after deactivation
func RevokeAllUserSessions(userID uuid.UUID) error {
	if RedisClient == nil {
		return fmt.Errorf("Redis client not initialized")
	}

	indexKey := userSessionsKey(userID)
	keys, err := RedisClient.SMembers(ctx, indexKey).Result()
	if err != nil {
		return fmt.Errorf("failed to list user sessions: %w", err)
	}

	keys = append(keys, indexKey)
	if err := RedisClient.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to revoke user sessions: %w", err)
	}
	return nil
}
