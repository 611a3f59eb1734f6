package utils

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// ErrConfirmationNotFound is returned for an unknown, used or expired confirmation token
var ErrConfirmationNotFound = errors.New("confirmation token not found")

func confirmationKey(token string) string {
	return fmt.Sprintf("user:confirmation:%s", generateTokenHash(token))
}

func pendingConfirmationKey(userID uuid.UUID) string {
	return fmt.Sprintf("user:confirmation:pending:%s", userID)
}

// IssueConfirmationToken stores a single-use set-password token for a user.
// Issuing a new token invalidates the previous one.
func IssueConfirmationToken(userID uuid.UUID, ttl time.Duration) (string, error) {
	if RedisClient == nil {
		return "", fmt.Errorf("Redis client not initialized")
	}

	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("failed to generate confirmation token: %w", err)
	}
	token := hex.EncodeToString(raw)

	pending := pendingConfirmationKey(userID)
	previous, err := RedisClient.Get(ctx, pending).Result()
	if err != nil && err != redis.Nil {
		return "", fmt.Errorf("failed to look up confirmation token: %w", err)
	}

	key := confirmationKey(token)
	pipe := RedisClient.TxPipeline()
	if previous != "" {
		pipe.Del(ctx, previous)
	}
	pipe.Set(ctx, key, userID.String(), ttl)
	pipe.Set(ctx, pending, key, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return "", fmt.Errorf("failed to store confirmation token: %w", err)
	}
	return token, nil
}

// ConsumeConfirmationToken returns the user a token was issued to and
// deletes it in the same transaction, so a token works once
func ConsumeConfirmationToken(token string) (uuid.UUID, error) {
	if RedisClient == nil {
		return uuid.Nil, fmt.Errorf("Redis client not initialized")
	}

	key := confirmationKey(token)
	pipe := RedisClient.TxPipeline()
	get := pipe.Get(ctx, key)
	pipe.Del(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return uuid.Nil, fmt.Errorf("failed to consume confirmation token: %w", err)
	}

	value, err := get.Result()
	if err == redis.Nil {
		return uuid.Nil, ErrConfirmationNotFound
	}
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to consume confirmation token: %w", err)
	}

	userID, err := uuid.Parse(value)
	if err != nil {
		return uuid.Nil, ErrConfirmationNotFound
	}
	RedisClient.Del(ctx, pendingConfirmationKey(userID))
	return userID, nil
}
