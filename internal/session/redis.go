package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/shophive/cart-service/internal/domain"
)

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{
		client:  client,
		cartTTL: 72 * time.Hour,
		authTTL: 24 * time.Hour,
	}
}

type RedisStore struct {
	client  *redis.Client
	cartTTL time.Duration
	authTTL time.Duration
}

func (r *RedisStore) GetCart(ctx context.Context, token string) ([]domain.CartLine, error) {
	data, err := r.client.Get(ctx, cartKey(token)).Bytes()
	if errors.Is(err, redis.Nil) {
		return []domain.CartLine{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: redis get failed: %v", domain.ErrStorageUnavailable, err)
	}

	var lines []domain.CartLine
	if err2 := json.Unmarshal(data, &lines); err2 != nil {
		return nil, fmt.Errorf("unmarshal session cart failed: %w", err2)
	}
	return lines, nil
}

func (r *RedisStore) SaveCart(ctx context.Context, token string, lines []domain.CartLine) error {
	data, err := json.Marshal(lines)
	if err != nil {
		return fmt.Errorf("marshal session cart failed: %w", err)
	}

	jitter := time.Duration(rand.Intn(30)) * time.Minute
	ttl := r.cartTTL + jitter
	if ret := r.client.Set(ctx, cartKey(token), string(data), ttl); ret.Err() != nil {
		return fmt.Errorf("%w: redis set failed: %v", domain.ErrStorageUnavailable, ret.Err())
	}
	return nil
}

func (r *RedisStore) ClearCart(ctx context.Context, token string) error {
	if err := r.client.Del(ctx, cartKey(token)).Err(); err != nil {
		return fmt.Errorf("%w: redis delete failed: %v", domain.ErrStorageUnavailable, err)
	}
	return nil
}

func (r *RedisStore) CreateAuth(ctx context.Context, userID int64) (string, error) {
	token := uuid.NewString()
	ret := r.client.Set(ctx, authKey(token), strconv.FormatInt(userID, 10), r.authTTL)
	if ret.Err() != nil {
		return "", fmt.Errorf("%w: redis set failed: %v", domain.ErrStorageUnavailable, ret.Err())
	}
	return token, nil
}

func (r *RedisStore) GetAuth(ctx context.Context, token string) (int64, error) {
	data, err := r.client.Get(ctx, authKey(token)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, domain.ErrUnauthenticated
	}
	if err != nil {
		return 0, fmt.Errorf("%w: redis get failed: %v", domain.ErrStorageUnavailable, err)
	}

	userID, err := strconv.ParseInt(data, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse auth session failed: %w", err)
	}
	return userID, nil
}

func (r *RedisStore) DeleteAuth(ctx context.Context, token string) error {
	if err := r.client.Del(ctx, authKey(token)).Err(); err != nil {
		return fmt.Errorf("%w: redis delete failed: %v", domain.ErrStorageUnavailable, err)
	}
	return nil
}

func cartKey(token string) string {
	return fmt.Sprintf("cart:sess:%s", token)
}

func authKey(token string) string {
	return fmt.Sprintf("auth:sess:%s", token)
}
