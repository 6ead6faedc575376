package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"go-group-todo/internal/models"
)

const (
	sessionKeyPrefix     = "session:"
	userSessionKeyPrefix = "user_sessions:"
)

// RedisSessionRepo はセッションを Redis に保存します。キーはセッションの期限で消えます。
type RedisSessionRepo struct {
	rdb *redis.Client
}

func NewRedisSessionRepo(rdb *redis.Client) *RedisSessionRepo {
	return &RedisSessionRepo{rdb: rdb}
}

func sessionKey(id string) string {
	return sessionKeyPrefix + id
}

// userSessionsKey はユーザーのセッションIDを集めた SET のキーです。
func userSessionsKey(userID int64) string {
	return userSessionKeyPrefix + strconv.FormatInt(userID, 10)
}

func (r *RedisSessionRepo) Create(ctx context.Context, s *models.Session) error {
	ttl := sessionTTL(s, time.Now())
	if ttl <= 0 {
		return errors.New("session already expired")
	}
	payload, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("could not encode session: %w", err)
	}
	// SET の期限は最後に作られたセッションに合わせる
	pipe := r.rdb.TxPipeline()
	pipe.Set(ctx, sessionKey(s.ID), payload, ttl)
	pipe.SAdd(ctx, userSessionsKey(s.UserID), s.ID)
	pipe.Expire(ctx, userSessionsKey(s.UserID), ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("could not store session: %w", err)
	}
	return nil
}

func (r *RedisSessionRepo) FindByID(ctx context.Context, id string) (*models.Session, error) {
	payload, err := r.rdb.Get(ctx, sessionKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("could not load session: %w", err)
	}
	var s models.Session
	if err := json.Unmarshal(payload, &s); err != nil {
		return nil, fmt.Errorf("could not decode session: %w", err)
	}
	return &s, nil
}

// Revoke はキーを削除します。
func (r *RedisSessionRepo) Revoke(ctx context.Context, id string) error {
	if err := r.rdb.Del(ctx, sessionKey(id)).Err(); err != nil {
		return fmt.Errorf("could not revoke session: %w", err)
	}
	return nil
}

// RevokeOthers は keepID 以外のセッションキーを削除します。SET に残った期限切れのIDは DEL しても無害です。
func (r *RedisSessionRepo) RevokeOthers(ctx context.Context, userID int64, keepID string) error {
	setKey := userSessionsKey(userID)
	ids, err := r.rdb.SMembers(ctx, setKey).Result()
	if err != nil {
		return fmt.Errorf("could not list sessions: %w", err)
	}

	pipe := r.rdb.TxPipeline()
	for _, id := range ids {
		if id == keepID {
			continue
		}
		pipe.Del(ctx, sessionKey(id))
		pipe.SRem(ctx, setKey, id)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("could not revoke sessions: %w", err)
	}
	return nil
}

// CleanupExpired は何もしません。期限切れのキーは Redis が削除します。
func (r *RedisSessionRepo) CleanupExpired(context.Context) (int64, error) {
	return 0, nil
}
