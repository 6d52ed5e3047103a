package repo

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const sessionTTL = time.Hour * 24

type RedisSessionStorage struct {
	client *redis.Client
}

func NewSessionRedisStorage(redis *redis.Client) *RedisSessionStorage {
	c := &RedisSessionStorage{
		client: redis,
	}
	return c
}

func (r RedisSessionStorage) GetRecordIDBySession(sessionID string) (recordID string, ok bool) {
	v, err := r.client.Get(context.Background(), "session:"+sessionID).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false
		}
		slog.Error(err.Error())
		return "", false
	}
	return v, true
}

func (r RedisSessionStorage) StoreSession(sessionID string, recordID string) {
	r.client.Set(context.Background(), "session:"+sessionID, recordID, sessionTTL)
}

func (r RedisSessionStorage) DeleteSession(sessionID string) {
	r.client.Del(context.Background(), "session:"+sessionID)
}
