package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"foodorder/internal/domain/model"
	repo "foodorder/internal/repository"

	"github.com/redis/go-redis/v9"
)

type CartStore struct {
	Client *redis.Client
	TTL    time.Duration // 0なら期限なし
}

func NewCartStore(client *redis.Client, ttl time.Duration) *CartStore {
	return &CartStore{Client: client, TTL: ttl}
}

var _ repo.CartStorage = (*CartStore)(nil)

func (s *CartStore) Key(sessionID string) string {
	return "cart:" + sessionID
}

func (s *CartStore) Load(ctx context.Context, sessionID string) ([]model.CartLine, error) {
	raw, err := s.Client.Get(ctx, s.Key(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var lines []model.CartLine
	if err := json.Unmarshal(raw, &lines); err != nil {
		return nil, fmt.Errorf("%w: cart %s: %v", repo.ErrCorruptData, sessionID, err)
	}
	return lines, nil
}

// 行が無ければキーごと消す
func (s *CartStore) Save(ctx context.Context, sessionID string, lines []model.CartLine) error {
	if len(lines) == 0 {
		return s.Delete(ctx, sessionID)
	}
	payload, err := json.Marshal(lines)
	if err != nil {
		return err
	}
	return s.Client.Set(ctx, s.Key(sessionID), payload, s.TTL).Err()
}

func (s *CartStore) Delete(ctx context.Context, sessionID string) error {
	return s.Client.Del(ctx, s.Key(sessionID)).Err()
}
