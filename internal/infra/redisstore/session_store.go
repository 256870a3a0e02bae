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

type SessionStore struct {
	Client *redis.Client
}

func NewSessionStore(client *redis.Client) *SessionStore {
	return &SessionStore{Client: client}
}

var _ repo.SessionStore = (*SessionStore)(nil)

func (s *SessionStore) Key(sessionID string) string {
	return "session:" + sessionID
}

func (s *SessionStore) Save(ctx context.Context, rec model.SessionRecord, ttl time.Duration) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return s.Client.Set(ctx, s.Key(rec.SessionID), payload, ttl).Err()
}

func (s *SessionStore) Load(ctx context.Context, sessionID string) (model.SessionRecord, error) {
	raw, err := s.Client.Get(ctx, s.Key(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return model.SessionRecord{}, repo.ErrNotFound
	}
	if err != nil {
		return model.SessionRecord{}, err
	}

	var rec model.SessionRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return model.SessionRecord{}, fmt.Errorf("%w: session: %v", repo.ErrCorruptData, err)
	}
	return rec, nil
}

func (s *SessionStore) Delete(ctx context.Context, sessionID string) error {
	return s.Client.Del(ctx, s.Key(sessionID)).Err()
}
