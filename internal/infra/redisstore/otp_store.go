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

type OTPStore struct {
	Client *redis.Client
}

func NewOTPStore(client *redis.Client) *OTPStore {
	return &OTPStore{Client: client}
}

var _ repo.OTPStore = (*OTPStore)(nil)

func (s *OTPStore) Key(phone string) string {
	return "otp:" + phone
}

func (s *OTPStore) Save(ctx context.Context, ch model.OTPChallenge, ttl time.Duration) error {
	if ttl <= 0 {
		return s.Delete(ctx, ch.Phone)
	}
	payload, err := json.Marshal(ch)
	if err != nil {
		return err
	}
	return s.Client.Set(ctx, s.Key(ch.Phone), payload, ttl).Err()
}

func (s *OTPStore) Load(ctx context.Context, phone string) (model.OTPChallenge, error) {
	raw, err := s.Client.Get(ctx, s.Key(phone)).Bytes()
	if errors.Is(err, redis.Nil) {
		return model.OTPChallenge{}, repo.ErrNotFound
	}
	if err != nil {
		return model.OTPChallenge{}, err
	}

	var ch model.OTPChallenge
	if err := json.Unmarshal(raw, &ch); err != nil {
		return model.OTPChallenge{}, fmt.Errorf("%w: otp: %v", repo.ErrCorruptData, err)
	}
	return ch, nil
}

func (s *OTPStore) Delete(ctx context.Context, phone string) error {
	return s.Client.Del(ctx, s.Key(phone)).Err()
}
