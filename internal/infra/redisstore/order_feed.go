package redisstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"foodorder/internal/logging"
	repo "foodorder/internal/repository"

	"github.com/redis/go-redis/v9"
)

const DefaultOrderChannel = "orders:changes"

// OrderFeed は redis Pub/Sub で注文の変更を配る。
type OrderFeed struct {
	Client  *redis.Client
	Channel string
	log     logging.Logger
}

func NewOrderFeed(client *redis.Client, channel string, log logging.Logger) *OrderFeed {
	if channel == "" {
		channel = DefaultOrderChannel
	}
	return &OrderFeed{Client: client, Channel: channel, log: log}
}

var _ repo.OrderChangeFeed = (*OrderFeed)(nil)

func (f *OrderFeed) Publish(ctx context.Context, change repo.OrderChange) error {
	payload, err := json.Marshal(change)
	if err != nil {
		return err
	}
	return f.Client.Publish(ctx, f.Channel, payload).Err()
}

func (f *OrderFeed) Listen(ctx context.Context) (repo.OrderChangeStream, error) {
	ps := f.Client.Subscribe(ctx, f.Channel)

	//購読の確立を待つ
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("order feed subscribe: %w", err)
	}

	s := &orderStream{
		ps:   ps,
		out:  make(chan repo.OrderChange, 16),
		done: make(chan struct{}),
	}
	go s.run(ps.Channel(), f.log)
	return s, nil
}

type orderStream struct {
	ps   *redis.PubSub
	out  chan repo.OrderChange
	done chan struct{}
	once sync.Once
	err  error
}

func (s *orderStream) run(in <-chan *redis.Message, log logging.Logger) {
	defer close(s.out)
	for {
		select {
		case <-s.done:
			return
		case msg, ok := <-in:
			if !ok {
				return
			}
			var ch repo.OrderChange
			if err := json.Unmarshal([]byte(msg.Payload), &ch); err != nil {
				log.Warnf("order feed: skip bad payload: %v", err)
				continue
			}
			select {
			case s.out <- ch:
			case <-s.done:
				return
			}
		}
	}
}

func (s *orderStream) Changes() <-chan repo.OrderChange {
	return s.out
}

func (s *orderStream) Close() error {
	s.once.Do(func() {
		close(s.done)
		s.err = s.ps.Close()
	})
	return s.err
}
