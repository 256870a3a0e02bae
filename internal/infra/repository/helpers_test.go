package repository_test

import (
	"context"
	"fmt"
	"sync"
	"time"

	"foodorder/internal/domain/model"
	repo "foodorder/internal/repository"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

func startPostgres(ctx context.Context) (testcontainers.Container, string, error) {
	c, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("foodorder"),
		postgres.WithUsername("user"),
		postgres.WithPassword("password"),
		postgres.BasicWaitStrategies(),
	)
	if err != nil {
		return nil, "", fmt.Errorf("postgres.Run: %w", err)
	}

	connStr, err := c.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		return c, "", fmt.Errorf("ConnectionString: %w", err)
	}
	return c, connStr, nil
}

// memFeed はプロセス内で完結する変更フィード
type memFeed struct {
	mu        sync.Mutex
	streams   map[*memStream]struct{}
	published []repo.OrderChange
}

func newMemFeed() *memFeed {
	return &memFeed{streams: map[*memStream]struct{}{}}
}

func (f *memFeed) Publish(_ context.Context, ch repo.OrderChange) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, ch)
	for s := range f.streams {
		s.out <- ch
	}
	return nil
}

func (f *memFeed) Listen(context.Context) (repo.OrderChangeStream, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := &memStream{feed: f, out: make(chan repo.OrderChange, 64)}
	f.streams[s] = struct{}{}
	return s, nil
}

func (f *memFeed) Published() []repo.OrderChange {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]repo.OrderChange(nil), f.published...)
}

func (f *memFeed) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = nil
}

// 購読側を切断したことにする
func (f *memFeed) CloseAll() {
	f.mu.Lock()
	defer f.mu.Unlock()
	for s := range f.streams {
		delete(f.streams, s)
		close(s.out)
	}
}

type memStream struct {
	feed *memFeed
	out  chan repo.OrderChange
}

func (s *memStream) Changes() <-chan repo.OrderChange { return s.out }

func (s *memStream) Close() error {
	s.feed.mu.Lock()
	defer s.feed.mu.Unlock()
	if _, ok := s.feed.streams[s]; ok {
		delete(s.feed.streams, s)
		close(s.out)
	}
	return nil
}

// 段階的に進む時計
type stepClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

// 最新のスナップショットを保持する
type snapshots struct {
	mu   sync.Mutex
	last []model.Order
	n    int
	errs []error
}

func (s *snapshots) onUpdate(orders []model.Order) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last = orders
	s.n++
}

func (s *snapshots) onError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errs = append(s.errs, err)
}

func (s *snapshots) Last() ([]model.Order, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last, s.n
}

func (s *snapshots) Errors() []error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]error(nil), s.errs...)
}

func fakeOrderItem() model.OrderItem {
	return model.OrderItem{
		ItemID:   gofakeit.UUID(),
		Name:     gofakeit.Dessert(),
		Price:    int64(gofakeit.IntRange(10, 500)),
		Quantity: int64(gofakeit.IntRange(1, 4)),
		Size:     gofakeit.RandomString([]string{"", "small", "large"}),
	}
}

func fakeOrder(userID string, n int) model.Order {
	items := make([]model.OrderItem, n)
	for i := range items {
		items[i] = fakeOrderItem()
	}
	o := model.Order{
		OrderRef:      "PS3-" + gofakeit.Numerify("#############"),
		UserID:        userID,
		Items:         items,
		PaymentMethod: model.PaymentMethodCash,
		PaymentID:     model.CashPaymentPrefix + gofakeit.Numerify("#############"),
		CustomerName:  gofakeit.Name(),
		CustomerPhone: "98" + gofakeit.Numerify("########"),
	}
	o.Total = o.ItemsTotal()
	return o
}
