package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"edu-arena/internal/chatsync"
	"edu-arena/internal/domain"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const feedBuffer = 64

// Feed fans change events out over Redis pub/sub, one channel per room
// (room:{tag}), so every service instance sees every write.
type Feed struct {
	client *redis.Client
	log    logrus.FieldLogger
}

func NewFeed(client *redis.Client, log logrus.FieldLogger) *Feed {
	return &Feed{client: client, log: log}
}

func (f *Feed) Publish(ctx context.Context, event domain.ChangeEvent) error {
	raw, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return f.client.Publish(ctx, channel(event.Room), raw).Err()
}

// Subscribe confirms the subscription with Redis before returning, so no
// event published afterwards is missed. ctx bounds the confirmation only;
// the subscription lasts until Close.
func (f *Feed) Subscribe(ctx context.Context, room string) (chatsync.Subscription, error) {
	ps := f.client.Subscribe(ctx, channel(room))
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("subscribe %s: %w", room, err)
	}

	sub := &subscription{
		ps:     ps,
		events: make(chan domain.ChangeEvent, feedBuffer),
		done:   make(chan struct{}),
		log:    f.log.WithField("room", room),
	}
	sub.wg.Add(1)
	go sub.forward(ps.Channel())
	return sub, nil
}

func channel(room string) string {
	return "room:" + room
}

type subscription struct {
	ps     *redis.PubSub
	events chan domain.ChangeEvent
	done   chan struct{}
	log    logrus.FieldLogger
	wg     sync.WaitGroup
	once   sync.Once
	err    error
}

func (s *subscription) Events() <-chan domain.ChangeEvent {
	return s.events
}

func (s *subscription) Close() error {
	s.once.Do(func() {
		close(s.done)
		s.err = s.ps.Close()
		s.wg.Wait()
	})
	return s.err
}

func (s *subscription) forward(in <-chan *redis.Message) {
	defer s.wg.Done()
	defer close(s.events)
	for {
		select {
		case <-s.done:
			return
		case msg, ok := <-in:
			if !ok {
				return
			}
			var event domain.ChangeEvent
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				s.log.WithError(err).Warn("discarding malformed change event")
				continue
			}
			select {
			case s.events <- event:
			case <-s.done:
				return
			}
		}
	}
}
