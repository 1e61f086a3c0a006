package memory

import (
	"context"
	"sync"

	"edu-arena/internal/chatsync"
	"edu-arena/internal/domain"
	"github.com/sirupsen/logrus"
)

const feedBuffer = 64

// Feed is an in-process change feed keyed by room.
type Feed struct {
	log  logrus.FieldLogger
	mu   sync.RWMutex
	subs map[string]map[*subscription]struct{}
}

func NewFeed(log logrus.FieldLogger) *Feed {
	return &Feed{
		log:  log,
		subs: make(map[string]map[*subscription]struct{}),
	}
}

// Subscribe registers for events of room until Close.
func (f *Feed) Subscribe(_ context.Context, room string) (chatsync.Subscription, error) {
	sub := &subscription{
		feed:   f,
		room:   room,
		events: make(chan domain.ChangeEvent, feedBuffer),
	}

	f.mu.Lock()
	if f.subs[room] == nil {
		f.subs[room] = make(map[*subscription]struct{})
	}
	f.subs[room][sub] = struct{}{}
	f.mu.Unlock()
	return sub, nil
}

// Publish delivers event to the room's subscribers. A subscriber whose
// buffer is full misses the event.
func (f *Feed) Publish(_ context.Context, event domain.ChangeEvent) error {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for sub := range f.subs[event.Room] {
		select {
		case sub.events <- event:
		default:
			f.log.WithFields(logrus.Fields{
				"room":       event.Room,
				"message_id": event.MessageID,
			}).Warn("feed subscriber lagging, event dropped")
		}
	}
	return nil
}

// Subscribers reports the live subscriptions of room.
func (f *Feed) Subscribers(room string) int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.subs[room])
}

type subscription struct {
	feed   *Feed
	room   string
	events chan domain.ChangeEvent
	once   sync.Once
}

func (s *subscription) Events() <-chan domain.ChangeEvent {
	return s.events
}

func (s *subscription) Close() error {
	s.once.Do(func() {
		s.feed.mu.Lock()
		delete(s.feed.subs[s.room], s)
		if len(s.feed.subs[s.room]) == 0 {
			delete(s.feed.subs, s.room)
		}
		close(s.events)
		s.feed.mu.Unlock()
	})
	return nil
}
