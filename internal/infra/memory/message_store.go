package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"edu-arena/internal/domain"
)

// MessageStore is an in-memory implementation of app.MessageRepository.
type MessageStore struct {
	mu       sync.RWMutex
	now      func() time.Time
	nextID   int64
	messages map[int64]domain.ChatMessage
	profiles map[string]domain.Author
}

func NewMessageStore() *MessageStore {
	return NewMessageStoreWithClock(time.Now)
}

// NewMessageStoreWithClock allows deterministic timestamps in tests.
func NewMessageStoreWithClock(now func() time.Time) *MessageStore {
	return &MessageStore{
		now:      now,
		messages: make(map[int64]domain.ChatMessage),
		profiles: make(map[string]domain.Author),
	}
}

func (s *MessageStore) Recent(_ context.Context, room string, limit int) ([]domain.ChatMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.ChatMessage, 0, limit)
	for _, msg := range s.messages {
		if msg.Room == room {
			out = append(out, s.joinLocked(msg))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MessageStore) Get(_ context.Context, id int64) (domain.ChatMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	msg, ok := s.messages[id]
	if !ok {
		return domain.ChatMessage{}, domain.ErrMessageNotFound
	}
	return s.joinLocked(msg), nil
}

func (s *MessageStore) Insert(_ context.Context, in domain.NewMessage) (domain.ChatMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	msg := domain.ChatMessage{
		ID:        s.nextID,
		Room:      in.Room,
		AuthorID:  in.AuthorID,
		Kind:      in.Kind,
		Content:   in.Content,
		MediaURL:  in.MediaURL,
		CreatedAt: s.now().UTC(),
	}
	s.messages[msg.ID] = msg
	return s.joinLocked(msg), nil
}

func (s *MessageStore) UpdateLikes(_ context.Context, id int64, likes int) (domain.ChatMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	msg, ok := s.messages[id]
	if !ok {
		return domain.ChatMessage{}, domain.ErrMessageNotFound
	}
	msg.Likes = likes
	s.messages[id] = msg
	return s.joinLocked(msg), nil
}

func (s *MessageStore) Delete(_ context.Context, id int64) (domain.ChatMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	msg, ok := s.messages[id]
	if !ok {
		return domain.ChatMessage{}, domain.ErrMessageNotFound
	}
	delete(s.messages, id)
	return s.joinLocked(msg), nil
}

func (s *MessageStore) UpsertProfile(_ context.Context, author domain.Author) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[author.ID] = author
	return nil
}

func (s *MessageStore) Profile(_ context.Context, id string) (domain.Author, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	author, ok := s.profiles[id]
	if !ok {
		return domain.Author{}, domain.ErrProfileNotFound
	}
	return author, nil
}

// joinLocked attaches the current profile snapshot; unknown authors keep only their id.
func (s *MessageStore) joinLocked(msg domain.ChatMessage) domain.ChatMessage {
	if author, ok := s.profiles[msg.AuthorID]; ok {
		msg.Author = author
	} else {
		msg.Author = domain.Author{ID: msg.AuthorID}
	}
	return msg
}
