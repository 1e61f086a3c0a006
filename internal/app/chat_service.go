package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"edu-arena/internal/chatsync"
	"edu-arena/internal/domain"
	"edu-arena/internal/observability"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

// MessageRepository is the authoritative message and profile store.
type MessageRepository interface {
	Recent(ctx context.Context, room string, limit int) ([]domain.ChatMessage, error)
	Get(ctx context.Context, id int64) (domain.ChatMessage, error)
	Insert(ctx context.Context, msg domain.NewMessage) (domain.ChatMessage, error)
	UpdateLikes(ctx context.Context, id int64, likes int) (domain.ChatMessage, error)
	Delete(ctx context.Context, id int64) (domain.ChatMessage, error)
	UpsertProfile(ctx context.Context, author domain.Author) error
	Profile(ctx context.Context, id string) (domain.Author, error)
}

// FeedPublisher fans row changes out to room subscribers.
type FeedPublisher interface {
	Publish(ctx context.Context, event domain.ChangeEvent) error
}

// MaxPageSize bounds Recent requests.
const MaxPageSize = 200

// ChatService contains the chat room use cases. It satisfies chatsync.Store
// and chatsync.ObjectStore so in-process clients can sync against it directly.
type ChatService struct {
	messages MessageRepository
	feed     FeedPublisher
	objects  chatsync.ObjectStore
	rooms    []domain.Room
	log      logrus.FieldLogger
	validate *validator.Validate
}

func NewChatService(messages MessageRepository, feed FeedPublisher, objects chatsync.ObjectStore, rooms []domain.Room, log logrus.FieldLogger) *ChatService {
	return &ChatService{
		messages: messages,
		feed:     feed,
		objects:  objects,
		rooms:    rooms,
		log:      log,
		validate: validator.New(),
	}
}

// Rooms returns the room catalog in display order.
func (s *ChatService) Rooms() []domain.Room {
	out := make([]domain.Room, len(s.rooms))
	copy(out, s.rooms)
	return out
}

func (s *ChatService) Room(tag string) (domain.Room, error) {
	for _, r := range s.rooms {
		if r.Tag == tag {
			return r, nil
		}
	}
	return domain.Room{}, domain.ErrRoomNotFound
}

// Recent returns up to limit messages of room, newest first.
func (s *ChatService) Recent(ctx context.Context, room string, limit int) ([]domain.ChatMessage, error) {
	if _, err := s.Room(room); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > MaxPageSize {
		limit = MaxPageSize
	}
	return s.messages.Recent(ctx, room, limit)
}

func (s *ChatService) Get(ctx context.Context, id int64) (domain.ChatMessage, error) {
	return s.messages.Get(ctx, id)
}

// Insert validates and stores a message, then announces it to the room.
func (s *ChatService) Insert(ctx context.Context, msg domain.NewMessage) (domain.ChatMessage, error) {
	ctx, span := observability.StartSpan(ctx, "chat.insert", attribute.String("room", msg.Room))
	var err error
	defer func() { observability.EndSpan(span, err) }()

	msg.Content = strings.TrimSpace(msg.Content)
	if err = s.validate.Struct(msg); err != nil {
		return domain.ChatMessage{}, fmt.Errorf("%w: %v", domain.ErrInvalidMessage, err)
	}
	if _, err = s.Room(msg.Room); err != nil {
		return domain.ChatMessage{}, err
	}

	stored, err := s.messages.Insert(ctx, msg)
	if err != nil {
		return domain.ChatMessage{}, err
	}
	observability.IncChatMessage(stored.Room, string(stored.Kind))

	s.announce(ctx, domain.ChangeEvent{Kind: domain.ChangeInsert, Room: stored.Room, Message: stored, MessageID: stored.ID})
	return stored, nil
}

// UpdateLikes overwrites the like count. Concurrent writers race; the last write wins.
func (s *ChatService) UpdateLikes(ctx context.Context, id int64, likes int) error {
	if likes < 0 {
		likes = 0
	}
	updated, err := s.messages.UpdateLikes(ctx, id, likes)
	if err != nil {
		return err
	}
	s.announce(ctx, domain.ChangeEvent{Kind: domain.ChangeUpdate, Room: updated.Room, Message: updated, MessageID: updated.ID})
	return nil
}

// Delete removes a message. Only its author may delete it.
func (s *ChatService) Delete(ctx context.Context, id int64, requesterID string) error {
	msg, err := s.messages.Get(ctx, id)
	if err != nil {
		return err
	}
	if msg.AuthorID != requesterID {
		return domain.ErrNotAuthor
	}
	if _, err := s.messages.Delete(ctx, id); err != nil {
		return err
	}
	s.announce(ctx, domain.ChangeEvent{Kind: domain.ChangeDelete, Room: msg.Room, MessageID: id})
	return nil
}

func (s *ChatService) Upload(ctx context.Context, name string, r io.Reader) error {
	ctx, span := observability.StartSpan(ctx, "chat.upload", attribute.String("name", name))
	err := s.objects.Upload(ctx, name, r)
	observability.EndSpan(span, err)
	return err
}

func (s *ChatService) PublicURL(name string) string {
	return s.objects.PublicURL(name)
}

func (s *ChatService) UpsertProfile(ctx context.Context, author domain.Author) error {
	author.Name = strings.TrimSpace(author.Name)
	if author.ID == "" || author.Name == "" {
		return errors.New("profile id and name are required")
	}
	return s.messages.UpsertProfile(ctx, author)
}

func (s *ChatService) Profile(ctx context.Context, id string) (domain.Author, error) {
	return s.messages.Profile(ctx, id)
}

// announce publishes best-effort.
func (s *ChatService) announce(ctx context.Context, event domain.ChangeEvent) {
	if err := s.feed.Publish(ctx, event); err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{
			"room":       event.Room,
			"kind":       event.Kind,
			"message_id": event.MessageID,
		}).Warn("publish change event")
	}
}
