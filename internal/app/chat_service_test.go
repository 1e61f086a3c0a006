package app_test

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"edu-arena/internal/app"
	"edu-arena/internal/chatsync"
	"edu-arena/internal/domain"
	"edu-arena/internal/infra/memory"
	"edu-arena/internal/infra/objectstore"
	"edu-arena/internal/logging"
	"edu-arena/internal/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var testRooms = []domain.Room{{Tag: "math", Name: "Mathematics"}, {Tag: "history", Name: "History"}}

func newChatService(t *testing.T) (*app.ChatService, *memory.Feed) {
	t.Helper()
	objects, err := objectstore.NewLocalStore(filepath.Join(t.TempDir(), "media"), "http://localhost/media")
	require.NoError(t, err)
	feed := memory.NewFeed(logging.Discard())
	return app.NewChatService(memory.NewMessageStore(), feed, objects, testRooms, logging.Discard()), feed
}

func TestChatServiceRooms(t *testing.T) {
	service, _ := newChatService(t)

	assert.Equal(t, testRooms, service.Rooms())
	room, err := service.Room("history")
	require.NoError(t, err)
	assert.Equal(t, "History", room.Name)

	_, err = service.Room("art")
	assert.ErrorIs(t, err, domain.ErrRoomNotFound)
	_, err = service.Recent(context.Background(), "art", 10)
	assert.ErrorIs(t, err, domain.ErrRoomNotFound)
}

func TestChatServiceInsertValidates(t *testing.T) {
	service, _ := newChatService(t)
	ctx := context.Background()

	tests := []struct {
		name string
		msg  domain.NewMessage
		err  error
	}{
		{"blank content", domain.NewMessage{Room: "math", AuthorID: "u1", Kind: domain.KindText, Content: "   "}, domain.ErrInvalidMessage},
		{"bad kind", domain.NewMessage{Room: "math", AuthorID: "u1", Kind: "video", Content: "x"}, domain.ErrInvalidMessage},
		{"no author", domain.NewMessage{Room: "math", Kind: domain.KindText, Content: "x"}, domain.ErrInvalidMessage},
		{"unknown room", domain.NewMessage{Room: "art", AuthorID: "u1", Kind: domain.KindText, Content: "x"}, domain.ErrRoomNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := service.Insert(ctx, tt.msg)
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestChatServiceAnnouncesChanges(t *testing.T) {
	feed := new(mocks.FeedPublisherMock)
	service := app.NewChatService(memory.NewMessageStore(), feed, nil, testRooms, logging.Discard())
	ctx := context.Background()

	feed.On("Publish", mock.Anything, mock.MatchedBy(func(ev domain.ChangeEvent) bool {
		return ev.Kind == domain.ChangeInsert && ev.Room == "math" && ev.Message.Content == "hi"
	})).Return(nil).Once()
	feed.On("Publish", mock.Anything, mock.MatchedBy(func(ev domain.ChangeEvent) bool {
		return ev.Kind == domain.ChangeUpdate && ev.Message.Likes == 0
	})).Return(nil).Once()
	feed.On("Publish", mock.Anything, mock.MatchedBy(func(ev domain.ChangeEvent) bool {
		return ev.Kind == domain.ChangeDelete && ev.MessageID == 1
	})).Return(assert.AnError).Once()

	msg, err := service.Insert(ctx, domain.NewMessage{Room: "math", AuthorID: "u1", Kind: domain.KindText, Content: " hi "})
	require.NoError(t, err)
	require.NoError(t, service.UpdateLikes(ctx, msg.ID, -3))

	assert.ErrorIs(t, service.Delete(ctx, msg.ID, "u2"), domain.ErrNotAuthor)
	// a failed announcement does not fail the delete
	require.NoError(t, service.Delete(ctx, msg.ID, "u1"))

	_, err = service.Get(ctx, msg.ID)
	assert.ErrorIs(t, err, domain.ErrMessageNotFound)
	feed.AssertExpectations(t)
}

func TestChatServiceProfiles(t *testing.T) {
	service, _ := newChatService(t)
	ctx := context.Background()

	require.Error(t, service.UpsertProfile(ctx, domain.Author{ID: "u1", Name: "  "}))
	require.NoError(t, service.UpsertProfile(ctx, domain.Author{ID: "u1", Name: "Sara", Role: "student"}))

	msg, err := service.Insert(ctx, domain.NewMessage{Room: "math", AuthorID: "u1", Kind: domain.KindText, Content: "hello"})
	require.NoError(t, err)
	assert.Equal(t, "Sara", msg.Author.Name)
}

// Two clients in the same room converge through the service and the in-process feed.
func TestTwoClientsConverge(t *testing.T) {
	service, feed := newChatService(t)
	ctx := context.Background()

	require.NoError(t, service.UpsertProfile(ctx, domain.Author{ID: "alice", Name: "Alice"}))
	require.NoError(t, service.UpsertProfile(ctx, domain.Author{ID: "bob", Name: "Bob"}))

	newClient := func(id string) *chatsync.Sync {
		return chatsync.New(domain.Author{ID: id, Name: id}, chatsync.Collaborators{
			Store:   service,
			Feed:    feed,
			Objects: service,
			Likes:   memory.NewLikeStore(),
		}, chatsync.Options{Logger: logging.Discard()})
	}
	alice, bob := newClient("alice"), newClient("bob")
	defer alice.CloseRoom()
	defer bob.CloseRoom()

	// Each open runs under its own short-lived context, as the terminal client does.
	for _, c := range []*chatsync.Sync{alice, bob} {
		openCtx, cancel := context.WithTimeout(ctx, time.Second)
		require.NoError(t, c.OpenRoom(openCtx, "math"))
		cancel()
	}
	time.Sleep(20 * time.Millisecond)
	require.Equal(t, 2, feed.Subscribers("math"))

	sent, err := alice.SendMessage(ctx, "2+2=4", domain.KindText, "")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		msgs := bob.Snapshot().Messages
		return len(msgs) == 1 && msgs[0].ID == sent.Confirmed.ID && msgs[0].Author.Name == "Alice"
	}, 2*time.Second, 10*time.Millisecond)

	// alice only keeps her provisional copy
	msgs := alice.Snapshot().Messages
	require.Len(t, msgs, 1)
	assert.True(t, msgs[0].Provisional)

	like, err := bob.ToggleLike(ctx, sent.Confirmed.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, like.Likes)

	stored, err := service.Get(ctx, sent.Confirmed.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.Likes)

	_, err = bob.UploadAndSendImage(ctx, "Diagram.PNG", strings.NewReader("png"))
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		msgs := alice.Snapshot().Messages
		return len(msgs) == 2 && msgs[1].Kind == domain.KindImage &&
			strings.HasPrefix(msgs[1].MediaURL, "http://localhost/media/img_") &&
			strings.HasSuffix(msgs[1].MediaURL, "_bob.png")
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, service.Delete(ctx, sent.Confirmed.ID, "alice"))
	require.Eventually(t, func() bool {
		for _, m := range bob.Snapshot().Messages {
			if m.ID == sent.Confirmed.ID && !m.Provisional {
				return false
			}
		}
		return true
	}, 2*time.Second, 10*time.Millisecond)
}
