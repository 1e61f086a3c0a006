package chatsync_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"edu-arena/internal/app"
	"edu-arena/internal/chatsync"
	"edu-arena/internal/domain"
	"edu-arena/internal/infra/memory"
	"edu-arena/internal/infra/objectstore"
	"edu-arena/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoomStaysLiveAfterOpenContextEnds(t *testing.T) {
	objects, err := objectstore.NewLocalStore(filepath.Join(t.TempDir(), "media"), "http://localhost/media")
	require.NoError(t, err)
	feed := memory.NewFeed(logging.Discard())
	chat := app.NewChatService(memory.NewMessageStore(), feed, objects,
		[]domain.Room{{Tag: "math", Name: "Mathematics"}}, logging.Discard())

	ctx := context.Background()
	require.NoError(t, chat.UpsertProfile(ctx, domain.Author{ID: "bob", Name: "Bob"}))

	self := domain.Author{ID: "alice", Name: "Alice"}
	s := chatsync.New(self, chatsync.Collaborators{
		Store:   chat,
		Feed:    feed,
		Objects: chat,
		Likes:   memory.NewLikeStore(),
	}, chatsync.Options{Logger: logging.Discard()})

	openCtx, cancel := context.WithTimeout(ctx, time.Second)
	require.NoError(t, s.OpenRoom(openCtx, "math"))
	cancel()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 1, feed.Subscribers("math"))

	row, err := chat.Insert(ctx, domain.NewMessage{Room: "math", AuthorID: "bob", Kind: domain.KindText, Content: "still here?"})
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		msgs := s.Snapshot().Messages
		return len(msgs) == 1 && msgs[0].ID == row.ID
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, chat.UpdateLikes(ctx, row.ID, 4))
	require.Eventually(t, func() bool {
		msgs := s.Snapshot().Messages
		return len(msgs) == 1 && msgs[0].Likes == 4
	}, 2*time.Second, 10*time.Millisecond)

	s.CloseRoom()
	assert.Equal(t, 0, feed.Subscribers("math"))
}
