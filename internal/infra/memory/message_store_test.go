package memory

import (
	"context"
	"testing"
	"time"

	"edu-arena/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageStoreRecentNewestFirst(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	store := NewMessageStoreWithClock(func() time.Time {
		now = now.Add(time.Second)
		return now
	})
	require.NoError(t, store.UpsertProfile(ctx, domain.Author{ID: "u1", Name: "Sara"}))

	for _, text := range []string{"a", "b", "c"} {
		_, err := store.Insert(ctx, domain.NewMessage{Room: "math", AuthorID: "u1", Kind: domain.KindText, Content: text})
		require.NoError(t, err)
	}
	_, err := store.Insert(ctx, domain.NewMessage{Room: "history", AuthorID: "u2", Kind: domain.KindText, Content: "x"})
	require.NoError(t, err)

	got, err := store.Recent(ctx, "math", 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "c", got[0].Content)
	assert.Equal(t, "b", got[1].Content)
	assert.Equal(t, "Sara", got[0].Author.Name)

	other, err := store.Get(ctx, 4)
	require.NoError(t, err)
	assert.Equal(t, domain.Author{ID: "u2"}, other.Author)
}

func TestMessageStoreLikesAndDelete(t *testing.T) {
	ctx := context.Background()
	store := NewMessageStore()
	msg, err := store.Insert(ctx, domain.NewMessage{Room: "math", AuthorID: "u1", Kind: domain.KindText, Content: "hi"})
	require.NoError(t, err)

	updated, err := store.UpdateLikes(ctx, msg.ID, 3)
	require.NoError(t, err)
	assert.Equal(t, 3, updated.Likes)

	_, err = store.Delete(ctx, msg.ID)
	require.NoError(t, err)
	_, err = store.Get(ctx, msg.ID)
	assert.ErrorIs(t, err, domain.ErrMessageNotFound)
	_, err = store.UpdateLikes(ctx, msg.ID, 1)
	assert.ErrorIs(t, err, domain.ErrMessageNotFound)

	_, err = store.Profile(ctx, "nobody")
	assert.ErrorIs(t, err, domain.ErrProfileNotFound)
}
