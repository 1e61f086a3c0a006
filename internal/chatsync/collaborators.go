package chatsync

import (
	"context"
	"io"

	"edu-arena/internal/domain"
)

// Store is the authoritative message store.
type Store interface {
	// Recent returns up to limit messages of room, newest first, with author snapshots joined.
	Recent(ctx context.Context, room string, limit int) ([]domain.ChatMessage, error)
	Get(ctx context.Context, id int64) (domain.ChatMessage, error)
	Insert(ctx context.Context, msg domain.NewMessage) (domain.ChatMessage, error)
	UpdateLikes(ctx context.Context, id int64, likes int) error
}

// Subscriber opens change-feed subscriptions filtered to one room. ctx bounds
// opening the subscription only; it stays live until Close.
type Subscriber interface {
	Subscribe(ctx context.Context, room string) (Subscription, error)
}

// Subscription is a scoped handle on a change feed. Events is closed after Close.
type Subscription interface {
	Events() <-chan domain.ChangeEvent
	Close() error
}

// ObjectStore stores binary objects and hands out public references.
type ObjectStore interface {
	Upload(ctx context.Context, name string, r io.Reader) error
	PublicURL(name string) string
}

// LikeStore persists the local user's liked message ids across restarts.
type LikeStore interface {
	Load(ctx context.Context) ([]int64, error)
	Add(ctx context.Context, id int64) error
	Remove(ctx context.Context, id int64) error
}

// Viewport reports and drives the scroll position of the message list.
type Viewport interface {
	AtBottom() bool
	ScrollToBottom()
}

// PinnedThreshold is how far (in pixels) from the bottom a viewport still counts as pinned.
const PinnedThreshold = 150

// IsPinned reports whether a pixel viewport is close enough to the newest message.
func IsPinned(scrollHeight, clientHeight, scrollTop float64) bool {
	return scrollHeight-clientHeight <= scrollTop+PinnedThreshold
}
