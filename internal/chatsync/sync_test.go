package chatsync

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"edu-arena/internal/domain"
	"edu-arena/internal/logging"
	"edu-arena/internal/notify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	alice = domain.Author{ID: "alice", Name: "Alice", Role: "student"}
	bob   = domain.Author{ID: "bob", Name: "Bob", Role: "teacher"}
	base  = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
)

type fakeStore struct {
	mu        sync.Mutex
	rows      map[int64]domain.ChatMessage
	nextID    int64
	now       time.Time
	recentErr error
	insertErr error
	updateErr error
	inserts   int
}

func newFakeStore() *fakeStore {
	return &fakeStore{rows: make(map[int64]domain.ChatMessage), now: base}
}

func (f *fakeStore) seed(room string, author domain.Author, content string) domain.ChatMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.addLocked(domain.NewMessage{Room: room, AuthorID: author.ID, Kind: domain.KindText, Content: content}, author)
}

func (f *fakeStore) addLocked(msg domain.NewMessage, author domain.Author) domain.ChatMessage {
	f.nextID++
	f.now = f.now.Add(time.Second)
	row := domain.ChatMessage{
		ID:        f.nextID,
		Room:      msg.Room,
		AuthorID:  msg.AuthorID,
		Kind:      msg.Kind,
		Content:   msg.Content,
		MediaURL:  msg.MediaURL,
		CreatedAt: f.now,
		Author:    author,
	}
	f.rows[row.ID] = row
	return row
}

func (f *fakeStore) Recent(_ context.Context, room string, limit int) ([]domain.ChatMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.recentErr != nil {
		return nil, f.recentErr
	}
	var out []domain.ChatMessage
	for _, row := range f.rows {
		if row.Room == room {
			out = append(out, row)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeStore) Get(_ context.Context, id int64) (domain.ChatMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.rows[id]
	if !ok {
		return domain.ChatMessage{}, domain.ErrMessageNotFound
	}
	return row, nil
}

func (f *fakeStore) Insert(_ context.Context, msg domain.NewMessage) (domain.ChatMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inserts++
	if f.insertErr != nil {
		return domain.ChatMessage{}, f.insertErr
	}
	return f.addLocked(msg, domain.Author{ID: msg.AuthorID}), nil
}

func (f *fakeStore) UpdateLikes(_ context.Context, id int64, likes int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return f.updateErr
	}
	row, ok := f.rows[id]
	if !ok {
		return domain.ErrMessageNotFound
	}
	row.Likes = likes
	f.rows[id] = row
	return nil
}

func (f *fakeStore) likes(id int64) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.rows[id].Likes
}

type fakeSub struct {
	room   string
	ch     chan domain.ChangeEvent
	once   sync.Once
	closed chan struct{}
}

func (s *fakeSub) Events() <-chan domain.ChangeEvent { return s.ch }

func (s *fakeSub) Close() error {
	s.once.Do(func() {
		close(s.closed)
		close(s.ch)
	})
	return nil
}

type fakeFeed struct {
	mu   sync.Mutex
	subs []*fakeSub
	err  error
}

func (f *fakeFeed) Subscribe(_ context.Context, room string) (Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	sub := &fakeSub{room: room, ch: make(chan domain.ChangeEvent, 16), closed: make(chan struct{})}
	f.subs = append(f.subs, sub)
	return sub, nil
}

func (f *fakeFeed) publish(ev domain.ChangeEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, sub := range f.subs {
		select {
		case <-sub.closed:
			continue
		default:
		}
		if sub.room == ev.Room {
			sub.ch <- ev
		}
	}
}

func (f *fakeFeed) last() *fakeSub {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.subs[len(f.subs)-1]
}

type fakeObjects struct {
	mu       sync.Mutex
	uploaded map[string][]byte
	err      error
}

func (o *fakeObjects) Upload(_ context.Context, name string, r io.Reader) error {
	if o.err != nil {
		return o.err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.uploaded == nil {
		o.uploaded = make(map[string][]byte)
	}
	o.uploaded[name] = data
	return nil
}

func (o *fakeObjects) PublicURL(name string) string {
	return "https://cdn.test/chat-images/" + name
}

type fakeLikes struct {
	mu  sync.Mutex
	ids map[int64]bool
}

func (l *fakeLikes) Load(context.Context) ([]int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []int64
	for id := range l.ids {
		out = append(out, id)
	}
	return out, nil
}

func (l *fakeLikes) Add(_ context.Context, id int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.ids == nil {
		l.ids = make(map[int64]bool)
	}
	l.ids[id] = true
	return nil
}

func (l *fakeLikes) Remove(_ context.Context, id int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.ids, id)
	return nil
}

func (l *fakeLikes) has(id int64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.ids[id]
}

type harness struct {
	sync     *Sync
	store    *fakeStore
	feed     *fakeFeed
	objects  *fakeObjects
	likes    *fakeLikes
	viewport *StaticViewport
	notes    *notify.Recorder
}

func newHarness(t *testing.T, self domain.Author, store *fakeStore, opts Options) *harness {
	t.Helper()
	if store == nil {
		store = newFakeStore()
	}
	h := &harness{
		store:    store,
		feed:     &fakeFeed{},
		objects:  &fakeObjects{},
		likes:    &fakeLikes{},
		viewport: &StaticViewport{Bottom: true},
		notes:    &notify.Recorder{},
	}
	clock := base.Add(time.Hour)
	if opts.Now == nil {
		opts.Now = func() time.Time { return clock }
	}
	opts.Logger = logging.Discard()
	h.sync = New(self, Collaborators{
		Store:    h.store,
		Feed:     h.feed,
		Objects:  h.objects,
		Likes:    h.likes,
		Notifier: h.notes,
		Viewport: h.viewport,
	}, opts)
	t.Cleanup(h.sync.CloseRoom)
	return h
}

func ids(msgs []domain.ChatMessage) []int64 {
	out := make([]int64, len(msgs))
	for i, m := range msgs {
		out[i] = m.ID
	}
	return out
}

func requireOrderedAndUnique(t *testing.T, msgs []domain.ChatMessage) {
	t.Helper()
	seen := make(map[string]bool, len(msgs))
	for i, m := range msgs {
		key := fmt.Sprintf("%d/%v", m.ID, m.Provisional)
		require.False(t, seen[key], "duplicate message %s", key)
		seen[key] = true
		if i > 0 {
			require.False(t, m.CreatedAt.Before(msgs[i-1].CreatedAt), "out of order at %d", i)
		}
	}
}

func TestOpenRoomLoadsNewestPageAscending(t *testing.T) {
	store := newFakeStore()
	for i := 0; i < 60; i++ {
		store.seed("general", bob, fmt.Sprintf("m%d", i))
	}
	store.seed("history", bob, "elsewhere")

	h := newHarness(t, alice, store, Options{})
	h.viewport.SetBottom(false)
	require.NoError(t, h.sync.OpenRoom(context.Background(), "general"))

	snap := h.sync.Snapshot()
	assert.Equal(t, "general", snap.Room)
	assert.False(t, snap.Loading)
	require.Len(t, snap.Messages, DefaultPageSize)
	assert.Equal(t, "m10", snap.Messages[0].Content)
	assert.Equal(t, "m59", snap.Messages[len(snap.Messages)-1].Content)
	requireOrderedAndUnique(t, snap.Messages)
	assert.True(t, h.viewport.AtBottom())
}

func TestOpenRoomFetchFailureKeepsLoading(t *testing.T) {
	store := newFakeStore()
	store.recentErr = errors.New("db down")
	h := newHarness(t, alice, store, Options{})

	err := h.sync.OpenRoom(context.Background(), "general")
	require.Error(t, err)

	snap := h.sync.Snapshot()
	assert.True(t, snap.Loading)
	assert.Empty(t, snap.Messages)
	assert.Equal(t, "general", snap.Room)
}

func TestRemoteEventsKeepBufferOrderedAndUnique(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	var rows []domain.ChatMessage
	for i := 0; i < 40; i++ {
		rows = append(rows, store.seed("general", bob, fmt.Sprintf("m%d", i)))
	}

	for seed := int64(1); seed <= 20; seed++ {
		h := newHarness(t, alice, store, Options{PageSize: 5})
		require.NoError(t, h.sync.OpenRoom(ctx, "general"))
		rnd := rand.New(rand.NewSource(seed))

		for step := 0; step < 200; step++ {
			row := rows[rnd.Intn(len(rows))]
			switch rnd.Intn(3) {
			case 0:
				require.NoError(t, h.sync.OnRemoteInsert(ctx, row))
			case 1:
				row.Likes = rnd.Intn(10)
				h.sync.OnRemoteUpdate(row)
			case 2:
				h.sync.OnRemoteDelete(row.ID)
			}
			requireOrderedAndUnique(t, h.sync.Snapshot().Messages)
		}
		h.sync.CloseRoom()
	}
}

func TestOwnInsertIsNotAppliedFromFeed(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, alice, nil, Options{})
	require.NoError(t, h.sync.OpenRoom(ctx, "general"))

	res, err := h.sync.SendMessage(ctx, "hello", domain.KindText, "")
	require.NoError(t, err)
	assert.True(t, res.Provisional.Provisional)
	assert.Equal(t, alice, res.Provisional.Author)

	require.NoError(t, h.sync.OnRemoteInsert(ctx, res.Confirmed))

	msgs := h.sync.Snapshot().Messages
	require.Len(t, msgs, 1)
	assert.Equal(t, res.Provisional.ID, msgs[0].ID)
	assert.True(t, msgs[0].Provisional)
}

func TestToggleLikeIsItsOwnInverse(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	row := store.seed("general", bob, "like me")
	require.NoError(t, store.UpdateLikes(ctx, row.ID, 4))

	h := newHarness(t, alice, store, Options{})
	require.NoError(t, h.sync.OpenRoom(ctx, "general"))

	first, err := h.sync.ToggleLike(ctx, row.ID)
	require.NoError(t, err)
	assert.True(t, first.Liked)
	assert.Equal(t, 5, first.Likes)
	assert.True(t, h.likes.has(row.ID))
	assert.Equal(t, 5, store.likes(row.ID))

	second, err := h.sync.ToggleLike(ctx, row.ID)
	require.NoError(t, err)
	assert.False(t, second.Liked)

	snap := h.sync.Snapshot()
	assert.Equal(t, 4, snap.Messages[0].Likes)
	assert.False(t, snap.Liked[row.ID])
	assert.False(t, h.likes.has(row.ID))
	assert.Equal(t, 4, store.likes(row.ID))
}

func TestUnlikeNeverGoesNegative(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	row := store.seed("general", bob, "zero")
	h := newHarness(t, alice, store, Options{})
	require.NoError(t, h.likes.Add(ctx, row.ID))
	require.NoError(t, h.sync.OpenRoom(ctx, "general"))

	res, err := h.sync.ToggleLike(ctx, row.ID)
	require.NoError(t, err)
	assert.False(t, res.Liked)
	assert.Equal(t, 0, res.Likes)
}

// Likes are written as absolute values, so concurrent likers overwrite each
// other. Both users like the same message and the server keeps only one.
func TestConcurrentLikesLoseAnUpdate(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	row := store.seed("general", bob, "popular")

	a := newHarness(t, alice, store, Options{})
	b := newHarness(t, bob, store, Options{})
	require.NoError(t, a.sync.OpenRoom(ctx, "general"))
	require.NoError(t, b.sync.OpenRoom(ctx, "general"))

	ra, err := a.sync.ToggleLike(ctx, row.ID)
	require.NoError(t, err)
	rb, err := b.sync.ToggleLike(ctx, row.ID)
	require.NoError(t, err)

	assert.Equal(t, 1, ra.Likes)
	assert.Equal(t, 1, rb.Likes)
	assert.Equal(t, 1, store.likes(row.ID))
}

func TestToggleLikeUnknownMessage(t *testing.T) {
	h := newHarness(t, alice, nil, Options{})
	require.NoError(t, h.sync.OpenRoom(context.Background(), "general"))
	_, err := h.sync.ToggleLike(context.Background(), 999)
	assert.ErrorIs(t, err, domain.ErrMessageNotFound)
}

func TestToggleLikeFailureRollback(t *testing.T) {
	ctx := context.Background()

	t.Run("kept by default", func(t *testing.T) {
		store := newFakeStore()
		row := store.seed("general", bob, "x")
		h := newHarness(t, alice, store, Options{})
		require.NoError(t, h.sync.OpenRoom(ctx, "general"))
		store.updateErr = errors.New("write failed")

		res, err := h.sync.ToggleLike(ctx, row.ID)
		require.Error(t, err)
		assert.False(t, res.RolledBack)
		assert.Equal(t, 1, h.sync.Snapshot().Messages[0].Likes)
		assert.True(t, h.likes.has(row.ID))
	})

	t.Run("reverted when enabled", func(t *testing.T) {
		store := newFakeStore()
		row := store.seed("general", bob, "x")
		h := newHarness(t, alice, store, Options{RollbackOnFailure: true})
		require.NoError(t, h.sync.OpenRoom(ctx, "general"))
		store.updateErr = errors.New("write failed")

		res, err := h.sync.ToggleLike(ctx, row.ID)
		require.Error(t, err)
		assert.True(t, res.RolledBack)
		snap := h.sync.Snapshot()
		assert.Equal(t, 0, snap.Messages[0].Likes)
		assert.False(t, snap.Liked[row.ID])
		assert.False(t, h.likes.has(row.ID))
	})
}

func TestSendFailureRollback(t *testing.T) {
	ctx := context.Background()

	t.Run("provisional entry kept by default", func(t *testing.T) {
		store := newFakeStore()
		store.insertErr = errors.New("insert failed")
		h := newHarness(t, alice, store, Options{})
		require.NoError(t, h.sync.OpenRoom(ctx, "general"))

		res, err := h.sync.SendMessage(ctx, "hi", domain.KindText, "")
		require.Error(t, err)
		assert.False(t, res.RolledBack)
		assert.Len(t, h.sync.Snapshot().Messages, 1)
	})

	t.Run("provisional entry removed when enabled", func(t *testing.T) {
		store := newFakeStore()
		store.insertErr = errors.New("insert failed")
		h := newHarness(t, alice, store, Options{RollbackOnFailure: true})
		require.NoError(t, h.sync.OpenRoom(ctx, "general"))

		res, err := h.sync.SendMessage(ctx, "hi", domain.KindText, "")
		require.Error(t, err)
		assert.True(t, res.RolledBack)
		assert.Empty(t, h.sync.Snapshot().Messages)
	})
}

func TestSendMessageValidation(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, alice, nil, Options{})

	_, err := h.sync.SendMessage(ctx, "hello", domain.KindText, "")
	assert.ErrorIs(t, err, domain.ErrNoActiveRoom)

	require.NoError(t, h.sync.OpenRoom(ctx, "general"))
	_, err = h.sync.SendMessage(ctx, "   ", domain.KindText, "")
	assert.ErrorIs(t, err, domain.ErrInvalidMessage)
	_, err = h.sync.SendMessage(ctx, "x", domain.MessageKind("video"), "")
	assert.ErrorIs(t, err, domain.ErrInvalidMessage)
	assert.Equal(t, 0, h.store.inserts)
}

func TestProvisionalIDsAreUnique(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, alice, nil, Options{})
	require.NoError(t, h.sync.OpenRoom(ctx, "general"))

	for i := 0; i < 3; i++ {
		_, err := h.sync.SendMessage(ctx, fmt.Sprintf("burst %d", i), domain.KindText, "")
		require.NoError(t, err)
	}
	msgs := h.sync.Snapshot().Messages
	require.Len(t, msgs, 3)
	assert.Equal(t, []string{"burst 0", "burst 1", "burst 2"}, []string{msgs[0].Content, msgs[1].Content, msgs[2].Content})
	requireOrderedAndUnique(t, msgs)
}

func TestRemoteInsertWhileScrolledUpRaisesAffordance(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	h := newHarness(t, alice, store, Options{})
	require.NoError(t, h.sync.OpenRoom(ctx, "general"))
	scrolls := h.viewport.Scrolls()

	h.viewport.SetBottom(false)
	row := store.seed("general", bob, "while you were reading")
	require.NoError(t, h.sync.OnRemoteInsert(ctx, domain.ChatMessage{ID: row.ID, Room: "general", AuthorID: bob.ID}))

	snap := h.sync.Snapshot()
	require.Len(t, snap.Messages, 1)
	assert.Equal(t, bob, snap.Messages[0].Author)
	assert.True(t, snap.NewMessages)
	assert.Equal(t, scrolls, h.viewport.Scrolls())

	h.sync.OnScroll()
	assert.True(t, h.sync.Snapshot().NewMessages)

	h.sync.ScrollToBottom()
	assert.False(t, h.sync.Snapshot().NewMessages)
	assert.True(t, h.viewport.AtBottom())
}

func TestRemoteInsertWhilePinnedScrolls(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	h := newHarness(t, alice, store, Options{})
	require.NoError(t, h.sync.OpenRoom(ctx, "general"))
	scrolls := h.viewport.Scrolls()

	row := store.seed("general", bob, "fresh")
	require.NoError(t, h.sync.OnRemoteInsert(ctx, row))

	assert.False(t, h.sync.Snapshot().NewMessages)
	assert.Equal(t, scrolls+1, h.viewport.Scrolls())
}

func TestRemoteUpdateAndDelete(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	first := store.seed("general", bob, "first")
	second := store.seed("general", bob, "second")
	h := newHarness(t, alice, store, Options{})
	require.NoError(t, h.sync.OpenRoom(ctx, "general"))

	first.Likes = 7
	h.sync.OnRemoteUpdate(first)
	snap := h.sync.Snapshot()
	assert.Equal(t, []int64{first.ID, second.ID}, ids(snap.Messages))
	assert.Equal(t, 7, snap.Messages[0].Likes)

	h.sync.OnRemoteDelete(first.ID)
	assert.Equal(t, []int64{second.ID}, ids(h.sync.Snapshot().Messages))
}

func TestEventsAfterCloseAreIgnored(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	row := store.seed("general", bob, "late")
	h := newHarness(t, alice, store, Options{PageSize: 1})
	require.NoError(t, h.sync.OpenRoom(ctx, "general"))
	gen := h.sync.generation()
	sub := h.feed.last()

	h.sync.CloseRoom()
	select {
	case <-sub.closed:
	default:
		t.Fatal("subscription not released")
	}

	require.NoError(t, h.sync.onRemoteInsert(ctx, gen, row))
	h.sync.onRemoteUpdate(gen, row)
	snap := h.sync.Snapshot()
	assert.Empty(t, snap.Messages)
	assert.Equal(t, "", snap.Room)
}

func TestStaleSubscriptionAfterRoomSwitch(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	h := newHarness(t, alice, store, Options{})
	require.NoError(t, h.sync.OpenRoom(ctx, "general"))
	oldGen := h.sync.generation()
	require.NoError(t, h.sync.OpenRoom(ctx, "history"))

	row := store.seed("history", bob, "history fact")
	require.NoError(t, h.sync.onRemoteInsert(ctx, oldGen, row))
	assert.Empty(t, h.sync.Snapshot().Messages)

	require.NoError(t, h.sync.OnRemoteInsert(ctx, row))
	assert.Len(t, h.sync.Snapshot().Messages, 1)
}

func TestFeedEventsAreApplied(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	h := newHarness(t, alice, store, Options{})
	require.NoError(t, h.sync.OpenRoom(ctx, "general"))

	row := store.seed("general", bob, "via feed")
	h.feed.publish(domain.ChangeEvent{Kind: domain.ChangeInsert, Room: "general", Message: domain.ChatMessage{ID: row.ID, Room: "general", AuthorID: bob.ID}})
	require.Eventually(t, func() bool {
		return len(h.sync.Snapshot().Messages) == 1
	}, time.Second, 5*time.Millisecond)

	h.feed.publish(domain.ChangeEvent{Kind: domain.ChangeDelete, Room: "general", MessageID: row.ID})
	require.Eventually(t, func() bool {
		return len(h.sync.Snapshot().Messages) == 0
	}, time.Second, 5*time.Millisecond)
}

func TestUploadAndSendImage(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, alice, nil, Options{})
	require.NoError(t, h.sync.OpenRoom(ctx, "general"))

	res, err := h.sync.UploadAndSendImage(ctx, "Photo.PNG", bytes.NewBufferString("png-bytes"))
	require.NoError(t, err)

	name := fmt.Sprintf("img_%d_alice.png", base.Add(time.Hour).UnixMilli())
	assert.Equal(t, []byte("png-bytes"), h.objects.uploaded[name])
	assert.Equal(t, domain.KindImage, res.Provisional.Kind)
	assert.Equal(t, ImageCaption, res.Provisional.Content)
	assert.True(t, strings.HasSuffix(res.Provisional.MediaURL, name))
	assert.Equal(t, res.Provisional.MediaURL, res.Confirmed.MediaURL)
}

func TestUploadFailureNotifiesAndSendsNothing(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, alice, nil, Options{})
	h.objects.err = errors.New("bucket unavailable")
	require.NoError(t, h.sync.OpenRoom(ctx, "general"))

	_, err := h.sync.UploadAndSendImage(ctx, "a.jpg", bytes.NewBufferString("x"))
	require.Error(t, err)

	assert.Empty(t, h.sync.Snapshot().Messages)
	assert.Equal(t, 0, h.store.inserts)
	notes := h.notes.Notifications()
	require.Len(t, notes, 1)
	assert.Equal(t, notify.LevelError, notes[0].Level)
}

func TestUpdatesSignal(t *testing.T) {
	h := newHarness(t, alice, nil, Options{})
	require.NoError(t, h.sync.OpenRoom(context.Background(), "general"))
	select {
	case <-h.sync.Updates():
	default:
		t.Fatal("expected an update signal")
	}
}

func TestIsPinned(t *testing.T) {
	assert.True(t, IsPinned(1000, 400, 600))
	assert.True(t, IsPinned(1000, 400, 450))
	assert.False(t, IsPinned(1000, 400, 449))

	v := NewPixelViewport(400)
	v.Measure(2000, 400, 0)
	assert.False(t, v.AtBottom())
	v.ScrollToBottom()
	assert.True(t, v.AtBottom())
}
