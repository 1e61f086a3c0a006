package chatsync

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"edu-arena/internal/domain"
	"edu-arena/internal/notify"
	"github.com/sirupsen/logrus"
)

const (
	DefaultPageSize = 50
	// ImageCaption is the text content of image messages.
	ImageCaption = "image"
)

// Collaborators are the external services a Sync talks to.
type Collaborators struct {
	Store    Store
	Feed     Subscriber
	Objects  ObjectStore
	Likes    LikeStore
	Notifier notify.Notifier
	Viewport Viewport
}

type Options struct {
	PageSize int
	// RollbackOnFailure reverts optimistic sends and like toggles when the
	// authoritative write fails. Off by default: failures are only logged.
	RollbackOnFailure bool
	Now               func() time.Time
	Logger            logrus.FieldLogger
}

// RoomSession is a rendering snapshot.
type RoomSession struct {
	Room        string
	Messages    []domain.ChatMessage
	Loading     bool
	NewMessages bool
	Liked       map[int64]bool
}

// SendResult describes an optimistic send.
type SendResult struct {
	Provisional domain.ChatMessage
	Confirmed   domain.ChatMessage
	RolledBack  bool
}

// LikeResult describes a like toggle.
type LikeResult struct {
	Liked      bool
	Likes      int
	RolledBack bool
}

// Sync keeps a locally consistent, ordered view of one chat room.
type Sync struct {
	self domain.Author
	c    Collaborators
	opts Options
	log  logrus.FieldLogger

	mu           sync.Mutex
	gen          uint64
	room         string
	messages     []domain.ChatMessage
	loading      bool
	newMessages  bool
	liked        map[int64]bool
	likesLoaded  bool
	lastTempID   int64
	subscription Subscription

	updates chan struct{}
}

func New(self domain.Author, c Collaborators, opts Options) *Sync {
	if opts.PageSize <= 0 {
		opts.PageSize = DefaultPageSize
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	if c.Viewport == nil {
		c.Viewport = &StaticViewport{Bottom: true}
	}
	return &Sync{
		self:    self,
		c:       c,
		opts:    opts,
		log:     opts.Logger.WithField("component", "chatsync").WithField("user_id", self.ID),
		liked:   make(map[int64]bool),
		updates: make(chan struct{}, 1),
	}
}

// Updates signals (coalesced) that the session changed.
func (s *Sync) Updates() <-chan struct{} {
	return s.updates
}

// OpenRoom switches to room: the previous subscription is released and the
// buffer cleared, then the room's change feed is subscribed and the newest
// page fetched. On fetch failure the room stays loading with an empty buffer.
func (s *Sync) OpenRoom(ctx context.Context, room string) error {
	s.mu.Lock()
	prev := s.detachLocked()
	gen := s.gen
	s.room = room
	s.loading = true
	s.mu.Unlock()
	closeSubscription(prev)
	s.signal()

	s.ensureLikes(ctx)

	log := s.log.WithField("room", room)
	if s.c.Feed != nil {
		sub, err := s.c.Feed.Subscribe(ctx, room)
		if err != nil {
			log.WithError(err).Error("subscribe to room failed")
			return fmt.Errorf("subscribe room %s: %w", room, err)
		}
		s.mu.Lock()
		if gen != s.gen {
			s.mu.Unlock()
			closeSubscription(sub)
			return nil
		}
		s.subscription = sub
		s.mu.Unlock()
		go s.pump(gen, sub)
	}

	rows, err := s.c.Store.Recent(ctx, room, s.opts.PageSize)
	if err != nil {
		log.WithError(err).Error("fetch room messages failed")
		return fmt.Errorf("fetch room %s: %w", room, err)
	}

	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		return nil
	}
	for i := len(rows) - 1; i >= 0; i-- {
		s.insertLocked(rows[i])
	}
	s.loading = false
	s.mu.Unlock()

	s.c.Viewport.ScrollToBottom()
	s.signal()
	log.WithField("count", len(rows)).Debug("room opened")
	return nil
}

// CloseRoom releases the subscription, discards the buffer and returns to room selection.
func (s *Sync) CloseRoom() {
	s.mu.Lock()
	prev := s.detachLocked()
	s.mu.Unlock()
	closeSubscription(prev)
	s.signal()
}

// SendMessage appends a provisional entry and issues the authoritative insert.
// The provisional entry stands for the local send; the confirmed row is
// returned but never merged, and the feed's copy of it is ignored.
func (s *Sync) SendMessage(ctx context.Context, content string, kind domain.MessageKind, mediaURL string) (SendResult, error) {
	content = strings.TrimSpace(content)
	if content == "" || !kind.Valid() {
		return SendResult{}, domain.ErrInvalidMessage
	}

	s.mu.Lock()
	if s.room == "" {
		s.mu.Unlock()
		return SendResult{}, domain.ErrNoActiveRoom
	}
	gen := s.gen
	tmp := domain.ChatMessage{
		ID:          s.nextTempIDLocked(),
		Provisional: true,
		Room:        s.room,
		AuthorID:    s.self.ID,
		Kind:        kind,
		Content:     content,
		MediaURL:    mediaURL,
		CreatedAt:   s.opts.Now(),
		Author:      s.self,
	}
	s.insertLocked(tmp)
	s.mu.Unlock()

	s.c.Viewport.ScrollToBottom()
	s.signal()

	result := SendResult{Provisional: tmp}
	row, err := s.c.Store.Insert(ctx, domain.NewMessage{
		Room:     tmp.Room,
		AuthorID: tmp.AuthorID,
		Kind:     kind,
		Content:  content,
		MediaURL: mediaURL,
	})
	if err != nil {
		s.log.WithError(err).WithField("room", tmp.Room).Error("insert message failed")
		if s.opts.RollbackOnFailure {
			s.mu.Lock()
			if gen == s.gen {
				result.RolledBack = s.removeLocked(tmp.ID, true)
			}
			s.mu.Unlock()
			s.signal()
		}
		return result, fmt.Errorf("insert message: %w", err)
	}
	result.Confirmed = row
	return result, nil
}

// ToggleLike flips the local like of message id and writes the new absolute
// count. The write is a plain overwrite: two users liking concurrently can
// lose one of the increments.
func (s *Sync) ToggleLike(ctx context.Context, id int64) (LikeResult, error) {
	s.mu.Lock()
	i := s.indexLocked(id)
	if i < 0 {
		s.mu.Unlock()
		return LikeResult{}, domain.ErrMessageNotFound
	}
	gen := s.gen
	msg := &s.messages[i]
	provisional := msg.Provisional
	prevLikes := msg.Likes
	wasLiked := s.liked[id]

	likes := prevLikes + 1
	if wasLiked {
		likes = prevLikes - 1
		if likes < 0 {
			likes = 0
		}
		delete(s.liked, id)
	} else {
		s.liked[id] = true
	}
	msg.Likes = likes
	s.mu.Unlock()
	s.signal()

	result := LikeResult{Liked: !wasLiked, Likes: likes}
	if provisional {
		return result, nil
	}

	s.persistLike(ctx, id, !wasLiked)

	if err := s.c.Store.UpdateLikes(ctx, id, likes); err != nil {
		s.log.WithError(err).WithField("message_id", id).Error("update likes failed")
		if s.opts.RollbackOnFailure {
			s.mu.Lock()
			if gen == s.gen {
				if j := s.indexLocked(id); j >= 0 {
					s.messages[j].Likes = prevLikes
				}
			}
			if wasLiked {
				s.liked[id] = true
			} else {
				delete(s.liked, id)
			}
			s.mu.Unlock()
			s.persistLike(ctx, id, wasLiked)
			s.signal()
			result = LikeResult{Liked: wasLiked, Likes: prevLikes, RolledBack: true}
		}
		return result, fmt.Errorf("update likes: %w", err)
	}
	return result, nil
}

// UploadAndSendImage stores the image and sends it as an image message.
// Upload failures raise an error notification and send nothing.
func (s *Sync) UploadAndSendImage(ctx context.Context, filename string, r io.Reader) (SendResult, error) {
	name := fmt.Sprintf("img_%d_%s%s", s.opts.Now().UnixMilli(), s.self.ID, strings.ToLower(filepath.Ext(filename)))
	if err := s.c.Objects.Upload(ctx, name, r); err != nil {
		s.log.WithError(err).WithField("object", name).Error("image upload failed")
		notify.Error(s.c.Notifier, "Image upload failed: "+err.Error())
		return SendResult{}, fmt.Errorf("upload image: %w", err)
	}
	return s.SendMessage(ctx, ImageCaption, domain.KindImage, s.c.Objects.PublicURL(name))
}

// OnRemoteInsert applies an insert from the change feed. Rows authored by the
// local user are ignored; the optimistic entry already represents them.
func (s *Sync) OnRemoteInsert(ctx context.Context, row domain.ChatMessage) error {
	return s.onRemoteInsert(ctx, s.generation(), row)
}

// OnRemoteUpdate replaces the mutable fields of a buffered message.
func (s *Sync) OnRemoteUpdate(row domain.ChatMessage) {
	s.onRemoteUpdate(s.generation(), row)
}

// OnRemoteDelete drops a buffered message.
func (s *Sync) OnRemoteDelete(id int64) {
	s.onRemoteDelete(s.generation(), id)
}

// OnScroll clears the new-messages affordance once the viewport reaches the bottom.
func (s *Sync) OnScroll() {
	if !s.c.Viewport.AtBottom() {
		return
	}
	s.mu.Lock()
	changed := s.newMessages
	s.newMessages = false
	s.mu.Unlock()
	if changed {
		s.signal()
	}
}

// ScrollToBottom jumps to the newest message.
func (s *Sync) ScrollToBottom() {
	s.c.Viewport.ScrollToBottom()
	s.mu.Lock()
	s.newMessages = false
	s.mu.Unlock()
	s.signal()
}

// Snapshot copies the session for rendering.
func (s *Sync) Snapshot() RoomSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	msgs := make([]domain.ChatMessage, len(s.messages))
	copy(msgs, s.messages)
	liked := make(map[int64]bool, len(s.liked))
	for id := range s.liked {
		liked[id] = true
	}
	return RoomSession{
		Room:        s.room,
		Messages:    msgs,
		Loading:     s.loading,
		NewMessages: s.newMessages,
		Liked:       liked,
	}
}

func (s *Sync) pump(gen uint64, sub Subscription) {
	ctx := context.Background()
	for ev := range sub.Events() {
		switch ev.Kind {
		case domain.ChangeInsert:
			if err := s.onRemoteInsert(ctx, gen, ev.Message); err != nil {
				s.log.WithError(err).WithField("message_id", ev.Message.ID).Warn("apply remote insert failed")
			}
		case domain.ChangeUpdate:
			s.onRemoteUpdate(gen, ev.Message)
		case domain.ChangeDelete:
			id := ev.MessageID
			if id == 0 {
				id = ev.Message.ID
			}
			s.onRemoteDelete(gen, id)
		}
	}
}

func (s *Sync) onRemoteInsert(ctx context.Context, gen uint64, row domain.ChatMessage) error {
	if row.AuthorID == s.self.ID {
		return nil
	}
	if !s.current(gen, row.Room) {
		return nil
	}

	full, err := s.c.Store.Get(ctx, row.ID)
	if err != nil {
		return fmt.Errorf("fetch message %d: %w", row.ID, err)
	}
	pinned := s.c.Viewport.AtBottom()

	s.mu.Lock()
	if gen != s.gen || full.Room != s.room {
		s.mu.Unlock()
		return nil
	}
	inserted := s.insertLocked(full)
	if inserted && !pinned {
		s.newMessages = true
	}
	s.mu.Unlock()

	if inserted {
		if pinned {
			s.c.Viewport.ScrollToBottom()
		}
		s.signal()
	}
	return nil
}

func (s *Sync) onRemoteUpdate(gen uint64, row domain.ChatMessage) {
	s.mu.Lock()
	if gen != s.gen || row.Room != s.room {
		s.mu.Unlock()
		return
	}
	i := s.confirmedIndexLocked(row.ID)
	if i < 0 {
		s.mu.Unlock()
		return
	}
	msg := &s.messages[i]
	msg.Likes = row.Likes
	if row.Content != "" {
		msg.Content = row.Content
	}
	if row.MediaURL != "" {
		msg.MediaURL = row.MediaURL
	}
	s.mu.Unlock()
	s.signal()
}

func (s *Sync) onRemoteDelete(gen uint64, id int64) {
	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		return
	}
	removed := s.removeLocked(id, false)
	s.mu.Unlock()
	if removed {
		s.signal()
	}
}

func (s *Sync) current(gen uint64, room string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return gen == s.gen && room == s.room
}

func (s *Sync) generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen
}

// detachLocked invalidates the current subscription and clears the buffer.
// The returned subscription must be closed outside the lock.
func (s *Sync) detachLocked() Subscription {
	s.gen++
	prev := s.subscription
	s.subscription = nil
	s.room = ""
	s.messages = nil
	s.loading = false
	s.newMessages = false
	return prev
}

// insertLocked places msg after every entry with CreatedAt <= msg.CreatedAt,
// so ties keep arrival order. Already buffered ids are skipped.
func (s *Sync) insertLocked(msg domain.ChatMessage) bool {
	for _, m := range s.messages {
		if m.ID == msg.ID && m.Provisional == msg.Provisional {
			return false
		}
	}
	at := sort.Search(len(s.messages), func(i int) bool {
		return s.messages[i].CreatedAt.After(msg.CreatedAt)
	})
	s.messages = append(s.messages, domain.ChatMessage{})
	copy(s.messages[at+1:], s.messages[at:])
	s.messages[at] = msg
	return true
}

func (s *Sync) removeLocked(id int64, provisional bool) bool {
	for i, m := range s.messages {
		if m.ID == id && m.Provisional == provisional {
			s.messages = append(s.messages[:i], s.messages[i+1:]...)
			return true
		}
	}
	return false
}

// indexLocked finds a buffered message by id, preferring confirmed rows.
func (s *Sync) indexLocked(id int64) int {
	if i := s.confirmedIndexLocked(id); i >= 0 {
		return i
	}
	for i, m := range s.messages {
		if m.ID == id {
			return i
		}
	}
	return -1
}

func (s *Sync) confirmedIndexLocked(id int64) int {
	for i, m := range s.messages {
		if m.ID == id && !m.Provisional {
			return i
		}
	}
	return -1
}

// nextTempIDLocked derives a temporary id from the local clock in
// milliseconds, bumped so ids stay unique within a burst.
func (s *Sync) nextTempIDLocked() int64 {
	id := s.opts.Now().UnixMilli()
	if id <= s.lastTempID {
		id = s.lastTempID + 1
	}
	s.lastTempID = id
	return id
}

func (s *Sync) ensureLikes(ctx context.Context) {
	if s.c.Likes == nil {
		return
	}
	s.mu.Lock()
	loaded := s.likesLoaded
	s.mu.Unlock()
	if loaded {
		return
	}

	ids, err := s.c.Likes.Load(ctx)
	if err != nil {
		s.log.WithError(err).Warn("load liked messages failed")
		return
	}
	s.mu.Lock()
	for _, id := range ids {
		s.liked[id] = true
	}
	s.likesLoaded = true
	s.mu.Unlock()
}

func (s *Sync) persistLike(ctx context.Context, id int64, liked bool) {
	if s.c.Likes == nil {
		return
	}
	var err error
	if liked {
		err = s.c.Likes.Add(ctx, id)
	} else {
		err = s.c.Likes.Remove(ctx, id)
	}
	if err != nil {
		s.log.WithError(err).WithField("message_id", id).Warn("persist like failed")
	}
}

func (s *Sync) signal() {
	select {
	case s.updates <- struct{}{}:
	default:
	}
}

func closeSubscription(sub Subscription) {
	if sub != nil {
		_ = sub.Close()
	}
}
