package notify

import (
	"sync"

	"github.com/sirupsen/logrus"
)

type Level string

const (
	LevelInfo  Level = "info"
	LevelError Level = "error"
)

// Notification is a user-facing message (toast, alert, modal text).
type Notification struct {
	Level   Level  `json:"level"`
	Message string `json:"message"`
}

// Notifier delivers user-facing messages. Implementations must not block.
type Notifier interface {
	Notify(n Notification)
}

func Info(n Notifier, msg string) {
	if n != nil {
		n.Notify(Notification{Level: LevelInfo, Message: msg})
	}
}

func Error(n Notifier, msg string) {
	if n != nil {
		n.Notify(Notification{Level: LevelError, Message: msg})
	}
}

// LogNotifier writes notifications to a logger.
type LogNotifier struct {
	log logrus.FieldLogger
}

func NewLogNotifier(log logrus.FieldLogger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) Notify(note Notification) {
	entry := n.log.WithField("notification", true)
	if note.Level == LevelError {
		entry.Error(note.Message)
		return
	}
	entry.Info(note.Message)
}

// ChannelNotifier forwards notifications to a buffered channel, dropping the
// oldest pending one when the reader falls behind.
type ChannelNotifier struct {
	ch chan Notification
}

func NewChannelNotifier(size int) *ChannelNotifier {
	if size <= 0 {
		size = 8
	}
	return &ChannelNotifier{ch: make(chan Notification, size)}
}

func (n *ChannelNotifier) C() <-chan Notification {
	return n.ch
}

func (n *ChannelNotifier) Notify(note Notification) {
	for {
		select {
		case n.ch <- note:
			return
		default:
			select {
			case <-n.ch:
			default:
			}
		}
	}
}

// Recorder keeps every notification in memory.
type Recorder struct {
	mu    sync.Mutex
	notes []Notification
}

func (r *Recorder) Notify(note Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notes = append(r.notes, note)
}

func (r *Recorder) Notifications() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Notification, len(r.notes))
	copy(out, r.notes)
	return out
}
