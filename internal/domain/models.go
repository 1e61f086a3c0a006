package domain

import "time"

// MessageKind is the content variant of a chat message.
type MessageKind string

const (
	KindText  MessageKind = "text"
	KindAudio MessageKind = "audio"
	KindImage MessageKind = "image"
)

// Valid reports whether k is one of the known content variants.
func (k MessageKind) Valid() bool {
	switch k {
	case KindText, KindAudio, KindImage:
		return true
	}
	return false
}

// Author is the display snapshot of a message author, joined at fetch time.
type Author struct {
	ID     string `json:"id" db:"id"`
	Name   string `json:"name" db:"name"`
	Avatar string `json:"avatar,omitempty" db:"avatar"`
	Role   string `json:"role,omitempty" db:"role"`
}

// ChatMessage is a single entry of a room. Provisional messages carry a
// locally assigned temporary id until the server row is known.
type ChatMessage struct {
	ID          int64       `json:"id"`
	Provisional bool        `json:"provisional,omitempty"`
	Room        string      `json:"room"`
	AuthorID    string      `json:"authorId"`
	Kind        MessageKind `json:"kind"`
	Content     string      `json:"content"`
	MediaURL    string      `json:"mediaUrl,omitempty"`
	CreatedAt   time.Time   `json:"createdAt"`
	Likes       int         `json:"likes"`
	Author      Author      `json:"author"`
}

// NewMessage is the payload of an authoritative insert.
type NewMessage struct {
	Room     string      `json:"room" validate:"required"`
	AuthorID string      `json:"authorId" validate:"required"`
	Kind     MessageKind `json:"kind" validate:"required,oneof=text audio image"`
	Content  string      `json:"content" validate:"required"`
	MediaURL string      `json:"mediaUrl,omitempty"`
}

// ChangeKind names a row change delivered by the change feed.
type ChangeKind string

const (
	ChangeInsert ChangeKind = "insert"
	ChangeUpdate ChangeKind = "update"
	ChangeDelete ChangeKind = "delete"
)

// ChangeEvent is a single insert/update/delete notification for a room.
// Delete events only carry MessageID.
type ChangeEvent struct {
	Kind      ChangeKind  `json:"kind"`
	Room      string      `json:"room"`
	Message   ChatMessage `json:"message"`
	MessageID int64       `json:"messageId"`
}

// Room is a chat channel keyed by its subject tag.
type Room struct {
	Tag  string `json:"tag" yaml:"tag" validate:"required"`
	Name string `json:"name" yaml:"name"`
}

// Question is a single four-option trivia question.
type Question struct {
	ID           string   `json:"id" validate:"required"`
	Prompt       string   `json:"prompt" validate:"required"`
	Options      []string `json:"options" validate:"len=4,dive,required"`
	CorrectIndex int      `json:"correctIndex" validate:"min=0,max=3"`
	IsAI         bool     `json:"isAi"`
}

// QuestionSet is an ordered list of questions played as one ladder.
type QuestionSet struct {
	ID        string     `json:"id" validate:"required"`
	Title     string     `json:"title"`
	Questions []Question `json:"questions" validate:"min=1,dive"`
}

// Tier is one rung of the points ladder.
type Tier struct {
	Level     int  `json:"level"`
	Value     int  `json:"value"`
	SafeHaven bool `json:"safeHaven"`
}

// GameResult is emitted once a game ends with a recorded payout.
type GameResult struct {
	GameID     string    `json:"gameId"`
	SetID      string    `json:"setId"`
	PlayerID   string    `json:"playerId"`
	Outcome    string    `json:"outcome"`
	Level      int       `json:"level"`
	Payout     int       `json:"payout"`
	FinishedAt time.Time `json:"finishedAt"`
}
