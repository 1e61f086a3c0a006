package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"edu-arena/internal/domain"
	"github.com/jmoiron/sqlx"
)

const selectMessages = `SELECT m.id, m.room, m.author_id, m.kind, m.content, COALESCE(m.media_url, '') AS media_url,
	m.created_at, m.likes, COALESCE(p.name, '') AS author_name, COALESCE(p.avatar, '') AS author_avatar,
	COALESCE(p.role, '') AS author_role
	FROM chat_messages m LEFT JOIN profiles p ON p.id = m.author_id`

// MessageStore is a sqlx-backed implementation of app.MessageRepository.
type MessageStore struct {
	db *sqlx.DB
}

func NewMessageStore(db *sqlx.DB) *MessageStore {
	return &MessageStore{db: db}
}

type messageRow struct {
	ID           int64     `db:"id"`
	Room         string    `db:"room"`
	AuthorID     string    `db:"author_id"`
	Kind         string    `db:"kind"`
	Content      string    `db:"content"`
	MediaURL     string    `db:"media_url"`
	CreatedAt    time.Time `db:"created_at"`
	Likes        int       `db:"likes"`
	AuthorName   string    `db:"author_name"`
	AuthorAvatar string    `db:"author_avatar"`
	AuthorRole   string    `db:"author_role"`
}

func (r messageRow) toDomain() domain.ChatMessage {
	return domain.ChatMessage{
		ID:        r.ID,
		Room:      r.Room,
		AuthorID:  r.AuthorID,
		Kind:      domain.MessageKind(r.Kind),
		Content:   r.Content,
		MediaURL:  r.MediaURL,
		CreatedAt: r.CreatedAt,
		Likes:     r.Likes,
		Author: domain.Author{
			ID:     r.AuthorID,
			Name:   r.AuthorName,
			Avatar: r.AuthorAvatar,
			Role:   r.AuthorRole,
		},
	}
}

// Recent returns the newest messages of room with author snapshots joined.
func (s *MessageStore) Recent(ctx context.Context, room string, limit int) ([]domain.ChatMessage, error) {
	var rows []messageRow
	err := s.db.SelectContext(ctx, &rows, selectMessages+` WHERE m.room=$1 ORDER BY m.created_at DESC, m.id DESC LIMIT $2`, room, limit)
	if err != nil {
		return nil, fmt.Errorf("select recent messages: %w", err)
	}
	out := make([]domain.ChatMessage, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

func (s *MessageStore) Get(ctx context.Context, id int64) (domain.ChatMessage, error) {
	var row messageRow
	err := s.db.GetContext(ctx, &row, selectMessages+` WHERE m.id=$1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ChatMessage{}, domain.ErrMessageNotFound
	}
	if err != nil {
		return domain.ChatMessage{}, fmt.Errorf("get message: %w", err)
	}
	return row.toDomain(), nil
}

func (s *MessageStore) Insert(ctx context.Context, msg domain.NewMessage) (domain.ChatMessage, error) {
	var id int64
	err := s.db.QueryRowxContext(ctx, `INSERT INTO chat_messages (room, author_id, kind, content, media_url)
		VALUES ($1, $2, $3, $4, NULLIF($5, '')) RETURNING id`,
		msg.Room, msg.AuthorID, string(msg.Kind), msg.Content, msg.MediaURL).Scan(&id)
	if err != nil {
		return domain.ChatMessage{}, fmt.Errorf("insert message: %w", err)
	}
	return s.Get(ctx, id)
}

func (s *MessageStore) UpdateLikes(ctx context.Context, id int64, likes int) (domain.ChatMessage, error) {
	res, err := s.db.ExecContext(ctx, `UPDATE chat_messages SET likes=$1 WHERE id=$2`, likes, id)
	if err != nil {
		return domain.ChatMessage{}, fmt.Errorf("update likes: %w", err)
	}
	count, err := res.RowsAffected()
	if err != nil {
		return domain.ChatMessage{}, err
	}
	if count == 0 {
		return domain.ChatMessage{}, domain.ErrMessageNotFound
	}
	return s.Get(ctx, id)
}

func (s *MessageStore) Delete(ctx context.Context, id int64) (domain.ChatMessage, error) {
	msg, err := s.Get(ctx, id)
	if err != nil {
		return domain.ChatMessage{}, err
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM chat_messages WHERE id=$1`, id); err != nil {
		return domain.ChatMessage{}, fmt.Errorf("delete message: %w", err)
	}
	return msg, nil
}

func (s *MessageStore) UpsertProfile(ctx context.Context, author domain.Author) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO profiles (id, name, avatar, role) VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''))
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, avatar = EXCLUDED.avatar, role = EXCLUDED.role`,
		author.ID, author.Name, author.Avatar, author.Role)
	if err != nil {
		return fmt.Errorf("upsert profile: %w", err)
	}
	return nil
}

func (s *MessageStore) Profile(ctx context.Context, id string) (domain.Author, error) {
	var author domain.Author
	err := s.db.GetContext(ctx, &author, `SELECT id, name, COALESCE(avatar, '') AS avatar, COALESCE(role, '') AS role FROM profiles WHERE id=$1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Author{}, domain.ErrProfileNotFound
	}
	if err != nil {
		return domain.Author{}, fmt.Errorf("get profile: %w", err)
	}
	return author, nil
}
