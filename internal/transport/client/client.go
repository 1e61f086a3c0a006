package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"edu-arena/internal/chatsync"
	"edu-arena/internal/domain"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const feedBuffer = 64

// Client talks to the arena server on behalf of one user. It implements
// chatsync.Store, chatsync.Subscriber and chatsync.ObjectStore.
type Client struct {
	base   *url.URL
	userID string
	http   *http.Client
	dialer *websocket.Dialer
	log    logrus.FieldLogger

	mu   sync.RWMutex
	urls map[string]string
}

func New(baseURL, userID string, log logrus.FieldLogger) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse server url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("unsupported server url scheme %q", base.Scheme)
	}
	return &Client{
		base:   base,
		userID: userID,
		http:   &http.Client{Timeout: 15 * time.Second},
		dialer: &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		log:    log,
		urls:   make(map[string]string),
	}, nil
}

// apiError carries the server's error message and status.
type apiError struct {
	Status  int
	Message string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.Status, e.Message)
}

func (c *Client) Rooms(ctx context.Context) ([]domain.Room, error) {
	var resp struct {
		Rooms []domain.Room `json:"rooms"`
	}
	if err := c.do(ctx, http.MethodGet, "/rooms", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Rooms, nil
}

func (c *Client) Recent(ctx context.Context, room string, limit int) ([]domain.ChatMessage, error) {
	var resp struct {
		Messages []domain.ChatMessage `json:"messages"`
	}
	path := "/rooms/" + url.PathEscape(room) + "/messages?limit=" + strconv.Itoa(limit)
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Messages, nil
}

func (c *Client) Get(ctx context.Context, id int64) (domain.ChatMessage, error) {
	var msg domain.ChatMessage
	err := c.do(ctx, http.MethodGet, "/messages/"+strconv.FormatInt(id, 10), nil, &msg)
	return msg, err
}

func (c *Client) Insert(ctx context.Context, msg domain.NewMessage) (domain.ChatMessage, error) {
	body := map[string]string{"kind": string(msg.Kind), "content": msg.Content, "mediaUrl": msg.MediaURL}
	var out domain.ChatMessage
	err := c.do(ctx, http.MethodPost, "/rooms/"+url.PathEscape(msg.Room)+"/messages", body, &out)
	return out, err
}

func (c *Client) UpdateLikes(ctx context.Context, id int64, likes int) error {
	return c.do(ctx, http.MethodPatch, "/messages/"+strconv.FormatInt(id, 10)+"/likes", map[string]int{"likes": likes}, nil)
}

func (c *Client) UpsertProfile(ctx context.Context, author domain.Author) error {
	body := map[string]string{"name": author.Name, "avatar": author.Avatar, "role": author.Role}
	return c.do(ctx, http.MethodPut, "/profiles/"+url.PathEscape(author.ID), body, nil)
}

// Upload posts r as multipart media and remembers the URL the server assigned.
func (c *Client) Upload(ctx context.Context, name string, r io.Reader) error {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if err := w.WriteField("name", name); err != nil {
		return err
	}
	part, err := w.CreateFormFile("file", name)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, r); err != nil {
		return fmt.Errorf("read upload: %w", err)
	}
	if err := w.Close(); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("/media"), &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	var resp struct {
		Name string `json:"name"`
		URL  string `json:"url"`
	}
	if err := c.send(req, &resp); err != nil {
		return err
	}

	c.mu.Lock()
	c.urls[name] = resp.URL
	c.mu.Unlock()
	return nil
}

func (c *Client) PublicURL(name string) string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if u, ok := c.urls[name]; ok {
		return u
	}
	return c.endpoint("/media/" + url.PathEscape(name))
}

// Subscribe opens the room's change feed websocket. ctx bounds the
// handshake only; the subscription lasts until Close.
func (c *Client) Subscribe(ctx context.Context, room string) (chatsync.Subscription, error) {
	u := *c.base
	if u.Scheme == "https" {
		u.Scheme = "wss"
	} else {
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/ws/rooms/" + url.PathEscape(room)
	u.RawQuery = url.Values{"userId": {c.userID}}.Encode()

	conn, resp, err := c.dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		if resp != nil {
			return nil, &apiError{Status: resp.StatusCode, Message: "feed handshake rejected"}
		}
		return nil, fmt.Errorf("dial feed: %w", err)
	}

	sub := &subscription{
		conn:   conn,
		events: make(chan domain.ChangeEvent, feedBuffer),
		done:   make(chan struct{}),
		log:    c.log.WithField("room", room),
	}
	go sub.read()
	return sub, nil
}

type subscription struct {
	conn   *websocket.Conn
	events chan domain.ChangeEvent
	done   chan struct{}
	log    logrus.FieldLogger
	once   sync.Once
}

func (s *subscription) Events() <-chan domain.ChangeEvent {
	return s.events
}

func (s *subscription) Close() error {
	var err error
	s.once.Do(func() {
		close(s.done)
		err = s.conn.Close()
	})
	return err
}

// read forwards change frames until the connection drops; closing the
// connection ends it and closes Events.
func (s *subscription) read() {
	defer close(s.events)
	for {
		var frame struct {
			Type    string             `json:"type"`
			Payload domain.ChangeEvent `json:"payload"`
		}
		if err := s.conn.ReadJSON(&frame); err != nil {
			var closeErr *websocket.CloseError
			if !errors.As(err, &closeErr) && !errors.Is(err, net.ErrClosed) {
				s.log.WithError(err).Debug("feed connection ended")
			}
			return
		}
		if frame.Type != "change" {
			continue
		}
		select {
		case s.events <- frame.Payload:
		case <-s.done:
			return
		}
	}
}

func (c *Client) endpoint(path string) string {
	return c.base.String() + path
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path), reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.send(req, out)
}

func (c *Client) send(req *http.Request, out any) error {
	req.Header.Set("X-User-Id", c.userID)
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var payload struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&payload)
		return mapStatus(&apiError{Status: resp.StatusCode, Message: payload.Error})
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// mapStatus restores domain sentinels for the statuses the server derives from them.
func mapStatus(err *apiError) error {
	switch err.Status {
	case http.StatusNotFound:
		for _, sentinel := range []error{domain.ErrRoomNotFound, domain.ErrProfileNotFound} {
			if strings.Contains(err.Message, sentinel.Error()) {
				return fmt.Errorf("%w: %v", sentinel, err)
			}
		}
		return fmt.Errorf("%w: %v", domain.ErrMessageNotFound, err)
	case http.StatusBadRequest:
		return fmt.Errorf("%w: %v", domain.ErrInvalidMessage, err)
	case http.StatusForbidden:
		return fmt.Errorf("%w: %v", domain.ErrNotAuthor, err)
	}
	return err
}
