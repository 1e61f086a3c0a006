package tui

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"edu-arena/internal/chatsync"
	"edu-arena/internal/domain"
	"edu-arena/internal/notify"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
)

const (
	headerHeight = 1
	footerHeight = 3
	opTimeout    = 15 * time.Second
)

type updateMsg struct{}

type noteMsg notify.Notification

type resultMsg struct {
	info string
	err  error
}

// Session builds the chat sync for the model; the model owns the viewport
// and notifier it is wired to.
type Session func(viewport chatsync.Viewport, notifier notify.Notifier) *chatsync.Sync

// Model is the bubbletea chat client.
type Model struct {
	ctx    context.Context
	self   domain.Author
	rooms  []domain.Room
	sync   *chatsync.Sync
	notes  *notify.ChannelNotifier
	scroll *scrollState

	viewport viewport.Model
	input    textinput.Model
	status   string
	statusOK bool
	ready    bool
}

func New(ctx context.Context, self domain.Author, rooms []domain.Room, session Session) Model {
	ti := textinput.New()
	ti.Placeholder = "Type a message or /help"
	ti.Focus()
	ti.CharLimit = 1000
	ti.Width = 20

	scroll := newScrollState()
	notes := notify.NewChannelNotifier(8)
	return Model{
		ctx:    ctx,
		self:   self,
		rooms:  rooms,
		sync:   session(scroll, notes),
		notes:  notes,
		scroll: scroll,
		input:  ti,
	}
}

// Sync exposes the underlying session.
func (m Model) Sync() *chatsync.Sync {
	return m.sync
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.waitForUpdate, m.waitForNote)
}

func (m Model) waitForUpdate() tea.Msg {
	select {
	case <-m.sync.Updates():
		return updateMsg{}
	case <-m.ctx.Done():
		return nil
	}
}

func (m Model) waitForNote() tea.Msg {
	select {
	case n := <-m.notes.C():
		return noteMsg(n)
	case <-m.ctx.Done():
		return nil
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var (
		tiCmd tea.Cmd
		vpCmd tea.Cmd
	)

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.sync.CloseRoom()
			return m, tea.Quit
		case tea.KeyEnter:
			line := strings.TrimSpace(m.input.Value())
			m.input.SetValue("")
			if line == "" {
				return m, nil
			}
			return m, m.handleLine(line)
		}

	case tea.WindowSizeMsg:
		if !m.ready {
			m.viewport = viewport.New(msg.Width, msg.Height-headerHeight-footerHeight)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = msg.Height - headerHeight - footerHeight
		}
		m.input.Width = msg.Width
		m.render()
		return m, nil

	case updateMsg:
		m.render()
		return m, m.waitForUpdate

	case noteMsg:
		m.status = msg.Message
		m.statusOK = msg.Level != notify.LevelError
		return m, m.waitForNote

	case resultMsg:
		if msg.err != nil {
			m.status = msg.err.Error()
			m.statusOK = false
		} else if msg.info != "" {
			m.status = msg.info
			m.statusOK = true
		}
		m.render()
		return m, nil
	}

	m.input, tiCmd = m.input.Update(msg)
	if m.ready {
		m.viewport, vpCmd = m.viewport.Update(msg)
		m.scroll.atBottom.Store(m.viewport.AtBottom())
		m.sync.OnScroll()
	}
	return m, tea.Batch(tiCmd, vpCmd)
}

// handleLine runs a slash command or sends a text message. Blocking work is
// returned as a command so the UI keeps rendering.
func (m *Model) handleLine(line string) tea.Cmd {
	room := m.sync.Snapshot().Room

	if !strings.HasPrefix(line, "/") {
		if room == "" {
			return m.openRoom(line)
		}
		return m.run(func(ctx context.Context) (string, error) {
			_, err := m.sync.SendMessage(ctx, line, domain.KindText, "")
			return "", err
		})
	}

	fields := strings.Fields(line)
	switch fields[0] {
	case "/help":
		return result("commands: /room <tag>, /leave, /like <n>, /image <path>, /bottom, /quit", nil)
	case "/quit":
		m.sync.CloseRoom()
		return tea.Quit
	case "/room":
		if len(fields) != 2 {
			return result("", errors.New("usage: /room <tag>"))
		}
		return m.openRoom(fields[1])
	case "/leave":
		m.sync.CloseRoom()
		return result("left "+room, nil)
	case "/bottom":
		m.sync.ScrollToBottom()
		return nil
	case "/like":
		if len(fields) != 2 {
			return result("", errors.New("usage: /like <n>"))
		}
		id, err := m.messageAt(fields[1])
		if err != nil {
			return result("", err)
		}
		return m.run(func(ctx context.Context) (string, error) {
			_, err := m.sync.ToggleLike(ctx, id)
			return "", err
		})
	case "/image":
		if len(fields) != 2 {
			return result("", errors.New("usage: /image <path>"))
		}
		if room == "" {
			return result("", domain.ErrNoActiveRoom)
		}
		path := fields[1]
		return m.run(func(ctx context.Context) (string, error) {
			f, err := os.Open(path)
			if err != nil {
				return "", err
			}
			defer f.Close()
			if _, err := m.sync.UploadAndSendImage(ctx, filepath.Base(path), f); err != nil {
				return "", err
			}
			return "image sent", nil
		})
	}
	return result("", fmt.Errorf("unknown command %s", fields[0]))
}

// openRoom accepts a room tag or its 1-based position in the room list.
func (m *Model) openRoom(arg string) tea.Cmd {
	tag := arg
	if n, err := strconv.Atoi(arg); err == nil && n >= 1 && n <= len(m.rooms) {
		tag = m.rooms[n-1].Tag
	}
	known := false
	for _, r := range m.rooms {
		if r.Tag == tag {
			known = true
			break
		}
	}
	if !known {
		return result("", fmt.Errorf("%w: %s", domain.ErrRoomNotFound, tag))
	}
	return m.run(func(ctx context.Context) (string, error) {
		if err := m.sync.OpenRoom(ctx, tag); err != nil {
			return "", err
		}
		return "joined " + tag, nil
	})
}

// messageAt maps the index shown next to a message to its id.
func (m *Model) messageAt(arg string) (int64, error) {
	n, err := strconv.Atoi(arg)
	msgs := m.sync.Snapshot().Messages
	if err != nil || n < 1 || n > len(msgs) {
		return 0, fmt.Errorf("no message %s", arg)
	}
	return msgs[n-1].ID, nil
}

func (m *Model) run(fn func(ctx context.Context) (string, error)) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(ctx, opTimeout)
		defer cancel()
		info, err := fn(ctx)
		return resultMsg{info: info, err: err}
	}
}

func result(info string, err error) tea.Cmd {
	return func() tea.Msg { return resultMsg{info: info, err: err} }
}

func (m *Model) render() {
	if !m.ready {
		return
	}
	snap := m.sync.Snapshot()
	if snap.Room == "" {
		m.viewport.SetContent(formatRooms(m.rooms))
		m.viewport.GotoTop()
		return
	}

	lines := make([]string, 0, len(snap.Messages))
	for i, msg := range snap.Messages {
		lines = append(lines, formatMessage(i+1, msg, m.self.ID, snap.Liked[msg.ID], m.viewport.Width))
	}
	if snap.Loading && len(lines) == 0 {
		lines = append(lines, infoStyle.Render("loading..."))
	}
	m.viewport.SetContent(strings.Join(lines, "\n"))
	if m.scroll.takeScroll() {
		m.viewport.GotoBottom()
	}
	m.scroll.atBottom.Store(m.viewport.AtBottom())
}

func (m Model) View() string {
	if !m.ready {
		return "\n  Initializing..."
	}
	snap := m.sync.Snapshot()

	title := "edu-arena chat"
	if snap.Room != "" {
		title += " · #" + snap.Room
	}
	status := infoStyle.Render(m.status)
	if !m.statusOK && m.status != "" {
		status = errorStyle.Render(m.status)
	}
	if snap.NewMessages {
		status = bannerStyle.Render("new messages below, /bottom to jump")
	}

	return fmt.Sprintf("%s\n%s\n%s\n%s\n%s",
		headerStyle.Render(title),
		m.viewport.View(),
		strings.Repeat("─", m.viewport.Width),
		m.input.View(),
		status,
	)
}
