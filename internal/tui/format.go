package tui

import (
	"fmt"
	"strings"

	"edu-arena/internal/domain"
	"github.com/charmbracelet/lipgloss"
)

var (
	timeStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	authorStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	selfStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42"))
	pendingStyle = lipgloss.NewStyle().Faint(true)
	likeStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))
	mediaStyle   = lipgloss.NewStyle().Underline(true).Foreground(lipgloss.Color("75"))
	headerStyle  = lipgloss.NewStyle().Bold(true).Padding(0, 1).Background(lipgloss.Color("62")).Foreground(lipgloss.Color("230"))
	bannerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("214"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	infoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("246"))
)

// formatMessage renders one line of the room: index, time, author, body and likes.
func formatMessage(n int, msg domain.ChatMessage, selfID string, liked bool, width int) string {
	if width < 40 {
		width = 80
	}

	name := msg.Author.Name
	if name == "" {
		name = msg.AuthorID
	}
	style := authorStyle
	if msg.AuthorID == selfID {
		style = selfStyle
	}

	body := msg.Content
	switch msg.Kind {
	case domain.KindImage:
		body = "[image] " + mediaStyle.Render(msg.MediaURL)
	case domain.KindAudio:
		body = "[audio] " + mediaStyle.Render(msg.MediaURL)
	}

	heart := "♡"
	if liked {
		heart = "♥"
	}
	likes := ""
	if msg.Likes > 0 || liked {
		likes = " " + likeStyle.Render(fmt.Sprintf("%s %d", heart, msg.Likes))
	}

	line := fmt.Sprintf("%3d %s %s: %s%s",
		n,
		timeStyle.Render(msg.CreatedAt.Local().Format("15:04")),
		style.Render(name),
		body,
		likes,
	)
	if msg.Provisional {
		line = pendingStyle.Render(line)
	}
	return lipgloss.NewStyle().Width(width).Render(line)
}

func formatRooms(rooms []domain.Room) string {
	var b strings.Builder
	b.WriteString("Rooms (type a number or /room <tag>):\n\n")
	for i, r := range rooms {
		fmt.Fprintf(&b, "  %d. %s %s\n", i+1, authorStyle.Render(r.Tag), infoStyle.Render(r.Name))
	}
	return b.String()
}
