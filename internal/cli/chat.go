package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"edu-arena/internal/chatsync"
	"edu-arena/internal/config"
	"edu-arena/internal/domain"
	"edu-arena/internal/infra/file"
	"edu-arena/internal/logging"
	"edu-arena/internal/notify"
	"edu-arena/internal/transport/client"
	"edu-arena/internal/tui"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
)

// NewChatCmd starts the terminal chat client against a running server.
func NewChatCmd(configPath *string) *cobra.Command {
	var userID, name, server, logFile string
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Open the terminal chat client",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if server == "" {
				server = cfg.Client.ServerURL
			}
			if userID == "" {
				return errors.New("--user is required")
			}
			if name == "" {
				name = userID
			}

			var out io.Writer = io.Discard
			if logFile != "" {
				f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
				if err != nil {
					return err
				}
				defer f.Close()
				out = f
			}
			log := logging.NewWithOutput("edu-arena-chat", out)

			likesPath := cfg.Client.LikesFile
			if likesPath == "" {
				if likesPath, err = file.DefaultPath(); err != nil {
					return err
				}
			}

			remote, err := client.New(server, userID, log)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			self := domain.Author{ID: userID, Name: name}
			if err := remote.UpsertProfile(ctx, self); err != nil {
				return fmt.Errorf("register profile: %w", err)
			}
			rooms, err := remote.Rooms(ctx)
			if err != nil {
				return fmt.Errorf("list rooms: %w", err)
			}

			model := tui.New(ctx, self, rooms, func(vp chatsync.Viewport, n notify.Notifier) *chatsync.Sync {
				return chatsync.New(self, chatsync.Collaborators{
					Store:    remote,
					Feed:     remote,
					Objects:  remote,
					Likes:    file.NewLikeStore(likesPath),
					Notifier: n,
					Viewport: vp,
				}, chatsync.Options{
					PageSize:          cfg.Chat.PageSize,
					RollbackOnFailure: cfg.Chat.RollbackOnFailure,
					Logger:            log,
				})
			})
			_, err = tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
			if errors.Is(err, tea.ErrProgramKilled) {
				return nil
			}
			return err
		},
	}
	cmd.Flags().StringVar(&userID, "user", os.Getenv("ARENA_USER"), "user id")
	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().StringVar(&server, "server", "", "server url (defaults to client.server_url)")
	cmd.Flags().StringVar(&logFile, "log-file", "", "append client logs to this file")
	return cmd
}
