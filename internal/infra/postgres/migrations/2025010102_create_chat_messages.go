package migrations

import (
	"context"
	_ "embed"
	"strings"

	"github.com/uptrace/bun"
)

//go:embed 2025010102_create_chat_messages.sql
var createChatMessagesSQL string

func init() {
	Migrations.MustRegister(
		func(ctx context.Context, db *bun.DB) error {
			for _, stmt := range strings.Split(createChatMessagesSQL, ";") {
				if strings.TrimSpace(stmt) == "" {
					continue
				}
				if _, err := db.ExecContext(ctx, stmt); err != nil {
					return err
				}
			}
			return nil
		},
		func(ctx context.Context, db *bun.DB) error {
			_, err := db.ExecContext(ctx, `DROP TABLE IF EXISTS chat_messages`)
			return err
		},
	)
}
