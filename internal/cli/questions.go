package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"edu-arena/internal/config"
	"edu-arena/internal/content"
	"edu-arena/internal/domain"
	"edu-arena/internal/infra/postgres"
	redisstore "edu-arena/internal/infra/redis"
	"edu-arena/internal/logging"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

// QuestionSaver persists imported question sets.
type QuestionSaver interface {
	SaveQuestionSet(ctx context.Context, set domain.QuestionSet) error
}

// NewImportQuestionsCmd parses AI generated questions and stores them as a set.
func NewImportQuestionsCmd(configPath *string) *cobra.Command {
	var setID, title, file string
	cmd := &cobra.Command{
		Use:   "import-questions",
		Short: "Import an AI generated question set (JSON, fenced or not)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if cfg.Postgres.URL == "" {
				return errors.New("postgres url not configured")
			}
			raw, err := readInput(cmd.InOrStdin(), file)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			pool, err := postgres.ConnectPool(ctx, cfg.Postgres.URL)
			if err != nil {
				return err
			}
			defer pool.Close()

			set, err := importQuestions(ctx, postgres.NewQuestionStore(pool), setID, title, raw)
			if err != nil {
				return err
			}

			if cfg.Redis.Addr != "" {
				client := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
				defer client.Close()
				if err := redisstore.NewQuestionRepository(client, nil, 0).Invalidate(ctx, set.ID); err != nil {
					return fmt.Errorf("invalidate cached set: %w", err)
				}
			}

			logging.New("edu-arena-import").
				WithField("set_id", set.ID).
				WithField("questions", len(set.Questions)).
				Info("question set imported")
			return nil
		},
	}
	cmd.Flags().StringVar(&setID, "set", "", "question set id")
	cmd.Flags().StringVar(&title, "title", "", "question set title")
	cmd.Flags().StringVar(&file, "file", "-", "file with the AI output, - for stdin")
	_ = cmd.MarkFlagRequired("set")
	return cmd
}

func importQuestions(ctx context.Context, store QuestionSaver, setID, title, raw string) (domain.QuestionSet, error) {
	set, err := content.ParseQuestions(setID, title, raw)
	if err != nil {
		return domain.QuestionSet{}, err
	}
	if err := store.SaveQuestionSet(ctx, set); err != nil {
		return domain.QuestionSet{}, fmt.Errorf("save question set %s: %w", setID, err)
	}
	return set, nil
}

func readInput(stdin io.Reader, file string) (string, error) {
	if file == "" || file == "-" {
		data, err := io.ReadAll(stdin)
		return string(data), err
	}
	data, err := os.ReadFile(file)
	return string(data), err
}
