package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"edu-arena/internal/app"
	"edu-arena/internal/chatsync"
	"edu-arena/internal/config"
	"edu-arena/internal/infra/memory"
	"edu-arena/internal/infra/objectstore"
	"edu-arena/internal/infra/postgres"
	"edu-arena/internal/infra/rabbitmq"
	redisstore "edu-arena/internal/infra/redis"
	"edu-arena/internal/logging"
	"edu-arena/internal/quiz"
	transport "edu-arena/internal/transport/http"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the chat and quiz server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

// feed is both ends of the change feed.
type feed interface {
	app.FeedPublisher
	chatsync.Subscriber
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	log := logging.New("edu-arena")

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if portFlag != "" {
		cfg.Server.Port = portFlag
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrations(ctx, cfg, log); err != nil {
			return err
		}
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
	}
	redisTTL := config.TTLDuration(cfg.Redis.TTL, 10*time.Minute)

	chat, changes, mediaDir, closeChat, err := buildChat(ctx, cfg, redisClient, log)
	if err != nil {
		return err
	}
	defer closeChat()
	games, closeGames, err := buildGames(ctx, cfg, redisClient, redisTTL, log)
	if err != nil {
		return err
	}
	defer closeGames()

	if os.Getenv("GIN_MODE") == "" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := transport.NewRouter(transport.RouterDeps{
		Chat:     chat,
		Games:    games,
		Feed:     changes,
		MediaDir: mediaDir,
		Log:      log,
	})

	server := &http.Server{
		Addr:        ":" + cfg.Server.Port,
		Handler:     router,
		ReadTimeout: 15 * time.Second,
	}

	go func() {
		log.WithField("port", cfg.Server.Port).Info("starting edu-arena server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("failed to start server")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Info("shutting down server...")
	case <-ctx.Done():
		log.Info("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// buildChat wires the message store, change feed and media storage. Postgres
// and Redis are used when configured; otherwise everything stays in memory.
func buildChat(ctx context.Context, cfg config.Config, redisClient *redis.Client, log logrus.FieldLogger) (*app.ChatService, feed, string, func(), error) {
	closers := []func() error{}
	closeAll := func() {
		for _, c := range closers {
			_ = c()
		}
	}

	var messages app.MessageRepository = memory.NewMessageStore()
	if cfg.Postgres.URL != "" {
		db, err := postgres.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return nil, nil, "", nil, err
		}
		closers = append(closers, db.Close)
		messages = postgres.NewMessageStore(db)
	}

	var changes feed = memory.NewFeed(log)
	if redisClient != nil {
		changes = redisstore.NewFeed(redisClient, log)
	}

	var (
		objects  chatsync.ObjectStore
		mediaDir string
	)
	if cfg.FTP.Host != "" {
		ftp := objectstore.NewFTPStore(cfg.FTP.Host, cfg.FTP.Port, cfg.FTP.User, cfg.FTP.Password, cfg.FTP.Dir, cfg.FTP.BaseURL)
		closers = append(closers, ftp.Close)
		objects = ftp
		log.WithField("host", cfg.FTP.Host).Info("media stored on ftp")
	} else {
		local, err := objectstore.NewLocalStore(cfg.Storage.Dir, cfg.Storage.BaseURL)
		if err != nil {
			closeAll()
			return nil, nil, "", nil, err
		}
		objects = local
		mediaDir = local.Dir()
	}

	chat := app.NewChatService(messages, changes, objects, cfg.Chat.Rooms, log)
	return chat, changes, mediaDir, closeAll, nil
}

// buildGames wires the question cache, session registry and result publisher.
func buildGames(ctx context.Context, cfg config.Config, redisClient *redis.Client, redisTTL time.Duration, log logrus.FieldLogger) (*app.GameService, func(), error) {
	closePool := func() {}
	var loader memory.QuestionLoader = memory.NewStaticQuestionLoader(memory.SampleQuestionSet())
	if cfg.Postgres.URL != "" {
		pool, err := postgres.ConnectPool(ctx, cfg.Postgres.URL)
		if err != nil {
			return nil, nil, err
		}
		loader = postgres.NewQuestionStore(pool)
		closePool = pool.Close
	}

	quizTTL := config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute)
	var questions app.QuestionRepository
	var games app.GameRepository
	if redisClient != nil {
		questions = redisstore.NewQuestionRepository(redisClient, loader, quizTTL)
		games = redisstore.NewGameStore(redisClient, redisTTL)
	} else {
		questions = memory.NewQuestionRepository(loader, quizTTL)
		games = memory.NewGameStore()
	}

	publisher := rabbitmq.NewPublisher(cfg.AMQP.URL, cfg.AMQP.Exchange, log)
	log.WithField("mode", rabbitmq.Mode(publisher)).Info("result publisher ready")

	service := app.NewGameService(games, questions, publisher, log, quiz.Options{
		TimePerQuestion: config.TTLDuration(cfg.Quiz.TimePerQuestion, quiz.DefaultTimePerQuestion),
		RevealDelay:     config.TTLDuration(cfg.Quiz.RevealDelay, quiz.DefaultRevealDelay),
		AdvanceDelay:    config.TTLDuration(cfg.Quiz.AdvanceDelay, quiz.DefaultAdvanceDelay),
		DefeatDelay:     config.TTLDuration(cfg.Quiz.DefeatDelay, quiz.DefaultDefeatDelay),
	})
	return service, func() {
		_ = publisher.Close()
		closePool()
	}, nil
}
