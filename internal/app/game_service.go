package app

import (
	"context"
	"sync"
	"time"

	"edu-arena/internal/domain"
	"edu-arena/internal/notify"
	"edu-arena/internal/observability"
	"edu-arena/internal/quiz"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

// GameRepository abstracts where running games are kept (in-memory, Redis-marked, etc).
type GameRepository interface {
	Save(game *Game)
	Get(gameID string) (*Game, bool)
	Delete(gameID string)
	// Touch extends the registry entry of a game that is still being played.
	Touch(gameID string)
}

// QuestionRepository loads question sets (from cache/backing store).
type QuestionRepository interface {
	GetQuestionSet(ctx context.Context, setID string) (domain.QuestionSet, error)
}

// ResultPublisher ships finished-game results to downstream consumers.
type ResultPublisher interface {
	Publish(ctx context.Context, routingKey string, event any) error
}

const publishTimeout = 5 * time.Second

// GameService contains the quiz game use cases.
type GameService struct {
	games     GameRepository
	questions QuestionRepository
	publisher ResultPublisher
	log       logrus.FieldLogger
	engine    quiz.Options
	now       func() time.Time
}

// NewGameService wires the game use cases. engine is the template every new
// game engine is built from; its Notifier and OnFinish are set per game.
func NewGameService(games GameRepository, questions QuestionRepository, publisher ResultPublisher, log logrus.FieldLogger, engine quiz.Options) *GameService {
	return &GameService{
		games:     games,
		questions: questions,
		publisher: publisher,
		log:       log,
		engine:    engine,
		now:       time.Now,
	}
}

// Game is one running play-through owned by a player.
type Game struct {
	ID        string
	SetID     string
	PlayerID  string
	StartedAt time.Time

	engine *quiz.Engine

	mu     sync.Mutex
	result *domain.GameResult
}

// NewGame is exported for infrastructure layers and tests that seed games.
func NewGame(id, setID, playerID string, engine *quiz.Engine) *Game {
	return &Game{ID: id, SetID: setID, PlayerID: playerID, StartedAt: time.Now(), engine: engine}
}

func (g *Game) Engine() *quiz.Engine {
	return g.engine
}

// Result returns the recorded result once the game has finished with a payout.
func (g *Game) Result() (domain.GameResult, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.result == nil {
		return domain.GameResult{}, false
	}
	return *g.result, true
}

// Start loads the question set and starts a fresh game for playerID.
// Lifeline notices (the friend's hint) go to notifier.
func (s *GameService) Start(ctx context.Context, setID, playerID string, notifier notify.Notifier) (*Game, error) {
	ctx, span := observability.StartSpan(ctx, "game.start",
		attribute.String("set_id", setID), attribute.String("player_id", playerID))
	var err error
	defer func() { observability.EndSpan(span, err) }()

	set, err := s.questions.GetQuestionSet(ctx, setID)
	if err != nil {
		return nil, err
	}

	game := &Game{
		ID:        uuid.New().String(),
		SetID:     set.ID,
		PlayerID:  playerID,
		StartedAt: s.now(),
	}

	opts := s.engine
	opts.Notifier = notifier
	opts.OnFinish = func(snap quiz.Snapshot) { s.record(game, snap) }

	engine, err := quiz.NewEngine(set.Questions, opts)
	if err != nil {
		return nil, err
	}
	game.engine = engine

	s.games.Save(game)
	engine.Start()
	go s.keepAlive(game)

	s.log.WithFields(logrus.Fields{
		"game_id":   game.ID,
		"set_id":    set.ID,
		"player_id": playerID,
		"levels":    engine.Snapshot().Levels,
	}).Info("game started")
	return game, nil
}

// Get returns a running game owned by playerID.
func (s *GameService) Get(gameID, playerID string) (*Game, error) {
	game, ok := s.games.Get(gameID)
	if !ok || game.PlayerID != playerID {
		return nil, domain.ErrGameNotFound
	}
	return game, nil
}

// End stops the game's timers and forgets it.
func (s *GameService) End(gameID string) {
	game, ok := s.games.Get(gameID)
	if !ok {
		return
	}
	game.engine.Close()
	s.games.Delete(gameID)
}

// keepAlive touches the registry entry each time the game reaches a new
// level, until the game finishes or its engine is closed.
func (s *GameService) keepAlive(game *Game) {
	updates, cancel := game.engine.Subscribe()
	defer cancel()
	level := 0
	for snap := range updates {
		if snap.Phase == quiz.PhaseFinished {
			return
		}
		if snap.Level != level {
			level = snap.Level
			s.games.Touch(game.ID)
		}
	}
}

func (s *GameService) record(game *Game, snap quiz.Snapshot) {
	observability.IncGameFinished(string(snap.Outcome))

	entry := s.log.WithFields(logrus.Fields{
		"game_id": game.ID,
		"outcome": snap.Outcome,
		"level":   snap.Level + 1,
		"payout":  snap.Payout,
	})
	if snap.Outcome == quiz.OutcomeExited {
		entry.Info("game exited, no result recorded")
		return
	}

	result := domain.GameResult{
		GameID:     game.ID,
		SetID:      game.SetID,
		PlayerID:   game.PlayerID,
		Outcome:    string(snap.Outcome),
		Level:      snap.Level + 1,
		Payout:     snap.Payout,
		FinishedAt: s.now(),
	}
	game.mu.Lock()
	game.result = &result
	game.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	if err := s.publisher.Publish(ctx, "quiz.result."+result.Outcome, result); err != nil {
		entry.WithError(err).Warn("publish game result")
		return
	}
	entry.Info("game finished")
}
