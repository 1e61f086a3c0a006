package redis

import (
	"context"
	"sync"
	"time"

	"edu-arena/internal/app"
	"github.com/redis/go-redis/v9"
)

// GameStore is a Redis-aware implementation of app.GameRepository.
// Engines hold live timers, so games stay in a local map; Redis carries a
// liveness marker per game that other instances and operators can inspect.
type GameStore struct {
	client *redis.Client
	ttl    time.Duration
	mu     sync.RWMutex
	games  map[string]*app.Game
}

func NewGameStore(client *redis.Client, ttl time.Duration) *GameStore {
	return &GameStore{
		client: client,
		ttl:    ttl,
		games:  make(map[string]*app.Game),
	}
}

func (s *GameStore) Save(game *app.Game) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.games[game.ID] = game
	// best-effort liveness marker
	_ = s.client.Set(context.Background(), s.key(game.ID), game.PlayerID, s.ttl).Err()
}

func (s *GameStore) Get(gameID string) (*app.Game, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	game, ok := s.games[gameID]
	return game, ok
}

func (s *GameStore) Delete(gameID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.games[gameID]; !ok {
		return
	}
	delete(s.games, gameID)
	_ = s.client.Del(context.Background(), s.key(gameID)).Err()
}

// Touch pushes the liveness marker's expiry out by another ttl.
func (s *GameStore) Touch(gameID string) {
	s.mu.RLock()
	_, ok := s.games[gameID]
	s.mu.RUnlock()
	if !ok {
		return
	}
	_ = s.client.Expire(context.Background(), s.key(gameID), s.ttl).Err()
}

func (s *GameStore) key(gameID string) string {
	return "quiz:game:" + gameID
}
