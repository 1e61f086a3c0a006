package memory

import (
	"context"
	"sort"
	"sync"
)

// LikeStore keeps liked message ids for the lifetime of the process.
type LikeStore struct {
	mu  sync.Mutex
	ids map[int64]struct{}
}

func NewLikeStore() *LikeStore {
	return &LikeStore{ids: make(map[int64]struct{})}
}

func (s *LikeStore) Load(context.Context) ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]int64, 0, len(s.ids))
	for id := range s.ids {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

func (s *LikeStore) Add(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ids[id] = struct{}{}
	return nil
}

func (s *LikeStore) Remove(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.ids, id)
	return nil
}
