package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// LikeStore persists the local user's liked message ids as a JSON array,
// the terminal client's counterpart of browser local storage.
type LikeStore struct {
	path string
	mu   sync.Mutex
}

func NewLikeStore(path string) *LikeStore {
	return &LikeStore{path: path}
}

// DefaultPath is liked_messages.json under the user config directory.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "edu-arena", "liked_messages.json"), nil
}

func (s *LikeStore) Load(context.Context) ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	set, err := s.readLocked()
	if err != nil {
		return nil, err
	}
	return sorted(set), nil
}

func (s *LikeStore) Add(_ context.Context, id int64) error {
	return s.update(func(set map[int64]struct{}) { set[id] = struct{}{} })
}

func (s *LikeStore) Remove(_ context.Context, id int64) error {
	return s.update(func(set map[int64]struct{}) { delete(set, id) })
}

func (s *LikeStore) update(fn func(map[int64]struct{})) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	set, err := s.readLocked()
	if err != nil {
		return err
	}
	fn(set)
	return s.writeLocked(set)
}

func (s *LikeStore) readLocked() (map[int64]struct{}, error) {
	set := make(map[int64]struct{})
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return set, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read likes: %w", err)
	}
	var ids []int64
	if err := json.Unmarshal(raw, &ids); err != nil {
		// a corrupt file is treated as empty and rewritten on the next change
		return set, nil
	}
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set, nil
}

func (s *LikeStore) writeLocked(set map[int64]struct{}) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create likes dir: %w", err)
	}
	raw, err := json.Marshal(sorted(set))
	if err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("write likes: %w", err)
	}
	return os.Rename(tmp, s.path)
}

func sorted(set map[int64]struct{}) []int64 {
	out := make([]int64, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
