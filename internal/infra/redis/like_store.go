package redis

import (
	"context"
	"sort"
	"strconv"

	"github.com/redis/go-redis/v9"
)

// LikeStore keeps a user's liked message ids in a Redis set (chat:likes:{userID}).
type LikeStore struct {
	client *redis.Client
	userID string
}

func NewLikeStore(client *redis.Client, userID string) *LikeStore {
	return &LikeStore{client: client, userID: userID}
}

func (s *LikeStore) Load(ctx context.Context) ([]int64, error) {
	members, err := s.client.SMembers(ctx, s.key()).Result()
	if err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(members))
	for _, m := range members {
		id, err := strconv.ParseInt(m, 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (s *LikeStore) Add(ctx context.Context, id int64) error {
	return s.client.SAdd(ctx, s.key(), id).Err()
}

func (s *LikeStore) Remove(ctx context.Context, id int64) error {
	return s.client.SRem(ctx, s.key(), id).Err()
}

func (s *LikeStore) key() string {
	return "chat:likes:" + s.userID
}
