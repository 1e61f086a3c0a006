package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"edu-arena/internal/domain"
	"golang.org/x/sync/singleflight"
)

// QuestionLoader fetches question sets from a backing store (e.g., Postgres JSONB).
type QuestionLoader interface {
	LoadQuestionSet(ctx context.Context, setID string) (domain.QuestionSet, error)
}

// QuestionRepository caches question sets with TTL to avoid repeated DB hits.
type QuestionRepository struct {
	loader QuestionLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group

	mu    sync.RWMutex
	rnd   *rand.Rand
	cache map[string]cachedSet
}

type cachedSet struct {
	set       domain.QuestionSet
	expiresAt time.Time
}

func NewQuestionRepository(loader QuestionLoader, ttl time.Duration) *QuestionRepository {
	return &QuestionRepository{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedSet),
	}
}

func (r *QuestionRepository) GetQuestionSet(ctx context.Context, setID string) (domain.QuestionSet, error) {
	if set, ok := r.cached(setID); ok {
		return set, nil
	}

	result, err, _ := r.sf.Do(setID, func() (interface{}, error) {
		if set, ok := r.cached(setID); ok {
			return set, nil
		}

		set, err := r.loader.LoadQuestionSet(ctx, setID)
		if err != nil {
			return domain.QuestionSet{}, err
		}

		r.mu.Lock()
		r.cache[setID] = cachedSet{
			set:       set,
			expiresAt: r.clock().Add(r.ttlWithJitterLocked()),
		}
		r.mu.Unlock()
		return set, nil
	})
	if err != nil {
		return domain.QuestionSet{}, err
	}
	return result.(domain.QuestionSet), nil
}

// Invalidate drops a cached set so the next read reloads it.
func (r *QuestionRepository) Invalidate(setID string) {
	r.mu.Lock()
	delete(r.cache, setID)
	r.mu.Unlock()
}

func (r *QuestionRepository) cached(setID string) (domain.QuestionSet, bool) {
	now := r.clock()
	r.mu.RLock()
	defer r.mu.RUnlock()
	if entry, ok := r.cache[setID]; ok && entry.expiresAt.After(now) {
		return entry.set, true
	}
	return domain.QuestionSet{}, false
}

func (r *QuestionRepository) ttlWithJitterLocked() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}

// StaticQuestionLoader is a loader backed by an in-memory map (useful for tests/demos).
type StaticQuestionLoader struct {
	mu   sync.RWMutex
	sets map[string]domain.QuestionSet
}

func NewStaticQuestionLoader(sets ...domain.QuestionSet) *StaticQuestionLoader {
	l := &StaticQuestionLoader{sets: make(map[string]domain.QuestionSet, len(sets))}
	for _, set := range sets {
		l.sets[set.ID] = set
	}
	return l
}

func (l *StaticQuestionLoader) LoadQuestionSet(_ context.Context, setID string) (domain.QuestionSet, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if set, ok := l.sets[setID]; ok {
		return set, nil
	}
	return domain.QuestionSet{}, domain.ErrQuestionSetNotFound
}

// SaveQuestionSet replaces a set.
func (l *StaticQuestionLoader) SaveQuestionSet(_ context.Context, set domain.QuestionSet) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sets[set.ID] = set
	return nil
}

// SampleQuestionSet is the demo set served when no database is configured.
func SampleQuestionSet() domain.QuestionSet {
	return domain.QuestionSet{
		ID:    "general-1",
		Title: "General knowledge",
		Questions: []domain.Question{
			{ID: "g1", Prompt: "What is 2 + 2?", Options: []string{"3", "4", "5", "22"}, CorrectIndex: 1},
			{ID: "g2", Prompt: "Which planet is known as the red planet?", Options: []string{"Venus", "Jupiter", "Mars", "Mercury"}, CorrectIndex: 2},
			{ID: "g3", Prompt: "What is the chemical symbol of water?", Options: []string{"H2O", "CO2", "O2", "NaCl"}, CorrectIndex: 0},
			{ID: "g4", Prompt: "How many sides does a hexagon have?", Options: []string{"5", "7", "8", "6"}, CorrectIndex: 3},
			{ID: "g5", Prompt: "Who wrote \"Hamlet\"?", Options: []string{"Shakespeare", "Dickens", "Tolstoy", "Homer"}, CorrectIndex: 0},
			{ID: "g6", Prompt: "What is the largest ocean?", Options: []string{"Atlantic", "Pacific", "Indian", "Arctic"}, CorrectIndex: 1},
			{ID: "g7", Prompt: "What gas do plants absorb?", Options: []string{"Oxygen", "Nitrogen", "Carbon dioxide", "Helium"}, CorrectIndex: 2},
			{ID: "g8", Prompt: "What is 9 x 7?", Options: []string{"56", "63", "72", "81"}, CorrectIndex: 1},
			{ID: "g9", Prompt: "Which is the longest river in Africa?", Options: []string{"Congo", "Niger", "Zambezi", "Nile"}, CorrectIndex: 3},
			{ID: "g10", Prompt: "What is the boiling point of water at sea level in Celsius?", Options: []string{"100", "90", "120", "80"}, CorrectIndex: 0},
		},
	}
}
