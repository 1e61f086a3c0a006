package redis

import (
	"testing"
	"time"

	"edu-arena/internal/app"
	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestGameStoreSetsAndClearsKeys(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewGameStore(client, time.Minute)

	store.Save(app.NewGame("g1", "general-1", "u1", nil))
	if !mr.Exists("quiz:game:g1") {
		t.Fatalf("expected redis key to be set")
	}
	if v, _ := mr.Get("quiz:game:g1"); v != "u1" {
		t.Fatalf("expected player id as marker value, got %q", v)
	}
	if _, ok := store.Get("g1"); !ok {
		t.Fatalf("expected local game")
	}

	store.Delete("g1")
	if mr.Exists("quiz:game:g1") {
		t.Fatalf("expected redis key to be removed")
	}
}

func TestGameStoreTouchExtendsMarker(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewGameStore(client, time.Minute)
	store.Save(app.NewGame("g1", "general-1", "u1", nil))

	// A long game outlives a single ttl as long as it keeps advancing.
	for i := 0; i < 3; i++ {
		mr.FastForward(50 * time.Second)
		store.Touch("g1")
	}
	if !mr.Exists("quiz:game:g1") {
		t.Fatalf("expected marker to survive while the game advances")
	}
	if ttl := mr.TTL("quiz:game:g1"); ttl != time.Minute {
		t.Fatalf("expected ttl refreshed to 1m, got %v", ttl)
	}

	mr.FastForward(61 * time.Second)
	if mr.Exists("quiz:game:g1") {
		t.Fatalf("expected marker to expire once touches stop")
	}

	store.Touch("unknown")
	if mr.Exists("quiz:game:unknown") {
		t.Fatalf("touch must not create markers")
	}
}
