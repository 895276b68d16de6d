package reminder

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestRedisDedupeMarkOnce(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	dedupe := NewRedisDedupe(client, time.Hour)
	ctx := context.Background()

	first, err := dedupe.MarkOnce(ctx, "appt-1:2026-08-31")
	if err != nil {
		t.Fatalf("mark once: %v", err)
	}
	if !first {
		t.Fatal("first mark must report true")
	}

	second, err := dedupe.MarkOnce(ctx, "appt-1:2026-08-31")
	if err != nil {
		t.Fatalf("mark twice: %v", err)
	}
	if second {
		t.Fatal("second mark must report false")
	}

	other, err := dedupe.MarkOnce(ctx, "appt-2:2026-08-31")
	if err != nil {
		t.Fatalf("mark other: %v", err)
	}
	if !other {
		t.Fatal("different key must be independent")
	}
}

func TestRedisDedupeTTLExpires(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	dedupe := NewRedisDedupe(client, time.Minute)
	ctx := context.Background()

	if first, _ := dedupe.MarkOnce(ctx, "appt-1"); !first {
		t.Fatal("first mark must report true")
	}
	mr.FastForward(2 * time.Minute)
	if again, _ := dedupe.MarkOnce(ctx, "appt-1"); !again {
		t.Fatal("mark after TTL expiry must report true")
	}
}

func TestNoopDedupe(t *testing.T) {
	var d NoopDedupe
	for i := 0; i < 3; i++ {
		first, err := d.MarkOnce(context.Background(), "same-key")
		if err != nil || !first {
			t.Fatalf("noop must always allow, got first=%v err=%v", first, err)
		}
	}
}
