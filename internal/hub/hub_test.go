package hub

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/briannalee/chunkgenerator-sub000/internal/world"
)

func newTestHub(t *testing.T) *Hub {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run: %v", err)
	}
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return New(client)
}

func TestSetListDeletePlayer(t *testing.T) {
	h := newTestHub(t)
	ctx := context.Background()

	if err := h.SetPlayer(ctx, "p1", Position{X: 3, Y: 4}); err != nil {
		t.Fatalf("SetPlayer: %v", err)
	}
	players, err := h.ListPlayers(ctx)
	if err != nil {
		t.Fatalf("ListPlayers: %v", err)
	}
	if players["p1"] != (Position{X: 3, Y: 4}) {
		t.Fatalf("got %+v, want {3 4}", players["p1"])
	}

	if err := h.DeletePlayer(ctx, "p1"); err != nil {
		t.Fatalf("DeletePlayer: %v", err)
	}
	players, err = h.ListPlayers(ctx)
	if err != nil {
		t.Fatalf("ListPlayers: %v", err)
	}
	if _, ok := players["p1"]; ok {
		t.Fatal("expected p1 to be removed")
	}
}

func TestNewPlayerIDsAreUnique(t *testing.T) {
	a := NewPlayerID()
	b := NewPlayerID()
	if a == b {
		t.Fatal("expected distinct player ids")
	}
}

func TestPublishSubscribePlayerUpdate(t *testing.T) {
	h := newTestHub(t)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	updates := h.SubscribePlayerUpdates(ctx)
	time.Sleep(50 * time.Millisecond) // let the subscription establish

	h.PublishPlayerUpdate(ctx, "p1", Position{X: 1, Y: 2})

	select {
	case update := <-updates:
		if update.PlayerID != "p1" || update.X != 1 || update.Y != 2 {
			t.Fatalf("unexpected update: %+v", update)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for player update")
	}
}

func TestPublishSubscribeChunkInvalidate(t *testing.T) {
	h := newTestHub(t)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	invalidations := h.SubscribeChunkInvalidate(ctx)
	time.Sleep(50 * time.Millisecond)

	h.PublishChunkInvalidate(ctx, world.ChunkCoord{X: 5, Y: -1})

	select {
	case inv := <-invalidations:
		if inv.CX != 5 || inv.CY != -1 {
			t.Fatalf("unexpected invalidation: %+v", inv)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for chunk invalidation")
	}
}

func TestPurgePlayersClearsRegistry(t *testing.T) {
	h := newTestHub(t)
	ctx := context.Background()
	if err := h.SetPlayer(ctx, "p1", Position{X: 0, Y: 0}); err != nil {
		t.Fatalf("SetPlayer: %v", err)
	}
	if err := h.PurgePlayers(ctx); err != nil {
		t.Fatalf("PurgePlayers: %v", err)
	}
	players, err := h.ListPlayers(ctx)
	if err != nil {
		t.Fatalf("ListPlayers: %v", err)
	}
	if len(players) != 0 {
		t.Fatalf("expected empty registry, got %v", players)
	}
}
