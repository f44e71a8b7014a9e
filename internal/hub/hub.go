// Package hub holds the state shared across every server instance: the live
// player registry and the pub/sub event bus that lets one instance's writes
// become visible to every other instance's sessions.
package hub

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/briannalee/chunkgenerator-sub000/internal/world"
)

const (
	playersKey      = "players"
	playersTTL      = time.Hour
	topicPlayer     = "player_updates"
	topicInvalidate = "chunk_invalidate"
)

// Position is a player's location in world coordinates.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// PlayerUpdate is the player_updates bus payload.
type PlayerUpdate struct {
	PlayerID string  `json:"playerId"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
}

// ChunkInvalidate is the chunk_invalidate bus payload.
type ChunkInvalidate struct {
	CX int `json:"cx"`
	CY int `json:"cy"`
}

// Hub wraps the shared player registry (a Redis hash) and the pub/sub bus
// on top of the same Redis connection the cache uses.
type Hub struct {
	client *redis.Client
}

// New wraps an already-connected Redis client.
func New(client *redis.Client) *Hub {
	return &Hub{client: client}
}

const playerIDAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
const playerIDLength = 9

// NewPlayerID mints a short (9-character) random player identifier, matching
// spec.md section 8's wire examples. If the system RNG read fails, the bytes
// it did not fill map to 'a', so the id degrades to a run of 'a' characters.
func NewPlayerID() string {
	buf := make([]byte, playerIDLength)
	if _, err := rand.Read(buf); err != nil {
		log.Printf("hub: player id rng read failed, using fallback id: %v", err)
	}
	id := make([]byte, playerIDLength)
	for i, b := range buf {
		id[i] = playerIDAlphabet[int(b)%len(playerIDAlphabet)]
	}
	return string(id)
}

// SetPlayer upserts a player's position and refreshes the registry's TTL.
func (h *Hub) SetPlayer(ctx context.Context, id string, pos Position) error {
	data, err := json.Marshal(pos)
	if err != nil {
		return fmt.Errorf("hub: marshal position: %w", err)
	}
	pipe := h.client.TxPipeline()
	pipe.HSet(ctx, playersKey, id, data)
	pipe.Expire(ctx, playersKey, playersTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("hub: set player %s: %w", id, err)
	}
	return nil
}

// DeletePlayer removes a player from the registry.
func (h *Hub) DeletePlayer(ctx context.Context, id string) error {
	if err := h.client.HDel(ctx, playersKey, id).Err(); err != nil {
		return fmt.Errorf("hub: delete player %s: %w", id, err)
	}
	return nil
}

// ListPlayers returns every player currently registered, keyed by id.
func (h *Hub) ListPlayers(ctx context.Context) (map[string]Position, error) {
	raw, err := h.client.HGetAll(ctx, playersKey).Result()
	if err != nil {
		return nil, fmt.Errorf("hub: list players: %w", err)
	}
	out := make(map[string]Position, len(raw))
	for id, data := range raw {
		var pos Position
		if err := json.Unmarshal([]byte(data), &pos); err != nil {
			log.Printf("hub: dropping malformed player entry %s: %v", id, err)
			continue
		}
		out[id] = pos
	}
	return out, nil
}

// PublishPlayerUpdate announces that the registry changed for id. Delivery
// is best-effort; a failed publish is logged, never returned as fatal,
// since the registry itself is already durable.
func (h *Hub) PublishPlayerUpdate(ctx context.Context, id string, pos Position) {
	payload, err := json.Marshal(PlayerUpdate{PlayerID: id, X: pos.X, Y: pos.Y})
	if err != nil {
		log.Printf("hub: marshal player update: %v", err)
		return
	}
	if err := h.client.Publish(ctx, topicPlayer, payload).Err(); err != nil {
		log.Printf("hub: publish player update failed (bus delivery failure, non-fatal): %v", err)
	}
}

// PublishChunkInvalidate announces a chunk invalidation to every subscriber.
func (h *Hub) PublishChunkInvalidate(ctx context.Context, key world.ChunkCoord) {
	payload, err := json.Marshal(ChunkInvalidate{CX: key.X, CY: key.Y})
	if err != nil {
		log.Printf("hub: marshal chunk invalidate: %v", err)
		return
	}
	if err := h.client.Publish(ctx, topicInvalidate, payload).Err(); err != nil {
		log.Printf("hub: publish chunk invalidate failed (bus delivery failure, non-fatal): %v", err)
	}
}

// SubscribePlayerUpdates returns a channel of decoded player_updates events.
// The channel closes when ctx is cancelled or the subscription breaks.
func (h *Hub) SubscribePlayerUpdates(ctx context.Context) <-chan PlayerUpdate {
	sub := h.client.Subscribe(ctx, topicPlayer)
	out := make(chan PlayerUpdate)
	go func() {
		defer close(out)
		defer sub.Close()
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var update PlayerUpdate
				if err := json.Unmarshal([]byte(msg.Payload), &update); err != nil {
					log.Printf("hub: dropping malformed player_updates message: %v", err)
					continue
				}
				select {
				case out <- update:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}

// SubscribeChunkInvalidate returns a channel of decoded chunk_invalidate
// events, with the same idempotent, at-least-once delivery contract.
func (h *Hub) SubscribeChunkInvalidate(ctx context.Context) <-chan ChunkInvalidate {
	sub := h.client.Subscribe(ctx, topicInvalidate)
	out := make(chan ChunkInvalidate)
	go func() {
		defer close(out)
		defer sub.Close()
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var inv ChunkInvalidate
				if err := json.Unmarshal([]byte(msg.Payload), &inv); err != nil {
					log.Printf("hub: dropping malformed chunk_invalidate message: %v", err)
					continue
				}
				select {
				case out <- inv:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}

// PurgePlayers removes the entire player registry. Only called on
// DEBUG_MODE boot, matching the cache's analogous purge.
func (h *Hub) PurgePlayers(ctx context.Context) error {
	if err := h.client.Del(ctx, playersKey).Err(); err != nil {
		return fmt.Errorf("hub: purge players: %w", err)
	}
	return nil
}
