// Package session implements the per-client duplex connection: JSON text
// frames for control messages, gzip-compressed binary frames for chunk
// payloads, and the fan-out that turns hub events into broadcasts.
package session

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/briannalee/chunkgenerator-sub000/internal/hub"
	"github.com/briannalee/chunkgenerator-sub000/internal/mining"
	"github.com/briannalee/chunkgenerator-sub000/internal/workerpool"
	"github.com/briannalee/chunkgenerator-sub000/internal/world"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:    4096,
	WriteBufferSize:   4096,
	EnableCompression: true, // perMessageDeflate
	CheckOrigin:       func(r *http.Request) bool { return true },
}

// chunkPipeline is the subset of *orchestrator.Orchestrator the session
// layer drives.
type chunkPipeline interface {
	GetChunk(ctx context.Context, key world.ChunkCoord, mode workerpool.Mode) (*world.Chunk, error)
	WriteChunk(ctx context.Context, chunk *world.Chunk) error
}

// registry is the subset of *hub.Hub the session layer drives.
type registry interface {
	SetPlayer(ctx context.Context, id string, pos hub.Position) error
	DeletePlayer(ctx context.Context, id string) error
	ListPlayers(ctx context.Context) (map[string]hub.Position, error)
	PublishPlayerUpdate(ctx context.Context, id string, pos hub.Position)
}

// Session is one connected client.
type Session struct {
	id       string
	conn     *websocket.Conn
	pipeline chunkPipeline
	registry registry

	writeMu sync.Mutex
}

// Manager owns every locally-connected session and fans out hub broadcasts
// to them, matching the mutex-guarded registry + broadcast-loop idiom used
// throughout the pack's realtime servers.
type Manager struct {
	pipeline chunkPipeline
	registry registry

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewManager wires a session manager to the fulfillment pipeline and the
// shared player hub.
func NewManager(pipeline chunkPipeline, reg registry) *Manager {
	return &Manager{pipeline: pipeline, registry: reg, sessions: make(map[string]*Session)}
}

// HandleWebSocket upgrades an HTTP request to a websocket connection and
// runs the resulting session until it closes.
func (m *Manager) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("session: upgrade failed: %v", err)
		return
	}
	m.Run(r.Context(), conn)
}

// Run drives one session end to end: open, message loop, close.
func (m *Manager) Run(ctx context.Context, conn *websocket.Conn) {
	s := &Session{id: hub.NewPlayerID(), conn: conn, pipeline: m.pipeline, registry: m.registry}

	m.add(s)
	defer m.remove(s)

	if err := s.open(ctx); err != nil {
		log.Printf("session %s: open failed: %v", s.id, err)
		return
	}
	defer s.close(ctx)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		s.handle(ctx, data)
	}
}

func (m *Manager) add(s *Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.id] = s
}

func (m *Manager) remove(s *Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, s.id)
}

// BroadcastPlayerUpdate sends the full player snapshot to every local
// session. Called from the loop draining the hub's player_updates topic.
func (m *Manager) BroadcastPlayerUpdate(ctx context.Context) {
	players, err := m.registry.ListPlayers(ctx)
	if err != nil {
		log.Printf("session: list players for broadcast failed: %v", err)
		return
	}
	msg := outboundMessage{Type: "playerUpdate", Players: players}

	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, s := range m.sessions {
		if err := s.sendJSON(msg); err != nil {
			log.Printf("session %s: broadcast failed: %v", s.id, err)
		}
	}
}

// BroadcastChunkInvalidate optionally re-pushes a refreshed chunk to every
// local session; delivery is intentionally lossy per spec.md section 4.G.
func (m *Manager) BroadcastChunkInvalidate(ctx context.Context, key world.ChunkCoord) {
	chunk, err := m.pipeline.GetChunk(ctx, key, workerpool.ModeChunk)
	if err != nil {
		log.Printf("session: refetch %s for invalidation broadcast failed: %v", key, err)
		return
	}
	payload := chunkPayload{X: key.X, Y: key.Y, Tiles: world.WireTiles(chunk.Tiles()), Mode: "chunk", Resources: chunk.Resources()}

	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, s := range m.sessions {
		if err := s.sendGzippedJSON(outboundMessage{Type: "chunkUpdate", Chunk: &payload}); err != nil {
			log.Printf("session %s: chunk update push failed: %v", s.id, err)
		}
	}
}

// --- wire message shapes ---

type inboundMessage struct {
	Type string  `json:"type"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	Mode string  `json:"mode"`
	Tool string  `json:"tool"`
}

type outboundMessage struct {
	Type     string                  `json:"type"`
	ID       string                  `json:"id,omitempty"`
	Players  map[string]hub.Position `json:"players,omitempty"`
	Message  string                  `json:"message,omitempty"`
	Chunk    *chunkPayload           `json:"chunk,omitempty"`
	Resource world.ResourceType      `json:"resource,omitempty"`
	Amount   int                     `json:"amount,omitempty"`
	X        *int                    `json:"x,omitempty"`
	Y        *int                    `json:"y,omitempty"`
}

func intPtr(v int) *int { return &v }

type chunkPayload struct {
	X         int                            `json:"x"`
	Y         int                            `json:"y"`
	Tiles     [][]any                        `json:"tiles"`
	Mode      string                         `json:"mode"`
	Resources map[string]world.ResourceNode  `json:"resources"`
}

// --- per-session behaviour ---

func (s *Session) open(ctx context.Context) error {
	if err := s.registry.SetPlayer(ctx, s.id, hub.Position{X: 0, Y: 0}); err != nil {
		return fmt.Errorf("register player: %w", err)
	}
	s.registry.PublishPlayerUpdate(ctx, s.id, hub.Position{X: 0, Y: 0})

	players, err := s.registry.ListPlayers(ctx)
	if err != nil {
		return fmt.Errorf("list players: %w", err)
	}
	return s.sendJSON(outboundMessage{Type: "connected", ID: s.id, Players: players})
}

func (s *Session) close(ctx context.Context) {
	if err := s.registry.DeletePlayer(ctx, s.id); err != nil {
		log.Printf("session %s: delete player failed: %v", s.id, err)
	}
	s.registry.PublishPlayerUpdate(ctx, s.id, hub.Position{X: -1, Y: -1})
}

func (s *Session) handle(ctx context.Context, data []byte) {
	var msg inboundMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		s.sendError("Invalid request parameters")
		return
	}

	switch msg.Type {
	case "requestChunk":
		s.handleRequestChunk(ctx, msg)
	case "move":
		s.handleMove(ctx, msg)
	case "handshake":
		s.handleHandshake(ctx)
	case "mining":
		s.handleMining(ctx, msg)
	default:
		s.sendError("Invalid request parameters")
	}
}

func (s *Session) handleRequestChunk(ctx context.Context, msg inboundMessage) {
	if math.IsNaN(msg.X) || math.IsInf(msg.X, 0) || math.IsNaN(msg.Y) || math.IsInf(msg.Y, 0) {
		s.sendError("Invalid request parameters")
		return
	}
	mode := msg.Mode
	if mode == "" {
		mode = "chunk"
	}
	wpMode, ok := parseMode(mode)
	if !ok {
		s.sendError("Invalid request parameters")
		return
	}

	// row/column/point bypass the in-flight dedup registry and the cache/
	// store tiers entirely: the pipeline dispatches them straight to the
	// worker pool's local LRU, per spec.md section 4.C.
	key := world.ChunkOf(int(msg.X), int(msg.Y))
	chunk, err := s.pipeline.GetChunk(ctx, key, wpMode)
	if err != nil {
		s.sendError("Invalid request parameters")
		return
	}

	tiles := selectTiles(chunk, int(msg.X), int(msg.Y), mode)
	payload := chunkPayload{X: key.X, Y: key.Y, Tiles: world.WireTiles(tiles), Mode: mode, Resources: chunk.Resources()}
	if err := s.sendGzippedJSON(outboundMessage{Type: "chunkData", Chunk: &payload}); err != nil {
		log.Printf("session %s: send chunk data failed: %v", s.id, err)
	}
}

func parseMode(mode string) (workerpool.Mode, bool) {
	switch mode {
	case "chunk":
		return workerpool.ModeChunk, true
	case "row":
		return workerpool.ModeRow, true
	case "column":
		return workerpool.ModeColumn, true
	case "point":
		return workerpool.ModePoint, true
	default:
		return "", false
	}
}

func selectTiles(chunk *world.Chunk, x, y int, mode string) []world.Tile {
	lx, ly := world.LocalOf(x, y)
	switch mode {
	case "row":
		row, _ := chunk.Row(ly)
		return row
	case "column":
		col, _ := chunk.Column(lx)
		return col
	case "point":
		tile, ok := chunk.TileAt(lx, ly)
		if !ok {
			return nil
		}
		return []world.Tile{tile}
	default:
		return chunk.Tiles()
	}
}

func (s *Session) handleMove(ctx context.Context, msg inboundMessage) {
	pos := hub.Position{X: msg.X, Y: msg.Y}
	if err := s.registry.SetPlayer(ctx, s.id, pos); err != nil {
		log.Printf("session %s: move update failed: %v", s.id, err)
		return
	}
	s.registry.PublishPlayerUpdate(ctx, s.id, pos)
}

func (s *Session) handleHandshake(ctx context.Context) {
	players, err := s.registry.ListPlayers(ctx)
	if err != nil {
		s.sendError("Invalid request parameters")
		return
	}
	if err := s.sendJSON(outboundMessage{Type: "handshook", ID: s.id, Players: players}); err != nil {
		log.Printf("session %s: handshake reply failed: %v", s.id, err)
	}
}

func (s *Session) handleMining(ctx context.Context, msg inboundMessage) {
	tool := mining.Tool(msg.Tool)
	result, err := mining.Mine(ctx, s.pipeline, int(msg.X), int(msg.Y), tool)
	if err != nil {
		if err := s.sendJSON(outboundMessage{Type: "miningFailed", X: intPtr(int(msg.X)), Y: intPtr(int(msg.Y))}); err != nil {
			log.Printf("session %s: mining failure reply failed: %v", s.id, err)
		}
		return
	}
	if err := s.sendJSON(outboundMessage{
		Type: "miningSuccess", Resource: result.Resource, Amount: result.Amount, X: intPtr(result.X), Y: intPtr(result.Y),
	}); err != nil {
		log.Printf("session %s: mining success reply failed: %v", s.id, err)
	}
}

func (s *Session) sendError(message string) {
	if err := s.sendJSON(outboundMessage{Type: "error", Message: message}); err != nil {
		log.Printf("session %s: error reply failed: %v", s.id, err)
	}
}

func (s *Session) sendJSON(msg outboundMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.conn.WriteMessage(websocket.TextMessage, data)
}

// sendGzippedJSON marshals msg to JSON, gzips it, and sends it as a binary
// frame, matching spec.md's chunk-payload framing rule.
func (s *Session) sendGzippedJSON(msg outboundMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if _, err := gz.Write(data); err != nil {
		return fmt.Errorf("gzip: %w", err)
	}
	if err := gz.Close(); err != nil {
		return fmt.Errorf("gzip close: %w", err)
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.conn.WriteMessage(websocket.BinaryMessage, buf.Bytes())
}
