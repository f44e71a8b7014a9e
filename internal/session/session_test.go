package session

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/briannalee/chunkgenerator-sub000/internal/hub"
	"github.com/briannalee/chunkgenerator-sub000/internal/workerpool"
	"github.com/briannalee/chunkgenerator-sub000/internal/world"
)

type fakePipeline struct {
	mu     sync.Mutex
	chunks map[world.ChunkCoord]*world.Chunk
	modes  []workerpool.Mode
}

func newFakePipeline() *fakePipeline {
	return &fakePipeline{chunks: make(map[world.ChunkCoord]*world.Chunk)}
}

func (f *fakePipeline) GetChunk(ctx context.Context, key world.ChunkCoord, mode workerpool.Mode) (*world.Chunk, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.modes = append(f.modes, mode)
	c, ok := f.chunks[key]
	if !ok {
		c = testChunk(key.X, key.Y)
		f.chunks[key] = c
	}
	return c, nil
}

func (f *fakePipeline) WriteChunk(ctx context.Context, chunk *world.Chunk) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.chunks[chunk.Key] = chunk
	return nil
}

func testChunk(cx, cy int) *world.Chunk {
	tiles := make([]world.Tile, world.ChunkSize*world.ChunkSize)
	for i := range tiles {
		tiles[i] = world.Tile{
			X: cx*world.ChunkSize + i%world.ChunkSize,
			Y: cy*world.ChunkSize + i/world.ChunkSize,
			Biome: world.BiomeGrassland,
		}
	}
	tiles[0].Resource = &world.ResourceNode{Type: world.ResourceIron, Amount: 100, Remaining: 100, Hardness: 0.1, X: cx * world.ChunkSize, Y: cy * world.ChunkSize}
	return world.NewChunk(world.ChunkCoord{X: cx, Y: cy}, tiles)
}

type fakeRegistry struct {
	mu      sync.Mutex
	players map[string]hub.Position
}

func newFakeRegistry() *fakeRegistry {
	return &fakeRegistry{players: make(map[string]hub.Position)}
}

func (f *fakeRegistry) SetPlayer(ctx context.Context, id string, pos hub.Position) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.players[id] = pos
	return nil
}

func (f *fakeRegistry) DeletePlayer(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.players, id)
	return nil
}

func (f *fakeRegistry) ListPlayers(ctx context.Context) (map[string]hub.Position, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]hub.Position, len(f.players))
	for k, v := range f.players {
		out[k] = v
	}
	return out, nil
}

func (f *fakeRegistry) PublishPlayerUpdate(ctx context.Context, id string, pos hub.Position) {}

func newTestServer(t *testing.T) (*Manager, *httptest.Server, *websocket.Conn) {
	t.Helper()
	mgr := NewManager(newFakePipeline(), newFakeRegistry())
	srv := httptest.NewServer(http.HandlerFunc(mgr.HandleWebSocket))
	t.Cleanup(srv.Close)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return mgr, srv, conn
}

func readJSON(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read message: %v", err)
	}
	var msg map[string]any
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("unmarshal %q: %v", data, err)
	}
	return msg
}

func readGzippedJSON(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read message: %v", err)
	}
	gz, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("gzip reader: %v", err)
	}
	raw, err := io.ReadAll(gz)
	if err != nil {
		t.Fatalf("gzip read: %v", err)
	}
	var msg map[string]any
	if err := json.Unmarshal(raw, &msg); err != nil {
		t.Fatalf("unmarshal %q: %v", raw, err)
	}
	return msg
}

func TestConnectSendsConnectedMessage(t *testing.T) {
	_, _, conn := newTestServer(t)
	msg := readJSON(t, conn)
	if msg["type"] != "connected" {
		t.Fatalf("got type %v, want connected", msg["type"])
	}
	if msg["id"] == "" || msg["id"] == nil {
		t.Fatal("expected a non-empty player id")
	}
}

func TestRequestChunkReturnsGzippedChunkData(t *testing.T) {
	_, _, conn := newTestServer(t)
	readJSON(t, conn) // connected

	req := map[string]any{"type": "requestChunk", "x": 5, "y": 5, "mode": "chunk"}
	data, _ := json.Marshal(req)
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		t.Fatalf("write: %v", err)
	}

	msg := readGzippedJSON(t, conn)
	if msg["type"] != "chunkData" {
		t.Fatalf("got type %v, want chunkData", msg["type"])
	}
	chunk, ok := msg["chunk"].(map[string]any)
	if !ok {
		t.Fatalf("expected chunk payload, got %v", msg["chunk"])
	}
	if chunk["mode"] != "chunk" {
		t.Fatalf("got mode %v, want chunk", chunk["mode"])
	}
}

func TestRequestChunkRowModeUsesRowMode(t *testing.T) {
	mgr, _, conn := newTestServer(t)
	readJSON(t, conn) // connected

	req := map[string]any{"type": "requestChunk", "x": 2, "y": 3, "mode": "row"}
	data, _ := json.Marshal(req)
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		t.Fatalf("write: %v", err)
	}

	msg := readGzippedJSON(t, conn)
	chunk, ok := msg["chunk"].(map[string]any)
	if !ok || chunk["mode"] != "row" {
		t.Fatalf("expected row-mode chunk payload, got %v", msg["chunk"])
	}

	pipeline := mgr.pipeline.(*fakePipeline)
	pipeline.mu.Lock()
	defer pipeline.mu.Unlock()
	if len(pipeline.modes) == 0 || pipeline.modes[len(pipeline.modes)-1] != workerpool.ModeRow {
		t.Fatalf("expected pipeline to be dispatched with ModeRow, got %v", pipeline.modes)
	}
}

func TestRequestChunkRejectsInvalidMode(t *testing.T) {
	_, _, conn := newTestServer(t)
	readJSON(t, conn)

	req := map[string]any{"type": "requestChunk", "x": 1, "y": 1, "mode": "diagonal"}
	data, _ := json.Marshal(req)
	conn.WriteMessage(websocket.TextMessage, data)

	msg := readJSON(t, conn)
	if msg["type"] != "error" {
		t.Fatalf("got type %v, want error", msg["type"])
	}
}

func TestHandshakeRepliesHandshook(t *testing.T) {
	_, _, conn := newTestServer(t)
	readJSON(t, conn)

	req := map[string]any{"type": "handshake"}
	data, _ := json.Marshal(req)
	conn.WriteMessage(websocket.TextMessage, data)

	msg := readJSON(t, conn)
	if msg["type"] != "handshook" {
		t.Fatalf("got type %v, want handshook", msg["type"])
	}
}

func TestMiningSuccessReplies(t *testing.T) {
	_, _, conn := newTestServer(t)
	readJSON(t, conn)

	req := map[string]any{"type": "mining", "x": 0, "y": 0, "tool": "pickaxe"}
	data, _ := json.Marshal(req)
	conn.WriteMessage(websocket.TextMessage, data)

	msg := readJSON(t, conn)
	if msg["type"] != "miningSuccess" {
		t.Fatalf("got type %v, want miningSuccess", msg["type"])
	}
}

func TestMiningFailureOnEmptyTileReplies(t *testing.T) {
	_, _, conn := newTestServer(t)
	readJSON(t, conn)

	req := map[string]any{"type": "mining", "x": 7, "y": 7, "tool": "hand"}
	data, _ := json.Marshal(req)
	conn.WriteMessage(websocket.TextMessage, data)

	msg := readJSON(t, conn)
	if msg["type"] != "miningFailed" {
		t.Fatalf("got type %v, want miningFailed", msg["type"])
	}
}

func TestUnknownMessageTypeRepliesError(t *testing.T) {
	_, _, conn := newTestServer(t)
	readJSON(t, conn)

	req := map[string]any{"type": "teleport"}
	data, _ := json.Marshal(req)
	conn.WriteMessage(websocket.TextMessage, data)

	msg := readJSON(t, conn)
	if msg["type"] != "error" {
		t.Fatalf("got type %v, want error", msg["type"])
	}
}

func TestBroadcastPlayerUpdateReachesConnectedSession(t *testing.T) {
	mgr, _, conn := newTestServer(t)
	readJSON(t, conn) // connected

	mgr.BroadcastPlayerUpdate(context.Background())

	msg := readJSON(t, conn)
	if msg["type"] != "playerUpdate" {
		t.Fatalf("got type %v, want playerUpdate", msg["type"])
	}
}

func TestCloseRemovesSessionFromManager(t *testing.T) {
	mgr, _, conn := newTestServer(t)
	readJSON(t, conn)
	conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		mgr.mu.RLock()
		n := len(mgr.sessions)
		mgr.mu.RUnlock()
		if n == 0 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("expected session to be removed after close")
}
