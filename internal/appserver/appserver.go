// Package appserver wires the chunk generation service together: config,
// cache, store, hub, worker pool, orchestrator and the websocket session
// layer, then serves HTTP until its context is cancelled. The shape follows
// the teacher's own internal/server.Server: a New that builds every
// collaborator and a Run that blocks until shutdown.
package appserver

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/briannalee/chunkgenerator-sub000/internal/cache"
	"github.com/briannalee/chunkgenerator-sub000/internal/config"
	"github.com/briannalee/chunkgenerator-sub000/internal/hub"
	"github.com/briannalee/chunkgenerator-sub000/internal/orchestrator"
	"github.com/briannalee/chunkgenerator-sub000/internal/session"
	"github.com/briannalee/chunkgenerator-sub000/internal/store"
	"github.com/briannalee/chunkgenerator-sub000/internal/workerpool"
	"github.com/briannalee/chunkgenerator-sub000/internal/world"
)

// Server owns every long-lived collaborator and the HTTP listener.
type Server struct {
	cfg     *config.Config
	cache   *cache.Cache
	store   *store.Store
	hub     *hub.Hub
	pool    *workerpool.Pool
	pipe    *orchestrator.Orchestrator
	manager *session.Manager
	http    *http.Server
}

// New builds every collaborator from cfg. Apart from the worker pool's own
// goroutines it starts nothing in the background and does not listen on a
// socket; call Run for the sweeper, the bus relays and the listener.
func New(ctx context.Context, cfg *config.Config) (*Server, error) {
	c, err := cache.New(cfg.RedisURL, cfg.RedisDB, int64(cfg.CacheTTL.Seconds()))
	if err != nil {
		return nil, fmt.Errorf("appserver: connect cache: %w", err)
	}

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("appserver: parse redis url for hub: %w", err)
	}
	if cfg.RedisDB != 0 {
		redisOpts.DB = cfg.RedisDB
	}
	h := hub.New(redis.NewClient(redisOpts))

	st, err := store.Open(ctx, cfg.DatabaseURL, cfg.StoreBootRetry)
	if err != nil {
		return nil, fmt.Errorf("appserver: open store: %w", err)
	}

	if cfg.DebugMode {
		log.Printf("appserver: debug mode, truncating store and purging cache/players")
		if err := st.Truncate(ctx); err != nil {
			log.Printf("appserver: truncate store failed: %v", err)
		}
		if err := c.PurgeAll(ctx); err != nil {
			log.Printf("appserver: purge cache failed: %v", err)
		}
		if err := h.PurgePlayers(ctx); err != nil {
			log.Printf("appserver: purge players failed: %v", err)
		}
	}

	pool := workerpool.New(cfg.WorkerPool, cfg.WorldSeed, cfg.WorkerLRUSize)
	pipe := orchestrator.New(c, st, pool, h)
	manager := session.NewManager(pipe, h)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", manager.HandleWebSocket)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	return &Server{
		cfg:     cfg,
		cache:   c,
		store:   st,
		hub:     h,
		pool:    pool,
		pipe:    pipe,
		manager: manager,
		http:    &http.Server{Addr: ":" + cfg.Port, Handler: mux},
	}, nil
}

// Run starts the sweeper, the bus listeners and the HTTP listener, blocking
// until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	go s.pipe.RunSweeper(ctx)
	go s.relayPlayerUpdates(ctx)
	go s.relayChunkInvalidations(ctx)

	errCh := make(chan error, 1)
	go func() {
		log.Printf("appserver: listening on %s", s.http.Addr)
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		log.Printf("appserver: http shutdown error: %v", err)
	}
	s.store.Close()
	if err := s.cache.Close(); err != nil {
		log.Printf("appserver: cache close error: %v", err)
	}
	return nil
}

func (s *Server) relayPlayerUpdates(ctx context.Context) {
	for range s.hub.SubscribePlayerUpdates(ctx) {
		s.manager.BroadcastPlayerUpdate(ctx)
	}
}

func (s *Server) relayChunkInvalidations(ctx context.Context) {
	for inv := range s.hub.SubscribeChunkInvalidate(ctx) {
		key := world.ChunkCoord{X: inv.CX, Y: inv.CY}
		s.pool.PurgeLRUs(key)
		s.manager.BroadcastChunkInvalidate(ctx, key)
	}
}
