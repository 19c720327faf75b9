// Package stream serves Looking Glass sessions over WebSocket. Every
// connection owns one table.Table; clients send JSON commands and receive
// state snapshots and alerts.
package stream

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"

	"github.com/hervehildenbrand/looking-glass/pkg/table"
)

const (
	pingInterval   = 30 * time.Second
	pongWait       = 60 * time.Second
	writeTimeout   = 10 * time.Second
	maxMessageSize = 64 * 1024
	outboundSize   = 64
)

// StatsFunc reports the counters of a component for /stats.
type StatsFunc func() map[string]interface{}

// Options configures a Server. Zero values are valid.
type Options struct {
	Metadata table.MetadataFetcher
	Recorder table.Recorder
	Stats    map[string]StatsFunc // extra sections merged into /stats
}

// Server accepts WebSocket sessions and exposes health and stats endpoints.
type Server struct {
	backend  table.DataFetcher
	opts     Options
	router   *chi.Mux
	upgrader websocket.Upgrader

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// Stats
	active        int64
	sessionsTotal uint64
	commands      uint64
	commandErrors uint64
	alerts        uint64
	dropped       uint64
}

// NewServer creates a server whose sessions fetch from backend.
func NewServer(backend table.DataFetcher, opts Options) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		backend: backend,
		opts:    opts,
		router:  chi.NewRouter(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		ctx:    ctx,
		cancel: cancel,
	}

	s.router.Use(middleware.Recoverer)
	s.router.Get("/ws", s.handleSession)
	s.router.Get("/healthz", s.handleHealth)
	s.router.Get("/stats", s.handleStats)

	return s
}

// Handler returns the HTTP handler of the server.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close ends every open session and waits for them to finish.
func (s *Server) Close() {
	s.cancel()
	s.wg.Wait()
}

// Stats returns server statistics.
func (s *Server) Stats() map[string]interface{} {
	return map[string]interface{}{
		"sessions_active":  atomic.LoadInt64(&s.active),
		"sessions_total":   atomic.LoadUint64(&s.sessionsTotal),
		"commands":         atomic.LoadUint64(&s.commands),
		"command_errors":   atomic.LoadUint64(&s.commandErrors),
		"alerts":           atomic.LoadUint64(&s.alerts),
		"messages_dropped": atomic.LoadUint64(&s.dropped),
	}
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	if s.ctx.Err() != nil {
		http.Error(w, "shutting down", http.StatusServiceUnavailable)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[stream] Upgrade failed: %v", err)
		return
	}

	s.wg.Add(1)
	defer s.wg.Done()

	atomic.AddUint64(&s.sessionsTotal, 1)
	atomic.AddInt64(&s.active, 1)
	defer atomic.AddInt64(&s.active, -1)

	sess := newSession(s, conn)
	sess.run()
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.Write([]byte("ok"))
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats := map[string]interface{}{
		"stream": s.Stats(),
	}
	for name, fn := range s.opts.Stats {
		stats[name] = fn()
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(stats); err != nil {
		log.Printf("[stream] Encode stats: %v", err)
	}
}
