package ws

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/cpudash/cpudash/internal/frontend"
	"github.com/cpudash/cpudash/internal/hub"
	"github.com/gorilla/websocket"
)

// Server routes dashboard asset requests and realtime upgrades.
type Server struct {
	hub      *hub.Hub
	assets   []frontend.Asset
	upgrader websocket.Upgrader

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	nextID atomic.Uint64

	mu       sync.Mutex
	sessions map[*session]struct{}
}

func NewServer(h *hub.Hub, assets []frontend.Asset) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		hub:      h,
		assets:   assets,
		ctx:      ctx,
		cancel:   cancel,
		sessions: make(map[*session]struct{}),
	}
	s.upgrader = websocket.Upgrader{
		CheckOrigin: s.checkOrigin,
	}
	return s
}

func (s *Server) SetupRoutes(mux *http.ServeMux) {
	for _, a := range s.assets {
		pattern := a.Path
		if pattern == "/" {
			pattern = "/{$}"
		}
		mux.Handle(pattern, a)
	}
	mux.HandleFunc("GET "+RealtimePath, s.handleRealtime)
}

// Handler returns a mux with every route installed.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.SetupRoutes(mux)
	return mux
}

func (s *Server) handleRealtime(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade error: %v", err)
		return
	}

	sub, err := s.hub.Subscribe()
	if err != nil {
		log.Printf("ws subscribe error: %v", err)
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "unavailable"))
		conn.Close()
		return
	}

	sess := newSession(s.nextID.Add(1), r.RemoteAddr, conn, sub)
	if !s.track(sess) {
		sess.close()
		return
	}
	defer s.untrack(sess)

	log.Printf("realtime client connected: %s (session %d)", sess.remote, sess.id)
	err = sess.run(s.ctx)
	if isNormalClose(err) {
		log.Printf("realtime client disconnected: %s (session %d, %d dropped)", sess.remote, sess.id, sub.Dropped())
	} else {
		log.Printf("realtime client disconnected: %s (session %d, %d dropped): %v", sess.remote, sess.id, sub.Dropped(), err)
	}
}

func (s *Server) track(sess *session) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ctx.Err() != nil {
		return false
	}
	s.sessions[sess] = struct{}{}
	s.wg.Add(1)
	return true
}

func (s *Server) untrack(sess *session) {
	s.mu.Lock()
	delete(s.sessions, sess)
	s.mu.Unlock()
	s.wg.Done()
}

// ActiveSessions returns the number of sessions currently streaming.
func (s *Server) ActiveSessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Shutdown ends every realtime session and waits for them to finish, or
// for ctx to expire. Hijacked connections are not covered by
// http.Server.Shutdown, so callers need both.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.cancel()
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}

	parsed, err := url.Parse(origin)
	if err != nil {
		return false
	}

	host := parsed.Host
	if host == "" {
		return false
	}

	if host == r.Host {
		return true
	}

	hostname := parsed.Hostname()
	return hostname == "localhost" || hostname == "127.0.0.1" || hostname == "::1"
}

// Listen binds the TCP listener for host:port. Binding is kept separate from
// serving so a bad address or a busy port fails before anything starts.
func Listen(host string, port int) (net.Listener, error) {
	addr := net.JoinHostPort(host, fmt.Sprintf("%d", port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", addr, err)
	}
	return ln, nil
}

// ListenURL returns the ws:// URL of the realtime endpoint on ln.
func ListenURL(ln net.Listener) string {
	addr := ln.Addr().String()
	if strings.HasPrefix(addr, "[::]") || strings.HasPrefix(addr, "0.0.0.0") {
		_, port, _ := net.SplitHostPort(addr)
		addr = net.JoinHostPort("127.0.0.1", port)
	}
	return "ws://" + addr + RealtimePath
}
