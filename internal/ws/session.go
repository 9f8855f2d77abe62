package ws

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cpudash/cpudash/internal/hub"
	"github.com/gorilla/websocket"
)

const closeGracePeriod = time.Second

var errSubscriptionClosed = errors.New("subscription closed")

// SessionState is the lifecycle position of one realtime connection.
type SessionState int32

const (
	StateConnecting SessionState = iota
	StateStreaming
	StateClosed
)

func (s SessionState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateStreaming:
		return "streaming"
	case StateClosed:
		return "closed"
	}
	return fmt.Sprintf("SessionState(%d)", int32(s))
}

// session forwards every snapshot from its subscription to one client.
type session struct {
	id     uint64
	remote string
	conn   *websocket.Conn
	sub    *hub.Subscription

	state     atomic.Int32
	closeOnce sync.Once
}

func newSession(id uint64, remote string, conn *websocket.Conn, sub *hub.Subscription) *session {
	return &session{
		id:     id,
		remote: remote,
		conn:   conn,
		sub:    sub,
	}
}

func (s *session) State() SessionState {
	return SessionState(s.state.Load())
}

// run streams until the client goes away, a write fails, the subscription
// is released or ctx is cancelled. It always leaves the session Closed.
func (s *session) run(ctx context.Context) error {
	defer s.close()
	s.state.Store(int32(StateStreaming))

	readErr := make(chan error, 1)
	go s.readPump(readErr)

	for {
		select {
		case <-ctx.Done():
			s.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
				time.Now().Add(closeGracePeriod))
			return ctx.Err()
		case err := <-readErr:
			return err
		case <-s.sub.Done():
			return errSubscriptionClosed
		case snap := <-s.sub.C():
			data, err := EncodeSnapshot(snap)
			if err != nil {
				return fmt.Errorf("encode snapshot: %w", err)
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return fmt.Errorf("write: %w", err)
			}
		}
	}
}

// readPump discards anything the client sends. Its only job is noticing the
// connection close so run can stop.
func (s *session) readPump(errCh chan<- error) {
	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			errCh <- err
			return
		}
	}
}

func (s *session) close() {
	s.closeOnce.Do(func() {
		s.sub.Close()
		s.conn.Close()
		s.state.Store(int32(StateClosed))
	})
}

// isNormalClose reports whether err is an ordinary end of a session rather
// than something worth logging loudly.
func isNormalClose(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return true
	}
	return websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived)
}
