// Package client streams CPU snapshots from a running cpudash server.
// It decodes the wire format itself rather than importing server packages.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/gorilla/websocket"
)

const (
	reconnectBaseDelay = 1 * time.Second
	reconnectMaxDelay  = 30 * time.Second
)

// Handler is called with every snapshot received, in arrival order.
type Handler func(cpus []float64)

// WSClient reads the realtime CPU feed and reconnects when it drops.
type WSClient struct {
	url    string
	dialer *websocket.Dialer

	baseDelay time.Duration
	maxDelay  time.Duration

	// OnConnect and OnDisconnect are optional status callbacks.
	OnConnect    func()
	OnDisconnect func(err error)
}

// NewWSClient creates a client for the given ws:// URL, for example
// ws://127.0.0.1:8799/realtime/cpus.
func NewWSClient(url string) *WSClient {
	return &WSClient{
		url:       url,
		dialer:    websocket.DefaultDialer,
		baseDelay: reconnectBaseDelay,
		maxDelay:  reconnectMaxDelay,
	}
}

// Listen connects and hands each snapshot to fn until ctx is cancelled.
// Dropped or refused connections are retried with exponential backoff.
func (c *WSClient) Listen(ctx context.Context, fn Handler) error {
	delay := c.baseDelay
	for {
		conn, _, err := c.dialer.DialContext(ctx, c.url, nil)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Printf("ws dial error: %v (retry in %v)", err, delay)
			if !sleep(ctx, delay) {
				return ctx.Err()
			}
			delay = min(delay*2, c.maxDelay)
			continue
		}

		delay = c.baseDelay
		if c.OnConnect != nil {
			c.OnConnect()
		}
		err = c.ReadLoop(ctx, conn, fn)
		if c.OnDisconnect != nil {
			c.OnDisconnect(err)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Printf("ws disconnected: %v (retry in %v)", err, delay)
		if !sleep(ctx, delay) {
			return ctx.Err()
		}
	}
}

// ReadLoop reads frames from conn until it fails or ctx is cancelled, then
// closes conn. Frames that are not a JSON number array are skipped.
func (c *WSClient) ReadLoop(ctx context.Context, conn *websocket.Conn, fn Handler) error {
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()
	defer conn.Close()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}

		cpus, err := decode(data)
		if err != nil {
			log.Printf("ws decode error: %v", err)
			continue
		}
		fn(cpus)
	}
}

func decode(data []byte) ([]float64, error) {
	var cpus []float64
	if err := json.Unmarshal(data, &cpus); err != nil {
		return nil, fmt.Errorf("decoding snapshot %q: %w", data, err)
	}
	return cpus, nil
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
