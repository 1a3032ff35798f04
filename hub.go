/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type Client struct {
	id   string
	conn *websocket.Conn
	send chan ServerMessage
}

type mutationRequest struct {
	client   *Client
	mutation Mutation
}

// Hub owns the session store. All client traffic funnels through run, so
// a store mutation and the broadcast it triggers are never interleaved
// with another client's mutation.
type Hub struct {
	cfg     *Config
	store   *Store
	tracer  trace.Tracer
	clients map[*Client]bool

	register   chan *Client
	unreg      chan *Client
	handshakes chan *Client
	mutations  chan mutationRequest
	done       chan struct{}

	mu sync.RWMutex

	createdAt  time.Time
	lastActive time.Time
}

func newHub(cfg *Config, store *Store) *Hub {
	now := time.Now()
	return &Hub{
		cfg:        cfg,
		store:      store,
		tracer:     newTracer(),
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unreg:      make(chan *Client),
		handshakes: make(chan *Client),
		mutations:  make(chan mutationRequest),
		done:       make(chan struct{}),
		createdAt:  now,
		lastActive: now,
	}
}

func (h *Hub) run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case c := <-h.register:
			h.mu.Lock()
			h.lastActive = time.Now()
			h.clients[c] = true

			// The snapshot goes out before this client can see any broadcast.
			for _, msg := range snapshotMessages(h.store.Snapshot()) {
				if !h.sendLocked(c, msg) {
					break
				}
			}
			count := len(h.clients)
			h.mu.Unlock()

			logf(h.cfg, "HUB: Client %s connected (%d connected)", c.id, count)

		case c := <-h.unreg:
			h.mu.Lock()
			h.lastActive = time.Now()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			count := len(h.clients)
			h.mu.Unlock()

			logf(h.cfg, "HUB: Client %s disconnected (%d connected)", c.id, count)

		case c := <-h.handshakes:
			h.mu.Lock()
			if h.clients[c] {
				for _, msg := range snapshotMessages(h.store.Snapshot()) {
					if !h.sendLocked(c, msg) {
						break
					}
				}
			}
			h.mu.Unlock()

		case req := <-h.mutations:
			h.apply(ctx, req)

		case <-ctx.Done():
			h.closeAll()
			return
		}
	}
}

// apply runs one mutation against the store and, if it changed anything,
// sends the point event and the refreshed collection to every client.
func (h *Hub) apply(ctx context.Context, req mutationRequest) {
	_, span := h.tracer.Start(ctx, "hub.apply", trace.WithAttributes(
		attribute.String("mutation.kind", req.mutation.kind()),
		attribute.String("client.id", req.client.id),
	))
	defer span.End()

	var out []ServerMessage

	switch m := req.mutation.(type) {
	case PositionFound:
		if h.store.AddPosition(m.Position) {
			out = []ServerMessage{
				{Type: kindEventPosition, Payload: m.Position},
				{Type: kindUpdatePositions, Payload: h.store.Positions()},
			}
		}
	case ItemSorted:
		if h.store.AddSortedItem(m.ID) {
			out = []ServerMessage{
				{Type: kindEventItem, Payload: m.ID},
				{Type: kindUpdateItems, Payload: h.store.Items()},
			}
		}
	case MarkerRevealed:
		if h.store.AddRevealedMarker(m.ID) {
			out = []ServerMessage{
				{Type: kindEventMarker, Payload: m.ID},
				{Type: kindUpdateMarkers, Payload: h.store.Markers()},
			}
		}
	case TreasureUnlock:
		if h.store.UnlockTreasure() {
			out = []ServerMessage{
				{Type: kindEventUnlocked},
			}
		}
	}

	span.SetAttributes(attribute.Bool("mutation.changed", len(out) > 0))

	h.mu.Lock()
	defer h.mu.Unlock()

	h.lastActive = time.Now()

	if len(out) == 0 {
		logf(h.cfg, "HUB: Ignored %s from %s (no change)", req.mutation.kind(), req.client.id)
		return
	}

	for _, msg := range out {
		h.broadcastLocked(msg)
	}

	logf(h.cfg, "HUB: Applied %s from %s, notified %d clients", req.mutation.kind(), req.client.id, len(h.clients))
}

// broadcastLocked delivers msg to every client, the originator included.
func (h *Hub) broadcastLocked(msg ServerMessage) {
	for c := range h.clients {
		h.sendLocked(c, msg)
	}
}

// sendLocked never blocks; a client that cannot keep up is dropped and
// its queue closed. It reports false once c is gone, after which nothing
// may be sent to c again.
func (h *Hub) sendLocked(c *Client, msg ServerMessage) bool {
	if !h.clients[c] {
		return false
	}

	select {
	case c.send <- msg:
		return true
	default:
		delete(h.clients, c)
		close(c.send)
		logf(h.cfg, "HUB: Dropped client %s (send queue full)", c.id)
		return false
	}
}

// closeAll disconnects every client (used on shutdown).
func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients {
		close(c.send)
		if c.conn != nil {
			_ = c.conn.Close()
		}
		delete(h.clients, c)
	}
}

// Register, Unregister, Handshake and Submit hand work to the run loop.
// They return false once the hub has stopped.
func (h *Hub) Register(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) Unregister(c *Client) {
	select {
	case h.unreg <- c:
	case <-h.done:
	}
}

func (h *Hub) Handshake(c *Client) {
	select {
	case h.handshakes <- c:
	case <-h.done:
	}
}

func (h *Hub) Submit(c *Client, m Mutation) {
	select {
	case h.mutations <- mutationRequest{client: c, mutation: m}:
	case <-h.done:
	}
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.clients)
}

func (h *Hub) LastActive() time.Time {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return h.lastActive
}
