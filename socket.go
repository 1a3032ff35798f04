/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Maximum message size allowed from peer.
	maxMessageSize = 4096
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

func newClient(cfg *Config, conn *websocket.Conn) *Client {
	return &Client{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan ServerMessage, cfg.sendBuffer),
	}
}

func serveWS(cfg *Config, hub *Hub) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logf(cfg, "SOCKET: Upgrade for %s failed: %v", realIP(r), err)
			return
		}

		client := newClient(cfg, conn)

		logf(cfg, "SOCKET: Client %s connected from %s", client.id, realIP(r))

		if !hub.Register(client) {
			_ = conn.Close()
			return
		}

		go client.writePump(cfg)
		client.readPump(cfg, hub)
	}
}

func (c *Client) readPump(cfg *Config, h *Hub) {
	defer func() {
		h.Unregister(c)
		_ = c.conn.Close()
	}()

	pongWait := cfg.pingInterval * 10 / 9

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logf(cfg, "SOCKET: Read from %s failed: %v", c.id, err)
			}
			return
		}

		req, err := decodeMessage(data)
		if err != nil {
			logf(cfg, "SOCKET: Rejected message from %s: %v", c.id, err)
			continue
		}

		switch req := req.(type) {
		case HandshakeRequest:
			h.Handshake(c)
		case Mutation:
			h.Submit(c, req)
		}
	}
}

func (c *Client) writePump(cfg *Config) {
	ticker := time.NewTicker(cfg.pingInterval)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteJSON(msg); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
