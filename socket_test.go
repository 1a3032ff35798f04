/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"encoding/json"
	"errors"
	"net"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type wireMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func startServer(t *testing.T) (*Hub, string) {
	t.Helper()

	hub := startHub(t)

	puzzle, err := loadPuzzle("")
	require.NoError(t, err)

	errs := make(chan error, 64)
	srv := httptest.NewServer(newRouter(hub.cfg, hub, puzzle, errs))
	t.Cleanup(srv.Close)

	return hub, "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	return conn
}

func readWire(t *testing.T, conn *websocket.Conn) wireMessage {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))

	var msg wireMessage
	require.NoError(t, conn.ReadJSON(&msg))

	return msg
}

func readWireSnapshot(t *testing.T, conn *websocket.Conn) map[string]string {
	t.Helper()

	got := make(map[string]string, 4)
	for range 4 {
		msg := readWire(t, conn)
		require.True(t, strings.HasPrefix(msg.Type, "snapshot:"), "got %s before snapshot finished", msg.Type)
		got[msg.Type] = string(msg.Payload)
	}

	return got
}

func writeWire(t *testing.T, conn *websocket.Conn, frame string) {
	t.Helper()

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(frame)))
}

// expectNoFrame must be the last read on conn: a timed out read
// leaves the connection unusable.
func expectNoFrame(t *testing.T, conn *websocket.Conn) {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(300*time.Millisecond)))

	_, data, err := conn.ReadMessage()
	var netErr net.Error
	if !errors.As(err, &netErr) || !netErr.Timeout() {
		t.Fatalf("expected silence, got %q (err %v)", data, err)
	}
}

func TestSocketEndToEnd(t *testing.T) {
	hub, url := startServer(t)

	a := dial(t, url)
	snap := readWireSnapshot(t, a)
	assert.Equal(t, map[string]string{
		kindSnapshotPositions: "[]",
		kindSnapshotItems:     "[]",
		kindSnapshotMarkers:   "[]",
		kindSnapshotTreasure:  "false",
	}, snap)

	b := dial(t, url)
	readWireSnapshot(t, b)

	writeWire(t, a, `{"type":"mutate:position-found","payload":0}`)

	for _, conn := range []*websocket.Conn{a, b} {
		event := readWire(t, conn)
		assert.Equal(t, kindEventPosition, event.Type)
		assert.JSONEq(t, `0`, string(event.Payload))

		update := readWire(t, conn)
		assert.Equal(t, kindUpdatePositions, update.Type)
		assert.JSONEq(t, `[0]`, string(update.Payload))
	}

	// Duplicates, garbage and unknown kinds are all silent.
	writeWire(t, b, `{"type":"mutate:position-found","payload":0}`)
	writeWire(t, b, `{"type":"mutate:position-found","payload":"abc"}`)
	writeWire(t, b, `{"type":"mutate:item-sorted","payload":"   "}`)
	writeWire(t, b, `{"type":"mutate:everything"}`)
	writeWire(t, b, `not even json`)

	// A handshake round trip proves b's frames were all processed.
	writeWire(t, b, `{"type":"handshake:request"}`)
	snap = readWireSnapshot(t, b)
	assert.JSONEq(t, `[0]`, snap[kindSnapshotPositions])
	assert.JSONEq(t, `[]`, snap[kindSnapshotItems])

	assert.Equal(t, 2, hub.ClientCount())

	expectNoFrame(t, a)
}

func TestSocketUnlockAndLateJoin(t *testing.T) {
	_, url := startServer(t)

	a := dial(t, url)
	readWireSnapshot(t, a)

	writeWire(t, a, `{"type":"mutate:item-sorted","payload":"i1"}`)
	writeWire(t, a, `{"type":"mutate:marker-revealed","payload":"yellow"}`)
	writeWire(t, a, `{"type":"letter:found","payload":3}`)
	writeWire(t, a, `{"type":"mutate:treasure-unlock"}`)

	kinds := make([]string, 0, 7)
	for range 7 {
		kinds = append(kinds, readWire(t, a).Type)
	}
	assert.Equal(t, []string{
		kindEventItem, kindUpdateItems,
		kindEventMarker, kindUpdateMarkers,
		kindEventPosition, kindUpdatePositions,
		kindEventUnlocked,
	}, kinds)

	late := dial(t, url)
	snap := readWireSnapshot(t, late)
	assert.JSONEq(t, `[3]`, snap[kindSnapshotPositions])
	assert.JSONEq(t, `["i1"]`, snap[kindSnapshotItems])
	assert.JSONEq(t, `["yellow"]`, snap[kindSnapshotMarkers])
	assert.JSONEq(t, `true`, snap[kindSnapshotTreasure])

	writeWire(t, late, `{"type":"treasure:unlock"}`)
	expectNoFrame(t, a)
}

func TestSocketDisconnectUnregisters(t *testing.T) {
	hub, url := startServer(t)

	a := dial(t, url)
	readWireSnapshot(t, a)
	require.Equal(t, 1, hub.ClientCount())

	require.NoError(t, a.Close())

	assert.Eventually(t, func() bool {
		return hub.ClientCount() == 0
	}, 2*time.Second, 10*time.Millisecond)
}
