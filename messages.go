/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import "encoding/json"

// Client -> server
//
//	mutate:position-found   payload: integer
//	mutate:item-sorted      payload: string
//	mutate:marker-revealed  payload: string
//	mutate:treasure-unlock  no payload
//	handshake:request       no payload
//
// Server -> client
//
//	snapshot:positions       []integer, on connect and handshake
//	snapshot:items           []string
//	snapshot:markers         []string
//	snapshot:treasure        bool
//	event:position-found     integer, broadcast on change only
//	update:positions         []integer
//	event:item-sorted        string
//	update:items             []string
//	event:marker-revealed    string
//	update:markers           []string
//	event:treasure-unlocked  no payload, broadcast once
const (
	kindMutatePosition = "mutate:position-found"
	kindMutateItem     = "mutate:item-sorted"
	kindMutateMarker   = "mutate:marker-revealed"
	kindMutateUnlock   = "mutate:treasure-unlock"
	kindHandshake      = "handshake:request"

	kindSnapshotPositions = "snapshot:positions"
	kindSnapshotItems     = "snapshot:items"
	kindSnapshotMarkers   = "snapshot:markers"
	kindSnapshotTreasure  = "snapshot:treasure"

	kindEventPosition = "event:position-found"
	kindEventItem     = "event:item-sorted"
	kindEventMarker   = "event:marker-revealed"
	kindEventUnlocked = "event:treasure-unlocked"

	kindUpdatePositions = "update:positions"
	kindUpdateItems     = "update:items"
	kindUpdateMarkers   = "update:markers"
)

// Event names used by the first socket.io client, still accepted inbound.
var legacyKinds = map[string]string{
	"letter:found":    kindMutatePosition,
	"item:sorted":     kindMutateItem,
	"bin:revealed":    kindMutateMarker,
	"treasure:unlock": kindMutateUnlock,
	"letters:hello":   kindHandshake,
}

// Messages coming from clients
type ClientMessage struct {
	Type    string          `json:"type"`              // one of the mutate:* kinds or handshake:request
	Payload json.RawMessage `json:"payload,omitempty"` // raw, validated by decodeMessage
}

// Messages sent to clients
type ServerMessage struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

func snapshotMessages(snap Snapshot) []ServerMessage {
	return []ServerMessage{
		{Type: kindSnapshotPositions, Payload: snap.Positions},
		{Type: kindSnapshotItems, Payload: snap.Items},
		{Type: kindSnapshotMarkers, Payload: snap.Markers},
		{Type: kindSnapshotTreasure, Payload: snap.Unlocked},
	}
}
