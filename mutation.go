/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

var (
	errMalformedMessage = errors.New("malformed message")
	errUnknownKind      = errors.New("unknown message type")
	errInvalidPayload   = errors.New("invalid payload")
)

// request is anything a client may ask of the hub.
type request interface {
	kind() string
}

// Mutation is one of PositionFound, ItemSorted, MarkerRevealed or TreasureUnlock.
type Mutation interface {
	request
	mutation()
}

type PositionFound struct {
	Position int
}

type ItemSorted struct {
	ID string
}

type MarkerRevealed struct {
	ID string
}

type TreasureUnlock struct{}

type HandshakeRequest struct{}

func (PositionFound) kind() string    { return kindMutatePosition }
func (ItemSorted) kind() string       { return kindMutateItem }
func (MarkerRevealed) kind() string   { return kindMutateMarker }
func (TreasureUnlock) kind() string   { return kindMutateUnlock }
func (HandshakeRequest) kind() string { return kindHandshake }

func (PositionFound) mutation()  {}
func (ItemSorted) mutation()     {}
func (MarkerRevealed) mutation() {}
func (TreasureUnlock) mutation() {}

// decodeMessage turns a raw websocket frame into a typed request.
// Anything outside the known variants is rejected here, so the hub
// and store only ever see well-formed values.
func decodeMessage(data []byte) (request, error) {
	var msg ClientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("%w: %v", errMalformedMessage, err)
	}

	kind := msg.Type
	if alias, ok := legacyKinds[kind]; ok {
		kind = alias
	}

	switch kind {
	case kindMutatePosition:
		n, err := decodePosition(msg.Payload)
		if err != nil {
			return nil, err
		}
		return PositionFound{Position: n}, nil
	case kindMutateItem:
		id, err := decodeIdentifier(msg.Payload)
		if err != nil {
			return nil, err
		}
		return ItemSorted{ID: id}, nil
	case kindMutateMarker:
		id, err := decodeIdentifier(msg.Payload)
		if err != nil {
			return nil, err
		}
		return MarkerRevealed{ID: id}, nil
	case kindMutateUnlock:
		return TreasureUnlock{}, nil
	case kindHandshake:
		return HandshakeRequest{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", errUnknownKind, msg.Type)
	}
}

// decodePosition accepts a JSON integer, an integral float, or a string
// holding an integer.
func decodePosition(raw json.RawMessage) (int, error) {
	v, err := decodeScalar(raw)
	if err != nil {
		return 0, err
	}

	switch v := v.(type) {
	case json.Number:
		if n, err := strconv.ParseInt(v.String(), 10, 0); err == nil {
			return int(n), nil
		}
		f, err := v.Float64()
		if err != nil || f != math.Trunc(f) || f > math.MaxInt32 || f < math.MinInt32 {
			return 0, fmt.Errorf("%w: position %s is not an integer", errInvalidPayload, v)
		}
		return int(f), nil
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0, fmt.Errorf("%w: position %q is not an integer", errInvalidPayload, v)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("%w: position must be a number, got %T", errInvalidPayload, v)
	}
}

// decodeIdentifier accepts a string or a number and returns it trimmed.
func decodeIdentifier(raw json.RawMessage) (string, error) {
	v, err := decodeScalar(raw)
	if err != nil {
		return "", err
	}

	var id string
	switch v := v.(type) {
	case string:
		id = v
	case json.Number:
		id = v.String()
	default:
		return "", fmt.Errorf("%w: identifier must be a string, got %T", errInvalidPayload, v)
	}

	id = strings.TrimSpace(id)
	if id == "" {
		return "", fmt.Errorf("%w: empty identifier", errInvalidPayload)
	}

	return id, nil
}

func decodeScalar(raw json.RawMessage) (any, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, fmt.Errorf("%w: missing payload", errInvalidPayload)
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("%w: %v", errInvalidPayload, err)
	}

	return v, nil
}
