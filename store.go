/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"encoding/binary"
	"encoding/hex"
	"slices"
	"strings"
	"sync"

	"github.com/cespare/xxhash/v2"
)

// Snapshot is a point-in-time copy of the shared puzzle progress.
type Snapshot struct {
	Positions []int    `json:"positions"`
	Items     []string `json:"items"`
	Markers   []string `json:"markers"`
	Unlocked  bool     `json:"unlocked"`
}

// Store holds the session's discovered facts. Every set only ever grows,
// so concurrent writers converge on the union of what they sent.
type Store struct {
	mu sync.RWMutex

	positions map[int]struct{}
	items     map[string]struct{}
	markers   map[string]struct{}
	unlocked  bool
}

func NewStore() *Store {
	return &Store{
		positions: make(map[int]struct{}),
		items:     make(map[string]struct{}),
		markers:   make(map[string]struct{}),
	}
}

// AddPosition records a found letter position. Negative positions are ignored.
func (s *Store) AddPosition(n int) bool {
	if n < 0 {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.positions[n]; ok {
		return false
	}
	s.positions[n] = struct{}{}

	return true
}

func (s *Store) AddSortedItem(id string) bool {
	return s.addID(s.items, id)
}

func (s *Store) AddRevealedMarker(id string) bool {
	return s.addID(s.markers, id)
}

func (s *Store) addID(set map[string]struct{}, id string) bool {
	id = strings.TrimSpace(id)
	if id == "" {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := set[id]; ok {
		return false
	}
	set[id] = struct{}{}

	return true
}

// UnlockTreasure reports true only for the call that performs the
// locked -> unlocked transition.
func (s *Store) UnlockTreasure() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.unlocked {
		return false
	}
	s.unlocked = true

	return true
}

func (s *Store) Positions() []int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.positionsLocked()
}

func (s *Store) Items() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return sortedKeys(s.items)
}

func (s *Store) Markers() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return sortedKeys(s.markers)
}

func (s *Store) Unlocked() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.unlocked
}

func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return Snapshot{
		Positions: s.positionsLocked(),
		Items:     sortedKeys(s.items),
		Markers:   sortedKeys(s.markers),
		Unlocked:  s.unlocked,
	}
}

// Revision returns a digest of the current state. Two stores holding the
// same facts always report the same revision.
func (s *Store) Revision() string {
	return s.Snapshot().Revision()
}

func (snap Snapshot) Revision() string {
	d := xxhash.New()

	var buf [8]byte
	for _, n := range snap.Positions {
		binary.BigEndian.PutUint64(buf[:], uint64(n))
		_, _ = d.Write(buf[:])
	}
	_, _ = d.WriteString("|")
	for _, id := range snap.Items {
		_, _ = d.WriteString(id)
		_, _ = d.WriteString("\x00")
	}
	_, _ = d.WriteString("|")
	for _, id := range snap.Markers {
		_, _ = d.WriteString(id)
		_, _ = d.WriteString("\x00")
	}
	if snap.Unlocked {
		_, _ = d.WriteString("|unlocked")
	}

	return hex.EncodeToString(d.Sum(nil))
}

func (s *Store) positionsLocked() []int {
	out := make([]int, 0, len(s.positions))
	for n := range s.positions {
		out = append(out, n)
	}
	slices.Sort(out)

	return out
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	slices.Sort(out)

	return out
}
