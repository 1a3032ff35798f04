/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"embed"
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"unicode/utf8"

	"gopkg.in/yaml.v3"
)

//go:embed puzzles/ecoscape.yaml
var puzzles embed.FS

const defaultPuzzle = "puzzles/ecoscape.yaml"

// Puzzle describes what the browser client renders. The hub itself stores
// facts without interpreting them; the definition is only used to report
// progress and to hand the layout to clients.
//
// A bin's digit is revealed as soon as one correct item of an accepted type
// is sorted into it, not once every such item has been sorted. Clients
// send marker-revealed on that first match.
type Puzzle struct {
	Word  string `yaml:"word" json:"word"`
	Bins  []Bin  `yaml:"bins" json:"bins"`
	Items []Item `yaml:"items" json:"items"`
}

type Bin struct {
	ID      string   `yaml:"id" json:"id"`
	Label   string   `yaml:"label" json:"label"`
	Color   string   `yaml:"color" json:"color"`
	Accepts []string `yaml:"accepts" json:"accepts"`
	Digit   string   `yaml:"digit" json:"digit"`
}

type Item struct {
	ID       string `yaml:"id" json:"id"`
	Type     string `yaml:"type" json:"type"`
	Emoji    string `yaml:"emoji" json:"emoji"`
	Label    string `yaml:"label" json:"label"`
	Position int    `yaml:"position" json:"position"`
}

// Progress summarizes a snapshot against the puzzle.
type Progress struct {
	LettersFound    int  `json:"letters_found"`
	LettersTotal    int  `json:"letters_total"`
	MarkersRevealed int  `json:"markers_revealed"`
	MarkersTotal    int  `json:"markers_total"`
	ItemsSorted     int  `json:"items_sorted"`
	ItemsTotal      int  `json:"items_total"`
	ReadyToUnlock   bool `json:"ready_to_unlock"`
	Unlocked        bool `json:"unlocked"`
}

// loadPuzzle reads the definition at path, or the embedded default when
// path is empty.
func loadPuzzle(path string) (*Puzzle, error) {
	var (
		data []byte
		err  error
	)

	if path == "" {
		data, err = puzzles.ReadFile(defaultPuzzle)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("read puzzle: %w", err)
	}

	return parsePuzzle(data)
}

func parsePuzzle(data []byte) (*Puzzle, error) {
	p := &Puzzle{}

	if err := yaml.Unmarshal(data, p); err != nil {
		return nil, fmt.Errorf("parse puzzle: %w", err)
	}

	if err := p.validate(); err != nil {
		return nil, fmt.Errorf("invalid puzzle: %w", err)
	}

	return p, nil
}

func (p *Puzzle) validate() error {
	if strings.TrimSpace(p.Word) == "" {
		return errors.New("word must not be empty")
	}

	letters := utf8.RuneCountInString(p.Word)

	if len(p.Bins) == 0 {
		return errors.New("at least one bin is required")
	}

	bins := make(map[string]bool, len(p.Bins))
	for _, b := range p.Bins {
		if strings.TrimSpace(b.ID) == "" {
			return errors.New("bin id must not be empty")
		}
		if bins[b.ID] {
			return fmt.Errorf("duplicate bin id %q", b.ID)
		}
		bins[b.ID] = true

		if len(b.Digit) != 1 || b.Digit[0] < '0' || b.Digit[0] > '9' {
			return fmt.Errorf("bin %q digit must be a single digit, got %q", b.ID, b.Digit)
		}
	}

	items := make(map[string]bool, len(p.Items))
	for _, it := range p.Items {
		if strings.TrimSpace(it.ID) == "" {
			return errors.New("item id must not be empty")
		}
		if items[it.ID] {
			return fmt.Errorf("duplicate item id %q", it.ID)
		}
		items[it.ID] = true

		if it.Position < 0 || it.Position >= letters {
			return fmt.Errorf("item %q position %d is outside the word (0-%d)", it.ID, it.Position, letters-1)
		}
		if p.BinFor(it.Type) == nil {
			return fmt.Errorf("item %q has type %q that no bin accepts", it.ID, it.Type)
		}
	}

	return nil
}

// BinFor returns the first bin accepting itemType, or nil.
func (p *Puzzle) BinFor(itemType string) *Bin {
	for i := range p.Bins {
		if slices.Contains(p.Bins[i].Accepts, itemType) {
			return &p.Bins[i]
		}
	}

	return nil
}

// Progress counts only facts the puzzle knows about; stray ids sent by
// clients are stored but not counted.
func (p *Puzzle) Progress(snap Snapshot) Progress {
	letters := utf8.RuneCountInString(p.Word)

	pr := Progress{
		LettersTotal: letters,
		MarkersTotal: len(p.Bins),
		ItemsTotal:   len(p.Items),
		Unlocked:     snap.Unlocked,
	}

	for _, n := range snap.Positions {
		if n < letters {
			pr.LettersFound++
		}
	}

	for _, b := range p.Bins {
		if slices.Contains(snap.Markers, b.ID) {
			pr.MarkersRevealed++
		}
	}

	for _, it := range p.Items {
		if slices.Contains(snap.Items, it.ID) {
			pr.ItemsSorted++
		}
	}

	pr.ReadyToUnlock = pr.LettersFound == pr.LettersTotal && pr.MarkersRevealed == pr.MarkersTotal

	return pr
}
