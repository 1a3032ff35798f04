/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"
)

// StatusMessage is the read-only diagnostic payload served at /status.
type StatusMessage struct {
	OK         bool      `json:"ok"`
	Service    string    `json:"service"`
	Version    string    `json:"version"`
	Indices    []int     `json:"indices"`
	Items      []string  `json:"items"`
	Markers    []string  `json:"markers"`
	Unlocked   bool      `json:"unlocked"`
	Clients    int       `json:"clients"`
	Revision   string    `json:"revision"`
	Progress   Progress  `json:"progress"`
	StartedAt  time.Time `json:"started_at"`
	LastActive time.Time `json:"last_active"`
}

func serveStatus(cfg *Config, hub *Hub, puzzle *Puzzle, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		startTime := time.Now()

		snap := hub.store.Snapshot()
		revision := snap.Revision()
		etag := `"` + revision + `"`

		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("ETag", etag)
		securityHeaders(cfg, w)

		if r.Header.Get("If-None-Match") == etag {
			w.WriteHeader(http.StatusNotModified)
			return
		}

		data, err := json.Marshal(StatusMessage{
			OK:         true,
			Service:    "escapehub",
			Version:    releaseVersion,
			Indices:    snap.Positions,
			Items:      snap.Items,
			Markers:    snap.Markers,
			Unlocked:   snap.Unlocked,
			Clients:    hub.ClientCount(),
			Revision:   revision,
			Progress:   puzzle.Progress(snap),
			StartedAt:  hub.createdAt,
			LastActive: hub.LastActive(),
		})
		if err != nil {
			errs <- err
			http.Error(w, "status unavailable", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusOK)

		written, err := w.Write(data)
		if err != nil {
			errs <- err

			return
		}

		logf(cfg, "SERVE: Status (%s) to %s in %s",
			humanReadableSize(int64(written)),
			realIP(r),
			time.Since(startTime).Round(time.Microsecond),
		)
	}
}

func servePuzzle(cfg *Config, puzzle *Puzzle, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		data, err := json.Marshal(puzzle)
		if err != nil {
			errs <- err
			http.Error(w, "puzzle unavailable", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.Header().Set("Cache-Control", "public, max-age=3600")
		securityHeaders(cfg, w)

		_, err = w.Write(data)
		if err != nil {
			errs <- err

			return
		}
	}
}
