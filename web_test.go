/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T, cfg *Config) (http.Handler, *Hub) {
	t.Helper()

	puzzle, err := loadPuzzle("")
	require.NoError(t, err)

	hub := newHub(cfg, NewStore())

	return newRouter(cfg, hub, puzzle, make(chan error, 64)), hub
}

func get(t *testing.T, h http.Handler, path string, header http.Header) *http.Response {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, path, nil)
	for k, v := range header {
		req.Header[k] = v
	}

	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	return w.Result()
}

func TestRoutes(t *testing.T) {
	router, _ := newTestRouter(t, testConfig())

	tests := []struct {
		path        string
		status      int
		contentType string
	}{
		{"/", http.StatusOK, "text/html; charset=utf-8"},
		{"/assets/app.js", http.StatusOK, "text/javascript; charset=utf-8"},
		{"/assets/app.css", http.StatusOK, "text/css; charset=utf-8"},
		{"/assets/missing.js", http.StatusNotFound, ""},
		{"/favicons/favicon.svg", http.StatusOK, "image/svg+xml"},
		{"/healthz", http.StatusOK, "text/plain; charset=utf-8"},
		{"/puzzle.json", http.StatusOK, "application/json; charset=utf-8"},
		{"/qr", http.StatusOK, "image/png"},
		{"/robots.txt", http.StatusOK, "text/plain; charset=utf-8"},
		{"/status", http.StatusOK, "application/json; charset=utf-8"},
		{"/version", http.StatusOK, "text/plain; charset=utf-8"},
		{"/pprof/heap", http.StatusNotFound, ""},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			resp := get(t, router, tt.path, nil)
			defer resp.Body.Close()

			assert.Equal(t, tt.status, resp.StatusCode)
			if tt.contentType != "" {
				assert.Equal(t, tt.contentType, resp.Header.Get("Content-Type"))
				assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))
			}
		})
	}
}

func TestRoutesWithPrefixAndProfile(t *testing.T) {
	cfg := testConfig()
	cfg.prefix = "/escape"
	cfg.profile = true

	router, _ := newTestRouter(t, cfg)

	for _, path := range []string{"/escape/", "/escape/status", "/escape/assets/app.js", "/escape/pprof/cmdline"} {
		resp := get(t, router, path, nil)
		resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
	}

	resp := get(t, router, "/status", nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestStatusReportsState(t *testing.T) {
	router, hub := newTestRouter(t, testConfig())

	hub.store.AddPosition(1)
	hub.store.AddPosition(0)
	hub.store.AddSortedItem("i1")
	hub.store.AddRevealedMarker("yellow")
	hub.store.AddRevealedMarker("not-a-bin")

	resp := get(t, router, "/status", nil)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var status StatusMessage
	require.NoError(t, json.Unmarshal(body, &status))

	assert.True(t, status.OK)
	assert.Equal(t, "escapehub", status.Service)
	assert.Equal(t, releaseVersion, status.Version)
	assert.Equal(t, []int{0, 1}, status.Indices)
	assert.Equal(t, []string{"i1"}, status.Items)
	assert.Equal(t, []string{"not-a-bin", "yellow"}, status.Markers)
	assert.False(t, status.Unlocked)
	assert.Equal(t, 0, status.Clients)
	assert.Equal(t, hub.store.Revision(), status.Revision)
	assert.Equal(t, `"`+status.Revision+`"`, resp.Header.Get("ETag"))

	assert.Equal(t, Progress{
		LettersFound:    2,
		LettersTotal:    8,
		MarkersRevealed: 1,
		MarkersTotal:    4,
		ItemsSorted:     1,
		ItemsTotal:      8,
	}, status.Progress)
}

func TestStatusHonoursETag(t *testing.T) {
	router, hub := newTestRouter(t, testConfig())

	first := get(t, router, "/status", nil)
	first.Body.Close()
	etag := first.Header.Get("ETag")
	require.NotEmpty(t, etag)

	cached := get(t, router, "/status", http.Header{"If-None-Match": {etag}})
	cached.Body.Close()
	assert.Equal(t, http.StatusNotModified, cached.StatusCode)

	hub.store.AddPosition(5)

	changed := get(t, router, "/status", http.Header{"If-None-Match": {etag}})
	changed.Body.Close()
	assert.Equal(t, http.StatusOK, changed.StatusCode)
	assert.NotEqual(t, etag, changed.Header.Get("ETag"))
}

func TestPuzzleEndpointServesDefinition(t *testing.T) {
	router, _ := newTestRouter(t, testConfig())

	resp := get(t, router, "/puzzle.json", nil)
	defer resp.Body.Close()

	var p Puzzle
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&p))

	assert.Equal(t, "ECOSCAPE", p.Word)
	assert.Len(t, p.Bins, 4)
	assert.Len(t, p.Items, 8)
}

func TestGameURL(t *testing.T) {
	cfg := testConfig()
	cfg.prefix = "/escape"

	req := httptest.NewRequest(http.MethodGet, "http://party.example/escape/qr", nil)
	assert.Equal(t, "http://party.example/escape/", gameURL(cfg, req))

	req.Header.Set("X-Forwarded-Proto", "HTTPS")
	assert.Equal(t, "https://party.example/escape/", gameURL(cfg, req))

	for _, proto := range []string{"javascript", "ftp", "https://evil.example/#", "http, https"} {
		req.Header.Set("X-Forwarded-Proto", proto)
		assert.Equal(t, "http://party.example/escape/", gameURL(cfg, req), proto)
	}
}

func TestHumanReadableSize(t *testing.T) {
	assert.Equal(t, "999 B", humanReadableSize(999))
	assert.Equal(t, "1.5 kB", humanReadableSize(1500))
	assert.Equal(t, "2.0 MB", humanReadableSize(2_000_000))
}
