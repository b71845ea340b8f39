/*
Copyright (C) 2026  The kvs Authors

	This program is free software: you can redistribute it and/or modify
	it under the terms of the GNU General Public License as published by
	the Free Software Foundation, either version 3 of the License, or
	(at your option) any later version.

	This program is distributed in the hope that it will be useful,
	but WITHOUT ANY WARRANTY; without even the implied warranty of
	MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
	GNU General Public License for more details.

	You should have received a copy of the GNU General Public License
	along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

// Package monitor implements the optional, read-only operational HTTP
// surface of §4.12: a JSON stats snapshot and a websocket stream that pushes
// one snapshot per compaction, in the same upgrader-and-write-loop style
// this codebase's own dashboard/websocket endpoint uses. It never touches
// the key space and is not part of the wire protocol in §6.
package monitor

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	units "github.com/docker/go-units"
	"github.com/gorilla/websocket"

	"github.com/kvsd/kvs/kv"
)

// StatProvider is anything that can report current engine counters; kv.Engine
// satisfies it.
type StatProvider interface {
	Stat() kv.EngineStats
}

// statsView is the JSON shape served by /stats, with byte counts rendered
// both as raw numbers and as a human-readable string.
type statsView struct {
	CurrentGeneration uint64 `json:"current_generation"`
	UncompactedBytes  uint64 `json:"uncompacted_bytes"`
	UncompactedHuman  string `json:"uncompacted_human"`
	LiveKeys          int    `json:"live_keys"`
	CompactionCount   uint64 `json:"compaction_count"`
}

func toView(s kv.EngineStats) statsView {
	return statsView{
		CurrentGeneration: s.CurrentGeneration,
		UncompactedBytes:  s.UncompactedBytes,
		UncompactedHuman:  units.BytesSize(float64(s.UncompactedBytes)),
		LiveKeys:          s.LiveKeys,
		CompactionCount:   s.CompactionCount,
	}
}

// Monitor serves the stats endpoints and fans out a snapshot to every
// connected websocket subscriber whenever Broadcast is called (once per
// completed compaction).
type Monitor struct {
	provider StatProvider
	logf     func(string, ...any)
	upgrader websocket.Upgrader

	mu   sync.Mutex
	subs map[*websocket.Conn]struct{}
}

// New returns a Monitor reporting provider's stats.
func New(provider StatProvider, logf func(string, ...any)) *Monitor {
	if logf == nil {
		logf = func(string, ...any) {}
	}
	m := &Monitor{
		provider: provider,
		logf:     logf,
		subs:     make(map[*websocket.Conn]struct{}),
	}
	m.upgrader = websocket.Upgrader{ReadBufferSize: 1024, WriteBufferSize: 1024}
	m.upgrader.CheckOrigin = func(r *http.Request) bool { return true }
	return m
}

// Handler returns the http.Handler exposing /stats and /stats/stream.
func (m *Monitor) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/stats", m.handleStats)
	mux.HandleFunc("/stats/stream", m.handleStream)
	return mux
}

func (m *Monitor) handleStats(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(toView(m.provider.Stat())); err != nil {
		m.logf("monitor: encoding /stats: %v", err)
	}
}

func (m *Monitor) handleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := m.upgrader.Upgrade(w, r, nil)
	if err != nil {
		m.logf("monitor: websocket upgrade: %v", err)
		return
	}

	m.mu.Lock()
	m.subs[conn] = struct{}{}
	m.mu.Unlock()

	if err := conn.WriteJSON(toView(m.provider.Stat())); err != nil {
		m.dropSub(conn)
		return
	}

	// Drain (and discard) client messages purely to notice the connection
	// closing; this endpoint is push-only.
	go func() {
		defer func() {
			if r := recover(); r != nil {
				m.logf("monitor: websocket recv: %v", r)
			}
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				m.dropSub(conn)
				return
			}
		}
	}()
}

func (m *Monitor) dropSub(conn *websocket.Conn) {
	m.mu.Lock()
	delete(m.subs, conn)
	m.mu.Unlock()
	conn.Close()
}

// Broadcast pushes the current stats snapshot to every connected
// /stats/stream subscriber. Call it once per completed compaction.
func (m *Monitor) Broadcast() {
	view := toView(m.provider.Stat())
	m.mu.Lock()
	defer m.mu.Unlock()
	for conn := range m.subs {
		if err := conn.WriteJSON(view); err != nil {
			m.logf("monitor: broadcast: %v", err)
			conn.Close()
			delete(m.subs, conn)
		}
	}
}

// RecordCompaction satisfies kv.AuditSink so a Monitor can be wired
// directly into the engine's audit hook (or combined with a real audit
// sink via kv.MultiAuditSink) to push a fresh snapshot after every
// compaction.
func (m *Monitor) RecordCompaction(_ kv.CompactionEvent) error {
	m.Broadcast()
	return nil
}

// ListenAndServe starts the HTTP listener on addr, blocking until it fails.
func (m *Monitor) ListenAndServe(addr string) error {
	srv := &http.Server{Addr: addr, Handler: m.Handler()}
	if err := srv.ListenAndServe(); err != nil {
		return fmt.Errorf("monitor: %w", err)
	}
	return nil
}
