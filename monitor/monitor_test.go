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

package monitor

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/kvsd/kvs/kv"
)

type fakeProvider struct {
	stats kv.EngineStats
}

func (p *fakeProvider) Stat() kv.EngineStats {
	return p.stats
}

func TestHandleStatsServesCurrentSnapshot(t *testing.T) {
	provider := &fakeProvider{stats: kv.EngineStats{CurrentGeneration: 3, UncompactedBytes: 2048, LiveKeys: 7}}
	m := New(provider, nil)

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/stats")
	if err != nil {
		t.Fatalf("GET /stats: %v", err)
	}
	defer resp.Body.Close()

	var view statsView
	if err := json.NewDecoder(resp.Body).Decode(&view); err != nil {
		t.Fatalf("decoding /stats response: %v", err)
	}
	if view.CurrentGeneration != 3 || view.UncompactedBytes != 2048 || view.LiveKeys != 7 {
		t.Fatalf("unexpected stats view: %+v", view)
	}
	if !strings.HasSuffix(view.UncompactedHuman, "B") && !strings.HasSuffix(view.UncompactedHuman, "iB") {
		t.Fatalf("expected a human-readable byte size, got %q", view.UncompactedHuman)
	}
}

func TestStreamPushesInitialSnapshotThenBroadcasts(t *testing.T) {
	provider := &fakeProvider{stats: kv.EngineStats{CurrentGeneration: 1, UncompactedBytes: 0, LiveKeys: 0}}
	m := New(provider, nil)

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/stats/stream"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dialing /stats/stream: %v", err)
	}
	defer conn.Close()

	var first statsView
	if err := conn.ReadJSON(&first); err != nil {
		t.Fatalf("reading initial snapshot: %v", err)
	}
	if first.LiveKeys != 0 {
		t.Fatalf("expected initial live keys 0, got %d", first.LiveKeys)
	}

	provider.stats = kv.EngineStats{CurrentGeneration: 2, UncompactedBytes: 512, LiveKeys: 5}

	// handleStream registers the subscriber before writing the initial
	// snapshot read above, so Broadcast reaches this connection; the loop
	// only bounds how long the test waits for the pushed snapshot.
	deadline := time.Now().Add(2 * time.Second)
	for {
		m.Broadcast()
		conn.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
		var next statsView
		if err := conn.ReadJSON(&next); err == nil {
			if next.LiveKeys != 5 {
				t.Fatalf("expected broadcast live keys 5, got %d", next.LiveKeys)
			}
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for broadcast snapshot")
		}
	}
}

func TestRecordCompactionBroadcasts(t *testing.T) {
	provider := &fakeProvider{stats: kv.EngineStats{LiveKeys: 9}}
	m := New(provider, nil)

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/stats/stream"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dialing /stats/stream: %v", err)
	}
	defer conn.Close()

	var initial statsView
	if err := conn.ReadJSON(&initial); err != nil {
		t.Fatalf("reading initial snapshot: %v", err)
	}

	if err := m.RecordCompaction(kv.CompactionEvent{Generation: 4, BytesReclaimed: 128, LiveKeys: 9}); err != nil {
		t.Fatalf("RecordCompaction: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var pushed statsView
	if err := conn.ReadJSON(&pushed); err != nil {
		t.Fatalf("reading compaction-triggered snapshot: %v", err)
	}
	if pushed.LiveKeys != 9 {
		t.Fatalf("expected live keys 9, got %d", pushed.LiveKeys)
	}
}

func TestDropSubRemovesClosedConnection(t *testing.T) {
	provider := &fakeProvider{stats: kv.EngineStats{}}
	m := New(provider, nil)

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/stats/stream"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dialing /stats/stream: %v", err)
	}

	var initial statsView
	if err := conn.ReadJSON(&initial); err != nil {
		t.Fatalf("reading initial snapshot: %v", err)
	}
	conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for {
		m.mu.Lock()
		subs := len(m.subs)
		m.mu.Unlock()
		if subs == 0 {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("expected subscriber to be dropped after close, still have %d", subs)
		}
		m.Broadcast()
		time.Sleep(20 * time.Millisecond)
	}
}
