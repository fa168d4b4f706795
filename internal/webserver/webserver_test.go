package webserver_test

import (
	"bufio"
	"context"
	"encoding/json"
	"image/png"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/zsprackett/ai-battery/internal/db"
	"github.com/zsprackett/ai-battery/internal/display"
	"github.com/zsprackett/ai-battery/internal/events"
	"github.com/zsprackett/ai-battery/internal/usage"
	"github.com/zsprackett/ai-battery/internal/webserver"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fixedState struct{ st display.State }

func (f fixedState) State() display.State { return f.st }

func loadedState() fixedState {
	return fixedState{display.State{
		Loaded:      true,
		RefreshedAt: time.Now(),
		Snapshot: usage.Snapshot{
			LastUpdated: time.Now(),
			Claude: usage.Claude{
				Session: usage.Bucket{PercentUsed: 97, ResetAt: time.Now().Add(2*time.Hour + time.Minute).Format(time.RFC3339)},
				Weekly:  usage.Bucket{PercentUsed: 40},
			},
		},
	}}
}

func newServer(t *testing.T, state webserver.StateSource, store *db.DB) *webserver.Server {
	t.Helper()
	return webserver.New(state, store, webserver.Config{Host: "127.0.0.1", Port: 0, Enabled: true}, discardLogger())
}

func TestUsageEndpoint(t *testing.T) {
	srv := newServer(t, loadedState(), nil)
	req := httptest.NewRequest("GET", "/api/usage", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	if w.Code != 200 {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var resp struct {
		Loaded  bool `json:"loaded"`
		Buckets map[string]struct {
			Remaining int    `json:"remaining"`
			Tier      string `json:"tier"`
			Resets    string `json:"resets"`
		} `json:"buckets"`
	}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !resp.Loaded {
		t.Error("expected loaded")
	}
	session := resp.Buckets["session"]
	if session.Remaining != 3 || session.Tier != "critical" || session.Resets != "in 2 hours" {
		t.Errorf("session: %+v", session)
	}
	if resp.Buckets["weekly"].Remaining != 60 {
		t.Errorf("weekly: %+v", resp.Buckets["weekly"])
	}
}

func TestUsageEndpoint_NotLoaded(t *testing.T) {
	srv := newServer(t, fixedState{}, nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest("GET", "/api/usage", nil))
	if !strings.Contains(w.Body.String(), `"loaded":false`) {
		t.Errorf("body: %s", w.Body.String())
	}
}

func TestHistoryEndpoint(t *testing.T) {
	store, _ := db.Open(":memory:")
	store.Migrate()
	defer store.Close()
	base := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		store.InsertUsageSnapshot(db.UsageSnapshot{TsMs: base.Add(time.Duration(i) * time.Minute).UnixMilli(), SessionUsed: i})
	}
	before := time.Now().UnixMilli()
	if err := store.Touch(); err != nil {
		t.Fatal(err)
	}

	srv := newServer(t, loadedState(), store)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest("GET", "/api/history?limit=2", nil))
	if w.Code != 200 {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var resp struct {
		History []struct {
			Session int `json:"session"`
		} `json:"history"`
		LastModified int64 `json:"lastModified"`
	}
	json.NewDecoder(w.Body).Decode(&resp)
	if len(resp.History) != 2 || resp.History[0].Session != 4 {
		t.Errorf("history: %+v", resp.History)
	}
	if resp.LastModified < before {
		t.Errorf("lastModified: got %d, want >= %d", resp.LastModified, before)
	}

	w = httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest("GET", "/api/history?limit=abc", nil))
	if w.Code != 400 {
		t.Errorf("invalid limit: got %d", w.Code)
	}
}

func TestHistoryEndpoint_NoStore(t *testing.T) {
	srv := newServer(t, loadedState(), nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest("GET", "/api/history", nil))
	if !strings.Contains(w.Body.String(), `"history":[]`) || !strings.Contains(w.Body.String(), `"lastModified":0`) {
		t.Errorf("body: %s", w.Body.String())
	}
}

func TestIconEndpoint(t *testing.T) {
	srv := newServer(t, loadedState(), nil)
	for _, tc := range []struct {
		query string
		code  int
		size  int
	}{
		{"", 200, 22},
		{"?size=64", 200, 64},
		{"?size=4", 400, 0},
	} {
		w := httptest.NewRecorder()
		srv.Handler().ServeHTTP(w, httptest.NewRequest("GET", "/icon.png"+tc.query, nil))
		if w.Code != tc.code {
			t.Errorf("%q: got %d want %d", tc.query, w.Code, tc.code)
			continue
		}
		if tc.code != 200 {
			continue
		}
		if ct := w.Header().Get("Content-Type"); ct != "image/png" {
			t.Errorf("%q: content type %q", tc.query, ct)
		}
		img, err := png.Decode(w.Body)
		if err != nil {
			t.Fatalf("%q: %v", tc.query, err)
		}
		if img.Bounds().Dx() != tc.size {
			t.Errorf("%q: width %d want %d", tc.query, img.Bounds().Dx(), tc.size)
		}
	}
}

func TestIndexPage(t *testing.T) {
	srv := newServer(t, loadedState(), nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest("GET", "/", nil))
	if w.Code != 200 || !strings.Contains(w.Body.String(), "AI Battery") {
		t.Errorf("index: %d %q", w.Code, w.Body.String())
	}
}

func readSSE(t *testing.T, r *bufio.Reader) events.Event {
	t.Helper()
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			t.Fatalf("read sse: %v", err)
		}
		if data, ok := strings.CutPrefix(strings.TrimSpace(line), "data: "); ok {
			var e events.Event
			if err := json.Unmarshal([]byte(data), &e); err != nil {
				t.Fatalf("decode sse: %v", err)
			}
			return e
		}
	}
}

func TestSSE(t *testing.T) {
	srv := newServer(t, loadedState(), nil)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, "GET", ts.URL+"/events", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	r := bufio.NewReader(resp.Body)

	first := readSSE(t, r)
	if first.Type != events.TypeUsageUpdated || first.Usage == nil || first.Usage.Claude.Session.PercentUsed != 97 {
		t.Fatalf("first event: %+v", first)
	}

	srv.Broadcast(events.Event{Type: events.TypeTierChanged, Bucket: "weekly", Tier: "warning"})
	got := readSSE(t, r)
	if got.Type != events.TypeTierChanged || got.Bucket != "weekly" {
		t.Errorf("broadcast event: %+v", got)
	}
}

func TestWebsocket(t *testing.T) {
	srv := newServer(t, loadedState(), nil)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", nil)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var first events.Event
	if err := conn.ReadJSON(&first); err != nil {
		t.Fatal(err)
	}
	if first.Type != events.TypeUsageUpdated {
		t.Fatalf("first event: %+v", first)
	}

	srv.Broadcast(events.Event{Type: events.TypeRefreshFailed, Error: "boom"})
	var got events.Event
	if err := conn.ReadJSON(&got); err != nil {
		t.Fatal(err)
	}
	if got.Type != events.TypeRefreshFailed || got.Error != "boom" {
		t.Errorf("broadcast event: %+v", got)
	}
}

func TestWebsocket_RejectsForeignOrigin(t *testing.T) {
	srv := newServer(t, loadedState(), nil)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	header := http.Header{"Origin": []string{"http://evil.example"}}
	_, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", header)
	if err == nil {
		t.Fatal("expected handshake failure")
	}
	if resp == nil || resp.StatusCode != http.StatusForbidden {
		t.Errorf("expected 403, got %v", resp)
	}
}

func TestStart(t *testing.T) {
	disabled := webserver.New(loadedState(), nil, webserver.Config{Enabled: false}, discardLogger())
	if addr, err := disabled.Start(context.Background()); addr != nil || err != nil {
		t.Errorf("disabled: got %v, %v", addr, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	srv := newServer(t, loadedState(), nil)
	addr, err := srv.Start(ctx)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.Get("http://" + addr.String() + "/api/usage")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != 200 {
		t.Errorf("status: %d", resp.StatusCode)
	}
}
