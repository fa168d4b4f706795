package webserver

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/zsprackett/ai-battery/internal/db"
	"github.com/zsprackett/ai-battery/internal/display"
	"github.com/zsprackett/ai-battery/internal/events"
	"github.com/zsprackett/ai-battery/internal/gauge"
	"github.com/zsprackett/ai-battery/internal/usage"
)

//go:embed static
var staticFS embed.FS

func staticFiles() http.FileSystem {
	sub, _ := fs.Sub(staticFS, "static")
	return http.FS(sub)
}

type Config struct {
	Enabled bool
	Port    int
	Host    string
}

// StateSource hands out the current application state.
type StateSource interface {
	State() display.State
}

// StateFunc adapts a plain function to StateSource.
type StateFunc func() display.State

func (f StateFunc) State() display.State { return f() }

type Server struct {
	state   StateSource
	store   *db.DB
	cfg     Config
	logger  *slog.Logger
	now     func() time.Time
	mu      sync.Mutex
	clients map[chan events.Event]struct{}
}

// New returns a server. store may be nil, in which case /api/history is
// empty.
func New(state StateSource, store *db.DB, cfg Config, logger *slog.Logger) *Server {
	return &Server{
		state:   state,
		store:   store,
		cfg:     cfg,
		logger:  logger,
		now:     time.Now,
		clients: make(map[chan events.Event]struct{}),
	}
}

// Broadcast implements events.Broadcaster.
func (s *Server) Broadcast(e events.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for ch := range s.clients {
		select {
		case ch <- e:
		default:
		}
	}
}

func (s *Server) addClient(ch chan events.Event) {
	s.mu.Lock()
	s.clients[ch] = struct{}{}
	s.mu.Unlock()
}

func (s *Server) removeClient(ch chan events.Event) {
	s.mu.Lock()
	delete(s.clients, ch)
	s.mu.Unlock()
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/usage", s.handleUsage)
	mux.HandleFunc("GET /api/history", s.handleHistory)
	mux.HandleFunc("GET /icon.png", s.handleIcon)
	mux.HandleFunc("GET /events", s.handleSSE)
	mux.HandleFunc("GET /ws", s.handleWS)
	mux.Handle("GET /", http.FileServer(staticFiles()))
	return mux
}

// Start listens on the configured address and serves until ctx is done.
// The listen error, if any, is returned synchronously.
func (s *Server) Start(ctx context.Context) (net.Addr, error) {
	if !s.cfg.Enabled {
		return nil, nil
	}
	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("webserver: listen %s: %w", addr, err)
	}
	srv := &http.Server{Handler: s.Handler(), ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("webserver: serve failed", "err", err)
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()
	s.logger.Info("webserver: listening", "addr", ln.Addr().String())
	return ln.Addr(), nil
}

func (s *Server) handleUsage(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, display.Summarize(s.state.State(), s.now()))
}

type historyRow struct {
	Ts      time.Time `json:"ts"`
	CycleID string    `json:"cycleId,omitempty"`
	Source  string    `json:"source,omitempty"`
	Session int       `json:"session"`
	Weekly  int       `json:"weekly"`
	Sonnet  int       `json:"weeklySonnet"`
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := 48
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			http.Error(w, "invalid limit", 400)
			return
		}
		limit = min(n, 1000)
	}
	rows := []historyRow{}
	var lastModified int64
	if s.store != nil {
		lastModified = s.store.LastModified()
		snaps, err := s.store.GetUsageSnapshots(limit)
		if err != nil {
			http.Error(w, err.Error(), 500)
			return
		}
		for _, h := range snaps {
			rows = append(rows, historyRow{
				Ts:      h.Time().UTC(),
				CycleID: h.CycleID,
				Source:  h.Source,
				Session: h.SessionUsed,
				Weekly:  h.WeeklyUsed,
				Sonnet:  h.SonnetUsed,
			})
		}
	}
	writeJSON(w, map[string]any{"history": rows, "lastModified": lastModified})
}

func (s *Server) handleIcon(w http.ResponseWriter, r *http.Request) {
	st := s.state.State()
	img := gauge.TrayIcon(st.Remaining(usage.BucketSession), st.Remaining(usage.BucketWeekly))
	if v := r.URL.Query().Get("size"); v != "" {
		size, err := strconv.Atoi(v)
		if err != nil || size < 16 || size > 512 {
			http.Error(w, "size must be 16..512", 400)
			return
		}
		img = gauge.NestedArcs(size, st.Remaining(usage.BucketSession), st.Remaining(usage.BucketWeekly), scaledStyle(size))
	}
	data, err := gauge.EncodePNG(img)
	if err != nil {
		http.Error(w, err.Error(), 500)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-cache")
	w.Write(data)
}

// scaledStyle grows the tray proportions to an arbitrary size.
func scaledStyle(size int) gauge.NestedStyle {
	k := float64(size) / gauge.TraySize
	return gauge.NestedStyle{
		Inset: gauge.TrayStyle.Inset * k,
		Gap:   gauge.TrayStyle.Gap * k,
		Width: gauge.TrayStyle.Width * k,
	}
}

func (s *Server) handleSSE(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", 500)
		return
	}

	ch := make(chan events.Event, 16)
	s.addClient(ch)
	defer s.removeClient(ch)

	writeSSE(w, flusher, s.currentEvent())

	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case e := <-ch:
			writeSSE(w, flusher, e)
		case <-ticker.C:
			fmt.Fprintf(w, ": keepalive\n\n")
			flusher.Flush()
		}
	}
}

// currentEvent is sent first on every stream so clients render without
// waiting for the next refresh.
func (s *Server) currentEvent() events.Event {
	st := s.state.State()
	e := events.Event{Type: events.TypeUsageUpdated}
	if st.Loaded {
		snap := st.Snapshot
		e.Usage = &snap
	}
	return e
}

func writeSSE(w http.ResponseWriter, f http.Flusher, e events.Event) {
	data, _ := json.Marshal(e)
	fmt.Fprintf(w, "data: %s\n\n", data)
	f.Flush()
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
