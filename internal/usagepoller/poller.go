// Package usagepoller owns the refresh cycle: run the fetcher, read the
// snapshot file back, swap the application state and tell everyone.
package usagepoller

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/zsprackett/ai-battery/internal/display"
	"github.com/zsprackett/ai-battery/internal/events"
	"github.com/zsprackett/ai-battery/internal/notify"
	"github.com/zsprackett/ai-battery/internal/usage"
)

// FetchFunc refreshes the snapshot file. Its error is logged; the file is
// read either way.
type FetchFunc func(ctx context.Context, cycleID string) error

// Subprocess returns a FetchFunc that runs exe with args plus
// "--cycle <id>" and kills it after timeout.
func Subprocess(exe string, args []string, timeout time.Duration) FetchFunc {
	return func(ctx context.Context, cycleID string) error {
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		argv := append(append([]string{}, args...), "--cycle", cycleID)
		out, err := exec.CommandContext(ctx, exe, argv...).CombinedOutput()
		if ctx.Err() == context.DeadlineExceeded {
			return fmt.Errorf("fetch timed out after %s", timeout)
		}
		if err != nil {
			return fmt.Errorf("fetch: %w: %s", err, lastLine(out))
		}
		return nil
	}
}

func lastLine(out []byte) string {
	end := len(out)
	for end > 0 && (out[end-1] == '\n' || out[end-1] == '\r') {
		end--
	}
	start := end
	for start > 0 && out[start-1] != '\n' {
		start--
	}
	return string(out[start:end])
}

type OnUpdate func(display.State)

type Config struct {
	Interval     time.Duration
	SnapshotPath string
}

type Poller struct {
	cfg         Config
	fetch       FetchFunc
	notifier    *notify.Notifier
	broadcaster events.Broadcaster
	onUpdate    OnUpdate
	logger      *slog.Logger
	now         func() time.Time

	mu    sync.Mutex
	state display.State

	cycleMu sync.Mutex // one refresh at a time

	refreshCh chan struct{}
	reloadCh  chan struct{}
	stop      chan struct{}
	wg        sync.WaitGroup
}

// New builds a poller. notifier, broadcaster and onUpdate may be nil.
func New(cfg Config, fetch FetchFunc, notifier *notify.Notifier, broadcaster events.Broadcaster, onUpdate OnUpdate, logger *slog.Logger) *Poller {
	return &Poller{
		cfg:         cfg,
		fetch:       fetch,
		notifier:    notifier,
		broadcaster: broadcaster,
		onUpdate:    onUpdate,
		logger:      logger,
		now:         time.Now,
		refreshCh:   make(chan struct{}, 1),
		reloadCh:    make(chan struct{}, 1),
		stop:        make(chan struct{}),
	}
}

// SetNow replaces the time source.
func (p *Poller) SetNow(fn func() time.Time) {
	p.now = fn
}

// SetOnUpdate replaces the update callback. Call before Start.
func (p *Poller) SetOnUpdate(fn OnUpdate) {
	p.onUpdate = fn
}

// Start runs an immediate refresh and then one every interval until Stop.
func (p *Poller) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer cancel()
		go func() {
			<-p.stop
			cancel()
		}()

		p.cycle(ctx, true)
		ticker := time.NewTicker(p.cfg.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-p.stop:
				return
			case <-ticker.C:
				p.cycle(ctx, true)
			case <-p.refreshCh:
				p.cycle(ctx, true)
			case <-p.reloadCh:
				p.cycle(ctx, false)
			}
		}
	}()
}

func (p *Poller) Stop() {
	close(p.stop)
	p.wg.Wait()
}

// Refresh asks the loop to fetch and reload. Requests made while one is
// pending collapse into it.
func (p *Poller) Refresh() {
	select {
	case p.refreshCh <- struct{}{}:
	default:
	}
}

// Reload asks the loop to re-read the snapshot file without fetching.
func (p *Poller) Reload() {
	select {
	case p.reloadCh <- struct{}{}:
	default:
	}
}

// RefreshNow runs one full cycle on the caller's goroutine.
func (p *Poller) RefreshNow(ctx context.Context) display.State {
	p.cycle(ctx, true)
	return p.State()
}

// ReloadNow re-reads the snapshot file on the caller's goroutine.
func (p *Poller) ReloadNow(ctx context.Context) display.State {
	p.cycle(ctx, false)
	return p.State()
}

func (p *Poller) State() display.State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *Poller) cycle(ctx context.Context, fetch bool) {
	p.cycleMu.Lock()
	defer p.cycleMu.Unlock()

	id := uuid.NewString()
	logger := p.logger.With("cycle", id)

	if fetch && p.fetch != nil {
		start := p.now()
		if err := p.fetch(ctx, id); err != nil {
			logger.Warn("refresh: fetch failed", "err", err, "elapsed", p.now().Sub(start))
			p.broadcast(events.Event{Type: events.TypeRefreshFailed, CycleID: id, Error: err.Error()})
		} else {
			logger.Debug("refresh: fetch ok", "elapsed", p.now().Sub(start))
		}
	}

	snap, err := usage.ReadFile(p.cfg.SnapshotPath)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Info("refresh: no snapshot yet", "path", p.cfg.SnapshotPath)
		} else {
			logger.Warn("refresh: read snapshot failed", "err", err)
		}
		return
	}

	now := p.now()
	next := display.State{Snapshot: snap, Loaded: true, RefreshedAt: now}
	p.mu.Lock()
	prev := p.state
	// A fetch rewrites the file and the watcher then asks for a reload of
	// the same contents.
	if !fetch && prev.Loaded && prev.Snapshot.Equal(snap) {
		p.mu.Unlock()
		logger.Debug("refresh: snapshot unchanged")
		return
	}
	p.state = next
	p.mu.Unlock()

	if prev.Loaded {
		for _, a := range notify.Detect(prev.Snapshot, snap, now) {
			logger.Info("refresh: tier changed", "bucket", a.Bucket, "from", a.From, "to", a.To, "remaining", a.Remaining)
			p.notifier.Notify(a)
			p.broadcast(events.Event{Type: events.TypeTierChanged, CycleID: id, Bucket: string(a.Bucket), Tier: a.To.String()})
		}
	}

	p.broadcast(events.Event{Type: events.TypeUsageUpdated, CycleID: id, Usage: &snap})
	if p.onUpdate != nil {
		p.onUpdate(next)
	}
}

func (p *Poller) broadcast(e events.Event) {
	if p.broadcaster != nil {
		p.broadcaster.Broadcast(e)
	}
}
