package tray

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"fyne.io/systray"

	"github.com/zsprackett/ai-battery/internal/display"
	"github.com/zsprackett/ai-battery/internal/gauge"
	"github.com/zsprackett/ai-battery/internal/usage"
)

// Controller is what the menu actions drive.
type Controller interface {
	Start()
	Stop()
	Refresh()
	State() display.State
}

type Tray struct {
	ctl    Controller
	logger *slog.Logger
	now    func() time.Time

	mu       sync.Mutex
	menuDone chan struct{}
}

func New(ctl Controller, logger *slog.Logger) *Tray {
	return &Tray{ctl: ctl, logger: logger, now: time.Now}
}

// Run blocks on the tray event loop until Quit is chosen.
func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

func (t *Tray) onReady() {
	t.Update(t.ctl.State())
	t.ctl.Start()
}

func (t *Tray) onExit() {
	t.ctl.Stop()
	t.mu.Lock()
	if t.menuDone != nil {
		close(t.menuDone)
		t.menuDone = nil
	}
	t.mu.Unlock()
	t.logger.Info("tray: exited")
}

// Update redraws the icon, tooltip and menu from st.
func (t *Tray) Update(st display.State) {
	icon, err := IconBytes(st)
	if err != nil {
		t.logger.Warn("tray: render icon failed", "err", err)
	} else {
		systray.SetTemplateIcon(icon, icon)
	}
	systray.SetTooltip(display.Tooltip(st, t.now()))
	t.setMenu(display.BuildMenu(st, t.now()))
}

// IconBytes renders the tray icon PNG: outer ring weekly, inner ring session.
func IconBytes(st display.State) ([]byte, error) {
	img := gauge.TrayIcon(st.Remaining(usage.BucketSession), st.Remaining(usage.BucketWeekly))
	b, err := gauge.EncodePNG(img)
	if err != nil {
		return nil, fmt.Errorf("encode tray icon: %w", err)
	}
	return b, nil
}

func (t *Tray) setMenu(items []display.Item) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.menuDone != nil {
		close(t.menuDone)
	}
	done := make(chan struct{})
	t.menuDone = done

	systray.ResetMenu()
	for _, item := range items {
		switch item.Kind {
		case display.ItemSeparator:
			systray.AddSeparator()
		case display.ItemLabel:
			mi := systray.AddMenuItem(item.Title, "")
			mi.Disable()
		case display.ItemAction:
			mi := systray.AddMenuItem(item.Title, "")
			go t.listen(mi, item.Action, done)
		}
	}
}

func (t *Tray) listen(mi *systray.MenuItem, action display.Action, done <-chan struct{}) {
	for {
		select {
		case <-done:
			return
		case <-mi.ClickedCh:
			t.handle(action)
		}
	}
}

func (t *Tray) handle(action display.Action) {
	t.logger.Debug("tray: action", "action", action)
	switch action {
	case display.ActionRefresh:
		t.ctl.Refresh()
	case display.ActionQuit:
		systray.Quit()
	}
}
