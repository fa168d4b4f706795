package ui

import (
	"context"
	"log/slog"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/zsprackett/ai-battery/internal/db"
	"github.com/zsprackett/ai-battery/internal/ui/dialogs"
	"github.com/zsprackett/ai-battery/internal/usagepoller"
)

// ReloadInterval is how often the status screen re-reads the snapshot file
// so relative times and the tray's writes show up without a keypress.
const ReloadInterval = 30 * time.Second

type App struct {
	tapp   *tview.Application
	pages  *tview.Pages
	usage  *dialogs.UsageDialog
	poller *usagepoller.Poller
	store  *db.DB
	logger *slog.Logger
}

// NewApp builds the status screen. store may be nil.
func NewApp(poller *usagepoller.Poller, store *db.DB, logger *slog.Logger) *App {
	a := &App{
		poller: poller,
		store:  store,
		logger: logger,
	}

	a.tapp = tview.NewApplication()
	a.pages = tview.NewPages()

	a.usage = dialogs.NewUsageDialog(poller.State, store, func() { a.tapp.Stop() }, a.onRefresh)
	a.usage.SetBorderColor(ColorBorder)
	a.usage.SetTitleColor(ColorPrimary)

	a.pages.AddPage("usage", a.usage, true, true)
	a.tapp.SetRoot(a.pages, true).EnableMouse(false)
	a.tapp.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		if event.Rune() == '?' && !a.pages.HasPage("help") {
			a.showHelp()
			return nil
		}
		return event
	})

	return a
}

func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a.poller.ReloadNow(ctx)
	a.usage.Reload()

	go func() {
		ticker := time.NewTicker(ReloadInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				a.poller.ReloadNow(ctx)
				a.tapp.QueueUpdateDraw(a.usage.Reload)
			}
		}
	}()

	return a.tapp.Run()
}

// onRefresh runs off the UI goroutine.
func (a *App) onRefresh() {
	st := a.poller.RefreshNow(context.Background())
	a.logger.Info("status: refreshed", "loaded", st.Loaded)
	a.tapp.QueueUpdateDraw(a.usage.Reload)
}

func (a *App) showDialog(name string, widget tview.Primitive, width, height int) {
	modal := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(nil, 0, 1, false).
		AddItem(tview.NewFlex().SetDirection(tview.FlexColumn).
			AddItem(nil, 0, 1, false).
			AddItem(widget, width, 0, true).
			AddItem(nil, 0, 1, false), height, 0, true).
		AddItem(nil, 0, 1, false)
	a.pages.AddPage(name, modal, true, true)
	a.tapp.SetFocus(widget)
}

func (a *App) closeDialog(name string) {
	a.pages.RemovePage(name)
	a.tapp.SetFocus(a.usage)
}

func (a *App) showHelp() {
	help := dialogs.HelpDialog(func() {
		a.closeDialog("help")
	})
	a.showDialog("help", help, 44, 16)
}
