package display

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/zsprackett/ai-battery/internal/usage"
)

// State is everything the renderers need. It is replaced wholesale on every
// refresh and passed by value.
type State struct {
	Snapshot    usage.Snapshot
	Loaded      bool
	RefreshedAt time.Time
}

func (s State) Remaining(name usage.BucketName) int {
	return s.Snapshot.Claude.Get(name).Remaining()
}

type ItemKind int

const (
	ItemLabel ItemKind = iota
	ItemSeparator
	ItemAction
)

type Action string

const (
	ActionRefresh Action = "refresh"
	ActionQuit    Action = "quit"
)

// Item is one tray menu row.
type Item struct {
	Kind   ItemKind
	Title  string
	Action Action
}

const (
	MenuHeader   = "AI Battery"
	MenuProvider = "Claude"
	MenuWaiting  = "Waiting for usage data"
)

// StatusLine is the per-bucket row, e.g. "🟢  Session  [▓▓▓▓▓▓░░░░]  55% left".
func StatusLine(name usage.BucketName, remaining int) string {
	return fmt.Sprintf("%s  %s  %s  %d%% left", TierFor(remaining).Icon(), Label(name), Bar(remaining), remaining)
}

// BuildMenu lays out the full tray menu for st. Nothing is carried over from
// a previous build. Until a snapshot has been read the menu only offers the
// actions.
func BuildMenu(st State, now time.Time) []Item {
	items := []Item{
		{Kind: ItemLabel, Title: MenuHeader},
		{Kind: ItemSeparator},
	}
	if !st.Loaded {
		items = append(items, Item{Kind: ItemLabel, Title: MenuWaiting})
		return appendActions(items)
	}
	items = append(items, Item{Kind: ItemLabel, Title: MenuProvider})
	for i, name := range usage.Buckets {
		if i > 0 {
			items = append(items, Item{Kind: ItemSeparator})
		}
		b := st.Snapshot.Claude.Get(name)
		items = append(items, Item{Kind: ItemLabel, Title: StatusLine(name, b.Remaining())})
		if phrase, ok := ResetPhrase(b, now); ok {
			items = append(items, Item{Kind: ItemLabel, Title: "      Resets " + phrase})
		}
	}
	return appendActions(items)
}

func appendActions(items []Item) []Item {
	return append(items,
		Item{Kind: ItemSeparator},
		Item{Kind: ItemAction, Title: "Refresh", Action: ActionRefresh},
		Item{Kind: ItemAction, Title: "Quit", Action: ActionQuit},
	)
}

// Tooltip says how old the snapshot is, e.g. "Updated 3 minutes ago".
func Tooltip(st State, now time.Time) string {
	if !st.Loaded || st.Snapshot.LastUpdated.IsZero() {
		return MenuHeader
	}
	return "Updated " + humanize.RelTime(st.Snapshot.LastUpdated, now, "ago", "from now")
}
