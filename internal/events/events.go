package events

import "github.com/zsprackett/ai-battery/internal/usage"

const (
	TypeUsageUpdated  = "usage_updated"
	TypeTierChanged   = "tier_changed"
	TypeRefreshFailed = "refresh_failed"
)

// Event is a real-time update pushed to web clients.
type Event struct {
	Type    string          `json:"type"`
	CycleID string          `json:"cycle_id,omitempty"`
	Usage   *usage.Snapshot `json:"usage,omitempty"`
	Bucket  string          `json:"bucket,omitempty"`
	Tier    string          `json:"tier,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// Broadcaster sends events to connected web clients. Pollers accept nil.
type Broadcaster interface {
	Broadcast(e Event)
}
