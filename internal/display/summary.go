package display

import (
	"time"

	"github.com/zsprackett/ai-battery/internal/usage"
)

// BucketSummary is one bucket as reported by `status --json` and /api/usage.
type BucketSummary struct {
	PercentUsed int    `json:"percentUsed"`
	Remaining   int    `json:"remaining"`
	Tier        string `json:"tier"`
	ResetAt     string `json:"resetAt,omitempty"`
	Resets      string `json:"resets,omitempty"`
}

type Summary struct {
	Loaded      bool                     `json:"loaded"`
	LastUpdated *time.Time               `json:"lastUpdated,omitempty"`
	RefreshedAt *time.Time               `json:"refreshedAt,omitempty"`
	Buckets     map[string]BucketSummary `json:"buckets"`
}

func Summarize(st State, now time.Time) Summary {
	s := Summary{Loaded: st.Loaded, Buckets: make(map[string]BucketSummary)}
	if !st.Loaded {
		return s
	}
	lastUpdated := st.Snapshot.LastUpdated
	s.LastUpdated = &lastUpdated
	if !st.RefreshedAt.IsZero() {
		refreshedAt := st.RefreshedAt
		s.RefreshedAt = &refreshedAt
	}
	for _, name := range usage.Buckets {
		b := st.Snapshot.Claude.Get(name)
		v := BucketSummary{
			PercentUsed: b.PercentUsed,
			Remaining:   b.Remaining(),
			Tier:        TierFor(b.Remaining()).String(),
			ResetAt:     b.ResetAt,
		}
		if phrase, ok := ResetPhrase(b, now); ok {
			v.Resets = phrase
		}
		s.Buckets[string(name)] = v
	}
	return s
}
