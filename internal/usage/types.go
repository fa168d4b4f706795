package usage

import (
	"encoding/json"
	"fmt"
	"time"
)

// Bucket is one quota dimension. ResetAt is kept as the source's string
// (RFC 3339) and omitted from JSON when unknown.
type Bucket struct {
	PercentUsed int    `json:"percentUsed"`
	ResetAt     string `json:"resetAt,omitempty"`
}

type Claude struct {
	Session      Bucket `json:"session"`
	Weekly       Bucket `json:"weekly"`
	WeeklySonnet Bucket `json:"weeklySonnet"`
}

// Snapshot is the document handed from the fetch step to the display step.
type Snapshot struct {
	LastUpdated time.Time `json:"lastUpdated"`
	Claude      Claude    `json:"claude"`
}

// UnmarshalJSON accepts lastUpdated with or without a UTC offset. An empty
// value leaves the zero time.
func (s *Snapshot) UnmarshalJSON(data []byte) error {
	type alias Snapshot
	aux := struct {
		*alias
		LastUpdated string `json:"lastUpdated"`
	}{alias: (*alias)(s)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	s.LastUpdated = time.Time{}
	if aux.LastUpdated == "" {
		return nil
	}
	t, ok := parseTimestamp(aux.LastUpdated)
	if !ok {
		return fmt.Errorf("lastUpdated: invalid timestamp %q", aux.LastUpdated)
	}
	s.LastUpdated = t
	return nil
}

// Equal reports whether both snapshots carry the same timestamp and buckets.
func (s Snapshot) Equal(o Snapshot) bool {
	return s.LastUpdated.Equal(o.LastUpdated) && s.Claude == o.Claude
}

// BucketName identifies one of the three buckets.
type BucketName string

const (
	BucketSession      BucketName = "session"
	BucketWeekly       BucketName = "weekly"
	BucketWeeklySonnet BucketName = "weeklySonnet"
)

// Buckets lists bucket names in display order.
var Buckets = []BucketName{BucketSession, BucketWeekly, BucketWeeklySonnet}

func (c Claude) Get(name BucketName) Bucket {
	switch name {
	case BucketWeekly:
		return c.Weekly
	case BucketWeeklySonnet:
		return c.WeeklySonnet
	default:
		return c.Session
	}
}

// Remaining returns 100 minus the used percentage, always within [0,100].
func (b Bucket) Remaining() int {
	return 100 - Clamp(b.PercentUsed)
}

// ResetTime parses ResetAt. Timestamps without an offset are read as local time.
func (b Bucket) ResetTime() (time.Time, bool) {
	if b.ResetAt == "" {
		return time.Time{}, false
	}
	return parseTimestamp(b.ResetAt)
}

// parseTimestamp reads RFC 3339, falling back to local time when the offset
// is missing. Fractional seconds are accepted either way.
func parseTimestamp(s string) (time.Time, bool) {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, true
	}
	if t, err := time.ParseInLocation("2006-01-02T15:04:05", s, time.Local); err == nil {
		return t, true
	}
	return time.Time{}, false
}

// Clamp bounds a percentage to [0,100].
func Clamp(pct int) int {
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}

// Default returns the all-zero snapshot stamped with now.
func Default(now time.Time) Snapshot {
	return Snapshot{LastUpdated: now}
}
