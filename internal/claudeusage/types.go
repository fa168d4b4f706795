package claudeusage

// UsageResponse is the body of GET /api/oauth/usage. Windows are pointers so
// an absent key can be told apart from zero utilization.
type UsageResponse struct {
	FiveHour       *WindowUsage `json:"five_hour"`
	SevenDay       *WindowUsage `json:"seven_day"`
	Sonnet         *WindowUsage `json:"sonnet"`
	SevenDaySonnet *WindowUsage `json:"seven_day_sonnet"`
	Error          string       `json:"error,omitempty"`
}

type WindowUsage struct {
	Utilization float64 `json:"utilization"`
	ResetsAt    string  `json:"resets_at"`
}
