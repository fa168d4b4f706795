package notify

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os/exec"
	"runtime"
	"time"

	"github.com/gen2brain/beeep"

	"github.com/zsprackett/ai-battery/internal/display"
	"github.com/zsprackett/ai-battery/internal/usage"
)

const appName = "AI Battery"

// Config holds notification settings.
type Config struct {
	Enabled bool   `json:"enabled"`
	Webhook string `json:"webhook"`
	NtfyURL string `json:"ntfy"`
}

// Alert describes a bucket whose tier got worse between two snapshots.
type Alert struct {
	Bucket    usage.BucketName
	Remaining int
	From      display.Tier
	To        display.Tier
	Reset     string // relative reset phrase, empty when unknown
}

func (a Alert) Title() string {
	return fmt.Sprintf("%s %s: %d%% left", a.To.Icon(), display.Label(a.Bucket), a.Remaining)
}

func (a Alert) Message() string {
	msg := fmt.Sprintf("Claude %s usage is %s", display.Label(a.Bucket), a.To)
	if a.Reset != "" {
		msg += ", resets " + a.Reset
	}
	return msg
}

// Detect compares each bucket's tier in prev and next and returns an alert
// for every bucket that moved to a worse tier. Improvements are silent.
func Detect(prev, next usage.Snapshot, now time.Time) []Alert {
	var alerts []Alert
	for _, name := range usage.Buckets {
		before := display.TierFor(prev.Claude.Get(name).Remaining())
		b := next.Claude.Get(name)
		after := display.TierFor(b.Remaining())
		if after <= before {
			continue
		}
		a := Alert{Bucket: name, Remaining: b.Remaining(), From: before, To: after}
		if phrase, ok := display.ResetPhrase(b, now); ok {
			a.Reset = phrase
		}
		alerts = append(alerts, a)
	}
	return alerts
}

// SystemFunc posts a desktop notification.
type SystemFunc func(title, message string) error

// Notifier fires system notifications and optional webhook POSTs.
type Notifier struct {
	cfg    Config
	logger *slog.Logger
	system SystemFunc
	client *http.Client
}

// New returns a Notifier with the given config.
func New(cfg Config, logger *slog.Logger) *Notifier {
	return &Notifier{
		cfg:    cfg,
		logger: logger,
		system: systemNotification,
		client: &http.Client{Timeout: 5 * time.Second},
	}
}

// WithSystem replaces the desktop notification backend.
func (n *Notifier) WithSystem(fn SystemFunc) *Notifier {
	n.system = fn
	return n
}

// Notify sends a system notification and optional webhook POST for an
// alert. Failures are logged and never returned.
func (n *Notifier) Notify(a Alert) {
	if n == nil || !n.cfg.Enabled {
		return
	}

	if n.system != nil {
		if err := n.system(a.Title(), a.Message()); err != nil {
			n.logger.Warn("notify: system notification failed", "err", err)
		}
	}
	if n.cfg.Webhook != "" {
		n.sendWebhook(a)
	}
	if n.cfg.NtfyURL != "" {
		n.sendNtfy(a)
	}
}

// systemNotification uses osascript on macOS, where it needs no extra
// permissions, and beeep everywhere else.
func systemNotification(title, message string) error {
	if runtime.GOOS == "darwin" {
		script := fmt.Sprintf(`display notification %q with title %q subtitle %q`, message, appName, title)
		return exec.Command("osascript", "-e", script).Run()
	}
	return beeep.Notify(title, message, "")
}

type webhookPayload struct {
	Bucket    string `json:"bucket"`
	Remaining int    `json:"remaining"`
	Tier      string `json:"tier"`
	Previous  string `json:"previous"`
	Reset     string `json:"reset,omitempty"`
	Timestamp string `json:"timestamp"`
}

func (n *Notifier) sendWebhook(a Alert) {
	payload := webhookPayload{
		Bucket:    string(a.Bucket),
		Remaining: a.Remaining,
		Tier:      a.To.String(),
		Previous:  a.From.String(),
		Reset:     a.Reset,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	n.post("webhook", n.cfg.Webhook, payload)
}

type ntfyPayload struct {
	Title    string   `json:"title"`
	Message  string   `json:"message"`
	Priority int      `json:"priority"`
	Tags     []string `json:"tags"`
}

func (n *Notifier) sendNtfy(a Alert) {
	priority, tag := 3, "warning"
	if a.To == display.TierCritical {
		priority, tag = 5, "rotating_light"
	}
	n.post("ntfy", n.cfg.NtfyURL, ntfyPayload{
		Title:    a.Title(),
		Message:  a.Message(),
		Priority: priority,
		Tags:     []string{tag},
	})
}

func (n *Notifier) post(kind, url string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		n.logger.Warn("notify: marshal failed", "kind", kind, "err", err)
		return
	}
	resp, err := n.client.Post(url, "application/json", bytes.NewReader(data))
	if err != nil {
		n.logger.Warn("notify: "+kind+" POST failed", "err", err)
		return
	}
	resp.Body.Close()
	if resp.StatusCode >= 300 {
		n.logger.Warn("notify: "+kind+" rejected", "status", resp.StatusCode)
	}
}
