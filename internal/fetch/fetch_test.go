package fetch_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/zsprackett/ai-battery/internal/claudeusage"
	"github.com/zsprackett/ai-battery/internal/fetch"
	"github.com/zsprackett/ai-battery/internal/scrape"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeClient struct {
	resp *claudeusage.UsageResponse
	err  error
}

func (f *fakeClient) FetchUsage(context.Context) (*claudeusage.UsageResponse, []byte, error) {
	if f.err != nil {
		return nil, nil, f.err
	}
	return f.resp, []byte(`{"raw":true}`), nil
}

func fixedNow() time.Time { return time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC) }

func TestAPISource(t *testing.T) {
	src := &fetch.APISource{
		Client: &fakeClient{resp: &claudeusage.UsageResponse{
			SevenDay: &claudeusage.WindowUsage{Utilization: 33.4, ResetsAt: "2026-01-15T06:00:00Z"},
		}},
		Now: fixedNow,
	}
	res, err := src.Fetch(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if res.Snapshot.Claude.Weekly.PercentUsed != 33 {
		t.Errorf("weekly: got %d want 33", res.Snapshot.Claude.Weekly.PercentUsed)
	}
	if string(res.Raw) != `{"raw":true}` {
		t.Errorf("raw: got %q", res.Raw)
	}
	if !res.Snapshot.LastUpdated.Equal(fixedNow()) {
		t.Errorf("lastUpdated: got %v", res.Snapshot.LastUpdated)
	}
}

func TestScrapeSource(t *testing.T) {
	src := &fetch.ScrapeSource{
		Run: func(context.Context, scrape.Options) (string, error) {
			return "Current session\n 91% used\n", nil
		},
		Now: fixedNow,
	}
	res, err := src.Fetch(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if res.Snapshot.Claude.Session.PercentUsed != 91 {
		t.Errorf("session: got %d want 91", res.Snapshot.Claude.Session.PercentUsed)
	}
	if res.Source != fetch.SourceScrape {
		t.Errorf("source: got %q", res.Source)
	}
}

func TestChain_FallsBack(t *testing.T) {
	chain := &fetch.Chain{
		Sources: []fetch.Source{
			&fetch.APISource{Client: &fakeClient{err: claudeusage.ErrNoToken}},
			&fetch.ScrapeSource{Run: func(context.Context, scrape.Options) (string, error) {
				return "Current session 12% used", nil
			}},
		},
		Logger: discardLogger(),
	}
	res, err := chain.Fetch(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if res.Source != fetch.SourceScrape {
		t.Errorf("expected scrape fallback, got %q", res.Source)
	}
	if res.Snapshot.Claude.Session.PercentUsed != 12 {
		t.Errorf("session: got %d", res.Snapshot.Claude.Session.PercentUsed)
	}
}

func TestChain_AllFail(t *testing.T) {
	chain := &fetch.Chain{
		Sources: []fetch.Source{
			&fetch.APISource{Client: &fakeClient{err: claudeusage.ErrNoToken}},
			&fetch.ScrapeSource{Run: func(context.Context, scrape.Options) (string, error) {
				return "", scrape.ErrNoOutput
			}},
		},
		Logger: discardLogger(),
	}
	_, err := chain.Fetch(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, claudeusage.ErrNoToken) || !errors.Is(err, scrape.ErrNoOutput) {
		t.Errorf("expected both causes, got %v", err)
	}
	if !strings.Contains(err.Error(), "api:") || !strings.Contains(err.Error(), "scrape:") {
		t.Errorf("expected source names in %q", err.Error())
	}
}

func TestNew(t *testing.T) {
	for _, tc := range []struct {
		kind string
		name string
	}{
		{"api", "api"},
		{"scrape", "scrape"},
		{"auto", "auto"},
		{"", "auto"},
	} {
		src, err := fetch.New(tc.kind, &fakeClient{}, scrape.Options{}, discardLogger())
		if err != nil {
			t.Fatalf("New(%q): %v", tc.kind, err)
		}
		if src.Name() != tc.name {
			t.Errorf("New(%q).Name(): got %q want %q", tc.kind, src.Name(), tc.name)
		}
	}
	if _, err := fetch.New("carrier-pigeon", &fakeClient{}, scrape.Options{}, nil); err == nil {
		t.Error("expected error for unknown source")
	}
}
