// Package fetch selects between the API and terminal-scrape strategies for
// obtaining a usage snapshot.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/zsprackett/ai-battery/internal/claudeusage"
	"github.com/zsprackett/ai-battery/internal/scrape"
	"github.com/zsprackett/ai-battery/internal/usage"
)

const (
	SourceAPI    = "api"
	SourceScrape = "scrape"
	SourceAuto   = "auto"
)

// Result carries the normalized snapshot and the raw payload it came from.
type Result struct {
	Source   string
	Snapshot usage.Snapshot
	Raw      []byte
}

// Source is one way of producing a snapshot.
type Source interface {
	Name() string
	Fetch(ctx context.Context) (Result, error)
}

// UsageClient is the subset of claudeusage.Client used here.
type UsageClient interface {
	FetchUsage(ctx context.Context) (*claudeusage.UsageResponse, []byte, error)
}

type APISource struct {
	Client UsageClient
	Now    func() time.Time
}

func (s *APISource) Name() string { return SourceAPI }

func (s *APISource) Fetch(ctx context.Context) (Result, error) {
	resp, raw, err := s.Client.FetchUsage(ctx)
	if err != nil {
		return Result{Source: SourceAPI, Raw: raw}, err
	}
	return Result{
		Source:   SourceAPI,
		Snapshot: usage.FromAPI(resp, now(s.Now)),
		Raw:      raw,
	}, nil
}

// ScrapeSource captures the `/usage` screen of the CLI and parses it.
type ScrapeSource struct {
	Options scrape.Options
	Run     func(ctx context.Context, opts scrape.Options) (string, error)
	Now     func() time.Time
}

func (s *ScrapeSource) Name() string { return SourceScrape }

func (s *ScrapeSource) Fetch(ctx context.Context) (Result, error) {
	run := s.Run
	if run == nil {
		run = scrape.Run
	}
	out, err := run(ctx, s.Options)
	if err != nil {
		return Result{Source: SourceScrape}, err
	}
	return Result{
		Source:   SourceScrape,
		Snapshot: usage.ParseText(out, now(s.Now)),
		Raw:      []byte(out),
	}, nil
}

// Chain tries each source in order and returns the first success. Failed
// attempts are logged at warn.
type Chain struct {
	Sources []Source
	Logger  *slog.Logger
}

func (c *Chain) Name() string { return SourceAuto }

func (c *Chain) Fetch(ctx context.Context) (Result, error) {
	var errs []error
	for _, src := range c.Sources {
		res, err := src.Fetch(ctx)
		if err == nil {
			return res, nil
		}
		if c.Logger != nil {
			c.Logger.Warn("fetch: source failed", "source", src.Name(), "err", err)
		}
		errs = append(errs, fmt.Errorf("%s: %w", src.Name(), err))
		if ctx.Err() != nil {
			break
		}
	}
	if len(errs) == 0 {
		return Result{}, errors.New("no fetch sources configured")
	}
	return Result{}, errors.Join(errs...)
}

// New builds the source named by kind.
func New(kind string, api UsageClient, opts scrape.Options, logger *slog.Logger) (Source, error) {
	apiSrc := &APISource{Client: api}
	scrapeSrc := &ScrapeSource{Options: opts}
	switch kind {
	case SourceAPI:
		return apiSrc, nil
	case SourceScrape:
		return scrapeSrc, nil
	case SourceAuto, "":
		return &Chain{Sources: []Source{apiSrc, scrapeSrc}, Logger: logger}, nil
	default:
		return nil, fmt.Errorf("unknown fetch source %q (want api, scrape or auto)", kind)
	}
}

func now(fn func() time.Time) time.Time {
	if fn != nil {
		return fn()
	}
	return time.Now()
}
