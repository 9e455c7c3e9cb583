package ninja

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"farmcalc/internal"
	"farmcalc/internal/config"
)

// Getter is the part of the web client the connector needs.
type Getter interface {
	Get(ctx context.Context, url, accept string) ([]byte, error)
}

// Connector fetches every configured economy section page concurrently.
// A failed section is logged and skipped; the fetch fails only when no
// section could be read.
type Connector struct {
	client      Getter
	sections    []string
	urlFor      func(section string) string
	concurrency int
}

func NewConnector(client Getter, cfg config.Config) *Connector {
	return &Connector{
		client:      client,
		sections:    cfg.NinjaSections,
		urlFor:      cfg.SectionURL,
		concurrency: cfg.FetchConcurrency,
	}
}

func (c *Connector) Name() string { return "ninja" }

func (c *Connector) Fetch(ctx context.Context) ([]internal.FetchedFeed, error) {
	if len(c.sections) == 0 {
		return nil, errors.New("no economy sections configured")
	}

	pages := make([]*internal.FetchedFeed, len(c.sections))
	errs := make([]error, len(c.sections))

	g, gctx := errgroup.WithContext(ctx)
	if c.concurrency > 0 {
		g.SetLimit(c.concurrency)
	}
	for i, section := range c.sections {
		i, section := i, section
		g.Go(func() error {
			url := c.urlFor(section)
			body, err := c.client.Get(gctx, url, "text/html")
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				errs[i] = err
				log.Warn().Err(err).Str("section", section).Msg("economy section fetch failed")
				return nil
			}
			pages[i] = &internal.FetchedFeed{
				Source:    url,
				Format:    internal.FormatEconomyHTML,
				Section:   section,
				FetchedAt: time.Now().UTC(),
				Raw:       body,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]internal.FetchedFeed, 0, len(pages))
	for _, page := range pages {
		if page != nil {
			out = append(out, *page)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("all %d economy sections failed: %w", len(c.sections), errors.Join(errs...))
	}
	return out, nil
}
