package file

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"farmcalc/internal"
)

// Connector reads a prices.json (or a saved economy page) from disk.
type Connector struct {
	path string
}

func NewConnector(path string) *Connector {
	return &Connector{path: path}
}

func (c *Connector) Name() string { return "file" }

func (c *Connector) Fetch(ctx context.Context) ([]internal.FetchedFeed, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(c.path)
	if err != nil {
		return nil, err
	}

	feed := internal.FetchedFeed{
		Source:    c.path,
		Format:    internal.FormatPricesJSON,
		FetchedAt: time.Now().UTC(),
		Raw:       raw,
	}
	switch strings.ToLower(filepath.Ext(c.path)) {
	case ".html", ".htm":
		feed.Format = internal.FormatEconomyHTML
		feed.Section = strings.TrimSuffix(filepath.Base(c.path), filepath.Ext(c.path))
	}
	return []internal.FetchedFeed{feed}, nil
}
