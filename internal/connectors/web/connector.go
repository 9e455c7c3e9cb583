package web

import (
	"context"
	"time"

	"farmcalc/internal"
)

// Connector downloads a published prices.json.
type Connector struct {
	client *Client
	url    string
}

func NewConnector(client *Client, url string) *Connector {
	return &Connector{client: client, url: url}
}

func (c *Connector) Name() string { return "url" }

func (c *Connector) Fetch(ctx context.Context) ([]internal.FetchedFeed, error) {
	body, err := c.client.Get(ctx, c.url, "application/json")
	if err != nil {
		return nil, err
	}
	return []internal.FetchedFeed{{
		Source:    c.url,
		Format:    internal.FormatPricesJSON,
		FetchedAt: time.Now().UTC(),
		Raw:       body,
	}}, nil
}
