package connectors

import (
	"context"

	"farmcalc/internal"
)

// FeedConnector fetches the raw payloads of one price source. A connector
// returns every payload of a fetch or an error; it never returns a partial
// batch silently.
type FeedConnector interface {
	Name() string
	Fetch(ctx context.Context) ([]internal.FetchedFeed, error)
}
