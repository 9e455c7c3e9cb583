package internal

import (
	"time"

	"github.com/google/uuid"
)

type FeedFormat string

const (
	FormatPricesJSON  FeedFormat = "prices_json"
	FormatEconomyHTML FeedFormat = "economy_html"
)

// RawRecord is one scraped price line before validation. Numeric fields keep
// the token as found; an empty string means the field was absent.
type RawRecord struct {
	Section     string
	Name        string
	Icon        string
	Amount      string
	Unit        string
	ListedValue string
}

type BatchMeta struct {
	Source        string
	League        string
	UpdatedAt     string
	Reference     string
	ReferenceIcon string
	SecondaryIcon string
	SecondaryRate *float64
	Sections      []string
}

type RawBatch struct {
	Meta    BatchMeta
	Records []RawRecord
}

type PricedItem struct {
	Key            string
	Name           string
	Section        string
	Icon           string
	QuotedAmount   *float64
	QuotedUnit     string
	ListedValue    *float64
	ReferenceValue *float64
	Inconsistent   bool
}

type RejectReason string

const (
	RejectNone           RejectReason = ""
	RejectEmptyName      RejectReason = "EMPTY_NAME"
	RejectBadAmount      RejectReason = "BAD_AMOUNT"
	RejectBadListedValue RejectReason = "BAD_LISTED_VALUE"
)

type RejectedRecord struct {
	Index  int
	Record RawRecord
	Reason RejectReason
}

// Conflict is an edge whose weight disagrees with values already fixed by an
// earlier path. The earlier value is kept.
type Conflict struct {
	From     string
	To       string
	Weight   float64
	Expected float64
	Actual   float64
}

type RateSource string

const (
	RateFromBatch RateSource = "batch"
	RateFromGraph RateSource = "graph"
	RateUnknown   RateSource = ""
)

type Rates struct {
	ReferenceUnit    string
	ReferenceIcon    string
	SecondaryUnit    string
	SecondaryIcon    string
	SecondaryRate    *float64
	RateSource       RateSource
	IntermediateUnit string
	IntermediateRate *float64
}

// LootRow mirrors one editable row of the loot table. Quantity and
// ManualPrice hold the raw field values.
type LootRow struct {
	ID          uuid.UUID
	Item        string
	Quantity    string
	Manual      bool
	ManualPrice string
}

type Investment struct {
	Quantity string
	UnitCost string
}

type FetchedFeed struct {
	Source    string
	Format    FeedFormat
	Section   string
	FetchedAt time.Time
	Raw       []byte
}

type FeedRow struct {
	ID        int
	Hash      string
	Source    string
	Format    string
	Section   string
	RawRef    string
	FetchedAt string
}

type SnapshotRow struct {
	ID              int
	League          string
	Source          string
	UpdatedAt       string
	ReferenceUnit   string
	SecondaryUnit   string
	SecondaryRate   *float64
	RateSource      string
	ItemCount       int
	RejectedCount   int
	UnresolvedCount int
	ConflictCount   int
	CreatedAt       string
}

type HistoryPoint struct {
	SnapshotID     int
	CreatedAt      string
	ReferenceValue *float64
}
