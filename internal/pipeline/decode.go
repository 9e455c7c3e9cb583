package pipeline

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"farmcalc/internal"
	"farmcalc/internal/util"
)

var ErrMalformedFeed = errors.New("malformed price feed")

// Units named by the legacy feed fields divinePrice and exaltPrice.
const (
	legacyExaltedUnit = "Exalted Orb"
	legacyDivineUnit  = "Divine Orb"
)

// DecodePricesJSON reads a prices.json document: an object with a lines
// array (current and legacy scraper output) or a bare array of records.
func DecodePricesJSON(raw []byte) (internal.RawBatch, error) {
	if !gjson.ValidBytes(raw) {
		return internal.RawBatch{}, fmt.Errorf("%w: invalid json", ErrMalformedFeed)
	}

	doc := gjson.ParseBytes(raw)
	var lines gjson.Result
	batch := internal.RawBatch{}

	switch {
	case doc.IsArray():
		lines = doc
	case doc.IsObject():
		lines = doc.Get("lines")
		if !lines.IsArray() {
			return internal.RawBatch{}, fmt.Errorf("%w: missing lines array", ErrMalformedFeed)
		}
		batch.Meta = decodeMeta(doc)
	default:
		return internal.RawBatch{}, fmt.Errorf("%w: expected object or array", ErrMalformedFeed)
	}

	lines.ForEach(func(_, line gjson.Result) bool {
		batch.Records = append(batch.Records, decodeRecord(line))
		return true
	})
	return batch, nil
}

func decodeMeta(doc gjson.Result) internal.BatchMeta {
	meta := internal.BatchMeta{
		Source:        firstToken(doc, "sourceBase", "source"),
		League:        token(doc.Get("league")),
		UpdatedAt:     token(doc.Get("updatedAt")),
		Reference:     token(doc.Get("base")),
		ReferenceIcon: token(doc.Get("baseIcon")),
		SecondaryIcon: token(doc.Get("divineIcon")),
	}
	if rate, ok := util.ParseCompactNumber(token(doc.Get("divineInEx"))); ok {
		meta.SecondaryRate = util.FloatPtr(rate)
	}
	doc.Get("sections").ForEach(func(_, s gjson.Result) bool {
		key := token(s)
		if s.IsObject() {
			key = token(s.Get("key"))
		}
		if key != "" {
			meta.Sections = append(meta.Sections, key)
		}
		return true
	})
	return meta
}

func decodeRecord(line gjson.Result) internal.RawRecord {
	rec := internal.RawRecord{
		Section:     token(line.Get("section")),
		Name:        token(line.Get("name")),
		Icon:        token(line.Get("icon")),
		Amount:      token(line.Get("amount")),
		Unit:        token(line.Get("unit")),
		ListedValue: firstToken(line, "exaltedValue", "referenceValue"),
	}
	if rec.Amount != "" || rec.Unit != "" {
		return rec
	}
	if ex := token(line.Get("exaltPrice")); ex != "" {
		rec.Amount, rec.Unit = ex, legacyExaltedUnit
	} else if div := token(line.Get("divinePrice")); div != "" {
		rec.Amount, rec.Unit = div, legacyDivineUnit
	}
	return rec
}

// token renders a JSON value as the text a scraper would have seen; null and
// missing values become "".
func token(v gjson.Result) string {
	switch v.Type {
	case gjson.Null:
		return ""
	case gjson.String:
		return strings.TrimSpace(v.Str)
	case gjson.Number:
		return strconv.FormatFloat(v.Num, 'f', -1, 64)
	default:
		return strings.TrimSpace(v.Raw)
	}
}

func firstToken(v gjson.Result, paths ...string) string {
	for _, p := range paths {
		if t := token(v.Get(p)); t != "" {
			return t
		}
	}
	return ""
}

// DecodeFeeds merges fetched payloads into one batch in feed order. Batch
// metadata comes from the first prices.json feed; economy pages add their
// section. Any payload that cannot be decoded fails the whole batch.
func DecodeFeeds(feeds []internal.FetchedFeed, extract ExtractOptions) (internal.RawBatch, error) {
	batch := internal.RawBatch{}
	haveMeta := false

	for _, feed := range feeds {
		switch feed.Format {
		case internal.FormatPricesJSON:
			decoded, err := DecodePricesJSON(feed.Raw)
			if err != nil {
				return internal.RawBatch{}, fmt.Errorf("decode %s: %w", feed.Source, err)
			}
			if !haveMeta {
				sections := batch.Meta.Sections
				batch.Meta = decoded.Meta
				batch.Meta.Sections = append(sections, decoded.Meta.Sections...)
				haveMeta = true
			}
			batch.Records = append(batch.Records, decoded.Records...)

		case internal.FormatEconomyHTML:
			opts := extract
			opts.Section = feed.Section
			records, err := ExtractEconomyTable(string(feed.Raw), opts)
			if err != nil {
				return internal.RawBatch{}, fmt.Errorf("decode %s: %w", feed.Source, err)
			}
			if feed.Section != "" {
				batch.Meta.Sections = append(batch.Meta.Sections, feed.Section)
			}
			batch.Records = append(batch.Records, records...)

		default:
			return internal.RawBatch{}, fmt.Errorf("%w: unknown format %q from %s", ErrMalformedFeed, feed.Format, feed.Source)
		}

		if batch.Meta.Source == "" {
			batch.Meta.Source = feed.Source
		}
		if batch.Meta.UpdatedAt == "" && !feed.FetchedAt.IsZero() {
			batch.Meta.UpdatedAt = feed.FetchedAt.UTC().Format(time.RFC3339)
		}
	}

	return batch, nil
}
