package pipeline

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"farmcalc/internal"
	"farmcalc/internal/util"
)

type ExtractOptions struct {
	Section string
	BaseURL string
	MaxRows int
	// Units are tried in order when a value cell names its unit.
	Units []string
}

// ExtractEconomyTable reads the rows of an economy section page. Tables with
// a "Value" column use its first numeric token and unit icon; other tables
// fall back to scanning every column for "<number> <unit>".
func ExtractEconomyTable(html string, opts ExtractOptions) ([]internal.RawRecord, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse economy page %q: %w", opts.Section, err)
	}

	out := []internal.RawRecord{}
	doc.Find("table").Each(func(_ int, table *goquery.Selection) {
		headers := []string{}
		headerRow := table.Find("thead tr").First()
		if headerRow.Length() == 0 {
			headerRow = table.Find("tr").First()
		}
		headerRow.Find("th").Each(func(_ int, cell *goquery.Selection) {
			headers = append(headers, strings.ToLower(util.CollapseSpaces(cell.Text())))
		})
		valueIdx := findHeaderIndex(headers, "value")

		table.Find("tr").Each(func(_ int, row *goquery.Selection) {
			if opts.MaxRows > 0 && len(out) >= opts.MaxRows {
				return
			}
			cells := row.Find("td")
			if cells.Length() < 2 {
				return
			}

			nameCell := cells.First()
			name := util.CollapseSpaces(nameCell.Text())
			if name == "" || strings.EqualFold(name, "currency") {
				return
			}
			rec := internal.RawRecord{Section: opts.Section, Name: name}
			if src, ok := nameCell.Find("img").First().Attr("src"); ok {
				rec.Icon = normalizeURL(src, opts.BaseURL)
			}

			if valueIdx >= 0 {
				if cells.Length() <= valueIdx {
					return
				}
				valueCell := cells.Eq(valueIdx)
				rec.Amount = util.FirstNumberToken(util.CollapseSpaces(valueCell.Text()))
				rec.Unit = detectUnit(valueCell, opts.Units)
			} else {
				texts := []string{}
				cells.Each(func(_ int, cell *goquery.Selection) {
					texts = append(texts, util.CollapseSpaces(cell.Text()))
				})
				rec.Amount, rec.Unit = scanQuotedPrice(texts[1:], opts.Units)
				if rec.Amount == "" {
					return
				}
			}
			out = append(out, rec)
		})
	})

	return out, nil
}

// detectUnit names the currency a value cell is expressed in, from its icon
// alt/title or its text.
func detectUnit(cell *goquery.Selection, units []string) string {
	candidates := []string{cell.Text()}
	cell.Find("img").Each(func(_ int, img *goquery.Selection) {
		candidates = append(candidates, img.AttrOr("alt", ""), img.AttrOr("title", ""))
	})
	for _, unit := range units {
		if strings.TrimSpace(unit) == "" {
			continue
		}
		re := unitPattern(unit)
		for _, p := range candidates {
			if re.MatchString(p) {
				return unit
			}
		}
	}
	return ""
}

func scanQuotedPrice(texts []string, units []string) (string, string) {
	for _, unit := range units {
		if strings.TrimSpace(unit) == "" {
			continue
		}
		re := regexp.MustCompile(`(?i)([0-9]+(?:[.,][0-9]+)?[km]?)\s*` + unitExpr(unit))
		for _, text := range texts {
			if m := re.FindStringSubmatch(text); m != nil {
				return m[1], unit
			}
		}
	}
	return "", ""
}

func unitPattern(unit string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)(?:^|[^a-z])` + unitExpr(unit) + `(?:$|[^a-z])`)
}

func unitExpr(unit string) string {
	parts := strings.Fields(unit)
	for i, p := range parts {
		parts[i] = regexp.QuoteMeta(p)
	}
	return strings.Join(parts, `\s*`)
}

func findHeaderIndex(headers []string, want string) int {
	for i, h := range headers {
		if h == want {
			return i
		}
	}
	return -1
}

func normalizeURL(u, base string) string {
	u = strings.TrimSpace(u)
	switch {
	case u == "":
		return ""
	case strings.HasPrefix(u, "http://"), strings.HasPrefix(u, "https://"):
		return u
	case strings.HasPrefix(u, "//"):
		return "https:" + u
	case strings.HasPrefix(u, "/") && base != "":
		return strings.TrimRight(base, "/") + u
	default:
		return u
	}
}
