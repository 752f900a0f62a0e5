package scrape

import (
	"regexp"

	"github.com/PuerkitoBio/goquery"

	"keiba/internal/models"
)

// Odds is the per-horse slice of an odds page: win odds from the tan block,
// show odds range from the fuku block. Nil fields were not on the page.
type Odds struct {
	Win     *float64
	ShowMin *float64
	ShowMax *float64
}

var (
	showMinRe = regexp.MustCompile(`(\d+\.\d) - \d+\.\d`)
	showMaxRe = regexp.MustCompile(`\d+\.\d - (\d+\.\d)`)
)

// ParseOdds reads a race's odds page into a mapping keyed by horse name.
// Row 0 of each table is a header and is always skipped. Horse names are not
// guaranteed unique; the first row seen for a name wins.
func ParseOdds(doc *goquery.Document) map[string]Odds {
	out := make(map[string]Odds)

	doc.Find("div#odds_fuku_block > table > tbody > tr").Each(func(i int, row *goquery.Selection) {
		if i == 0 {
			return
		}
		name := ExtractString(row.Find("td.Horse_Name").Text(), nonASCIIRe)
		if name == "" {
			return
		}
		o := out[name]
		if o.ShowMin != nil {
			return
		}
		rate := row.Find("td.Odds").Text()
		min := ExtractFloat(rate, showMinRe)
		max := ExtractFloat(rate, showMaxRe)
		o.ShowMin = &min
		o.ShowMax = &max
		out[name] = o
	})

	doc.Find("div#odds_tan_block > table > tbody > tr").Each(func(i int, row *goquery.Selection) {
		if i == 0 {
			return
		}
		name := ExtractString(row.Find("td.Horse_Name").Text(), nonASCIIRe)
		if name == "" {
			return
		}
		o := out[name]
		if o.Win != nil {
			return
		}
		win := ExtractFloat(row.Find("td.Odds").Text(), winOddsRe)
		o.Win = &win
		out[name] = o
	})

	return out
}

// MergeOdds overlays odds onto entries by horse name. The merge is strictly
// additive: no entry is created or dropped, unmatched entries are untouched.
func MergeOdds(entries []models.Entry, odds map[string]Odds) {
	for i := range entries {
		o, ok := odds[entries[i].HorseName]
		if !ok {
			continue
		}
		if o.Win != nil {
			entries[i].WinOdds = *o.Win
		}
		if o.ShowMin != nil {
			entries[i].ShowOddsMin = o.ShowMin
		}
		if o.ShowMax != nil {
			entries[i].ShowOddsMax = o.ShowMax
		}
	}
}
