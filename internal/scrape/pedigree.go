package scrape

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"keiba/internal/models"
)

type Pedigree struct {
	Sire string
	Dam  string
}

// ParsePedigree reads a race's pedigree table into a mapping keyed by horse
// name. Row 0 is a header; duplicate names keep the first row seen.
func ParsePedigree(doc *goquery.Document) map[string]Pedigree {
	out := make(map[string]Pedigree)
	doc.Find("div#pedigree_block > table > tbody > tr").Each(func(i int, row *goquery.Selection) {
		if i == 0 {
			return
		}
		cells := row.Find("td")
		if cells.Length() < 3 {
			return
		}
		name := ExtractString(cells.Eq(0).Text(), nonASCIIRe)
		if name == "" {
			return
		}
		if _, seen := out[name]; seen {
			return
		}
		out[name] = Pedigree{
			Sire: strings.TrimSpace(cells.Eq(1).Text()),
			Dam:  strings.TrimSpace(cells.Eq(2).Text()),
		}
	})
	return out
}

// MergePedigree overlays sire/dam names onto entries by horse name,
// additive-only like MergeOdds.
func MergePedigree(entries []models.Entry, peds map[string]Pedigree) {
	for i := range entries {
		p, ok := peds[entries[i].HorseName]
		if !ok {
			continue
		}
		if p.Sire != "" {
			sire := p.Sire
			entries[i].SireName = &sire
		}
		if p.Dam != "" {
			dam := p.Dam
			entries[i].DamName = &dam
		}
	}
}
